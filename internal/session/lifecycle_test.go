package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seltzer-io/seltzerd/internal/browser"
	"github.com/seltzer-io/seltzerd/internal/browser/browsertest"
	"github.com/seltzer-io/seltzerd/internal/config"
)

func newTestLifecycle(t *testing.T, factory browser.Factory) (*Lifecycle, *Store) {
	t.Helper()
	cfg := config.Default()
	cfg.BaseDir = t.TempDir()
	store := NewStore()
	return NewLifecycle(store, factory, config.NewState(), cfg, zap.NewNop()), store
}

func TestStartRegistersSession(t *testing.T) {
	factory := &browsertest.Factory{}
	lc, store := newTestLifecycle(t, factory)

	sess, err := lc.Start(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	require.NotZero(t, sess.CreatedAt)
	require.Zero(t, sess.LastUsed(), "a fresh session has never been used")

	found, ok := store.Find(sess.ID)
	require.True(t, ok)
	require.Same(t, sess, found)

	info, err := os.Stat(sess.WorkDir)
	require.NoError(t, err)
	require.True(t, info.IsDir())

	opts := factory.Options()
	require.Len(t, opts, 1)
	require.Equal(t, sess.WorkDir, opts[0].UserDataDir)
}

func TestStartHonorsHeadlessState(t *testing.T) {
	factory := &browsertest.Factory{}
	cfg := config.Default()
	cfg.BaseDir = t.TempDir()
	state := config.NewState()
	require.NoError(t, state.SetHeadless(true, true))
	lc := NewLifecycle(NewStore(), factory, state, cfg, zap.NewNop())

	_, err := lc.Start(context.Background())
	require.NoError(t, err)
	require.True(t, factory.Options()[0].Headless)
}

func TestStartRetriesIDCollisions(t *testing.T) {
	factory := &browsertest.Factory{}
	lc, store := newTestLifecycle(t, factory)

	require.NoError(t, store.Insert(&Session{ID: "taken"}))

	ids := []string{"taken", "taken", "fresh"}
	calls := 0
	lc.newID = func() string {
		id := ids[calls]
		calls++
		return id
	}

	sess, err := lc.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, "fresh", sess.ID)
	require.Equal(t, 3, calls, "collisions must be retried, not accepted")
}

func TestStartUniqueIDsUnderConcurrency(t *testing.T) {
	factory := &browsertest.Factory{}
	lc, store := newTestLifecycle(t, factory)

	const n = 16
	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := lc.Start(context.Background())
			if err == nil {
				ids <- sess.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		require.False(t, seen[id], "duplicate session id %s", id)
		seen[id] = true
	}
	require.Len(t, seen, n)
	require.Equal(t, n, store.Len())
}

func TestStartDriverFailurePropagates(t *testing.T) {
	factory := &browsertest.Factory{
		OpenErr: fmt.Errorf("%w: chromium binary missing", browser.ErrDriverStart),
	}
	lc, store := newTestLifecycle(t, factory)

	_, err := lc.Start(context.Background())
	require.ErrorIs(t, err, browser.ErrDriverStart)
	require.Equal(t, 0, store.Len(), "a failed start must register nothing")
}

func TestCloseTearsDownInOrder(t *testing.T) {
	factory := &browsertest.Factory{}
	lc, store := newTestLifecycle(t, factory)

	sess, err := lc.Start(context.Background())
	require.NoError(t, err)

	require.NoError(t, lc.Close(sess))

	_, ok := store.Find(sess.ID)
	require.False(t, ok)
	require.Equal(t, 1, factory.Opened()[0].CloseCount())

	_, statErr := os.Stat(sess.WorkDir)
	require.True(t, os.IsNotExist(statErr), "profile dir must be deleted on close")
}

func TestCloseIsIdempotent(t *testing.T) {
	factory := &browsertest.Factory{}
	lc, _ := newTestLifecycle(t, factory)

	sess, err := lc.Start(context.Background())
	require.NoError(t, err)

	require.NoError(t, lc.Close(sess))
	require.NoError(t, lc.Close(sess), "second close must not fail")
	require.Equal(t, 2, factory.Opened()[0].CloseCount())
}

func TestCloseByIDUnknownSession(t *testing.T) {
	factory := &browsertest.Factory{}
	lc, _ := newTestLifecycle(t, factory)

	err := lc.CloseByID("no-such-session")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCloseSurvivesMissingWorkDir(t *testing.T) {
	factory := &browsertest.Factory{}
	lc, store := newTestLifecycle(t, factory)

	sess, err := lc.Start(context.Background())
	require.NoError(t, err)

	// Someone deleted the profile dir out from under us; closure still
	// succeeds and the session is still deregistered.
	require.NoError(t, os.RemoveAll(sess.WorkDir))
	require.NoError(t, lc.Close(sess))

	_, ok := store.Find(sess.ID)
	require.False(t, ok)
}

func TestStartInsertRaceClosesDriver(t *testing.T) {
	factory := &browsertest.Factory{}
	lc, store := newTestLifecycle(t, factory)
	lc.newID = func() string { return "dup" }

	// The id is free at generation time but taken by the time the driver is
	// up, as happens when two starts draw the same id. The loser must close
	// its driver and leave no session behind.
	factory.Prepare = func(*browsertest.Driver) {
		_ = store.Insert(&Session{ID: "dup"})
	}

	_, err := lc.Start(context.Background())
	require.ErrorIs(t, err, ErrDuplicateID)

	drivers := factory.Opened()
	require.Len(t, drivers, 1)
	require.Equal(t, 1, drivers[0].CloseCount())
}
