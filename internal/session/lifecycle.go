package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seltzer-io/seltzerd/internal/browser"
	"github.com/seltzer-io/seltzerd/internal/config"
)

// Lifecycle starts and closes sessions. Driver opens and closes are slow
// blocking calls; none of them run under the store lock.
type Lifecycle struct {
	store   *Store
	factory browser.Factory
	state   *config.State
	logger  *zap.Logger

	baseDir    string
	bin        string
	navTimeout time.Duration

	// newID is swapped out by tests to force id collisions.
	newID func() string
}

// NewLifecycle wires a lifecycle over the given registry and driver factory.
func NewLifecycle(store *Store, factory browser.Factory, state *config.State, cfg *config.Config, logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		store:      store,
		factory:    factory,
		state:      state,
		logger:     logger,
		baseDir:    cfg.BaseDir,
		bin:        cfg.Browser.Bin,
		navTimeout: cfg.Browser.NavigationTimeout(),
		newID:      uuid.NewString,
	}
}

// Start creates a session: a fresh id unique among live sessions, a private
// profile directory derived from it, and a driver opened in the current
// headless mode. The session is registered only once the driver is up; a
// driver start failure propagates and leaves nothing behind.
func (l *Lifecycle) Start(ctx context.Context) (*Session, error) {
	var id string
	for {
		id = l.newID()
		if _, ok := l.store.Find(id); !ok {
			break
		}
	}

	workDir := filepath.Join(l.baseDir, "profiles", id)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	headless := l.state.Headless()
	drv, err := l.factory.Open(ctx, browser.Options{
		Headless:          headless,
		UserDataDir:       workDir,
		Bin:               l.bin,
		NavigationTimeout: l.navTimeout,
	})
	if err != nil {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			l.logger.Warn("profile dir cleanup after failed start",
				zap.String("dir", workDir), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("start session: %w", err)
	}

	sess := &Session{
		ID:        id,
		Driver:    drv,
		WorkDir:   workDir,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := l.store.Insert(sess); err != nil {
		_ = drv.Close()
		_ = os.RemoveAll(workDir)
		return nil, err
	}

	l.logger.Info("session started",
		zap.String("session_id", id),
		zap.Bool("headless", headless))
	return sess, nil
}

// Close tears a session down: it is removed from the registry first so no
// new command can reach it, then the driver is closed, then the profile
// directory is deleted. Directory cleanup failures are logged and do not
// undo the closure.
func (l *Lifecycle) Close(sess *Session) error {
	l.store.Remove(sess.ID)

	err := sess.Driver.Close()
	if err != nil {
		l.logger.Warn("driver close", zap.String("session_id", sess.ID), zap.Error(err))
	}

	if rmErr := os.RemoveAll(sess.WorkDir); rmErr != nil {
		l.logger.Warn("profile dir cleanup",
			zap.String("session_id", sess.ID),
			zap.String("dir", sess.WorkDir),
			zap.Error(rmErr))
	}

	l.logger.Info("session closed", zap.String("session_id", sess.ID))
	return err
}

// CloseByID closes the session with the given id, or reports ErrNotFound.
func (l *Lifecycle) CloseByID(id string) error {
	sess, ok := l.store.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return l.Close(sess)
}
