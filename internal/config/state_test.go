package config

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetHeadlessUnlocked(t *testing.T) {
	state := NewState()
	require.False(t, state.Headless())

	require.NoError(t, state.SetHeadless(true, false))
	require.True(t, state.Headless())

	require.NoError(t, state.SetHeadless(false, false))
	require.False(t, state.Headless())
}

func TestHeadlessLockIsOneWay(t *testing.T) {
	state := NewState()
	require.NoError(t, state.SetHeadless(true, true))

	err := state.SetHeadless(false, false)
	require.ErrorIs(t, err, ErrHeadlessLocked)
	require.True(t, state.Headless(), "failed change must leave the flag untouched")

	// Even re-asserting the current value is rejected once locked.
	require.ErrorIs(t, state.SetHeadless(true, true), ErrHeadlessLocked)
	require.True(t, state.Headless())
}

func TestSetHeadlessConcurrent(t *testing.T) {
	state := NewState()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(lock bool) {
			defer wg.Done()
			_ = state.SetHeadless(true, lock)
			_ = state.Headless()
		}(i%2 == 0)
	}
	wg.Wait()

	// At least one locking call ran, so state is pinned now.
	require.ErrorIs(t, state.SetHeadless(false, false), ErrHeadlessLocked)
	require.True(t, state.Headless())
}
