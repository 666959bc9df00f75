package config

import (
	"errors"
	"fmt"
	"sync"
)

// ErrHeadlessLocked reports an attempt to change the headless mode after it
// was locked.
var ErrHeadlessLocked = errors.New("config: headless setting is locked")

// State is process-lifetime runtime configuration. It is constructed once at
// startup and read by every subsequent session start; it is not an ambient
// global.
type State struct {
	mu       sync.Mutex
	headless bool
	locked   bool
}

// NewState returns an unlocked state with headless off.
func NewState() *State {
	return &State{}
}

// Headless reports the mode new sessions will start in.
func (s *State) Headless() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headless
}

// SetHeadless updates the headless flag and, when lock is set, rejects every
// later change. The lock is one-way: once set it never clears, and a locked
// state is left untouched by failed calls.
func (s *State) SetHeadless(enabled, lock bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return fmt.Errorf("%w: cannot turn headless mode %s", ErrHeadlessLocked, onOff(enabled))
	}
	s.headless = enabled
	if lock {
		s.locked = true
	}
	return nil
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
