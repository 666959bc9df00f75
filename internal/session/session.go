// Package session manages the lifecycle of browser automation sessions: the
// registry of live sessions, starting and closing them, and the background
// reaper that evicts the idle and the abandoned.
package session

import (
	"sync/atomic"
	"time"

	"github.com/seltzer-io/seltzerd/internal/browser"
)

// Session binds a client-visible id to one exclusively-owned driver and its
// private profile directory. A session is reachable through the Store
// exactly while its driver is open and its profile directory exists.
type Session struct {
	ID      string
	Driver  browser.Driver
	WorkDir string

	// CreatedAt is milliseconds since epoch, stamped at start.
	CreatedAt int64

	// lastUsed is milliseconds since epoch; zero means never used.
	lastUsed atomic.Int64
}

// Touch stamps the session as used now. Called on every dispatched command.
func (s *Session) Touch() {
	s.lastUsed.Store(time.Now().UnixMilli())
}

// LastUsed returns the last-use stamp in milliseconds, zero if never used.
func (s *Session) LastUsed() int64 {
	return s.lastUsed.Load()
}
