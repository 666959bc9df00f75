package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reaper evicts sessions that were started and never used, or used and then
// abandoned. Eviction goes through the same Lifecycle.Close path as an
// explicit client exit.
type Reaper struct {
	store     *Store
	lifecycle *Lifecycle
	logger    *zap.Logger

	neverUsed time.Duration
	inactive  time.Duration
	interval  time.Duration

	// now is swapped out by tests to probe the eviction boundaries.
	now func() time.Time
}

// NewReaper builds a reaper over the registry. Non-positive durations fall
// back to 10m never-used, 1h inactive, 1m sweep interval.
func NewReaper(store *Store, lifecycle *Lifecycle, neverUsed, inactive, interval time.Duration, logger *zap.Logger) *Reaper {
	if neverUsed <= 0 {
		neverUsed = 10 * time.Minute
	}
	if inactive <= 0 {
		inactive = time.Hour
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reaper{
		store:     store,
		lifecycle: lifecycle,
		logger:    logger,
		neverUsed: neverUsed,
		inactive:  inactive,
		interval:  interval,
		now:       time.Now,
	}
}

// Sweep closes every expired session in a registry snapshot and returns how
// many were evicted.
func (r *Reaper) Sweep() int {
	now := r.now().UnixMilli()
	evicted := 0

	for _, sess := range r.store.All() {
		var expired bool
		if last := sess.LastUsed(); last == 0 {
			expired = now-sess.CreatedAt > r.neverUsed.Milliseconds()
		} else {
			expired = now-last > r.inactive.Milliseconds()
		}
		if !expired {
			continue
		}

		if err := r.lifecycle.Close(sess); err != nil {
			r.logger.Warn("evicting session", zap.String("session_id", sess.ID), zap.Error(err))
		}
		r.logger.Info("session evicted", zap.String("session_id", sess.ID))
		evicted++
	}

	return evicted
}

// Run sweeps on a fixed interval until the context is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info("reaper pass complete", zap.Int("evicted", n))
			}
		}
	}
}
