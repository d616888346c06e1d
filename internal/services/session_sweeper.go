package services

import (
	"context"
	"time"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"go.uber.org/zap"
)

// SessionSweeper periodically removes expired sessions from the persistent store
type SessionSweeper struct {
	store    domain.SessionStore
	interval time.Duration
	logger   *zap.Logger
}

// NewSessionSweeper creates a sweeper. A non-positive interval defaults to one hour.
func NewSessionSweeper(store domain.SessionStore, interval time.Duration, logger *zap.Logger) *SessionSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionSweeper{store: store, interval: interval, logger: logger.Named("sweeper")}
}

// Run sweeps on every tick until ctx is cancelled. It always returns nil so it
// can run inside an errgroup without stopping its siblings.
func (s *SessionSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("session sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper stopped")
			return nil
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep and returns the number of removed sessions
func (s *SessionSweeper) SweepOnce(ctx context.Context) int64 {
	removed, err := s.store.SweepExpired(ctx)
	if err != nil {
		s.logger.Error("session sweep failed", zap.Error(err))
		return 0
	}
	if removed > 0 {
		s.logger.Info("expired sessions removed", zap.Int64("count", removed))
	}
	return removed
}
