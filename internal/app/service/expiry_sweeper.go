package service

import (
	"context"
	"time"

	"github.com/sifan077/SnipURL/internal/app/repository"
	"go.uber.org/zap"
)

// ExpirySweeper periodically deactivates mappings whose expiration has passed.
// Resolve already refuses expired mappings on its own; the sweep keeps the
// active flag honest for listings and future lookups.
type ExpirySweeper struct {
	logger   *zap.Logger
	repo     repository.MappingRepository
	interval time.Duration
	stopChan chan struct{}
}

// NewExpirySweeper creates a sweeper running at the given interval.
func NewExpirySweeper(logger *zap.Logger, repo repository.MappingRepository, interval time.Duration) *ExpirySweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpirySweeper{
		logger:   logger,
		repo:     repo,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (s *ExpirySweeper) Start() {
	go s.run()
}

// Stop stops the periodic sweep.
func (s *ExpirySweeper) Stop() {
	close(s.stopChan)
}

func (s *ExpirySweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopChan:
			s.logger.Info("expiry sweeper stopped")
			return
		}
	}
}

func (s *ExpirySweeper) sweep() {
	ctx := context.Background()

	affected, err := s.repo.DeactivateExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error("failed to deactivate expired mappings", zap.Error(err))
		return
	}

	if affected > 0 {
		s.logger.Info("deactivated expired mappings", zap.Int64("count", affected))
	}
}
