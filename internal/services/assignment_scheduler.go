package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AssignmentScheduler runs AssignPending on a fixed interval until stopped.
type AssignmentScheduler struct {
	assigner AssignmentServiceInterface
	interval time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAssignmentScheduler(assigner AssignmentServiceInterface, interval time.Duration, logger *zap.Logger) *AssignmentScheduler {
	return &AssignmentScheduler{
		assigner: assigner,
		interval: interval,
		logger:   logger.Named("assignment_scheduler"),
	}
}

func (s *AssignmentScheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.loop(ctx)
	s.logger.Info("reviewer assignment scheduled", zap.Duration("interval", s.interval))
}

// Stop cancels the loop and waits for an in-flight run to finish or ctx to expire.
func (s *AssignmentScheduler) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AssignmentScheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *AssignmentScheduler) runOnce(ctx context.Context) {
	// failures are logged by the service; the next tick retries
	if _, err := s.assigner.AssignPending(ctx); errors.Is(err, ErrAssignmentInProgress) {
		s.logger.Debug("previous run still active")
	}
}
