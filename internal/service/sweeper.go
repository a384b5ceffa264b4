package service

import (
	"context"
	"fmt"
	"time"

	"prism/config"
	"prism/pkg/logger"

	"github.com/robfig/cron/v3"
)

const sweepTimeout = 30 * time.Second

// Sweeper periodically fails executions left PENDING or RUNNING by a crashed process.
type Sweeper interface {
	Start(ctx context.Context) error
	Stop()
}

type sweeper struct {
	cfg              *config.Config
	log              *logger.Logger
	executionService ExecutionService
	cron             *cron.Cron
}

func NewSweeper(cfg *config.Config, log *logger.Logger, executionService ExecutionService) Sweeper {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &sweeper{
		cfg:              cfg,
		log:              log,
		executionService: executionService,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}
}

// Start registers the sweep job. An empty schedule disables sweeping.
func (s *sweeper) Start(ctx context.Context) error {
	schedule := s.cfg.Execution.SweepSchedule
	if schedule == "" {
		s.log.InfoContext(ctx, "Execution sweeper disabled")
		return nil
	}

	_, err := s.cron.AddFunc(schedule, func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		s.sweep(sweepCtx)
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to schedule execution sweeper", logger.ErrorField(err), logger.StringField("schedule", schedule))
		return fmt.Errorf("failed to schedule execution sweeper: %w", err)
	}

	s.cron.Start()
	s.log.InfoContext(ctx, "Execution sweeper started",
		logger.StringField("schedule", schedule),
		logger.DurationField("stuck_after", s.cfg.Execution.StuckAfter),
	)
	return nil
}

func (s *sweeper) sweep(ctx context.Context) {
	count, err := s.executionService.SweepStuck(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Execution sweep failed", logger.ErrorField(err))
		return
	}
	s.log.DebugContext(ctx, "Execution sweep finished", logger.IntField("swept", count))
}

// Stop waits for a running sweep to return.
func (s *sweeper) Stop() {
	<-s.cron.Stop().Done()
}
