package assignment_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clubhub/internal/config"
	"clubhub/internal/repositories"
	"clubhub/internal/services"
	"clubhub/pkg/metrics"
)

var Module = fx.Provide(
	provideAssignmentService, provideScheduler)

// Schedule starts the periodic run with the app; add it only to long-running commands.
var Schedule = fx.Invoke(registerScheduler)

func provideAssignmentService(
	db *gorm.DB,
	accountRepo repositories.AccountRepository,
	approvalRepo repositories.ApprovalRepository,
	opts services.AssignmentOptions,
	logger *zap.Logger,
	m *metrics.Metrics,
) services.AssignmentServiceInterface {
	return services.NewAssignmentService(db, accountRepo, approvalRepo, opts, logger, m)
}

func provideScheduler(assigner services.AssignmentServiceInterface, cfg *config.Config, logger *zap.Logger) *services.AssignmentScheduler {
	return services.NewAssignmentScheduler(assigner, cfg.Assignment.Interval, logger)
}

func registerScheduler(lc fx.Lifecycle, cfg *config.Config, scheduler *services.AssignmentScheduler, logger *zap.Logger) {
	if !cfg.Assignment.Enabled {
		logger.Info("reviewer assignment schedule disabled")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return scheduler.Stop(ctx)
		},
	})
}
