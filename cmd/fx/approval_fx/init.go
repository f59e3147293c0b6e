package approval_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clubhub/internal/config"
	"clubhub/internal/repositories"
	"clubhub/internal/services"
	"clubhub/pkg/metrics"
)

var Module = fx.Provide(
	provideApprovalRepo, provideUsernameAllocator, provideApprovalService)

func provideApprovalRepo(db *gorm.DB) repositories.ApprovalRepository {
	return repositories.NewApprovalRepository(db)
}

func provideUsernameAllocator(cfg *config.Config) services.UsernameAllocator {
	return services.NewUsernameAllocator(cfg.Approval.UsernameMiddle, cfg.Location())
}

func provideApprovalService(
	db *gorm.DB,
	accountRepo repositories.AccountRepository,
	approvalRepo repositories.ApprovalRepository,
	usernames services.UsernameAllocator,
	mailer services.DecisionMailer,
	opts services.ApprovalOptions,
	logger *zap.Logger,
	m *metrics.Metrics,
) services.ApprovalServiceInterface {
	return services.NewApprovalService(db, accountRepo, approvalRepo, usernames, mailer, opts, logger, m)
}
