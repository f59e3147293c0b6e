package account_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clubhub/internal/config"
	"clubhub/internal/repositories"
	"clubhub/internal/services"
	mem "clubhub/pkg/memcache"
	"clubhub/pkg/metrics"
	"clubhub/pkg/utils"
)

var Module = fx.Provide(
	provideAccountService, provideAccountRepo, provideJWTSigner)

func provideAccountRepo(db *gorm.DB) repositories.AccountRepository {
	return repositories.NewAccountRepository(db)
}

func provideJWTSigner(cfg *config.Config) *utils.JWTSigner {
	return utils.NewJWTSigner(cfg.JWTSecret)
}

func provideAccountService(
	db *gorm.DB,
	accountRepo repositories.AccountRepository,
	approvalRepo repositories.ApprovalRepository,
	attempts mem.LoginAttemptStore,
	signer *utils.JWTSigner,
	opts services.LoginOptions,
	logger *zap.Logger,
	m *metrics.Metrics,
) services.AccountServiceInterface {
	return services.NewAccountService(db, accountRepo, approvalRepo, attempts, signer, opts, logger, m)
}
