package memcache_fx

import (
	"go.uber.org/fx"

	"clubhub/internal/config"
	mem "clubhub/pkg/memcache"
)

var Module = fx.Provide(provideLoginLimiter)

func provideLoginLimiter(cfg *config.Config) mem.LoginAttemptStore {
	return mem.NewLoginLimiter(cfg.Login.RateCeiling, cfg.Login.RateWindow)
}
