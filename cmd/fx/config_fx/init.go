package config_fx

import (
	"go.uber.org/fx"

	"clubhub/internal/config"
	"clubhub/internal/services"
)

var Module = fx.Provide(
	provideConfig,
	provideApprovalOptions,
	provideAssignmentOptions,
	provideLoginOptions,
	providePaymentOptions,
)

func provideConfig() (*config.Config, error) {
	return config.Load()
}

func provideApprovalOptions(cfg *config.Config) services.ApprovalOptions {
	return services.ApprovalOptions{RequireSecondTier: cfg.Approval.RequireSecondTier}
}

func provideAssignmentOptions(cfg *config.Config) services.AssignmentOptions {
	return services.AssignmentOptions{
		RequireSecondTier: cfg.Approval.RequireSecondTier,
		Window:            cfg.Assignment.Window,
	}
}

func provideLoginOptions(cfg *config.Config) services.LoginOptions {
	return services.LoginOptions{
		MaxAttempts: cfg.Login.MaxAttempts,
		Lockout:     cfg.Login.Lockout,
	}
}

func providePaymentOptions(cfg *config.Config) services.PaymentOptions {
	return services.PaymentOptions{
		Currency:   cfg.Payment.Currency,
		MinAmount:  cfg.Payment.MinAmount,
		CrossCheck: cfg.Payment.CrossCheck,
	}
}
