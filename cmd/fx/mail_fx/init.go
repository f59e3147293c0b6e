package mail_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"clubhub/internal/config"
	"clubhub/internal/services"
)

var Module = fx.Provide(provideDecisionMailer)

func provideDecisionMailer(cfg *config.Config, logger *zap.Logger) services.DecisionMailer {
	if cfg.Mail.Host == "" {
		logger.Info("mail host not configured, decision mails disabled")
	}
	return services.NewDecisionMailer(services.SMTPConfig{
		Host:       cfg.Mail.Host,
		Port:       cfg.Mail.Port,
		Username:   cfg.Mail.Username,
		Password:   cfg.Mail.Password,
		From:       cfg.Mail.From,
		FromName:   cfg.Mail.FromName,
		UseSSL:     cfg.Mail.UseSSL,
		RequireTLS: cfg.Mail.RequireTLS,
		AppName:    cfg.Mail.FromName,
	})
}
