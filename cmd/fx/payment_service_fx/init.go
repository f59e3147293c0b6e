package payment_service_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clubhub/internal/api/controllers"
	"clubhub/internal/config"
	"clubhub/internal/repositories"
	"clubhub/internal/services"
	"clubhub/pkg/metrics"
)

var Module = fx.Provide(
	providePaymentRepo, provideGateway, providePaymentService, providePaymentController,
)

func providePaymentRepo(db *gorm.DB) repositories.PaymentRepository {
	return repositories.NewPaymentRepository(db)
}

func provideGateway(cfg *config.Config) (services.PaymentGateway, error) {
	return services.NewRazorpayGateway(services.RazorpayConfig{
		KeyID:     cfg.Payment.KeyID,
		KeySecret: cfg.Payment.KeySecret,
	})
}

func providePaymentService(
	db *gorm.DB,
	orders repositories.PaymentRepository,
	gateway services.PaymentGateway,
	opts services.PaymentOptions,
	logger *zap.Logger,
	m *metrics.Metrics,
) services.PaymentService {
	resolvers := []services.PayableResolver{
		services.NewPublicRegistrationResolver(),
		services.NewMemberRegistrationResolver(),
	}
	return services.NewPaymentService(db, orders, gateway, resolvers, opts, logger, m)
}

func providePaymentController(paymentService services.PaymentService) *controllers.PaymentController {
	return controllers.NewPaymentController(paymentService)
}
