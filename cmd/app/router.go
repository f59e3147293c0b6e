package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"clubhub/internal/api/controllers"
	"clubhub/internal/config"
	"clubhub/pkg/authz"
	"clubhub/pkg/middleware"
	"clubhub/pkg/utils"
)

func ProvideRouter(
	cfg *config.Config,
	logger *zap.Logger,
	signer *utils.JWTSigner,
	reg *prometheus.Registry,
	accountController *controllers.AccountController,
	approvalController *controllers.ApprovalController,
	paymentController *controllers.PaymentController) (*gin.Engine, error) {

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	// the login throttle keys on ClientIP
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.RequestLogger(logger))

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	RegisterRoutes(r, signer, accountController, approvalController, paymentController)

	return r, nil
}

func RegisterRoutes(r *gin.Engine,
	signer *utils.JWTSigner,
	accountController *controllers.AccountController,
	approvalController *controllers.ApprovalController,
	paymentController *controllers.PaymentController) {

	auth := middleware.JWTAuthMiddleware(signer)

	accountGroup := r.Group("/accounts")
	accountGroup.POST("/register", accountController.Register)
	accountGroup.POST("/login", accountController.Login)
	accountGroup.POST("/:id/unlock", auth, middleware.RequireCapability(authz.CapUnlockAccount), accountController.Unlock)
	accountGroup.DELETE("/:id", auth, middleware.RequireCapability(authz.CapDeleteAccount), accountController.Delete)

	approvalGroup := r.Group("/approvals", auth, middleware.RequireCapability(
		authz.CapApproveFirstTier, authz.CapApproveSecondTier, authz.CapApproveAsAdmin))
	approvalGroup.GET("/:tier/queue", approvalController.Queue)
	approvalGroup.POST("/:tier/:accountId/approve", approvalController.Approve)
	approvalGroup.POST("/:tier/:accountId/reject", approvalController.Reject)

	// callers authenticate with the per-order access token
	paymentGroup := r.Group("/payments")
	paymentGroup.POST("/orders", paymentController.CreateOrder)
	paymentGroup.POST("/verify", paymentController.Verify)
	paymentGroup.POST("/failure", paymentController.ReportFailure)
}
