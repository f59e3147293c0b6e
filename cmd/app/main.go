package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"clubhub/cmd/fx/account_fx"
	"clubhub/cmd/fx/approval_fx"
	"clubhub/cmd/fx/assignment_fx"
	"clubhub/cmd/fx/config_fx"
	"clubhub/cmd/fx/controllers_fx"
	"clubhub/cmd/fx/db_fx"
	"clubhub/cmd/fx/logger_fx"
	"clubhub/cmd/fx/mail_fx"
	"clubhub/cmd/fx/memcache_fx"
	"clubhub/cmd/fx/metrics_fx"
	"clubhub/cmd/fx/payment_service_fx"
	"clubhub/internal/config"
	"clubhub/internal/services"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "clubhub",
		Short:        "Club membership approvals and event payments",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), assignCmd())
	return root
}

// coreModules are shared by every command.
func coreModules() fx.Option {
	return fx.Options(
		config_fx.Module,
		logger_fx.Module,
		db_fx.Module,
		metrics_fx.Module,
		memcache_fx.Module,
		account_fx.Module,
		mail_fx.Module,
		approval_fx.Module,
		assignment_fx.Module,
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reviewer assignment schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				coreModules(),
				payment_service_fx.Module,
				controllers_fx.Module,
				assignment_fx.Schedule,

				fx.Invoke(requireServeSettings),
				fx.Provide(ProvideRouter),
				fx.Invoke(StartServer),
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func assignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign-reviewers",
		Short: "Run one reviewer assignment batch and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				assigner services.AssignmentServiceInterface
				logger   *zap.Logger
			)
			app := fx.New(
				coreModules(),
				fx.Populate(&assigner, &logger),
			)
			if err := app.Err(); err != nil {
				return err
			}

			startCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := app.Start(startCtx); err != nil {
				return err
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = app.Stop(stopCtx)
			}()

			summary, err := assigner.AssignPending(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "assigned %d first-tier and %d second-tier reviewers\n",
				summary.FirstTierAssigned, summary.SecondTierAssigned)
			return nil
		},
	}
}

func requireServeSettings(cfg *config.Config) error {
	return cfg.RequireServe()
}

func StartServer(lc fx.Lifecycle, cfg *config.Config, engine *gin.Engine, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info("starting HTTP server", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal("HTTP server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}
