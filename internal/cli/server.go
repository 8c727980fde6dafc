package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dsa-quiz-service/internal/config"
	"dsa-quiz-service/internal/logger"
	transport "dsa-quiz-service/internal/transport/http"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	service, backends, err := buildService(ctx, cfg)
	defer func() {
		if err := backends.Close(); err != nil {
			slog.Warn("closing backends", "error", err)
		}
	}()
	if err != nil {
		return err
	}

	secret := cfg.Auth.Secret
	if secret == "" {
		secret = "dev-secret-change-me"
		slog.Warn("AUTH_SECRET not set, using an insecure development secret")
	}
	auth := transport.NewAuth(secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	router := transport.NewRouter(service, auth, transport.RouterOptions{
		CORSOrigins:  cfg.Server.CORSOrigins,
		MaxQuestions: cfg.Quiz.MaxQuestions,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		slog.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
