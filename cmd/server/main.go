package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"timepoint/backend/internal/api"
	"timepoint/backend/internal/config"
	"timepoint/backend/internal/logging"
	"timepoint/backend/internal/mcp"
	"timepoint/backend/internal/pipeline"
	"timepoint/backend/internal/provider"
	"timepoint/backend/internal/repository"
	"timepoint/backend/internal/services"
	"timepoint/backend/internal/tls"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "timepoint-server",
		Short: "Historical scene generation service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to config file")

	if err := root.Execute(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func run(ctx context.Context, configPath string) error {
	logger := logging.NewLogger()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger.Info("configuration loaded", "store", cfg.Store.Driver, "providers", len(cfg.Providers))

	store, cleanup, err := initStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer cleanup()

	router := buildRouter(cfg, logger)
	orch := pipeline.NewOrchestrator(router, logger, cfg.Pipeline.StageAttempts, cfg.StageTimeout())
	svc := services.NewSceneService(orch, store, logger)

	logger.Info("service layer initialized")

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("timepoint"))

	api.NewHandler(svc, router, logger).RegisterRoutes(e)
	logger.Info("REST API handlers mounted")

	mcpServer := mcp.NewServer(svc)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))
	logger.Info("MCP protocol handlers mounted")

	addr := ":8080"
	if cfg.TLS.Enable {
		addr = ":8443"
	}
	server := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server starting", "address", addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			if _, err := os.Stat(cfg.TLS.CertFile); os.IsNotExist(err) && len(cfg.TLS.Hostnames) > 0 {
				if err := tls.GenerateSelfSignedCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames); err != nil {
					logger.Error("failed to generate self-signed cert", "error", err)
				}
			}
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
			return
		}
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("server close error", "error", err)
			}
		}
		logger.Info("server stopped gracefully")
	}
	return nil
}

// initStore wires the configured scene store and returns its cleanup.
func initStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (repository.SceneStore, func(), error) {
	if cfg.Store.Driver == "memory" {
		logger.Info("using in-memory scene store")
		return repository.NewInMemorySceneStore(), func() {}, nil
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	store := repository.NewPostgresSceneStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	logger.Info("database connected", "host", cfg.DB.Host, "name", cfg.DB.Name)
	return store, pool.Close, nil
}

// buildRouter registers every configured backend in fallback order. Unknown
// kinds are skipped with a warning rather than failing startup.
func buildRouter(cfg *config.Config, logger *logging.Logger) *provider.Router {
	router := provider.NewRouter(logger)
	for _, p := range cfg.Providers {
		switch p.Kind {
		case "canned":
			router.Register(provider.NewCanned(p.ID, nil), p.Rank, p.MaxAttempts, p.RPS)
			logger.Info("registered backend", "id", p.ID, "kind", p.Kind, "rank", p.Rank)
		default:
			logger.Warn("skipping backend with unknown kind", "id", p.ID, "kind", p.Kind)
		}
	}
	return router
}
