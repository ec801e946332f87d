// Package main is the entry point for the server binary. It dispatches three
// subcommands, serve, migrate, and version, via a simple switch on os.Args so
// the binary's full CLI surface is readable in one place without requiring a
// cobra dependency. The serve command runs auto-migration on startup so
// freshly deployed containers never need a separate migration step.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowdeck/flowdeck/internal/api"
	"github.com/flowdeck/flowdeck/internal/auth"
	"github.com/flowdeck/flowdeck/internal/config"
	"github.com/flowdeck/flowdeck/internal/db"
	"github.com/flowdeck/flowdeck/internal/db/repositories"
	"github.com/flowdeck/flowdeck/internal/telemetry"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch command {
	case "serve":
		return serve(cfg)
	case "migrate":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: %s migrate <up|down>", os.Args[0])
		}
		return runMigrations(cfg, os.Args[2])
	case "version":
		fmt.Printf("FlowDeck v%s\n", version)
		return nil
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, migrate, version", command)
	}
}

func serve(cfg *config.Config) error {
	// Logger first so all subsequent output uses the configured format and level.
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Fails in production when FLOWDECK_JWT_SECRET is not set.
	if err := auth.ValidateJWTSecret(); err != nil {
		return fmt.Errorf("security configuration error: %w", err)
	}

	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	slog.Info("connected to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"name", cfg.Database.Name,
	)

	if cfg.Database.AutoMigrate {
		if err := db.RunMigrations(database.DB, "up"); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		schemaVersion, dirty, err := db.MigrationVersion(database.DB)
		if err != nil {
			slog.Warn("failed to read migration version", "error", err)
		} else {
			slog.Info("database schema ready", "version", schemaVersion, "dirty", dirty)
		}
	}

	if err := printFirstRunBanner(database.DB); err != nil {
		slog.Warn("first-run check failed", "error", err)
	}

	// DB pool gauge and Prometheus endpoint live on a dedicated port so the
	// scrape path is not reachable through the public API ingress.
	metricsStop := make(chan struct{})
	defer close(metricsStop)
	if cfg.Telemetry.Metrics.Enabled {
		telemetry.StartDBPoolGauge(database.DB, 30*time.Second, metricsStop)

		metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.Metrics.PrometheusPort)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			slog.Info("starting Prometheus metrics server", "addr", metricsAddr)
			srv := &http.Server{
				Addr:         metricsAddr,
				Handler:      mux,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	router, bgServices := api.SetupRouter(cfg, database.DB)

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("server listening", "addr", cfg.Server.GetAddress())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	bgServices.Shutdown()

	slog.Info("server stopped gracefully")
	return nil
}

// printFirstRunBanner tells the operator how to bootstrap the first
// organization when the database holds none. Signup happens through the API
// so the first admin's credentials are chosen by the operator, never stored
// or defaulted by the server.
func printFirstRunBanner(database *sql.DB) error {
	orgs := repositories.NewOrganizationRepository(database)

	count, err := orgs.Count(context.Background())
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	log.Println("")
	log.Println("==================================================================")
	log.Println("  FIRST RUN: no organizations exist yet.")
	log.Println("  Create one (with its first admin account) via:")
	log.Println("    POST /api/v1/organizations")
	log.Println("==================================================================")
	log.Println("")
	return nil
}

func runMigrations(cfg *config.Config, direction string) error {
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB, direction); err != nil {
		return err
	}

	schemaVersion, dirty, err := db.MigrationVersion(database.DB)
	if err != nil {
		return err
	}

	slog.Info("migrations applied", "direction", direction, "version", schemaVersion, "dirty", dirty)
	return nil
}
