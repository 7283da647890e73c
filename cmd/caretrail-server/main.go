package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/caretrail/caretrail/internal/config"
	"github.com/caretrail/caretrail/internal/domain/audit"
	"github.com/caretrail/caretrail/internal/domain/encounter"
	"github.com/caretrail/caretrail/internal/domain/provider"
	"github.com/caretrail/caretrail/internal/platform/apperror"
	"github.com/caretrail/caretrail/internal/platform/auth"
	"github.com/caretrail/caretrail/internal/platform/cache"
	"github.com/caretrail/caretrail/internal/platform/db"
	"github.com/caretrail/caretrail/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "caretrail-server",
		Short: "Clinical encounter compliance API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(providerCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func providerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provider",
		Short: "Manage providers",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a provider and print its API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			rawKey, err := generateAPIKey()
			if err != nil {
				return err
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash API key: %w", err)
			}

			hashStr := string(hash)
			p := &provider.Provider{
				ID:         uuid.New(),
				Name:       name,
				APIKeyHash: &hashStr,
			}
			repo := provider.NewRepo(pool)
			if err := repo.Create(ctx, p); err != nil {
				return err
			}

			fmt.Printf("Provider created: %s (%s)\n", p.Name, p.ID)
			fmt.Printf("API key (shown once, store it now): %s\n", rawKey)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Provider display name")

	cmd.AddCommand(createCmd)
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed demo providers and a demo patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := provider.NewRepo(pool)
			for _, name := range []string{"Dr. Demo One", "Dr. Demo Two"} {
				rawKey, err := generateAPIKey()
				if err != nil {
					return err
				}
				hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
				if err != nil {
					return fmt.Errorf("hash API key: %w", err)
				}
				hashStr := string(hash)
				p := &provider.Provider{
					ID:         uuid.New(),
					Name:       name,
					APIKeyHash: &hashStr,
				}
				if err := repo.Create(ctx, p); err != nil {
					return err
				}
				fmt.Printf("Provider %q: %s\n", p.Name, p.ID)
				fmt.Printf("  API key (shown once): %s\n", rawKey)
			}

			// Reruns must not pile up duplicate demo patients.
			_, err = pool.Exec(ctx, `
				INSERT INTO patient (id, first_name, last_name, date_of_birth, medical_record_number)
				VALUES ($1, 'Demo', 'Patient', '1985-06-15', 'MRN-DEMO-001')
				ON CONFLICT (medical_record_number) DO NOTHING`,
				uuid.New())
			if err != nil {
				return fmt.Errorf("seed patient: %w", err)
			}
			fmt.Println("Patient MRN-DEMO-001 ready.")
			return nil
		},
	}
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate API key: %w", err)
	}
	return "ct_" + hex.EncodeToString(buf), nil
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Cache
	cacheClient := cache.New(cache.Config{Capacity: cfg.CacheCapacity})

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(logger)

	// Global middleware. Order matters: recovery outermost, then request
	// identity and logging, then the protections that may reject a request
	// before it reaches authentication.
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type", "X-Request-ID", "X-API-Key", "Idempotency-Key"},
	}))
	e.Use(middleware.RequestTimeout(time.Duration(cfg.RequestTimeoutSeconds) * time.Second))
	e.Use(middleware.BodyLimit("1M"))

	// Health check (unauthenticated, never audited)
	e.GET("/health", db.HealthHandler(pool))

	// Repositories and services
	providerRepo := provider.NewRepo(pool)
	auditRepo := audit.NewRepo(pool)
	auditSvc := audit.NewService(auditRepo, logger)
	encRepo := encounter.NewRepo(pool)
	encSvc := encounter.NewService(encRepo, cacheClient, logger)

	authenticator := auth.NewAuthenticator(providerRepo, cacheClient, logger)

	// Authenticated API group
	api := e.Group(cfg.APIPrefix)
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	api.Use(auth.Middleware(authenticator))
	api.Use(middleware.Audit(auditSvc))

	encounter.NewHandler(encSvc).RegisterRoutes(api)
	audit.NewHandler(auditSvc).RegisterRoutes(api)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
