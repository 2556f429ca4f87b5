package main

import (
	"context"
	crypto_rand "crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carepoint/hms/internal/config"
	"github.com/carepoint/hms/internal/domain/account"
	"github.com/carepoint/hms/internal/domain/admin"
	"github.com/carepoint/hms/internal/domain/clinical"
	"github.com/carepoint/hms/internal/domain/dashboard"
	"github.com/carepoint/hms/internal/domain/documents"
	"github.com/carepoint/hms/internal/domain/identity"
	"github.com/carepoint/hms/internal/domain/scheduling"
	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/internal/platform/blobstore"
	"github.com/carepoint/hms/internal/platform/db"
	"github.com/carepoint/hms/internal/platform/metrics"
	"github.com/carepoint/hms/internal/platform/middleware"
	"github.com/carepoint/hms/internal/platform/store"
	"github.com/carepoint/hms/migrations"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// jsonBodyLimit caps every request body except document uploads.
const jsonBodyLimit = "1M"

// multipartOverhead leaves room for form fields and part headers on top of
// MAX_UPLOAD_BYTES.
const multipartOverhead = 64 << 10

func main() {
	rootCmd := &cobra.Command{
		Use:           "hms-server",
		Short:         "Hospital management API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
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

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	withMigrator := func(fn func(*db.Migrator) error) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
		mg, err := db.NewMigrator(cfg.DatabaseURL, migrations.FS)
		if err != nil {
			return err
		}
		defer mg.Close()
		return fn(mg)
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(mg *db.Migrator) error {
				if err := mg.Up(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			return withMigrator(func(mg *db.Migrator) error {
				if err := mg.Down(steps); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
				return nil
			})
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migrations to roll back")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(mg *db.Migrator) error {
				st, err := mg.Status()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatStatus(st))
				return nil
			})
		},
	}

	cmd.AddCommand(upCmd, downCmd, statusCmd)
	return cmd
}

func formatStatus(st db.MigrationStatus) string {
	if !st.Applied {
		return "no migrations applied"
	}
	s := fmt.Sprintf("version %d", st.Version)
	if st.Dirty {
		s += " (dirty: fix the failed migration, then run migrate up again)"
	}
	return s
}

func newLogger(cfg *config.Config) zerolog.Logger {
	var logger zerolog.Logger
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(cfg.ZerologLevel()).With().Timestamp().Str("service", "hms").Logger()
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	revocations, closeRevocations, err := newRevocationStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRevocations()

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info().Str("backend", cfg.BlobBackend).Msg("blob store ready")

	signingKey, generated, err := resolveSigningKey(cfg.JWTKey)
	if err != nil {
		return err
	}
	if generated {
		logger.Warn().Msg("JWT_SIGNING_KEY not set, using a random key: tokens will not survive a restart")
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	e := newServer(cfg, logger, serverDeps{
		pool:        pool,
		store:       store.New(pool),
		blobs:       blobs,
		revocations: revocations,
		tokens:      auth.NewTokenIssuer(signingKey, cfg.JWTIssuer, cfg.TokenTTL),
		signingKey:  signingKey,
		registry:    reg,
		location:    loc,
	})

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Str("auth_mode", cfg.ResolvedAuthMode()).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

type serverDeps struct {
	pool        *pgxpool.Pool
	store       *store.Client
	blobs       blobstore.Store
	revocations auth.RevocationStore
	tokens      *auth.TokenIssuer
	signingKey  []byte
	registry    *prometheus.Registry
	location    *time.Location
}

// newServer builds the echo instance: middleware chain, public endpoints and
// every domain handler under /api/v1.
func newServer(cfg *config.Config, logger zerolog.Logger, d serverDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
	}))
	e.Use(middleware.Metrics(metrics.NewHTTPMetrics(d.registry)))
	e.Use(middleware.BodyLimit(jsonBodyLimit, strconv.FormatInt(cfg.MaxUploadBytes+multipartOverhead, 10)))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	if cfg.ResolvedAuthMode() == "development" {
		logger.Warn().Msg("development auth enabled: X-Dev-* headers are trusted")
		e.Use(auth.DevAuthMiddleware(auth.AuthSkipper))
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:      cfg.JWTIssuer,
			SigningKey:  d.signingKey,
			Revocations: d.revocations,
			Skipper:     auth.AuthSkipper,
			Logger:      logger,
		}))
	}
	if d.pool != nil {
		e.Use(db.SessionMiddleware(d.pool, sessionFor, auth.AuthSkipper, logger))
	}
	e.Use(middleware.Audit(logger, nil))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	if d.pool != nil {
		e.GET("/health/db", db.HealthHandler(d.pool))
	}
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(d.registry)))

	api := e.Group("/api/v1")

	profiles := identity.NewProfileRepo(d.store)
	identitySvc := identity.NewService(profiles, identity.NewDoctorRepo(d.store), d.store)
	identity.NewHandler(identitySvc).RegisterRoutes(api)

	accountSvc := account.NewService(account.NewUserRepo(d.store), profiles, d.store, d.tokens, d.revocations, logger)
	account.NewHandler(accountSvc, middleware.RateLimit(middleware.AuthRateLimitConfig())).RegisterRoutes(api)

	admin.NewHandler(admin.NewService(admin.NewDepartmentRepo(d.store))).RegisterRoutes(api)

	schedulingSvc := scheduling.NewService(scheduling.NewRepo(d.store), scheduling.NewDoctorDirectory(d.store),
		metrics.NewSchedulingMetrics(d.registry), logger, d.location)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(api)

	clinical.NewHandler(clinical.NewService(clinical.NewRepo(d.store), logger)).RegisterRoutes(api)

	documentsSvc := documents.NewService(documents.NewRepo(d.store), d.blobs,
		metrics.NewDocumentMetrics(d.registry), logger, cfg.MaxUploadBytes)
	documents.NewHandler(documentsSvc).RegisterRoutes(api)

	dashboard.NewHandler(dashboard.NewService(dashboard.NewCounter(d.store), logger, d.location)).RegisterRoutes(api)

	return e
}

// sessionFor binds the authenticated caller to the request connection so
// row-level security sees it. An empty role would read as the privileged
// system role, so a missing caller gets one no policy grants anything to.
func sessionFor(ctx context.Context) db.Session {
	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		return db.Session{Role: "anonymous"}
	}
	return db.Session{CallerID: caller.ProfileID.String(), Role: string(caller.Role)}
}

func newRevocationStore(cfg *config.Config, logger zerolog.Logger) (auth.RevocationStore, func(), error) {
	if cfg.RedisURL == "" {
		mem := auth.NewMemoryRevocationStore()
		if !cfg.IsDev() {
			logger.Warn().Msg("REDIS_URL not set, token revocations are kept in memory and not shared across instances")
		}
		return mem, mem.Close, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info().Msg("connected to redis")
	return auth.NewRedisRevocationStore(client), func() { _ = client.Close() }, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	switch cfg.BlobBackend {
	case "s3":
		client, err := blobstore.NewS3Client(ctx, blobstore.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return blobstore.NewS3Store(client, cfg.S3Bucket), nil
	case "memory", "":
		return blobstore.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown BLOB_BACKEND %q", cfg.BlobBackend)
}

// resolveSigningKey returns the configured key, or a random 32-byte key
// when none is set. The second return value reports a generated key.
func resolveSigningKey(configured string) ([]byte, bool, error) {
	if configured != "" {
		return []byte(configured), false, nil
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generate signing key: %w", err)
	}
	return key, true, nil
}
