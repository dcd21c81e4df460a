package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"signflow/docs"
	"signflow/internal/database/migration"
	handlers "signflow/internal/http/handler"
	"signflow/internal/http/middleware"
	"signflow/internal/locator"
	"signflow/internal/metrics"
	"signflow/internal/otel"
	"signflow/internal/repository"
	"signflow/internal/repository/postgres"
	"signflow/internal/repository/sqlite"
	"signflow/internal/service"
	"signflow/internal/signer"
	"signflow/internal/signing"
	"signflow/internal/storage"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the signing API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "", "override PORT")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if p, _ := cmd.Flags().GetString("port"); p != "" {
		cfg.Port = p
	}

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.WithError(err).Warn("tracing_shutdown_failed")
		}
	}()

	db, dialect, host, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, dialect, log, host); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	sessionRepo, auditRepo := repositories(db, dialect)

	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}

	docSigner, err := signer.New(cfg.Signing, log)
	if err != nil {
		return fmt.Errorf("init signer: %w", err)
	}
	stamp, err := signing.NewStamp(cfg.Signing.StampTemplate, cfg.Location())
	if err != nil {
		return err
	}

	signingMetrics, err := metrics.NewSigning(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register signing metrics: %w", err)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	exec := signing.NewExecutor(
		sessionRepo,
		objStore,
		docSigner,
		locator.New(cfg.Signing.LocatorURL, cfg.Signing.RemoteTimeout),
		stamp,
		signing.Options{
			MarkerFormat:  cfg.Signing.MarkerFormat,
			FieldWidth:    cfg.Signing.FieldWidth,
			FieldHeight:   cfg.Signing.FieldHeight,
			MaxConcurrent: cfg.Signing.MaxConcurrent,
		},
		log,
	)
	sessionSvc := service.NewSessionService(sessionRepo, objStore, exec, auditRepo, signingMetrics,
		service.SessionServiceConfig{APIKey: cfg.APIKey, PresignExpiry: cfg.Signing.PresignExpiry}, log)
	fileSvc := service.NewFileSigningService(objStore, exec, auditRepo, signingMetrics, cfg.Signing.ServiceName, nil, log)

	if cfg.APIKey == "" {
		log.WithField("event", "config_warning").Warn("API_KEY is empty; session uploads will be rejected")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// Multipart overhead on top of the largest accepted document.
		BodyLimit: service.MaxDocumentSize + 1<<20,
	})

	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.RegisterRoutes(app, db, sessionSvc, fileSvc)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"event":   "server_start",
			"addr":    ":" + cfg.Port,
			"store":   cfg.StoreDriver,
			"signing": cfg.Signing.Mode,
		}).Info("listening")
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	log.WithField("event", "server_shutdown").Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.WithError(err).Error("server_shutdown_failed")
		return err
	}
	return nil
}

func repositories(db *sql.DB, dialect migration.Dialect) (repository.SessionRepository, repository.AuditRepository) {
	if dialect == migration.SQLite {
		return sqlite.NewSessionSQLite(db), sqlite.NewAuditSQLite(db)
	}
	return postgres.NewSessionPostgres(db), postgres.NewAuditPostgres(db)
}
