package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"hr-service/internal/config"
	"hr-service/internal/metrics"
	"hr-service/internal/publisher"
	"hr-service/internal/repository"
	"hr-service/internal/repository/mongostore"
	"hr-service/internal/server"
	"hr-service/internal/service"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
	log.SetOutput(os.Stdout)

	if err := godotenv.Load(); err != nil {
		log.Warn("Could not load .env file.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.WithField("level", cfg.Log.Level).Warn("Unknown log level, falling back to info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting database migration...")
	m, err := migrate.New(cfg.DB.MigrationsURL, cfg.DB.URL)
	if err != nil {
		log.WithField("error", err).Fatal("Could not create migrate instance")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.WithField("error", err).Fatal("Could not apply migration")
	}
	log.Info("Database migration finished successfully.")

	db, err := sql.Open("postgres", cfg.DB.URL)
	if err != nil {
		log.WithField("error", err).Fatal("Could not connect to the database")
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.DB.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		log.WithField("error", err).Fatal("Could not ping the database")
	}
	log.Info("Successfully connected to the PostgreSQL database.")

	// Repositories
	userRepository := repository.NewPostgresUserRepository(db)
	candidateRepository := repository.NewPostgresCandidateRepository(db)

	var auditRepository service.AuditLogRepository = repository.NewPostgresAuditLogRepository(db)
	if cfg.Audit.Store == config.AuditStoreMongo {
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			log.WithError(err).Fatal("Could not connect to MongoDB")
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.WithError(err).Warn("Failed to disconnect MongoDB client")
			}
		}()

		store := mongostore.NewAuditLogStore(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection))
		if err := store.EnsureIndexes(ctx); err != nil {
			log.WithError(err).Fatal("Could not create audit log indexes")
		}
		auditRepository = store
		log.WithField("collection", cfg.Mongo.Collection).Info("Audit logs are stored in MongoDB.")
	}

	// Audit fan-out
	var auditPublisher service.AuditPublisher
	if cfg.Kafka.Enabled() {
		p, err := publisher.NewAuditPublisher(cfg.Kafka)
		if err != nil {
			log.WithError(err).Fatal("Could not create Kafka producer")
		}
		defer p.Close()
		auditPublisher = p
		log.WithField("topic", cfg.Kafka.Topic).Info("Audit events are published to Kafka.")
	}

	// Services
	appMetrics := metrics.New(prometheus.DefaultRegisterer)
	auditService := service.NewAuditService(auditRepository, userRepository, auditPublisher, appMetrics)
	candidateService := service.NewCandidateService(candidateRepository, auditService)

	// Setup Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	server.RegisterRoutes(e,
		server.NewServer(db),
		server.NewAuditServer(auditService),
		server.NewCandidateServer(candidateService),
		cfg.Auth.JWTSecret,
	)

	go func() {
		log.WithField("port", cfg.HTTP.Port).Info("HR service is starting with Echo")
		if err := e.Start(":" + cfg.HTTP.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithField("error", err).Fatal("Echo server failed to start")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down HR service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Echo server did not shut down cleanly")
	}
}
