package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/tablerank/tablerank/internal/config"
	"github.com/tablerank/tablerank/internal/corpus"
	"github.com/tablerank/tablerank/internal/database"
	"github.com/tablerank/tablerank/internal/handlers"
	"github.com/tablerank/tablerank/internal/messaging"
	"github.com/tablerank/tablerank/internal/middleware"
	"github.com/tablerank/tablerank/internal/services"
	"github.com/tablerank/tablerank/internal/storage"
	"github.com/tablerank/tablerank/internal/validation"
)

type App struct {
	config    *config.Config
	logger    *logrus.Logger
	db        *database.Database
	publisher *messaging.AnalyticsPublisher
	services  *services.Services
	handlers  *handlers.Handlers
	router    *gin.Engine
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := validation.RegisterValidators(v); err != nil {
			return nil, fmt.Errorf("failed to register validators: %w", err)
		}
	}

	// The corpus is mandatory; without restaurants there is nothing
	// to recommend.
	store, err := corpus.Load(cfg.Data.RestaurantsPath, cfg.Data.EmbeddingsPath, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	// A typed nil must not reach the analytics service, so the
	// interface stays nil unless a publisher exists.
	app.publisher = messaging.NewAnalyticsPublisher(cfg, app.logger)
	var publisher services.EventPublisher
	if app.publisher != nil {
		publisher = app.publisher
	}

	svc, err := services.New(cfg, app.logger, db, store, publisher)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = svc

	var feedbackStore *storage.FeedbackStore
	if db.PG != nil {
		feedbackStore = storage.NewFeedbackStore(db.PG, app.logger)
		if err := feedbackStore.EnsureSchema(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to prepare feedback storage: %w", err)
		}
	}

	app.handlers = handlers.New(app.logger, svc, store, feedbackStore)
	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if err := a.publisher.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing analytics publisher")
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))
	router.Use(middleware.Session(a.config, a.logger))

	router.GET("/health", a.handlers.Health.Check)

	if a.config.Monitoring.Enabled {
		router.GET(a.config.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	// API routes
	api := router.Group("/api/v1")
	{
		if a.services.RateLimit.Enabled() {
			api.Use(middleware.RateLimit(a.services.RateLimit, a.logger))
		}

		api.POST("/recommendations", a.handlers.Recommendation.Recommend)
		api.POST("/feedback", a.handlers.Feedback.Submit)
		api.GET("/metadata", a.handlers.Metadata.Get)

		// Admin routes (additional auth/role checking would be added in production)
		admin := api.Group("/admin")
		{
			admin.GET("/analytics", a.handlers.Admin.Analytics)
			admin.GET("/cache/stats", a.handlers.Admin.CacheStats)
			admin.GET("/feedback/stats", a.handlers.Admin.FeedbackStats)
			admin.GET("/feedback/recent", a.handlers.Admin.RecentFeedback)
			admin.GET("/experiment/results", a.handlers.Admin.ExperimentResults)
		}
	}

	a.router = router
}
