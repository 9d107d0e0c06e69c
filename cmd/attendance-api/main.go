package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/attendance-tracker/api/swagger"
	"github.com/noah-isme/attendance-tracker/internal/handler"
	"github.com/noah-isme/attendance-tracker/internal/middleware"
	"github.com/noah-isme/attendance-tracker/internal/repository"
	"github.com/noah-isme/attendance-tracker/internal/service"
	"github.com/noah-isme/attendance-tracker/pkg/config"
	"github.com/noah-isme/attendance-tracker/pkg/jobs"
	"github.com/noah-isme/attendance-tracker/pkg/logger"
	corsmiddleware "github.com/noah-isme/attendance-tracker/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/attendance-tracker/pkg/middleware/requestid"
)

// @title Attendance Tracker API
// @version 1.0.0
// @description Subject attendance accounting and calendar events
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openBackend(ctx, cfg, logr)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logr.Warn("failed to close storage", zap.Error(err))
		}
	}()

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}
	notifier := service.NewNotifier(cfg.Changes.BufferSize, logr.Named("changes"))
	defer notifier.Close()

	validate := validator.New()
	subjects := service.NewSubjectService(repository.NewSubjectRepository(store.kv), notifier, metrics, validate, logr.Named("subjects"))
	calendar := service.NewCalendarService(repository.NewCalendarRepository(store.kv), cfg.Retention.Window, notifier, metrics, validate, logr.Named("calendar"))

	// The server still starts when a snapshot cannot be read. Writes to that
	// collection are refused until a later load succeeds.
	if err := subjects.Load(ctx); err != nil {
		logr.Warn("subjects unavailable, retrying on next write", zap.Error(err))
	}
	if err := calendar.Load(ctx); err != nil {
		logr.Warn("calendar unavailable, retrying on next write", zap.Error(err))
	}

	retention := jobs.NewQueue("calendar-retention", calendar.RetentionJobHandler(), jobs.QueueConfig{
		Workers:    1,
		MaxRetries: cfg.Retention.Retries,
		RetryDelay: time.Minute,
		Logger:     logr,
	})
	retention.Start(ctx)
	defer retention.Stop()
	go calendar.StartRetention(ctx, retention, cfg.Retention.Interval)

	if cfg.Changes.RedisEnabled {
		client, err := store.redisClient(cfg)
		if err != nil {
			logr.Warn("redis change fan-out disabled", zap.Error(err))
		} else {
			bridge := service.NewRedisChangePublisher(client, cfg.Changes.RedisChannel, logr.Named("changes"))
			go bridge.Run(ctx, notifier)
		}
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	checks := append(store.checks,
		handler.ReadinessCheck{Name: "subjects", Check: subjects.Ready},
		handler.ReadinessCheck{Name: "calendar", Check: calendar.Ready},
	)
	ops := handler.NewMetricsHandler(metrics, checks...)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", ops.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Subjects:   handler.NewSubjectHandler(subjects),
		Attendance: handler.NewAttendanceHandler(subjects),
		Calendar:   handler.NewCalendarHandler(calendar),
		Data:       handler.NewDataHandler(service.NewDataService(logr.Named("data"), subjects, calendar)),
		Reports:    handler.NewReportHandler(service.NewReportService(subjects, nil, nil, logr.Named("reports"))),
		Changes:    handler.NewChangeHandler(notifier, 0),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("storage", store.driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	// Open change streams only end when the notifier closes.
	notifier.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
