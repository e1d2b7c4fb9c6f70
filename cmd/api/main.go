package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-community-reservation/internal/api"
	"github.com/sanosuguru/go-community-reservation/internal/api/handler"
	"github.com/sanosuguru/go-community-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-community-reservation/internal/application"
	"github.com/sanosuguru/go-community-reservation/internal/config"
	"github.com/sanosuguru/go-community-reservation/internal/infrastructure/gateway"
	"github.com/sanosuguru/go-community-reservation/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-community-reservation/internal/infrastructure/rabbitmq"
	redisinfra "github.com/sanosuguru/go-community-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-community-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-community-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-community-reservation/internal/pkg/tracing"
	"github.com/sanosuguru/go-community-reservation/internal/worker"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.Init(cfg.Env, cfg.Tracing.ServiceName)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.Fatal("サーバー異常終了", zap.Error(err))
	}
	logger.Info("サーバーが正常にシャットダウンしました")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, &cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("トレースのフラッシュに失敗", zap.Error(err))
		}
	}()

	m := metrics.Init()

	// PostgreSQL
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
			return err
		}
		logger.Info("マイグレーション完了", zap.String("path", cfg.Database.MigrationsPath))
	}

	opts := []application.Option{
		application.WithMetrics(m),
		application.WithHoldTTL(cfg.Booking.HoldTTL),
		application.WithLockSettings(cfg.Booking.LockTTL, cfg.Booking.LockRetries, cfg.Booking.LockRetryDelay),
	}
	checks := map[string]handler.HealthCheck{
		"postgres": func(ctx context.Context) error { return postgres.Ping(ctx, db) },
	}

	// Redis は任意。接続できない場合はロックとキャッシュ無しで動作する
	redisClient, err := redisinfra.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn("Redis に接続できないため分散ロックとキャッシュを無効化", zap.Error(err))
	} else {
		defer redisClient.Close()
		opts = append(opts,
			application.WithLockManager(redisinfra.NewLockManager(redisClient)),
			application.WithAvailabilityCache(redisinfra.NewAvailabilityCache(redisClient), cfg.Booking.CacheTTL),
		)
		checks["redis"] = func(ctx context.Context) error { return redisinfra.Ping(ctx, redisClient) }
	}

	// RabbitMQ は URL 設定時のみ
	if cfg.RabbitMQ.URL != "" {
		pub, err := rabbitmq.NewPublisher(&cfg.RabbitMQ)
		if err != nil {
			return err
		}
		defer pub.Close()
		opts = append(opts, application.WithPublisher(pub))
		logger.Info("イベント通知を有効化", zap.String("exchange", cfg.RabbitMQ.Exchange))
	}

	// サービス初期化
	resourceRepo := postgres.NewResourceRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	refundRepo := postgres.NewRefundRepository(db)
	txManager := postgres.NewTxManager(db)

	ledger := application.NewPaymentLedger(paymentRepo, gateway.NewInstant(), opts...)
	resourceService := application.NewResourceService(resourceRepo, opts...)
	availabilityService := application.NewAvailabilityService(resourceRepo, bookingRepo, opts...)
	bookingService := application.NewBookingService(txManager, resourceRepo, bookingRepo, ledger, opts...)
	refundService := application.NewRefundService(txManager, refundRepo, paymentRepo, bookingRepo, opts...)

	// 期限切れ仮押さえのスイーパー
	sweeper := worker.NewExpiredHoldSweeper(bookingService, cfg.Booking.SweepInterval)
	go sweeper.Start(ctx)
	defer sweeper.Stop()

	e := newServer(cfg, m, handler.Handlers{
		Health:       handler.NewHealthHandler(checks),
		Resource:     handler.NewResourceHandler(resourceService),
		Availability: handler.NewAvailabilityHandler(availabilityService),
		Booking:      handler.NewBookingHandler(bookingService),
		Payment:      handler.NewPaymentHandler(ledger, refundService),
		Refund:       handler.NewRefundHandler(refundService),
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("サーバー起動", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Env))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("サーバー起動エラー: %w", err)
	case <-ctx.Done():
	}

	logger.Info("サーバーをシャットダウンしています...")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		return fmt.Errorf("サーバーシャットダウンエラー: %w", err)
	}
	return nil
}

func newServer(cfg *config.Config, m *metrics.Metrics, h handler.Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	middleware.SetupMiddleware(e, &cfg.Auth, m)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(&cfg.Metrics))
	handler.RegisterRoutes(e, h)
	return e
}
