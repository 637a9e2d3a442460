package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aforo/internal/api"
	"aforo/internal/config"
	"aforo/internal/database"
	"aforo/internal/domain"
	"aforo/internal/events"
	"aforo/internal/google"
	"aforo/internal/live"
	"aforo/internal/logging"
	"aforo/internal/metrics"
	"aforo/internal/notify"
	"aforo/internal/repository"
	"aforo/internal/service"
	"aforo/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	eventBus := events.NewEventBus()
	eventBus.OnError = func(event *events.Event, err error) {
		logger.Error().Err(err).Str("event", event.Type).Msg("event handler failed")
	}

	deps, err := initServices(cfg, db, redisClient, eventBus, &logger)
	if err != nil {
		return err
	}

	startSheetsWorker(ctx, cfg, db, deps.Occupancy, redisClient, eventBus, &logger)
	startNotifier(cfg, eventBus, &logger)

	hub := live.NewHub(logging.Component(&logger, "live"))
	hub.Subscribe(eventBus)
	deps.Live = hub

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(&cfg.API, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}
	httpServer := api.NewHTTPServer(&cfg.API, deps, &logger)

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, import locks fall back to memory")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}
	return redisClient
}

func importLocker(redisClient *redis.Client, logger *zerolog.Logger) domain.ImportLocker {
	fallback := repository.NewMemoryImportLock()
	if redisClient == nil {
		return fallback
	}
	return repository.NewFailoverImportLock(repository.NewRedisImportLock(redisClient), fallback, logger)
}

func initServices(
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	eventBus *events.EventBus,
	logger *zerolog.Logger,
) (api.Deps, error) {
	occupancyService, err := service.NewOccupancyService(db, db, cfg.Pool, logging.Component(logger, "occupancy"))
	if err != nil {
		return api.Deps{}, err
	}

	return api.Deps{
		Import: service.NewImportService(db, importLocker(redisClient, logger), eventBus, cfg.Pool,
			logging.Component(logger, "import")),
		Occupancy:   occupancyService,
		Manual:      service.NewManualReservationService(db, eventBus, logging.Component(logger, "manual")),
		Restaurant:  service.NewRestaurantService(db, db, eventBus, logging.Component(logger, "restaurant")),
		Pool:        db,
		DB:          db,
		MaxUploadMB: cfg.Pool.MaxUploadMB,
	}, nil
}

// startSheetsWorker publishes day occupancy to Google Sheets when a
// spreadsheet is configured.
func startSheetsWorker(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	days domain.DayLoader,
	redisClient *redis.Client,
	eventBus *events.EventBus,
	logger *zerolog.Logger,
) {
	if cfg.Google.CredentialsFile == "" || cfg.Google.OccupancySpreadsheetID == "" {
		logger.Info().Msg("Google Sheets not configured, occupancy publishing disabled")
		return
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets connection test failed")
	}

	retryPolicy := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
	sheetsWorker := worker.NewSheetsWorker(db, days, sheetsService, redisClient, retryPolicy, logging.Component(logger, "sheets-worker")).
		WithEvents(eventBus)
	sheetsWorker.Subscribe(eventBus)
	go sheetsWorker.Start(ctx)
	logger.Info().Str("spreadsheet_id", cfg.Google.OccupancySpreadsheetID).Msg("Google Sheets publishing enabled")
}

func startNotifier(cfg *config.Config, eventBus *events.EventBus, logger *zerolog.Logger) {
	bot, err := notify.NewBot(cfg.Telegram)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return
	}
	if bot == nil || len(cfg.Telegram.ChatIDs) == 0 {
		return
	}

	notifier := notify.NewTelegramNotifier(bot, cfg.Telegram.ChatIDs, logging.Component(logger, "telegram"))
	notifier.Subscribe(eventBus)
	logger.Info().Int("chats", len(cfg.Telegram.ChatIDs)).Msg("telegram import notifications enabled")
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Bool("grpc", grpcServer != nil).Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")
	if grpcServer != nil {
		grpcServer.SetServing(false)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)
	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
