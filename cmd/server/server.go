package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/septivank/meter-reading-service/internal/anomaly"
	"github.com/septivank/meter-reading-service/internal/config"
	"github.com/septivank/meter-reading-service/internal/db"
	"github.com/septivank/meter-reading-service/internal/httpapi"
	"github.com/septivank/meter-reading-service/internal/mq"
	"github.com/septivank/meter-reading-service/internal/repository"
	"github.com/septivank/meter-reading-service/internal/service"
	"github.com/septivank/meter-reading-service/internal/storage"
	"github.com/septivank/meter-reading-service/internal/validator"
	"github.com/septivank/meter-reading-service/internal/vision"
)

func startHTTPServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	logger *zap.Logger,
	svc *service.ReadingService,
	repo *repository.Repository,
	images *storage.ImageStore,
) *http.Server {
	handler := httpapi.New(svc, repo, httpapi.Options{
		MaxBodyBytes:    cfg.HTTP.MaxBodyBytes,
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
		StaticDir:       images.Dir(),
		StaticURLPrefix: images.URLPrefix(),
	}, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServicePort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
			}
			logger.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server stopped unexpectedly", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("failed to shut down http server", zap.Error(err))
				return err
			}
			logger.Info("http server stopped gracefully")
			return nil
		},
	})

	return srv
}

// startUploadConsumer drains queued upload requests. It does nothing without a broker.
func startUploadConsumer(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	logger *zap.Logger,
	svc *service.ReadingService,
) error {
	if conn == nil {
		logger.Info("RABBITMQ_URL not set, queued uploads disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:    conn,
		Queue:         cfg.RabbitMQ.UploadQueue,
		DLQQueue:      cfg.RabbitMQ.DLQQueue,
		Exchange:      cfg.RabbitMQ.UploadExchange,
		RoutingKey:    cfg.RabbitMQ.UploadRoutingKey,
		PrefetchCount: cfg.RabbitMQ.PrefetchCount,
		Logger:        logger,
		Handler:       svc.HandleUploadMessage,
	})
	if err != nil {
		cancel()
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting upload consumer",
				zap.String("queue", cfg.RabbitMQ.UploadQueue),
				zap.Int("prefetch", cfg.RabbitMQ.PrefetchCount))
			return consumer.Start(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			if err := consumer.Close(); err != nil {
				logger.Error("failed to close consumer", zap.Error(err))
				return err
			}
			logger.Info("upload consumer stopped gracefully")
			return nil
		},
	})

	return nil
}

// ProvideDBPool creates the database pool and bootstraps the schema on start
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL)
}

// ProvideRepository creates a new repository instance
func ProvideRepository(pool *pgxpool.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideValidator sizes the decoded image limit from the request body limit
func ProvideValidator(cfg *config.Config) *validator.Validator {
	return validator.NewValidator(int(cfg.HTTP.MaxBodyBytes))
}

// ProvideAnomalyDetector creates a new anomaly detector instance
func ProvideAnomalyDetector(cfg *config.Config) *anomaly.Detector {
	return anomaly.NewDetector(cfg.Anomaly.SpikeThreshold, cfg.Anomaly.MinDataPointsForDetection)
}

func ProvideImageStore(cfg *config.Config, logger *zap.Logger) (*storage.ImageStore, error) {
	return storage.NewImageStore(cfg.Static.Dir, cfg.Static.URLPrefix, logger)
}

// ProvideVisionEngine creates the Gemini client and closes it on stop
func ProvideVisionEngine(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*vision.Engine, error) {
	engine, err := vision.NewEngine(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.Timeout, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return engine.Close()
		},
	})
	return engine, nil
}

// ProvideMQConnection dials RabbitMQ. It yields nil when messaging is disabled.
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	if !cfg.RabbitMQ.Enabled() {
		return nil, nil
	}
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvideEventPublisher falls back to a no-op publisher without a broker
func ProvideEventPublisher(lc fx.Lifecycle, conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (service.EventPublisher, error) {
	if conn == nil {
		return service.NopPublisher{}, nil
	}
	publisher, err := mq.NewPublisher(conn, cfg.RabbitMQ.EventsExchange, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return publisher.Close()
		},
	})
	return publisher, nil
}

// ProvideReadingService creates a new reading service instance
func ProvideReadingService(
	repo *repository.Repository,
	engine *vision.Engine,
	images *storage.ImageStore,
	publisher service.EventPublisher,
	detector *anomaly.Detector,
	inputValidator *validator.Validator,
	cfg *config.Config,
	logger *zap.Logger,
) *service.ReadingService {
	return service.NewReadingService(repo, engine, images, publisher, detector, inputValidator, cfg, logger)
}
