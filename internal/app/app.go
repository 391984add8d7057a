// Package app wires the card importer's dependencies.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/paramirez/deckzter-seed/internal/auth"
	"github.com/paramirez/deckzter-seed/internal/catalog/postgres"
	"github.com/paramirez/deckzter-seed/internal/config"
	"github.com/paramirez/deckzter-seed/internal/event"
	handler "github.com/paramirez/deckzter-seed/internal/handler/http"
	"github.com/paramirez/deckzter-seed/internal/importer"
	"github.com/paramirez/deckzter-seed/internal/scryfall"
	"github.com/paramirez/deckzter-seed/internal/search"
	"github.com/paramirez/deckzter-seed/migrations"
	"github.com/paramirez/deckzter-seed/pkg/database"
	"github.com/paramirez/deckzter-seed/pkg/health"
	"github.com/paramirez/deckzter-seed/pkg/httpclient"
	pkgkafka "github.com/paramirez/deckzter-seed/pkg/kafka"
	"github.com/paramirez/deckzter-seed/pkg/middleware"
	"github.com/paramirez/deckzter-seed/pkg/tracing"
)

// ServiceName labels traces, metrics and logs.
const ServiceName = "card-importer"

// App wires together all dependencies of the card importer.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	importer       *importer.Service
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// Kafka, Redis and Elasticsearch are optional: each is skipped when not
// configured, and Redis and Elasticsearch are also skipped when unreachable.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.DefaultPostgresConfig(cfg.PostgresDSN())
	pgCfg.MaxConns = cfg.DBMaxConns
	pgCfg.MinConns = cfg.DBMinConns
	pgCfg.MaxConnLifetime = time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute
	pgCfg.MaxConnIdleTime = time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute

	pool, err := database.NewPostgresPool(ctx, pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Optional Redis page cache.
	var (
		redisClient *redis.Client
		pageCache   scryfall.PageCache
	)
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, page cache disabled", slog.String("error", err.Error()))
		} else {
			pageCache = scryfall.NewRedisPageCache(redisClient, cfg.PageCacheTTL())
			logger.Info("scryfall page cache enabled", slog.Duration("ttl", cfg.PageCacheTTL()))
		}
	}

	// Optional Kafka producer and search index; each created product is
	// announced to every configured publisher.
	var (
		producer   *pkgkafka.Producer
		indexer    *search.Indexer
		publishers importer.Publishers
	)
	if len(cfg.KafkaBrokers) > 0 {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := pingKafkaWithRetry(ctx, producer, logger); err != nil {
			logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		publishers = append(publishers, event.NewProducer(producer, cfg.Currency, logger))
	} else {
		logger.Info("no kafka brokers configured, card events are not published")
	}
	if cfg.ElasticsearchURL != "" {
		indexer, err = search.NewIndexer(ctx, cfg.ElasticsearchURL, cfg.ElasticsearchIndex, cfg.Currency, logger)
		if err != nil {
			logger.Warn("elasticsearch unavailable, cards are not indexed", slog.String("error", err.Error()))
		} else {
			publishers = append(publishers, indexer)
			logger.Info("elasticsearch card index enabled", slog.String("index", cfg.ElasticsearchIndex))
		}
	}

	// Scryfall client behind retry and circuit breaker.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.UserAgent = cfg.ScryfallUserAgent
	breaker := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg),
		httpclient.DefaultCircuitBreakerConfig("scryfall"),
		logger,
	)
	fetcher := scryfall.NewClient(breaker, scryfall.Config{
		BaseURL:         cfg.ScryfallBaseURL,
		RequestInterval: cfg.ScryfallRequestInterval(),
	}, pageCache, logger)

	// Build the dependency graph.
	importService := importer.NewService(fetcher, importer.Repositories{
		Collections: postgres.NewCollectionRepository(pool),
		Products:    postgres.NewProductRepository(pool),
		References:  postgres.NewReferenceRepository(pool),
		Tx:          postgres.NewTxRunner(pool),
	}, publishers, importer.Config{
		ExchangeRate: cfg.ExchangeRate,
		Currency:     cfg.Currency,
		ProductType:  cfg.ProductType,
	}, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}
	if redisClient != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	if indexer != nil {
		healthHandler.RegisterNonCritical("elasticsearch", indexer.Ping)
	}

	// HTTP router.
	var validate middleware.TokenValidator
	if cfg.JWTSecret != "" {
		validate = auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer).Validate
	} else {
		logger.Warn("IMPORT_JWT_SECRET not set, the import endpoint is unauthenticated")
	}
	router := handler.NewRouter(
		handler.NewImportHandler(importService, cfg.ImportTimeout(), logger),
		healthHandler,
		validate,
		logger,
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.ImportTimeout() + 30*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		producer:       producer,
		importer:       importService,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Importer returns the wired import service for one-shot runs.
func (a *App) Importer() *importer.Service {
	return a.importer
}

// Run starts the HTTP server, then blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown stops all components in order: HTTP server, tracer, Kafka
// producer, Redis, then the PostgreSQL pool.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// Flush spans after the HTTP drain so in-flight imports are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// pinger is the part of *pkgkafka.Producer the startup check needs.
type pinger interface {
	Ping(ctx context.Context) error
}

// pingKafkaWithRetry pings the brokers up to three times, backing off
// 1s then 2s with ±25% jitter.
func pingKafkaWithRetry(ctx context.Context, producer pinger, logger *slog.Logger) error {
	return pingWithRetry(ctx, producer, logger, time.Second)
}

func pingWithRetry(ctx context.Context, p pinger, logger *slog.Logger, baseWait time.Duration) error {
	const attempts = 3

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = p.Ping(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}

		base := baseWait << attempt
		jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
		wait := base + jitter
		logger.Warn("kafka producer ping failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", attempts),
			slog.Duration("backoff", wait),
			slog.String("error", lastErr.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("kafka producer ping failed after %d attempts: %w", attempts, lastErr)
}
