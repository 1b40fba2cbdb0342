package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"service-dispatch/internal/config"
	"service-dispatch/internal/gateway/stores"
	"service-dispatch/internal/http/handlers"
	"service-dispatch/internal/http/router"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/ports/dispatchtx"
	"service-dispatch/internal/queue"
	"service-dispatch/internal/queue/redisdelay"
	"service-dispatch/internal/repository"
	"service-dispatch/internal/service/dispatch"
	"service-dispatch/internal/service/lifecycle"
	"service-dispatch/internal/transport/kafka"
)

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	dbConnect func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error)
	logFatalf func(string, ...interface{})
}

// NewContainerBuilder returns a new dig container builder
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		dbConnect: connectDbWithRetry,
		logFatalf: log.Fatalf,
	}
}

// WithDBConnect sets the database connection function
func (b *ContainerBuilder) WithDBConnect(
	fn func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error),
) *ContainerBuilder {
	if fn != nil {
		b.dbConnect = fn
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuild builds and returns a new dig container
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx)
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

// build builds and returns a new dig container
func (b *ContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerDb(container, b.dbConnect); err != nil {
		return nil, fmt.Errorf("DB: %w", err)
	}
	if err := registerQueue(container); err != nil {
		return nil, fmt.Errorf("queue: %w", err)
	}
	if err := registerService(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if err := registerHTTP(container); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	if err := registerWorker(container); err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}
	return container, nil
}

// MustBuildContainer builds and returns a new dig container
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func registerCore(container *dig.Container, ctx context.Context) error {
	return provideAll(container,
		func() context.Context { return ctx },
		func() *log.Logger { return log.Default() },
		NewLogger,
		config.Load,
		func() prometheus.Registerer { return prometheus.DefaultRegisterer },
	)
}

func registerDb(
	container *dig.Container,
	dbConnect func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error),
) error {
	providerDB := func(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
		return dbConnect(ctx, cfg.DB.DSN(), 10, time.Second)
	}
	return provideAll(container, providerDB)
}

func registerQueue(container *dig.Container) error {
	return provideAll(container,
		func(logger logx.Logger, cfg *config.Config) (*kafka.Producer, error) {
			return kafka.NewProducer(logger, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		},
		func(cfg *config.Config) *redis.Client {
			if cfg.Redis.Addr == "" {
				return nil
			}
			return redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		},
		func(client *redis.Client, producer *kafka.Producer, cfg *config.Config, logger logx.Logger) *redisdelay.Scheduler {
			return redisdelay.NewScheduler(client, producer, cfg.Redis.PollInterval, logger)
		},
		func(s *redisdelay.Scheduler) queue.Enqueuer { return s },
	)
}

func registerService(container *dig.Container) error {
	return provideAll(container,
		repository.NewDispatchRepo,
		func(repo *repository.DispatchRepo) dispatchtx.Runner { return repo },
		func(repo *repository.DispatchRepo) dispatch.LedgerReader { return repo },
		func(reg prometheus.Registerer) *metrics.Dispatch {
			return metrics.NewDispatch(reg)
		},
		func(repo dispatchtx.Runner, q queue.Enqueuer, logger logx.Logger) *lifecycle.Service {
			return lifecycle.NewService(repo, q, 3*time.Second, logger)
		},
		func(svc *lifecycle.Service) dispatch.LifecyclePort { return svc },
		func(cfg *config.Config, logger logx.Logger) *dispatch.Selector {
			return dispatch.NewSelector(dispatch.SelectorConfig{
				CandidateLimit:   cfg.Dispatch.ZoneCandidateLimit,
				CitywideFallback: cfg.Dispatch.CitywideFallback,
			}, logger)
		},
		newStoresGateway,
		func(
			repo dispatchtx.Runner,
			lc dispatch.LifecyclePort,
			selector *dispatch.Selector,
			gw dispatch.StoreGateway,
			q queue.Enqueuer,
			m *metrics.Dispatch,
			cfg *config.Config,
			logger logx.Logger,
		) *dispatch.Orchestrator {
			return dispatch.NewOrchestrator(repo, lc, selector, gw, q, m, dispatch.OrchestratorConfig{
				MaxAttempts:      cfg.Dispatch.MaxAttempts,
				SearchRetryDelay: cfg.Dispatch.SearchRetryDelay,
				ResponseWindow:   cfg.Dispatch.ResponseWindow,
				ClaimRetries:     cfg.Dispatch.ClaimRetries,
			}, logger)
		},
		func(
			repo dispatchtx.Runner,
			ledger dispatch.LedgerReader,
			lc dispatch.LifecyclePort,
			q queue.Enqueuer,
			logger logx.Logger,
		) *dispatch.Assignments {
			return dispatch.NewAssignments(repo, ledger, lc, q, logger)
		},
	)
}

func newStoresGateway(cfg *config.Config, logger logx.Logger, reg prometheus.Registerer) (dispatch.StoreGateway, error) {
	base, err := stores.NewHTTPGateway(cfg.Stores.BaseURL, &http.Client{Timeout: cfg.Stores.Timeout})
	if err != nil {
		return nil, err
	}
	retries := metrics.NewGatewayRetriesTotal()
	if err := reg.Register(retries); err != nil {
		return nil, fmt.Errorf("register gateway_retries_total: %w", err)
	}
	return stores.NewRetryingGateway(base, logger, retries, stores.RetryConfig{
		MaxAttempts: cfg.Stores.MaxAttempts,
		BaseDelay:   cfg.Stores.BaseDelay,
		MaxDelay:    cfg.Stores.MaxDelay,
	}), nil
}

func registerHTTP(container *dig.Container) error {
	serverProvider := func(cfg *config.Config, mux http.Handler) *http.Server {
		return &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	if err := container.Provide(
		func(reg prometheus.Registerer) (prometheus.Counter, error) {
			c := metrics.NewRateLimitExceededTotal()
			if err := reg.Register(c); err != nil {
				return nil, err
			}
			return c, nil
		},
		dig.Name("rate_limit_exceeded_total"),
	); err != nil {
		return fmt.Errorf("provide rate limit counter: %w", err)
	}
	return provideAll(container,
		handlers.New,
		handlers.NewLifecycleUsecase,
		handlers.NewAssignmentsUsecase,
		handlers.NewOrderHandler,
		handlers.NewAssignmentHandler,
		newRateLimitClock,
		newRateLimiter,
		newRateLimitMiddleware,
		router.New,
		serverProvider,
	)
}

func registerWorker(container *dig.Container) error {
	return provideAll(container,
		func(orch *dispatch.Orchestrator) kafka.HandleFunc {
			return makeDispatchHandler(orch)
		},
		func(logger logx.Logger, cfg *config.Config, h kafka.HandleFunc) (*kafka.Consumer, error) {
			return kafka.NewConsumer(logger, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, h)
		},
	)
}
