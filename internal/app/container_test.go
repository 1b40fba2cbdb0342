package app

import (
	"context"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"service-dispatch/internal/config"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/queue/redisdelay"
	"service-dispatch/internal/transport/kafka"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:     8080,
		DB:       config.DefaultDB(),
		Dispatch: config.DefaultDispatch(),
		Stores:   config.DefaultStores(),
		// Kafka and Redis deliberately unset: the producer and scheduler
		// come up unconfigured and no connections are attempted
		RateLimit: config.DefaultRateLimit(),
	}
}

func setupTestContainer(t *testing.T) *dig.Container {
	t.Helper()

	c := dig.New()

	providers := []struct {
		name     string
		provider any
	}{
		{"context", func() context.Context { return context.Background() }},
		{"std logger", func() *log.Logger { return log.New(log.Writer(), "", 0) }},
		{"logx logger", logx.Nop},
		{"config", testConfig},
		{"pgxpool", func() *pgxpool.Pool { return &pgxpool.Pool{} }},
		{"registerer", func() prometheus.Registerer { return prometheus.NewRegistry() }},
	}

	for _, p := range providers {
		err := c.Provide(p.provider)
		require.NoErrorf(t, err, "provide %s", p.name)
	}

	require.NoError(t, registerQueue(c))
	require.NoError(t, registerService(c))
	require.NoError(t, registerHTTP(c))
	require.NoError(t, registerWorker(c))

	return c
}

func TestContainer_BuildsHTTPServer(t *testing.T) {
	c := setupTestContainer(t)

	err := c.Invoke(func(srv *http.Server) {
		require.NotNil(t, srv)
		require.Equal(t, ":8080", srv.Addr)
		require.Greater(t, srv.ReadHeaderTimeout, time.Duration(0))
		require.Greater(t, srv.ReadTimeout, time.Duration(0))
		require.Greater(t, srv.WriteTimeout, time.Duration(0))
		require.Greater(t, srv.IdleTimeout, time.Duration(0))
	})
	require.NoError(t, err)
}

func TestContainer_WorkerStaysUnconfiguredWithoutKafka(t *testing.T) {
	c := setupTestContainer(t)

	err := c.Invoke(func(consumer *kafka.Consumer, scheduler *redisdelay.Scheduler) {
		require.Nil(t, consumer, "no brokers means no consumer")
		require.NotNil(t, scheduler)
	})
	require.NoError(t, err)
}
