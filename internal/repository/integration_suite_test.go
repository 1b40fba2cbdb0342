//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var tcPool *pgxpool.Pool

var tcDSN string

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_pass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("failed to start postgres testcontainer: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		if termErr := pgContainer.Terminate(ctx); termErr != nil {
			log.Printf("failed to terminate container after conn string error: %v", termErr)
		}
		log.Fatalf("failed to get connection string from container: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		if termErr := pgContainer.Terminate(ctx); termErr != nil {
			log.Printf("failed to terminate container after pool create error: %v", termErr)
		}
		log.Fatalf("failed to create pgx pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		if termErr := pgContainer.Terminate(ctx); termErr != nil {
			log.Printf("failed to terminate container after ping error: %v", termErr)
		}
		log.Fatalf("failed to ping postgres in testcontainer: %v", err)
	}

	tcPool = pool
	tcDSN = connStr

	if err := createTables(ctx, tcPool); err != nil {
		pool.Close()
		if termErr := pgContainer.Terminate(ctx); termErr != nil {
			log.Printf("failed to terminate container after createTables error: %v", termErr)
		}
		log.Fatalf("failed to create test tables: %v", err)
	}

	code := m.Run()

	pool.Close()
	if err := pgContainer.Terminate(ctx); err != nil {
		log.Printf("failed to terminate postgres container: %v", err)
	}

	os.Exit(code)
}

func createTables(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS orders (
			id                 TEXT PRIMARY KEY,
			city_id            TEXT NOT NULL,
			store_id           TEXT NOT NULL,
			status             TEXT NOT NULL,
			cancel_reason      TEXT,
			cancelled_by       TEXT,
			cancellation_notes TEXT,
			accepted_at        TIMESTAMPTZ,
			driver_assigned_at TIMESTAMPTZ,
			picked_up_at       TIMESTAMPTZ,
			delivered_at       TIMESTAMPTZ,
			cancelled_at       TIMESTAMPTZ,
			created_at         TIMESTAMPTZ DEFAULT now() NOT NULL,
			updated_at         TIMESTAMPTZ DEFAULT now() NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create orders table: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS order_status_history (
			id          BIGSERIAL PRIMARY KEY,
			order_id    TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			from_status TEXT NOT NULL,
			to_status   TEXT NOT NULL,
			actor       TEXT NOT NULL,
			actor_id    TEXT,
			notes       TEXT,
			created_at  TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create order_status_history table: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS drivers (
			id               TEXT PRIMARY KEY,
			city_id          TEXT NOT NULL,
			zone_id          TEXT,
			is_online        BOOLEAN NOT NULL DEFAULT FALSE,
			is_available     BOOLEAN NOT NULL DEFAULT FALSE,
			is_active        BOOLEAN NOT NULL DEFAULT TRUE,
			lat              DOUBLE PRECISION,
			lng              DOUBLE PRECISION,
			rating           DOUBLE PRECISION,
			total_deliveries INTEGER NOT NULL DEFAULT 0,
			updated_at       TIMESTAMPTZ DEFAULT now() NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create drivers table: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS assignments (
			id               TEXT PRIMARY KEY,
			order_id         TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			driver_id        TEXT NOT NULL REFERENCES drivers(id),
			status           TEXT NOT NULL,
			rejection_reason TEXT,
			assigned_at      TIMESTAMPTZ NOT NULL,
			responded_at     TIMESTAMPTZ
		);
	`)
	if err != nil {
		return fmt.Errorf("create assignments table: %w", err)
	}

	return nil
}
