// Package testutil provides shared helpers for integration-gated tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	// pgx driver for database/sql compatibility in tests.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/streamnotify/channel-resolver/internal/migrate"
)

// GetTestRedisAddr returns the Redis address for tests. Precedence:
// TEST_REDIS_ADDR, then REDIS_ADDR (set by CI), then localhost:6379.
func GetTestRedisAddr() string {
	if addr := os.Getenv("TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// requireRedis reports whether missing Redis should fail instead of skip.
func requireRedis() bool {
	v, _ := strconv.ParseBool(os.Getenv("TEST_REQUIRE_REDIS"))
	return v
}

// SetupTestRedis creates a Redis client for testing. Tests are skipped when
// Redis is not reachable, unless TEST_REQUIRE_REDIS is set. The selected
// database is flushed before the client is returned.
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := GetTestRedisAddr()
	db := 15
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			db = n
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			t.Logf("warning: close redis client after ping error: %v", cerr)
		}
		if requireRedis() {
			t.Fatalf("Redis not available for testing at %s: %v", addr, err)
		}
		t.Skipf("Redis not available for testing at %s: %v", addr, err)
	}

	// Clean up any data left by earlier runs
	client.FlushDB(ctx)

	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("warning: close redis client: %v", err)
		}
	})

	return client
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// requireDB reports whether a missing archive database should fail instead of skip.
func requireDB() bool {
	v, _ := strconv.ParseBool(os.Getenv("TEST_REQUIRE_DB"))
	return v
}

// SetupTestDB opens the archive test database and applies migrations. Tests
// are skipped when PostgreSQL is not reachable, unless TEST_REQUIRE_DB is
// set. Existing archive rows are cleared before the connection is returned.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	host := getEnvOrDefault("TEST_DB_HOST", "localhost")
	port := getEnvOrDefault("TEST_DB_PORT", "5432")
	user := getEnvOrDefault("TEST_DB_USER", "resolver")
	password := getEnvOrDefault("TEST_DB_PASSWORD", "resolver")
	name := getEnvOrDefault("TEST_DB_NAME", "resolver_test")

	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		user, password, net.JoinHostPort(host, port), name)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if cerr := db.Close(); cerr != nil {
			t.Logf("warning: close db after ping error: %v", cerr)
		}
		if requireDB() {
			t.Fatalf("PostgreSQL not available for testing at %s:%s: %v", host, port, err)
		}
		t.Skipf("PostgreSQL not available for testing at %s:%s: %v", host, port, err)
	}

	if err := migrate.Run(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM job_outcomes"); err != nil {
		t.Fatalf("clean up job_outcomes: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("warning: close test database: %v", err)
		}
	})

	return db
}
