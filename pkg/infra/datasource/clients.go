// Package datasource provides unified management and factory functions for
// storage clients used across the service: Redis (caching, embedding cache)
// and PostgreSQL (metadata store, full-text lexical search).
//
// # Direct Client Creation
//
// For simple use cases where you need a single client:
//
//	opts := datasource.NewRedisOptions()
//	opts.Host = "localhost"
//	client, err := datasource.NewRedisClient(opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
// # Multi-Instance Management
//
// For applications with multiple database instances, use the Manager:
//
//	mgr := datasource.NewManager()
//	mgr.RegisterPostgres("primary", pgOpts)
//	mgr.RegisterRedis("cache", redisOpts)
//	if err := mgr.InitAll(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.CloseAll()
//
//	db, _ := mgr.GetPostgres("primary")
//	cache, _ := mgr.GetRedis("cache")
package datasource

import (
	"context"

	"github.com/kart-io/thoughtweave/pkg/component/postgres"
	"github.com/kart-io/thoughtweave/pkg/component/redis"
	"github.com/kart-io/thoughtweave/pkg/component/storage"
)

// =============================================================================
// Core Interfaces (re-exported from storage package)
// =============================================================================

// Client is the base interface that all storage clients must implement.
type Client = storage.Client

// Factory is the interface for creating storage clients.
type Factory = storage.Factory

// HealthChecker is a function type for health checks.
type HealthChecker = storage.HealthChecker

// HealthStatus represents the health check result.
type HealthStatus = storage.HealthStatus

// =============================================================================
// Redis Client
// =============================================================================

// RedisClient is the Redis client type.
type RedisClient = redis.Client

// RedisOptions is the Redis configuration options type.
type RedisOptions = redis.Options

// NewRedisClient creates a new Redis client with the provided options.
//
// Example:
//
//	opts := datasource.NewRedisOptions()
//	opts.Host = "localhost"
//	opts.Port = 6379
//	client, err := datasource.NewRedisClient(opts)
func NewRedisClient(opts *RedisOptions) (*RedisClient, error) {
	return redis.New(opts)
}

// NewRedisClientWithContext creates a new Redis client with context support.
func NewRedisClientWithContext(ctx context.Context, opts *RedisOptions) (*RedisClient, error) {
	return redis.NewWithContext(ctx, opts)
}

// NewRedisFactory creates a Redis client factory for dependency injection.
func NewRedisFactory(opts *RedisOptions) Factory {
	return redis.NewFactory(opts)
}

// NewRedisOptions creates default Redis options.
func NewRedisOptions() *RedisOptions {
	return redis.NewOptions()
}

// =============================================================================
// PostgreSQL Client
// =============================================================================

// PostgresClient is the PostgreSQL client type.
type PostgresClient = postgres.Client

// PostgresOptions is the PostgreSQL configuration options type.
type PostgresOptions = postgres.Options

// NewPostgresClient creates a new PostgreSQL client with the provided options.
//
// Example:
//
//	opts := datasource.NewPostgresOptions()
//	opts.Host = "localhost"
//	opts.Database = "mydb"
//	opts.Username = "postgres"
//	client, err := datasource.NewPostgresClient(opts)
func NewPostgresClient(opts *PostgresOptions) (*PostgresClient, error) {
	return postgres.New(opts)
}

// NewPostgresClientWithContext creates a new PostgreSQL client with context support.
func NewPostgresClientWithContext(ctx context.Context, opts *PostgresOptions) (*PostgresClient, error) {
	return postgres.NewWithContext(ctx, opts)
}

// NewPostgresFactory creates a PostgreSQL client factory for dependency injection.
func NewPostgresFactory(opts *PostgresOptions) Factory {
	return postgres.NewSimpleFactory(opts)
}

// NewPostgresOptions creates default PostgreSQL options.
func NewPostgresOptions() *PostgresOptions {
	return postgres.NewOptions()
}
