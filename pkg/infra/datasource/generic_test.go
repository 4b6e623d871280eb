package datasource

import (
	"context"
	"testing"
	"time"

	"github.com/kart-io/thoughtweave/pkg/component/postgres"
	"github.com/kart-io/thoughtweave/pkg/component/redis"
)

// =============================================================================
// Tests for TypedGetter[T]
// =============================================================================

func TestTypedGetter_Postgres(t *testing.T) {
	mgr := NewManager()

	opts := postgres.NewOptions()
	opts.Host = "localhost"
	opts.Database = "test"
	opts.Username = "postgres"

	if err := mgr.RegisterPostgres("primary", opts); err != nil {
		t.Fatalf("RegisterPostgres failed: %v", err)
	}

	pgGetter := mgr.Postgres()
	if pgGetter == nil {
		t.Fatal("Postgres() returned nil getter")
	}

	// Note: this attempts a real connection, which fails without a live
	// server; we're testing the API structure, not connectivity.
	if _, err := pgGetter.Get("primary"); err == nil {
		t.Log("Note: Postgres connection succeeded unexpectedly in test environment")
	}
}

func TestTypedGetter_Redis(t *testing.T) {
	mgr := NewManager()

	opts := redis.NewOptions()
	opts.Host = "localhost"

	if err := mgr.RegisterRedis("cache", opts); err != nil {
		t.Fatalf("RegisterRedis failed: %v", err)
	}

	redisGetter := mgr.Redis()
	if redisGetter == nil {
		t.Fatal("Redis() returned nil getter")
	}
}

func TestTypedGetter_Unregistered(t *testing.T) {
	mgr := NewManager()

	pgGetter := mgr.Postgres()
	if _, err := pgGetter.Get("nonexistent"); err == nil {
		t.Error("expected error for unregistered instance")
	}
}

func TestTypedGetter_GetWithContext(t *testing.T) {
	mgr := NewManager()

	opts := postgres.NewOptions()
	opts.Host = "localhost"
	opts.Database = "test"
	opts.Username = "postgres"
	_ = mgr.RegisterPostgres("primary", opts)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	pgGetter := mgr.Postgres()
	if _, err := pgGetter.GetWithContext(ctx, "primary"); err == nil {
		t.Log("Note: Postgres connection succeeded unexpectedly in test environment")
	}
}

func TestTypedGetter_MustGetPanics(t *testing.T) {
	mgr := NewManager()

	defer func() {
		if recover() == nil {
			t.Error("expected MustGet to panic for unregistered instance")
		}
	}()

	mgr.Postgres().MustGet("nonexistent")
}

func TestNewTypedGetter(t *testing.T) {
	mgr := NewManager()

	getter := NewTypedGetter[*redis.Client](mgr, TypeRedis)
	if getter == nil {
		t.Fatal("NewTypedGetter returned nil")
	}
	if getter.storageType != TypeRedis {
		t.Errorf("expected TypeRedis, got %s", getter.storageType)
	}
}
