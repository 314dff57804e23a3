package storage

import (
	"testing"
	"time"
)

func TestNewPostgresConfigDefaultsQueryTimeout(t *testing.T) {
	cfg := newPostgresConfig("postgres://example")
	if cfg.QueryTimeout != DefaultPostgresQueryTimeout {
		t.Fatalf("expected default query timeout %s, got %s", DefaultPostgresQueryTimeout, cfg.QueryTimeout)
	}

	cfg = newPostgresConfig("postgres://example", WithPostgresQueryTimeout(30*time.Second))
	if cfg.QueryTimeout != 30*time.Second {
		t.Fatalf("expected configured query timeout, got %s", cfg.QueryTimeout)
	}

	// Non-positive overrides keep the default rather than disabling the bound.
	cfg = newPostgresConfig("postgres://example", WithPostgresQueryTimeout(-time.Second))
	if cfg.QueryTimeout != DefaultPostgresQueryTimeout {
		t.Fatalf("expected negative timeout to keep the default, got %s", cfg.QueryTimeout)
	}
}

func TestOpContextCarriesDeadline(t *testing.T) {
	repo := &postgresRepository{cfg: newPostgresConfig("postgres://example", WithPostgresQueryTimeout(time.Second))}
	ctx, cancel := repo.opContext()
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected a deadline on the query context")
	}
	if remaining := time.Until(deadline); remaining > time.Second || remaining <= 0 {
		t.Fatalf("unexpected deadline %s from now", remaining)
	}

	// A zero-value config still produces a bounded context.
	repo = &postgresRepository{}
	ctx, cancel = repo.opContext()
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Fatal("expected the fallback timeout to bound the context")
	}
}
