package auth

import (
	"errors"
	"testing"
	"time"
)

func TestSessionLifecycle(t *testing.T) {
	manager := NewSessionManager(time.Hour)

	token, expiresAt, err := manager.Create("op-1")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if token == "" {
		t.Fatal("expected token")
	}
	if time.Until(expiresAt) > time.Hour || time.Until(expiresAt) < 55*time.Minute {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	operatorID, _, ok, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if !ok || operatorID != "op-1" {
		t.Fatalf("expected valid session for op-1, got %q ok=%v", operatorID, ok)
	}

	if err := manager.Revoke(token); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if _, _, ok, _ := manager.Validate(token); ok {
		t.Fatal("expected revoked token to be invalid")
	}
}

func TestCreateRequiresOperatorID(t *testing.T) {
	manager := NewSessionManager(time.Hour)
	if _, _, err := manager.Create(""); !errors.Is(err, ErrInvalidOperatorID) {
		t.Fatalf("expected ErrInvalidOperatorID, got %v", err)
	}
}

func TestValidateExpiredSession(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(time.Hour, WithStore(store))

	past := time.Now().Add(-time.Minute).UTC()
	if err := store.Save("stale", "op-1", past, past); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	if _, _, ok, err := manager.Validate("stale"); err != nil || ok {
		t.Fatalf("expected expired session to be invalid, ok=%v err=%v", ok, err)
	}
	if _, found, _ := store.Get("stale"); found {
		t.Fatal("expected expired session to be deleted on validation")
	}
}

func TestIdleTimeoutRefreshCappedByAbsoluteTTL(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(time.Hour, WithStore(store), WithIdleTimeout(10*time.Minute))

	token, expiresAt, err := manager.Create("op-1")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if time.Until(expiresAt) > 11*time.Minute {
		t.Fatalf("expected idle expiry, got %v", time.Until(expiresAt))
	}

	record, ok, err := store.Get(token)
	if err != nil || !ok {
		t.Fatalf("expected stored session, ok=%v err=%v", ok, err)
	}
	if !record.AbsoluteExpiresAt.After(record.ExpiresAt) {
		t.Fatal("expected absolute expiry beyond idle expiry")
	}

	_, refreshed, valid, err := manager.Validate(token)
	if err != nil || !valid {
		t.Fatalf("Validate error: valid=%v err=%v", valid, err)
	}
	if refreshed.After(record.AbsoluteExpiresAt) {
		t.Fatal("expected refresh capped at absolute expiry")
	}
}

func TestPurgeExpired(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(time.Hour, WithStore(store))

	past := time.Now().Add(-time.Minute).UTC()
	future := time.Now().Add(time.Hour).UTC()
	if err := store.Save("stale", "op-1", past, past); err != nil {
		t.Fatalf("Save stale: %v", err)
	}
	if err := store.Save("fresh", "op-2", future, future); err != nil {
		t.Fatalf("Save fresh: %v", err)
	}

	if err := manager.PurgeExpired(); err != nil {
		t.Fatalf("PurgeExpired error: %v", err)
	}
	if _, ok, _ := store.Get("stale"); ok {
		t.Fatal("expected stale session purged")
	}
	if _, ok, _ := store.Get("fresh"); !ok {
		t.Fatal("expected fresh session kept")
	}
}
