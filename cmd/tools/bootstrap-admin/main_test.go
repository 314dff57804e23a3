package main

import (
	"path/filepath"
	"testing"

	"radiowave/internal/storage"
)

func TestBootstrapAdminCreatesAccount(t *testing.T) {
	repo, err := storage.NewJSONRepository(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewJSONRepository returned error: %v", err)
	}

	operator, created, err := bootstrapAdmin(repo, "admin@example.com", "Administrator", "correct horse")
	if err != nil {
		t.Fatalf("bootstrapAdmin returned error: %v", err)
	}
	if !created {
		t.Fatal("expected account to be created")
	}
	if !operator.HasRole("admin") {
		t.Fatalf("expected admin role, got %v", operator.Roles)
	}
	if _, err := repo.AuthenticateOperator("admin@example.com", "correct horse"); err != nil {
		t.Fatalf("expected seeded credentials to authenticate: %v", err)
	}
}

func TestBootstrapAdminResetsPassword(t *testing.T) {
	repo, err := storage.NewJSONRepository(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewJSONRepository returned error: %v", err)
	}
	if _, _, err := bootstrapAdmin(repo, "admin@example.com", "Administrator", "first password"); err != nil {
		t.Fatalf("initial bootstrap returned error: %v", err)
	}

	_, created, err := bootstrapAdmin(repo, "admin@example.com", "Administrator", "second password")
	if err != nil {
		t.Fatalf("second bootstrap returned error: %v", err)
	}
	if created {
		t.Fatal("expected existing account to be updated, not created")
	}
	if _, err := repo.AuthenticateOperator("admin@example.com", "first password"); err == nil {
		t.Fatal("expected old password to be rejected")
	}
	if _, err := repo.AuthenticateOperator("admin@example.com", "second password"); err != nil {
		t.Fatalf("expected new password to authenticate: %v", err)
	}
}
