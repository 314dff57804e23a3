// Command bootstrap-admin seeds or updates an administrator account in the datastore.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"radiowave/internal/models"
	"radiowave/internal/storage"
)

func main() {
	var (
		jsonPath    string
		postgresDSN string
		email       string
		displayName string
		password    string
	)

	flag.StringVar(&jsonPath, "json", "", "Path to the JSON datastore (store.json)")
	flag.StringVar(&postgresDSN, "postgres-dsn", "", "Postgres connection string")
	flag.StringVar(&email, "email", "", "Email address for the admin account")
	flag.StringVar(&displayName, "name", "Administrator", "Display name for the admin account")
	flag.StringVar(&password, "password", "", "Password for the admin account")
	flag.Parse()

	if jsonPath == "" && postgresDSN == "" {
		fatalf("either --json or --postgres-dsn must be provided")
	}
	if jsonPath != "" && postgresDSN != "" {
		fatalf("only one datastore option may be provided")
	}
	if strings.TrimSpace(email) == "" {
		fatalf("--email is required")
	}
	if len(password) < 8 {
		fatalf("--password must be at least 8 characters")
	}
	if strings.TrimSpace(displayName) == "" {
		fatalf("--name cannot be empty")
	}

	repo, err := openRepository(jsonPath, postgresDSN)
	if err != nil {
		fatalf("open datastore: %v", err)
	}
	defer closeRepository(repo)

	operator, created, err := bootstrapAdmin(repo, strings.TrimSpace(email), strings.TrimSpace(displayName), password)
	if err != nil {
		fatalf("bootstrap admin: %v", err)
	}

	state := "updated"
	if created {
		state = "created"
	}
	fmt.Printf("Admin operator %s (%s) %s successfully.\n", operator.Email, operator.DisplayName, state)
	fmt.Println("Remember to rotate this password after the first login.")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func openRepository(jsonPath, postgresDSN string) (storage.Repository, error) {
	if jsonPath != "" {
		return storage.NewJSONRepository(jsonPath)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return storage.NewPostgresRepository(ctx, postgresDSN)
}

func closeRepository(repo storage.Repository) {
	type closer interface {
		Close(context.Context) error
	}
	if c, ok := repo.(closer); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Close(ctx)
	}
}

// bootstrapAdmin creates the account when missing and otherwise resets its
// password so a locked-out team can always recover access.
func bootstrapAdmin(repo storage.Repository, email, displayName, password string) (models.Operator, bool, error) {
	if existing, ok := repo.FindOperatorByEmail(email); ok {
		updated, err := repo.SetOperatorPassword(existing.ID, password)
		if err != nil {
			return models.Operator{}, false, err
		}
		return updated, false, nil
	}

	operator, err := repo.CreateOperator(storage.CreateOperatorParams{
		Email:       email,
		DisplayName: displayName,
		Password:    password,
		Roles:       []string{"admin"},
	})
	if err != nil {
		return models.Operator{}, false, err
	}
	return operator, true, nil
}
