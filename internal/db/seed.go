package db

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SeedAdmin makes sure the bootstrap admin account exists. Credentials come
// from ADMIN_USERNAME / ADMIN_PASSWORD; the call is a no-op when the account
// is already present or the variables are unset.
func SeedAdmin(ctx context.Context, database *Database) error {
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		zap.L().Warn("admin credentials not configured, skipping admin seed")
		return nil
	}

	var count int
	err := database.ExecQueryRow(ctx, "SELECT COUNT(*) FROM users WHERE username = $1", username).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check admin user: %w", err)
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	_, err = database.Exec(ctx, `
        INSERT INTO users (id, username, password, role, name, address)
        VALUES ($1, $2, $3, 'admin', 'Administrator', '')
    `, uuid.NewString(), username, string(hashed))
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	zap.L().Info("admin user created", zap.String("username", username))
	return nil
}
