package database

import (
	"context"
	"fmt"
	"log/slog"
)

// schema holds the idempotent DDL applied at startup. Constraint names are
// load-bearing: repositories map unique violations (23505) back to domain
// errors by constraint name.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email VARCHAR(255) NOT NULL,
		username VARCHAR(50) NOT NULL,
		name VARCHAR(255),
		password_hash TEXT,
		role VARCHAR(20) NOT NULL DEFAULT 'user',
		provider VARCHAR(20) NOT NULL DEFAULT 'email',
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		avatar_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT accounts_email_key UNIQUE (email),
		CONSTRAINT accounts_username_key UNIQUE (username)
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		session_token TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		ip_address VARCHAR(45),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS sessions_token_idx ON sessions (session_token) WHERE is_active`,
	`CREATE INDEX IF NOT EXISTS sessions_account_idx ON sessions (account_id)`,

	`CREATE TABLE IF NOT EXISTS teams (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(255) NOT NULL,
		avatar_url TEXT,
		owner_id UUID NOT NULL REFERENCES accounts(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS team_members (
		team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		PRIMARY KEY (team_id, account_id)
	)`,

	`CREATE TABLE IF NOT EXISTS team_managers (
		team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		PRIMARY KEY (team_id, account_id)
	)`,

	`CREATE TABLE IF NOT EXISTS file_uploads (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		file_name VARCHAR(255) NOT NULL,
		file_type VARCHAR(20) NOT NULL,
		uploaded_by UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		url TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS file_uploads_owner_idx ON file_uploads (uploaded_by)`,
}

// Migrate applies the schema statements in order. Every statement is
// idempotent, so running Migrate on every startup is safe.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema statement: %w", err)
		}
	}
	slog.Info("database schema up to date")
	return nil
}
