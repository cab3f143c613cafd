package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

// Connect opens a pooled connection to postgres and verifies it with a ping.
func Connect(dsn string, timeout time.Duration) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database handle: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(25)
	conn.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err = conn.PingContext(ctx); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database within %v: %w (close also failed: %v)", timeout, err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database within %v: %w", timeout, err)
	}

	return conn, nil
}

// EnsureSchema creates the tables the bot needs if they do not exist yet.
// Statements are idempotent so the service can be restarted freely.
func EnsureSchema(ctx context.Context, conn *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tournaments (
			id SERIAL PRIMARY KEY,
			guild_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			team_size INT NOT NULL,
			best_of INT NOT NULL,
			bracket_type TEXT NOT NULL DEFAULT 'single_elimination',
			captain_scoring BOOLEAN NOT NULL DEFAULT FALSE,
			queue_status TEXT NOT NULL DEFAULT 'OPEN',
			status TEXT NOT NULL DEFAULT 'WAITING',
			bracket_channel_ref TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT tournaments_guild_id_key UNIQUE (guild_id)
		)`,
		`CREATE TABLE IF NOT EXISTS teams (
			id SERIAL PRIMARY KEY,
			tournament_id INT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			ready BOOLEAN NOT NULL DEFAULT FALSE,
			role_ref TEXT,
			captain_ref TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT teams_tournament_id_name_key UNIQUE (tournament_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS bracket_matches (
			id SERIAL PRIMARY KEY,
			tournament_id INT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
			round INT NOT NULL,
			slot INT NOT NULL,
			team_a TEXT NOT NULL,
			team_b TEXT NOT NULL,
			score TEXT,
			winner TEXT,
			status TEXT NOT NULL DEFAULT 'PENDING',
			channel_ref TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT bracket_matches_tournament_round_slot_key UNIQUE (tournament_id, round, slot)
		)`,
	}

	for _, stmt := range statements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
