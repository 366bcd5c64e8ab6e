package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			player_uuid TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cosmetics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category TEXT NOT NULL CHECK (category IN ('cape', 'emote')),
			path TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS user_cosmetics (
			user_id TEXT NOT NULL REFERENCES users(id),
			cosmetic_id INTEGER NOT NULL REFERENCES cosmetics(id),
			transaction_id TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, cosmetic_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_cosmetics_active ON user_cosmetics(active, user_id)`,
		`CREATE TABLE IF NOT EXISTS cosmetic_packages (
			package_id INTEGER NOT NULL,
			cosmetic_id INTEGER NOT NULL REFERENCES cosmetics(id),
			PRIMARY KEY (package_id, cosmetic_id)
		)`,
	},
	insertUser: `INSERT INTO users (id, player_uuid, created_at) VALUES (?, ?, ?)
		ON CONFLICT(player_uuid) DO NOTHING`,
	insertGrant: `INSERT INTO user_cosmetics (user_id, cosmetic_id, transaction_id, active, created_at)
		VALUES (?, ?, ?, FALSE, ?)
		ON CONFLICT(user_id, cosmetic_id) DO NOTHING`,
	insertPackage: `INSERT INTO cosmetic_packages (package_id, cosmetic_id) VALUES (?, ?)
		ON CONFLICT(package_id, cosmetic_id) DO NOTHING`,
}

// SQLiteDSN builds a modernc DSN with WAL, foreign keys and a busy timeout.
// ":memory:" yields a private in-memory database.
func SQLiteDSN(path string) string {
	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path == ":memory:" || strings.HasPrefix(path, "file::memory:") {
		return "file::memory:?" + pragmas
	}
	return fmt.Sprintf("file:%s?%s&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path, pragmas)
}

// NewSQLiteRepository opens a SQLite database at path and ensures the schema.
func NewSQLiteRepository(ctx context.Context, path string, logger *zap.Logger) (*SQLRepository, error) {
	if !strings.Contains(path, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", SQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer; a single connection also keeps
	// in-memory databases alive for the life of the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	repo := newSQLRepository(db, sqliteDialect)
	if err := repo.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("sqlite repository initialized", zap.String("path", path))
	return repo, nil
}
