package auth

import (
	"context"
	"database/sql"
	"fmt"

	// Register the pure-Go SQLite driver; no CGO toolchain required at
	// build time, matching a single self-contained gateway binary.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS api_keys (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	key_hash   TEXT NOT NULL UNIQUE,
	revoked    INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	revoked_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_api_keys_key_hash ON api_keys(key_hash);
`

// Store persists APIKey records in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the SQLite database at dbPath in WAL mode
// and applies the schema. dbPath may be ":memory:" for an ephemeral store.
func OpenStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("auth: db path must not be empty")
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("auth: open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("auth: ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("auth: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// HealthCheck verifies the database connection is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// FindByHash retrieves an active (non-revoked) key by its SHA256 hash.
// Returns nil, nil if no matching key is found.
func (s *Store) FindByHash(ctx context.Context, keyHash string) (*APIKey, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, key_hash, revoked, created_at, revoked_at
		FROM api_keys
		WHERE key_hash = ? AND NOT revoked
	`, keyHash)

	var key APIKey
	var revoked int
	var revokedAt sql.NullString
	err := row.Scan(&key.ID, &key.Name, &key.KeyHash, &revoked, &key.CreatedAt, &revokedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth: query key by hash: %w", err)
	}
	key.Revoked = revoked != 0
	return &key, nil
}

// Create persists a new APIKey record.
func (s *Store) Create(ctx context.Context, key *APIKey) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, name, key_hash, revoked, created_at)
		VALUES (?, ?, ?, 0, ?)
	`, key.ID, key.Name, key.KeyHash, key.CreatedAt)
	if err != nil {
		return fmt.Errorf("auth: insert key: %w", err)
	}
	return nil
}

// Revoke marks a key as revoked.
func (s *Store) Revoke(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE api_keys SET revoked = 1, revoked_at = datetime('now')
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("auth: revoke key: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("auth: check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, id)
	}
	return nil
}
