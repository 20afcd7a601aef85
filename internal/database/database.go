package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"multasync/internal/constants"
	apperrors "multasync/internal/errors"
	"multasync/internal/security"

	_ "github.com/mattn/go-sqlite3"
)

// schema holds the whole-collection key-value layout. Every read and
// write replaces a full collection payload; there is no row-per-record
// indexing because queued collections stay small (tens of records).
const schema = `
CREATE TABLE IF NOT EXISTS collections (
    name TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TRIGGER IF NOT EXISTS collections_updated_at
AFTER UPDATE ON collections
BEGIN
    UPDATE collections SET updated_at = CURRENT_TIMESTAMP
    WHERE name = NEW.name;
END;
`

// Store is the durable local record store backing the offline queue. It
// exposes whole-collection get/set/remove semantics over SQLite.
type Store struct {
	db         *sql.DB
	encryptor  *encryptor
	maxPayload int
}

func New(dbPath string, maxPayloadKB int) (*Store, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	if err := security.ValidateFilePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	encryptor, err := NewEncryptor()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize encryptor: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	if maxPayloadKB <= 0 {
		maxPayloadKB = constants.DefaultMaxPayloadKB
	}

	return &Store{db: db, encryptor: encryptor, maxPayload: maxPayloadKB * 1024}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the stored payload for a collection, or nil when the
// collection has never been written.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT payload FROM collections WHERE name = ?`

	var stored string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&stored)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("get", err).WithContext("collection", key)
	}

	payload, err := s.encryptor.DecryptIfEnabled(stored)
	if err != nil {
		return nil, apperrors.NewStorageError("decrypt", err).WithContext("collection", key)
	}

	return []byte(payload), nil
}

// Set replaces the whole payload of a collection. Payloads over the
// configured limit are rejected with a capacity error so callers can
// shed photo evidence and retry.
func (s *Store) Set(ctx context.Context, key string, payload []byte) error {
	if len(payload) > s.maxPayload {
		return apperrors.NewStorageCapacityError(key, len(payload), s.maxPayload)
	}

	stored, err := s.encryptor.EncryptIfEnabled(string(payload))
	if err != nil {
		return apperrors.NewStorageError("encrypt", err).WithContext("collection", key)
	}

	query := `
		INSERT INTO collections (name, payload) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET payload = excluded.payload
	`

	err = retryableDBOperation(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, query, key, stored)
		return execErr
	}, "set collection")
	if err != nil {
		return apperrors.NewStorageError("set", err).WithContext("collection", key)
	}

	return nil
}

// RemoveMany deletes the given collections outright. Used by the
// logout/reset flow.
func (s *Store) RemoveMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(keys))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf(`DELETE FROM collections WHERE name IN (%s)`, placeholders)

	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	err := retryableDBOperation(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, query, args...)
		return execErr
	}, "remove collections")
	if err != nil {
		return apperrors.NewStorageError("remove", err)
	}

	return nil
}
