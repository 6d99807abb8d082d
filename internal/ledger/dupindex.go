package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// HashIndex is the off-chain duplicate index: every hash that reaches
// the ledger is recorded locally, and future submissions of the same
// hash are rejected before any checks run. SQLite keeps the index
// embedded - the index is a cache of ledger state, not a system of
// record.
type HashIndex struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenHashIndex opens (and if needed creates) the index at path.
// Use ":memory:" for an ephemeral index.
func OpenHashIndex(path string, logger *slog.Logger) (*HashIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open hash index: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS document_hashes (
    hash       TEXT PRIMARY KEY,
    first_seen TIMESTAMP NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init hash index schema: %w", err)
	}
	logger.Info("ledger.index.open", "path", path)
	return &HashIndex{db: db, logger: logger}, nil
}

// Close releases the underlying database.
func (x *HashIndex) Close() error { return x.db.Close() }

// CheckDuplicate reports whether the hash was recorded before.
func (x *HashIndex) CheckDuplicate(ctx context.Context, hash string) (DuplicateCheckResult, error) {
	var firstSeen time.Time
	err := x.db.QueryRowContext(ctx,
		`SELECT first_seen FROM document_hashes WHERE hash = ?`, hash,
	).Scan(&firstSeen)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return DuplicateCheckResult{Hash: hash}, nil
	case err != nil:
		return DuplicateCheckResult{}, fmt.Errorf("query hash index: %w", err)
	}

	x.logger.Warn("ledger.index.duplicate", "hash", hash, "first_seen", firstSeen)
	return DuplicateCheckResult{
		Hash:        hash,
		IsDuplicate: true,
		FirstSeenAt: &firstSeen,
		Message:     fmt.Sprintf("hash first seen %s", firstSeen.Format(time.RFC3339)),
	}, nil
}

// RecordHash stores a hash. Recording the same hash twice is a no-op,
// not an error, so retries after partial failures stay safe.
func (x *HashIndex) RecordHash(ctx context.Context, hash string) error {
	_, err := x.db.ExecContext(ctx,
		`INSERT INTO document_hashes (hash, first_seen) VALUES (?, ?)
		 ON CONFLICT (hash) DO NOTHING`,
		hash, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record hash: %w", err)
	}
	return nil
}
