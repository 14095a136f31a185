// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/zeebo/blake3"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/storegraph/lib/codec"
	"github.com/bureau-foundation/storegraph/lib/entitykey"
	"github.com/bureau-foundation/storegraph/lib/store"
)

// Config holds the parameters for opening a SQLite record store.
// Path is required; all other fields have sensible defaults.
type Config struct {
	// Path is the filesystem path to the SQLite database file. The
	// parent directory must exist. Use ":memory:" for an in-memory
	// database (pool size must be 1: each in-memory connection is
	// independent).
	Path string

	// PoolSize is the number of connections in the pool. If zero or
	// negative, defaults to max(runtime.NumCPU(), 4).
	PoolSize int

	// Logger receives operational messages (open/close, skipped
	// writes). If nil, a no-op logger is used.
	Logger *slog.Logger
}

// Store is a SQLite-backed store.Client. Safe for concurrent use;
// each call borrows its own pooled connection.
type Store struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
	path   string
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
	key_token    TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	compression  INTEGER NOT NULL,
	content_hash BLOB NOT NULL,
	content_size INTEGER NOT NULL,
	fields       BLOB NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS records_kind ON records(kind);
`

// Open creates the connection pool, applies the standard pragmas to
// every connection, and ensures the schema exists. The caller must
// call Close when done.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlitestore: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
		if poolSize < 4 {
			poolSize = 4
		}
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: opening %s: %w", cfg.Path, err)
	}

	logger.Info("record store opened", "path", cfg.Path, "pool_size", poolSize)

	return &Store{pool: pool, logger: logger, path: cfg.Path}, nil
}

// Close closes all connections in the pool.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("sqlitestore: closing %s: %w", s.path, err)
	}
	s.logger.Info("record store closed", "path", s.path)
	return nil
}

// prepareConnection applies the standard pragmas and creates the
// schema. Runs once per pooled connection, on first use.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-8192",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlitestore: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("sqlitestore: creating schema: %w", err)
	}
	return nil
}

// Put stores an entity's field map under its key. The blob is
// deterministic CBOR, so Put hashes it and skips the write entirely
// when the stored record already has identical content.
func (s *Store) Put(ctx context.Context, key entitykey.Key, fields map[string]any) error {
	if key.IsZero() {
		return fmt.Errorf("sqlitestore: cannot put record with zero key")
	}

	blob, err := codec.Marshal(fields)
	if err != nil {
		return fmt.Errorf("sqlitestore: encoding record %s: %w", key, err)
	}
	hash := blake3.Sum256(blob)

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlitestore: take connection: %w", err)
	}
	defer s.pool.Put(conn)

	var existingHash []byte
	err = sqlitex.Execute(conn,
		`SELECT content_hash FROM records WHERE key_token = ?`,
		&sqlitex.ExecOptions{
			Args: []any{key.Token()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				existingHash = make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, existingHash)
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("sqlitestore: checking record %s: %w", key, err)
	}
	if bytes.Equal(existingHash, hash[:]) {
		s.logger.Debug("record unchanged, write skipped", "key", key.String())
		return nil
	}

	compressed, tag := compressBlob(blob)
	err = sqlitex.Execute(conn,
		`INSERT OR REPLACE INTO records
		 (key_token, kind, compression, content_hash, content_size, fields, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				key.Token(), key.Kind(), int64(tag),
				hash[:], int64(len(blob)), compressed,
				time.Now().Unix(),
			},
		})
	if err != nil {
		return fmt.Errorf("sqlitestore: writing record %s: %w", key, err)
	}
	return nil
}

// Delete removes a record. Deleting an absent key is a no-op.
func (s *Store) Delete(ctx context.Context, key entitykey.Key) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlitestore: take connection: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`DELETE FROM records WHERE key_token = ?`,
		&sqlitex.ExecOptions{Args: []any{key.Token()}})
	if err != nil {
		return fmt.Errorf("sqlitestore: deleting record %s: %w", key, err)
	}
	return nil
}

// Get implements store.Client. Returns (nil, nil) on a miss.
func (s *Store) Get(ctx context.Context, key entitykey.Key) (*store.Record, error) {
	records, err := s.GetMulti(ctx, []entitykey.Key{key})
	if err != nil {
		return nil, err
	}
	return records[key], nil
}

// GetMulti implements store.Client: one query for all keys, missing
// keys absent from the result.
func (s *Store) GetMulti(ctx context.Context, keys []entitykey.Key) (map[entitykey.Key]*store.Record, error) {
	result := make(map[entitykey.Key]*store.Record, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	byToken := make(map[string]entitykey.Key, len(keys))
	tokens := make([]any, 0, len(keys))
	for _, key := range keys {
		token := key.Token()
		if _, seen := byToken[token]; seen {
			continue
		}
		byToken[token] = key
		tokens = append(tokens, token)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, &store.FetchError{Op: "get-multi", Err: err}
	}
	defer s.pool.Put(conn)

	query := fmt.Sprintf(
		`SELECT key_token, compression, content_size, fields FROM records
		 WHERE key_token IN (%s)`,
		strings.TrimSuffix(strings.Repeat("?, ", len(tokens)), ", "))

	var scanErr error
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: tokens,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			token := stmt.ColumnText(0)
			tag := compressionTag(stmt.ColumnInt64(1))
			size := int(stmt.ColumnInt64(2))
			compressed := make([]byte, stmt.ColumnLen(3))
			stmt.ColumnBytes(3, compressed)

			key, known := byToken[token]
			if !known {
				return nil
			}
			blob, err := decompressBlob(compressed, tag, size)
			if err != nil {
				scanErr = fmt.Errorf("record %s: %w", key, err)
				return scanErr
			}
			var fields map[string]any
			if err := codec.Unmarshal(blob, &fields); err != nil {
				scanErr = fmt.Errorf("record %s: decoding fields: %w", key, err)
				return scanErr
			}
			result[key] = &store.Record{Key: key, Fields: fields}
			return nil
		},
	})
	if err != nil {
		if scanErr != nil {
			err = scanErr
		}
		return nil, &store.FetchError{Op: "get-multi", Err: err}
	}
	return result, nil
}
