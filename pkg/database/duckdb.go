package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tabstat/tabstat-engine/pkg/metrics"
)

// Store owns the single physical connection to the embedded DuckDB analytic
// store. Every operation, reads and writes alike, runs under one process-wide
// mutex held from statement issue through full result materialization: the
// handle is not proven safe for overlapping statements, so correctness is
// bought with serialization. Ingest uses Exclusive to keep its table replace
// and registry upsert atomic with respect to every reader.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Conn is the unlocked view of the store handed to an Exclusive section.
// It must not escape the callback that received it.
type Conn struct {
	db *sql.DB
}

// Open creates (or reopens) the DuckDB database at path and pins a single
// physical connection. Parent directories are created as needed. An empty
// path opens an in-memory database, which tests rely on.
func Open(path string) (*Store, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb store: %w", err)
	}

	// One handle, one statement at a time. The mutex above makes the pool
	// limit redundant in practice, but it keeps database/sql from ever
	// opening a second connection behind our back.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping duckdb store: %w", err)
	}

	s := &Store{db: db}
	if err := s.initRegistry(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the store. Safe to call multiple times.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("failed to close duckdb store: %w", err)
	}
	return nil
}

// Exclusive runs fn while holding the store lock, giving it a multi-statement
// critical section. No other operation can observe intermediate state.
func (s *Store) Exclusive(ctx context.Context, fn func(Conn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("store is closed")
	}
	return fn(Conn{db: s.db})
}

// Query runs a read query under the store lock. The scan callback consumes the
// rows before the lock is released, so results are fully materialized inside
// the critical section.
func (s *Store) Query(ctx context.Context, query string, scan func(*sql.Rows) error, args ...any) error {
	return s.Exclusive(ctx, func(c Conn) error {
		return c.Query(ctx, query, scan, args...)
	})
}

// QueryRow runs a single-row query under the store lock.
func (s *Store) QueryRow(ctx context.Context, query string, dest ...any) error {
	return s.Exclusive(ctx, func(c Conn) error {
		return c.QueryRow(ctx, query, dest...)
	})
}

// Exec runs a statement under the store lock.
func (s *Store) Exec(ctx context.Context, query string, args ...any) error {
	return s.Exclusive(ctx, func(c Conn) error {
		return c.Exec(ctx, query, args...)
	})
}

// Query runs a read query on an already-locked connection.
func (c Conn) Query(ctx context.Context, query string, scan func(*sql.Rows) error, args ...any) error {
	start := time.Now()
	rows, err := c.db.QueryContext(ctx, query, args...)
	metrics.ObserveStoreQuery("query", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	if err := scan(rows); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration failed: %w", err)
	}
	return nil
}

// QueryRow runs a single-row query on an already-locked connection.
func (c Conn) QueryRow(ctx context.Context, query string, dest ...any) error {
	start := time.Now()
	err := c.db.QueryRowContext(ctx, query).Scan(dest...)
	metrics.ObserveStoreQuery("query_row", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return nil
}

// Exec runs a statement on an already-locked connection.
func (c Conn) Exec(ctx context.Context, query string, args ...any) error {
	start := time.Now()
	_, err := c.db.ExecContext(ctx, query, args...)
	metrics.ObserveStoreQuery("exec", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("exec failed: %w", err)
	}
	return nil
}
