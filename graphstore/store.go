// Package graphstore is the concrete graph-database adapter spec §1
// assumes ("a labeled property graph supporting MERGE/CREATE, transient-
// error retry, vector and fulltext indices"): a sqlite-vec + FTS5 +
// relational-table implementation, adapted from the teacher's store
// package onto WorldRAG's domain schema.
package graphstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	sqlitevec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// Store wraps the sqlite connection pool plus embedding dimensionality,
// mirroring the teacher's store.Store shape.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) the sqlite-backed graph store at dbPath, exactly
// the teacher's connection-string and pool-tuning pattern.
func New(dbPath string, embeddingDim int) (*Store, error) {
	sqlitevec.Auto()

	dsn := dbPath + "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("graphstore: opening database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("graphstore: creating schema: %w", err)
	}

	return &Store{db: db, embeddingDim: embeddingDim}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// RetrievalResult is one scored, enriched retrieval hit (§4.12).
type RetrievalResult struct {
	ChunkID         int64
	ChapterNumber   int
	ChapterTitle    string
	Text            string
	CharOffsetStart int
	CharOffsetEnd   int
	Score           float64
}

// isTransient classifies a sqlite error as retryable. SQLITE_BUSY/LOCKED
// surface as generic errors from mattn/go-sqlite3 without cgo enabled in
// this build path; a substring check on "database is locked"/"busy"
// mirrors the teacher's store.go transient-error handling intent.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy") || strings.Contains(msg, "timeout")
}

// DB exposes the underlying *sql.DB for callers that need direct access.
// pipeline.Engine does not use it: its chapter write calls this package's
// helpers one statement at a time, with no enclosing transaction.
func (s *Store) DB() *sql.DB { return s.db }
