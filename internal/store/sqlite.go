package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/viterin/vek/vek32"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS store_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS points (
	id       INTEGER PRIMARY KEY,
	question TEXT NOT NULL,
	answer   TEXT NOT NULL,
	source   TEXT NOT NULL DEFAULT '',
	vector   BLOB NOT NULL
);`

type sqliteRow struct {
	id      uint64
	vector  []float32
	payload Payload
}

// SQLiteStore persists points in SQLite and answers searches by scanning
// every vector. A Q&A corpus is small enough that a scan beats keeping an
// approximate index in sync.
type SQLiteStore struct {
	db   *sql.DB
	path string

	mu     sync.RWMutex
	dims   int
	rows   []sqliteRow // unit vectors, loaded lazily
	loaded bool
}

var _ VectorStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database at path. An empty path
// opens an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps :memory: databases alive and serializes writes
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	var dims string
	err = db.QueryRow(`SELECT value FROM store_meta WHERE key = 'dimensions'`).Scan(&dims)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		_ = db.Close()
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	default:
		s.dims, _ = strconv.Atoi(dims)
	}
	return s, nil
}

// Replace deletes every point and writes points in one transaction, then
// swaps the in-memory scan set. Searches see the old rows until the swap.
func (s *SQLiteStore) Replace(ctx context.Context, dims int, points []Point) error {
	if dims == 0 && len(points) > 0 {
		dims = len(points[0].Vector)
	}
	for _, p := range points {
		if len(p.Vector) != dims {
			return dimensionMismatch(dims, len(p.Vector))
		}
	}

	rows := make([]sqliteRow, len(points))
	for i, p := range points {
		rows[i] = sqliteRow{id: p.ID, vector: normalized(p.Vector), payload: p.Payload}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].id < rows[j].id })

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM points`); err != nil {
			return fmt.Errorf("failed to clear points: %w", err)
		}
		if err := writePoints(ctx, tx, points); err != nil {
			return err
		}
		return writeDims(ctx, tx, dims)
	})
	if err != nil {
		return err
	}

	s.dims = dims
	s.rows = dedupeRows(rows)
	s.loaded = true
	return nil
}

// Upsert writes points in one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dims := s.dims
	if dims == 0 {
		dims = len(points[0].Vector)
	}
	for _, p := range points {
		if len(p.Vector) != dims {
			return dimensionMismatch(dims, len(p.Vector))
		}
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := writePoints(ctx, tx, points); err != nil {
			return err
		}
		return writeDims(ctx, tx, dims)
	})
	if err != nil {
		return err
	}

	s.dims = dims
	s.loaded = false
	s.rows = nil
	return nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func writePoints(ctx context.Context, tx *sql.Tx, points []Point) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO points (id, question, answer, source, vector) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET question = excluded.question, answer = excluded.answer,
		 source = excluded.source, vector = excluded.vector`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, int64(p.ID), p.Payload.Question, p.Payload.Answer,
			p.Payload.Source, encodeVector(p.Vector)); err != nil {
			return fmt.Errorf("failed to upsert point %d: %w", p.ID, err)
		}
	}
	return nil
}

func writeDims(ctx context.Context, tx *sql.Tx, dims int) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO store_meta (key, value) VALUES ('dimensions', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, strconv.Itoa(dims)); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// dedupeRows keeps the last row per id, matching ON CONFLICT in the table.
// rows must be sorted by id with a stable sort.
func dedupeRows(rows []sqliteRow) []sqliteRow {
	out := rows[:0]
	for _, r := range rows {
		if n := len(out); n > 0 && out[n-1].id == r.id {
			out[n-1] = r
			continue
		}
		out = append(out, r)
	}
	return out
}

// Search scores every stored vector against the query.
func (s *SQLiteStore) Search(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	if limit <= 0 {
		return []Hit{}, nil
	}
	rows, dims, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []Hit{}, nil
	}
	if len(vector) != dims {
		return nil, dimensionMismatch(dims, len(vector))
	}

	q := normalized(vector)
	hits := make([]Hit, 0, len(rows))
	for i := range rows {
		p := rows[i].payload
		hits = append(hits, Hit{
			ID:      rows[i].id,
			Score:   float64(vek32.Dot(q, rows[i].vector)),
			Payload: &p,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *SQLiteStore) snapshot(ctx context.Context) ([]sqliteRow, int, error) {
	s.mu.RLock()
	if s.loaded {
		rows, dims := s.rows, s.dims
		s.mu.RUnlock()
		return rows, dims, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.rows, s.dims, nil
	}

	rs, err := s.db.QueryContext(ctx, `SELECT id, question, answer, source, vector FROM points ORDER BY id`)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query points: %w", err)
	}
	defer func() { _ = rs.Close() }()

	var rows []sqliteRow
	for rs.Next() {
		var (
			id   int64
			r    sqliteRow
			blob []byte
		)
		if err := rs.Scan(&id, &r.payload.Question, &r.payload.Answer, &r.payload.Source, &blob); err != nil {
			return nil, 0, fmt.Errorf("failed to scan point: %w", err)
		}
		r.id = uint64(id)
		r.vector = decodeVector(blob)
		normalizeInPlace(r.vector)
		rows = append(rows, r)
	}
	if err := rs.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read points: %w", err)
	}

	s.rows = rows
	s.loaded = true
	return rows, s.dims, nil
}

// Count returns the number of rows.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM points`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return n, nil
}

// Stats reports backend, size and dimensions.
func (s *SQLiteStore) Stats(ctx context.Context) Stats {
	n, _ := s.Count(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Backend: "sqlite", Points: n, Dimensions: s.dims}
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
