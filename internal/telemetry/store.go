package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/eunjujo120/perso-ai-chatbot/internal/qa"
)

// maxStoredUnanswered bounds the unanswered_questions table.
const maxStoredUnanswered = 500

const telemetrySchema = `
CREATE TABLE IF NOT EXISTS outcome_stats (
	date    TEXT NOT NULL,
	outcome TEXT NOT NULL,
	count   INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date, outcome)
);
CREATE TABLE IF NOT EXISTS latency_stats (
	date   TEXT NOT NULL,
	bucket TEXT NOT NULL,
	count  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date, bucket)
);
CREATE TABLE IF NOT EXISTS unanswered_terms (
	term      TEXT PRIMARY KEY,
	count     INTEGER NOT NULL DEFAULT 0,
	last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS unanswered_questions (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	question TEXT NOT NULL,
	seen_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

// SQLiteStore persists telemetry counters in a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLiteStore opens or creates the telemetry database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create telemetry directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragma: %w", err)
	}
	if _, err := db.Exec(telemetrySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create telemetry schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) addCounts(query string, rows map[string]int64, key string) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for k, n := range rows {
		args := []any{k, n}
		if key != "" {
			args = []any{key, k, n}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("upsert count: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// AddOutcomeCounts adds to the daily outcome counters.
func (s *SQLiteStore) AddOutcomeCounts(date string, counts map[qa.Outcome]int64) error {
	rows := make(map[string]int64, len(counts))
	for k, v := range counts {
		rows[string(k)] = v
	}
	return s.addCounts(`
		INSERT INTO outcome_stats (date, outcome, count) VALUES (?, ?, ?)
		ON CONFLICT(date, outcome) DO UPDATE SET count = count + excluded.count`, rows, date)
}

// AddLatencyCounts adds to the daily latency histogram.
func (s *SQLiteStore) AddLatencyCounts(date string, counts map[LatencyBucket]int64) error {
	rows := make(map[string]int64, len(counts))
	for k, v := range counts {
		rows[string(k)] = v
	}
	return s.addCounts(`
		INSERT INTO latency_stats (date, bucket, count) VALUES (?, ?, ?)
		ON CONFLICT(date, bucket) DO UPDATE SET count = count + excluded.count`, rows, date)
}

// AddTermCounts adds to the unanswered term counters.
func (s *SQLiteStore) AddTermCounts(terms map[string]int64) error {
	return s.addCounts(`
		INSERT INTO unanswered_terms (term, count, last_seen) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(term) DO UPDATE SET count = count + excluded.count, last_seen = CURRENT_TIMESTAMP`, terms, "")
}

// AddUnanswered appends questions and trims the table to the newest rows.
func (s *SQLiteStore) AddUnanswered(questions []string) error {
	if len(questions) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range questions {
		if _, err := tx.Exec(`INSERT INTO unanswered_questions (question) VALUES (?)`, q); err != nil {
			return fmt.Errorf("insert unanswered question: %w", err)
		}
	}
	if _, err := tx.Exec(`
		DELETE FROM unanswered_questions WHERE id NOT IN (
			SELECT id FROM unanswered_questions ORDER BY id DESC LIMIT ?
		)`, maxStoredUnanswered); err != nil {
		return fmt.Errorf("trim unanswered questions: %w", err)
	}
	return tx.Commit()
}

// OutcomeCounts sums outcome counters between two dates, inclusive.
func (s *SQLiteStore) OutcomeCounts(from, to string) (map[qa.Outcome]int64, error) {
	rows, err := s.db.Query(`
		SELECT outcome, SUM(count) FROM outcome_stats
		WHERE date >= ? AND date <= ? GROUP BY outcome`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query outcome counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[qa.Outcome]int64)
	for rows.Next() {
		var (
			o string
			n int64
		)
		if err := rows.Scan(&o, &n); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out[qa.Outcome(o)] = n
	}
	return out, rows.Err()
}

// TopTerms returns the most frequent unanswered terms.
func (s *SQLiteStore) TopTerms(limit int) ([]TermCount, error) {
	rows, err := s.db.Query(`SELECT term, count FROM unanswered_terms ORDER BY count DESC, term LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top terms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []TermCount
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
