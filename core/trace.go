package scheme

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Trace records one evaluation request handled by a server: the source text,
// its printed result or error, and evaluator statistics.
type Trace struct {
	Source     string
	Result     string // printed value; empty on error
	Error      string // non-empty on error
	ErrorKind  string
	Steps      int
	PeakFrames int
	Timestamp  string // RFC 3339
}

func (t *Trace) ToMap() map[string]any {
	m := map[string]any{
		"source":      t.Source,
		"steps":       t.Steps,
		"peak_frames": t.PeakFrames,
		"timestamp":   t.Timestamp,
	}
	if t.Error != "" {
		m["error"] = t.Error
		m["error_kind"] = t.ErrorKind
	} else {
		m["result"] = t.Result
	}
	return m
}

func newTrace(source string, stats Stats) *Trace {
	return &Trace{
		Source:     source,
		Steps:      stats.Steps,
		PeakFrames: stats.PeakFrames,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

// TraceStore keeps recent traces.
type TraceStore interface {
	Append(t *Trace) error
	// Recent returns up to n traces, newest first. n <= 0 means all.
	Recent(n int) ([]*Trace, error)
	Clear() error
	Close() error
}

// --- Memory store ---

// MemoryTraceStore holds at most max traces, dropping the oldest.
type MemoryTraceStore struct {
	mu     sync.Mutex
	traces []*Trace
	max    int
}

func NewMemoryTraceStore(max int) *MemoryTraceStore {
	return &MemoryTraceStore{max: max}
}

func (m *MemoryTraceStore) Append(t *Trace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.traces = append(m.traces, t)
	if m.max > 0 && len(m.traces) > m.max {
		m.traces = m.traces[len(m.traces)-m.max:]
	}
	return nil
}

func (m *MemoryTraceStore) Recent(n int) ([]*Trace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 || n > len(m.traces) {
		n = len(m.traces)
	}
	out := make([]*Trace, 0, n)
	for i := len(m.traces) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.traces[i])
	}
	return out, nil
}

func (m *MemoryTraceStore) Clear() error {
	m.mu.Lock()
	m.traces = nil
	m.mu.Unlock()
	return nil
}

func (m *MemoryTraceStore) Close() error { return nil }

// --- SQLite store ---

const traceSchema = `CREATE TABLE IF NOT EXISTS traces (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	source      TEXT NOT NULL,
	result      TEXT NOT NULL,
	error       TEXT NOT NULL,
	error_kind  TEXT NOT NULL,
	steps       INTEGER NOT NULL,
	peak_frames INTEGER NOT NULL,
	timestamp   TEXT NOT NULL
)`

// SQLiteTraceStore persists traces in a SQLite database, keeping at most max
// rows when max > 0.
type SQLiteTraceStore struct {
	db  *sql.DB
	max int
}

func OpenSQLiteTraceStore(path string, max int) (*SQLiteTraceStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open trace db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open trace db: %w", err)
	}
	if _, err := db.Exec(traceSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create traces table: %w", err)
	}
	return &SQLiteTraceStore{db: db, max: max}, nil
}

func (s *SQLiteTraceStore) Append(t *Trace) error {
	_, err := s.db.Exec(
		`INSERT INTO traces (source, result, error, error_kind, steps, peak_frames, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Source, t.Result, t.Error, t.ErrorKind, t.Steps, t.PeakFrames, t.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append trace: %w", err)
	}
	if s.max > 0 {
		_, err = s.db.Exec(`DELETE FROM traces WHERE id <= (SELECT MAX(id) FROM traces) - ?`, s.max)
		if err != nil {
			return fmt.Errorf("trim traces: %w", err)
		}
	}
	return nil
}

func (s *SQLiteTraceStore) Recent(n int) ([]*Trace, error) {
	query := `SELECT source, result, error, error_kind, steps, peak_frames, timestamp FROM traces ORDER BY id DESC`
	var args []any
	if n > 0 {
		query += ` LIMIT ?`
		args = append(args, n)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query traces: %w", err)
	}
	defer rows.Close()

	var out []*Trace
	for rows.Next() {
		t := &Trace{}
		if err := rows.Scan(&t.Source, &t.Result, &t.Error, &t.ErrorKind, &t.Steps, &t.PeakFrames, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteTraceStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM traces`)
	return err
}

func (s *SQLiteTraceStore) Close() error { return s.db.Close() }
