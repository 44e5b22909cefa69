package guard

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// SQLiteAuditStore persists fetch audit events and supports querying
// the most recent ones, for operators reviewing what the guard allowed
// and denied.
type SQLiteAuditStore struct {
	dsn string

	mu sync.Mutex
	db *sql.DB
}

func NewSQLiteAuditStore(dsn string) (*SQLiteAuditStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("missing sqlite dsn")
	}
	s := &SQLiteAuditStore{dsn: dsn}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteAuditStore) Emit(ctx context.Context, e FetchAuditEvent) error {
	if s == nil {
		return fmt.Errorf("nil audit store")
	}
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO fetch_audit (
  event_id, fetch_id, ts_unix_nano, hop, url, decision, reason, status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, e.EventID, e.FetchID, e.Timestamp.UnixNano(), e.Hop, e.URL, string(e.Decision), e.Reason, e.Status)
	return err
}

// Recent returns up to n events, newest first.
func (s *SQLiteAuditStore) Recent(ctx context.Context, n int) ([]FetchAuditEvent, error) {
	if s == nil {
		return nil, fmt.Errorf("nil audit store")
	}
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if n <= 0 {
		n = 50
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT event_id, fetch_id, ts_unix_nano, hop, url, decision, reason, status
FROM fetch_audit
ORDER BY ts_unix_nano DESC
LIMIT ?
`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FetchAuditEvent
	for rows.Next() {
		var (
			e        FetchAuditEvent
			tsNano   int64
			decision string
		)
		if err := rows.Scan(&e.EventID, &e.FetchID, &tsNano, &e.Hop, &e.URL, &decision, &e.Reason, &e.Status); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(0, tsNano).UTC()
		e.Decision = FetchDecision(decision)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteAuditStore) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteAuditStore) open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return err
	}
	s.db = db
	return s.migrate()
}

func (s *SQLiteAuditStore) ensureOpen() error {
	if s.db != nil {
		return nil
	}
	return s.open()
}

func (s *SQLiteAuditStore) migrate() error {
	if s.db == nil {
		return fmt.Errorf("sqlite db is not open")
	}
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS fetch_audit (
  event_id TEXT PRIMARY KEY,
  fetch_id TEXT NOT NULL,
  ts_unix_nano INTEGER NOT NULL,
  hop INTEGER NOT NULL,
  url TEXT,
  decision TEXT NOT NULL,
  reason TEXT,
  status INTEGER
);
CREATE INDEX IF NOT EXISTS idx_fetch_audit_fetch_id ON fetch_audit(fetch_id);
CREATE INDEX IF NOT EXISTS idx_fetch_audit_ts ON fetch_audit(ts_unix_nano);
`)
	return err
}
