package capture

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS captures (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	port TEXT NOT NULL,
	captured_at TIMESTAMP NOT NULL,
	data BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_captures_session ON captures(session_id, id);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
}

// SQLiteSink stores each chunk as a row keyed by session.
type SQLiteSink struct {
	db     *sql.DB
	insert *sql.Stmt
}

// NewSQLiteSink opens or creates the database at path.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	insert, err := db.Prepare(`INSERT INTO captures (session_id, port, captured_at, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteSink{db: db, insert: insert}, nil
}

func (s *SQLiteSink) Write(c Chunk) error {
	if _, err := s.insert.Exec(c.Session, c.Port, c.Time.UTC(), c.Data); err != nil {
		return fmt.Errorf("insert capture: %w", err)
	}
	return nil
}

// Chunks returns the stored chunks of a session in arrival order.
func (s *SQLiteSink) Chunks(session string) ([]Chunk, error) {
	rows, err := s.db.Query(`SELECT session_id, port, captured_at, data FROM captures WHERE session_id = ? ORDER BY id`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var (
			c  Chunk
			ts time.Time
		)
		if err := rows.Scan(&c.Session, &c.Port, &ts, &c.Data); err != nil {
			return nil, err
		}
		c.Time = ts
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Sessions lists the distinct session ids, oldest first.
func (s *SQLiteSink) Sessions() ([]string, error) {
	rows, err := s.db.Query(`SELECT session_id FROM captures GROUP BY session_id ORDER BY MIN(id)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteSink) Close() error {
	s.insert.Close()
	return s.db.Close()
}
