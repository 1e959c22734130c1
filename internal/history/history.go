// Package history persists finished sessions to a local SQLite database so
// the REST API and weekly report can query past activity after restarts.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tasksnap/focusd/internal/session"
)

// Entry is one finished session as stored on disk.
type Entry struct {
	ID               string     `json:"id"`
	Label            string     `json:"label,omitempty"`
	Room             string     `json:"room,omitempty"`
	PlannedSeconds   int        `json:"plannedSeconds"`
	RemainingSeconds int        `json:"remainingSeconds"`
	Outcome          string     `json:"outcome"` // "completed" or "cancelled"
	StartedAt        time.Time  `json:"startedAt"`
	EndedAt          *time.Time `json:"endedAt,omitempty"`
}

// DayCount is a per-day completion total, keyed by UTC date "2006-01-02".
type DayCount struct {
	Day         string `json:"day"`
	Completions int    `json:"completions"`
	Cancelled   int    `json:"cancelled"`
	FocusSec    int64  `json:"focusSeconds"`
}

// Totals summarizes the whole table.
type Totals struct {
	Sessions     int     `json:"sessions"`
	Completions  int     `json:"completions"`
	Cancelled    int     `json:"cancelled"`
	FocusSeconds int64   `json:"focusSeconds"`
	AvgPlanned   float64 `json:"avgPlannedSeconds"`
}

// Store wraps the SQLite connection. All methods are safe for concurrent use;
// database/sql serializes access to the underlying connection pool.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
// Use ":memory:" for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging history db: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		label TEXT,
		room TEXT,
		planned_sec INTEGER NOT NULL,
		remaining_sec INTEGER NOT NULL DEFAULT 0,
		outcome TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_outcome ON sessions(outcome);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating history schema: %w", err)
	}
	return nil
}

// Record stores a finished session. Sessions that are not yet terminal are
// rejected; only completed and cancelled sessions belong in history.
func (s *Store) Record(sess *session.Session) error {
	if !sess.IsTerminal() {
		return fmt.Errorf("recording session %s: state %s is not terminal", sess.ID, sess.State)
	}

	outcome := "completed"
	if sess.State == session.Cancelled {
		outcome = "cancelled"
	}

	var endedAt interface{}
	if sess.EndedAt != nil {
		endedAt = sess.EndedAt.UTC()
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sessions
			(id, label, room, planned_sec, remaining_sec, outcome, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Label, sess.Room,
		sess.PlannedSeconds, sess.RemainingSeconds, outcome,
		sess.StartedAt.UTC(), endedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting session %s: %w", sess.ID, err)
	}
	return nil
}

// Recent returns the most recently ended sessions, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, label, room, planned_sec, remaining_sec, outcome, started_at, ended_at
		FROM sessions
		ORDER BY ended_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent sessions: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Range returns sessions that ended within [from, to), oldest first.
func (s *Store) Range(from, to time.Time) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT id, label, room, planned_sec, remaining_sec, outcome, started_at, ended_at
		FROM sessions
		WHERE ended_at >= ? AND ended_at < ?
		ORDER BY ended_at ASC`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying session range: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// CompletionsByDay aggregates per-day outcomes for sessions ended since the
// given time, oldest day first. Days with no sessions are absent.
func (s *Store) CompletionsByDay(since time.Time) ([]DayCount, error) {
	rows, err := s.db.Query(`
		SELECT
			strftime('%Y-%m-%d', ended_at) AS day,
			SUM(CASE WHEN outcome = 'completed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN outcome = 'cancelled' THEN 1 ELSE 0 END),
			SUM(CASE WHEN outcome = 'completed' THEN planned_sec ELSE 0 END)
		FROM sessions
		WHERE ended_at >= ?
		GROUP BY day
		ORDER BY day ASC`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying daily completions: %w", err)
	}
	defer rows.Close()

	var out []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Completions, &dc.Cancelled, &dc.FocusSec); err != nil {
			return nil, fmt.Errorf("scanning daily completions: %w", err)
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

// Summary computes aggregate totals across all recorded sessions.
func (s *Store) Summary() (*Totals, error) {
	var t Totals
	var focus sql.NullInt64
	var avg sql.NullFloat64

	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			SUM(CASE WHEN outcome = 'completed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN outcome = 'cancelled' THEN 1 ELSE 0 END),
			SUM(CASE WHEN outcome = 'completed' THEN planned_sec ELSE 0 END),
			AVG(planned_sec)
		FROM sessions`).Scan(&t.Sessions, &t.Completions, &t.Cancelled, &focus, &avg)
	if err != nil {
		return nil, fmt.Errorf("querying totals: %w", err)
	}

	if focus.Valid {
		t.FocusSeconds = focus.Int64
	}
	if avg.Valid {
		t.AvgPlanned = avg.Float64
	}
	return &t, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var e Entry
		var label, room sql.NullString
		var ended sql.NullTime
		err := rows.Scan(
			&e.ID, &label, &room,
			&e.PlannedSeconds, &e.RemainingSeconds, &e.Outcome,
			&e.StartedAt, &ended,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		e.Label = label.String
		e.Room = room.String
		if ended.Valid {
			t := ended.Time
			e.EndedAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
