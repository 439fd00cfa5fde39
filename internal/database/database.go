package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sql.DB
}

// PollRun is one fetch of the AP list from AirWave.
type PollRun struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	StatusCode int       `json:"status_code"`
	APCount    int       `json:"ap_count"`
	Error      string    `json:"error,omitempty"`
}

// Succeeded reports whether the run produced a usable AP list.
func (p *PollRun) Succeeded() bool {
	return p.StatusCode == 200 && p.Error == ""
}

// APSnapshot is the state of one AP as seen by a poll run.
type APSnapshot struct {
	ID         int64           `json:"id"`
	PollID     string          `json:"poll_id"`
	APID       int             `json:"ap_id"`
	Name       string          `json:"name"`
	LANMAC     string          `json:"lan_mac"`
	RadioTypes []string        `json:"radio_types"`
	Fields     json.RawMessage `json:"fields"`
	CapturedAt time.Time       `json:"captured_at"`
}

// Event records an AP state transition noticed between two polls.
type Event struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	APID      int       `json:"ap_id"`
	APName    string    `json:"ap_name"`
	Event     string    `json:"event"` // "appeared", "up", "down", "missing"
	Message   string    `json:"message"`
}

// APState is the last known state of an AP.
type APState struct {
	APID     int       `json:"ap_id"`
	Name     string    `json:"name"`
	IsUp     bool      `json:"is_up"`
	Present  bool      `json:"present"`
	LastSeen time.Time `json:"last_seen"`
}

func Initialize(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables
	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS poll_runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		ap_count INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_poll_runs_started_at ON poll_runs(started_at);

	CREATE TABLE IF NOT EXISTS ap_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		poll_id TEXT NOT NULL,
		ap_id INTEGER NOT NULL,
		name TEXT,
		lan_mac TEXT,
		radio_types TEXT,
		fields_json TEXT NOT NULL,
		captured_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ap_snapshots_poll_id ON ap_snapshots(poll_id);
	CREATE INDEX IF NOT EXISTS idx_ap_snapshots_ap_id ON ap_snapshots(ap_id, captured_at);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		ap_id INTEGER NOT NULL,
		ap_name TEXT,
		event TEXT NOT NULL,
		message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_events_ap_id ON events(ap_id);

	CREATE TABLE IF NOT EXISTS ap_states (
		ap_id INTEGER PRIMARY KEY,
		name TEXT,
		is_up BOOLEAN DEFAULT FALSE,
		present BOOLEAN DEFAULT TRUE,
		last_seen DATETIME
	);
	`

	_, err := db.Exec(schema)
	return err
}

// RecordPoll stores run and its snapshots in one transaction. An empty run ID
// is replaced by a new UUID; snapshot poll IDs are set to the run's.
func (db *DB) RecordPoll(run *PollRun, snapshots []APSnapshot) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.APCount = len(snapshots)

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO poll_runs (id, started_at, finished_at, status_code, ap_count, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.StatusCode, run.APCount, run.Error)
	if err != nil {
		return fmt.Errorf("insert poll run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO ap_snapshots (poll_id, ap_id, name, lan_mac, radio_types, fields_json, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range snapshots {
		s := &snapshots[i]
		s.PollID = run.ID
		if s.CapturedAt.IsZero() {
			s.CapturedAt = run.FinishedAt
		}
		fields := s.Fields
		if len(fields) == 0 {
			fields = json.RawMessage("{}")
		}
		res, err := stmt.Exec(s.PollID, s.APID, s.Name, s.LANMAC, strings.Join(s.RadioTypes, ","), string(fields), s.CapturedAt.UTC())
		if err != nil {
			return fmt.Errorf("insert snapshot of AP %d: %w", s.APID, err)
		}
		if s.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (db *DB) GetPolls(limit int, offset int) ([]PollRun, error) {
	query := `
		SELECT id, started_at, finished_at, status_code, ap_count, error
		FROM poll_runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var polls []PollRun
	for rows.Next() {
		var p PollRun
		if err := rows.Scan(&p.ID, &p.StartedAt, &p.FinishedAt, &p.StatusCode, &p.APCount, &p.Error); err != nil {
			return nil, err
		}
		polls = append(polls, p)
	}

	return polls, rows.Err()
}

// GetLatestSnapshot returns the most recent successful poll and its APs in
// the order AirWave listed them. It returns a nil run when none exists.
func (db *DB) GetLatestSnapshot() (*PollRun, []APSnapshot, error) {
	var p PollRun
	err := db.QueryRow(`
		SELECT id, started_at, finished_at, status_code, ap_count, error
		FROM poll_runs
		WHERE status_code = 200 AND error = ''
		ORDER BY started_at DESC
		LIMIT 1
	`).Scan(&p.ID, &p.StartedAt, &p.FinishedAt, &p.StatusCode, &p.APCount, &p.Error)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	snapshots, err := db.querySnapshots(`
		SELECT id, poll_id, ap_id, COALESCE(name, ''), COALESCE(lan_mac, ''), COALESCE(radio_types, ''), fields_json, captured_at
		FROM ap_snapshots
		WHERE poll_id = ?
		ORDER BY id
	`, p.ID)
	if err != nil {
		return nil, nil, err
	}
	return &p, snapshots, nil
}

// GetAPHistory returns the newest snapshots of one AP first.
func (db *DB) GetAPHistory(apID int, limit int) ([]APSnapshot, error) {
	return db.querySnapshots(`
		SELECT id, poll_id, ap_id, COALESCE(name, ''), COALESCE(lan_mac, ''), COALESCE(radio_types, ''), fields_json, captured_at
		FROM ap_snapshots
		WHERE ap_id = ?
		ORDER BY captured_at DESC, id DESC
		LIMIT ?
	`, apID, limit)
}

func (db *DB) querySnapshots(query string, args ...interface{}) ([]APSnapshot, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []APSnapshot
	for rows.Next() {
		var s APSnapshot
		var radioTypes, fields string
		if err := rows.Scan(&s.ID, &s.PollID, &s.APID, &s.Name, &s.LANMAC, &radioTypes, &fields, &s.CapturedAt); err != nil {
			return nil, err
		}
		if radioTypes != "" {
			s.RadioTypes = strings.Split(radioTypes, ",")
		}
		s.Fields = json.RawMessage(fields)
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

// DeleteOldPolls deletes poll runs that started before cutoff together with
// their snapshots. It returns the number of deleted runs.
func (db *DB) DeleteOldPolls(cutoff time.Time) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	cutoff = cutoff.UTC()
	if _, err := tx.Exec(`DELETE FROM ap_snapshots WHERE poll_id IN (SELECT id FROM poll_runs WHERE started_at < ?)`, cutoff); err != nil {
		return 0, err
	}
	result, err := tx.Exec(`DELETE FROM poll_runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return deleted, tx.Commit()
}

func (db *DB) LogEvent(entry *Event) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	query := `
		INSERT INTO events (timestamp, ap_id, ap_name, event, message)
		VALUES (?, ?, ?, ?, ?)
	`
	res, err := db.Exec(query, entry.Timestamp.UTC(), entry.APID, entry.APName, entry.Event, entry.Message)
	if err != nil {
		return err
	}
	entry.ID, err = res.LastInsertId()
	return err
}

func (db *DB) GetEvents(limit int, offset int) ([]Event, error) {
	return db.queryEvents(`
		SELECT id, timestamp, ap_id, COALESCE(ap_name, ''), event, COALESCE(message, '')
		FROM events
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
}

func (db *DB) GetEventsByAP(apID int, limit int) ([]Event, error) {
	return db.queryEvents(`
		SELECT id, timestamp, ap_id, COALESCE(ap_name, ''), event, COALESCE(message, '')
		FROM events
		WHERE ap_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, apID, limit)
}

func (db *DB) queryEvents(query string, args ...interface{}) ([]Event, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.APID, &e.APName, &e.Event, &e.Message); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// DeleteOldEvents deletes events older than cutoff
func (db *DB) DeleteOldEvents(cutoff time.Time) (int64, error) {
	result, err := db.Exec(`DELETE FROM events WHERE timestamp < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (db *DB) UpdateAPState(state APState) error {
	query := `
		INSERT INTO ap_states (ap_id, name, is_up, present, last_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(ap_id) DO UPDATE SET
			name = excluded.name,
			is_up = excluded.is_up,
			present = excluded.present,
			last_seen = excluded.last_seen
	`
	_, err := db.Exec(query, state.APID, state.Name, state.IsUp, state.Present, state.LastSeen.UTC())
	return err
}

// GetAPStates returns the last known state of every AP ever seen.
func (db *DB) GetAPStates() (map[int]APState, error) {
	rows, err := db.Query(`SELECT ap_id, COALESCE(name, ''), is_up, present, last_seen FROM ap_states`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make(map[int]APState)
	for rows.Next() {
		var s APState
		if err := rows.Scan(&s.APID, &s.Name, &s.IsUp, &s.Present, &s.LastSeen); err != nil {
			return nil, err
		}
		states[s.APID] = s
	}

	return states, rows.Err()
}
