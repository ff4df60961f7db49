package storage

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the attach journal: every session handle ever persisted and a log
// of what each Begin did.
type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			family TEXT,
			command_executor TEXT,
			session_id TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS activity_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			action_type TEXT,
			metadata TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) RecordSession(family, executor, sessionID string) error {
	_, err := s.db.Exec(
		"INSERT INTO sessions (family, command_executor, session_id) VALUES (?, ?, ?)",
		family, executor, sessionID,
	)
	return err
}

func (s *Store) LogActivity(actionType, metadata string) error {
	_, err := s.db.Exec("INSERT INTO activity_log (action_type, metadata) VALUES (?, ?)", actionType, metadata)
	return err
}

// LastSession returns the most recent handle recorded for family; ok is false
// when there is none.
func (s *Store) LastSession(family string) (Session, bool, error) {
	var sess Session
	err := s.db.QueryRow(`
		SELECT family, command_executor, session_id, created_at FROM sessions
		WHERE family = ?
		ORDER BY id DESC LIMIT 1
	`, family).Scan(&sess.Family, &sess.Executor, &sess.SessionID, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	return sess, true, nil
}

// RecentActivity returns up to limit log entries, newest first.
func (s *Store) RecentActivity(limit int) ([]Activity, error) {
	rows, err := s.db.Query(
		"SELECT action_type, metadata, created_at FROM activity_log ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.Action, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type Session struct {
	Family    string
	Executor  string
	SessionID string
	CreatedAt time.Time
}

type Activity struct {
	Action    string
	Metadata  string
	CreatedAt time.Time
}
