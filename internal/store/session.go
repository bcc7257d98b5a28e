package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Session records one run of the capture pipeline.
type Session struct {
	ID        string
	CameraID  int
	StartedAt time.Time
	EndedAt   *time.Time
	// Error is the reason the session failed, empty if it ended normally.
	Error string
}

// SessionRepository journals capture sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Start records a new open session for cameraID.
func (r *SessionRepository) Start(cameraID int) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		CameraID:  cameraID,
		StartedAt: time.Now(),
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, camera_id, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.CameraID, sess.StartedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "start session")
	}
	return sess, nil
}

// Finish closes the session. A non-nil cause is recorded as the session error.
func (r *SessionRepository) Finish(id string, cause error) error {
	var msg string
	if cause != nil {
		msg = cause.Error()
	}

	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, error = ? WHERE id = ? AND ended_at IS NULL`,
		time.Now(), msg, id,
	)
	if err != nil {
		return errors.Wrapf(err, "finish session %s", id)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "finish session %s", id)
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "open session %s", id)
	}
	return nil
}

// GetByID retrieves a session.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, camera_id, started_at, ended_at, error FROM sessions WHERE id = ?`, id,
	)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "session %s", id)
	}
	return sess, errors.Wrapf(err, "get session %s", id)
}

// Recent returns up to limit sessions, newest first.
func (r *SessionRepository) Recent(limit int) ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, camera_id, started_at, ended_at, error
		 FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list sessions")
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan session")
		}
		sessions = append(sessions, sess)
	}

	return sessions, errors.Wrap(rows.Err(), "list sessions")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(s scanner) (*Session, error) {
	var (
		sess  Session
		ended sql.NullTime
	)
	if err := s.Scan(&sess.ID, &sess.CameraID, &sess.StartedAt, &ended, &sess.Error); err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return &sess, nil
}
