package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, quest_id, start_time, end_time, status, session_type, xp_earned, quality
		FROM sessions WHERE session_id = ?
	`, id)
	return scanSession(row)
}

func (r *SessionRepo) Put(ctx context.Context, s *Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, user_id, quest_id, start_time, end_time, status, session_type, xp_earned, quality)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			end_time = excluded.end_time,
			status = excluded.status,
			xp_earned = excluded.xp_earned,
			quality = excluded.quality
	`, s.ID, s.UserID, s.QuestID, s.StartTime, s.EndTime, s.Status, s.SessionType, s.XPEarned, s.Quality)
	if err != nil {
		return fmt.Errorf("session put: %w", err)
	}
	return nil
}

// ListSince returns sessions started at or after the cutoff, oldest first.
// Served by the (user_id, start_time) index.
func (r *SessionRepo) ListSince(ctx context.Context, userID string, since time.Time) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, user_id, quest_id, start_time, end_time, status, session_type, xp_earned, quality
		FROM sessions
		WHERE user_id = ? AND start_time >= ?
		ORDER BY start_time ASC
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("session list: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session list rows: %w", err)
	}
	return out, nil
}

func scanSession(row scanner) (*Session, error) {
	var (
		s       Session
		endTime sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.QuestID, &s.StartTime, &endTime, &s.Status, &s.SessionType, &s.XPEarned, &s.Quality); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("session scan: %w", err)
	}
	if endTime.Valid {
		v := endTime.Time
		s.EndTime = &v
	}
	return &s, nil
}
