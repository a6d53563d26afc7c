package storage

import (
	"context"
	"database/sql"
	"fmt"
)

type AntiQuestRepo struct {
	db *sql.DB
}

func NewAntiQuestRepo(db *sql.DB) *AntiQuestRepo {
	return &AntiQuestRepo{db: db}
}

func (r *AntiQuestRepo) Get(ctx context.Context, id string) (*AntiQuest, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, penalty_xp, occurrence_count, last_occurred_at
		FROM anti_quests WHERE id = ?
	`, id)

	var (
		a    AntiQuest
		last sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Title, &a.PenaltyXP, &a.OccurrenceCount, &last); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("anti-quest get: %w", err)
	}
	if last.Valid {
		v := last.Time
		a.LastOccurredAt = &v
	}
	return &a, nil
}

func (r *AntiQuestRepo) Put(ctx context.Context, a *AntiQuest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO anti_quests (id, user_id, title, penalty_xp, occurrence_count, last_occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			penalty_xp = excluded.penalty_xp,
			occurrence_count = excluded.occurrence_count,
			last_occurred_at = excluded.last_occurred_at
	`, a.ID, a.UserID, a.Title, a.PenaltyXP, a.OccurrenceCount, a.LastOccurredAt)
	if err != nil {
		return fmt.Errorf("anti-quest put: %w", err)
	}
	return nil
}

func (r *AntiQuestRepo) ListByUser(ctx context.Context, userID string) ([]AntiQuest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, penalty_xp, occurrence_count, last_occurred_at
		FROM anti_quests WHERE user_id = ? ORDER BY title ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("anti-quest list: %w", err)
	}
	defer rows.Close()

	var out []AntiQuest
	for rows.Next() {
		var (
			a    AntiQuest
			last sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Title, &a.PenaltyXP, &a.OccurrenceCount, &last); err != nil {
			return nil, fmt.Errorf("anti-quest scan: %w", err)
		}
		if last.Valid {
			v := last.Time
			a.LastOccurredAt = &v
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("anti-quest rows: %w", err)
	}
	return out, nil
}
