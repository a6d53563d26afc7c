package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type QuestRepo struct {
	db *sql.DB
}

func NewQuestRepo(db *sql.DB) *QuestRepo {
	return &QuestRepo{db: db}
}

const questCols = `quest_id, owner_id, type, title, description, is_public, is_completed,
	difficulty, subtasks, schedule, gamification, validation_status, registered_at, updated_at`

func (r *QuestRepo) Get(ctx context.Context, id string) (*Quest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+questCols+` FROM quests WHERE quest_id = ?`, id)
	return scanQuest(row)
}

// Put upserts the quest keyed by id.
func (r *QuestRepo) Put(ctx context.Context, q *Quest) error {
	diffJSON, err := json.Marshal(q.Difficulty)
	if err != nil {
		return fmt.Errorf("marshal difficulty: %w", err)
	}
	subJSON, err := json.Marshal(q.Subtasks)
	if err != nil {
		return fmt.Errorf("marshal subtasks: %w", err)
	}
	schedJSON, err := json.Marshal(q.Schedule)
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}
	gamiJSON, err := json.Marshal(q.Gamification)
	if err != nil {
		return fmt.Errorf("marshal gamification: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO quests (`+questCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(quest_id) DO UPDATE SET
			owner_id = excluded.owner_id,
			type = excluded.type,
			title = excluded.title,
			description = excluded.description,
			is_public = excluded.is_public,
			is_completed = excluded.is_completed,
			difficulty = excluded.difficulty,
			subtasks = excluded.subtasks,
			schedule = excluded.schedule,
			gamification = excluded.gamification,
			validation_status = excluded.validation_status,
			registered_at = excluded.registered_at,
			updated_at = excluded.updated_at
	`, q.ID, q.OwnerID, q.Type, q.Title, q.Description, boolToInt(q.IsPublic), boolToInt(q.IsCompleted),
		string(diffJSON), string(subJSON), string(schedJSON), string(gamiJSON),
		q.ValidationStatus, q.RegisteredAt, q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("quest put: %w", err)
	}
	return nil
}

// ListByOwner uses the (owner_id, is_completed) index; pass completed to
// restrict to one side of the flag.
func (r *QuestRepo) ListByOwner(ctx context.Context, ownerID string, completed bool) ([]Quest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+questCols+`
		FROM quests
		WHERE owner_id = ? AND is_completed = ?
		ORDER BY registered_at ASC
	`, ownerID, boolToInt(completed))
	if err != nil {
		return nil, fmt.Errorf("quest list: %w", err)
	}
	defer rows.Close()

	var out []Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("quest list rows: %w", err)
	}
	return out, nil
}

// CountOpen returns the number of incomplete quests for the owner.
func (r *QuestRepo) CountOpen(ctx context.Context, ownerID string) (int, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM quests WHERE owner_id = ? AND is_completed = 0`, ownerID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("quest count open: %w", err)
	}
	return n, nil
}

// CountOverdue returns incomplete quests whose due date has passed.
func (r *QuestRepo) CountOverdue(ctx context.Context, ownerID string, now time.Time) (int, error) {
	quests, err := r.ListByOwner(ctx, ownerID, false)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range quests {
		due := quests[i].Schedule.DueDate
		if due != nil && due.Before(now) {
			n++
		}
	}
	return n, nil
}

func (r *QuestRepo) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM quests WHERE quest_id = ?`, id)
	if err != nil {
		return fmt.Errorf("quest delete: %w", err)
	}
	return nil
}

func scanQuest(row scanner) (*Quest, error) {
	var (
		q           Quest
		description sql.NullString
		isPublic    int
		isCompleted int
		diffRaw     string
		subRaw      sql.NullString
		schedRaw    sql.NullString
		gamiRaw     sql.NullString
	)

	if err := row.Scan(
		&q.ID, &q.OwnerID, &q.Type, &q.Title, &description, &isPublic, &isCompleted,
		&diffRaw, &subRaw, &schedRaw, &gamiRaw, &q.ValidationStatus, &q.RegisteredAt, &q.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("quest scan: %w", err)
	}

	q.Description = description.String
	q.IsPublic = isPublic != 0
	q.IsCompleted = isCompleted != 0

	if err := json.Unmarshal([]byte(diffRaw), &q.Difficulty); err != nil {
		return nil, fmt.Errorf("unmarshal difficulty: %w", err)
	}
	if subRaw.Valid && subRaw.String != "" {
		if err := json.Unmarshal([]byte(subRaw.String), &q.Subtasks); err != nil {
			return nil, fmt.Errorf("unmarshal subtasks: %w", err)
		}
	}
	if schedRaw.Valid && schedRaw.String != "" {
		if err := json.Unmarshal([]byte(schedRaw.String), &q.Schedule); err != nil {
			return nil, fmt.Errorf("unmarshal schedule: %w", err)
		}
	}
	if gamiRaw.Valid && gamiRaw.String != "" {
		if err := json.Unmarshal([]byte(gamiRaw.String), &q.Gamification); err != nil {
			return nil, fmt.Errorf("unmarshal gamification: %w", err)
		}
	}
	return &q, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

type scanner interface {
	Scan(dest ...any) error
}
