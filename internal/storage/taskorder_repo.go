package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

type TaskOrderRepo struct {
	db *sql.DB
}

func NewTaskOrderRepo(db *sql.DB) *TaskOrderRepo {
	return &TaskOrderRepo{db: db}
}

// TaskOrderID derives the stable id for a (user, day, scope) ordering
// document. An empty questID means the home list.
func TaskOrderID(userID, date, questID string) string {
	if questID == "" {
		questID = HomeScope
	}
	return userID + "_" + date + "_" + questID
}

// Upsert saves the ordering document, deriving the stable id when absent so
// re-saves overwrite instead of duplicating.
func (r *TaskOrderRepo) Upsert(ctx context.Context, o *TaskOrder) error {
	if o.QuestID == "" {
		o.QuestID = HomeScope
	}
	if o.ID == "" {
		o.ID = TaskOrderID(o.UserID, o.Date, o.QuestID)
	}
	orderJSON, err := json.Marshal(o.Order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO task_orders (id, user_id, date, quest_id, task_order)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET task_order = excluded.task_order
	`, o.ID, o.UserID, o.Date, o.QuestID, string(orderJSON))
	if err != nil {
		return fmt.Errorf("task order upsert: %w", err)
	}
	return nil
}

func (r *TaskOrderRepo) Get(ctx context.Context, id string) (*TaskOrder, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, date, quest_id, task_order FROM task_orders WHERE id = ?
	`, id)

	var (
		o        TaskOrder
		orderRaw sql.NullString
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.Date, &o.QuestID, &orderRaw); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("task order get: %w", err)
	}
	if orderRaw.Valid && orderRaw.String != "" {
		if err := json.Unmarshal([]byte(orderRaw.String), &o.Order); err != nil {
			return nil, fmt.Errorf("unmarshal order: %w", err)
		}
	}
	return &o, nil
}

// CountByUserDate reports how many ordering documents exist for the pair.
// Used by tests to assert the at-most-one invariant.
func (r *TaskOrderRepo) CountByUserDate(ctx context.Context, userID, date string) (int, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM task_orders WHERE user_id = ? AND date = ?`, userID, date)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("task order count: %w", err)
	}
	return n, nil
}

// DeleteByQuest removes every ordering document referencing the quest,
// used by the quest-delete cascade.
func (r *TaskOrderRepo) DeleteByQuest(ctx context.Context, tx *sql.Tx, questID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM task_orders WHERE quest_id = ?`, questID)
	if err != nil {
		return fmt.Errorf("task order cascade delete: %w", err)
	}
	return nil
}
