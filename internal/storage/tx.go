package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// WithTx runs fn atomically. The quest delete cascade (ordering docs plus
// the quest row) is the main caller; single-statement writes go straight
// through their repo instead.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
