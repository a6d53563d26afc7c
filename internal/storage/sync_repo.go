package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SyncRepo is the durable side of the sync queue. Ordering and retry policy
// live in the syncqueue package; this repo owns the rows.
type SyncRepo struct {
	db *sql.DB
}

func NewSyncRepo(db *sql.DB) *SyncRepo {
	return &SyncRepo{db: db}
}

// Put upserts the operation keyed by its deterministic id. Re-enqueueing the
// same logical mutation overwrites the previous entry entirely.
func (r *SyncRepo) Put(ctx context.Context, op *SyncOperation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_queue (id, operation, collection, document_id, data, user_id, timestamp, priority, retry_count, next_retry_time, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			operation = excluded.operation,
			collection = excluded.collection,
			document_id = excluded.document_id,
			data = excluded.data,
			user_id = excluded.user_id,
			timestamp = excluded.timestamp,
			priority = excluded.priority,
			retry_count = excluded.retry_count,
			next_retry_time = excluded.next_retry_time,
			error = excluded.error
	`, op.ID, op.Operation, op.Collection, op.DocumentID, nullableBytes(op.Data), op.UserID,
		op.Timestamp, op.Priority, op.RetryCount, op.NextRetryTime, op.Error)
	if err != nil {
		return fmt.Errorf("sync op put: %w", err)
	}
	return nil
}

func (r *SyncRepo) Get(ctx context.Context, id string) (*SyncOperation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, operation, collection, document_id, data, user_id, timestamp, priority, retry_count, next_retry_time, error
		FROM sync_queue WHERE id = ?
	`, id)
	return scanSyncOp(row)
}

// ListDue returns up to limit operations whose next_retry_time is null or in
// the past and whose retry count is within the ceiling, ordered ascending by
// (priority, timestamp). Served by the (priority, timestamp) index.
func (r *SyncRepo) ListDue(ctx context.Context, limit int, maxRetries int, now time.Time) ([]SyncOperation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, operation, collection, document_id, data, user_id, timestamp, priority, retry_count, next_retry_time, error
		FROM sync_queue
		WHERE (next_retry_time IS NULL OR next_retry_time <= ?) AND retry_count <= ?
		ORDER BY priority ASC, timestamp ASC
		LIMIT ?
	`, now, maxRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("sync op list due: %w", err)
	}
	defer rows.Close()

	var out []SyncOperation
	for rows.Next() {
		op, err := scanSyncOp(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sync op rows: %w", err)
	}
	return out, nil
}

// ListTerminal returns operations that exhausted their retries. They stay in
// the table for error reporting and never block the drain.
func (r *SyncRepo) ListTerminal(ctx context.Context, maxRetries int) ([]SyncOperation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, operation, collection, document_id, data, user_id, timestamp, priority, retry_count, next_retry_time, error
		FROM sync_queue
		WHERE retry_count > ?
		ORDER BY priority ASC, timestamp ASC
	`, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("sync op list terminal: %w", err)
	}
	defer rows.Close()

	var out []SyncOperation
	for rows.Next() {
		op, err := scanSyncOp(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sync op rows: %w", err)
	}
	return out, nil
}

// DeleteAttempt removes the row only if it still carries the timestamp the
// caller dequeued. A row re-enqueued since then has a newer timestamp and is
// left alone. Reports whether a row was removed.
func (r *SyncRepo) DeleteAttempt(ctx context.Context, id string, timestamp time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sync_queue WHERE id = ? AND timestamp = ?`, id, timestamp)
	if err != nil {
		return false, fmt.Errorf("sync op delete attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sync op delete attempt: %w", err)
	}
	return n > 0, nil
}

// RecordFailure writes the retry state from op, guarded by the dequeued
// timestamp so a superseding enqueue is never clobbered with stale retry
// bookkeeping. Reports whether the row still matched.
func (r *SyncRepo) RecordFailure(ctx context.Context, op *SyncOperation) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET retry_count = ?, next_retry_time = ?, error = ?
		WHERE id = ? AND timestamp = ?
	`, op.RetryCount, op.NextRetryTime, op.Error, op.ID, op.Timestamp)
	if err != nil {
		return false, fmt.Errorf("sync op record failure: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sync op record failure: %w", err)
	}
	return n > 0, nil
}

func (r *SyncRepo) Count(ctx context.Context) (int, error) {
	row := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sync_queue`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("sync op count: %w", err)
	}
	return n, nil
}

func scanSyncOp(row scanner) (*SyncOperation, error) {
	var (
		op        SyncOperation
		data      sql.NullString
		nextRetry sql.NullTime
		errMsg    sql.NullString
	)
	if err := row.Scan(&op.ID, &op.Operation, &op.Collection, &op.DocumentID, &data, &op.UserID,
		&op.Timestamp, &op.Priority, &op.RetryCount, &nextRetry, &errMsg); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sync op scan: %w", err)
	}
	if data.Valid && data.String != "" {
		op.Data = []byte(data.String)
	}
	if nextRetry.Valid {
		v := nextRetry.Time
		op.NextRetryTime = &v
	}
	if errMsg.Valid {
		v := errMsg.String
		op.Error = &v
	}
	return &op, nil
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
