package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ascend/internal/storage"
)

// Priority convention: lower number = more urgent, drained first.
const (
	PriorityValidation = 2
	PriorityQuest      = 6
	PriorityComment    = 7
	PriorityOrder      = 8
	PriorityProfile    = 8
	PriorityDelete     = 9
	PrioritySession    = 9
)

const (
	// MaxRetries is the retry ceiling. Operations past it are terminal:
	// kept for error reporting, never retried, never blocking the drain.
	MaxRetries = 5

	backoffBase = 30 * time.Second
	backoffCap  = time.Hour
)

// OperationID derives the deterministic queue id for a logical mutation.
// Two enqueues for the same (collection, documentId) share an id and
// coalesce into one outbound operation.
func OperationID(collection, documentID string) string {
	return collection + "_" + documentID
}

// Queue is the durable, priority-ordered outbox over the local store.
type Queue struct {
	repo *storage.SyncRepo
	now  func() time.Time
}

func New(repo *storage.SyncRepo) *Queue {
	return &Queue{repo: repo, now: time.Now}
}

// Request describes a mutation to enqueue. Data is marshalled as the
// operation payload when non-nil.
type Request struct {
	Operation  string
	Collection string
	DocumentID string
	Data       any
	UserID     string
	Priority   int
}

// Enqueue stores the operation with a fresh timestamp and reset retry state,
// overwriting any pending entry with the same id. A rapid edit burst on one
// document therefore collapses into a single outbound operation.
func (q *Queue) Enqueue(ctx context.Context, req Request) (*storage.SyncOperation, error) {
	var payload json.RawMessage
	if req.Data != nil {
		b, err := json.Marshal(req.Data)
		if err != nil {
			return nil, fmt.Errorf("marshal op data: %w", err)
		}
		payload = b
	}

	op := &storage.SyncOperation{
		ID:         OperationID(req.Collection, req.DocumentID),
		Operation:  req.Operation,
		Collection: req.Collection,
		DocumentID: req.DocumentID,
		Data:       payload,
		UserID:     req.UserID,
		Timestamp:  q.now().UTC(),
		Priority:   req.Priority,
		RetryCount: 0,
	}
	if err := q.repo.Put(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

// DequeueBatch returns up to limit due operations sorted ascending by
// (priority, timestamp). Ties break oldest-first.
func (q *Queue) DequeueBatch(ctx context.Context, limit int) ([]storage.SyncOperation, error) {
	return q.repo.ListDue(ctx, limit, MaxRetries, q.now().UTC())
}

// Complete acknowledges the dequeued attempt. The ack is guarded by the
// attempt's timestamp: if a foreground enqueue superseded the operation
// while it was in flight, the newer entry survives untouched.
func (q *Queue) Complete(ctx context.Context, op storage.SyncOperation) error {
	_, err := q.repo.DeleteAttempt(ctx, op.ID, op.Timestamp)
	return err
}

// Fail records a delivery failure for the dequeued attempt: retry count up,
// error captured, next attempt pushed out by exponential backoff. Like
// Complete, it is a no-op when a newer enqueue superseded the attempt. It
// reports whether the operation became terminal.
func (q *Queue) Fail(ctx context.Context, op storage.SyncOperation, cause error) (terminal bool, err error) {
	op.RetryCount++
	next := q.now().UTC().Add(backoffFor(op.RetryCount))
	op.NextRetryTime = &next
	msg := cause.Error()
	op.Error = &msg

	matched, err := q.repo.RecordFailure(ctx, &op)
	if err != nil {
		return false, err
	}
	if !matched {
		return false, nil
	}
	return op.RetryCount > MaxRetries, nil
}

// TerminalFailures lists operations past the retry ceiling so a status
// surface can report them.
func (q *Queue) TerminalFailures(ctx context.Context) ([]storage.SyncOperation, error) {
	return q.repo.ListTerminal(ctx, MaxRetries)
}

// Len reports pending operations, terminal ones included.
func (q *Queue) Len(ctx context.Context) (int, error) {
	return q.repo.Count(ctx)
}

func backoffFor(retryCount int) time.Duration {
	d := backoffBase
	for i := 1; i < retryCount; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	return d
}
