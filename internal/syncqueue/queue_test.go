package syncqueue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ascend/internal/storage"
)

func newTestQueue(t *testing.T) (*Queue, *storage.SyncRepo) {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.Open(ctx, path)
	require.NoError(t, err, "open db")
	t.Cleanup(func() { _ = db.Close() })

	repo := storage.NewSyncRepo(db)
	return New(repo), repo
}

func TestDequeueOrdersByPriorityThenTimestamp(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	// Fixed clock so timestamps are strictly increasing.
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	q.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	enq := func(collection, doc string, priority int) {
		_, err := q.Enqueue(ctx, Request{
			Operation:  storage.OpUpdate,
			Collection: collection,
			DocumentID: doc,
			UserID:     "u1",
			Priority:   priority,
		})
		require.NoError(t, err)
	}

	enq("sessions", "s1", 9)
	enq("validations", "v1", 2)
	enq("quests", "q1", 7)
	enq("validations", "v2", 2)

	ops, err := q.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ops, 4)

	assert.Equal(t, "validations_v1", ops[0].ID, "oldest priority-2 first")
	assert.Equal(t, "validations_v2", ops[1].ID)
	assert.Equal(t, "quests_q1", ops[2].ID)
	assert.Equal(t, "sessions_s1", ops[3].ID, "priority 9 last")
}

func TestEnqueueIsIdempotentPerDocument(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, Request{
		Operation:  storage.OpUpdate,
		Collection: "quests",
		DocumentID: "q1",
		Data:       map[string]string{"title": "first"},
		UserID:     "u1",
		Priority:   PriorityQuest,
	})
	require.NoError(t, err)

	_, err = q.Enqueue(ctx, Request{
		Operation:  storage.OpUpdate,
		Collection: "quests",
		DocumentID: "q1",
		Data:       map[string]string{"title": "second"},
		UserID:     "u1",
		Priority:   PriorityQuest,
	})
	require.NoError(t, err)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "same (collection, documentId) must coalesce")

	ops, err := q.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Contains(t, string(ops[0].Data), "second", "latest payload wins")
}

func TestEnqueueResetsRetryState(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	op, err := q.Enqueue(ctx, Request{
		Operation: storage.OpUpdate, Collection: "quests", DocumentID: "q1",
		UserID: "u1", Priority: PriorityQuest,
	})
	require.NoError(t, err)

	_, err = q.Fail(ctx, *op, errors.New("network down"))
	require.NoError(t, err)

	// Re-enqueue supersedes the failed attempt entirely.
	_, err = q.Enqueue(ctx, Request{
		Operation: storage.OpUpdate, Collection: "quests", DocumentID: "q1",
		UserID: "u1", Priority: PriorityQuest,
	})
	require.NoError(t, err)

	ops, err := q.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, 0, ops[0].RetryCount)
	assert.Nil(t, ops[0].NextRetryTime)
	assert.Nil(t, ops[0].Error)
}

func TestFailSchedulesBackoffAndHidesOp(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	op, err := q.Enqueue(ctx, Request{
		Operation: storage.OpUpdate, Collection: "quests", DocumentID: "q1",
		UserID: "u1", Priority: PriorityQuest,
	})
	require.NoError(t, err)

	terminal, err := q.Fail(ctx, *op, errors.New("remote 503"))
	require.NoError(t, err)
	assert.False(t, terminal)

	// Not due until the backoff elapses.
	ops, err := q.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, ops, "failed op must wait out its backoff")

	// Advance the clock past the backoff and it is due again.
	q.now = func() time.Time { return time.Now().Add(2 * backoffBase) }
	ops, err = q.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, 1, ops[0].RetryCount)
	require.NotNil(t, ops[0].Error)
	assert.Equal(t, "remote 503", *ops[0].Error)
}

func TestRetryCeilingMakesOpTerminal(t *testing.T) {
	q, repo := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, Request{
		Operation: storage.OpUpdate, Collection: "quests", DocumentID: "q1",
		UserID: "u1", Priority: PriorityQuest,
	})
	require.NoError(t, err)

	var terminal bool
	for i := 0; i <= MaxRetries; i++ {
		cur, err := repo.Get(ctx, "quests_q1")
		require.NoError(t, err)
		require.NotNil(t, cur)
		terminal, err = q.Fail(ctx, *cur, errors.New("permanently broken"))
		require.NoError(t, err)
	}
	assert.True(t, terminal, "ceiling+1 failures must be terminal")

	// Terminal ops never come back from DequeueBatch, far-future clock or not.
	q.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	ops, err := q.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, ops)

	// But they stay visible for error reporting.
	dead, err := q.TerminalFailures(ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, MaxRetries+1, dead[0].RetryCount)
}

func TestCompleteSkipsSupersededOperation(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	q.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	_, err := q.Enqueue(ctx, Request{
		Operation: storage.OpUpdate, Collection: "quests", DocumentID: "q1",
		Data: map[string]string{"title": "v1"}, UserID: "u1", Priority: PriorityQuest,
	})
	require.NoError(t, err)

	// Drain picks up v1, then a foreground edit enqueues v2 while v1 is in
	// flight.
	inflight, err := q.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, inflight, 1)

	_, err = q.Enqueue(ctx, Request{
		Operation: storage.OpUpdate, Collection: "quests", DocumentID: "q1",
		Data: map[string]string{"title": "v2"}, UserID: "u1", Priority: PriorityQuest,
	})
	require.NoError(t, err)

	// Acknowledging the stale v1 attempt must leave v2 in the queue.
	require.NoError(t, q.Complete(ctx, inflight[0]))

	ops, err := q.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ops, 1, "the superseding enqueue must survive the stale ack")
	assert.Contains(t, string(ops[0].Data), "v2")
}

func TestFailSkipsSupersededOperation(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	q.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	_, err := q.Enqueue(ctx, Request{
		Operation: storage.OpUpdate, Collection: "quests", DocumentID: "q1",
		Data: map[string]string{"title": "v1"}, UserID: "u1", Priority: PriorityQuest,
	})
	require.NoError(t, err)

	inflight, err := q.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, inflight, 1)

	_, err = q.Enqueue(ctx, Request{
		Operation: storage.OpUpdate, Collection: "quests", DocumentID: "q1",
		Data: map[string]string{"title": "v2"}, UserID: "u1", Priority: PriorityQuest,
	})
	require.NoError(t, err)

	// Recording the stale v1 failure must not push retry state onto v2.
	terminal, err := q.Fail(ctx, inflight[0], errors.New("remote 503"))
	require.NoError(t, err)
	assert.False(t, terminal)

	ops, err := q.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Contains(t, string(ops[0].Data), "v2")
	assert.Equal(t, 0, ops[0].RetryCount, "superseding enqueue keeps fresh retry state")
	assert.Nil(t, ops[0].NextRetryTime)
	assert.Nil(t, ops[0].Error)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	assert.Equal(t, backoffBase, backoffFor(1))
	assert.Equal(t, 2*backoffBase, backoffFor(2))
	assert.Equal(t, 4*backoffBase, backoffFor(3))
	assert.Equal(t, backoffCap, backoffFor(20))
}
