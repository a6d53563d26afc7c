package syncqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ascend/internal/storage"
)

type fakeDeliverer struct {
	mu        sync.Mutex
	delivered []string
	failIDs   map[string]error
}

func (f *fakeDeliverer) Deliver(_ context.Context, op storage.SyncOperation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failIDs[op.ID]; ok {
		return err
	}
	f.delivered = append(f.delivered, op.ID)
	return nil
}

func (f *fakeDeliverer) deliveredIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.delivered...)
}

func TestProcessorDrainCompletesDeliveredOps(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	for _, doc := range []string{"q1", "q2"} {
		_, err := q.Enqueue(ctx, Request{
			Operation: storage.OpUpdate, Collection: "quests", DocumentID: doc,
			UserID: "u1", Priority: PriorityQuest,
		})
		require.NoError(t, err)
	}

	fd := &fakeDeliverer{}
	p := NewProcessor(ProcessorConfig{Queue: q, Deliverer: fd})
	p.DrainOnce(ctx)

	assert.ElementsMatch(t, []string{"quests_q1", "quests_q2"}, fd.deliveredIDs())
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "acknowledged ops leave the queue")
}

func TestProcessorFailureReschedulesAndProceedsPastIt(t *testing.T) {
	q, repo := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, Request{
		Operation: storage.OpValidate, Collection: "validations", DocumentID: "v1",
		UserID: "u1", Priority: PriorityValidation,
	})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, Request{
		Operation: storage.OpUpdate, Collection: "quests", DocumentID: "q1",
		UserID: "u1", Priority: PriorityQuest,
	})
	require.NoError(t, err)

	fd := &fakeDeliverer{failIDs: map[string]error{
		"validations_v1": errors.New("remote 500"),
	}}
	p := NewProcessor(ProcessorConfig{Queue: q, Deliverer: fd})
	p.DrainOnce(ctx)

	// The broken high-priority op must not block the one behind it.
	assert.Equal(t, []string{"quests_q1"}, fd.deliveredIDs())

	op, err := repo.Get(ctx, "validations_v1")
	require.NoError(t, err)
	require.NotNil(t, op)
	assert.Equal(t, 1, op.RetryCount)
	require.NotNil(t, op.NextRetryTime)
}

func TestProcessorEmitsOutcomes(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, Request{
		Operation: storage.OpUpdate, Collection: "quests", DocumentID: "q1",
		UserID: "u1", Priority: PriorityQuest,
	})
	require.NoError(t, err)

	fd := &fakeDeliverer{}
	p := NewProcessor(ProcessorConfig{Queue: q, Deliverer: fd})
	p.DrainOnce(ctx)

	select {
	case o := <-p.Outcomes():
		assert.Equal(t, "quests_q1", o.Op.ID)
		assert.NoError(t, o.Err)
		assert.False(t, o.Terminal)
	default:
		t.Fatal("expected an outcome event")
	}
}

func TestProcessorRunStopsOnCancel(t *testing.T) {
	q, _ := newTestQueue(t)

	fd := &fakeDeliverer{}
	p := NewProcessor(ProcessorConfig{Queue: q, Deliverer: fd, Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)
	cancel()

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("processor did not stop after cancel")
	}
}
