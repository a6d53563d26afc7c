package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ascend/internal/gm"
	"ascend/internal/quest"
	"ascend/internal/remote"
	"ascend/internal/storage"
	"ascend/internal/syncqueue"
)

type recordingServer struct {
	mu   sync.Mutex
	hits []string
	srv  *httptest.Server
}

func newRecordingServer(t *testing.T) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		rs.hits = append(rs.hits, r.Method+" "+r.URL.Path)
		rs.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(rs.srv.Close)
	return rs
}

func (rs *recordingServer) requests() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]string(nil), rs.hits...)
}

func TestDeliverRoutesByCollection(t *testing.T) {
	rs := newRecordingServer(t)
	d := New(remote.NewClient(rs.srv.URL, time.Second), nil, nil)
	ctx := context.Background()

	ops := []storage.SyncOperation{
		{Operation: storage.OpUpdate, Collection: "quests", DocumentID: "q1", Data: []byte(`{}`)},
		{Operation: storage.OpCreate, Collection: "sessions", DocumentID: "s1", Data: []byte(`{}`)},
		{Operation: storage.OpUpdate, Collection: "taskOrders", DocumentID: "o1", Data: []byte(`{}`)},
		{Operation: storage.OpDelete, Collection: "quests", DocumentID: "q2"},
	}
	for _, op := range ops {
		require.NoError(t, d.Deliver(ctx, op))
	}

	assert.Equal(t, []string{
		"PUT /quests/q1",
		"PUT /sessions/s1",
		"PUT /taskOrders/o1",
		"DELETE /quests/q2",
	}, rs.requests())
}

func TestDeliverAcksValidationForDeletedQuest(t *testing.T) {
	rs := newRecordingServer(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	client := remote.NewClient(rs.srv.URL, time.Second)
	svc := quest.NewService(db, syncqueue.New(storage.NewSyncRepo(db)))
	pipeline := gm.NewPipeline(svc, gm.NewMetrics(db), client, storage.NewSnapshotRepo(db), nil)
	d := New(client, pipeline, nil)

	// The quest behind a queued validation no longer exists. The op can
	// never succeed, so delivery must acknowledge instead of burning
	// retries.
	err = d.Deliver(ctx, storage.SyncOperation{
		Operation:  storage.OpValidate,
		Collection: "gmValidations",
		DocumentID: "gone",
		UserID:     "u1",
	})
	assert.NoError(t, err)
}

func TestDeliverUnknownOperation(t *testing.T) {
	rs := newRecordingServer(t)
	d := New(remote.NewClient(rs.srv.URL, time.Second), nil, nil)

	err := d.Deliver(context.Background(), storage.SyncOperation{Operation: "merge", Collection: "quests", DocumentID: "q1"})
	require.Error(t, err)
	assert.Empty(t, rs.requests())
}
