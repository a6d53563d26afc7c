package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ascend/internal/storage"
)

func TestValidateQuestRoundTrip(t *testing.T) {
	var gotPath string
	var gotReq ValidateQuestRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(ValidateQuestResponse{
			Status:                 "ok",
			SuggestedDifficulty:    4,
			SuggestedXPPerPomodoro: 20,
			Confidence:             0.87,
			Reasoning:              "estimate is consistent with history",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	resp, err := c.ValidateQuest(context.Background(), ValidateQuestRequest{
		UserID: "u1",
		Quest:  &storage.Quest{ID: "q1", OwnerID: "u1", Title: "Deep work"},
		Metrics: MetricsPayload{
			WeeklyVelocity: 12.5,
			BurnoutRisk:    "Low",
			StreakDays:     4,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "/agent/validate-quest", gotPath)
	assert.Equal(t, "u1", gotReq.UserID)
	assert.Equal(t, "q1", gotReq.Quest.ID)
	assert.Equal(t, 4, resp.SuggestedDifficulty)
	assert.InDelta(t, 0.87, resp.Confidence, 1e-9)
}

func TestNon2xxIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.ValidateQuest(context.Background(), ValidateQuestRequest{UserID: "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	err = c.PutQuest(context.Background(), "q1", json.RawMessage(`{}`))
	require.Error(t, err)
}

func TestOfflineShortCircuits(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	c.SetOnline(false)

	_, err := c.ValidateQuest(context.Background(), ValidateQuestRequest{UserID: "u1"})
	assert.ErrorIs(t, err, ErrOffline)
	assert.ErrorIs(t, c.PutSession(context.Background(), "s1", nil), ErrOffline)
	assert.Equal(t, 0, hits, "offline must not touch the network")
}

func TestPutSessionTargetsDocumentPath(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	require.NoError(t, c.PutSession(context.Background(), "s42", json.RawMessage(`{"id":"s42"}`)))
	assert.Equal(t, "/sessions/s42", gotPath)
	assert.Equal(t, http.MethodPut, gotMethod)
}
