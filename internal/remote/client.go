package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"ascend/internal/storage"
)

// ErrOffline is returned without touching the network when the host reports
// no connectivity. Callers treat it exactly like a network failure.
var ErrOffline = errors.New("remote: offline")

// MetricsPayload is the performance context sent alongside a validation
// request.
type MetricsPayload struct {
	WeeklyVelocity     float64 `json:"weeklyVelocity"`
	MonthlyConsistency float64 `json:"monthlyConsistency"`
	BurnoutRisk        string  `json:"burnoutRisk"`
	StreakDays         int     `json:"streakDays"`
	ActiveQuestCount   int     `json:"activeQuestCount"`
	OverdueQuestCount  int     `json:"overdueQuestCount"`
}

type ValidateQuestRequest struct {
	UserID  string         `json:"userId"`
	Quest   *storage.Quest `json:"quest"`
	Metrics MetricsPayload `json:"metrics"`
}

type ValidateQuestResponse struct {
	Status                 string   `json:"status"`
	SuggestedDifficulty    int      `json:"suggestedDifficulty"`
	SuggestedXPPerPomodoro int      `json:"suggestedXpPerPomodoro"`
	Confidence             float64  `json:"confidence"`
	Reasoning              string   `json:"reasoning"`
	Recommendations        []string `json:"recommendations"`
}

// Client talks to the remote authority. The online flag is fed by the
// hosting environment and treated as authoritative, but network errors are
// caught regardless since the signal can be stale.
type Client struct {
	baseURL string
	http    *http.Client
	online  atomic.Bool
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	c.online.Store(true)
	return c
}

// SetOnline updates the connectivity signal.
func (c *Client) SetOnline(v bool) { c.online.Store(v) }

// Online reports the last-known connectivity signal.
func (c *Client) Online() bool { return c.online.Load() }

// ValidateQuest submits the quest and its metrics context for a GM verdict.
func (c *Client) ValidateQuest(ctx context.Context, req ValidateQuestRequest) (*ValidateQuestResponse, error) {
	if !c.Online() {
		return nil, ErrOffline
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal validate request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/agent/validate-quest", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build validate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("validate quest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("validate quest: status %d", resp.StatusCode)
	}

	var out ValidateQuestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode validate response: %w", err)
	}
	return &out, nil
}

// PutQuest upserts a quest remotely. No response body is expected.
func (c *Client) PutQuest(ctx context.Context, id string, data json.RawMessage) error {
	return c.put(ctx, "/quests/"+id, data)
}

// PutSession upserts a session remotely.
func (c *Client) PutSession(ctx context.Context, id string, data json.RawMessage) error {
	return c.put(ctx, "/sessions/"+id, data)
}

// PutDocument upserts an arbitrary collection document remotely.
func (c *Client) PutDocument(ctx context.Context, collection, id string, data json.RawMessage) error {
	return c.put(ctx, "/"+collection+"/"+id, data)
}

// Delete removes a remote document.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	if !c.Online() {
		return ErrOffline
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/"+collection+"/"+id, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote delete: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("remote delete: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) put(ctx context.Context, path string, data json.RawMessage) error {
	if !c.Online() {
		return ErrOffline
	}
	if data == nil {
		data = json.RawMessage("{}")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build put request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote put: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("remote put: status %d", resp.StatusCode)
	}
	return nil
}
