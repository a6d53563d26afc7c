package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	// Open already migrated; a second and third run must be harmless.
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("third migrate: %v", err)
	}

	row := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM schema_version`)
	var n int
	if err := row.Scan(&n); err != nil {
		t.Fatalf("count versions: %v", err)
	}
	if n != 1 {
		t.Fatalf("schema_version rows=%d, want 1", n)
	}
}

func TestTaskOrderUpsertIsStable(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewTaskOrderRepo(db)

	first := &TaskOrder{UserID: "u1", Date: "2026-09-01", Order: []string{"a", "b"}}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second := &TaskOrder{UserID: "u1", Date: "2026-09-01", Order: []string{"b", "a"}}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("derived ids differ: %q vs %q", first.ID, second.ID)
	}
	n, err := repo.CountByUserDate(ctx, "u1", "2026-09-01")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("ordering docs=%d, want 1", n)
	}

	got, err := repo.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || len(got.Order) != 2 || got.Order[0] != "b" {
		t.Fatalf("latest payload not kept: %+v", got)
	}
	if got.QuestID != HomeScope {
		t.Fatalf("scope=%q, want %q", got.QuestID, HomeScope)
	}
}

func TestTaskOrderQuestScopeIsSeparateDoc(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewTaskOrderRepo(db)

	if err := repo.Upsert(ctx, &TaskOrder{UserID: "u1", Date: "2026-09-01", Order: []string{"a"}}); err != nil {
		t.Fatalf("home upsert: %v", err)
	}
	if err := repo.Upsert(ctx, &TaskOrder{UserID: "u1", Date: "2026-09-01", QuestID: "q9", Order: []string{"s1"}}); err != nil {
		t.Fatalf("quest upsert: %v", err)
	}

	n, err := repo.CountByUserDate(ctx, "u1", "2026-09-01")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("ordering docs=%d, want 2 (home + quest scope)", n)
	}
}

func TestHistoricalMetricWindow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewSnapshotRepo(db)

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	snaps := []PerformanceSnapshot{
		{ID: "s0", UserID: "u1", MetricType: MetricWeeklyVelocity, Timestamp: now.Add(-14 * day), Value: 10},
		{ID: "s1", UserID: "u1", MetricType: MetricWeeklyVelocity, Timestamp: now.Add(-7 * day), Value: 20},
		{ID: "s2", UserID: "u1", MetricType: MetricWeeklyVelocity, Timestamp: now.Add(-1 * time.Minute), Value: 30},
	}
	for i := range snaps {
		if err := repo.Insert(ctx, &snaps[i]); err != nil {
			t.Fatalf("insert %s: %v", snaps[i].ID, err)
		}
	}

	// One period ago: [-14d, -7d). The day-7 point sits on the exclusive
	// edge, so the day-14 value wins; nudge the query a touch later and the
	// day-7 point falls inside.
	got, err := repo.GetHistoricalMetric(ctx, "u1", MetricWeeklyVelocity, 1, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("historical metric: %v", err)
	}
	if got == nil || got.Value != 20 {
		t.Fatalf("periodsAgo=1 got %+v, want day-7 value 20", got)
	}

	got, err = repo.GetHistoricalMetric(ctx, "u1", MetricWeeklyVelocity, 0, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("historical metric: %v", err)
	}
	if got == nil || got.Value != 30 {
		t.Fatalf("periodsAgo=0 got %+v, want latest value 30", got)
	}

	// No history in the window is a neutral nil, not an error.
	got, err = repo.GetHistoricalMetric(ctx, "u1", MetricWeeklyVelocity, 5, now)
	if err != nil {
		t.Fatalf("historical metric: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for empty window, got %+v", got)
	}
}

func TestQuestPutRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewQuestRepo(db)

	now := time.Now().UTC().Truncate(time.Second)
	gm := 3
	q := &Quest{
		ID:      "q1",
		OwnerID: "u1",
		Type:    "main",
		Title:   "Ship the report",
		Difficulty: Difficulty{
			UserAssigned:  4,
			GMValidated:   &gm,
			IsLocked:      true,
			Confidence:    0.82,
			XPPerPomodoro: 15,
		},
		Subtasks:         []Subtask{{ID: "st1", Title: "Outline"}},
		Schedule:         Schedule{TimeEstimateHours: 6},
		ValidationStatus: ValidationValidated,
		RegisteredAt:     now,
		UpdatedAt:        now,
	}
	if err := repo.Put(ctx, q); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := repo.Get(ctx, "q1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("quest not found after put")
	}
	if !got.Difficulty.IsLocked || got.Difficulty.GMValidated == nil || *got.Difficulty.GMValidated != 3 {
		t.Fatalf("difficulty not preserved: %+v", got.Difficulty)
	}
	if len(got.Subtasks) != 1 || got.Subtasks[0].ID != "st1" {
		t.Fatalf("subtasks not preserved: %+v", got.Subtasks)
	}

	open, err := repo.CountOpen(ctx, "u1")
	if err != nil {
		t.Fatalf("count open: %v", err)
	}
	if open != 1 {
		t.Fatalf("open=%d, want 1", open)
	}
}
