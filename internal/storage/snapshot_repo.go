package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MetricPeriod returns the comparison window length for a metric type.
func MetricPeriod(metricType string) time.Duration {
	switch metricType {
	case MetricMonthlyConsistency:
		return 30 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

type SnapshotRepo struct {
	db *sql.DB
}

func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Insert appends a snapshot. Snapshots are immutable once written.
func (r *SnapshotRepo) Insert(ctx context.Context, s *PerformanceSnapshot) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO performance_snapshots (id, user_id, metric_type, timestamp, value)
		VALUES (?, ?, ?, ?, ?)
	`, s.ID, s.UserID, s.MetricType, s.Timestamp, s.Value)
	if err != nil {
		return fmt.Errorf("snapshot insert: %w", err)
	}
	return nil
}

// GetHistoricalMetric resolves the half-open window
// [now-(periodsAgo+1)*period, now-periodsAgo*period) and returns the most
// recent snapshot inside it, or nil when no history exists. Callers treat a
// nil result as a neutral baseline, not an error.
func (r *SnapshotRepo) GetHistoricalMetric(ctx context.Context, userID, metricType string, periodsAgo int, now time.Time) (*PerformanceSnapshot, error) {
	period := MetricPeriod(metricType)
	windowEnd := now.Add(-time.Duration(periodsAgo) * period)
	windowStart := windowEnd.Add(-period)

	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, metric_type, timestamp, value
		FROM performance_snapshots
		WHERE user_id = ? AND metric_type = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp DESC
		LIMIT 1
	`, userID, metricType, windowStart, windowEnd)

	var s PerformanceSnapshot
	if err := row.Scan(&s.ID, &s.UserID, &s.MetricType, &s.Timestamp, &s.Value); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot window get: %w", err)
	}
	return &s, nil
}
