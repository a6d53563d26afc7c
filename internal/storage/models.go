package storage

import (
	"encoding/json"
	"time"
)

// Validation status values for a quest.
const (
	ValidationValidated = "validated"
	ValidationQueued    = "queued"
	ValidationRejected  = "rejected"
)

// Difficulty carries the user-assigned rating and the GM verdict for a quest.
// UserAssigned is immutable while IsLocked is set; the lock is only released
// through the explicit unlock-and-revalidate flow.
type Difficulty struct {
	UserAssigned  int        `json:"userAssigned"`
	GMValidated   *int       `json:"gmValidated"`
	IsLocked      bool       `json:"isLocked"`
	ValidatedAt   *time.Time `json:"validatedAt"`
	Confidence    float64    `json:"confidence"`
	XPPerPomodoro int        `json:"xpPerPomodoro"`
}

type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type Schedule struct {
	DueDate           *time.Time `json:"dueDate"`
	TimeEstimateHours float64    `json:"timeEstimateHours"`
}

// Gamification is per-quest progress state shown on the quest card.
type Gamification struct {
	CurrentLevel   int     `json:"currentLevel"`
	CurrentExp     float64 `json:"currentExp"`
	ExpToNextLevel float64 `json:"expToNextLevel"`
}

type Quest struct {
	ID               string
	OwnerID          string
	Type             string
	Title            string
	Description      string
	IsPublic         bool
	IsCompleted      bool
	Difficulty       Difficulty
	Subtasks         []Subtask
	Schedule         Schedule
	Gamification     Gamification
	ValidationStatus string
	RegisteredAt     time.Time
	UpdatedAt        time.Time
}

// Session statuses and types.
const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusAbandoned = "abandoned"

	SessionTypeFocus = "focus"
	SessionTypeBreak = "break"
)

type Session struct {
	ID          string
	UserID      string
	QuestID     string
	StartTime   time.Time
	EndTime     *time.Time
	Status      string
	SessionType string
	XPEarned    float64
	Quality     int // 0-100 focus quality rating
}

// TaskOrder is the per-day ordering document for a user's task list. ID is
// derived from (userId, date, scope) so re-saves overwrite rather than
// duplicate.
type TaskOrder struct {
	ID      string
	UserID  string
	Date    string // YYYY-MM-DD
	QuestID string // HomeScope for the home list, otherwise a quest id
	Order   []string
}

// HomeScope is the task-order scope for the main (quest-less) list.
const HomeScope = "home"

// Sync operation kinds.
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpValidate = "validate"
)

// SyncOperation is one durable outbox entry. ID is deterministic from
// (collection, documentId), so enqueueing the same logical mutation twice
// coalesces into a single entry.
type SyncOperation struct {
	ID            string
	Operation     string
	Collection    string
	DocumentID    string
	Data          json.RawMessage
	UserID        string
	Timestamp     time.Time
	Priority      int
	RetryCount    int
	NextRetryTime *time.Time
	Error         *string
}

// Metric types for performance snapshots.
const (
	MetricWeeklyVelocity     = "weeklyVelocity"
	MetricMonthlyConsistency = "monthlyConsistency"
)

// PerformanceSnapshot is an append-only time-series point. Snapshots are
// never mutated; trend queries use nearest-preceding-window lookups.
type PerformanceSnapshot struct {
	ID         string
	UserID     string
	MetricType string
	Timestamp  time.Time
	Value      float64
}

type StreakData struct {
	CurrentStreak  int    `json:"currentStreak"`
	LongestStreak  int    `json:"longestStreak"`
	LastActiveDate string `json:"lastActiveDate"` // YYYY-MM-DD
}

// UserProfile holds cumulative XP. Level is always derived from XP; the
// stored TotalLevel is a cache brought back in step with the curve on read.
type UserProfile struct {
	UserID           string
	Username         string
	ExperiencePoints float64
	TotalLevel       int
	Streak           StreakData
}

// AntiQuest is a tracked negative-behavior pattern. Each recorded occurrence
// applies a floor-protected XP penalty to the owner.
type AntiQuest struct {
	ID              string
	UserID          string
	Title           string
	PenaltyXP       float64
	OccurrenceCount int
	LastOccurredAt  *time.Time
}
