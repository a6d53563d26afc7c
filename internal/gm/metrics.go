package gm

import (
	"context"
	"database/sql"
	"math"
	"time"

	"ascend/internal/remote"
	"ascend/internal/storage"
)

// Burnout risk buckets.
const (
	BurnoutLow      = "Low"
	BurnoutMedium   = "Medium"
	BurnoutHigh     = "High"
	BurnoutCritical = "Critical"
)

// Context is the performance picture handed to the GM (remote or local).
type Context struct {
	WeeklyVelocity     float64
	MonthlyConsistency float64
	BurnoutScore       int
	BurnoutRisk        string
	StreakDays         int
	ActiveQuestCount   int
	OverdueQuestCount  int
}

func (c Context) payload() remote.MetricsPayload {
	return remote.MetricsPayload{
		WeeklyVelocity:     c.WeeklyVelocity,
		MonthlyConsistency: c.MonthlyConsistency,
		BurnoutRisk:        c.BurnoutRisk,
		StreakDays:         c.StreakDays,
		ActiveQuestCount:   c.ActiveQuestCount,
		OverdueQuestCount:  c.OverdueQuestCount,
	}
}

// Metrics derives the GM context from local state.
type Metrics struct {
	users    *storage.UserRepo
	quests   *storage.QuestRepo
	sessions *storage.SessionRepo
	now      func() time.Time
}

func NewMetrics(db *sql.DB) *Metrics {
	return &Metrics{
		users:    storage.NewUserRepo(db),
		quests:   storage.NewQuestRepo(db),
		sessions: storage.NewSessionRepo(db),
		now:      time.Now,
	}
}

// Derive computes the full context for a user.
func (m *Metrics) Derive(ctx context.Context, userID string) (*Context, error) {
	now := m.now().UTC()

	weekSessions, err := m.sessions.ListSince(ctx, userID, now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, err
	}
	monthSessions, err := m.sessions.ListSince(ctx, userID, now.Add(-30*24*time.Hour))
	if err != nil {
		return nil, err
	}

	profile, err := m.users.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	active, err := m.quests.CountOpen(ctx, userID)
	if err != nil {
		return nil, err
	}
	overdue, err := m.quests.CountOverdue(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	score := burnoutScore(weekSessions, overdue)
	return &Context{
		WeeklyVelocity:     WeeklyVelocity(weekSessions),
		MonthlyConsistency: MonthlyConsistency(monthSessions, profile.Streak.CurrentStreak),
		BurnoutScore:       score,
		BurnoutRisk:        burnoutBucket(score),
		StreakDays:         profile.Streak.CurrentStreak,
		ActiveQuestCount:   active,
		OverdueQuestCount:  overdue,
	}, nil
}

// WeeklyVelocity is total XP earned across the window divided by total hours
// spent. Sessions with no recorded span contribute no hours.
func WeeklyVelocity(sessions []storage.Session) float64 {
	var xp, hours float64
	for i := range sessions {
		s := &sessions[i]
		if s.Status != storage.SessionStatusCompleted {
			continue
		}
		xp += s.XPEarned
		if s.EndTime != nil {
			hours += s.EndTime.Sub(s.StartTime).Hours()
		}
	}
	if hours <= 0 {
		return 0
	}
	return xp / hours
}

// MonthlyConsistency is the GM-context 30-day score:
// min(100, activeDays/30*80 + min(15, streak/2)).
func MonthlyConsistency(sessions []storage.Session, currentStreak int) float64 {
	activeDays := countActiveDays(sessions)
	score := float64(activeDays)/30*80 + math.Min(15, float64(currentStreak)/2)
	return math.Min(100, score)
}

// DisplayConsistency14 is the 14-day score shown on dashboards. It carries a
// small frequency bonus the GM-context formula does not; the two are kept as
// separately named metrics on purpose.
func DisplayConsistency14(sessions []storage.Session) float64 {
	activeDays := countActiveDays(sessions)
	score := float64(activeDays) / 14 * 95
	if len(sessions) > 14 {
		score += 5
	}
	return math.Min(100, score)
}

func countActiveDays(sessions []storage.Session) int {
	days := map[string]struct{}{}
	for i := range sessions {
		days[sessions[i].StartTime.Format("2006-01-02")] = struct{}{}
	}
	return len(days)
}

// burnoutScore applies the weighted warning rules to the last week of
// sessions. Sessions are expected oldest-first, as ListSince returns them.
func burnoutScore(weekSessions []storage.Session, overdueQuests int) int {
	score := 0

	completed := make([]storage.Session, 0, len(weekSessions))
	for i := range weekSessions {
		if weekSessions[i].Status == storage.SessionStatusCompleted {
			completed = append(completed, weekSessions[i])
		}
	}

	if len(completed) > 50 {
		score += 30
	}

	weeklyAvg := averageQuality(completed)
	if len(completed) > 5 && weeklyAvg < 50 {
		score += 25
	}

	if len(completed) >= 10 {
		recent := completed[len(completed)-10:]
		if weeklyAvg-averageQuality(recent) > 15 {
			score += 25
		}
	}

	if overdueQuests > 3 {
		score += 20
	}
	return score
}

func averageQuality(sessions []storage.Session) float64 {
	if len(sessions) == 0 {
		return 0
	}
	total := 0
	for i := range sessions {
		total += sessions[i].Quality
	}
	return float64(total) / float64(len(sessions))
}

func burnoutBucket(score int) string {
	switch {
	case score < 25:
		return BurnoutLow
	case score < 50:
		return BurnoutMedium
	case score < 75:
		return BurnoutHigh
	default:
		return BurnoutCritical
	}
}
