package quest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ascend/internal/leveling"
	"ascend/internal/storage"
	"ascend/internal/syncqueue"
)

// StartSession opens a focus session against a quest.
func (s *Service) StartSession(ctx context.Context, userID, questID, sessionType string) (*storage.Session, error) {
	if _, err := s.getOwnedQuest(ctx, userID, questID); err != nil {
		return nil, err
	}
	if sessionType == "" {
		sessionType = storage.SessionTypeFocus
	}

	sess := &storage.Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		QuestID:     questID,
		StartTime:   s.now().UTC(),
		Status:      storage.SessionStatusActive,
		SessionType: sessionType,
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// CompleteSessionResult reports XP movement from a completed session.
type CompleteSessionResult struct {
	Session     *storage.Session
	XPAwarded   float64
	LevelBefore int
	LevelAfter  int
	LevelUp     bool
}

// CompleteSession closes the session, credits XP to the profile and the
// quest's gamification state, advances the streak, and mirrors the session
// at completion priority.
func (s *Service) CompleteSession(ctx context.Context, userID, sessionID string, quality int) (*CompleteSessionResult, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotFound
	}
	if sess.UserID != userID {
		return nil, ErrAccessDenied
	}
	if sess.Status != storage.SessionStatusActive {
		return nil, ErrSessionClosed
	}

	q, err := s.getOwnedQuest(ctx, userID, sess.QuestID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	xp := float64(q.Difficulty.XPPerPomodoro)
	if sess.SessionType == storage.SessionTypeBreak {
		xp = 0
	}

	sess.EndTime = &now
	sess.Status = storage.SessionStatusCompleted
	sess.XPEarned = xp
	sess.Quality = quality
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}

	p, err := s.getProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	levelBefore := p.TotalLevel

	p.ExperiencePoints += xp
	p.TotalLevel = leveling.CurrentLevelFromExp(p.ExperiencePoints)
	advanceStreak(&p.Streak, now)
	if err := s.users.Update(ctx, p); err != nil {
		return nil, err
	}

	q.Gamification.CurrentExp += xp
	q.Gamification.CurrentLevel = leveling.CurrentLevelFromExp(q.Gamification.CurrentExp)
	q.Gamification.ExpToNextLevel = leveling.TotalExpForLevel(q.Gamification.CurrentLevel+1) - q.Gamification.CurrentExp
	q.UpdatedAt = now
	if err := s.quests.Put(ctx, q); err != nil {
		return nil, err
	}

	if _, err := s.queue.Enqueue(ctx, syncqueue.Request{
		Operation:  storage.OpUpdate,
		Collection: CollectionSessions,
		DocumentID: sess.ID,
		Data:       sess,
		UserID:     userID,
		Priority:   syncqueue.PrioritySession,
	}); err != nil {
		return nil, err
	}

	return &CompleteSessionResult{
		Session:     sess,
		XPAwarded:   xp,
		LevelBefore: levelBefore,
		LevelAfter:  p.TotalLevel,
		LevelUp:     p.TotalLevel > levelBefore,
	}, nil
}

// advanceStreak bumps the daily streak: consecutive days extend it, a gap
// resets it to one, same-day activity leaves it alone.
func advanceStreak(streak *storage.StreakData, now time.Time) {
	today := now.Format("2006-01-02")
	if streak.LastActiveDate == today {
		return
	}
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
	if streak.LastActiveDate == yesterday {
		streak.CurrentStreak++
	} else {
		streak.CurrentStreak = 1
	}
	streak.LastActiveDate = today
	if streak.CurrentStreak > streak.LongestStreak {
		streak.LongestStreak = streak.CurrentStreak
	}
}
