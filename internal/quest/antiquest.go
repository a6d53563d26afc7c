package quest

import (
	"context"

	"github.com/google/uuid"

	"ascend/internal/leveling"
	"ascend/internal/storage"
	"ascend/internal/syncqueue"
)

// CreateAntiQuest registers a negative-behavior pattern to track.
func (s *Service) CreateAntiQuest(ctx context.Context, userID, title string, penaltyXP float64) (*storage.AntiQuest, error) {
	t, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}
	a := &storage.AntiQuest{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     t,
		PenaltyXP: penaltyXP,
	}
	if err := s.antiQuests.Put(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// PenaltyOutcome reports an applied (floor-protected) anti-quest penalty.
type PenaltyOutcome struct {
	RequestedPenalty float64
	ActualPenalty    float64
	XPBefore         float64
	XPAfter          float64
}

// RecordAntiQuestOccurrence logs an occurrence and applies its XP penalty to
// the profile. The penalty is floor-protected: it can erode XP within the
// current level but never de-level the user. The profile update is mirrored
// at profile priority.
func (s *Service) RecordAntiQuestOccurrence(ctx context.Context, userID, antiQuestID string) (*PenaltyOutcome, error) {
	a, err := s.antiQuests.Get(ctx, antiQuestID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	if a.UserID != userID {
		return nil, ErrAccessDenied
	}

	p, err := s.getProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := leveling.ApplyXPPenaltyWithFloor(p.ExperiencePoints, a.PenaltyXP)
	before := p.ExperiencePoints
	p.ExperiencePoints = res.NewXP
	p.TotalLevel = leveling.CurrentLevelFromExp(p.ExperiencePoints)
	if err := s.users.Update(ctx, p); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	a.OccurrenceCount++
	a.LastOccurredAt = &now
	if err := s.antiQuests.Put(ctx, a); err != nil {
		return nil, err
	}

	if _, err := s.queue.Enqueue(ctx, syncqueue.Request{
		Operation:  storage.OpUpdate,
		Collection: CollectionUsers,
		DocumentID: userID,
		Data:       p,
		UserID:     userID,
		Priority:   syncqueue.PriorityProfile,
	}); err != nil {
		return nil, err
	}

	return &PenaltyOutcome{
		RequestedPenalty: a.PenaltyXP,
		ActualPenalty:    res.ActualPenalty,
		XPBefore:         before,
		XPAfter:          res.NewXP,
	}, nil
}
