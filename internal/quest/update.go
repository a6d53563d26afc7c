package quest

import (
	"context"

	"ascend/internal/storage"
	"ascend/internal/syncqueue"
)

// QuestUpdate is a partial edit to a quest. Nil fields are untouched.
type QuestUpdate struct {
	Title             *string
	Description       *string
	UserDifficulty    *int
	Subtasks          *[]storage.Subtask
	TimeEstimateHours *float64
	IsCompleted       *bool
}

// affectsDifficulty reports whether the edit touches a field the GM verdict
// depends on: the user-assigned difficulty, the subtask count, or the time
// estimate.
func affectsDifficulty(q *storage.Quest, u QuestUpdate) bool {
	if u.UserDifficulty != nil && *u.UserDifficulty != q.Difficulty.UserAssigned {
		return true
	}
	if u.Subtasks != nil && len(*u.Subtasks) != len(q.Subtasks) {
		return true
	}
	if u.TimeEstimateHours != nil && *u.TimeEstimateHours != q.Schedule.TimeEstimateHours {
		return true
	}
	return false
}

// UpdateQuest applies an edit through the difficulty state machine:
//
//   - a difficulty-affecting edit while locked is rejected with
//     ErrLockedDifficulty before anything is written or enqueued;
//   - the same edit while unlocked clears the prior verdict, moves the quest
//     to queued, and enqueues a high-priority validation;
//   - other edits pass straight through.
func (s *Service) UpdateQuest(ctx context.Context, userID, questID string, u QuestUpdate) (*storage.Quest, error) {
	q, err := s.getOwnedQuest(ctx, userID, questID)
	if err != nil {
		return nil, err
	}

	// Clamp before the change detection so a sub-minimum request against an
	// already-minimal quest is a no-op, not a revalidation.
	if u.UserDifficulty != nil && *u.UserDifficulty < 1 {
		one := 1
		u.UserDifficulty = &one
	}

	revalidate := affectsDifficulty(q, u)
	if revalidate && q.Difficulty.IsLocked {
		return nil, ErrLockedDifficulty
	}

	applyUpdate(q, u)
	if revalidate {
		clearValidation(q)
	}

	q.UpdatedAt = s.now().UTC()
	if err := s.quests.Put(ctx, q); err != nil {
		return nil, err
	}

	if _, err := s.queue.Enqueue(ctx, syncqueue.Request{
		Operation:  storage.OpUpdate,
		Collection: CollectionQuests,
		DocumentID: q.ID,
		Data:       q,
		UserID:     userID,
		Priority:   syncqueue.PriorityQuest,
	}); err != nil {
		return nil, err
	}
	if revalidate {
		if err := s.QueueValidation(ctx, userID, q.ID); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// UnlockAndRevalidate is the one sanctioned path around the difficulty lock:
// it releases the lock, applies the new difficulty, and queues a fresh
// validation in a single step.
func (s *Service) UnlockAndRevalidate(ctx context.Context, userID, questID string, newDifficulty int) (*storage.Quest, error) {
	q, err := s.getOwnedQuest(ctx, userID, questID)
	if err != nil {
		return nil, err
	}
	if newDifficulty < 1 {
		newDifficulty = 1
	}

	q.Difficulty.IsLocked = false
	q.Difficulty.UserAssigned = newDifficulty
	clearValidation(q)
	q.UpdatedAt = s.now().UTC()

	if err := s.quests.Put(ctx, q); err != nil {
		return nil, err
	}
	if _, err := s.queue.Enqueue(ctx, syncqueue.Request{
		Operation:  storage.OpUpdate,
		Collection: CollectionQuests,
		DocumentID: q.ID,
		Data:       q,
		UserID:     userID,
		Priority:   syncqueue.PriorityQuest,
	}); err != nil {
		return nil, err
	}
	if err := s.QueueValidation(ctx, userID, q.ID); err != nil {
		return nil, err
	}
	return q, nil
}

func applyUpdate(q *storage.Quest, u QuestUpdate) {
	if u.Title != nil {
		q.Title = *u.Title
	}
	if u.Description != nil {
		q.Description = *u.Description
	}
	if u.UserDifficulty != nil {
		q.Difficulty.UserAssigned = *u.UserDifficulty
	}
	if u.Subtasks != nil {
		q.Subtasks = *u.Subtasks
	}
	if u.TimeEstimateHours != nil {
		q.Schedule.TimeEstimateHours = *u.TimeEstimateHours
	}
	if u.IsCompleted != nil {
		q.IsCompleted = *u.IsCompleted
	}
}

// clearValidation resets the GM verdict so a changed difficulty input is
// revalidated from scratch.
func clearValidation(q *storage.Quest) {
	q.Difficulty.GMValidated = nil
	q.Difficulty.ValidatedAt = nil
	q.Difficulty.Confidence = 0
	q.ValidationStatus = storage.ValidationQueued
}
