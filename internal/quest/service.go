package quest

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"ascend/internal/leveling"
	"ascend/internal/storage"
	"ascend/internal/syncqueue"
)

// Collection names used for sync-operation identity. The validation
// collection is distinct from quests so a pending quest update and a pending
// validation for the same quest never coalesce into one entry.
const (
	CollectionQuests      = "quests"
	CollectionSessions    = "sessions"
	CollectionTaskOrders  = "taskOrders"
	CollectionUsers       = "users"
	CollectionValidations = "gmValidations"
)

// Service owns all quest, session, and profile mutations. Every local write
// lands first and returns to the caller; reconciliation with the remote
// authority rides the sync queue.
type Service struct {
	db         *sql.DB
	users      *storage.UserRepo
	quests     *storage.QuestRepo
	sessions   *storage.SessionRepo
	orders     *storage.TaskOrderRepo
	antiQuests *storage.AntiQuestRepo
	queue      *syncqueue.Queue
	now        func() time.Time
}

func NewService(db *sql.DB, queue *syncqueue.Queue) *Service {
	return &Service{
		db:         db,
		users:      storage.NewUserRepo(db),
		quests:     storage.NewQuestRepo(db),
		sessions:   storage.NewSessionRepo(db),
		orders:     storage.NewTaskOrderRepo(db),
		antiQuests: storage.NewAntiQuestRepo(db),
		queue:      queue,
		now:        time.Now,
	}
}

func (s *Service) UserRepo() *storage.UserRepo           { return s.users }
func (s *Service) QuestRepo() *storage.QuestRepo         { return s.quests }
func (s *Service) SessionRepo() *storage.SessionRepo     { return s.sessions }
func (s *Service) TaskOrderRepo() *storage.TaskOrderRepo { return s.orders }
func (s *Service) AntiQuestRepo() *storage.AntiQuestRepo { return s.antiQuests }

func normalizeTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", errors.New("title is required")
	}
	return t, nil
}

// getOwnedQuest loads a quest and enforces ownership. Both failures are
// validation errors: nothing is enqueued.
func (s *Service) getOwnedQuest(ctx context.Context, userID, questID string) (*storage.Quest, error) {
	q, err := s.quests.Get(ctx, questID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, ErrNotFound
	}
	if q.OwnerID != userID {
		return nil, ErrAccessDenied
	}
	return q, nil
}

// getProfile loads the profile and re-derives the level cache from XP, the
// same way the stored level is never trusted as ground truth.
func (s *Service) getProfile(ctx context.Context, userID string) (*storage.UserProfile, error) {
	p, err := s.users.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	computed := leveling.CurrentLevelFromExp(p.ExperiencePoints)
	if p.TotalLevel != computed {
		p.TotalLevel = computed
		if err := s.users.Update(ctx, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// CreateQuestInput is the caller-facing shape for CreateQuest.
type CreateQuestInput struct {
	OwnerID           string
	Type              string
	Title             string
	Description       string
	UserDifficulty    int
	Subtasks          []storage.Subtask
	DueDate           *time.Time
	TimeEstimateHours float64
	IsPublic          bool
}

// CreateQuest writes the quest locally, mirrors it into the sync queue, and
// queues a GM validation for the user-assigned difficulty.
func (s *Service) CreateQuest(ctx context.Context, in CreateQuestInput) (*storage.Quest, error) {
	title, err := normalizeTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if in.UserDifficulty < 1 {
		in.UserDifficulty = 1
	}
	if in.Type == "" {
		in.Type = "main"
	}

	now := s.now().UTC()
	q := &storage.Quest{
		ID:          uuid.NewString(),
		OwnerID:     in.OwnerID,
		Type:        in.Type,
		Title:       title,
		Description: in.Description,
		IsPublic:    in.IsPublic,
		Difficulty: storage.Difficulty{
			UserAssigned:  in.UserDifficulty,
			XPPerPomodoro: defaultXPPerPomodoro(in.UserDifficulty),
		},
		Subtasks: in.Subtasks,
		Schedule: storage.Schedule{
			DueDate:           in.DueDate,
			TimeEstimateHours: in.TimeEstimateHours,
		},
		ValidationStatus: storage.ValidationQueued,
		RegisteredAt:     now,
		UpdatedAt:        now,
	}
	if err := s.quests.Put(ctx, q); err != nil {
		return nil, err
	}

	if _, err := s.queue.Enqueue(ctx, syncqueue.Request{
		Operation:  storage.OpCreate,
		Collection: CollectionQuests,
		DocumentID: q.ID,
		Data:       q,
		UserID:     q.OwnerID,
		Priority:   syncqueue.PriorityQuest,
	}); err != nil {
		return nil, err
	}
	if err := s.QueueValidation(ctx, q.OwnerID, q.ID); err != nil {
		return nil, err
	}
	return q, nil
}

// GetQuest returns the quest after an ownership check.
func (s *Service) GetQuest(ctx context.Context, userID, questID string) (*storage.Quest, error) {
	return s.getOwnedQuest(ctx, userID, questID)
}

// SaveQuest persists pipeline write-backs and mirrors them to the queue.
func (s *Service) SaveQuest(ctx context.Context, q *storage.Quest) error {
	q.UpdatedAt = s.now().UTC()
	if err := s.quests.Put(ctx, q); err != nil {
		return err
	}
	_, err := s.queue.Enqueue(ctx, syncqueue.Request{
		Operation:  storage.OpUpdate,
		Collection: CollectionQuests,
		DocumentID: q.ID,
		Data:       q,
		UserID:     q.OwnerID,
		Priority:   syncqueue.PriorityQuest,
	})
	return err
}

// QueueValidation enqueues a validate operation at high priority. It never
// blocks on the network; delivery happens in the background drain.
func (s *Service) QueueValidation(ctx context.Context, userID, questID string) error {
	_, err := s.queue.Enqueue(ctx, syncqueue.Request{
		Operation:  storage.OpValidate,
		Collection: CollectionValidations,
		DocumentID: questID,
		UserID:     userID,
		Priority:   syncqueue.PriorityValidation,
	})
	return err
}

// DeleteQuest removes the quest and cascades to task-order documents that
// reference it, then enqueues the remote delete.
func (s *Service) DeleteQuest(ctx context.Context, userID, questID string) error {
	q, err := s.getOwnedQuest(ctx, userID, questID)
	if err != nil {
		return err
	}

	err = storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.orders.DeleteByQuest(ctx, tx, q.ID); err != nil {
			return err
		}
		return s.quests.Delete(ctx, tx, q.ID)
	})
	if err != nil {
		return err
	}

	_, err = s.queue.Enqueue(ctx, syncqueue.Request{
		Operation:  storage.OpDelete,
		Collection: CollectionQuests,
		DocumentID: q.ID,
		UserID:     userID,
		Priority:   syncqueue.PriorityDelete,
	})
	return err
}

// SaveTaskOrder upserts the per-day ordering document and mirrors it at
// ordering priority.
func (s *Service) SaveTaskOrder(ctx context.Context, o *storage.TaskOrder) error {
	if err := s.orders.Upsert(ctx, o); err != nil {
		return err
	}
	_, err := s.queue.Enqueue(ctx, syncqueue.Request{
		Operation:  storage.OpUpdate,
		Collection: CollectionTaskOrders,
		DocumentID: o.ID,
		Data:       o,
		UserID:     o.UserID,
		Priority:   syncqueue.PriorityOrder,
	})
	return err
}

func defaultXPPerPomodoro(difficulty int) int {
	// Provisional rate until the GM verdict lands.
	return 5 * difficulty
}
