package gm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ascend/internal/remote"
	"ascend/internal/storage"
)

// QuestService is the capability set the pipeline needs from the quest
// layer. The concrete store-backed service implements it.
type QuestService interface {
	GetQuest(ctx context.Context, userID, questID string) (*storage.Quest, error)
	SaveQuest(ctx context.Context, q *storage.Quest) error
	QueueValidation(ctx context.Context, userID, questID string) error
}

// Validator is the remote layer. *remote.Client satisfies it.
type Validator interface {
	ValidateQuest(ctx context.Context, req remote.ValidateQuestRequest) (*remote.ValidateQuestResponse, error)
}

// Verdict is the pipeline's difficulty decision, whichever layer produced it.
type Verdict struct {
	SuggestedDifficulty int
	XPPerPomodoro       int
	Confidence          float64
	Reasoning           string
	Source              string // "remote" or "local"
	FlagForReview       bool   // local layer asks for a manual look
}

// Pipeline orchestrates the three validation layers: enqueue, remote
// attempt, local fallback. Layer three is deterministic and never fails, so
// a queued validation always completes from the user's point of view.
type Pipeline struct {
	quests    QuestService
	metrics   *Metrics
	validator Validator
	snapshots *storage.SnapshotRepo
	log       *zap.Logger
	now       func() time.Time
}

func NewPipeline(quests QuestService, metrics *Metrics, validator Validator, snapshots *storage.SnapshotRepo, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		quests:    quests,
		metrics:   metrics,
		validator: validator,
		snapshots: snapshots,
		log:       log,
		now:       time.Now,
	}
}

// QueueValidation is layer one: enqueue and return. Delivery happens in the
// background drain.
func (p *Pipeline) QueueValidation(ctx context.Context, userID, questID string) error {
	return p.quests.QueueValidation(ctx, userID, questID)
}

// ProcessValidation runs layers two and three for one queued validation and
// writes the verdict back through the quest state machine. The returned
// error is only ever a local-store failure: remote trouble is absorbed by
// the fallback.
func (p *Pipeline) ProcessValidation(ctx context.Context, userID, questID string) (*Verdict, error) {
	q, err := p.quests.GetQuest(ctx, userID, questID)
	if err != nil {
		return nil, fmt.Errorf("load quest for validation: %w", err)
	}

	mctx, err := p.metrics.Derive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("derive metrics: %w", err)
	}
	p.recordSnapshots(ctx, userID, mctx)

	verdict := p.remoteVerdict(ctx, userID, q, mctx)
	if verdict == nil {
		verdict = LocalVerdict(q, mctx)
	}

	now := p.now().UTC()
	d := verdict.SuggestedDifficulty
	q.Difficulty.GMValidated = &d
	q.Difficulty.IsLocked = true
	q.Difficulty.ValidatedAt = &now
	q.Difficulty.Confidence = verdict.Confidence
	if verdict.XPPerPomodoro > 0 {
		q.Difficulty.XPPerPomodoro = verdict.XPPerPomodoro
	}
	q.ValidationStatus = storage.ValidationValidated

	if err := p.quests.SaveQuest(ctx, q); err != nil {
		return nil, fmt.Errorf("write back verdict: %w", err)
	}
	return verdict, nil
}

// remoteVerdict is layer two. Any failure returns nil and falls through.
func (p *Pipeline) remoteVerdict(ctx context.Context, userID string, q *storage.Quest, mctx *Context) *Verdict {
	resp, err := p.validator.ValidateQuest(ctx, remote.ValidateQuestRequest{
		UserID:  userID,
		Quest:   q,
		Metrics: mctx.payload(),
	})
	if err != nil {
		p.log.Info("remote validation unavailable, using local fallback",
			zap.String("quest", q.ID), zap.Error(err))
		return nil
	}
	return &Verdict{
		SuggestedDifficulty: resp.SuggestedDifficulty,
		XPPerPomodoro:       resp.SuggestedXPPerPomodoro,
		Confidence:          resp.Confidence,
		Reasoning:           resp.Reasoning,
		Source:              "remote",
	}
}

// LocalVerdict is layer three: a deterministic verdict from the metrics
// context alone. It accepts the user-assigned difficulty when recent
// velocity and consistency look normal, and flags for manual reduction when
// burnout risk is High or Critical. It never fails.
func LocalVerdict(q *storage.Quest, mctx *Context) *Verdict {
	difficulty := q.Difficulty.UserAssigned
	confidence := 0.5
	reasoning := "offline verdict: user-assigned difficulty accepted"
	flag := false

	switch mctx.BurnoutRisk {
	case BurnoutHigh, BurnoutCritical:
		if difficulty > 1 {
			difficulty--
		}
		confidence = 0.4
		reasoning = "offline verdict: difficulty reduced, burnout risk " + mctx.BurnoutRisk
		flag = true
	default:
		if mctx.MonthlyConsistency >= 50 && mctx.WeeklyVelocity > 0 {
			confidence = 0.6
			reasoning = "offline verdict: steady velocity and consistency, difficulty accepted"
		}
	}

	return &Verdict{
		SuggestedDifficulty: difficulty,
		XPPerPomodoro:       5 * difficulty,
		Confidence:          confidence,
		Reasoning:           reasoning,
		Source:              "local",
		FlagForReview:       flag,
	}
}

// recordSnapshots appends one point per metric for this computation cycle.
// Snapshot failures are logged, not fatal: metrics history is advisory.
func (p *Pipeline) recordSnapshots(ctx context.Context, userID string, mctx *Context) {
	now := p.now().UTC()
	snaps := []storage.PerformanceSnapshot{
		{ID: uuid.NewString(), UserID: userID, MetricType: storage.MetricWeeklyVelocity, Timestamp: now, Value: mctx.WeeklyVelocity},
		{ID: uuid.NewString(), UserID: userID, MetricType: storage.MetricMonthlyConsistency, Timestamp: now, Value: mctx.MonthlyConsistency},
	}
	for i := range snaps {
		if err := p.snapshots.Insert(ctx, &snaps[i]); err != nil {
			p.log.Warn("snapshot insert failed", zap.String("metric", snaps[i].MetricType), zap.Error(err))
		}
	}
}
