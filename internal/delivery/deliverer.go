// Package delivery routes drained sync operations to the remote authority:
// validations go through the GM pipeline, everything else is a direct upsert
// or delete against the remote API.
package delivery

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ascend/internal/gm"
	"ascend/internal/quest"
	"ascend/internal/remote"
	"ascend/internal/storage"
)

// Deliverer implements syncqueue.Deliverer.
type Deliverer struct {
	client   *remote.Client
	pipeline *gm.Pipeline
	log      *zap.Logger
}

func New(client *remote.Client, pipeline *gm.Pipeline, log *zap.Logger) *Deliverer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Deliverer{client: client, pipeline: pipeline, log: log}
}

// Deliver applies one operation. Returning nil acknowledges it; the queue
// retries anything else with backoff.
func (d *Deliverer) Deliver(ctx context.Context, op storage.SyncOperation) error {
	if op.Operation == storage.OpValidate {
		// The pipeline's fallback layer absorbs remote trouble, so a
		// validation only fails on a local-store error.
		verdict, err := d.pipeline.ProcessValidation(ctx, op.UserID, op.DocumentID)
		if err != nil {
			// The quest was deleted (or reassigned) after the validation
			// was queued. Retrying can never succeed, so acknowledge.
			if errors.Is(err, quest.ErrNotFound) || errors.Is(err, quest.ErrAccessDenied) {
				d.log.Info("validation target gone, dropping",
					zap.String("quest", op.DocumentID), zap.Error(err))
				return nil
			}
			return err
		}
		d.log.Debug("validation completed",
			zap.String("quest", op.DocumentID),
			zap.String("source", verdict.Source),
			zap.Int("difficulty", verdict.SuggestedDifficulty))
		return nil
	}

	switch op.Operation {
	case storage.OpDelete:
		return d.client.Delete(ctx, op.Collection, op.DocumentID)
	case storage.OpCreate, storage.OpUpdate:
		switch op.Collection {
		case quest.CollectionSessions:
			return d.client.PutSession(ctx, op.DocumentID, op.Data)
		case quest.CollectionQuests:
			return d.client.PutQuest(ctx, op.DocumentID, op.Data)
		default:
			return d.client.PutDocument(ctx, op.Collection, op.DocumentID, op.Data)
		}
	default:
		return fmt.Errorf("unknown operation %q", op.Operation)
	}
}
