package syncqueue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ascend/internal/storage"
)

// Deliverer attempts to apply one operation against the remote authority.
// A nil return acknowledges the operation; any error schedules a retry.
type Deliverer interface {
	Deliver(ctx context.Context, op storage.SyncOperation) error
}

// Outcome is emitted after each delivery attempt.
type Outcome struct {
	Op       storage.SyncOperation
	Err      error
	Terminal bool
}

// ProcessorConfig holds the options for NewProcessor.
type ProcessorConfig struct {
	Queue     *Queue
	Deliverer Deliverer
	Logger    *zap.Logger
	Interval  time.Duration // drain interval; defaults to a minute
	BatchSize int           // max operations per drain; defaults to 10
}

// Processor drains the queue on a fixed interval, and once eagerly at
// startup. A single goroutine runs the loop, so two drain cycles can never
// overlap on the same queue.
type Processor struct {
	queue     *Queue
	deliverer Deliverer
	log       *zap.Logger
	interval  time.Duration
	batchSize int
	outcomes  chan Outcome
	done      chan struct{}
}

func NewProcessor(cfg ProcessorConfig) *Processor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Processor{
		queue:     cfg.Queue,
		deliverer: cfg.Deliverer,
		log:       cfg.Logger,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		outcomes:  make(chan Outcome, 64),
		done:      make(chan struct{}),
	}
}

// Outcomes exposes delivery results for subscribers (UI error surfaces,
// tests). Sends are non-blocking: a slow subscriber drops events rather
// than stalling the drain.
func (p *Processor) Outcomes() <-chan Outcome {
	return p.outcomes
}

// Run drains eagerly once, then on every tick until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) {
	defer close(p.done)

	p.drain(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

// Done is closed once Run returns.
func (p *Processor) Done() <-chan struct{} {
	return p.done
}

// DrainOnce runs a single drain cycle synchronously.
func (p *Processor) DrainOnce(ctx context.Context) {
	p.drain(ctx)
}

func (p *Processor) drain(ctx context.Context) {
	ops, err := p.queue.DequeueBatch(ctx, p.batchSize)
	if err != nil {
		p.log.Warn("sync drain: dequeue failed", zap.Error(err))
		return
	}
	if len(ops) == 0 {
		return
	}
	p.log.Debug("sync drain", zap.Int("ops", len(ops)))

	for _, op := range ops {
		if ctx.Err() != nil {
			return
		}

		err := p.deliverer.Deliver(ctx, op)
		if err == nil {
			if cerr := p.queue.Complete(ctx, op); cerr != nil {
				p.log.Warn("sync complete failed", zap.String("op", op.ID), zap.Error(cerr))
			}
			p.emit(Outcome{Op: op})
			continue
		}

		terminal, ferr := p.queue.Fail(ctx, op, err)
		if ferr != nil {
			p.log.Warn("sync fail-record failed", zap.String("op", op.ID), zap.Error(ferr))
		}
		if terminal {
			p.log.Error("sync op exhausted retries",
				zap.String("op", op.ID),
				zap.String("operation", op.Operation),
				zap.Error(err))
		} else {
			p.log.Info("sync op rescheduled",
				zap.String("op", op.ID),
				zap.Int("retry", op.RetryCount+1),
				zap.Error(err))
		}
		p.emit(Outcome{Op: op, Err: err, Terminal: terminal})
	}
}

func (p *Processor) emit(o Outcome) {
	select {
	case p.outcomes <- o:
	default:
	}
}
