package root

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"ascend/internal/config"
	"ascend/internal/delivery"
	"ascend/internal/gm"
	"ascend/internal/quest"
	"ascend/internal/remote"
	"ascend/internal/storage"
	"ascend/internal/syncqueue"
)

// app wires the full stack for one command invocation.
type app struct {
	cfg      config.Config
	db       *sql.DB
	queue    *syncqueue.Queue
	service  *quest.Service
	client   *remote.Client
	metrics  *gm.Metrics
	pipeline *gm.Pipeline
	log      *zap.Logger
}

func openApp(ctx context.Context) (*app, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	log := zap.NewNop()
	if cfg.Debug {
		if dev, err := zap.NewDevelopment(); err == nil {
			log = dev
		}
	}

	db, err := storage.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}

	queue := syncqueue.New(storage.NewSyncRepo(db))
	service := quest.NewService(db, queue)
	client := remote.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout)
	metrics := gm.NewMetrics(db)
	pipeline := gm.NewPipeline(service, metrics, client, storage.NewSnapshotRepo(db), log)

	cleanup := func() {
		_ = log.Sync()
		_ = db.Close()
	}
	return &app{
		cfg:      cfg,
		db:       db,
		queue:    queue,
		service:  service,
		client:   client,
		metrics:  metrics,
		pipeline: pipeline,
		log:      log,
	}, cleanup, nil
}

func (a *app) processor() *syncqueue.Processor {
	return syncqueue.NewProcessor(syncqueue.ProcessorConfig{
		Queue:     a.queue,
		Deliverer: delivery.New(a.client, a.pipeline, a.log),
		Logger:    a.log,
		Interval:  a.cfg.SyncInterval,
		BatchSize: a.cfg.SyncBatch,
	})
}
