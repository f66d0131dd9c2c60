package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	fulfillmentsaga "meridian/contexts/commerce/fulfillment-saga"
	sagaports "meridian/contexts/commerce/fulfillment-saga/ports"
	inventoryservice "meridian/contexts/commerce/inventory-service"
	invpostgres "meridian/contexts/commerce/inventory-service/adapters/postgres"
	invents "meridian/contexts/commerce/inventory-service/domain/entities"
	invports "meridian/contexts/commerce/inventory-service/ports"
	orderservice "meridian/contexts/commerce/order-service"
	orderpostgres "meridian/contexts/commerce/order-service/adapters/postgres"
	orderents "meridian/contexts/commerce/order-service/domain/entities"
	orderports "meridian/contexts/commerce/order-service/ports"
	"meridian/internal/engine/dcb"
	"meridian/internal/engine/decider"
	"meridian/internal/engine/orchestrator"
	"meridian/internal/platform/config"
	"meridian/internal/platform/db"
	"meridian/internal/platform/httpserver"
	"meridian/internal/platform/messaging"
	"meridian/internal/platform/metrics"
	"meridian/internal/platform/scheduler"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

// sagaRetention bounds how long terminal fulfillment sagas stay queryable
// before the worker purges them.
const sagaRetention = 7 * 24 * time.Hour

const sweepBatchSize = 100

// runtime is the wiring shared by the api and worker processes: durable
// stores, the event bus, the conflict retry lanes and the three commerce
// modules.
type runtime struct {
	cfg         config.Config
	postgres    *db.Postgres
	bus         *messaging.Kafka
	inventory   inventoryservice.Module
	orders      orderservice.Module
	fulfillment fulfillmentsaga.Module
	lanes       []*scheduler.Scheduler
	logger      *slog.Logger
}

type APIApp struct {
	server *httpserver.Server
	rt     *runtime
}

type WorkerApp struct {
	rt           *runtime
	pollInterval time.Duration
}

func BuildAPI() (*APIApp, error) {
	rt, err := buildRuntime("api")
	if err != nil {
		return nil, err
	}

	server := httpserver.New(
		rt.inventory,
		rt.orders,
		rt.fulfillment,
		rt.logger,
		normalizeAddr(rt.cfg.HTTPPort),
	)
	return &APIApp{server: server, rt: rt}, nil
}

func BuildWorker() (*WorkerApp, error) {
	rt, err := buildRuntime("worker")
	if err != nil {
		return nil, err
	}
	return &WorkerApp{rt: rt, pollInterval: rt.cfg.WorkerPoll}, nil
}

func buildRuntime(process string) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", process)
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	observer := metrics.MustNew(nil)
	publisher := &messaging.Publisher{Bus: bus, SourceService: cfg.ServiceName}
	checkpoints := &db.CheckpointStore{DB: pg.DB}
	policy := dcb.BackoffPolicy{
		InitialMs:   cfg.RetryInitialMs,
		Base:        cfg.RetryBase,
		MaxMs:       cfg.RetryMaxMs,
		MaxAttempts: cfg.RetryMaxAttempts,
	}

	invStreams := &db.StreamStore{
		DB:         pg.DB,
		StreamType: invports.StreamType,
		NewState:   func() any { return invents.NewInventory() },
		Apply:      inventoryservice.Apply,
		Clock:      invpostgres.SystemClock{}.Now,
	}
	invRead, err := invpostgres.NewStore(pg.DB)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}
	invExec := &retryExecutor{}
	invLane := scheduler.New(dcb.Consumer{Executor: invExec, Logger: logger}.Handle, logger)
	inventory := inventoryservice.NewModule(inventoryservice.Dependencies{
		States:    invStreams,
		Committer: invStreams,
		Commands:  invStreams,
		Publisher: publisher,
		Conflicts: dcb.Handler{
			Scheduler: invLane,
			Policy:    policy,
			ScopeType: invports.StreamType,
			Metrics:   observer,
			Logger:    logger,
		},
		Clock:            invpostgres.SystemClock{},
		IDGenerator:      invpostgres.UUIDGenerator{},
		Metrics:          observer,
		ReadModel:        invRead,
		Checkpoints:      checkpoints,
		Skips:            observer,
		ReservationTTL:   cfg.ReservationTTL,
		OptimisticMaxAge: cfg.OptimisticMaxAge,
		SweepBatchSize:   sweepBatchSize,
		Logger:           logger,
	})
	invExec.orch = inventory.Orchestrator

	orderStreams := &db.StreamStore{
		DB:         pg.DB,
		StreamType: orderports.StreamType,
		NewState:   func() any { return new(orderents.Order) },
		Apply:      orderservice.Apply,
		Clock:      orderpostgres.SystemClock{}.Now,
	}
	orderRead, err := orderpostgres.NewStore(pg.DB)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}
	orderExec := &retryExecutor{}
	orderLane := scheduler.New(dcb.Consumer{Executor: orderExec, Logger: logger}.Handle, logger)
	orders := orderservice.NewModule(orderservice.Dependencies{
		States:    orderStreams,
		Committer: orderStreams,
		Commands:  orderStreams,
		Publisher: publisher,
		Conflicts: dcb.Handler{
			Scheduler: orderLane,
			Policy:    policy,
			ScopeType: orderports.StreamType,
			Metrics:   observer,
			Logger:    logger,
		},
		Clock:       orderpostgres.SystemClock{},
		IDGenerator: orderpostgres.UUIDGenerator{},
		Metrics:     observer,
		ReadModel:   orderRead,
		Checkpoints: checkpoints,
		Skips:       observer,
		Logger:      logger,
	})
	orderExec.orch = orders.Orchestrator

	fulfillment, err := fulfillmentsaga.NewModule(fulfillmentsaga.Dependencies{
		Sagas: &db.SagaStore{DB: pg.DB},
		Buses: map[string]sagaports.CommandBus{
			invports.StreamType:   inventory.Orchestrator,
			orderports.StreamType: orders.Orchestrator,
		},
		DeadLetters:    &db.DeadLetterStore{DB: pg.DB},
		Clock:          invpostgres.SystemClock{},
		IDGenerator:    invpostgres.UUIDGenerator{},
		Metrics:        observer,
		ReservationTTL: cfg.ReservationTTL,
		Logger:         logger,
	})
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	return &runtime{
		cfg:         cfg,
		postgres:    pg,
		bus:         bus,
		inventory:   inventory,
		orders:      orders,
		fulfillment: fulfillment,
		lanes:       []*scheduler.Scheduler{invLane, orderLane},
		logger:      logger,
	}, nil
}

// subscribe attaches the projections and the saga runner to the bus. Both
// processes subscribe so events committed locally are projected locally.
func (r *runtime) subscribe(ctx context.Context) error {
	if err := r.bus.Subscribe(ctx, invports.StreamType, "inventory-catalog-cg", r.inventory.Projection.HandleEnvelope); err != nil {
		return err
	}
	if r.cfg.EnableOrderProjection {
		if err := r.bus.Subscribe(ctx, orderports.StreamType, "order-summary-cg", r.orders.Projection.HandleEnvelope); err != nil {
			return err
		}
	}
	if r.cfg.EnableSagaRunner {
		for _, topic := range []string{invports.StreamType, orderports.StreamType} {
			if err := r.bus.Subscribe(ctx, topic, "fulfillment-saga-cg", r.fulfillment.Runner.HandleEnvelope); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *runtime) close() error {
	for _, lane := range r.lanes {
		lane.Close()
	}
	if r.postgres != nil {
		return r.postgres.Close()
	}
	return nil
}

func (a *APIApp) Run(ctx context.Context) error {
	if err := a.rt.subscribe(ctx); err != nil {
		return err
	}

	a.rt.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return a.server.Start()
}

func (a *APIApp) Close() error {
	return a.rt.close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.rt.subscribe(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.rt.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if w.rt.cfg.EnableReservationSweep {
			if err := w.rt.inventory.Sweeper.RunOnce(ctx); err != nil {
				return err
			}
		}
		if _, err := w.rt.fulfillment.Admin.PurgeTerminalBefore(ctx, sagaRetention); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	return w.rt.close()
}

// retryExecutor late-binds an orchestrator so the retry lane can be built
// before the module that owns it.
type retryExecutor struct {
	orch *orchestrator.Orchestrator
}

func (e *retryExecutor) ExecuteRetry(ctx context.Context, command decider.Command, expectedVersion int64, attempt int) (decider.Result, error) {
	return e.orch.ExecuteRetry(ctx, command, expectedVersion, attempt)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
