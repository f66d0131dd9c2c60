package inventoryservice

import (
	"context"
	"log/slog"
	"time"

	httpadapter "meridian/contexts/commerce/inventory-service/adapters/http"
	"meridian/contexts/commerce/inventory-service/adapters/memory"
	"meridian/contexts/commerce/inventory-service/application"
	"meridian/contexts/commerce/inventory-service/application/commands"
	"meridian/contexts/commerce/inventory-service/application/projections"
	"meridian/contexts/commerce/inventory-service/application/workers"
	"meridian/contexts/commerce/inventory-service/ports"
	"meridian/internal/engine/checkpoint"
	"meridian/internal/engine/dcb"
	"meridian/internal/engine/decider"
	"meridian/internal/engine/eventlog"
	"meridian/internal/engine/orchestrator"
	"meridian/internal/platform/scheduler"
	"meridian/internal/shared/events"
)

type Module struct {
	Handler      httpadapter.Handler
	Service      application.Service
	Sync         application.Sync
	Orchestrator *orchestrator.Orchestrator
	Projection   projections.Catalog
	Sweeper      workers.Sweeper
	Store        *memory.Store
}

type Dependencies struct {
	States           orchestrator.StateRepository
	Committer        orchestrator.Committer
	Commands         orchestrator.CommandLog
	Publisher        orchestrator.EventPublisher
	Conflicts        orchestrator.ConflictHandler
	Clock            ports.Clock
	IDGenerator      ports.IDGenerator
	Metrics          orchestrator.Metrics
	ReadModel        ports.ReadModel
	Checkpoints      checkpoint.Store
	Skips            projections.SkipCounter
	ReservationTTL   time.Duration
	OptimisticMaxAge time.Duration
	SweepBatchSize   int
	Logger           *slog.Logger
}

func NewModule(deps Dependencies) Module {
	orch := &orchestrator.Orchestrator{
		StreamType: ports.StreamType,
		Decider:    commands.Decider(),
		States:     deps.States,
		Committer:  deps.Committer,
		Commands:   deps.Commands,
		Publisher:  deps.Publisher,
		Conflicts:  deps.Conflicts,
		Clock:      deps.Clock,
		IDs:        deps.IDGenerator,
		Metrics:    deps.Metrics,
		Logger:     deps.Logger,
	}
	service := application.Service{
		Orchestrator:   orch,
		ReadModel:      deps.ReadModel,
		Clock:          deps.Clock,
		IDGen:          deps.IDGenerator,
		ReservationTTL: deps.ReservationTTL,
		Logger:         deps.Logger,
	}
	sync := application.Sync{
		Checkpoints:      deps.Checkpoints,
		MaxOptimisticAge: deps.OptimisticMaxAge,
		Clock:            deps.Clock,
	}
	return Module{
		Handler:      httpadapter.Handler{Service: service, Sync: sync, Logger: deps.Logger},
		Service:      service,
		Sync:         sync,
		Orchestrator: orch,
		Projection: projections.Catalog{
			Checkpoints: checkpoint.Helper{Store: deps.Checkpoints, Logger: deps.Logger},
			ReadModel:   deps.ReadModel,
			Skips:       deps.Skips,
			Logger:      deps.Logger,
		},
		Sweeper: workers.Sweeper{
			Service:   service,
			Clock:     deps.Clock,
			BatchSize: deps.SweepBatchSize,
			Logger:    deps.Logger,
		},
	}
}

// NewInMemoryModule wires the whole service over in-memory collaborators:
// memory event log, synchronous projection relay and an in-process conflict
// retry lane. Used by tests and the local runtime.
func NewInMemoryModule(reservationTTL time.Duration, logger *slog.Logger) Module {
	store := memory.NewStore()
	log := eventlog.NewMemoryLog()
	streams := orchestrator.NewMemoryStore(log, commands.Apply)

	relay := &localRelay{}
	executor := &lateExecutor{}
	lane := scheduler.New(dcb.Consumer{Executor: executor, Logger: logger}.Handle, logger)

	module := NewModule(Dependencies{
		States:    streams,
		Committer: streams,
		Commands:  streams,
		Publisher: relay,
		Conflicts: dcb.Handler{
			Scheduler: lane,
			Policy:    dcb.DefaultBackoff,
			ScopeType: ports.StreamType,
			Logger:    logger,
		},
		Clock:            store,
		IDGenerator:      store,
		ReadModel:        store,
		Checkpoints:      checkpoint.NewMemoryStore(),
		ReservationTTL:   reservationTTL,
		OptimisticMaxAge: 30 * time.Second,
		Logger:           logger,
	})
	module.Store = store
	relay.catalog = module.Projection
	executor.orch = module.Orchestrator
	return module
}

// localRelay feeds committed events straight into the catalog projection,
// standing in for the bus in single-process wiring.
type localRelay struct {
	catalog projections.Catalog
}

func (r *localRelay) Publish(ctx context.Context, event events.Event) error {
	return r.catalog.Handle(ctx, event)
}

type lateExecutor struct {
	orch *orchestrator.Orchestrator
}

func (e *lateExecutor) ExecuteRetry(ctx context.Context, command decider.Command, expectedVersion int64, attempt int) (decider.Result, error) {
	return e.orch.ExecuteRetry(ctx, command, expectedVersion, attempt)
}

// Apply is the event applier for the inventory stream type, exported for
// transactional store wiring.
var Apply = commands.Apply
