package orderservice

import (
	"context"
	"log/slog"

	httpadapter "meridian/contexts/commerce/order-service/adapters/http"
	"meridian/contexts/commerce/order-service/adapters/memory"
	"meridian/contexts/commerce/order-service/application"
	"meridian/contexts/commerce/order-service/application/commands"
	"meridian/contexts/commerce/order-service/application/projections"
	"meridian/contexts/commerce/order-service/ports"
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
	Orchestrator *orchestrator.Orchestrator
	Projection   projections.Summary
	Store        *memory.Store
}

type Dependencies struct {
	States      orchestrator.StateRepository
	Committer   orchestrator.Committer
	Commands    orchestrator.CommandLog
	Publisher   orchestrator.EventPublisher
	Conflicts   orchestrator.ConflictHandler
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Metrics     orchestrator.Metrics
	ReadModel   ports.ReadModel
	Checkpoints checkpoint.Store
	Skips       projections.SkipCounter
	Logger      *slog.Logger
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
		Orchestrator: orch,
		ReadModel:    deps.ReadModel,
		Clock:        deps.Clock,
		IDGen:        deps.IDGenerator,
		Logger:       deps.Logger,
	}
	return Module{
		Handler:      httpadapter.Handler{Service: service, Logger: deps.Logger},
		Service:      service,
		Orchestrator: orch,
		Projection: projections.Summary{
			Checkpoints: checkpoint.Helper{Store: deps.Checkpoints, Logger: deps.Logger},
			ReadModel:   deps.ReadModel,
			Skips:       deps.Skips,
			Logger:      deps.Logger,
		},
	}
}

// NewInMemoryModule wires the service over in-memory collaborators.
func NewInMemoryModule(logger *slog.Logger) Module {
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
		Clock:       store,
		IDGenerator: store,
		ReadModel:   store,
		Checkpoints: checkpoint.NewMemoryStore(),
		Logger:      logger,
	})
	module.Store = store
	relay.summary = module.Projection
	executor.orch = module.Orchestrator
	return module
}

type localRelay struct {
	summary projections.Summary
}

func (r *localRelay) Publish(ctx context.Context, event events.Event) error {
	return r.summary.Handle(ctx, event)
}

type lateExecutor struct {
	orch *orchestrator.Orchestrator
}

func (e *lateExecutor) ExecuteRetry(ctx context.Context, command decider.Command, expectedVersion int64, attempt int) (decider.Result, error) {
	return e.orch.ExecuteRetry(ctx, command, expectedVersion, attempt)
}

// Apply is the event applier for the order stream type, exported for
// transactional store wiring.
var Apply = commands.Apply
