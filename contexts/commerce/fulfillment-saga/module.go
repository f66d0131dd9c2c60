// Package fulfillmentsaga wires the order fulfillment workflow: the reaction
// registry, the event-driven runner and the operator admin surface. The
// composition root supplies the command buses of the services this saga
// drives; this context never imports them.
package fulfillmentsaga

import (
	"context"
	"log/slog"
	"time"

	httpadapter "meridian/contexts/commerce/fulfillment-saga/adapters/http"
	"meridian/contexts/commerce/fulfillment-saga/application"
	"meridian/contexts/commerce/fulfillment-saga/ports"
	"meridian/internal/engine/saga"
	"meridian/internal/shared/deadletter"
)

type Module struct {
	Handler  httpadapter.Handler
	Runner   *application.Runner
	Admin    *application.Admin
	Registry *saga.Registry
}

type Dependencies struct {
	Sagas saga.Store
	// Buses routes commands by stream type to each owning service.
	Buses          map[string]ports.CommandBus
	DeadLetters    deadletter.Store
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	Metrics        application.Metrics
	ReservationTTL time.Duration
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) (Module, error) {
	registry, err := application.Reactions()
	if err != nil {
		return Module{}, err
	}

	completer := saga.Completer{
		DeadLetters: deps.DeadLetters,
		Logger:      deps.Logger,
	}
	if deps.Clock != nil {
		completer.Clock = deps.Clock.Now
	}
	if deps.IDGenerator != nil {
		completer.IDs = func(ctx context.Context) (string, error) {
			return deps.IDGenerator.NewID(ctx)
		}
	}

	runner := &application.Runner{
		Registry:       registry,
		Sagas:          deps.Sagas,
		Buses:          deps.Buses,
		Completer:      completer,
		Clock:          deps.Clock,
		Metrics:        deps.Metrics,
		ReservationTTL: deps.ReservationTTL,
		Logger:         deps.Logger,
	}
	admin := &application.Admin{
		Sagas:  deps.Sagas,
		Buses:  deps.Buses,
		Clock:  deps.Clock,
		Logger: deps.Logger,
	}
	return Module{
		Handler:  httpadapter.Handler{Admin: admin, Logger: deps.Logger},
		Runner:   runner,
		Admin:    admin,
		Registry: registry,
	}, nil
}

// NewInMemoryModule wires the workflow over memory stores. The caller still
// provides the command buses; those belong to the other contexts.
func NewInMemoryModule(buses map[string]ports.CommandBus, reservationTTL time.Duration, logger *slog.Logger) (Module, error) {
	return NewModule(Dependencies{
		Sagas:          saga.NewMemoryStore(),
		Buses:          buses,
		DeadLetters:    deadletter.NewMemoryStore(),
		ReservationTTL: reservationTTL,
		Logger:         logger,
	})
}
