package saga

import (
	"context"
	"errors"
	"sync"
	"testing"

	"meridian/internal/engine/lifecycle"
	"meridian/internal/shared/deadletter"
	"meridian/internal/shared/events"
)

func TestStatusMachine(t *testing.T) {
	if _, err := StatusMachine.Transition(
		lifecycle.State(ExecutionRunning), lifecycle.State(ExecutionCompleted),
	); err != nil {
		t.Fatalf("running -> completed rejected: %v", err)
	}
	if _, err := StatusMachine.Transition(
		lifecycle.State(ExecutionCompleted), lifecycle.State(ExecutionRunning),
	); err == nil {
		t.Fatal("completed must be terminal")
	}
	if !StatusMachine.IsTerminal(lifecycle.State(ExecutionFailed)) {
		t.Fatal("failed must be terminal")
	}
}

func TestRegistryValidation(t *testing.T) {
	registry := NewRegistry()
	noop := func(current Saga, event events.Event) (Transition, error) {
		return Transition{Saga: current}, nil
	}
	acceptAll := func(events.Event) bool { return true }

	if err := registry.Register(Registration{Name: "on-order-submitted", Predicate: acceptAll, Handler: noop}); err != nil {
		t.Fatalf("valid registration rejected: %v", err)
	}
	if err := registry.Register(Registration{Name: "on-order-submitted", Predicate: acceptAll, Handler: noop}); !errors.Is(err, ErrDuplicateRegistration) {
		t.Fatalf("duplicate name error = %v", err)
	}
	if err := registry.Register(Registration{Name: "missing-predicate", Handler: noop}); !errors.Is(err, ErrInvalidRegistration) {
		t.Fatalf("missing predicate error = %v", err)
	}
	if err := registry.Register(Registration{Name: "", Predicate: acceptAll, Handler: noop}); !errors.Is(err, ErrInvalidRegistration) {
		t.Fatalf("missing name error = %v", err)
	}
}

func TestRegistryMatchFiltersByPredicate(t *testing.T) {
	registry := NewRegistry()
	noop := func(current Saga, event events.Event) (Transition, error) {
		return Transition{Saga: current}, nil
	}

	registry.MustRegister(Registration{
		Name:      "orders-only",
		Predicate: func(ev events.Event) bool { return ev.StreamType == "order" },
		Handler:   noop,
	})
	registry.MustRegister(Registration{
		Name:      "everything",
		Predicate: func(events.Event) bool { return true },
		Handler:   noop,
	})

	matched := registry.Match(events.Event{StreamType: "order"})
	if len(matched) != 2 {
		t.Fatalf("order event matched %d reactions, want 2", len(matched))
	}
	matched = registry.Match(events.Event{StreamType: "product"})
	if len(matched) != 1 || matched[0].Name != "everything" {
		t.Fatalf("product event matched %+v", matched)
	}
}

type memoryDeadLetters struct {
	mu      sync.Mutex
	records []deadletter.Record
	fail    bool
}

func (m *memoryDeadLetters) Append(_ context.Context, record deadletter.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("dead-letter store unavailable")
	}
	m.records = append(m.records, record)
	return nil
}

func TestCompleterHappyPath(t *testing.T) {
	completer := Completer{DeadLetters: &memoryDeadLetters{}}
	outcome := completer.Complete(context.Background(), "saga-1", func(context.Context) error {
		return nil
	})
	if !outcome.Completed || outcome.Err != nil || outcome.DeadLetter {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestCompleterWritesDeadLetterOnFailure(t *testing.T) {
	store := &memoryDeadLetters{}
	completer := Completer{DeadLetters: store}

	boom := errors.New("checkpoint store down")
	outcome := completer.Complete(context.Background(), "saga-2", func(context.Context) error {
		return boom
	})
	if outcome.Completed {
		t.Fatal("outcome must not report completed bookkeeping")
	}
	if !outcome.DeadLetter || !errors.Is(outcome.Err, boom) {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(store.records) != 1 || store.records[0].Subject != "saga-2" {
		t.Fatalf("dead letters = %+v", store.records)
	}
}

func TestCompleterSurvivesDeadLetterFailure(t *testing.T) {
	completer := Completer{DeadLetters: &memoryDeadLetters{fail: true}}
	outcome := completer.Complete(context.Background(), "saga-3", func(context.Context) error {
		return errors.New("bookkeeping failed")
	})
	// Even the fallback failed; the outcome is still terminal.
	if outcome.Completed || outcome.DeadLetter || outcome.Err == nil {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestCompleterCapturesPanic(t *testing.T) {
	store := &memoryDeadLetters{}
	completer := Completer{DeadLetters: store}
	outcome := completer.Complete(context.Background(), "saga-4", func(context.Context) error {
		panic("nil map write")
	})
	if outcome.Err == nil || !outcome.DeadLetter {
		t.Fatalf("outcome = %+v", outcome)
	}
}
