package checkpoint

import (
	"context"
	"errors"
	"testing"
)

func TestApplyProcessesThenSkipsReplay(t *testing.T) {
	store := NewMemoryStore()
	helper := Helper{Store: store}
	ctx := context.Background()

	applied := 0
	process := func(context.Context) error {
		applied++
		return nil
	}

	outcome, err := helper.Apply(ctx, "order_summary", "ord-1", 10, "evt-10", process)
	if err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	if outcome != OutcomeProcessed {
		t.Fatalf("first apply outcome = %s", outcome)
	}

	// Redelivery at the same position is a no-op.
	outcome, err = helper.Apply(ctx, "order_summary", "ord-1", 10, "evt-10", process)
	if err != nil {
		t.Fatalf("replay apply failed: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Fatalf("replay outcome = %s, want skipped", outcome)
	}

	// An older position during catch-up replay is also skipped.
	outcome, _ = helper.Apply(ctx, "order_summary", "ord-1", 7, "evt-7", process)
	if outcome != OutcomeSkipped {
		t.Fatalf("stale outcome = %s, want skipped", outcome)
	}

	if applied != 1 {
		t.Fatalf("process ran %d times, want 1", applied)
	}

	// A higher position always processes.
	outcome, err = helper.Apply(ctx, "order_summary", "ord-1", 11, "evt-11", process)
	if err != nil || outcome != OutcomeProcessed {
		t.Fatalf("advance apply = (%s, %v)", outcome, err)
	}
	if applied != 2 {
		t.Fatalf("process ran %d times, want 2", applied)
	}
}

func TestApplyFailureLeavesCheckpointUnmoved(t *testing.T) {
	store := NewMemoryStore()
	helper := Helper{Store: store}
	ctx := context.Background()

	boom := errors.New("projection write failed")
	if _, err := helper.Apply(ctx, "order_summary", "ord-2", 5, "evt-5", func(context.Context) error {
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("apply error = %v, want %v", err, boom)
	}

	// A later retry at the same position must re-attempt process.
	outcome, err := helper.Apply(ctx, "order_summary", "ord-2", 5, "evt-5", func(context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("retry apply failed: %v", err)
	}
	if outcome != OutcomeProcessed {
		t.Fatalf("retry outcome = %s, want processed", outcome)
	}
}

func TestPartitionsAdvanceIndependently(t *testing.T) {
	store := NewMemoryStore()
	helper := Helper{Store: store}
	ctx := context.Background()

	noop := func(context.Context) error { return nil }

	if outcome, _ := helper.Apply(ctx, "order_summary", "ord-a", 50, "evt-50", noop); outcome != OutcomeProcessed {
		t.Fatalf("ord-a outcome = %s", outcome)
	}
	// A lower position on a different partition still processes.
	if outcome, _ := helper.Apply(ctx, "order_summary", "ord-b", 3, "evt-3", noop); outcome != OutcomeProcessed {
		t.Fatalf("ord-b outcome = %s", outcome)
	}
	// Different projections keep separate cursors too.
	if outcome, _ := helper.Apply(ctx, "inventory_view", "ord-a", 50, "evt-50", noop); outcome != OutcomeProcessed {
		t.Fatalf("inventory_view outcome = %s", outcome)
	}
}
