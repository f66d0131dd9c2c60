package optimistic

import (
	"testing"
	"time"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestConvergedStatesAgree(t *testing.T) {
	opt := State{
		Position:      5,
		AppliedEvents: []AppliedEvent{{EventID: "evt-5", Position: 5}},
		CreatedAt:     baseTime,
	}
	dur := DurableState{Position: 5, LastEventID: "evt-5"}

	verdict := Detect(opt, dur, Options{MaxOptimisticAge: time.Minute, Now: baseTime})
	if verdict.HasConflict {
		t.Fatalf("converged states flagged: %+v", verdict)
	}
	if verdict.Resolution != ResolutionIgnore {
		t.Fatalf("resolution = %s, want ignore", verdict.Resolution)
	}
}

func TestConvergedPositionDifferentEventIsDivergent(t *testing.T) {
	opt := State{
		Position:      5,
		AppliedEvents: []AppliedEvent{{EventID: "evt-5-local", Position: 5}},
		CreatedAt:     baseTime,
	}
	dur := DurableState{Position: 5, LastEventID: "evt-5-server"}

	verdict := Detect(opt, dur, Options{MaxOptimisticAge: time.Minute, Now: baseTime})
	if !verdict.HasConflict || verdict.Type != ConflictDivergentBranch {
		t.Fatalf("verdict = %+v, want divergent_branch", verdict)
	}
	if verdict.Resolution != ResolutionRollback {
		t.Fatalf("resolution = %s, want rollback", verdict.Resolution)
	}
}

func TestOptimisticAheadIsPipelineLag(t *testing.T) {
	opt := State{
		Position: 7,
		AppliedEvents: []AppliedEvent{
			{EventID: "evt-6", Position: 6},
			{EventID: "evt-7", Position: 7},
		},
		CreatedAt: baseTime,
	}
	dur := DurableState{Position: 6, LastEventID: "evt-6"}

	verdict := Detect(opt, dur, Options{MaxOptimisticAge: time.Minute, Now: baseTime})
	if verdict.HasConflict {
		t.Fatalf("pipeline lag flagged: %+v", verdict)
	}
}

func TestOptimisticAheadUnknownServerEvent(t *testing.T) {
	opt := State{
		Position:      7,
		AppliedEvents: []AppliedEvent{{EventID: "evt-7", Position: 7}},
		CreatedAt:     baseTime,
	}
	dur := DurableState{Position: 6, LastEventID: "evt-6-foreign"}

	verdict := Detect(opt, dur, Options{MaxOptimisticAge: time.Minute, Now: baseTime})
	if !verdict.HasConflict || verdict.Type != ConflictDivergentBranch {
		t.Fatalf("verdict = %+v, want divergent_branch", verdict)
	}

	allowed := Detect(opt, dur, Options{MaxOptimisticAge: time.Minute, Now: baseTime, AllowDivergence: true})
	if allowed.HasConflict {
		t.Fatalf("allowDivergence should suppress conflict: %+v", allowed)
	}
}

func TestDurableAheadForcesResync(t *testing.T) {
	opt := State{Position: 3, CreatedAt: baseTime}
	dur := DurableState{Position: 9, LastEventID: "evt-9"}

	verdict := Detect(opt, dur, Options{Now: baseTime})
	if !verdict.HasConflict || verdict.Type != ConflictPositionMismatch {
		t.Fatalf("verdict = %+v, want position_mismatch", verdict)
	}
	if verdict.Resolution != ResolutionRollback {
		t.Fatalf("resolution = %s, want rollback", verdict.Resolution)
	}
}

func TestStaleOptimisticState(t *testing.T) {
	opt := State{
		Position:      7,
		AppliedEvents: []AppliedEvent{{EventID: "evt-7", Position: 7}},
		CreatedAt:     baseTime,
	}
	dur := DurableState{Position: 6, LastEventID: "evt-6"}

	verdict := Detect(opt, dur, Options{
		MaxOptimisticAge: 30 * time.Second,
		Now:              baseTime.Add(45 * time.Second),
	})
	if !verdict.HasConflict || verdict.Type != ConflictStaleOptimistic {
		t.Fatalf("verdict = %+v, want stale_optimistic", verdict)
	}

	// No pending events means staleness does not apply.
	quiet := Detect(State{Position: 6, CreatedAt: baseTime}, dur, Options{
		MaxOptimisticAge: 30 * time.Second,
		Now:              baseTime.Add(45 * time.Second),
	})
	if quiet.HasConflict {
		t.Fatalf("idle tracker flagged stale: %+v", quiet)
	}
}

func TestConvergedUnprunedHistoryNeverGoesStale(t *testing.T) {
	opt := State{
		Position:      5,
		AppliedEvents: []AppliedEvent{{EventID: "evt-5", Position: 5}},
		CreatedAt:     baseTime,
	}
	dur := DurableState{Position: 5, LastEventID: "evt-5"}

	verdict := Detect(opt, dur, Options{
		MaxOptimisticAge: 30 * time.Second,
		Now:              baseTime.Add(time.Hour),
	})
	if verdict.HasConflict {
		t.Fatalf("converged unpruned state flagged: %+v", verdict)
	}
	if verdict.Resolution != ResolutionIgnore {
		t.Fatalf("resolution = %s, want ignore", verdict.Resolution)
	}
}

func TestMergeDegradesToRollback(t *testing.T) {
	if got := Resolve(Verdict{Resolution: ResolutionMerge}); got != ResolutionRollback {
		t.Fatalf("merge resolved to %s, want rollback", got)
	}
	if got := Resolve(Verdict{Resolution: ResolutionIgnore}); got != ResolutionIgnore {
		t.Fatalf("ignore resolved to %s", got)
	}
}

func TestAppendRefreshesCreatedAtOnlyFromEmpty(t *testing.T) {
	start := baseTime
	later := baseTime.Add(10 * time.Minute)

	state := Append(State{}, AppliedEvent{EventID: "evt-1", Position: 1}, start)
	if !state.CreatedAt.Equal(start) {
		t.Fatalf("createdAt = %v, want %v", state.CreatedAt, start)
	}

	state = Append(state, AppliedEvent{EventID: "evt-2", Position: 2}, later)
	if !state.CreatedAt.Equal(start) {
		t.Fatal("appending onto pending events must not reset the staleness clock")
	}
	if state.Position != 2 {
		t.Fatalf("position = %d, want 2", state.Position)
	}
}

func TestPruneConfirmedEvents(t *testing.T) {
	state := State{
		Position: 8,
		AppliedEvents: []AppliedEvent{
			{EventID: "evt-6", Position: 6},
			{EventID: "evt-7", Position: 7},
			{EventID: "evt-8", Position: 8},
		},
		CreatedAt: baseTime,
	}

	pruned := Prune(state, DurableState{Position: 7, LastEventID: "evt-7"})
	if len(pruned.AppliedEvents) != 1 || pruned.AppliedEvents[0].EventID != "evt-8" {
		t.Fatalf("pruned events = %+v", pruned.AppliedEvents)
	}
}
