// Package optimistic reconciles a client's speculative view of a read model
// against the authoritative durable projection.
package optimistic

import (
	"time"
)

// AppliedEvent is one optimistically applied event in client order.
type AppliedEvent struct {
	EventID  string `json:"event_id"`
	Position int64  `json:"position"`
}

// State is the client-held view of a projection's progress.
type State struct {
	Position      int64          `json:"position"`
	AppliedEvents []AppliedEvent `json:"applied_events"`
	CreatedAt     time.Time      `json:"created_at"`
}

// DurableState is the server-held view of the same projection.
type DurableState struct {
	Position    int64     `json:"position"`
	LastEventID string    `json:"last_event_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ConflictType classifies a detected divergence.
type ConflictType string

const (
	ConflictNone             ConflictType = ""
	ConflictStaleOptimistic  ConflictType = "stale_optimistic"
	ConflictDivergentBranch  ConflictType = "divergent_branch"
	ConflictPositionMismatch ConflictType = "position_mismatch"
)

// Resolution is the strategy the client should apply.
type Resolution string

const (
	ResolutionIgnore   Resolution = "ignore"
	ResolutionRollback Resolution = "rollback"
	// ResolutionMerge is reserved; Resolve degrades it to rollback.
	ResolutionMerge Resolution = "merge"
)

// Options tune detection.
type Options struct {
	MaxOptimisticAge time.Duration
	AllowDivergence  bool
	Now              time.Time
}

// Verdict is the detector outcome.
type Verdict struct {
	HasConflict bool         `json:"has_conflict"`
	Type        ConflictType `json:"type,omitempty"`
	Resolution  Resolution   `json:"resolution"`
	Detail      string       `json:"detail,omitempty"`
}

// Detect compares the optimistic and durable snapshots. Pure: the clock
// comes in through opts.
func Detect(optimistic State, durable DurableState, opts Options) Verdict {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// Only events the durable projection has not confirmed yet count as
	// pending; confirmed-but-unpruned history never goes stale.
	pending := false
	for _, ev := range optimistic.AppliedEvents {
		if ev.Position > durable.Position {
			pending = true
			break
		}
	}

	if pending && opts.MaxOptimisticAge > 0 && now.Sub(optimistic.CreatedAt) > opts.MaxOptimisticAge {
		return Verdict{
			HasConflict: true,
			Type:        ConflictStaleOptimistic,
			Resolution:  ResolutionRollback,
			Detail:      "unconfirmed optimistic events exceeded max age",
		}
	}

	switch {
	case optimistic.Position == durable.Position:
		// Same position with different last events is always suspicious.
		if len(optimistic.AppliedEvents) > 0 && durable.LastEventID != "" {
			last := optimistic.AppliedEvents[len(optimistic.AppliedEvents)-1]
			if last.EventID != durable.LastEventID {
				return Verdict{
					HasConflict: true,
					Type:        ConflictDivergentBranch,
					Resolution:  ResolutionRollback,
					Detail:      "equal position but last event ids differ",
				}
			}
		}
		return Verdict{Resolution: ResolutionIgnore}

	case optimistic.Position > durable.Position:
		// Normal pipeline lag, unless the server committed an event the
		// client never saw.
		if durable.LastEventID != "" && !containsEvent(optimistic.AppliedEvents, durable.LastEventID) {
			if opts.AllowDivergence {
				return Verdict{Resolution: ResolutionIgnore, Detail: "divergence allowed by options"}
			}
			return Verdict{
				HasConflict: true,
				Type:        ConflictDivergentBranch,
				Resolution:  ResolutionRollback,
				Detail:      "durable last event is absent from optimistic history",
			}
		}
		return Verdict{Resolution: ResolutionIgnore}

	default:
		// The client missed events and must resync from durable state.
		return Verdict{
			HasConflict: true,
			Type:        ConflictPositionMismatch,
			Resolution:  ResolutionRollback,
			Detail:      "durable projection is ahead of optimistic state",
		}
	}
}

// Resolve normalizes a verdict's resolution for application: merge is not
// implemented yet and degrades to rollback.
func Resolve(verdict Verdict) Resolution {
	if verdict.Resolution == ResolutionMerge {
		return ResolutionRollback
	}
	return verdict.Resolution
}

func containsEvent(applied []AppliedEvent, eventID string) bool {
	for _, ev := range applied {
		if ev.EventID == eventID {
			return true
		}
	}
	return false
}
