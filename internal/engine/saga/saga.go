// Package saga provides the durable cross-aggregate workflow runtime:
// saga records, the event-reaction registry, and the no-throw completion
// wrapper. Concrete sagas (e.g. order fulfillment) are defined by the
// services that own them.
package saga

import (
	"time"

	"meridian/internal/engine/decider"
	"meridian/internal/engine/lifecycle"
	"meridian/internal/shared/events"
)

// ExecutionStatus tracks whether the workflow machinery ran to termination.
// It is deliberately separate from BusinessOutcome: a saga that compensated
// cleanly still completed.
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	// ExecutionFailed is reserved for infrastructure-level workflow failure,
	// never for business rejection.
	ExecutionFailed ExecutionStatus = "failed"
)

// BusinessOutcome records what the workflow achieved for the business.
type BusinessOutcome string

const (
	OutcomeNone        BusinessOutcome = "none"
	OutcomeFulfilled   BusinessOutcome = "fulfilled"
	OutcomeCompensated BusinessOutcome = "compensated"
)

// StatusMachine validates execution status transitions.
var StatusMachine = lifecycle.New("saga", map[lifecycle.State][]lifecycle.State{
	lifecycle.State(ExecutionRunning): {
		lifecycle.State(ExecutionCompleted),
		lifecycle.State(ExecutionFailed),
	},
})

// Saga is one workflow instance, keyed by (SagaType, SagaID). Exactly one
// instance may exist per key; duplicate triggering is a no-op.
type Saga struct {
	SagaID          string
	SagaType        string
	ExecutionStatus ExecutionStatus
	BusinessOutcome BusinessOutcome
	WorkflowID      string
	SubmittedAt     time.Time
	// CompletedAt is set exactly once, when the workflow reaches a terminal
	// status. Invariant: SubmittedAt <= CompletedAt <= now.
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// IsTerminal reports whether the saga reached a terminal execution status.
func (s Saga) IsTerminal() bool {
	return StatusMachine.IsTerminal(lifecycle.State(s.ExecutionStatus))
}

// Step records one forward or compensating action issued by a saga, for the
// admin step-history operation.
type Step struct {
	SagaID      string
	StepName    string
	CommandID   string
	Kind        StepKind
	Status      StepStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Detail      string
}

// StepKind separates forward steps from compensations.
type StepKind string

const (
	StepForward      StepKind = "forward"
	StepCompensation StepKind = "compensation"
)

// StepStatus is the per-step outcome.
type StepStatus string

const (
	StepIssued    StepStatus = "issued"
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
)

// Transition is the output of a pure saga reaction: the next saga state and
// the commands to issue. Reactions never call out; the runner does the I/O.
type Transition struct {
	Saga     Saga
	Commands []decider.Command
	Steps    []Step
}

// Reaction is the pure state-transition function (sagaState, incomingEvent)
// -> (sagaState', outgoingCommands). It must be deterministic and free of
// side effects so the runner can safely re-deliver events.
type Reaction func(current Saga, event events.Event) (Transition, error)
