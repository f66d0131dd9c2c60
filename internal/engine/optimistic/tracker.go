package optimistic

import "time"

// Append records an optimistically applied event. CreatedAt is refreshed
// only on the transition from zero to one pending event, so long-idle
// trackers do not have their staleness clock reset by every append.
func Append(state State, event AppliedEvent, now time.Time) State {
	if len(state.AppliedEvents) == 0 {
		state.CreatedAt = now.UTC()
	}
	state.AppliedEvents = append(append([]AppliedEvent(nil), state.AppliedEvents...), event)
	if event.Position > state.Position {
		state.Position = event.Position
	}
	return state
}

// Prune drops applied events the durable projection has confirmed, keeping
// only those still ahead of the durable position.
func Prune(state State, durable DurableState) State {
	if len(state.AppliedEvents) == 0 {
		return state
	}
	remaining := make([]AppliedEvent, 0, len(state.AppliedEvents))
	for _, ev := range state.AppliedEvents {
		if ev.Position > durable.Position {
			remaining = append(remaining, ev)
		}
	}
	state.AppliedEvents = remaining
	return state
}
