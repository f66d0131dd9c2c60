package lifecycle

import (
	"errors"
	"testing"
)

func reservationMachine() *Machine {
	return New("reservation", map[State][]State{
		"pending":   {"confirmed", "released", "expired"},
		"confirmed": {"released"},
	})
}

func TestTransitionTable(t *testing.T) {
	machine := reservationMachine()

	cases := []struct {
		from, to State
		allowed  bool
	}{
		{"pending", "confirmed", true},
		{"pending", "released", true},
		{"pending", "expired", true},
		{"confirmed", "released", true},
		{"confirmed", "confirmed", false},
		{"confirmed", "expired", false},
		{"released", "pending", false},
		{"expired", "released", false},
		{"unknown", "pending", false},
	}

	for _, tc := range cases {
		got, err := machine.Transition(tc.from, tc.to)
		if tc.allowed {
			if err != nil {
				t.Fatalf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
			}
			if got != tc.to {
				t.Fatalf("%s -> %s: got state %s", tc.from, tc.to, got)
			}
			continue
		}
		if err == nil {
			t.Fatalf("%s -> %s: expected rejection", tc.from, tc.to)
		}
		var invalid *InvalidTransitionError
		if !errors.As(err, &invalid) {
			t.Fatalf("%s -> %s: expected InvalidTransitionError, got %v", tc.from, tc.to, err)
		}
		if got != tc.from {
			t.Fatalf("%s -> %s: state must not change on rejection, got %s", tc.from, tc.to, got)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	machine := reservationMachine()

	if machine.IsTerminal("pending") || machine.IsTerminal("confirmed") {
		t.Fatal("pending and confirmed must have outgoing transitions")
	}
	if !machine.IsTerminal("released") || !machine.IsTerminal("expired") {
		t.Fatal("released and expired must be terminal")
	}
}

func TestTargetsSorted(t *testing.T) {
	machine := reservationMachine()
	targets := machine.Targets("pending")
	want := []State{"confirmed", "expired", "released"}
	if len(targets) != len(want) {
		t.Fatalf("targets = %v", targets)
	}
	for i := range want {
		if targets[i] != want[i] {
			t.Fatalf("targets = %v, want %v", targets, want)
		}
	}
}
