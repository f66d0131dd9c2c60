package dcb

import "testing"

func TestBackoffSequenceIsDeterministic(t *testing.T) {
	policy := BackoffPolicy{InitialMs: 100, Base: 2, MaxMs: 30_000, MaxAttempts: 12}

	want := []int64{100, 200, 400, 800}
	for attempt, expected := range want {
		if got := policy.DelayMs(attempt); got != expected {
			t.Fatalf("attempt %d: delay = %d, want %d", attempt, got, expected)
		}
	}

	// Re-computing the same attempt must yield the same value.
	if policy.DelayMs(3) != policy.DelayMs(3) {
		t.Fatal("delay must be reproducible for the same attempt")
	}
}

func TestBackoffCap(t *testing.T) {
	policy := BackoffPolicy{InitialMs: 100, Base: 2, MaxMs: 30_000, MaxAttempts: 64}

	if got := policy.DelayMs(10); got != 30_000 {
		t.Fatalf("attempt 10: delay = %d, want cap 30000", got)
	}
	// Far past any representable float growth the cap still holds.
	if got := policy.DelayMs(4000); got != 30_000 {
		t.Fatalf("attempt 4000: delay = %d, want cap 30000", got)
	}
}

func TestBackoffNegativeAttemptClamped(t *testing.T) {
	policy := BackoffPolicy{InitialMs: 100, Base: 2, MaxMs: 30_000, MaxAttempts: 5}
	if got := policy.DelayMs(-3); got != 100 {
		t.Fatalf("negative attempt: delay = %d, want 100", got)
	}
}

func TestPartitionKeyShape(t *testing.T) {
	if got := PartitionKey("acme", "product", "prod-1"); got != "dcb:acme:product:prod-1" {
		t.Fatalf("partition key = %q", got)
	}
	if got := PartitionKey("", "order", "ord-9"); got != "dcb:default:order:ord-9" {
		t.Fatalf("partition key with empty tenant = %q", got)
	}
}
