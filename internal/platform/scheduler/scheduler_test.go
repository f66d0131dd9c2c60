package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestImmediateJobsKeepSubmissionOrder(t *testing.T) {
	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	const total = 20
	s := New(func(_ context.Context, payload []byte) error {
		mu.Lock()
		got = append(got, string(payload))
		if len(got) == total {
			close(done)
		}
		mu.Unlock()
		return nil
	}, discardLogger())
	defer s.Close()

	ctx := context.Background()
	for i := 0; i < total; i++ {
		if err := s.Schedule(ctx, "lane-a", 0, []byte(fmt.Sprintf("job-%02d", i))); err != nil {
			t.Fatalf("schedule job %d: %v", i, err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs not delivered in time")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, payload := range got {
		want := fmt.Sprintf("job-%02d", i)
		if payload != want {
			t.Fatalf("delivery %d = %s, want %s", i, payload, want)
		}
	}
}

func TestDelayedJobRunsAfterDelay(t *testing.T) {
	delivered := make(chan []byte, 1)
	s := New(func(_ context.Context, payload []byte) error {
		delivered <- payload
		return nil
	}, discardLogger())
	defer s.Close()

	start := time.Now()
	if err := s.Schedule(context.Background(), "lane-b", 20*time.Millisecond, []byte("later")); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	select {
	case payload := <-delivered:
		if string(payload) != "later" {
			t.Fatalf("payload = %s", payload)
		}
		if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
			t.Fatalf("job ran after %v, before its delay", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("delayed job never delivered")
	}
}

func TestScheduleAfterCloseDoesNotBlock(t *testing.T) {
	s := New(func(_ context.Context, _ []byte) error { return nil }, discardLogger())
	s.Close()

	done := make(chan error, 1)
	go func() {
		done <- s.Schedule(context.Background(), "lane-c", 0, []byte("x"))
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("schedule blocked after close")
	}
}
