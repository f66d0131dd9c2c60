package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"meridian/contexts/commerce/order-service/ports"

	"github.com/google/uuid"
)

// Store is the in-memory read model plus clock and id generation.
type Store struct {
	mu        sync.RWMutex
	summaries map[string]ports.SummaryView
}

func NewStore() *Store {
	return &Store{summaries: make(map[string]ports.SummaryView)}
}

func (s *Store) UpsertSummary(_ context.Context, view ports.SummaryView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[view.OrderID] = view
	return nil
}

func (s *Store) GetSummary(_ context.Context, orderID string) (ports.SummaryView, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view, ok := s.summaries[orderID]
	return view, ok, nil
}

func (s *Store) ListSummaries(_ context.Context, status string, limit int) ([]ports.SummaryView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var views []ports.SummaryView
	for _, view := range s.summaries {
		if status == "" || view.Status == status {
			views = append(views, view)
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].SubmittedAt.Before(views[j].SubmittedAt) })
	if len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
