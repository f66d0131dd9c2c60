package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"meridian/contexts/commerce/inventory-service/domain/entities"
	"meridian/contexts/commerce/inventory-service/ports"

	"github.com/google/uuid"
)

// Store is the in-memory read model plus clock and id generation, used by
// tests and the local runtime.
type Store struct {
	mu           sync.RWMutex
	products     map[string]ports.ProductView
	reservations map[string]ports.ReservationView
}

func NewStore() *Store {
	return &Store{
		products:     make(map[string]ports.ProductView),
		reservations: make(map[string]ports.ReservationView),
	}
}

func (s *Store) UpsertProduct(_ context.Context, view ports.ProductView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[view.ProductID] = view
	return nil
}

func (s *Store) GetProduct(_ context.Context, productID string) (ports.ProductView, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view, ok := s.products[productID]
	return view, ok, nil
}

func (s *Store) ListProducts(_ context.Context, warehouseID string) ([]ports.ProductView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var views []ports.ProductView
	for _, view := range s.products {
		if view.WarehouseID == warehouseID {
			views = append(views, view)
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].SKU < views[j].SKU })
	return views, nil
}

func (s *Store) UpsertReservation(_ context.Context, view ports.ReservationView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations[view.ReservationID] = view
	return nil
}

func (s *Store) GetReservation(_ context.Context, reservationID string) (ports.ReservationView, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view, ok := s.reservations[reservationID]
	return view, ok, nil
}

func (s *Store) ListExpiredPending(_ context.Context, now time.Time, limit int) ([]ports.ReservationView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var views []ports.ReservationView
	for _, view := range s.reservations {
		if view.Status == entities.ReservationPending && view.ExpiresAt.Before(now) {
			views = append(views, view)
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ExpiresAt.Before(views[j].ExpiresAt) })
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
