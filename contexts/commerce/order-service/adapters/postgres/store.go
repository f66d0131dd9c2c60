package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"meridian/contexts/commerce/order-service/ports"
	contractsv1 "meridian/contracts/gen/events/v1"
)

type summaryRow struct {
	OrderID       string `gorm:"primaryKey;size:128"`
	CustomerID    string `gorm:"size:128;index"`
	Items         []byte `gorm:"type:jsonb"`
	Status        string `gorm:"size:32;index"`
	ReservationID string `gorm:"size:128"`
	CancelReason  string `gorm:"type:text"`
	ItemCount     int64
	SubmittedAt   time.Time `gorm:"index"`
	UpdatedAt     time.Time
}

func (summaryRow) TableName() string { return "order_summaries" }

// Store is the gorm-backed order summary read model.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&summaryRow{}); err != nil {
		return nil, fmt.Errorf("migrate order read model: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) UpsertSummary(ctx context.Context, view ports.SummaryView) error {
	items, err := json.Marshal(view.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}
	row := summaryRow{
		OrderID:       view.OrderID,
		CustomerID:    view.CustomerID,
		Items:         items,
		Status:        view.Status,
		ReservationID: view.ReservationID,
		CancelReason:  view.CancelReason,
		ItemCount:     view.ItemCount,
		SubmittedAt:   view.SubmittedAt,
		UpdatedAt:     view.UpdatedAt,
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "reservation_id", "cancel_reason", "updated_at"}),
	}).Create(&row).Error
}

func (s *Store) GetSummary(ctx context.Context, orderID string) (ports.SummaryView, bool, error) {
	var row summaryRow
	err := s.DB.WithContext(ctx).Where("order_id = ?", orderID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ports.SummaryView{}, false, nil
	}
	if err != nil {
		return ports.SummaryView{}, false, fmt.Errorf("load order summary: %w", err)
	}
	view, err := fromRow(row)
	if err != nil {
		return ports.SummaryView{}, false, err
	}
	return view, true, nil
}

func (s *Store) ListSummaries(ctx context.Context, status string, limit int) ([]ports.SummaryView, error) {
	query := s.DB.WithContext(ctx).Model(&summaryRow{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var rows []summaryRow
	if err := query.Order("submitted_at ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list order summaries: %w", err)
	}
	views := make([]ports.SummaryView, 0, len(rows))
	for _, row := range rows {
		view, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func fromRow(row summaryRow) (ports.SummaryView, error) {
	var items []contractsv1.OrderItem
	if len(row.Items) > 0 {
		if err := json.Unmarshal(row.Items, &items); err != nil {
			return ports.SummaryView{}, fmt.Errorf("decode order items: %w", err)
		}
	}
	return ports.SummaryView{
		OrderID:       row.OrderID,
		CustomerID:    row.CustomerID,
		Items:         items,
		Status:        row.Status,
		ReservationID: row.ReservationID,
		CancelReason:  row.CancelReason,
		ItemCount:     row.ItemCount,
		SubmittedAt:   row.SubmittedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}
