package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"meridian/contexts/commerce/inventory-service/domain/entities"
	"meridian/contexts/commerce/inventory-service/ports"
)

type productRow struct {
	ProductID         string `gorm:"primaryKey;size:128"`
	WarehouseID       string `gorm:"size:128;index"`
	SKU               string `gorm:"size:128;index"`
	Name              string `gorm:"size:256"`
	AvailableQuantity int64
	ReservedQuantity  int64
	UpdatedAt         time.Time
}

func (productRow) TableName() string { return "inventory_products" }

type reservationRow struct {
	ReservationID string    `gorm:"primaryKey;size:128"`
	WarehouseID   string    `gorm:"size:128;index"`
	OrderID       string    `gorm:"size:128;index"`
	Items         []byte    `gorm:"type:jsonb"`
	Status        string    `gorm:"size:32;index"`
	ExpiresAt     time.Time `gorm:"index"`
	UpdatedAt     time.Time
}

func (reservationRow) TableName() string { return "inventory_reservations" }

// Store is the gorm-backed read model.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&productRow{}, &reservationRow{}); err != nil {
		return nil, fmt.Errorf("migrate inventory read model: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) UpsertProduct(ctx context.Context, view ports.ProductView) error {
	row := productRow{
		ProductID:         view.ProductID,
		WarehouseID:       view.WarehouseID,
		SKU:               view.SKU,
		Name:              view.Name,
		AvailableQuantity: view.AvailableQuantity,
		ReservedQuantity:  view.ReservedQuantity,
		UpdatedAt:         view.UpdatedAt,
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"available_quantity", "reserved_quantity", "name", "updated_at"}),
	}).Create(&row).Error
}

func (s *Store) GetProduct(ctx context.Context, productID string) (ports.ProductView, bool, error) {
	var row productRow
	err := s.DB.WithContext(ctx).Where("product_id = ?", productID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ports.ProductView{}, false, nil
	}
	if err != nil {
		return ports.ProductView{}, false, fmt.Errorf("load product view: %w", err)
	}
	return productFromRow(row), true, nil
}

func (s *Store) ListProducts(ctx context.Context, warehouseID string) ([]ports.ProductView, error) {
	var rows []productRow
	err := s.DB.WithContext(ctx).
		Where("warehouse_id = ?", warehouseID).
		Order("sku ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list product views: %w", err)
	}
	views := make([]ports.ProductView, 0, len(rows))
	for _, row := range rows {
		views = append(views, productFromRow(row))
	}
	return views, nil
}

func (s *Store) UpsertReservation(ctx context.Context, view ports.ReservationView) error {
	items, err := json.Marshal(view.Items)
	if err != nil {
		return fmt.Errorf("encode reservation items: %w", err)
	}
	row := reservationRow{
		ReservationID: view.ReservationID,
		WarehouseID:   view.WarehouseID,
		OrderID:       view.OrderID,
		Items:         items,
		Status:        view.Status,
		ExpiresAt:     view.ExpiresAt,
		UpdatedAt:     view.UpdatedAt,
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reservation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&row).Error
}

func (s *Store) GetReservation(ctx context.Context, reservationID string) (ports.ReservationView, bool, error) {
	var row reservationRow
	err := s.DB.WithContext(ctx).Where("reservation_id = ?", reservationID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ports.ReservationView{}, false, nil
	}
	if err != nil {
		return ports.ReservationView{}, false, fmt.Errorf("load reservation view: %w", err)
	}
	view, err := reservationFromRow(row)
	if err != nil {
		return ports.ReservationView{}, false, err
	}
	return view, true, nil
}

func (s *Store) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]ports.ReservationView, error) {
	var rows []reservationRow
	err := s.DB.WithContext(ctx).
		Where("status = ? AND expires_at < ?", entities.ReservationPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	views := make([]ports.ReservationView, 0, len(rows))
	for _, row := range rows {
		view, err := reservationFromRow(row)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func productFromRow(row productRow) ports.ProductView {
	return ports.ProductView{
		WarehouseID:       row.WarehouseID,
		ProductID:         row.ProductID,
		SKU:               row.SKU,
		Name:              row.Name,
		AvailableQuantity: row.AvailableQuantity,
		ReservedQuantity:  row.ReservedQuantity,
		UpdatedAt:         row.UpdatedAt,
	}
}

func reservationFromRow(row reservationRow) (ports.ReservationView, error) {
	var items []entities.ReservationItem
	if len(row.Items) > 0 {
		if err := json.Unmarshal(row.Items, &items); err != nil {
			return ports.ReservationView{}, fmt.Errorf("decode reservation items: %w", err)
		}
	}
	return ports.ReservationView{
		WarehouseID:   row.WarehouseID,
		ReservationID: row.ReservationID,
		OrderID:       row.OrderID,
		Items:         items,
		Status:        row.Status,
		ExpiresAt:     row.ExpiresAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}
