package notes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zenstore/zenstore-backend/pkg/db/models"
)

// Repository manages persistence for order notes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, note *models.OrderNote) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderNote, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a notes repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, note *models.OrderNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderNote, error) {
	var notes []models.OrderNote
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}
