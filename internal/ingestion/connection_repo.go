package ingestion

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zenstore/zenstore-backend/pkg/db/models"
)

// ConnectionRepository resolves storefront connections for inbound webhooks.
type ConnectionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.StoreConnection, error)
	Create(ctx context.Context, connection *models.StoreConnection) error
}

type connectionRepository struct {
	db *gorm.DB
}

func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.StoreConnection, error) {
	var connection models.StoreConnection
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&connection).Error
	if err != nil {
		return nil, err
	}
	return &connection, nil
}

func (r *connectionRepository) Create(ctx context.Context, connection *models.StoreConnection) error {
	return r.db.WithContext(ctx).Create(connection).Error
}
