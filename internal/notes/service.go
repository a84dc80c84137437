package notes

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zenstore/zenstore-backend/pkg/db/models"
)

// Service is the append-only audit trail on orders. Every automatic
// settlement decision and every manual operator annotation lands here; prior
// entries are never edited or removed.
type Service interface {
	Append(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, authorID *uuid.UUID, content string) (*models.OrderNote, error)
	List(ctx context.Context, orderID uuid.UUID) ([]models.OrderNote, error)
}

type service struct {
	repo Repository
}

// NewService wires a notes service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notes repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Append(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, authorID *uuid.UUID, content string) (*models.OrderNote, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("note content is required")
	}

	note := &models.OrderNote{
		ID:       uuid.New(),
		OrderID:  orderID,
		AuthorID: authorID,
		Content:  content,
	}
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	if err := repo.Create(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *service) List(ctx context.Context, orderID uuid.UUID) ([]models.OrderNote, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	return s.repo.ListByOrderID(ctx, orderID)
}
