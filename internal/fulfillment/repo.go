package fulfillment

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zenstore/zenstore-backend/pkg/db/models"
	"github.com/zenstore/zenstore-backend/pkg/enums"
	"github.com/zenstore/zenstore-backend/pkg/pagination"
)

// Repository manages persistence for orders. Status changes go through
// TransitionStatus, a compare-and-swap on the stored status that serializes
// transitions per order without database-level row locks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNaturalKey(ctx context.Context, connectionID uuid.UUID, platformOrderID string) (*models.Order, error)
	UpdateFields(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	ReplaceLineItems(ctx context.Context, orderID uuid.UUID, items []models.OrderLineItem) error
	TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to enums.ZenStatus, updates map[string]any) (bool, error)
	ListAwaitingWallet(ctx context.Context, operatorID uuid.UUID) ([]models.Order, error)
	ListOperatorsAwaitingWallet(ctx context.Context) ([]uuid.UUID, error)
	List(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindDetail(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Notes").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByNaturalKey(ctx context.Context, connectionID uuid.UUID, platformOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("connection_id = ? AND platform_order_id = ?", connectionID, platformOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateFields(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) ReplaceLineItems(ctx context.Context, orderID uuid.UUID, items []models.OrderLineItem) error {
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.OrderLineItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// TransitionStatus applies updates only if the stored status still equals
// from. It reports whether the swap happened; a false return means a
// concurrent transition won and the caller must reload.
func (r *repository) TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to enums.ZenStatus, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["zen_status"] = to
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND zen_status = ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListAwaitingWallet(ctx context.Context, operatorID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("operator_id = ? AND zen_status = ? AND shortage_paise > 0", operatorID, enums.ZenStatusAwaitingWallet).
		Order("created_at ASC").
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListOperatorsAwaitingWallet(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Distinct("operator_id").
		Where("zen_status = ? AND shortage_paise > 0", enums.ZenStatusAwaitingWallet).
		Pluck("operator_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Order{})

	if filters.OperatorID != nil {
		query = query.Where("operator_id = ?", *filters.OperatorID)
	}
	if filters.ZenStatus != nil {
		query = query.Where("zen_status = ?", *filters.ZenStatus)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var orders []models.Order
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	list := &OrderList{Orders: orders}
	if len(orders) > limit {
		list.Orders = orders[:limit]
		last := list.Orders[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}
