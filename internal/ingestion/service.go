package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zenstore/zenstore-backend/internal/fulfillment"
	"github.com/zenstore/zenstore-backend/pkg/db"
	"github.com/zenstore/zenstore-backend/pkg/db/models"
	"github.com/zenstore/zenstore-backend/pkg/enums"
	pkgerrors "github.com/zenstore/zenstore-backend/pkg/errors"
	"github.com/zenstore/zenstore-backend/pkg/logger"
	"github.com/zenstore/zenstore-backend/pkg/outbox"
	"github.com/zenstore/zenstore-backend/pkg/outbox/payloads"
)

// ServiceParams wire the ingestion service.
type ServiceParams struct {
	DB          *db.Client
	Orders      fulfillment.Repository
	Connections ConnectionRepository
	Outbox      *outbox.Service
	Logger      *logger.Logger
}

// Service captures storefront webhook orders. Ingestion is idempotent on the
// (connection, platform order id) natural key: a replayed create becomes an
// update, and updates only ever touch the commerce snapshot, never the
// fulfillment lifecycle or the recorded wallet charge.
type Service struct {
	dbc         *db.Client
	orders      fulfillment.Repository
	connections ConnectionRepository
	outbox      *outbox.Service
	logg        *logger.Logger
}

// NewService validates dependencies and builds the service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Connections == nil {
		return nil, fmt.Errorf("connections repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		dbc:         params.DB,
		orders:      params.Orders,
		connections: params.Connections,
		outbox:      params.Outbox,
		logg:        params.Logger,
	}, nil
}

// Ingest upserts one inbound order. It reports whether a new order row was
// created; false means the payload refreshed an existing snapshot.
func (s *Service) Ingest(ctx context.Context, connectionID uuid.UUID, inbound InboundOrder) (*models.Order, bool, error) {
	connection, err := s.connections.FindByID(ctx, connectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, "store connection not found")
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading store connection")
	}
	if !connection.Active {
		return nil, false, pkgerrors.New(pkgerrors.CodeConflict, "store connection is inactive")
	}

	currency, err := enums.ParseCurrency(inbound.Currency)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
	}

	existing, err := s.orders.FindByNaturalKey(ctx, connection.ID, inbound.PlatformOrderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up order")
	}
	if existing != nil {
		if err := s.refreshSnapshot(ctx, existing, inbound, currency); err != nil {
			return nil, false, err
		}
		refreshed, err := s.orders.FindByID(ctx, existing.ID)
		if err != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading order")
		}
		return refreshed, false, nil
	}

	order, err := s.createOrder(ctx, connection, inbound, currency)
	if err != nil {
		// A concurrent webhook delivery may have inserted the row first.
		if db.IsUniqueViolation(err, "ux_orders_connection_platform_order") {
			winner, findErr := s.orders.FindByNaturalKey(ctx, connection.ID, inbound.PlatformOrderID)
			if findErr != nil {
				return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, findErr, "resolving concurrent ingest")
			}
			if err := s.refreshSnapshot(ctx, winner, inbound, currency); err != nil {
				return nil, false, err
			}
			return winner, false, nil
		}
		return nil, false, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":          order.ID.String(),
		"connection_id":     connection.ID.String(),
		"platform_order_id": inbound.PlatformOrderID,
	}), "order ingested")
	return order, true, nil
}

func (s *Service) createOrder(ctx context.Context, connection *models.StoreConnection, inbound InboundOrder, currency enums.Currency) (*models.Order, error) {
	order := &models.Order{
		ID:                      uuid.New(),
		ConnectionID:            connection.ID,
		OperatorID:              connection.OperatorID,
		PlatformOrderID:         inbound.PlatformOrderID,
		OrderNumber:             inbound.OrderNumber,
		CustomerName:            inbound.CustomerName,
		CustomerEmail:           inbound.CustomerEmail,
		CustomerPhone:           inbound.CustomerPhone,
		ShippingAddress:         inbound.ShippingAddress,
		Currency:                currency,
		SubtotalPaise:           inbound.SubtotalPaise,
		TaxPaise:                inbound.TaxPaise,
		ShippingPaise:           inbound.ShippingPaise,
		TotalPaise:              inbound.TotalPaise,
		PlatformFinancialStatus: inbound.PlatformFinancialStatus,
		PlatformFulfillment:     inbound.PlatformFulfillment,
		PlacedAt:                inbound.PlacedAt,
		ZenStatus:               enums.ZenStatusPlatformNative,
	}

	err := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		if _, err := repo.Create(ctx, order); err != nil {
			return err
		}
		if err := repo.CreateLineItems(ctx, lineItems(order.ID, inbound.Items)); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderIngested,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderIngestedEvent{
				OrderID:         order.ID,
				ConnectionID:    connection.ID,
				OperatorID:      connection.OperatorID,
				PlatformOrderID: inbound.PlatformOrderID,
				TotalPaise:      inbound.TotalPaise,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// refreshSnapshot overwrites the commerce snapshot wholesale. Lifecycle and
// settlement columns are not in the update set and cannot be touched here.
func (s *Service) refreshSnapshot(ctx context.Context, existing *models.Order, inbound InboundOrder, currency enums.Currency) error {
	updates := map[string]any{
		"order_number":                inbound.OrderNumber,
		"customer_name":               inbound.CustomerName,
		"customer_email":              inbound.CustomerEmail,
		"customer_phone":              inbound.CustomerPhone,
		"currency":                    currency,
		"subtotal_paise":              inbound.SubtotalPaise,
		"tax_paise":                   inbound.TaxPaise,
		"shipping_paise":              inbound.ShippingPaise,
		"total_paise":                 inbound.TotalPaise,
		"platform_financial_status":   inbound.PlatformFinancialStatus,
		"platform_fulfillment_status": inbound.PlatformFulfillment,
		"placed_at":                   inbound.PlacedAt,
	}
	if inbound.ShippingAddress != nil {
		updates["shipping_address"] = inbound.ShippingAddress
	}

	err := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		if err := repo.UpdateFields(ctx, existing.ID, updates); err != nil {
			return err
		}
		return repo.ReplaceLineItems(ctx, existing.ID, lineItems(existing.ID, inbound.Items))
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refreshing order snapshot")
	}

	s.logg.Info(s.logg.WithField(ctx, "order_id", existing.ID.String()), "order snapshot refreshed")
	return nil
}

func lineItems(orderID uuid.UUID, inbound []InboundLineItem) []models.OrderLineItem {
	items := make([]models.OrderLineItem, 0, len(inbound))
	for _, item := range inbound {
		items = append(items, models.OrderLineItem{
			ID:                uuid.New(),
			OrderID:           orderID,
			PlatformProductID: item.PlatformProductID,
			PlatformVariantID: item.PlatformVariantID,
			Title:             item.Title,
			Qty:               item.Qty,
			UnitPricePaise:    item.UnitPricePaise,
		})
	}
	return items
}
