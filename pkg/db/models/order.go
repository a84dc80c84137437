package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/zenstore/zenstore-backend/pkg/enums"
	"github.com/zenstore/zenstore-backend/pkg/types"
)

// Order is the aggregate root tracking one storefront order and its internal
// fulfillment lifecycle. The (connection_id, platform_order_id) pair is the
// natural key that makes webhook replays idempotent.
type Order struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConnectionID uuid.UUID `gorm:"column:connection_id;type:uuid;not null;uniqueIndex:ux_orders_connection_platform_order,priority:1"`
	OperatorID   uuid.UUID `gorm:"column:operator_id;type:uuid;not null;index:ix_orders_operator_status,priority:1"`

	// Commerce snapshot, captured from the platform and overwritten only by
	// corrective updates from the same platform.
	PlatformOrderID         string         `gorm:"column:platform_order_id;not null;uniqueIndex:ux_orders_connection_platform_order,priority:2"`
	OrderNumber             string         `gorm:"column:order_number;not null"`
	CustomerName            *string        `gorm:"column:customer_name"`
	CustomerEmail           *string        `gorm:"column:customer_email"`
	CustomerPhone           *string        `gorm:"column:customer_phone"`
	ShippingAddress         *types.Address `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	Currency                enums.Currency `gorm:"column:currency;type:text;not null;default:'INR'"`
	SubtotalPaise           int64          `gorm:"column:subtotal_paise;not null"`
	TaxPaise                int64          `gorm:"column:tax_paise;not null;default:0"`
	ShippingPaise           int64          `gorm:"column:shipping_paise;not null;default:0"`
	TotalPaise              int64          `gorm:"column:total_paise;not null"`
	PlatformFinancialStatus string         `gorm:"column:platform_financial_status"`
	PlatformFulfillment     string         `gorm:"column:platform_fulfillment_status"`
	PlacedAt                *time.Time     `gorm:"column:placed_at"`

	// Fulfillment lifecycle, mutated only through the state machine.
	ZenStatus            enums.ZenStatus `gorm:"column:zen_status;type:zen_status;not null;default:'platform_native';index:ix_orders_operator_status,priority:2"`
	ProductCostPaise     int64           `gorm:"column:product_cost_paise;not null;default:0"`
	ShippingCostPaise    int64           `gorm:"column:shipping_cost_paise;not null;default:0"`
	ServiceFeePaise      int64           `gorm:"column:service_fee_paise;not null;default:0"`
	WalletChargePaise    int64           `gorm:"column:wallet_charge_paise;not null;default:0"`
	ChargedAt            *time.Time      `gorm:"column:charged_at"`
	WalletTransactionRef *string         `gorm:"column:wallet_transaction_ref"`
	ShortagePaise        int64           `gorm:"column:shortage_paise;not null;default:0;index:ix_orders_operator_status,priority:3"`
	CourierName          *string         `gorm:"column:courier_name"`
	TrackingNumber       *string         `gorm:"column:tracking_number"`
	AssigneeID           *uuid.UUID      `gorm:"column:assignee_id;type:uuid"`
	DeliveredAt          *time.Time      `gorm:"column:delivered_at"`

	Items []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Notes []OrderNote     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
