package ingestion

import (
	"time"

	"github.com/zenstore/zenstore-backend/pkg/types"
)

// InboundLineItem is one order line as reported by the storefront platform.
type InboundLineItem struct {
	PlatformProductID string  `json:"platform_product_id" validate:"required"`
	PlatformVariantID *string `json:"platform_variant_id"`
	Title             string  `json:"title" validate:"required"`
	Qty               int     `json:"qty" validate:"required,gt=0"`
	UnitPricePaise    int64   `json:"unit_price_paise" validate:"gte=0"`
}

// InboundOrder is the normalized webhook body for an order create or update.
// The same shape arrives for both; the natural key decides which path runs.
type InboundOrder struct {
	PlatformOrderID         string            `json:"platform_order_id" validate:"required"`
	OrderNumber             string            `json:"order_number" validate:"required"`
	CustomerName            *string           `json:"customer_name"`
	CustomerEmail           *string           `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone           *string           `json:"customer_phone"`
	ShippingAddress         *types.Address    `json:"shipping_address"`
	Currency                string            `json:"currency" validate:"required"`
	SubtotalPaise           int64             `json:"subtotal_paise" validate:"gte=0"`
	TaxPaise                int64             `json:"tax_paise" validate:"gte=0"`
	ShippingPaise           int64             `json:"shipping_paise" validate:"gte=0"`
	TotalPaise              int64             `json:"total_paise" validate:"gte=0"`
	PlatformFinancialStatus string            `json:"platform_financial_status"`
	PlatformFulfillment     string            `json:"platform_fulfillment_status"`
	PlacedAt                *time.Time        `json:"placed_at"`
	Items                   []InboundLineItem `json:"items" validate:"dive"`
}
