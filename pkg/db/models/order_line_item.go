package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem is one line of the commerce snapshot.
type OrderLineItem struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	PlatformProductID string    `gorm:"column:platform_product_id;not null"`
	PlatformVariantID *string   `gorm:"column:platform_variant_id"`
	Title             string    `gorm:"column:title;not null"`
	Qty               int       `gorm:"column:qty;not null"`
	UnitPricePaise    int64     `gorm:"column:unit_price_paise;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
}
