package models

import (
	"time"

	"github.com/google/uuid"
)

// StoreConnection links a storefront platform shop to the operator who runs
// it. Orders ingested from the shop's webhooks are keyed against this row.
type StoreConnection struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OperatorID uuid.UUID `gorm:"column:operator_id;type:uuid;not null;index"`
	Platform   string    `gorm:"column:platform;not null"`
	ShopDomain string    `gorm:"column:shop_domain;not null;uniqueIndex"`
	Active     bool      `gorm:"column:active;not null;default:true"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
