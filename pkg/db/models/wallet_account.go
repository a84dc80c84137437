package models

import (
	"time"

	"github.com/google/uuid"
)

// WalletAccount holds a store operator's prepaid spendable balance. The
// balance is only ever moved through the ledger's debit/credit operations,
// never read-then-written by callers.
type WalletAccount struct {
	OperatorID   uuid.UUID `gorm:"column:operator_id;type:uuid;primaryKey"`
	BalancePaise int64     `gorm:"column:balance_paise;not null;default:0"`
	Currency     string    `gorm:"column:currency;not null;default:'INR'"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
