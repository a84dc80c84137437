package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/zenstore/zenstore-backend/pkg/enums"
)

// WalletTransaction is an immutable row recording one balance movement. The
// unique idempotency key is what makes a retried debit return the original
// outcome instead of charging twice.
type WalletTransaction struct {
	ID             uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OperatorID     uuid.UUID                   `gorm:"column:operator_id;type:uuid;not null;index"`
	Type           enums.WalletTransactionType `gorm:"column:type;type:wallet_transaction_type;not null"`
	AmountPaise    int64                       `gorm:"column:amount_paise;not null"`
	IdempotencyKey *string                     `gorm:"column:idempotency_key;uniqueIndex:ux_wallet_transactions_idempotency_key"`
	Reference      string                      `gorm:"column:reference;not null"`
	CreatedAt      time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
