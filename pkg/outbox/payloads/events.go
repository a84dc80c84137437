package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderIngestedEvent signals a new order captured from a storefront platform.
type OrderIngestedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	ConnectionID    uuid.UUID `json:"connection_id"`
	OperatorID      uuid.UUID `json:"operator_id"`
	PlatformOrderID string    `json:"platform_order_id"`
	TotalPaise      int64     `json:"total_paise"`
}

// OrderWalletChargedEvent is emitted exactly once, when the wallet debit for
// an order succeeds.
type OrderWalletChargedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	OperatorID     uuid.UUID `json:"operator_id"`
	ChargePaise    int64     `json:"charge_paise"`
	TransactionRef string    `json:"transaction_ref"`
	ChargedAt      time.Time `json:"charged_at"`
}

// OrderAwaitingWalletEvent reports an order parked on insufficient balance.
type OrderAwaitingWalletEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OperatorID    uuid.UUID `json:"operator_id"`
	RequiredPaise int64     `json:"required_paise"`
	ShortagePaise int64     `json:"shortage_paise"`
}

// OrderDeliveredEvent marks the happy-path terminal state.
type OrderDeliveredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OperatorID  uuid.UUID `json:"operator_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// OrderReturnedEvent marks the return terminal state.
type OrderReturnedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	OperatorID uuid.UUID `json:"operator_id"`
	Reason     string    `json:"reason,omitempty"`
}

// OrderRTODeliveredEvent marks a return-to-origin shipment arriving back.
type OrderRTODeliveredEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	OperatorID uuid.UUID `json:"operator_id"`
}

// OrderFailedEvent marks the unrecoverable terminal state.
type OrderFailedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	OperatorID uuid.UUID `json:"operator_id"`
	Reason     string    `json:"reason,omitempty"`
}

// WalletCreditedEvent reports a top-up; the auto-resume consumer reacts to it.
type WalletCreditedEvent struct {
	OperatorID  uuid.UUID `json:"operator_id"`
	AmountPaise int64     `json:"amount_paise"`
	Reference   string    `json:"reference,omitempty"`
}
