package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/zenstore/zenstore-backend/pkg/db/models"
)

// NoChargeRef is the transaction reference recorded for fully discounted
// orders. A zero-amount debit still goes through the ledger so the audit
// trail stays uniform.
const NoChargeRef = "no-charge"

var (
	// ErrUnavailable marks a transient ledger failure where the debit was
	// provably never attempted. Callers may retry the whole operation.
	ErrUnavailable = errors.New("wallet ledger unavailable")

	// ErrDebitNotFound is returned by FindDebit when no debit was recorded
	// under the idempotency key.
	ErrDebitNotFound = errors.New("no debit recorded for idempotency key")
)

// DebitStatus is the outcome the ledger reports for a debit attempt.
type DebitStatus string

const (
	DebitStatusCharged           DebitStatus = "charged"
	DebitStatusInsufficientFunds DebitStatus = "insufficient_funds"
)

// DebitResult carries the ledger's answer to a debit attempt.
type DebitResult struct {
	Status         DebitStatus
	TransactionRef string
	// AvailablePaise is the balance observed by the ledger when the debit
	// was declined. Only meaningful on insufficient funds.
	AvailablePaise int64
}

// Ledger owns the store operator's spendable balance. The fulfillment
// subsystem never reads-then-writes the balance directly; every movement goes
// through this interface so a retried debit with the same idempotency key can
// never charge twice.
type Ledger interface {
	Debit(ctx context.Context, operatorID uuid.UUID, amountPaise int64, idempotencyKey string) (*DebitResult, error)
	FindDebit(ctx context.Context, idempotencyKey string) (*DebitResult, error)
	Credit(ctx context.Context, operatorID uuid.UUID, amountPaise int64, reference string) (*models.WalletTransaction, error)
	Balance(ctx context.Context, operatorID uuid.UUID) (int64, error)
}
