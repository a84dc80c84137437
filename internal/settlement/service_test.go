package settlement

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"

	"github.com/zenstore/zenstore-backend/internal/wallet"
	"github.com/zenstore/zenstore-backend/pkg/db/models"
	pkgerrors "github.com/zenstore/zenstore-backend/pkg/errors"
	"github.com/zenstore/zenstore-backend/pkg/logger"
)

type fakeLedger struct {
	debitResult *wallet.DebitResult
	debitErr    error
	debitCalls  int

	findResult *wallet.DebitResult
	findErr    error
	findCalls  int

	lastKey    string
	lastAmount int64
}

func (f *fakeLedger) Debit(_ context.Context, _ uuid.UUID, amountPaise int64, idempotencyKey string) (*wallet.DebitResult, error) {
	f.debitCalls++
	f.lastKey = idempotencyKey
	f.lastAmount = amountPaise
	return f.debitResult, f.debitErr
}

func (f *fakeLedger) FindDebit(_ context.Context, idempotencyKey string) (*wallet.DebitResult, error) {
	f.findCalls++
	return f.findResult, f.findErr
}

func (f *fakeLedger) Credit(context.Context, uuid.UUID, int64, string) (*models.WalletTransaction, error) {
	panic("settlement must never credit")
}

func (f *fakeLedger) Balance(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

func newTestService(t *testing.T, ledger wallet.Ledger) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "settlement-test", Output: io.Discard})
	svc, err := NewService(ServiceParams{Ledger: ledger, Logger: logg})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func testOrder() *models.Order {
	return &models.Order{
		ID:                uuid.New(),
		ConnectionID:      uuid.New(),
		OperatorID:        uuid.New(),
		PlatformOrderID:   "SHOP-1001",
		ProductCostPaise:  4500,
		ShippingCostPaise: 1000,
		ServiceFeePaise:   500,
	}
}

func TestAttemptChargeSucceeds(t *testing.T) {
	ledger := &fakeLedger{
		debitResult: &wallet.DebitResult{Status: wallet.DebitStatusCharged, TransactionRef: "txn-1"},
	}
	svc := newTestService(t, ledger)
	order := testOrder()

	result, err := svc.AttemptCharge(context.Background(), order)
	if err != nil {
		t.Fatalf("attempt charge: %v", err)
	}
	if result.Outcome != OutcomeCharged {
		t.Fatalf("expected charged outcome got %s", result.Outcome)
	}
	if result.RequiredPaise != 6000 {
		t.Fatalf("expected required 6000 got %d", result.RequiredPaise)
	}
	if result.TransactionRef != "txn-1" {
		t.Fatalf("expected transaction ref preserved, got %q", result.TransactionRef)
	}
	if ledger.lastAmount != 6000 {
		t.Fatalf("ledger debited %d, expected 6000", ledger.lastAmount)
	}
	wantKey := "order-charge:" + order.ConnectionID.String() + ":SHOP-1001"
	if ledger.lastKey != wantKey {
		t.Fatalf("unexpected idempotency key %q", ledger.lastKey)
	}
}

func TestAttemptChargeReportsShortage(t *testing.T) {
	ledger := &fakeLedger{
		debitResult: &wallet.DebitResult{Status: wallet.DebitStatusInsufficientFunds, AvailablePaise: 3000},
	}
	svc := newTestService(t, ledger)

	result, err := svc.AttemptCharge(context.Background(), testOrder())
	if err != nil {
		t.Fatalf("attempt charge: %v", err)
	}
	if result.Outcome != OutcomeInsufficientFunds {
		t.Fatalf("expected insufficient funds got %s", result.Outcome)
	}
	if result.ShortagePaise != 3000 {
		t.Fatalf("expected shortage 3000 got %d", result.ShortagePaise)
	}
	if result.AvailablePaise != 3000 {
		t.Fatalf("expected available 3000 got %d", result.AvailablePaise)
	}
}

func TestAttemptChargeRecoversCommittedDebit(t *testing.T) {
	ledger := &fakeLedger{
		debitErr:   errors.New("connection reset"),
		findResult: &wallet.DebitResult{Status: wallet.DebitStatusCharged, TransactionRef: "txn-prior"},
	}
	svc := newTestService(t, ledger)

	result, err := svc.AttemptCharge(context.Background(), testOrder())
	if err != nil {
		t.Fatalf("attempt charge: %v", err)
	}
	if result.Outcome != OutcomeCharged {
		t.Fatalf("expected charged after reconcile got %s", result.Outcome)
	}
	if result.TransactionRef != "txn-prior" {
		t.Fatalf("expected prior transaction ref got %q", result.TransactionRef)
	}
	if ledger.findCalls != 1 {
		t.Fatalf("expected one reconcile query, got %d", ledger.findCalls)
	}
}

func TestAttemptChargeProvenAbsenceIsRetryable(t *testing.T) {
	ledger := &fakeLedger{
		debitErr: errors.New("connection reset"),
		findErr:  wallet.ErrDebitNotFound,
	}
	svc := newTestService(t, ledger)

	_, err := svc.AttemptCharge(context.Background(), testOrder())
	if err == nil {
		t.Fatal("expected retryable error")
	}
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error got %v", err)
	}
}

func TestAttemptChargeUnknowableOutcomeIsAmbiguous(t *testing.T) {
	ledger := &fakeLedger{
		debitErr: errors.New("connection reset"),
		findErr:  errors.New("query timed out"),
	}
	svc := newTestService(t, ledger)

	result, err := svc.AttemptCharge(context.Background(), testOrder())
	if err != nil {
		t.Fatalf("ambiguous outcome must not be an error: %v", err)
	}
	if result.Outcome != OutcomeAmbiguous {
		t.Fatalf("expected ambiguous got %s", result.Outcome)
	}
}

func TestAttemptChargeLedgerUnavailable(t *testing.T) {
	ledger := &fakeLedger{debitErr: wallet.ErrUnavailable}
	svc := newTestService(t, ledger)

	_, err := svc.AttemptCharge(context.Background(), testOrder())
	if err == nil {
		t.Fatal("expected error")
	}
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error got %v", err)
	}
	if ledger.findCalls != 0 {
		t.Fatalf("unavailable ledger must not be re-queried, got %d calls", ledger.findCalls)
	}
}

func TestComputeRequiredSumsCostComponents(t *testing.T) {
	order := &models.Order{ProductCostPaise: 100, ShippingCostPaise: 20, ServiceFeePaise: 3}
	if got := ComputeRequired(order); got != 123 {
		t.Fatalf("expected 123 got %d", got)
	}
}
