package wallet_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zenstore/zenstore-backend/internal/wallet"
	"github.com/zenstore/zenstore-backend/pkg/db/dbtest"
	"github.com/zenstore/zenstore-backend/pkg/db/models"
	"github.com/zenstore/zenstore-backend/pkg/enums"
)

func newLedger(t *testing.T) (*wallet.GormLedger, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Open(t)
	ledger, err := wallet.NewGormLedger(conn, client)
	if err != nil {
		t.Fatalf("construct ledger: %v", err)
	}
	return ledger, conn
}

func seedAccount(t *testing.T, conn *gorm.DB, operatorID uuid.UUID, balancePaise int64) {
	t.Helper()
	account := models.WalletAccount{OperatorID: operatorID, BalancePaise: balancePaise}
	if err := conn.Create(&account).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
}

func TestDebitMovesBalanceAndRecordsTransaction(t *testing.T) {
	ledger, conn := newLedger(t)
	operatorID := uuid.New()
	seedAccount(t, conn, operatorID, 10000)

	result, err := ledger.Debit(context.Background(), operatorID, 6000, "order-charge:c1:SHOP-1")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if result.Status != wallet.DebitStatusCharged {
		t.Fatalf("expected charged got %s", result.Status)
	}
	if result.TransactionRef == "" {
		t.Fatal("expected a transaction reference")
	}

	balance, err := ledger.Balance(context.Background(), operatorID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 4000 {
		t.Fatalf("expected balance 4000 got %d", balance)
	}

	var txn models.WalletTransaction
	if err := conn.Where("operator_id = ?", operatorID).First(&txn).Error; err != nil {
		t.Fatalf("load transaction: %v", err)
	}
	if txn.Type != enums.WalletTransactionTypeDebit {
		t.Fatalf("expected debit row got %s", txn.Type)
	}
	if txn.AmountPaise != 6000 {
		t.Fatalf("expected amount 6000 got %d", txn.AmountPaise)
	}
	if txn.IdempotencyKey == nil || *txn.IdempotencyKey != "order-charge:c1:SHOP-1" {
		t.Fatal("expected idempotency key persisted")
	}
}

func TestDebitReplayReturnsOriginalOutcome(t *testing.T) {
	ledger, conn := newLedger(t)
	operatorID := uuid.New()
	seedAccount(t, conn, operatorID, 10000)

	first, err := ledger.Debit(context.Background(), operatorID, 6000, "order-charge:c1:SHOP-2")
	if err != nil {
		t.Fatalf("first debit: %v", err)
	}

	second, err := ledger.Debit(context.Background(), operatorID, 6000, "order-charge:c1:SHOP-2")
	if err != nil {
		t.Fatalf("replayed debit: %v", err)
	}
	if second.Status != wallet.DebitStatusCharged {
		t.Fatalf("expected charged got %s", second.Status)
	}
	if second.TransactionRef != first.TransactionRef {
		t.Fatalf("expected original transaction ref %q got %q", first.TransactionRef, second.TransactionRef)
	}

	balance, err := ledger.Balance(context.Background(), operatorID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 4000 {
		t.Fatalf("replay must not charge twice, balance %d", balance)
	}
}

func TestDebitConcurrentCallsChargeOnce(t *testing.T) {
	client, conn := dbtest.OpenFile(t)
	ledger, err := wallet.NewGormLedger(conn, client)
	if err != nil {
		t.Fatalf("construct ledger: %v", err)
	}
	operatorID := uuid.New()
	seedAccount(t, conn, operatorID, 10000)
	key := "order-charge:c1:SHOP-RACE"

	var wg sync.WaitGroup
	results := make([]*wallet.DebitResult, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = ledger.Debit(context.Background(), operatorID, 6000, key)
		}(i)
	}
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("debit %d: %v", i, errs[i])
		}
		if results[i].Status != wallet.DebitStatusCharged {
			t.Fatalf("debit %d: expected charged got %s", i, results[i].Status)
		}
	}
	if results[0].TransactionRef != results[1].TransactionRef {
		t.Fatalf("racing callers must observe the same transaction, got %q and %q",
			results[0].TransactionRef, results[1].TransactionRef)
	}

	balance, err := ledger.Balance(context.Background(), operatorID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 4000 {
		t.Fatalf("expected a single 6000 debit, balance %d", balance)
	}
	var count int64
	if err := conn.Model(&models.WalletTransaction{}).Where("idempotency_key = ?", key).Count(&count).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one debit row for the key, found %d", count)
	}
}

func TestDebitInsufficientFundsLeavesBalanceUntouched(t *testing.T) {
	ledger, conn := newLedger(t)
	operatorID := uuid.New()
	seedAccount(t, conn, operatorID, 2500)

	result, err := ledger.Debit(context.Background(), operatorID, 6000, "order-charge:c1:SHOP-3")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if result.Status != wallet.DebitStatusInsufficientFunds {
		t.Fatalf("expected insufficient funds got %s", result.Status)
	}
	if result.AvailablePaise != 2500 {
		t.Fatalf("expected available 2500 got %d", result.AvailablePaise)
	}

	balance, err := ledger.Balance(context.Background(), operatorID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 2500 {
		t.Fatalf("expected balance untouched got %d", balance)
	}

	var count int64
	if err := conn.Model(&models.WalletTransaction{}).Where("operator_id = ?", operatorID).Count(&count).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if count != 0 {
		t.Fatalf("a declined debit must not write a transaction, found %d", count)
	}
}

func TestDebitZeroAmountRecordsNoChargeMarker(t *testing.T) {
	ledger, conn := newLedger(t)
	operatorID := uuid.New()
	seedAccount(t, conn, operatorID, 100)

	result, err := ledger.Debit(context.Background(), operatorID, 0, "order-charge:c1:SHOP-4")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if result.Status != wallet.DebitStatusCharged {
		t.Fatalf("expected charged got %s", result.Status)
	}
	if result.TransactionRef != wallet.NoChargeRef {
		t.Fatalf("expected %q got %q", wallet.NoChargeRef, result.TransactionRef)
	}

	balance, err := ledger.Balance(context.Background(), operatorID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 100 {
		t.Fatalf("zero-amount debit must not move the balance, got %d", balance)
	}
}

func TestFindDebitDistinguishesAbsence(t *testing.T) {
	ledger, conn := newLedger(t)
	operatorID := uuid.New()
	seedAccount(t, conn, operatorID, 10000)

	if _, err := ledger.FindDebit(context.Background(), "order-charge:c1:SHOP-5"); err != wallet.ErrDebitNotFound {
		t.Fatalf("expected ErrDebitNotFound got %v", err)
	}

	charged, err := ledger.Debit(context.Background(), operatorID, 1000, "order-charge:c1:SHOP-5")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}

	found, err := ledger.FindDebit(context.Background(), "order-charge:c1:SHOP-5")
	if err != nil {
		t.Fatalf("find debit: %v", err)
	}
	if found.TransactionRef != charged.TransactionRef {
		t.Fatalf("expected ref %q got %q", charged.TransactionRef, found.TransactionRef)
	}
}

func TestCreditCreatesAccountOnFirstTopUp(t *testing.T) {
	ledger, _ := newLedger(t)
	operatorID := uuid.New()

	txn, err := ledger.Credit(context.Background(), operatorID, 5000, "topup-1")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if txn.Type != enums.WalletTransactionTypeCredit {
		t.Fatalf("expected credit row got %s", txn.Type)
	}
	if txn.Reference != "topup-1" {
		t.Fatalf("expected reference preserved got %q", txn.Reference)
	}

	balance, err := ledger.Balance(context.Background(), operatorID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 5000 {
		t.Fatalf("expected balance 5000 got %d", balance)
	}

	if _, err := ledger.Credit(context.Background(), operatorID, 2000, ""); err != nil {
		t.Fatalf("second credit: %v", err)
	}
	balance, err = ledger.Balance(context.Background(), operatorID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 7000 {
		t.Fatalf("expected balance 7000 got %d", balance)
	}
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	ledger, _ := newLedger(t)
	if _, err := ledger.Credit(context.Background(), uuid.New(), 0, ""); err == nil {
		t.Fatal("expected zero credit to be rejected")
	}
	if _, err := ledger.Credit(context.Background(), uuid.New(), -100, ""); err == nil {
		t.Fatal("expected negative credit to be rejected")
	}
}

func TestBalanceMissingAccountIsZero(t *testing.T) {
	ledger, _ := newLedger(t)
	balance, err := ledger.Balance(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected zero balance got %d", balance)
	}
}
