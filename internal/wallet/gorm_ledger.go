package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/zenstore/zenstore-backend/pkg/db"
	"github.com/zenstore/zenstore-backend/pkg/db/models"
	"github.com/zenstore/zenstore-backend/pkg/enums"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// GormLedger implements Ledger on top of wallet_accounts and
// wallet_transactions. The balance is moved with a conditional UPDATE and the
// unique idempotency key on transactions guarantees at-most-once debits even
// when two callers race the same key.
type GormLedger struct {
	db gormDB
	tx txRunner
}

type gormDB interface {
	WithContext(ctx context.Context) *gorm.DB
}

// NewGormLedger builds the database-backed ledger.
func NewGormLedger(db gormDB, tx txRunner) (*GormLedger, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &GormLedger{db: db, tx: tx}, nil
}

func (l *GormLedger) Debit(ctx context.Context, operatorID uuid.UUID, amountPaise int64, idempotencyKey string) (*DebitResult, error) {
	if operatorID == uuid.Nil {
		return nil, fmt.Errorf("operator id required")
	}
	if amountPaise < 0 {
		return nil, fmt.Errorf("debit amount must be non-negative, got %d", amountPaise)
	}
	if idempotencyKey == "" {
		return nil, fmt.Errorf("idempotency key required")
	}

	var result *DebitResult
	err := l.tx.WithTx(ctx, func(tx *gorm.DB) error {
		prior, err := findDebitTx(tx, ctx, idempotencyKey)
		if err == nil {
			result = prior
			return nil
		}
		if !errors.Is(err, ErrDebitNotFound) {
			return err
		}

		if amountPaise == 0 {
			return l.recordDebit(ctx, tx, operatorID, 0, idempotencyKey, NoChargeRef, &result)
		}

		res := tx.WithContext(ctx).Exec(`
			UPDATE wallet_accounts
			SET balance_paise = balance_paise - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE operator_id = ? AND balance_paise >= ?
		`, amountPaise, operatorID, amountPaise)
		if res.Error != nil {
			return fmt.Errorf("debit balance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			available, err := balanceTx(tx, ctx, operatorID)
			if err != nil {
				return err
			}
			result = &DebitResult{
				Status:         DebitStatusInsufficientFunds,
				AvailablePaise: available,
			}
			return nil
		}

		return l.recordDebit(ctx, tx, operatorID, amountPaise, idempotencyKey, "", &result)
	})
	if err != nil {
		// A duplicate key means a concurrent debit with the same key won the
		// race; its outcome is our outcome.
		if dbpkg.IsUniqueViolation(err, "ux_wallet_transactions_idempotency_key") {
			return l.FindDebit(ctx, idempotencyKey)
		}
		return nil, err
	}
	return result, nil
}

func (l *GormLedger) recordDebit(ctx context.Context, tx *gorm.DB, operatorID uuid.UUID, amountPaise int64, idempotencyKey, reference string, out **DebitResult) error {
	txn := models.WalletTransaction{
		ID:             uuid.New(),
		OperatorID:     operatorID,
		Type:           enums.WalletTransactionTypeDebit,
		AmountPaise:    amountPaise,
		IdempotencyKey: &idempotencyKey,
	}
	if reference == "" {
		reference = txn.ID.String()
	}
	txn.Reference = reference
	if err := tx.WithContext(ctx).Create(&txn).Error; err != nil {
		return fmt.Errorf("record debit transaction: %w", err)
	}
	*out = &DebitResult{
		Status:         DebitStatusCharged,
		TransactionRef: txn.Reference,
	}
	return nil
}

func (l *GormLedger) FindDebit(ctx context.Context, idempotencyKey string) (*DebitResult, error) {
	if idempotencyKey == "" {
		return nil, fmt.Errorf("idempotency key required")
	}
	return findDebitTx(l.db.WithContext(ctx), ctx, idempotencyKey)
}

func balanceTx(tx *gorm.DB, ctx context.Context, operatorID uuid.UUID) (int64, error) {
	var account models.WalletAccount
	err := tx.WithContext(ctx).
		Where("operator_id = ?", operatorID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return account.BalancePaise, nil
}

func findDebitTx(tx *gorm.DB, ctx context.Context, idempotencyKey string) (*DebitResult, error) {
	var txn models.WalletTransaction
	err := tx.WithContext(ctx).
		Where("idempotency_key = ? AND type = ?", idempotencyKey, enums.WalletTransactionTypeDebit).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDebitNotFound
		}
		return nil, fmt.Errorf("find debit: %w", err)
	}
	return &DebitResult{
		Status:         DebitStatusCharged,
		TransactionRef: txn.Reference,
	}, nil
}

func (l *GormLedger) Credit(ctx context.Context, operatorID uuid.UUID, amountPaise int64, reference string) (*models.WalletTransaction, error) {
	if operatorID == uuid.Nil {
		return nil, fmt.Errorf("operator id required")
	}
	if amountPaise <= 0 {
		return nil, fmt.Errorf("credit amount must be positive, got %d", amountPaise)
	}

	var txn models.WalletTransaction
	err := l.tx.WithTx(ctx, func(tx *gorm.DB) error {
		res := tx.WithContext(ctx).Exec(`
			UPDATE wallet_accounts
			SET balance_paise = balance_paise + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE operator_id = ?
		`, amountPaise, operatorID)
		if res.Error != nil {
			return fmt.Errorf("credit balance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			account := models.WalletAccount{
				OperatorID:   operatorID,
				BalancePaise: amountPaise,
			}
			if err := tx.WithContext(ctx).Create(&account).Error; err != nil {
				return fmt.Errorf("create wallet account: %w", err)
			}
		}
		txn = models.WalletTransaction{
			ID:          uuid.New(),
			OperatorID:  operatorID,
			Type:        enums.WalletTransactionTypeCredit,
			AmountPaise: amountPaise,
			Reference:   reference,
		}
		if txn.Reference == "" {
			txn.Reference = txn.ID.String()
		}
		if err := tx.WithContext(ctx).Create(&txn).Error; err != nil {
			return fmt.Errorf("record credit transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (l *GormLedger) Balance(ctx context.Context, operatorID uuid.UUID) (int64, error) {
	var account models.WalletAccount
	err := l.db.WithContext(ctx).
		Where("operator_id = ?", operatorID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return account.BalancePaise, nil
}
