package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zenstore/zenstore-backend/pkg/db/models"
	"github.com/zenstore/zenstore-backend/pkg/enums"
	pkgerrors "github.com/zenstore/zenstore-backend/pkg/errors"
	"github.com/zenstore/zenstore-backend/pkg/logger"
	"github.com/zenstore/zenstore-backend/pkg/outbox"
	"github.com/zenstore/zenstore-backend/pkg/outbox/payloads"
)

// ServiceParams wire the wallet service.
type ServiceParams struct {
	Ledger Ledger
	TxRun  txRunner
	Outbox *outbox.Service
	Logger *logger.Logger
}

// Service exposes operator-facing wallet operations: top-ups and balance
// reads. Debits never happen here; only settlement issues debits.
type Service struct {
	ledger Ledger
	txRun  txRunner
	outbox *outbox.Service
	logg   *logger.Logger
}

// NewService validates dependencies and builds the service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if params.TxRun == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		ledger: params.Ledger,
		txRun:  params.TxRun,
		outbox: params.Outbox,
		logg:   params.Logger,
	}, nil
}

// TopUp credits the operator's wallet and announces the credit so parked
// orders get resumed. The announcement rides the outbox; if it cannot be
// queued the cron sweep still drains the queue on its next cycle.
func (s *Service) TopUp(ctx context.Context, operatorID uuid.UUID, amountPaise int64, reference string) (*models.WalletTransaction, error) {
	if operatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "operator id is required")
	}
	if amountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "top-up amount must be positive")
	}

	txn, err := s.ledger.Credit(ctx, operatorID, amountPaise, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "crediting wallet")
	}

	err = s.txRun.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWalletCredited,
			AggregateType: enums.AggregateWalletAccount,
			AggregateID:   operatorID,
			Data: payloads.WalletCreditedEvent{
				OperatorID:  operatorID,
				AmountPaise: amountPaise,
				Reference:   txn.Reference,
			},
			Version: 1,
		})
	})
	if err != nil {
		s.logg.Error(ctx, "wallet credit recorded but event not queued", err)
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"operator_id":  operatorID.String(),
		"amount_paise": amountPaise,
	}), "wallet topped up")
	return txn, nil
}

// Balance returns the operator's current balance in paise.
func (s *Service) Balance(ctx context.Context, operatorID uuid.UUID) (int64, error) {
	if operatorID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "operator id is required")
	}
	balance, err := s.ledger.Balance(ctx, operatorID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading balance")
	}
	return balance, nil
}
