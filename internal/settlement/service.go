package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zenstore/zenstore-backend/internal/wallet"
	"github.com/zenstore/zenstore-backend/pkg/db/models"
	pkgerrors "github.com/zenstore/zenstore-backend/pkg/errors"
	"github.com/zenstore/zenstore-backend/pkg/logger"
	"github.com/zenstore/zenstore-backend/pkg/metrics"
)

const defaultLedgerTimeout = 10 * time.Second

// Outcome classifies a charge attempt.
type Outcome string

const (
	OutcomeCharged           Outcome = "charged"
	OutcomeInsufficientFunds Outcome = "insufficient_funds"
	// OutcomeAmbiguous means the debit may or may not have happened and the
	// re-query could not tell. The order must be parked for manual
	// reconciliation, never blindly retried.
	OutcomeAmbiguous Outcome = "ambiguous"
)

// ChargeResult is the settlement service's answer to an attempted charge.
type ChargeResult struct {
	Outcome        Outcome
	RequiredPaise  int64
	AvailablePaise int64
	ShortagePaise  int64
	TransactionRef string
}

// ComputeRequired returns the wallet amount owed for the order: product cost
// plus shipping cost plus service fee, in paise. This is what gets recorded
// as the wallet charge on success and is never recomputed afterwards.
func ComputeRequired(order *models.Order) int64 {
	return order.ProductCostPaise + order.ShippingCostPaise + order.ServiceFeePaise
}

// IdempotencyKey derives the debit key from the order's natural identity so
// webhook replays and operator double-clicks resolve to the same ledger row.
func IdempotencyKey(order *models.Order) string {
	return fmt.Sprintf("order-charge:%s:%s", order.ConnectionID, order.PlatformOrderID)
}

// ServiceParams configure the settlement service.
type ServiceParams struct {
	Ledger        wallet.Ledger
	Logger        *logger.Logger
	Metrics       *metrics.SettlementMetrics
	LedgerTimeout time.Duration
}

// Service settles an order's fulfillment cost against the operator's wallet.
type Service struct {
	ledger  wallet.Ledger
	logg    *logger.Logger
	metrics *metrics.SettlementMetrics
	timeout time.Duration
}

// NewService builds a settlement service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("wallet ledger required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := params.LedgerTimeout
	if timeout <= 0 {
		timeout = defaultLedgerTimeout
	}
	return &Service{
		ledger:  params.Ledger,
		logg:    params.Logger,
		metrics: params.Metrics,
		timeout: timeout,
	}, nil
}

// AttemptCharge debits the operator's wallet for the order's required amount.
//
// The ledger call carries at-least-once semantics from our side: a timeout or
// transport error does not mean the debit did not land. On such errors the
// service re-queries the ledger by idempotency key. A confirmed prior debit
// becomes a normal Charged result; a confirmed absence is reported as a
// retryable dependency error with the order untouched; anything else is
// OutcomeAmbiguous and requires manual reconciliation.
func (s *Service) AttemptCharge(ctx context.Context, order *models.Order) (*ChargeResult, error) {
	required := ComputeRequired(order)
	key := IdempotencyKey(order)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":       order.ID.String(),
		"operator_id":    order.OperatorID.String(),
		"required_paise": required,
	})

	debitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	res, err := s.ledger.Debit(debitCtx, order.OperatorID, required, key)
	s.metrics.ObserveDebitDuration(time.Since(start))

	if err != nil {
		if errors.Is(err, wallet.ErrUnavailable) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "wallet ledger unavailable")
		}
		return s.reconcileAfterError(logCtx, required, key, err)
	}

	switch res.Status {
	case wallet.DebitStatusCharged:
		s.metrics.IncOutcome(string(OutcomeCharged))
		s.logg.Info(logCtx, "wallet charge succeeded")
		return &ChargeResult{
			Outcome:        OutcomeCharged,
			RequiredPaise:  required,
			TransactionRef: res.TransactionRef,
		}, nil
	case wallet.DebitStatusInsufficientFunds:
		shortage := required - res.AvailablePaise
		if shortage < 0 {
			shortage = 0
		}
		s.metrics.IncOutcome(string(OutcomeInsufficientFunds))
		s.logg.Info(s.logg.WithField(logCtx, "shortage_paise", shortage), "wallet balance insufficient")
		return &ChargeResult{
			Outcome:        OutcomeInsufficientFunds,
			RequiredPaise:  required,
			AvailablePaise: res.AvailablePaise,
			ShortagePaise:  shortage,
		}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown debit status %q", res.Status))
	}
}

// reconcileAfterError resolves an errored debit call by re-querying the
// idempotency key. It never issues a fresh debit.
func (s *Service) reconcileAfterError(ctx context.Context, required int64, key string, debitErr error) (*ChargeResult, error) {
	queryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	prior, err := s.ledger.FindDebit(queryCtx, key)
	if err == nil {
		// The debit landed before the error surfaced. Same outcome, no
		// second transaction reference.
		s.metrics.IncOutcome(string(OutcomeCharged))
		s.logg.Warn(ctx, "debit errored but was already committed; reusing original transaction")
		return &ChargeResult{
			Outcome:        OutcomeCharged,
			RequiredPaise:  required,
			TransactionRef: prior.TransactionRef,
		}, nil
	}
	if errors.Is(err, wallet.ErrDebitNotFound) {
		// Provably not charged: safe for the caller to retry the whole call.
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, debitErr, "wallet debit failed before committing")
	}

	s.metrics.IncOutcome(string(OutcomeAmbiguous))
	s.logg.Error(ctx, "wallet debit outcome could not be determined", err)
	return &ChargeResult{
		Outcome:       OutcomeAmbiguous,
		RequiredPaise: required,
	}, nil
}
