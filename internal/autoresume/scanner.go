package autoresume

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/zenstore/zenstore-backend/internal/settlement"
	"github.com/zenstore/zenstore-backend/pkg/db/models"
	"github.com/zenstore/zenstore-backend/pkg/logger"
)

// ParkedOrderReader lists orders waiting on wallet balance.
type ParkedOrderReader interface {
	ListAwaitingWallet(ctx context.Context, operatorID uuid.UUID) ([]models.Order, error)
	ListOperatorsAwaitingWallet(ctx context.Context) ([]uuid.UUID, error)
}

// Resumer retries the wallet charge for a single parked order.
type Resumer interface {
	ResumeSettlement(ctx context.Context, orderID uuid.UUID) (*settlement.ChargeResult, error)
}

// ScannerParams configure the scanner.
type ScannerParams struct {
	Reader  ParkedOrderReader
	Resumer Resumer
	Logger  *logger.Logger
}

// Scanner walks parked orders oldest first per operator and retries their
// wallet charges. The walk stops at the first order the balance still cannot
// cover, so a cheap young order can never settle ahead of an older one.
type Scanner struct {
	reader  ParkedOrderReader
	resumer Resumer
	logg    *logger.Logger
}

// NewScanner validates dependencies and builds the scanner.
func NewScanner(params ScannerParams) (*Scanner, error) {
	if params.Reader == nil {
		return nil, fmt.Errorf("parked order reader required")
	}
	if params.Resumer == nil {
		return nil, fmt.Errorf("resumer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Scanner{
		reader:  params.Reader,
		resumer: params.Resumer,
		logg:    params.Logger,
	}, nil
}

// ScanAll resumes settlement for every operator with parked orders. A failure
// for one operator does not stop the others; the combined error is returned.
func (s *Scanner) ScanAll(ctx context.Context) error {
	operators, err := s.reader.ListOperatorsAwaitingWallet(ctx)
	if err != nil {
		return fmt.Errorf("list operators awaiting wallet: %w", err)
	}

	var errs []error
	for _, operatorID := range operators {
		if err := s.ScanOperator(ctx, operatorID); err != nil {
			errs = append(errs, fmt.Errorf("operator %s: %w", operatorID, err))
		}
	}
	return multierr.Combine(errs...)
}

// ScanOperator resumes the operator's parked orders in arrival order.
func (s *Scanner) ScanOperator(ctx context.Context, operatorID uuid.UUID) error {
	orders, err := s.reader.ListAwaitingWallet(ctx, operatorID)
	if err != nil {
		return fmt.Errorf("list awaiting orders: %w", err)
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"operator_id": operatorID.String(),
		"parked":      len(orders),
	})

	resumed := 0
	var errs []error
	for _, order := range orders {
		result, err := s.resumer.ResumeSettlement(ctx, order.ID)
		if err != nil {
			// One order's failure must not strand the queue behind it. Only
			// insufficient balance stops the walk; each order's outcome is
			// otherwise independent.
			errs = append(errs, fmt.Errorf("resume order %s: %w", order.ID, err))
			continue
		}
		if result.Outcome == settlement.OutcomeInsufficientFunds {
			s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
				"resumed":        resumed,
				"blocked_order":  order.ID.String(),
				"shortage_paise": result.ShortagePaise,
			}), "auto-resume stopped at first unpayable order")
			return multierr.Combine(errs...)
		}
		resumed++
	}

	s.logg.Info(s.logg.WithField(logCtx, "resumed", resumed), "auto-resume drained operator queue")
	return multierr.Combine(errs...)
}
