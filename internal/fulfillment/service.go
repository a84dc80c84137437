package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zenstore/zenstore-backend/internal/notes"
	"github.com/zenstore/zenstore-backend/internal/settlement"
	"github.com/zenstore/zenstore-backend/pkg/db"
	"github.com/zenstore/zenstore-backend/pkg/db/models"
	"github.com/zenstore/zenstore-backend/pkg/enums"
	pkgerrors "github.com/zenstore/zenstore-backend/pkg/errors"
	"github.com/zenstore/zenstore-backend/pkg/logger"
	"github.com/zenstore/zenstore-backend/pkg/outbox"
	"github.com/zenstore/zenstore-backend/pkg/outbox/payloads"
	"github.com/zenstore/zenstore-backend/pkg/pagination"
)

// ServiceParams wire the fulfillment service.
type ServiceParams struct {
	DB         *db.Client
	Repo       Repository
	Settlement *settlement.Service
	Notes      notes.Service
	Outbox     *outbox.Service
	Logger     *logger.Logger
	Now        func() time.Time
}

// Service drives orders through the fulfillment pipeline. Every status change
// goes through a compare-and-swap on the stored status, so concurrent calls
// for the same order settle into exactly one winner; the loser observes the
// winner's result instead of applying its own.
type Service struct {
	dbc        *db.Client
	repo       Repository
	settlement *settlement.Service
	notes      notes.Service
	outbox     *outbox.Service
	logg       *logger.Logger
	now        func() time.Time
}

// NewService validates dependencies and builds the service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	if params.Notes == nil {
		return nil, fmt.Errorf("notes service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		dbc:        params.DB,
		repo:       params.Repo,
		settlement: params.Settlement,
		notes:      params.Notes,
		outbox:     params.Outbox,
		logg:       params.Logger,
		now:        now,
	}, nil
}

// Get loads an order with its line items and notes.
func (s *Service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

// List returns a page of orders matching the filters, newest first.
func (s *Service) List(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "listing orders")
	}
	return list, nil
}

// RequestDiversion pulls a platform_native order into the internal pipeline.
//
// The wallet charge happens first, outside any order transaction, keyed by
// the order's natural identity so a replayed request can never debit twice.
// Only afterwards is the order status swapped; if another diversion request
// won the swap in the meantime, this call returns the winner's state as its
// own result. An order already past platform_native is a no-op.
func (s *Service) RequestDiversion(ctx context.Context, orderID uuid.UUID, actorID *uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ZenStatus != enums.ZenStatusPlatformNative {
		return order, nil
	}

	result, err := s.settlement.AttemptCharge(ctx, order)
	if err != nil {
		return nil, err
	}

	switch result.Outcome {
	case settlement.OutcomeCharged:
		return s.applyCharged(ctx, order, enums.ZenStatusPlatformNative, result, actorID)
	case settlement.OutcomeInsufficientFunds:
		return s.parkAwaitingWallet(ctx, order, result, actorID)
	case settlement.OutcomeAmbiguous:
		return s.failAmbiguous(ctx, order, actorID)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown settlement outcome %q", result.Outcome))
	}
}

// ResumeSettlement retries the wallet charge for a parked order. Used by the
// auto-resume scanner and the wallet-credit consumer; callers stop iterating
// an operator's queue when the result is still insufficient.
func (s *Service) ResumeSettlement(ctx context.Context, orderID uuid.UUID) (*settlement.ChargeResult, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ZenStatus != enums.ZenStatusAwaitingWallet {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is %s, not awaiting_wallet", order.ZenStatus))
	}

	result, err := s.settlement.AttemptCharge(ctx, order)
	if err != nil {
		return nil, err
	}

	switch result.Outcome {
	case settlement.OutcomeCharged:
		if _, err := s.applyCharged(ctx, order, enums.ZenStatusAwaitingWallet, result, nil); err != nil {
			return nil, err
		}
		return result, nil
	case settlement.OutcomeInsufficientFunds:
		// Stays parked; only the recorded shortage moves with the balance.
		if order.ShortagePaise != result.ShortagePaise {
			updates := map[string]any{"shortage_paise": result.ShortagePaise}
			if err := s.repo.UpdateFields(ctx, order.ID, updates); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating shortage")
			}
		}
		return result, nil
	case settlement.OutcomeAmbiguous:
		if _, err := s.failAmbiguous(ctx, order, nil); err != nil {
			return nil, err
		}
		return result, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown settlement outcome %q", result.Outcome))
	}
}

// Advance moves an order one step along the pipeline. Settlement-owned
// targets are rejected here: ready_for_fulfillment and awaiting_wallet are
// reachable only through RequestDiversion or ResumeSettlement, returned only
// through MarkReturned, and failed only through Fail.
func (s *Service) Advance(ctx context.Context, orderID uuid.UUID, to enums.ZenStatus, actorID *uuid.UUID) (*models.Order, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", to))
	}
	if settlementControlled(to) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("%s is entered by wallet settlement, not manually", to))
	}
	if to == enums.ZenStatusReturned || to == enums.ZenStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("%s has a dedicated operation", to))
	}

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := order.ZenStatus
	if !CanTransition(from, to) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot advance from %s to %s", from, to))
	}

	updates := map[string]any{}
	var deliveredAt time.Time
	if to == enums.ZenStatusDelivered {
		deliveredAt = s.now()
		updates["delivered_at"] = deliveredAt
	}

	err = s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		swapped, err := s.repo.WithTx(tx).TransitionStatus(ctx, order.ID, from, to, updates)
		if err != nil {
			return err
		}
		if !swapped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently, reload and retry")
		}
		if _, err := s.notes.Append(ctx, tx, order.ID, actorID,
			fmt.Sprintf("status changed from %s to %s", from, to)); err != nil {
			return err
		}
		switch to {
		case enums.ZenStatusDelivered:
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderDelivered,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorRef(actorID),
				Data: payloads.OrderDeliveredEvent{
					OrderID:     order.ID,
					OperatorID:  order.OperatorID,
					DeliveredAt: deliveredAt,
				},
				Version: 1,
			})
		case enums.ZenStatusRTODelivered:
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderRTODelivered,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorRef(actorID),
				Data: payloads.OrderRTODeliveredEvent{
					OrderID:    order.ID,
					OperatorID: order.OperatorID,
				},
				Version: 1,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"from":     from,
		"to":       to,
	}), "order advanced")
	return s.load(ctx, orderID)
}

// MarkReturned moves a post-dispatch order to returned. The wallet charge is
// deliberately left untouched; reimbursement is a manual wallet credit.
func (s *Service) MarkReturned(ctx context.Context, orderID uuid.UUID, actorID *uuid.UUID, reason string) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := order.ZenStatus
	if !CanTransition(from, enums.ZenStatusReturned) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot mark a %s order returned", from))
	}

	note := "order marked returned"
	if strings.TrimSpace(reason) != "" {
		note = fmt.Sprintf("order marked returned: %s", strings.TrimSpace(reason))
	}

	err = s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		swapped, err := s.repo.WithTx(tx).TransitionStatus(ctx, order.ID, from, enums.ZenStatusReturned, nil)
		if err != nil {
			return err
		}
		if !swapped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently, reload and retry")
		}
		if _, err := s.notes.Append(ctx, tx, order.ID, actorID, note); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderReturned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actorID),
			Data: payloads.OrderReturnedEvent{
				OrderID:    order.ID,
				OperatorID: order.OperatorID,
				Reason:     strings.TrimSpace(reason),
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, orderID)
}

// Fail moves any non-terminal order to failed with an explanatory note.
func (s *Service) Fail(ctx context.Context, orderID uuid.UUID, actorID *uuid.UUID, reason string) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := order.ZenStatus
	if from.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot fail a terminal %s order", from))
	}

	note := "order failed"
	if strings.TrimSpace(reason) != "" {
		note = fmt.Sprintf("order failed: %s", strings.TrimSpace(reason))
	}
	if _, err := s.transitionToFailed(ctx, order, from, actorID, note, strings.TrimSpace(reason)); err != nil {
		return nil, err
	}
	return s.load(ctx, orderID)
}

// SetTracking records courier details. Tracking only means something once the
// parcel has left the warehouse.
func (s *Service) SetTracking(ctx context.Context, orderID uuid.UUID, actorID *uuid.UUID, courier, trackingNumber string) (*models.Order, error) {
	courier = strings.TrimSpace(courier)
	trackingNumber = strings.TrimSpace(trackingNumber)
	if courier == "" || trackingNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "courier and tracking number are required")
	}

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.ZenStatus.IsPostDispatch() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("tracking cannot be set while the order is %s", order.ZenStatus))
	}

	err = s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateFields(ctx, order.ID, map[string]any{
			"courier_name":    courier,
			"tracking_number": trackingNumber,
		}); err != nil {
			return err
		}
		_, err := s.notes.Append(ctx, tx, order.ID, actorID,
			fmt.Sprintf("tracking set: %s %s", courier, trackingNumber))
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "setting tracking")
	}
	return s.load(ctx, orderID)
}

// SetCosts records the cost components the wallet charge is computed from:
// product cost, shipping cost, and service fee. Costs are only adjustable
// while the order still sits ahead of settlement; once the wallet has been
// charged the recorded amounts are frozen.
func (s *Service) SetCosts(ctx context.Context, orderID uuid.UUID, actorID *uuid.UUID, productPaise, shippingPaise, feePaise int64) (*models.Order, error) {
	if productPaise < 0 || shippingPaise < 0 || feePaise < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost components cannot be negative")
	}
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ZenStatus != enums.ZenStatusPlatformNative && order.ZenStatus != enums.ZenStatusAwaitingWallet {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("costs are frozen once settled; order is %s", order.ZenStatus))
	}

	err = s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateFields(ctx, order.ID, map[string]any{
			"product_cost_paise":  productPaise,
			"shipping_cost_paise": shippingPaise,
			"service_fee_paise":   feePaise,
		}); err != nil {
			return err
		}
		_, err := s.notes.Append(ctx, tx, order.ID, actorID,
			fmt.Sprintf("costs set: product %d, shipping %d, service fee %d paise", productPaise, shippingPaise, feePaise))
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "setting costs")
	}
	return s.load(ctx, orderID)
}

// AssignStaff sets the staff member responsible for the order.
func (s *Service) AssignStaff(ctx context.Context, orderID uuid.UUID, actorID *uuid.UUID, assigneeID uuid.UUID) (*models.Order, error) {
	if assigneeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignee id is required")
	}
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ZenStatus.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot assign a terminal order")
	}

	err = s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateFields(ctx, order.ID, map[string]any{
			"assignee_id": assigneeID,
		}); err != nil {
			return err
		}
		_, err := s.notes.Append(ctx, tx, order.ID, actorID,
			fmt.Sprintf("assigned to staff %s", assigneeID))
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assigning staff")
	}
	return s.load(ctx, orderID)
}

// Notes lists the order's audit trail oldest first.
func (s *Service) Notes(ctx context.Context, orderID uuid.UUID) ([]models.OrderNote, error) {
	if _, err := s.load(ctx, orderID); err != nil {
		return nil, err
	}
	list, err := s.notes.List(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing notes")
	}
	return list, nil
}

// AppendNote adds a manual annotation to the order's audit trail.
func (s *Service) AppendNote(ctx context.Context, orderID uuid.UUID, authorID *uuid.UUID, content string) (*models.OrderNote, error) {
	if _, err := s.load(ctx, orderID); err != nil {
		return nil, err
	}
	note, err := s.notes.Append(ctx, nil, orderID, authorID, content)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "appending note")
	}
	return note, nil
}

func (s *Service) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

// applyCharged records a successful debit and promotes the order. If the CAS
// loses to a concurrent caller the ledger has still charged at most once, so
// the loser simply reloads and reports the winner's state.
func (s *Service) applyCharged(ctx context.Context, order *models.Order, from enums.ZenStatus, result *settlement.ChargeResult, actorID *uuid.UUID) (*models.Order, error) {
	chargedAt := s.now()
	updates := map[string]any{
		"wallet_charge_paise":    result.RequiredPaise,
		"charged_at":             chargedAt,
		"wallet_transaction_ref": result.TransactionRef,
		"shortage_paise":         int64(0),
	}

	err := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		swapped, err := s.repo.WithTx(tx).TransitionStatus(ctx, order.ID, from, enums.ZenStatusReadyForFulfillment, updates)
		if err != nil {
			return err
		}
		if !swapped {
			return errConcurrentTransition
		}
		if _, err := s.notes.Append(ctx, tx, order.ID, nil,
			fmt.Sprintf("wallet charged %d paise (txn %s)", result.RequiredPaise, result.TransactionRef)); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderWalletCharged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actorID),
			Data: payloads.OrderWalletChargedEvent{
				OrderID:        order.ID,
				OperatorID:     order.OperatorID,
				ChargePaise:    result.RequiredPaise,
				TransactionRef: result.TransactionRef,
				ChargedAt:      chargedAt,
			},
			Version: 1,
		})
	})
	if err != nil && !errors.Is(err, errConcurrentTransition) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording wallet charge")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"charge_paise": result.RequiredPaise,
	}), "order ready for fulfillment")
	return s.load(ctx, order.ID)
}

func (s *Service) parkAwaitingWallet(ctx context.Context, order *models.Order, result *settlement.ChargeResult, actorID *uuid.UUID) (*models.Order, error) {
	updates := map[string]any{
		"shortage_paise": result.ShortagePaise,
	}

	err := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		swapped, err := s.repo.WithTx(tx).TransitionStatus(ctx, order.ID, enums.ZenStatusPlatformNative, enums.ZenStatusAwaitingWallet, updates)
		if err != nil {
			return err
		}
		if !swapped {
			return errConcurrentTransition
		}
		if _, err := s.notes.Append(ctx, tx, order.ID, nil,
			fmt.Sprintf("wallet balance insufficient: need %d paise, have %d paise", result.RequiredPaise, result.AvailablePaise)); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderAwaitingWallet,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actorID),
			Data: payloads.OrderAwaitingWalletEvent{
				OrderID:       order.ID,
				OperatorID:    order.OperatorID,
				RequiredPaise: result.RequiredPaise,
				ShortagePaise: result.ShortagePaise,
			},
			Version: 1,
		})
	})
	if err != nil && !errors.Is(err, errConcurrentTransition) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parking order on wallet")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":       order.ID.String(),
		"shortage_paise": result.ShortagePaise,
	}), "order awaiting wallet balance")
	return s.load(ctx, order.ID)
}

func (s *Service) failAmbiguous(ctx context.Context, order *models.Order, actorID *uuid.UUID) (*models.Order, error) {
	const note = "wallet debit outcome could not be confirmed; manual reconciliation required"
	return s.transitionToFailed(ctx, order, order.ZenStatus, actorID, note, "ambiguous wallet debit")
}

func (s *Service) transitionToFailed(ctx context.Context, order *models.Order, from enums.ZenStatus, actorID *uuid.UUID, note, reason string) (*models.Order, error) {
	// Shortage only means something while the order waits on balance; a
	// terminal order must never keep it.
	updates := map[string]any{"shortage_paise": int64(0)}
	err := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		swapped, err := s.repo.WithTx(tx).TransitionStatus(ctx, order.ID, from, enums.ZenStatusFailed, updates)
		if err != nil {
			return err
		}
		if !swapped {
			return errConcurrentTransition
		}
		if _, err := s.notes.Append(ctx, tx, order.ID, actorID, note); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actorID),
			Data: payloads.OrderFailedEvent{
				OrderID:    order.ID,
				OperatorID: order.OperatorID,
				Reason:     reason,
			},
			Version: 1,
		})
	})
	if err != nil && !errors.Is(err, errConcurrentTransition) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failing order")
	}
	return s.load(ctx, order.ID)
}

var errConcurrentTransition = errors.New("concurrent transition won")

func actorRef(actorID *uuid.UUID) *outbox.ActorRef {
	if actorID == nil {
		return nil
	}
	return &outbox.ActorRef{StaffID: *actorID}
}
