package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zenstore/zenstore-backend/api/middleware"
	"github.com/zenstore/zenstore-backend/api/responses"
	"github.com/zenstore/zenstore-backend/api/validators"
	"github.com/zenstore/zenstore-backend/internal/fulfillment"
	"github.com/zenstore/zenstore-backend/pkg/enums"
	pkgerrors "github.com/zenstore/zenstore-backend/pkg/errors"
	"github.com/zenstore/zenstore-backend/pkg/logger"
	"github.com/zenstore/zenstore-backend/pkg/pagination"
)

// List returns a filtered page of orders, newest first.
func List(svc *fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filters := fulfillment.OrderFilters{}
		if raw := strings.TrimSpace(r.URL.Query().Get("operator_id")); raw != "" {
			operatorID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "operator_id must be a UUID"))
				return
			}
			filters.OperatorID = &operatorID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseZenStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.ZenStatus = &status
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns the order with its line items and audit trail.
func Detail(svc *fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Divert charges the operator's wallet and pulls the order into the internal
// pipeline. Replays are no-ops.
func Divert(svc *fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.RequestDiversion(r.Context(), orderID, middleware.ActorID(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type resumeResponse struct {
	Outcome        string `json:"outcome"`
	RequiredPaise  int64  `json:"required_paise"`
	AvailablePaise int64  `json:"available_paise"`
	ShortagePaise  int64  `json:"shortage_paise"`
	TransactionRef string `json:"transaction_ref,omitempty"`
}

// Resume re-attempts settlement for an order parked on insufficient funds.
func Resume(svc *fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ResumeSettlement(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resumeResponse{
			Outcome:        string(result.Outcome),
			RequiredPaise:  result.RequiredPaise,
			AvailablePaise: result.AvailablePaise,
			ShortagePaise:  result.ShortagePaise,
			TransactionRef: result.TransactionRef,
		})
	}
}

type advanceRequest struct {
	Status string `json:"status" validate:"required"`
}

// Advance moves the order one step along the pipeline.
func Advance(svc *fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body advanceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseZenStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}
		order, err := svc.Advance(r.Context(), orderID, status, middleware.ActorID(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// MarkReturned moves a post-dispatch order to returned.
func MarkReturned(svc *fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body reasonRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.MarkReturned(r.Context(), orderID, middleware.ActorID(r), body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Fail moves any non-terminal order to failed.
func Fail(svc *fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body reasonRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Fail(r.Context(), orderID, middleware.ActorID(r), body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type costsRequest struct {
	ProductCostPaise  int64 `json:"product_cost_paise" validate:"gte=0"`
	ShippingCostPaise int64 `json:"shipping_cost_paise" validate:"gte=0"`
	ServiceFeePaise   int64 `json:"service_fee_paise" validate:"gte=0"`
}

// SetCosts records the cost components the wallet charge is computed from.
// Only accepted while the order has not settled yet.
func SetCosts(svc *fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body costsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.SetCosts(r.Context(), orderID, middleware.ActorID(r),
			body.ProductCostPaise, body.ShippingCostPaise, body.ServiceFeePaise)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type trackingRequest struct {
	Courier        string `json:"courier" validate:"required"`
	TrackingNumber string `json:"tracking_number" validate:"required"`
}

// SetTracking records courier details for a dispatched order.
func SetTracking(svc *fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body trackingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.SetTracking(r.Context(), orderID, middleware.ActorID(r), body.Courier, body.TrackingNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type assigneeRequest struct {
	AssigneeID string `json:"assignee_id" validate:"required"`
}

// Assign sets the staff member responsible for the order.
func Assign(svc *fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body assigneeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		assigneeID, err := uuid.Parse(body.AssigneeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "assignee_id must be a UUID"))
			return
		}
		order, err := svc.AssignStaff(r.Context(), orderID, middleware.ActorID(r), assigneeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type noteRequest struct {
	Content string `json:"content" validate:"required"`
}

// AddNote appends a manual note to the order's audit trail.
func AddNote(svc *fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body noteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		note, err := svc.AppendNote(r.Context(), orderID, middleware.ActorID(r), body.Content)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, note)
	}
}

// ListNotes returns the order's audit trail oldest first.
func ListNotes(svc *fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		notes, err := svc.Notes(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, notes)
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id must be a UUID")
	}
	return id, nil
}
