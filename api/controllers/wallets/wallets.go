package wallets

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zenstore/zenstore-backend/api/responses"
	"github.com/zenstore/zenstore-backend/api/validators"
	"github.com/zenstore/zenstore-backend/internal/wallet"
	pkgerrors "github.com/zenstore/zenstore-backend/pkg/errors"
	"github.com/zenstore/zenstore-backend/pkg/logger"
)

// Balance returns the operator's wallet balance in paise.
func Balance(svc *wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		operatorID, err := parseOperatorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance, err := svc.Balance(r.Context(), operatorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"operator_id":   operatorID,
			"balance_paise": balance,
		})
	}
}

type topUpRequest struct {
	AmountPaise int64  `json:"amount_paise" validate:"required,gt=0"`
	Reference   string `json:"reference"`
}

// TopUp credits the operator's wallet; parked orders resume off the emitted
// credit event.
func TopUp(svc *wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		operatorID, err := parseOperatorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body topUpRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txn, err := svc.TopUp(r.Context(), operatorID, body.AmountPaise, body.Reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}

func parseOperatorID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "operatorId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "operator id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "operator id must be a UUID")
	}
	return id, nil
}
