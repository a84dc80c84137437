package webhooks

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zenstore/zenstore-backend/api/responses"
	"github.com/zenstore/zenstore-backend/api/validators"
	"github.com/zenstore/zenstore-backend/internal/ingestion"
	pkgerrors "github.com/zenstore/zenstore-backend/pkg/errors"
	"github.com/zenstore/zenstore-backend/pkg/logger"
)

// OrderWebhook receives create and update notifications from a storefront
// platform. Replays are safe; the natural key collapses them into updates.
func OrderWebhook(svc *ingestion.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(chi.URLParam(r, "connectionId"))
		connectionID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "connection id must be a UUID"))
			return
		}

		var body ingestion.InboundOrder
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, created, err := svc.Ingest(r.Context(), connectionID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, order)
	}
}
