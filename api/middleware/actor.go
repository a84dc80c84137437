package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/zenstore/zenstore-backend/api/responses"
	pkgerrors "github.com/zenstore/zenstore-backend/pkg/errors"
	"github.com/zenstore/zenstore-backend/pkg/logger"
)

const (
	staffIDHeader = "X-Staff-Id"
	roleHeader    = "X-Staff-Role"
)

// Actor lifts the staff identity headers set by the auth gateway into the
// request context. The platform trusts the gateway; requests without a staff
// id are rejected before they reach any mutating handler.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(staffIDHeader))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity header missing"))
				return
			}
			staffID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity header malformed"))
				return
			}

			ctx := WithStaffID(r.Context(), staffID.String())
			if role := strings.TrimSpace(r.Header.Get(roleHeader)); role != "" {
				ctx = WithRole(ctx, role)
			}
			if logg != nil {
				ctx = logg.WithUserID(ctx, staffID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorID returns the staff UUID from the context, or nil when absent.
func ActorID(r *http.Request) *uuid.UUID {
	raw := StaffIDFromContext(r.Context())
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}
