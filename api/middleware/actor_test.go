package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestActorRejectsMissingHeader(t *testing.T) {
	handlerCalled := false
	handler := Actor(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatal("handler must not run without a staff identity")
	}
}

func TestActorRejectsMalformedHeader(t *testing.T) {
	handler := Actor(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil)
	req.Header.Set("X-Staff-Id", "not-a-uuid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestActorInjectsStaffIdentity(t *testing.T) {
	staffID := uuid.New()
	var got *uuid.UUID
	var role string
	handler := Actor(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ActorID(r)
		role = RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/123/divert", nil)
	req.Header.Set("X-Staff-Id", staffID.String())
	req.Header.Set("X-Staff-Role", "ops_manager")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected pass-through got %d", resp.Code)
	}
	if got == nil || *got != staffID {
		t.Fatalf("expected staff id in context, got %v", got)
	}
	if role != "ops_manager" {
		t.Fatalf("expected role in context, got %q", role)
	}
}

func TestActorIDAbsentWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil)
	if got := ActorID(req); got != nil {
		t.Fatalf("expected nil actor, got %v", got)
	}
}
