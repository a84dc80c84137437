package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zenstore/zenstore-backend/api/controllers"
	ordercontrollers "github.com/zenstore/zenstore-backend/api/controllers/orders"
	walletcontrollers "github.com/zenstore/zenstore-backend/api/controllers/wallets"
	webhookcontrollers "github.com/zenstore/zenstore-backend/api/controllers/webhooks"
	"github.com/zenstore/zenstore-backend/api/middleware"
	"github.com/zenstore/zenstore-backend/internal/fulfillment"
	"github.com/zenstore/zenstore-backend/internal/ingestion"
	"github.com/zenstore/zenstore-backend/internal/wallet"
	"github.com/zenstore/zenstore-backend/pkg/config"
	"github.com/zenstore/zenstore-backend/pkg/logger"
	"github.com/zenstore/zenstore-backend/pkg/redis"
)

// RouterParams carry everything the HTTP surface needs.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	Redis       *redis.Client
	Readiness   map[string]controllers.Pinger
	Fulfillment *fulfillment.Service
	Ingestion   *ingestion.Service
	Wallet      *wallet.Service
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, p.Readiness))
	})

	// Webhooks authenticate via connection id; platform deliveries carry no
	// staff identity.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/orders/{connectionId}", webhookcontrollers.OrderWebhook(p.Ingestion, p.Logger))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(p.Logger))
		r.Use(middleware.Idempotency(p.Redis, p.Logger))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(p.Fulfillment, p.Logger))
			r.Get("/{orderId}", ordercontrollers.Detail(p.Fulfillment, p.Logger))
			r.Post("/{orderId}/divert", ordercontrollers.Divert(p.Fulfillment, p.Logger))
			r.Post("/{orderId}/resume", ordercontrollers.Resume(p.Fulfillment, p.Logger))
			r.Post("/{orderId}/advance", ordercontrollers.Advance(p.Fulfillment, p.Logger))
			r.Post("/{orderId}/return", ordercontrollers.MarkReturned(p.Fulfillment, p.Logger))
			r.Post("/{orderId}/fail", ordercontrollers.Fail(p.Fulfillment, p.Logger))
			r.Post("/{orderId}/costs", ordercontrollers.SetCosts(p.Fulfillment, p.Logger))
			r.Post("/{orderId}/tracking", ordercontrollers.SetTracking(p.Fulfillment, p.Logger))
			r.Post("/{orderId}/assignee", ordercontrollers.Assign(p.Fulfillment, p.Logger))
			r.Get("/{orderId}/notes", ordercontrollers.ListNotes(p.Fulfillment, p.Logger))
			r.Post("/{orderId}/notes", ordercontrollers.AddNote(p.Fulfillment, p.Logger))
		})

		r.Route("/wallets/{operatorId}", func(r chi.Router) {
			r.Get("/balance", walletcontrollers.Balance(p.Wallet, p.Logger))
			r.Post("/topup", walletcontrollers.TopUp(p.Wallet, p.Logger))
		})
	})

	return r
}
