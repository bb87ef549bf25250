package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/Ahmadou44/fadj-ma/internal/middleware"
	"github.com/Ahmadou44/fadj-ma/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса Fadj Ma.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/health", h.Health)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})

	r.Route("/api/pharmacy", func(r chi.Router) {
		r.Get("/", h.ListPharmacies)
		r.Get("/search", h.SearchStock)
		r.Get("/{pharmacyId}/inventory", h.ListInventory)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)
			r.Use(custommiddleware.RequireRole(model.RolePharmacy))

			r.Post("/inventory", h.AddInventory)
			r.Get("/{pharmacyId}/stats", h.PharmacyStats)
			r.Get("/{pharmacyId}/orders", h.ListPharmacyOrders)
			r.Patch("/orders/{orderId}/status", h.UpdateOrderStatus)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)
			r.Use(custommiddleware.RequireRole(model.RoleAdmin))

			r.Get("/pending", h.ListPendingPharmacies)
			r.Patch("/{pharmacyId}/verify", h.VerifyPharmacy)
		})
	})

	r.Route("/api/drugs", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)
		r.Use(custommiddleware.RequireRole(model.RoleAdmin))

		r.Get("/", h.ListDrugs)
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.RequireRole(model.RolePatient))

			r.Post("/", h.CreateOrder)
			r.Get("/", h.ListMyOrders)
		})

		r.Get("/{orderId}", h.GetOrder)
		r.Post("/{orderId}/cancel", h.CancelOrder)
	})

	r.Route("/api/payments", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)
		r.Use(custommiddleware.RequireRole(model.RolePatient))

		r.Post("/initiate", h.InitiatePayment)
		r.Post("/{paymentId}/confirm", h.ConfirmPayment)
	})

	r.Route("/api/subscriptions", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)
		r.Use(custommiddleware.RequireRole(model.RolePharmacy))

		r.Get("/plans", h.ListSubscriptionPlans)
		r.Get("/current", h.CurrentSubscription)
		r.Post("/upgrade", h.UpgradeSubscription)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
