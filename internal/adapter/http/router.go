package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the REST routes. Everything except the health check sits
// behind bearer authentication; the admin subtree additionally requires
// the admin role.
func NewRouter(h *Handlers, verifier TokenVerifier) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(verifier))

		r.Post("/transfer", h.transfer)
		r.Get("/accounts/me", h.myAccount)
		r.Get("/transactions", h.listTransactions)
		r.Get("/transactions/stats", h.transactionStats)
		r.Get("/transactions/{id}", h.getTransaction)
		r.Get("/transactions/{id}/receipt", h.downloadReceipt)
		r.Get("/transactions/{id}/receipt-info", h.receiptInfo)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Post("/accounts/{id}/deposit", h.deposit)
			r.Post("/accounts/{id}/withdraw", h.withdraw)
			r.Put("/transactions/admin/{id}/cancel", h.cancel)

			r.Get("/admin/accounts", h.adminListAccounts)
			r.Post("/admin/accounts", h.adminCreateAccount)
			r.Put("/admin/accounts/{id}/status", h.adminToggleAccount)
			r.Get("/admin/transactions", h.adminListTransactions)
			r.Get("/admin/statistics", h.adminStatistics)
			r.Get("/admin/history", h.adminHistory)
			r.Get("/admin/receipts/{numero}", h.adminReceiptLookup)
		})
	})

	return r
}
