package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/payout-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса выплат.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Route("/organizations", func(r chi.Router) {
				r.Post("/", h.CreateOrganization)
				r.Get("/me", h.GetOrganization)

				r.Route("/{orgID}", func(r chi.Router) {
					r.Patch("/", h.UpdateOrganization)

					r.Post("/kyc/sender", h.CreateSender)
					r.Get("/kyc/status", h.GetKYCStatus)
					r.Post("/kyc/documents", h.UploadDocument)
					r.Post("/kyc/submit", h.SubmitForVerification)

					r.Post("/beneficiaries", h.CreateBeneficiary)
					r.Get("/beneficiaries", h.ListBeneficiaries)

					r.Get("/payouts", h.ListPayouts)

					r.Post("/transactions/sync", h.SyncTransactions)
				})
			})

			r.Route("/beneficiaries", func(r chi.Router) {
				r.Get("/validation-rules", h.GetBeneficiaryValidationRules)

				r.Route("/{beneficiaryID}", func(r chi.Router) {
					r.Get("/", h.GetBeneficiary)
					r.Patch("/", h.UpdateBeneficiary)
					r.Delete("/", h.RemoveBeneficiary)
					r.Post("/verify", h.VerifyBeneficiary)
				})
			})

			r.Route("/payouts", func(r chi.Router) {
				r.Post("/quote", h.CreateQuote)
				r.Post("/order", h.CreateOrder)

				r.Route("/{payoutID}", func(r chi.Router) {
					r.Get("/", h.GetOrder)
					r.Post("/cancel", h.CancelOrder)
				})
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", h.ListTransactions)
				r.Get("/summary", h.GetTransactionSummary)
				r.Get("/export", h.ExportTransactions)
				r.Get("/{transactionID}", h.GetTransaction)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
