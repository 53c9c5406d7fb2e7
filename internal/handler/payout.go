package handler

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/payout-system/internal/model"
	"github.com/mmeshcher/payout-system/internal/service"
	"github.com/mmeshcher/payout-system/internal/validation"
)

type quoteRequest struct {
	OrganizationID string  `json:"organizationId"`
	BeneficiaryID  string  `json:"beneficiaryId"`
	Amount         float64 `json:"amount"`
	SourceCurrency string  `json:"sourceCurrency"`
	TargetCurrency string  `json:"targetCurrency"`
}

type orderRequest struct {
	OrganizationID string `json:"organizationId"`
	QuoteID        string `json:"quoteId"`
	Purpose        string `json:"purpose"`
}

type payoutResponse struct {
	ID             string   `json:"id"`
	OrganizationID string   `json:"organizationId"`
	BeneficiaryID  *string  `json:"beneficiaryId"`
	MestaQuoteID   *string  `json:"mestaQuoteId"`
	MestaOrderID   *string  `json:"mestaOrderId"`
	Amount         float64  `json:"amount"`
	SourceCurrency string   `json:"sourceCurrency"`
	TargetCurrency string   `json:"targetCurrency"`
	ExchangeRate   *float64 `json:"exchangeRate"`
	Fee            *float64 `json:"fee"`
	Status         string   `json:"status"`
	CreatedAt      string   `json:"createdAt"`
}

func toPayoutResponse(p *model.Payout) payoutResponse {
	resp := payoutResponse{
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		BeneficiaryID:  p.BeneficiaryID,
		MestaQuoteID:   p.MestaQuoteID,
		MestaOrderID:   p.MestaOrderID,
		Amount:         float64(p.AmountCents) / 100,
		SourceCurrency: p.SourceCurrency,
		TargetCurrency: p.TargetCurrency,
		ExchangeRate:   p.ExchangeRate,
		Status:         string(p.Status),
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
	}
	if p.FeeCents != nil {
		fee := float64(*p.FeeCents) / 100
		resp.Fee = &fee
	}
	return resp
}

// CreateQuote запрашивает котировку у процессора и создаёт выплату в
// статусе quoted.
func (h *Handler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.OrganizationID == "" || req.BeneficiaryID == "" || req.Amount <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if !validation.IsValidCurrencyCode(req.SourceCurrency) || !validation.IsValidCurrencyCode(req.TargetCurrency) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	payout, _, err := h.service.CreateQuote(r.Context(), userID, service.QuoteInput{
		OrganizationID: req.OrganizationID,
		BeneficiaryID:  req.BeneficiaryID,
		AmountCents:    int64(math.Round(req.Amount * 100)),
		SourceCurrency: req.SourceCurrency,
		TargetCurrency: req.TargetCurrency,
	})
	if err != nil {
		h.handleError(w, err, "create quote")
		return
	}

	h.writeJSON(w, http.StatusCreated, toPayoutResponse(payout))
}

// CreateOrder конвертирует котировку в ордер процессора.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.OrganizationID == "" || req.QuoteID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	payout, _, err := h.service.CreateOrder(r.Context(), userID, service.OrderInput{
		OrganizationID: req.OrganizationID,
		QuoteID:        req.QuoteID,
		Purpose:        req.Purpose,
	})
	if err != nil {
		h.handleError(w, err, "create order")
		return
	}

	h.writeJSON(w, http.StatusCreated, toPayoutResponse(payout))
}

// GetOrder возвращает выплату, по возможности освежая статус ордера из
// процессора.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	payoutID := chi.URLParam(r, "payoutID")

	payout, _, err := h.service.GetOrder(r.Context(), payoutID, userID)
	if err != nil {
		h.handleError(w, err, "get order")
		return
	}

	h.writeJSON(w, http.StatusOK, toPayoutResponse(payout))
}

// CancelOrder отменяет ордер в процессоре и помечает выплату отменённой.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	payoutID := chi.URLParam(r, "payoutID")

	payout, err := h.service.CancelOrder(r.Context(), payoutID, userID)
	if err != nil {
		h.handleError(w, err, "cancel order")
		return
	}

	h.writeJSON(w, http.StatusOK, toPayoutResponse(payout))
}

// ListPayouts возвращает выплаты организации от новых к старым.
func (h *Handler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	orgID := chi.URLParam(r, "orgID")

	payouts, err := h.service.ListPayouts(r.Context(), userID, orgID)
	if err != nil {
		h.handleError(w, err, "list payouts")
		return
	}

	resp := make([]payoutResponse, 0, len(payouts))
	for i := range payouts {
		resp = append(resp, toPayoutResponse(&payouts[i]))
	}
	h.writeJSON(w, http.StatusOK, resp)
}
