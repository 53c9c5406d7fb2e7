package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/payout-system/internal/model"
	"github.com/mmeshcher/payout-system/internal/repository"
)

type transactionResponse struct {
	ID                 string         `json:"id"`
	OrganizationID     string         `json:"organizationId"`
	PayoutID           *string        `json:"payoutId"`
	MestaTransactionID string         `json:"mestaTransactionId"`
	Type               string         `json:"type"`
	Amount             float64        `json:"amount"`
	Currency           string         `json:"currency"`
	Status             string         `json:"status"`
	Reference          string         `json:"reference,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	CreatedAt          string         `json:"createdAt"`
}

func toTransactionResponse(t *model.Transaction) transactionResponse {
	return transactionResponse{
		ID:                 t.ID,
		OrganizationID:     t.OrganizationID,
		PayoutID:           t.PayoutID,
		MestaTransactionID: t.MestaTransactionID,
		Type:               string(t.Type),
		Amount:             float64(t.AmountCents) / 100,
		Currency:           t.Currency,
		Status:             t.Status,
		Reference:          t.Reference,
		Metadata:           t.Metadata,
		CreatedAt:          t.CreatedAt.Format(time.RFC3339),
	}
}

// transactionFilterFromQuery собирает фильтр журнала из query-параметров.
func transactionFilterFromQuery(r *http.Request) (repository.TransactionFilter, bool) {
	q := r.URL.Query()
	filter := repository.TransactionFilter{
		Type:   q.Get("type"),
		Status: q.Get("status"),
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"from", &filter.From},
		{"to", &filter.To},
	} {
		if raw := q.Get(p.name); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return filter, false
			}
			*p.dst = &t
		}
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"limit", &filter.Limit},
		{"offset", &filter.Offset},
	} {
		if raw := q.Get(p.name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				return filter, false
			}
			*p.dst = n
		}
	}

	return filter, true
}

// ListTransactions возвращает записи локального журнала с учётом фильтров
// по типу, статусу и интервалу дат.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	filter, ok := transactionFilterFromQuery(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	txs, err := h.service.ListTransactions(r.Context(), userID, filter)
	if err != nil {
		h.handleError(w, err, "list transactions")
		return
	}

	resp := make([]transactionResponse, 0, len(txs))
	for i := range txs {
		resp = append(resp, toTransactionResponse(&txs[i]))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetTransaction возвращает одну запись журнала в рамках организаций
// пользователя.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	transactionID := chi.URLParam(r, "transactionID")

	tx, err := h.service.GetTransaction(r.Context(), transactionID, userID)
	if err != nil {
		h.handleError(w, err, "get transaction")
		return
	}

	h.writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

// SyncTransactions запускает немедленную синхронизацию журнала с лентой
// процессора и возвращает счётчики прогона.
func (h *Handler) SyncTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	orgID := chi.URLParam(r, "orgID")

	res, err := h.service.SyncTransactions(r.Context(), orgID, userID)
	if err != nil {
		h.handleError(w, err, "sync transactions")
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

type summaryRowResponse struct {
	Status string  `json:"status"`
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}

// GetTransactionSummary возвращает агрегаты журнала по статусам.
func (h *Handler) GetTransactionSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	rows, err := h.service.GetTransactionSummary(r.Context(), userID)
	if err != nil {
		h.handleError(w, err, "get transaction summary")
		return
	}

	resp := make([]summaryRowResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, summaryRowResponse{
			Status: row.Status,
			Count:  row.Count,
			Amount: float64(row.AmountCents) / 100,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// ExportTransactions отдаёт журнал транзакций файлом CSV.
func (h *Handler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	filter, ok := transactionFilterFromQuery(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	csvData, err := h.service.ExportTransactionsCSV(r.Context(), userID, filter)
	if err != nil {
		h.handleError(w, err, "export transactions")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(csvData)); err != nil {
		h.logger.Error("write csv response", zap.Error(err))
	}
}
