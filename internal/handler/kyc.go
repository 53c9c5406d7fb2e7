package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/payout-system/internal/mesta"
)

type kycStatusResponse struct {
	OrganizationID string  `json:"organizationId"`
	MestaSenderID  *string `json:"mestaSenderId"`
	KYCStatus      string  `json:"kycStatus"`
	RemoteStatus   string  `json:"remoteStatus,omitempty"`
}

// CreateSender создаёт отправителя в процессоре и привязывает его к
// организации. Повторный вызов для уже привязанной организации отклоняется.
func (h *Handler) CreateSender(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	orgID := chi.URLParam(r, "orgID")

	var details mesta.SenderDetails
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	org, sender, err := h.service.CreateSender(r.Context(), orgID, userID, details)
	if err != nil {
		h.handleError(w, err, "create sender")
		return
	}

	resp := kycStatusResponse{
		OrganizationID: org.ID,
		MestaSenderID:  org.MestaSenderID,
		KYCStatus:      string(org.KYCStatus),
	}
	if sender != nil {
		resp.RemoteStatus = sender.EffectiveStatus()
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

// GetKYCStatus возвращает текущий статус верификации организации, по
// возможности освежая его из процессора.
func (h *Handler) GetKYCStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	orgID := chi.URLParam(r, "orgID")

	org, sender, err := h.service.GetKYCStatus(r.Context(), orgID, userID)
	if err != nil {
		h.handleError(w, err, "get kyc status")
		return
	}

	resp := kycStatusResponse{
		OrganizationID: org.ID,
		MestaSenderID:  org.MestaSenderID,
		KYCStatus:      string(org.KYCStatus),
	}
	if sender != nil {
		resp.RemoteStatus = sender.EffectiveStatus()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// UploadDocument загружает документ отправителя в процессор.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	orgID := chi.URLParam(r, "orgID")

	var doc mesta.DocumentUpload
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if doc.Type == "" || doc.DocumentURL == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	uploaded, err := h.service.UploadDocument(r.Context(), orgID, userID, doc)
	if err != nil {
		h.handleError(w, err, "upload document")
		return
	}

	h.writeJSON(w, http.StatusCreated, uploaded)
}

// SubmitForVerification отправляет организацию на верификацию в процессор.
func (h *Handler) SubmitForVerification(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	orgID := chi.URLParam(r, "orgID")

	org, err := h.service.SubmitForVerification(r.Context(), orgID, userID)
	if err != nil {
		h.handleError(w, err, "submit for verification")
		return
	}

	h.writeJSON(w, http.StatusOK, kycStatusResponse{
		OrganizationID: org.ID,
		MestaSenderID:  org.MestaSenderID,
		KYCStatus:      string(org.KYCStatus),
	})
}
