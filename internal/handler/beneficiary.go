package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/payout-system/internal/mesta"
	"github.com/mmeshcher/payout-system/internal/model"
	"github.com/mmeshcher/payout-system/internal/service"
	"github.com/mmeshcher/payout-system/internal/validation"
)

type beneficiaryRequest struct {
	FirstName         string            `json:"firstName"`
	LastName          string            `json:"lastName"`
	Email             string            `json:"email"`
	PhoneNumber       string            `json:"phoneNumber"`
	Country           string            `json:"country"`
	City              string            `json:"city"`
	Address           string            `json:"address"`
	ZipCode           string            `json:"zipCode"`
	BankAccountName   string            `json:"bankAccountName"`
	BankAccountNumber string            `json:"bankAccountNumber"`
	BankName          string            `json:"bankName"`
	BankCode          string            `json:"bankCode"`
	AccountType       string            `json:"accountType"`
	PaymentType       string            `json:"paymentType"`
	SWIFT             string            `json:"swift"`
	RoutingNumber     string            `json:"routingNumber"`
	IFSCCode          string            `json:"ifscCode"`
	SortCode          string            `json:"sortCode"`
	BranchCode        string            `json:"branchCode"`
	AdditionalDetails map[string]string `json:"additionalDetails"`
}

type beneficiaryResponse struct {
	ID                 string            `json:"id"`
	MestaBeneficiaryID *string           `json:"mestaBeneficiaryId"`
	FirstName          string            `json:"firstName"`
	LastName           string            `json:"lastName"`
	Email              string            `json:"email,omitempty"`
	PhoneNumber        string            `json:"phoneNumber,omitempty"`
	Country            string            `json:"country,omitempty"`
	City               string            `json:"city,omitempty"`
	Address            string            `json:"address,omitempty"`
	ZipCode            string            `json:"zipCode,omitempty"`
	BankAccountName    string            `json:"bankAccountName,omitempty"`
	BankAccountNumber  string            `json:"bankAccountNumber,omitempty"`
	BankName           string            `json:"bankName,omitempty"`
	AdditionalDetails  map[string]string `json:"additionalDetails,omitempty"`
	Status             string            `json:"status"`
	CreatedAt          string            `json:"createdAt"`
}

func toBeneficiaryResponse(b *model.Beneficiary) beneficiaryResponse {
	return beneficiaryResponse{
		ID:                 b.ID,
		MestaBeneficiaryID: b.MestaBeneficiaryID,
		FirstName:          b.FirstName,
		LastName:           b.LastName,
		Email:              b.Email,
		PhoneNumber:        b.PhoneNumber,
		Country:            b.Country,
		City:               b.City,
		Address:            b.Address,
		ZipCode:            b.ZipCode,
		BankAccountName:    b.BankAccountName,
		BankAccountNumber:  b.BankAccountNumber,
		BankName:           b.BankName,
		AdditionalDetails:  b.AdditionalDetails,
		Status:             string(b.Status),
		CreatedAt:          b.CreatedAt.Format(time.RFC3339),
	}
}

// CreateBeneficiary регистрирует получателя у процессора и сохраняет его
// локально. Организация должна быть верифицирована.
func (h *Handler) CreateBeneficiary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	orgID := chi.URLParam(r, "orgID")

	var req beneficiaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.FirstName == "" || req.LastName == "" || req.BankAccountNumber == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Country != "" && !validation.IsValidCountryCode(req.Country) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	beneficiary, err := h.service.CreateBeneficiary(r.Context(), orgID, userID, mesta.BeneficiaryDetails{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Address: mesta.Address{
			Street:     req.Address,
			City:       req.City,
			Country:    req.Country,
			PostalCode: req.ZipCode,
		},
		BankAccountName:   req.BankAccountName,
		BankAccountNumber: req.BankAccountNumber,
		BankName:          req.BankName,
		BankCode:          req.BankCode,
		AccountType:       req.AccountType,
		PaymentType:       req.PaymentType,
		SWIFT:             req.SWIFT,
		RoutingNumber:     req.RoutingNumber,
		IFSCCode:          req.IFSCCode,
		SortCode:          req.SortCode,
		BranchCode:        req.BranchCode,
		AdditionalDetails: req.AdditionalDetails,
	})
	if err != nil {
		h.handleError(w, err, "create beneficiary")
		return
	}

	h.writeJSON(w, http.StatusCreated, toBeneficiaryResponse(beneficiary))
}

// ListBeneficiaries возвращает получателей организации.
func (h *Handler) ListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	orgID := chi.URLParam(r, "orgID")

	beneficiaries, err := h.service.ListBeneficiaries(r.Context(), userID, orgID)
	if err != nil {
		h.handleError(w, err, "list beneficiaries")
		return
	}

	resp := make([]beneficiaryResponse, 0, len(beneficiaries))
	for i := range beneficiaries {
		resp = append(resp, toBeneficiaryResponse(&beneficiaries[i]))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetBeneficiary возвращает получателя по идентификатору.
func (h *Handler) GetBeneficiary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	beneficiaryID := chi.URLParam(r, "beneficiaryID")

	beneficiary, err := h.service.GetBeneficiary(r.Context(), beneficiaryID, userID)
	if err != nil {
		h.handleError(w, err, "get beneficiary")
		return
	}

	h.writeJSON(w, http.StatusOK, toBeneficiaryResponse(beneficiary))
}

// UpdateBeneficiary применяет частичное обновление получателя: изменённые
// поля также отправляются процессору, если получатель уже привязан.
func (h *Handler) UpdateBeneficiary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	beneficiaryID := chi.URLParam(r, "beneficiaryID")

	var req beneficiaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Country != "" && !validation.IsValidCountryCode(req.Country) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	beneficiary, err := h.service.UpdateBeneficiary(r.Context(), beneficiaryID, userID, service.BeneficiaryUpdate{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Email:             req.Email,
		PhoneNumber:       req.PhoneNumber,
		Country:           req.Country,
		City:              req.City,
		Address:           req.Address,
		ZipCode:           req.ZipCode,
		BankAccountName:   req.BankAccountName,
		BankAccountNumber: req.BankAccountNumber,
		BankCode:          req.BankCode,
		BankName:          req.BankName,
		AdditionalDetails: req.AdditionalDetails,
	})
	if err != nil {
		h.handleError(w, err, "update beneficiary")
		return
	}

	h.writeJSON(w, http.StatusOK, toBeneficiaryResponse(beneficiary))
}

// RemoveBeneficiary удаляет получателя локально и, по возможности, у
// процессора.
func (h *Handler) RemoveBeneficiary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	beneficiaryID := chi.URLParam(r, "beneficiaryID")

	if err := h.service.RemoveBeneficiary(r.Context(), beneficiaryID, userID); err != nil {
		h.handleError(w, err, "remove beneficiary")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// VerifyBeneficiary запускает верификацию получателя в процессоре.
func (h *Handler) VerifyBeneficiary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	beneficiaryID := chi.URLParam(r, "beneficiaryID")

	beneficiary, err := h.service.VerifyBeneficiary(r.Context(), beneficiaryID, userID)
	if err != nil {
		h.handleError(w, err, "verify beneficiary")
		return
	}

	h.writeJSON(w, http.StatusOK, toBeneficiaryResponse(beneficiary))
}

// GetBeneficiaryValidationRules возвращает правила заполнения банковских
// реквизитов для пары страна/валюта как их отдаёт процессор.
func (h *Handler) GetBeneficiaryValidationRules(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.userID(w, r); !ok {
		return
	}

	country := r.URL.Query().Get("country")
	currency := r.URL.Query().Get("currency")
	if !validation.IsValidCountryCode(country) || !validation.IsValidCurrencyCode(currency) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	rules, err := h.service.GetBeneficiaryValidationRules(r.Context(), country, currency)
	if err != nil {
		h.handleError(w, err, "get beneficiary validation rules")
		return
	}

	h.writeJSON(w, http.StatusOK, rules)
}
