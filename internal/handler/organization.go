package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/payout-system/internal/model"
	"github.com/mmeshcher/payout-system/internal/service"
	"github.com/mmeshcher/payout-system/internal/validation"
)

type organizationRequest struct {
	Name               string `json:"name"`
	BusinessType       string `json:"businessType"`
	Country            string `json:"country"`
	RegistrationNumber string `json:"registrationNumber"`
	Website            string `json:"website"`
	TaxID              string `json:"taxId"`
	PhoneNumber        string `json:"phoneNumber"`
	Street             string `json:"street"`
	City               string `json:"city"`
	State              string `json:"state"`
	Zip                string `json:"zip"`
}

// CreateOrganization регистрирует организацию текущего пользователя.
// У пользователя может быть не более одной организации.
func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req organizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Country != "" && !validation.IsValidCountryCode(req.Country) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	org, err := h.service.CreateOrganization(r.Context(), userID, &model.Organization{
		Name:               req.Name,
		BusinessType:       req.BusinessType,
		Country:            req.Country,
		RegistrationNumber: req.RegistrationNumber,
		Website:            req.Website,
		TaxID:              req.TaxID,
		PhoneNumber:        req.PhoneNumber,
		Street:             req.Street,
		City:               req.City,
		State:              req.State,
		Zip:                req.Zip,
	})
	if err != nil {
		h.handleError(w, err, "create organization")
		return
	}

	h.writeJSON(w, http.StatusCreated, toOrganizationResponse(org))
}

// GetOrganization возвращает организацию текущего пользователя.
func (h *Handler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	org, err := h.service.GetOrganizationByUser(r.Context(), userID)
	if err != nil {
		h.handleError(w, err, "get organization")
		return
	}

	h.writeJSON(w, http.StatusOK, toOrganizationResponse(org))
}

// UpdateOrganization применяет частичное обновление атрибутов организации.
func (h *Handler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	orgID := chi.URLParam(r, "orgID")

	var req organizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Country != "" && !validation.IsValidCountryCode(req.Country) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	org, err := h.service.UpdateOrganization(r.Context(), orgID, userID, service.OrganizationUpdate{
		Name:               req.Name,
		BusinessType:       req.BusinessType,
		Country:            req.Country,
		RegistrationNumber: req.RegistrationNumber,
		Website:            req.Website,
		TaxID:              req.TaxID,
		PhoneNumber:        req.PhoneNumber,
		Street:             req.Street,
		City:               req.City,
		State:              req.State,
		Zip:                req.Zip,
	})
	if err != nil {
		h.handleError(w, err, "update organization")
		return
	}

	h.writeJSON(w, http.StatusOK, toOrganizationResponse(org))
}
