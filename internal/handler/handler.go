// Package handler содержит HTTP-обработчики API сервиса выплат.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/payout-system/internal/mesta"
	"github.com/mmeshcher/payout-system/internal/middleware"
	"github.com/mmeshcher/payout-system/internal/model"
	"github.com/mmeshcher/payout-system/internal/repository"
	"github.com/mmeshcher/payout-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, email, name, password string) (*model.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)

	CreateOrganization(ctx context.Context, userID string, o *model.Organization) (*model.Organization, error)
	GetOrganization(ctx context.Context, orgID, userID string) (*model.Organization, error)
	GetOrganizationByUser(ctx context.Context, userID string) (*model.Organization, error)
	UpdateOrganization(ctx context.Context, orgID, userID string, upd service.OrganizationUpdate) (*model.Organization, error)

	CreateSender(ctx context.Context, orgID, userID string, details mesta.SenderDetails) (*model.Organization, *mesta.Sender, error)
	GetKYCStatus(ctx context.Context, orgID, userID string) (*model.Organization, *mesta.Sender, error)
	UploadDocument(ctx context.Context, orgID, userID string, doc mesta.DocumentUpload) (*mesta.UploadedDocument, error)
	SubmitForVerification(ctx context.Context, orgID, userID string) (*model.Organization, error)

	CreateBeneficiary(ctx context.Context, orgID, userID string, details mesta.BeneficiaryDetails) (*model.Beneficiary, error)
	GetBeneficiary(ctx context.Context, beneficiaryID, userID string) (*model.Beneficiary, error)
	ListBeneficiaries(ctx context.Context, userID, orgID string) ([]model.Beneficiary, error)
	UpdateBeneficiary(ctx context.Context, beneficiaryID, userID string, upd service.BeneficiaryUpdate) (*model.Beneficiary, error)
	RemoveBeneficiary(ctx context.Context, beneficiaryID, userID string) error
	VerifyBeneficiary(ctx context.Context, beneficiaryID, userID string) (*model.Beneficiary, error)
	GetBeneficiaryValidationRules(ctx context.Context, country, currency string) (map[string]any, error)

	CreateQuote(ctx context.Context, userID string, in service.QuoteInput) (*model.Payout, *mesta.Quote, error)
	CreateOrder(ctx context.Context, userID string, in service.OrderInput) (*model.Payout, *mesta.Order, error)
	GetOrder(ctx context.Context, payoutID, userID string) (*model.Payout, *mesta.Order, error)
	CancelOrder(ctx context.Context, payoutID, userID string) (*model.Payout, error)
	ListPayouts(ctx context.Context, userID, orgID string) ([]model.Payout, error)

	SyncTransactions(ctx context.Context, orgID, userID string) (service.SyncResult, error)
	GetTransaction(ctx context.Context, transactionID, userID string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, userID string, filter repository.TransactionFilter) ([]model.Transaction, error)
	GetTransactionSummary(ctx context.Context, userID string) ([]repository.TransactionSummaryRow, error)
	ExportTransactionsCSV(ctx context.Context, userID string, filter repository.TransactionFilter) (string, error)
}

// Handler реализует HTTP-обработчики API сервиса выплат.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

type upstreamErrorResponse struct {
	Error   string `json:"error"`
	Status  int    `json:"status"`
	Details string `json:"details"`
}

// handleError переводит ошибки сервиса в HTTP-статусы. Ошибки процессора
// уходят клиенту вместе с исходным статусом и телом ответа.
func (h *Handler) handleError(w http.ResponseWriter, err error, msg string) {
	var apiErr *mesta.APIError

	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrOrgNotFound),
		errors.Is(err, repository.ErrBeneficiaryNotFound),
		errors.Is(err, repository.ErrPayoutNotFound),
		errors.Is(err, repository.ErrTransactionNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)

	case errors.Is(err, repository.ErrUserExists),
		errors.Is(err, repository.ErrOrgExists),
		errors.Is(err, repository.ErrSenderAlreadySet),
		errors.Is(err, service.ErrSenderExists):
		http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)

	case errors.Is(err, service.ErrOrgNotVerified),
		errors.Is(err, service.ErrSenderNotCreated),
		errors.Is(err, service.ErrBeneficiaryNotLinked),
		errors.Is(err, service.ErrPayoutNotQuoted),
		errors.Is(err, service.ErrNoOrder):
		http.Error(w, http.StatusText(http.StatusPreconditionFailed), http.StatusPreconditionFailed)

	case errors.Is(err, service.ErrInvalidCredentials):
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

	case errors.Is(err, mesta.ErrNotConfigured):
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)

	case errors.Is(err, mesta.ErrTimeout):
		http.Error(w, http.StatusText(http.StatusGatewayTimeout), http.StatusGatewayTimeout)

	case errors.As(err, &apiErr):
		h.writeJSON(w, http.StatusBadGateway, upstreamErrorResponse{
			Error:   "mesta api error",
			Status:  apiErr.StatusCode,
			Details: apiErr.Body,
		})

	default:
		h.logger.Error(msg, zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

type organizationResponse struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	BusinessType       string  `json:"businessType,omitempty"`
	Country            string  `json:"country,omitempty"`
	RegistrationNumber string  `json:"registrationNumber,omitempty"`
	Website            string  `json:"website,omitempty"`
	TaxID              string  `json:"taxId,omitempty"`
	PhoneNumber        string  `json:"phoneNumber,omitempty"`
	Street             string  `json:"street,omitempty"`
	City               string  `json:"city,omitempty"`
	State              string  `json:"state,omitempty"`
	Zip                string  `json:"zip,omitempty"`
	MestaSenderID      *string `json:"mestaSenderId"`
	KYCStatus          string  `json:"kycStatus"`
	CreatedAt          string  `json:"createdAt"`
}

func toOrganizationResponse(o *model.Organization) organizationResponse {
	return organizationResponse{
		ID:                 o.ID,
		Name:               o.Name,
		BusinessType:       o.BusinessType,
		Country:            o.Country,
		RegistrationNumber: o.RegistrationNumber,
		Website:            o.Website,
		TaxID:              o.TaxID,
		PhoneNumber:        o.PhoneNumber,
		Street:             o.Street,
		City:               o.City,
		State:              o.State,
		Zip:                o.Zip,
		MestaSenderID:      o.MestaSenderID,
		KYCStatus:          string(o.KYCStatus),
		CreatedAt:          o.CreatedAt.Format(time.RFC3339),
	}
}
