// Package service реализует бизнес-логику сервиса трансграничных выплат:
// жизненный цикл KYC организаций, получателей, конвейер выплат и
// синхронизацию журнала транзакций с процессором.
package service

import (
	"context"
	"errors"
	"net/url"

	"go.uber.org/zap"

	"github.com/mmeshcher/payout-system/internal/mesta"
	"github.com/mmeshcher/payout-system/internal/model"
	"github.com/mmeshcher/payout-system/internal/repository"
)

// ErrSenderExists возвращается при повторной попытке создать отправителя
// для организации: удалённый ресурс создаётся не более одного раза.
var (
	ErrSenderExists = errors.New("kyc sender already created for organization")
	// ErrSenderNotCreated возвращается, если операция требует созданного отправителя.
	ErrSenderNotCreated = errors.New("kyc sender not created yet")
	// ErrOrgNotVerified возвращается, если операция требует верифицированной организации.
	ErrOrgNotVerified = errors.New("organization is not verified")
	// ErrBeneficiaryNotLinked возвращается, если получатель не привязан к процессору.
	ErrBeneficiaryNotLinked = errors.New("beneficiary is not linked to mesta")
	// ErrPayoutNotQuoted возвращается при попытке создать ордер не из статуса quoted.
	ErrPayoutNotQuoted = errors.New("payout is not in quoted status")
	// ErrNoOrder возвращается, если у выплаты нет ордера для запрошенной операции.
	ErrNoOrder = errors.New("payout has no order")
	// ErrInvalidCredentials возвращается при неверной паре email/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, email, name string, passwordHash []byte) (string, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	CreateOrganization(ctx context.Context, o *model.Organization) (string, error)
	GetOrganization(ctx context.Context, orgID, userID string) (*model.Organization, error)
	GetOrganizationByUser(ctx context.Context, userID string) (*model.Organization, error)
	UpdateOrganization(ctx context.Context, o *model.Organization) error
	SetMestaSenderID(ctx context.Context, orgID, senderID string) error
	UpdateKYCStatus(ctx context.Context, orgID string, status model.KYCStatus) error
	ListOrganizationIDsWithSender(ctx context.Context) ([]string, error)

	CreateBeneficiary(ctx context.Context, b *model.Beneficiary) (string, error)
	GetBeneficiary(ctx context.Context, beneficiaryID, userID string) (*model.Beneficiary, error)
	ListBeneficiaries(ctx context.Context, userID, orgID string) ([]model.Beneficiary, error)
	UpdateBeneficiary(ctx context.Context, b *model.Beneficiary) error
	UpdateBeneficiaryStatus(ctx context.Context, beneficiaryID string, status model.BeneficiaryStatus) error
	DeleteBeneficiary(ctx context.Context, beneficiaryID string) error

	CreatePayout(ctx context.Context, p *model.Payout) (string, error)
	GetPayout(ctx context.Context, payoutID, userID string) (*model.Payout, error)
	GetPayoutByQuoteID(ctx context.Context, quoteID, orgID string) (*model.Payout, error)
	ListPayouts(ctx context.Context, userID, orgID string) ([]model.Payout, error)
	SetPayoutOrdered(ctx context.Context, payoutID, orderID string) error
	UpdatePayoutStatus(ctx context.Context, payoutID string, status model.PayoutStatus) error

	InsertTransaction(ctx context.Context, t *model.Transaction) (bool, error)
	GetTransaction(ctx context.Context, transactionID, userID string) (*model.Transaction, error)
	GetTransactionByMestaID(ctx context.Context, mestaTxID string) (*model.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, transactionID, status string) error
	ListTransactions(ctx context.Context, userID string, filter repository.TransactionFilter) ([]model.Transaction, error)
	GetTransactionSummary(ctx context.Context, userID string) ([]repository.TransactionSummaryRow, error)
}

// Gateway описывает контракт клиента процессора, используемый сервисом.
// Клиент не повторяет запросы: создание отправителей, получателей и ордеров
// неидемпотентно на стороне процессора.
type Gateway interface {
	CreateSender(ctx context.Context, details mesta.SenderDetails) (*mesta.Sender, error)
	GetSender(ctx context.Context, senderID string) (*mesta.Sender, error)
	VerifySender(ctx context.Context, senderID string) error
	UploadDocument(ctx context.Context, senderID string, doc mesta.DocumentUpload) (*mesta.UploadedDocument, error)

	CreateBeneficiary(ctx context.Context, details mesta.BeneficiaryDetails) (*mesta.Beneficiary, error)
	UpdateBeneficiary(ctx context.Context, beneficiaryID string, fields map[string]any) (*mesta.Beneficiary, error)
	DeleteBeneficiary(ctx context.Context, beneficiaryID string) error
	VerifyBeneficiary(ctx context.Context, beneficiaryID string) error
	GetBeneficiaryValidationRules(ctx context.Context, params url.Values) (map[string]any, error)

	CreateQuote(ctx context.Context, req mesta.QuoteRequest) (*mesta.Quote, error)
	CreateOrder(ctx context.Context, req mesta.OrderRequest) (*mesta.Order, error)
	GetOrder(ctx context.Context, orderID string) (*mesta.Order, error)
	CancelOrder(ctx context.Context, orderID string) error

	ListTransactions(ctx context.Context, params url.Values) ([]mesta.Transaction, error)
}

// Service содержит бизнес-логику сервиса выплат.
type Service struct {
	repo    Repository
	gateway Gateway
	logger  *zap.Logger
}

// NewService создаёт новый сервис с указанными репозиторием и клиентом процессора.
func NewService(repo Repository, gateway Gateway, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		gateway: gateway,
		logger:  logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// GetBeneficiaryValidationRules возвращает правила валидации получателей от процессора.
func (s *Service) GetBeneficiaryValidationRules(ctx context.Context, country, currency string) (map[string]any, error) {
	params := url.Values{}
	if country != "" {
		params.Set("country", country)
	}
	if currency != "" {
		params.Set("currency", currency)
	}
	return s.gateway.GetBeneficiaryValidationRules(ctx, params)
}
