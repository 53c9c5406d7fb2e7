// Package model содержит доменные сущности сервиса трансграничных выплат.
package model

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash []byte
	CreatedAt    time.Time
}

// KYCStatus описывает локальный статус верификации организации.
type KYCStatus string

const (
	KYCStatusNotStarted  KYCStatus = "not_started"
	KYCStatusPending     KYCStatus = "pending"
	KYCStatusUnderReview KYCStatus = "under_review"
	KYCStatusVerified    KYCStatus = "verified"
	KYCStatusRejected    KYCStatus = "rejected"
)

// Organization представляет организацию пользователя. У пользователя может
// быть не более одной организации; mesta_sender_id устанавливается не более
// одного раза за всё время жизни записи.
type Organization struct {
	ID                 string
	UserID             string
	Name               string
	BusinessType       string
	Country            string
	RegistrationNumber string
	Website            string
	TaxID              string
	PhoneNumber        string
	Street             string
	City               string
	State              string
	Zip                string
	MestaSenderID      *string
	KYCStatus          KYCStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// BeneficiaryStatus описывает статус получателя выплат.
type BeneficiaryStatus string

const (
	BeneficiaryStatusPending   BeneficiaryStatus = "pending"
	BeneficiaryStatusVerifying BeneficiaryStatus = "verifying"
	BeneficiaryStatusVerified  BeneficiaryStatus = "verified"
	BeneficiaryStatusRejected  BeneficiaryStatus = "rejected"
)

// Beneficiary представляет получателя выплат, привязанного к организации.
type Beneficiary struct {
	ID                 string
	OrganizationID     string
	MestaBeneficiaryID *string
	FirstName          string
	LastName           string
	Email              string
	PhoneNumber        string
	Country            string
	City               string
	Address            string
	ZipCode            string
	BankAccountName    string
	BankAccountNumber  string
	BankName           string
	BankCode           string
	AccountType        string
	PaymentType        string
	// AdditionalDetails хранит банковские поля, специфичные для страны
	// (routingNumber, ifscCode, sortCode, branchCode и прочее).
	AdditionalDetails map[string]string
	Status            BeneficiaryStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PayoutStatus описывает статус выплаты.
type PayoutStatus string

const (
	PayoutStatusDraft      PayoutStatus = "draft"
	PayoutStatusQuoted     PayoutStatus = "quoted"
	PayoutStatusOrdered    PayoutStatus = "ordered"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
	PayoutStatusCancelled  PayoutStatus = "cancelled"
)

// Payout описывает выплату: котировка, затем ордер, затем транзакция.
// Суммы хранятся в минимальных единицах валюты; курс и комиссия —
// снимки значений, возвращённых процессором при котировке.
type Payout struct {
	ID             string
	OrganizationID string
	BeneficiaryID  *string
	MestaQuoteID   *string
	MestaOrderID   *string
	AmountCents    int64
	SourceCurrency string
	TargetCurrency string
	ExchangeRate   *float64
	FeeCents       *int64
	Status         PayoutStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TransactionType описывает тип записи в локальном журнале транзакций.
type TransactionType string

const (
	TransactionTypePayout  TransactionType = "payout"
	TransactionTypeDeposit TransactionType = "deposit"
	TransactionTypeRefund  TransactionType = "refund"
)

// Transaction — запись локального журнала, привязанная к транзакции
// процессора. На один mesta_transaction_id существует не более одной записи.
type Transaction struct {
	ID                 string
	OrganizationID     string
	PayoutID           *string
	MestaTransactionID string
	Type               TransactionType
	AmountCents        int64
	Currency           string
	Status             string
	Reference          string
	// Metadata хранит исходный ответ процессора как есть.
	Metadata  map[string]any
	CreatedAt time.Time
}
