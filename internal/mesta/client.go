// Package mesta предоставляет типизированный клиент для API платёжного
// процессора Mesta: отправители (KYC), получатели, котировки, ордера и
// лента транзакций мерчанта.
package mesta

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const requestTimeout = 30 * time.Second

// ErrTimeout возвращается, если запрос к процессору превысил таймаут.
// Клиент не выполняет повторов: создание отправителей и получателей
// неидемпотентно на стороне процессора, решение о повторе принимает вызывающий.
var ErrTimeout = errors.New("mesta request timed out")

// ErrNotConfigured возвращается, если клиент создан без адреса процессора.
var ErrNotConfigured = errors.New("mesta client is not configured")

// APIError содержит HTTP-статус и тело ошибки, возвращённые процессором.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mesta api error: status %d: %s", e.StatusCode, e.Body)
}

// Client инкапсулирует HTTP-взаимодействие с API процессора Mesta.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

// NewClient создаёт клиент Mesta с указанным адресом и ключами доступа.
func NewClient(baseURL, apiKey, apiSecret string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c == nil || c.baseURL == "" {
		return ErrNotConfigured
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("x-api-secret", c.apiSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
		}
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// Address описывает почтовый адрес в формате процессора.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

// IdentificationDocument описывает документ, удостоверяющий личность отправителя.
type IdentificationDocument struct {
	Type           string `json:"type,omitempty"`
	Number         string `json:"number,omitempty"`
	IssuingCountry string `json:"issuingCountry,omitempty"`
}

// SenderDetails содержит данные для создания отправителя (KYC-профиля организации).
type SenderDetails struct {
	Type                   string                  `json:"type,omitempty"`
	FullName               string                  `json:"fullName,omitempty"`
	FirstName              string                  `json:"firstName,omitempty"`
	LastName               string                  `json:"lastName,omitempty"`
	Email                  string                  `json:"email,omitempty"`
	Phone                  string                  `json:"phone,omitempty"`
	Addresses              []Address               `json:"addresses,omitempty"`
	IdentificationNumber   string                  `json:"identificationNumber,omitempty"`
	RegistrationDate       string                  `json:"registrationDate,omitempty"`
	BusinessType           string                  `json:"businessType,omitempty"`
	Nationality            string                  `json:"nationality,omitempty"`
	DateOfBirth            string                  `json:"dateOfBirth,omitempty"`
	IdentificationDocument *IdentificationDocument `json:"identificationDocument,omitempty"`
}

// Sender описывает отправителя в ответах процессора.
type Sender struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	VerificationStatus string `json:"verification_status"`
}

// EffectiveStatus возвращает статус верификации: приоритет у поля status,
// некоторые ответы процессора несут verification_status.
func (s *Sender) EffectiveStatus() string {
	if s.Status != "" {
		return s.Status
	}
	return s.VerificationStatus
}

// CreateSender создаёт отправителя в Mesta. Операция неидемпотентна.
func (c *Client) CreateSender(ctx context.Context, details SenderDetails) (*Sender, error) {
	var sender Sender
	if err := c.do(ctx, http.MethodPost, "/senders", nil, details, &sender); err != nil {
		return nil, err
	}
	return &sender, nil
}

// GetSender возвращает отправителя по идентификатору процессора.
func (c *Client) GetSender(ctx context.Context, senderID string) (*Sender, error) {
	var sender Sender
	if err := c.do(ctx, http.MethodGet, "/senders/"+senderID, nil, nil, &sender); err != nil {
		return nil, err
	}
	return &sender, nil
}

// UpdateSender частично обновляет данные отправителя.
func (c *Client) UpdateSender(ctx context.Context, senderID string, fields map[string]any) (*Sender, error) {
	var sender Sender
	if err := c.do(ctx, http.MethodPatch, "/senders/"+senderID, nil, fields, &sender); err != nil {
		return nil, err
	}
	return &sender, nil
}

// VerifySender отправляет отправителя на верификацию. Процессор обрабатывает
// заявку асинхронно, результат появится в статусе отправителя позже.
func (c *Client) VerifySender(ctx context.Context, senderID string) error {
	return c.do(ctx, http.MethodPost, "/senders/"+senderID+"/verify", nil, nil, nil)
}

// DocumentUpload описывает загружаемый KYC-документ.
type DocumentUpload struct {
	Type        string `json:"type"`
	DocumentURL string `json:"documentUrl"`
}

// UploadedDocument описывает ответ процессора на загрузку документа.
type UploadedDocument struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

// UploadDocument загружает KYC-документ для указанного отправителя.
func (c *Client) UploadDocument(ctx context.Context, senderID string, doc DocumentUpload) (*UploadedDocument, error) {
	var uploaded UploadedDocument
	if err := c.do(ctx, http.MethodPost, "/senders/"+senderID+"/documents", nil, doc, &uploaded); err != nil {
		return nil, err
	}
	return &uploaded, nil
}

// Beneficiary описывает получателя в ответах процессора.
type Beneficiary struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateBeneficiary создаёт получателя в Mesta. Операция неидемпотентна.
func (c *Client) CreateBeneficiary(ctx context.Context, details BeneficiaryDetails) (*Beneficiary, error) {
	var beneficiary Beneficiary
	if err := c.do(ctx, http.MethodPost, "/beneficiaries", nil, buildBeneficiaryPayload(details), &beneficiary); err != nil {
		return nil, err
	}
	return &beneficiary, nil
}

// GetBeneficiary возвращает получателя по идентификатору процессора.
func (c *Client) GetBeneficiary(ctx context.Context, beneficiaryID string) (*Beneficiary, error) {
	var beneficiary Beneficiary
	if err := c.do(ctx, http.MethodGet, "/beneficiaries/"+beneficiaryID, nil, nil, &beneficiary); err != nil {
		return nil, err
	}
	return &beneficiary, nil
}

// UpdateBeneficiary частично обновляет данные получателя.
func (c *Client) UpdateBeneficiary(ctx context.Context, beneficiaryID string, fields map[string]any) (*Beneficiary, error) {
	var beneficiary Beneficiary
	if err := c.do(ctx, http.MethodPatch, "/beneficiaries/"+beneficiaryID, nil, fields, &beneficiary); err != nil {
		return nil, err
	}
	return &beneficiary, nil
}

// DeleteBeneficiary удаляет получателя на стороне процессора.
func (c *Client) DeleteBeneficiary(ctx context.Context, beneficiaryID string) error {
	return c.do(ctx, http.MethodDelete, "/beneficiaries/"+beneficiaryID, nil, nil, nil)
}

// VerifyBeneficiary запускает верификацию получателя на стороне процессора.
func (c *Client) VerifyBeneficiary(ctx context.Context, beneficiaryID string) error {
	return c.do(ctx, http.MethodPost, "/beneficiaries/"+beneficiaryID+"/verify", nil, nil, nil)
}

// QuoteRequest содержит параметры запроса котировки.
type QuoteRequest struct {
	SenderID       string  `json:"sender_id"`
	BeneficiaryID  string  `json:"beneficiary_id"`
	Amount         float64 `json:"amount"`
	SourceCurrency string  `json:"source_currency"`
	TargetCurrency string  `json:"target_currency"`
}

// Quote описывает котировку процессора: зафиксированные курс и комиссия.
// Поле курса в ответах встречается как exchange_rate или rate, комиссия —
// как fee или fees.
type Quote struct {
	ID            string   `json:"id"`
	ExchangeRate  *float64 `json:"exchange_rate"`
	RateAlt       *float64 `json:"rate"`
	FeeAmount     *float64 `json:"fee"`
	FeesAlt       *float64 `json:"fees"`
	ExpiresAt     string   `json:"expires_at"`
	TargetAmount  *float64 `json:"target_amount"`
	SourceCcyCode string   `json:"source_currency"`
	TargetCcyCode string   `json:"target_currency"`
}

// Rate возвращает курс конверсии независимо от имени поля в ответе.
func (q *Quote) Rate() *float64 {
	if q.ExchangeRate != nil {
		return q.ExchangeRate
	}
	return q.RateAlt
}

// Fee возвращает комиссию независимо от имени поля в ответе.
func (q *Quote) Fee() *float64 {
	if q.FeeAmount != nil {
		return q.FeeAmount
	}
	return q.FeesAlt
}

// CreateQuote запрашивает котировку для конверсии средств.
func (c *Client) CreateQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	var quote Quote
	if err := c.do(ctx, http.MethodPost, "/quotes", nil, req, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// GetQuote возвращает котировку по идентификатору процессора.
func (c *Client) GetQuote(ctx context.Context, quoteID string) (*Quote, error) {
	var quote Quote
	if err := c.do(ctx, http.MethodGet, "/quotes/"+quoteID, nil, nil, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// OrderRequest содержит параметры создания ордера из котировки.
type OrderRequest struct {
	QuoteID string `json:"quote_id"`
	Purpose string `json:"purpose,omitempty"`
}

// Order описывает ордер процессора.
type Order struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

// CreateOrder конвертирует котировку в ордер. Операция неидемпотентна.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder возвращает ордер по идентификатору процессора.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID, nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder отменяет ордер на стороне процессора.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodPost, "/orders/"+orderID+"/cancel", nil, nil, nil)
}

// Transaction описывает транзакцию из ленты мерчанта. Raw хранит исходный
// объект ответа целиком для сохранения в метаданных локальной записи.
type Transaction struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Status    string  `json:"status"`
	Reference string  `json:"reference"`

	Raw map[string]any `json:"-"`
}

// ListTransactions возвращает ленту транзакций мерчанта. Процессор отдаёт
// либо массив, либо объект с полем data.
func (c *Client) ListTransactions(ctx context.Context, params url.Values) ([]Transaction, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/merchant/transactions", params, nil, &raw); err != nil {
		return nil, err
	}

	list := raw
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 {
		list = envelope.Data
	}

	var txs []Transaction
	if err := json.Unmarshal(list, &txs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	var raws []map[string]any
	if err := json.Unmarshal(list, &raws); err != nil {
		return nil, fmt.Errorf("decode transactions metadata: %w", err)
	}
	for i := range txs {
		txs[i].Raw = raws[i]
	}

	return txs, nil
}

// GetBeneficiaryValidationRules возвращает правила валидации получателей
// для указанных страны и валюты.
func (c *Client) GetBeneficiaryValidationRules(ctx context.Context, params url.Values) (map[string]any, error) {
	var rules map[string]any
	if err := c.do(ctx, http.MethodGet, "/validation-rules/beneficiaries", params, nil, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}
