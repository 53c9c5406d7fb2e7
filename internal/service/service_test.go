package service

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/mmeshcher/payout-system/internal/mesta"
	"github.com/mmeshcher/payout-system/internal/model"
	"github.com/mmeshcher/payout-system/internal/repository"
)

func strPtr(s string) *string { return &s }

func f64Ptr(f float64) *float64 { return &f }

type stubRepo struct {
	org            *model.Organization
	orgErr         error
	beneficiary    *model.Beneficiary
	beneficiaryErr error
	payout         *model.Payout
	payoutErr      error

	setSenderErr      error
	setSenderID       string
	kycStatusUpdates  []model.KYCStatus
	setOrderedErr     error
	setOrderedOrderID string
	payoutStatusSet   model.PayoutStatus

	// журнал транзакций держим в памяти, как это делает хранилище:
	// ключ — идентификатор транзакции процессора.
	ledger map[string]*model.Transaction
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateUser(ctx context.Context, email, name string, passwordHash []byte) (string, error) {
	return "user-1", nil
}

func (s *stubRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, repository.ErrUserNotFound
}

func (s *stubRepo) CreateOrganization(ctx context.Context, o *model.Organization) (string, error) {
	return "org-1", nil
}

func (s *stubRepo) GetOrganization(ctx context.Context, orgID, userID string) (*model.Organization, error) {
	return s.org, s.orgErr
}

func (s *stubRepo) GetOrganizationByUser(ctx context.Context, userID string) (*model.Organization, error) {
	return s.org, s.orgErr
}

func (s *stubRepo) UpdateOrganization(ctx context.Context, o *model.Organization) error {
	return nil
}

func (s *stubRepo) SetMestaSenderID(ctx context.Context, orgID, senderID string) error {
	if s.setSenderErr != nil {
		return s.setSenderErr
	}
	s.setSenderID = senderID
	return nil
}

func (s *stubRepo) UpdateKYCStatus(ctx context.Context, orgID string, status model.KYCStatus) error {
	s.kycStatusUpdates = append(s.kycStatusUpdates, status)
	return nil
}

func (s *stubRepo) ListOrganizationIDsWithSender(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (s *stubRepo) CreateBeneficiary(ctx context.Context, b *model.Beneficiary) (string, error) {
	return "ben-1", nil
}

func (s *stubRepo) GetBeneficiary(ctx context.Context, beneficiaryID, userID string) (*model.Beneficiary, error) {
	return s.beneficiary, s.beneficiaryErr
}

func (s *stubRepo) ListBeneficiaries(ctx context.Context, userID, orgID string) ([]model.Beneficiary, error) {
	return nil, nil
}

func (s *stubRepo) UpdateBeneficiary(ctx context.Context, b *model.Beneficiary) error {
	return nil
}

func (s *stubRepo) UpdateBeneficiaryStatus(ctx context.Context, beneficiaryID string, status model.BeneficiaryStatus) error {
	return nil
}

func (s *stubRepo) DeleteBeneficiary(ctx context.Context, beneficiaryID string) error {
	return nil
}

func (s *stubRepo) CreatePayout(ctx context.Context, p *model.Payout) (string, error) {
	return "payout-1", nil
}

func (s *stubRepo) GetPayout(ctx context.Context, payoutID, userID string) (*model.Payout, error) {
	return s.payout, s.payoutErr
}

func (s *stubRepo) GetPayoutByQuoteID(ctx context.Context, quoteID, orgID string) (*model.Payout, error) {
	return s.payout, s.payoutErr
}

func (s *stubRepo) ListPayouts(ctx context.Context, userID, orgID string) ([]model.Payout, error) {
	return nil, nil
}

func (s *stubRepo) SetPayoutOrdered(ctx context.Context, payoutID, orderID string) error {
	if s.setOrderedErr != nil {
		return s.setOrderedErr
	}
	s.setOrderedOrderID = orderID
	return nil
}

func (s *stubRepo) UpdatePayoutStatus(ctx context.Context, payoutID string, status model.PayoutStatus) error {
	s.payoutStatusSet = status
	return nil
}

func (s *stubRepo) InsertTransaction(ctx context.Context, t *model.Transaction) (bool, error) {
	if s.ledger == nil {
		s.ledger = map[string]*model.Transaction{}
	}
	if _, ok := s.ledger[t.MestaTransactionID]; ok {
		return false, nil
	}
	stored := *t
	stored.ID = "local-" + t.MestaTransactionID
	s.ledger[t.MestaTransactionID] = &stored
	return true, nil
}

func (s *stubRepo) GetTransactionByMestaID(ctx context.Context, mestaTxID string) (*model.Transaction, error) {
	if t, ok := s.ledger[mestaTxID]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, repository.ErrTransactionNotFound
}

func (s *stubRepo) GetTransaction(ctx context.Context, transactionID, userID string) (*model.Transaction, error) {
	for _, t := range s.ledger {
		if t.ID == transactionID {
			copied := *t
			return &copied, nil
		}
	}
	return nil, repository.ErrTransactionNotFound
}

func (s *stubRepo) UpdateTransactionStatus(ctx context.Context, transactionID, status string) error {
	for _, t := range s.ledger {
		if t.ID == transactionID {
			t.Status = status
			return nil
		}
	}
	return repository.ErrTransactionNotFound
}

func (s *stubRepo) ListTransactions(ctx context.Context, userID string, filter repository.TransactionFilter) ([]model.Transaction, error) {
	out := make([]model.Transaction, 0, len(s.ledger))
	for _, t := range s.ledger {
		out = append(out, *t)
	}
	return out, nil
}

func (s *stubRepo) GetTransactionSummary(ctx context.Context, userID string) ([]repository.TransactionSummaryRow, error) {
	return nil, nil
}

type stubGateway struct {
	sender       *mesta.Sender
	senderErr    error
	remoteSender *mesta.Sender
	getSenderErr error

	remoteBeneficiary *mesta.Beneficiary
	beneficiaryErr    error

	quote       *mesta.Quote
	quoteErr    error
	order       *mesta.Order
	orderErr    error
	getOrder    *mesta.Order
	getOrderErr error

	txs    []mesta.Transaction
	txsErr error

	createSenderCalls      int
	createBeneficiaryCalls int
	createOrderCalls       int
	listTransactionsCalls  int

	lastSenderDetails      mesta.SenderDetails
	lastBeneficiaryDetails mesta.BeneficiaryDetails
	lastQuoteRequest       mesta.QuoteRequest
}

func (g *stubGateway) CreateSender(ctx context.Context, details mesta.SenderDetails) (*mesta.Sender, error) {
	g.createSenderCalls++
	g.lastSenderDetails = details
	return g.sender, g.senderErr
}

func (g *stubGateway) GetSender(ctx context.Context, senderID string) (*mesta.Sender, error) {
	return g.remoteSender, g.getSenderErr
}

func (g *stubGateway) VerifySender(ctx context.Context, senderID string) error {
	return nil
}

func (g *stubGateway) UploadDocument(ctx context.Context, senderID string, doc mesta.DocumentUpload) (*mesta.UploadedDocument, error) {
	return &mesta.UploadedDocument{ID: "doc-1", Type: doc.Type, Status: "uploaded"}, nil
}

func (g *stubGateway) CreateBeneficiary(ctx context.Context, details mesta.BeneficiaryDetails) (*mesta.Beneficiary, error) {
	g.createBeneficiaryCalls++
	g.lastBeneficiaryDetails = details
	return g.remoteBeneficiary, g.beneficiaryErr
}

func (g *stubGateway) UpdateBeneficiary(ctx context.Context, beneficiaryID string, fields map[string]any) (*mesta.Beneficiary, error) {
	return g.remoteBeneficiary, g.beneficiaryErr
}

func (g *stubGateway) DeleteBeneficiary(ctx context.Context, beneficiaryID string) error {
	return nil
}

func (g *stubGateway) VerifyBeneficiary(ctx context.Context, beneficiaryID string) error {
	return nil
}

func (g *stubGateway) GetBeneficiaryValidationRules(ctx context.Context, params url.Values) (map[string]any, error) {
	return map[string]any{}, nil
}

func (g *stubGateway) CreateQuote(ctx context.Context, req mesta.QuoteRequest) (*mesta.Quote, error) {
	g.lastQuoteRequest = req
	return g.quote, g.quoteErr
}

func (g *stubGateway) CreateOrder(ctx context.Context, req mesta.OrderRequest) (*mesta.Order, error) {
	g.createOrderCalls++
	return g.order, g.orderErr
}

func (g *stubGateway) GetOrder(ctx context.Context, orderID string) (*mesta.Order, error) {
	return g.getOrder, g.getOrderErr
}

func (g *stubGateway) CancelOrder(ctx context.Context, orderID string) error {
	return nil
}

func (g *stubGateway) ListTransactions(ctx context.Context, params url.Values) ([]mesta.Transaction, error) {
	g.listTransactionsCalls++
	return g.txs, g.txsErr
}

func verifiedOrg() *model.Organization {
	return &model.Organization{
		ID:            "org-1",
		UserID:        "user-1",
		Name:          "Acme",
		MestaSenderID: strPtr("snd-1"),
		KYCStatus:     model.KYCStatusVerified,
	}
}

func TestCreateSender_ConflictWithoutRemoteCall(t *testing.T) {
	repo := &stubRepo{org: verifiedOrg()}
	gw := &stubGateway{}
	svc := NewService(repo, gw, nil)

	_, _, err := svc.CreateSender(context.Background(), "org-1", "user-1", mesta.SenderDetails{})
	if !errors.Is(err, ErrSenderExists) {
		t.Fatalf("expected ErrSenderExists, got %v", err)
	}
	if gw.createSenderCalls != 0 {
		t.Fatalf("expected no remote calls, got %d", gw.createSenderCalls)
	}
}

func TestCreateSender_UnconfiguredGatewayReturnsError(t *testing.T) {
	repo := &stubRepo{org: &model.Organization{ID: "org-1", UserID: "user-1", KYCStatus: model.KYCStatusNotStarted}}
	svc := NewService(repo, mesta.NewClient("", "", ""), nil)

	_, _, err := svc.CreateSender(context.Background(), "org-1", "user-1", mesta.SenderDetails{FullName: "Acme"})
	if !errors.Is(err, mesta.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if repo.setSenderID != "" {
		t.Fatalf("expected no local mutation, sender id %q persisted", repo.setSenderID)
	}

	if _, err := svc.GetBeneficiaryValidationRules(context.Background(), "IN", "INR"); !errors.Is(err, mesta.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured from validation rules, got %v", err)
	}
}

func TestCreateSender_PersistsSenderID(t *testing.T) {
	repo := &stubRepo{org: &model.Organization{ID: "org-1", UserID: "user-1", KYCStatus: model.KYCStatusNotStarted}}
	gw := &stubGateway{sender: &mesta.Sender{ID: "snd-9", Status: "created"}}
	svc := NewService(repo, gw, nil)

	org, sender, err := svc.CreateSender(context.Background(), "org-1", "user-1", mesta.SenderDetails{FullName: "Acme"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.setSenderID != "snd-9" {
		t.Fatalf("expected sender id persisted, got %q", repo.setSenderID)
	}
	if org.MestaSenderID == nil || *org.MestaSenderID != "snd-9" {
		t.Fatalf("expected org linked to snd-9, got %v", org.MestaSenderID)
	}
	if org.KYCStatus != model.KYCStatusPending {
		t.Fatalf("expected pending status, got %s", org.KYCStatus)
	}
	if sender.ID != "snd-9" {
		t.Fatalf("unexpected sender: %+v", sender)
	}
}

func TestCreateSender_ConcurrentCreateLoses(t *testing.T) {
	repo := &stubRepo{
		org:          &model.Organization{ID: "org-1", UserID: "user-1"},
		setSenderErr: repository.ErrSenderAlreadySet,
	}
	gw := &stubGateway{sender: &mesta.Sender{ID: "snd-2"}}
	svc := NewService(repo, gw, nil)

	_, _, err := svc.CreateSender(context.Background(), "org-1", "user-1", mesta.SenderDetails{})
	if !errors.Is(err, ErrSenderExists) {
		t.Fatalf("expected ErrSenderExists after lost race, got %v", err)
	}
}

func TestGetKYCStatus_NoSender(t *testing.T) {
	repo := &stubRepo{org: &model.Organization{ID: "org-1", KYCStatus: model.KYCStatusNotStarted}}
	gw := &stubGateway{getSenderErr: errors.New("must not be called")}
	svc := NewService(repo, gw, nil)

	org, sender, err := svc.GetKYCStatus(context.Background(), "org-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender != nil {
		t.Fatalf("expected no remote sender")
	}
	if org.KYCStatus != model.KYCStatusNotStarted {
		t.Fatalf("expected not_started, got %s", org.KYCStatus)
	}
}

func TestGetKYCStatus_UpstreamFailureReturnsStored(t *testing.T) {
	repo := &stubRepo{org: &model.Organization{
		ID:            "org-1",
		MestaSenderID: strPtr("snd-1"),
		KYCStatus:     model.KYCStatusUnderReview,
	}}
	gw := &stubGateway{getSenderErr: mesta.ErrTimeout}
	svc := NewService(repo, gw, nil)

	org, _, err := svc.GetKYCStatus(context.Background(), "org-1", "user-1")
	if err != nil {
		t.Fatalf("read path must not propagate upstream failure, got %v", err)
	}
	if org.KYCStatus != model.KYCStatusUnderReview {
		t.Fatalf("expected stored status, got %s", org.KYCStatus)
	}
	if len(repo.kycStatusUpdates) != 0 {
		t.Fatalf("stored status must not change on upstream failure")
	}
}

func TestGetKYCStatus_PersistsOnlyOnChange(t *testing.T) {
	repo := &stubRepo{org: &model.Organization{
		ID:            "org-1",
		MestaSenderID: strPtr("snd-1"),
		KYCStatus:     model.KYCStatusPending,
	}}
	gw := &stubGateway{remoteSender: &mesta.Sender{ID: "snd-1", Status: "verified"}}
	svc := NewService(repo, gw, nil)

	org, _, err := svc.GetKYCStatus(context.Background(), "org-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if org.KYCStatus != model.KYCStatusVerified {
		t.Fatalf("expected verified, got %s", org.KYCStatus)
	}
	if len(repo.kycStatusUpdates) != 1 || repo.kycStatusUpdates[0] != model.KYCStatusVerified {
		t.Fatalf("expected single status update, got %v", repo.kycStatusUpdates)
	}

	// повторный вызов с тем же удалённым статусом не пишет в хранилище
	if _, _, err := svc.GetKYCStatus(context.Background(), "org-1", "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.kycStatusUpdates) != 1 {
		t.Fatalf("unchanged status must not be persisted again, got %v", repo.kycStatusUpdates)
	}
}

func TestMapSenderStatus(t *testing.T) {
	tests := []struct {
		remote string
		want   model.KYCStatus
	}{
		{"created", model.KYCStatusPending},
		{"pending", model.KYCStatusPending},
		{"under_review", model.KYCStatusUnderReview},
		{"verified", model.KYCStatusVerified},
		{"approved", model.KYCStatusVerified},
		{"rejected", model.KYCStatusRejected},
		{"failed", model.KYCStatusRejected},
		{"something_new", model.KYCStatusPending},
	}

	for _, tt := range tests {
		if got := mapSenderStatus(tt.remote); got != tt.want {
			t.Errorf("mapSenderStatus(%q) = %s, want %s", tt.remote, got, tt.want)
		}
	}
}

func TestMapOrderStatus(t *testing.T) {
	tests := []struct {
		remote  string
		current model.PayoutStatus
		want    model.PayoutStatus
	}{
		{"created", model.PayoutStatusQuoted, model.PayoutStatusOrdered},
		{"processing", model.PayoutStatusOrdered, model.PayoutStatusProcessing},
		{"completed", model.PayoutStatusProcessing, model.PayoutStatusCompleted},
		{"failed", model.PayoutStatusProcessing, model.PayoutStatusFailed},
		{"cancelled", model.PayoutStatusOrdered, model.PayoutStatusCancelled},
		{"exotic", model.PayoutStatusProcessing, model.PayoutStatusProcessing},
	}

	for _, tt := range tests {
		if got := mapOrderStatus(tt.remote, tt.current); got != tt.want {
			t.Errorf("mapOrderStatus(%q, %s) = %s, want %s", tt.remote, tt.current, got, tt.want)
		}
	}
}

func TestCreateBeneficiary_RequiresVerifiedOrg(t *testing.T) {
	repo := &stubRepo{org: &model.Organization{ID: "org-1", KYCStatus: model.KYCStatusPending}}
	gw := &stubGateway{}
	svc := NewService(repo, gw, nil)

	_, err := svc.CreateBeneficiary(context.Background(), "org-1", "user-1", mesta.BeneficiaryDetails{})
	if !errors.Is(err, ErrOrgNotVerified) {
		t.Fatalf("expected ErrOrgNotVerified, got %v", err)
	}
	if gw.createBeneficiaryCalls != 0 {
		t.Fatalf("expected no remote calls, got %d", gw.createBeneficiaryCalls)
	}
}

func TestCreateBeneficiary_InjectsSenderID(t *testing.T) {
	repo := &stubRepo{org: verifiedOrg()}
	gw := &stubGateway{remoteBeneficiary: &mesta.Beneficiary{ID: "mb-1"}}
	svc := NewService(repo, gw, nil)

	beneficiary, err := svc.CreateBeneficiary(context.Background(), "org-1", "user-1", mesta.BeneficiaryDetails{
		FirstName: "Ravi",
		LastName:  "Kumar",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.lastBeneficiaryDetails.SenderID != "snd-1" {
		t.Fatalf("expected sender id injected, got %q", gw.lastBeneficiaryDetails.SenderID)
	}
	if beneficiary.MestaBeneficiaryID == nil || *beneficiary.MestaBeneficiaryID != "mb-1" {
		t.Fatalf("expected beneficiary linked to mb-1")
	}
	if beneficiary.Status != model.BeneficiaryStatusPending {
		t.Fatalf("expected pending status, got %s", beneficiary.Status)
	}
}

func TestCreateQuote_SnapshotsRateAndFee(t *testing.T) {
	repo := &stubRepo{
		org: verifiedOrg(),
		beneficiary: &model.Beneficiary{
			ID:                 "ben-1",
			OrganizationID:     "org-1",
			MestaBeneficiaryID: strPtr("mb-1"),
		},
	}
	gw := &stubGateway{quote: &mesta.Quote{
		ID:           "q-1",
		ExchangeRate: f64Ptr(83.5),
		FeeAmount:    f64Ptr(1.25),
	}}
	svc := NewService(repo, gw, nil)

	payout, quote, err := svc.CreateQuote(context.Background(), "user-1", QuoteInput{
		OrganizationID: "org-1",
		BeneficiaryID:  "ben-1",
		AmountCents:    10000,
		SourceCurrency: "USD",
		TargetCurrency: "INR",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.ID != "q-1" {
		t.Fatalf("unexpected quote: %+v", quote)
	}
	if payout.Status != model.PayoutStatusQuoted {
		t.Fatalf("expected quoted status, got %s", payout.Status)
	}
	if payout.ExchangeRate == nil || *payout.ExchangeRate != 83.5 {
		t.Fatalf("expected rate snapshot 83.5, got %v", payout.ExchangeRate)
	}
	if payout.FeeCents == nil || *payout.FeeCents != 125 {
		t.Fatalf("expected fee snapshot 125 cents, got %v", payout.FeeCents)
	}
	if gw.lastQuoteRequest.Amount != 100 {
		t.Fatalf("expected amount 100 at boundary, got %v", gw.lastQuoteRequest.Amount)
	}
	if gw.lastQuoteRequest.SenderID != "snd-1" || gw.lastQuoteRequest.BeneficiaryID != "mb-1" {
		t.Fatalf("unexpected quote request: %+v", gw.lastQuoteRequest)
	}
}

func TestCreateQuote_RequiresVerifiedOrg(t *testing.T) {
	repo := &stubRepo{
		org: &model.Organization{ID: "org-1", KYCStatus: model.KYCStatusPending, MestaSenderID: strPtr("snd-1")},
		beneficiary: &model.Beneficiary{
			ID:                 "ben-1",
			OrganizationID:     "org-1",
			MestaBeneficiaryID: strPtr("mb-1"),
		},
	}
	svc := NewService(repo, &stubGateway{}, nil)

	_, _, err := svc.CreateQuote(context.Background(), "user-1", QuoteInput{
		OrganizationID: "org-1",
		BeneficiaryID:  "ben-1",
		AmountCents:    100,
	})
	if !errors.Is(err, ErrOrgNotVerified) {
		t.Fatalf("expected ErrOrgNotVerified, got %v", err)
	}
}

func TestCreateOrder_RequiresQuotedPayout(t *testing.T) {
	repo := &stubRepo{
		org: verifiedOrg(),
		payout: &model.Payout{
			ID:             "payout-1",
			OrganizationID: "org-1",
			Status:         model.PayoutStatusOrdered,
			MestaQuoteID:   strPtr("q-1"),
		},
	}
	gw := &stubGateway{}
	svc := NewService(repo, gw, nil)

	_, _, err := svc.CreateOrder(context.Background(), "user-1", OrderInput{OrganizationID: "org-1", QuoteID: "q-1"})
	if !errors.Is(err, ErrPayoutNotQuoted) {
		t.Fatalf("expected ErrPayoutNotQuoted, got %v", err)
	}
	if gw.createOrderCalls != 0 {
		t.Fatalf("expected no remote calls, got %d", gw.createOrderCalls)
	}
}

func TestCreateOrder_CreatesLedgerRow(t *testing.T) {
	repo := &stubRepo{
		org: verifiedOrg(),
		payout: &model.Payout{
			ID:             "payout-1",
			OrganizationID: "org-1",
			Status:         model.PayoutStatusQuoted,
			MestaQuoteID:   strPtr("q-1"),
			AmountCents:    10000,
			SourceCurrency: "USD",
		},
	}
	gw := &stubGateway{order: &mesta.Order{ID: "ord-1", Status: "created", TransactionID: "mtx-1"}}
	svc := NewService(repo, gw, nil)

	payout, order, err := svc.CreateOrder(context.Background(), "user-1", OrderInput{OrganizationID: "org-1", QuoteID: "q-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != "ord-1" {
		t.Fatalf("unexpected order: %+v", order)
	}
	if payout.Status != model.PayoutStatusOrdered {
		t.Fatalf("expected ordered status, got %s", payout.Status)
	}
	if repo.setOrderedOrderID != "ord-1" {
		t.Fatalf("expected order id persisted, got %q", repo.setOrderedOrderID)
	}

	row, ok := repo.ledger["mtx-1"]
	if !ok {
		t.Fatalf("expected ledger row for mtx-1")
	}
	if row.Type != model.TransactionTypePayout || row.AmountCents != 10000 || row.Status != "processing" {
		t.Fatalf("unexpected ledger row: %+v", row)
	}
	if row.PayoutID == nil || *row.PayoutID != "payout-1" {
		t.Fatalf("expected ledger row linked to payout")
	}
}

func TestGetOrder_UpstreamFailureReturnsStored(t *testing.T) {
	repo := &stubRepo{payout: &model.Payout{
		ID:           "payout-1",
		Status:       model.PayoutStatusProcessing,
		MestaOrderID: strPtr("ord-1"),
	}}
	gw := &stubGateway{getOrderErr: &mesta.APIError{StatusCode: 503, Body: "unavailable"}}
	svc := NewService(repo, gw, nil)

	payout, order, err := svc.GetOrder(context.Background(), "payout-1", "user-1")
	if err != nil {
		t.Fatalf("read path must not propagate upstream failure, got %v", err)
	}
	if order != nil {
		t.Fatalf("expected no remote order on failure")
	}
	if payout.Status != model.PayoutStatusProcessing {
		t.Fatalf("expected stored status, got %s", payout.Status)
	}
}

func TestCancelOrder_RequiresOrder(t *testing.T) {
	repo := &stubRepo{payout: &model.Payout{ID: "payout-1", Status: model.PayoutStatusQuoted}}
	svc := NewService(repo, &stubGateway{}, nil)

	_, err := svc.CancelOrder(context.Background(), "payout-1", "user-1")
	if !errors.Is(err, ErrNoOrder) {
		t.Fatalf("expected ErrNoOrder, got %v", err)
	}
}

func TestVerifyBeneficiary_RequiresLink(t *testing.T) {
	repo := &stubRepo{beneficiary: &model.Beneficiary{ID: "ben-1"}}
	svc := NewService(repo, &stubGateway{}, nil)

	_, err := svc.VerifyBeneficiary(context.Background(), "ben-1", "user-1")
	if !errors.Is(err, ErrBeneficiaryNotLinked) {
		t.Fatalf("expected ErrBeneficiaryNotLinked, got %v", err)
	}
}

func TestSyncTransactions_CreatesAndUpdates(t *testing.T) {
	repo := &stubRepo{org: verifiedOrg()}
	gw := &stubGateway{txs: []mesta.Transaction{
		{ID: "mtx-1", Type: "payout", Amount: 100.50, Currency: "USD", Status: "pending"},
		{ID: "mtx-2", Type: "deposit", Amount: 25, Currency: "USD", Status: "completed"},
	}}
	svc := NewService(repo, gw, nil)

	res, err := svc.SyncTransactions(context.Background(), "org-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Created != 2 || res.Updated != 0 {
		t.Fatalf("expected {2 0}, got %+v", res)
	}
	if repo.ledger["mtx-1"].AmountCents != 10050 {
		t.Fatalf("expected 10050 cents, got %d", repo.ledger["mtx-1"].AmountCents)
	}

	// статус поменялся у процессора — локально обновляется только статус
	gw.txs[0].Status = "completed"
	res, err = svc.SyncTransactions(context.Background(), "org-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Created != 0 || res.Updated != 1 {
		t.Fatalf("expected {0 1}, got %+v", res)
	}
	if repo.ledger["mtx-1"].Status != "completed" {
		t.Fatalf("expected completed, got %s", repo.ledger["mtx-1"].Status)
	}
}

func TestSyncTransactions_Idempotent(t *testing.T) {
	repo := &stubRepo{org: verifiedOrg()}
	gw := &stubGateway{txs: []mesta.Transaction{
		{ID: "mtx-1", Type: "payout", Amount: 10, Currency: "USD", Status: "completed"},
	}}
	svc := NewService(repo, gw, nil)

	if _, err := svc.SyncTransactions(context.Background(), "org-1", "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := svc.SyncTransactions(context.Background(), "org-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Created != 0 || res.Updated != 0 {
		t.Fatalf("second run over unchanged feed must be a no-op, got %+v", res)
	}
}

func TestSyncTransactions_SkipsEmptyIDs(t *testing.T) {
	repo := &stubRepo{org: verifiedOrg()}
	gw := &stubGateway{txs: []mesta.Transaction{
		{ID: "", Status: "completed"},
		{ID: "mtx-1", Type: "payout", Amount: 10, Currency: "USD", Status: "completed"},
	}}
	svc := NewService(repo, gw, nil)

	res, err := svc.SyncTransactions(context.Background(), "org-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Created != 1 {
		t.Fatalf("expected single row, got %+v", res)
	}
}

func TestIsTransientUpstream(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", mesta.ErrTimeout, true},
		{"server error", &mesta.APIError{StatusCode: 502}, true},
		{"client error", &mesta.APIError{StatusCode: 404}, false},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransientUpstream(tt.err); got != tt.want {
				t.Fatalf("isTransientUpstream(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
