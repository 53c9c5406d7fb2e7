package mesta

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestCreateSender_SendsAuthHeaders(t *testing.T) {
	var gotKey, gotSecret, gotContentType string
	var gotBody SenderDetails

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/senders" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotKey = r.Header.Get("x-api-key")
		gotSecret = r.Header.Get("x-api-secret")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"snd-1","status":"created"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key-1", "secret-1")

	sender, err := client.CreateSender(context.Background(), SenderDetails{FullName: "Acme Ltd"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotKey != "key-1" || gotSecret != "secret-1" {
		t.Errorf("expected auth headers, got key=%q secret=%q", gotKey, gotSecret)
	}
	if gotContentType != "application/json" {
		t.Errorf("expected json content type, got %q", gotContentType)
	}
	if gotBody.FullName != "Acme Ltd" {
		t.Errorf("unexpected request body: %+v", gotBody)
	}
	if sender.ID != "snd-1" || sender.Status != "created" {
		t.Errorf("unexpected sender: %+v", sender)
	}
}

func TestDo_NonSuccessReturnsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"ifscCode is required"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "secret")

	_, err := client.CreateBeneficiary(context.Background(), BeneficiaryDetails{FirstName: "Ravi"})
	if err == nil {
		t.Fatalf("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", apiErr.StatusCode)
	}
	if apiErr.Body != `{"error":"ifscCode is required"}` {
		t.Errorf("expected upstream body preserved, got %q", apiErr.Body)
	}
}

func TestVerifySender_AcceptsEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/senders/snd-1/verify" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "secret")

	if err := client.VerifySender(context.Background(), "snd-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNotConfiguredClient(t *testing.T) {
	client := NewClient("", "", "")

	_, err := client.GetSender(context.Background(), "snd-1")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	if _, err := client.CreateSender(context.Background(), SenderDetails{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured on create, got %v", err)
	}
}

func TestQuoteFieldFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantRate float64
		wantFee  float64
	}{
		{"canonical fields", `{"id":"q-1","exchange_rate":83.5,"fee":1.25}`, 83.5, 1.25},
		{"alternate fields", `{"id":"q-1","rate":82.1,"fees":0.5}`, 82.1, 0.5},
		{"canonical wins", `{"id":"q-1","exchange_rate":83.5,"rate":1,"fee":1.25,"fees":9}`, 83.5, 1.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, "key", "secret")
			quote, err := client.CreateQuote(context.Background(), QuoteRequest{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if rate := quote.Rate(); rate == nil || *rate != tt.wantRate {
				t.Errorf("Rate() = %v, want %v", rate, tt.wantRate)
			}
			if fee := quote.Fee(); fee == nil || *fee != tt.wantFee {
				t.Errorf("Fee() = %v, want %v", fee, tt.wantFee)
			}
		})
	}
}

func TestListTransactions_BareArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/merchant/transactions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`[{"id":"mtx-1","type":"payout","amount":100.5,"currency":"USD","status":"completed","extra":"kept"}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "secret")

	txs, err := client.ListTransactions(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	if txs[0].ID != "mtx-1" || txs[0].Amount != 100.5 {
		t.Errorf("unexpected transaction: %+v", txs[0])
	}
	if txs[0].Raw["extra"] != "kept" {
		t.Errorf("expected raw payload preserved, got %v", txs[0].Raw)
	}
}

func TestListTransactions_DataEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"mtx-1","status":"pending"},{"id":"mtx-2","status":"completed"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "secret")

	txs, err := client.ListTransactions(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[1].ID != "mtx-2" || txs[1].Status != "completed" {
		t.Errorf("unexpected transaction: %+v", txs[1])
	}
}

func TestListTransactions_PassesQueryParams(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "secret")

	params := url.Values{}
	params.Set("status", "completed")
	if _, err := client.ListTransactions(context.Background(), params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery.Get("status") != "completed" {
		t.Errorf("expected status param forwarded, got %v", gotQuery)
	}
}

func TestSenderEffectiveStatus(t *testing.T) {
	tests := []struct {
		sender Sender
		want   string
	}{
		{Sender{Status: "verified"}, "verified"},
		{Sender{VerificationStatus: "pending"}, "pending"},
		{Sender{Status: "rejected", VerificationStatus: "pending"}, "rejected"},
	}

	for _, tt := range tests {
		if got := tt.sender.EffectiveStatus(); got != tt.want {
			t.Errorf("EffectiveStatus(%+v) = %q, want %q", tt.sender, got, tt.want)
		}
	}
}
