package validation

import "testing"

func TestIsValidCurrencyCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"USD", true},
		{"INR", true},
		{"usd", false},
		{"US", false},
		{"USDX", false},
		{"", false},
		{"U1D", false},
	}

	for _, tt := range tests {
		if got := IsValidCurrencyCode(tt.code); got != tt.want {
			t.Errorf("IsValidCurrencyCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestIsValidCountryCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"IN", true},
		{"US", true},
		{"GB", true},
		{"in", false},
		{"IND", false},
		{"", false},
		{"1N", false},
	}

	for _, tt := range tests {
		if got := IsValidCountryCode(tt.code); got != tt.want {
			t.Errorf("IsValidCountryCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"a@b", true},
		{"", false},
		{"no-at-sign", false},
		{"@missing-local", false},
		{"missing-domain@", false},
		{"two@@ats", false},
	}

	for _, tt := range tests {
		if got := IsValidEmail(tt.email); got != tt.want {
			t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}
