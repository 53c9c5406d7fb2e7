package mesta

import "testing"

func paymentInfo(t *testing.T, payload map[string]any) map[string]any {
	t.Helper()
	info, ok := payload["paymentInfo"].(map[string]any)
	if !ok {
		t.Fatalf("expected paymentInfo in payload: %v", payload)
	}
	return info
}

func TestBuildBeneficiaryPayload_CountryRules(t *testing.T) {
	tests := []struct {
		name        string
		details     BeneficiaryDetails
		wantField   string
		wantValue   string
		wantAbsent  string
		wantAccount string
	}{
		{
			name: "india requires ifsc",
			details: BeneficiaryDetails{
				FirstName:     "Ravi",
				Address:       Address{Country: "IN"},
				IFSCCode:      "HDFC0001234",
				RoutingNumber: "should-not-leak",
			},
			wantField:   "ifscCode",
			wantValue:   "HDFC0001234",
			wantAbsent:  "routingNumber",
			wantAccount: "savings",
		},
		{
			name: "us requires routing number",
			details: BeneficiaryDetails{
				FirstName:     "John",
				Address:       Address{Country: "US"},
				RoutingNumber: "021000021",
			},
			wantField:   "routingNumber",
			wantValue:   "021000021",
			wantAbsent:  "ifscCode",
			wantAccount: "checking",
		},
		{
			name: "uk requires sort code",
			details: BeneficiaryDetails{
				FirstName: "Emma",
				Address:   Address{Country: "GB"},
				SortCode:  "40-47-84",
			},
			wantField:  "sortCode",
			wantValue:  "40-47-84",
			wantAbsent: "routingNumber",
		},
		{
			name: "canada requires branch code",
			details: BeneficiaryDetails{
				FirstName:  "Luc",
				Address:    Address{Country: "CA"},
				BranchCode: "00012",
			},
			wantField:  "branchCode",
			wantValue:  "00012",
			wantAbsent: "sortCode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := paymentInfo(t, buildBeneficiaryPayload(tt.details))

			if info[tt.wantField] != tt.wantValue {
				t.Errorf("expected %s=%q, got %v", tt.wantField, tt.wantValue, info[tt.wantField])
			}
			if _, ok := info[tt.wantAbsent]; ok {
				t.Errorf("field %s must be absent: %v", tt.wantAbsent, info)
			}
			if tt.wantAccount != "" && info["accountType"] != tt.wantAccount {
				t.Errorf("expected accountType=%q, got %v", tt.wantAccount, info["accountType"])
			}
		})
	}
}

func TestBuildBeneficiaryPayload_ExplicitAccountTypeWins(t *testing.T) {
	info := paymentInfo(t, buildBeneficiaryPayload(BeneficiaryDetails{
		FirstName:   "Ravi",
		Address:     Address{Country: "IN"},
		IFSCCode:    "HDFC0001234",
		AccountType: "current",
	}))

	if info["accountType"] != "current" {
		t.Errorf("explicit account type must win over default, got %v", info["accountType"])
	}
}

func TestBuildBeneficiaryPayload_AdditionalDetailsOverride(t *testing.T) {
	info := paymentInfo(t, buildBeneficiaryPayload(BeneficiaryDetails{
		FirstName: "Ravi",
		Address:   Address{Country: "IN"},
		IFSCCode:  "HDFC0001234",
		AdditionalDetails: map[string]string{
			"ifscCode": "ICIC0004321",
			"upiId":    "ravi@upi",
			"empty":    "",
		},
	}))

	if info["ifscCode"] != "ICIC0004321" {
		t.Errorf("additionalDetails must override computed fields, got %v", info["ifscCode"])
	}
	if info["upiId"] != "ravi@upi" {
		t.Errorf("expected extra field merged, got %v", info)
	}
	if _, ok := info["empty"]; ok {
		t.Errorf("empty values must be pruned: %v", info)
	}
}

func TestBuildBeneficiaryPayload_Defaults(t *testing.T) {
	payload := buildBeneficiaryPayload(BeneficiaryDetails{
		FirstName:         "Ravi",
		BankAccountNumber: "123456",
	})

	if payload["type"] != "individual" {
		t.Errorf("expected individual type, got %v", payload["type"])
	}
	if _, ok := payload["address"]; ok {
		t.Errorf("empty address must be omitted: %v", payload)
	}

	info := paymentInfo(t, payload)
	if info["paymentType"] != "bank_account" {
		t.Errorf("expected bank_account default, got %v", info["paymentType"])
	}
	if _, ok := info["accountType"]; ok {
		t.Errorf("account type must be absent without value or rule: %v", info)
	}
}
