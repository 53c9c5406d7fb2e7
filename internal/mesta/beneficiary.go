package mesta

// BeneficiaryDetails содержит данные для создания получателя. Банковские
// реквизиты, специфичные для страны, заполняются в соответствующих полях,
// всё остальное — через AdditionalDetails.
type BeneficiaryDetails struct {
	SenderID          string
	FirstName         string
	LastName          string
	Email             string
	PhoneNumber       string
	Address           Address
	BankAccountName   string
	BankAccountNumber string
	BankName          string
	BankCode          string
	AccountType       string
	PaymentType       string
	SWIFT             string
	RoutingNumber     string
	IFSCCode          string
	SortCode          string
	BranchCode        string
	AdditionalDetails map[string]string
}

// countryBankingRule описывает обязательное банковское поле страны и
// тип счёта по умолчанию.
type countryBankingRule struct {
	field              string
	value              func(d BeneficiaryDetails) string
	defaultAccountType string
}

// countryBankingRules сопоставляет код страны получателя с банковским
// полем, которое ожидает процессор.
var countryBankingRules = map[string]countryBankingRule{
	"IN": {
		field:              "ifscCode",
		value:              func(d BeneficiaryDetails) string { return d.IFSCCode },
		defaultAccountType: "savings",
	},
	"US": {
		field:              "routingNumber",
		value:              func(d BeneficiaryDetails) string { return d.RoutingNumber },
		defaultAccountType: "checking",
	},
	"GB": {
		field: "sortCode",
		value: func(d BeneficiaryDetails) string { return d.SortCode },
	},
	"CA": {
		field: "branchCode",
		value: func(d BeneficiaryDetails) string { return d.BranchCode },
	},
}

// buildBeneficiaryPayload собирает тело запроса создания получателя.
// Пустые поля не включаются вовсе, процессор не принимает null.
// AdditionalDetails сливаются в paymentInfo последними и перекрывают
// вычисленные значения.
func buildBeneficiaryPayload(d BeneficiaryDetails) map[string]any {
	payload := map[string]any{
		"type":      "individual",
		"firstName": d.FirstName,
	}
	putNonEmpty(payload, "lastName", d.LastName)
	putNonEmpty(payload, "email", d.Email)
	putNonEmpty(payload, "phone", d.PhoneNumber)
	putNonEmpty(payload, "senderId", d.SenderID)

	address := map[string]any{}
	putNonEmpty(address, "street", d.Address.Street)
	putNonEmpty(address, "city", d.Address.City)
	putNonEmpty(address, "state", d.Address.State)
	putNonEmpty(address, "country", d.Address.Country)
	putNonEmpty(address, "postalCode", d.Address.PostalCode)
	if len(address) > 0 {
		payload["address"] = address
	}

	paymentType := d.PaymentType
	if paymentType == "" {
		paymentType = "bank_account"
	}

	paymentInfo := map[string]any{
		"paymentType": paymentType,
	}
	putNonEmpty(paymentInfo, "accountNumber", d.BankAccountNumber)
	putNonEmpty(paymentInfo, "accountName", d.BankAccountName)
	putNonEmpty(paymentInfo, "bankName", d.BankName)
	putNonEmpty(paymentInfo, "bankCode", d.BankCode)
	putNonEmpty(paymentInfo, "swiftCode", d.SWIFT)

	if rule, ok := countryBankingRules[d.Address.Country]; ok {
		putNonEmpty(paymentInfo, rule.field, rule.value(d))
		accountType := d.AccountType
		if accountType == "" {
			accountType = rule.defaultAccountType
		}
		putNonEmpty(paymentInfo, "accountType", accountType)
	} else {
		putNonEmpty(paymentInfo, "accountType", d.AccountType)
	}

	for k, v := range d.AdditionalDetails {
		if v != "" {
			paymentInfo[k] = v
		}
	}

	payload["paymentInfo"] = paymentInfo
	return payload
}

func putNonEmpty(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
