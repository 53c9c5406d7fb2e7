// Package validation содержит проверки входных данных сервиса выплат.
package validation

// IsValidCurrencyCode проверяет, что строка похожа на код валюты ISO 4217:
// ровно три заглавные латинские буквы.
func IsValidCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// IsValidCountryCode проверяет, что строка похожа на код страны
// ISO 3166-1 alpha-2: ровно две заглавные латинские буквы.
func IsValidCountryCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// IsValidEmail выполняет минимальную структурную проверку email: непустые
// локальная часть и домен, ровно один символ @.
func IsValidEmail(email string) bool {
	at := -1
	for i, c := range email {
		if c == '@' {
			if at != -1 {
				return false
			}
			at = i
		}
	}
	return at > 0 && at < len(email)-1
}
