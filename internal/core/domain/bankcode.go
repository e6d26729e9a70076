package domain

import (
	"regexp"
	"strings"
)

// Korean clearing-house bank codes accepted at account creation.
var bankCodes = map[string]string{
	"002": "KDB",
	"003": "IBK",
	"004": "KB Kookmin",
	"011": "NH Nonghyup",
	"020": "Woori",
	"081": "Hana",
	"088": "Shinhan",
	"090": "KakaoBank",
	"092": "Toss Bank",
}

var accountNumberPattern = regexp.MustCompile(`^[0-9]{10,14}$`)

// ValidBankCode reports whether code is a known 3-digit bank code.
func ValidBankCode(code string) bool {
	_, ok := bankCodes[code]
	return ok
}

// BankName returns the display name for a bank code, or "" if unknown.
func BankName(code string) string {
	return bankCodes[code]
}

// ValidAccountNumber checks the account number shape: digits only after
// stripping separators, 10 to 14 of them.
func ValidAccountNumber(number string) bool {
	clean := strings.ReplaceAll(number, "-", "")
	clean = strings.ReplaceAll(clean, " ", "")
	return accountNumberPattern.MatchString(clean)
}

// NormalizeAccountNumber strips separators so the stored form is digits only.
func NormalizeAccountNumber(number string) string {
	clean := strings.ReplaceAll(number, "-", "")
	return strings.ReplaceAll(clean, " ", "")
}
