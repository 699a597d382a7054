package authflow

import "strings"

// defaultCountryCode is used when a phone number carries no explicit code.
const defaultCountryCode = "91"

// NormalizeE164 converts a raw phone input to E.164 form. Inputs already
// carrying a leading + pass through unchanged, a bare 10-digit national
// number gets the default country code, and anything else gets a single
// leading +. The function is idempotent.
func NormalizeE164(phone, countryCode string) string {
	p := strings.TrimSpace(phone)
	if strings.HasPrefix(p, "+") {
		return p
	}
	if countryCode == "" {
		countryCode = defaultCountryCode
	}
	if len(p) == 10 && digitsOnly(p) {
		return "+" + countryCode + p
	}
	return "+" + p
}

// SplitCountryCode breaks a phone input into country code and national
// number. Inputs without a leading + are treated as national numbers under
// the default country code. For + inputs the national number is the trailing
// 10 digits and the code is whatever sits between the + and it (clamped to
// the 1-3 digits real codes occupy).
func SplitCountryCode(phone, fallbackCode string) (national, code string) {
	if fallbackCode == "" {
		fallbackCode = defaultCountryCode
	}
	p := strings.TrimSpace(phone)
	if !strings.HasPrefix(p, "+") {
		return p, fallbackCode
	}
	p = strings.TrimPrefix(p, "+")
	if len(p) <= 10 {
		return p, fallbackCode
	}
	cut := len(p) - 10
	if cut > 3 {
		cut = 3
	}
	return p[cut:], p[:cut]
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
