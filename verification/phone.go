package verification

import (
	"regexp"
	"strings"
)

var (
	nonDigits    = regexp.MustCompile(`\D`)
	indianMobile = regexp.MustCompile(`^\+91[6-9]\d{9}$`)
)

// FormatPhone converts a free-form number to E.164, assuming India (+91)
// when no country code is present.
func FormatPhone(phone string) string {
	digits := nonDigits.ReplaceAllString(phone, "")

	switch {
	case strings.HasPrefix(digits, "91") && len(digits) == 12:
		return "+" + digits
	case len(digits) == 10:
		return "+91" + digits
	case strings.HasPrefix(digits, "0") && len(digits) == 11:
		return "+91" + digits[1:]
	case len(digits) > 10:
		return "+" + digits
	default:
		return "+91" + digits
	}
}

// NormalizePhone formats phone and checks it is an Indian mobile number.
func NormalizePhone(phone string) (string, error) {
	formatted := FormatPhone(phone)
	if !indianMobile.MatchString(formatted) {
		return "", ErrInvalidPhone
	}
	return formatted, nil
}
