package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Amounts are carried as int64 minor units (two decimal places). The HTTP
// boundary speaks decimal strings; conversion happens exactly once, here.

// ParseDecimal converts "149.99" to 14999. Only the shapes "149" and
// "149.9"/"149.99" are accepted: digits, one optional dot, one or two
// fractional digits. Signs, exponents and stray characters are rejected;
// strconv is never handed anything it could reinterpret.
func ParseDecimal(s string) (int64, error) {
	s = strings.TrimSpace(s)
	whole, frac, dotted := strings.Cut(s, ".")
	if whole == "" || !isDigits(whole) {
		return 0, ErrInvalidAmount
	}
	if dotted && (frac == "" || len(frac) > 2 || !isDigits(frac)) {
		return 0, ErrInvalidAmount
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	for len(frac) < 2 {
		frac += "0"
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}

	minor := units*100 + cents
	if minor <= 0 {
		return 0, ErrInvalidAmount
	}
	return minor, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatDecimal converts 14999 back to "149.99".
func FormatDecimal(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
