package otp

import (
	"fmt"
	"strings"
)

// CountryCode is the Indonesian calling code every number is normalized to.
const CountryCode = "62"

// NormalizePhone rewrites an Indonesian phone number to the 62XXXXXXXXX form.
// Spaces, dashes and parentheses are ignored. A leading 0 or +62 is replaced
// with 62, and any other number without the 62 prefix gets it prepended.
func NormalizePhone(phone string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))

	switch {
	case cleaned == "":
		return "", fmt.Errorf("%w: phone is required", ErrInvalidPhone)
	case strings.HasPrefix(cleaned, "+62"):
		cleaned = cleaned[1:]
	case strings.HasPrefix(cleaned, "0"):
		cleaned = CountryCode + cleaned[1:]
	case !strings.HasPrefix(cleaned, CountryCode):
		cleaned = CountryCode + cleaned
	}

	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q contains non-digits", ErrInvalidPhone, phone)
		}
	}
	// 62 plus an 8 to 13 digit subscriber number.
	if len(cleaned) < 10 || len(cleaned) > 15 {
		return "", fmt.Errorf("%w: %q has the wrong length", ErrInvalidPhone, phone)
	}
	return cleaned, nil
}
