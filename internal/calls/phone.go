package calls

import "strings"

const maxE164Digits = 15

// NormalizePhone rewrites a Vietnamese phone number into +84 form.
// Non-digits are dropped; a national leading 0 becomes +84 and a bare 84 gains
// its plus sign. Anything else is assumed to be a subscriber number.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", ErrInvalidPhone
	}

	switch {
	case strings.HasPrefix(digits, "0"):
		digits = "84" + digits[1:]
	case strings.HasPrefix(digits, "84"):
	default:
		digits = "84" + digits
	}
	if len(digits) > maxE164Digits {
		return "", ErrInvalidPhone
	}
	return "+" + digits, nil
}
