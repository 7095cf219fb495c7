package gateway

import "strings"

// NormalizePhone coerces a dialable number into E.164-like form. Embedded
// spaces, dashes and parentheses are stripped; a leading plus survives.
// Zero-prefixed domestic numbers follow the UK convention, double-zero is
// the international dialing prefix, and anything else is assumed to carry
// its country code already and gets a bare plus.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" || strings.HasPrefix(digits, "+") {
		return digits
	}

	switch {
	case strings.HasPrefix(digits, "00"):
		return "+" + digits[2:]
	case strings.HasPrefix(digits, "0"):
		return "+44" + digits[1:]
	}
	return "+" + digits
}

// whatsappAddress wraps a normalized number with the channel marker the
// provider expects, avoiding double wrapping.
func whatsappAddress(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
