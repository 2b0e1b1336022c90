package service

import (
	"strings"
)

// NormalizePhone converts a Kenyan mobile number to the 2547XXXXXXXX /
// 2541XXXXXXXX form the gateway expects.
func NormalizePhone(raw string) (string, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "+")

	for _, r := range s {
		if r < '0' || r > '9' {
			return "", invalidPhone()
		}
	}

	var local string
	switch {
	case len(s) == 12 && strings.HasPrefix(s, "254"):
		local = s[3:]
	case len(s) == 10 && strings.HasPrefix(s, "0"):
		local = s[1:]
	case len(s) == 9:
		local = s
	default:
		return "", invalidPhone()
	}

	if local[0] != '7' && local[0] != '1' {
		return "", invalidPhone()
	}
	return "254" + local, nil
}

func invalidPhone() error {
	return &ValidationError{Field: "buyer_phone", Message: "must be a Kenyan mobile number such as 0712345678"}
}

// maskPhone hides the middle digits for logs.
func maskPhone(msisdn string) string {
	if len(msisdn) < 8 {
		return "****"
	}
	return msisdn[:4] + "****" + msisdn[len(msisdn)-4:]
}
