package utils

import "strings"

const maskRunes = 6

// MaskSecret hides a credential for log output. Secrets long enough to stay
// unguessable keep their first and last two characters so that two different
// keys can still be told apart in a log.
func MaskSecret(s string) string {
	if len(s) < 10 {
		return strings.Repeat("*", maskRunes)
	}
	return s[:2] + strings.Repeat("*", maskRunes) + s[len(s)-2:]
}
