package mapper

import "strings"

// ReverseStreet translates a street line between directory conventions by
// relocating the house number: a leading all-digit token moves to the end
// ("13 Auenweg" becomes "Auenweg 13"), otherwise a trailing all-digit token
// moves to the front. Lines where the move would not round-trip, such as
// streets with digit tokens at both ends, are returned unchanged, so
// ReverseStreet(ReverseStreet(s)) == s holds for every input.
func ReverseStreet(s string) string {
	out := shiftNumber(s)
	if out == s {
		return s
	}
	if shiftNumber(out) != s {
		return s
	}
	return out
}

// shiftNumber moves a leading house-number token to the end, or failing
// that a trailing one to the front. Tokens are split on whitespace and
// rejoined with single spaces.
func shiftNumber(s string) string {
	tokens := strings.Fields(s)
	if len(tokens) < 2 {
		return s
	}

	last := len(tokens) - 1
	switch {
	case isHouseNumber(tokens[0]):
		tokens = append(tokens[1:], tokens[0])
	case isHouseNumber(tokens[last]):
		tokens = append([]string{tokens[last]}, tokens[:last]...)
	default:
		return s
	}
	return strings.Join(tokens, " ")
}

// isHouseNumber reports whether a token consists solely of ASCII digits.
func isHouseNumber(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
