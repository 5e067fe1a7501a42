// Package phone normalizes payer phone numbers into the alias format the
// Swish API expects: country code followed by the subscriber number, digits
// only, no plus sign.
package phone

import "strings"

const countryCode = "46"

// Normalize is total and idempotent: it always returns some string, and
// normalizing an already-normalized number is a no-op.
func Normalize(raw string) string {
	s := strings.Join(strings.Fields(raw), "")
	s = strings.TrimPrefix(s, "+")

	// National trunk prefix: 07x... becomes 467x...
	if strings.HasPrefix(s, "0") {
		return countryCode + s[1:]
	}
	if !strings.HasPrefix(s, countryCode) {
		return countryCode + s
	}
	return s
}

// IsValid reports whether a normalized alias is 8-15 ASCII digits.
func IsValid(alias string) bool {
	if len(alias) < 8 || len(alias) > 15 {
		return false
	}
	for _, c := range alias {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
