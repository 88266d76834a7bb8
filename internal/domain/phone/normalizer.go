// Package phone turns raw phone strings into comparison keys.
package phone

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Unnormalizable is returned for input with no digits. Two unnormalizable
// phones are never considered equal.
const Unnormalizable = ""

// CountryRule rewrites an international prefix into local notation, e.g.
// 886912345678 -> 0912345678 for {Prefix: "886", SubscriberLength: 9, LocalPrefix: "0"}.
type CountryRule struct {
	Prefix           string
	SubscriberLength int
	LocalPrefix      string
}

// Policy is the ordered list of country rules. The first matching rule wins.
type Policy struct {
	Rules []CountryRule
}

// DefaultPolicy handles Taiwanese mobile numbers
func DefaultPolicy() Policy {
	return Policy{Rules: []CountryRule{{Prefix: "886", SubscriberLength: 9, LocalPrefix: "0"}}}
}

// Normalizer maps raw phones to canonical keys. The zero value strips
// non-digits and applies no country rules.
type Normalizer struct {
	policy Policy
}

func NewNormalizer(policy Policy) *Normalizer {
	return &Normalizer{policy: policy}
}

// Normalize returns the canonical key for raw, or Unnormalizable. It is pure
// and never fails.
func (n *Normalizer) Normalize(raw string) string {
	digits := Digits(raw)
	if digits == "" {
		return Unnormalizable
	}

	if n == nil {
		return digits
	}
	for _, rule := range n.policy.Rules {
		if key, ok := rule.apply(digits); ok {
			return key
		}
	}
	return digits
}

func (r CountryRule) apply(digits string) (string, bool) {
	if r.Prefix == "" || !strings.HasPrefix(digits, r.Prefix) {
		return "", false
	}
	rest := digits[len(r.Prefix):]

	switch {
	case len(rest) == r.SubscriberLength:
		return r.LocalPrefix + rest, true
	case r.LocalPrefix != "" &&
		len(rest) == r.SubscriberLength+len(r.LocalPrefix) &&
		strings.HasPrefix(rest, r.LocalPrefix):
		// "+886 0912..." keeps its trunk prefix
		return rest, true
	}
	return "", false
}

// Digits strips every character that is not an ASCII decimal digit
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Validate checks that raw looks like a real number for region. It is a data
// quality hint for intake and plays no part in grouping.
func Validate(raw, region string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("phone is empty")
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return fmt.Errorf("parse phone: %w", err)
	}
	if !phonenumbers.IsValidNumber(number) {
		return fmt.Errorf("phone %q is not a valid %s number", raw, region)
	}
	return nil
}
