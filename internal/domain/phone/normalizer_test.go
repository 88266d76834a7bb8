package phone

import "testing"

func TestNormalize(t *testing.T) {
	n := NewNormalizer(DefaultPolicy())

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "localMobile", raw: "0912345678", want: "0912345678"},
		{name: "plusCountryCode", raw: "+886912345678", want: "0912345678"},
		{name: "bareCountryCode", raw: "886912345678", want: "0912345678"},
		{name: "countryCodeWithSpaces", raw: "+886 912 345 678", want: "0912345678"},
		{name: "countryCodeKeepsTrunkZero", raw: "+886 0912-345-678", want: "0912345678"},
		{name: "dashes", raw: "0912-345-678", want: "0912345678"},
		{name: "spaces", raw: "0912 345 678", want: "0912345678"},
		{name: "parentheses", raw: "(02) 2345-6789", want: "0223456789"},
		{name: "foreignNumberUntouched", raw: "+1 415 555 0100", want: "14155550100"},
		{name: "prefixWithWrongLength", raw: "88612345", want: "88612345"},
		{name: "empty", raw: "", want: Unnormalizable},
		{name: "noDigits", raw: "n/a", want: Unnormalizable},
		{name: "fullWidthDigitsIgnored", raw: "０９１２", want: Unnormalizable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeEquivalenceClasses(t *testing.T) {
	n := NewNormalizer(DefaultPolicy())

	classes := [][]string{
		{"0912345678", "+886912345678", "886912345678"},
		{"0912-345-678", "0912 345 678", "0912345678"},
	}

	for _, class := range classes {
		want := n.Normalize(class[0])
		for _, raw := range class[1:] {
			if got := n.Normalize(raw); got != want {
				t.Errorf("Normalize(%q) = %q, want %q (same as %q)", raw, got, want, class[0])
			}
		}
	}
}

func TestNormalizeCustomPolicy(t *testing.T) {
	n := NewNormalizer(Policy{Rules: []CountryRule{
		{Prefix: "852", SubscriberLength: 8, LocalPrefix: ""},
		{Prefix: "886", SubscriberLength: 9, LocalPrefix: "0"},
	}})

	if got := n.Normalize("+852 9123 4567"); got != "91234567" {
		t.Errorf("Normalize(hk) = %q, want %q", got, "91234567")
	}
	if got := n.Normalize("+886912345678"); got != "0912345678" {
		t.Errorf("Normalize(tw) = %q, want %q", got, "0912345678")
	}
}

func TestNormalizeWithoutPolicy(t *testing.T) {
	var n *Normalizer
	if got := n.Normalize("+886 912"); got != "886912" {
		t.Errorf("nil Normalize() = %q, want %q", got, "886912")
	}

	zero := &Normalizer{}
	if got := zero.Normalize("+886912345678"); got != "886912345678" {
		t.Errorf("zero Normalize() = %q, want digits only", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		expectErr bool
	}{
		{name: "twMobile", raw: "0912345678", expectErr: false},
		{name: "twMobileInternational", raw: "+886 912 345 678", expectErr: false},
		{name: "empty", raw: "  ", expectErr: true},
		{name: "garbage", raw: "abc", expectErr: true},
		{name: "tooShort", raw: "0912", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.raw, "TW")
			if (err != nil) != tt.expectErr {
				t.Errorf("Validate(%q) error = %v, expectErr %v", tt.raw, err, tt.expectErr)
			}
		})
	}
}
