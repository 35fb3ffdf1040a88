// validation.go
package shellprefs

import (
	"fmt"
	"strings"
)

var validPreferences = map[FrontendPreference]bool{
	PreferenceTwenty: true,
	PreferenceSFDS2:  true,
}

var validPolicies = map[FrontendPolicy]bool{
	PolicyAllowUserChoice: true,
	PolicyForceTwenty:     true,
	PolicyForceSFDS2:      true,
}

// Valid reports whether p is one of the stored preference values.
func (p FrontendPreference) Valid() bool {
	return validPreferences[p]
}

// Valid reports whether p is one of the stored policy values.
func (p FrontendPolicy) Valid() bool {
	return validPolicies[p]
}

// ParseFrontendPreference parses an inbound preference value. Matching is exact.
func ParseFrontendPreference(s string) (FrontendPreference, error) {
	p := FrontendPreference(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown frontend preference %q", ErrInvalidValue, s)
	}
	return p, nil
}

// ParseFrontendPolicy parses an inbound policy value. Matching is exact.
func ParseFrontendPolicy(s string) (FrontendPolicy, error) {
	p := FrontendPolicy(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown frontend policy %q", ErrInvalidValue, s)
	}
	return p, nil
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidInput
	}
	return nil
}
