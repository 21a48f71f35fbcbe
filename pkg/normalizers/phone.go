package normalizers

import (
	"fmt"
	"strings"
	"sync"
)

// DefaultCountry is the phone numbering plan used when none is configured
const DefaultCountry = "BR"

// PhoneStrategy canonicalizes and formats phone numbers for one numbering plan
type PhoneStrategy interface {
	// Country returns the ISO country code the strategy handles
	Country() string
	// Canonical returns the digits-only international form of the number
	Canonical(areaCode, number string) string
	// Format returns the human readable form of the number
	Format(areaCode, number string) string
}

var (
	phoneMu         sync.RWMutex
	phoneStrategies = map[string]PhoneStrategy{}
)

func init() {
	RegisterPhoneStrategy(BrazilPhone{})
}

// RegisterPhoneStrategy adds or replaces the strategy for its country
func RegisterPhoneStrategy(s PhoneStrategy) {
	phoneMu.Lock()
	defer phoneMu.Unlock()
	phoneStrategies[strings.ToUpper(s.Country())] = s
}

// PhoneStrategyFor returns the strategy registered for country
func PhoneStrategyFor(country string) (PhoneStrategy, error) {
	if country == "" {
		country = DefaultCountry
	}
	phoneMu.RLock()
	defer phoneMu.RUnlock()
	s, ok := phoneStrategies[strings.ToUpper(country)]
	if !ok {
		return nil, fmt.Errorf("no phone strategy registered for country %q", country)
	}
	return s, nil
}

// FullPhone concatenates area code and number and keeps the digits
func FullPhone(areaCode, number string) string {
	return Digits(areaCode + number)
}

// BrazilPhone implements the Brazilian numbering heuristics (country code 55)
type BrazilPhone struct{}

func (BrazilPhone) Country() string { return "BR" }

// Canonical prefixes 55 to 10 digit numbers and to 11 digit numbers dialed with a trunk 0.
// Anything else is returned as plain digits.
func (BrazilPhone) Canonical(areaCode, number string) string {
	full := FullPhone(areaCode, number)
	switch {
	case len(full) == 11 && strings.HasPrefix(full, "0"):
		return "55" + full[1:]
	case len(full) == 10:
		return "55" + full
	default:
		return full
	}
}

// Format renders (AA) NNNNN-NNNN or (AA) NNNN-NNNN, falling back to the raw number.
func (BrazilPhone) Format(areaCode, number string) string {
	if number == "" {
		return ""
	}
	full := FullPhone(areaCode, number)
	switch len(full) {
	case 11:
		return fmt.Sprintf("(%s) %s-%s", full[:2], full[2:7], full[7:])
	case 10:
		return fmt.Sprintf("(%s) %s-%s", full[:2], full[2:6], full[6:])
	default:
		return number
	}
}
