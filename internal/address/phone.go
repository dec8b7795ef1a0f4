package address

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPhone is returned for mobile numbers that fail the country rules.
var ErrInvalidPhone = errors.New("invalid mobile number")

// mobileDigits lists the exact local digit count per country code.
var mobileDigits = map[string]int{
	"+53": 8,  // Cuba
	"+56": 9,  // Chile
	"+34": 9,  // Spain
	"+52": 10, // Mexico
	"+1":  10, // US / Canada
}

const (
	minMobileDigits = 7
	maxMobileDigits = 15
)

// ValidateMobile checks the local number against the rules of its country code.
// Unknown country codes accept any 7 to 15 digit number.
func ValidateMobile(countryCode, number string) error {
	number = strings.TrimSpace(number)
	if number == "" {
		return fmt.Errorf("%w: number is required", ErrInvalidPhone)
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: only digits are allowed", ErrInvalidPhone)
		}
	}
	if want, ok := mobileDigits[strings.TrimSpace(countryCode)]; ok {
		if len(number) != want {
			return fmt.Errorf("%w: %s numbers have %d digits", ErrInvalidPhone, countryCode, want)
		}
		return nil
	}
	if len(number) < minMobileDigits || len(number) > maxMobileDigits {
		return fmt.Errorf("%w: expected %d to %d digits", ErrInvalidPhone, minMobileDigits, maxMobileDigits)
	}
	return nil
}
