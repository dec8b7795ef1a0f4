// Package currency converts base-currency amounts into the display currency
// chosen by the store and renders them with locale-aware grouping.
package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ErrUnknownCurrency is returned when a code is not configured.
var ErrUnknownCurrency = errors.New("unknown currency")

// Currency is one configured currency. RateToBase is how many base-currency
// units one unit of this currency is worth.
type Currency struct {
	Code       string          `json:"code"`
	Symbol     string          `json:"symbol"`
	RateToBase decimal.Decimal `json:"rateToBase"`
	Decimals   int32           `json:"decimals"`
}

// Settings is the store's currency configuration.
type Settings struct {
	Base       string     `json:"base"`
	Display    string     `json:"display"`
	Locale     string     `json:"locale"`
	Currencies []Currency `json:"currencies"`
}

// DefaultSettings prices in Cuban pesos with USD and EUR available for display.
func DefaultSettings() Settings {
	return Settings{
		Base:    "CUP",
		Display: "CUP",
		Locale:  "es",
		Currencies: []Currency{
			{Code: "CUP", Symbol: "$", RateToBase: decimal.NewFromInt(1), Decimals: 0},
			{Code: "USD", Symbol: "$", RateToBase: decimal.NewFromInt(320), Decimals: 2},
			{Code: "EUR", Symbol: "€", RateToBase: decimal.NewFromInt(340), Decimals: 2},
		},
	}
}

// Find looks up a currency by code, case-insensitively.
func (s Settings) Find(code string) (Currency, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range s.Currencies {
		if strings.EqualFold(c.Code, code) {
			return c, true
		}
	}
	return Currency{}, false
}

// Validate checks codes are unique, rates positive, the base has rate 1 and
// both base and display currencies exist.
func (s Settings) Validate() error {
	seen := map[string]struct{}{}
	for _, c := range s.Currencies {
		code := strings.ToUpper(strings.TrimSpace(c.Code))
		if code == "" {
			return errors.New("currency code is required")
		}
		if _, dup := seen[code]; dup {
			return fmt.Errorf("duplicate currency %s", code)
		}
		seen[code] = struct{}{}
		if !c.RateToBase.IsPositive() {
			return fmt.Errorf("currency %s: rate must be positive", code)
		}
		if c.Decimals < 0 || c.Decimals > 4 {
			return fmt.Errorf("currency %s: decimals must be within [0,4]", code)
		}
	}
	base, ok := s.Find(s.Base)
	if !ok {
		return fmt.Errorf("%w: base %q", ErrUnknownCurrency, s.Base)
	}
	if !base.RateToBase.Equal(decimal.NewFromInt(1)) {
		return fmt.Errorf("base currency %s must have rate 1", base.Code)
	}
	if _, ok := s.Find(s.Display); !ok {
		return fmt.Errorf("%w: display %q", ErrUnknownCurrency, s.Display)
	}
	if _, err := language.Parse(s.localeOrDefault()); err != nil {
		return fmt.Errorf("locale %q: %w", s.Locale, err)
	}
	return nil
}

// Convert turns an amount in base minor units into the target currency,
// rounded half-up to the target's decimals.
func (s Settings) Convert(amount int64, to string) (decimal.Decimal, error) {
	base, ok := s.Find(s.Base)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: base %q", ErrUnknownCurrency, s.Base)
	}
	target, ok := s.Find(to)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, to)
	}
	major := decimal.NewFromInt(amount).Shift(-base.Decimals)
	return major.DivRound(target.RateToBase, target.Decimals+2).Round(target.Decimals), nil
}

func (s Settings) localeOrDefault() string {
	if strings.TrimSpace(s.Locale) == "" {
		return "es"
	}
	return s.Locale
}

// Formatter renders base amounts in the display currency, e.g. "$250.000 CUP".
type Formatter struct {
	settings Settings
	target   Currency
	printer  *message.Printer
}

// NewFormatter builds a formatter for the display currency of s.
func NewFormatter(s Settings) (*Formatter, error) {
	target, ok := s.Find(s.Display)
	if !ok {
		return nil, fmt.Errorf("%w: display %q", ErrUnknownCurrency, s.Display)
	}
	tag, err := language.Parse(s.localeOrDefault())
	if err != nil {
		return nil, fmt.Errorf("parse locale: %w", err)
	}
	return &Formatter{settings: s, target: target, printer: message.NewPrinter(tag)}, nil
}

// MustFormatter is NewFormatter for settings already validated.
func MustFormatter(s Settings) *Formatter {
	f, err := NewFormatter(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Code returns the display currency code.
func (f *Formatter) Code() string {
	return f.target.Code
}

// Format converts and renders amount with symbol, locale grouping and code.
func (f *Formatter) Format(amount int64) string {
	value, err := f.settings.Convert(amount, f.target.Code)
	if err != nil {
		return fmt.Sprintf("%d %s", amount, f.settings.Base)
	}
	sign := ""
	if value.IsNegative() {
		sign = "-"
		value = value.Neg()
	}
	digits := f.printer.Sprint(number.Decimal(value.InexactFloat64(), number.Scale(int(f.target.Decimals))))
	return sign + f.target.Symbol + digits + " " + f.target.Code
}
