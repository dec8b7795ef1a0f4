package pricing

import (
	"fmt"
	"strings"

	"github.com/noah-isme/tienda-api/internal/common"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// PaymentType restricts which payment methods an item can be bought with.
type PaymentType string

const (
	PaymentCash     PaymentType = "cash"
	PaymentTransfer PaymentType = "transfer"
	PaymentBoth     PaymentType = "both"
)

// ParsePaymentType accepts the three known values; blank means both.
func ParsePaymentType(value string) (PaymentType, error) {
	switch PaymentType(strings.ToLower(strings.TrimSpace(value))) {
	case "", PaymentBoth:
		return PaymentBoth, nil
	case PaymentCash:
		return PaymentCash, nil
	case PaymentTransfer:
		return PaymentTransfer, nil
	}
	return "", common.NewValidationError("paymentType", fmt.Sprintf("unknown payment type %q", value))
}

// Normalize maps the zero value to PaymentBoth.
func (p PaymentType) Normalize() PaymentType {
	if p == "" {
		return PaymentBoth
	}
	return p
}

// AllowsCash reports whether the item may be paid in cash.
func (p PaymentType) AllowsCash() bool {
	p = p.Normalize()
	return p == PaymentCash || p == PaymentBoth
}

// AllowsTransfer reports whether the item may be paid by bank transfer.
func (p PaymentType) AllowsTransfer() bool {
	p = p.Normalize()
	return p == PaymentTransfer || p == PaymentBoth
}

// LineItem is one cart line as seen by the pricing pipeline.
type LineItem struct {
	ProductID          string      `json:"productId"`
	Name               string      `json:"name"`
	UnitPrice          Money       `json:"unitPrice"`
	Qty                int         `json:"qty"`
	Category           string      `json:"category"`
	Color              string      `json:"color,omitempty"`
	PaymentType        PaymentType `json:"paymentType,omitempty"`
	TransferFeePercent *int        `json:"transferFeePercent,omitempty"`
}

// Subtotal is unit price times quantity.
func (it LineItem) Subtotal() Money {
	return it.UnitPrice * Money(it.Qty)
}

// Validate enforces qty >= 1, price >= 0 and a fee in [0,100].
func (it LineItem) Validate() error {
	if it.Qty < 1 {
		return common.NewValidationError("qty", fmt.Sprintf("item %s: quantity must be at least 1", it.ProductID))
	}
	if it.UnitPrice < 0 {
		return common.NewValidationError("unitPrice", fmt.Sprintf("item %s: price must not be negative", it.ProductID))
	}
	if it.TransferFeePercent != nil && !validPercent(*it.TransferFeePercent) {
		return common.NewValidationError("transferFeePercent", fmt.Sprintf("item %s: percent must be within [0,100]", it.ProductID))
	}
	switch it.PaymentType.Normalize() {
	case PaymentCash, PaymentTransfer, PaymentBoth:
	default:
		return common.NewValidationError("paymentType", fmt.Sprintf("item %s: unknown payment type %q", it.ProductID, it.PaymentType))
	}
	return nil
}

// Percent returns a pointer to p, for literal TransferFeePercent values.
func Percent(p int) *int {
	return &p
}

// Coupon is a percentage discount on the product subtotal.
type Coupon struct {
	Code    string `json:"code"`
	Percent int    `json:"discountPercent"`
}

// SurchargeConfig holds the bank transfer surcharge managed by the store admin.
type SurchargeConfig struct {
	DefaultPercent   int            `json:"defaultSurcharge"`
	CategoryPercents map[string]int `json:"categorySpecificSurcharges"`
	Enabled          bool           `json:"isEnabled"`
}

// DefaultSurchargeConfig mirrors the out-of-the-box admin setting.
func DefaultSurchargeConfig() SurchargeConfig {
	return SurchargeConfig{DefaultPercent: 20, CategoryPercents: map[string]int{}, Enabled: true}
}

// Validate checks every percent is within [0,100].
func (c SurchargeConfig) Validate() error {
	if !validPercent(c.DefaultPercent) {
		return common.NewValidationError("defaultSurcharge", "percent must be within [0,100]")
	}
	for category, pct := range c.CategoryPercents {
		if !validPercent(pct) {
			return common.NewValidationError("categorySpecificSurcharges."+category, "percent must be within [0,100]")
		}
	}
	return nil
}

// PercentFor returns the category override when present, else the default.
// The boolean reports whether an override was used.
func (c SurchargeConfig) PercentFor(category string) (int, bool) {
	if pct, ok := c.CategoryPercents[category]; ok {
		return pct, true
	}
	return c.DefaultPercent, false
}

// EffectiveFeePercent resolves the transfer fee percent of one line. A
// disabled config waives every fee, item-level ones included. Otherwise the
// item's own percent wins, then the category override, then the default;
// fromDefault reports that last case.
func EffectiveFeePercent(it LineItem, cfg SurchargeConfig) (pct int, fromDefault bool) {
	if !cfg.Enabled {
		return 0, false
	}
	if it.TransferFeePercent != nil {
		return *it.TransferFeePercent, false
	}
	pct, override := cfg.PercentFor(it.Category)
	return pct, !override
}

// Clone returns a copy with its own override map.
func (c SurchargeConfig) Clone() SurchargeConfig {
	out := c
	out.CategoryPercents = make(map[string]int, len(c.CategoryPercents))
	for k, v := range c.CategoryPercents {
		out.CategoryPercents[k] = v
	}
	return out
}

// WarningKind classifies data-integrity problems resolved by a fallback.
type WarningKind string

const (
	// WarningUnknownZone: the address zone is not configured; delivery is charged as 0.
	WarningUnknownZone WarningKind = "unknown_zone"
	// WarningDefaultSurcharge: no category override exists; the default percent is used.
	WarningDefaultSurcharge WarningKind = "default_surcharge"
)

// Warning is a data-integrity issue recorded during pricing. It is logged and
// counted by callers, never returned as an error.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Ref     string      `json:"ref"`
	Message string      `json:"message"`
}

func validPercent(p int) bool {
	return p >= 0 && p <= 100
}
