// Package payment decides which payment methods a cart can be checked out
// with and what each method costs.
package payment

import (
	"fmt"
	"strings"

	"github.com/noah-isme/tienda-api/internal/common"
	"github.com/noah-isme/tienda-api/internal/pricing"
)

// Method is the payment method chosen at checkout.
type Method string

const (
	MethodCash     Method = "cash"
	MethodTransfer Method = "transfer"
)

// ParseMethod validates a method name.
func ParseMethod(value string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(value))) {
	case MethodCash:
		return MethodCash, nil
	case MethodTransfer:
		return MethodTransfer, nil
	}
	return "", common.NewValidationError("paymentMethod", fmt.Sprintf("unknown payment method %q", value))
}

// Cash describes the cash option.
type Cash struct {
	Available bool          `json:"available"`
	Total     pricing.Money `json:"total"`
}

// Transfer describes the bank transfer option.
type Transfer struct {
	Available bool          `json:"available"`
	Total     pricing.Money `json:"total"`
	FeeTotal  pricing.Money `json:"feeTotal"`
}

// Options is the resolved availability and cost of every method.
type Options struct {
	Cash     Cash     `json:"cash"`
	Transfer Transfer `json:"transfer"`
}

// Resolve derives payment options from the cart. A method is available only
// when every item allows it; an empty cart allows nothing. The cash total sums
// cash-eligible lines. The transfer total sums transfer-eligible lines plus a
// fee per item at pricing.EffectiveFeePercent, each floored independently, so
// FeeTotal always equals the Surcharge of pricing.ComputeOrderSummary.
func Resolve(items []pricing.LineItem, surcharge pricing.SurchargeConfig) Options {
	if len(items) == 0 {
		return Options{}
	}
	opts := Options{
		Cash:     Cash{Available: true},
		Transfer: Transfer{Available: true},
	}
	for _, it := range items {
		line := it.Subtotal()
		pt := it.PaymentType.Normalize()
		if pt.AllowsCash() {
			opts.Cash.Total += line
		} else {
			opts.Cash.Available = false
		}
		if pt.AllowsTransfer() {
			pct, _ := pricing.EffectiveFeePercent(it, surcharge)
			fee := pricing.PercentOf(line, pct)
			opts.Transfer.Total += line + fee
			opts.Transfer.FeeTotal += fee
		} else {
			opts.Transfer.Available = false
		}
	}
	return opts
}

// Allows reports whether the method can be used for the whole cart.
func (o Options) Allows(m Method) bool {
	switch m {
	case MethodCash:
		return o.Cash.Available
	case MethodTransfer:
		return o.Transfer.Available
	}
	return false
}

// Available lists the usable methods, cash first.
func (o Options) Available() []Method {
	var out []Method
	if o.Cash.Available {
		out = append(out, MethodCash)
	}
	if o.Transfer.Available {
		out = append(out, MethodTransfer)
	}
	return out
}

// Check returns a ValidationError when m cannot be used for the cart. A cart
// mixing cash-only and transfer-only items allows no method at all.
func (o Options) Check(m Method) error {
	if o.Allows(m) {
		return nil
	}
	if !o.Cash.Available && !o.Transfer.Available {
		return common.NewValidationError("paymentMethod", "the cart mixes cash-only and transfer-only items; split the order")
	}
	return common.NewValidationError("paymentMethod", fmt.Sprintf("payment method %q is not available for every item in the cart", m))
}
