package pricing

import (
	"fmt"

	"github.com/noah-isme/tienda-api/internal/address"
	"github.com/noah-isme/tienda-api/internal/common"
	"github.com/noah-isme/tienda-api/internal/shipping"
)

// Summary is the pricing breakdown of one checkout attempt. It is derived
// fresh for each attempt and never persisted.
type Summary struct {
	Items         []LineItem      `json:"items"`
	Address       address.Address `json:"address"`
	ZoneName      string          `json:"zoneName,omitempty"`
	Coupon        *Coupon         `json:"coupon,omitempty"`
	Subtotal      Money           `json:"subtotal"`
	Delivery      Money           `json:"delivery"`
	Discount      Money           `json:"discount"`
	Surcharge     Money           `json:"surcharge"`
	Total         Money           `json:"total"`
	TransferTotal Money           `json:"transferTotal"`
	Warnings      []Warning       `json:"warnings,omitempty"`
}

// ComputeOrderSummary aggregates line items, delivery zone cost, coupon
// discount and bank transfer surcharge into the payable amounts.
//
// Total is the cash amount: subtotal + delivery - discount, never below the
// delivery cost. TransferTotal adds the per-item transfer surcharge, computed
// on the undiscounted line subtotals at EffectiveFeePercent.
func ComputeOrderSummary(items []LineItem, addr *address.Address, coupon *Coupon, zones shipping.Zones, surcharge SurchargeConfig) (Summary, error) {
	if len(items) == 0 {
		return Summary{}, common.NewValidationError("items", "cart is empty")
	}
	if addr == nil {
		return Summary{}, common.NewValidationError("address", "address is required")
	}
	if addr.IsHomeDelivery() && addr.ZoneID == "" {
		return Summary{}, common.NewValidationError("zone", "a delivery zone is required for home delivery")
	}
	if coupon != nil && !validPercent(coupon.Percent) {
		return Summary{}, common.NewValidationError("coupon", "discount percent must be within [0,100]")
	}
	if err := surcharge.Validate(); err != nil {
		return Summary{}, err
	}
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return Summary{}, err
		}
	}

	s := Summary{
		Items:   append([]LineItem(nil), items...),
		Address: *addr,
	}
	for _, it := range items {
		s.Subtotal += it.Subtotal()
	}

	if addr.IsHomeDelivery() {
		if zone, ok := zones.Find(addr.ZoneID); ok {
			s.Delivery = zone.Cost
			s.ZoneName = zone.Name
		} else {
			s.Warnings = append(s.Warnings, Warning{
				Kind:    WarningUnknownZone,
				Ref:     addr.ZoneID,
				Message: fmt.Sprintf("zone %q is not configured, delivery charged as 0", addr.ZoneID),
			})
		}
	}

	if coupon != nil {
		c := *coupon
		s.Coupon = &c
		s.Discount = CouponDiscount(s.Subtotal, c.Percent)
	}

	s.Total = s.Subtotal + s.Delivery - s.Discount
	if s.Total < s.Delivery {
		s.Total = s.Delivery
	}

	for _, it := range items {
		if !it.PaymentType.AllowsTransfer() {
			continue
		}
		pct, fromDefault := EffectiveFeePercent(it, surcharge)
		if fromDefault && len(surcharge.CategoryPercents) > 0 {
			s.Warnings = append(s.Warnings, Warning{
				Kind:    WarningDefaultSurcharge,
				Ref:     it.Category,
				Message: fmt.Sprintf("no surcharge override for category %q, using default %d%%", it.Category, surcharge.DefaultPercent),
			})
		}
		s.Surcharge += PercentOf(it.Subtotal(), pct)
	}
	s.TransferTotal = s.Total + s.Surcharge
	return s, nil
}

// CouponDiscount is floor(subtotal * percent / 100) clamped into [0, subtotal].
func CouponDiscount(subtotal Money, percent int) Money {
	if subtotal <= 0 || percent <= 0 {
		return 0
	}
	discount := PercentOf(subtotal, percent)
	if discount > subtotal {
		discount = subtotal
	}
	return discount
}

// PercentOf returns floor(amount * percent / 100) for non-negative inputs.
func PercentOf(amount Money, percent int) Money {
	if amount <= 0 || percent <= 0 {
		return 0
	}
	return amount * Money(percent) / 100
}
