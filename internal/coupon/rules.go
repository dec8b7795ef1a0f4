package coupon

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/tienda-api/internal/common"
	"github.com/noah-isme/tienda-api/internal/pricing"
)

var (
	// ErrNotFound is returned when no coupon matches the code.
	ErrNotFound = errors.New("coupon not found")
	// ErrInactive is returned for coupons switched off by the admin or not yet valid.
	ErrInactive = errors.New("coupon not active")
	// ErrExpired is returned when the coupon validity window has closed.
	ErrExpired = errors.New("coupon expired")
	// ErrMinimumSpendUnmet indicates the subtotal did not meet the coupon requirement.
	ErrMinimumSpendUnmet = errors.New("coupon minimum spend not met")
)

// Rule is an admin-managed coupon.
type Rule struct {
	Code        string     `json:"couponCode" validate:"required,max=40"`
	Percent     int        `json:"discountPercent" validate:"gte=0,lte=100"`
	Description string     `json:"description,omitempty" validate:"max=200"`
	MinSpend    int64      `json:"minimumCartValue,omitempty" validate:"gte=0"`
	Disabled    bool       `json:"disabled,omitempty"`
	ValidFrom   *time.Time `json:"validFrom,omitempty"`
	ValidTo     *time.Time `json:"validTo,omitempty"`
}

// Validate ensures the rule can be applied at the provided instant and subtotal.
func (r Rule) Validate(now time.Time, subtotal int64) error {
	if r.Disabled {
		return ErrInactive
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrInactive
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return ErrExpired
	}
	if subtotal < r.MinSpend {
		return ErrMinimumSpendUnmet
	}
	return nil
}

// Coupon converts the rule into the pricing input.
func (r Rule) Coupon() pricing.Coupon {
	return pricing.Coupon{Code: r.Code, Percent: r.Percent}
}

// Rules is the coupon book configured for the store.
type Rules []Rule

// Find looks a code up case-insensitively.
func (rs Rules) Find(code string) (Rule, bool) {
	code = strings.TrimSpace(code)
	for _, r := range rs {
		if strings.EqualFold(r.Code, code) {
			return r, true
		}
	}
	return Rule{}, false
}

// Validate checks every rule and rejects duplicate codes.
func (rs Rules) Validate() error {
	seen := make(map[string]struct{}, len(rs))
	for i, r := range rs {
		if err := common.ValidateStruct(r); err != nil {
			var ve *common.ValidationError
			if errors.As(err, &ve) {
				return common.WrapValidation(fmt.Sprintf("coupons[%d].%s", i, ve.Field), ve.Reason, err)
			}
			return err
		}
		key := strings.ToUpper(strings.TrimSpace(r.Code))
		if _, ok := seen[key]; ok {
			return common.NewValidationError(fmt.Sprintf("coupons[%d].couponCode", i), fmt.Sprintf("duplicate coupon code %q", r.Code))
		}
		seen[key] = struct{}{}
		if r.ValidFrom != nil && r.ValidTo != nil && r.ValidTo.Before(*r.ValidFrom) {
			return common.NewValidationError(fmt.Sprintf("coupons[%d].validTo", i), "must not be before validFrom")
		}
	}
	return nil
}

// Apply resolves code against the book and checks it for the subtotal. An
// empty code means no coupon and returns nil.
func (rs Rules) Apply(code string, now time.Time, subtotal int64) (*pricing.Coupon, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	rule, ok := rs.Find(code)
	if !ok {
		return nil, ErrNotFound
	}
	if err := rule.Validate(now, subtotal); err != nil {
		return nil, err
	}
	c := rule.Coupon()
	return &c, nil
}

// AsAppError maps coupon errors onto HTTP responses.
func AsAppError(err error) *common.AppError {
	switch {
	case errors.Is(err, ErrNotFound):
		return common.NewAppError("COUPON_NOT_FOUND", "coupon not found", http.StatusNotFound, nil)
	case errors.Is(err, ErrInactive), errors.Is(err, ErrExpired):
		return common.NewAppError("COUPON_INACTIVE", err.Error(), http.StatusUnprocessableEntity, nil)
	case errors.Is(err, ErrMinimumSpendUnmet):
		return common.NewAppError("COUPON_MIN_SPEND", err.Error(), http.StatusUnprocessableEntity, nil)
	}
	return common.AsAppError(err)
}
