// Package storeconfig owns the settings the store admin edits at runtime:
// store contact details, delivery zones, the bank transfer surcharge, the
// display currency, coupons, and per-product payment overrides.
package storeconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/tienda-api/internal/catalog"
	"github.com/noah-isme/tienda-api/internal/channel"
	"github.com/noah-isme/tienda-api/internal/common"
	"github.com/noah-isme/tienda-api/internal/coupon"
	"github.com/noah-isme/tienda-api/internal/currency"
	"github.com/noah-isme/tienda-api/internal/pricing"
	"github.com/noah-isme/tienda-api/internal/shipping"
)

// StoreInfo is the public contact card of the store.
type StoreInfo struct {
	Name     string `json:"storeName" validate:"required,max=80"`
	WhatsApp string `json:"whatsappNumber" validate:"required"`
	Address  string `json:"storeAddress" validate:"max=200"`
	Hours    string `json:"openingHours" validate:"max=120"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// Validate checks the struct tags and that the WhatsApp number has 7 to 15 digits.
func (s StoreInfo) Validate() error {
	if err := common.ValidateStruct(s); err != nil {
		return err
	}
	if n := len(channel.Digits(s.WhatsApp)); n < 7 || n > 15 {
		return common.NewValidationError("whatsappNumber", "must contain 7 to 15 digits")
	}
	return nil
}

// Config is the full runtime configuration. Version increases on every write.
type Config struct {
	Store     StoreInfo                   `json:"storeInfo"`
	Zones     shipping.Zones              `json:"zones"`
	Surcharge pricing.SurchargeConfig     `json:"bankTransfer"`
	Currency  currency.Settings           `json:"currency"`
	Coupons   coupon.Rules                `json:"coupons"`
	Products  map[string]catalog.Override `json:"products"`
	Version   int64                       `json:"version"`
	UpdatedAt time.Time                   `json:"updatedAt"`
}

// Public is the subset of Config served to shoppers.
type Public struct {
	Store     StoreInfo               `json:"storeInfo"`
	Zones     shipping.Zones          `json:"zones"`
	Surcharge pricing.SurchargeConfig `json:"bankTransfer"`
	Currency  currency.Settings       `json:"currency"`
	Version   int64                   `json:"version"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

// Public strips coupons and product overrides.
func (c Config) Public() Public {
	return Public{
		Store:     c.Store,
		Zones:     c.Zones,
		Surcharge: c.Surcharge,
		Currency:  c.Currency,
		Version:   c.Version,
		UpdatedAt: c.UpdatedAt,
	}
}

// Clone returns a copy that shares no slices or maps with c.
func (c Config) Clone() Config {
	out := c
	out.Zones = c.Zones.Clone()
	out.Surcharge = c.Surcharge.Clone()
	out.Currency.Currencies = append([]currency.Currency(nil), c.Currency.Currencies...)
	out.Coupons = append(coupon.Rules(nil), c.Coupons...)
	out.Products = make(map[string]catalog.Override, len(c.Products))
	for id, o := range c.Products {
		out.Products[id] = o
	}
	return out
}

// Validate runs every section validator.
func (c Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := validateZones(c.Zones); err != nil {
		return err
	}
	if err := c.Surcharge.Validate(); err != nil {
		return err
	}
	if err := validateCurrency(c.Currency); err != nil {
		return err
	}
	if err := c.Coupons.Validate(); err != nil {
		return err
	}
	return validateProducts(c.Products)
}

func validateZones(z shipping.Zones) error {
	if err := z.Validate(); err != nil {
		return common.WrapValidation("zones", err.Error(), err)
	}
	return nil
}

func validateCurrency(s currency.Settings) error {
	if err := s.Validate(); err != nil {
		return common.WrapValidation("currency", err.Error(), err)
	}
	return nil
}

func validateProducts(overrides map[string]catalog.Override) error {
	for id, o := range overrides {
		if strings.TrimSpace(id) == "" {
			return common.NewValidationError("products", "product id is required")
		}
		if o.PaymentType != "" {
			if _, err := pricing.ParsePaymentType(string(o.PaymentType)); err != nil {
				return common.WrapValidation(fmt.Sprintf("products.%s.paymentType", id), "unknown payment type", err)
			}
		}
		if p := o.TransferFeePercent; p != nil && (*p < 0 || *p > 100) {
			return common.NewValidationError(fmt.Sprintf("products.%s.transferFeePercentage", id), "percent must be within [0,100]")
		}
	}
	return nil
}

// DefaultZones are the Santiago de Cuba delivery zones shipped with the store.
func DefaultZones() shipping.Zones {
	return shipping.Zones{
		{ID: "centro", Name: "Centro Histórico", Cost: 500},
		{ID: "vista-alegre", Name: "Vista Alegre", Cost: 700},
		{ID: "sueno", Name: "Reparto Sueño", Cost: 600},
		{ID: "altamira", Name: "Altamira", Cost: 900},
		{ID: "30-noviembre", Name: "30 de Noviembre", Cost: 1000},
	}
}

// DefaultCoupons is the starter coupon book.
func DefaultCoupons() coupon.Rules {
	return coupon.Rules{
		{Code: "BIENVENIDA10", Percent: 10, Description: "10% en tu primera compra"},
		{Code: "VERANO20", Percent: 20, Description: "Rebajas de verano", MinSpend: 100000},
	}
}

// Defaults builds the configuration used until the admin saves one. Blank
// store fields fall back to the bundled store card.
func Defaults(store StoreInfo) Config {
	if strings.TrimSpace(store.Name) == "" {
		store.Name = "Tienda"
	}
	if strings.TrimSpace(store.WhatsApp) == "" {
		store.WhatsApp = "+53 54690878"
	}
	if strings.TrimSpace(store.Address) == "" {
		store.Address = "Santiago de Cuba"
	}
	return Config{
		Store:     store,
		Zones:     DefaultZones(),
		Surcharge: pricing.DefaultSurchargeConfig(),
		Currency:  currency.DefaultSettings(),
		Coupons:   DefaultCoupons(),
		Products:  map[string]catalog.Override{},
	}
}
