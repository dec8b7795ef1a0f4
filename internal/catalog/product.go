package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/noah-isme/tienda-api/internal/pricing"
)

//go:embed seed.json
var seedJSON []byte

// Category is a product category.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"categoryName"`
	Image       string `json:"categoryImage"`
	Description string `json:"description"`
}

// Color is one selectable color with its available quantity.
type Color struct {
	Hex      string `json:"color"`
	Quantity int    `json:"colorQuantity"`
}

// Product is a catalog entry. TransferFeePercent holds the resolved bank
// transfer surcharge once ApplySurcharge has run.
type Product struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Price              int64               `json:"price"`
	OriginalPrice      int64               `json:"originalPrice"`
	Description        string              `json:"description"`
	Category           string              `json:"category"`
	Company            string              `json:"company"`
	Stock              int                 `json:"stock"`
	ReviewCount        int                 `json:"reviewCount"`
	Stars              float64             `json:"stars"`
	Colors             []Color             `json:"colors"`
	Image              string              `json:"image"`
	ShippingAvailable  bool                `json:"isShippingAvailable"`
	Featured           bool                `json:"featured"`
	CanUseCoupons      bool                `json:"canUseCoupons"`
	PaymentType        pricing.PaymentType `json:"paymentType,omitempty"`
	TransferFeePercent *int                `json:"transferFeePercentage,omitempty"`
}

// InStock reports whether any unit is left.
func (p Product) InStock() bool { return p.Stock > 0 }

// HasColor reports whether hex is one of the product colors. Products
// without colors accept an empty selection only.
func (p Product) HasColor(hex string) bool {
	if len(p.Colors) == 0 {
		return hex == ""
	}
	for _, c := range p.Colors {
		if c.Hex == hex {
			return true
		}
	}
	return false
}

// DiscountPercent is floor((original - price) / original * 100), 0 when there
// is no markdown.
func (p Product) DiscountPercent() int {
	if p.OriginalPrice <= 0 || p.OriginalPrice <= p.Price {
		return 0
	}
	return int((p.OriginalPrice - p.Price) * 100 / p.OriginalPrice)
}

// LineItem snapshots the product for a cart line.
func (p Product) LineItem(color string, qty int) pricing.LineItem {
	var fee *int
	if p.TransferFeePercent != nil {
		fee = pricing.Percent(*p.TransferFeePercent)
	}
	return pricing.LineItem{
		ProductID:          p.ID,
		Name:               p.Name,
		UnitPrice:          p.Price,
		Qty:                qty,
		Category:           p.Category,
		Color:              color,
		PaymentType:        p.PaymentType.Normalize(),
		TransferFeePercent: fee,
	}
}

// Override is an admin adjustment of a product's payment rules.
type Override struct {
	PaymentType        pricing.PaymentType `json:"paymentType,omitempty"`
	TransferFeePercent *int                `json:"transferFeePercentage,omitempty"`
}

// Seed is the bundled demo catalog.
type Seed struct {
	Categories []Category `json:"categories"`
	Products   []Product  `json:"products"`
}

// LoadSeed decodes the embedded catalog.
func LoadSeed() (Seed, error) {
	var s Seed
	if err := json.Unmarshal(seedJSON, &s); err != nil {
		return Seed{}, fmt.Errorf("catalog: decode seed: %w", err)
	}
	return s, nil
}
