package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/tienda-api/internal/common"
	"github.com/noah-isme/tienda-api/internal/pricing"
)

// ErrProductNotFound is returned when no product matches an id.
var ErrProductNotFound = errors.New("product not found")

// TransferInfo describes the bank transfer price of one unit.
type TransferInfo struct {
	Enabled            bool  `json:"isEnabled"`
	SurchargePercent   int   `json:"surchargePercent"`
	SurchargeAmount    int64 `json:"surchargeAmount"`
	TotalWithSurcharge int64 `json:"totalWithSurcharge"`
}

// ProductDetail is the single product payload.
type ProductDetail struct {
	Product
	DiscountPercent int          `json:"discountPercent"`
	InStockNow      bool         `json:"inStock"`
	BankTransfer    TransferInfo `json:"bankTransfer"`
}

// Service serves the in-memory catalog. Products are rebuilt from the seed
// whenever overrides or the surcharge config change.
type Service struct {
	seed   Seed
	cache  *Cache
	logger zerolog.Logger

	mu       sync.RWMutex
	products []Product
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Seed   Seed
	Cache  *Cache
	Logger zerolog.Logger
}

// NewService constructs a Service with the default surcharge config applied.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{seed: cfg.Seed, cache: cfg.Cache, logger: cfg.Logger}
	s.products = buildProducts(cfg.Seed.Products, nil, pricing.DefaultSurchargeConfig())
	return s
}

// ApplySurcharge resolves every product's transfer fee from overrides and the
// surcharge config, then drops cached listings.
func (s *Service) ApplySurcharge(ctx context.Context, overrides map[string]Override, cfg pricing.SurchargeConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	for id, o := range overrides {
		if o.PaymentType != "" {
			if _, err := pricing.ParsePaymentType(string(o.PaymentType)); err != nil {
				return common.WrapValidation("products."+id+".paymentType", "unknown payment type", err)
			}
		}
		if o.TransferFeePercent != nil && (*o.TransferFeePercent < 0 || *o.TransferFeePercent > 100) {
			return common.NewValidationError("products."+id+".transferFeePercentage", "percent must be within [0,100]")
		}
	}
	products := buildProducts(s.seed.Products, overrides, cfg)

	s.mu.Lock()
	s.products = products
	s.mu.Unlock()

	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache invalidate failed")
	}
	return nil
}

func buildProducts(seed []Product, overrides map[string]Override, cfg pricing.SurchargeConfig) []Product {
	out := make([]Product, len(seed))
	for i, p := range seed {
		p.Colors = append([]Color(nil), p.Colors...)
		p.PaymentType = p.PaymentType.Normalize()
		if o, ok := overrides[p.ID]; ok {
			if o.PaymentType != "" {
				p.PaymentType = o.PaymentType
			}
			if o.TransferFeePercent != nil {
				p.TransferFeePercent = o.TransferFeePercent
			}
		}
		pct, _ := pricing.EffectiveFeePercent(pricing.LineItem{Category: p.Category, TransferFeePercent: p.TransferFeePercent}, cfg)
		p.TransferFeePercent = pricing.Percent(pct)
		out[i] = p
	}
	return out
}

func (s *Service) snapshot() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Product(nil), s.products...)
}

// ListCategories returns every category.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	var cached []Category
	if ok, err := s.cache.GetJSON(ctx, cacheKeyCategories, &cached); err == nil && ok {
		return cached, nil
	}
	out := append([]Category(nil), s.seed.Categories...)
	if err := s.cache.SetJSON(ctx, cacheKeyCategories, out); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	return out, nil
}

// ListProducts returns the products matching f. The unfiltered listing is
// served from the cache when available.
func (s *Service) ListProducts(ctx context.Context, f Filter) ([]Product, error) {
	if !f.IsZero() {
		return f.Apply(s.snapshot()), nil
	}
	var cached []Product
	if ok, err := s.cache.GetJSON(ctx, cacheKeyProducts, &cached); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache read failed")
	} else if ok {
		return cached, nil
	}
	products := s.snapshot()
	if err := s.cache.SetJSON(ctx, cacheKeyProducts, products); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	return products, nil
}

// Featured returns products flagged as featured.
func (s *Service) Featured(ctx context.Context) ([]Product, error) {
	all, err := s.ListProducts(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(all))
	for _, p := range all {
		if p.Featured {
			out = append(out, p)
		}
	}
	return out, nil
}

// Product looks a product up by id.
func (s *Service) Product(id string) (Product, error) {
	id = strings.TrimSpace(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, fmt.Errorf("%w: %s", ErrProductNotFound, id))
}

// GetProduct returns the product with its markdown and bank transfer prices.
func (s *Service) GetProduct(ctx context.Context, id string) (ProductDetail, error) {
	p, err := s.Product(id)
	if err != nil {
		return ProductDetail{}, err
	}
	pct := 0
	if p.TransferFeePercent != nil {
		pct = *p.TransferFeePercent
	}
	surcharge := pricing.PercentOf(p.Price, pct)
	return ProductDetail{
		Product:         p,
		DiscountPercent: p.DiscountPercent(),
		InStockNow:      p.InStock(),
		BankTransfer: TransferInfo{
			Enabled:            p.PaymentType.AllowsTransfer(),
			SurchargePercent:   pct,
			SurchargeAmount:    surcharge,
			TotalWithSurcharge: p.Price + surcharge,
		},
	}, nil
}

// PriceRange returns the slider for the full catalog.
func (s *Service) PriceRange(ctx context.Context, money MoneyFormatter) Slider {
	return NewSlider(s.snapshot(), money)
}

// LineItem validates a cart selection and snapshots it.
func (s *Service) LineItem(productID, color string, qty int) (pricing.LineItem, error) {
	p, err := s.Product(productID)
	if err != nil {
		return pricing.LineItem{}, err
	}
	if !p.HasColor(color) {
		return pricing.LineItem{}, common.NewValidationError("color", fmt.Sprintf("color %q is not offered for this product", color))
	}
	if qty < 1 {
		return pricing.LineItem{}, common.NewValidationError("qty", "must be at least 1")
	}
	if !p.InStock() {
		return pricing.LineItem{}, common.NewAppError("OUT_OF_STOCK", "product is out of stock", http.StatusConflict, nil)
	}
	return p.LineItem(color, qty), nil
}
