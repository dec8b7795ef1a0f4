package catalog

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/tienda-api/internal/common"
)

const (
	SortPriceLowToHigh = "price_low_to_high"
	SortPriceHighToLow = "price_high_to_low"
)

// Filter narrows a product listing.
type Filter struct {
	Query       string
	Categories  []string
	Company     string
	MinPrice    *int64
	MaxPrice    *int64
	MinRating   float64
	Sort        string
	InStockOnly bool
}

// IsZero reports whether the filter selects the default listing.
func (f Filter) IsZero() bool {
	return f.Query == "" && len(f.Categories) == 0 && f.Company == "" &&
		f.MinPrice == nil && f.MaxPrice == nil && f.MinRating == 0 &&
		f.Sort == "" && !f.InStockOnly
}

// ParseFilter reads listing filters from query values.
func ParseFilter(values url.Values) (Filter, error) {
	f := Filter{
		Query:   strings.TrimSpace(values.Get("q")),
		Company: strings.TrimSpace(values.Get("company")),
		Sort:    strings.TrimSpace(values.Get("sort")),
	}
	for _, raw := range values["category"] {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				f.Categories = append(f.Categories, c)
			}
		}
	}
	if raw := values.Get("minPrice"); raw != "" {
		if f.MinPrice = common.ParseInt64Ptr(raw); f.MinPrice == nil {
			return Filter{}, common.NewValidationError("minPrice", "must be an integer")
		}
	}
	if raw := values.Get("maxPrice"); raw != "" {
		if f.MaxPrice = common.ParseInt64Ptr(raw); f.MaxPrice == nil {
			return Filter{}, common.NewValidationError("maxPrice", "must be an integer")
		}
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return Filter{}, common.NewValidationError("minPrice", "must not exceed maxPrice")
	}
	if raw := values.Get("rating"); raw != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || v < 0 || v > 5 {
			return Filter{}, common.NewValidationError("rating", "must be a number between 0 and 5")
		}
		f.MinRating = v
	}
	switch f.Sort {
	case "", SortPriceLowToHigh, SortPriceHighToLow:
	default:
		return Filter{}, common.NewValidationError("sort", "must be one of [price_low_to_high price_high_to_low]")
	}
	if raw := values.Get("inStock"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Filter{}, common.NewValidationError("inStock", "must be a boolean")
		}
		f.InStockOnly = v
	}
	return f, nil
}

// Match reports whether p passes every filter clause.
func (f Filter) Match(p Product) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Company), q) &&
			!strings.Contains(strings.ToLower(p.Category), q) {
			return false
		}
	}
	if len(f.Categories) > 0 {
		found := false
		for _, c := range f.Categories {
			if strings.EqualFold(c, p.Category) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Company != "" && !strings.EqualFold(f.Company, p.Company) {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if p.Stars < f.MinRating {
		return false
	}
	if f.InStockOnly && !p.InStock() {
		return false
	}
	return true
}

// Apply filters and sorts products, leaving the input untouched.
func (f Filter) Apply(products []Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	switch f.Sort {
	case SortPriceLowToHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceHighToLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	}
	return out
}
