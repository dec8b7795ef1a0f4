package catalog

import "strconv"

// MinThumbDistance caps the gap enforced between the two price thumbs.
const MinThumbDistance = 1000

// MoneyFormatter renders slider mark labels.
type MoneyFormatter interface {
	Format(amount int64) string
}

// Mark is a labelled slider position.
type Mark struct {
	Value int64  `json:"value"`
	Label string `json:"label"`
}

// Slider describes the price range control for the current catalog.
type Slider struct {
	Min         int64  `json:"min"`
	Max         int64  `json:"max"`
	Step        int64  `json:"step"`
	Mid         int64  `json:"mid"`
	MinDistance int64  `json:"minDistance"`
	Marks       []Mark `json:"marks"`
}

// NewSlider derives bounds, step and marks from product prices.
func NewSlider(products []Product, money MoneyFormatter) Slider {
	if len(products) == 0 {
		return Slider{Step: 10, Marks: []Mark{}}
	}
	lo, hi := products[0].Price, products[0].Price
	for _, p := range products[1:] {
		if p.Price < lo {
			lo = p.Price
		}
		if p.Price > hi {
			hi = p.Price
		}
	}
	s := Slider{Min: lo, Max: hi, Step: SliderStep(hi - lo), Mid: (lo + hi) / 2}
	s.MinDistance = minThumbDistance(hi - lo)

	label := func(v int64) string {
		if money == nil {
			return strconv.FormatInt(v, 10)
		}
		return money.Format(v)
	}
	s.Marks = []Mark{{Value: lo, Label: label(lo)}}
	if hi-lo > 2000 {
		s.Marks = append(s.Marks, Mark{Value: s.Mid, Label: label(s.Mid)})
	}
	s.Marks = append(s.Marks, Mark{Value: hi, Label: label(hi)})
	return s
}

// SliderStep picks the slider increment for a price range.
func SliderStep(priceRange int64) int64 {
	switch {
	case priceRange <= 1000:
		return 10
	case priceRange <= 10000:
		return 100
	case priceRange <= 100000:
		return 500
	default:
		return 1000
	}
}

func minThumbDistance(priceRange int64) int64 {
	d := priceRange / 100
	if d > MinThumbDistance {
		return MinThumbDistance
	}
	return d
}

// Clamp keeps a selected [lo, hi] range inside the bounds with at least
// MinDistance between thumbs. activeThumb is 0 for the lower thumb.
func (s Slider) Clamp(lo, hi int64, activeThumb int) (int64, int64) {
	if activeThumb == 0 {
		if limit := hi - s.MinDistance; lo > limit {
			lo = limit
		}
	} else {
		if limit := lo + s.MinDistance; hi < limit {
			hi = limit
		}
	}
	if lo < s.Min {
		lo = s.Min
	}
	if hi > s.Max {
		hi = s.Max
	}
	return lo, hi
}
