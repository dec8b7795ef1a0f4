package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSliderStep(t *testing.T) {
	require.Equal(t, int64(10), SliderStep(1000))
	require.Equal(t, int64(100), SliderStep(1001))
	require.Equal(t, int64(100), SliderStep(10000))
	require.Equal(t, int64(500), SliderStep(100000))
	require.Equal(t, int64(1000), SliderStep(100001))
}

func TestNewSliderFromSeed(t *testing.T) {
	seed, err := LoadSeed()
	require.NoError(t, err)
	s := NewSlider(seed.Products, nil)
	require.Equal(t, int64(85000), s.Min)
	require.Equal(t, int64(450000), s.Max)
	require.Equal(t, int64(1000), s.Step)
	require.Equal(t, int64(267500), s.Mid)
	require.Equal(t, int64(1000), s.MinDistance)
	require.Len(t, s.Marks, 3)
	require.Equal(t, "267500", s.Marks[1].Label)
}

func TestNewSliderNarrowRangeHasNoMidMark(t *testing.T) {
	s := NewSlider([]Product{{Price: 1000}, {Price: 2500}}, nil)
	require.Len(t, s.Marks, 2)
	require.Equal(t, int64(15), s.MinDistance)
	require.Equal(t, int64(100), s.Step)
}

func TestSliderClamp(t *testing.T) {
	s := Slider{Min: 0, Max: 10000, MinDistance: 100}

	lo, hi := s.Clamp(5000, 5050, 0)
	require.Equal(t, int64(4950), lo)
	require.Equal(t, int64(5050), hi)

	lo, hi = s.Clamp(5000, 5050, 1)
	require.Equal(t, int64(5000), lo)
	require.Equal(t, int64(5100), hi)

	lo, hi = s.Clamp(-10, 20000, 1)
	require.Equal(t, int64(0), lo)
	require.Equal(t, int64(10000), hi)
}

func TestNewSliderEmpty(t *testing.T) {
	s := NewSlider(nil, nil)
	require.Empty(t, s.Marks)
}
