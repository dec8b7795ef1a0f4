package shipping_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tienda-api/internal/shipping"
)

func TestZonesFind(t *testing.T) {
	zones := shipping.Zones{
		{ID: "centro", Name: "Centro", Cost: 5000},
		{ID: "playa", Name: "Playa", Cost: 8000},
	}

	zone, ok := zones.Find("playa")
	require.True(t, ok)
	require.Equal(t, int64(8000), zone.Cost)

	_, ok = zones.Find("")
	require.False(t, ok)

	_, err := zones.Get("vedado")
	require.True(t, errors.Is(err, shipping.ErrZoneNotFound))
}

func TestZonesValidate(t *testing.T) {
	cases := []struct {
		name  string
		zones shipping.Zones
		ok    bool
	}{
		{name: "valid", zones: shipping.Zones{{ID: "a", Name: "A", Cost: 0}}, ok: true},
		{name: "empty list", zones: nil, ok: true},
		{name: "missing id", zones: shipping.Zones{{Name: "A"}}},
		{name: "duplicate", zones: shipping.Zones{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}}},
		{name: "negative cost", zones: shipping.Zones{{ID: "a", Name: "A", Cost: -1}}},
		{name: "missing name", zones: shipping.Zones{{ID: "a"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.zones.Validate()
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, shipping.ErrInvalidZone)
		})
	}
}
