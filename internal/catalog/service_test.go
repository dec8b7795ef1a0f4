package catalog

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tienda-api/internal/common"
	"github.com/noah-isme/tienda-api/internal/pricing"
)

func newService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	seed, err := LoadSeed()
	require.NoError(t, err)
	svc := NewService(ServiceConfig{Seed: seed, Cache: NewCache(client, time.Minute), Logger: zerolog.Nop()})
	return svc, mr
}

func TestLoadSeed(t *testing.T) {
	seed, err := LoadSeed()
	require.NoError(t, err)
	require.Len(t, seed.Categories, 5)
	require.Len(t, seed.Products, 5)
	require.Equal(t, "iPhone 14 Pro", seed.Products[0].Name)
}

func TestDefaultSurchargeApplied(t *testing.T) {
	svc, _ := newService(t)
	p, err := svc.Product("1")
	require.NoError(t, err)
	require.NotNil(t, p.TransferFeePercent)
	require.Equal(t, 20, *p.TransferFeePercent)
	require.Equal(t, pricing.PaymentBoth, p.PaymentType)
}

func TestApplySurchargeOverrides(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	cfg := pricing.SurchargeConfig{DefaultPercent: 10, CategoryPercents: map[string]int{"laptop": 15}, Enabled: true}
	overrides := map[string]Override{
		"4": {PaymentType: pricing.PaymentCash},
		"5": {TransferFeePercent: pricing.Percent(3)},
	}
	require.NoError(t, svc.ApplySurcharge(ctx, overrides, cfg))

	fee := func(id string) int {
		p, err := svc.Product(id)
		require.NoError(t, err)
		return *p.TransferFeePercent
	}
	require.Equal(t, 10, fee("1"))
	require.Equal(t, 15, fee("2"))
	require.Equal(t, 3, fee("5"))
	p, _ := svc.Product("4")
	require.Equal(t, pricing.PaymentCash, p.PaymentType)

	require.NoError(t, svc.ApplySurcharge(ctx, overrides, pricing.SurchargeConfig{DefaultPercent: 10, Enabled: false}))
	require.Equal(t, 0, fee("1"))
	require.Equal(t, 0, fee("5"))

	err := svc.ApplySurcharge(ctx, map[string]Override{"1": {TransferFeePercent: pricing.Percent(101)}}, cfg)
	require.ErrorIs(t, err, common.ErrValidation)
	err = svc.ApplySurcharge(ctx, nil, pricing.SurchargeConfig{DefaultPercent: -1, Enabled: true})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestListProductsCachesDefaultListing(t *testing.T) {
	svc, mr := newService(t)
	ctx := context.Background()

	all, err := svc.ListProducts(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	require.True(t, mr.Exists(cacheKeyProducts))

	require.NoError(t, svc.ApplySurcharge(ctx, nil, pricing.DefaultSurchargeConfig()))
	require.False(t, mr.Exists(cacheKeyProducts))
}

func TestFilterApply(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	f, err := ParseFilter(url.Values{"category": {"mobile,laptop"}, "sort": {SortPriceHighToLow}})
	require.NoError(t, err)
	rows, err := svc.ListProducts(ctx, f)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "2", rows[0].ID)
	require.Equal(t, "1", rows[1].ID)

	f, err = ParseFilter(url.Values{"company": {"samsung"}, "maxPrice": {"100000"}})
	require.NoError(t, err)
	rows, _ = svc.ListProducts(ctx, f)
	require.Len(t, rows, 1)
	require.Equal(t, "3", rows[0].ID)

	f, err = ParseFilter(url.Values{"rating": {"4.7"}, "sort": {SortPriceLowToHigh}})
	require.NoError(t, err)
	rows, _ = svc.ListProducts(ctx, f)
	require.Equal(t, []string{"4", "1", "2"}, ids(rows))

	f, err = ParseFilter(url.Values{"q": {"watch"}})
	require.NoError(t, err)
	rows, _ = svc.ListProducts(ctx, f)
	require.Equal(t, []string{"3"}, ids(rows))
}

func TestParseFilterRejectsBadInput(t *testing.T) {
	for _, v := range []url.Values{
		{"minPrice": {"abc"}},
		{"minPrice": {"10"}, "maxPrice": {"5"}},
		{"rating": {"7"}},
		{"sort": {"newest"}},
		{"inStock": {"maybe"}},
	} {
		_, err := ParseFilter(v)
		require.ErrorIs(t, err, common.ErrValidation, "%v", v)
	}
}

func TestGetProductTransferInfo(t *testing.T) {
	svc, _ := newService(t)
	d, err := svc.GetProduct(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, 10, d.DiscountPercent)
	require.True(t, d.BankTransfer.Enabled)
	require.Equal(t, 20, d.BankTransfer.SurchargePercent)
	require.Equal(t, int64(50000), d.BankTransfer.SurchargeAmount)
	require.Equal(t, int64(300000), d.BankTransfer.TotalWithSurcharge)

	_, err = svc.GetProduct(context.Background(), "99")
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestFeatured(t *testing.T) {
	svc, _ := newService(t)
	rows, err := svc.Featured(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2", "4"}, ids(rows))
}

func TestLineItemSnapshot(t *testing.T) {
	svc, _ := newService(t)
	it, err := svc.LineItem("1", "#ffffff", 2)
	require.NoError(t, err)
	require.Equal(t, int64(250000), it.UnitPrice)
	require.Equal(t, "mobile", it.Category)
	require.Equal(t, 20, *it.TransferFeePercent)

	_, err = svc.LineItem("1", "#123456", 1)
	require.ErrorIs(t, err, common.ErrValidation)
	_, err = svc.LineItem("1", "#ffffff", 0)
	require.ErrorIs(t, err, common.ErrValidation)
}

func ids(rows []Product) []string {
	out := make([]string, 0, len(rows))
	for _, p := range rows {
		out = append(out, p.ID)
	}
	return out
}
