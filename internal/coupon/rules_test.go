package coupon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tienda-api/internal/common"
)

var now = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

func TestRuleValidateWindow(t *testing.T) {
	r := Rule{Code: "VERANO", Percent: 15, ValidFrom: timePtr(now.Add(time.Hour))}
	require.ErrorIs(t, r.Validate(now, 1000), ErrInactive)

	r = Rule{Code: "VERANO", Percent: 15, ValidTo: timePtr(now.Add(-time.Hour))}
	require.ErrorIs(t, r.Validate(now, 1000), ErrExpired)

	r = Rule{Code: "VERANO", Percent: 15, Disabled: true}
	require.ErrorIs(t, r.Validate(now, 1000), ErrInactive)

	r = Rule{Code: "VERANO", Percent: 15, MinSpend: 5000}
	require.ErrorIs(t, r.Validate(now, 4999), ErrMinimumSpendUnmet)
	require.NoError(t, r.Validate(now, 5000))
}

func TestRulesApply(t *testing.T) {
	rules := Rules{{Code: "DIEZ", Percent: 10}, {Code: "VEINTE", Percent: 20}}

	c, err := rules.Apply(" diez ", now, 1000)
	require.NoError(t, err)
	require.Equal(t, "DIEZ", c.Code)
	require.Equal(t, 10, c.Percent)

	c, err = rules.Apply("", now, 1000)
	require.NoError(t, err)
	require.Nil(t, c)

	_, err = rules.Apply("NOPE", now, 1000)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRulesValidate(t *testing.T) {
	require.NoError(t, Rules{{Code: "A", Percent: 0}, {Code: "B", Percent: 100}}.Validate())

	err := Rules{{Code: "A", Percent: 101}}.Validate()
	var ve *common.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "coupons[0].discountPercent", ve.Field)

	err = Rules{{Code: "A", Percent: 5}, {Code: "a", Percent: 10}}.Validate()
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "coupons[1].couponCode", ve.Field)

	err = Rules{{Code: "A", ValidFrom: timePtr(now), ValidTo: timePtr(now.Add(-time.Minute))}}.Validate()
	require.ErrorIs(t, err, common.ErrValidation)
}

type staticSource Rules

func (s staticSource) Coupons(context.Context) (Rules, error) { return Rules(s), nil }

func TestPreviewHandler(t *testing.T) {
	h := &Handler{Source: staticSource{{Code: "DIEZ", Percent: 10, MinSpend: 1000}}, Now: func() time.Time { return now }}
	r := chi.NewRouter()
	r.Get("/coupons/{code}", h.Preview)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/coupons/diez?subtotal=250000", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data previewResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, int64(25000), body.Data.Discount)
	require.Equal(t, "DIEZ", body.Data.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/coupons/diez?subtotal=10", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "COUPON_MIN_SPEND")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/coupons/otro", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/coupons/diez?subtotal=abc", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
