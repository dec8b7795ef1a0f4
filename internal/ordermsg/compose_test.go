package ordermsg_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tienda-api/internal/address"
	"github.com/noah-isme/tienda-api/internal/currency"
	"github.com/noah-isme/tienda-api/internal/ordermsg"
	"github.com/noah-isme/tienda-api/internal/payment"
	"github.com/noah-isme/tienda-api/internal/pricing"
	"github.com/noah-isme/tienda-api/internal/shipping"
)

var fixedTime = time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)

func sampleOrder(t *testing.T, method payment.Method) ordermsg.Order {
	t.Helper()
	items := []pricing.LineItem{
		{ProductID: "p1", Name: "Zapatillas Urbanas", UnitPrice: 250000, Qty: 1, Color: "#000000", TransferFeePercent: pricing.Percent(5)},
		{ProductID: "p2", Name: "Gorra", UnitPrice: 10000, Qty: 2, TransferFeePercent: pricing.Percent(5)},
	}
	addr := &address.Address{
		Name:         "Ana Pérez",
		Email:        "ana@example.com",
		Mobile:       address.Phone{CountryCode: "+53", Number: "51234567"},
		Line:         "Calle 23 #456",
		ServiceType:  address.ServiceHomeDelivery,
		ZoneID:       "centro",
		ReceiverName: "Luis",
	}
	zones := shipping.Zones{{ID: "centro", Name: "Centro", Cost: 15000}}
	summary, err := pricing.ComputeOrderSummary(items, addr, &pricing.Coupon{Code: "DIEZ", Percent: 10}, zones, pricing.DefaultSurchargeConfig())
	require.NoError(t, err)
	return ordermsg.Order{
		Number:    "PED-240305-ABC123",
		CreatedAt: fixedTime,
		Summary:   summary,
		Method:    method,
		Store:     ordermsg.Store{Name: "Tienda Demo", WhatsApp: "+53 54690878"},
		Money:     currency.MustFormatter(currency.DefaultSettings()),
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	a := ordermsg.Compose(sampleOrder(t, payment.MethodCash))
	b := ordermsg.Compose(sampleOrder(t, payment.MethodCash))
	require.Equal(t, a, b)
}

func TestComposeSectionOrder(t *testing.T) {
	msg := ordermsg.Compose(sampleOrder(t, payment.MethodCash))
	sections := []string{
		"🛒 *NUEVO PEDIDO - PED-240305-ABC123*",
		"📅 Fecha: 5/3/2024",
		"👤 *DATOS DEL CLIENTE:*",
		"🚚 *TIPO DE SERVICIO:*",
		"📦 *PRODUCTOS:*",
		"💰 *RESUMEN DE PRECIOS:*",
		"*TOTAL:",
		"🏪 Tienda Demo",
		"¡Gracias por tu pedido! 🎉",
	}
	last := -1
	for _, s := range sections {
		idx := strings.Index(msg, s)
		require.Greater(t, idx, last, "section %q out of order", s)
		last = idx
	}
	require.True(t, strings.HasPrefix(msg, sections[0]))
}

func TestComposeContents(t *testing.T) {
	msg := ordermsg.Compose(sampleOrder(t, payment.MethodCash))
	require.Contains(t, msg, "Nombre: Ana Pérez")
	require.Contains(t, msg, "Móvil: +53 51234567")
	require.Contains(t, msg, "Entrega a domicilio")
	require.Contains(t, msg, "Zona: Centro")
	require.Contains(t, msg, "Recibe: Luis")
	require.Contains(t, msg, "1. Zapatillas Urbanas")
	require.Contains(t, msg, "   Color: #000000")
	require.Contains(t, msg, "2. Gorra")
	require.Contains(t, msg, "   Color: Sin color")
	require.Contains(t, msg, "   Cantidad: 2")
	require.Contains(t, msg, "Cupón (DIEZ): -$27.000 CUP")
	require.Contains(t, msg, "Envío: $15.000 CUP")
	require.Contains(t, msg, "Método de pago: Efectivo")
	require.Contains(t, msg, "*TOTAL: $258.000 CUP*")
	require.Contains(t, msg, "Moneda: CUP")
	require.Contains(t, msg, "📞 +53 54690878")
	require.NotContains(t, msg, "Recargo")
}

func TestComposeTransferAddsSurcharge(t *testing.T) {
	o := sampleOrder(t, payment.MethodTransfer)
	msg := ordermsg.Compose(o)
	require.Contains(t, msg, "Método de pago: Transferencia bancaria")
	require.Contains(t, msg, "Recargo por transferencia: +$13.500 CUP")
	require.Contains(t, msg, "*TOTAL: $271.500 CUP*")
	require.Equal(t, o.Summary.Total+o.Summary.Surcharge, o.Summary.TransferTotal)
}

func TestComposePickupOmitsDelivery(t *testing.T) {
	o := sampleOrder(t, payment.MethodCash)
	o.Summary.Address = address.Address{
		Name:           "Ana",
		Mobile:         address.Phone{CountryCode: "+53", Number: "51234567"},
		ServiceType:    address.ServicePickup,
		AdditionalInfo: "Paso a las 5",
	}
	o.Summary.Delivery = 0
	msg := ordermsg.Compose(o)
	require.Contains(t, msg, "Recoger en local")
	require.Contains(t, msg, "Info adicional: Paso a las 5")
	require.NotContains(t, msg, "Envío:")
	require.NotContains(t, msg, "Zona:")
}

func TestComposeWithoutFormatter(t *testing.T) {
	o := sampleOrder(t, payment.MethodCash)
	o.Money = nil
	msg := ordermsg.Compose(o)
	require.Contains(t, msg, "*TOTAL: 258000*")
}

func TestNewOrderNumber(t *testing.T) {
	n := ordermsg.NewOrderNumber(fixedTime)
	require.True(t, strings.HasPrefix(n, "PED-240305-"))
	require.True(t, ordermsg.ValidOrderNumber(n), n)
	require.NotEqual(t, n, ordermsg.NewOrderNumber(fixedTime))
	require.False(t, ordermsg.ValidOrderNumber("PED-2403-ABC"))
}
