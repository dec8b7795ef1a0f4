// Package ordermsg renders a priced order as the plain-text WhatsApp message
// sent to the store.
package ordermsg

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/tienda-api/internal/payment"
	"github.com/noah-isme/tienda-api/internal/pricing"
)

// MoneyFormatter renders an amount in base minor units.
type MoneyFormatter interface {
	Format(amount int64) string
	Code() string
}

// Store identifies the shop in the message footer.
type Store struct {
	Name     string `json:"name"`
	WhatsApp string `json:"whatsapp"`
	Address  string `json:"address,omitempty"`
}

// Order is everything the message needs. Number and CreatedAt are supplied by
// the caller so the output is reproducible.
type Order struct {
	Number    string
	CreatedAt time.Time
	Location  *time.Location
	Summary   pricing.Summary
	Method    payment.Method
	Store     Store
	Money     MoneyFormatter
}

// Compose renders the order. Identical inputs produce byte-identical output.
// The text is not URL-encoded.
func Compose(o Order) string {
	money := o.Money
	if money == nil {
		money = plainMoney{}
	}
	created := o.CreatedAt
	if o.Location != nil {
		created = created.In(o.Location)
	}
	s := o.Summary
	addr := s.Address

	var b strings.Builder
	fmt.Fprintf(&b, "🛒 *NUEVO PEDIDO - %s*\n", o.Number)
	fmt.Fprintf(&b, "📅 Fecha: %s\n\n", created.Format("2/1/2006"))

	b.WriteString("👤 *DATOS DEL CLIENTE:*\n")
	fmt.Fprintf(&b, "Nombre: %s\n", addr.Name)
	fmt.Fprintf(&b, "Móvil: %s\n", addr.Mobile.String())
	if addr.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", addr.Email)
	}
	b.WriteString("\n")

	b.WriteString("🚚 *TIPO DE SERVICIO:*\n")
	if addr.IsHomeDelivery() {
		zone := s.ZoneName
		if zone == "" {
			zone = addr.ZoneID
		}
		b.WriteString("Entrega a domicilio\n")
		fmt.Fprintf(&b, "Zona: %s\n", zone)
		fmt.Fprintf(&b, "Dirección: %s\n", addr.Line)
		fmt.Fprintf(&b, "Recibe: %s\n", addr.ReceiverName)
		if addr.ReceiverPhone != nil && !addr.ReceiverPhone.IsZero() {
			fmt.Fprintf(&b, "Teléfono: %s\n", addr.ReceiverPhone.String())
		}
	} else {
		b.WriteString("Recoger en local\n")
		if addr.AdditionalInfo != "" {
			fmt.Fprintf(&b, "Info adicional: %s\n", addr.AdditionalInfo)
		}
	}
	b.WriteString("\n")

	b.WriteString("📦 *PRODUCTOS:*\n")
	for i, it := range s.Items {
		color := it.Color
		if color == "" {
			color = "Sin color"
		}
		b.WriteString(strconv.Itoa(i+1) + ". " + it.Name + "\n")
		fmt.Fprintf(&b, "   Color: %s\n", color)
		fmt.Fprintf(&b, "   Cantidad: %d\n", it.Qty)
		fmt.Fprintf(&b, "   Precio unitario: %s\n", money.Format(it.UnitPrice))
		fmt.Fprintf(&b, "   Subtotal: %s\n\n", money.Format(it.Subtotal()))
	}

	b.WriteString("💰 *RESUMEN DE PRECIOS:*\n")
	fmt.Fprintf(&b, "Subtotal: %s\n", money.Format(s.Subtotal))
	if s.Discount > 0 && s.Coupon != nil {
		fmt.Fprintf(&b, "Cupón (%s): -%s\n", s.Coupon.Code, money.Format(s.Discount))
	}
	if s.Delivery > 0 {
		fmt.Fprintf(&b, "Envío: %s\n", money.Format(s.Delivery))
	}
	total := s.Total
	switch o.Method {
	case payment.MethodTransfer:
		b.WriteString("Método de pago: Transferencia bancaria\n")
		if s.Surcharge > 0 {
			fmt.Fprintf(&b, "Recargo por transferencia: +%s\n", money.Format(s.Surcharge))
		}
		total = s.TransferTotal
	case payment.MethodCash:
		b.WriteString("Método de pago: Efectivo\n")
	}
	fmt.Fprintf(&b, "*TOTAL: %s*\n", money.Format(total))
	fmt.Fprintf(&b, "Moneda: %s\n\n", money.Code())

	if o.Store.Name != "" {
		fmt.Fprintf(&b, "🏪 %s\n", o.Store.Name)
	}
	if o.Store.Address != "" {
		fmt.Fprintf(&b, "📍 %s\n", o.Store.Address)
	}
	if o.Store.WhatsApp != "" {
		fmt.Fprintf(&b, "📞 %s\n", o.Store.WhatsApp)
	}
	b.WriteString("¡Gracias por tu pedido! 🎉")
	return b.String()
}

type plainMoney struct{}

func (plainMoney) Format(amount int64) string { return strconv.FormatInt(amount, 10) }
func (plainMoney) Code() string               { return "" }
