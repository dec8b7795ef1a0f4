// Package checkout prices the session cart, composes the WhatsApp order
// message and hands the order to the store.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/tienda-api/internal/address"
	"github.com/noah-isme/tienda-api/internal/cart"
	"github.com/noah-isme/tienda-api/internal/channel"
	"github.com/noah-isme/tienda-api/internal/common"
	"github.com/noah-isme/tienda-api/internal/coupon"
	"github.com/noah-isme/tienda-api/internal/currency"
	"github.com/noah-isme/tienda-api/internal/events"
	"github.com/noah-isme/tienda-api/internal/notify"
	"github.com/noah-isme/tienda-api/internal/obs"
	"github.com/noah-isme/tienda-api/internal/ordermsg"
	"github.com/noah-isme/tienda-api/internal/payment"
	"github.com/noah-isme/tienda-api/internal/pricing"
	"github.com/noah-isme/tienda-api/internal/storeconfig"
)

// Carts reads and empties the session cart.
type Carts interface {
	Get(ctx context.Context, session string) (cart.Cart, error)
	Clear(ctx context.Context, session string) error
}

// Addresses resolves saved addresses.
type Addresses interface {
	Get(ctx context.Context, session, id string) (address.Address, error)
}

// ConfigSource yields the active store configuration.
type ConfigSource interface {
	Current(ctx context.Context) (storeconfig.Config, error)
}

// Request is the checkout form. Either AddressID or Address is required.
type Request struct {
	AddressID     string           `json:"addressId,omitempty"`
	Address       *address.Address `json:"address,omitempty"`
	CouponCode    string           `json:"couponCode,omitempty" validate:"max=40"`
	PaymentMethod string           `json:"paymentMethod,omitempty"`
}

// Display holds totals rendered in the store currency.
type Display struct {
	Currency      string `json:"currency"`
	Subtotal      string `json:"subtotal"`
	Total         string `json:"total"`
	TransferTotal string `json:"transferTotal"`
}

// Quote is the priced cart before the shopper commits.
type Quote struct {
	Summary          pricing.Summary  `json:"summary"`
	PaymentOptions   payment.Options  `json:"paymentOptions"`
	AvailableMethods []payment.Method `json:"availableMethods"`
	Display          Display          `json:"display"`
}

// Order is a placed order. It is returned to the shopper and not stored.
type Order struct {
	Number    string          `json:"orderNumber"`
	CreatedAt time.Time       `json:"createdAt"`
	Method    payment.Method  `json:"paymentMethod"`
	Total     pricing.Money   `json:"total"`
	Summary   pricing.Summary `json:"summary"`
	Display   Display         `json:"display"`
	Message   string          `json:"message"`
	Links     []channel.Link  `json:"links"`
}

// Service runs quotes and checkouts.
type Service struct {
	Carts     Carts
	Addresses Addresses
	Config    ConfigSource
	Bus       *events.Bus
	Metrics   *obs.Domain
	Logger    zerolog.Logger
	// Location sets the date printed in the order message. Defaults to UTC.
	Location *time.Location
	Now      func() time.Time
	tracer   trace.Tracer
}

type priced struct {
	cfg   storeconfig.Config
	quote Quote
	money *currency.Formatter
}

// Quote prices the session cart for the requested address and coupon.
func (s *Service) Quote(ctx context.Context, session string, req Request) (Quote, error) {
	ctx, span := s.startSpan(ctx, "checkout.Quote")
	defer span.End()
	p, err := s.price(ctx, session, req)
	if err != nil {
		recordSpanError(span, err)
		return Quote{}, err
	}
	return p.quote, nil
}

// Submit validates the payment method, composes the order message, ranks the
// WhatsApp links for the client, clears the cart and announces the order.
func (s *Service) Submit(ctx context.Context, session string, req Request, userAgent string) (Order, error) {
	ctx, span := s.startSpan(ctx, "checkout.Submit")
	defer span.End()

	order, err := s.submit(ctx, session, req, userAgent)
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if err != nil {
		recordSpanError(span, err)
		s.Metrics.Checkout(method, resultLabel(err))
		return Order{}, err
	}
	span.SetAttributes(
		attribute.String("order.number", order.Number),
		attribute.String("order.payment_method", string(order.Method)),
		attribute.Int64("order.total", order.Total),
		attribute.Int("order.links", len(order.Links)),
	)
	s.Metrics.Checkout(string(order.Method), "success")
	s.Metrics.OrderTotal(string(order.Method), order.Total)
	return order, nil
}

func (s *Service) submit(ctx context.Context, session string, req Request, userAgent string) (Order, error) {
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return Order{}, common.NewValidationError("paymentMethod", "payment method is required")
	}
	method, err := payment.ParseMethod(req.PaymentMethod)
	if err != nil {
		return Order{}, err
	}
	p, err := s.price(ctx, session, req)
	if err != nil {
		return Order{}, err
	}
	if err := p.quote.PaymentOptions.Check(method); err != nil {
		return Order{}, err
	}

	now := s.now()
	number := ordermsg.NewOrderNumber(now.In(s.location()))
	summary := p.quote.Summary
	message := ordermsg.Compose(ordermsg.Order{
		Number:    number,
		CreatedAt: now,
		Location:  s.location(),
		Summary:   summary,
		Method:    method,
		Store: ordermsg.Store{
			Name:     p.cfg.Store.Name,
			WhatsApp: p.cfg.Store.WhatsApp,
			Address:  p.cfg.Store.Address,
		},
		Money: p.money,
	})
	links := channel.Rank(channel.DetectCapabilities(userAgent), p.cfg.Store.WhatsApp, message)
	if len(links) == 0 {
		return Order{}, common.NewAppError("STORE_CONTACT_MISSING", "store whatsapp number is not configured", http.StatusServiceUnavailable, nil)
	}

	if err := s.Carts.Clear(ctx, session); err != nil {
		return Order{}, fmt.Errorf("clear cart: %w", err)
	}

	total := summary.Total
	if method == payment.MethodTransfer {
		total = summary.TransferTotal
	}
	order := Order{
		Number:    number,
		CreatedAt: now,
		Method:    method,
		Total:     total,
		Summary:   summary,
		Display:   p.quote.Display,
		Message:   message,
		Links:     links,
	}
	s.announce(ctx, p, order)
	s.Logger.Info().
		Str("order_number", number).
		Str("payment_method", string(method)).
		Int64("total", total).
		Int("items", len(summary.Items)).
		Msg("order placed")
	return order, nil
}

// announce emits order.created. The order is already placed, so failures of
// downstream subscribers are logged and counted only.
func (s *Service) announce(ctx context.Context, p priced, o Order) {
	if s.Bus == nil {
		return
	}
	payload := notify.OrderPayload{
		OrderNumber:   o.Number,
		To:            p.cfg.Store.Email,
		StoreName:     p.cfg.Store.Name,
		PaymentMethod: string(o.Method),
		Total:         o.Total,
		Currency:      p.money.Code(),
		Message:       o.Message,
		CreatedAt:     o.CreatedAt,
	}
	if _, err := s.Bus.Emit(ctx, events.TopicOrderCreated, payload); err != nil {
		s.Logger.Warn().Err(err).Str("order_number", o.Number).Msg("order.created delivery failed")
		s.Metrics.NotificationEnqueued("failed")
		return
	}
	s.Metrics.NotificationEnqueued("queued")
}

func (s *Service) price(ctx context.Context, session string, req Request) (priced, error) {
	if err := common.ValidateStruct(req); err != nil {
		return priced{}, err
	}
	cfg, err := s.Config.Current(ctx)
	if err != nil {
		return priced{}, err
	}
	c, err := s.Carts.Get(ctx, session)
	if err != nil {
		return priced{}, err
	}
	items := c.LineItems()
	if len(items) == 0 {
		return priced{}, common.NewValidationError("items", "cart is empty")
	}
	if gone := c.UnavailableItems(); len(gone) > 0 {
		keys := make([]string, 0, len(gone))
		for _, it := range gone {
			keys = append(keys, it.Key)
		}
		appErr := common.NewAppError("ITEM_UNAVAILABLE", "some cart items are no longer available", http.StatusConflict, nil)
		appErr.Details = map[string]any{"items": keys}
		return priced{}, appErr
	}
	addr, err := s.resolveAddress(ctx, session, req)
	if err != nil {
		return priced{}, err
	}
	cp, err := cfg.Coupons.Apply(req.CouponCode, s.now(), c.Subtotal)
	if err != nil {
		if appErr := coupon.AsAppError(err); appErr != nil {
			return priced{}, appErr
		}
		return priced{}, err
	}
	summary, err := pricing.ComputeOrderSummary(items, &addr, cp, cfg.Zones, cfg.Surcharge)
	if err != nil {
		return priced{}, err
	}
	s.recordWarnings(ctx, summary.Warnings)

	money, err := currency.NewFormatter(cfg.Currency)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("invalid currency settings, using defaults")
		money = currency.MustFormatter(currency.DefaultSettings())
	}
	opts := payment.Resolve(items, cfg.Surcharge)
	return priced{
		cfg:   cfg,
		money: money,
		quote: Quote{
			Summary:          summary,
			PaymentOptions:   opts,
			AvailableMethods: opts.Available(),
			Display: Display{
				Currency:      money.Code(),
				Subtotal:      money.Format(summary.Subtotal),
				Total:         money.Format(summary.Total),
				TransferTotal: money.Format(summary.TransferTotal),
			},
		},
	}, nil
}

func (s *Service) resolveAddress(ctx context.Context, session string, req Request) (address.Address, error) {
	if id := strings.TrimSpace(req.AddressID); id != "" {
		if s.Addresses == nil {
			return address.Address{}, common.NewValidationError("addressId", "saved addresses are not available")
		}
		return s.Addresses.Get(ctx, session, id)
	}
	if req.Address == nil {
		return address.Address{}, common.NewValidationError("address", "address or addressId is required")
	}
	addr := req.Address.Normalize()
	if err := addr.Validate(); err != nil {
		return address.Address{}, err
	}
	return addr, nil
}

func (s *Service) recordWarnings(ctx context.Context, warnings []pricing.Warning) {
	span := trace.SpanFromContext(ctx)
	for _, w := range warnings {
		s.Logger.Warn().Str("kind", string(w.Kind)).Str("ref", w.Ref).Msg(w.Message)
		s.Metrics.IntegrityWarning(string(w.Kind))
		span.AddEvent("pricing.warning", trace.WithAttributes(
			attribute.String("kind", string(w.Kind)),
			attribute.String("ref", w.Ref),
		))
	}
}

func (s *Service) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s.tracer == nil {
		s.tracer = otel.Tracer("checkout")
	}
	return s.tracer.Start(ctx, name)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func resultLabel(err error) string {
	var appErr *common.AppError
	switch {
	case errors.Is(err, common.ErrValidation):
		return "rejected"
	case errors.As(err, &appErr) && appErr.HTTPStatus < http.StatusInternalServerError:
		return "rejected"
	default:
		return "error"
	}
}
