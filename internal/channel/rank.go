// Package channel builds the WhatsApp deep links used to hand a composed
// order to the store.
package channel

import (
	"net/url"
	"strings"
)

// Variant names a deep link flavour.
type Variant string

const (
	VariantWaMe Variant = "wa_me"
	VariantAPI  Variant = "api"
	VariantApp  Variant = "app"
	VariantWeb  Variant = "web"
)

// DeviceCapabilities describes the client the links are built for.
type DeviceCapabilities struct {
	Mobile bool `json:"mobile"`
	// AppScheme reports the client can open whatsapp:// URLs.
	AppScheme bool `json:"appScheme"`
	// InAppBrowser is set for social-app webviews that block custom schemes
	// and short-link redirects.
	InAppBrowser bool `json:"inAppBrowser"`
}

// Link is one ranked deep link.
type Link struct {
	Variant Variant `json:"variant"`
	URL     string  `json:"url"`
}

// Rank returns the deep links to try, best first. The first entry is always
// an https URL and doubles as the clipboard fallback. An empty phone yields
// no links.
func Rank(caps DeviceCapabilities, phone, text string) []Link {
	digits := Digits(phone)
	if digits == "" {
		return nil
	}
	var order []Variant
	switch {
	case caps.InAppBrowser:
		order = []Variant{VariantAPI, VariantWaMe}
	case caps.Mobile:
		order = []Variant{VariantWaMe}
		if caps.AppScheme {
			order = append(order, VariantApp)
		}
		order = append(order, VariantAPI)
	default:
		order = []Variant{VariantWaMe, VariantWeb, VariantAPI}
		if caps.AppScheme {
			order = append(order, VariantApp)
		}
	}
	links := make([]Link, 0, len(order))
	for _, v := range order {
		links = append(links, Link{Variant: v, URL: Build(v, digits, text)})
	}
	return links
}

// Build renders a single variant. phone must already be digits only.
func Build(v Variant, phone, text string) string {
	q := escapeText(text)
	switch v {
	case VariantAPI:
		return "https://api.whatsapp.com/send?phone=" + phone + "&text=" + q
	case VariantApp:
		return "whatsapp://send?phone=" + phone + "&text=" + q
	case VariantWeb:
		return "https://web.whatsapp.com/send?phone=" + phone + "&text=" + q
	default:
		return "https://wa.me/" + phone + "?text=" + q
	}
}

// escapeText percent-encodes like encodeURIComponent. WhatsApp handlers do
// not all decode '+' as a space.
func escapeText(text string) string {
	return strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

// Digits strips everything but 0-9 from a phone number.
func Digits(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
