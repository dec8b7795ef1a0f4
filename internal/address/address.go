package address

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/tienda-api/internal/common"
)

// ServiceType selects how the order reaches the customer.
type ServiceType string

const (
	ServicePickup       ServiceType = "pickup"
	ServiceHomeDelivery ServiceType = "home_delivery"
)

// DefaultCountryCode is applied to phones submitted without a country code.
const DefaultCountryCode = "+56"

// Phone is a mobile number split into country code and local number.
type Phone struct {
	CountryCode string `json:"countryCode"`
	Number      string `json:"number"`
}

// String renders the phone as "+56 912345678".
func (p Phone) String() string {
	number := strings.TrimSpace(p.Number)
	if number == "" {
		return ""
	}
	return strings.TrimSpace(p.CountryCode) + " " + number
}

// IsZero reports whether no number was supplied.
func (p Phone) IsZero() bool {
	return strings.TrimSpace(p.Number) == ""
}

// Address is a saved delivery or pickup contact for the shopper session.
type Address struct {
	ID             string      `json:"id"`
	Name           string      `json:"name" validate:"required,max=120"`
	Email          string      `json:"email" validate:"required,email"`
	Mobile         Phone       `json:"mobile"`
	Line           string      `json:"address" validate:"required,max=300"`
	ServiceType    ServiceType `json:"serviceType" validate:"required,oneof=pickup home_delivery"`
	ZoneID         string      `json:"zone,omitempty" validate:"required_if=ServiceType home_delivery"`
	ReceiverName   string      `json:"receiverName,omitempty" validate:"required_if=ServiceType home_delivery"`
	ReceiverPhone  *Phone      `json:"receiverPhone,omitempty"`
	AdditionalInfo string      `json:"additionalInfo,omitempty" validate:"max=500"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// IsHomeDelivery reports whether the address needs a delivery zone.
func (a Address) IsHomeDelivery() bool {
	return a.ServiceType == ServiceHomeDelivery
}

// Normalize trims free text, applies the default country code and drops
// fields that do not apply to the service type.
func (a Address) Normalize() Address {
	a.Name = strings.TrimSpace(a.Name)
	a.Email = strings.TrimSpace(a.Email)
	a.Line = strings.TrimSpace(a.Line)
	a.ZoneID = strings.TrimSpace(a.ZoneID)
	a.ReceiverName = strings.TrimSpace(a.ReceiverName)
	a.AdditionalInfo = strings.TrimSpace(a.AdditionalInfo)
	a.Mobile = normalizePhone(a.Mobile)
	if a.ReceiverPhone != nil {
		p := normalizePhone(*a.ReceiverPhone)
		a.ReceiverPhone = &p
		if p.IsZero() {
			a.ReceiverPhone = nil
		}
	}
	if a.ServiceType == ServicePickup {
		a.ZoneID = ""
		a.ReceiverName = ""
		a.ReceiverPhone = nil
	}
	return a
}

// Validate checks the address form rules.
func (a Address) Validate() error {
	return common.ValidateStruct(a)
}

func normalizePhone(p Phone) Phone {
	p.CountryCode = strings.TrimSpace(p.CountryCode)
	if p.CountryCode == "" {
		p.CountryCode = DefaultCountryCode
	}
	if !strings.HasPrefix(p.CountryCode, "+") {
		p.CountryCode = "+" + p.CountryCode
	}
	p.Number = strings.Join(strings.Fields(p.Number), "")
	p.Number = strings.ReplaceAll(p.Number, "-", "")
	return p
}

func init() {
	common.Validator().RegisterStructValidation(validatePhoneStruct, Phone{})
}

func validatePhoneStruct(sl validator.StructLevel) {
	p := sl.Current().Interface().(Phone)
	if err := ValidateMobile(p.CountryCode, p.Number); err != nil {
		sl.ReportError(p.Number, "number", "Number", "phone", "")
	}
}
