package ordermsg

import (
	"crypto/rand"
	"regexp"
	"time"
)

const orderSuffixAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var orderNumberPattern = regexp.MustCompile(`^PED-\d{6}-[A-Z0-9]{6}$`)

// NewOrderNumber returns an identifier of the form PED-YYMMDD-XXXXXX.
func NewOrderNumber(now time.Time) string {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	suffix := make([]byte, len(buf))
	for i, v := range buf {
		suffix[i] = orderSuffixAlphabet[int(v)%len(orderSuffixAlphabet)]
	}
	return "PED-" + now.Format("060102") + "-" + string(suffix)
}

// ValidOrderNumber reports whether s has the PED-YYMMDD-XXXXXX shape.
func ValidOrderNumber(s string) bool {
	return orderNumberPattern.MatchString(s)
}
