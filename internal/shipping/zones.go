package shipping

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrZoneNotFound is returned when a lookup misses every configured zone.
	ErrZoneNotFound = errors.New("delivery zone not found")
	// ErrInvalidZone flags a zone definition that cannot be stored.
	ErrInvalidZone = errors.New("invalid delivery zone")
)

// Zone is a named delivery area with a fixed delivery fee in minor units.
type Zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Cost int64  `json:"cost"`
}

// Zones is the ordered list of delivery areas the store serves.
type Zones []Zone

// Find looks a zone up by identifier.
func (z Zones) Find(id string) (Zone, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Zone{}, false
	}
	for _, zone := range z {
		if zone.ID == id {
			return zone, true
		}
	}
	return Zone{}, false
}

// Get is like Find but reports a miss as ErrZoneNotFound.
func (z Zones) Get(id string) (Zone, error) {
	zone, ok := z.Find(id)
	if !ok {
		return Zone{}, fmt.Errorf("%w: %q", ErrZoneNotFound, id)
	}
	return zone, nil
}

// Validate checks ids are present and unique, names are set and costs are non-negative.
func (z Zones) Validate() error {
	seen := make(map[string]struct{}, len(z))
	for i, zone := range z {
		id := strings.TrimSpace(zone.ID)
		if id == "" {
			return fmt.Errorf("%w: zone %d has no id", ErrInvalidZone, i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidZone, id)
		}
		seen[id] = struct{}{}
		if strings.TrimSpace(zone.Name) == "" {
			return fmt.Errorf("%w: zone %q has no name", ErrInvalidZone, id)
		}
		if zone.Cost < 0 {
			return fmt.Errorf("%w: zone %q has negative cost", ErrInvalidZone, id)
		}
	}
	return nil
}

// Clone returns an independent copy of the list.
func (z Zones) Clone() Zones {
	if z == nil {
		return nil
	}
	return append(Zones(nil), z...)
}
