package domain

import "strings"

// Location is the composite venue address of an event. Every part is required.
type Location struct {
	Venue      string `json:"venue" cbor:"venue"`
	Street     string `json:"street" cbor:"street"`
	City       string `json:"city" cbor:"city"`
	Region     string `json:"region" cbor:"region"`
	PostalCode string `json:"postal_code" cbor:"postal_code"`
	Country    string `json:"country" cbor:"country"`
}

// NewLocation trims every part and rejects blanks.
func NewLocation(venue, street, city, region, postalCode, country string) (Location, error) {
	loc := Location{
		Venue:      strings.TrimSpace(venue),
		Street:     strings.TrimSpace(street),
		City:       strings.TrimSpace(city),
		Region:     strings.TrimSpace(region),
		PostalCode: strings.TrimSpace(postalCode),
		Country:    strings.TrimSpace(country),
	}
	if err := loc.Validate(); err != nil {
		return Location{}, err
	}
	return loc, nil
}

// Validate reports the first blank part.
func (l Location) Validate() error {
	parts := []struct{ name, value string }{
		{"location.venue", l.Venue},
		{"location.street", l.Street},
		{"location.city", l.City},
		{"location.region", l.Region},
		{"location.postal_code", l.PostalCode},
		{"location.country", l.Country},
	}
	for _, p := range parts {
		if strings.TrimSpace(p.value) == "" {
			return argErr(p.name, "must not be blank")
		}
	}
	return nil
}
