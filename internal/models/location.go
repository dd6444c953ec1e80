package models

import (
	"fmt"
	"strings"
)

// Location - место съемки. Координаты опциональны, но задаются парой.
type Location struct {
	Text      string   `gorm:"size:255;not null" json:"text"`
	Latitude  *float64 `json:"lat,omitempty"`
	Longitude *float64 `json:"lng,omitempty"`
	RadiusKm  *float64 `json:"radius_km,omitempty"`
}

func NewLocation(text string, lat, lng, radiusKm *float64) (Location, error) {
	l := Location{Text: strings.TrimSpace(text), Latitude: lat, Longitude: lng, RadiusKm: radiusKm}
	if err := l.Validate(); err != nil {
		return Location{}, err
	}
	return l, nil
}

func (l Location) Validate() error {
	if l.Text == "" {
		return fmt.Errorf("location text is required")
	}
	if (l.Latitude == nil) != (l.Longitude == nil) {
		return fmt.Errorf("latitude and longitude must be set together")
	}
	if l.Latitude != nil && (*l.Latitude < -90 || *l.Latitude > 90) {
		return fmt.Errorf("latitude out of range")
	}
	if l.Longitude != nil && (*l.Longitude < -180 || *l.Longitude > 180) {
		return fmt.Errorf("longitude out of range")
	}
	if l.RadiusKm != nil {
		if l.Latitude == nil {
			return fmt.Errorf("radius requires coordinates")
		}
		if *l.RadiusKm <= 0 {
			return fmt.Errorf("radius must be positive")
		}
	}
	return nil
}

func (l Location) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}
