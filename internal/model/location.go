package model

import (
	"fmt"
	"math"
)

// Coords is a WGS84 point.
type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks latitude and longitude ranges.
func (c Coords) Validate() error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Lat)
	}
	if math.IsNaN(c.Lng) || c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Lng)
	}
	return nil
}

// LocationSource records how the caller obtained a location.
type LocationSource string

const (
	LocationGPS    LocationSource = "gps"
	LocationEXIF   LocationSource = "exif"
	LocationManual LocationSource = "manual"
)

// Valid reports whether s is a known source. Empty is accepted.
func (s LocationSource) Valid() bool {
	switch s {
	case "", LocationGPS, LocationEXIF, LocationManual:
		return true
	}
	return false
}

// LocationData is the optional caller-supplied location of a photo.
type LocationData struct {
	Coords Coords         `json:"coords"`
	Name   string         `json:"name,omitempty"`
	Source LocationSource `json:"source,omitempty"`
}

// Validate checks coordinates and source.
func (l LocationData) Validate() error {
	if err := l.Coords.Validate(); err != nil {
		return err
	}
	if !l.Source.Valid() {
		return fmt.Errorf("unknown location source %q", l.Source)
	}
	return nil
}

// Label returns the display name, falling back to formatted coordinates.
func (l LocationData) Label() string {
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("%.4f, %.4f", l.Coords.Lat, l.Coords.Lng)
}
