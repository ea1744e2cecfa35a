// Package geo holds the coordinate value types and the approximate
// geometry the overlay editor works with.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

var (
	// ErrInvalidCoordinate is wrapped by every validation failure.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrParseCoordinate is returned when a latitude or longitude string is not a number.
	ErrParseCoordinate = errors.New("unparseable coordinate")
	// ErrInvalidBounds is returned when north < south or west > east.
	ErrInvalidBounds = errors.New("invalid bounds: corners out of order")
)

// SafeOrigin is substituted when a configured origin fails validation.
var SafeOrigin = Coordinate{Lat: 0, Lon: 0}

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat" doc:"Latitude in degrees" example:"48.8575"`
	Lon float64 `json:"lon" doc:"Longitude in degrees" example:"2.3514"`
}

// NewCoordinate builds a validated coordinate.
func NewCoordinate(lat, lon float64) (Coordinate, error) {
	c := Coordinate{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// ParseCoordinate parses and validates a coordinate from its string parts.
func ParseCoordinate(lat, lon string) (Coordinate, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: latitude %q", ErrParseCoordinate, lat)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: longitude %q", ErrParseCoordinate, lon)
	}
	return NewCoordinate(la, lo)
}

// ParseCoordinateOrDefault parses lat/lon and falls back to def when they are
// malformed or out of range. The returned error reports why the fallback was used.
func ParseCoordinateOrDefault(lat, lon string, def Coordinate) (Coordinate, error) {
	c, err := ParseCoordinate(lat, lon)
	if err != nil {
		return def, err
	}
	return c, nil
}

// Validate checks |lat| <= 90 and |lon| <= 180. The error names every
// violated bound.
func (c Coordinate) Validate() error {
	var problems []string
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		problems = append(problems, fmt.Sprintf("latitude %v must be between -90 and 90", c.Lat))
	}
	if math.IsNaN(c.Lon) || c.Lon < -180 || c.Lon > 180 {
		problems = append(problems, fmt.Sprintf("longitude %v must be between -180 and 180", c.Lon))
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidCoordinate, strings.Join(problems, "; "))
}

// Equal reports exact equality of both components.
func (c Coordinate) Equal(o Coordinate) bool {
	return c.Lat == o.Lat && c.Lon == o.Lon
}

// Point converts to an orb point (lon, lat order).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// FromPoint converts an orb point back to a coordinate.
func FromPoint(p orb.Point) Coordinate {
	return Coordinate{Lat: p.Lat(), Lon: p.Lon()}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.Lat, c.Lon)
}

// ValidateAll validates every coordinate and reports the first failure with its index.
func ValidateAll(cs []Coordinate) error {
	for i, c := range cs {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("vertex %d: %w", i, err)
		}
	}
	return nil
}
