package geo

import "github.com/paulmach/orb"

// Bounds is an axis-aligned box. It is always derived from points or
// circles, never edited directly.
type Bounds struct {
	TopLeft     Coordinate `json:"topLeft" doc:"North-west corner"`
	BottomRight Coordinate `json:"bottomRight" doc:"South-east corner"`
}

// BoundsOf returns the degenerate bounds around a single point.
func BoundsOf(c Coordinate) Bounds {
	return Bounds{TopLeft: c, BottomRight: c}
}

// FromBound converts an orb bound.
func FromBound(b orb.Bound) Bounds {
	return Bounds{
		TopLeft:     Coordinate{Lat: b.Max.Lat(), Lon: b.Min.Lon()},
		BottomRight: Coordinate{Lat: b.Min.Lat(), Lon: b.Max.Lon()},
	}
}

func (b Bounds) North() float64 { return b.TopLeft.Lat }
func (b Bounds) South() float64 { return b.BottomRight.Lat }
func (b Bounds) West() float64  { return b.TopLeft.Lon }
func (b Bounds) East() float64  { return b.BottomRight.Lon }

// Bound converts to an orb bound.
func (b Bounds) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.West(), b.South()},
		Max: orb.Point{b.East(), b.North()},
	}
}

// Extend grows the bounds to include c.
func (b Bounds) Extend(c Coordinate) Bounds {
	return FromBound(b.Bound().Extend(c.Point()))
}

// Union grows the bounds to include o.
func (b Bounds) Union(o Bounds) Bounds {
	return FromBound(b.Bound().Union(o.Bound()))
}

// Center is the midpoint of both axes.
func (b Bounds) Center() Coordinate {
	return FromPoint(b.Bound().Center())
}

// Contains reports whether c lies inside or on the edge of b.
func (b Bounds) Contains(c Coordinate) bool {
	return b.Bound().Contains(c.Point())
}

// Validate checks both corners and their ordering.
func (b Bounds) Validate() error {
	if err := b.TopLeft.Validate(); err != nil {
		return err
	}
	if err := b.BottomRight.Validate(); err != nil {
		return err
	}
	if b.North() < b.South() || b.West() > b.East() {
		return ErrInvalidBounds
	}
	return nil
}
