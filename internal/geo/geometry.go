package geo

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

const (
	// EarthRadius in meters, the same constant orb's haversine uses.
	EarthRadius = orb.EarthRadius

	// metersPerDegreeLat drives the local projection used for edge distances.
	metersPerDegreeLat = 111320.0

	// circleDegreesPerMeter is a fixed-latitude approximation; it is not
	// corrected for the latitude of the circle.
	circleDegreesPerMeter = 0.00001

	// MinEdgeTolerance is the floor, in meters, for edge hit tests.
	MinEdgeTolerance = 3.0

	edgeToleranceFactor = 0.003
)

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
func toDeg(rad float64) float64 { return rad * 180 / math.Pi }

// DistanceMeters is the haversine great-circle distance.
func DistanceMeters(a, b Coordinate) float64 {
	return orbgeo.DistanceHaversine(a.Point(), b.Point())
}

// OffsetMeters moves origin north and east by the given meters using an
// equirectangular approximation. Good for meters to a few kilometers; the
// longitude term degenerates near the poles.
func OffsetMeters(origin Coordinate, north, east float64) Coordinate {
	dLat := north / EarthRadius
	dLon := east / (EarthRadius * math.Cos(toRad(origin.Lat)))
	return Coordinate{
		Lat: origin.Lat + toDeg(dLat),
		Lon: origin.Lon + toDeg(dLon),
	}
}

// Centroid is the arithmetic mean of latitudes and longitudes. It is a
// planar approximation and is wrong across the antimeridian or near a pole.
func Centroid(points []Coordinate) Coordinate {
	if len(points) == 0 {
		return Coordinate{}
	}
	var lat, lon float64
	for _, p := range points {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(points))
	return Coordinate{Lat: lat / n, Lon: lon / n}
}

// BoundsOfPoints returns the min/max box over points. ok is false for an empty slice.
func BoundsOfPoints(points []Coordinate) (b Bounds, ok bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = p.Point()
	}
	return FromBound(mp.Bound()), true
}

// BoundsOfCircle approximates a square box around a circle at a fixed
// degrees-per-meter ratio.
func BoundsOfCircle(center Coordinate, radiusMeters float64) Bounds {
	d := radiusMeters * circleDegreesPerMeter
	return Bounds{
		TopLeft:     Coordinate{Lat: center.Lat + d, Lon: center.Lon - d},
		BottomRight: Coordinate{Lat: center.Lat - d, Lon: center.Lon + d},
	}
}

// SortClockwise orders points by descending polar angle around their
// centroid. Coincident angles keep their input order.
func SortClockwise(points []Coordinate) []Coordinate {
	out := append([]Coordinate(nil), points...)
	c := Centroid(out)
	angle := func(p Coordinate) float64 {
		return math.Atan2(p.Lat-c.Lat, p.Lon-c.Lon)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return angle(out[i]) > angle(out[j])
	})
	return out
}

// PointToSegmentDistanceMeters projects p onto segment ab in a local
// equirectangular frame centred on p and returns the distance to the
// clamped projection.
func PointToSegmentDistanceMeters(p, a, b Coordinate) float64 {
	if a.Equal(b) {
		return DistanceMeters(p, a)
	}
	mPerLon := metersPerDegreeLat * math.Cos(toRad(p.Lat))
	ax, ay := (a.Lon-p.Lon)*mPerLon, (a.Lat-p.Lat)*metersPerDegreeLat
	bx, by := (b.Lon-p.Lon)*mPerLon, (b.Lat-p.Lat)*metersPerDegreeLat
	dx, dy := bx-ax, by-ay
	den := dx*dx + dy*dy
	if den == 0 {
		return DistanceMeters(p, a)
	}
	t := -(ax*dx + ay*dy) / den
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(ax+t*dx, ay+t*dy)
}

// NearestEdge returns the index i of the closed-ring edge (i, i+1 mod n)
// closest to p, and its distance. It returns -1 and +Inf for fewer than two points.
func NearestEdge(p Coordinate, ring []Coordinate) (int, float64) {
	if len(ring) < 2 {
		return -1, math.Inf(1)
	}
	best, bestDist := -1, math.Inf(1)
	for i := range ring {
		d := PointToSegmentDistanceMeters(p, ring[i], ring[(i+1)%len(ring)])
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

// VisibleWidthMeters measures the viewport from its west to its east edge
// along the mean latitude.
func VisibleWidthMeters(viewport Bounds) float64 {
	lat := (viewport.North() + viewport.South()) / 2
	return DistanceMeters(
		Coordinate{Lat: lat, Lon: viewport.West()},
		Coordinate{Lat: lat, Lon: viewport.East()},
	)
}

// EdgeTolerance scales the edge hit distance with the zoom level.
func EdgeTolerance(viewport Bounds) float64 {
	return math.Max(MinEdgeTolerance, VisibleWidthMeters(viewport)*edgeToleranceFactor)
}

// Translate shifts every point by the given degrees.
func Translate(points []Coordinate, dLat, dLon float64) []Coordinate {
	out := make([]Coordinate, len(points))
	for i, p := range points {
		out[i] = Coordinate{Lat: p.Lat + dLat, Lon: p.Lon + dLon}
	}
	return out
}
