package geo

import "math"

const (
	earthRadiusMiles = 3958.8
	metersPerMile    = 1609.344
	milesPerDegLat   = 69.0
)

// Point is a WGS-84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies within the WGS-84 coordinate ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// DistanceMiles returns the great-circle (haversine) distance between two points.
func DistanceMiles(a, b Point) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMiles * c
}

// MilesToMeters converts statute miles to meters.
func MilesToMeters(miles float64) float64 {
	return miles * metersPerMile
}

// BoundingBox is an axis-aligned lat/lon rectangle.
type BoundingBox struct {
	MinLat, MinLon, MaxLat, MaxLon float64
}

// Contains reports whether p falls inside the box, edges included.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// BoundingBoxAround returns a box that encloses every point within radiusMiles
// of center. It is a quick-reject prefilter; callers still apply DistanceMiles.
func BoundingBoxAround(center Point, radiusMiles float64) BoundingBox {
	dLat := radiusMiles / milesPerDegLat
	cosLat := math.Cos(center.Lat * math.Pi / 180)
	// Near the poles a degree of longitude collapses; widen to the full range.
	dLon := 180.0
	if cosLat > 1e-6 {
		dLon = math.Min(180, radiusMiles/(milesPerDegLat*cosLat))
	}
	return BoundingBox{
		MinLat: center.Lat - dLat,
		MaxLat: center.Lat + dLat,
		MinLon: center.Lon - dLon,
		MaxLon: center.Lon + dLon,
	}
}
