package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMiles(t *testing.T) {
	t.Run("same point", func(t *testing.T) {
		p := Point{Lat: 36.3729, Lon: -94.2088}
		assert.InDelta(t, 0.0, DistanceMiles(p, p), 1e-9)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := Point{Lat: 36.3729, Lon: -94.2088}
		b := Point{Lat: 36.3320, Lon: -94.1185}
		assert.InDelta(t, DistanceMiles(a, b), DistanceMiles(b, a), 1e-9)
	})

	t.Run("one degree of latitude is about 69 miles", func(t *testing.T) {
		a := Point{Lat: 36.0, Lon: -94.0}
		b := Point{Lat: 37.0, Lon: -94.0}
		assert.InDelta(t, 69.1, DistanceMiles(a, b), 0.2)
	})

	t.Run("Bentonville to Rogers", func(t *testing.T) {
		bentonville := Point{Lat: 36.3729, Lon: -94.2088}
		rogers := Point{Lat: 36.3320, Lon: -94.1185}
		assert.InDelta(t, 5.8, DistanceMiles(bentonville, rogers), 0.3)
	})
}

func TestBoundingBoxAround(t *testing.T) {
	center := Point{Lat: 36.3729, Lon: -94.2088}
	box := BoundingBoxAround(center, 0.5)

	assert.True(t, box.Contains(center))
	assert.Less(t, box.MinLat, center.Lat)
	assert.Greater(t, box.MaxLon, center.Lon)

	// A point just inside the radius due north must be inside the box.
	north := Point{Lat: center.Lat + 0.49/69.0, Lon: center.Lon}
	assert.True(t, box.Contains(north))
	assert.Less(t, DistanceMiles(center, north), 0.5)

	// A point two miles east is outside.
	east := Point{Lat: center.Lat, Lon: center.Lon + 2.0/55.0}
	assert.False(t, box.Contains(east))
}

func TestPointValid(t *testing.T) {
	assert.True(t, Point{Lat: 36.1, Lon: -94.1}.Valid())
	assert.False(t, Point{Lat: 91, Lon: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lon: -181}.Valid())
}

func TestMilesToMeters(t *testing.T) {
	assert.InDelta(t, 804.672, MilesToMeters(0.5), 1e-6)
}
