package directory

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371008.8

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// NewPoint validates the coordinate range.
func NewPoint(lat, lon float64) (Point, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return Point{}, fmt.Errorf("invalid coordinate %v,%v", lat, lon)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Point{}, fmt.Errorf("coordinate out of range %v,%v", lat, lon)
	}
	return Point{Lat: lat, Lon: lon}, nil
}

// DistanceTo returns the great-circle distance to q in metres.
func (p Point) DistanceTo(q Point) float64 {
	a := s2.LatLngFromDegrees(p.Lat, p.Lon)
	b := s2.LatLngFromDegrees(q.Lat, q.Lon)
	return a.Distance(b).Radians() * EarthRadiusMeters
}

func (p Point) String() string {
	return fmt.Sprintf("POINT(%g %g)", p.Lon, p.Lat)
}
