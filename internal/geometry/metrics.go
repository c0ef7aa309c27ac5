package geometry

import (
	"math"

	"github.com/golang/geo/s2"
	geom "github.com/twpayne/go-geom"
)

const (
	// earthRadiusM is the mean Earth radius used for spherical area and
	// great-circle length calculations.
	earthRadiusM = 6371008.8

	// SquareMetersPerAcre and SquareMetersPerHectare are exact
	// contractual conversion constants, not approximations.
	SquareMetersPerAcre    = 4046.86
	SquareMetersPerHectare = 10000.0
)

// Acres converts square meters to acres.
func Acres(m2 float64) float64 { return m2 / SquareMetersPerAcre }

// Hectares converts square meters to hectares.
func Hectares(m2 float64) float64 { return m2 / SquareMetersPerHectare }

// ringAreaM2 computes the spherical area of a single closed ring.
// Degenerate rings contribute zero area.
func ringAreaM2(coords []geom.Coord) float64 {
	if len(coords) < 4 {
		return 0
	}
	pts := make([]s2.Point, 0, len(coords)-1)
	for _, c := range coords[:len(coords)-1] {
		pts = append(pts, s2.PointFromLatLng(s2.LatLngFromDegrees(c[1], c[0])))
	}
	if len(pts) < 3 {
		return 0
	}
	loop := s2.LoopFromPoints(pts)
	loop.Normalize()
	return loop.Area() * earthRadiusM * earthRadiusM
}

// AreaM2 computes the geodetic area of a polygon in square meters,
// subtracting hole areas from the outer ring.
func AreaM2(p *geom.Polygon) float64 {
	if p == nil || p.NumLinearRings() == 0 {
		return 0
	}
	area := ringAreaM2(p.LinearRing(0).Coords())
	for i := 1; i < p.NumLinearRings(); i++ {
		area -= ringAreaM2(p.LinearRing(i).Coords())
	}
	if area < 0 {
		return 0
	}
	return area
}

// AreaOfM2 computes the geodetic area of any polygonal geometry.
// MultiPolygon areas are the sum of member areas; nil and non-polygonal
// geometries measure zero.
func AreaOfM2(g geom.T) float64 {
	switch t := g.(type) {
	case *geom.Polygon:
		return AreaM2(t)
	case *geom.MultiPolygon:
		total := 0.0
		for i := 0; i < t.NumPolygons(); i++ {
			total += AreaM2(t.Polygon(i))
		}
		return total
	default:
		return 0
	}
}

// PerimeterM computes the great-circle length of the polygon's outer
// ring in meters.
func PerimeterM(p *geom.Polygon) float64 {
	if p == nil || p.NumLinearRings() == 0 {
		return 0
	}
	coords := p.LinearRing(0).Coords()
	total := 0.0
	for i := 1; i < len(coords); i++ {
		a := s2.LatLngFromDegrees(coords[i-1][1], coords[i-1][0])
		b := s2.LatLngFromDegrees(coords[i][1], coords[i][0])
		total += a.Distance(b).Radians() * earthRadiusM
	}
	return total
}

// LengthM computes the great-circle length of a polyline in meters.
func LengthM(ls *geom.LineString) float64 {
	if ls == nil || ls.NumCoords() < 2 {
		return 0
	}
	coords := ls.Coords()
	total := 0.0
	for i := 1; i < len(coords); i++ {
		a := s2.LatLngFromDegrees(coords[i-1][1], coords[i-1][0])
		b := s2.LatLngFromDegrees(coords[i][1], coords[i][0])
		total += a.Distance(b).Radians() * earthRadiusM
	}
	return total
}

// ringCentroid computes the planar signed area and centroid of a ring
// via the shoelace formula on raw degree coordinates. The signed area is
// only used for weighting, so the degree-space approximation is fine at
// property scale.
func ringCentroid(coords []geom.Coord) (signedArea, cx, cy float64) {
	n := len(coords)
	if n < 4 {
		return 0, 0, 0
	}
	for i := 0; i < n-1; i++ {
		cross := coords[i][0]*coords[i+1][1] - coords[i+1][0]*coords[i][1]
		signedArea += cross
		cx += (coords[i][0] + coords[i+1][0]) * cross
		cy += (coords[i][1] + coords[i+1][1]) * cross
	}
	signedArea /= 2
	if signedArea == 0 {
		return 0, 0, 0
	}
	cx /= 6 * signedArea
	cy /= 6 * signedArea
	return signedArea, cx, cy
}

// Centroid computes the area-weighted centroid of a polygon, with hole
// contributions subtracted. Degenerate polygons fall back to the vertex
// average of the outer ring.
func Centroid(p *geom.Polygon) (lat, lng float64) {
	if p == nil || p.NumLinearRings() == 0 {
		return 0, 0
	}
	var totalArea, wx, wy float64
	for i := 0; i < p.NumLinearRings(); i++ {
		a, cx, cy := ringCentroid(p.LinearRing(i).Coords())
		a = math.Abs(a)
		if i > 0 {
			a = -a
		}
		totalArea += a
		wx += a * cx
		wy += a * cy
	}
	if totalArea == 0 {
		coords := p.LinearRing(0).Coords()
		var sx, sy float64
		for _, c := range coords[:len(coords)-1] {
			sx += c[0]
			sy += c[1]
		}
		n := float64(len(coords) - 1)
		if n == 0 {
			return 0, 0
		}
		return sy / n, sx / n
	}
	return wy / totalArea, wx / totalArea
}
