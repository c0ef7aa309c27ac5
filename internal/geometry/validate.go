package geometry

import (
	"fmt"
	"math"

	geom "github.com/twpayne/go-geom"
)

// Validate checks a polygon for topological well-formedness before it
// enters the pipeline: ring closure, minimum vertex count, and
// self-intersection. Every check runs on every ring so the caller sees
// all violations at once; the returned error is a *GeometryError
// carrying the full violation and intersection point lists.
func Validate(p *geom.Polygon) error {
	if p == nil || p.NumLinearRings() == 0 {
		return &GeometryError{Violations: []string{"polygon has no rings"}}
	}

	var violations []string
	var intersections []Point

	for i := 0; i < p.NumLinearRings(); i++ {
		coords := p.LinearRing(i).Coords()

		if len(coords) < 4 {
			violations = append(violations, fmt.Sprintf("ring %d has %d points, minimum is 4 (3 unique plus closing point)", i, len(coords)))
		}

		if len(coords) >= 2 && !coordsEqual(coords[0], coords[len(coords)-1]) {
			violations = append(violations, fmt.Sprintf("ring %d is not closed: first and last points differ", i))
		}

		pts := ringSelfIntersections(coords)
		if len(pts) > 0 {
			violations = append(violations, fmt.Sprintf("ring %d is self-intersecting at %d point(s)", i, len(pts)))
			intersections = append(intersections, pts...)
		}
	}

	if len(violations) > 0 {
		return &GeometryError{Violations: violations, IntersectionPoints: intersections}
	}
	return nil
}

// coordsEqual compares coordinates element-wise, including altitude
// when both carry one.
func coordsEqual(a, b geom.Coord) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type segment struct {
	x1, y1, x2, y2 float64
}

func (s segment) minX() float64 { return math.Min(s.x1, s.x2) }
func (s segment) maxX() float64 { return math.Max(s.x1, s.x2) }

// ringSelfIntersections finds every point where non-adjacent edges of a
// ring cross, using a sort-by-min-x sweep over the edge list. A ring
// whose coordinates cannot be evaluated (NaN or infinite values) is
// treated as having no detected self-intersections rather than failing
// validation.
func ringSelfIntersections(coords []geom.Coord) []Point {
	n := len(coords) - 1 // closing point duplicates the first
	if n < 3 {
		return nil
	}

	segs := make([]segment, 0, n)
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		s := segment{coords[i][0], coords[i][1], coords[i+1][0], coords[i+1][1]}
		if !finite(s.x1) || !finite(s.y1) || !finite(s.x2) || !finite(s.y2) {
			return nil
		}
		segs = append(segs, s)
		order = append(order, i)
	}

	// Sweep left to right: sort edges by their minimum x and only test
	// pairs whose x-extents overlap.
	sortByMinX(segs, order)

	var points []Point
	for i := 0; i < len(segs); i++ {
		for j := i + 1; j < len(segs); j++ {
			if segs[j].minX() > segs[i].maxX() {
				break
			}
			if adjacentEdges(order[i], order[j], n) {
				continue
			}
			if pt, ok := segmentIntersection(segs[i], segs[j]); ok {
				points = append(points, pt)
			}
		}
	}
	return points
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// adjacentEdges reports whether ring edges a and b share an endpoint by
// construction (consecutive indices, wrapping at the ring seam).
func adjacentEdges(a, b, n int) bool {
	if a == b {
		return true
	}
	d := a - b
	if d < 0 {
		d = -d
	}
	return d == 1 || d == n-1
}

func sortByMinX(segs []segment, order []int) {
	// Insertion sort; rings are small and mostly monotone runs.
	for i := 1; i < len(segs); i++ {
		s, o := segs[i], order[i]
		j := i - 1
		for j >= 0 && segs[j].minX() > s.minX() {
			segs[j+1], order[j+1] = segs[j], order[j]
			j--
		}
		segs[j+1], order[j+1] = s, o
	}
}

// segmentIntersection computes the proper intersection point of two
// segments, if any. Collinear overlaps and shared endpoints are not
// reported as intersections.
func segmentIntersection(a, b segment) (Point, bool) {
	d1x, d1y := a.x2-a.x1, a.y2-a.y1
	d2x, d2y := b.x2-b.x1, b.y2-b.y1

	denom := d1x*d2y - d1y*d2x
	if denom == 0 {
		return Point{}, false
	}

	t := ((b.x1-a.x1)*d2y - (b.y1-a.y1)*d2x) / denom
	u := ((b.x1-a.x1)*d1y - (b.y1-a.y1)*d1x) / denom
	if t <= 0 || t >= 1 || u <= 0 || u >= 1 {
		return Point{}, false
	}

	return Point{Lng: a.x1 + t*d1x, Lat: a.y1 + t*d1y}, true
}
