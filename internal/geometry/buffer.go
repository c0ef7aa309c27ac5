package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"
)

var errEmptyBuffer = eris.New("geometry: buffer result has no polygon members")

const (
	// DefaultArcSteps is the number of arc segments per quarter circle
	// used to approximate round buffer joins. Higher values trade vertex
	// count for smoother curves.
	DefaultArcSteps = 8

	// DefaultMaxBufferM caps caller-supplied buffer distances so a
	// single zone cannot notionally cover an entire property.
	DefaultMaxBufferM = 500.0

	// metersPerDegree converts meter distances to angular degrees. This
	// is the equatorial approximation, acceptable at mid-latitudes for
	// regulatory setback distances.
	metersPerDegree = 111320.0
)

// BufferOptions tunes the buffer operation.
type BufferOptions struct {
	Steps      int     // arc steps per corner; 0 means DefaultArcSteps
	Simplify   bool    // reduce vertex count after buffering
	ToleranceM float64 // simplification tolerance in meters
}

// ValidateBufferDistance rejects negative distances and distances
// exceeding the ceiling (DefaultMaxBufferM when maxM <= 0).
func ValidateBufferDistance(distanceM, maxM float64) error {
	if maxM <= 0 {
		maxM = DefaultMaxBufferM
	}
	if distanceM < 0 {
		return &BufferDistanceError{DistanceM: distanceM, MaxM: maxM, Reason: "distance must not be negative"}
	}
	if distanceM > maxM {
		return &BufferDistanceError{DistanceM: distanceM, MaxM: maxM, Reason: "distance exceeds maximum"}
	}
	return nil
}

// Buffer expands a polygon outward by distanceM meters with round
// joins. A distance at or below zero returns the original polygon
// unchanged. Buffering never aborts the caller's workflow: if the
// offset cannot be computed the original geometry is returned along
// with a recoverable warning.
func Buffer(p *geom.Polygon, distanceM float64, opts *BufferOptions) (*geom.Polygon, []string) {
	if p == nil || distanceM <= 0 {
		return p, nil
	}

	steps := DefaultArcSteps
	if opts != nil && opts.Steps > 0 {
		steps = opts.Steps
	}

	g, err := polygonToGeos(p)
	if err != nil {
		zap.L().Warn("buffer: falling back to original geometry", zap.Error(err))
		return p, []string{"buffer failed: " + err.Error()}
	}
	defer g.Destroy()

	buffered := g.Buffer(distanceM/metersPerDegree, steps)
	if buffered == nil || buffered.IsEmpty() {
		zap.L().Warn("buffer: offset produced empty result, falling back to original geometry",
			zap.Float64("distance_m", distanceM))
		return p, []string{"buffer offset produced no result"}
	}
	defer buffered.Destroy()

	out, err := bufferResultPolygon(buffered)
	if err != nil {
		zap.L().Warn("buffer: cannot read offset result, falling back to original geometry", zap.Error(err))
		return p, []string{"buffer failed: " + err.Error()}
	}

	if opts != nil && opts.Simplify && opts.ToleranceM > 0 {
		out = Simplify(out, opts.ToleranceM)
	}
	return out, nil
}

// bufferResultPolygon extracts a single polygon from a buffer result.
// An outward offset of a polygon is a single polygon in practice; if
// GEOS returns a multi-part result the largest member wins.
func bufferResultPolygon(g *geos.Geom) (*geom.Polygon, error) {
	if g.TypeID() == geos.TypeIDPolygon {
		return polygonFromGeos(g)
	}
	poly, err := polygonalFromGeos(g)
	if err != nil {
		return nil, err
	}
	mp, ok := poly.(*geom.MultiPolygon)
	if !ok || mp.NumPolygons() == 0 {
		return nil, errEmptyBuffer
	}
	best := mp.Polygon(0)
	bestArea := AreaM2(best)
	for i := 1; i < mp.NumPolygons(); i++ {
		if a := AreaM2(mp.Polygon(i)); a > bestArea {
			best, bestArea = mp.Polygon(i), a
		}
	}
	return best, nil
}

// Simplify reduces the vertex count of a polygon using Douglas-Peucker
// with a tolerance expressed in meters. Rings that would collapse below
// the 4-point minimum keep their original coordinates.
func Simplify(p *geom.Polygon, toleranceM float64) *geom.Polygon {
	if p == nil || toleranceM <= 0 {
		return p
	}
	simplifier := simplify.DouglasPeucker(toleranceM / metersPerDegree)
	orig := polygonToOrb(p)

	// Rings are simplified one at a time so a collapsed ring can be
	// restored without shifting the rings that follow it.
	coords := make([][]geom.Coord, 0, len(orig))
	for _, origRing := range orig {
		ring := simplifier.Ring(origRing.Clone())
		if len(ring) < 4 {
			ring = origRing
		}
		rc := make([]geom.Coord, len(ring))
		for j, pt := range ring {
			rc[j] = geom.Coord{pt[0], pt[1]}
		}
		coords = append(coords, rc)
	}
	return geom.NewPolygon(geom.XY).MustSetCoords(coords)
}

func polygonToOrb(p *geom.Polygon) orb.Polygon {
	out := make(orb.Polygon, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		coords := p.LinearRing(i).Coords()
		ring := make(orb.Ring, len(coords))
		for j, c := range coords {
			ring[j] = orb.Point{c[0], c[1]}
		}
		out[i] = ring
	}
	return out
}
