package geometry

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"github.com/siteworks/siteworks-cli/internal/model"
)

// DefaultClipBufferM is how far beyond the property boundary contour
// lines are retained, so downstream grid interpolation has support at
// the edges.
const DefaultClipBufferM = 100.0

// ClipContours restricts imported contour lines to the boundary
// expanded by bufferM meters. Each line passes three gates: a cheap
// bounding-box disjointness rejection, a clip against the buffered
// boundary's bounding box, and finally a true geometric intersection
// with the buffered polygon. A line clipped into several parts yields
// one contour per surviving part, all carrying the source elevation.
// Lines that fail to clip due to malformed geometry are dropped with a
// logged warning; contour import stays resilient to a minority of bad
// input lines.
func ClipContours(contours []model.ContourLine, boundary *geom.Polygon, bufferM float64) ([]model.ContourLine, []string) {
	if bufferM <= 0 {
		bufferM = DefaultClipBufferM
	}

	log := zap.L().With(zap.String("component", "geometry.clip"))

	buffered, bufWarnings := Buffer(boundary, bufferM, nil)
	warnings := append([]string(nil), bufWarnings...)

	bufferedGeos, err := polygonToGeos(buffered)
	if err != nil {
		log.Warn("clip: boundary conversion failed, dropping all contours", zap.Error(err))
		return nil, append(warnings, "clip boundary conversion failed: "+err.Error())
	}
	defer bufferedGeos.Destroy()

	bounds := buffered.Bounds()
	clipBound := orb.Bound{
		Min: orb.Point{bounds.Min(0), bounds.Min(1)},
		Max: orb.Point{bounds.Max(0), bounds.Max(1)},
	}

	var kept []model.ContourLine
	for i, contour := range contours {
		if contour.Geometry == nil || contour.Geometry.NumCoords() < 2 {
			log.Warn("clip: dropping malformed contour line", zap.Int("index", i))
			warnings = append(warnings, warnAt(i, "malformed geometry"))
			continue
		}

		// Fast rejection on bounding boxes.
		if !contour.Geometry.Bounds().Overlaps(geom.XY, buffered.Bounds()) {
			continue
		}

		// Clip to the buffered boundary's bounding box before the more
		// expensive polygon intersection.
		boxClipped := clip.LineString(clipBound, lineStringToOrb(contour.Geometry))
		if len(boxClipped) == 0 {
			continue
		}

		for _, part := range boxClipped {
			segments, err := intersectLine(part, bufferedGeos)
			if err != nil {
				log.Warn("clip: dropping contour part", zap.Int("index", i), zap.Error(err))
				warnings = append(warnings, warnAt(i, err.Error()))
				continue
			}
			for _, seg := range segments {
				clipped := contour
				clipped.Geometry = seg
				kept = append(kept, clipped)
			}
		}
	}

	return kept, warnings
}

func warnAt(index int, msg string) string {
	return fmt.Sprintf("contour %d: %s", index, msg)
}

// intersectLine confirms true geometric overlap of a line part with the
// buffered boundary polygon and returns the overlapping segments.
func intersectLine(part orb.LineString, boundary *geos.Geom) ([]*geom.LineString, error) {
	if len(part) < 2 {
		return nil, nil
	}
	ls := orbToLineString(part)
	lineGeos, err := lineStringToGeos(ls)
	if err != nil {
		return nil, err
	}
	defer lineGeos.Destroy()

	if !boundary.Intersects(lineGeos) {
		return nil, nil
	}
	overlap := boundary.Intersection(lineGeos)
	if overlap == nil {
		return nil, eris.New("geometry: line intersection failed")
	}
	defer overlap.Destroy()

	return lineStringsFromGeos(overlap), nil
}

func lineStringToOrb(ls *geom.LineString) orb.LineString {
	coords := ls.Coords()
	out := make(orb.LineString, len(coords))
	for i, c := range coords {
		out[i] = orb.Point{c[0], c[1]}
	}
	return out
}

func orbToLineString(ls orb.LineString) *geom.LineString {
	coords := make([]geom.Coord, len(ls))
	for i, pt := range ls {
		coords[i] = geom.Coord{pt[0], pt[1]}
	}
	return geom.NewLineString(geom.XY).MustSetCoords(coords)
}
