package geometry

import (
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geos"
)

// Conversions between the go-geom representation used throughout the
// pipeline and GEOS geometries used for boolean algebra, buffering, and
// containment predicates. Z values are dropped on the way in; GEOS
// operations here are planar over WGS84 degrees.

func polygonToGeos(p *geom.Polygon) (*geos.Geom, error) {
	if p == nil || p.NumLinearRings() == 0 {
		return nil, eris.New("geometry: cannot convert empty polygon")
	}
	rings := make([][][]float64, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		coords := p.LinearRing(i).Coords()
		ring := make([][]float64, len(coords))
		for j, c := range coords {
			ring[j] = []float64{c[0], c[1]}
		}
		rings[i] = ring
	}
	g := geos.NewPolygon(rings)
	if g == nil {
		return nil, eris.New("geometry: GEOS rejected polygon rings")
	}
	return g, nil
}

func lineStringToGeos(ls *geom.LineString) (*geos.Geom, error) {
	if ls == nil || ls.NumCoords() < 2 {
		return nil, eris.New("geometry: cannot convert degenerate linestring")
	}
	coords := make([][]float64, ls.NumCoords())
	for i, c := range ls.Coords() {
		coords[i] = []float64{c[0], c[1]}
	}
	g := geos.NewLineString(coords)
	if g == nil {
		return nil, eris.New("geometry: GEOS rejected linestring")
	}
	return g, nil
}

func ringFromGeos(ring *geos.Geom) []geom.Coord {
	seq := ring.CoordSeq()
	n := seq.Size()
	coords := make([]geom.Coord, n)
	for i := 0; i < n; i++ {
		coords[i] = geom.Coord{seq.X(i), seq.Y(i)}
	}
	return coords
}

func polygonFromGeos(g *geos.Geom) (*geom.Polygon, error) {
	if g == nil || g.TypeID() != geos.TypeIDPolygon {
		return nil, eris.New("geometry: GEOS geometry is not a polygon")
	}
	coords := make([][]geom.Coord, 0, g.NumInteriorRings()+1)
	coords = append(coords, ringFromGeos(g.ExteriorRing()))
	for i := 0; i < g.NumInteriorRings(); i++ {
		coords = append(coords, ringFromGeos(g.InteriorRing(i)))
	}
	return geom.NewPolygon(geom.XY).MustSetCoords(coords), nil
}

// polygonalFromGeos converts any polygonal GEOS result to a go-geom
// Polygon or MultiPolygon. Non-polygonal members of collections (slivers
// collapsed to points or lines by boolean ops) are discarded. An empty
// input produces an explicit empty MultiPolygon, not an error.
func polygonalFromGeos(g *geos.Geom) (geom.T, error) {
	if g == nil || g.IsEmpty() {
		return geom.NewMultiPolygon(geom.XY), nil
	}
	switch g.TypeID() {
	case geos.TypeIDPolygon:
		return polygonFromGeos(g)
	case geos.TypeIDMultiPolygon, geos.TypeIDGeometryCollection:
		mp := geom.NewMultiPolygon(geom.XY)
		for i := 0; i < g.NumGeometries(); i++ {
			member := g.Geometry(i)
			if member.TypeID() != geos.TypeIDPolygon || member.IsEmpty() {
				continue
			}
			p, err := polygonFromGeos(member)
			if err != nil {
				return nil, err
			}
			if err := mp.Push(p); err != nil {
				return nil, eris.Wrap(err, "geometry: assemble multipolygon")
			}
		}
		return mp, nil
	default:
		return geom.NewMultiPolygon(geom.XY), nil
	}
}

// lineStringsFromGeos extracts every line-typed component of a GEOS
// geometry. Boolean intersections of a line with a polygon can yield a
// single linestring, a multilinestring, or a mixed collection.
func lineStringsFromGeos(g *geos.Geom) []*geom.LineString {
	if g == nil || g.IsEmpty() {
		return nil
	}
	switch g.TypeID() {
	case geos.TypeIDLineString:
		seq := g.CoordSeq()
		n := seq.Size()
		if n < 2 {
			return nil
		}
		coords := make([]geom.Coord, n)
		for i := 0; i < n; i++ {
			coords[i] = geom.Coord{seq.X(i), seq.Y(i)}
		}
		return []*geom.LineString{geom.NewLineString(geom.XY).MustSetCoords(coords)}
	case geos.TypeIDMultiLineString, geos.TypeIDGeometryCollection:
		var out []*geom.LineString
		for i := 0; i < g.NumGeometries(); i++ {
			out = append(out, lineStringsFromGeos(g.Geometry(i))...)
		}
		return out
	default:
		return nil
	}
}
