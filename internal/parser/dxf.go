package parser

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	geom "github.com/twpayne/go-geom"
)

// DXF entities arrive as group-code/value pairs. Only the line-shaped
// entity types carry terrain data: LWPOLYLINE, POLYLINE/VERTEX runs,
// and LINE. Attribute-style elevation discovery does not apply to CAD
// input; elevation comes from the entity's elevation group (38/30), the
// first vertex Z, or a numeric substring of the layer name.

type dxfEntity struct {
	kind      string
	layer     string
	closed    bool
	elevation float64
	hasElev   bool
	points    []geom.Coord // XYZ
}

type dxfPair struct {
	code  int
	value string
}

func scanDXFPairs(data []byte) ([]dxfPair, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var pairs []dxfPair
	var codeLine string
	haveCode := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !haveCode {
			codeLine = line
			haveCode = true
			continue
		}
		code, err := strconv.Atoi(codeLine)
		if err != nil {
			return nil, formatErr(FormatDXF, "malformed group code "+strconv.Quote(codeLine))
		}
		pairs = append(pairs, dxfPair{code: code, value: line})
		haveCode = false
	}
	if err := scanner.Err(); err != nil {
		return nil, formatErr(FormatDXF, "read input: "+err.Error())
	}
	if len(pairs) == 0 {
		return nil, formatErr(FormatDXF, "no group-code pairs found")
	}
	return pairs, nil
}

// parseDXFEntities walks the ENTITIES section and assembles the
// supported entity kinds. Unknown entities are skipped.
func parseDXFEntities(data []byte) ([]dxfEntity, error) {
	pairs, err := scanDXFPairs(data)
	if err != nil {
		return nil, err
	}

	var entities []dxfEntity
	inEntities := false
	i := 0
	for i < len(pairs) {
		p := pairs[i]
		if p.code == 0 && p.value == "SECTION" {
			if i+1 < len(pairs) && pairs[i+1].code == 2 {
				inEntities = pairs[i+1].value == "ENTITIES"
				i += 2
				continue
			}
		}
		if p.code == 0 && p.value == "ENDSEC" {
			inEntities = false
			i++
			continue
		}
		if !inEntities || p.code != 0 {
			i++
			continue
		}

		switch p.value {
		case "LWPOLYLINE":
			ent, next := parseLWPolyline(pairs, i+1)
			entities = append(entities, ent)
			i = next
		case "POLYLINE":
			ent, next := parsePolyline(pairs, i+1)
			entities = append(entities, ent)
			i = next
		case "LINE":
			ent, next := parseDXFLine(pairs, i+1)
			entities = append(entities, ent)
			i = next
		default:
			i++
		}
	}
	return entities, nil
}

// parseLWPolyline reads a lightweight polyline: vertices as repeating
// 10/20 pairs, elevation in group 38, closed flag bit in group 70.
func parseLWPolyline(pairs []dxfPair, start int) (dxfEntity, int) {
	ent := dxfEntity{kind: "LWPOLYLINE"}
	var x float64
	haveX := false
	i := start
	for i < len(pairs) && pairs[i].code != 0 {
		p := pairs[i]
		switch p.code {
		case 8:
			ent.layer = p.value
		case 38:
			if v, err := strconv.ParseFloat(p.value, 64); err == nil {
				ent.elevation = v
				ent.hasElev = true
			}
		case 70:
			if v, err := strconv.Atoi(p.value); err == nil && v&1 == 1 {
				ent.closed = true
			}
		case 10:
			if v, err := strconv.ParseFloat(p.value, 64); err == nil {
				x = v
				haveX = true
			}
		case 20:
			if v, err := strconv.ParseFloat(p.value, 64); err == nil && haveX {
				ent.points = append(ent.points, geom.Coord{x, v, ent.elevation})
				haveX = false
			}
		}
		i++
	}
	return ent, i
}

// parsePolyline reads a heavyweight polyline: a POLYLINE header
// followed by VERTEX entities until SEQEND.
func parsePolyline(pairs []dxfPair, start int) (dxfEntity, int) {
	ent := dxfEntity{kind: "POLYLINE"}
	i := start
	for i < len(pairs) && pairs[i].code != 0 {
		p := pairs[i]
		switch p.code {
		case 8:
			ent.layer = p.value
		case 30:
			if v, err := strconv.ParseFloat(p.value, 64); err == nil && v != 0 {
				ent.elevation = v
				ent.hasElev = true
			}
		case 70:
			if v, err := strconv.Atoi(p.value); err == nil && v&1 == 1 {
				ent.closed = true
			}
		}
		i++
	}

	for i < len(pairs) {
		if pairs[i].code != 0 {
			i++
			continue
		}
		switch pairs[i].value {
		case "VERTEX":
			var x, y, z float64
			i++
			for i < len(pairs) && pairs[i].code != 0 {
				p := pairs[i]
				v, err := strconv.ParseFloat(p.value, 64)
				if err == nil {
					switch p.code {
					case 10:
						x = v
					case 20:
						y = v
					case 30:
						z = v
					}
				}
				i++
			}
			ent.points = append(ent.points, geom.Coord{x, y, z})
		case "SEQEND":
			i++
			for i < len(pairs) && pairs[i].code != 0 {
				i++
			}
			return ent, i
		default:
			return ent, i
		}
	}
	return ent, i
}

// parseDXFLine reads a two-point LINE entity (10/20/30 and 11/21/31).
func parseDXFLine(pairs []dxfPair, start int) (dxfEntity, int) {
	ent := dxfEntity{kind: "LINE"}
	var sx, sy, sz, ex, ey, ez float64
	i := start
	for i < len(pairs) && pairs[i].code != 0 {
		p := pairs[i]
		v, err := strconv.ParseFloat(p.value, 64)
		if err == nil {
			switch p.code {
			case 10:
				sx = v
			case 20:
				sy = v
			case 30:
				sz = v
			case 11:
				ex = v
			case 21:
				ey = v
			case 31:
				ez = v
			}
		}
		if p.code == 8 {
			ent.layer = p.value
		}
		i++
	}
	ent.points = []geom.Coord{{sx, sy, sz}, {ex, ey, ez}}
	return ent, i
}

// parseDXFBoundary returns the first closed polyline as a polygon,
// repeating the first point to close the ring when the source omits it.
func parseDXFBoundary(data []byte) (*geom.Polygon, map[string]any, error) {
	entities, err := parseDXFEntities(data)
	if err != nil {
		return nil, nil, err
	}

	for i, ent := range entities {
		if !ent.closed || len(ent.points) < 3 {
			continue
		}
		ring := append([]geom.Coord(nil), ent.points...)
		if !coordXYEqual(ring[0], ring[len(ring)-1]) {
			ring = append(ring, geom.Coord{ring[0][0], ring[0][1], ring[0][2]})
		}
		poly := geom.NewPolygon(geom.XYZ).MustSetCoords([][]geom.Coord{ring})
		if err := validateCoords(poly, FormatDXF, i); err != nil {
			return nil, nil, err
		}
		attrs := map[string]any{}
		if ent.layer != "" {
			attrs["layer"] = ent.layer
		}
		return poly, attrs, nil
	}
	return nil, nil, formatErr(FormatDXF, "no closed polyline entity found")
}

// parseDXFLines retains every line-shaped entity. The explicit entity
// elevation, when present, is exposed through the attribute map so the
// shared resolver finds it ahead of the vertex-Z and layer fallbacks.
func parseDXFLines(data []byte) ([]Feature, error) {
	entities, err := parseDXFEntities(data)
	if err != nil {
		return nil, err
	}

	var features []Feature
	for i, ent := range entities {
		if len(ent.points) < 2 {
			continue
		}
		line := geom.NewLineString(geom.XYZ).MustSetCoords(ent.points)
		attrs := map[string]any{}
		if ent.hasElev {
			attrs["elevation"] = ent.elevation
		}
		features = append(features, Feature{Geometry: line, Attributes: attrs, Layer: ent.layer, Index: i})
	}
	return features, nil
}

func coordXYEqual(a, b geom.Coord) bool {
	return a[0] == b[0] && a[1] == b[1]
}
