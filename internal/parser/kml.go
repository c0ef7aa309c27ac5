package parser

import (
	"encoding/xml"
	"strconv"
	"strings"

	geom "github.com/twpayne/go-geom"
)

// KML documents nest placemarks inside arbitrary Document/Folder
// levels. The boundary walk honors document order: direct placemarks
// first, then containers depth-first.

type kmlRoot struct {
	XMLName    xml.Name       `xml:"kml"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
	Documents  []kmlContainer `xml:"Document"`
	Folders    []kmlContainer `xml:"Folder"`
}

type kmlContainer struct {
	Name       string         `xml:"name"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
	Documents  []kmlContainer `xml:"Document"`
	Folders    []kmlContainer `xml:"Folder"`
}

type kmlPlacemark struct {
	Name          string            `xml:"name"`
	Polygon       *kmlPolygon       `xml:"Polygon"`
	LineString    *kmlLineString    `xml:"LineString"`
	MultiGeometry *kmlMultiGeometry `xml:"MultiGeometry"`
	ExtendedData  *kmlExtendedData  `xml:"ExtendedData"`
}

type kmlPolygon struct {
	Outer kmlBoundaryIs   `xml:"outerBoundaryIs"`
	Inner []kmlBoundaryIs `xml:"innerBoundaryIs"`
}

type kmlBoundaryIs struct {
	LinearRing kmlLinearRing `xml:"LinearRing"`
}

type kmlLinearRing struct {
	Coordinates string `xml:"coordinates"`
}

type kmlLineString struct {
	Coordinates string `xml:"coordinates"`
}

type kmlMultiGeometry struct {
	Polygons    []kmlPolygon     `xml:"Polygon"`
	LineStrings []kmlLineString  `xml:"LineString"`
	Nested      []kmlMultiGeometry `xml:"MultiGeometry"`
}

type kmlExtendedData struct {
	Data       []kmlData       `xml:"Data"`
	SchemaData []kmlSchemaData `xml:"SchemaData"`
}

type kmlData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

type kmlSchemaData struct {
	SimpleData []kmlSimpleData `xml:"SimpleData"`
}

type kmlSimpleData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

func parseKMLRoot(data []byte) (*kmlRoot, error) {
	var root kmlRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, formatErr(FormatKML, "unparseable XML: "+err.Error())
	}
	return &root, nil
}

// parseKMLBoundary returns the first polygon in the document: a direct
// placemark polygon, the first polygon member of a multi-geometry, or
// the first found inside folder/document nesting.
func parseKMLBoundary(data []byte) (*geom.Polygon, map[string]any, error) {
	root, err := parseKMLRoot(data)
	if err != nil {
		return nil, nil, err
	}

	pm, kp := firstPolygonPlacemark(root.Placemarks, append(root.Documents, root.Folders...))
	if kp == nil {
		return nil, nil, formatErr(FormatKML, "no polygon placemark found")
	}

	poly, err := kmlPolygonToGeom(kp)
	if err != nil {
		return nil, nil, err
	}
	if err := validateCoords(poly, FormatKML, 0); err != nil {
		return nil, nil, err
	}

	attrs := extendedDataAttrs(pm.ExtendedData)
	if pm.Name != "" {
		attrs["name"] = pm.Name
	}
	return poly, attrs, nil
}

func firstPolygonPlacemark(placemarks []kmlPlacemark, containers []kmlContainer) (*kmlPlacemark, *kmlPolygon) {
	for i := range placemarks {
		pm := &placemarks[i]
		if pm.Polygon != nil {
			return pm, pm.Polygon
		}
		if pm.MultiGeometry != nil {
			if kp := firstMultiPolygon(pm.MultiGeometry); kp != nil {
				return pm, kp
			}
		}
	}
	for i := range containers {
		c := &containers[i]
		if pm, kp := firstPolygonPlacemark(c.Placemarks, append(c.Documents, c.Folders...)); kp != nil {
			return pm, kp
		}
	}
	return nil, nil
}

func firstMultiPolygon(mg *kmlMultiGeometry) *kmlPolygon {
	if len(mg.Polygons) > 0 {
		return &mg.Polygons[0]
	}
	for i := range mg.Nested {
		if kp := firstMultiPolygon(&mg.Nested[i]); kp != nil {
			return kp
		}
	}
	return nil
}

// parseKMLLines collects every LineString placemark, including members
// of multi-geometries, walking all nesting levels.
func parseKMLLines(data []byte) ([]Feature, error) {
	root, err := parseKMLRoot(data)
	if err != nil {
		return nil, err
	}

	var features []Feature
	index := 0
	collectKMLLines("", root.Placemarks, append(root.Documents, root.Folders...), &features, &index)
	return features, nil
}

func collectKMLLines(group string, placemarks []kmlPlacemark, containers []kmlContainer, out *[]Feature, index *int) {
	for i := range placemarks {
		pm := &placemarks[i]
		var lineStrings []kmlLineString
		if pm.LineString != nil {
			lineStrings = append(lineStrings, *pm.LineString)
		}
		if pm.MultiGeometry != nil {
			lineStrings = append(lineStrings, collectMultiLines(pm.MultiGeometry)...)
		}
		for _, ls := range lineStrings {
			line, err := kmlLineToGeom(ls)
			if err != nil {
				continue // malformed coordinate text; the batch resolver reports missing features
			}
			attrs := extendedDataAttrs(pm.ExtendedData)
			layer := group
			if pm.Name != "" {
				layer = pm.Name
			}
			*out = append(*out, Feature{Geometry: line, Attributes: attrs, Layer: layer, Index: *index})
			*index++
		}
	}
	for i := range containers {
		c := &containers[i]
		name := c.Name
		if name == "" {
			name = group
		}
		collectKMLLines(name, c.Placemarks, append(c.Documents, c.Folders...), out, index)
	}
}

func collectMultiLines(mg *kmlMultiGeometry) []kmlLineString {
	out := append([]kmlLineString(nil), mg.LineStrings...)
	for i := range mg.Nested {
		out = append(out, collectMultiLines(&mg.Nested[i])...)
	}
	return out
}

func kmlPolygonToGeom(kp *kmlPolygon) (*geom.Polygon, error) {
	outer, hasZ, err := parseKMLCoordinates(kp.Outer.LinearRing.Coordinates)
	if err != nil {
		return nil, err
	}
	layout := geom.XY
	if hasZ {
		layout = geom.XYZ
	}
	rings := [][]geom.Coord{padToLayout(outer, layout)}
	for _, inner := range kp.Inner {
		hole, _, err := parseKMLCoordinates(inner.LinearRing.Coordinates)
		if err != nil {
			return nil, err
		}
		rings = append(rings, padToLayout(hole, layout))
	}
	return geom.NewPolygon(layout).MustSetCoords(rings), nil
}

func kmlLineToGeom(ls kmlLineString) (*geom.LineString, error) {
	coords, hasZ, err := parseKMLCoordinates(ls.Coordinates)
	if err != nil {
		return nil, err
	}
	layout := geom.XY
	if hasZ {
		layout = geom.XYZ
	}
	return geom.NewLineString(layout).MustSetCoords(coords), nil
}

// parseKMLCoordinates parses the whitespace-separated
// "lng,lat[,alt]" tuple text of a coordinates element.
func parseKMLCoordinates(text string) ([]geom.Coord, bool, error) {
	fieldsList := strings.Fields(text)
	if len(fieldsList) == 0 {
		return nil, false, formatErr(FormatKML, "empty coordinates element")
	}
	coords := make([]geom.Coord, 0, len(fieldsList))
	hasZ := false
	for _, tuple := range fieldsList {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			return nil, false, formatErr(FormatKML, "malformed coordinate tuple "+strconv.Quote(tuple))
		}
		lng, err1 := strconv.ParseFloat(parts[0], 64)
		lat, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			return nil, false, formatErr(FormatKML, "non-numeric coordinate in tuple "+strconv.Quote(tuple))
		}
		c := geom.Coord{lng, lat}
		if len(parts) >= 3 {
			if alt, err := strconv.ParseFloat(parts[2], 64); err == nil {
				c = geom.Coord{lng, lat, alt}
				hasZ = true
			}
		}
		coords = append(coords, c)
	}
	if hasZ {
		for i, c := range coords {
			if len(c) == 2 {
				coords[i] = geom.Coord{c[0], c[1], 0}
			}
		}
	}
	return coords, hasZ, nil
}

// padToLayout pads or trims coordinates to the target layout stride.
// Ring closure itself is the validator's concern, not the parser's.
func padToLayout(coords []geom.Coord, layout geom.Layout) []geom.Coord {
	stride := layout.Stride()
	out := make([]geom.Coord, len(coords))
	for i, c := range coords {
		nc := make(geom.Coord, stride)
		copy(nc, c)
		out[i] = nc
	}
	return out
}

func extendedDataAttrs(ed *kmlExtendedData) map[string]any {
	attrs := make(map[string]any)
	if ed == nil {
		return attrs
	}
	for _, d := range ed.Data {
		attrs[d.Name] = d.Value
	}
	for _, sd := range ed.SchemaData {
		for _, s := range sd.SimpleData {
			attrs[s.Name] = strings.TrimSpace(s.Value)
		}
	}
	return attrs
}
