package parser

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	geom "github.com/twpayne/go-geom"
)

// Shapefile input arrives as a compressed archive holding at least the
// .shp and .dbf members. The archive is extracted to a temp directory
// for go-shp, which reads from the filesystem.

func openShapefileArchive(data []byte) (*shp.Reader, func(), error) {
	tmpDir, err := os.MkdirTemp("", "siteworks-shp-*")
	if err != nil {
		return nil, nil, formatErr(FormatShapefile, "create temp dir: "+err.Error())
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	shpPath, err := extractShapefileZip(data, tmpDir)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	reader, err := shp.Open(shpPath)
	if err != nil {
		cleanup()
		return nil, nil, formatErr(FormatShapefile, "open shapefile: "+err.Error())
	}
	return reader, func() { _ = reader.Close(); cleanup() }, nil
}

// extractShapefileZip writes the archive members beside each other and
// returns the .shp path. Entry names are sanitized against path
// traversal.
func extractShapefileZip(data []byte, destDir string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", formatErr(FormatShapefile, "not a zip archive: "+err.Error())
	}

	shpPath := ""
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(f.Name)
		if name == "" || strings.HasPrefix(name, ".") {
			continue
		}
		outPath := filepath.Join(destDir, name)

		rc, err := f.Open()
		if err != nil {
			return "", formatErr(FormatShapefile, "read archive member "+name+": "+err.Error())
		}
		out, err := os.Create(outPath)
		if err != nil {
			rc.Close()
			return "", formatErr(FormatShapefile, "extract "+name+": "+err.Error())
		}
		_, copyErr := io.Copy(out, rc)
		rc.Close()
		if closeErr := out.Close(); copyErr == nil {
			copyErr = closeErr
		}
		if copyErr != nil {
			return "", formatErr(FormatShapefile, "extract "+name+": "+copyErr.Error())
		}

		if strings.EqualFold(filepath.Ext(name), ".shp") && shpPath == "" {
			shpPath = outPath
		}
	}

	if shpPath == "" {
		return "", formatErr(FormatShapefile, "archive contains no .shp member")
	}
	return shpPath, nil
}

// shapefileAttrs builds the attribute map for the current record from
// the DBF fields, trimming the null padding go-shp leaves in place.
func shapefileAttrs(reader *shp.Reader) map[string]any {
	fields := reader.Fields()
	attrs := make(map[string]any, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		if name == "" || val == "" {
			continue
		}
		attrs[name] = val
	}
	return attrs
}

// parseShapefileBoundary returns the first polygon record. All parts of
// that record are kept: part 0 as the outer ring, later parts as holes.
func parseShapefileBoundary(data []byte) (*geom.Polygon, map[string]any, error) {
	reader, cleanup, err := openShapefileArchive(data)
	if err != nil {
		return nil, nil, err
	}
	defer cleanup()

	index := 0
	for reader.Next() {
		_, shape := reader.Shape()
		sp, ok := shape.(*shp.Polygon)
		if !ok || sp == nil || len(sp.Points) == 0 {
			index++
			continue
		}

		rings := polygonParts(sp.NumParts, sp.Parts, sp.Points)
		if len(rings) == 0 {
			index++
			continue
		}
		poly := geom.NewPolygon(geom.XY).MustSetCoords(rings)
		if err := validateCoords(poly, FormatShapefile, index); err != nil {
			return nil, nil, err
		}
		return poly, shapefileAttrs(reader), nil
	}
	return nil, nil, formatErr(FormatShapefile, "no polygon record found")
}

// parseShapefileLines retains every polyline record; multi-part records
// become one feature per part, sharing the record's attributes.
func parseShapefileLines(data []byte) ([]Feature, error) {
	reader, cleanup, err := openShapefileArchive(data)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	var features []Feature
	index := 0
	for reader.Next() {
		_, shape := reader.Shape()

		var numParts int32
		var parts []int32
		var points []shp.Point
		var zs []float64
		switch s := shape.(type) {
		case *shp.PolyLine:
			numParts, parts, points = s.NumParts, s.Parts, s.Points
		case *shp.PolyLineZ:
			numParts, parts, points, zs = s.NumParts, s.Parts, s.Points, s.ZArray
		default:
			continue
		}

		attrs := shapefileAttrs(reader)
		layer, _ := attrs["LAYER"].(string)

		for _, ring := range lineParts(numParts, parts, points, zs) {
			layout := geom.XY
			if len(ring) > 0 && len(ring[0]) == 3 {
				layout = geom.XYZ
			}
			line := geom.NewLineString(layout).MustSetCoords(ring)
			features = append(features, Feature{Geometry: line, Attributes: attrs, Layer: layer, Index: index})
			index++
		}
	}
	return features, nil
}

// polygonParts splits a shapefile polygon's flat point array into rings.
func polygonParts(numParts int32, parts []int32, points []shp.Point) [][]geom.Coord {
	if numParts == 0 {
		numParts = 1
		parts = []int32{0}
	}
	var rings [][]geom.Coord
	for i := int32(0); i < numParts; i++ {
		start := parts[i]
		end := int32(len(points))
		if i+1 < numParts {
			end = parts[i+1]
		}
		if end-start < 3 {
			continue
		}
		ring := make([]geom.Coord, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, geom.Coord{points[j].X, points[j].Y})
		}
		rings = append(rings, ring)
	}
	return rings
}

// lineParts splits a shapefile polyline's flat point array into line
// coordinate runs, carrying Z values when the record has them.
func lineParts(numParts int32, parts []int32, points []shp.Point, zs []float64) [][]geom.Coord {
	if numParts == 0 {
		numParts = 1
		parts = []int32{0}
	}
	var out [][]geom.Coord
	for i := int32(0); i < numParts; i++ {
		start := parts[i]
		end := int32(len(points))
		if i+1 < numParts {
			end = parts[i+1]
		}
		if end-start < 2 {
			continue
		}
		run := make([]geom.Coord, 0, end-start)
		for j := start; j < end; j++ {
			if zs != nil && int(j) < len(zs) {
				run = append(run, geom.Coord{points[j].X, points[j].Y, zs[j]})
			} else {
				run = append(run, geom.Coord{points[j].X, points[j].Y})
			}
		}
		out = append(out, run)
	}
	return out
}
