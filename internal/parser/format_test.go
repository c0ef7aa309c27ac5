package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectByExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		want     Format
	}{
		{"parcel.kml", FormatKML},
		{"PARCEL.KML", FormatKML},
		{"parcel.geojson", FormatGeoJSON},
		{"parcel.json", FormatGeoJSON},
		{"parcel.zip", FormatShapefile},
		{"parcel.shp", FormatShapefile},
		{"survey.dxf", FormatDXF},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.filename, func(t *testing.T) {
			t.Parallel()
			got, err := Detect(tt.filename, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectByContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want Format
	}{
		{"zip magic", "PK\x03\x04rest-of-archive", FormatShapefile},
		{"xml prolog", `<?xml version="1.0"?><kml></kml>`, FormatKML},
		{"bare kml element", `<kml><Document/></kml>`, FormatKML},
		{"json object", `{"type":"FeatureCollection","features":[]}`, FormatGeoJSON},
		{"json array", `[1,2]`, FormatGeoJSON},
		{"json with leading whitespace", "\n\t {\"type\":\"Feature\"}", FormatGeoJSON},
		{"json with utf-8 bom", "\xef\xbb\xbf{\"type\":\"Feature\"}", FormatGeoJSON},
		{"kml with utf-8 bom", "\xef\xbb\xbf<?xml version=\"1.0\"?><kml/>", FormatKML},
		{"dxf section opener", "0\nSECTION\n2\nHEADER\n", FormatDXF},
		{"dxf comment opener", "999\ncreated by survey export\n0\nSECTION\n", FormatDXF},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Detect("upload.bin", []byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectUnrecognized(t *testing.T) {
	t.Parallel()

	_, err := Detect("upload.bin", []byte("not a geometry payload"))
	require.Error(t, err)

	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, -1, fe.FeatureIndex)
	assert.Contains(t, fe.Error(), "unrecognized source format")
}

func TestFormatErrorMessages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "kml parse error: no polygon placemark found",
		formatErr(FormatKML, "no polygon placemark found").Error())
	assert.Equal(t, "geojson parse error at feature 3: coordinates outside WGS84 range [-180,180]x[-90,90]",
		featureErr(FormatGeoJSON, 3, "coordinates outside WGS84 range [-180,180]x[-90,90]").Error())
}

func TestParseBoundaryUnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, _, err := ParseBoundary([]byte("{}"), Format("csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported boundary format")

	_, err = ParseContours([]byte("{}"), Format("csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported contour format")
}
