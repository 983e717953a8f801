package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSidecarExtract_FlatLayout(t *testing.T) {
	lib := testLibrary(t, map[string]string{
		"a.jpg":      "x",
		"a.jpg.json": `{"latitude": 51.5074, "longitude": -0.1278, "altitude": 11.0, "gps_timestamp": 1700000000}`,
	})
	e := NewSidecarExtractor(lib, quietLogger)

	loc, ok := e.Extract("a.jpg")
	require.True(t, ok)
	assert.Equal(t, 51.5074, loc.Latitude)
	assert.Equal(t, -0.1278, loc.Longitude)
	require.NotNil(t, loc.Altitude)
	assert.Equal(t, 11.0, *loc.Altitude)
	require.NotNil(t, loc.Timestamp)
	assert.Equal(t, int64(1700000000), *loc.Timestamp)
}

func TestSidecarExtract_NestedGeoData(t *testing.T) {
	lib := testLibrary(t, map[string]string{
		"a.jpg":      "x",
		"a.jpg.json": `{"title": "a.jpg", "geoData": {"latitude": 48.8566, "longitude": 2.3522}}`,
	})
	e := NewSidecarExtractor(lib, quietLogger)

	loc, ok := e.Extract("a.jpg")
	require.True(t, ok)
	assert.Equal(t, 48.8566, loc.Latitude)
	assert.Equal(t, 2.3522, loc.Longitude)
	assert.Nil(t, loc.Altitude)
	assert.Nil(t, loc.Timestamp)
}

func TestSidecarExtract_NoSidecar(t *testing.T) {
	lib := testLibrary(t, map[string]string{"a.jpg": "x"})
	e := NewSidecarExtractor(lib, quietLogger)

	_, ok := e.Extract("a.jpg")
	assert.False(t, ok)
}

func TestSidecarExtract_MalformedJSON(t *testing.T) {
	lib := testLibrary(t, map[string]string{
		"a.jpg":      "x",
		"a.jpg.json": `{"latitude": 51.5,`,
	})
	e := NewSidecarExtractor(lib, quietLogger)

	_, ok := e.Extract("a.jpg")
	assert.False(t, ok)
}

func TestSidecarExtract_RejectsNullIsland(t *testing.T) {
	lib := testLibrary(t, map[string]string{
		"a.jpg":      "x",
		"a.jpg.json": `{"geoData": {"latitude": 0.0, "longitude": 0.0}}`,
	})
	e := NewSidecarExtractor(lib, quietLogger)

	_, ok := e.Extract("a.jpg")
	assert.False(t, ok)
}

func TestSidecarExtract_MissingCoordinate(t *testing.T) {
	lib := testLibrary(t, map[string]string{
		"a.jpg":      "x",
		"a.jpg.json": `{"latitude": 51.5}`,
	})
	e := NewSidecarExtractor(lib, quietLogger)

	_, ok := e.Extract("a.jpg")
	assert.False(t, ok)
}
