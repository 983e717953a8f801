package media

import (
	"io"
	"log/slog"

	"github.com/tidwall/gjson"
)

// maxSidecarBytes caps sidecar metadata reads. Sidecar files are small
// JSON documents; anything larger is not one.
const maxSidecarBytes = 256 * 1024

// Location is best-effort geolocation metadata for an item.
type Location struct {
	Latitude  float64
	Longitude float64
	Altitude  *float64
	// Timestamp is the GPS fix time in unix seconds, when present.
	Timestamp *int64
}

// Extractor provides best-effort geolocation for a local item. Absence
// of a location is the common case and never an error.
type Extractor interface {
	Extract(identifier string) (*Location, bool)
}

// SidecarExtractor reads geolocation from a JSON sidecar file next to
// the item (<identifier>.json), the convention used by photo export
// tools. All failures are swallowed; a missing or malformed sidecar
// simply yields no location.
type SidecarExtractor struct {
	library *Library
	logger  *slog.Logger
}

// NewSidecarExtractor creates an extractor reading sidecars from the
// given library.
func NewSidecarExtractor(library *Library, logger *slog.Logger) *SidecarExtractor {
	return &SidecarExtractor{
		library: library,
		logger:  logger,
	}
}

// Extract looks for <identifier>.json and probes it for coordinates.
// Both flat ({"latitude": ...}) and nested ({"geoData": {"latitude": ...}})
// layouts are recognized.
func (e *SidecarExtractor) Extract(identifier string) (*Location, bool) {
	f, err := e.library.Open(identifier + ".json")
	if err != nil {
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSidecarBytes))
	if err != nil {
		return nil, false
	}

	if !gjson.ValidBytes(data) {
		e.logger.Debug("malformed sidecar ignored", slog.String("identifier", identifier))
		return nil, false
	}

	lat := firstResult(data, "latitude", "geoData.latitude")
	lon := firstResult(data, "longitude", "geoData.longitude")

	if !lat.Exists() || !lon.Exists() {
		return nil, false
	}

	// A (0,0) pair is the null island placeholder exporters write when
	// no fix was recorded.
	if lat.Float() == 0 && lon.Float() == 0 {
		return nil, false
	}

	loc := &Location{
		Latitude:  lat.Float(),
		Longitude: lon.Float(),
	}

	if alt := firstResult(data, "altitude", "geoData.altitude"); alt.Exists() {
		v := alt.Float()
		loc.Altitude = &v
	}

	if ts := firstResult(data, "gps_timestamp", "geoData.gpsTimestamp"); ts.Exists() {
		v := ts.Int()
		loc.Timestamp = &v
	}

	return loc, true
}

// firstResult returns the first existing gjson result among paths.
func firstResult(data []byte, paths ...string) gjson.Result {
	for _, p := range paths {
		if r := gjson.GetBytes(data, p); r.Exists() {
			return r
		}
	}

	return gjson.Result{}
}
