package photo

import (
	"bytes"
	"math"

	"github.com/rwcarlsen/goexif/exif"
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Latitude  float64
	Longitude float64
}

// ReadLocation extracts the GPS position from EXIF data. Pictures without
// EXIF, without GPS tags or with out-of-range values report false.
func ReadLocation(data []byte) (*Location, bool) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	lat, long, err := x.LatLong()
	if err != nil || !valid(lat, long) {
		return nil, false
	}
	return &Location{Latitude: lat, Longitude: long}, true
}

func valid(lat, long float64) bool {
	if math.IsNaN(lat) || math.IsNaN(long) {
		return false
	}
	// 0,0 is what many cameras write when they have no fix.
	if lat == 0 && long == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && long >= -180 && long <= 180
}
