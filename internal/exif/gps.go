package exif

import (
	"strings"
	"time"

	"github.com/simonhull/imagemeta/internal/schema"
)

// GPSInfo is the decoded GPS IFD.
type GPSInfo struct {
	// Latitude and Longitude are signed decimal degrees (south and west negative).
	Latitude  float64
	Longitude float64
	// Altitude is metres relative to sea level, negative below it.
	Altitude    float64
	HasAltitude bool
	// Time combines GPSDateStamp and GPSTimeStamp in UTC. Zero when either is missing.
	Time     time.Time
	MapDatum string
}

func decodeGPS(tags []Tag) *GPSInfo {
	get := func(id uint16) (Tag, bool) {
		for _, t := range tags {
			if t.Group == schema.GroupGPS && t.ID == id {
				return t, true
			}
		}
		return Tag{}, false
	}

	lat, okLat := get(0x0002)
	lon, okLon := get(0x0004)
	alt, okAlt := get(0x0006)
	if !okLat && !okLon && !okAlt {
		return nil
	}

	info := &GPSInfo{}
	if okLat {
		info.Latitude = degrees(lat.Value)
		if ref, ok := get(0x0001); ok && strings.HasPrefix(asString(ref.Value), "S") {
			info.Latitude = -info.Latitude
		}
	}
	if okLon {
		info.Longitude = degrees(lon.Value)
		if ref, ok := get(0x0003); ok && strings.HasPrefix(asString(ref.Value), "W") {
			info.Longitude = -info.Longitude
		}
	}
	if okAlt {
		if r, ok := alt.Value.(Rational); ok {
			info.Altitude = r.Float()
			info.HasAltitude = true
		}
		if ref, ok := get(0x0005); ok && ref.Value == uint8(1) {
			info.Altitude = -info.Altitude
		}
	}
	if datum, ok := get(0x0012); ok {
		info.MapDatum = asString(datum.Value)
	}

	ds, okDate := get(0x001D)
	ts, okTime := get(0x0007)
	if okDate && okTime {
		if day, err := time.Parse("2006:01:02", asString(ds.Value)); err == nil {
			if hms, ok := ts.Value.([]Rational); ok && len(hms) == 3 {
				secs := hms[0].Float()*3600 + hms[1].Float()*60 + hms[2].Float()
				info.Time = day.Add(time.Duration(secs * float64(time.Second))).UTC()
			}
		}
	}
	return info
}

// degrees converts a degrees/minutes/seconds triple to decimal degrees.
func degrees(v any) float64 {
	dms, ok := v.([]Rational)
	if !ok || len(dms) == 0 {
		return 0
	}
	d := dms[0].Float()
	if len(dms) > 1 {
		d += dms[1].Float() / 60
	}
	if len(dms) > 2 {
		d += dms[2].Float() / 3600
	}
	return d
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
