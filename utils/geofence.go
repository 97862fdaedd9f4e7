package utils

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

var ErrInvalidGeofence = errors.New("invalid geofence")

// Coordinate is one vertex of the legacy dashboard geofence format.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geofence is the legacy dashboard format: an open or closed list of vertices.
type Geofence struct {
	Coordinates []Coordinate `json:"coordinates"`
	Name        string       `json:"name,omitempty"`
	Description string       `json:"description,omitempty"`
}

// ParseGeofence accepts a GeoJSON Polygon, MultiPolygon, Feature or
// FeatureCollection, or the legacy {"coordinates":[{lat,lng}...]} object,
// and returns the area as a multipolygon with closed rings.
func ParseGeofence(raw []byte) (orb.MultiPolygon, error) {
	var envelope struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeofence, err)
	}

	var mp orb.MultiPolygon
	switch envelope.Type {
	case "":
		var legacy Geofence
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGeofence, err)
		}
		ring := make(orb.Ring, 0, len(legacy.Coordinates)+1)
		for _, c := range legacy.Coordinates {
			ring = append(ring, orb.Point{c.Lng, c.Lat})
		}
		mp = orb.MultiPolygon{{ring}}
	case "Feature":
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGeofence, err)
		}
		mp = appendAreas(mp, f.Geometry)
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGeofence, err)
		}
		for _, f := range fc.Features {
			mp = appendAreas(mp, f.Geometry)
		}
	default:
		g, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGeofence, err)
		}
		mp = appendAreas(mp, g.Geometry())
	}

	if len(mp) == 0 {
		return nil, fmt.Errorf("%w: no polygon found", ErrInvalidGeofence)
	}
	for i := range mp {
		for j := range mp[i] {
			mp[i][j] = closeRing(mp[i][j])
		}
	}
	if err := validateArea(mp); err != nil {
		return nil, err
	}
	return mp, nil
}

func appendAreas(mp orb.MultiPolygon, g orb.Geometry) orb.MultiPolygon {
	switch g := g.(type) {
	case orb.Polygon:
		return append(mp, g)
	case orb.MultiPolygon:
		return append(mp, g...)
	case orb.Collection:
		for _, inner := range g {
			mp = appendAreas(mp, inner)
		}
	}
	return mp
}

func closeRing(r orb.Ring) orb.Ring {
	if len(r) > 0 && !r.Closed() {
		r = append(r, r[0])
	}
	return r
}

func validateArea(mp orb.MultiPolygon) error {
	for i, poly := range mp {
		if len(poly) == 0 {
			return fmt.Errorf("%w: polygon %d is empty", ErrInvalidGeofence, i)
		}
		for _, ring := range poly {
			// a closed triangle has four points
			if len(ring) < 4 {
				return fmt.Errorf("%w: geofence must have at least 3 coordinates to form a polygon", ErrInvalidGeofence)
			}
			for k, p := range ring {
				if err := validatePoint(p); err != nil {
					return fmt.Errorf("%w: coordinate %d: %v", ErrInvalidGeofence, k, err)
				}
			}
		}
	}
	return nil
}

func validatePoint(p orb.Point) error {
	if p.Lat() < -90 || p.Lat() > 90 {
		return fmt.Errorf("latitude %.6f is out of valid range [-90, 90]", p.Lat())
	}
	if p.Lon() < -180 || p.Lon() > 180 {
		return fmt.Errorf("longitude %.6f is out of valid range [-180, 180]", p.Lon())
	}
	return nil
}

// ValidateGeofence reports whether raw is an acceptable geofence. Empty
// input is allowed; geofences are optional.
func ValidateGeofence(raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	_, err := ParseGeofence(raw)
	return err
}

// GeofenceJSON encodes an area as a GeoJSON geometry for storage.
func GeofenceJSON(mp orb.MultiPolygon) ([]byte, error) {
	var g orb.Geometry = mp
	if len(mp) == 1 {
		g = mp[0]
	}
	return json.Marshal(geojson.NewGeometry(g))
}

// IsPointInGeofence reports whether the point lies inside any polygon of the area.
func IsPointInGeofence(mp orb.MultiPolygon, lat, lng float64) bool {
	return planar.MultiPolygonContains(mp, orb.Point{lng, lat})
}

// GeofenceCenter returns the area-weighted centroid.
func GeofenceCenter(mp orb.MultiPolygon) Coordinate {
	c, _ := planar.CentroidArea(mp)
	return Coordinate{Lat: c.Lat(), Lng: c.Lon()}
}
