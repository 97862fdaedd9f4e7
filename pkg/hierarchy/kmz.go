package hierarchy

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

var ErrNoBoundary = errors.New("no polygon boundary found")

type kmlRing struct {
	Coordinates string `xml:"coordinates"`
}

type kmlPolygon struct {
	OuterBoundary struct {
		LinearRing kmlRing `xml:"LinearRing"`
	} `xml:"outerBoundaryIs"`
	InnerBoundaries []struct {
		LinearRing kmlRing `xml:"LinearRing"`
	} `xml:"innerBoundaryIs"`
}

type kmlPlacemark struct {
	Name          string      `xml:"name"`
	Polygon       *kmlPolygon `xml:"Polygon"`
	MultiGeometry *struct {
		Polygons []kmlPolygon `xml:"Polygon"`
	} `xml:"MultiGeometry"`
}

type kmlFolder struct {
	Name       string         `xml:"name"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
	Folders    []kmlFolder    `xml:"Folder"`
}

type kmlDocument struct {
	XMLName  xml.Name `xml:"kml"`
	Document struct {
		Placemarks []kmlPlacemark `xml:"Placemark"`
		Folders    []kmlFolder    `xml:"Folder"`
	} `xml:"Document"`
}

// ExtractKML returns the first .kml entry of a KMZ archive. Plain KML input
// is returned unchanged.
func ExtractKML(data []byte) ([]byte, error) {
	if trimmed := bytes.TrimSpace(data); bytes.HasPrefix(trimmed, []byte("<")) {
		return trimmed, nil
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open KMZ archive: %w", err)
	}
	for _, f := range reader.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".kml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open KML file: %w", err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, errors.New("no KML file found in KMZ archive")
}

// BoundaryFromKMZ collects the polygons of a KMZ or KML file. When placemark
// is set, only placemarks with that name (case-insensitive) contribute.
func BoundaryFromKMZ(data []byte, placemark string) (orb.MultiPolygon, error) {
	kml, err := ExtractKML(data)
	if err != nil {
		return nil, err
	}

	var doc kmlDocument
	if err := xml.Unmarshal(kml, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse KML: %w", err)
	}

	var mp orb.MultiPolygon
	collect := func(pms []kmlPlacemark) error {
		for _, pm := range pms {
			if placemark != "" && !strings.EqualFold(strings.TrimSpace(pm.Name), placemark) {
				continue
			}
			polys := []kmlPolygon{}
			if pm.Polygon != nil {
				polys = append(polys, *pm.Polygon)
			}
			if pm.MultiGeometry != nil {
				polys = append(polys, pm.MultiGeometry.Polygons...)
			}
			for _, p := range polys {
				poly, err := toPolygon(p)
				if err != nil {
					return fmt.Errorf("placemark %q: %w", pm.Name, err)
				}
				mp = append(mp, poly)
			}
		}
		return nil
	}

	if err := collect(doc.Document.Placemarks); err != nil {
		return nil, err
	}
	var walk func(folders []kmlFolder) error
	walk = func(folders []kmlFolder) error {
		for _, f := range folders {
			if err := collect(f.Placemarks); err != nil {
				return err
			}
			if err := walk(f.Folders); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(doc.Document.Folders); err != nil {
		return nil, err
	}

	if len(mp) == 0 {
		return nil, ErrNoBoundary
	}
	return mp, nil
}

func toPolygon(p kmlPolygon) (orb.Polygon, error) {
	outer, err := parseCoordinates(p.OuterBoundary.LinearRing.Coordinates)
	if err != nil {
		return nil, err
	}
	poly := orb.Polygon{outer}
	for _, inner := range p.InnerBoundaries {
		hole, err := parseCoordinates(inner.LinearRing.Coordinates)
		if err != nil {
			return nil, err
		}
		poly = append(poly, hole)
	}
	return poly, nil
}

// parseCoordinates reads KML "lon,lat[,ele]" tuples separated by whitespace.
func parseCoordinates(s string) (orb.Ring, error) {
	ring := orb.Ring{}
	for _, tuple := range strings.Fields(s) {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			return nil, fmt.Errorf("bad coordinate %q", tuple)
		}
		lon, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("bad longitude %q", parts[0])
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad latitude %q", parts[1])
		}
		ring = append(ring, orb.Point{lon, lat})
	}
	return ring, nil
}
