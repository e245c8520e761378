// Package geo builds point geometries for node coordinates and reads them
// back from point shapefiles.
package geo

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRID is WGS 84, the reference system of OSM coordinates.
const SRID = 4326

// Point returns the node location as a WGS 84 point. X is longitude.
func Point(lat, lon float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(SRID)
}

// PointEWKB encodes the node location as little-endian EWKB, the form
// PostGIS accepts for a geometry(Point, 4326) column.
func PointEWKB(lat, lon float64) ([]byte, error) {
	data, err := ewkb.Marshal(Point(lat, lon), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode point")
	}
	return data, nil
}

// ShapePoint is one record of a point shapefile.
type ShapePoint struct {
	Lat, Lon   float64
	Attributes map[string]string // keyed by lower-case field name
}

// ReadPoints returns every point record of the shapefile at path. Records of
// other shape types are skipped.
func ReadPoints(path string) ([]ShapePoint, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
	}

	var points []ShapePoint
	for reader.Next() {
		_, shape := reader.Shape()
		p, ok := shape.(*shp.Point)
		if !ok {
			continue
		}
		attrs := make(map[string]string, len(names))
		for i, name := range names {
			attrs[name] = strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		}
		points = append(points, ShapePoint{Lat: p.Y, Lon: p.X, Attributes: attrs})
	}
	return points, nil
}

// Bounds returns the bounding box of the points as min and max corners.
// ok is false when there are no points.
func Bounds(points []ShapePoint) (minLat, minLon, maxLat, maxLon float64, ok bool) {
	if len(points) == 0 {
		return 0, 0, 0, 0, false
	}
	minLat, maxLat = points[0].Lat, points[0].Lat
	minLon, maxLon = points[0].Lon, points[0].Lon
	for _, p := range points[1:] {
		minLat = min(minLat, p.Lat)
		maxLat = max(maxLat, p.Lat)
		minLon = min(minLon, p.Lon)
		maxLon = max(maxLon, p.Lon)
	}
	return minLat, minLon, maxLat, maxLon, true
}
