package sink

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-wrangle/internal/model"
)

// Shapefile attribute columns. dBase limits field names to ten characters.
var shapeFields = []shp.Field{
	shp.StringField("OSM_ID", 20),
	shp.StringField("USER", 64),
	shp.StringField("VERSION", 10),
	shp.StringField("TIMESTAMP", 20),
}

// ShapefileSink writes one point per node to an ESRI point shapefile. Ways
// carry no coordinates of their own and are ignored.
type ShapefileSink struct {
	w      *shp.Writer
	points int
}

// NewShapefileSink creates the .shp, .shx and .dbf files for path. A
// missing .shp extension is added.
func NewShapefileSink(path string) (*ShapefileSink, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".shp") {
		path += ".shp"
	}
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return nil, eris.Wrapf(err, "sink: create shapefile %s", path)
	}
	if err := w.SetFields(shapeFields); err != nil {
		w.Close()
		return nil, eris.Wrap(err, "sink: set shapefile fields")
	}
	return &ShapefileSink{w: w}, nil
}

// Write adds a point for node records.
func (s *ShapefileSink) Write(rec model.Record) error {
	r, ok := rec.(*model.PointRecord)
	if !ok {
		return nil
	}
	idx := int(s.w.Write(&shp.Point{X: r.Point.Lon, Y: r.Point.Lat}))
	attrs := []string{strconv.FormatInt(r.Point.ID, 10), r.Point.User, r.Point.Version, r.Point.Timestamp}
	for i, v := range attrs {
		if err := s.w.WriteAttribute(idx, i, v); err != nil {
			return eris.Wrapf(err, "sink: shapefile attribute %s of node %d", shapeFields[i].String(), r.Point.ID)
		}
	}
	s.points++
	return nil
}

// Points returns the number of points written.
func (s *ShapefileSink) Points() int { return s.points }

// Close finalises the shapefile headers. shp.Writer.Close has no error
// result, so a failed header write goes unreported.
func (s *ShapefileSink) Close() error {
	s.w.Close()
	return nil
}
