package shapeio

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/spatial-cli/internal/pattern"
)

func readPointsGeoJSON(path string, opts PointOptions) ([]pattern.Observation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapeio: read %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "shapeio: parse GeoJSON %s", path)
	}

	var obs []pattern.Observation
	for i, f := range fc.Features {
		pt, ok := f.Geometry.(*geom.Point)
		if !ok || pt == nil {
			continue
		}
		o := pattern.Observation{
			ID:  property(f.Properties, opts.IDField),
			Lon: pt.X(),
			Lat: pt.Y(),
		}
		if o.ID == "" {
			o.ID = fmt.Sprintf("%d", i)
		}
		o.County = property(f.Properties, opts.CountyField)
		o.Year = parseYear(property(f.Properties, opts.DateField))
		obs = append(obs, o)
	}
	if len(obs) == 0 {
		return nil, eris.Errorf("shapeio: no point features in %s", path)
	}
	return obs, nil
}

// property stringifies a GeoJSON property value; numeric years come through
// as float64 from encoding/json.
func property(props map[string]interface{}, key string) string {
	if key == "" || props == nil {
		return ""
	}
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
