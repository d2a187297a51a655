package shapeio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// BoundaryOptions controls boundary loading.
type BoundaryOptions struct {
	NameField string   // feature name attribute, e.g. "NAME"
	Names     []string // keep only features with these names; empty keeps all
}

// ReadBoundary loads a polygon boundary dataset and returns the union of the
// selected features as a WGS84 multipolygon. A name filter that matches no
// feature is an error.
func ReadBoundary(path string, opts BoundaryOptions) (*geom.MultiPolygon, error) {
	var polys []*geom.Polygon
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		polys, err = readBoundarySHP(path, opts)
	case ".geojson", ".json":
		polys, err = readBoundaryGeoJSON(path, opts)
	default:
		return nil, eris.Errorf("shapeio: unsupported boundary format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	if len(polys) == 0 {
		if len(opts.Names) > 0 {
			return nil, eris.Errorf("shapeio: no boundary features match filter %v", opts.Names)
		}
		return nil, eris.Errorf("shapeio: no polygon features in %s", path)
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for _, p := range polys {
		if err := mp.Push(p); err != nil {
			return nil, eris.Wrap(err, "shapeio: assemble boundary")
		}
	}
	return mp, nil
}

func readBoundarySHP(path string, opts BoundaryOptions) ([]*geom.Polygon, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapeio: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idx := fieldIndex(reader)
	nameIdx, hasName := lookup(idx, opts.NameField)
	want := nameSet(opts.Names)

	var polys []*geom.Polygon
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		sp, ok := shape.(*shp.Polygon)
		if !ok || sp == nil {
			skipped++
			continue
		}
		if len(want) > 0 {
			if !hasName {
				return nil, eris.Errorf("shapeio: name filter given but field %q not in %s", opts.NameField, path)
			}
			if !want[strings.ToLower(attribute(reader, nameIdx))] {
				continue
			}
		}
		for _, p := range shpPolygons(sp) {
			polys = append(polys, p)
		}
	}
	if skipped > 0 {
		zap.L().Debug("shapeio: skipped non-polygon records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return polys, nil
}

func readBoundaryGeoJSON(path string, opts BoundaryOptions) ([]*geom.Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapeio: read %s", path)
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "shapeio: parse GeoJSON %s", path)
	}

	want := nameSet(opts.Names)
	if len(want) > 0 {
		// Mirror the shapefile path: filtering on a field no feature
		// carries is a config error, not an empty selection.
		hasName := false
		for _, f := range fc.Features {
			if _, ok := f.Properties[opts.NameField]; ok {
				hasName = true
				break
			}
		}
		if !hasName {
			return nil, eris.Errorf("shapeio: name filter given but field %q not in %s", opts.NameField, path)
		}
	}

	var polys []*geom.Polygon
	for _, f := range fc.Features {
		if len(want) > 0 && !want[strings.ToLower(property(f.Properties, opts.NameField))] {
			continue
		}
		switch g := f.Geometry.(type) {
		case *geom.Polygon:
			polys = append(polys, g)
		case *geom.MultiPolygon:
			for i := 0; i < g.NumPolygons(); i++ {
				polys = append(polys, g.Polygon(i))
			}
		}
	}
	return polys, nil
}

// shpPolygons converts a shapefile polygon record to go-geom polygons, one
// per exterior ring. Shapefile polygons store all rings in a flat parts list;
// rings wound clockwise are exteriors, counter-clockwise are holes belonging
// to the preceding exterior.
func shpPolygons(p *shp.Polygon) []*geom.Polygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var out []*geom.Polygon
	var current *geom.Polygon

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		if len(flat) < 8 { // a ring needs at least 4 points
			continue
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if ringIsClockwise(flat) || current == nil {
			current = geom.NewPolygon(geom.XY)
			if err := current.Push(ring); err != nil {
				zap.L().Debug("shapeio: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
				current = nil
				continue
			}
			out = append(out, current)
		} else {
			if err := current.Push(ring); err != nil {
				zap.L().Debug("shapeio: skipping malformed hole", zap.Int32("part", i), zap.Error(err))
			}
		}
	}
	return out
}

// ringIsClockwise reports ring orientation via the signed shoelace area.
func ringIsClockwise(flat []float64) bool {
	var sum float64
	n := len(flat) / 2
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += (flat[j*2] - flat[i*2]) * (flat[j*2+1] + flat[i*2+1])
	}
	return sum > 0
}

func nameSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(strings.TrimSpace(n))] = true
	}
	return set
}
