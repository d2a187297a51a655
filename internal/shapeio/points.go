// Package shapeio loads point observations and boundary polygons from ESRI
// shapefiles and GeoJSON. All coordinates are returned in WGS84 lon/lat as
// stored in the source files; projection happens downstream.
package shapeio

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/spatial-cli/internal/pattern"
)

// PointOptions names the attribute fields to read from a point dataset.
type PointOptions struct {
	IDField     string // unique record id, e.g. "OESID"
	CountyField string // county attribution, e.g. "LOCALECOUN"
	DateField   string // date or year field, e.g. "DATEOFINCI"
}

// ReadPoints loads point observations from a .shp or .geojson file.
func ReadPoints(path string, opts PointOptions) ([]pattern.Observation, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return readPointsSHP(path, opts)
	case ".geojson", ".json":
		return readPointsGeoJSON(path, opts)
	case ".csv":
		return readPointsCSV(path, opts)
	default:
		return nil, eris.Errorf("shapeio: unsupported point format %q", filepath.Ext(path))
	}
}

func readPointsSHP(path string, opts PointOptions) ([]pattern.Observation, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapeio: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idx := fieldIndex(reader)
	idIdx, hasID := lookup(idx, opts.IDField)
	countyIdx, hasCounty := lookup(idx, opts.CountyField)
	dateIdx, hasDate := lookup(idx, opts.DateField)

	var obs []pattern.Observation
	var skipped int

	for reader.Next() {
		n, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok || pt == nil {
			skipped++
			continue
		}

		o := pattern.Observation{
			Lon: pt.X,
			Lat: pt.Y,
		}
		if hasID {
			o.ID = attribute(reader, idIdx)
		}
		if o.ID == "" {
			o.ID = strconv.Itoa(n)
		}
		if hasCounty {
			o.County = attribute(reader, countyIdx)
		}
		if hasDate {
			o.Year = parseYear(attribute(reader, dateIdx))
		}
		obs = append(obs, o)
	}

	if skipped > 0 {
		zap.L().Debug("shapeio: skipped non-point records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(obs) == 0 {
		return nil, eris.Errorf("shapeio: no point records in %s", path)
	}
	return obs, nil
}

// fieldIndex builds a lowercase field name -> index map, trimming the NUL
// padding DBF headers carry.
func fieldIndex(reader *shp.Reader) map[string]int {
	fields := reader.Fields()
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		idx[strings.ToLower(name)] = i
	}
	return idx
}

func lookup(idx map[string]int, field string) (int, bool) {
	if field == "" {
		return 0, false
	}
	i, ok := idx[strings.ToLower(field)]
	return i, ok
}

func attribute(reader *shp.Reader, i int) string {
	return strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
}

// parseYear extracts a four-digit year from a date-like attribute value
// ("2008-07-10", "07/10/2008", or a bare "2008"). Returns 0 if none found.
func parseYear(s string) int {
	for i := 0; i+4 <= len(s); i++ {
		y, err := strconv.Atoi(s[i : i+4])
		if err == nil && y >= 1000 && y <= 9999 {
			return y
		}
	}
	return 0
}
