package shapeio

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/spatial-cli/internal/fetcher"
	"github.com/sells-group/spatial-cli/internal/pattern"
)

// Coordinate column names accepted in CSV point files, in lookup order.
var (
	lonColumns = []string{"longitude", "lon", "lng", "x"}
	latColumns = []string{"latitude", "lat", "y"}
)

func readPointsCSV(path string, opts PointOptions) ([]pattern.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapeio: open csv %s", path)
	}
	defer func() { _ = f.Close() }()

	header, rows, err := fetcher.ReadCSV(context.Background(), f, fetcher.CSVOptions{TrimSpace: true})
	if err != nil {
		return nil, eris.Wrapf(err, "shapeio: read csv %s", path)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(name)] = i
	}

	lonIdx, ok := firstColumn(idx, lonColumns)
	if !ok {
		return nil, eris.Errorf("shapeio: csv %s has no longitude column", path)
	}
	latIdx, ok := firstColumn(idx, latColumns)
	if !ok {
		return nil, eris.Errorf("shapeio: csv %s has no latitude column", path)
	}
	idIdx, hasID := lookup(idx, opts.IDField)
	countyIdx, hasCounty := lookup(idx, opts.CountyField)
	dateIdx, hasDate := lookup(idx, opts.DateField)

	obs := make([]pattern.Observation, 0, len(rows))
	for n, row := range rows {
		if lonIdx >= len(row) || latIdx >= len(row) {
			return nil, eris.Errorf("shapeio: csv %s row %d has too few columns", path, n+2)
		}
		lon, err := strconv.ParseFloat(row[lonIdx], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "shapeio: csv %s row %d longitude", path, n+2)
		}
		lat, err := strconv.ParseFloat(row[latIdx], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "shapeio: csv %s row %d latitude", path, n+2)
		}

		o := pattern.Observation{Lon: lon, Lat: lat}
		if hasID && idIdx < len(row) {
			o.ID = row[idIdx]
		}
		if o.ID == "" {
			o.ID = strconv.Itoa(n)
		}
		if hasCounty && countyIdx < len(row) {
			o.County = row[countyIdx]
		}
		if hasDate && dateIdx < len(row) {
			o.Year = parseYear(row[dateIdx])
		}
		obs = append(obs, o)
	}

	if len(obs) == 0 {
		return nil, eris.Errorf("shapeio: no point records in %s", path)
	}
	return obs, nil
}

func firstColumn(idx map[string]int, names []string) (int, bool) {
	for _, name := range names {
		if i, ok := idx[name]; ok {
			return i, true
		}
	}
	return 0, false
}
