package render

import (
	"io"
	"math"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/spatial-cli/internal/density"
	"github.com/sells-group/spatial-cli/internal/pattern"
)

// viridis is the color ramp used for the density visual map.
var viridis = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// RenderMap writes an interactive HTML scatter of the observations in
// lon/lat over the window outline, one point series per county so the
// legend doubles as a county filter. The outline is the pre-projection
// (lon/lat) boundary multipolygon; nil skips it.
func RenderMap(w io.Writer, obs []pattern.Observation, outline *geom.MultiPolygon, title string) error {
	if len(obs) == 0 {
		return eris.New("render: no observations to map")
	}

	byCounty := make(map[string][]opts.ScatterData)
	for _, o := range obs {
		county := o.County
		if county == "" {
			county = "unknown"
		}
		byCounty[county] = append(byCounty[county], opts.ScatterData{
			Value: []interface{}{o.Lon, o.Lat},
			Name:  o.ID,
		})
	}

	minLon, minLat := math.Inf(1), math.Inf(1)
	maxLon, maxLat := math.Inf(-1), math.Inf(-1)
	for _, o := range obs {
		minLon = math.Min(minLon, o.Lon)
		maxLon = math.Max(maxLon, o.Lon)
		minLat = math.Min(minLat, o.Lat)
		maxLat = math.Max(maxLat, o.Lat)
	}
	rings := outlineRings(outline)
	for _, ring := range rings {
		for i := 0; i+1 < len(ring); i += 2 {
			minLon = math.Min(minLon, ring[i])
			maxLon = math.Max(maxLon, ring[i])
			minLat = math.Min(minLat, ring[i+1])
			maxLat = math.Max(maxLat, ring[i+1])
		}
	}
	padLon := (maxLon - minLon) * 0.05
	padLat := (maxLat - minLat) * 0.05

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     "1000px",
			Height:    "800px",
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: minLon - padLon, Max: maxLon + padLon, Name: "lon"}),
		charts.WithYAxisOpts(opts.YAxis{Min: minLat - padLat, Max: maxLat + padLat, Name: "lat"}),
	)

	// Stable series order keeps the rendered HTML deterministic.
	counties := make([]string, 0, len(byCounty))
	for c := range byCounty {
		counties = append(counties, c)
	}
	sort.Strings(counties)
	for _, c := range counties {
		scatter.AddSeries(c, byCounty[c], charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	}

	if len(rings) > 0 {
		line := charts.NewLine()
		for _, ring := range rings {
			data := make([]opts.LineData, 0, len(ring)/2)
			for i := 0; i+1 < len(ring); i += 2 {
				data = append(data, opts.LineData{Value: []interface{}{ring[i], ring[i+1]}})
			}
			line.AddSeries("boundary", data,
				charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
				charts.WithLineStyleOpts(opts.LineStyle{Color: "#666666", Width: 1}),
			)
		}
		scatter.Overlap(line)
	}

	if err := scatter.Render(w); err != nil {
		return eris.Wrap(err, "render: map")
	}
	return nil
}

// outlineRings extracts the exterior ring of each polygon as flat lon/lat
// coordinate pairs.
func outlineRings(mp *geom.MultiPolygon) [][]float64 {
	if mp == nil {
		return nil
	}
	rings := make([][]float64, 0, mp.NumPolygons())
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		if p.NumLinearRings() == 0 {
			continue
		}
		rings = append(rings, p.LinearRing(0).FlatCoords())
	}
	return rings
}

// WriteMap renders the interactive map to an HTML file.
func WriteMap(path string, obs []pattern.Observation, outline *geom.MultiPolygon, title string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "render: create %s", path)
	}
	defer func() { _ = f.Close() }()
	return RenderMap(f, obs, outline, title)
}

// RenderDensity writes an interactive density view: grid cell centers as a
// scatter colored by density value on a viridis ramp.
func RenderDensity(w io.Writer, s *density.Surface, title string) error {
	data := make([]opts.ScatterData, 0, s.NX*s.NY)
	for iy := 0; iy < s.NY; iy++ {
		for ix := 0; ix < s.NX; ix++ {
			v := s.At(ix, iy)
			if math.IsNaN(v) {
				continue
			}
			x, y := s.CellCenter(ix, iy)
			data = append(data, opts.ScatterData{Value: []interface{}{x, y, v}})
		}
	}
	if len(data) == 0 {
		return eris.New("render: density surface has no in-window cells")
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     "900px",
			Height:    "900px",
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(s.Max),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("density", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	if err := scatter.Render(w); err != nil {
		return eris.Wrap(err, "render: density")
	}
	return nil
}
