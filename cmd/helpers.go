package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/spatial-cli/internal/config"
	"github.com/sells-group/spatial-cli/internal/envelope"
	"github.com/sells-group/spatial-cli/internal/geometry"
	"github.com/sells-group/spatial-cli/internal/model"
	"github.com/sells-group/spatial-cli/internal/pattern"
	"github.com/sells-group/spatial-cli/internal/proj"
	"github.com/sells-group/spatial-cli/internal/shapeio"
	"github.com/sells-group/spatial-cli/internal/store"
	"github.com/sells-group/spatial-cli/internal/summary"
)

// addDataFlags registers the input/output flags shared by the analysis
// commands. Flags override config.yaml and environment values.
func addDataFlags(cmd *cobra.Command) {
	cmd.Flags().String("points", "", "point dataset (.shp, .geojson, or .csv)")
	cmd.Flags().String("boundary", "", "boundary polygon dataset (.shp or .geojson)")
	cmd.Flags().StringSlice("county", nil, "restrict the window to the named counties")
	cmd.Flags().String("out", "", "output directory for plots and reports")
	cmd.Flags().Float64("bandwidth", 0, "kernel bandwidth in projected units (meters)")
	cmd.Flags().Int64("seed", 0, "simulation seed")
}

func applyDataFlags(cmd *cobra.Command) {
	if v, _ := cmd.Flags().GetString("points"); v != "" {
		cfg.Data.PointsPath = v
	}
	if v, _ := cmd.Flags().GetString("boundary"); v != "" {
		cfg.Data.BoundaryPath = v
	}
	if v, _ := cmd.Flags().GetStringSlice("county"); len(v) > 0 {
		cfg.Data.Counties = v
	}
	if v, _ := cmd.Flags().GetString("out"); v != "" {
		cfg.Output.Dir = v
	}
	if v, _ := cmd.Flags().GetFloat64("bandwidth"); v > 0 {
		cfg.Density.Bandwidth = v
	}
	if v, _ := cmd.Flags().GetInt64("seed"); v != 0 {
		cfg.Envelope.Seed = v
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "spatial.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// loadPattern runs the shared input pipeline: read points and boundary, project
// both to the configured CRS, build the window, and drop points outside it.
// The returned observations and boundary outline keep their WGS84 coordinates
// for mapping.
func loadPattern() (*pattern.Pattern, []pattern.Observation, *geom.MultiPolygon, error) {
	crs := proj.CRS(cfg.Projection.CRS)

	obs, err := shapeio.ReadPoints(cfg.Data.PointsPath, shapeio.PointOptions{
		IDField:     cfg.Data.IDField,
		CountyField: cfg.Data.CountyField,
		DateField:   cfg.Data.DateField,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	mp, err := shapeio.ReadBoundary(cfg.Data.BoundaryPath, shapeio.BoundaryOptions{
		NameField: cfg.Data.NameField,
		Names:     cfg.Data.Counties,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	outline := mp.Clone()

	for i := range obs {
		x, y, err := proj.Forward(crs, obs[i].Lon, obs[i].Lat)
		if err != nil {
			return nil, nil, nil, eris.Wrapf(err, "project point %s", obs[i].ID)
		}
		obs[i].Point = pattern.Point{X: x, Y: y}
	}
	if err := proj.ForwardGeom(mp, crs); err != nil {
		return nil, nil, nil, eris.Wrap(err, "project boundary")
	}

	win, err := geometry.NewWindow(mp, string(crs))
	if err != nil {
		return nil, nil, nil, err
	}

	p, err := pattern.New(obs, win, string(crs))
	if err != nil {
		return nil, nil, nil, err
	}

	zap.L().Info("pattern loaded",
		zap.String("points", cfg.Data.PointsPath),
		zap.String("boundary", cfg.Data.BoundaryPath),
		zap.Int("n", p.N()),
		zap.Int("rejected", p.Rejected),
	)
	return p, obs, outline, nil
}

// datasetName derives a run label from the points file name.
func datasetName() string {
	base := filepath.Base(cfg.Data.PointsPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func analysisParams() *model.AnalysisParams {
	return &model.AnalysisParams{
		PointsPath:   cfg.Data.PointsPath,
		BoundaryPath: cfg.Data.BoundaryPath,
		Counties:     cfg.Data.Counties,
		CRS:          cfg.Projection.CRS,
		Bandwidth:    cfg.Density.Bandwidth,
		GridNX:       cfg.Density.GridNX,
		GridNY:       cfg.Density.GridNY,
		G: model.StatParams{
			RStart: cfg.G.RStart, REnd: cfg.G.REnd, RStep: cfg.G.RStep,
			NSim: cfg.G.NSim, Rank: cfg.G.Rank, Correction: cfg.G.Correction,
		},
		L: model.StatParams{
			RStart: cfg.L.RStart, REnd: cfg.L.REnd, RStep: cfg.L.RStep,
			NSim: cfg.L.NSim, Rank: cfg.L.Rank, Correction: cfg.L.Correction,
		},
		Seed: cfg.Envelope.Seed,
	}
}

// gStatistic selects the configured G estimator.
func gStatistic() envelope.Statistic {
	if cfg.G.Correction == "border" {
		return summary.GBorder
	}
	return summary.G
}

// computeEnvelope runs one statistic's CSR envelope with the configured
// simulation settings.
func computeEnvelope(ctx context.Context, p *pattern.Pattern, stat envelope.Statistic, sc config.StatConfig) (*envelope.Envelope, error) {
	r, err := summary.RSeq(sc.RStart, sc.REnd, sc.RStep)
	if err != nil {
		return nil, err
	}
	return envelope.Compute(ctx, p, stat, r, envelope.Options{
		NSim:    sc.NSim,
		Rank:    sc.Rank,
		Seed:    cfg.Envelope.Seed,
		Workers: cfg.Envelope.Workers,
	})
}
