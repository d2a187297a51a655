package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/spatial-cli/internal/density"
	"github.com/sells-group/spatial-cli/internal/envelope"
	"github.com/sells-group/spatial-cli/internal/model"
	"github.com/sells-group/spatial-cli/internal/pattern"
	"github.com/sells-group/spatial-cli/internal/render"
	"github.com/sells-group/spatial-cli/internal/report"
	"github.com/sells-group/spatial-cli/internal/store"
	"github.com/sells-group/spatial-cli/internal/summary"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full analysis pipeline and record the run",
	Long:  "Loads points and boundary, builds the point pattern, computes the kernel density surface and the G/L envelopes, and writes plots, interactive maps, and an XLSX report to the output directory.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		applyDataFlags(cmd)
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		p, obs, outline, err := loadPattern()
		if err != nil {
			return err
		}

		run, gEnv, lEnv, runSummary, err := runAnalysis(ctx, st, p, obs, outline)
		if err != nil {
			return err
		}

		if err := report.PrintSummary(os.Stdout, datasetName(), runSummary); err != nil {
			return err
		}
		fmt.Println()
		for _, env := range []*envelope.Envelope{gEnv, lEnv} {
			if err := report.PrintEnvelope(os.Stdout, env); err != nil {
				return err
			}
			fmt.Println()
		}

		zap.L().Info("run complete",
			zap.String("run_id", run.ID),
			zap.String("output", cfg.Output.Dir),
		)
		return nil
	},
}

// runAnalysis records the run, computes everything, and persists results and
// artifacts. Once the run row exists, any failure marks the run failed so it
// never lingers in the running state.
func runAnalysis(ctx context.Context, st store.Store, p *pattern.Pattern, obs []pattern.Observation, outline *geom.MultiPolygon) (run *model.Run, gEnv, lEnv *envelope.Envelope, rs *model.RunSummary, err error) {
	run, err = st.CreateRun(ctx, datasetName(), analysisParams())
	if err != nil {
		return nil, nil, nil, nil, err
	}
	runID := run.ID
	zap.L().Info("run started", zap.String("run_id", runID))

	defer func() {
		if err == nil {
			return
		}
		if failErr := st.FailRun(ctx, runID, err); failErr != nil {
			zap.L().Error("could not record failure", zap.Error(failErr))
		}
	}()

	var surface *density.Surface
	surface, gEnv, lEnv, rs, err = computeAll(ctx, p)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	for _, env := range []*envelope.Envelope{gEnv, lEnv} {
		if err = st.SaveEnvelope(ctx, runID, env); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	if err = st.CompleteRun(ctx, runID, rs); err != nil {
		return nil, nil, nil, nil, err
	}
	if err = writeArtifacts(surface, gEnv, lEnv, rs, obs, outline); err != nil {
		return nil, nil, nil, nil, err
	}
	return run, gEnv, lEnv, rs, nil
}

// computeAll produces the density surface, both envelopes, and the run summary.
func computeAll(ctx context.Context, p *pattern.Pattern) (surface *density.Surface, gEnv, lEnv *envelope.Envelope, rs *model.RunSummary, err error) {
	surface, err = density.Estimate(p, cfg.Density.Bandwidth, cfg.Density.GridNX, cfg.Density.GridNY)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	gEnv, err = computeEnvelope(ctx, p, gStatistic(), cfg.G)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	lEnv, err = computeEnvelope(ctx, p, summary.L, cfg.L)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	mean, median := summary.NNStats(p)
	rs = &model.RunSummary{
		N:          p.N(),
		Rejected:   p.Rejected,
		WindowArea: p.Window.Area(),
		Intensity:  p.Intensity(),
		MeanNN:     mean,
		MedianNN:   median,
	}
	return surface, gEnv, lEnv, rs, nil
}

// writeArtifacts writes the PNG plots, the interactive maps, and the XLSX
// report to the output directory.
func writeArtifacts(surface *density.Surface, gEnv, lEnv *envelope.Envelope, rs *model.RunSummary, obs []pattern.Observation, outline *geom.MultiPolygon) error {
	outDir := cfg.Output.Dir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return eris.Wrap(err, "create output dir")
	}

	if err := render.DensityPNG(surface, "Kernel density", filepath.Join(outDir, "density.png")); err != nil {
		return err
	}
	if err := render.CurvePNG(gEnv, "G function", filepath.Join(outDir, "gfunc.png")); err != nil {
		return err
	}
	if err := render.CurvePNG(lEnv, "L function", filepath.Join(outDir, "lfunc.png")); err != nil {
		return err
	}
	if err := render.WriteMap(filepath.Join(outDir, "map.html"), obs, outline, datasetName()); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(outDir, "density.html"))
	if err != nil {
		return eris.Wrap(err, "create density html")
	}
	defer f.Close() //nolint:errcheck
	if err := render.RenderDensity(f, surface, datasetName()); err != nil {
		return err
	}
	if err := report.WriteWorkbook(filepath.Join(outDir, "report.xlsx"), rs, []*envelope.Envelope{gEnv, lEnv}); err != nil {
		return err
	}
	return nil
}

func init() {
	addDataFlags(analyzeCmd)
	rootCmd.AddCommand(analyzeCmd)
}
