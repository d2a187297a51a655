package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/spatial-cli/internal/density"
	"github.com/sells-group/spatial-cli/internal/render"
)

var densityCmd = &cobra.Command{
	Use:   "density",
	Short: "Compute the kernel density surface",
	Long:  "Estimates a Gaussian kernel density surface over the observation window and writes a heatmap PNG plus an interactive HTML view.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyDataFlags(cmd)
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		p, _, _, err := loadPattern()
		if err != nil {
			return err
		}

		surface, err := density.Estimate(p, cfg.Density.Bandwidth, cfg.Density.GridNX, cfg.Density.GridNY)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return eris.Wrap(err, "create output dir")
		}
		pngPath := filepath.Join(cfg.Output.Dir, "density.png")
		if err := render.DensityPNG(surface, "Kernel density", pngPath); err != nil {
			return err
		}

		htmlPath := filepath.Join(cfg.Output.Dir, "density.html")
		f, err := os.Create(htmlPath)
		if err != nil {
			return eris.Wrap(err, "create density html")
		}
		defer f.Close() //nolint:errcheck
		if err := render.RenderDensity(f, surface, datasetName()); err != nil {
			return err
		}

		fmt.Printf("wrote %s and %s\n", pngPath, htmlPath)
		return nil
	},
}

func init() {
	addDataFlags(densityCmd)
	rootCmd.AddCommand(densityCmd)
}
