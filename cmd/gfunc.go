package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/spatial-cli/internal/render"
	"github.com/sells-group/spatial-cli/internal/report"
)

var gfuncCmd = &cobra.Command{
	Use:   "gfunc",
	Short: "Compute the G-function CSR envelope",
	Long:  "Computes the nearest-neighbor distance distribution G(r) for the observed pattern and a rank envelope from complete-spatial-randomness simulations.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyDataFlags(cmd)
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		p, _, _, err := loadPattern()
		if err != nil {
			return err
		}

		env, err := computeEnvelope(cmd.Context(), p, gStatistic(), cfg.G)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return eris.Wrap(err, "create output dir")
		}
		pngPath := filepath.Join(cfg.Output.Dir, "gfunc.png")
		if err := render.CurvePNG(env, "G function", pngPath); err != nil {
			return err
		}

		if err := report.PrintEnvelope(os.Stdout, env); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", pngPath)
		return nil
	},
}

func init() {
	addDataFlags(gfuncCmd)
	rootCmd.AddCommand(gfuncCmd)
}
