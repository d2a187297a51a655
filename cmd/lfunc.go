package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/spatial-cli/internal/render"
	"github.com/sells-group/spatial-cli/internal/report"
	"github.com/sells-group/spatial-cli/internal/summary"
)

var lfuncCmd = &cobra.Command{
	Use:   "lfunc",
	Short: "Compute the L-function CSR envelope",
	Long:  "Computes Ripley's K transformed to L(r) for the observed pattern and a rank envelope from complete-spatial-randomness simulations.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyDataFlags(cmd)
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		p, _, _, err := loadPattern()
		if err != nil {
			return err
		}

		env, err := computeEnvelope(cmd.Context(), p, summary.L, cfg.L)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return eris.Wrap(err, "create output dir")
		}
		pngPath := filepath.Join(cfg.Output.Dir, "lfunc.png")
		if err := render.CurvePNG(env, "L function", pngPath); err != nil {
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
	addDataFlags(lfuncCmd)
	rootCmd.AddCommand(lfuncCmd)
}
