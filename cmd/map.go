package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/spatial-cli/internal/render"
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Write the interactive incident map",
	Long:  "Writes an HTML map of the incident points colored by county, without running the statistics.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyDataFlags(cmd)
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		_, obs, outline, err := loadPattern()
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return eris.Wrap(err, "create output dir")
		}
		path := filepath.Join(cfg.Output.Dir, "map.html")
		if err := render.WriteMap(path, obs, outline, datasetName()); err != nil {
			return err
		}

		fmt.Printf("wrote %s\n", path)
		return nil
	},
}

func init() {
	addDataFlags(mapCmd)
	rootCmd.AddCommand(mapCmd)
}
