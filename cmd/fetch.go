package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/spatial-cli/internal/catalog"
	"github.com/sells-group/spatial-cli/internal/fetcher"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url-or-dataset>...",
	Short: "Download input datasets",
	Long: "Downloads point or boundary datasets over HTTP or FTP into the data directory, extracting shapefile ZIP archives.\n\n" +
		"Arguments may be full URLs or known dataset names: " + strings.Join(catalog.Names(), ", ") + ".",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		client := fetcher.NewClient(fetcher.HTTPOptions{
			UserAgent:  cfg.Fetch.UserAgent,
			Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Fetch.MaxRetries,
		})

		for _, arg := range args {
			if !strings.Contains(arg, "://") {
				ds, ok := catalog.Lookup(arg)
				if !ok {
					return eris.Errorf("unknown dataset %q (known: %s)", arg, strings.Join(catalog.Names(), ", "))
				}
				// Catalog datasets are shapefile archives; resolve straight
				// to the .shp so the path can go into the config as-is.
				shpPath, err := client.FetchShapefile(ctx, ds.URL, cfg.Fetch.DataDir)
				if err != nil {
					return err
				}
				fmt.Println(shpPath)
				continue
			}
			paths, err := client.Fetch(ctx, arg, cfg.Fetch.DataDir)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
