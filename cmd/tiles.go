package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/urban-morph/internal/geo"
	"github.com/sells-group/urban-morph/internal/pipeline"
	"github.com/sells-group/urban-morph/internal/region"
)

var tilesCity string

var tilesCmd = &cobra.Command{
	Use:   "tiles",
	Short: "List the height tiles a city's regions need",
	Long:  "Loads the region boundaries, expands their extent by the tile margin and prints every height tile path. Missing tiles are marked and make the command fail.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tilesCity != "" {
			cfg.Data.City = tilesCity
		}
		if err := cfg.Validate("tiles"); err != nil {
			return err
		}
		crs, err := geo.ParseCRS(cfg.Data.RegionCRS)
		if err != nil {
			return eris.Wrap(err, "tiles: region crs")
		}

		regions, err := region.Load(cfg.Data.RegionPath(), crs)
		if err != nil {
			return err
		}

		plan := pipeline.PlanHeightTiles(cfg.Data, cfg.Pipeline, regions.Bound())
		missing := make(map[string]bool, len(plan.Missing))
		for _, p := range plan.Missing {
			missing[p] = true
		}

		out := cmd.OutOrStdout()
		for _, p := range plan.Paths {
			mark := "ok"
			if missing[p] {
				mark = "missing"
			}
			_, _ = fmt.Fprintf(out, "%s\t%s\n", mark, p)
		}

		if len(plan.Missing) > 0 {
			return eris.Errorf("tiles: %d of %d height tiles missing", len(plan.Missing), len(plan.Paths))
		}
		return nil
	},
}

func init() {
	tilesCmd.Flags().StringVar(&tilesCity, "city", "", "city key; overrides data.city")
	rootCmd.AddCommand(tilesCmd)
}
