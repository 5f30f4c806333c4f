package main

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/urban-morph/internal/export"
	"github.com/sells-group/urban-morph/internal/geo"
	"github.com/sells-group/urban-morph/internal/pipeline"
)

var (
	indexInput string
	indexOut   string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Compute the per-building indicator table for a footprint file",
	Long:  "Reads a GeoJSON footprint file and writes one indicator row per building. The output format follows the --out extension: .xlsx for a workbook, anything else for CSV.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("index"); err != nil {
			return err
		}
		g, err := geo.NewGeodesic(cfg.Geodesic.Ellipsoid)
		if err != nil {
			return eris.Wrap(err, "index")
		}

		input := indexInput
		if input == "" {
			input = cfg.Data.FootprintPath()
		}
		out := indexOut
		if out == "" {
			out = filepath.Join(cfg.Data.OutputPath(), pipeline.BuildingIndexFile)
		}

		res, err := pipeline.IndexFootprints(input, g)
		if err != nil {
			return err
		}

		if strings.EqualFold(filepath.Ext(out), ".xlsx") {
			err = export.WriteBuildingIndexXLSX(out, res.Rows)
		} else {
			err = export.WriteBuildingIndexFile(out, res.Rows)
		}
		if err != nil {
			return err
		}

		zap.L().Info("building index written",
			zap.String("input", input),
			zap.String("output", out),
			zap.Int("rows", len(res.Rows)),
			zap.Int("skipped", res.Skipped),
			zap.Int("invalid", res.Invalid),
		)
		return nil
	},
}

func init() {
	indexCmd.Flags().StringVar(&indexInput, "input", "", "footprint GeoJSON; defaults to the configured city's footprint file")
	indexCmd.Flags().StringVar(&indexOut, "out", "", "output path (.csv or .xlsx)")
	rootCmd.AddCommand(indexCmd)
}
