// Package export standardizes region features and writes the per-region,
// per-building and visualization outputs.
package export

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"
)

// Scaler holds zero-mean/unit-variance parameters fitted over one region set.
// Columns with zero variance keep a scale of 1, so they standardize to 0.
type Scaler struct {
	Fields []string  `json:"fields"`
	Mean   []float64 `json:"mean"`
	Scale  []float64 `json:"scale"`
}

// FitScaler fits per-column means and population standard deviations.
// rows[i][j] is field j of row i.
func FitScaler(fields []string, rows [][]float64) (Scaler, error) {
	if len(rows) == 0 {
		return Scaler{}, eris.New("export: no rows to fit")
	}
	sc := Scaler{
		Fields: append([]string(nil), fields...),
		Mean:   make([]float64, len(fields)),
		Scale:  make([]float64, len(fields)),
	}
	col := make([]float64, len(rows))
	for j := range fields {
		for i, row := range rows {
			if len(row) != len(fields) {
				return Scaler{}, eris.Errorf("export: row %d has %d values, want %d", i, len(row), len(fields))
			}
			if math.IsNaN(row[j]) || math.IsInf(row[j], 0) {
				return Scaler{}, eris.Errorf("export: non-finite %s in row %d", fields[j], i)
			}
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		sc.Mean[j], sc.Scale[j] = mean, std
	}
	return sc, nil
}

// Transform standardizes one row.
func (s Scaler) Transform(row []float64) ([]float64, error) {
	if len(row) != len(s.Mean) {
		return nil, eris.Errorf("export: row has %d values, scaler has %d", len(row), len(s.Mean))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}
