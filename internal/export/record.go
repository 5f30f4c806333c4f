package export

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/urban-morph/internal/model"
)

// FeatureFields is the ordered feature subset that gets standardized.
var FeatureFields = []string{
	"ALAND",
	"pop_overall",
	"area_mean",
	"height_mean",
	"complexity_mean",
	"building_density",
	"plot_ratio",
}

// RegionRecord is the exported view of one region: raw statistics plus the
// standardized feature vector in FeatureFields order.
type RegionRecord struct {
	ALAND           int64     `json:"ALAND"`
	PopOverall      int64     `json:"pop_overall"`
	AreaMean        float64   `json:"area_mean"`
	HeightMean      float64   `json:"height_mean"`
	ComplexityMean  float64   `json:"complexity_mean"`
	BuildingDensity float64   `json:"building_density"`
	PlotRatio       float64   `json:"plot_ratio"`
	Feature         []float64 `json:"feature"`
}

func featureRow(r model.Region) []float64 {
	return []float64{
		r.ALAND,
		r.PopOverall,
		r.Stats.AreaMean,
		r.Stats.HeightMean,
		r.Stats.ComplexityMean,
		r.BuildingDensity,
		r.PlotRatio,
	}
}

// Records fits a scaler over every region in the table and returns one record
// per GEOID together with the fitted parameters.
func Records(table model.RegionTable) (map[string]RegionRecord, Scaler, error) {
	rows := make([][]float64, len(table.Regions))
	for i, r := range table.Regions {
		rows[i] = featureRow(r)
	}

	sc, err := FitScaler(FeatureFields, rows)
	if err != nil {
		return nil, Scaler{}, eris.Wrap(err, "export: fit scaler")
	}

	out := make(map[string]RegionRecord, len(table.Regions))
	for i, r := range table.Regions {
		feature, err := sc.Transform(rows[i])
		if err != nil {
			return nil, Scaler{}, eris.Wrapf(err, "export: region %s", r.GEOID)
		}
		out[r.GEOID] = RegionRecord{
			ALAND:           int64(r.ALAND),
			PopOverall:      int64(r.PopOverall),
			AreaMean:        r.Stats.AreaMean,
			HeightMean:      r.Stats.HeightMean,
			ComplexityMean:  r.Stats.ComplexityMean,
			BuildingDensity: r.BuildingDensity,
			PlotRatio:       r.PlotRatio,
			Feature:         feature,
		}
	}
	return out, sc, nil
}

// finite reports whether every value is a real number.
func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
