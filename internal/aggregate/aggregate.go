package aggregate

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/urban-morph/internal/faults"
	"github.com/sells-group/urban-morph/internal/model"
)

// Record holds the reductions for one GEOID before they merge into the table.
type Record struct {
	GEOID string
	model.AggregateStats
}

// group collects the per-building fields of one region.
type group struct {
	area       []float64
	height     []float64
	volume     []float64
	complexity []float64
}

// Reduce groups assigned buildings by GEOID: area -> mean, sum; height ->
// mean; volume -> sum; complexity -> mean.
func Reduce(buildings []model.Building) map[string]Record {
	groups := make(map[string]*group)
	for _, b := range buildings {
		g, ok := groups[b.GEOID]
		if !ok {
			g = &group{}
			groups[b.GEOID] = g
		}
		g.area = append(g.area, b.Area)
		g.height = append(g.height, b.Height)
		g.volume = append(g.volume, b.Volume)
		g.complexity = append(g.complexity, b.Complexity)
	}

	out := make(map[string]Record, len(groups))
	for geoid, g := range groups {
		out[geoid] = Record{
			GEOID: geoid,
			AggregateStats: model.AggregateStats{
				AreaMean:       stat.Mean(g.area, nil),
				AreaSum:        floats.Sum(g.area),
				HeightMean:     stat.Mean(g.height, nil),
				VolumeSum:      floats.Sum(g.volume),
				ComplexityMean: stat.Mean(g.complexity, nil),
				Buildings:      len(g.area),
			},
		}
	}
	return out
}

// Aggregate left-merges building reductions onto a copy of regions and
// derives building_density = area_sum/ALAND and plot_ratio = volume_sum/ALAND.
// Regions without buildings get zero statistics. Buildings must already carry
// their GEOID. A region with zero, negative or NaN land area fails with
// faults.ErrDivideByZeroRegion.
func Aggregate(regions model.RegionTable, buildings []model.Building) (model.RegionTable, error) {
	records := Reduce(buildings)
	for geoid := range records {
		if _, ok := regions.Lookup(geoid); !ok {
			return model.RegionTable{}, eris.Errorf("aggregate: building assigned to unknown GEOID %q", geoid)
		}
	}

	out := regions.Clone()
	for i := range out.Regions {
		r := &out.Regions[i]
		if r.ALAND <= 0 || math.IsNaN(r.ALAND) {
			return model.RegionTable{}, faults.NewRegionError(r.GEOID, faults.ErrDivideByZeroRegion)
		}

		r.Stats = records[r.GEOID].AggregateStats
		r.BuildingDensity = r.Stats.AreaSum / r.ALAND
		r.PlotRatio = r.Stats.VolumeSum / r.ALAND
	}
	return out, nil
}
