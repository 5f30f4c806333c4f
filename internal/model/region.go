// Package model holds the region and building tables that flow through the
// extraction pipeline. Table operations return new tables; nothing here
// mutates a table handed in by a caller.
package model

import (
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"

	"github.com/sells-group/urban-morph/internal/geo"
)

// AggregateStats are the building reductions attached to a region. Regions
// without buildings carry zeros.
type AggregateStats struct {
	AreaMean       float64 `json:"area_mean"`
	AreaSum        float64 `json:"area_sum"`
	HeightMean     float64 `json:"height_mean"`
	VolumeSum      float64 `json:"volume_sum"`
	ComplexityMean float64 `json:"complexity_mean"`
	Buildings      int     `json:"buildings"`
}

// Region is one analysis unit keyed by GEOID.
type Region struct {
	GEOID string
	ALAND float64
	Shape geo.Shape

	PopOverall      float64
	Stats           AggregateStats
	BuildingDensity float64
	PlotRatio       float64
}

// RegionTable is an ordered set of regions sharing one lon/lat CRS.
type RegionTable struct {
	CRS     geo.CRS
	Regions []Region
	index   map[string]int
}

// NewRegionTable validates GEOID uniqueness and a common geodetic CRS.
func NewRegionTable(regions []Region) (RegionTable, error) {
	if len(regions) == 0 {
		return RegionTable{}, eris.New("model: empty region table")
	}
	crs := regions[0].Shape.CRS
	if !crs.Geodetic() {
		return RegionTable{}, eris.Errorf("model: regions must be lon/lat, got %s", crs)
	}

	index := make(map[string]int, len(regions))
	for i, r := range regions {
		if r.GEOID == "" {
			return RegionTable{}, eris.Errorf("model: region %d has no GEOID", i)
		}
		if _, dup := index[r.GEOID]; dup {
			return RegionTable{}, eris.Errorf("model: duplicate GEOID %q", r.GEOID)
		}
		if r.Shape.CRS != crs {
			return RegionTable{}, eris.Errorf("model: region %s in %s, table in %s", r.GEOID, r.Shape.CRS, crs)
		}
		if err := r.Shape.Validate(); err != nil {
			return RegionTable{}, eris.Wrapf(err, "model: region %s", r.GEOID)
		}
		index[r.GEOID] = i
	}

	out := make([]Region, len(regions))
	copy(out, regions)
	return RegionTable{CRS: crs, Regions: out, index: index}, nil
}

// Len returns the number of regions.
func (t RegionTable) Len() int {
	return len(t.Regions)
}

// Lookup returns the position of geoid in the table.
func (t RegionTable) Lookup(geoid string) (int, bool) {
	i, ok := t.index[geoid]
	return i, ok
}

// Bound is the union of every region's bounding box.
func (t RegionTable) Bound() orb.Bound {
	if len(t.Regions) == 0 {
		return orb.Bound{}
	}
	b := t.Regions[0].Shape.Bound()
	for _, r := range t.Regions[1:] {
		b = b.Union(r.Shape.Bound())
	}
	return b
}

// Shapes returns the region geometries in table order.
func (t RegionTable) Shapes() []geo.Shape {
	out := make([]geo.Shape, len(t.Regions))
	for i, r := range t.Regions {
		out[i] = r.Shape
	}
	return out
}

// Clone returns a table with its own region slice.
func (t RegionTable) Clone() RegionTable {
	out := make([]Region, len(t.Regions))
	copy(out, t.Regions)
	index := make(map[string]int, len(t.index))
	for k, v := range t.index {
		index[k] = v
	}
	return RegionTable{CRS: t.CRS, Regions: out, index: index}
}

// WithPopulation returns a copy with pop_overall set from pop, which must be
// in table order.
func (t RegionTable) WithPopulation(pop []float64) (RegionTable, error) {
	if len(pop) != len(t.Regions) {
		return RegionTable{}, eris.Errorf("model: %d population values for %d regions", len(pop), len(t.Regions))
	}
	out := t.Clone()
	for i := range out.Regions {
		out.Regions[i].PopOverall = pop[i]
	}
	return out, nil
}
