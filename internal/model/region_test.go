package model

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/urban-morph/internal/geo"
	"github.com/sells-group/urban-morph/internal/indicator"
)

func region(geoid string, minX, minY, maxX, maxY float64) Region {
	poly := orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}.ToPolygon()
	return Region{GEOID: geoid, ALAND: 1e6, Shape: geo.Shape{Geometry: poly, CRS: geo.EPSG4326}}
}

func TestNewRegionTable(t *testing.T) {
	tbl, err := NewRegionTable([]Region{region("A", 0, 0, 1, 1), region("B", 1, 0, 2, 1)})
	require.NoError(t, err)

	assert.Equal(t, 2, tbl.Len())
	i, ok := tbl.Lookup("B")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	assert.Equal(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{2, 1}}, tbl.Bound())
	assert.Len(t, tbl.Shapes(), 2)
}

func TestNewRegionTable_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		regions []Region
		msg     string
	}{
		{name: "empty", regions: nil, msg: "empty region table"},
		{name: "duplicate", regions: []Region{region("A", 0, 0, 1, 1), region("A", 1, 0, 2, 1)}, msg: "duplicate GEOID"},
		{name: "missing id", regions: []Region{region("", 0, 0, 1, 1)}, msg: "no GEOID"},
		{
			name:    "projected",
			regions: []Region{{GEOID: "A", Shape: geo.Shape{Geometry: orb.Bound{Max: orb.Point{1, 1}}.ToPolygon(), CRS: geo.EPSG3857}}},
			msg:     "must be lon/lat",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegionTable(tt.regions)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestRegionTable_WithPopulation_IsPure(t *testing.T) {
	tbl, err := NewRegionTable([]Region{region("A", 0, 0, 1, 1), region("B", 1, 0, 2, 1)})
	require.NoError(t, err)

	withPop, err := tbl.WithPopulation([]float64{10, 20})
	require.NoError(t, err)
	assert.Equal(t, 20.0, withPop.Regions[1].PopOverall)
	assert.Equal(t, 0.0, tbl.Regions[1].PopOverall)

	_, err = tbl.WithPopulation([]float64{1})
	assert.Error(t, err)
}

func TestIndexRows(t *testing.T) {
	v := indicator.Vector{Area: 12, Vertices: 5}
	rows := IndexRows([]Building{{ID: "1", Indicators: &v}, {ID: "2"}})
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0].ID)
	assert.Equal(t, 12.0, rows[0].Area)
}
