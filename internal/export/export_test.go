package export

import (
	"bytes"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/urban-morph/internal/geo"
	"github.com/sells-group/urban-morph/internal/indicator"
	"github.com/sells-group/urban-morph/internal/model"
)

func regionTable(t *testing.T, regions ...model.Region) model.RegionTable {
	t.Helper()
	for i := range regions {
		regions[i].Shape = geo.Shape{
			Geometry: orb.Bound{Min: orb.Point{float64(i), 0}, Max: orb.Point{float64(i) + 1, 1}}.ToPolygon(),
			CRS:      geo.EPSG4326,
		}
	}
	tbl, err := model.NewRegionTable(regions)
	require.NoError(t, err)
	return tbl
}

func TestFitScaler(t *testing.T) {
	sc, err := FitScaler([]string{"a", "b"}, [][]float64{{1, 5}, {3, 5}})
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 5}, sc.Mean)
	assert.Equal(t, []float64{1, 1}, sc.Scale)

	row, err := sc.Transform([]float64{3, 5})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, row)

	_, err = sc.Transform([]float64{1})
	assert.Error(t, err)
}

func TestFitScaler_PopulationStdDev(t *testing.T) {
	sc, err := FitScaler([]string{"x"}, [][]float64{{2}, {4}, {4}, {4}, {5}, {5}, {7}, {9}})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, sc.Mean[0], 1e-12)
	assert.InDelta(t, 2.0, sc.Scale[0], 1e-12)
}

func TestFitScaler_Rejects(t *testing.T) {
	_, err := FitScaler([]string{"x"}, nil)
	assert.Error(t, err)

	_, err = FitScaler([]string{"x"}, [][]float64{{math.NaN()}})
	assert.Error(t, err)

	_, err = FitScaler([]string{"x", "y"}, [][]float64{{1}})
	assert.Error(t, err)
}

func TestRecords(t *testing.T) {
	tbl := regionTable(t,
		model.Region{GEOID: "R1", ALAND: 1_000_000.9, PopOverall: 1234.7,
			Stats:           model.AggregateStats{AreaMean: 150, HeightMean: 15, ComplexityMean: 0.9},
			BuildingDensity: 0.0003, PlotRatio: 0.005},
		model.Region{GEOID: "R2", ALAND: 3_000_000, PopOverall: 100},
	)

	recs, sc, err := Records(tbl)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, FeatureFields, sc.Fields)

	r1 := recs["R1"]
	assert.Equal(t, int64(1_000_000), r1.ALAND)
	assert.Equal(t, int64(1234), r1.PopOverall)
	assert.Equal(t, 150.0, r1.AreaMean)
	assert.Equal(t, 0.005, r1.PlotRatio)
	require.Len(t, r1.Feature, len(FeatureFields))

	// Two regions: every varying column standardizes to -1/+1.
	for j := range FeatureFields {
		assert.InDelta(t, 0, r1.Feature[j]+recs["R2"].Feature[j], 1e-9)
		assert.InDelta(t, 1, math.Abs(r1.Feature[j]), 1e-9)
	}

	// Regions without buildings export zeros, not missing values.
	assert.Equal(t, 0.0, recs["R2"].AreaMean)
	assert.Equal(t, 0.0, recs["R2"].HeightMean)
}

func TestRecords_SingleRegionHasZeroFeatures(t *testing.T) {
	tbl := regionTable(t, model.Region{GEOID: "R1", ALAND: 10, PopOverall: 5})
	recs, _, err := Records(tbl)
	require.NoError(t, err)
	assert.Equal(t, make([]float64, len(FeatureFields)), recs["R1"].Feature)
}

func TestWriteRegionInfo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "region2info_building.json")
	in := map[string]RegionRecord{
		"R1": {ALAND: 1, PopOverall: 2, AreaMean: 3, Feature: []float64{0, 1}},
	}
	require.NoError(t, WriteRegionInfo(path, in))

	out, err := ReadRegionInfo(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestWriteRegionInfo_RejectsNonFinite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "info.json")
	err := WriteRegionInfo(path, map[string]RegionRecord{"R1": {PlotRatio: math.Inf(1)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "R1")
}

func sampleRows() []model.BuildingIndex {
	return []model.BuildingIndex{
		{ID: "123", Vector: indicator.Vector{Area: 100.5, Perimeter: 40, Cplx: 12.6, Compactness: 0.78, Vertices: 5, BBoxWidth: 10, BBoxLength: 10.05, ERI: 1, RI: 0.9}},
	}
}

func TestWriteBuildingIndex(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBuildingIndex(&buf, sampleRows()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, BuildingIndexHeader, records[0])
	assert.Equal(t, []string{"123", "100.5", "40", "12.6", "0.78", "5", "10", "10.05", "1", "0.9"}, records[1])
}

func TestWriteBuildingIndexFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bj", "building_index.csv")
	require.NoError(t, WriteBuildingIndexFile(path, sampleRows()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "123", records[1][0])
}

func TestWriteBuildingIndexFile_UnwritableDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := WriteBuildingIndexFile(filepath.Join(blocker, "building_index.csv"), sampleRows())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export: create output dir")
}

func TestWriteBuildingIndexXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buildings.xlsx")
	require.NoError(t, WriteBuildingIndexXLSX(path, sampleRows()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "osmid", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "123", sheet.Rows[1].Cells[0].String())
}

func TestVisualLayer(t *testing.T) {
	tbl := regionTable(t, model.Region{GEOID: "R1", ALAND: 1})
	b := model.Building{
		ID:     "b1",
		Shape:  geo.Shape{Geometry: orb.Bound{Min: orb.Point{0.1, 0.1}, Max: orb.Point{0.2, 0.2}}.ToPolygon(), CRS: geo.EPSG4326},
		Height: 12,
		GEOID:  "R1",
	}

	path := filepath.Join(t.TempDir(), "visual.geojson")
	require.NoError(t, WriteVisualLayer(path, tbl, []model.Building{b}))

	fc := VisualLayer(tbl, []model.Building{b})
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "region", fc.Features[0].Properties.MustString("layer"))
	assert.Equal(t, 12.0, fc.Features[1].Properties.MustFloat64("height"))

	data, err := fc.MarshalJSON()
	require.NoError(t, err)
	back, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	assert.Len(t, back.Features, 2)
}

func TestSortedGEOIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SortedGEOIDs(map[string]RegionRecord{"b": {}, "a": {}}))
}
