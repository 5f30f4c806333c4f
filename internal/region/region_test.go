package region

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/urban-morph/internal/faults"
	"github.com/sells-group/urban-morph/internal/geo"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const regionsJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature",
     "properties": {"GEOID": "110101001", "ALAND": 1000000},
     "geometry": {"type": "Polygon", "coordinates": [[[116.0,39.0],[116.01,39.0],[116.01,39.01],[116.0,39.01],[116.0,39.0]]]}},
    {"type": "Feature",
     "properties": {"GEOID": 110101002, "ALAND": "2500000.5"},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[116.01,39.0],[116.02,39.0],[116.02,39.01],[116.01,39.01],[116.01,39.0]]]]}}
  ]
}`

func TestLoadRegionsGeoJSON(t *testing.T) {
	tbl, err := LoadRegionsGeoJSON(writeFile(t, "region.geojson", regionsJSON), geo.EPSG4326)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	assert.Equal(t, "110101001", tbl.Regions[0].GEOID)
	assert.Equal(t, 1000000.0, tbl.Regions[0].ALAND)
	assert.Equal(t, "110101002", tbl.Regions[1].GEOID)
	assert.Equal(t, 2500000.5, tbl.Regions[1].ALAND)
	assert.Equal(t, geo.EPSG4326, tbl.CRS)

	_, ok := tbl.Lookup("110101002")
	assert.True(t, ok)
}

func TestLoadRegionsGeoJSON_Missing(t *testing.T) {
	_, err := LoadRegionsGeoJSON(filepath.Join(t.TempDir(), "nope.geojson"), geo.EPSG4326)
	require.Error(t, err)
	assert.True(t, faults.IsMissingData(err))
}

func TestLoadRegionsGeoJSON_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"duplicate geoid", `{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{"GEOID":"A","ALAND":1},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}},
			{"type":"Feature","properties":{"GEOID":"A","ALAND":1},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`},
		{"missing aland", `{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{"GEOID":"A"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`},
		{"missing geoid", `{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{"ALAND":1},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`},
		{"point geometry", `{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{"GEOID":"A","ALAND":1},"geometry":{"type":"Point","coordinates":[0,0]}}]}`},
		{"not geojson", `{"type":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRegionsGeoJSON(writeFile(t, "r.geojson", tt.body), geo.EPSG4326)
			assert.Error(t, err)
		})
	}
}

const footprintsJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"osmid": 123456},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
    {"type": "Feature", "properties": {"@id": "way/77"},
     "geometry": {"type": "Polygon", "coordinates": [[[2,0],[3,0],[3,1],[2,1],[2,0]]]}},
    {"type": "Feature", "id": "f-3", "properties": {},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[4,0],[5,0],[5,1],[4,1],[4,0]]]]}},
    {"type": "Feature", "properties": {"name": "kiosk"},
     "geometry": {"type": "Point", "coordinates": [6,0]}},
    {"type": "Feature", "properties": {},
     "geometry": {"type": "Polygon", "coordinates": [[[7,0],[8,0],[8,1],[7,1],[7,0]]]}}
  ]
}`

func TestLoadFootprintsGeoJSON(t *testing.T) {
	fp, err := LoadFootprintsGeoJSON(writeFile(t, "buildings.geojson", footprintsJSON), geo.EPSG4326)
	require.NoError(t, err)

	require.Len(t, fp.Buildings, 4)
	assert.Equal(t, 1, fp.Skipped)

	ids := make([]string, len(fp.Buildings))
	for i, b := range fp.Buildings {
		ids[i] = b.ID
		assert.Equal(t, geo.EPSG4326, b.Shape.CRS)
	}
	assert.Equal(t, []string{"123456", "way/77", "f-3", "4"}, ids)
	assert.Empty(t, fp.Buildings[0].GEOID)
}

func TestLoadFootprintsGeoJSON_Missing(t *testing.T) {
	_, err := LoadFootprintsGeoJSON(filepath.Join(t.TempDir(), "buildings.geojson"), geo.EPSG4326)
	assert.True(t, faults.IsMissingData(err))
}

func writeShapefile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracts.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	w.SetFields([]shp.Field{
		shp.StringField(FieldGEOID, 12),
		shp.FloatField(FieldALAND, 16, 1),
	})

	// Clockwise exterior with a counter-clockwise hole.
	withHole := shp.Polygon(*shp.NewPolyLine([][]shp.Point{
		{{X: 0, Y: 0}, {X: 0, Y: 4}, {X: 4, Y: 4}, {X: 4, Y: 0}, {X: 0, Y: 0}},
		{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}, {X: 1, Y: 2}, {X: 1, Y: 1}},
	}))
	w.Write(&withHole)
	require.NoError(t, w.WriteAttribute(0, 0, "T1"))
	require.NoError(t, w.WriteAttribute(0, 1, 1500.5))

	// Two islands.
	islands := shp.Polygon(*shp.NewPolyLine([][]shp.Point{
		{{X: 10, Y: 0}, {X: 10, Y: 1}, {X: 11, Y: 1}, {X: 11, Y: 0}, {X: 10, Y: 0}},
		{{X: 12, Y: 0}, {X: 12, Y: 1}, {X: 13, Y: 1}, {X: 13, Y: 0}, {X: 12, Y: 0}},
	}))
	w.Write(&islands)
	require.NoError(t, w.WriteAttribute(1, 0, "T2"))
	require.NoError(t, w.WriteAttribute(1, 1, 2000.0))

	w.Close()

	// The writer names the attribute table after the path minus "shp", which
	// drops the dot; the reader expects tracts.dbf.
	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, "dbf") && name != "tracts.dbf" {
			require.NoError(t, os.Rename(filepath.Join(dir, name), filepath.Join(dir, "tracts.dbf")))
		}
	}
	_, err = os.Stat(filepath.Join(dir, "tracts.dbf"))
	require.NoError(t, err)
	return path
}

func TestLoadRegionsShapefile_MissingAttributeTable(t *testing.T) {
	path := writeShapefile(t)
	require.NoError(t, os.Remove(filepath.Join(filepath.Dir(path), "tracts.dbf")))

	_, err := LoadRegionsShapefile(path, geo.EPSG4326)
	require.Error(t, err)
	assert.True(t, faults.IsMissingData(err))
	assert.Contains(t, err.Error(), "tracts.dbf")
}

func TestLoadRegionsShapefile(t *testing.T) {
	tbl, err := LoadRegionsShapefile(writeShapefile(t), geo.EPSG4326)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	t1 := tbl.Regions[0]
	assert.Equal(t, "T1", t1.GEOID)
	assert.InDelta(t, 1500.5, t1.ALAND, 1e-9)
	polys := t1.Shape.Polygons()
	require.Len(t, polys, 1)
	assert.Len(t, polys[0], 2, "hole attached to its exterior")
	assert.False(t, t1.Shape.Contains(orb.Point{1.5, 1.5}))
	assert.True(t, t1.Shape.Contains(orb.Point{3, 3}))

	t2 := tbl.Regions[1]
	assert.Equal(t, "T2", t2.GEOID)
	assert.Len(t, t2.Shape.Polygons(), 2)
}

func TestLoadRegionsShapefile_Missing(t *testing.T) {
	_, err := LoadRegionsShapefile(filepath.Join(t.TempDir(), "tracts.shp"), geo.EPSG4326)
	assert.True(t, faults.IsMissingData(err))
}

func TestPolygonToMultiPolygon_Degenerate(t *testing.T) {
	assert.Nil(t, polygonToMultiPolygon(nil))
	assert.Nil(t, polygonToMultiPolygon(&shp.Polygon{}))

	_, err := shapeToOrb(&shp.Point{X: 1, Y: 2}, geo.EPSG4326)
	assert.True(t, faults.IsInvalidGeometry(err))
}

func TestIDString(t *testing.T) {
	tests := []struct {
		in   any
		want string
		ok   bool
	}{
		{"  abc ", "abc", true},
		{123456789.0, "123456789", true},
		{1.5, "1.5", true},
		{7, "7", true},
		{"", "", false},
		{nil, "", false},
		{true, "", false},
	}
	for _, tt := range tests {
		got, ok := idString(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestLoad_DispatchesOnExtension(t *testing.T) {
	tbl, err := Load(writeShapefile(t), geo.EPSG4326)
	require.NoError(t, err)
	assert.Equal(t, "T1", tbl.Regions[0].GEOID)

	tbl, err = Load(writeFile(t, "region.json", regionsJSON), geo.EPSG4326)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
}
