package export

import (
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"

	"github.com/sells-group/urban-morph/internal/model"
)

// VisualLayer builds the collection handed to the map renderer: region
// outlines followed by assigned buildings.
func VisualLayer(regions model.RegionTable, buildings []model.Building) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range regions.Regions {
		f := geojson.NewFeature(r.Shape.Geometry)
		f.Properties = geojson.Properties{
			"layer":            "region",
			"GEOID":            r.GEOID,
			"building_density": r.BuildingDensity,
			"plot_ratio":       r.PlotRatio,
		}
		fc.Append(f)
	}
	for _, b := range buildings {
		f := geojson.NewFeature(b.Shape.Geometry)
		f.ID = b.ID
		f.Properties = geojson.Properties{
			"layer":  "building",
			"GEOID":  b.GEOID,
			"height": b.Height,
		}
		fc.Append(f)
	}
	return fc
}

// WriteVisualLayer writes VisualLayer as GeoJSON.
func WriteVisualLayer(path string, regions model.RegionTable, buildings []model.Building) error {
	data, err := VisualLayer(regions, buildings).MarshalJSON()
	if err != nil {
		return eris.Wrap(err, "export: marshal visual layer")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "export: create output dir")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}
