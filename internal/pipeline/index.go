package pipeline

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/urban-morph/internal/geo"
	"github.com/sells-group/urban-morph/internal/indicator"
	"github.com/sells-group/urban-morph/internal/model"
	"github.com/sells-group/urban-morph/internal/region"
)

// IndexResult is the per-building indicator table for one footprint file.
type IndexResult struct {
	Rows    []model.BuildingIndex
	Skipped int
	Invalid int
}

// IndexFootprints measures every footprint in path without heights, regions
// or rasters.
func IndexFootprints(path string, g geo.Geodesic) (IndexResult, error) {
	fp, err := region.LoadFootprintsGeoJSON(path, geo.EPSG4326)
	if err != nil {
		return IndexResult{}, err
	}
	m, err := Measure(fp.Buildings, indicator.NewCalculator(g))
	if err != nil {
		return IndexResult{}, eris.Wrapf(err, "pipeline: index %s", path)
	}
	return IndexResult{
		Rows:    model.IndexRows(m.Buildings),
		Skipped: fp.Skipped,
		Invalid: m.Invalid,
	}, nil
}
