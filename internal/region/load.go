package region

import (
	"path/filepath"
	"strings"

	"github.com/sells-group/urban-morph/internal/geo"
	"github.com/sells-group/urban-morph/internal/model"
)

// Load picks the region reader by file extension: .shp files go through the
// shapefile reader, everything else is read as GeoJSON.
func Load(path string, crs geo.CRS) (model.RegionTable, error) {
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		return LoadRegionsShapefile(path, crs)
	}
	return LoadRegionsGeoJSON(path, crs)
}
