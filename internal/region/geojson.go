// Package region loads analysis regions and building footprints from
// GeoJSON and shapefile sources.
package region

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/urban-morph/internal/faults"
	"github.com/sells-group/urban-morph/internal/geo"
	"github.com/sells-group/urban-morph/internal/model"
)

// Attribute names read from region sources.
const (
	FieldGEOID = "GEOID"
	FieldALAND = "ALAND"
)

func readCollection(what, path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, faults.Missing(what, path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "region: read %s", path)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, eris.Wrapf(err, "region: decode %s", path)
	}
	return fc, nil
}

// LoadRegionsGeoJSON reads a FeatureCollection of region polygons. Every
// feature needs a GEOID and an ALAND property.
func LoadRegionsGeoJSON(path string, crs geo.CRS) (model.RegionTable, error) {
	fc, err := readCollection("region boundaries", path)
	if err != nil {
		return model.RegionTable{}, err
	}

	regions := make([]model.Region, 0, len(fc.Features))
	for i, f := range fc.Features {
		geoid, ok := idString(f.Properties[FieldGEOID])
		if !ok {
			return model.RegionTable{}, eris.Errorf("region: feature %d has no %s", i, FieldGEOID)
		}
		aland, ok := number(f.Properties[FieldALAND])
		if !ok {
			return model.RegionTable{}, eris.Errorf("region: %s has no numeric %s", geoid, FieldALAND)
		}
		s, err := geo.NewShape(f.Geometry, crs)
		if err != nil {
			return model.RegionTable{}, eris.Wrapf(err, "region: %s", geoid)
		}
		regions = append(regions, model.Region{GEOID: geoid, ALAND: aland, Shape: s})
	}

	tbl, err := model.NewRegionTable(regions)
	if err != nil {
		return model.RegionTable{}, eris.Wrapf(err, "region: %s", path)
	}
	zap.L().Info("regions loaded",
		zap.String("component", "region.loader"),
		zap.String("path", path),
		zap.Int("regions", tbl.Len()),
	)
	return tbl, nil
}

// Footprints is the result of a footprint load.
type Footprints struct {
	Buildings []model.Building
	Skipped   int
}

// footprintIDKeys are tried in order before falling back to the feature id.
var footprintIDKeys = []string{"osmid", "id", "@id"}

// LoadFootprintsGeoJSON reads building footprints. Features that are not
// Polygon or MultiPolygon are skipped and counted.
func LoadFootprintsGeoJSON(path string, crs geo.CRS) (Footprints, error) {
	fc, err := readCollection("building footprints", path)
	if err != nil {
		return Footprints{}, err
	}

	var out Footprints
	for i, f := range fc.Features {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			out.Skipped++
			continue
		}
		s, err := geo.NewShape(f.Geometry, crs)
		if err != nil {
			out.Skipped++
			continue
		}
		out.Buildings = append(out.Buildings, model.Building{ID: footprintID(f, i), Shape: s})
	}

	zap.L().Info("footprints loaded",
		zap.String("component", "region.loader"),
		zap.String("path", path),
		zap.Int("buildings", len(out.Buildings)),
		zap.Int("skipped", out.Skipped),
	)
	return out, nil
}

func footprintID(f *geojson.Feature, index int) string {
	for _, k := range footprintIDKeys {
		if id, ok := idString(f.Properties[k]); ok {
			return id
		}
	}
	if id, ok := idString(f.ID); ok {
		return id
	}
	return strconv.Itoa(index)
}

// idString renders string or numeric identifiers. Numbers print without a
// decimal part when integral.
func idString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		x = strings.TrimSpace(x)
		return x, x != ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	default:
		return "", false
	}
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
