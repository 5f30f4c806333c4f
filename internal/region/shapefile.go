package region

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	orbwkb "github.com/paulmach/orb/encoding/wkb"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/urban-morph/internal/faults"
	"github.com/sells-group/urban-morph/internal/geo"
	"github.com/sells-group/urban-morph/internal/model"
)

// LoadRegionsShapefile reads region polygons from a shapefile with GEOID and
// ALAND attributes, such as a TIGER tract or block group file.
func LoadRegionsShapefile(path string, crs geo.CRS) (model.RegionTable, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return model.RegionTable{}, faults.Missing("region boundaries", path)
	}
	// shp.Open defers the attribute table; without it every field lookup fails.
	dbf := strings.TrimSuffix(path, filepath.Ext(path)) + ".dbf"
	if _, err := os.Stat(dbf); errors.Is(err, fs.ErrNotExist) {
		return model.RegionTable{}, faults.Missing("region attributes", dbf)
	}

	reader, err := shp.Open(path)
	if err != nil {
		return model.RegionTable{}, eris.Wrapf(err, "region: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	geoidIdx := fieldIndex(reader, FieldGEOID)
	alandIdx := fieldIndex(reader, FieldALAND)
	if geoidIdx < 0 || alandIdx < 0 {
		return model.RegionTable{}, eris.Errorf("region: required shapefile fields (%s, %s) not found", FieldGEOID, FieldALAND)
	}

	var regions []model.Region
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()
		geoid := strings.TrimSpace(strings.TrimRight(reader.Attribute(geoidIdx), "\x00"))
		if geoid == "" || shape == nil {
			skipped++
			continue
		}
		aland, ok := number(strings.TrimRight(reader.Attribute(alandIdx), "\x00"))
		if !ok {
			return model.RegionTable{}, eris.Errorf("region: %s (record %d) has no numeric %s", geoid, n, FieldALAND)
		}

		s, err := shapeToOrb(shape, crs)
		if err != nil {
			return model.RegionTable{}, eris.Wrapf(err, "region: %s", geoid)
		}
		regions = append(regions, model.Region{GEOID: geoid, ALAND: aland, Shape: s})
	}

	if skipped > 0 {
		zap.L().Debug("region: skipped shapefile records", zap.String("path", path), zap.Int("skipped", skipped))
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

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// shapeToOrb bridges a shapefile polygon to an orb geometry through WKB.
func shapeToOrb(shape shp.Shape, crs geo.CRS) (geo.Shape, error) {
	p, ok := shape.(*shp.Polygon)
	if !ok {
		return geo.Shape{}, eris.Wrapf(faults.ErrInvalidGeometry, "shape type %T", shape)
	}
	mp := polygonToMultiPolygon(p)
	if mp == nil {
		return geo.Shape{}, eris.Wrap(faults.ErrInvalidGeometry, "no usable rings")
	}

	data, err := wkb.Marshal(mp, wkb.NDR)
	if err != nil {
		return geo.Shape{}, eris.Wrap(err, "encode WKB")
	}
	g, err := orbwkb.Unmarshal(data)
	if err != nil {
		return geo.Shape{}, eris.Wrap(err, "decode WKB")
	}
	return geo.NewShape(g, crs)
}

// polygonToMultiPolygon groups shapefile rings into polygons. Clockwise rings
// start a new polygon; counter-clockwise rings are holes of the latest one.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	var cur *geom.Polygon
	flush := func() {
		if cur == nil {
			return
		}
		if err := mp.Push(cur); err != nil {
			zap.L().Debug("region: skipping malformed polygon part", zap.Error(err))
		}
		cur = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			continue
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if cur != nil && xy.IsRingCounterClockwise(geom.XY, flat) {
			if err := cur.Push(ring); err != nil {
				zap.L().Debug("region: skipping malformed hole", zap.Int32("part", i), zap.Error(err))
			}
			continue
		}
		flush()
		cur = geom.NewPolygon(geom.XY)
		if err := cur.Push(ring); err != nil {
			zap.L().Debug("region: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			cur = nil
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
