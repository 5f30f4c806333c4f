//go:build gdal

// Package gdal opens GeoTIFF tiles and re-projects shapes through GDAL. It
// needs libgdal at build time and is only compiled with the gdal build tag;
// everything else in the module works on the pure-Go raster.Surface interface.
package gdal

import (
	"strconv"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"

	"github.com/sells-group/urban-morph/internal/faults"
	"github.com/sells-group/urban-morph/internal/geo"
	"github.com/sells-group/urban-morph/internal/raster"
)

var registerOnce sync.Once

func register() {
	registerOnce.Do(godal.RegisterAll)
}

// Dataset is a single-band GDAL raster implementing raster.Dataset.
type Dataset struct {
	ds     *godal.Dataset
	band   godal.Band
	crs    geo.CRS
	gt     raster.GeoTransform
	cols   int
	rows   int
	nodata float64
	hasND  bool
}

// Open opens path and reads its georeferencing. The CRS must carry an EPSG
// authority code.
func Open(path string) (raster.Dataset, error) {
	register()

	ds, err := godal.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "gdal: open %s", path)
	}

	d, err := wrap(ds)
	if err != nil {
		_ = ds.Close()
		return nil, eris.Wrapf(err, "gdal: %s", path)
	}
	return d, nil
}

// Opener is a raster.Opener backed by GDAL.
var Opener = raster.OpenerFunc(Open)

func wrap(ds *godal.Dataset) (*Dataset, error) {
	st := ds.Structure()
	if st.NBands < 1 {
		return nil, eris.New("no raster bands")
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, eris.Wrap(err, "read geotransform")
	}

	sr := ds.SpatialRef()
	if sr == nil {
		return nil, eris.New("no spatial reference")
	}
	defer sr.Close()
	code, err := strconv.Atoi(sr.AuthorityCode(""))
	if err != nil {
		return nil, eris.Wrap(err, "spatial reference has no EPSG code")
	}

	band := ds.Bands()[0]
	nd, ok := band.NoData()

	return &Dataset{
		ds:     ds,
		band:   band,
		crs:    geo.CRS(code),
		gt:     raster.GeoTransform(gt),
		cols:   st.SizeX,
		rows:   st.SizeY,
		nodata: nd,
		hasND:  ok,
	}, nil
}

func (d *Dataset) CRS() geo.CRS                   { return d.crs }
func (d *Dataset) Transform() raster.GeoTransform { return d.gt }
func (d *Dataset) Size() (int, int)               { return d.cols, d.rows }
func (d *Dataset) NoData() (float64, bool)        { return d.nodata, d.hasND }

// ReadWindow reads the first band as float64.
func (d *Dataset) ReadWindow(w raster.Window) ([]float64, error) {
	if w.Empty() {
		return nil, nil
	}
	buf := make([]float64, w.Len())
	if err := d.band.Read(w.Col, w.Row, buf, w.Cols, w.Rows); err != nil {
		return nil, eris.Wrapf(err, "gdal: read window %+v", w)
	}
	return buf, nil
}

// Close releases the GDAL handle.
func (d *Dataset) Close() error {
	return d.ds.Close()
}

// Projector re-projects shapes between any two EPSG systems GDAL knows.
type Projector struct{}

// Project implements geo.Projector.
func (Projector) Project(s geo.Shape, to geo.CRS) (geo.Shape, error) {
	if s.CRS == to {
		return s, nil
	}
	register()

	src, err := godal.NewSpatialRefFromEPSG(s.CRS.EPSG())
	if err != nil {
		return geo.Shape{}, eris.Wrapf(err, "gdal: spatial ref %s", s.CRS)
	}
	defer src.Close()
	dst, err := godal.NewSpatialRefFromEPSG(to.EPSG())
	if err != nil {
		return geo.Shape{}, eris.Wrapf(err, "gdal: spatial ref %s", to)
	}
	defer dst.Close()

	trn, err := godal.NewTransform(src, dst)
	if err != nil {
		return geo.Shape{}, eris.Wrapf(err, "gdal: transform %s -> %s", s.CRS, to)
	}
	defer trn.Close()

	out := make(orb.MultiPolygon, 0, len(s.Polygons()))
	for _, p := range s.Polygons() {
		np := make(orb.Polygon, len(p))
		for i, ring := range p {
			nr, err := transformRing(trn, ring)
			if err != nil {
				return geo.Shape{}, err
			}
			np[i] = nr
		}
		out = append(out, np)
	}

	var g orb.Geometry = out
	if _, single := s.Geometry.(orb.Polygon); single && len(out) == 1 {
		g = out[0]
	}
	return geo.Shape{Geometry: g, CRS: to}, nil
}

func transformRing(trn *godal.Transform, ring orb.Ring) (orb.Ring, error) {
	xs := make([]float64, len(ring))
	ys := make([]float64, len(ring))
	zs := make([]float64, len(ring))
	ok := make([]bool, len(ring))
	for i, pt := range ring {
		xs[i], ys[i] = pt[0], pt[1]
	}
	if err := trn.TransformEx(xs, ys, zs, ok); err != nil {
		return nil, eris.Wrap(faults.ErrCRSMismatch, err.Error())
	}
	out := make(orb.Ring, len(ring))
	for i := range ring {
		if !ok[i] {
			return nil, eris.Wrapf(faults.ErrCRSMismatch, "gdal: point %d failed to transform", i)
		}
		out[i] = orb.Point{xs[i], ys[i]}
	}
	return out, nil
}
