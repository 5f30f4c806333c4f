// Package raster reduces georeferenced grids over polygons. A Surface is
// read-only here; whoever opens it closes it.
package raster

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"

	"github.com/sells-group/urban-morph/internal/geo"
)

// GeoTransform is a GDAL-ordered affine transform:
// x = gt[0] + col*gt[1] + row*gt[2], y = gt[3] + col*gt[4] + row*gt[5].
type GeoTransform [6]float64

// NorthUp reports whether the transform has no rotation terms.
func (gt GeoTransform) NorthUp() bool {
	return gt[2] == 0 && gt[4] == 0 && gt[1] != 0 && gt[5] != 0
}

// PixelCenter returns the map coordinate of the center of (col, row).
func (gt GeoTransform) PixelCenter(col, row int) orb.Point {
	c, r := float64(col)+0.5, float64(row)+0.5
	return orb.Point{
		gt[0] + c*gt[1] + r*gt[2],
		gt[3] + c*gt[4] + r*gt[5],
	}
}

// Window is a pixel rectangle of a raster.
type Window struct {
	Col, Row   int
	Cols, Rows int
}

// Empty reports whether the window covers no pixels.
func (w Window) Empty() bool {
	return w.Cols <= 0 || w.Rows <= 0
}

// Len is the number of pixels in the window.
func (w Window) Len() int {
	if w.Empty() {
		return 0
	}
	return w.Cols * w.Rows
}

// Surface is an opened single-band raster.
type Surface interface {
	CRS() geo.CRS
	Transform() GeoTransform
	Size() (cols, rows int)
	NoData() (float64, bool)
	// ReadWindow returns the window's pixels in row-major order.
	ReadWindow(w Window) ([]float64, error)
}

// Dataset is a Surface that owns an underlying handle.
type Dataset interface {
	Surface
	Close() error
}

// Bounds returns the raster extent in its own CRS.
func Bounds(s Surface) orb.Bound {
	gt := s.Transform()
	cols, rows := s.Size()
	b := orb.Bound{Min: orb.Point{gt[0], gt[3]}, Max: orb.Point{gt[0], gt[3]}}
	for _, pt := range []orb.Point{
		{gt[0] + float64(cols)*gt[1], gt[3] + float64(cols)*gt[4]},
		{gt[0] + float64(rows)*gt[2], gt[3] + float64(rows)*gt[5]},
		{gt[0] + float64(cols)*gt[1] + float64(rows)*gt[2], gt[3] + float64(cols)*gt[4] + float64(rows)*gt[5]},
	} {
		b = b.Extend(pt)
	}
	return b
}

// BoundsPolygon returns the raster extent as a polygon.
func BoundsPolygon(s Surface) orb.Polygon {
	return Bounds(s).ToPolygon()
}

// WindowFor returns the pixel window covering b, clipped to the raster. The
// window is empty when b misses the raster.
func WindowFor(s Surface, b orb.Bound) (Window, error) {
	gt := s.Transform()
	if !gt.NorthUp() {
		return Window{}, eris.New("raster: rotated geotransforms are not supported")
	}
	cols, rows := s.Size()

	c0 := (b.Min.X() - gt[0]) / gt[1]
	c1 := (b.Max.X() - gt[0]) / gt[1]
	r0 := (b.Min.Y() - gt[3]) / gt[5]
	r1 := (b.Max.Y() - gt[3]) / gt[5]
	if c0 > c1 {
		c0, c1 = c1, c0
	}
	if r0 > r1 {
		r0, r1 = r1, r0
	}

	col0 := clamp(int(math.Floor(c0)), 0, cols)
	col1 := clamp(int(math.Ceil(c1)), 0, cols)
	row0 := clamp(int(math.Floor(r0)), 0, rows)
	row1 := clamp(int(math.Ceil(r1)), 0, rows)

	return Window{Col: col0, Row: row0, Cols: col1 - col0, Rows: row1 - row0}, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Grid is an in-memory Surface.
type Grid struct {
	crs    geo.CRS
	gt     GeoTransform
	cols   int
	rows   int
	data   []float64
	nodata *float64
}

// NewGrid builds a Grid from row-major data.
func NewGrid(crs geo.CRS, gt GeoTransform, cols, rows int, data []float64) (*Grid, error) {
	if cols <= 0 || rows <= 0 {
		return nil, eris.Errorf("raster: invalid grid size %dx%d", cols, rows)
	}
	if len(data) != cols*rows {
		return nil, eris.Errorf("raster: grid data has %d values, want %d", len(data), cols*rows)
	}
	return &Grid{crs: crs, gt: gt, cols: cols, rows: rows, data: data}, nil
}

// WithNoData sets the grid's nodata value.
func (g *Grid) WithNoData(v float64) *Grid {
	g.nodata = &v
	return g
}

func (g *Grid) CRS() geo.CRS            { return g.crs }
func (g *Grid) Transform() GeoTransform { return g.gt }
func (g *Grid) Size() (int, int)        { return g.cols, g.rows }

func (g *Grid) NoData() (float64, bool) {
	if g.nodata == nil {
		return 0, false
	}
	return *g.nodata, true
}

func (g *Grid) ReadWindow(w Window) ([]float64, error) {
	if w.Col < 0 || w.Row < 0 || w.Col+w.Cols > g.cols || w.Row+w.Rows > g.rows {
		return nil, eris.Errorf("raster: window %+v outside %dx%d grid", w, g.cols, g.rows)
	}
	out := make([]float64, 0, w.Len())
	for r := w.Row; r < w.Row+w.Rows; r++ {
		out = append(out, g.data[r*g.cols+w.Col:r*g.cols+w.Col+w.Cols]...)
	}
	return out, nil
}

// Close is a no-op so a Grid can stand in for an opened Dataset.
func (g *Grid) Close() error { return nil }
