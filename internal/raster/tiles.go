package raster

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/urban-morph/internal/faults"
	"github.com/sells-group/urban-morph/internal/geo"
)

// TileRef addresses a height tile by the odd integer lon/lat of its grid cell.
type TileRef struct {
	X int
	Y int
}

// Name renders the tile file name, e.g. CNBH10m_X117Y39.tif.
func (t TileRef) Name(prefix string) string {
	return fmt.Sprintf("%s_X%dY%d.tif", prefix, t.X, t.Y)
}

// TilesForBounds lists the tiles needed to cover a lon/lat bound. The bound is
// expanded by margin degrees, each edge is truncated to an integer and bumped
// to the next odd value, and tiles are enumerated every step degrees, row by
// row from the south-west corner.
func TilesForBounds(b orb.Bound, margin float64, step int) []TileRef {
	if step <= 0 {
		step = 2
	}
	edges := [4]float64{
		b.Min.X() - margin,
		b.Min.Y() - margin,
		b.Max.X() + margin,
		b.Max.Y() + margin,
	}
	var snapped [4]int
	for i, e := range edges {
		v := int(math.Trunc(e))
		if v%2 == 0 {
			v++
		}
		snapped[i] = v
	}

	var tiles []TileRef
	for y := snapped[1]; y <= snapped[3]; y += step {
		for x := snapped[0]; x <= snapped[2]; x += step {
			tiles = append(tiles, TileRef{X: x, Y: y})
		}
	}
	return tiles
}

// TilePaths joins tile names onto dir.
func TilePaths(dir, prefix string, tiles []TileRef) []string {
	paths := make([]string, len(tiles))
	for i, t := range tiles {
		paths[i] = filepath.Join(dir, t.Name(prefix))
	}
	return paths
}

// RequireFiles fails with faults.ErrMissingRegionData for the first absent path.
func RequireFiles(what string, paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				return faults.Missing(what, p)
			}
			return eris.Wrapf(err, "raster: stat %s", p)
		}
	}
	return nil
}

// MissingFiles returns the subset of paths that do not exist.
func MissingFiles(paths []string) []string {
	var missing []string
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			missing = append(missing, p)
		}
	}
	return missing
}

// Opener opens a raster dataset by path.
type Opener interface {
	Open(path string) (Dataset, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(path string) (Dataset, error)

// Open implements Opener.
func (f OpenerFunc) Open(path string) (Dataset, error) { return f(path) }

// TileSet reduces shapes over a list of raster tiles, one open tile at a time.
type TileSet struct {
	Paths     []string
	Opener    Opener
	Projector geo.Projector
}

// TileResult is the per-shape outcome of a TileSet reduction.
type TileResult struct {
	Values  []float64
	Covered []bool
}

// Uncovered counts shapes no tile intersected.
func (r TileResult) Uncovered() int {
	n := 0
	for _, c := range r.Covered {
		if !c {
			n++
		}
	}
	return n
}

// Reduce extracts red for every shape over every tile whose extent intersects
// it. Max keeps the largest value across tiles; SumPositive adds tile
// contributions. Each tile is closed before the next is opened.
func (ts TileSet) Reduce(shapes []geo.Shape, red Reduction) (TileResult, error) {
	res := TileResult{
		Values:  make([]float64, len(shapes)),
		Covered: make([]bool, len(shapes)),
	}
	log := zap.L().With(zap.String("component", "raster.tiles"))

	for _, path := range ts.Paths {
		if err := ts.reduceTile(path, shapes, red, &res); err != nil {
			return TileResult{}, err
		}
		log.Debug("tile reduced", zap.String("path", path), zap.Stringer("reduction", red))
	}
	return res, nil
}

func (ts TileSet) reduceTile(path string, shapes []geo.Shape, red Reduction, res *TileResult) error {
	ds, err := ts.Opener.Open(path)
	if err != nil {
		return eris.Wrapf(err, "raster: open tile %s", path)
	}
	defer func() { _ = ds.Close() }()

	extent := Bounds(ds)
	for i, s := range shapes {
		local, err := ts.Projector.Project(s, ds.CRS())
		if err != nil {
			return eris.Wrapf(err, "raster: project shape %d into %s", i, path)
		}
		if !local.Bound().Intersects(extent) {
			continue
		}
		res.Covered[i] = true

		v, err := Extract(local, ds, red)
		if err != nil {
			return eris.Wrapf(err, "raster: extract shape %d from %s", i, path)
		}
		switch red {
		case Max:
			res.Values[i] = math.Max(res.Values[i], v)
		case SumPositive:
			res.Values[i] += v
		}
	}
	return nil
}
