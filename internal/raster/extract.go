package raster

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/urban-morph/internal/faults"
	"github.com/sells-group/urban-morph/internal/geo"
)

// Reduction selects how masked pixels collapse to one scalar.
type Reduction int

const (
	// Max keeps the largest covered pixel (building height).
	Max Reduction = iota
	// SumPositive sums covered pixels greater than zero (population).
	SumPositive
)

func (r Reduction) String() string {
	switch r {
	case Max:
		return "max"
	case SumPositive:
		return "sum-positive"
	default:
		return "unknown"
	}
}

// Mask marks which pixels of w have their center inside s. s must be in the
// surface's CRS.
func Mask(s geo.Shape, surface Surface, w Window) []bool {
	mask := make([]bool, w.Len())
	if w.Empty() {
		return mask
	}
	gt := surface.Transform()
	for r := 0; r < w.Rows; r++ {
		for c := 0; c < w.Cols; c++ {
			if s.Contains(gt.PixelCenter(w.Col+c, w.Row+r)) {
				mask[r*w.Cols+c] = true
			}
		}
	}
	return mask
}

// Extract reduces the pixels covered by s. The raster read is cropped to the
// polygon's bounding window. Non-finite, negative and nodata pixels count as
// zero. A polygon outside the raster extent yields 0 without error.
func Extract(s geo.Shape, surface Surface, red Reduction) (float64, error) {
	if red != Max && red != SumPositive {
		return 0, eris.Errorf("raster: unknown reduction %d", red)
	}
	if s.CRS != surface.CRS() {
		return 0, eris.Wrapf(faults.ErrCRSMismatch, "raster: shape in %s, raster in %s", s.CRS, surface.CRS())
	}
	if err := s.Validate(); err != nil {
		return 0, err
	}

	w, err := WindowFor(surface, s.Bound())
	if err != nil {
		return 0, err
	}
	if w.Empty() {
		return 0, nil
	}

	pixels, err := surface.ReadWindow(w)
	if err != nil {
		return 0, eris.Wrap(err, "raster: read window")
	}
	mask := Mask(s, surface, w)
	nodata, hasNoData := surface.NoData()

	var out float64
	for i, covered := range mask {
		if !covered {
			continue
		}
		v := pixels[i]
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || (hasNoData && v == nodata) {
			v = 0
		}
		switch red {
		case Max:
			if v > out {
				out = v
			}
		case SumPositive:
			if v > 0 {
				out += v
			}
		}
	}
	return out, nil
}
