// Package indicator computes per-building shape descriptors on lon/lat
// footprints: geodesic area and perimeter, compactness, vertex count, the
// minimum rotated rectangle dimensions, and the ERI and RI indices.
package indicator

import (
	"math"

	"github.com/paulmach/orb/planar"
	"github.com/rotisserie/eris"

	"github.com/sells-group/urban-morph/internal/faults"
	"github.com/sells-group/urban-morph/internal/geo"
)

// riScale maps a circle to an RI of about 1.
const riScale = 42.62

// Vector is the fixed set of descriptors computed for one footprint. Area is in
// square meters; Perimeter, BBoxWidth and BBoxLength are in meters.
type Vector struct {
	Area        float64 `json:"area"`
	Perimeter   float64 `json:"perimeter"`
	Cplx        float64 `json:"cplx"`
	Compactness float64 `json:"compactness"`
	Vertices    int     `json:"vertices"`
	BBoxWidth   float64 `json:"bbox_width"`
	BBoxLength  float64 `json:"bbox_length"`
	ERI         float64 `json:"eri"`
	RI          float64 `json:"ri"`
}

// Calculator computes indicator vectors with an explicit geodesic model.
type Calculator struct {
	Geodesic geo.Geodesic
}

// NewCalculator returns a Calculator bound to g.
func NewCalculator(g geo.Geodesic) Calculator {
	return Calculator{Geodesic: g}
}

// Compute returns the indicator vector for a lon/lat shape. Empty, degenerate
// or zero-perimeter shapes fail with faults.ErrInvalidGeometry.
func (c Calculator) Compute(s geo.Shape) (Vector, error) {
	if !s.CRS.Geodetic() {
		return Vector{}, eris.Wrapf(faults.ErrCRSMismatch, "indicator: shape in %s, want lon/lat", s.CRS)
	}
	area, perimeter, err := c.Geodesic.AreaPerimeter(s)
	if err != nil {
		return Vector{}, err
	}
	if area <= 0 || perimeter <= 0 {
		return Vector{}, eris.Wrap(faults.ErrInvalidGeometry, "indicator: zero area or perimeter")
	}

	planarArea, planarLength, err := planarMeasures(s)
	if err != nil {
		return Vector{}, err
	}

	rect, err := MinRotatedRect(s)
	if err != nil {
		return Vector{}, err
	}
	width, length := c.Geodesic.Distance(rect.Corners[0], rect.Corners[1]), c.Geodesic.Distance(rect.Corners[1], rect.Corners[2])
	if width > length {
		width, length = length, width
	}

	v := Vector{
		Area:        area,
		Perimeter:   perimeter,
		Cplx:        perimeter / math.Sqrt(math.Sqrt(area)),
		Compactness: 4 * math.Pi * area / (perimeter * perimeter),
		Vertices:    countVertices(s),
		BBoxWidth:   width,
		BBoxLength:  length,
		ERI:         math.Sqrt(planarArea/rect.Area()) * rect.Perimeter() / planarLength,
		RI:          roundness(s, planarArea, planarLength),
	}
	return v, nil
}

// Complexity is the coarser rectangle-based index used by region aggregation:
// the bounding rectangle perimeter scaled by polygon_area/rect_area, divided by
// the polygon perimeter. It is computed in the shape's planar coordinates and
// is distinct from Vector.ERI.
func Complexity(s geo.Shape) (float64, error) {
	if !s.CRS.Geodetic() {
		return 0, eris.Wrapf(faults.ErrCRSMismatch, "indicator: complexity on %s, want lon/lat", s.CRS)
	}
	if err := s.Validate(); err != nil {
		return 0, err
	}
	area, length, err := planarMeasures(s)
	if err != nil {
		return 0, err
	}
	rect, err := MinRotatedRect(s)
	if err != nil {
		return 0, err
	}
	scale := area / rect.Area()
	return scale * rect.Perimeter() / length, nil
}

func planarMeasures(s geo.Shape) (area, length float64, err error) {
	area = math.Abs(planar.Area(s.Geometry))
	length = planar.Length(s.Geometry)
	if area <= 0 || length <= 0 {
		return 0, 0, eris.Wrap(faults.ErrInvalidGeometry, "indicator: zero planar area or length")
	}
	return area, length, nil
}

// countVertices counts exterior ring coordinates, closing point included,
// summed over parts.
func countVertices(s geo.Shape) int {
	n := 0
	for _, ring := range s.Exteriors() {
		n += len(ring)
	}
	return n
}

// roundness squares the mean vertex-to-centroid distance and normalizes it by
// area + perimeter^2. Vertex density shifts the mean, so densely digitized
// outlines score differently from sparse ones of the same shape.
func roundness(s geo.Shape, area, length float64) float64 {
	centroid, _ := planar.CentroidArea(s.Geometry)

	var sum float64
	var n int
	for _, ring := range s.Exteriors() {
		for _, pt := range ring {
			sum += math.Hypot(pt[0]-centroid[0], pt[1]-centroid[1])
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	return mean * mean / (area + length*length) * riScale
}
