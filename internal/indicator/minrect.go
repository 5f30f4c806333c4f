package indicator

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/urban-morph/internal/faults"
	"github.com/sells-group/urban-morph/internal/geo"
)

// Rect is a minimum rotated bounding rectangle. Corners run around the
// rectangle, so Corners[0]-Corners[1] and Corners[1]-Corners[2] are its two
// distinct edges.
type Rect struct {
	Corners [4]orb.Point
}

// Ring returns the closed rectangle ring.
func (r Rect) Ring() orb.Ring {
	return orb.Ring{r.Corners[0], r.Corners[1], r.Corners[2], r.Corners[3], r.Corners[0]}
}

// Area is the planar area in the shape's coordinate units.
func (r Rect) Area() float64 {
	return math.Abs(planar.Area(orb.Polygon{r.Ring()}))
}

// Perimeter is the planar perimeter in the shape's coordinate units.
func (r Rect) Perimeter() float64 {
	return planar.Length(r.Ring())
}

// MinRotatedRect computes the smallest-area rectangle enclosing every exterior
// vertex of s, in s's coordinates. The search runs over the edges of the
// convex hull.
func MinRotatedRect(s geo.Shape) (Rect, error) {
	var flat []float64
	for _, ring := range s.Exteriors() {
		for _, pt := range ring {
			flat = append(flat, pt[0], pt[1])
		}
	}
	if len(flat) < 6 {
		return Rect{}, eris.Wrap(faults.ErrInvalidGeometry, "indicator: too few vertices for a bounding rectangle")
	}

	hull, ok := xy.ConvexHullFlat(geom.XY, flat).(*geom.Polygon)
	if !ok || hull.NumLinearRings() == 0 {
		return Rect{}, eris.Wrap(faults.ErrInvalidGeometry, "indicator: collinear vertices")
	}
	coords := hull.LinearRing(0).Coords()
	if len(coords) < 4 {
		return Rect{}, eris.Wrap(faults.ErrInvalidGeometry, "indicator: degenerate convex hull")
	}

	best := Rect{}
	bestArea := math.Inf(1)
	for i := 0; i+1 < len(coords); i++ {
		dx := coords[i+1][0] - coords[i][0]
		dy := coords[i+1][1] - coords[i][1]
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		ux, uy := dx/l, dy/l // edge direction
		vx, vy := -uy, ux    // edge normal

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, c := range coords {
			u := c[0]*ux + c[1]*uy
			v := c[0]*vx + c[1]*vy
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}

		area := (maxU - minU) * (maxV - minV)
		if area < bestArea {
			bestArea = area
			corner := func(u, v float64) orb.Point {
				return orb.Point{u*ux + v*vx, u*uy + v*vy}
			}
			best = Rect{Corners: [4]orb.Point{
				corner(minU, minV),
				corner(maxU, minV),
				corner(maxU, maxV),
				corner(minU, maxV),
			}}
		}
	}

	if math.IsInf(bestArea, 1) || bestArea <= 0 {
		return Rect{}, eris.Wrap(faults.ErrInvalidGeometry, "indicator: zero-area bounding rectangle")
	}
	return best, nil
}
