package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rotisserie/eris"

	"github.com/sells-group/urban-morph/internal/faults"
)

// Shape is a polygonal geometry together with the CRS its coordinates are in.
type Shape struct {
	Geometry orb.Geometry
	CRS      CRS
}

// NewShape validates that g is a non-empty Polygon or MultiPolygon.
func NewShape(g orb.Geometry, crs CRS) (Shape, error) {
	s := Shape{Geometry: g, CRS: crs}
	if err := s.Validate(); err != nil {
		return Shape{}, err
	}
	return s, nil
}

// Validate checks the geometry is polygonal and every exterior ring closes
// around at least three distinct points.
func (s Shape) Validate() error {
	polys := s.Polygons()
	if polys == nil {
		return eris.Wrapf(faults.ErrInvalidGeometry, "geo: %s is not polygonal", geometryType(s.Geometry))
	}
	if len(polys) == 0 {
		return eris.Wrap(faults.ErrInvalidGeometry, "geo: empty multipolygon")
	}
	for i, p := range polys {
		if len(p) == 0 || len(p[0]) < 4 {
			return eris.Wrapf(faults.ErrInvalidGeometry, "geo: polygon part %d has a degenerate exterior ring", i)
		}
	}
	return nil
}

// Polygons returns the polygon parts, or nil for non-polygonal geometries.
func (s Shape) Polygons() []orb.Polygon {
	switch g := s.Geometry.(type) {
	case orb.Polygon:
		return []orb.Polygon{g}
	case orb.MultiPolygon:
		if g == nil {
			return []orb.Polygon{}
		}
		return []orb.Polygon(g)
	default:
		return nil
	}
}

// Bound returns the planar bounding box in the shape's CRS.
func (s Shape) Bound() orb.Bound {
	return s.Geometry.Bound()
}

// Contains reports whether pt lies inside any polygon part.
func (s Shape) Contains(pt orb.Point) bool {
	for _, p := range s.Polygons() {
		if planar.PolygonContains(p, pt) {
			return true
		}
	}
	return false
}

// ContainsShape reports whether inner lies within s: each part of inner sits
// in a single part of s, none of its edges cross that part's rings, and no
// hole of that part pokes into it. Both shapes must share a CRS.
func (s Shape) ContainsShape(inner Shape) (bool, error) {
	if s.CRS != inner.CRS {
		return false, eris.Wrapf(faults.ErrCRSMismatch, "geo: within test %s vs %s", inner.CRS, s.CRS)
	}
	if !s.Bound().Contains(inner.Bound().Min) || !s.Bound().Contains(inner.Bound().Max) {
		return false, nil
	}
	for _, ip := range inner.Polygons() {
		if !s.containsPart(ip) {
			return false, nil
		}
	}
	return true, nil
}

func (s Shape) containsPart(inner orb.Polygon) bool {
	for _, outer := range s.Polygons() {
		if polygonWithin(inner, outer) {
			return true
		}
	}
	return false
}

func polygonWithin(inner, outer orb.Polygon) bool {
	for _, ring := range inner {
		for i, pt := range ring {
			if !covers(outer, pt) {
				return false
			}
			if i == 0 {
				continue
			}
			a := ring[i-1]
			// an edge through a reflex vertex can leave and re-enter
			mid := orb.Point{(a[0] + pt[0]) / 2, (a[1] + pt[1]) / 2}
			if !covers(outer, mid) {
				return false
			}
			for _, boundary := range outer {
				if crossesRing(a, pt, boundary) {
					return false
				}
			}
		}
	}

	for _, hole := range outer[1:] {
		for _, v := range hole {
			if planar.PolygonContains(inner, v) && !onBoundary(inner, v) {
				return false
			}
		}
	}
	return true
}

// covers reports whether pt is inside p or on one of its rings.
func covers(p orb.Polygon, pt orb.Point) bool {
	return planar.PolygonContains(p, pt) || onBoundary(p, pt)
}

// crossesRing reports whether segment ab properly crosses any edge of r.
func crossesRing(a, b orb.Point, r orb.Ring) bool {
	for i := 1; i < len(r); i++ {
		if properCross(a, b, r[i-1], r[i]) {
			return true
		}
	}
	return false
}

// properCross is true when ab and cd intersect at a single point interior
// to both segments.
func properCross(a, b, c, d orb.Point) bool {
	d1 := orient(c, d, a)
	d2 := orient(c, d, b)
	d3 := orient(a, b, c)
	d4 := orient(a, b, d)
	return d1*d2 < 0 && d3*d4 < 0
}

func orient(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onBoundary(p orb.Polygon, pt orb.Point) bool {
	for _, ring := range p {
		for i := 1; i < len(ring); i++ {
			a, b := ring[i-1], ring[i]
			if orient(a, b, pt) != 0 {
				continue
			}
			if pt[0] >= math.Min(a[0], b[0]) && pt[0] <= math.Max(a[0], b[0]) &&
				pt[1] >= math.Min(a[1], b[1]) && pt[1] <= math.Max(a[1], b[1]) {
				return true
			}
		}
	}
	return false
}

// Exteriors returns the exterior rings of every part.
func (s Shape) Exteriors() []orb.Ring {
	polys := s.Polygons()
	rings := make([]orb.Ring, 0, len(polys))
	for _, p := range polys {
		if len(p) > 0 {
			rings = append(rings, p[0])
		}
	}
	return rings
}

func geometryType(g orb.Geometry) string {
	if g == nil {
		return "nil geometry"
	}
	return g.GeoJSONType()
}
