package geo

import (
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/tidwall/geodesic"

	"github.com/sells-group/urban-morph/internal/faults"
)

// Geodesic is an ellipsoidal model used for areas and lengths on lon/lat
// shapes. It is a plain value; pass it to whatever needs it.
type Geodesic struct {
	name  string
	model *geodesic.Ellipsoid
}

// NewGeodesic returns the model for the named ellipsoid. Only WGS84 is known.
func NewGeodesic(ellipsoid string) (Geodesic, error) {
	switch strings.ToUpper(strings.TrimSpace(ellipsoid)) {
	case "", "WGS84", "WGS-84":
		return Geodesic{name: "WGS84", model: geodesic.WGS84}, nil
	default:
		return Geodesic{}, eris.Errorf("geo: unsupported ellipsoid %q", ellipsoid)
	}
}

// WGS84 returns the WGS84 model.
func WGS84() Geodesic {
	return Geodesic{name: "WGS84", model: geodesic.WGS84}
}

// Name returns the ellipsoid name.
func (g Geodesic) Name() string {
	return g.name
}

// AreaPerimeter returns the unsigned ellipsoidal area (m^2) and perimeter (m)
// of a polygonal shape. Holes are subtracted from the area and included in the
// perimeter.
func (g Geodesic) AreaPerimeter(s Shape) (area, perimeter float64, err error) {
	if err := g.requireGeodetic(s.CRS); err != nil {
		return 0, 0, err
	}
	if err := s.Validate(); err != nil {
		return 0, 0, err
	}

	for _, p := range s.Polygons() {
		for i, ring := range p {
			a, l := g.ringAreaPerimeter(ring)
			if i == 0 {
				area += math.Abs(a)
			} else {
				area -= math.Abs(a)
			}
			perimeter += l
		}
	}
	return math.Abs(area), math.Abs(perimeter), nil
}

// Distance returns the geodesic distance in meters between two lon/lat points.
func (g Geodesic) Distance(a, b orb.Point) float64 {
	var s12, azi1, azi2 float64
	g.model.Inverse(a.Lat(), a.Lon(), b.Lat(), b.Lon(), &s12, &azi1, &azi2)
	return s12
}

// LineLength returns the geodesic length of a lon/lat polyline.
func (g Geodesic) LineLength(pts []orb.Point) float64 {
	var total float64
	for i := 1; i < len(pts); i++ {
		total += g.Distance(pts[i-1], pts[i])
	}
	return total
}

func (g Geodesic) ringAreaPerimeter(ring orb.Ring) (float64, float64) {
	pts := []orb.Point(ring)
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}

	poly := g.model.PolygonInit(false)
	for _, pt := range pts {
		poly.AddPoint(pt.Lat(), pt.Lon())
	}
	var area, perimeter float64
	poly.Compute(false, true, &area, &perimeter)
	return area, perimeter
}

func (g Geodesic) requireGeodetic(crs CRS) error {
	if g.model == nil {
		return eris.New("geo: geodesic model not initialised")
	}
	if !crs.Geodetic() {
		return eris.Wrapf(faults.ErrCRSMismatch, "geo: geodesic computation on projected %s", crs)
	}
	return nil
}
