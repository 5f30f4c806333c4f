package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/rotisserie/eris"

	"github.com/sells-group/urban-morph/internal/faults"
)

// Projector re-projects a Shape into another CRS, returning a new Shape.
type Projector interface {
	Project(s Shape, to CRS) (Shape, error)
}

// BuiltinProjector handles identity transforms and WGS84 <-> web mercator
// without an external projection library.
type BuiltinProjector struct{}

// Project implements Projector.
func (BuiltinProjector) Project(s Shape, to CRS) (Shape, error) {
	if s.CRS == to {
		return s, nil
	}

	var fn orb.Projection
	switch {
	case s.CRS == EPSG4326 && to == EPSG3857:
		fn = project.WGS84.ToMercator
	case s.CRS == EPSG3857 && to == EPSG4326:
		fn = project.Mercator.ToWGS84
	default:
		return Shape{}, eris.Wrapf(faults.ErrCRSMismatch, "geo: no builtin transform %s -> %s", s.CRS, to)
	}

	g := project.Geometry(orb.Clone(s.Geometry), fn)
	return Shape{Geometry: g, CRS: to}, nil
}

// ProjectAll re-projects every shape, stopping at the first failure.
func ProjectAll(p Projector, shapes []Shape, to CRS) ([]Shape, error) {
	out := make([]Shape, len(shapes))
	for i, s := range shapes {
		ps, err := p.Project(s, to)
		if err != nil {
			return nil, eris.Wrapf(err, "geo: project shape %d", i)
		}
		out[i] = ps
	}
	return out, nil
}
