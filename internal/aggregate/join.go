// Package aggregate assigns buildings to the region that contains them and
// reduces building fields to per-region statistics.
package aggregate

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/urban-morph/internal/faults"
	"github.com/sells-group/urban-morph/internal/geo"
	"github.com/sells-group/urban-morph/internal/model"
)

// Policy decides what happens to a building contained by several regions.
type Policy string

const (
	// PolicyFirst assigns the building to the earliest such region in table order.
	PolicyFirst Policy = "first"
	// PolicyDiscard drops the building.
	PolicyDiscard Policy = "discard"
)

// ParsePolicy validates a configured policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyFirst, PolicyDiscard:
		return Policy(s), nil
	case "":
		return PolicyFirst, nil
	default:
		return "", eris.Errorf("aggregate: unknown assignment policy %q", s)
	}
}

// JoinResult accounts for every input building: In equals
// len(Assigned) + Outside + Discarded.
type JoinResult struct {
	Assigned  []model.Building
	In        int
	Outside   int
	Ambiguous int
	Discarded int
}

// Joiner performs the building-within-region join.
type Joiner struct {
	Projector geo.Projector
	Policy    Policy
}

// indexed is a building's representative point in the quadtree.
type indexed struct {
	idx int
	pt  orb.Point
}

func (p indexed) Point() orb.Point { return p.pt }

// Join re-projects buildings into the table's CRS and assigns each to the
// region that strictly contains it. Buildings outside every region are
// dropped. Returned buildings are copies carrying GEOID and the projected
// shape; the input slice is untouched.
func (j Joiner) Join(buildings []model.Building, regions model.RegionTable) (JoinResult, error) {
	log := zap.L().With(zap.String("component", "aggregate.join"))
	res := JoinResult{In: len(buildings)}
	if len(buildings) == 0 {
		return res, nil
	}

	projected := make([]model.Building, len(buildings))
	for i, b := range buildings {
		s, err := j.Projector.Project(b.Shape, regions.CRS)
		if err != nil {
			return JoinResult{}, eris.Wrapf(err, "aggregate: project building %s", b.ID)
		}
		projected[i] = b
		projected[i].Shape = s
		projected[i].GEOID = ""
	}

	bound := projected[0].Shape.Bound()
	for _, b := range projected[1:] {
		bound = bound.Union(b.Shape.Bound())
	}
	qt := quadtree.New(bound.Pad(1e-9))
	for i, b := range projected {
		if err := qt.Add(indexed{idx: i, pt: b.Shape.Bound().Center()}); err != nil {
			return JoinResult{}, eris.Wrapf(err, "aggregate: index building %s", b.ID)
		}
	}

	matches := make([][]int, len(projected))
	var buf []orb.Pointer
	for ri, r := range regions.Regions {
		buf = qt.InBound(buf[:0], r.Shape.Bound())
		for _, p := range buf {
			bi := p.(indexed).idx
			ok, err := r.Shape.ContainsShape(projected[bi].Shape)
			if err != nil {
				return JoinResult{}, eris.Wrapf(err, "aggregate: within test %s in %s", projected[bi].ID, r.GEOID)
			}
			if ok {
				matches[bi] = append(matches[bi], ri)
			}
		}
	}

	for bi, m := range matches {
		b := projected[bi]
		switch {
		case len(m) == 0:
			res.Outside++
			continue
		case len(m) > 1:
			res.Ambiguous++
			geoids := make([]string, len(m))
			for k, ri := range m {
				geoids[k] = regions.Regions[ri].GEOID
			}
			log.Warn("building contained by several regions",
				zap.String("building", b.ID),
				zap.Strings("geoids", geoids),
				zap.String("policy", string(j.Policy)),
				zap.Error(faults.ErrAmbiguousRegionAssignment),
			)
			if j.Policy == PolicyDiscard {
				res.Discarded++
				continue
			}
		}
		// Matches are collected in region order, so m[0] is the first region.
		b.GEOID = regions.Regions[m[0]].GEOID
		res.Assigned = append(res.Assigned, b)
	}

	log.Info("spatial join complete",
		zap.Int("buildings", res.In),
		zap.Int("assigned", len(res.Assigned)),
		zap.Int("outside", res.Outside),
		zap.Int("ambiguous", res.Ambiguous),
		zap.Int("discarded", res.Discarded),
	)
	return res, nil
}
