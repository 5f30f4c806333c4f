package pipeline

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/urban-morph/internal/faults"
	"github.com/sells-group/urban-morph/internal/indicator"
	"github.com/sells-group/urban-morph/internal/model"
)

// Measured is the outcome of per-building measurement.
type Measured struct {
	Buildings []model.Building
	Invalid   int
}

// Measure computes the indicator vector, complexity, geodesic area and volume
// of every building. Buildings with invalid geometry are dropped and counted;
// any other failure aborts.
func Measure(buildings []model.Building, calc indicator.Calculator) (Measured, error) {
	log := zap.L().With(zap.String("component", "pipeline.measure"))
	out := Measured{Buildings: make([]model.Building, 0, len(buildings))}

	for _, b := range buildings {
		vec, err := calc.Compute(b.Shape)
		if err == nil {
			b.Complexity, err = indicator.Complexity(b.Shape)
		}
		if err != nil {
			berr := faults.NewBuildingError(b.ID, err)
			if !faults.IsInvalidGeometry(err) {
				return Measured{}, eris.Wrap(berr, "pipeline: measure")
			}
			log.Warn("dropping building", zap.String("building", b.ID), zap.Error(berr))
			out.Invalid++
			continue
		}

		b.Area = vec.Area
		b.Volume = vec.Area * b.Height
		b.Indicators = &vec
		out.Buildings = append(out.Buildings, b)
	}
	return out, nil
}
