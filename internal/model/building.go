package model

import (
	"github.com/sells-group/urban-morph/internal/geo"
	"github.com/sells-group/urban-morph/internal/indicator"
)

// Building is one footprint and the scalars derived for it. GEOID is empty
// until the spatial join assigns it.
type Building struct {
	ID    string
	Shape geo.Shape

	Height     float64
	Area       float64
	Complexity float64
	Volume     float64
	Indicators *indicator.Vector

	GEOID string
}

// BuildingIndex is one row of the per-building indicator table.
type BuildingIndex struct {
	ID string
	indicator.Vector
}

// IndexRows flattens buildings that carry an indicator vector.
func IndexRows(buildings []Building) []BuildingIndex {
	rows := make([]BuildingIndex, 0, len(buildings))
	for _, b := range buildings {
		if b.Indicators == nil {
			continue
		}
		rows = append(rows, BuildingIndex{ID: b.ID, Vector: *b.Indicators})
	}
	return rows
}
