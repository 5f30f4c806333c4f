package pipeline

import (
	"github.com/paulmach/orb"

	"github.com/sells-group/urban-morph/internal/config"
	"github.com/sells-group/urban-morph/internal/raster"
)

// TilePlan lists the height tiles a region extent needs.
type TilePlan struct {
	Tiles   []raster.TileRef
	Paths   []string
	Missing []string
}

// PlanHeightTiles enumerates the tiles covering bound and checks which are
// absent from the tile directory.
func PlanHeightTiles(data config.DataConfig, p config.PipelineConfig, bound orb.Bound) TilePlan {
	tiles := raster.TilesForBounds(bound, p.TileMargin, p.TileStep)
	paths := raster.TilePaths(data.HeightTileDir, data.HeightTilePrefix, tiles)
	return TilePlan{
		Tiles:   tiles,
		Paths:   paths,
		Missing: raster.MissingFiles(paths),
	}
}
