//go:build gdal

package main

import (
	"github.com/sells-group/urban-morph/internal/geo"
	"github.com/sells-group/urban-morph/internal/raster"
	"github.com/sells-group/urban-morph/internal/raster/gdal"
)

func rasterBackend() (raster.Opener, geo.Projector, error) {
	return gdal.Opener, gdal.Projector{}, nil
}
