//go:build !gdal

package main

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/urban-morph/internal/geo"
	"github.com/sells-group/urban-morph/internal/raster"
)

func rasterBackend() (raster.Opener, geo.Projector, error) {
	return nil, nil, eris.New("raster backend unavailable: rebuild with -tags gdal")
}
