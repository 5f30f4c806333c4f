// Package geo carries CRS-tagged geometries and the geodesic model used for
// every area and length computation. A Shape never changes CRS implicitly:
// re-projection goes through a Projector and returns a new Shape.
package geo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// CRS identifies a coordinate reference system by EPSG code.
type CRS int

// Well-known reference systems.
const (
	EPSG4326 CRS = 4326 // WGS84 lon/lat
	EPSG4490 CRS = 4490 // CGCS2000 lon/lat
	EPSG4269 CRS = 4269 // NAD83 lon/lat
	EPSG3857 CRS = 3857 // web mercator
)

// geodetic lists the lon/lat systems the geodesic model accepts.
var geodetic = map[CRS]bool{
	EPSG4326: true,
	EPSG4490: true,
	EPSG4269: true,
}

// String renders the CRS as an authority string, e.g. "EPSG:4326".
func (c CRS) String() string {
	return fmt.Sprintf("EPSG:%d", int(c))
}

// EPSG returns the numeric code.
func (c CRS) EPSG() int {
	return int(c)
}

// Geodetic reports whether coordinates are longitude/latitude degrees.
func (c CRS) Geodetic() bool {
	return geodetic[c]
}

// ParseCRS accepts "EPSG:4326", "epsg:4326" or "4326".
func ParseCRS(s string) (CRS, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		if !strings.EqualFold(s[:i], "EPSG") {
			return 0, eris.Errorf("geo: unsupported CRS authority %q", s[:i])
		}
		s = s[i+1:]
	}
	code, err := strconv.Atoi(s)
	if err != nil || code <= 0 {
		return 0, eris.Errorf("geo: invalid CRS %q", s)
	}
	return CRS(code), nil
}
