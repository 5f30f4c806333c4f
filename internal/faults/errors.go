// Package faults defines the error taxonomy shared by the feature extraction
// pipeline. Per-building failures are wrapped in BuildingError and degrade to a
// dropped row; region-level and precondition failures abort the run.
package faults

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrInvalidGeometry marks empty, zero-perimeter or non-polygonal input.
	ErrInvalidGeometry = eris.New("invalid geometry")

	// ErrRasterExtentMismatch marks a polygon that no raster tile covers.
	// Extraction treats it as a zero scalar; it only surfaces from explicit
	// coverage queries.
	ErrRasterExtentMismatch = eris.New("raster extent mismatch")

	// ErrAmbiguousRegionAssignment marks a building contained by more than one region.
	ErrAmbiguousRegionAssignment = eris.New("ambiguous region assignment")

	// ErrMissingRegionData marks an absent boundary, raster tile or footprint file.
	ErrMissingRegionData = eris.New("missing region data")

	// ErrDivideByZeroRegion marks a region whose land area is not positive.
	ErrDivideByZeroRegion = eris.New("region has zero land area")

	// ErrCRSMismatch marks a geometry handed to a computation in the wrong CRS.
	ErrCRSMismatch = eris.New("crs mismatch")
)

// BuildingError attaches a building identifier to a per-building failure.
type BuildingError struct {
	ID  string
	Err error
}

func (e *BuildingError) Error() string {
	return fmt.Sprintf("building %s: %v", e.ID, e.Err)
}

func (e *BuildingError) Unwrap() error {
	return e.Err
}

// NewBuildingError wraps err with the building identifier.
func NewBuildingError(id string, err error) *BuildingError {
	return &BuildingError{ID: id, Err: err}
}

// RegionError attaches a GEOID to a region-level failure.
type RegionError struct {
	GEOID string
	Err   error
}

func (e *RegionError) Error() string {
	return fmt.Sprintf("region %s: %v", e.GEOID, e.Err)
}

func (e *RegionError) Unwrap() error {
	return e.Err
}

// NewRegionError wraps err with the region identifier.
func NewRegionError(geoid string, err error) *RegionError {
	return &RegionError{GEOID: geoid, Err: err}
}

// Missing builds a MissingRegionData error naming the absent input.
func Missing(what, path string) error {
	return eris.Wrapf(ErrMissingRegionData, "%s not found at %s", what, path)
}

// IsInvalidGeometry reports whether err (or any error in its chain) is an
// invalid geometry failure.
func IsInvalidGeometry(err error) bool {
	return errors.Is(err, ErrInvalidGeometry)
}

// IsMissingData reports whether err is a missing-input precondition failure.
func IsMissingData(err error) bool {
	return errors.Is(err, ErrMissingRegionData)
}

// IsDivideByZero reports whether err is a zero land area failure.
func IsDivideByZero(err error) bool {
	return errors.Is(err, ErrDivideByZeroRegion)
}

// IsCRSMismatch reports whether err is a CRS contract violation.
func IsCRSMismatch(err error) bool {
	return errors.Is(err, ErrCRSMismatch)
}

// BuildingID returns the identifier carried by a BuildingError in err's chain.
func BuildingID(err error) (string, bool) {
	var be *BuildingError
	if errors.As(err, &be) {
		return be.ID, true
	}
	return "", false
}
