package geom

import (
	stderrors "errors"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	// ErrTypeDomain is the type of errors returned when a geometry operation is
	// given a mathematically invalid input, such as the singular point of a
	// projection.
	ErrTypeDomain = "domain_error"

	// ErrTypeNotFound is the type of errors returned when a coordinate is
	// outside of the tracts or patches being searched.
	ErrTypeNotFound = "not_found"

	// ErrTypeConfig is the type of errors returned when parameters cannot
	// produce a valid tiling.
	ErrTypeConfig = "config_error"

	// ErrTypeCoverage is the type of errors returned when a lookup fails on a
	// layout that is supposed to cover the whole sphere.
	ErrTypeCoverage = "coverage_error"
)

func IsDomainError(err error) bool {
	return isType(err, ErrTypeDomain)
}

func IsNotFound(err error) bool {
	return isType(err, ErrTypeNotFound)
}

func IsConfigError(err error) bool {
	return isType(err, ErrTypeConfig)
}

func IsCoverageError(err error) bool {
	return isType(err, ErrTypeCoverage)
}

// isType reports whether err or one of the errors it wraps has the given
// type.
func isType(err error, t string) bool {
	for ; err != nil; err = stderrors.Unwrap(err) {
		if errors.Type(err) == t {
			return true
		}
	}
	return false
}
