package common

import "errors"

var (
	ErrorInvalidValue = errors.New("invalid value")

	// data quality errors, reported to callers as an undefined result
	ErrorInsufficientData = errors.New("insufficient data")
	ErrorNoOverlap        = errors.New("curve domains do not overlap")
	ErrorFitFailed        = errors.New("curve fit failed")
)

// IsDataError reports whether err is a data quality condition rather than a
// caller contract violation.
func IsDataError(err error) bool {
	return errors.Is(err, ErrorInsufficientData) ||
		errors.Is(err, ErrorNoOverlap) ||
		errors.Is(err, ErrorFitFailed)
}
