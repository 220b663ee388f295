package risk

import (
	"errors"
	"fmt"
)

// Sentinel errors for the risk engine. Callers match them with errors.Is;
// handlers map them onto HTTP status codes.
var (
	// ErrInvalidParameter indicates an out-of-range input such as a confidence
	// level outside (0, 1), a non-positive simulation count, or a negative
	// portfolio value.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInsufficientData indicates the return series is empty or too short
	// for the requested estimator.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidMethod indicates an unrecognized VaR method identifier.
	ErrInvalidMethod = errors.New("invalid VaR method")

	// ErrNumericDomain indicates a degenerate input that would produce an
	// undefined log or division. The estimators use safe limiting forms where
	// a limit exists; this error is returned only when no limit does (e.g. a
	// zero-variance sample fed to a distribution fit).
	ErrNumericDomain = errors.New("numeric domain error")
)

// invalidParamf wraps ErrInvalidParameter with a description of the offender.
func invalidParamf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}

// insufficientDataf wraps ErrInsufficientData with sample-size context.
func insufficientDataf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInsufficientData, fmt.Sprintf(format, args...))
}
