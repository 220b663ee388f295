package risk

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wangyan9981/riskmodeling/pkg/formulas"
)

// Method selects the statistical model behind a VaR estimate. The set is
// closed: anything outside the three constants fails with ErrInvalidMethod.
type Method int

const (
	// MethodHistorical uses the empirical return distribution with no
	// distributional assumption.
	MethodHistorical Method = iota
	// MethodNormal fits a normal distribution by sample mean and sample
	// standard deviation.
	MethodNormal
	// MethodStudentT fits a location-scale Student-t distribution by
	// maximum likelihood.
	MethodStudentT
)

// String returns the wire name of the method.
func (m Method) String() string {
	switch m {
	case MethodHistorical:
		return "historical"
	case MethodNormal:
		return "normal"
	case MethodStudentT:
		return "student_t"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// valid reports whether m is one of the three recognized methods.
func (m Method) valid() bool {
	return m == MethodHistorical || m == MethodNormal || m == MethodStudentT
}

// ParseMethod maps a wire identifier to a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "historical":
		return MethodHistorical, nil
	case "normal":
		return MethodNormal, nil
	case "student_t":
		return MethodStudentT, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMethod, s)
	}
}

// VaR computes the Value at Risk of the return series at the given confidence
// level: the return quantile at probability 1-confidence. The result is a
// fractional return, negative for a loss (e.g. -0.032 means the modelled
// worst case at this confidence is a 3.2% loss).
func VaR(returns ReturnSeries, confidence float64, method Method) (float64, error) {
	if !method.valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidMethod, int(method))
	}
	if err := validateConfidence(confidence); err != nil {
		return 0, err
	}
	if returns.Len() == 0 {
		return 0, insufficientDataf("empty return series")
	}

	tail := 1 - confidence

	switch method {
	case MethodHistorical:
		return formulas.Percentile(returns.Values(), tail*100), nil

	case MethodNormal:
		if returns.Len() < 2 {
			return 0, insufficientDataf("normal fit needs at least 2 returns, got %d", returns.Len())
		}
		sigma := returns.StdDev()
		if sigma == 0 {
			return 0, fmt.Errorf("%w: zero-variance sample cannot be fit to a normal distribution", ErrNumericDomain)
		}
		dist := distuv.Normal{Mu: returns.Mean(), Sigma: sigma}
		return dist.Quantile(tail), nil

	case MethodStudentT:
		params, err := FitStudentT(returns.Values())
		if err != nil {
			return 0, err
		}
		dist := distuv.StudentsT{Mu: params.Mu, Sigma: params.Sigma, Nu: params.Nu}
		return dist.Quantile(tail), nil
	}

	// Unreachable: method.valid() covers the full set.
	return 0, ErrInvalidMethod
}
