// Package risk implements single-asset market risk estimators: Value at Risk
// (historical, normal and Student-t), Conditional Value at Risk, the Kupiec
// proportion-of-failures backtest and a Monte Carlo multi-day VaR simulator.
//
// All operations are pure functions over an in-memory return series. Price
// fetching and presentation are collaborators (see internal/clients and the
// handlers subpackage); nothing in this package performs I/O.
package risk

import (
	"math"

	"github.com/wangyan9981/riskmodeling/pkg/formulas"
)

// ReturnSeries is an ordered sequence of fractional period returns
// (e.g. -0.012 for a -1.2% day). It is immutable once constructed: estimators
// borrow it read-only and sort copies internally.
type ReturnSeries struct {
	values []float64
}

// NewReturnSeries validates and wraps a slice of returns. The slice is copied
// so later mutation by the caller cannot affect the series. NaN or infinite
// values are rejected: the series must be pre-cleaned by the data collaborator.
func NewReturnSeries(values []float64) (ReturnSeries, error) {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ReturnSeries{}, invalidParamf("return at index %d is not finite", i)
		}
	}
	copied := make([]float64, len(values))
	copy(copied, values)
	return ReturnSeries{values: copied}, nil
}

// FromPrices converts a chronological price series to period-over-period
// fractional returns. Pairs containing a non-positive price are skipped since
// no meaningful return exists across them.
func FromPrices(prices []float64) (ReturnSeries, error) {
	if len(prices) < 2 {
		return ReturnSeries{}, insufficientDataf("need at least 2 prices, got %d", len(prices))
	}
	values := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			continue
		}
		values = append(values, (prices[i]-prices[i-1])/prices[i-1])
	}
	return NewReturnSeries(values)
}

// Len returns the number of observations.
func (s ReturnSeries) Len() int {
	return len(s.values)
}

// Values returns a copy of the underlying returns.
func (s ReturnSeries) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// Mean returns the sample mean.
func (s ReturnSeries) Mean() float64 {
	return formulas.Mean(s.values)
}

// StdDev returns the sample standard deviation (n-1 denominator).
func (s ReturnSeries) StdDev() float64 {
	return formulas.StdDev(s.values)
}

// sorted returns the observations in ascending order as a fresh slice.
func (s ReturnSeries) sorted() []float64 {
	return formulas.SortedCopy(s.values)
}

// validateConfidence rejects confidence levels outside the open interval (0, 1).
func validateConfidence(confidence float64) error {
	if math.IsNaN(confidence) || confidence <= 0 || confidence >= 1 {
		return invalidParamf("confidence level %v outside (0, 1)", confidence)
	}
	return nil
}
