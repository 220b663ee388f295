package risk

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultKupiecCritical is the likelihood-ratio threshold used when the
// caller does not supply one: the chi-square(1) quantile at alpha = 0.025.
// Use ChiSquareCritical to derive the threshold for any other significance
// level.
const DefaultKupiecCritical = 5.024

// BacktestOutcome is the result of a Kupiec proportion-of-failures test.
type BacktestOutcome struct {
	Pass          bool    `json:"pass"`
	LRStatistic   float64 `json:"lr_statistic"`
	Failures      int     `json:"failures"`
	Observations  int     `json:"observations"`
	ObservedRate  float64 `json:"observed_rate"`
	ExpectedRate  float64 `json:"expected_rate"`
	CriticalValue float64 `json:"critical_value"`
}

// KupiecTest runs Kupiec's proportion-of-failures likelihood-ratio test: does
// the rate at which returns breach the VaR estimate match the rate the
// confidence level implies? criticalValue <= 0 selects DefaultKupiecCritical.
//
// The decision is one-sided: only an excessive failure rate rejects the
// model. A VaR model that is breached less often than expected is
// conservative, not broken, so under-exceedance (including zero failures)
// always passes; the LR statistic is still reported for inspection.
func KupiecTest(returns ReturnSeries, varEstimate, confidence, criticalValue float64) (BacktestOutcome, error) {
	if err := validateConfidence(confidence); err != nil {
		return BacktestOutcome{}, err
	}
	if criticalValue < 0 {
		return BacktestOutcome{}, invalidParamf("critical value %v is negative", criticalValue)
	}
	if criticalValue == 0 {
		criticalValue = DefaultKupiecCritical
	}
	if returns.Len() == 0 {
		return BacktestOutcome{}, insufficientDataf("empty return series")
	}

	n := returns.Len()
	failures := 0
	for _, r := range returns.Values() {
		if r < varEstimate {
			failures++
		}
	}

	observed := float64(failures) / float64(n)
	expected := 1 - confidence

	lr := -2 * (pofLogLikelihood(expected, n, failures) - pofLogLikelihood(observed, n, failures))
	// Floating point can produce a tiny negative when the rates coincide.
	if lr < 0 {
		lr = 0
	}

	pass := lr < criticalValue || observed <= expected

	return BacktestOutcome{
		Pass:          pass,
		LRStatistic:   lr,
		Failures:      failures,
		Observations:  n,
		ObservedRate:  observed,
		ExpectedRate:  expected,
		CriticalValue: criticalValue,
	}, nil
}

// pofLogLikelihood evaluates ln L(p) = (n-f)·ln(1-p) + f·ln(p) directly in
// log form, with the 0·ln(0) = 0 limit convention so that observed rates of
// exactly 0 or 1 stay finite.
func pofLogLikelihood(p float64, n, failures int) float64 {
	ll := 0.0
	if n-failures > 0 {
		ll += float64(n-failures) * math.Log(1-p)
	}
	if failures > 0 {
		ll += float64(failures) * math.Log(p)
	}
	return ll
}

// ChiSquareCritical returns the chi-square(1) critical value for the given
// significance level, e.g. 0.05 -> 3.841, 0.025 -> 5.024.
func ChiSquareCritical(alpha float64) (float64, error) {
	if alpha <= 0 || alpha >= 1 {
		return 0, invalidParamf("significance level %v outside (0, 1)", alpha)
	}
	return distuv.ChiSquared{K: 1}.Quantile(1 - alpha), nil
}
