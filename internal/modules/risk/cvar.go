package risk

// CVaR computes the Conditional Value at Risk (expected shortfall) at the
// given confidence level: the mean of all returns at or below the historical
// VaR threshold. The threshold method is fixed to historical; parametric
// thresholds would mix model quantiles with empirical tail averages.
//
// Tail policy: if no observation lies at or below the threshold the VaR value
// itself is returned. With a non-empty series this cannot happen - the
// interpolated quantile is never below the sample minimum - but the fallback
// keeps the function total.
func CVaR(returns ReturnSeries, confidence float64) (float64, error) {
	threshold, err := VaR(returns, confidence, MethodHistorical)
	if err != nil {
		return 0, err
	}

	sum := 0.0
	count := 0
	for _, r := range returns.Values() {
		if r <= threshold {
			sum += r
			count++
		}
	}

	if count == 0 {
		return threshold, nil
	}
	return sum / float64(count), nil
}
