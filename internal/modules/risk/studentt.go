package risk

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/wangyan9981/riskmodeling/pkg/formulas"
)

// StudentTParams holds the fitted parameters of a location-scale Student-t
// distribution: location Mu, scale Sigma (> 0) and degrees of freedom Nu (> 0).
type StudentTParams struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
	Nu    float64 `json:"nu"`
}

// FitStudentT estimates location-scale Student-t parameters by maximum
// likelihood. The search runs over (mu, log sigma, log nu) with Nelder-Mead
// so the positivity constraints on sigma and nu hold by construction.
// Starting point: sample mean, sample standard deviation, nu = 4.
func FitStudentT(sample []float64) (StudentTParams, error) {
	n := len(sample)
	if n < 3 {
		return StudentTParams{}, insufficientDataf("student-t fit needs at least 3 returns, got %d", n)
	}

	mean := formulas.Mean(sample)
	sd := formulas.StdDev(sample)
	if sd == 0 {
		return StudentTParams{}, fmt.Errorf("%w: zero-variance sample cannot be fit to a Student-t distribution", ErrNumericDomain)
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return negStudentTLogLikelihood(sample, x[0], math.Exp(x[1]), math.Exp(x[2]))
		},
	}

	x0 := []float64{mean, math.Log(sd), math.Log(4)}
	result, err := optimize.Minimize(problem, x0, nil, &optimize.NelderMead{})
	if err != nil {
		return StudentTParams{}, fmt.Errorf("%w: student-t fit did not converge: %v", ErrNumericDomain, err)
	}

	params := StudentTParams{
		Mu:    result.X[0],
		Sigma: math.Exp(result.X[1]),
		Nu:    math.Exp(result.X[2]),
	}
	if !paramsFinite(params) {
		return StudentTParams{}, fmt.Errorf("%w: student-t fit produced non-finite parameters", ErrNumericDomain)
	}
	return params, nil
}

// negStudentTLogLikelihood is the negative log-likelihood of a location-scale
// Student-t sample. Non-finite parameter combinations return +Inf so the
// optimizer backs away from them.
func negStudentTLogLikelihood(sample []float64, mu, sigma, nu float64) float64 {
	if sigma <= 0 || nu <= 0 || math.IsInf(sigma, 0) || math.IsInf(nu, 0) {
		return math.Inf(1)
	}

	lgNum, _ := math.Lgamma((nu + 1) / 2)
	lgDen, _ := math.Lgamma(nu / 2)
	perObs := lgNum - lgDen - 0.5*math.Log(nu*math.Pi) - math.Log(sigma)

	ll := float64(len(sample)) * perObs
	for _, v := range sample {
		z := (v - mu) / sigma
		ll -= (nu + 1) / 2 * math.Log(1+z*z/nu)
	}

	if math.IsNaN(ll) {
		return math.Inf(1)
	}
	return -ll
}

func paramsFinite(p StudentTParams) bool {
	for _, v := range []float64{p.Mu, p.Sigma, p.Nu} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return p.Sigma > 0 && p.Nu > 0
}
