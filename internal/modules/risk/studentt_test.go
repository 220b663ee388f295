package risk

import (
	"math"
	"golang.org/x/exp/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestFitStudentTRecoversParameters(t *testing.T) {
	// Sample from a known location-scale t and check the MLE lands near the
	// true parameters. Tolerances are loose: nu is hard to pin down from
	// finite samples.
	src := rand.NewSource(12345)
	truth := distuv.StudentsT{Mu: 0.001, Sigma: 0.02, Nu: 5, Src: src}

	sample := make([]float64, 4000)
	for i := range sample {
		sample[i] = truth.Rand()
	}

	params, err := FitStudentT(sample)
	require.NoError(t, err)

	assert.InDelta(t, 0.001, params.Mu, 0.002)
	assert.InDelta(t, 0.02, params.Sigma, 0.005)
	assert.Greater(t, params.Nu, 2.0)
	assert.Less(t, params.Nu, 15.0)
}

func TestFitStudentTNormalLikeSample(t *testing.T) {
	// A near-normal sample should fit with a large nu (t converges to the
	// normal) rather than failing.
	src := rand.NewSource(777)
	normal := distuv.Normal{Mu: 0, Sigma: 0.01, Src: src}

	sample := make([]float64, 2000)
	for i := range sample {
		sample[i] = normal.Rand()
	}

	params, err := FitStudentT(sample)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, params.Mu, 0.002)
	assert.InDelta(t, 0.01, params.Sigma, 0.003)
	assert.Greater(t, params.Nu, 5.0, "thin tails imply high degrees of freedom")
}

func TestFitStudentTImprovesLikelihood(t *testing.T) {
	values := []float64{
		-0.09, -0.03, -0.02, -0.012, -0.007, -0.003, 0.0, 0.002, 0.006,
		0.009, 0.013, 0.019, 0.028, 0.09,
	}

	params, err := FitStudentT(values)
	require.NoError(t, err)

	fitted := negStudentTLogLikelihood(values, params.Mu, params.Sigma, params.Nu)
	start := negStudentTLogLikelihood(values, 0, 0.03, 4)
	assert.LessOrEqual(t, fitted, start, "MLE must not be worse than an arbitrary start")
}

func TestFitStudentTValidation(t *testing.T) {
	_, err := FitStudentT([]float64{0.01, 0.02})
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = FitStudentT([]float64{0.01, 0.01, 0.01, 0.01})
	assert.ErrorIs(t, err, ErrNumericDomain)
}

func TestNegStudentTLogLikelihoodGuards(t *testing.T) {
	sample := []float64{-0.01, 0.0, 0.01}

	assert.True(t, math.IsInf(negStudentTLogLikelihood(sample, 0, -1, 4), 1))
	assert.True(t, math.IsInf(negStudentTLogLikelihood(sample, 0, 0.01, 0), 1))
	assert.False(t, math.IsInf(negStudentTLogLikelihood(sample, 0, 0.01, 4), 0))
}
