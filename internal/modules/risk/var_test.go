package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func mustSeries(t *testing.T, values []float64) ReturnSeries {
	t.Helper()
	s, err := NewReturnSeries(values)
	require.NoError(t, err)
	return s
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		input   string
		want    Method
		wantErr bool
	}{
		{"historical", MethodHistorical, false},
		{"normal", MethodNormal, false},
		{"student_t", MethodStudentT, false},
		{"gaussian", 0, true},
		{"", 0, true},
		{"Historical", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMethod(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMethod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVaRHistorical(t *testing.T) {
	// Hand-computed: sorted returns are -0.05, -0.02, 0.01, 0.03, 0.04.
	// At confidence 0.8 the 20th percentile sits at rank (5-1)*0.2 = 0.8,
	// interpolating -0.05 and -0.02: -0.05 + 0.8*0.03 = -0.026.
	series := mustSeries(t, []float64{-0.05, -0.02, 0.01, 0.03, 0.04})

	got, err := VaR(series, 0.8, MethodHistorical)
	require.NoError(t, err)
	assert.InDelta(t, -0.026, got, 1e-12)
}

func TestVaRHistoricalSingleObservation(t *testing.T) {
	series := mustSeries(t, []float64{-0.03})

	got, err := VaR(series, 0.95, MethodHistorical)
	require.NoError(t, err)
	assert.InDelta(t, -0.03, got, 1e-12)
}

func TestVaRNormal(t *testing.T) {
	series := mustSeries(t, []float64{-0.02, -0.01, 0.0, 0.01, 0.02})

	got, err := VaR(series, 0.95, MethodNormal)
	require.NoError(t, err)

	want := distuv.Normal{Mu: series.Mean(), Sigma: series.StdDev()}.Quantile(0.05)
	assert.InDelta(t, want, got, 1e-12)
	assert.Less(t, got, 0.0, "5% quantile of a zero-mean sample is a loss")
}

func TestVaRNormalZeroVariance(t *testing.T) {
	series := mustSeries(t, []float64{0.01, 0.01, 0.01})

	_, err := VaR(series, 0.95, MethodNormal)
	assert.ErrorIs(t, err, ErrNumericDomain)
}

func TestVaRStudentT(t *testing.T) {
	// Symmetric fat-tailed sample around zero; the fitted t quantile at 5%
	// must be a loss and at least as extreme as the empirical 5th percentile
	// of the bulk.
	values := []float64{
		-0.12, -0.03, -0.02, -0.015, -0.01, -0.008, -0.005, -0.002, 0.0,
		0.002, 0.005, 0.008, 0.01, 0.015, 0.02, 0.03, 0.12,
	}
	series := mustSeries(t, values)

	got, err := VaR(series, 0.95, MethodStudentT)
	require.NoError(t, err)
	assert.Less(t, got, 0.0)
	assert.False(t, math.IsNaN(got))
	assert.False(t, math.IsInf(got, 0))
}

func TestVaRMonotonicInConfidence(t *testing.T) {
	values := []float64{
		-0.06, -0.04, -0.03, -0.02, -0.015, -0.01, -0.005, 0.0, 0.003,
		0.007, 0.01, 0.015, 0.02, 0.025, 0.03, 0.04, 0.05, 0.055, 0.06, 0.07,
	}
	series := mustSeries(t, values)

	for _, method := range []Method{MethodHistorical, MethodNormal} {
		t.Run(method.String(), func(t *testing.T) {
			prev := math.Inf(1)
			for _, c := range []float64{0.90, 0.95, 0.99} {
				got, err := VaR(series, c, method)
				require.NoError(t, err)
				assert.LessOrEqual(t, got, prev+1e-12,
					"VaR at %.2f should be at least as extreme as at lower confidence", c)
				prev = got
			}
		})
	}
}

func TestVaRInputValidation(t *testing.T) {
	series := mustSeries(t, []float64{-0.01, 0.02, 0.01})
	empty := mustSeries(t, nil)

	tests := []struct {
		name       string
		series     ReturnSeries
		confidence float64
		method     Method
		wantErr    error
	}{
		{"confidence zero", series, 0, MethodHistorical, ErrInvalidParameter},
		{"confidence one", series, 1, MethodHistorical, ErrInvalidParameter},
		{"confidence negative", series, -0.5, MethodNormal, ErrInvalidParameter},
		{"confidence NaN", series, math.NaN(), MethodHistorical, ErrInvalidParameter},
		{"empty series", empty, 0.95, MethodHistorical, ErrInsufficientData},
		{"single return parametric", mustSeries(t, []float64{0.01}), 0.95, MethodNormal, ErrInsufficientData},
		{"unknown method", series, 0.95, Method(42), ErrInvalidMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VaR(tt.series, tt.confidence, tt.method)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVaRInvalidMethodCheckedFirst(t *testing.T) {
	// An unrecognized method must fail even when every other input is also
	// bad: no partial computation happens.
	empty := mustSeries(t, nil)
	_, err := VaR(empty, -1, Method(99))
	assert.ErrorIs(t, err, ErrInvalidMethod)
}

func TestNewReturnSeriesRejectsNonFinite(t *testing.T) {
	_, err := NewReturnSeries([]float64{0.01, math.NaN()})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewReturnSeries([]float64{math.Inf(1)})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestReturnSeriesImmutable(t *testing.T) {
	raw := []float64{0.01, -0.02}
	series := mustSeries(t, raw)

	raw[0] = 99
	assert.Equal(t, 0.01, series.Values()[0], "series must copy its input")

	series.Values()[1] = 99
	assert.Equal(t, -0.02, series.Values()[1], "Values must return a copy")
}

func TestFromPrices(t *testing.T) {
	series, err := FromPrices([]float64{100, 102, 51})
	require.NoError(t, err)
	assert.Equal(t, 2, series.Len())
	assert.InDelta(t, 0.02, series.Values()[0], 1e-12)

	// Non-positive prices produce no return across the affected pairs.
	series, err = FromPrices([]float64{100, 0, 50, 55})
	require.NoError(t, err)
	assert.Equal(t, 1, series.Len())
	assert.InDelta(t, 0.1, series.Values()[0], 1e-12)

	_, err = FromPrices([]float64{100})
	assert.ErrorIs(t, err, ErrInsufficientData)
}
