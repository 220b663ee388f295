package risk

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/wangyan9981/riskmodeling/pkg/formulas"
)

// MonteCarloConfig controls a simulation run.
type MonteCarloConfig struct {
	NumPaths    int     // number of simulated paths
	HorizonDays int     // projection horizon in trading days
	Confidence  float64 // tail confidence; 0 means the 0.95 default
	Seed        int64   // RNG seed; 0 means time-seeded (non-reproducible)
}

// MonteCarloResult summarizes one simulation run. VaR is a dollar loss
// relative to the initial value (positive = loss).
type MonteCarloResult struct {
	RunID           string  `json:"run_id"`
	VaR             float64 `json:"var"`
	PercentileValue float64 `json:"percentile_value"`
	MeanTerminal    float64 `json:"mean_terminal"`
	StdDevTerminal  float64 `json:"stddev_terminal"`
	InitialValue    float64 `json:"initial_value"`
	Confidence      float64 `json:"confidence"`
	HorizonDays     int     `json:"horizon_days"`
	NumPaths        int     `json:"num_paths"`
	Seed            int64   `json:"seed"`
}

// MonteCarloSimulator projects a multi-day portfolio value distribution under
// a geometric (lognormal) random walk calibrated to the sample mean and
// standard deviation of a return series.
type MonteCarloSimulator struct {
	cfg MonteCarloConfig
}

// NewMonteCarloSimulator creates a simulator with the given configuration.
func NewMonteCarloSimulator(cfg MonteCarloConfig) *MonteCarloSimulator {
	if cfg.Confidence == 0 {
		cfg.Confidence = 0.95
	}
	return &MonteCarloSimulator{cfg: cfg}
}

// Simulate runs the configured number of paths from initialValue and derives
// the dollar VaR at the configured tail.
//
// Each path compounds HorizonDays increments of driftAdj + sigma*z with
// independent standard-normal z, where driftAdj = mu - sigma²/2 is the Itô
// correction that makes the terminal multiplier lognormal with mean
// exp(mu·horizon). The RNG is re-seeded on every call, so a fixed Seed gives
// bit-identical results across repeated runs.
func (mc *MonteCarloSimulator) Simulate(returns ReturnSeries, initialValue float64) (*MonteCarloResult, error) {
	if err := validateConfidence(mc.cfg.Confidence); err != nil {
		return nil, err
	}
	if mc.cfg.NumPaths <= 0 {
		return nil, invalidParamf("number of paths must be positive, got %d", mc.cfg.NumPaths)
	}
	if mc.cfg.HorizonDays <= 0 {
		return nil, invalidParamf("horizon must be positive, got %d days", mc.cfg.HorizonDays)
	}
	if initialValue <= 0 || math.IsNaN(initialValue) || math.IsInf(initialValue, 0) {
		return nil, invalidParamf("initial value must be positive and finite, got %v", initialValue)
	}
	if returns.Len() < 2 {
		return nil, insufficientDataf("simulation calibration needs at least 2 returns, got %d", returns.Len())
	}

	mu := returns.Mean()
	sigma := returns.StdDev()
	driftAdj := mu - 0.5*sigma*sigma

	seed := mc.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	terminal := make([]float64, mc.cfg.NumPaths)
	for i := range terminal {
		logReturn := 0.0
		for d := 0; d < mc.cfg.HorizonDays; d++ {
			logReturn += driftAdj + sigma*rng.NormFloat64()
		}
		terminal[i] = initialValue * math.Exp(logReturn)
	}

	sorted := formulas.SortedCopy(terminal)
	idx := int(math.Floor((1 - mc.cfg.Confidence) * float64(mc.cfg.NumPaths)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	return &MonteCarloResult{
		RunID:           uuid.New().String(),
		VaR:             initialValue - sorted[idx],
		PercentileValue: sorted[idx],
		MeanTerminal:    formulas.Mean(terminal),
		StdDevTerminal:  formulas.StdDev(terminal),
		InitialValue:    initialValue,
		Confidence:      mc.cfg.Confidence,
		HorizonDays:     mc.cfg.HorizonDays,
		NumPaths:        mc.cfg.NumPaths,
		Seed:            seed,
	}, nil
}
