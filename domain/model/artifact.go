package model

import (
	"fmt"

	"cdibeta/domain/core"
)

// Coefficient is one estimated fixed effect
type Coefficient struct {
	Name     string  `json:"name"`
	Estimate float64 `json:"estimate"`
	StdErr   float64 `json:"std_err"`
}

// VarianceComponent is the estimated random-intercept variance for one
// grouping factor
type VarianceComponent struct {
	Group    string  `json:"group"`
	Variance float64 `json:"variance"`
	Levels   int     `json:"levels"`
}

// GroupEffect is the conditional mode (BLUP-style offset) for one level
// of a grouping factor
type GroupEffect struct {
	Level  string  `json:"level"`
	Effect float64 `json:"effect"`
}

// Fit is a fitted model artifact. Immutable once created: every
// diagnostic reads from it, nothing writes back.
type Fit struct {
	Spec         Spec
	Coefficients []Coefficient
	Variances    []VarianceComponent
	GroupEffects map[string][]GroupEffect
	Dispersion   float64
	LogLik       float64
	NObs         int
	NFixed       int // fixed-effect parameter count including intercept
	Fitted       []float64
	LinearFixed  []float64 // link-scale fixed-effect predictor per observation
	Response     []float64
	FittedAt     core.Timestamp
}

// Coefficient looks up a fixed effect by design-column name
func (f *Fit) Coefficient(name string) (Coefficient, bool) {
	for _, c := range f.Coefficients {
		if c.Name == name {
			return c, true
		}
	}
	return Coefficient{}, false
}

// TotalRandomVariance sums the random-intercept variance components
func (f *Fit) TotalRandomVariance() float64 {
	total := 0.0
	for _, v := range f.Variances {
		total += v.Variance
	}
	return total
}

// Comparison is a likelihood-ratio comparison between a nested model
// pair. Read-only once computed.
type Comparison struct {
	First      string  `json:"first"`
	Second     string  `json:"second"`
	Statistic  float64 `json:"statistic"` // signed: 2*(logLik second - logLik first)
	DF         int     `json:"df"`
	PValue     float64 `json:"p_value"`
	ComputedAt core.Timestamp
}

// NewComparison validates and creates a comparison result
func NewComparison(first, second string, statistic float64, df int, pValue float64) (*Comparison, error) {
	if df <= 0 {
		return nil, fmt.Errorf("DF must be > 0, got %d", df)
	}
	if pValue < 0.0 || pValue > 1.0 {
		return nil, fmt.Errorf("PValue must be in [0.0, 1.0], got %f", pValue)
	}
	return &Comparison{
		First:      first,
		Second:     second,
		Statistic:  statistic,
		DF:         df,
		PValue:     pValue,
		ComputedAt: core.Now(),
	}, nil
}

// RunManifest captures the audit metadata for one analysis run
type RunManifest struct {
	RunID        core.RunID     `json:"run_id"`
	Seed         int64          `json:"seed"`
	InputPath    string         `json:"input_path"`
	RowsLoaded   int            `json:"rows_loaded"`
	RowsModeled  int            `json:"rows_modeled"`
	Rescaled     bool           `json:"rescaled"`
	ModelsFit    int            `json:"models_fit"`
	ModelsFailed int            `json:"models_failed"`
	RuntimeMs    int64          `json:"runtime_ms"`
	CreatedAt    core.Timestamp `json:"created_at"`
}

// NewRunManifest creates a manifest with a fresh run ID
func NewRunManifest(inputPath string, seed int64) *RunManifest {
	return &RunManifest{
		RunID:     core.RunID(core.NewID()),
		Seed:      seed,
		InputPath: inputPath,
		CreatedAt: core.Now(),
	}
}
