package prepare

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"cdibeta/adapters/tabular"
	"cdibeta/domain/core"
	"cdibeta/internal"
)

// Scale records the standardization applied to one raw column
type Scale struct {
	Source string
	Mean   float64
	StdDev float64
}

// Prepared is the preprocessed dataset plus the bookkeeping the report
// needs: row counts, whether the percentile rescale triggered, and the
// standardization scales computed on the complete-case subset.
type Prepared struct {
	Table        *tabular.Table
	RowsIn       int
	RowsOut      int
	Rescaled     bool
	Standardized map[string]Scale
}

// standardizedSources maps derived standardized columns to the raw
// columns they are computed from.
var standardizedSources = map[string]string{
	tabular.ColZIDSPref: tabular.ColIDSPref,
	tabular.ColZAgeMo:   tabular.ColAgeMo,
}

// Prepare transforms the loaded table for model fitting:
//
//  1. responses equal to 0 are clamped to 1 on the raw percentile scale;
//  2. if any response still exceeds 1, the whole column is divided by 100
//     (the column is assumed to be uniformly percentile-scaled);
//  3. responses sitting exactly on 1 after the rescale (a raw 100th
//     percentile) are clamped to 0.99, mirroring the zero clamp at the
//     other boundary;
//  4. rows missing any variable in requiredVars are dropped;
//  5. the predictor and age columns are standardized over the surviving
//     complete-case rows only, appearing as new z_ columns.
//
// The zero clamp runs before the rescale on purpose: a raw 0 becomes 1,
// then 0.01 after division. This mirrors the original analysis and must
// not be reordered. Every surviving response is strictly inside (0,1);
// anything else fails preparation rather than the downstream fits.
func Prepare(t *tabular.Table, requiredVars []string) (*Prepared, error) {
	log := internal.DefaultLogger

	out := t.Clone()
	resp := out.Numeric[tabular.ColDailyPercentile]
	if resp == nil {
		return nil, core.NewMissingColumnError(tabular.ColDailyPercentile)
	}

	clamped := 0
	for i, v := range resp {
		if v == 0 {
			resp[i] = 1
			clamped++
		}
	}
	if clamped > 0 {
		log.Info("clamped %d zero responses to 1 on the raw percentile scale", clamped)
	}

	rescaled := false
	for _, v := range resp {
		if v > 1 {
			rescaled = true
			break
		}
	}
	if rescaled {
		for i := range resp {
			resp[i] /= 100
		}
		// The trigger assumes the whole column shares one unit system;
		// mixed proportion/percentage columns would be misclassified here.
		log.Warn("response values exceeded 1; rescaled the whole column from percentiles to proportions")
	}

	clampedHigh := 0
	for i, v := range resp {
		if v == 1 {
			resp[i] = 0.99
			clampedHigh++
		}
	}
	if clampedHigh > 0 {
		log.Info("clamped %d unit responses to 0.99 on the proportion scale", clampedHigh)
	}

	keep := completeCaseMask(out, requiredVars)
	filtered := out.Filter(keep)
	if filtered.Len() == 0 {
		return nil, fmt.Errorf("%w: no complete-case rows remain", core.ErrInsufficientData)
	}

	for i, v := range filtered.Numeric[tabular.ColDailyPercentile] {
		if !(v > 0 && v < 1) {
			return nil, fmt.Errorf("%w: response %g at row %d outside (0,1) after preparation", core.ErrInsufficientData, v, i)
		}
	}

	prepared := &Prepared{
		Table:        filtered,
		RowsIn:       t.Len(),
		RowsOut:      filtered.Len(),
		Rescaled:     rescaled,
		Standardized: make(map[string]Scale),
	}

	for zName, source := range standardizedSources {
		if !needsVariable(requiredVars, zName) {
			continue
		}
		scale, err := standardize(filtered, zName, source)
		if err != nil {
			return nil, err
		}
		prepared.Standardized[zName] = scale
	}

	log.Info("preprocessing kept %d of %d rows (complete cases)", filtered.Len(), t.Len())
	return prepared, nil
}

// completeCaseMask marks rows with no missing value in any required
// variable. Standardized columns are checked through their raw sources
// since they do not exist yet.
func completeCaseMask(t *tabular.Table, requiredVars []string) []bool {
	keep := make([]bool, t.Len())
	for i := range keep {
		keep[i] = true
		for _, name := range requiredVars {
			if source, ok := standardizedSources[name]; ok {
				name = source
			}
			if t.IsMissing(name, i) {
				keep[i] = false
				break
			}
		}
	}
	return keep
}

// standardize adds a zero-mean unit-variance copy of the source column,
// using moments computed over exactly the rows being modeled.
func standardize(t *tabular.Table, zName, source string) (Scale, error) {
	raw, ok := t.Numeric[source]
	if !ok {
		return Scale{}, core.NewMissingColumnError(source)
	}

	mean, err := stats.Mean(raw)
	if err != nil {
		return Scale{}, fmt.Errorf("%w: %s: %v", core.ErrInsufficientData, source, err)
	}
	sd, err := stats.StandardDeviationSample(raw)
	if err != nil {
		return Scale{}, fmt.Errorf("%w: %s: %v", core.ErrInsufficientData, source, err)
	}
	if sd == 0 || math.IsNaN(sd) {
		return Scale{}, fmt.Errorf("%w: %s has zero variance", core.ErrInsufficientData, source)
	}

	z := make([]float64, len(raw))
	for i, v := range raw {
		z[i] = (v - mean) / sd
	}
	t.SetNumeric(zName, z)
	return Scale{Source: source, Mean: mean, StdDev: sd}, nil
}

func needsVariable(vars []string, name string) bool {
	for _, v := range vars {
		if v == name {
			return true
		}
	}
	return false
}
