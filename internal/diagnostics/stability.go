package diagnostics

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"cdibeta/adapters/tabular"
	"cdibeta/domain/model"
	"cdibeta/internal/betareg"
)

// StabilityDeltaThreshold flags link-scale coefficient shifts larger
// than this when a grouping-factor level is removed.
const StabilityDeltaThreshold = 1.0

// LevelDeviation is the outcome of one refit with a single level of a
// grouping factor removed.
type LevelDeviation struct {
	Group       string
	Level       string
	RowsDropped int
	Converged   bool
	Reason      string
	MaxAbsDelta float64
	WorstTerm   string
}

// StabilityReport summarizes the stability of a model's coefficients
// under removal of each grouping-factor level. Findings are advisory;
// the decision to exclude data stays with the analyst.
type StabilityReport struct {
	Model      string
	Deviations []LevelDeviation
	Flagged    bool
}

// StabilityOptions controls the group-drop stability check
type StabilityOptions struct {
	MaxParallel int
	FitOptions  betareg.Options
}

// GroupDropStability refits the model once per level of each grouping
// factor with that level's rows removed and compares coefficients
// against the full-data fit. The refits are independent, so they run
// concurrently; result order matches the (factor, level) enumeration.
func GroupDropStability(ctx context.Context, spec model.Spec, t *tabular.Table, base *model.Fit, opts StabilityOptions) (*StabilityReport, error) {
	if opts.MaxParallel < 1 {
		opts.MaxParallel = 1
	}

	type job struct {
		group string
		level string
	}
	var jobs []job
	for _, group := range spec.Groups {
		labels, ok := t.Labels[group]
		if !ok {
			continue
		}
		for _, level := range observedLevels(labels) {
			jobs = append(jobs, job{group: group, level: level})
		}
	}

	deviations := make([]LevelDeviation, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.MaxParallel)

	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			deviations[i] = dropAndRefit(spec, t, base, j.group, j.level, opts.FitOptions)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &StabilityReport{Model: base.Spec.Name, Deviations: deviations}
	for _, d := range deviations {
		if d.Converged && d.MaxAbsDelta > StabilityDeltaThreshold {
			report.Flagged = true
			break
		}
	}
	return report, nil
}

// dropAndRefit removes one level's rows, refits, and measures the
// largest coefficient shift. A refit that fails to converge is recorded
// and skipped, not escalated: the other refits stand on their own.
func dropAndRefit(spec model.Spec, t *tabular.Table, base *model.Fit, group, level string, fitOpts betareg.Options) LevelDeviation {
	labels := t.Labels[group]
	keep := make([]bool, t.Len())
	dropped := 0
	for i, l := range labels {
		if l == level {
			dropped++
		} else {
			keep[i] = true
		}
	}

	dev := LevelDeviation{Group: group, Level: level, RowsDropped: dropped}

	reduced := t.Filter(keep)
	refit, err := betareg.FitWithOptions(spec, reduced, fitOpts)
	if err != nil {
		dev.Reason = err.Error()
		return dev
	}
	dev.Converged = true

	for _, c := range base.Coefficients {
		rc, ok := refit.Coefficient(c.Name)
		if !ok {
			// The dropped level can remove a design column entirely
			// (e.g. a categorical level present only in that group).
			continue
		}
		delta := math.Abs(rc.Estimate - c.Estimate)
		if delta > dev.MaxAbsDelta {
			dev.MaxAbsDelta = delta
			dev.WorstTerm = c.Name
		}
	}
	return dev
}

func observedLevels(labels []string) []string {
	seen := make(map[string]struct{})
	var levels []string
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, dup := seen[l]; !dup {
			seen[l] = struct{}{}
			levels = append(levels, l)
		}
	}
	return levels
}
