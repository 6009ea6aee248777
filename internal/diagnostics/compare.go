package diagnostics

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"cdibeta/domain/core"
	"cdibeta/domain/model"
)

// LikelihoodRatio compares two fitted models with a chi-square
// likelihood-ratio test. One model's fixed-effect terms must be a strict
// subset of the other's; otherwise the comparison is rejected with a
// nesting error. The reported statistic is signed as
// 2*(logLik(second) - logLik(first)), so swapping the arguments flips
// its sign but never the p-value.
func LikelihoodRatio(first, second *model.Fit) (*model.Comparison, error) {
	if first.NObs != second.NObs {
		return nil, fmt.Errorf("%w: models were fit on %d and %d observations",
			core.ErrNotNested, first.NObs, second.NObs)
	}

	var df int
	switch {
	case model.StrictlyNested(first.Spec, second.Spec):
		df = second.NFixed - first.NFixed
	case model.StrictlyNested(second.Spec, first.Spec):
		df = first.NFixed - second.NFixed
	default:
		return nil, core.NewNestingError(first.Spec.Name, second.Spec.Name)
	}
	if df <= 0 {
		return nil, core.NewNestingError(first.Spec.Name, second.Spec.Name)
	}

	statistic := 2 * (second.LogLik - first.LogLik)
	abs := statistic
	if abs < 0 {
		abs = -abs
	}

	chi2 := distuv.ChiSquared{K: float64(df)}
	p := 1 - chi2.CDF(abs)
	if p < 0 {
		p = 0
	}

	return model.NewComparison(first.Spec.Name, second.Spec.Name, statistic, df, p)
}
