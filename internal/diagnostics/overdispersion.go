package diagnostics

import (
	"fmt"

	"cdibeta/domain/model"
	"cdibeta/internal/betareg"
)

// OverdispersionThreshold flags dispersion ratios above this value
const OverdispersionThreshold = 1.0

// OverdispersionReport is the Pearson dispersion check for one model.
// An exceeded threshold is an advisory finding, never a correction: the
// decision to respecify stays with the analyst.
type OverdispersionReport struct {
	Model       string
	Ratio       float64
	ResidualDF  int
	Flagged     bool
	Description string
}

// Overdispersion computes the Pearson chi-square dispersion statistic
// (sum of squared Pearson residuals over residual degrees of freedom).
func Overdispersion(fit *model.Fit) OverdispersionReport {
	res := betareg.PearsonResiduals(fit)
	ss := 0.0
	for _, r := range res {
		ss += r * r
	}
	df := fit.NObs - fit.NFixed
	if df < 1 {
		df = 1
	}
	ratio := ss / float64(df)

	report := OverdispersionReport{
		Model:      fit.Spec.Name,
		Ratio:      ratio,
		ResidualDF: df,
		Flagged:    ratio > OverdispersionThreshold,
	}
	if report.Flagged {
		report.Description = fmt.Sprintf(
			"dispersion ratio %.3f exceeds %.1f; estimates may be less reliable than their standard errors suggest",
			ratio, OverdispersionThreshold)
	} else {
		report.Description = fmt.Sprintf("dispersion ratio %.3f within expectation", ratio)
	}
	return report
}
