package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"cdibeta/domain/model"
	"cdibeta/internal/diagnostics"
	"cdibeta/internal/prepare"
)

// Writer renders the analysis run as plain console text, section by
// section in pipeline order. It never interprets results beyond the
// advisory wording the diagnostics already carry.
type Writer struct {
	w io.Writer
}

// NewWriter wraps an output stream
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (r *Writer) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format, args...)
}

func (r *Writer) rule(title string) {
	r.printf("\n%s\n%s\n", title, strings.Repeat("-", len(title)))
}

// Header prints the run identity block
func (r *Writer) Header(m *model.RunManifest) {
	r.printf("CDI vocabulary percentile analysis\n")
	r.printf("==================================\n")
	r.printf("run %s\n", m.RunID)
	r.printf("input: %s\n", m.InputPath)
	r.printf("seed: %d\n", m.Seed)
}

// Preprocessing prints the data preparation summary
func (r *Writer) Preprocessing(p *prepare.Prepared) {
	r.rule("Data preparation")
	r.printf("rows loaded: %d\n", p.RowsIn)
	r.printf("complete-case rows modeled: %d (dropped %d)\n", p.RowsOut, p.RowsIn-p.RowsOut)
	if p.Rescaled {
		r.printf("response rescaled from percentiles (0-100) to proportions\n")
	} else {
		r.printf("response already on the proportion scale; no rescale applied\n")
	}
	for name, s := range p.Standardized {
		r.printf("%s = (%s - %.4f) / %.4f\n", name, s.Source, s.Mean, s.StdDev)
	}
}

// Model prints one fitted model: formula, coefficient table, variance
// components, and goodness-of-fit numbers.
func (r *Writer) Model(fit *model.Fit, s diagnostics.FitSummary) {
	r.rule("Model: " + fit.Spec.Name)
	r.printf("%s\n\n", fit.Spec.Formula())

	r.printf("%-36s %12s %12s %8s\n", "term", "estimate", "std.err", "z")
	for _, c := range fit.Coefficients {
		z := math.NaN()
		if c.StdErr > 0 {
			z = c.Estimate / c.StdErr
		}
		r.printf("%-36s %12.4f %12.4f %8.2f\n", c.Name, c.Estimate, c.StdErr, z)
	}

	r.printf("\nrandom intercepts:\n")
	for _, vc := range fit.Variances {
		r.printf("  %-20s variance %.4f  sd %.4f  (%d levels)\n",
			vc.Group, vc.Variance, math.Sqrt(vc.Variance), vc.Levels)
	}

	r.printf("\ndispersion (phi): %.3f\n", fit.Dispersion)
	r.printf("log-likelihood: %.3f on %d observations\n", fit.LogLik, fit.NObs)
	r.printf("pseudo-R2: marginal %.4f, conditional %.4f\n", s.MarginalR2, s.ConditionalR2)
	r.printf("RMSE (response scale): %.4f\n", s.RMSE)
}

// ModelFailed prints a non-converged model so the run record stays
// complete even when a fit is unusable.
func (r *Writer) ModelFailed(spec model.Spec, err error) {
	r.rule("Model: " + spec.Name)
	r.printf("%s\n", spec.Formula())
	r.printf("FIT FAILED: %v\n", err)
}

// OverdispersionHeader opens the dispersion check section
func (r *Writer) OverdispersionHeader() {
	r.rule("Dispersion checks")
}

// Overdispersion prints the Pearson dispersion check for one model
func (r *Writer) Overdispersion(rep diagnostics.OverdispersionReport) {
	flag := " "
	if rep.Flagged {
		flag = "!"
	}
	r.printf("%s overdispersion [%s]: %s\n", flag, rep.Model, rep.Description)
}

// VIF prints the collinearity table for the full model
func (r *Writer) VIF(entries []diagnostics.VIFEntry) {
	r.rule("Collinearity (VIF, full model fixed effects)")
	for _, e := range entries {
		flag := " "
		if e.Flagged {
			flag = "!"
		}
		if math.IsInf(e.VIF, 1) {
			r.printf("%s %-36s Inf (perfectly collinear)\n", flag, e.Name)
			continue
		}
		r.printf("%s %-36s %.3f\n", flag, e.Name, e.VIF)
	}
	r.printf("entries above %.1f are marked; treat them as a caution, not a verdict\n", diagnostics.VIFThreshold)
}

// Normality prints the random-effects normality checks
func (r *Writer) Normality(reports []diagnostics.NormalityReport) {
	r.rule("Random-effects normality")
	for _, rep := range reports {
		if math.IsNaN(rep.PValue) {
			r.printf("%-20s %d levels: %s\n", rep.Group, rep.Levels, rep.Note)
			continue
		}
		r.printf("%-20s %d levels: K2 %.3f, p %.4f (%s)\n",
			rep.Group, rep.Levels, rep.Statistic, rep.PValue, rep.Note)
	}
}

// Comparison prints one likelihood-ratio test
func (r *Writer) Comparison(c *model.Comparison) {
	r.printf("%s vs %s: chi2(%d) = %.4f, p = %.4g\n",
		c.First, c.Second, c.DF, c.Statistic, c.PValue)
}

// ComparisonHeader opens the model comparison section
func (r *Writer) ComparisonHeader() {
	r.rule("Likelihood-ratio tests")
}

// ComparisonFailed records a comparison that could not run
func (r *Writer) ComparisonFailed(first, second string, err error) {
	r.printf("%s vs %s: not computed (%v)\n", first, second, err)
}

// Stability prints the group-drop sensitivity table
func (r *Writer) Stability(rep *diagnostics.StabilityReport) {
	r.rule("Group-drop stability: " + rep.Model)
	for _, d := range rep.Deviations {
		if !d.Converged {
			r.printf("  drop %s=%s (%d rows): refit did not converge (%s)\n",
				d.Group, d.Level, d.RowsDropped, d.Reason)
			continue
		}
		flag := " "
		if d.MaxAbsDelta > diagnostics.StabilityDeltaThreshold {
			flag = "!"
		}
		r.printf("%s drop %s=%s (%d rows): max |delta| %.4f on %s\n",
			flag, d.Group, d.Level, d.RowsDropped, d.MaxAbsDelta, d.WorstTerm)
	}
	if rep.Flagged {
		r.printf("some levels move coefficients by more than %.1f on the link scale; inspect those labs or subjects\n",
			diagnostics.StabilityDeltaThreshold)
	}
}

// Footer prints the closing manifest line
func (r *Writer) Footer(m *model.RunManifest) {
	r.rule("Run summary")
	r.printf("models fit: %d, failed: %d\n", m.ModelsFit, m.ModelsFailed)
	r.printf("rows: %d loaded, %d modeled\n", m.RowsLoaded, m.RowsModeled)
	r.printf("runtime: %d ms\n", m.RuntimeMs)
	r.printf("\nExploratory analysis. Findings are descriptive and advisory; they are\nnot corrections and do not gate any result.\n")
}
