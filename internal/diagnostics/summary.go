package diagnostics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"cdibeta/domain/model"
)

// FitSummary holds the read-only per-model goodness-of-fit numbers
type FitSummary struct {
	Model         string
	MarginalR2    float64
	ConditionalR2 float64
	RMSE          float64
	LogLik        float64
	Dispersion    float64
	NObs          int
}

// Summarize computes pseudo-R² (marginal and conditional, Nakagawa
// variance decomposition on the link scale) and RMSE on the response
// scale for one fitted model.
func Summarize(fit *model.Fit) FitSummary {
	varFixed := stat.Variance(fit.LinearFixed, nil)
	varRandom := fit.TotalRandomVariance()
	varResidual := linkScaleResidualVariance(fit)

	total := varFixed + varRandom + varResidual
	marginal, conditional := math.NaN(), math.NaN()
	if total > 0 {
		marginal = varFixed / total
		conditional = (varFixed + varRandom) / total
	}

	sse := 0.0
	for i := range fit.Response {
		d := fit.Response[i] - fit.Fitted[i]
		sse += d * d
	}
	rmse := math.Sqrt(sse / float64(fit.NObs))

	return FitSummary{
		Model:         fit.Spec.Name,
		MarginalR2:    marginal,
		ConditionalR2: conditional,
		RMSE:          rmse,
		LogLik:        fit.LogLik,
		Dispersion:    fit.Dispersion,
		NObs:          fit.NObs,
	}
}

// linkScaleResidualVariance approximates the observation-level variance
// on the logit scale by the delta method:
// Var(logit y) ≈ Var(y)/(mu(1-mu))² = 1/((1+phi) mu (1-mu)), averaged
// over the fitted means.
func linkScaleResidualVariance(fit *model.Fit) float64 {
	sum := 0.0
	for _, mu := range fit.Fitted {
		sum += 1 / ((1 + fit.Dispersion) * mu * (1 - mu))
	}
	return sum / float64(fit.NObs)
}
