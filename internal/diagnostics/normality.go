package diagnostics

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"cdibeta/domain/model"
)

// NormalityReport is the qualitative normality check of the conditional
// random-intercept estimates for one grouping factor. It informs
// judgment; nothing downstream gates on it.
type NormalityReport struct {
	Group     string
	Levels    int
	Statistic float64
	PValue    float64
	Normal    bool
	Note      string
}

// RandomEffectsNormality inspects the per-level intercept estimates of
// each grouping factor with a D'Agostino K² test. Factors with too few
// levels report an inconclusive result instead of a p-value.
func RandomEffectsNormality(fit *model.Fit) []NormalityReport {
	reports := make([]NormalityReport, 0, len(fit.GroupEffects))
	for _, vc := range fit.Variances {
		effects := fit.GroupEffects[vc.Group]
		values := make([]float64, len(effects))
		for i, e := range effects {
			values[i] = e.Effect
		}

		report := NormalityReport{Group: vc.Group, Levels: len(values)}
		if len(values) < 8 {
			report.PValue = math.NaN()
			report.Note = "too few levels for a formal test; inspect the estimates directly"
		} else {
			k2, p, normal := dagostinoK2(values)
			report.Statistic = k2
			report.Normal = normal
			report.PValue = p
			if normal {
				report.Note = "no evidence against normality of the level intercepts"
			} else {
				report.Note = "level intercepts deviate from normality; random-effects assumption is questionable"
			}
		}
		reports = append(reports, report)
	}
	return reports
}

// dagostinoK2 runs D'Agostino's K² normality test: skewness and kurtosis
// are transformed to approximate normal deviates and combined into a
// chi-square statistic with 2 degrees of freedom.
func dagostinoK2(data []float64) (k2, pValue float64, isNormal bool) {
	n := float64(len(data))

	mean, _ := stats.Mean(data)
	stdDev, _ := stats.StandardDeviation(data)
	if stdDev == 0 || math.IsNaN(stdDev) || math.IsInf(stdDev, 0) {
		return 0, 1.0, false
	}

	g1 := sampleSkewness(data, mean, stdDev)
	g2 := sampleKurtosis(data, mean, stdDev)

	// Skewness transform to Z1 (D'Agostino)
	y := g1 * math.Sqrt((n+1)*(n+3)/(6*(n-2)))
	beta2 := (3 * (n*n + 27*n - 70) * (n + 1) * (n + 3)) / ((n - 2) * (n + 5) * (n + 7) * (n + 9))
	w2 := -1 + math.Sqrt(2*(beta2-1))
	if w2 <= 0 {
		return 0, 1.0, false
	}
	delta := 1 / math.Sqrt(math.Log(math.Sqrt(w2)))
	alpha := math.Sqrt(2 / (w2 - 1))
	ay := y / alpha
	z1 := delta * math.Log(ay+math.Sqrt(ay*ay+1))

	// Kurtosis transform to Z2 (Anscombe-Glynn)
	e := 3 * (n - 1) / (n + 1)
	v := 24 * n * (n - 2) * (n - 3) / ((n + 1) * (n + 1) * (n + 3) * (n + 5))
	if v <= 0 {
		return 0, 1.0, false
	}
	xk := (g2 - e) / math.Sqrt(v)

	sqrtBeta1 := 6 * (n*n - 5*n + 2) / ((n + 7) * (n + 9)) * math.Sqrt(6*(n+3)*(n+5)/(n*(n-2)*(n-3)))
	a := 6 + 8/sqrtBeta1*(2/sqrtBeta1+math.Sqrt(1+4/(sqrtBeta1*sqrtBeta1)))
	if a <= 4 {
		return 0, 1.0, false
	}

	term := 1 - 2/(9*a)
	den := 1 + xk*math.Sqrt(2/(a-4))
	if den <= 0 {
		return 0, 0.0, false
	}
	z2 := (term - math.Pow((1-2/a)/den, 1.0/3.0)) / math.Sqrt(2/(9*a))

	k2 = z1*z1 + z2*z2
	chi2 := distuv.ChiSquared{K: 2}
	pValue = 1 - chi2.CDF(k2)
	isNormal = pValue > 0.05
	return k2, pValue, isNormal
}

// sampleSkewness is the adjusted Fisher-Pearson coefficient
func sampleSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sum += d * d * d
	}
	return sum / n * math.Sqrt(n*(n-1)) / (n - 2)
}

// sampleKurtosis returns total (not excess) kurtosis with bias correction
func sampleKurtosis(data []float64, mean, stdDev float64) float64 {
	if len(data) < 4 || stdDev == 0 {
		return 3.0
	}
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sum += d * d * d * d
	}
	kurtosis := sum / n
	if n > 3 {
		correction := (n - 1) / ((n - 2) * (n - 3))
		kurtosis = kurtosis*correction + 6/(n+1)
	}
	return kurtosis + 3
}
