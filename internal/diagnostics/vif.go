package diagnostics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"cdibeta/adapters/tabular"
	"cdibeta/domain/model"
	"cdibeta/internal/betareg"
)

// VIFThreshold is the documented concern level for collinearity
const VIFThreshold = 2.0

// VIFEntry is the variance inflation factor for one fixed-effect column
type VIFEntry struct {
	Name    string
	VIF     float64
	Flagged bool
}

// VIF fits an ordinary (non-mixed) linear regression structure on the
// model's fixed effects and reports per-column variance inflation
// factors: 1/(1-R²) from regressing each column on all the others.
// Perfectly collinear columns report +Inf.
func VIF(spec model.Spec, t *tabular.Table) ([]VIFEntry, error) {
	design, err := betareg.Build(spec, t)
	if err != nil {
		return nil, err
	}

	n, p := design.X.Dims()
	entries := make([]VIFEntry, 0, p-1)

	// Column 0 is the intercept; it stays on the predictor side of
	// every auxiliary regression but gets no VIF of its own.
	for j := 1; j < p; j++ {
		y := mat.Col(nil, j, design.X)

		a := mat.NewDense(n, p-1, nil)
		col := 0
		for k := 0; k < p; k++ {
			if k == j {
				continue
			}
			a.SetCol(col, mat.Col(nil, k, design.X))
			col++
		}

		r2 := rSquared(a, y)
		vif := math.Inf(1)
		if !math.IsNaN(r2) && r2 < 1-1e-12 {
			vif = 1 / (1 - r2)
		}
		entries = append(entries, VIFEntry{
			Name:    design.Names[j],
			VIF:     vif,
			Flagged: vif > VIFThreshold,
		})
	}
	return entries, nil
}

// rSquared runs an OLS of y on a (which includes an intercept column)
// and returns the coefficient of determination. NaN means the least
// squares system could not be solved, which callers treat as perfect
// collinearity.
func rSquared(a *mat.Dense, y []float64) float64 {
	n, _ := a.Dims()

	var qr mat.QR
	qr.Factorize(a)

	b := mat.NewDense(n, 1, y)
	var coef mat.Dense
	if err := qr.SolveTo(&coef, false, b); err != nil {
		return math.NaN()
	}

	var pred mat.Dense
	pred.Mul(a, &coef)

	meanY := 0.0
	for _, v := range y {
		meanY += v
	}
	meanY /= float64(n)

	ssTot, ssRes := 0.0, 0.0
	for i, v := range y {
		d := v - meanY
		ssTot += d * d
		r := v - pred.At(i, 0)
		ssRes += r * r
	}
	if ssTot == 0 {
		return math.NaN()
	}
	return 1 - ssRes/ssTot
}
