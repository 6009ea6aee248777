package betareg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"cdibeta/adapters/tabular"
	"cdibeta/domain/core"
	"cdibeta/domain/model"
)

// Options controls the penalized maximum-likelihood fit
type Options struct {
	InitDispersion    float64 // starting precision phi
	MaxOuterIter      int     // variance-component update iterations
	OuterTol          float64 // tolerance on log variance changes
	GradientThreshold float64
	MaxIterations     int // inner optimizer major iterations
}

// DefaultOptions returns the fit settings used by the pipeline
func DefaultOptions() Options {
	return Options{
		InitDispersion:    10,
		MaxOuterIter:      50,
		OuterTol:          1e-3,
		GradientThreshold: 1e-5,
		MaxIterations:     1000,
	}
}

// Fit estimates a beta mixed-effects regression by penalized maximum
// likelihood: fixed effects and per-level random intercepts maximize the
// beta log-likelihood with Gaussian shrinkage on the intercepts, and the
// variance components update from the estimated intercepts until the
// estimates settle. Non-convergence is surfaced, never retried.
func Fit(spec model.Spec, t *tabular.Table) (*model.Fit, error) {
	return FitWithOptions(spec, t, DefaultOptions())
}

// FitWithOptions is Fit with explicit settings
func FitWithOptions(spec model.Spec, t *tabular.Table, opts Options) (*model.Fit, error) {
	design, err := Build(spec, t)
	if err != nil {
		return nil, err
	}

	fp := newProblem(design, opts)
	x := fp.initialPoint()

	settings := &optimize.Settings{
		GradientThreshold: opts.GradientThreshold,
		MajorIterations:   opts.MaxIterations,
	}
	problem := optimize.Problem{Func: fp.negLogLik, Grad: fp.grad}

	settled := len(design.Groups) == 0
	for iter := 0; iter < opts.MaxOuterIter; iter++ {
		result, err := optimize.Minimize(problem, x, settings, &optimize.LBFGS{})
		if err != nil {
			return nil, core.NewConvergenceError(spec.Name, err)
		}
		if !converged(result.Status) {
			return nil, core.NewConvergenceError(spec.Name, fmt.Errorf("optimizer status %v", result.Status))
		}
		x = result.X

		if len(design.Groups) == 0 {
			break
		}
		if delta := fp.updateVariances(x); delta < opts.OuterTol {
			settled = true
			break
		}
	}
	if !settled {
		return nil, core.NewConvergenceError(spec.Name,
			fmt.Errorf("variance components did not settle within %d iterations", opts.MaxOuterIter))
	}

	return fp.artifact(spec, x), nil
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.GradientThreshold, optimize.FunctionConvergence, optimize.StepConvergence:
		return true
	}
	return false
}

// fitProblem holds the parameter layout:
// [beta_0..beta_{p-1}, b per group level in group order, logPhi]
type fitProblem struct {
	d       *Design
	opts    Options
	p       int
	offsets []int // start of each group's intercept block
	dim     int
	sig2    []float64 // current variance component per group
}

func newProblem(d *Design, opts Options) *fitProblem {
	p := d.NFixed()
	offsets := make([]int, len(d.Groups))
	pos := p
	for g, gi := range d.Groups {
		offsets[g] = pos
		pos += len(gi.Levels)
	}
	sig2 := make([]float64, len(d.Groups))
	for i := range sig2 {
		sig2[i] = 1
	}
	return &fitProblem{d: d, opts: opts, p: p, offsets: offsets, dim: pos + 1, sig2: sig2}
}

func (fp *fitProblem) initialPoint() []float64 {
	x := make([]float64, fp.dim)
	meanY := floats.Sum(fp.d.Y) / float64(len(fp.d.Y))
	x[0] = logit(meanY)
	x[fp.dim-1] = math.Log(fp.opts.InitDispersion)
	return x
}

func (fp *fitProblem) eta(x []float64, i int) float64 {
	eta := 0.0
	for j := 0; j < fp.p; j++ {
		eta += x[j] * fp.d.X.At(i, j)
	}
	for g, gi := range fp.d.Groups {
		eta += x[fp.offsets[g]+gi.Index[i]]
	}
	return eta
}

// mu clamps away from the boundary so the log-likelihood stays finite
// during line searches.
func (fp *fitProblem) mu(x []float64, i int) float64 {
	const eps = 1e-10
	m := invLogit(fp.eta(x, i))
	return math.Min(math.Max(m, eps), 1-eps)
}

func (fp *fitProblem) phi(x []float64) float64 {
	return math.Exp(x[fp.dim-1])
}

func (fp *fitProblem) negLogLik(x []float64) float64 {
	phi := fp.phi(x)
	nll := 0.0
	for i, y := range fp.d.Y {
		nll -= logDensity(y, fp.mu(x, i), phi)
	}
	for g := range fp.d.Groups {
		off := fp.offsets[g]
		for l := 0; l < len(fp.d.Groups[g].Levels); l++ {
			b := x[off+l]
			nll += b * b / (2 * fp.sig2[g])
		}
	}
	return nll
}

func (fp *fitProblem) grad(dst, x []float64) {
	for j := range dst {
		dst[j] = 0
	}
	phi := fp.phi(x)
	dPhiSum := 0.0
	for i, y := range fp.d.Y {
		mu := fp.mu(x, i)
		d := dLogDensityDMu(y, mu, phi) * mu * (1 - mu)
		for j := 0; j < fp.p; j++ {
			dst[j] -= d * fp.d.X.At(i, j)
		}
		for g, gi := range fp.d.Groups {
			dst[fp.offsets[g]+gi.Index[i]] -= d
		}
		dPhiSum += dLogDensityDPhi(y, mu, phi)
	}
	dst[fp.dim-1] = -phi * dPhiSum
	for g := range fp.d.Groups {
		off := fp.offsets[g]
		for l := 0; l < len(fp.d.Groups[g].Levels); l++ {
			dst[off+l] += x[off+l] / fp.sig2[g]
		}
	}
}

// updateVariances sets each component to the mean square of its level
// intercepts and returns the largest absolute log-scale change.
func (fp *fitProblem) updateVariances(x []float64) float64 {
	const floor = 1e-8
	maxDelta := 0.0
	for g, gi := range fp.d.Groups {
		off := fp.offsets[g]
		ss := 0.0
		for l := 0; l < len(gi.Levels); l++ {
			ss += x[off+l] * x[off+l]
		}
		next := ss/float64(len(gi.Levels)) + floor
		delta := math.Abs(math.Log(next) - math.Log(fp.sig2[g]))
		if delta > maxDelta {
			maxDelta = delta
		}
		fp.sig2[g] = next
	}
	return maxDelta
}

// artifact assembles the immutable fit result
func (fp *fitProblem) artifact(spec model.Spec, x []float64) *model.Fit {
	phi := fp.phi(x)

	fitted := make([]float64, len(fp.d.Y))
	linearFixed := make([]float64, len(fp.d.Y))
	logLik := 0.0
	for i, y := range fp.d.Y {
		fitted[i] = fp.mu(x, i)
		logLik += logDensity(y, fitted[i], phi)
		for j := 0; j < fp.p; j++ {
			linearFixed[i] += x[j] * fp.d.X.At(i, j)
		}
	}

	ses := fp.standardErrors(x)
	coefs := make([]model.Coefficient, fp.p)
	for j := 0; j < fp.p; j++ {
		coefs[j] = model.Coefficient{Name: fp.d.Names[j], Estimate: x[j], StdErr: ses[j]}
	}

	variances := make([]model.VarianceComponent, len(fp.d.Groups))
	effects := make(map[string][]model.GroupEffect, len(fp.d.Groups))
	for g, gi := range fp.d.Groups {
		variances[g] = model.VarianceComponent{Group: gi.Name, Variance: fp.sig2[g], Levels: len(gi.Levels)}
		offs := make([]model.GroupEffect, len(gi.Levels))
		for l, level := range gi.Levels {
			offs[l] = model.GroupEffect{Level: level, Effect: x[fp.offsets[g]+l]}
		}
		effects[gi.Name] = offs
	}

	resp := make([]float64, len(fp.d.Y))
	copy(resp, fp.d.Y)

	return &model.Fit{
		Spec:         spec,
		Coefficients: coefs,
		Variances:    variances,
		GroupEffects: effects,
		Dispersion:   phi,
		LogLik:       logLik,
		NObs:         len(fp.d.Y),
		NFixed:       fp.p,
		Fitted:       fitted,
		LinearFixed:  linearFixed,
		Response:     resp,
		FittedAt:     core.Now(),
	}
}

// standardErrors inverts the observed information of the penalized
// objective at the optimum. Failure to factorize (near-singular
// information) yields NaN standard errors rather than an error: the
// point estimates remain usable by the diagnostics.
func (fp *fitProblem) standardErrors(x []float64) []float64 {
	ses := make([]float64, fp.p)
	for j := range ses {
		ses[j] = math.NaN()
	}

	hess := mat.NewSymDense(fp.dim, nil)
	fd.Hessian(hess, fp.negLogLik, x, nil)

	var chol mat.Cholesky
	if ok := chol.Factorize(hess); !ok {
		return ses
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return ses
	}
	for j := 0; j < fp.p; j++ {
		v := inv.At(j, j)
		if v > 0 {
			ses[j] = math.Sqrt(v)
		}
	}
	return ses
}

// PearsonResiduals returns (y - mu)/sqrt(Var(y)) for a fitted model
func PearsonResiduals(fit *model.Fit) []float64 {
	res := make([]float64, fit.NObs)
	for i := range res {
		mu := fit.Fitted[i]
		res[i] = (fit.Response[i] - mu) / math.Sqrt(muVariance(mu, fit.Dispersion))
	}
	return res
}
