package betareg

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

// Beta family with mean/precision parameterization and logit link.
// For response y in (0,1), mean mu and precision phi:
//
//	y ~ Beta(mu*phi, (1-mu)*phi)
//	Var(y) = mu*(1-mu)/(1+phi)

// logit maps (0,1) to the real line
func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

// invLogit maps the real line to (0,1)
func invLogit(x float64) float64 {
	if x > 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// muVariance is the response variance implied by mu and phi
func muVariance(mu, phi float64) float64 {
	return mu * (1 - mu) / (1 + phi)
}

// logDensity is the beta log-density at y for mean mu, precision phi
func logDensity(y, mu, phi float64) float64 {
	a := mu * phi
	b := (1 - mu) * phi
	la, _ := math.Lgamma(phi)
	lb, _ := math.Lgamma(a)
	lc, _ := math.Lgamma(b)
	return la - lb - lc + (a-1)*math.Log(y) + (b-1)*math.Log(1-y)
}

// dLogDensityDMu is the partial derivative of logDensity in mu
func dLogDensityDMu(y, mu, phi float64) float64 {
	a := mu * phi
	b := (1 - mu) * phi
	return phi * (mathext.Digamma(b) - mathext.Digamma(a) + math.Log(y) - math.Log(1-y))
}

// dLogDensityDPhi is the partial derivative of logDensity in phi
func dLogDensityDPhi(y, mu, phi float64) float64 {
	a := mu * phi
	b := (1 - mu) * phi
	return mathext.Digamma(phi) -
		mu*mathext.Digamma(a) - (1-mu)*mathext.Digamma(b) +
		mu*math.Log(y) + (1-mu)*math.Log(1-y)
}
