package diagnostics

import (
	"math"
	"testing"

	"cdibeta/domain/core"
	"cdibeta/domain/model"
	"cdibeta/internal/betareg"
)

func fitArtifact(name string, terms []model.Term, logLik float64, nObs int) *model.Fit {
	return &model.Fit{
		Spec:   model.Spec{Name: name, Response: "y", Terms: terms, Groups: []string{"lab"}},
		LogLik: logLik,
		NObs:   nObs,
		NFixed: len(terms) + 1,
	}
}

func TestLikelihoodRatio(t *testing.T) {
	null := fitArtifact("null", []model.Term{model.NewTerm("age")}, -120.0, 200)
	full := fitArtifact("full", []model.Term{model.NewTerm("age"), model.NewTerm("x")}, -115.0, 200)

	cmp, err := LikelihoodRatio(null, full)
	if err != nil {
		t.Fatalf("LikelihoodRatio: %v", err)
	}

	if cmp.DF != 1 {
		t.Errorf("df = %d, want 1", cmp.DF)
	}
	if math.Abs(cmp.Statistic-10.0) > 1e-12 {
		t.Errorf("statistic = %g, want 10", cmp.Statistic)
	}
	// chi2(1) upper tail at 10 is about 0.00157
	if cmp.PValue < 0.001 || cmp.PValue > 0.002 {
		t.Errorf("p = %g, want about 0.00157", cmp.PValue)
	}
}

func TestLikelihoodRatioSymmetricUnderSwap(t *testing.T) {
	null := fitArtifact("null", []model.Term{model.NewTerm("age")}, -120.0, 200)
	full := fitArtifact("full", []model.Term{model.NewTerm("age"), model.NewTerm("x")}, -115.0, 200)

	forward, err := LikelihoodRatio(null, full)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	backward, err := LikelihoodRatio(full, null)
	if err != nil {
		t.Fatalf("backward: %v", err)
	}

	if forward.Statistic != -backward.Statistic {
		t.Errorf("statistic should flip sign under swap: %g vs %g", forward.Statistic, backward.Statistic)
	}
	if forward.PValue != backward.PValue {
		t.Errorf("p-value must not depend on argument order: %g vs %g", forward.PValue, backward.PValue)
	}
	if forward.DF != backward.DF {
		t.Errorf("df must not depend on argument order: %d vs %d", forward.DF, backward.DF)
	}
}

func TestLikelihoodRatioRejectsNonNested(t *testing.T) {
	a := fitArtifact("a", []model.Term{model.NewTerm("age")}, -120.0, 200)
	b := fitArtifact("b", []model.Term{model.NewTerm("x")}, -118.0, 200)

	_, err := LikelihoodRatio(a, b)
	if !core.IsNestingError(err) {
		t.Fatalf("expected nesting error, got %v", err)
	}
}

func TestLikelihoodRatioRejectsIdenticalTerms(t *testing.T) {
	a := fitArtifact("a", []model.Term{model.NewTerm("age")}, -120.0, 200)
	b := fitArtifact("b", []model.Term{model.NewTerm("age")}, -119.0, 200)

	_, err := LikelihoodRatio(a, b)
	if !core.IsNestingError(err) {
		t.Fatalf("identical term sets are not strictly nested, got %v", err)
	}
}

// fitPair fits an intercept-only null and an x-slope full model on the
// same simulated grouped data and returns their comparison.
func fitPair(t *testing.T, effect float64) *model.Comparison {
	t.Helper()
	table := groupedBetaTable(29, 8, 30, effect)

	full := model.Spec{Name: "full", Response: "y", Terms: []model.Term{model.NewTerm("x")}, Groups: []string{"g"}}
	null := model.Spec{Name: "null", Response: "y", Groups: []string{"g"}}

	nullFit, err := betareg.Fit(null, table)
	if err != nil {
		t.Fatalf("null fit: %v", err)
	}
	fullFit, err := betareg.Fit(full, table)
	if err != nil {
		t.Fatalf("full fit: %v", err)
	}

	cmp, err := LikelihoodRatio(nullFit, fullFit)
	if err != nil {
		t.Fatalf("LikelihoodRatio: %v", err)
	}
	return cmp
}

func TestLikelihoodRatioDetectsRealEffect(t *testing.T) {
	cmp := fitPair(t, 0.8)
	if cmp.Statistic <= 0 {
		t.Errorf("statistic = %g, want positive when the richer model fits better", cmp.Statistic)
	}
	if cmp.PValue >= 0.05 {
		t.Errorf("p = %g, want clear evidence for a strong simulated effect", cmp.PValue)
	}
	t.Logf("effect 0.8: chi2(%d) = %.3f, p = %.4g", cmp.DF, cmp.Statistic, cmp.PValue)
}

func TestLikelihoodRatioStaysCalmUnderNullEffect(t *testing.T) {
	cmp := fitPair(t, 0)
	if cmp.PValue < 0.01 {
		t.Errorf("p = %g, strong evidence for a predictor that has no effect", cmp.PValue)
	}
	t.Logf("effect 0: chi2(%d) = %.3f, p = %.4g", cmp.DF, cmp.Statistic, cmp.PValue)
}

func TestLikelihoodRatioRejectsDifferentSamples(t *testing.T) {
	null := fitArtifact("null", []model.Term{model.NewTerm("age")}, -120.0, 200)
	full := fitArtifact("full", []model.Term{model.NewTerm("age"), model.NewTerm("x")}, -115.0, 190)

	_, err := LikelihoodRatio(null, full)
	if !core.IsNestingError(err) {
		t.Fatalf("different observation counts must be rejected, got %v", err)
	}
}
