package diagnostics

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"

	"cdibeta/adapters/tabular"
	"cdibeta/domain/model"
	"cdibeta/internal/betareg"
)

func stabilityTable(seed uint64, labs, perLab int) *tabular.Table {
	return groupedBetaTable(seed, labs, perLab, 0.3)
}

func groupedBetaTable(seed uint64, labs, perLab int, effect float64) *tabular.Table {
	src := rand.NewPCG(seed, seed*3+1)
	rng := rand.New(src)
	normal := distuv.Normal{Mu: 0, Sigma: 0.2, Src: src}

	n := labs * perLab
	y := make([]float64, 0, n)
	x := make([]float64, 0, n)
	g := make([]string, 0, n)
	for li := 0; li < labs; li++ {
		name := fmt.Sprintf("l%02d", li)
		offset := normal.Rand()
		for o := 0; o < perLab; o++ {
			xv := rng.NormFloat64()
			mu := 1 / (1 + math.Exp(-(effect*xv + offset)))
			b := distuv.Beta{Alpha: mu * 30, Beta: (1 - mu) * 30, Src: src}
			y = append(y, math.Min(math.Max(b.Rand(), 1e-4), 1-1e-4))
			x = append(x, xv)
			g = append(g, name)
		}
	}

	t := tabular.NewTable(n)
	t.SetNumeric("y", y)
	t.SetNumeric("x", x)
	t.SetLabels("g", g)
	return t
}

func TestGroupDropStability(t *testing.T) {
	table := stabilityTable(17, 6, 25)
	spec := model.Spec{
		Name:     "full",
		Response: "y",
		Terms:    []model.Term{model.NewTerm("x")},
		Groups:   []string{"g"},
	}

	base, err := betareg.Fit(spec, table)
	if err != nil {
		t.Fatalf("base fit: %v", err)
	}

	rep, err := GroupDropStability(context.Background(), spec, table, base, StabilityOptions{
		MaxParallel: 3,
		FitOptions:  betareg.DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("GroupDropStability: %v", err)
	}

	if rep.Model != "full" {
		t.Errorf("model = %q", rep.Model)
	}
	if len(rep.Deviations) != 6 {
		t.Fatalf("deviations = %d, want one per lab", len(rep.Deviations))
	}
	for _, d := range rep.Deviations {
		if d.Group != "g" {
			t.Errorf("deviation group = %q", d.Group)
		}
		if d.RowsDropped != 25 {
			t.Errorf("drop %s: rows dropped = %d, want 25", d.Level, d.RowsDropped)
		}
		if !d.Converged {
			t.Errorf("drop %s: refit did not converge (%s)", d.Level, d.Reason)
			continue
		}
		if math.IsNaN(d.MaxAbsDelta) || math.IsInf(d.MaxAbsDelta, 0) {
			t.Errorf("drop %s: max |delta| = %g", d.Level, d.MaxAbsDelta)
		}
		// A homogeneous simulation should not move coefficients much.
		if d.MaxAbsDelta > StabilityDeltaThreshold {
			t.Logf("drop %s moved %s by %.3f", d.Level, d.WorstTerm, d.MaxAbsDelta)
		}
	}
}

func TestGroupDropStabilityHonorsCancellation(t *testing.T) {
	table := stabilityTable(19, 4, 20)
	spec := model.Spec{
		Name:     "full",
		Response: "y",
		Terms:    []model.Term{model.NewTerm("x")},
		Groups:   []string{"g"},
	}
	base, err := betareg.Fit(spec, table)
	if err != nil {
		t.Fatalf("base fit: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = GroupDropStability(ctx, spec, table, base, StabilityOptions{MaxParallel: 1, FitOptions: betareg.DefaultOptions()})
	if err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
}
