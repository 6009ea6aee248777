package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testConfig() Config {
	return Config{
		Response:     "y",
		Predictor:    "x",
		AgeCovariate: "age",
		Moderators:   []string{"band", "method"},
		Covariates:   []string{"sex"},
		Groups:       []string{"lab", "subject"},
	}
}

func TestTermKeyIsOrderIndependent(t *testing.T) {
	a := NewTerm("x", "age")
	b := NewTerm("age", "x")
	if a.Key() != b.Key() {
		t.Errorf("expected %q and %q to share a key", a.String(), b.String())
	}
	if a.String() == b.String() {
		t.Error("display form should preserve declaration order")
	}
}

func TestQuartetNesting(t *testing.T) {
	specs := testConfig().Quartet()
	byName := make(map[string]Spec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}

	assert.True(t, StrictlyNested(byName[ModelNull], byName[ModelFull]),
		"null must be strictly nested in full")
	assert.True(t, StrictlyNested(byName[ModelNullNoInt], byName[ModelFullNoInt]),
		"no-interaction null must be strictly nested in its full counterpart")
	assert.False(t, StrictlyNested(byName[ModelFull], byName[ModelNull]),
		"nesting is directional")
}

func TestFullAndNullDifferOnlyInPredictorTerms(t *testing.T) {
	cfg := testConfig()
	full := cfg.Spec(ModelFull, true, true)
	null := cfg.Spec(ModelNull, false, true)

	nullKeys := null.TermKeys()
	for _, term := range full.Terms {
		_, shared := nullKeys[term.Key()]
		if term.Involves(cfg.Predictor) {
			if shared {
				t.Errorf("null model must not contain predictor term %s", term)
			}
		} else if !shared {
			t.Errorf("non-predictor term %s missing from null model", term)
		}
	}
}

func TestNestedInRejectsDifferentGrouping(t *testing.T) {
	cfg := testConfig()
	null := cfg.Spec(ModelNull, false, true)
	full := cfg.Spec(ModelFull, true, true)
	full.Groups = []string{"lab"}

	if null.NestedIn(full) {
		t.Error("models with different grouping structures are not nested")
	}
}

func TestVariablesCoversResponseTermsAndGroups(t *testing.T) {
	full := testConfig().Spec(ModelFull, true, true)
	vars := full.Variables()

	want := []string{"y", "x", "age", "band", "method", "sex", "lab", "subject"}
	assert.ElementsMatch(t, want, vars)
}

func TestFormulaRendersRandomIntercepts(t *testing.T) {
	s := testConfig().Spec(ModelNullNoInt, false, false)
	got := s.Formula()
	want := "y ~ age + band + method + sex + (1|lab) + (1|subject)"
	if got != want {
		t.Errorf("formula = %q, want %q", got, want)
	}
}
