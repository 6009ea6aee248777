package model

import (
	"sort"
	"strings"
)

// Term is a single fixed-effect term: one variable for a main effect,
// two or more for an interaction.
type Term struct {
	Vars []string
}

// NewTerm creates a term from its component variables
func NewTerm(vars ...string) Term {
	v := make([]string, len(vars))
	copy(v, vars)
	return Term{Vars: v}
}

// Key returns an order-independent identity for the term, so that
// a:b and b:a compare equal when checking nesting.
func (t Term) Key() string {
	v := make([]string, len(t.Vars))
	copy(v, t.Vars)
	sort.Strings(v)
	return strings.Join(v, ":")
}

// String returns the display form of the term
func (t Term) String() string {
	return strings.Join(t.Vars, ":")
}

// Involves reports whether the term references the given variable
func (t Term) Involves(name string) bool {
	for _, v := range t.Vars {
		if v == name {
			return true
		}
	}
	return false
}

// Spec is a complete model specification: response, fixed-effect terms,
// and random-intercept grouping factors. Specs are value records; the
// fitter never parses formula strings.
type Spec struct {
	Name     string
	Response string
	Terms    []Term
	Groups   []string
}

// Formula renders a human-readable formula for reports
func (s Spec) Formula() string {
	parts := make([]string, 0, len(s.Terms)+len(s.Groups))
	for _, t := range s.Terms {
		parts = append(parts, t.String())
	}
	for _, g := range s.Groups {
		parts = append(parts, "(1|"+g+")")
	}
	return s.Response + " ~ " + strings.Join(parts, " + ")
}

// TermKeys returns the canonical term identity set
func (s Spec) TermKeys() map[string]struct{} {
	keys := make(map[string]struct{}, len(s.Terms))
	for _, t := range s.Terms {
		keys[t.Key()] = struct{}{}
	}
	return keys
}

// Variables returns every dataset variable the model references:
// response, fixed-effect variables, and grouping factors. This is the
// declared complete-case list used by the preprocessor.
func (s Spec) Variables() []string {
	seen := map[string]struct{}{s.Response: {}}
	out := []string{s.Response}
	add := func(name string) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	for _, t := range s.Terms {
		for _, v := range t.Vars {
			add(v)
		}
	}
	for _, g := range s.Groups {
		add(g)
	}
	return out
}

// NestedIn reports whether every fixed-effect term of s appears in other,
// with matching response and grouping structure.
func (s Spec) NestedIn(other Spec) bool {
	if s.Response != other.Response {
		return false
	}
	if len(s.Groups) != len(other.Groups) {
		return false
	}
	for i, g := range s.Groups {
		if other.Groups[i] != g {
			return false
		}
	}
	keys := other.TermKeys()
	for _, t := range s.Terms {
		if _, ok := keys[t.Key()]; !ok {
			return false
		}
	}
	return true
}

// StrictlyNested reports whether null's terms are a strict subset of full's
func StrictlyNested(null, full Spec) bool {
	return null.NestedIn(full) && len(null.Terms) < len(full.Terms)
}

// Config generates the model quartet from one declaration instead of
// four copy-pasted formulas. The predictor of interest enters as a main
// effect plus interactions with the age covariate and each moderator;
// covariates are additive only.
type Config struct {
	Response     string
	Predictor    string
	AgeCovariate string
	Moderators   []string
	Covariates   []string
	Groups       []string
}

// Spec builds a single model specification from the configuration flags
func (c Config) Spec(name string, withPredictor, withInteractions bool) Spec {
	var terms []Term
	if withPredictor {
		terms = append(terms, NewTerm(c.Predictor))
	}
	terms = append(terms, NewTerm(c.AgeCovariate))
	if withPredictor && withInteractions {
		terms = append(terms, NewTerm(c.Predictor, c.AgeCovariate))
	}
	for _, m := range c.Moderators {
		terms = append(terms, NewTerm(m))
		if withPredictor && withInteractions {
			terms = append(terms, NewTerm(c.Predictor, m))
		}
	}
	for _, v := range c.Covariates {
		terms = append(terms, NewTerm(v))
	}
	groups := make([]string, len(c.Groups))
	copy(groups, c.Groups)
	return Spec{Name: name, Response: c.Response, Terms: terms, Groups: groups}
}

// Model quartet names
const (
	ModelFull      = "full"
	ModelNull      = "null"
	ModelFullNoInt = "full_no_interaction"
	ModelNullNoInt = "null_no_interaction"
)

// Quartet generates the four analysis models: full and null, each with
// and without the predictor interactions. The null specs are strict
// subsets of their full counterparts by construction.
func (c Config) Quartet() []Spec {
	return []Spec{
		c.Spec(ModelFull, true, true),
		c.Spec(ModelNull, false, true),
		c.Spec(ModelFullNoInt, true, false),
		c.Spec(ModelNullNoInt, false, false),
	}
}
