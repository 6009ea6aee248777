package betareg

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"cdibeta/adapters/tabular"
	"cdibeta/domain/core"
	"cdibeta/domain/model"
)

// InterceptName is the design column for the model intercept
const InterceptName = "(Intercept)"

// GroupIndex maps each observation to a level of one grouping factor
type GroupIndex struct {
	Name   string
	Levels []string
	Index  []int // row -> position in Levels
}

// Design is the numeric realization of a model specification on a
// prepared dataset: response vector, fixed-effect matrix with treatment
// coding, and per-factor grouping indices.
type Design struct {
	Names  []string
	X      *mat.Dense
	Y      []float64
	Groups []GroupIndex
}

// NFixed returns the number of fixed-effect columns including intercept
func (d *Design) NFixed() int {
	return len(d.Names)
}

// NObs returns the observation count
func (d *Design) NObs() int {
	return len(d.Y)
}

// column is one expanded design column before assembly
type column struct {
	name   string
	values []float64
}

// Build realizes a model spec against a table. Categorical variables use
// treatment coding with the first observed level as reference; an
// interaction term expands to the product of its components' columns.
// The table must already be complete-case filtered for the spec.
func Build(spec model.Spec, t *tabular.Table) (*Design, error) {
	n := t.Len()
	if n == 0 {
		return nil, fmt.Errorf("%w: empty table", core.ErrInsufficientData)
	}

	y, ok := t.Numeric[spec.Response]
	if !ok {
		return nil, fmt.Errorf("%w: response %s", core.ErrUnknownVariable, spec.Response)
	}
	for i, v := range y {
		if !(v > 0 && v < 1) {
			return nil, fmt.Errorf("%w: response %g at row %d outside (0,1); run preprocessing first", core.ErrInsufficientData, v, i)
		}
	}

	cols := []column{{name: InterceptName, values: ones(n)}}
	for _, term := range spec.Terms {
		expanded, err := expandTerm(term, t)
		if err != nil {
			return nil, err
		}
		cols = append(cols, expanded...)
	}

	x := mat.NewDense(n, len(cols), nil)
	names := make([]string, len(cols))
	for j, c := range cols {
		names[j] = c.name
		x.SetCol(j, c.values)
	}

	groups := make([]GroupIndex, 0, len(spec.Groups))
	for _, g := range spec.Groups {
		gi, err := buildGroupIndex(g, t)
		if err != nil {
			return nil, err
		}
		groups = append(groups, gi)
	}

	yCopy := make([]float64, n)
	copy(yCopy, y)
	return &Design{Names: names, X: x, Y: yCopy, Groups: groups}, nil
}

// expandTerm turns one term into design columns: the cross product of
// each component variable's expansion.
func expandTerm(term model.Term, t *tabular.Table) ([]column, error) {
	parts := make([][]column, 0, len(term.Vars))
	for _, v := range term.Vars {
		expanded, err := expandVariable(v, t)
		if err != nil {
			return nil, err
		}
		parts = append(parts, expanded)
	}

	out := parts[0]
	for _, next := range parts[1:] {
		var crossed []column
		for _, a := range out {
			for _, b := range next {
				values := make([]float64, len(a.values))
				for i := range values {
					values[i] = a.values[i] * b.values[i]
				}
				crossed = append(crossed, column{name: a.name + ":" + b.name, values: values})
			}
		}
		out = crossed
	}
	return out, nil
}

// expandVariable yields one column for a numeric variable or one
// indicator per non-reference level for a label variable.
func expandVariable(name string, t *tabular.Table) ([]column, error) {
	if values, ok := t.Numeric[name]; ok {
		cp := make([]float64, len(values))
		copy(cp, values)
		return []column{{name: name, values: cp}}, nil
	}

	labels, ok := t.Labels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownVariable, name)
	}

	levels := t.Levels[name]
	if levels == nil {
		levels = observedLevels(labels)
	}
	if len(levels) < 2 {
		return nil, fmt.Errorf("%w: %s has fewer than 2 levels", core.ErrInsufficientData, name)
	}

	cols := make([]column, 0, len(levels)-1)
	for _, level := range levels[1:] {
		values := make([]float64, len(labels))
		for i, l := range labels {
			if l == level {
				values[i] = 1
			}
		}
		cols = append(cols, column{name: fmt.Sprintf("%s[%s]", name, level), values: values})
	}
	return cols, nil
}

func buildGroupIndex(name string, t *tabular.Table) (GroupIndex, error) {
	labels, ok := t.Labels[name]
	if !ok {
		return GroupIndex{}, fmt.Errorf("%w: grouping factor %s", core.ErrUnknownVariable, name)
	}
	levels := observedLevels(labels)
	if len(levels) == 0 {
		return GroupIndex{}, fmt.Errorf("%w: grouping factor %s has no levels", core.ErrInsufficientData, name)
	}
	pos := make(map[string]int, len(levels))
	for i, l := range levels {
		pos[l] = i
	}
	index := make([]int, len(labels))
	for i, l := range labels {
		index[i] = pos[l]
	}
	return GroupIndex{Name: name, Levels: levels, Index: index}, nil
}

func observedLevels(labels []string) []string {
	seen := make(map[string]struct{})
	var levels []string
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, dup := seen[l]; !dup {
			seen[l] = struct{}{}
			levels = append(levels, l)
		}
	}
	return levels
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}
