/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package router

import (
	"strings"

	"github.com/pkg/errors"
)

// Inline renders the target from an expression such as t_order_${order_id % 2}.
type Inline struct {
	expr       *InlineExpression
	allowRange bool
}

// NewInline creates the INLINE algorithm, props: algorithm-expression, allow-range-query-with-inline-sharding.
func NewInline(props map[string]string) (Algorithm, error) {
	text, err := requiredProp(AlgorithmInline, props, "algorithm-expression")
	if err != nil {
		return nil, err
	}
	expr, err := NewInlineExpression(text)
	if err != nil {
		return nil, err
	}
	if len(expr.Variables()) != 1 {
		return nil, errors.Errorf("router.algorithm[INLINE].expression[%s].must.use.one.column%v", text, expr.Variables())
	}
	return &Inline{expr: expr, allowRange: boolProp(props, propAllowRange)}, nil
}

// Type implements Algorithm.
func (a *Inline) Type() string {
	return AlgorithmInline
}

// DoSharding implements StandardAlgorithm.
func (a *Inline) DoSharding(targets []string, column string, value interface{}) (string, error) {
	return a.expr.Evaluate(map[string]interface{}{a.expr.Variables()[0]: value})
}

// DoRangeSharding implements StandardAlgorithm, every target when allowed.
func (a *Inline) DoRangeSharding(targets []string, column string, r Range) ([]string, error) {
	if !a.allowRange {
		return nil, errors.Errorf("router.algorithm[INLINE].expression[%s].can.not.route.range[%s]", a.expr, r)
	}
	return targets, nil
}

// ComplexInline renders the target from several columns, such as t_${user_id % 2}_${order_id % 2}.
type ComplexInline struct {
	expr       *InlineExpression
	columns    []string
	allowRange bool
}

// NewComplexInline creates the COMPLEX_INLINE algorithm, props: algorithm-expression, sharding-columns.
func NewComplexInline(props map[string]string) (Algorithm, error) {
	text, err := requiredProp(AlgorithmComplexInline, props, "algorithm-expression")
	if err != nil {
		return nil, err
	}
	expr, err := NewInlineExpression(text)
	if err != nil {
		return nil, err
	}
	a := &ComplexInline{expr: expr, columns: expr.Variables(), allowRange: boolProp(props, propAllowRange)}
	if cols, ok := props["sharding-columns"]; ok {
		a.columns = nil
		for _, c := range strings.Split(cols, ",") {
			a.columns = append(a.columns, strings.TrimSpace(c))
		}
	}
	return a, nil
}

// Type implements Algorithm.
func (a *ComplexInline) Type() string {
	return AlgorithmComplexInline
}

// DoComplexSharding implements ComplexAlgorithm: the cartesian product of the column values.
func (a *ComplexInline) DoComplexSharding(targets []string, values map[string]RouteValue) ([]string, error) {
	combos := []map[string]interface{}{{}}
	for _, col := range a.columns {
		rv, ok := lookupValue(values, col)
		if !ok {
			return targets, nil
		}
		list, ok := rv.(*ListRouteValue)
		if !ok {
			if a.allowRange {
				return targets, nil
			}
			return nil, errors.Errorf("router.algorithm[COMPLEX_INLINE].expression[%s].can.not.route.range[%v]", a.expr, rv)
		}
		next := make([]map[string]interface{}, 0, len(combos)*len(list.Values))
		for _, combo := range combos {
			for _, v := range list.Values {
				m := make(map[string]interface{}, len(combo)+1)
				for k, cv := range combo {
					m[k] = cv
				}
				m[col] = v
				next = append(next, m)
			}
		}
		combos = next
	}
	var out []string
	seen := make(map[string]struct{})
	for _, combo := range combos {
		t, err := a.expr.Evaluate(combo)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out, nil
}

func lookupValue(values map[string]RouteValue, column string) (RouteValue, bool) {
	for k, v := range values {
		if strings.EqualFold(k, column) {
			return v, true
		}
	}
	return nil, false
}

// HintInline renders targets from hint values, such as t_order_${value % 2}.
type HintInline struct {
	expr *InlineExpression
}

// NewHintInline creates the HINT_INLINE algorithm, props: algorithm-expression (default ${value}).
func NewHintInline(props map[string]string) (Algorithm, error) {
	text := props["algorithm-expression"]
	if strings.TrimSpace(text) == "" {
		text = "${value}"
	}
	expr, err := NewInlineExpression(text)
	if err != nil {
		return nil, err
	}
	return &HintInline{expr: expr}, nil
}

// Type implements Algorithm.
func (a *HintInline) Type() string {
	return AlgorithmHintInline
}

// DoHintSharding implements HintAlgorithm.
func (a *HintInline) DoHintSharding(targets []string, values []interface{}) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range values {
		t, err := a.expr.Evaluate(map[string]interface{}{"value": v})
		if err != nil {
			return nil, err
		}
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out, nil
}
