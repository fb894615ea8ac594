/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package router

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/radondb/xshard/statement"

	"github.com/casbin/govaluate"
	"github.com/pkg/errors"
)

var inlineRange = regexp.MustCompile(`^\s*(-?\d+)\s*\.\.\s*(-?\d+)\s*$`)

type inlineSegment struct {
	text string
	// expr is set for ${...} groups.
	expr bool
}

// splitInline cuts text into literal and ${...} segments, $->{...} is accepted too.
func splitInline(text string) ([]inlineSegment, error) {
	var segs []inlineSegment
	for len(text) > 0 {
		i := strings.Index(text, "$")
		open := -1
		if i >= 0 {
			switch {
			case strings.HasPrefix(text[i:], "${"):
				open = i + 2
			case strings.HasPrefix(text[i:], "$->{"):
				open = i + 4
			}
		}
		if open < 0 {
			segs = append(segs, inlineSegment{text: text})
			break
		}
		if i > 0 {
			segs = append(segs, inlineSegment{text: text[:i]})
		}
		close := strings.Index(text[open:], "}")
		if close < 0 {
			return nil, errors.Errorf("router.inline[%s].unclosed", text)
		}
		segs = append(segs, inlineSegment{text: strings.TrimSpace(text[open : open+close]), expr: true})
		text = text[open+close+1:]
	}
	return segs, nil
}

// splitTopLevel splits on commas outside ${...}.
func splitTopLevel(text string) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(text[last:i]))
				last = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(text[last:]))
}

// expandGroup returns the values of a ${...} group holding a range, a list or a constant.
func expandGroup(group string) ([]string, error) {
	if m := inlineRange.FindStringSubmatch(group); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		if hi < lo {
			return nil, errors.Errorf("router.inline.range[%s].lower.greater.than.upper", group)
		}
		vals := make([]string, 0, hi-lo+1)
		for i := lo; i <= hi; i++ {
			vals = append(vals, strconv.Itoa(i))
		}
		return vals, nil
	}
	if strings.HasPrefix(group, "[") && strings.HasSuffix(group, "]") {
		var vals []string
		for _, item := range strings.Split(group[1:len(group)-1], ",") {
			item = strings.Trim(strings.TrimSpace(item), `'"`)
			if item != "" {
				vals = append(vals, item)
			}
		}
		return vals, nil
	}
	expr, err := govaluate.NewEvaluableExpression(group)
	if err != nil {
		return nil, errors.Wrapf(err, "router.inline.expression[%s]", group)
	}
	if len(expr.Vars()) > 0 {
		return nil, errors.Errorf("router.inline.expression[%s].has.unbound.variables%v", group, expr.Vars())
	}
	v, err := expr.Evaluate(nil)
	if err != nil {
		return nil, errors.Wrapf(err, "router.inline.expression[%s]", group)
	}
	return []string{formatInline(v)}, nil
}

// ExpandInline expands comma separated inline expressions into the cartesian product of their groups.
func ExpandInline(text string) ([]string, error) {
	var out []string
	for _, part := range splitTopLevel(text) {
		if part == "" {
			continue
		}
		segs, err := splitInline(part)
		if err != nil {
			return nil, err
		}
		results := []string{""}
		for _, seg := range segs {
			vals := []string{seg.text}
			if seg.expr {
				if vals, err = expandGroup(seg.text); err != nil {
					return nil, err
				}
			}
			next := make([]string, 0, len(results)*len(vals))
			for _, prefix := range results {
				for _, v := range vals {
					next = append(next, prefix+v)
				}
			}
			results = next
		}
		out = append(out, results...)
	}
	if len(out) == 0 {
		return nil, errors.Errorf("router.inline[%s].is.empty", text)
	}
	return out, nil
}

func formatInline(v interface{}) string {
	switch v := v.(type) {
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// InlineExpression is a compiled expression such as t_order_${order_id % 2}.
type InlineExpression struct {
	raw   string
	segs  []inlineSegment
	exprs map[int]*govaluate.EvaluableExpression
	vars  []string
}

// NewInlineExpression compiles the text.
func NewInlineExpression(text string) (*InlineExpression, error) {
	segs, err := splitInline(text)
	if err != nil {
		return nil, err
	}
	e := &InlineExpression{raw: text, segs: segs, exprs: make(map[int]*govaluate.EvaluableExpression)}
	seen := make(map[string]struct{})
	for i, seg := range segs {
		if !seg.expr {
			continue
		}
		expr, err := govaluate.NewEvaluableExpression(seg.text)
		if err != nil {
			return nil, errors.Wrapf(err, "router.inline.expression[%s]", seg.text)
		}
		e.exprs[i] = expr
		for _, v := range expr.Vars() {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				e.vars = append(e.vars, v)
			}
		}
	}
	return e, nil
}

// Variables returns the variable names in order of first use.
func (e *InlineExpression) Variables() []string {
	return e.vars
}

// String returns the raw text.
func (e *InlineExpression) String() string {
	return e.raw
}

// Evaluate renders the expression with the bound variables.
func (e *InlineExpression) Evaluate(vars map[string]interface{}) (string, error) {
	params := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		params[k] = toEvaluable(v)
	}
	var b strings.Builder
	for i, seg := range e.segs {
		if !seg.expr {
			b.WriteString(seg.text)
			continue
		}
		v, err := e.exprs[i].Evaluate(params)
		if err != nil {
			return "", errors.Wrapf(err, "router.inline.expression[%s].evaluate", e.raw)
		}
		b.WriteString(formatInline(v))
	}
	return b.String(), nil
}

// toEvaluable turns numbers into float64 and bytes into strings for govaluate.
func toEvaluable(v interface{}) interface{} {
	if n, ok := statement.ToInt64(v); ok {
		return float64(n)
	}
	switch v := v.(type) {
	case float32:
		return float64(v)
	case []byte:
		return string(v)
	}
	return v
}
