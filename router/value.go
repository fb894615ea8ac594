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
	"strings"

	"github.com/radondb/xshard/statement"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// RouteValue is the value set of one sharding column, built per statement.
type RouteValue interface {
	TableName() string
	ColumnName() string
}

// ListRouteValue holds exact values, from = and IN.
type ListRouteValue struct {
	Table  string
	Column string
	Values []interface{}
}

// TableName implements RouteValue.
func (v *ListRouteValue) TableName() string { return v.Table }

// ColumnName implements RouteValue.
func (v *ListRouteValue) ColumnName() string { return v.Column }

func (v *ListRouteValue) String() string {
	return fmt.Sprintf("%s.%s in %v", v.Table, v.Column, v.Values)
}

// Range of values, a missing bound is unbounded.
type Range struct {
	Lower          interface{}
	Upper          interface{}
	HasLower       bool
	HasUpper       bool
	LowerInclusive bool
	UpperInclusive bool
}

// Contains reports whether v lies in the range.
func (r Range) Contains(v interface{}) (bool, error) {
	if r.HasLower {
		c, err := CompareValues(v, r.Lower)
		if err != nil {
			return false, err
		}
		if c < 0 || (c == 0 && !r.LowerInclusive) {
			return false, nil
		}
	}
	if r.HasUpper {
		c, err := CompareValues(v, r.Upper)
		if err != nil {
			return false, err
		}
		if c > 0 || (c == 0 && !r.UpperInclusive) {
			return false, nil
		}
	}
	return true, nil
}

// Intersect returns the overlap of two ranges and whether it is non-empty.
func (r Range) Intersect(o Range) (Range, bool, error) {
	out := r
	if o.HasLower {
		if !out.HasLower {
			out.Lower, out.HasLower, out.LowerInclusive = o.Lower, true, o.LowerInclusive
		} else {
			c, err := CompareValues(o.Lower, out.Lower)
			if err != nil {
				return out, false, err
			}
			if c > 0 || (c == 0 && !o.LowerInclusive) {
				out.Lower, out.LowerInclusive = o.Lower, o.LowerInclusive
			}
		}
	}
	if o.HasUpper {
		if !out.HasUpper {
			out.Upper, out.HasUpper, out.UpperInclusive = o.Upper, true, o.UpperInclusive
		} else {
			c, err := CompareValues(o.Upper, out.Upper)
			if err != nil {
				return out, false, err
			}
			if c < 0 || (c == 0 && !o.UpperInclusive) {
				out.Upper, out.UpperInclusive = o.Upper, o.UpperInclusive
			}
		}
	}
	if out.HasLower && out.HasUpper {
		c, err := CompareValues(out.Lower, out.Upper)
		if err != nil {
			return out, false, err
		}
		if c > 0 || (c == 0 && !(out.LowerInclusive && out.UpperInclusive)) {
			return out, false, nil
		}
	}
	return out, true, nil
}

func (r Range) String() string {
	var b strings.Builder
	if r.HasLower {
		if r.LowerInclusive {
			b.WriteString("[")
		} else {
			b.WriteString("(")
		}
		fmt.Fprintf(&b, "%v", r.Lower)
	} else {
		b.WriteString("(-inf")
	}
	b.WriteString("..")
	if r.HasUpper {
		fmt.Fprintf(&b, "%v", r.Upper)
		if r.UpperInclusive {
			b.WriteString("]")
		} else {
			b.WriteString(")")
		}
	} else {
		b.WriteString("+inf)")
	}
	return b.String()
}

// RangeRouteValue holds a range, from <, <=, >, >= and BETWEEN.
type RangeRouteValue struct {
	Table  string
	Column string
	Range  Range
}

// TableName implements RouteValue.
func (v *RangeRouteValue) TableName() string { return v.Table }

// ColumnName implements RouteValue.
func (v *RangeRouteValue) ColumnName() string { return v.Column }

func (v *RangeRouteValue) String() string {
	return fmt.Sprintf("%s.%s in %s", v.Table, v.Column, v.Range)
}

// ShardingCondition is one OR branch: the route values ANDed in it.
type ShardingCondition struct {
	Values []RouteValue
}

// ShardingConditions of a statement. For INSERT there is one condition per row.
type ShardingConditions struct {
	Conditions []*ShardingCondition
	// AlwaysFalse is set when every branch is contradictory.
	AlwaysFalse bool
}

// ToDecimal converts a numeric value or numeric text.
func ToDecimal(v interface{}) (decimal.Decimal, bool) {
	if n, ok := statement.ToInt64(v); ok {
		return decimal.NewFromInt(n), true
	}
	switch v := v.(type) {
	case float32:
		return decimal.NewFromFloat32(v), true
	case float64:
		return decimal.NewFromFloat(v), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	case []byte:
		d, err := decimal.NewFromString(strings.TrimSpace(string(v)))
		return d, err == nil
	case decimal.Decimal:
		return v, true
	}
	return decimal.Decimal{}, false
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case string, []byte:
		return false
	}
	_, ok := ToDecimal(v)
	return ok
}

// CompareValues compares numbers by value and text lexically; a number
// against text compares numerically when the text is numeric.
func CompareValues(a, b interface{}) (int, error) {
	if isNumber(a) || isNumber(b) {
		da, okA := ToDecimal(a)
		db, okB := ToDecimal(b)
		if !okA || !okB {
			return 0, errors.Errorf("router.values[%v,%v].can.not.be.compared", a, b)
		}
		return da.Cmp(db), nil
	}
	sa, okA := textOf(a)
	sb, okB := textOf(b)
	if !okA || !okB {
		return 0, errors.Errorf("router.values[%v,%v].can.not.be.compared", a, b)
	}
	return strings.Compare(sa, sb), nil
}

func textOf(v interface{}) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	}
	return "", false
}

// valueKey renders a value for lookups, numbers and numeric text by their decimal form.
func valueKey(v interface{}) string {
	if d, ok := ToDecimal(v); ok {
		return "n:" + d.String()
	}
	return fmt.Sprintf("s:%v", v)
}
