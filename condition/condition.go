/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package condition

import (
	"strings"

	"github.com/radondb/xshard/router"
	"github.com/radondb/xshard/statement"

	"github.com/pkg/errors"
	"github.com/xelabs/go-mysqlstack/xlog"
)

// GeneratedKey is the key column of an INSERT, one value per row.
type GeneratedKey struct {
	Table  string
	Column string
	// Generated is set when the column was absent and Values came from the key generator.
	Generated bool
	Values    []interface{}
}

// Result of one extraction.
type Result struct {
	Conditions *router.ShardingConditions
	// GeneratedKey is set for INSERT into a table with a key generator.
	GeneratedKey *GeneratedKey
	// InsertColumns are the effective INSERT columns, from the statement or the table metadata.
	InsertColumns []string
}

// Extractor turns predicates and INSERT rows into sharding conditions.
type Extractor struct {
	log  *xlog.Log
	rule *router.ShardingRule
}

// NewExtractor creates the new extractor.
func NewExtractor(log *xlog.Log, rule *router.ShardingRule) *Extractor {
	return &Extractor{
		log:  log,
		rule: rule,
	}
}

// Extract computes the sharding conditions of the statement under the bound params.
func (e *Extractor) Extract(stmt statement.Statement, params []interface{}) (*Result, error) {
	switch s := stmt.(type) {
	case *statement.Select:
		return e.extractWhere(s.From, s.Where, params)
	case *statement.Delete:
		return e.extractWhere(s.Tables(), s.Where, params)
	case *statement.Update:
		res, err := e.extractWhere(s.Tables(), s.Where, params)
		if err != nil {
			return nil, err
		}
		if err := e.checkUpdate(s, res.Conditions, params); err != nil {
			return nil, err
		}
		return res, nil
	case *statement.Insert:
		return e.extractInsert(s, params)
	}
	return &Result{Conditions: &router.ShardingConditions{}}, nil
}

type columnKey struct {
	table  string
	column string
}

// branch collects the route values ANDed in one OR branch, merged per column.
type branch struct {
	keys   []columnKey
	values map[columnKey]router.RouteValue
	// alwaysFalse is set when two predicates on one column contradict.
	alwaysFalse bool
}

func newBranch() *branch {
	return &branch{values: make(map[columnKey]router.RouteValue)}
}

func (b *branch) add(rv router.RouteValue) error {
	key := columnKey{table: strings.ToLower(rv.TableName()), column: strings.ToLower(rv.ColumnName())}
	prev, ok := b.values[key]
	if !ok {
		b.keys = append(b.keys, key)
		b.values[key] = rv
		return nil
	}
	merged, nonEmpty, err := mergeValues(prev, rv)
	if err != nil {
		return err
	}
	if !nonEmpty {
		b.alwaysFalse = true
	}
	b.values[key] = merged
	return nil
}

func (b *branch) condition() *router.ShardingCondition {
	cond := &router.ShardingCondition{}
	for _, k := range b.keys {
		cond.Values = append(cond.Values, b.values[k])
	}
	return cond
}

func (e *Extractor) extractWhere(tables []*statement.TableSegment, where *statement.Where, params []interface{}) (*Result, error) {
	res := &Result{Conditions: &router.ShardingConditions{}}
	if where == nil || len(where.Or) == 0 {
		return res, nil
	}
	falseBranches := 0
	for _, and := range where.Or {
		b := newBranch()
		for _, p := range and {
			table, ok := e.shardingTable(tables, p.Column)
			if !ok {
				continue
			}
			rv, nonEmpty, err := routeValue(table, p, params)
			if err != nil {
				return nil, err
			}
			if !nonEmpty {
				b.alwaysFalse = true
				continue
			}
			if rv == nil {
				continue
			}
			if err := b.add(rv); err != nil {
				return nil, err
			}
		}
		if b.alwaysFalse {
			falseBranches++
			continue
		}
		res.Conditions.Conditions = append(res.Conditions.Conditions, b.condition())
	}
	if falseBranches == len(where.Or) {
		res.Conditions.AlwaysFalse = true
	}
	return res, nil
}

// shardingTable resolves the logic table a column belongs to, when it is a sharding column of it.
func (e *Extractor) shardingTable(tables []*statement.TableSegment, col *statement.ColumnRef) (string, bool) {
	if col == nil {
		return "", false
	}
	if owner := col.OwnerName(); owner != "" {
		t, ok := statement.FindTable(tables, owner)
		if !ok {
			return "", false
		}
		if tr, ok := e.rule.TableRule(t.Name); ok && tr.IsShardingColumn(col.Name) {
			return tr.LogicTable, true
		}
		return "", false
	}
	for _, t := range tables {
		if tr, ok := e.rule.TableRule(t.Name); ok && tr.IsShardingColumn(col.Name) {
			return tr.LogicTable, true
		}
	}
	return "", false
}

// routeValue turns a predicate into a route value. A nil value with nonEmpty
// set means the predicate can not narrow the route; nonEmpty false means it is never true.
func routeValue(table string, p *statement.Predicate, params []interface{}) (router.RouteValue, bool, error) {
	values := make([]interface{}, 0, len(p.Values))
	for _, expr := range p.Values {
		v, err := expr.Resolve(params)
		if err != nil {
			return nil, false, err
		}
		values = append(values, v)
	}
	column := p.Column.Name

	bound := func(i int) (interface{}, bool, error) {
		if i >= len(values) {
			return nil, false, errors.Errorf("condition.predicate[%s %s].expects.%d.values.but.got[%d]", column, p.Op, i+1, len(values))
		}
		return values[i], values[i] != nil, nil
	}

	var r router.Range
	switch p.Op {
	case statement.OpEQ, statement.OpIN:
		list := &router.ListRouteValue{Table: table, Column: column}
		for _, v := range values {
			// col = NULL is never true.
			if v != nil {
				list.Values = append(list.Values, v)
			}
		}
		if len(list.Values) == 0 {
			return nil, false, nil
		}
		return list, true, nil
	case statement.OpLT, statement.OpLE:
		v, ok, err := bound(0)
		if err != nil || !ok {
			return nil, false, err
		}
		r = router.Range{Upper: v, HasUpper: true, UpperInclusive: p.Op == statement.OpLE}
	case statement.OpGT, statement.OpGE:
		v, ok, err := bound(0)
		if err != nil || !ok {
			return nil, false, err
		}
		r = router.Range{Lower: v, HasLower: true, LowerInclusive: p.Op == statement.OpGE}
	case statement.OpBetween:
		lo, okl, err := bound(0)
		if err != nil {
			return nil, false, err
		}
		hi, okh, err := bound(1)
		if err != nil {
			return nil, false, err
		}
		if !okl || !okh {
			return nil, false, nil
		}
		r = router.Range{Lower: lo, Upper: hi, HasLower: true, HasUpper: true, LowerInclusive: true, UpperInclusive: true}
	default:
		// <> and LIKE do not narrow the route.
		return nil, true, nil
	}
	r, nonEmpty, err := r.Intersect(router.Range{})
	if err != nil {
		return nil, false, err
	}
	if !nonEmpty {
		return nil, false, nil
	}
	return &router.RangeRouteValue{Table: table, Column: column, Range: r}, true, nil
}

func equalValues(a, b interface{}) bool {
	c, err := router.CompareValues(a, b)
	return err == nil && c == 0
}

// mergeValues intersects two route values of the same column.
func mergeValues(a, b router.RouteValue) (router.RouteValue, bool, error) {
	switch x := a.(type) {
	case *router.ListRouteValue:
		switch y := b.(type) {
		case *router.ListRouteValue:
			out := &router.ListRouteValue{Table: x.Table, Column: x.Column}
			for _, v := range x.Values {
				for _, w := range y.Values {
					if equalValues(v, w) {
						out.Values = append(out.Values, v)
						break
					}
				}
			}
			return out, len(out.Values) > 0, nil
		case *router.RangeRouteValue:
			return filterList(x, y.Range)
		}
	case *router.RangeRouteValue:
		switch y := b.(type) {
		case *router.ListRouteValue:
			return filterList(y, x.Range)
		case *router.RangeRouteValue:
			r, nonEmpty, err := x.Range.Intersect(y.Range)
			if err != nil {
				return nil, false, err
			}
			return &router.RangeRouteValue{Table: x.Table, Column: x.Column, Range: r}, nonEmpty, nil
		}
	}
	return nil, false, errors.Errorf("condition.route.values[%T,%T].can.not.be.merged", a, b)
}

func filterList(list *router.ListRouteValue, r router.Range) (router.RouteValue, bool, error) {
	out := &router.ListRouteValue{Table: list.Table, Column: list.Column}
	for _, v := range list.Values {
		in, err := r.Contains(v)
		if err != nil {
			return nil, false, err
		}
		if in {
			out.Values = append(out.Values, v)
		}
	}
	return out, len(out.Values) > 0, nil
}

// checkUpdate rejects SET on a sharding column, unless every branch pins the column to the same value.
func (e *Extractor) checkUpdate(s *statement.Update, conds *router.ShardingConditions, params []interface{}) error {
	tr, ok := e.rule.TableRule(s.Table.Name)
	if !ok {
		return nil
	}
	for _, a := range s.Set {
		if !tr.IsShardingColumn(a.Column.Name) {
			continue
		}
		v, err := a.Value.Resolve(params)
		if err != nil {
			return err
		}
		if !pinned(conds, a.Column.Name, v) {
			return errors.Errorf("condition.update.sharding.column[%s].of.table[%s].is.not.allowed", a.Column.Name, tr.LogicTable)
		}
	}
	return nil
}

func pinned(conds *router.ShardingConditions, column string, v interface{}) bool {
	if len(conds.Conditions) == 0 {
		return false
	}
	for _, cond := range conds.Conditions {
		hit := false
		for _, rv := range cond.Values {
			list, ok := rv.(*router.ListRouteValue)
			if ok && strings.EqualFold(rv.ColumnName(), column) && len(list.Values) == 1 && equalValues(list.Values[0], v) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}
