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

	"github.com/radondb/xshard/statement"

	"github.com/pkg/errors"
	"github.com/xelabs/go-mysqlstack/sqldb"
	"github.com/xelabs/go-mysqlstack/xlog"
)

// HintValues are sharding values passed along a statement for hint strategies.
type HintValues struct {
	Database []interface{}
	Table    []interface{}
}

// RouteContext is the input of one routing.
type RouteContext struct {
	Statement  statement.Statement
	Conditions *ShardingConditions
	// Hints is keyed by logic table name.
	Hints map[string]*HintValues
	// RandomUnicast picks a random data source for unicast routes instead of the first.
	RandomUnicast bool
}

// Router routes statements over a sharding rule. It holds no per statement
// state and is safe for concurrent use.
type Router struct {
	log  *xlog.Log
	rule *ShardingRule
}

// NewRouter creates the new router.
func NewRouter(log *xlog.Log, rule *ShardingRule) *Router {
	return &Router{
		log:  log,
		rule: rule,
	}
}

// Rule returns the sharding rule.
func (r *Router) Rule() *ShardingRule {
	return r.rule
}

type tableGroup struct {
	driving   *TableRule
	followers []*TableRule
	nodes     []DataNode
}

// Route computes the units the statement must run on.
func (r *Router) Route(ctx *RouteContext) (*RouteResult, error) {
	if ctx == nil || ctx.Statement == nil {
		return nil, errors.New("router.statement.can.not.be.nil")
	}
	var sharding, broadcast, plain []string
	seen := make(map[string]struct{})
	for _, t := range ctx.Statement.Tables() {
		key := strings.ToLower(t.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		switch {
		case r.rule.IsSharding(t.Name):
			sharding = append(sharding, t.Name)
		case r.rule.IsBroadcast(t.Name):
			broadcast = append(broadcast, t.Name)
		default:
			plain = append(plain, t.Name)
		}
	}

	var result *RouteResult
	var err error
	kind := ctx.Statement.Kind()
	switch {
	case kind == statement.KindDAL || len(seen) == 0:
		result, err = r.routeUnicast(ctx, sharding, broadcast, plain)
	case len(sharding) == 0 && len(plain) == 0:
		result = r.routeBroadcast(ctx, broadcast)
	case len(sharding) == 0:
		result, err = r.routeDefault(broadcast, plain)
	default:
		result, err = r.routeSharding(ctx, sharding, broadcast, plain)
	}
	if err != nil {
		r.log.Error("router.route[%s].error:%+v", kind, err)
		return nil, err
	}
	r.log.Debug("router.route[%s].units[%s]", kind, result)
	return result, nil
}

// routeUnicast sends admin statements and table-less queries to one data source.
func (r *Router) routeUnicast(ctx *RouteContext, sharding, broadcast, plain []string) (*RouteResult, error) {
	var unit *TableUnit
	switch {
	case len(sharding) > 0:
		first, _ := r.rule.TableRule(sharding[0])
		node := first.DataNodes[0]
		unit = &TableUnit{DataSource: node.DataSource}
		unit.Tables = append(unit.Tables, RoutingTable{LogicTable: sharding[0], ActualTable: node.Table})
		for _, name := range sharding[1:] {
			t, _ := r.rule.TableRule(name)
			tables := t.ActualTables(node.DataSource)
			if len(tables) == 0 {
				return nil, errors.Errorf("router.table[%s].has.no.data.node.on[%s]", name, node.DataSource)
			}
			unit.Tables = append(unit.Tables, RoutingTable{LogicTable: name, ActualTable: tables[0]})
		}
	case len(plain) > 0:
		ds, err := r.rule.DefaultDataSource()
		if err != nil {
			return nil, err
		}
		unit = &TableUnit{DataSource: ds}
	default:
		unit = &TableUnit{DataSource: r.rule.unicastDataSource(ctx.RandomUnicast)}
	}
	appendLogic(unit, plain)
	appendLogic(unit, broadcast)
	return &RouteResult{Units: []*TableUnit{unit}}, nil
}

func appendLogic(unit *TableUnit, names []string) {
	for _, name := range names {
		unit.Tables = append(unit.Tables, RoutingTable{LogicTable: name, ActualTable: name})
	}
}

// routeBroadcast reads one replica and writes all of them.
func (r *Router) routeBroadcast(ctx *RouteContext, broadcast []string) *RouteResult {
	if ctx.Statement.Kind() == statement.KindSelect {
		unit := &TableUnit{DataSource: r.rule.unicastDataSource(ctx.RandomUnicast)}
		appendLogic(unit, broadcast)
		return &RouteResult{Units: []*TableUnit{unit}}
	}
	result := &RouteResult{}
	for _, ds := range r.rule.DataSources() {
		unit := &TableUnit{DataSource: ds}
		appendLogic(unit, broadcast)
		result.Units = append(result.Units, unit)
	}
	return result
}

// routeDefault sends unsharded tables to the default data source.
func (r *Router) routeDefault(broadcast, plain []string) (*RouteResult, error) {
	ds, err := r.rule.DefaultDataSource()
	if err != nil {
		return nil, sqldb.NewSQLError(sqldb.ER_NO_SUCH_TABLE, plain[0])
	}
	unit := &TableUnit{DataSource: ds}
	appendLogic(unit, plain)
	appendLogic(unit, broadcast)
	return &RouteResult{Units: []*TableUnit{unit}}, nil
}

func (r *Router) routeSharding(ctx *RouteContext, sharding, broadcast, plain []string) (*RouteResult, error) {
	result := &RouteResult{}
	var groups []*tableGroup
	assigned := make(map[string]struct{})
	for i, name := range sharding {
		if _, ok := assigned[strings.ToLower(name)]; ok {
			continue
		}
		driving, _ := r.rule.TableRule(name)
		g := &tableGroup{driving: driving}
		for _, other := range sharding[i+1:] {
			if r.rule.IsBinding(name, other) {
				follower, _ := r.rule.TableRule(other)
				g.followers = append(g.followers, follower)
				assigned[strings.ToLower(other)] = struct{}{}
			}
		}
		nodes, original, err := r.routeTable(ctx, driving)
		if err != nil {
			return nil, err
		}
		g.nodes = nodes
		if len(groups) == 0 && ctx.Statement.Kind() == statement.KindInsert {
			result.OriginalDataNodes = original
		}
		groups = append(groups, g)
	}

	if len(groups) == 1 {
		for _, node := range groups[0].nodes {
			unit, err := groups[0].unit(node)
			if err != nil {
				return nil, err
			}
			result.Units = append(result.Units, unit)
		}
	} else {
		units, err := cartesian(groups)
		if err != nil {
			return nil, err
		}
		result.Units = units
	}

	if len(plain) > 0 {
		ds, err := r.rule.DefaultDataSource()
		if err != nil {
			return nil, sqldb.NewSQLError(sqldb.ER_NO_SUCH_TABLE, plain[0])
		}
		for _, u := range result.Units {
			if u.DataSource != ds {
				return nil, errors.Errorf("router.table[%s].is.not.sharded.and.can.not.join.units.on[%s]", plain[0], u.DataSource)
			}
			appendLogic(u, plain)
		}
	}
	for _, u := range result.Units {
		appendLogic(u, broadcast)
	}
	return result, nil
}

// unit builds the unit of a driving node, binding followers take the table at the same index.
func (g *tableGroup) unit(node DataNode) (*TableUnit, error) {
	unit := &TableUnit{DataSource: node.DataSource}
	unit.Tables = append(unit.Tables, RoutingTable{LogicTable: g.driving.LogicTable, ActualTable: node.Table})
	idx := g.driving.ActualTableIndex(node.DataSource, node.Table)
	for _, f := range g.followers {
		tables := f.ActualTables(node.DataSource)
		if idx < 0 || idx >= len(tables) {
			return nil, errors.Errorf("router.binding.table[%s].has.no.table.at[%s:%d]", f.LogicTable, node.DataSource, idx)
		}
		unit.Tables = append(unit.Tables, RoutingTable{LogicTable: f.LogicTable, ActualTable: tables[idx]})
	}
	return unit, nil
}

// cartesian joins unbound groups: per data source every combination of their nodes.
func cartesian(groups []*tableGroup) ([]*TableUnit, error) {
	var dss []string
	for _, n := range groups[0].nodes {
		dss = appendUnique(dss, n.DataSource)
	}
	var units []*TableUnit
	for _, ds := range dss {
		combos := [][]*TableUnit{{}}
		ok := true
		for _, g := range groups {
			var parts []*TableUnit
			for _, n := range g.nodes {
				if n.DataSource != ds {
					continue
				}
				part, err := g.unit(n)
				if err != nil {
					return nil, err
				}
				parts = append(parts, part)
			}
			if len(parts) == 0 {
				ok = false
				break
			}
			next := make([][]*TableUnit, 0, len(combos)*len(parts))
			for _, c := range combos {
				for _, p := range parts {
					next = append(next, append(append([]*TableUnit(nil), c...), p))
				}
			}
			combos = next
		}
		if !ok {
			continue
		}
		for _, c := range combos {
			unit := &TableUnit{DataSource: ds}
			for _, part := range c {
				unit.Tables = append(unit.Tables, part.Tables...)
			}
			units = append(units, unit)
		}
	}
	if len(units) == 0 {
		var names []string
		for _, g := range groups {
			names = append(names, g.driving.LogicTable)
		}
		return nil, errors.Errorf("router.tables%v.have.no.common.data.source", names)
	}
	return units, nil
}

// routeTable routes every OR branch and unions the nodes in first seen order.
// For INSERT it also returns the node of every row.
func (r *Router) routeTable(ctx *RouteContext, t *TableRule) ([]DataNode, [][]DataNode, error) {
	hints := ctx.Hints[t.LogicTable]
	if hints == nil {
		hints = ctx.Hints[strings.ToLower(t.LogicTable)]
	}
	conds := ctx.Conditions
	if ctx.Statement.Kind() == statement.KindDDL || conds == nil || len(conds.Conditions) == 0 {
		if conds != nil && conds.AlwaysFalse {
			return t.DataNodes[:1], nil, nil
		}
		nodes, err := r.routeValues(t, nil, hints)
		return nodes, nil, err
	}

	group := r.rule.BindingGroup(t.LogicTable)
	var nodes []DataNode
	var original [][]DataNode
	isInsert := ctx.Statement.Kind() == statement.KindInsert
	for _, cond := range conds.Conditions {
		var values []RouteValue
		for _, v := range cond.Values {
			for _, member := range group {
				if strings.EqualFold(v.TableName(), member) {
					values = append(values, v)
					break
				}
			}
		}
		hit, err := r.routeValues(t, values, hints)
		if err != nil {
			return nil, nil, err
		}
		if isInsert {
			if len(hit) != 1 {
				return nil, nil, errors.Errorf("router.insert.table[%s].row.routed.to.%d.data.nodes", t.LogicTable, len(hit))
			}
			original = append(original, hit)
		}
		for _, n := range hit {
			dup := false
			for _, m := range nodes {
				if m == n {
					dup = true
					break
				}
			}
			if !dup {
				nodes = append(nodes, n)
			}
		}
	}
	return nodes, original, nil
}

func (r *Router) routeValues(t *TableRule, values []RouteValue, hints *HintValues) ([]DataNode, error) {
	var dbHints, tblHints []interface{}
	if hints != nil {
		dbHints, tblHints = hints.Database, hints.Table
	}
	dss, err := t.DatabaseStrategy.DoSharding(t.DataSources(), values, dbHints)
	if err != nil {
		return nil, errors.Wrapf(err, "router.table[%s].database", t.LogicTable)
	}
	var nodes []DataNode
	for _, ds := range dss {
		if !t.HasDataSource(ds) {
			return nil, errors.Errorf("router.table[%s].data.source[%s].not.in.data.nodes", t.LogicTable, ds)
		}
		tables, err := t.TableStrategy.DoSharding(t.ActualTables(ds), values, tblHints)
		if err != nil {
			return nil, errors.Wrapf(err, "router.table[%s].table", t.LogicTable)
		}
		for _, tbl := range tables {
			if t.ActualTableIndex(ds, tbl) < 0 {
				return nil, errors.Errorf("router.table[%s].target[%s.%s].not.in.data.nodes", t.LogicTable, ds, tbl)
			}
			nodes = append(nodes, DataNode{DataSource: ds, Table: tbl})
		}
	}
	if len(nodes) == 0 {
		return nil, errors.Errorf("router.table[%s].routed.to.no.data.node", t.LogicTable)
	}
	return nodes, nil
}
