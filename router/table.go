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

	"github.com/radondb/xshard/keygen"
)

// TableRule is the compiled rule of one sharding table.
type TableRule struct {
	LogicTable string
	DataNodes  []DataNode

	DatabaseStrategy Strategy
	TableStrategy    Strategy

	// KeyColumn is filled by KeyGenerator on INSERT when absent.
	KeyColumn    string
	KeyGenerator keygen.Generator

	// Columns is the physical column order, optional.
	Columns []string

	dataSources []string
	tables      map[string][]string
}

func newTableRule(logic string, nodes []DataNode) *TableRule {
	t := &TableRule{
		LogicTable: logic,
		DataNodes:  nodes,
		tables:     make(map[string][]string),
	}
	for _, n := range nodes {
		if _, ok := t.tables[n.DataSource]; !ok {
			t.dataSources = append(t.dataSources, n.DataSource)
		}
		t.tables[n.DataSource] = append(t.tables[n.DataSource], n.Table)
	}
	return t
}

// DataSources returns the data sources in data node order.
func (t *TableRule) DataSources() []string {
	return t.dataSources
}

// ActualTables returns the actual tables on the data source.
func (t *TableRule) ActualTables(ds string) []string {
	return t.tables[ds]
}

// ActualTableIndex returns the position of the actual table on its data source, -1 when absent.
func (t *TableRule) ActualTableIndex(ds, table string) int {
	for i, name := range t.tables[ds] {
		if name == table {
			return i
		}
	}
	return -1
}

// HasDataSource reports whether a data node lives on ds.
func (t *TableRule) HasDataSource(ds string) bool {
	_, ok := t.tables[ds]
	return ok
}

// ShardingColumns returns the database and table sharding columns.
func (t *TableRule) ShardingColumns() []string {
	var cols []string
	for _, s := range []Strategy{t.DatabaseStrategy, t.TableStrategy} {
		for _, c := range s.Columns() {
			cols = appendUnique(cols, strings.ToLower(c))
		}
	}
	return cols
}

// IsShardingColumn reports whether column drives a strategy.
func (t *TableRule) IsShardingColumn(column string) bool {
	for _, c := range t.ShardingColumns() {
		if strings.EqualFold(c, column) {
			return true
		}
	}
	return false
}

// HasColumn reports whether the column is in the configured column list.
func (t *TableRule) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if strings.EqualFold(c, column) {
			return true
		}
	}
	return false
}
