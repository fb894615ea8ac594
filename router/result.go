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
)

// RoutingTable maps a logic table to its actual table in a unit.
type RoutingTable struct {
	LogicTable  string `json:"logic-table"`
	ActualTable string `json:"actual-table"`
}

// TableUnit is one data source plus the actual tables a statement touches on it.
type TableUnit struct {
	DataSource string         `json:"data-source"`
	Tables     []RoutingTable `json:"tables"`
}

// ActualTable returns the actual name of the logic table in the unit.
func (u *TableUnit) ActualTable(logic string) (string, bool) {
	for _, t := range u.Tables {
		if strings.EqualFold(t.LogicTable, logic) {
			return t.ActualTable, true
		}
	}
	return "", false
}

// ActualTableByName returns the actual name of a logic or actual table name.
func (u *TableUnit) ActualTableByName(name string) (string, bool) {
	if actual, ok := u.ActualTable(name); ok {
		return actual, true
	}
	for _, t := range u.Tables {
		if strings.EqualFold(t.ActualTable, name) {
			return t.ActualTable, true
		}
	}
	return "", false
}

// String returns ds[logic:actual,...].
func (u *TableUnit) String() string {
	parts := make([]string, 0, len(u.Tables))
	for _, t := range u.Tables {
		parts = append(parts, t.LogicTable+":"+t.ActualTable)
	}
	return fmt.Sprintf("%s[%s]", u.DataSource, strings.Join(parts, ","))
}

// RouteResult is the ordered units a statement runs on.
type RouteResult struct {
	Units []*TableUnit `json:"units"`
	// OriginalDataNodes holds, per INSERT row, the node the row routes to.
	OriginalDataNodes [][]DataNode `json:"original-data-nodes,omitempty"`
}

// IsSingleUnit reports whether one data source evaluates the whole statement.
func (r *RouteResult) IsSingleUnit() bool {
	return len(r.Units) == 1
}

// DataSourceNames returns the data sources in unit order, without duplicates.
func (r *RouteResult) DataSourceNames() []string {
	var names []string
	for _, u := range r.Units {
		names = appendUnique(names, u.DataSource)
	}
	return names
}

// String returns the units.
func (r *RouteResult) String() string {
	parts := make([]string, 0, len(r.Units))
	for _, u := range r.Units {
		parts = append(parts, u.String())
	}
	return strings.Join(parts, " ")
}
