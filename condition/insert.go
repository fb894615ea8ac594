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
)

// extractInsert builds one condition per row, and the key column values.
func (e *Extractor) extractInsert(s *statement.Insert, params []interface{}) (*Result, error) {
	res := &Result{Conditions: &router.ShardingConditions{}}
	tr, ok := e.rule.TableRule(s.Table.Name)
	if !ok {
		return res, nil
	}

	var columns []string
	if s.Columns != nil {
		for _, c := range s.Columns.Names {
			columns = append(columns, c.Name)
		}
	}
	if len(columns) == 0 {
		columns = tr.Columns
	}
	var rows []*statement.InsertRow
	if s.Values != nil {
		rows = s.Values.Rows
	}
	if len(rows) == 0 {
		return nil, errors.Errorf("condition.insert.table[%s].has.no.values", tr.LogicTable)
	}
	if len(columns) == 0 && (len(tr.ShardingColumns()) > 0 || tr.KeyGenerator != nil) {
		return nil, errors.Errorf("condition.insert.table[%s].columns.unknown", tr.LogicTable)
	}
	for i, row := range rows {
		if len(columns) > 0 && len(row.Exprs) != len(columns) {
			return nil, errors.Errorf("condition.insert.table[%s].row[%d].values[%d].columns[%d].mismatch", tr.LogicTable, i, len(row.Exprs), len(columns))
		}
	}
	res.InsertColumns = columns

	index := func(name string) int {
		for i, c := range columns {
			if strings.EqualFold(c, name) {
				return i
			}
		}
		return -1
	}

	if tr.KeyGenerator != nil {
		key := &GeneratedKey{Table: tr.LogicTable, Column: tr.KeyColumn}
		if i := index(tr.KeyColumn); i >= 0 {
			for _, row := range rows {
				v, err := row.Exprs[i].Resolve(params)
				if err != nil {
					return nil, err
				}
				key.Values = append(key.Values, v)
			}
		} else {
			key.Generated = true
			for range rows {
				v, err := tr.KeyGenerator.Generate()
				if err != nil {
					return nil, errors.Wrapf(err, "condition.insert.table[%s].generate.key[%s]", tr.LogicTable, tr.KeyColumn)
				}
				key.Values = append(key.Values, v)
			}
		}
		res.GeneratedKey = key
	}

	for r, row := range rows {
		cond := &router.ShardingCondition{}
		for _, col := range tr.ShardingColumns() {
			var v interface{}
			if i := index(col); i >= 0 {
				var err error
				if v, err = row.Exprs[i].Resolve(params); err != nil {
					return nil, err
				}
			} else if res.GeneratedKey != nil && res.GeneratedKey.Generated && strings.EqualFold(col, tr.KeyColumn) {
				v = res.GeneratedKey.Values[r]
			} else {
				continue
			}
			cond.Values = append(cond.Values, &router.ListRouteValue{Table: tr.LogicTable, Column: col, Values: []interface{}{v}})
		}
		res.Conditions.Conditions = append(res.Conditions.Conditions, cond)
	}
	e.log.Debug("condition.insert.table[%s].rows[%d].columns%v", tr.LogicTable, len(rows), columns)
	return res, nil
}
