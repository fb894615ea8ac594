/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package merge

import (
	querypb "github.com/xelabs/go-mysqlstack/sqlparser/depends/query"
	"github.com/xelabs/go-mysqlstack/sqlparser/depends/sqltypes"
)

// MockResult builds a result from go values, one row per slice. Strings
// become VARCHAR and integers INT64.
func MockResult(names []string, rows ...[]interface{}) *sqltypes.Result {
	rs := &sqltypes.Result{}
	for _, name := range names {
		rs.Fields = append(rs.Fields, &querypb.Field{Name: name})
	}
	for _, row := range rows {
		values := make([]sqltypes.Value, 0, len(row))
		for i, v := range row {
			var value sqltypes.Value
			switch x := v.(type) {
			case string:
				value = sqltypes.MakeTrusted(querypb.Type_VARCHAR, []byte(x))
			default:
				var err error
				if value, err = sqltypes.BuildValue(v); err != nil {
					panic(err)
				}
			}
			if rs.Fields[i].Type == querypb.Type_NULL_TYPE && !value.IsNull() {
				rs.Fields[i].Type = value.Type()
			}
			values = append(values, value)
		}
		rs.Rows = append(rs.Rows, values)
	}
	rs.RowsAffected = uint64(len(rs.Rows))
	return rs
}

// MockQueryResults wraps each result in a MemoryResult.
func MockQueryResults(results ...*sqltypes.Result) []QueryResult {
	out := make([]QueryResult, 0, len(results))
	for _, rs := range results {
		out = append(out, NewMemoryResult(rs))
	}
	return out
}
