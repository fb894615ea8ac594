/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package merge

import (
	"github.com/radondb/xshard/config"
	"github.com/radondb/xshard/statement"

	"github.com/pkg/errors"
	querypb "github.com/xelabs/go-mysqlstack/sqlparser/depends/query"
	"github.com/xelabs/go-mysqlstack/sqlparser/depends/sqltypes"
)

// compareValues compares two non-null values, numerically when either is a number.
func compareValues(a, b sqltypes.Value) (cmp int, err error) {
	defer func() {
		if x := recover(); x != nil {
			err = errors.Errorf("merge.compare[%s,%s].error:%v", a, b, x)
		}
	}()
	return sqltypes.NullsafeCompare(a, b), nil
}

// orderColumn is a resolved sort key.
type orderColumn struct {
	index     int
	desc      bool
	nullsLast bool
	// explicit NULLS FIRST/LAST holds in either direction.
	absolute bool
}

// comparator orders rows by the sort keys, the first unequal key decides.
type comparator struct {
	columns []orderColumn
}

func newComparator(fields []*querypb.Field, items []*statement.OrderItem, nullOrder string) (*comparator, error) {
	c := &comparator{}
	for _, item := range items {
		idx, err := columnIndex(fields, item.Label, item.Position)
		if err != nil {
			return nil, err
		}
		col := orderColumn{index: idx, desc: item.Desc, nullsLast: nullOrder == config.NullsLast}
		if item.NullOrder != "" {
			col.nullsLast = item.NullOrder == config.NullsLast
			col.absolute = true
		}
		c.columns = append(c.columns, col)
	}
	return c, nil
}

// compareColumn orders two cells of one sort key. The configured NULL order
// is relative to ascending order and DESC reverses it, an explicit
// NULLS FIRST/LAST is kept as written.
func compareColumn(a, b sqltypes.Value, col orderColumn) (int, error) {
	var cmp int
	switch {
	case a.IsNull() && b.IsNull():
		return 0, nil
	case a.IsNull():
		cmp = -1
		if col.nullsLast {
			cmp = 1
		}
	case b.IsNull():
		cmp = 1
		if col.nullsLast {
			cmp = -1
		}
	default:
		var err error
		if cmp, err = compareValues(a, b); err != nil {
			return 0, err
		}
		if col.desc {
			cmp = -cmp
		}
		return cmp, nil
	}
	if col.desc && !col.absolute {
		cmp = -cmp
	}
	return cmp, nil
}

func (c *comparator) compare(a, b []sqltypes.Value) (int, error) {
	for _, col := range c.columns {
		cmp, err := compareColumn(a[col.index], b[col.index], col)
		if err != nil {
			return 0, err
		}
		if cmp != 0 {
			return cmp, nil
		}
	}
	return 0, nil
}
