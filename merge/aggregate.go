/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package merge

import (
	"strconv"
	"strings"

	"github.com/radondb/xshard/config"
	"github.com/radondb/xshard/statement"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	querypb "github.com/xelabs/go-mysqlstack/sqlparser/depends/query"
	"github.com/xelabs/go-mysqlstack/sqlparser/depends/sqltypes"
)

// aggregator folds one aggregation column of the unit rows.
type aggregator struct {
	typ   statement.AggregationType
	index int
	// count and sum are the derived columns of AVG.
	count int
	sum   int
}

// accumulator is the running state of one aggregator in one group.
type accumulator struct {
	value    sqltypes.Value
	sum      decimal.Decimal
	count    decimal.Decimal
	seen     bool
	integral bool
	float    bool
}

type group struct {
	row  []sqltypes.Value
	accs []*accumulator
}

// folder folds unit rows into groups.
type folder struct {
	aggregators []*aggregator
	scale       int32
	rounding    string
}

func newFolder(fields []*querypb.Field, sctx *statement.SelectContext, props *config.PropsConfig) (*folder, error) {
	f := &folder{scale: props.AvgScale, rounding: props.AvgRounding}
	for _, item := range sctx.Aggregations {
		idx, err := columnIndex(fields, item.Label, item.Position)
		if err != nil {
			return nil, err
		}
		agg := &aggregator{typ: item.Type, index: idx, count: -1, sum: -1}
		if item.Type == statement.AggAvg {
			if item.Count == nil || item.Sum == nil {
				return nil, errors.Errorf("merge.avg[%s].derived.columns.missing", item.Label)
			}
			if agg.count, err = columnIndex(fields, item.Count.Label, item.Count.Position); err != nil {
				return nil, err
			}
			if agg.sum, err = columnIndex(fields, item.Sum.Label, item.Sum.Position); err != nil {
				return nil, err
			}
		}
		f.aggregators = append(f.aggregators, agg)
	}
	return f, nil
}

func (f *folder) newGroup(row []sqltypes.Value) (*group, error) {
	g := &group{row: row, accs: make([]*accumulator, len(f.aggregators))}
	for i := range g.accs {
		g.accs[i] = &accumulator{integral: true}
	}
	return g, f.fold(g, row)
}

func toDecimal(v sqltypes.Value) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.ToString())
	if err != nil {
		return decimal.Zero, errors.Errorf("merge.value[%s].is.not.a.number", v.ToString())
	}
	return d, nil
}

func (acc *accumulator) add(v sqltypes.Value) error {
	if v.IsNull() {
		return nil
	}
	d, err := toDecimal(v)
	if err != nil {
		return err
	}
	acc.sum = acc.sum.Add(d)
	acc.seen = true
	switch {
	case v.IsIntegral():
	case v.IsFloat():
		acc.integral, acc.float = false, true
	default:
		acc.integral = false
	}
	return nil
}

func (f *folder) fold(g *group, row []sqltypes.Value) error {
	for i, agg := range f.aggregators {
		acc := g.accs[i]
		switch agg.typ {
		case statement.AggCount, statement.AggSum:
			if err := acc.add(row[agg.index]); err != nil {
				return err
			}
		case statement.AggMax, statement.AggMin:
			v := row[agg.index]
			if v.IsNull() {
				continue
			}
			if !acc.seen {
				acc.value, acc.seen = v, true
				continue
			}
			cmp, err := compareValues(v, acc.value)
			if err != nil {
				return err
			}
			if (agg.typ == statement.AggMax && cmp > 0) || (agg.typ == statement.AggMin && cmp < 0) {
				acc.value = v
			}
		case statement.AggAvg:
			if err := acc.add(row[agg.sum]); err != nil {
				return err
			}
			if c := row[agg.count]; !c.IsNull() {
				d, err := toDecimal(c)
				if err != nil {
					return err
				}
				acc.count = acc.count.Add(d)
			}
		default:
			return errors.Errorf("merge.aggregation[%s].unsupported", agg.typ)
		}
	}
	return nil
}

func (f *folder) round(d decimal.Decimal) decimal.Decimal {
	switch f.rounding {
	case config.RoundHalfEven:
		return d.RoundBank(f.scale)
	case config.RoundDown:
		return d.Truncate(f.scale)
	}
	return d.Round(f.scale)
}

func sumValue(acc *accumulator) sqltypes.Value {
	if !acc.seen {
		return sqltypes.NULL
	}
	switch {
	case acc.integral && acc.sum.IsInteger():
		return sqltypes.MakeTrusted(querypb.Type_INT64, []byte(acc.sum.String()))
	case acc.float:
		return sqltypes.MakeTrusted(querypb.Type_FLOAT64, []byte(acc.sum.String()))
	}
	return sqltypes.MakeTrusted(querypb.Type_DECIMAL, []byte(acc.sum.String()))
}

// finish writes the folded aggregations over a copy of the first row of the group.
func (f *folder) finish(g *group) []sqltypes.Value {
	row := make([]sqltypes.Value, len(g.row))
	copy(row, g.row)
	for i, agg := range f.aggregators {
		acc := g.accs[i]
		switch agg.typ {
		case statement.AggCount:
			row[agg.index] = sqltypes.MakeTrusted(querypb.Type_INT64, []byte(acc.sum.String()))
		case statement.AggSum:
			row[agg.index] = sumValue(acc)
		case statement.AggMax, statement.AggMin:
			row[agg.index] = sqltypes.NULL
			if acc.seen {
				row[agg.index] = acc.value
			}
		case statement.AggAvg:
			row[agg.index] = sqltypes.NULL
			if acc.seen && !acc.count.IsZero() {
				avg := f.round(acc.sum.Div(acc.count))
				row[agg.index] = sqltypes.MakeTrusted(querypb.Type_DECIMAL, []byte(avg.StringFixed(f.scale)))
			}
		}
	}
	return row
}

// groupKey encodes the key columns, equal numbers of any type share a key.
func groupKey(row []sqltypes.Value, keys []int) string {
	var b strings.Builder
	for _, idx := range keys {
		v := row[idx]
		switch {
		case v.IsNull():
			b.WriteString("N;")
		case v.IsIntegral() || v.IsFloat() || v.Type() == querypb.Type_DECIMAL:
			if d, err := toDecimal(v); err == nil {
				b.WriteString("D" + d.String() + ";")
				continue
			}
			fallthrough
		default:
			raw := v.ToString()
			b.WriteString("S" + strconv.Itoa(len(raw)) + ":" + raw + ";")
		}
	}
	return b.String()
}

// having is a resolved HAVING condition.
type having struct {
	index int
	op    statement.Operator
	value sqltypes.Value
}

func newHavings(fields []*querypb.Field, items []*statement.HavingItem) ([]*having, error) {
	var out []*having
	for _, item := range items {
		idx, err := columnIndex(fields, item.Label, item.Position)
		if err != nil {
			return nil, err
		}
		v, err := sqltypes.BuildValue(item.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "merge.having[%s]", item.Label)
		}
		out = append(out, &having{index: idx, op: item.Op, value: v})
	}
	return out, nil
}

func matchHavings(row []sqltypes.Value, havings []*having) (bool, error) {
	for _, h := range havings {
		v := row[h.index]
		if v.IsNull() || h.value.IsNull() {
			return false, nil
		}
		cmp, err := compareValues(v, h.value)
		if err != nil {
			return false, err
		}
		var ok bool
		switch h.op {
		case statement.OpEQ:
			ok = cmp == 0
		case statement.OpNE:
			ok = cmp != 0
		case statement.OpLT:
			ok = cmp < 0
		case statement.OpLE:
			ok = cmp <= 0
		case statement.OpGT:
			ok = cmp > 0
		case statement.OpGE:
			ok = cmp >= 0
		default:
			return false, errors.Errorf("merge.having.operator[%s].unsupported", h.op)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
