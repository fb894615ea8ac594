/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package rewrite

import (
	"sort"
	"strconv"
	"strings"

	"github.com/radondb/xshard/config"
	"github.com/radondb/xshard/router"
	"github.com/radondb/xshard/statement"
	"github.com/radondb/xshard/xcontext"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xelabs/go-mysqlstack/sqlparser/depends/sqltypes"
)

// marker is a parameter marker of the logic sql.
type marker struct {
	start int
	stop  int
	index int
}

func paramMarkers(stmt statement.Statement) []marker {
	var markers []marker
	for _, e := range statement.Exprs(stmt) {
		if e.Param {
			markers = append(markers, marker{start: e.Start, stop: e.Stop, index: e.ParamIndex})
		}
	}
	if sel, ok := stmt.(*statement.Select); ok && sel.Limit != nil {
		for _, l := range []*statement.LimitValue{sel.Limit.Offset, sel.Limit.RowCount} {
			if l != nil && l.Param {
				markers = append(markers, marker{start: l.Start, stop: l.Stop, index: l.ParamIndex})
			}
		}
	}
	sort.Slice(markers, func(i, j int) bool { return markers[i].start < markers[j].start })
	return markers
}

// writer builds one unit statement and its params in marker order.
type writer struct {
	buf       strings.Builder
	dialect   string
	logic     []interface{}
	params    []interface{}
	markers   []marker
	next      int
	numbering int
}

func newWriter(dialect string, logic []interface{}, markers []marker) *writer {
	return &writer{dialect: dialect, logic: logic, markers: markers}
}

func (w *writer) bind(v interface{}) {
	w.params = append(w.params, v)
	if w.dialect == config.DialectPostgreSQL {
		w.numbering++
		w.buf.WriteString("$")
		w.buf.WriteString(strconv.Itoa(w.numbering))
		return
	}
	w.buf.WriteString("?")
}

func (w *writer) bindLogic(index int) error {
	if index < 0 || index >= len(w.logic) {
		return errors.Errorf("rewrite.param.index[%d].out.of.range[%d]", index, len(w.logic))
	}
	w.bind(w.logic[index])
	return nil
}

// copy writes sql[from:to] and rebinds the markers inside it. Markers
// before from were covered by a token and are dropped.
func (w *writer) copy(sql string, from, to int) error {
	for w.next < len(w.markers) && w.markers[w.next].start < from {
		w.next++
	}
	for w.next < len(w.markers) && w.markers[w.next].stop <= to {
		m := w.markers[w.next]
		w.buf.WriteString(sql[from:m.start])
		if err := w.bindLogic(m.index); err != nil {
			return err
		}
		from = m.stop
		w.next++
	}
	w.buf.WriteString(sql[from:to])
	return nil
}

func (w *writer) literal(v interface{}) error {
	switch x := v.(type) {
	case bool:
		if x {
			v = int64(1)
		} else {
			v = int64(0)
		}
	case decimal.Decimal:
		w.buf.WriteString(x.String())
		return nil
	case string:
		if w.dialect == config.DialectPostgreSQL {
			w.buf.WriteString("'" + strings.ReplaceAll(x, "'", "''") + "'")
			return nil
		}
	}
	val, err := sqltypes.BuildValue(v)
	if err != nil {
		return errors.Wrapf(err, "rewrite.literal[%v]", v)
	}
	val.EncodeSQL(&w.buf)
	return nil
}

// value writes a derived value as a marker when the surrounding values are bound.
func (w *writer) value(v interface{}, bound bool) error {
	if bound {
		w.bind(v)
		return nil
	}
	return w.literal(v)
}

func quoted(name, quote string) string {
	return quote + name + quote
}

// Render writes the statement of one unit: the text between tokens is
// copied, every token renders its replacement for the unit.
func (e *Engine) Render(ctx *xcontext.ExecutionContext, tokens []Token, unit *router.TableUnit) (string, []interface{}, error) {
	sql := ctx.SQL
	w := newWriter(e.props.Dialect, ctx.Params, paramMarkers(ctx.Statement))
	cursor := 0
	for _, tok := range tokens {
		if tok.Start() < cursor || tok.Stop() > len(sql) || tok.Start() > tok.Stop() {
			return "", nil, errors.Errorf("rewrite.token[%T@%d-%d].out.of.range[%d]", tok, tok.Start(), tok.Stop(), len(sql))
		}
		if err := w.copy(sql, cursor, tok.Start()); err != nil {
			return "", nil, err
		}
		if err := e.renderToken(w, tok, unit); err != nil {
			return "", nil, err
		}
		cursor = tok.Stop()
	}
	if err := w.copy(sql, cursor, len(sql)); err != nil {
		return "", nil, err
	}
	return w.buf.String(), w.params, nil
}

func (e *Engine) renderToken(w *writer, tok Token, unit *router.TableUnit) error {
	switch t := tok.(type) {
	case *TableToken:
		name := t.Table
		if actual, ok := unit.ActualTable(t.Table); ok {
			name = actual
		}
		w.buf.WriteString(quoted(name, t.Quote))
	case *IndexToken:
		table := t.Table
		if table == "" {
			if len(unit.Tables) != 1 {
				return errors.Errorf("rewrite.index[%s].table.ambiguous", t.Name)
			}
			table = unit.Tables[0].LogicTable
		}
		name := t.Name
		if actual, ok := unit.ActualTable(table); ok && actual != table {
			name = name + "_" + actual
		}
		w.buf.WriteString(quoted(name, t.Quote))
	case *InsertColumnsToken:
		if t.Synthesized {
			w.buf.WriteString(" ")
		}
		w.buf.WriteString("(" + strings.Join(t.Columns, ", ") + ")")
	case *InsertValuesToken:
		return e.renderRows(w, t, unit)
	case *ItemsToken:
		for _, item := range t.Items {
			expr := item.Expr
			if item.Owner != "" {
				owner := item.Owner
				if actual, ok := unit.ActualTable(item.Owner); ok {
					owner = actual
				}
				expr = quoted(owner, item.OwnerQuote) + "." + expr
			}
			if item.Aggregation != "" {
				expr = item.Aggregation + "(" + expr + ")"
			}
			w.buf.WriteString(", " + expr + " AS " + item.Alias)
		}
	case *OffsetToken:
		if t.Param {
			w.bind(t.Value)
		} else {
			w.buf.WriteString(strconv.FormatInt(t.Value, 10))
		}
	case *RowCountToken:
		if t.Param {
			w.bind(t.Value)
		} else {
			w.buf.WriteString(strconv.FormatInt(t.Value, 10))
		}
	case *RemoveToken:
	case *EncryptColumnToken:
		w.buf.WriteString(quoted(t.Column, t.Quote))
		if t.Alias != "" {
			w.buf.WriteString(" AS " + quoted(t.Alias, t.Quote))
		}
	case *EncryptValueToken:
		return w.value(t.Value, t.Param)
	case *EncryptAssignmentToken:
		for i, a := range t.Assignments {
			if i > 0 {
				w.buf.WriteString(", ")
			}
			w.buf.WriteString(quoted(a.Column, t.Quote) + " = ")
			if err := w.value(a.Value, t.Param); err != nil {
				return err
			}
		}
	default:
		return errors.Errorf("rewrite.unsupported.token[%T]", tok)
	}
	return nil
}

func rowRoutesTo(row *InsertRowValues, unit *router.TableUnit, table string) bool {
	if len(row.Nodes) == 0 {
		return true
	}
	actual, ok := unit.ActualTable(table)
	if !ok {
		actual = table
	}
	for _, n := range row.Nodes {
		if n.DataSource == unit.DataSource && n.Table == actual {
			return true
		}
	}
	return false
}

func (e *Engine) renderRows(w *writer, t *InsertValuesToken, unit *router.TableUnit) error {
	n := 0
	for _, row := range t.Rows {
		if !rowRoutesTo(row, unit, t.Table) {
			continue
		}
		if n > 0 {
			w.buf.WriteString(", ")
		}
		n++
		w.buf.WriteString("(")
		for i, v := range row.Values {
			if i > 0 {
				w.buf.WriteString(", ")
			}
			switch {
			case v.Derived:
				if err := w.value(v.Value, row.UsesParams); err != nil {
					return err
				}
			case v.Param:
				if err := w.bindLogic(v.ParamIndex); err != nil {
					return err
				}
			default:
				w.buf.WriteString(v.Text)
			}
		}
		w.buf.WriteString(")")
	}
	if n == 0 {
		return errors.Errorf("rewrite.insert.table[%s].unit[%s].has.no.rows", t.Table, unit)
	}
	return nil
}
