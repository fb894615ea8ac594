/*
 * Radon
 *
 * Copyright 2018-2019 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package statement

import (
	"fmt"
	"strings"
)

// Builder locates segments in a sql text by searching forward from a cursor,
// so fixtures are written in the order the pieces appear.
type Builder struct {
	sql    string
	cursor int
}

// NewBuilder creates a builder over the sql.
func NewBuilder(sql string) *Builder {
	return &Builder{sql: sql}
}

// SQL returns the text.
func (b *Builder) SQL() string {
	return b.sql
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// Span finds the next occurrence of text that is not part of a longer identifier.
func (b *Builder) Span(text string) (int, int) {
	from := b.cursor
	for {
		i := strings.Index(b.sql[from:], text)
		if i < 0 {
			panic(fmt.Sprintf("builder: %q not found after %d in %q", text, b.cursor, b.sql))
		}
		start := from + i
		stop := start + len(text)
		left := start == 0 || !isIdentByte(b.sql[start-1]) || !isIdentByte(text[0])
		right := stop == len(b.sql) || !isIdentByte(b.sql[stop]) || !isIdentByte(text[len(text)-1])
		if left && right {
			b.cursor = stop
			return start, stop
		}
		from = start + 1
	}
}

// At returns the offset right after the next occurrence of text.
func (b *Builder) At(text string) int {
	_, stop := b.Span(text)
	return stop
}

func unquote(text string) (string, string) {
	if len(text) >= 2 && (text[0] == '`' || text[0] == '"') && text[len(text)-1] == text[0] {
		return text[1 : len(text)-1], text[:1]
	}
	return text, ""
}

// Table locates a table name, quoted or not.
func (b *Builder) Table(text string) *TableSegment {
	start, stop := b.Span(text)
	name, quote := unquote(text)
	return &TableSegment{Start: start, Stop: stop, Name: name, Quote: quote}
}

// TableAs locates a table name with an alias.
func (b *Builder) TableAs(text, alias string) *TableSegment {
	t := b.Table(text)
	t.Alias = alias
	return t
}

// Column locates `name` or `owner.name`.
func (b *Builder) Column(text string) *ColumnRef {
	start, _ := b.Span(text)
	return columnAt(text, start)
}

func columnAt(text string, start int) *ColumnRef {
	col := &ColumnRef{Start: start, Stop: start + len(text)}
	name := text
	if i := strings.LastIndex(text, "."); i > 0 {
		owner, quote := unquote(text[:i])
		col.Owner = &OwnerSegment{Start: start, Stop: start + i, Name: owner, Quote: quote}
		name = text[i+1:]
	}
	col.Name, col.Quote = unquote(name)
	return col
}

// Literal locates a literal and carries its value.
func (b *Builder) Literal(text string, value interface{}) *Expr {
	start, stop := b.Span(text)
	return &Expr{Start: start, Stop: stop, Value: value}
}

// Param locates the next ? marker bound to params[index].
func (b *Builder) Param(index int) *Expr {
	start, stop := b.Span("?")
	return &Expr{Start: start, Stop: stop, Param: true, ParamIndex: index}
}

// LimitLiteral locates a LIMIT number.
func (b *Builder) LimitLiteral(text string, value int64) *LimitValue {
	start, stop := b.Span(text)
	return &LimitValue{Start: start, Stop: stop, Value: value}
}

// LimitParam locates a LIMIT ? marker.
func (b *Builder) LimitParam(index int) *LimitValue {
	start, stop := b.Span("?")
	return &LimitValue{Start: start, Stop: stop, Param: true, ParamIndex: index}
}

// ColumnItem is a column projection.
func (b *Builder) ColumnItem(text, alias string) *Projection {
	col := b.Column(text)
	p := &Projection{Kind: ProjectionColumn, Start: col.Start, Stop: col.Stop, Column: col, Text: text, Alias: alias}
	if alias != "" {
		p.Stop = b.At(alias)
	}
	return p
}

// AggregationItem is an aggregation projection such as COUNT(*) or AVG(price).
func (b *Builder) AggregationItem(text, alias string) *Projection {
	start, stop := b.Span(text)
	open := strings.Index(text, "(")
	arg := strings.TrimSpace(text[open+1 : len(text)-1])
	p := &Projection{
		Kind:        ProjectionAggregation,
		Start:       start,
		Stop:        stop,
		Text:        text,
		Aggregation: AggregationType(strings.ToUpper(strings.TrimSpace(text[:open]))),
		Alias:       alias,
	}
	if strings.HasPrefix(strings.ToUpper(arg), "DISTINCT ") {
		p.Distinct = true
		arg = strings.TrimSpace(arg[len("DISTINCT "):])
	}
	p.Argument = arg
	if isColumnText(arg) {
		p.Column = columnAt(arg, start+strings.LastIndex(text[:len(text)-1], arg))
	}
	if alias != "" {
		p.Stop = b.At(alias)
	}
	return p
}

// isColumnText reports whether an aggregation argument is a bare column reference.
func isColumnText(text string) bool {
	if text == "" || (text[0] >= '0' && text[0] <= '9') {
		return false
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if !isIdentByte(c) && c != '.' && c != '`' && c != '"' {
			return false
		}
	}
	return true
}

// StarItem is * or owner.*.
func (b *Builder) StarItem(text string) *Projection {
	start, stop := b.Span(text)
	p := &Projection{Kind: ProjectionStar, Start: start, Stop: stop, Text: text}
	if i := strings.Index(text, "."); i > 0 {
		p.Owner = text[:i]
	}
	return p
}

// Projections wraps items, the span runs from the first to the last item.
func (b *Builder) Projections(distinct bool, items ...*Projection) *Projections {
	return &Projections{
		Start:    items[0].Start,
		Stop:     items[len(items)-1].Stop,
		Distinct: distinct,
		Items:    items,
	}
}

// OrderBy locates a column item with a direction.
func (b *Builder) OrderBy(text string, dir Direction) *OrderByItem {
	col := b.Column(text)
	return &OrderByItem{Start: col.Start, Stop: col.Stop, Column: col, Direction: dir}
}

// NewWhere wraps predicates: each argument is one AND group.
func NewWhere(or ...[]*Predicate) *Where {
	return &Where{Or: or}
}

// And groups predicates.
func And(preds ...*Predicate) []*Predicate {
	return preds
}

// Pred builds a predicate.
func Pred(col *ColumnRef, op Operator, values ...*Expr) *Predicate {
	return &Predicate{Column: col, Op: op, Values: values}
}
