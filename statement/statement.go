/*
 * Radon
 *
 * Copyright 2018-2019 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package statement

import (
	"strings"

	"github.com/pkg/errors"
)

// Kind of a bound statement.
type Kind int

const (
	// KindSelect is a query.
	KindSelect Kind = iota
	// KindInsert is INSERT ... VALUES.
	KindInsert
	// KindUpdate is UPDATE.
	KindUpdate
	// KindDelete is DELETE.
	KindDelete
	// KindDDL is CREATE/ALTER/DROP/TRUNCATE.
	KindDDL
	// KindDAL is SHOW/DESC/USE and other admin statements.
	KindDAL
)

var kindNames = map[Kind]string{
	KindSelect: "SELECT",
	KindInsert: "INSERT",
	KindUpdate: "UPDATE",
	KindDelete: "DELETE",
	KindDDL:    "DDL",
	KindDAL:    "DAL",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// Statement is the bound shape produced by the parser.
// All Start/Stop pairs are half-open byte offsets into the original sql.
type Statement interface {
	Kind() Kind
	// Tables returns every table name occurrence to be rewritten.
	Tables() []*TableSegment
}

// TableSegment is one occurrence of a logic table name.
type TableSegment struct {
	Start int    `json:"start"`
	Stop  int    `json:"stop"`
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
	// Quote is the delimiter around the name, such as ` or ", empty when bare.
	Quote string `json:"quote,omitempty"`
}

// Ref returns the name the table is referred by in the statement.
func (t *TableSegment) Ref() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// OwnerSegment is the qualifier before a column, a table name or an alias.
type OwnerSegment struct {
	Start int    `json:"start"`
	Stop  int    `json:"stop"`
	Name  string `json:"name"`
	Quote string `json:"quote,omitempty"`
}

// ColumnRef is a column reference.
type ColumnRef struct {
	Start int           `json:"start"`
	Stop  int           `json:"stop"`
	Owner *OwnerSegment `json:"owner,omitempty"`
	Name  string        `json:"name"`
	Quote string        `json:"quote,omitempty"`
}

// OwnerName returns the owner or "".
func (c *ColumnRef) OwnerName() string {
	if c.Owner == nil {
		return ""
	}
	return c.Owner.Name
}

// Text renders the reference with its quotes.
func (c *ColumnRef) Text() string {
	name := c.Quote + c.Name + c.Quote
	if c.Owner != nil {
		return c.Owner.Quote + c.Owner.Name + c.Owner.Quote + "." + name
	}
	return name
}

// Expr is a literal value or a parameter marker.
type Expr struct {
	Start int `json:"start"`
	Stop  int `json:"stop"`
	// Value holds int64, float64, string or nil for literals.
	Value interface{} `json:"value,omitempty"`
	Param bool        `json:"param,omitempty"`
	// ParamIndex is the 0-based index into the bound parameters.
	ParamIndex int `json:"param-index,omitempty"`
}

// Resolve returns the literal or the bound parameter.
func (e *Expr) Resolve(params []interface{}) (interface{}, error) {
	if !e.Param {
		return e.Value, nil
	}
	if e.ParamIndex < 0 || e.ParamIndex >= len(params) {
		return nil, errors.Errorf("statement.param.index[%d].out.of.range[%d]", e.ParamIndex, len(params))
	}
	return params[e.ParamIndex], nil
}

// Operator of a predicate.
type Operator string

const (
	OpEQ      Operator = "="
	OpNE      Operator = "<>"
	OpLT      Operator = "<"
	OpLE      Operator = "<="
	OpGT      Operator = ">"
	OpGE      Operator = ">="
	OpIN      Operator = "IN"
	OpBetween Operator = "BETWEEN"
	OpLike    Operator = "LIKE"
)

// Predicate is `column op values`. BETWEEN carries two values, IN one or more.
type Predicate struct {
	Column *ColumnRef `json:"column"`
	Op     Operator   `json:"op"`
	Values []*Expr    `json:"values,omitempty"`
}

// Where is a disjunction of conjunctions: Or[i] holds predicates joined by AND.
type Where struct {
	Start int            `json:"start"`
	Stop  int            `json:"stop"`
	Or    [][]*Predicate `json:"or"`
}

// Predicates returns every predicate in order.
func (w *Where) Predicates() []*Predicate {
	if w == nil {
		return nil
	}
	var preds []*Predicate
	for _, and := range w.Or {
		preds = append(preds, and...)
	}
	return preds
}

// ProjectionKind classifies a select item.
type ProjectionKind int

const (
	// ProjectionColumn is a bare column.
	ProjectionColumn ProjectionKind = iota
	// ProjectionAggregation is COUNT/SUM/MAX/MIN/AVG(...).
	ProjectionAggregation
	// ProjectionStar is * or t.*.
	ProjectionStar
	// ProjectionExpression is anything else.
	ProjectionExpression
)

// AggregationType of an aggregation projection.
type AggregationType string

const (
	AggCount AggregationType = "COUNT"
	AggSum   AggregationType = "SUM"
	AggMax   AggregationType = "MAX"
	AggMin   AggregationType = "MIN"
	AggAvg   AggregationType = "AVG"
)

// Projection is one select item.
type Projection struct {
	Kind  ProjectionKind `json:"kind"`
	Start int            `json:"start"`
	Stop  int            `json:"stop"`
	// Column is set for ProjectionColumn, and for an aggregation whose
	// argument is a plain column.
	Column *ColumnRef `json:"column,omitempty"`
	// Owner qualifies a star, such as o in o.*.
	Owner string `json:"owner,omitempty"`
	// Text is the item without its alias, as written.
	Text        string          `json:"text,omitempty"`
	Aggregation AggregationType `json:"aggregation,omitempty"`
	// Argument is the text inside the aggregation parentheses.
	Argument string `json:"argument,omitempty"`
	Distinct bool   `json:"distinct,omitempty"`
	Alias    string `json:"alias,omitempty"`
}

// Label is the column label the item shows in a result.
func (p *Projection) Label() string {
	switch {
	case p.Alias != "":
		return p.Alias
	case p.Kind == ProjectionColumn && p.Column != nil:
		return p.Column.Name
	default:
		return p.Text
	}
}

// Projections is the select list, Stop is where derived items are appended.
type Projections struct {
	Start    int           `json:"start"`
	Stop     int           `json:"stop"`
	Distinct bool          `json:"distinct,omitempty"`
	Items    []*Projection `json:"items"`
}

// Direction of an ORDER BY item.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

const (
	// NullsFirst puts NULL first, in either direction.
	NullsFirst = "first"
	// NullsLast puts NULL last, in either direction.
	NullsLast = "last"
)

// OrderByItem is one ORDER BY or GROUP BY item: a column, a 1-based position or an expression text.
type OrderByItem struct {
	Start     int        `json:"start"`
	Stop      int        `json:"stop"`
	Column    *ColumnRef `json:"column,omitempty"`
	Position  int        `json:"position,omitempty"`
	Text      string     `json:"text,omitempty"`
	Direction Direction  `json:"direction,omitempty"`
	// NullOrder is an explicit NULLS FIRST/LAST, it overrides the configured
	// NULL order and is not reversed by DESC.
	NullOrder string `json:"null-order,omitempty"`
}

// LimitValue is a LIMIT offset or row count.
type LimitValue struct {
	Start      int   `json:"start"`
	Stop       int   `json:"stop"`
	Value      int64 `json:"value,omitempty"`
	Param      bool  `json:"param,omitempty"`
	ParamIndex int   `json:"param-index,omitempty"`
}

// Resolve returns the literal or the bound parameter as int64.
func (l *LimitValue) Resolve(params []interface{}) (int64, error) {
	if !l.Param {
		return l.Value, nil
	}
	if l.ParamIndex < 0 || l.ParamIndex >= len(params) {
		return 0, errors.Errorf("statement.limit.param.index[%d].out.of.range[%d]", l.ParamIndex, len(params))
	}
	n, ok := ToInt64(params[l.ParamIndex])
	if !ok {
		return 0, errors.Errorf("statement.limit.param[%v].not.integer", params[l.ParamIndex])
	}
	return n, nil
}

// Limit clause, either part may be nil.
type Limit struct {
	Offset   *LimitValue `json:"offset,omitempty"`
	RowCount *LimitValue `json:"row-count,omitempty"`
}

// HavingCondition compares a projection, named by its text or alias, with a value.
type HavingCondition struct {
	Text  string   `json:"text"`
	Op    Operator `json:"op"`
	Value *Expr    `json:"value"`
}

// Having clause, its conditions are joined by AND. The span covers the
// whole clause from the HAVING keyword.
type Having struct {
	Start      int                `json:"start"`
	Stop       int                `json:"stop"`
	Conditions []*HavingCondition `json:"conditions"`
}

// Select statement.
type Select struct {
	Projections *Projections    `json:"projections"`
	From        []*TableSegment `json:"from"`
	Where       *Where          `json:"where,omitempty"`
	GroupBy     []*OrderByItem  `json:"group-by,omitempty"`
	Having      *Having         `json:"having,omitempty"`
	OrderBy     []*OrderByItem  `json:"order-by,omitempty"`
	Limit       *Limit          `json:"limit,omitempty"`
}

// Kind implements Statement.
func (s *Select) Kind() Kind { return KindSelect }

// Tables implements Statement.
func (s *Select) Tables() []*TableSegment { return s.From }

// InsertColumns is the column list, the span covers the parentheses. When
// the list is omitted Names is empty and Start == Stop marks the end of the
// table name, where a list can be inserted.
type InsertColumns struct {
	Start int          `json:"start"`
	Stop  int          `json:"stop"`
	Names []*ColumnRef `json:"names,omitempty"`
}

// InsertRow is one parenthesized row of VALUES.
type InsertRow struct {
	Start int     `json:"start"`
	Stop  int     `json:"stop"`
	Exprs []*Expr `json:"exprs"`
}

// InsertValues covers every row after VALUES.
type InsertValues struct {
	Start int          `json:"start"`
	Stop  int          `json:"stop"`
	Rows  []*InsertRow `json:"rows"`
}

// Insert statement.
type Insert struct {
	Table   *TableSegment  `json:"table"`
	Columns *InsertColumns `json:"columns"`
	Values  *InsertValues  `json:"values"`
}

// Kind implements Statement.
func (s *Insert) Kind() Kind { return KindInsert }

// Tables implements Statement.
func (s *Insert) Tables() []*TableSegment { return []*TableSegment{s.Table} }

// Assignment is `column = value` in SET.
type Assignment struct {
	Start  int        `json:"start"`
	Stop   int        `json:"stop"`
	Column *ColumnRef `json:"column"`
	Value  *Expr      `json:"value"`
}

// Update statement.
type Update struct {
	Table *TableSegment `json:"table"`
	Set   []*Assignment `json:"set"`
	Where *Where        `json:"where,omitempty"`
}

// Kind implements Statement.
func (s *Update) Kind() Kind { return KindUpdate }

// Tables implements Statement.
func (s *Update) Tables() []*TableSegment { return []*TableSegment{s.Table} }

// Delete statement.
type Delete struct {
	Table *TableSegment `json:"table"`
	Where *Where        `json:"where,omitempty"`
}

// Kind implements Statement.
func (s *Delete) Kind() Kind { return KindDelete }

// Tables implements Statement.
func (s *Delete) Tables() []*TableSegment { return []*TableSegment{s.Table} }

// IndexSegment is an index name in DDL, Table names its table when known.
type IndexSegment struct {
	Start int    `json:"start"`
	Stop  int    `json:"stop"`
	Name  string `json:"name"`
	Quote string `json:"quote,omitempty"`
	Table string `json:"table,omitempty"`
}

// DDL statement.
type DDL struct {
	Targets []*TableSegment `json:"tables"`
	Indexes []*IndexSegment `json:"indexes,omitempty"`
}

// Kind implements Statement.
func (s *DDL) Kind() Kind { return KindDDL }

// Tables implements Statement.
func (s *DDL) Tables() []*TableSegment { return s.Targets }

// DAL statement.
type DAL struct {
	Targets []*TableSegment `json:"tables,omitempty"`
}

// Kind implements Statement.
func (s *DAL) Kind() Kind { return KindDAL }

// Tables implements Statement.
func (s *DAL) Tables() []*TableSegment { return s.Targets }

// Columns returns every column reference of the statement in text order
// of the clauses: projections, where, group by, order by, set, insert columns.
func Columns(stmt Statement) []*ColumnRef {
	var cols []*ColumnRef
	addWhere := func(w *Where) {
		for _, p := range w.Predicates() {
			cols = append(cols, p.Column)
		}
	}
	addItems := func(items []*OrderByItem) {
		for _, item := range items {
			if item.Column != nil {
				cols = append(cols, item.Column)
			}
		}
	}
	switch s := stmt.(type) {
	case *Select:
		if s.Projections != nil {
			for _, p := range s.Projections.Items {
				if p.Column != nil {
					cols = append(cols, p.Column)
				}
			}
		}
		addWhere(s.Where)
		addItems(s.GroupBy)
		addItems(s.OrderBy)
	case *Insert:
		if s.Columns != nil {
			cols = append(cols, s.Columns.Names...)
		}
	case *Update:
		for _, a := range s.Set {
			cols = append(cols, a.Column)
		}
		addWhere(s.Where)
	case *Delete:
		addWhere(s.Where)
	}
	return cols
}

// Exprs returns every literal or marker of the statement.
func Exprs(stmt Statement) []*Expr {
	var exprs []*Expr
	addWhere := func(w *Where) {
		for _, p := range w.Predicates() {
			exprs = append(exprs, p.Values...)
		}
	}
	switch s := stmt.(type) {
	case *Select:
		addWhere(s.Where)
		if s.Having != nil {
			for _, c := range s.Having.Conditions {
				exprs = append(exprs, c.Value)
			}
		}
	case *Insert:
		if s.Values != nil {
			for _, row := range s.Values.Rows {
				exprs = append(exprs, row.Exprs...)
			}
		}
	case *Update:
		for _, a := range s.Set {
			exprs = append(exprs, a.Value)
		}
		addWhere(s.Where)
	case *Delete:
		addWhere(s.Where)
	}
	return exprs
}

// FindTable returns the table a column owner (table name or alias) refers to.
func FindTable(tables []*TableSegment, owner string) (*TableSegment, bool) {
	for _, t := range tables {
		if strings.EqualFold(t.Alias, owner) {
			return t, true
		}
	}
	for _, t := range tables {
		if t.Alias == "" && strings.EqualFold(t.Name, owner) {
			return t, true
		}
	}
	return nil, false
}

// ToInt64 converts integral go values.
func ToInt64(v interface{}) (int64, bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}
