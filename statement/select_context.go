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

	"github.com/pkg/errors"
)

const (
	avgDerivedCount = "AVG_DERIVED_COUNT_%d"
	avgDerivedSum   = "AVG_DERIVED_SUM_%d"
	orderByDerived  = "ORDER_BY_DERIVED_%d"
	groupByDerived  = "GROUP_BY_DERIVED_%d"
)

// ResultColumn locates a column in a shard result: by Position when it is
// known (no star before it), otherwise by Label.
type ResultColumn struct {
	Label    string
	Position int
}

// AggregationItem is an aggregation projection to fold across shards.
type AggregationItem struct {
	ResultColumn
	Type     AggregationType
	Distinct bool
	Argument string
	// Column is the argument when it is a plain column.
	Column *ColumnRef
	// Count and Sum are the derived columns of AVG.
	Count *ResultColumn
	Sum   *ResultColumn
}

// OrderItem is a resolved ORDER BY or GROUP BY item.
type OrderItem struct {
	ResultColumn
	Desc      bool
	NullOrder string
}

// HavingItem is a resolved HAVING condition.
type HavingItem struct {
	ResultColumn
	Op    Operator
	Value interface{}
}

// DerivedItem is a projection appended by the rewrite for the merge.
type DerivedItem struct {
	Alias string
	// Aggregation and Argument are set for the AVG pieces, Column too when
	// the argument is a plain column.
	Aggregation AggregationType
	Argument    string
	// Column or Text is set for ORDER BY and GROUP BY items.
	Column *ColumnRef
	Text   string
}

// SelectContext is what the rewrite and the merge need to know about a query,
// computed once per execution.
type SelectContext struct {
	Select       *Select
	Aggregations []*AggregationItem
	GroupBy      []*OrderItem
	OrderBy      []*OrderItem
	Having       []*HavingItem
	Derived      []*DerivedItem
	Distinct     bool
	HasStar      bool
	// Offset and RowCount are -1 when absent.
	Offset   int64
	RowCount int64
}

// NewSelectContext resolves the select against the bound params.
func NewSelectContext(sel *Select, params []interface{}) (*SelectContext, error) {
	ctx := &SelectContext{
		Select:   sel,
		Offset:   -1,
		RowCount: -1,
	}
	if sel.Projections == nil {
		return nil, errors.New("statement.select.projections.can.not.be.empty")
	}
	ctx.Distinct = sel.Projections.Distinct

	items := sel.Projections.Items
	starSeen := false
	for i, p := range items {
		if p.Kind == ProjectionStar {
			starSeen = true
			ctx.HasStar = true
			continue
		}
		if p.Kind != ProjectionAggregation {
			continue
		}
		agg := &AggregationItem{
			ResultColumn: ResultColumn{Label: p.Label(), Position: i},
			Type:         p.Aggregation,
			Distinct:     p.Distinct,
			Argument:     p.Argument,
			Column:       p.Column,
		}
		if starSeen {
			agg.Position = -1
		}
		ctx.Aggregations = append(ctx.Aggregations, agg)
	}

	for i, agg := range ctx.Aggregations {
		if agg.Type != AggAvg {
			continue
		}
		count := ctx.derive(&DerivedItem{Alias: fmt.Sprintf(avgDerivedCount, i), Aggregation: AggCount, Argument: agg.Argument, Column: agg.Column})
		sum := ctx.derive(&DerivedItem{Alias: fmt.Sprintf(avgDerivedSum, i), Aggregation: AggSum, Argument: agg.Argument, Column: agg.Column})
		agg.Count, agg.Sum = count, sum
	}

	var err error
	if ctx.GroupBy, err = ctx.resolveItems(sel.GroupBy, groupByDerived); err != nil {
		return nil, err
	}
	if ctx.OrderBy, err = ctx.resolveItems(sel.OrderBy, orderByDerived); err != nil {
		return nil, err
	}

	if sel.Having != nil {
		for _, c := range sel.Having.Conditions {
			col, ok := ctx.findText(c.Text)
			if !ok {
				return nil, errors.Errorf("statement.having[%s].not.in.projections", c.Text)
			}
			v, err := c.Value.Resolve(params)
			if err != nil {
				return nil, err
			}
			ctx.Having = append(ctx.Having, &HavingItem{ResultColumn: *col, Op: c.Op, Value: v})
		}
	}

	if sel.Limit != nil {
		if sel.Limit.Offset != nil {
			if ctx.Offset, err = sel.Limit.Offset.Resolve(params); err != nil {
				return nil, err
			}
		}
		if sel.Limit.RowCount != nil {
			if ctx.RowCount, err = sel.Limit.RowCount.Resolve(params); err != nil {
				return nil, err
			}
		}
		if ctx.Offset < -1 || ctx.RowCount < -1 {
			return nil, errors.Errorf("statement.limit[%d,%d].negative", ctx.Offset, ctx.RowCount)
		}
	}
	return ctx, nil
}

func (ctx *SelectContext) derive(d *DerivedItem) *ResultColumn {
	pos := -1
	if !ctx.HasStar {
		pos = len(ctx.Select.Projections.Items) + len(ctx.Derived)
	}
	ctx.Derived = append(ctx.Derived, d)
	return &ResultColumn{Label: d.Alias, Position: pos}
}

func (ctx *SelectContext) resolveItems(items []*OrderByItem, derivedFormat string) ([]*OrderItem, error) {
	var resolved []*OrderItem
	n := 0
	for _, item := range items {
		oi := &OrderItem{Desc: item.Direction == Desc, NullOrder: item.NullOrder}
		switch {
		case item.Position > 0:
			projs := ctx.Select.Projections.Items
			if !ctx.HasStar && item.Position > len(projs) {
				return nil, errors.Errorf("statement.order.position[%d].out.of.range[%d]", item.Position, len(projs))
			}
			oi.ResultColumn = ResultColumn{Position: item.Position - 1}
			if !ctx.HasStar {
				oi.Label = projs[item.Position-1].Label()
			}
		case item.Column != nil:
			if col, ok := ctx.findColumn(item.Column); ok {
				oi.ResultColumn = *col
				break
			}
			if col, ok := ctx.findDerived(item.Column, ""); ok {
				oi.ResultColumn = *col
				break
			}
			oi.ResultColumn = *ctx.derive(&DerivedItem{Alias: fmt.Sprintf(derivedFormat, n), Column: item.Column})
			n++
		case item.Text != "":
			if col, ok := ctx.findText(item.Text); ok {
				oi.ResultColumn = *col
				break
			}
			if col, ok := ctx.findDerived(nil, item.Text); ok {
				oi.ResultColumn = *col
				break
			}
			oi.ResultColumn = *ctx.derive(&DerivedItem{Alias: fmt.Sprintf(derivedFormat, n), Text: item.Text})
			n++
		default:
			return nil, errors.New("statement.order.item.is.empty")
		}
		resolved = append(resolved, oi)
	}
	return resolved, nil
}

func (ctx *SelectContext) position(i int) int {
	for _, p := range ctx.Select.Projections.Items[:i] {
		if p.Kind == ProjectionStar {
			return -1
		}
	}
	return i
}

// findColumn matches an alias first, then a selected column, then a star.
func (ctx *SelectContext) findColumn(c *ColumnRef) (*ResultColumn, bool) {
	items := ctx.Select.Projections.Items
	if c.Owner == nil {
		for i, p := range items {
			if p.Alias != "" && strings.EqualFold(p.Alias, c.Name) {
				return &ResultColumn{Label: p.Alias, Position: ctx.position(i)}, true
			}
		}
	}
	for i, p := range items {
		if p.Kind != ProjectionColumn || p.Column == nil || !strings.EqualFold(p.Column.Name, c.Name) {
			continue
		}
		if c.Owner != nil && p.Column.Owner != nil && !strings.EqualFold(c.Owner.Name, p.Column.Owner.Name) {
			continue
		}
		return &ResultColumn{Label: p.Label(), Position: ctx.position(i)}, true
	}
	for _, p := range items {
		if p.Kind == ProjectionStar && (p.Owner == "" || c.Owner == nil || strings.EqualFold(p.Owner, c.Owner.Name)) {
			return &ResultColumn{Label: c.Name, Position: -1}, true
		}
	}
	return nil, false
}

func (ctx *SelectContext) findText(text string) (*ResultColumn, bool) {
	want := normalize(text)
	for i, p := range ctx.Select.Projections.Items {
		if (p.Alias != "" && strings.EqualFold(p.Alias, text)) || (p.Text != "" && normalize(p.Text) == want) {
			return &ResultColumn{Label: p.Label(), Position: ctx.position(i)}, true
		}
	}
	return nil, false
}

func (ctx *SelectContext) findDerived(c *ColumnRef, text string) (*ResultColumn, bool) {
	for i, d := range ctx.Derived {
		hit := false
		switch {
		case d.Aggregation != "":
		case c != nil && d.Column != nil:
			hit = strings.EqualFold(d.Column.Name, c.Name) && strings.EqualFold(d.Column.OwnerName(), c.OwnerName())
		case c == nil && d.Text != "":
			hit = normalize(d.Text) == normalize(text)
		}
		if hit {
			pos := -1
			if !ctx.HasStar {
				pos = len(ctx.Select.Projections.Items) + i
			}
			return &ResultColumn{Label: d.Alias, Position: pos}, true
		}
	}
	return nil, false
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// IsGroupBy reports whether rows must be folded into groups.
func (ctx *SelectContext) IsGroupBy() bool {
	return len(ctx.GroupBy) > 0 || len(ctx.Aggregations) > 0 || len(ctx.Having) > 0
}

// IsStreamGroupBy reports whether ORDER BY matches GROUP BY so shard results
// arrive grouped and can be folded without materializing them.
func (ctx *SelectContext) IsStreamGroupBy() bool {
	if len(ctx.GroupBy) == 0 || len(ctx.GroupBy) != len(ctx.OrderBy) || len(ctx.Having) > 0 {
		return false
	}
	for i, g := range ctx.GroupBy {
		o := ctx.OrderBy[i]
		if !strings.EqualFold(g.Label, o.Label) || g.Position != o.Position {
			return false
		}
	}
	return true
}

// HasPagination reports whether LIMIT is present.
func (ctx *SelectContext) HasPagination() bool {
	return ctx.Offset >= 0 || ctx.RowCount >= 0
}

// HasDistinctAggregation reports COUNT(DISTINCT ...) and friends.
func (ctx *SelectContext) HasDistinctAggregation() bool {
	for _, agg := range ctx.Aggregations {
		if agg.Distinct {
			return true
		}
	}
	return false
}

// VisibleColumns returns how many of total result columns the client sees.
func (ctx *SelectContext) VisibleColumns(total int) int {
	n := total - len(ctx.Derived)
	if n < 0 {
		return 0
	}
	return n
}
