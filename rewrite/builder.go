/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package rewrite

import (
	"fmt"
	"math"
	"strings"

	"github.com/radondb/xshard/statement"
	"github.com/radondb/xshard/xcontext"

	"github.com/pkg/errors"
)

type tokenBuilder struct {
	engine *Engine
	ctx    *xcontext.ExecutionContext
	tokens []Token
}

func (b *tokenBuilder) add(tok Token) {
	b.tokens = append(b.tokens, tok)
}

func (b *tokenBuilder) build() error {
	stmt := b.ctx.Statement
	b.tableTokens(stmt)
	switch s := stmt.(type) {
	case *statement.Select:
		return b.selectTokens(s)
	case *statement.Insert:
		return b.insertTokens(s)
	case *statement.Update:
		if err := b.assignmentTokens(s); err != nil {
			return err
		}
		return b.whereTokens(s.Tables(), s.Where)
	case *statement.Delete:
		return b.whereTokens(s.Tables(), s.Where)
	case *statement.DDL:
		for _, idx := range s.Indexes {
			b.add(&IndexToken{span: span{idx.Start, idx.Stop}, Name: idx.Name, Quote: idx.Quote, Table: idx.Table})
		}
	}
	return nil
}

func unquote(text string) (string, string) {
	if len(text) >= 2 && (text[0] == '`' || text[0] == '"') && text[len(text)-1] == text[0] {
		return text[1 : len(text)-1], text[:1]
	}
	return text, ""
}

// ownerTable finds the table a qualifier names directly, aliases are left alone.
func ownerTable(tables []*statement.TableSegment, owner string) (*statement.TableSegment, bool) {
	t, ok := statement.FindTable(tables, owner)
	if !ok || t.Alias != "" {
		return nil, false
	}
	return t, true
}

func (b *tokenBuilder) tableTokens(stmt statement.Statement) {
	tables := stmt.Tables()
	for _, t := range tables {
		b.add(&TableToken{span: span{t.Start, t.Stop}, Table: t.Name, Quote: t.Quote})
	}
	for _, c := range statement.Columns(stmt) {
		if c.Owner == nil {
			continue
		}
		if t, ok := ownerTable(tables, c.Owner.Name); ok {
			b.add(&TableToken{span: span{c.Owner.Start, c.Owner.Stop}, Table: t.Name, Quote: c.Owner.Quote})
		}
	}
	sel, ok := stmt.(*statement.Select)
	if !ok || sel.Projections == nil {
		return
	}
	for _, p := range sel.Projections.Items {
		if p.Kind != statement.ProjectionStar || p.Owner == "" {
			continue
		}
		name, quote := unquote(p.Owner)
		if t, ok := ownerTable(tables, name); ok {
			b.add(&TableToken{span: span{p.Start, p.Start + len(p.Owner)}, Table: t.Name, Quote: quote})
		}
	}
}

func (b *tokenBuilder) selectTokens(s *statement.Select) error {
	if err := b.projectionTokens(s); err != nil {
		return err
	}
	if err := b.whereTokens(s.From, s.Where); err != nil {
		return err
	}
	b.orderTokens(s.From, s.GroupBy)
	b.orderTokens(s.From, s.OrderBy)

	route := b.ctx.Route
	if route.IsSingleUnit() {
		return nil
	}
	sctx := b.ctx.Select
	for _, agg := range sctx.Aggregations {
		if agg.Distinct {
			return errors.Errorf("rewrite.distinct.aggregation[%s].across.%d.units.unsupported", agg.Label, len(route.Units))
		}
	}

	if len(sctx.Derived) > 0 {
		items := make([]*DerivedColumn, 0, len(sctx.Derived))
		for _, d := range sctx.Derived {
			dc := &DerivedColumn{Alias: d.Alias, Aggregation: string(d.Aggregation)}
			switch {
			case d.Column != nil:
				dc.Expr = d.Column.Text()
				if d.Column.Owner != nil {
					if t, ok := ownerTable(s.From, d.Column.Owner.Name); ok {
						dc.Owner = t.Name
						dc.OwnerQuote = d.Column.Owner.Quote
						dc.Expr = d.Column.Quote + d.Column.Name + d.Column.Quote
					}
				}
			case d.Aggregation != "":
				dc.Expr = d.Argument
			default:
				dc.Expr = d.Text
			}
			items = append(items, dc)
		}
		stop := s.Projections.Stop
		b.add(&ItemsToken{span: span{stop, stop}, Items: items})
	}

	if s.Having != nil {
		b.add(&RemoveToken{span: span{s.Having.Start, s.Having.Stop}})
	}

	if s.Limit != nil {
		if o := s.Limit.Offset; o != nil {
			b.add(&OffsetToken{span: span{o.Start, o.Stop}, Value: 0, Param: o.Param, ParamIndex: o.ParamIndex})
		}
		if rc := s.Limit.RowCount; rc != nil {
			b.add(&RowCountToken{span: span{rc.Start, rc.Stop}, Value: shardRowCount(sctx), Param: rc.Param, ParamIndex: rc.ParamIndex})
		}
	}
	return nil
}

// shardRowCount is the row count each unit must return for the merge to
// paginate: every row when groups or distinct rows are folded in memory.
func shardRowCount(sctx *statement.SelectContext) int64 {
	if sctx.Distinct || (len(sctx.GroupBy) > 0 && !sctx.IsStreamGroupBy()) {
		return math.MaxInt64
	}
	offset := sctx.Offset
	if offset < 0 {
		offset = 0
	}
	if sctx.RowCount < 0 {
		return math.MaxInt64
	}
	if sctx.RowCount > math.MaxInt64-offset {
		return math.MaxInt64
	}
	return offset + sctx.RowCount
}

// nameSpan is the span of the column name, after its owner.
func nameSpan(c *statement.ColumnRef) span {
	if c.Owner != nil {
		return span{c.Owner.Stop + 1, c.Stop}
	}
	return span{c.Start, c.Stop}
}

func (b *tokenBuilder) projectionTokens(s *statement.Select) error {
	if s.Projections == nil || b.engine.encrypt.Empty() {
		return nil
	}
	for _, p := range s.Projections.Items {
		if p.Kind != statement.ProjectionColumn || p.Column == nil {
			continue
		}
		col, ok := b.engine.encryptColumn(s.From, p.Column)
		if !ok {
			continue
		}
		tok := &EncryptColumnToken{span: nameSpan(p.Column), Column: col.Cipher, Quote: p.Column.Quote}
		if p.Alias == "" {
			tok.Alias = p.Column.Name
		}
		b.add(tok)
	}
	return nil
}

func (b *tokenBuilder) orderTokens(tables []*statement.TableSegment, items []*statement.OrderByItem) {
	if b.engine.encrypt.Empty() {
		return
	}
	for _, item := range items {
		if item.Column == nil {
			continue
		}
		if col, ok := b.engine.encryptColumn(tables, item.Column); ok {
			b.add(&EncryptColumnToken{span: nameSpan(item.Column), Column: col.Cipher, Quote: item.Column.Quote})
		}
	}
}

func (b *tokenBuilder) whereTokens(tables []*statement.TableSegment, where *statement.Where) error {
	if b.engine.encrypt.Empty() {
		return nil
	}
	for _, pred := range where.Predicates() {
		col, ok := b.engine.encryptColumn(tables, pred.Column)
		if !ok {
			continue
		}
		name, enc := col.Cipher, col.Encryptor
		switch pred.Op {
		case statement.OpEQ, statement.OpIN, statement.OpNE:
			if col.Assisted != "" {
				name, enc = col.Assisted, col.AssistedEncryptor
			}
		case statement.OpLike:
			if col.Like == "" {
				return errors.Errorf("rewrite.encrypt.column[%s].does.not.support.operator[%s]", col.Logic, pred.Op)
			}
			name, enc = col.Like, col.LikeEncryptor
		default:
			return errors.Errorf("rewrite.encrypt.column[%s].does.not.support.operator[%s]", col.Logic, pred.Op)
		}
		b.add(&EncryptColumnToken{span: nameSpan(pred.Column), Column: name, Quote: pred.Column.Quote})
		for _, v := range pred.Values {
			plain, err := v.Resolve(b.ctx.Params)
			if err != nil {
				return err
			}
			cipher, err := enc.Encrypt(plain)
			if err != nil {
				return errors.Wrapf(err, "rewrite.encrypt.column[%s]", col.Logic)
			}
			b.add(&EncryptValueToken{span: span{v.Start, v.Stop}, Value: cipher, Param: v.Param})
		}
	}
	return nil
}

func (b *tokenBuilder) assignmentTokens(s *statement.Update) error {
	if b.engine.encrypt.Empty() {
		return nil
	}
	for _, a := range s.Set {
		col, ok := b.engine.encryptColumn(s.Tables(), a.Column)
		if !ok {
			continue
		}
		plain, err := a.Value.Resolve(b.ctx.Params)
		if err != nil {
			return err
		}
		assignments, err := encryptAssignments(col, plain)
		if err != nil {
			return err
		}
		start := nameSpan(a.Column).start
		b.add(&EncryptAssignmentToken{span: span{start, a.Stop}, Assignments: assignments, Param: a.Value.Param, Quote: a.Column.Quote})
	}
	return nil
}

// describe is used by the sql-show log.
func describe(tokens []Token) string {
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		parts = append(parts, fmt.Sprintf("%T@%d-%d", tok, tok.Start(), tok.Stop()))
	}
	return strings.Join(parts, " ")
}
