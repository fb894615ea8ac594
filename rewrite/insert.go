/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package rewrite

import (
	"github.com/radondb/xshard/condition"
	"github.com/radondb/xshard/encrypt"
	"github.com/radondb/xshard/statement"

	"github.com/pkg/errors"
)

// insertTokens completes the column list with derived columns and splits
// the rows by the data node each one routes to.
func (b *tokenBuilder) insertTokens(s *statement.Insert) error {
	logic := s.Table.Name
	tr, sharding := b.engine.rule.TableRule(logic)
	etable, encrypted := b.engine.encrypt.Table(logic)
	if !sharding && !encrypted {
		return nil
	}
	if s.Values == nil || len(s.Values.Rows) == 0 {
		return errors.Errorf("rewrite.insert.table[%s].has.no.values", logic)
	}

	var key *condition.GeneratedKey
	if b.ctx.Extraction != nil {
		key = b.ctx.Extraction.GeneratedKey
	}
	generated := key != nil && key.Generated

	var names, quotes []string
	explicit := s.Columns != nil && len(s.Columns.Names) > 0
	if explicit {
		for _, c := range s.Columns.Names {
			names = append(names, c.Name)
			quotes = append(quotes, c.Quote)
		}
	} else {
		if b.ctx.Extraction != nil {
			names = b.ctx.Extraction.InsertColumns
		}
		if len(names) == 0 && sharding {
			names = tr.Columns
		}
		quotes = make([]string, len(names))
	}
	if len(names) == 0 && (generated || encrypted) {
		return errors.Errorf("rewrite.insert.table[%s].columns.unknown", logic)
	}

	ciphers := make([]*encrypt.Column, len(names))
	derived := generated
	if encrypted {
		for i, name := range names {
			if col, ok := etable.Column(name); ok {
				ciphers[i] = col
				derived = true
			}
		}
	}

	if derived {
		tok := &InsertColumnsToken{}
		for i, name := range names {
			if ciphers[i] != nil {
				name = ciphers[i].Cipher
			}
			tok.Columns = append(tok.Columns, quotes[i]+name+quotes[i])
		}
		if generated {
			tok.Columns = append(tok.Columns, key.Column)
		}
		for _, col := range ciphers {
			if col == nil {
				continue
			}
			if col.Assisted != "" {
				tok.Columns = append(tok.Columns, col.Assisted)
			}
			if col.Like != "" {
				tok.Columns = append(tok.Columns, col.Like)
			}
		}
		if explicit {
			tok.span = span{s.Columns.Start, s.Columns.Stop}
		} else {
			pos := s.Table.Stop
			if s.Columns != nil {
				pos = s.Columns.Start
			}
			tok.span = span{pos, pos}
			tok.Synthesized = true
		}
		b.add(tok)
	}

	sql := b.ctx.SQL
	values := &InsertValuesToken{span: span{s.Values.Start, s.Values.Stop}, Table: logic}
	for r, row := range s.Values.Rows {
		if len(names) > 0 && len(row.Exprs) != len(names) {
			return errors.Errorf("rewrite.insert.table[%s].row[%d].values[%d].columns[%d].mismatch", logic, r, len(row.Exprs), len(names))
		}
		rv := &InsertRowValues{}
		var assisted []*InsertValue
		for i, ex := range row.Exprs {
			if ex.Param {
				rv.UsesParams = true
			}
			if len(names) == 0 || ciphers[i] == nil {
				if ex.Start < 0 || ex.Stop > len(sql) || ex.Start > ex.Stop {
					return errors.Errorf("rewrite.insert.table[%s].row[%d].value[%d].out.of.range", logic, r, i)
				}
				rv.Values = append(rv.Values, &InsertValue{Text: sql[ex.Start:ex.Stop], Param: ex.Param, ParamIndex: ex.ParamIndex})
				continue
			}
			plain, err := ex.Resolve(b.ctx.Params)
			if err != nil {
				return err
			}
			assignments, err := encryptAssignments(ciphers[i], plain)
			if err != nil {
				return err
			}
			rv.Values = append(rv.Values, &InsertValue{Derived: true, Value: assignments[0].Value})
			for _, a := range assignments[1:] {
				assisted = append(assisted, &InsertValue{Derived: true, Value: a.Value})
			}
		}
		if generated {
			rv.Values = append(rv.Values, &InsertValue{Derived: true, Value: key.Values[r]})
		}
		rv.Values = append(rv.Values, assisted...)
		if nodes := b.ctx.Route.OriginalDataNodes; r < len(nodes) {
			rv.Nodes = nodes[r]
		}
		values.Rows = append(values.Rows, rv)
	}
	b.add(values)
	return nil
}
