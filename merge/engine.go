/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package merge

import (
	"strings"

	"github.com/radondb/xshard/config"
	"github.com/radondb/xshard/encrypt"
	"github.com/radondb/xshard/monitor"
	"github.com/radondb/xshard/statement"
	"github.com/radondb/xshard/xcontext"

	"github.com/pkg/errors"
	"github.com/xelabs/go-mysqlstack/xlog"
)

// Engine picks the merge of a statement from its shape.
type Engine struct {
	log     *xlog.Log
	props   *config.PropsConfig
	encrypt *encrypt.Rule
}

// NewEngine creates the new merge engine, props and encryptRule may be nil.
func NewEngine(log *xlog.Log, props *config.PropsConfig, encryptRule *encrypt.Rule) *Engine {
	if props == nil {
		props = config.DefaultPropsConfig()
	}
	if encryptRule == nil {
		encryptRule, _ = encrypt.NewRule(log, nil, nil)
	}
	return &Engine{
		log:     log,
		props:   props,
		encrypt: encryptRule,
	}
}

// Merge combines the unit results, in unit order, into one logic cursor.
// The results are closed when the merge fails.
func (e *Engine) Merge(ctx *xcontext.ExecutionContext, results []QueryResult) (MergedResult, error) {
	if len(results) == 0 {
		return nil, errors.New("merge.results.can.not.be.empty")
	}
	var merged MergedResult
	var err error
	if ctx.Select == nil || len(results) == 1 {
		merged = NewIteratorMerged(results)
		monitor.MergeTotalCounterInc("iterator")
		e.log.Debug("merge.strategy[iterator].results[%d]", len(results))
	} else if merged, err = e.mergeSelect(ctx.Select, results); err != nil {
		closeAll(results)
		e.log.Error("merge.select.error:%+v", err)
		return nil, err
	}
	if columns := e.decryptColumns(ctx); len(columns) > 0 {
		merged = NewDecryptMerged(merged, columns)
	}
	return merged, nil
}

func (e *Engine) mergeSelect(sctx *statement.SelectContext, results []QueryResult) (MergedResult, error) {
	var merged MergedResult
	var strategy string
	width := len(results[0].Fields())
	switch {
	case sctx.IsStreamGroupBy() && !sctx.Distinct:
		source, err := NewOrderByMerged(results, sctx.OrderBy, e.props.NullOrder)
		if err != nil {
			return nil, err
		}
		if merged, err = NewGroupByStreamMerged(source, sctx, e.props); err != nil {
			return nil, err
		}
		strategy = "group-by-stream"
	case sctx.IsGroupBy() || sctx.Distinct:
		var err error
		if merged, err = NewGroupByMemoryMerged(results, sctx, e.props); err != nil {
			return nil, err
		}
		strategy = "group-by-memory"
	case len(sctx.OrderBy) > 0:
		source, err := NewOrderByMerged(results, sctx.OrderBy, e.props.NullOrder)
		if err != nil {
			return nil, err
		}
		merged = NewProjectionMerged(source, sctx.VisibleColumns(width))
		strategy = "order-by"
	default:
		merged = NewProjectionMerged(NewIteratorMerged(results), sctx.VisibleColumns(width))
		strategy = "iterator"
	}
	if sctx.HasPagination() {
		merged = NewPaginationMerged(merged, sctx.Offset, sctx.RowCount)
	}
	monitor.MergeTotalCounterInc(strategy)
	e.log.Debug("merge.strategy[%s].results[%d].pagination[%d,%d]", strategy, len(results), sctx.Offset, sctx.RowCount)
	return merged, nil
}

// decryptColumns maps the result labels of encrypted columns to their encryptor.
func (e *Engine) decryptColumns(ctx *xcontext.ExecutionContext) map[string]encrypt.Encryptor {
	sel, ok := ctx.Statement.(*statement.Select)
	if !ok || e.encrypt.Empty() || sel.Projections == nil {
		return nil
	}
	columns := make(map[string]encrypt.Encryptor)
	for _, p := range sel.Projections.Items {
		switch p.Kind {
		case statement.ProjectionColumn:
			if col, ok := e.column(sel.From, p.Column); ok {
				columns[strings.ToLower(p.Label())] = col.Encryptor
			}
		case statement.ProjectionStar:
			for _, t := range sel.From {
				if p.Owner != "" && !strings.EqualFold(p.Owner, t.Ref()) {
					continue
				}
				if et, ok := e.encrypt.Table(t.Name); ok {
					for _, col := range et.Columns {
						columns[strings.ToLower(col.Cipher)] = col.Encryptor
					}
				}
			}
		}
	}
	return columns
}

func (e *Engine) column(tables []*statement.TableSegment, c *statement.ColumnRef) (*encrypt.Column, bool) {
	if c == nil {
		return nil, false
	}
	if c.Owner != nil {
		t, ok := statement.FindTable(tables, c.Owner.Name)
		if !ok {
			return nil, false
		}
		return e.encrypt.Column(t.Name, c.Name)
	}
	for _, t := range tables {
		if col, ok := e.encrypt.Column(t.Name, c.Name); ok {
			return col, true
		}
	}
	return nil, false
}
