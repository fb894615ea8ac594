/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package rewrite

import (
	"github.com/radondb/xshard/config"
	"github.com/radondb/xshard/encrypt"
	"github.com/radondb/xshard/router"
	"github.com/radondb/xshard/xbase"
	"github.com/radondb/xshard/xcontext"

	"github.com/pkg/errors"
	"github.com/xelabs/go-mysqlstack/xlog"
)

// Engine rewrites a routed logic statement into one statement per unit.
// It holds no per statement state.
type Engine struct {
	log     *xlog.Log
	rule    *router.ShardingRule
	encrypt *encrypt.Rule
	props   *config.PropsConfig
}

// NewEngine creates the new rewrite engine, encryptRule and props may be nil.
func NewEngine(log *xlog.Log, rule *router.ShardingRule, encryptRule *encrypt.Rule, props *config.PropsConfig) *Engine {
	if encryptRule == nil {
		encryptRule, _ = encrypt.NewRule(log, nil, nil)
	}
	if props == nil {
		props = config.DefaultPropsConfig()
	}
	return &Engine{
		log:     log,
		rule:    rule,
		encrypt: encryptRule,
		props:   props,
	}
}

// BuildTokens computes the tokens of the statement, ordered by Start.
func (e *Engine) BuildTokens(ctx *xcontext.ExecutionContext) ([]Token, error) {
	if ctx == nil || ctx.Statement == nil {
		return nil, errors.New("rewrite.statement.can.not.be.nil")
	}
	if ctx.Route == nil || len(ctx.Route.Units) == 0 {
		return nil, errors.New("rewrite.route.is.empty")
	}
	b := &tokenBuilder{engine: e, ctx: ctx}
	if err := b.build(); err != nil {
		return nil, err
	}
	if err := sortTokens(b.tokens); err != nil {
		return nil, err
	}
	return b.tokens, nil
}

// Rewrite renders the statement for every unit of the route, in unit order,
// and stores the units in the context.
func (e *Engine) Rewrite(ctx *xcontext.ExecutionContext) ([]*xcontext.ExecutionUnit, error) {
	tokens, err := e.BuildTokens(ctx)
	if err != nil {
		e.log.Error("rewrite.build.tokens[%s].error:%+v", xbase.TruncateQuery(ctx.SQL, e.props.MaxQueryLength), err)
		return nil, err
	}
	if e.props.SQLShow {
		e.log.Info("rewrite.logic.sql[%s].tokens[%s]", xbase.TruncateQuery(ctx.SQL, e.props.MaxQueryLength), describe(tokens))
	}

	units := make([]*xcontext.ExecutionUnit, 0, len(ctx.Route.Units))
	for _, u := range ctx.Route.Units {
		sql, params, err := e.Render(ctx, tokens, u)
		if err != nil {
			return nil, errors.Wrapf(err, "rewrite.unit[%s]", u)
		}
		unit := &xcontext.ExecutionUnit{
			DataSource: u.DataSource,
			SQL:        sql,
			Params:     params,
			Unit:       u,
		}
		if e.props.SQLShow {
			e.log.Info("rewrite.actual.sql[%s]", xbase.TruncateQuery(unit.String(), e.props.MaxQueryLength))
		}
		units = append(units, unit)
	}
	ctx.Units = units
	return units, nil
}
