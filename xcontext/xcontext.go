/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package xcontext

import (
	"fmt"

	"github.com/radondb/xshard/condition"
	"github.com/radondb/xshard/router"
	"github.com/radondb/xshard/statement"

	"github.com/pkg/errors"
)

// ExecutionUnit is one physical statement for one data source.
type ExecutionUnit struct {
	// DataSource name.
	DataSource string

	// SQL is the rendered statement.
	SQL string

	// Params are bound in marker order.
	Params []interface{}

	// Unit is the route unit the statement was rendered for.
	Unit *router.TableUnit
}

func (u *ExecutionUnit) String() string {
	if len(u.Params) == 0 {
		return fmt.Sprintf("%s:%s", u.DataSource, u.SQL)
	}
	return fmt.Sprintf("%s:%s ::: %v", u.DataSource, u.SQL, u.Params)
}

// ExecutionContext carries one logic statement through extract, route, rewrite and merge.
type ExecutionContext struct {
	SQL       string
	Params    []interface{}
	Statement statement.Statement

	// Select is set for SELECT, built when the context is created.
	Select *statement.SelectContext

	// Hints are per table hint values for hint strategies.
	Hints map[string]*router.HintValues

	// RandomUnicast picks a random data source for unicast routes.
	RandomUnicast bool

	Extraction *condition.Result
	Route      *router.RouteResult
	Units      []*ExecutionUnit
}

// NewExecutionContext creates the context of the statement under the params.
func NewExecutionContext(sql string, params []interface{}, stmt statement.Statement) (*ExecutionContext, error) {
	if stmt == nil {
		return nil, errors.New("xcontext.statement.can.not.be.nil")
	}
	ctx := &ExecutionContext{
		SQL:       sql,
		Params:    params,
		Statement: stmt,
	}
	if sel, ok := stmt.(*statement.Select); ok {
		sctx, err := statement.NewSelectContext(sel, params)
		if err != nil {
			return nil, err
		}
		ctx.Select = sctx
	}
	return ctx, nil
}

// RouteContext returns the router input of the statement.
func (ctx *ExecutionContext) RouteContext() *router.RouteContext {
	rc := &router.RouteContext{
		Statement:     ctx.Statement,
		Hints:         ctx.Hints,
		RandomUnicast: ctx.RandomUnicast,
	}
	if ctx.Extraction != nil {
		rc.Conditions = ctx.Extraction.Conditions
	}
	return rc
}

// IsSingleUnit reports whether the statement is routed to one unit.
func (ctx *ExecutionContext) IsSingleUnit() bool {
	return ctx.Route != nil && ctx.Route.IsSingleUnit()
}
