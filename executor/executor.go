/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package executor

import (
	"context"
	"sync"
	"time"

	"github.com/radondb/xshard/condition"
	"github.com/radondb/xshard/config"
	"github.com/radondb/xshard/encrypt"
	"github.com/radondb/xshard/merge"
	"github.com/radondb/xshard/monitor"
	"github.com/radondb/xshard/rewrite"
	"github.com/radondb/xshard/router"
	"github.com/radondb/xshard/statement"
	"github.com/radondb/xshard/xbase"
	"github.com/radondb/xshard/xcontext"

	"github.com/pkg/errors"
	"github.com/xelabs/go-mysqlstack/sqlparser/depends/sqltypes"
	"github.com/xelabs/go-mysqlstack/xlog"
	"golang.org/x/sync/errgroup"
)

// Backend runs physical statements on the data sources.
type Backend interface {
	Query(ctx context.Context, dataSource, query string, args []interface{}) (merge.QueryResult, error)
	Exec(ctx context.Context, dataSource, query string, args []interface{}) (*sqltypes.Result, error)
}

// Executor runs a logic statement: extract, route, rewrite, execute and merge.
type Executor struct {
	log       *xlog.Log
	props     *config.PropsConfig
	extractor *condition.Extractor
	router    *router.Router
	rewriter  *rewrite.Engine
	merger    *merge.Engine
	backend   Backend
}

// NewExecutor creates the executor, encryptRule may be nil.
func NewExecutor(log *xlog.Log, rule *router.ShardingRule, encryptRule *encrypt.Rule, backend Backend) *Executor {
	props := rule.Props()
	return &Executor{
		log:       log,
		props:     props,
		extractor: condition.NewExtractor(log, rule),
		router:    router.NewRouter(log, rule),
		rewriter:  rewrite.NewEngine(log, rule, encryptRule, props),
		merger:    merge.NewEngine(log, props, encryptRule),
		backend:   backend,
	}
}

// Prepare extracts, routes and rewrites the statement of ctx. The caller may
// set the hints of ctx before.
func (e *Executor) Prepare(ctx *xcontext.ExecutionContext) error {
	var err error
	if ctx.Extraction, err = e.extractor.Extract(ctx.Statement, ctx.Params); err != nil {
		return err
	}
	if ctx.Route, err = e.router.Route(ctx.RouteContext()); err != nil {
		return err
	}
	if _, err = e.rewriter.Rewrite(ctx); err != nil {
		return err
	}
	return nil
}

// run calls fn for every unit on at most MaxWorkers goroutines. The first
// error cancels the others and is the one returned.
func (e *Executor) run(ctx context.Context, units []*xcontext.ExecutionUnit, fn func(ctx context.Context, i int, u *xcontext.ExecutionUnit) error) (context.CancelFunc, error) {
	qctx, cancel := context.WithCancel(ctx)
	var once sync.Once
	var first error

	var g errgroup.Group
	if e.props.MaxWorkers > 0 {
		g.SetLimit(e.props.MaxWorkers)
	}
	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			if err := qctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			err := fn(qctx, i, u)
			monitor.UnitDurationObserve(u.DataSource, time.Since(start))
			if err != nil {
				monitor.UnitTotalCounterInc(u.DataSource, "Error")
				err = errors.Wrapf(err, "executor.unit[%s]", xbase.TruncateQuery(u.String(), e.props.MaxQueryLength))
				once.Do(func() {
					first = err
					cancel()
				})
				return err
			}
			monitor.UnitTotalCounterInc(u.DataSource, "OK")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		cancel()
		if first != nil {
			err = first
		}
		e.log.Error("executor.run.error:%+v", err)
		return nil, err
	}
	return cancel, nil
}

// cancelResult cancels the queries of a merged result when it is closed.
type cancelResult struct {
	merge.MergedResult
	cancel context.CancelFunc
}

func (r *cancelResult) Close() error {
	defer r.cancel()
	return r.MergedResult.Close()
}

// Query runs a prepared SELECT on every unit concurrently and merges the
// unit results, in unit order, into one cursor the caller closes.
func (e *Executor) Query(ctx context.Context, ectx *xcontext.ExecutionContext) (merge.MergedResult, error) {
	if len(ectx.Units) == 0 {
		return nil, errors.New("executor.units.can.not.be.empty")
	}
	results := make([]merge.QueryResult, len(ectx.Units))
	cancel, err := e.run(ctx, ectx.Units, func(qctx context.Context, i int, u *xcontext.ExecutionUnit) error {
		rs, err := e.backend.Query(qctx, u.DataSource, u.SQL, u.Params)
		if err != nil {
			return err
		}
		results[i] = rs
		return nil
	})
	if err != nil {
		for _, rs := range results {
			if rs != nil {
				rs.Close()
			}
		}
		return nil, err
	}
	merged, err := e.merger.Merge(ectx, results)
	if err != nil {
		cancel()
		return nil, err
	}
	return &cancelResult{MergedResult: merged, cancel: cancel}, nil
}

// Exec runs a prepared non-query on every unit concurrently and sums the
// affected rows.
func (e *Executor) Exec(ctx context.Context, ectx *xcontext.ExecutionContext) (*sqltypes.Result, error) {
	if len(ectx.Units) == 0 {
		return nil, errors.New("executor.units.can.not.be.empty")
	}
	results := make([]*sqltypes.Result, len(ectx.Units))
	cancel, err := e.run(ctx, ectx.Units, func(qctx context.Context, i int, u *xcontext.ExecutionUnit) error {
		qr, err := e.backend.Exec(qctx, u.DataSource, u.SQL, u.Params)
		if err != nil {
			return err
		}
		results[i] = qr
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer cancel()

	qr := &sqltypes.Result{}
	for _, r := range results {
		qr.RowsAffected += r.RowsAffected
		if qr.InsertID == 0 {
			qr.InsertID = r.InsertID
		}
	}
	return qr, nil
}

// Execute prepares and runs the statement, a SELECT is read into memory.
func (e *Executor) Execute(ctx context.Context, sql string, params []interface{}, stmt statement.Statement) (*sqltypes.Result, error) {
	ectx, err := xcontext.NewExecutionContext(sql, params, stmt)
	if err != nil {
		return nil, err
	}
	qr, err := e.execute(ctx, ectx)
	kind := stmt.Kind().String()
	if err != nil {
		monitor.QueryTotalCounterInc(kind, "Error")
		return nil, err
	}
	monitor.QueryTotalCounterInc(kind, "OK")
	return qr, nil
}

func (e *Executor) execute(ctx context.Context, ectx *xcontext.ExecutionContext) (*sqltypes.Result, error) {
	if err := e.Prepare(ectx); err != nil {
		return nil, err
	}
	if ectx.Select == nil {
		return e.Exec(ctx, ectx)
	}

	merged, err := e.Query(ctx, ectx)
	if err != nil {
		return nil, err
	}
	defer merged.Close()
	return Fetch(merged, e.props.MaxResultRows)
}

// Fetch reads the merged rows into a result, maxRows 0 is unbounded.
func Fetch(merged merge.MergedResult, maxRows int) (*sqltypes.Result, error) {
	fields := merged.Fields()
	qr := &sqltypes.Result{Fields: fields}
	for {
		ok, err := merged.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if maxRows > 0 && len(qr.Rows) >= maxRows {
			return nil, errors.Errorf("executor.result.rows.exceeds.max-result-rows[%d]", maxRows)
		}
		row := make([]sqltypes.Value, len(fields))
		for i := range row {
			if row[i], err = merged.Value(i); err != nil {
				return nil, err
			}
		}
		qr.Rows = append(qr.Rows, row)
	}
	qr.RowsAffected = uint64(len(qr.Rows))
	return qr, nil
}
