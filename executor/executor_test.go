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
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/radondb/xshard/config"
	"github.com/radondb/xshard/merge"
	"github.com/radondb/xshard/router"
	"github.com/radondb/xshard/statement"
	"github.com/radondb/xshard/xcontext"

	"github.com/fortytw2/leaktest"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/xelabs/go-mysqlstack/sqlparser/depends/sqltypes"
	"github.com/xelabs/go-mysqlstack/xlog"
)

func rows(qr *sqltypes.Result) [][]string {
	var out [][]string
	for _, row := range qr.Rows {
		var r []string
		for _, v := range row {
			if v.IsNull() {
				r = append(r, "NULL")
				continue
			}
			r = append(r, v.ToString())
		}
		out = append(out, r)
	}
	return out
}

func createTable(b *statement.Builder, table string) *statement.DDL {
	return &statement.DDL{Targets: []*statement.TableSegment{b.Table(table)}}
}

func insertRows(b *statement.Builder, table string, columns []string, n int) *statement.Insert {
	insert := &statement.Insert{Table: b.Table(table)}
	start, _ := b.Span("(")
	var names []*statement.ColumnRef
	for _, c := range columns {
		names = append(names, b.Column(c))
	}
	insert.Columns = &statement.InsertColumns{Start: start, Stop: b.At(")"), Names: names}
	values := &statement.InsertValues{}
	param := 0
	for i := 0; i < n; i++ {
		rowStart, _ := b.Span("(")
		row := &statement.InsertRow{Start: rowStart}
		for range columns {
			row.Exprs = append(row.Exprs, b.Param(param))
			param++
		}
		row.Stop = b.At(")")
		values.Rows = append(values.Rows, row)
	}
	values.Start, values.Stop = values.Rows[0].Start, values.Rows[n-1].Stop
	insert.Values = values
	return insert
}

func setupOrders(t *testing.T, e *Executor) {
	ctx := context.Background()
	{
		sql := "CREATE TABLE t_order (order_id INTEGER, user_id INTEGER, status TEXT)"
		qr, err := e.Execute(ctx, sql, nil, createTable(statement.NewBuilder(sql), "t_order"))
		assert.Nil(t, err)
		assert.EqualValues(t, 0, qr.RowsAffected)
	}
	{
		sql := "INSERT INTO t_order (order_id, user_id, status) VALUES (?, ?, ?), (?, ?, ?), (?, ?, ?), (?, ?, ?)"
		params := []interface{}{
			int64(1), int64(1), "a",
			int64(2), int64(2), "b",
			int64(3), int64(3), "c",
			int64(4), int64(2), "d",
		}
		stmt := insertRows(statement.NewBuilder(sql), "t_order", []string{"order_id", "user_id", "status"}, 4)
		qr, err := e.Execute(ctx, sql, params, stmt)
		assert.Nil(t, err)
		assert.EqualValues(t, 4, qr.RowsAffected)
	}
}

func TestExecutorSelect(t *testing.T) {
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))
	e, cleanup := MockExecutor(log, t.TempDir())
	defer cleanup()
	setupOrders(t, e)
	ctx := context.Background()

	// Order by across the four tables.
	{
		sql := "SELECT order_id, status FROM t_order ORDER BY order_id"
		b := statement.NewBuilder(sql)
		sel := &statement.Select{
			Projections: b.Projections(false, b.ColumnItem("order_id", ""), b.ColumnItem("status", "")),
			From:        []*statement.TableSegment{b.Table("t_order")},
		}
		sel.OrderBy = []*statement.OrderByItem{b.OrderBy("order_id", statement.Asc)}
		qr, err := e.Execute(ctx, sql, nil, sel)
		assert.Nil(t, err)
		assert.Equal(t, [][]string{{"1", "a"}, {"2", "b"}, {"3", "c"}, {"4", "d"}}, rows(qr))
	}

	// Pagination is applied after the merge.
	{
		sql := "SELECT order_id FROM t_order ORDER BY order_id DESC LIMIT 1, 2"
		b := statement.NewBuilder(sql)
		sel := &statement.Select{
			Projections: b.Projections(false, b.ColumnItem("order_id", "")),
			From:        []*statement.TableSegment{b.Table("t_order")},
		}
		sel.OrderBy = []*statement.OrderByItem{b.OrderBy("order_id", statement.Desc)}
		sel.Limit = &statement.Limit{Offset: b.LimitLiteral("1", 1), RowCount: b.LimitLiteral("2", 2)}
		qr, err := e.Execute(ctx, sql, nil, sel)
		assert.Nil(t, err)
		assert.Equal(t, [][]string{{"3"}, {"2"}}, rows(qr))
	}

	// Aggregations are folded across units.
	{
		sql := "SELECT COUNT(*), AVG(order_id) FROM t_order"
		b := statement.NewBuilder(sql)
		sel := &statement.Select{
			Projections: b.Projections(false, b.AggregationItem("COUNT(*)", ""), b.AggregationItem("AVG(order_id)", "")),
			From:        []*statement.TableSegment{b.Table("t_order")},
		}
		qr, err := e.Execute(ctx, sql, nil, sel)
		assert.Nil(t, err)
		assert.Equal(t, 2, len(qr.Fields))
		assert.Equal(t, [][]string{{"4", "2.5000"}}, rows(qr))
	}

	// Both sharding values pin a single unit.
	{
		sql := "SELECT status FROM t_order WHERE user_id = ? AND order_id = ?"
		b := statement.NewBuilder(sql)
		sel := &statement.Select{
			Projections: b.Projections(false, b.ColumnItem("status", "")),
			From:        []*statement.TableSegment{b.Table("t_order")},
		}
		sel.Where = statement.NewWhere(statement.And(
			statement.Pred(b.Column("user_id"), statement.OpEQ, b.Param(0)),
			statement.Pred(b.Column("order_id"), statement.OpEQ, b.Param(1)),
		))
		ectx, err := xcontext.NewExecutionContext(sql, []interface{}{int64(2), int64(4)}, sel)
		assert.Nil(t, err)
		assert.Nil(t, e.Prepare(ectx))
		assert.True(t, ectx.IsSingleUnit())
		merged, err := e.Query(ctx, ectx)
		assert.Nil(t, err)
		qr, err := Fetch(merged, 0)
		assert.Nil(t, err)
		assert.Nil(t, merged.Close())
		assert.Equal(t, [][]string{{"d"}}, rows(qr))
	}
}

func TestExecutorUpdate(t *testing.T) {
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))
	e, cleanup := MockExecutor(log, t.TempDir())
	defer cleanup()
	setupOrders(t, e)
	ctx := context.Background()

	sql := "UPDATE t_order SET status = ? WHERE order_id = ?"
	b := statement.NewBuilder(sql)
	update := &statement.Update{Table: b.Table("t_order")}
	col := b.Column("status")
	value := b.Param(0)
	update.Set = []*statement.Assignment{{Start: col.Start, Stop: value.Stop, Column: col, Value: value}}
	update.Where = statement.NewWhere(statement.And(statement.Pred(b.Column("order_id"), statement.OpEQ, b.Param(1))))
	qr, err := e.Execute(ctx, sql, []interface{}{"z", int64(4)}, update)
	assert.Nil(t, err)
	assert.EqualValues(t, 1, qr.RowsAffected)

	{
		sql := "SELECT status FROM t_order ORDER BY status"
		b := statement.NewBuilder(sql)
		sel := &statement.Select{
			Projections: b.Projections(false, b.ColumnItem("status", "")),
			From:        []*statement.TableSegment{b.Table("t_order")},
		}
		sel.OrderBy = []*statement.OrderByItem{b.OrderBy("status", statement.Asc)}
		qr, err := e.Execute(ctx, sql, nil, sel)
		assert.Nil(t, err)
		assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}, {"z"}}, rows(qr))
	}
}

func TestExecutorEncrypt(t *testing.T) {
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))
	e, cleanup := MockExecutor(log, t.TempDir())
	defer cleanup()
	ctx := context.Background()

	{
		sql := "CREATE TABLE t_user (id INTEGER, pwd_cipher TEXT, pwd_assisted TEXT)"
		_, err := e.Execute(ctx, sql, nil, createTable(statement.NewBuilder(sql), "t_user"))
		assert.Nil(t, err)
	}
	{
		sql := "INSERT INTO t_user (id, pwd) VALUES (?, ?), (?, ?)"
		stmt := insertRows(statement.NewBuilder(sql), "t_user", []string{"id", "pwd"}, 2)
		qr, err := e.Execute(ctx, sql, []interface{}{int64(1), "abc", int64(2), "xyz"}, stmt)
		assert.Nil(t, err)
		assert.EqualValues(t, 2, qr.RowsAffected)
	}
	{
		sql := "SELECT id, pwd FROM t_user WHERE pwd = ?"
		b := statement.NewBuilder(sql)
		sel := &statement.Select{
			Projections: b.Projections(false, b.ColumnItem("id", ""), b.ColumnItem("pwd", "")),
			From:        []*statement.TableSegment{b.Table("t_user")},
		}
		sel.Where = statement.NewWhere(statement.And(statement.Pred(b.Column("pwd"), statement.OpEQ, b.Param(0))))
		qr, err := e.Execute(ctx, sql, []interface{}{"xyz"}, sel)
		assert.Nil(t, err)
		assert.Equal(t, [][]string{{"2", "xyz"}}, rows(qr))
	}
}

func TestExecutorErrors(t *testing.T) {
	defer leaktest.Check(t)()
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))
	e, cleanup := MockExecutor(log, t.TempDir())
	defer cleanup()
	ctx := context.Background()

	// The tables do not exist yet.
	{
		sql := "SELECT order_id FROM t_order"
		b := statement.NewBuilder(sql)
		sel := &statement.Select{
			Projections: b.Projections(false, b.ColumnItem("order_id", "")),
			From:        []*statement.TableSegment{b.Table("t_order")},
		}
		_, err := e.Execute(ctx, sql, nil, sel)
		assert.NotNil(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "executor.unit[ds_"), err.Error())
	}

	{
		_, err := e.Execute(ctx, "", nil, nil)
		assert.Equal(t, "xcontext.statement.can.not.be.nil", err.Error())
	}

	{
		_, err := e.Query(ctx, &xcontext.ExecutionContext{})
		assert.Equal(t, "executor.units.can.not.be.empty", err.Error())
		_, err = e.Exec(ctx, &xcontext.ExecutionContext{})
		assert.Equal(t, "executor.units.can.not.be.empty", err.Error())
	}
}

// fakeBackend serves canned results, failing on one data source.
type fakeBackend struct {
	mu       sync.Mutex
	fail     string
	results  []merge.QueryResult
	inflight int32
	peak     int32
}

func (f *fakeBackend) enter() func() {
	n := atomic.AddInt32(&f.inflight, 1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return func() { atomic.AddInt32(&f.inflight, -1) }
}

func (f *fakeBackend) Query(ctx context.Context, dataSource, query string, args []interface{}) (merge.QueryResult, error) {
	defer f.enter()()
	if dataSource == f.fail {
		return nil, errors.New("mock.error")
	}
	rs := merge.NewMemoryResult(merge.MockResult([]string{"order_id"}, []interface{}{int64(1)}))
	f.mu.Lock()
	f.results = append(f.results, rs)
	f.mu.Unlock()
	return rs, nil
}

func (f *fakeBackend) Exec(ctx context.Context, dataSource, query string, args []interface{}) (*sqltypes.Result, error) {
	defer f.enter()()
	if dataSource == f.fail {
		return nil, errors.New("mock.error")
	}
	return &sqltypes.Result{RowsAffected: 1}, nil
}

func fakeExecutor(t *testing.T, maxWorkers int, backend *fakeBackend) *Executor {
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))
	conf := config.MockConfig()
	conf.Props.MaxWorkers = maxWorkers
	rule, err := router.MockRule(log, conf)
	assert.Nil(t, err)
	return NewExecutor(log, rule, nil, backend)
}

func fullScan() (string, *statement.Select) {
	sql := "SELECT order_id FROM t_order"
	b := statement.NewBuilder(sql)
	return sql, &statement.Select{
		Projections: b.Projections(false, b.ColumnItem("order_id", "")),
		From:        []*statement.TableSegment{b.Table("t_order")},
	}
}

func TestExecutorFirstErrorCloses(t *testing.T) {
	defer leaktest.Check(t)()
	backend := &fakeBackend{fail: "ds_1"}
	e := fakeExecutor(t, 16, backend)

	sql, sel := fullScan()
	_, err := e.Execute(context.Background(), sql, nil, sel)
	assert.NotNil(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "executor.unit[ds_1:"), err.Error())
	assert.True(t, strings.HasSuffix(err.Error(), "mock.error"), err.Error())
	for _, rs := range backend.results {
		_, err := rs.Next()
		assert.Equal(t, "merge.result.closed", err.Error())
	}
}

func TestExecutorMaxWorkers(t *testing.T) {
	defer leaktest.Check(t)()
	backend := &fakeBackend{}
	e := fakeExecutor(t, 1, backend)

	sql, sel := fullScan()
	qr, err := e.Execute(context.Background(), sql, nil, sel)
	assert.Nil(t, err)
	assert.Equal(t, 4, len(qr.Rows))
	assert.EqualValues(t, 1, atomic.LoadInt32(&backend.peak))
}

func TestFetchMaxRows(t *testing.T) {
	results := merge.MockQueryResults(merge.MockResult([]string{"id"}, []interface{}{int64(1)}, []interface{}{int64(2)}))
	_, err := Fetch(merge.NewIteratorMerged(results), 1)
	assert.Equal(t, "executor.result.rows.exceeds.max-result-rows[1]", err.Error())
}
