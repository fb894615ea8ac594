/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package backend

import (
	"context"
	"testing"
	"time"

	"github.com/radondb/xshard/config"

	"github.com/stretchr/testify/assert"
	querypb "github.com/xelabs/go-mysqlstack/sqlparser/depends/query"
	"github.com/xelabs/go-mysqlstack/xlog"
)

func TestPoolQuery(t *testing.T) {
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))
	scatter, cleanup := MockScatter(log, t.TempDir(), 1)
	defer cleanup()
	ctx := context.Background()

	_, err := scatter.Exec(ctx, "ds_0", "CREATE TABLE t_order (order_id INTEGER, status TEXT, price REAL)", nil)
	assert.Nil(t, err)
	qr, err := scatter.Exec(ctx, "ds_0", "INSERT INTO t_order VALUES (?, ?, ?), (?, ?, ?)", []interface{}{int64(1), "ok", 1.5, int64(2), nil, 2.5})
	assert.Nil(t, err)
	assert.EqualValues(t, 2, qr.RowsAffected)

	rs, err := scatter.Query(ctx, "ds_0", "SELECT order_id, status, price FROM t_order ORDER BY order_id", nil)
	assert.Nil(t, err)
	fields := rs.Fields()
	assert.Equal(t, 3, len(fields))
	assert.Equal(t, "order_id", fields[0].Name)
	assert.Equal(t, querypb.Type_INT64, fields[0].Type)
	assert.Equal(t, querypb.Type_VARCHAR, fields[1].Type)
	assert.Equal(t, querypb.Type_FLOAT64, fields[2].Type)

	_, err = rs.Value(0)
	assert.Equal(t, "backend.rows.no.current.row", err.Error())

	var got [][]string
	for {
		ok, err := rs.Next()
		assert.Nil(t, err)
		if !ok {
			break
		}
		var row []string
		for i := range fields {
			v, err := rs.Value(i)
			assert.Nil(t, err)
			if v.IsNull() {
				row = append(row, "NULL")
				continue
			}
			row = append(row, v.ToString())
		}
		got = append(got, row)
	}
	assert.Equal(t, [][]string{{"1", "ok", "1.5"}, {"2", "NULL", "2.5"}}, got)

	_, err = rs.Value(3)
	assert.Equal(t, "backend.rows.no.current.row", err.Error())
	assert.Nil(t, rs.Close())
	assert.Nil(t, rs.Close())
	_, err = rs.Next()
	assert.Equal(t, "backend.rows.closed", err.Error())
}

func TestPoolAggregationTypes(t *testing.T) {
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))
	scatter, cleanup := MockScatter(log, t.TempDir(), 1)
	defer cleanup()
	ctx := context.Background()

	_, err := scatter.Exec(ctx, "ds_0", "CREATE TABLE t (v INTEGER)", nil)
	assert.Nil(t, err)
	_, err = scatter.Exec(ctx, "ds_0", "INSERT INTO t VALUES (1), (2)", nil)
	assert.Nil(t, err)

	rs, err := scatter.Query(ctx, "ds_0", "SELECT COUNT(*), SUM(v) FROM t", nil)
	assert.Nil(t, err)
	defer rs.Close()
	ok, err := rs.Next()
	assert.Nil(t, err)
	assert.True(t, ok)
	count, err := rs.Value(0)
	assert.Nil(t, err)
	assert.True(t, count.IsIntegral())
	assert.Equal(t, "2", count.ToString())
	sum, err := rs.Value(1)
	assert.Nil(t, err)
	assert.Equal(t, "3", sum.ToString())
}

func TestScatter(t *testing.T) {
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))
	confs := MockDataSources(t.TempDir(), 3)
	scatter := NewScatter(log)
	assert.Nil(t, scatter.Init(confs))
	defer scatter.Close()
	assert.Equal(t, []string{"ds_0", "ds_1", "ds_2"}, scatter.DataSources())

	{
		err := scatter.Add(confs[0])
		assert.Equal(t, "scatter.data-source[ds_0].duplicate", err.Error())
	}

	{
		assert.Nil(t, scatter.Remove("ds_2"))
		err := scatter.Remove("ds_2")
		assert.Equal(t, "scatter.data-source[ds_2].can.not.be.found", err.Error())
		_, err = scatter.Query(context.Background(), "ds_2", "SELECT 1", nil)
		assert.Equal(t, "scatter.data-source[ds_2].can.not.be.found", err.Error())
		_, err = scatter.Exec(context.Background(), "ds_2", "SELECT 1", nil)
		assert.Equal(t, "scatter.data-source[ds_2].can.not.be.found", err.Error())
	}

	{
		pool, err := scatter.Pool("ds_1")
		assert.Nil(t, err)
		assert.Equal(t, "ds_1", pool.Name())
		assert.Nil(t, pool.Ping(context.Background()))
	}
}

func TestNewPool(t *testing.T) {
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))

	// Opening is lazy, no server is needed.
	testCases := []*config.DataSourceConfig{
		{Name: "m0", Driver: DriverMySQL, Address: "127.0.0.1:3306", User: "root", DBName: "db", Charset: "utf8mb4", MaxConnections: 2},
		{Name: "m1", Driver: DriverMySQL, DSN: "root:pwd@tcp(127.0.0.1:3306)/db"},
		{Name: "p0", Driver: DriverPostgreSQL, Address: "127.0.0.1:5432", User: "postgres", Password: "p@ss/word", DBName: "db"},
		{Name: "p1", Driver: "postgresql", DSN: "postgres://postgres@127.0.0.1:5432/db?sslmode=disable"},
	}
	for _, conf := range testCases {
		pool, err := NewPool(log, conf)
		assert.Nil(t, err, conf.Name)
		assert.Nil(t, pool.Close())
	}
}

func TestNewPoolErrors(t *testing.T) {
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))

	testCases := []struct {
		conf *config.DataSourceConfig
		err  string
	}{
		{
			conf: &config.DataSourceConfig{Name: "x", Driver: "oracle"},
			err:  "backend.data-source[x].driver[oracle].unsupported",
		},
		{
			conf: &config.DataSourceConfig{Name: "s", Driver: DriverSQLite},
			err:  "backend.data-source[s].sqlite.dsn.can.not.be.empty",
		},
	}
	for _, testCase := range testCases {
		_, err := NewPool(log, testCase.conf)
		assert.Equal(t, testCase.err, err.Error())
	}

	{
		_, err := NewPool(log, &config.DataSourceConfig{Name: "m", Driver: DriverMySQL, DSN: "root@tcp(127.0.0.1:3306"})
		assert.NotNil(t, err)
	}

	{
		_, err := NewPool(log, &config.DataSourceConfig{Name: "p", Driver: DriverPostgreSQL, DSN: "postgres://%zz"})
		assert.NotNil(t, err)
	}
}

func TestToValue(t *testing.T) {
	testCases := []struct {
		typ  querypb.Type
		in   interface{}
		want querypb.Type
		out  string
	}{
		{querypb.Type_NULL_TYPE, int64(7), querypb.Type_INT64, "7"},
		{querypb.Type_NULL_TYPE, 2.5, querypb.Type_FLOAT64, "2.5"},
		{querypb.Type_NULL_TYPE, true, querypb.Type_INT64, "1"},
		{querypb.Type_NULL_TYPE, "a", querypb.Type_VARCHAR, "a"},
		{querypb.Type_INT64, []byte("12"), querypb.Type_INT64, "12"},
		{querypb.Type_DECIMAL, []byte("1.20"), querypb.Type_DECIMAL, "1.20"},
		{querypb.Type_NULL_TYPE, time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC), querypb.Type_DATETIME, "2020-01-02 03:04:05"},
	}
	for _, testCase := range testCases {
		v := toValue(testCase.typ, testCase.in)
		assert.Equal(t, testCase.want, v.Type())
		assert.Equal(t, testCase.out, v.ToString())
	}
	assert.True(t, toValue(querypb.Type_INT64, nil).IsNull())

	assert.Equal(t, querypb.Type_INT64, fieldType("BIGINT"))
	assert.Equal(t, querypb.Type_FLOAT64, fieldType("double"))
	assert.Equal(t, querypb.Type_DECIMAL, fieldType("NUMERIC"))
	assert.Equal(t, querypb.Type_NULL_TYPE, fieldType(""))
	assert.Equal(t, querypb.Type_VARCHAR, fieldType("TEXT"))
}
