/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/radondb/xshard/backend"
	"github.com/radondb/xshard/config"
	"github.com/radondb/xshard/statement"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, dir string) string {
	conf := config.MockConfig()
	conf.Log = &config.LogConfig{Level: "PANIC"}
	conf.DataSources = backend.MockDataSources(dir, 2)
	path := filepath.Join(dir, "xshard.yaml")
	assert.Nil(t, config.WriteConfig(path, conf))
	return path
}

func writeStatement(t *testing.T, dir, name string, env *statement.Envelope) string {
	data, err := json.Marshal(env)
	assert.Nil(t, err)
	path := filepath.Join(dir, name)
	assert.Nil(t, os.WriteFile(path, data, 0644))
	return path
}

func createOrders(t *testing.T, dir string) string {
	sql := "CREATE TABLE t_order (order_id INTEGER, user_id INTEGER, status TEXT)"
	b := statement.NewBuilder(sql)
	return writeStatement(t, dir, "create.json", &statement.Envelope{
		SQL: sql,
		DDL: &statement.DDL{Targets: []*statement.TableSegment{b.Table("t_order")}},
	})
}

func insertOrder(t *testing.T, dir string) string {
	sql := "INSERT INTO t_order (order_id, user_id, status) VALUES (5, 3, 'ok')"
	b := statement.NewBuilder(sql)
	insert := &statement.Insert{Table: b.Table("t_order")}
	start, _ := b.Span("(")
	names := []*statement.ColumnRef{b.Column("order_id"), b.Column("user_id"), b.Column("status")}
	insert.Columns = &statement.InsertColumns{Start: start, Stop: b.At(")"), Names: names}
	rowStart, _ := b.Span("(")
	row := &statement.InsertRow{Start: rowStart, Exprs: []*statement.Expr{
		b.Literal("5", int64(5)), b.Literal("3", int64(3)), b.Literal("'ok'", "ok"),
	}}
	row.Stop = b.At(")")
	insert.Values = &statement.InsertValues{Start: row.Start, Stop: row.Stop, Rows: []*statement.InsertRow{row}}
	return writeStatement(t, dir, "insert.json", &statement.Envelope{SQL: sql, Insert: insert})
}

func selectOrders(t *testing.T, dir string) string {
	sql := "SELECT order_id, status FROM t_order WHERE user_id = ?"
	b := statement.NewBuilder(sql)
	sel := &statement.Select{
		Projections: b.Projections(false, b.ColumnItem("order_id", ""), b.ColumnItem("status", "")),
		From:        []*statement.TableSegment{b.Table("t_order")},
	}
	sel.Where = statement.NewWhere(statement.And(statement.Pred(b.Column("user_id"), statement.OpEQ, b.Param(0))))
	return writeStatement(t, dir, "select.json", &statement.Envelope{SQL: sql, Params: []interface{}{3}, Select: sel})
}

func TestCmdVersion(t *testing.T) {
	out, err := executeCommand(NewVersionCommand())
	assert.Nil(t, err)
	assert.True(t, strings.HasPrefix(out, "xshardcli:[tag=XShard-"), out)
}

func TestCmdCheck(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir)

	out, err := executeCommand(NewCheckCommand(), "--config", path)
	assert.Nil(t, err)
	assert.Contains(t, out, "data-sources:[ds_0 ds_1]")
	assert.Contains(t, out, "t_order_item")
	assert.Contains(t, out, "ds_0.t_order_0")
	assert.Contains(t, out, "item_id(SNOWFLAKE)")

	_, err = executeCommand(NewCheckCommand(), "--config", "")
	assert.Equal(t, "cli.config.can.not.be.empty", err.Error())
}

func TestCmdRoute(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir)
	stmt := selectOrders(t, dir)

	out, err := executeCommand(NewRouteCommand(), "--config", path, "--statement", stmt)
	assert.Nil(t, err)
	assert.Contains(t, out, "SELECT order_id, status FROM t_order_0 WHERE user_id = ?")
	assert.Contains(t, out, "SELECT order_id, status FROM t_order_1 WHERE user_id = ?")
	assert.Contains(t, out, "ds_1")
	assert.NotContains(t, out, "ds_0")
}

func TestCmdExec(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir)

	{
		out, err := executeCommand(NewExecCommand(), "--config", path, "--statement", createOrders(t, dir))
		assert.Nil(t, err)
		assert.Contains(t, out, "rows affected: 0")
	}

	{
		out, err := executeCommand(NewExecCommand(), "--config", path, "--statement", insertOrder(t, dir))
		assert.Nil(t, err)
		assert.Contains(t, out, "rows affected: 1")
	}

	{
		out, err := executeCommand(NewExecCommand(), "--config", path, "--statement", selectOrders(t, dir), "--metrics")
		assert.Nil(t, err)
		assert.Contains(t, out, "order_id")
		assert.Contains(t, out, "ok")
		assert.Contains(t, out, "rows affected: 1")
		assert.Contains(t, out, "query_total")
		assert.Contains(t, out, "merge_total")
	}
}
