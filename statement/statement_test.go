/*
 * Radon
 *
 * Copyright 2018-2019 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package statement

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatementBuilder(t *testing.T) {
	sql := "SELECT t_order_item.item_id FROM `t_order_item` JOIN t_order ON t_order.order_id = t_order_item.order_id"
	b := NewBuilder(sql)

	col := b.Column("t_order_item.item_id")
	assert.Equal(t, "t_order_item.item_id", sql[col.Start:col.Stop])
	assert.Equal(t, "t_order_item", sql[col.Owner.Start:col.Owner.Stop])
	assert.Equal(t, "item_id", col.Name)

	tbl := b.Table("`t_order_item`")
	assert.Equal(t, "t_order_item", tbl.Name)
	assert.Equal(t, "`", tbl.Quote)
	assert.Equal(t, "`t_order_item`", sql[tbl.Start:tbl.Stop])

	// t_order must not match the prefix of t_order_item.
	order := b.Table("t_order")
	assert.Equal(t, " ON", sql[order.Stop:order.Stop+3])
}

func TestStatementColumnsAndExprs(t *testing.T) {
	b := NewBuilder("UPDATE t_order SET status = ? WHERE order_id IN (1, 2) AND user_id = ?")
	upd := &Update{Table: b.Table("t_order")}
	status := b.Column("status")
	upd.Set = []*Assignment{{Start: status.Start, Column: status, Value: b.Param(0)}}
	upd.Where = NewWhere(And(
		Pred(b.Column("order_id"), OpIN, b.Literal("1", int64(1)), b.Literal("2", int64(2))),
		Pred(b.Column("user_id"), OpEQ, b.Param(1)),
	))

	assert.Equal(t, KindUpdate, upd.Kind())
	assert.Equal(t, "UPDATE", upd.Kind().String())
	cols := Columns(upd)
	assert.Equal(t, 3, len(cols))
	assert.Equal(t, "user_id", cols[2].Name)

	exprs := Exprs(upd)
	assert.Equal(t, 4, len(exprs))
	v, err := exprs[3].Resolve([]interface{}{"done", int64(7)})
	assert.Nil(t, err)
	assert.Equal(t, int64(7), v)

	_, err = exprs[3].Resolve(nil)
	assert.Equal(t, "statement.param.index[1].out.of.range[0]", err.Error())
}

func TestStatementFindTable(t *testing.T) {
	tables := []*TableSegment{{Name: "t_order", Alias: "o"}, {Name: "t_order_item"}}
	tbl, ok := FindTable(tables, "O")
	assert.True(t, ok)
	assert.Equal(t, "t_order", tbl.Name)
	tbl, ok = FindTable(tables, "t_order_item")
	assert.True(t, ok)
	assert.Equal(t, "t_order_item", tbl.Ref())
	_, ok = FindTable(tables, "t_order")
	assert.False(t, ok)
}

func TestStatementEnvelope(t *testing.T) {
	data := `
sql: "SELECT order_id FROM t_order WHERE order_id = ?"
params: [5]
select:
  projections:
    start: 7
    stop: 15
    items:
      - kind: 0
        start: 7
        stop: 15
        column: {start: 7, stop: 15, name: order_id}
  from:
    - {start: 21, stop: 28, name: t_order}
  where:
    or:
      - - column: {start: 35, stop: 43, name: order_id}
          op: "="
          values:
            - {start: 46, stop: 47, param: true, param-index: 0}
`
	env, err := ReadEnvelope([]byte(data), true)
	assert.Nil(t, err)
	assert.Equal(t, []interface{}{int64(5)}, env.Params)

	stmt, err := env.Statement()
	assert.Nil(t, err)
	assert.Equal(t, KindSelect, stmt.Kind())
	assert.Equal(t, "t_order", env.SQL[21:28])
	assert.Equal(t, "?", env.SQL[46:47])

	file := path.Join(t.TempDir(), "stmt.json")
	err = os.WriteFile(file, []byte(`{"sql":"DELETE FROM t_order WHERE order_id = 1.5","delete":{"table":{"start":12,"stop":19,"name":"t_order"},"where":{"or":[[{"column":{"name":"order_id"},"op":"=","values":[{"value":1.5}]}]]}}}`), 0644)
	assert.Nil(t, err)
	env, err = LoadEnvelope(file)
	assert.Nil(t, err)
	assert.Equal(t, 1.5, env.Delete.Where.Or[0][0].Values[0].Value)

	{
		_, err := ReadEnvelope([]byte(`{"sql":"x"}`), false)
		assert.Equal(t, "statement.envelope.expects.one.statement.but.got[0]", err.Error())
	}
	{
		_, err := ReadEnvelope([]byte(`{"dal":{}}`), false)
		assert.Equal(t, "statement.envelope.sql.can.not.be.empty", err.Error())
	}
}
