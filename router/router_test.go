/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package router

import (
	"testing"

	"github.com/radondb/xshard/config"
	"github.com/radondb/xshard/statement"

	"github.com/stretchr/testify/assert"
	"github.com/xelabs/go-mysqlstack/sqldb"
	"github.com/xelabs/go-mysqlstack/xlog"
)

func lv(table, column string, values ...interface{}) RouteValue {
	return &ListRouteValue{Table: table, Column: column, Values: values}
}

func branches(conds ...[]RouteValue) *ShardingConditions {
	out := &ShardingConditions{}
	for _, c := range conds {
		out.Conditions = append(out.Conditions, &ShardingCondition{Values: c})
	}
	return out
}

func selectFrom(names ...string) *statement.Select {
	sel := &statement.Select{}
	for _, name := range names {
		sel.From = append(sel.From, &statement.TableSegment{Name: name})
	}
	return sel
}

func TestRouterSharding(t *testing.T) {
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))
	router := MockRouter(log)

	testCases := []struct {
		name  string
		stmt  statement.Statement
		conds *ShardingConditions
		units string
	}{
		{
			name:  "single node",
			stmt:  selectFrom("t_order"),
			conds: branches([]RouteValue{lv("t_order", "user_id", int64(3)), lv("t_order", "order_id", int64(5))}),
			units: "ds_1[t_order:t_order_1]",
		},
		{
			name:  "full route",
			stmt:  selectFrom("t_order"),
			units: "ds_0[t_order:t_order_0] ds_0[t_order:t_order_1] ds_1[t_order:t_order_0] ds_1[t_order:t_order_1]",
		},
		{
			name:  "database only",
			stmt:  selectFrom("t_order"),
			conds: branches([]RouteValue{lv("t_order", "user_id", int64(2))}),
			units: "ds_0[t_order:t_order_0] ds_0[t_order:t_order_1]",
		},
		{
			name:  "in list",
			stmt:  selectFrom("t_order"),
			conds: branches([]RouteValue{lv("t_order", "user_id", int64(1)), lv("t_order", "order_id", int64(1), int64(2))}),
			units: "ds_1[t_order:t_order_1] ds_1[t_order:t_order_0]",
		},
		{
			name:  "binding tables",
			stmt:  selectFrom("t_order", "t_order_item"),
			conds: branches([]RouteValue{lv("t_order_item", "order_id", int64(4))}),
			units: "ds_0[t_order:t_order_0,t_order_item:t_order_item_0] ds_1[t_order:t_order_0,t_order_item:t_order_item_0]",
		},
		{
			name: "or branches",
			stmt: selectFrom("t_order"),
			conds: branches(
				[]RouteValue{lv("t_order", "user_id", int64(1)), lv("t_order", "order_id", int64(1))},
				[]RouteValue{lv("t_order", "user_id", int64(0)), lv("t_order", "order_id", int64(0))},
				[]RouteValue{lv("t_order", "user_id", int64(3)), lv("t_order", "order_id", int64(7))},
			),
			units: "ds_1[t_order:t_order_1] ds_0[t_order:t_order_0]",
		},
		{
			name:  "with broadcast",
			stmt:  selectFrom("t_order", "t_config"),
			conds: branches([]RouteValue{lv("t_order", "user_id", int64(0)), lv("t_order", "order_id", int64(1))}),
			units: "ds_0[t_order:t_order_1,t_config:t_config]",
		},
		{
			name:  "with plain table on default",
			stmt:  selectFrom("t_order", "t_user"),
			conds: branches([]RouteValue{lv("t_order", "user_id", int64(0))}),
			units: "ds_0[t_order:t_order_0,t_user:t_user] ds_0[t_order:t_order_1,t_user:t_user]",
		},
		{
			name:  "always false",
			stmt:  selectFrom("t_order"),
			conds: &ShardingConditions{AlwaysFalse: true},
			units: "ds_0[t_order:t_order_0]",
		},
		{
			name:  "ddl ignores conditions",
			stmt:  &statement.DDL{Targets: []*statement.TableSegment{{Name: "t_order"}}},
			conds: branches([]RouteValue{lv("t_order", "user_id", int64(0))}),
			units: "ds_0[t_order:t_order_0] ds_0[t_order:t_order_1] ds_1[t_order:t_order_0] ds_1[t_order:t_order_1]",
		},
		{
			name:  "broadcast select",
			stmt:  selectFrom("t_config"),
			units: "ds_0[t_config:t_config]",
		},
		{
			name:  "broadcast write",
			stmt:  &statement.Insert{Table: &statement.TableSegment{Name: "t_config"}},
			units: "ds_0[t_config:t_config] ds_1[t_config:t_config]",
		},
		{
			name:  "plain table",
			stmt:  selectFrom("t_user"),
			units: "ds_0[t_user:t_user]",
		},
		{
			name:  "dal without table",
			stmt:  &statement.DAL{},
			units: "ds_0[]",
		},
		{
			name:  "dal on sharding table",
			stmt:  &statement.DAL{Targets: []*statement.TableSegment{{Name: "t_order"}}},
			units: "ds_0[t_order:t_order_0]",
		},
		{
			name:  "duplicated table reference",
			stmt:  selectFrom("t_order", "T_ORDER"),
			conds: branches([]RouteValue{lv("t_order", "user_id", int64(1)), lv("t_order", "order_id", int64(1))}),
			units: "ds_1[t_order:t_order_1]",
		},
	}
	for _, testCase := range testCases {
		result, err := router.Route(&RouteContext{Statement: testCase.stmt, Conditions: testCase.conds})
		assert.Nil(t, err, testCase.name)
		assert.Equal(t, testCase.units, result.String(), testCase.name)
	}
}

func TestRouterInsert(t *testing.T) {
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))
	router := MockRouter(log)
	insert := &statement.Insert{Table: &statement.TableSegment{Name: "t_order"}}

	{
		result, err := router.Route(&RouteContext{
			Statement: insert,
			Conditions: branches(
				[]RouteValue{lv("t_order", "user_id", int64(1)), lv("t_order", "order_id", int64(2))},
				[]RouteValue{lv("t_order", "user_id", int64(2)), lv("t_order", "order_id", int64(3))},
				[]RouteValue{lv("t_order", "user_id", int64(3)), lv("t_order", "order_id", int64(4))},
			),
		})
		assert.Nil(t, err)
		assert.Equal(t, "ds_1[t_order:t_order_0] ds_0[t_order:t_order_1]", result.String())
		want := [][]DataNode{
			{{DataSource: "ds_1", Table: "t_order_0"}},
			{{DataSource: "ds_0", Table: "t_order_1"}},
			{{DataSource: "ds_1", Table: "t_order_0"}},
		}
		assert.Equal(t, want, result.OriginalDataNodes)
		assert.Equal(t, []string{"ds_1", "ds_0"}, result.DataSourceNames())
		assert.False(t, result.IsSingleUnit())
	}

	{
		_, err := router.Route(&RouteContext{
			Statement:  insert,
			Conditions: branches([]RouteValue{lv("t_order", "user_id", int64(1))}),
		})
		assert.Equal(t, "router.insert.table[t_order].row.routed.to.2.data.nodes", err.Error())
	}
}

func TestRouterErrors(t *testing.T) {
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))
	router := MockRouter(log)

	{
		_, err := router.Route(&RouteContext{})
		assert.Equal(t, "router.statement.can.not.be.nil", err.Error())
	}

	{
		r := Range{Lower: int64(1), Upper: int64(5), HasLower: true, HasUpper: true, LowerInclusive: true, UpperInclusive: true}
		_, err := router.Route(&RouteContext{
			Statement: selectFrom("t_order"),
			Conditions: branches([]RouteValue{
				lv("t_order", "user_id", int64(1)),
				&RangeRouteValue{Table: "t_order", Column: "order_id", Range: r},
			}),
		})
		assert.Equal(t, "router.table[t_order].table: router.algorithm[INLINE].expression[t_order_${order_id % 2}].can.not.route.range[[1..5]]", err.Error())
	}

	{
		_, err := router.Route(&RouteContext{Statement: selectFrom("t_order", "t_user")})
		assert.Equal(t, "router.table[t_user].is.not.sharded.and.can.not.join.units.on[ds_1]", err.Error())
	}

	{
		rule, err := MockRule(log, MockModConfig())
		assert.Nil(t, err)
		_, err = NewRouter(log, rule).Route(&RouteContext{Statement: selectFrom("t_user")})
		sqlErr, ok := err.(*sqldb.SQLError)
		assert.True(t, ok)
		assert.Equal(t, uint16(sqldb.ER_NO_SUCH_TABLE), sqlErr.Num)
	}
}

func TestRouterAllowRangeWithInline(t *testing.T) {
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))
	conf := config.MockConfig()
	conf.Props.AllowRangeQueryWithInlineSharding = true
	rule, err := MockRule(log, conf)
	assert.Nil(t, err)

	r := Range{Lower: int64(1), HasLower: true}
	result, err := NewRouter(log, rule).Route(&RouteContext{
		Statement: selectFrom("t_order"),
		Conditions: branches([]RouteValue{
			lv("t_order", "user_id", int64(1)),
			&RangeRouteValue{Table: "t_order", Column: "order_id", Range: r},
		}),
	})
	assert.Nil(t, err)
	assert.Equal(t, "ds_1[t_order:t_order_0] ds_1[t_order:t_order_1]", result.String())
}

func TestRouterModHash(t *testing.T) {
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))
	rule, err := MockRule(log, MockModConfig())
	assert.Nil(t, err)
	router := NewRouter(log, rule)

	ctx := &RouteContext{
		Statement:  selectFrom("t_order"),
		Conditions: branches([]RouteValue{lv("t_order", "user_id", int64(3)), lv("t_order", "order_id", int64(5))}),
	}
	result, err := router.Route(ctx)
	assert.Nil(t, err)
	assert.True(t, result.IsSingleUnit())
	assert.Equal(t, "ds_1", result.Units[0].DataSource)
	assert.Equal(t, 1, len(result.Units[0].Tables))

	// Same input, same route.
	for i := 0; i < 16; i++ {
		again, err := router.Route(ctx)
		assert.Nil(t, err)
		assert.Equal(t, result.String(), again.String())
	}

	{
		r := Range{Lower: int64(10), Upper: int64(10), HasLower: true, HasUpper: true, LowerInclusive: true, UpperInclusive: true}
		result, err := router.Route(&RouteContext{
			Statement: selectFrom("t_order"),
			Conditions: branches([]RouteValue{
				&RangeRouteValue{Table: "t_order", Column: "user_id", Range: r},
			}),
		})
		assert.Nil(t, err)
		assert.Equal(t, []string{"ds_0"}, result.DataSourceNames())
		assert.Equal(t, 2, len(result.Units))
	}

	// A range wider than int64 arithmetic hits every data source.
	{
		r := Range{Lower: int64(-5000000000000000000), Upper: int64(5000000000000000000), HasLower: true, HasUpper: true, LowerInclusive: true, UpperInclusive: true}
		result, err := router.Route(&RouteContext{
			Statement: selectFrom("t_order"),
			Conditions: branches([]RouteValue{
				&RangeRouteValue{Table: "t_order", Column: "user_id", Range: r},
			}),
		})
		assert.Nil(t, err)
		assert.Equal(t, []string{"ds_0", "ds_1"}, result.DataSourceNames())
		assert.Equal(t, 4, len(result.Units))
	}
}

func TestRouterCartesian(t *testing.T) {
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))
	conf := config.MockConfig()
	sharding := *config.MockShardingConfig
	sharding.BindingTables = nil
	conf.Sharding = &sharding
	rule, err := MockRule(log, conf)
	assert.Nil(t, err)
	router := NewRouter(log, rule)

	{
		result, err := router.Route(&RouteContext{
			Statement: selectFrom("t_order", "t_order_item"),
			Conditions: branches([]RouteValue{
				lv("t_order", "user_id", int64(0)),
				lv("t_order", "order_id", int64(0)),
				lv("t_order_item", "user_id", int64(0)),
			}),
		})
		assert.Nil(t, err)
		assert.Equal(t, "ds_0[t_order:t_order_0,t_order_item:t_order_item_0] ds_0[t_order:t_order_0,t_order_item:t_order_item_1]", result.String())
	}

	{
		_, err := router.Route(&RouteContext{
			Statement: selectFrom("t_order", "t_order_item"),
			Conditions: branches([]RouteValue{
				lv("t_order", "user_id", int64(0)),
				lv("t_order_item", "user_id", int64(1)),
			}),
		})
		assert.Equal(t, "router.tables[t_order t_order_item].have.no.common.data.source", err.Error())
	}
}

func TestRouterHint(t *testing.T) {
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))
	conf := &config.Config{
		DataSources: config.MockDataSources,
		Sharding: &config.ShardingConfig{
			Tables: []*config.TableConfig{
				{
					Name:             "t_hint",
					ActualDataNodes:  "ds_${0..1}.t_hint_${0..1}",
					DatabaseStrategy: &config.StrategyConfig{Type: "hint", Algorithm: "ds_hint"},
					TableStrategy:    &config.StrategyConfig{Type: "hint", Algorithm: "tbl_hint"},
				},
			},
			Algorithms: map[string]*config.AlgorithmConfig{
				"ds_hint":  {Type: "HINT_INLINE"},
				"tbl_hint": {Type: "HINT_INLINE", Props: map[string]string{"algorithm-expression": "t_hint_${value % 2}"}},
			},
		},
	}
	rule, err := MockRule(log, conf)
	assert.Nil(t, err)
	router := NewRouter(log, rule)

	{
		result, err := router.Route(&RouteContext{
			Statement: selectFrom("t_hint"),
			Hints:     map[string]*HintValues{"t_hint": {Database: []interface{}{"ds_1"}, Table: []interface{}{int64(3)}}},
		})
		assert.Nil(t, err)
		assert.Equal(t, "ds_1[t_hint:t_hint_1]", result.String())
		actual, ok := result.Units[0].ActualTable("T_HINT")
		assert.True(t, ok)
		assert.Equal(t, "t_hint_1", actual)
		actual, ok = result.Units[0].ActualTableByName("t_hint_1")
		assert.True(t, ok)
		assert.Equal(t, "t_hint_1", actual)
	}

	{
		result, err := router.Route(&RouteContext{Statement: selectFrom("t_hint")})
		assert.Nil(t, err)
		assert.Equal(t, 4, len(result.Units))
	}

	{
		_, err := router.Route(&RouteContext{
			Statement: selectFrom("t_hint"),
			Hints:     map[string]*HintValues{"t_hint": {Database: []interface{}{"ds_9"}}},
		})
		assert.Equal(t, "router.table[t_hint].data.source[ds_9].not.in.data.nodes", err.Error())
	}
}
