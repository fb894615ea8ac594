/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package router

import (
	"github.com/radondb/xshard/config"
	"github.com/radondb/xshard/keygen"

	"github.com/xelabs/go-mysqlstack/xlog"
)

// MockModConfig shards t_order by user_id % 2 over data sources and by hash(order_id) % 2 over tables.
func MockModConfig() *config.Config {
	return &config.Config{
		Log:         config.MockLogConfig,
		Props:       config.DefaultPropsConfig(),
		DataSources: config.MockDataSources,
		Sharding: &config.ShardingConfig{
			Tables: []*config.TableConfig{
				&config.TableConfig{
					Name:             "t_order",
					ActualDataNodes:  "ds_${0..1}.t_order_${0..1}",
					DatabaseStrategy: &config.StrategyConfig{Type: "standard", Column: "user_id", Algorithm: "mod"},
					TableStrategy:    &config.StrategyConfig{Type: "standard", Column: "order_id", Algorithm: "hash_mod"},
				},
			},
			Algorithms: map[string]*config.AlgorithmConfig{
				"mod":      &config.AlgorithmConfig{Type: "MOD", Props: map[string]string{"sharding-count": "2"}},
				"hash_mod": &config.AlgorithmConfig{Type: "HASH_MOD", Props: map[string]string{"sharding-count": "2"}},
			},
		},
	}
}

// MockRule compiles the conf with the builtin registries.
func MockRule(log *xlog.Log, conf *config.Config) (*ShardingRule, error) {
	return NewShardingRule(log, conf, NewAlgorithmRegistry(), keygen.NewRegistry())
}

// MockRouter returns a router over config.MockConfig.
func MockRouter(log *xlog.Log) *Router {
	rule, err := MockRule(log, config.MockConfig())
	if err != nil {
		panic(err)
	}
	return NewRouter(log, rule)
}
