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

	"github.com/xelabs/go-mysqlstack/xlog"
)

// MockEngine returns an engine over config.MockConfig with its encrypt rule.
func MockEngine(log *xlog.Log, props *config.PropsConfig) (*Engine, *router.ShardingRule) {
	conf := config.MockConfig()
	rule, err := router.MockRule(log, conf)
	if err != nil {
		panic(err)
	}
	encryptRule, err := encrypt.NewRule(log, conf.Encrypt, encrypt.NewRegistry())
	if err != nil {
		panic(err)
	}
	return NewEngine(log, rule, encryptRule, props), rule
}
