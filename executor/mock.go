/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package executor

import (
	"github.com/radondb/xshard/backend"
	"github.com/radondb/xshard/config"
	"github.com/radondb/xshard/encrypt"
	"github.com/radondb/xshard/router"

	"github.com/xelabs/go-mysqlstack/xlog"
)

// MockExecutor creates an executor over config.MockConfig backed by two
// sqlite data sources stored under dir. The cleanup closes the data sources.
func MockExecutor(log *xlog.Log, dir string) (*Executor, func()) {
	conf := config.MockConfig()
	rule, err := router.MockRule(log, conf)
	if err != nil {
		panic(err)
	}
	encryptRule, err := encrypt.NewRule(log, conf.Encrypt, encrypt.NewRegistry())
	if err != nil {
		panic(err)
	}
	scatter, cleanup := backend.MockScatter(log, dir, len(conf.DataSources))
	return NewExecutor(log, rule, encryptRule, scatter), cleanup
}
