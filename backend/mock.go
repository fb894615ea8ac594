/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package backend

import (
	"fmt"
	"path/filepath"

	"github.com/radondb/xshard/config"

	"github.com/google/uuid"
	"github.com/xelabs/go-mysqlstack/xlog"
)

// MockDataSources returns n sqlite data sources named ds_0..ds_{n-1}, each
// stored in its own file under dir.
func MockDataSources(dir string, n int) []*config.DataSourceConfig {
	confs := make([]*config.DataSourceConfig, 0, n)
	for i := 0; i < n; i++ {
		file := filepath.Join(dir, uuid.NewString()+".db")
		confs = append(confs, &config.DataSourceConfig{
			Name:           fmt.Sprintf("ds_%d", i),
			Driver:         DriverSQLite,
			DSN:            "file:" + file + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
			MaxConnections: 8,
		})
	}
	return confs
}

// MockScatter creates a scatter over MockDataSources, the cleanup closes it.
func MockScatter(log *xlog.Log, dir string, n int) (*Scatter, func()) {
	scatter := NewScatter(log)
	if err := scatter.Init(MockDataSources(dir, n)); err != nil {
		panic(err)
	}
	return scatter, func() {
		scatter.Close()
	}
}
