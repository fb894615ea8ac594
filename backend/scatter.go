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
	"sort"
	"sync"

	"github.com/radondb/xshard/config"
	"github.com/radondb/xshard/merge"

	"github.com/pkg/errors"
	"github.com/xelabs/go-mysqlstack/sqlparser/depends/sqltypes"
	"github.com/xelabs/go-mysqlstack/xlog"
)

// Scatter tuple.
type Scatter struct {
	log   *xlog.Log
	mu    sync.RWMutex
	pools map[string]*Pool
}

// NewScatter creates a new scatter.
func NewScatter(log *xlog.Log) *Scatter {
	return &Scatter{
		log:   log,
		pools: make(map[string]*Pool),
	}
}

// Init adds every data source, on error the ones added are closed.
func (scatter *Scatter) Init(confs []*config.DataSourceConfig) error {
	for _, conf := range confs {
		if err := scatter.Add(conf); err != nil {
			scatter.Close()
			return err
		}
	}
	return nil
}

// Add used to add a new data source to scatter.
func (scatter *Scatter) Add(conf *config.DataSourceConfig) error {
	scatter.mu.Lock()
	defer scatter.mu.Unlock()

	log := scatter.log
	log.Warning("scatter.add:%v", conf.Name)
	if _, ok := scatter.pools[conf.Name]; ok {
		return errors.Errorf("scatter.data-source[%v].duplicate", conf.Name)
	}
	pool, err := NewPool(log, conf)
	if err != nil {
		return err
	}
	scatter.pools[conf.Name] = pool
	return nil
}

// Remove used to remove a data source from the scatter.
func (scatter *Scatter) Remove(name string) error {
	scatter.mu.Lock()
	defer scatter.mu.Unlock()

	log := scatter.log
	log.Warning("scatter.remove:%v", name)
	pool, ok := scatter.pools[name]
	if !ok {
		return errors.Errorf("scatter.data-source[%v].can.not.be.found", name)
	}
	delete(scatter.pools, name)
	return pool.Close()
}

// Pool returns the pool of the data source.
func (scatter *Scatter) Pool(name string) (*Pool, error) {
	scatter.mu.RLock()
	defer scatter.mu.RUnlock()
	pool, ok := scatter.pools[name]
	if !ok {
		return nil, errors.Errorf("scatter.data-source[%v].can.not.be.found", name)
	}
	return pool, nil
}

// DataSources returns the data source names, sorted.
func (scatter *Scatter) DataSources() []string {
	scatter.mu.RLock()
	defer scatter.mu.RUnlock()
	names := make([]string, 0, len(scatter.pools))
	for name := range scatter.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Query runs a query on the data source.
func (scatter *Scatter) Query(ctx context.Context, dataSource, query string, args []interface{}) (merge.QueryResult, error) {
	pool, err := scatter.Pool(dataSource)
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Exec runs a statement on the data source.
func (scatter *Scatter) Exec(ctx context.Context, dataSource, query string, args []interface{}) (*sqltypes.Result, error) {
	pool, err := scatter.Pool(dataSource)
	if err != nil {
		return nil, err
	}
	return pool.Exec(ctx, query, args)
}

// Close used to clean the pools connections.
func (scatter *Scatter) Close() {
	scatter.mu.Lock()
	defer scatter.mu.Unlock()

	log := scatter.log
	log.Info("scatter.prepare.to.close....")
	for name, pool := range scatter.pools {
		if err := pool.Close(); err != nil {
			log.Error("scatter.close[%s].error:%v", name, err)
		}
	}
	scatter.pools = make(map[string]*Pool)
	log.Info("scatter.close.done....")
}
