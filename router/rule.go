/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package router

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/radondb/xshard/config"
	"github.com/radondb/xshard/keygen"

	"github.com/pkg/errors"
	"github.com/xelabs/go-mysqlstack/xlog"
)

// ShardingRule is the compiled sharding config, read only after NewShardingRule.
type ShardingRule struct {
	log   *xlog.Log
	props *config.PropsConfig

	dataSources []string
	tables      map[string]*TableRule
	tableNames  []string
	bindings    map[string][]string
	broadcast   map[string]string
	defaultDS   string
}

// NewShardingRule compiles the sharding section of the config.
func NewShardingRule(log *xlog.Log, conf *config.Config, algorithms *AlgorithmRegistry, keygens *keygen.Registry) (*ShardingRule, error) {
	sharding := conf.Sharding
	if sharding == nil {
		sharding = &config.ShardingConfig{}
	}
	props := conf.Props
	if props == nil {
		props = config.DefaultPropsConfig()
	}

	r := &ShardingRule{
		log:         log,
		props:       props,
		dataSources: conf.DataSourceNames(),
		tables:      make(map[string]*TableRule),
		bindings:    make(map[string][]string),
		broadcast:   make(map[string]string),
	}
	if len(r.dataSources) == 0 {
		return nil, errors.New("router.data.sources.can.not.be.empty")
	}

	algos := make(map[string]Algorithm, len(sharding.Algorithms))
	for name, ac := range sharding.Algorithms {
		p := make(map[string]string, len(ac.Props)+1)
		for k, v := range ac.Props {
			p[k] = v
		}
		if _, ok := p[propAllowRange]; !ok && props.AllowRangeQueryWithInlineSharding {
			p[propAllowRange] = "true"
		}
		algo, err := algorithms.Create(ac.Type, p)
		if err != nil {
			return nil, errors.Wrapf(err, "router.algorithm[%s]", name)
		}
		algos[name] = algo
	}

	gens := make(map[string]keygen.Generator, len(sharding.KeyGenerators))
	for name, gc := range sharding.KeyGenerators {
		gen, err := keygens.Create(gc.Type, gc.Props)
		if err != nil {
			return nil, errors.Wrapf(err, "router.key.generator[%s]", name)
		}
		gens[name] = gen
	}

	for _, tc := range sharding.Tables {
		t, err := r.buildTable(tc, sharding, algos, gens)
		if err != nil {
			return nil, err
		}
		key := strings.ToLower(tc.Name)
		if _, ok := r.tables[key]; ok {
			return nil, errors.Errorf("router.table[%s].duplicate", tc.Name)
		}
		r.tables[key] = t
		r.tableNames = append(r.tableNames, tc.Name)
	}

	for _, group := range sharding.BindingTables {
		if err := r.addBinding(group); err != nil {
			return nil, err
		}
	}

	for _, name := range sharding.BroadcastTables {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, ok := r.tables[key]; ok {
			return nil, errors.Errorf("router.broadcast.table[%s].is.sharding.table", name)
		}
		r.broadcast[key] = strings.TrimSpace(name)
	}

	if sharding.DefaultDataSource != "" {
		if !r.hasDataSource(sharding.DefaultDataSource) {
			return nil, errors.Errorf("router.default.data.source[%s].not.found", sharding.DefaultDataSource)
		}
		r.defaultDS = sharding.DefaultDataSource
	}
	log.Info("router.sharding.rule.tables[%d].binding.groups[%d].broadcast[%d]", len(r.tables), len(sharding.BindingTables), len(r.broadcast))
	return r, nil
}

func (r *ShardingRule) buildTable(tc *config.TableConfig, sharding *config.ShardingConfig, algos map[string]Algorithm, gens map[string]keygen.Generator) (*TableRule, error) {
	if tc.Name == "" {
		return nil, errors.New("router.table.name.can.not.be.empty")
	}
	var nodes []DataNode
	if tc.ActualDataNodes == "" {
		for _, ds := range r.dataSources {
			nodes = append(nodes, DataNode{DataSource: ds, Table: tc.Name})
		}
	} else {
		var err error
		if nodes, err = ParseDataNodes(tc.ActualDataNodes); err != nil {
			return nil, errors.Wrapf(err, "router.table[%s]", tc.Name)
		}
	}
	for _, n := range nodes {
		if !r.hasDataSource(n.DataSource) {
			return nil, errors.Errorf("router.table[%s].data.node[%s].data.source.not.found", tc.Name, n)
		}
	}
	t := newTableRule(tc.Name, nodes)
	t.Columns = tc.Columns

	dbConf := tc.DatabaseStrategy
	if dbConf == nil {
		dbConf = sharding.DefaultDatabaseStrategy
	}
	tblConf := tc.TableStrategy
	if tblConf == nil {
		tblConf = sharding.DefaultTableStrategy
	}
	var err error
	if t.DatabaseStrategy, err = NewStrategy(dbConf, algos); err != nil {
		return nil, errors.Wrapf(err, "router.table[%s].database.strategy", tc.Name)
	}
	if t.TableStrategy, err = NewStrategy(tblConf, algos); err != nil {
		return nil, errors.Wrapf(err, "router.table[%s].table.strategy", tc.Name)
	}

	kg := tc.KeyGenerate
	if kg == nil {
		kg = sharding.DefaultKeyGenerate
	}
	if kg != nil && kg.Column != "" {
		gen, ok := gens[kg.Generator]
		if !ok {
			return nil, errors.Errorf("router.table[%s].key.generator[%s].not.found", tc.Name, kg.Generator)
		}
		t.KeyColumn, t.KeyGenerator = kg.Column, gen
	}
	return t, nil
}

// addBinding checks the group members are co-partitioned: same data sources, same table count on each.
func (r *ShardingRule) addBinding(group string) error {
	var members []string
	for _, name := range strings.Split(group, ",") {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			members = append(members, name)
		}
	}
	if len(members) < 2 {
		return errors.Errorf("router.binding.tables[%s].needs.two.tables.at.least", group)
	}
	first, ok := r.tables[members[0]]
	if !ok {
		return errors.Errorf("router.binding.tables[%s].table[%s].is.not.sharding.table", group, members[0])
	}
	for _, m := range members {
		t, ok := r.tables[m]
		if !ok {
			return errors.Errorf("router.binding.tables[%s].table[%s].is.not.sharding.table", group, m)
		}
		if _, dup := r.bindings[m]; dup {
			return errors.Errorf("router.binding.tables[%s].table[%s].already.bound", group, m)
		}
		a, b := append([]string(nil), first.DataSources()...), append([]string(nil), t.DataSources()...)
		sort.Strings(a)
		sort.Strings(b)
		if strings.Join(a, ",") != strings.Join(b, ",") {
			return errors.Errorf("router.binding.tables[%s].data.sources.mismatch[%s:%v,%s:%v]", group, members[0], first.DataSources(), m, t.DataSources())
		}
		for _, ds := range a {
			if len(first.ActualTables(ds)) != len(t.ActualTables(ds)) {
				return errors.Errorf("router.binding.tables[%s].data.source[%s].table.count.mismatch", group, ds)
			}
		}
	}
	for _, m := range members {
		r.bindings[m] = members
	}
	return nil
}

func (r *ShardingRule) hasDataSource(ds string) bool {
	for _, name := range r.dataSources {
		if name == ds {
			return true
		}
	}
	return false
}

// Props returns the props the rule was built with.
func (r *ShardingRule) Props() *config.PropsConfig {
	return r.props
}

// DataSources returns the configured data sources in order.
func (r *ShardingRule) DataSources() []string {
	return r.dataSources
}

// TableRule returns the rule of a sharding table.
func (r *ShardingRule) TableRule(name string) (*TableRule, bool) {
	t, ok := r.tables[strings.ToLower(name)]
	return t, ok
}

// TableRules returns the sharding tables in config order.
func (r *ShardingRule) TableRules() []*TableRule {
	rules := make([]*TableRule, 0, len(r.tableNames))
	for _, name := range r.tableNames {
		rules = append(rules, r.tables[strings.ToLower(name)])
	}
	return rules
}

// IsSharding reports whether the table has a rule.
func (r *ShardingRule) IsSharding(name string) bool {
	_, ok := r.tables[strings.ToLower(name)]
	return ok
}

// IsBroadcast reports whether the table is replicated on every data source.
func (r *ShardingRule) IsBroadcast(name string) bool {
	_, ok := r.broadcast[strings.ToLower(name)]
	return ok
}

// IsBinding reports whether two tables are in the same binding group.
func (r *ShardingRule) IsBinding(a, b string) bool {
	group, ok := r.bindings[strings.ToLower(a)]
	if !ok {
		return false
	}
	for _, m := range group {
		if m == strings.ToLower(b) {
			return true
		}
	}
	return false
}

// BindingGroup returns the lower cased members bound with the table, or just the table.
func (r *ShardingRule) BindingGroup(name string) []string {
	if group, ok := r.bindings[strings.ToLower(name)]; ok {
		return group
	}
	return []string{strings.ToLower(name)}
}

// DefaultDataSource returns the data source of unsharded tables: the
// configured default, else the only data source.
func (r *ShardingRule) DefaultDataSource() (string, error) {
	if r.defaultDS != "" {
		return r.defaultDS, nil
	}
	if len(r.dataSources) == 1 {
		return r.dataSources[0], nil
	}
	return "", errors.New("router.default.data.source.not.configured")
}

// unicastDataSource picks one data source, the first or a random one.
func (r *ShardingRule) unicastDataSource(random bool) string {
	if random {
		return r.dataSources[rand.Intn(len(r.dataSources))]
	}
	return r.dataSources[0]
}
