/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package router

import (
	"strings"

	"github.com/radondb/xshard/config"

	"github.com/pkg/errors"
)

// Strategy types.
const (
	StrategyStandard = "standard"
	StrategyComplex  = "complex"
	StrategyHint     = "hint"
	StrategyNone     = "none"
)

// Strategy resolves route values (or hints) of one table to targets.
// With nothing bound it returns every target.
type Strategy interface {
	Type() string
	Columns() []string
	DoSharding(targets []string, values []RouteValue, hints []interface{}) ([]string, error)
}

// NewStrategy builds a strategy from its config, a nil config gives NoneStrategy.
func NewStrategy(conf *config.StrategyConfig, algorithms map[string]Algorithm) (Strategy, error) {
	if conf == nil || strings.EqualFold(conf.Type, StrategyNone) || conf.Type == "" {
		return &NoneStrategy{}, nil
	}
	algo, ok := algorithms[conf.Algorithm]
	if !ok {
		return nil, errors.Errorf("router.strategy[%s].algorithm[%s].not.found", conf.Type, conf.Algorithm)
	}
	mismatch := func() error {
		return errors.Errorf("router.strategy[%s].algorithm[%s].type[%s].mismatch", conf.Type, conf.Algorithm, algo.Type())
	}
	switch strings.ToLower(conf.Type) {
	case StrategyStandard:
		sa, ok := algo.(StandardAlgorithm)
		if !ok {
			return nil, mismatch()
		}
		if conf.Column == "" {
			return nil, errors.Errorf("router.strategy[standard].algorithm[%s].column.can.not.be.empty", conf.Algorithm)
		}
		return &StandardStrategy{column: conf.Column, algorithm: sa}, nil
	case StrategyComplex:
		ca, ok := algo.(ComplexAlgorithm)
		if !ok {
			return nil, mismatch()
		}
		var cols []string
		for _, c := range strings.Split(conf.Columns, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cols = append(cols, c)
			}
		}
		if len(cols) == 0 {
			return nil, errors.Errorf("router.strategy[complex].algorithm[%s].columns.can.not.be.empty", conf.Algorithm)
		}
		return &ComplexStrategy{columns: cols, algorithm: ca}, nil
	case StrategyHint:
		ha, ok := algo.(HintAlgorithm)
		if !ok {
			return nil, mismatch()
		}
		return &HintStrategy{algorithm: ha}, nil
	}
	return nil, errors.Errorf("router.unsupported.strategy.type[%s]", conf.Type)
}

// appendUnique appends the items not yet in out.
func appendUnique(out []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, o := range out {
			if o == item {
				found = true
				break
			}
		}
		if !found {
			out = append(out, item)
		}
	}
	return out
}

// StandardStrategy shards on one column.
type StandardStrategy struct {
	column    string
	algorithm StandardAlgorithm
}

// Type implements Strategy.
func (s *StandardStrategy) Type() string { return StrategyStandard }

// Columns implements Strategy.
func (s *StandardStrategy) Columns() []string { return []string{s.column} }

// DoSharding implements Strategy.
func (s *StandardStrategy) DoSharding(targets []string, values []RouteValue, hints []interface{}) ([]string, error) {
	var result []string
	bound := false
	for _, rv := range values {
		if !strings.EqualFold(rv.ColumnName(), s.column) {
			continue
		}
		var hit []string
		switch rv := rv.(type) {
		case *ListRouteValue:
			for _, v := range rv.Values {
				t, err := s.algorithm.DoSharding(targets, s.column, v)
				if err != nil {
					return nil, err
				}
				hit = appendUnique(hit, t)
			}
		case *RangeRouteValue:
			ts, err := s.algorithm.DoRangeSharding(targets, s.column, rv.Range)
			if err != nil {
				return nil, err
			}
			hit = appendUnique(hit, ts...)
		}
		if !bound {
			result, bound = hit, true
			continue
		}
		result = intersect(result, hit)
	}
	if !bound {
		return targets, nil
	}
	return result, nil
}

func intersect(a, b []string) []string {
	var out []string
	for _, x := range a {
		for _, y := range b {
			if x == y {
				out = append(out, x)
				break
			}
		}
	}
	return out
}

// ComplexStrategy shards on several columns.
type ComplexStrategy struct {
	columns   []string
	algorithm ComplexAlgorithm
}

// Type implements Strategy.
func (s *ComplexStrategy) Type() string { return StrategyComplex }

// Columns implements Strategy.
func (s *ComplexStrategy) Columns() []string { return s.columns }

// DoSharding implements Strategy.
func (s *ComplexStrategy) DoSharding(targets []string, values []RouteValue, hints []interface{}) ([]string, error) {
	bound := make(map[string]RouteValue)
	for _, rv := range values {
		for _, c := range s.columns {
			if strings.EqualFold(rv.ColumnName(), c) {
				bound[c] = rv
			}
		}
	}
	if len(bound) == 0 {
		return targets, nil
	}
	return s.algorithm.DoComplexSharding(targets, bound)
}

// HintStrategy shards on the hint values of the statement.
type HintStrategy struct {
	algorithm HintAlgorithm
}

// Type implements Strategy.
func (s *HintStrategy) Type() string { return StrategyHint }

// Columns implements Strategy.
func (s *HintStrategy) Columns() []string { return nil }

// DoSharding implements Strategy.
func (s *HintStrategy) DoSharding(targets []string, values []RouteValue, hints []interface{}) ([]string, error) {
	if len(hints) == 0 {
		return targets, nil
	}
	return s.algorithm.DoHintSharding(targets, hints)
}

// NoneStrategy never shards.
type NoneStrategy struct{}

// Type implements Strategy.
func (s *NoneStrategy) Type() string { return StrategyNone }

// Columns implements Strategy.
func (s *NoneStrategy) Columns() []string { return nil }

// DoSharding implements Strategy.
func (s *NoneStrategy) DoSharding(targets []string, values []RouteValue, hints []interface{}) ([]string, error) {
	return targets, nil
}
