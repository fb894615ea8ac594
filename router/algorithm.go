/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package router

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Algorithm types.
const (
	AlgorithmInline        = "INLINE"
	AlgorithmMod           = "MOD"
	AlgorithmHashMod       = "HASH_MOD"
	AlgorithmJumpHash      = "JUMP_HASH"
	AlgorithmBoundaryRange = "BOUNDARY_RANGE"
	AlgorithmVolumeRange   = "VOLUME_RANGE"
	AlgorithmList          = "LIST"
	AlgorithmComplexInline = "COMPLEX_INLINE"
	AlgorithmHintInline    = "HINT_INLINE"

	propAllowRange = "allow-range-query-with-inline-sharding"
)

// Algorithm picks target names among the available ones.
type Algorithm interface {
	Type() string
}

// StandardAlgorithm shards on one column.
type StandardAlgorithm interface {
	Algorithm
	// DoSharding returns the target of an exact value.
	DoSharding(targets []string, column string, value interface{}) (string, error)
	// DoRangeSharding returns the targets a range may hit.
	DoRangeSharding(targets []string, column string, r Range) ([]string, error)
}

// ComplexAlgorithm shards on several columns at once.
type ComplexAlgorithm interface {
	Algorithm
	DoComplexSharding(targets []string, values map[string]RouteValue) ([]string, error)
}

// HintAlgorithm shards on values given with the statement instead of in it.
type HintAlgorithm interface {
	Algorithm
	DoHintSharding(targets []string, values []interface{}) ([]string, error)
}

// AlgorithmConstructor builds an algorithm from its props.
type AlgorithmConstructor func(props map[string]string) (Algorithm, error)

// AlgorithmRegistry maps an algorithm type to its constructor.
type AlgorithmRegistry struct {
	ctors map[string]AlgorithmConstructor
}

// NewAlgorithmRegistry creates a registry filled with the builtin algorithms.
func NewAlgorithmRegistry() *AlgorithmRegistry {
	r := &AlgorithmRegistry{ctors: make(map[string]AlgorithmConstructor)}
	r.Register(AlgorithmInline, NewInline)
	r.Register(AlgorithmMod, NewMod)
	r.Register(AlgorithmHashMod, NewHashMod)
	r.Register(AlgorithmJumpHash, NewJumpHash)
	r.Register(AlgorithmBoundaryRange, NewBoundaryRange)
	r.Register(AlgorithmVolumeRange, NewVolumeRange)
	r.Register(AlgorithmList, NewList)
	r.Register(AlgorithmComplexInline, NewComplexInline)
	r.Register(AlgorithmHintInline, NewHintInline)
	return r
}

// Register adds or replaces a constructor.
func (r *AlgorithmRegistry) Register(typ string, ctor AlgorithmConstructor) {
	r.ctors[strings.ToUpper(typ)] = ctor
}

// Create builds an algorithm of the type.
func (r *AlgorithmRegistry) Create(typ string, props map[string]string) (Algorithm, error) {
	ctor, ok := r.ctors[strings.ToUpper(typ)]
	if !ok {
		return nil, errors.Errorf("router.unsupported.algorithm.type[%s]", typ)
	}
	if props == nil {
		props = map[string]string{}
	}
	return ctor(props)
}

func requiredProp(typ string, props map[string]string, key string) (string, error) {
	v, ok := props[key]
	if !ok || strings.TrimSpace(v) == "" {
		return "", errors.Errorf("router.algorithm[%s].props[%s].can.not.be.empty", typ, key)
	}
	return strings.TrimSpace(v), nil
}

func intProp(typ string, props map[string]string, key string) (int64, error) {
	v, err := requiredProp(typ, props, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.Errorf("router.algorithm[%s].props[%s=%s].not.integer", typ, key, v)
	}
	return n, nil
}

func boolProp(props map[string]string, key string) bool {
	b, _ := strconv.ParseBool(props[key])
	return b
}

// targetSuffix returns the trailing number of a target name, such as 1 in t_order_1.
func targetSuffix(target string) (int64, bool) {
	i := len(target)
	for i > 0 && target[i-1] >= '0' && target[i-1] <= '9' {
		i--
	}
	if i == len(target) {
		return 0, false
	}
	n, err := strconv.ParseInt(target[i:], 10, 64)
	return n, err == nil
}

// targetBySuffix returns the target whose trailing number is n.
func targetBySuffix(typ string, targets []string, n int64) (string, error) {
	for _, t := range targets {
		if s, ok := targetSuffix(t); ok && s == n {
			return t, nil
		}
	}
	return "", errors.Errorf("router.algorithm[%s].no.target.with.suffix[%d].in%v", typ, n, targets)
}

// targetsBySuffix keeps the targets whose trailing number is in set, in targets order.
func targetsBySuffix(targets []string, set map[int64]struct{}) []string {
	var out []string
	for _, t := range targets {
		if s, ok := targetSuffix(t); ok {
			if _, hit := set[s]; hit {
				out = append(out, t)
			}
		}
	}
	return out
}
