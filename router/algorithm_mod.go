/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package router

import (
	"fmt"
	"math"

	"github.com/radondb/xshard/statement"

	"github.com/cespare/xxhash/v2"
	jump "github.com/lithammer/go-jump-consistent-hash"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	minInt64 = decimal.NewFromInt(math.MinInt64)
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
)

func shardingCount(typ string, props map[string]string) (int64, error) {
	n, err := intProp(typ, props, "sharding-count")
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.Errorf("router.algorithm[%s].sharding-count[%d].must.be.positive", typ, n)
	}
	return n, nil
}

// Mod routes integral values to the target whose suffix is value % sharding-count.
type Mod struct {
	count int64
}

// NewMod creates the MOD algorithm, props: sharding-count.
func NewMod(props map[string]string) (Algorithm, error) {
	n, err := shardingCount(AlgorithmMod, props)
	if err != nil {
		return nil, err
	}
	return &Mod{count: n}, nil
}

// Type implements Algorithm.
func (a *Mod) Type() string {
	return AlgorithmMod
}

func (a *Mod) mod(value interface{}) (int64, error) {
	n, ok := statement.ToInt64(value)
	if !ok {
		d, okd := ToDecimal(value)
		if !okd || !d.IsInteger() {
			return 0, errors.Errorf("router.algorithm[MOD].value[%v].not.integer", value)
		}
		n = d.IntPart()
	}
	m := n % a.count
	if m < 0 {
		m += a.count
	}
	return m, nil
}

// DoSharding implements StandardAlgorithm.
func (a *Mod) DoSharding(targets []string, column string, value interface{}) (string, error) {
	m, err := a.mod(value)
	if err != nil {
		return "", err
	}
	return targetBySuffix(AlgorithmMod, targets, m)
}

// DoRangeSharding implements StandardAlgorithm: a closed integral range
// narrower than sharding-count is enumerated, anything else hits every target.
func (a *Mod) DoRangeSharding(targets []string, column string, r Range) ([]string, error) {
	if !r.HasLower || !r.HasUpper {
		return targets, nil
	}
	lo, okl := ToDecimal(r.Lower)
	hi, okh := ToDecimal(r.Upper)
	if !okl || !okh || !lo.IsInteger() || !hi.IsInteger() {
		return targets, nil
	}
	one := decimal.NewFromInt(1)
	if !r.LowerInclusive {
		lo = lo.Add(one)
	}
	if !r.UpperInclusive {
		hi = hi.Sub(one)
	}
	set := make(map[int64]struct{})
	if hi.LessThan(lo) {
		return targetsBySuffix(targets, set), nil
	}
	// The width is taken in decimal, int64 bounds may be anywhere.
	if hi.Sub(lo).Add(one).GreaterThanOrEqual(decimal.NewFromInt(a.count)) {
		return targets, nil
	}
	if lo.LessThan(minInt64) || hi.GreaterThan(maxInt64) {
		return targets, nil
	}
	first, width := lo.IntPart(), hi.Sub(lo).IntPart()
	for i := int64(0); i <= width; i++ {
		m, _ := a.mod(first + i)
		set[m] = struct{}{}
	}
	return targetsBySuffix(targets, set), nil
}

// HashMod routes to the target whose suffix is xxhash(value) % sharding-count.
type HashMod struct {
	count uint64
}

// NewHashMod creates the HASH_MOD algorithm, props: sharding-count.
func NewHashMod(props map[string]string) (Algorithm, error) {
	n, err := shardingCount(AlgorithmHashMod, props)
	if err != nil {
		return nil, err
	}
	return &HashMod{count: uint64(n)}, nil
}

// Type implements Algorithm.
func (a *HashMod) Type() string {
	return AlgorithmHashMod
}

// hashKey renders numbers by value so 5, int32(5) and "5" hash alike.
func hashKey(value interface{}) string {
	if d, ok := ToDecimal(value); ok {
		return d.String()
	}
	return fmt.Sprintf("%v", value)
}

// DoSharding implements StandardAlgorithm.
func (a *HashMod) DoSharding(targets []string, column string, value interface{}) (string, error) {
	if value == nil {
		return "", errors.Errorf("router.algorithm[HASH_MOD].column[%s].value.can.not.be.null", column)
	}
	return targetBySuffix(AlgorithmHashMod, targets, int64(xxhash.Sum64String(hashKey(value))%a.count))
}

// DoRangeSharding implements StandardAlgorithm, hashing loses order so every target.
func (a *HashMod) DoRangeSharding(targets []string, column string, r Range) ([]string, error) {
	return targets, nil
}

// JumpHash routes with jump consistent hashing over sharding-count buckets,
// integral values are the key, others are hashed with xxhash first.
type JumpHash struct {
	count int32
}

// NewJumpHash creates the JUMP_HASH algorithm, props: sharding-count.
func NewJumpHash(props map[string]string) (Algorithm, error) {
	n, err := shardingCount(AlgorithmJumpHash, props)
	if err != nil {
		return nil, err
	}
	if n > math.MaxInt32 {
		return nil, errors.Errorf("router.algorithm[%s].sharding-count[%d].out.of.range[1-%d]", AlgorithmJumpHash, n, math.MaxInt32)
	}
	return &JumpHash{count: int32(n)}, nil
}

// Type implements Algorithm.
func (a *JumpHash) Type() string {
	return AlgorithmJumpHash
}

// DoSharding implements StandardAlgorithm.
func (a *JumpHash) DoSharding(targets []string, column string, value interface{}) (string, error) {
	if value == nil {
		return "", errors.Errorf("router.algorithm[JUMP_HASH].column[%s].value.can.not.be.null", column)
	}
	var key uint64
	if n, ok := statement.ToInt64(value); ok {
		key = uint64(n)
	} else {
		key = xxhash.Sum64String(hashKey(value))
	}
	return targetBySuffix(AlgorithmJumpHash, targets, int64(jump.Hash(key, a.count)))
}

// DoRangeSharding implements StandardAlgorithm, every target.
func (a *JumpHash) DoRangeSharding(targets []string, column string, r Range) ([]string, error) {
	return targets, nil
}
