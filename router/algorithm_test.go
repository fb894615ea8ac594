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
	"testing"

	jump "github.com/lithammer/go-jump-consistent-hash"
	"github.com/stretchr/testify/assert"
)

func mustStandard(t *testing.T, typ string, props map[string]string) StandardAlgorithm {
	algo, err := NewAlgorithmRegistry().Create(typ, props)
	assert.Nil(t, err)
	return algo.(StandardAlgorithm)
}

func TestAlgorithmRegistry(t *testing.T) {
	r := NewAlgorithmRegistry()
	{
		_, err := r.Create("foo", nil)
		assert.Equal(t, "router.unsupported.algorithm.type[foo]", err.Error())
	}
	{
		_, err := r.Create("mod", nil)
		assert.Equal(t, "router.algorithm[MOD].props[sharding-count].can.not.be.empty", err.Error())
		_, err = r.Create("mod", map[string]string{"sharding-count": "x"})
		assert.Equal(t, "router.algorithm[MOD].props[sharding-count=x].not.integer", err.Error())
		_, err = r.Create("mod", map[string]string{"sharding-count": "0"})
		assert.Equal(t, "router.algorithm[MOD].sharding-count[0].must.be.positive", err.Error())
	}
	{
		r.Register("always_zero", func(props map[string]string) (Algorithm, error) {
			return NewMod(map[string]string{"sharding-count": "1"})
		})
		algo, err := r.Create("ALWAYS_ZERO", nil)
		assert.Nil(t, err)
		assert.Equal(t, AlgorithmMod, algo.Type())
	}
}

func TestAlgorithmMod(t *testing.T) {
	targets := []string{"t_order_0", "t_order_1"}
	mod := mustStandard(t, AlgorithmMod, map[string]string{"sharding-count": "2"})

	for v, want := range map[interface{}]string{int64(5): "t_order_1", 4: "t_order_0", int64(-3): "t_order_1", "6": "t_order_0"} {
		got, err := mod.DoSharding(targets, "order_id", v)
		assert.Nil(t, err)
		assert.Equal(t, want, got)
	}
	{
		_, err := mod.DoSharding(targets, "order_id", "x")
		assert.Equal(t, "router.algorithm[MOD].value[x].not.integer", err.Error())
	}

	testCases := []struct {
		r    Range
		want []string
	}{
		{r: Range{Lower: int64(1), Upper: int64(1), HasLower: true, HasUpper: true, LowerInclusive: true, UpperInclusive: true}, want: []string{"t_order_1"}},
		{r: Range{Lower: int64(0), Upper: int64(2), HasLower: true, HasUpper: true}, want: []string{"t_order_1"}},
		{r: Range{Lower: int64(0), Upper: int64(10), HasLower: true, HasUpper: true, LowerInclusive: true}, want: targets},
		{r: Range{Lower: int64(0), HasLower: true}, want: targets},
		{r: Range{Lower: int64(3), Upper: int64(3), HasLower: true, HasUpper: true}, want: nil},
		{r: Range{Lower: int64(-5000000000000000000), Upper: int64(5000000000000000000), HasLower: true, HasUpper: true, LowerInclusive: true, UpperInclusive: true}, want: targets},
		{r: Range{Lower: int64(math.MinInt64), Upper: int64(math.MaxInt64), HasLower: true, HasUpper: true, LowerInclusive: true, UpperInclusive: true}, want: targets},
		{r: Range{Lower: int64(math.MaxInt64), Upper: int64(math.MaxInt64), HasLower: true, HasUpper: true, LowerInclusive: true, UpperInclusive: true}, want: []string{"t_order_1"}},
		{r: Range{Lower: "100000000000000000000", Upper: "100000000000000000000", HasLower: true, HasUpper: true, LowerInclusive: true, UpperInclusive: true}, want: targets},
	}
	for _, testCase := range testCases {
		got, err := mod.DoRangeSharding(targets, "order_id", testCase.r)
		assert.Nil(t, err)
		assert.Equal(t, testCase.want, got)
	}

	// t_10 must not be taken for suffix 0.
	var many []string
	for i := 0; i < 11; i++ {
		many = append(many, fmt.Sprintf("t_%d", i))
	}
	mod11 := mustStandard(t, AlgorithmMod, map[string]string{"sharding-count": "11"})
	got, err := mod11.DoSharding(many, "id", int64(10))
	assert.Nil(t, err)
	assert.Equal(t, "t_10", got)
	got, err = mod11.DoSharding(many, "id", int64(11))
	assert.Nil(t, err)
	assert.Equal(t, "t_0", got)

	{
		r := Range{Lower: int64(math.MaxInt64 - 1), Upper: int64(math.MaxInt64), HasLower: true, HasUpper: true, LowerInclusive: true, UpperInclusive: true}
		got, err := mod11.DoRangeSharding(many, "id", r)
		assert.Nil(t, err)
		assert.Equal(t, []string{"t_6", "t_7"}, got)
	}

	{
		_, err := mod11.DoSharding(targets, "id", int64(7))
		assert.Equal(t, "router.algorithm[MOD].no.target.with.suffix[7].in[t_order_0 t_order_1]", err.Error())
	}
}

func TestAlgorithmHash(t *testing.T) {
	targets := []string{"t_0", "t_1", "t_2", "t_3"}
	{
		hash := mustStandard(t, AlgorithmHashMod, map[string]string{"sharding-count": "4"})
		a, err := hash.DoSharding(targets, "id", int64(5))
		assert.Nil(t, err)
		b, err := hash.DoSharding(targets, "id", "5")
		assert.Nil(t, err)
		assert.Equal(t, a, b)
		_, err = hash.DoSharding(targets, "id", nil)
		assert.Equal(t, "router.algorithm[HASH_MOD].column[id].value.can.not.be.null", err.Error())
		all, err := hash.DoRangeSharding(targets, "id", Range{})
		assert.Nil(t, err)
		assert.Equal(t, targets, all)
	}
	{
		jh := mustStandard(t, AlgorithmJumpHash, map[string]string{"sharding-count": "4"})
		for i := int64(0); i < 64; i++ {
			got, err := jh.DoSharding(targets, "id", i)
			assert.Nil(t, err)
			assert.Equal(t, fmt.Sprintf("t_%d", jump.Hash(uint64(i), 4)), got)
		}
		_, err := jh.DoSharding(targets, "id", "abc")
		assert.Nil(t, err)
	}
	{
		_, err := NewAlgorithmRegistry().Create(AlgorithmJumpHash, map[string]string{"sharding-count": "4294967296"})
		assert.Equal(t, "router.algorithm[JUMP_HASH].sharding-count[4294967296].out.of.range[1-2147483647]", err.Error())
	}
}

func TestAlgorithmBoundaryRange(t *testing.T) {
	targets := []string{"t_0", "t_1", "t_2"}
	br := mustStandard(t, AlgorithmBoundaryRange, map[string]string{"sharding-ranges": "10, 20"})
	for v, want := range map[int64]string{5: "t_0", 10: "t_1", 19: "t_1", 20: "t_2", 100: "t_2"} {
		got, err := br.DoSharding(targets, "id", v)
		assert.Nil(t, err)
		assert.Equal(t, want, got)
	}

	testCases := []struct {
		r    Range
		want []string
	}{
		{r: Range{Lower: int64(12), Upper: int64(25), HasLower: true, HasUpper: true, LowerInclusive: true, UpperInclusive: true}, want: []string{"t_1", "t_2"}},
		{r: Range{Lower: int64(0), Upper: int64(10), HasLower: true, HasUpper: true, LowerInclusive: true}, want: []string{"t_0"}},
		{r: Range{Upper: 15.5, HasUpper: true, UpperInclusive: true}, want: []string{"t_0", "t_1"}},
	}
	for _, testCase := range testCases {
		got, err := br.DoRangeSharding(targets, "id", testCase.r)
		assert.Nil(t, err)
		assert.Equal(t, testCase.want, got)
	}

	{
		_, err := NewBoundaryRange(map[string]string{"sharding-ranges": "20,10"})
		assert.Equal(t, "router.algorithm[BOUNDARY_RANGE].boundaries.must.be.ascending[20>=10]", err.Error())
		_, err = br.DoSharding(targets, "id", "abc")
		assert.Equal(t, "router.algorithm[BOUNDARY_RANGE].value[abc].not.number", err.Error())
	}
}

func TestAlgorithmVolumeRange(t *testing.T) {
	targets := []string{"t_0", "t_1", "t_2", "t_3"}
	vr := mustStandard(t, AlgorithmVolumeRange, map[string]string{"range-lower": "0", "range-upper": "20", "sharding-volume": "10"})
	for v, want := range map[int64]string{-1: "t_0", 5: "t_1", 15: "t_2", 25: "t_3"} {
		got, err := vr.DoSharding(targets, "id", v)
		assert.Nil(t, err)
		assert.Equal(t, want, got)
	}
	{
		_, err := NewVolumeRange(map[string]string{"range-lower": "10", "range-upper": "0", "sharding-volume": "10"})
		assert.Equal(t, "router.algorithm[VOLUME_RANGE].range[10,0].volume[10].invalid", err.Error())
	}
}

func TestAlgorithmList(t *testing.T) {
	targets := []string{"ds_0", "ds_1"}
	list := mustStandard(t, AlgorithmList, map[string]string{"lists": "ds_0:1,2; ds_1:3"})
	for v, want := range map[interface{}]string{int64(3): "ds_1", "2": "ds_0", 1.0: "ds_0"} {
		got, err := list.DoSharding(targets, "region", v)
		assert.Nil(t, err)
		assert.Equal(t, want, got)
	}
	{
		_, err := list.DoSharding(targets, "region", int64(9))
		assert.Equal(t, "router.algorithm[LIST].column[region].value[9].has.no.partition", err.Error())
		_, err = NewList(map[string]string{"lists": "ds_0:1;ds_1:1"})
		assert.Equal(t, "router.algorithm[LIST].value[1].in.both[ds_0,ds_1]", err.Error())
		_, err = NewList(map[string]string{"lists": "ds_0"})
		assert.Equal(t, "router.algorithm[LIST].lists[ds_0].malformed", err.Error())
	}
}

func TestAlgorithmInline(t *testing.T) {
	targets := []string{"t_order_0", "t_order_1"}
	inline := mustStandard(t, AlgorithmInline, map[string]string{"algorithm-expression": "t_order_${order_id % 2}"})
	got, err := inline.DoSharding(targets, "order_id", int64(7))
	assert.Nil(t, err)
	assert.Equal(t, "t_order_1", got)

	r := Range{Lower: int64(1), Upper: int64(5), HasLower: true, HasUpper: true, LowerInclusive: true, UpperInclusive: true}
	{
		_, err := inline.DoRangeSharding(targets, "order_id", r)
		assert.Equal(t, "router.algorithm[INLINE].expression[t_order_${order_id % 2}].can.not.route.range[[1..5]]", err.Error())
	}
	{
		allowed := mustStandard(t, AlgorithmInline, map[string]string{"algorithm-expression": "t_order_${order_id % 2}", propAllowRange: "true"})
		got, err := allowed.DoRangeSharding(targets, "order_id", r)
		assert.Nil(t, err)
		assert.Equal(t, targets, got)
	}
	{
		_, err := NewInline(map[string]string{"algorithm-expression": "t_${a + b}"})
		assert.Equal(t, "router.algorithm[INLINE].expression[t_${a + b}].must.use.one.column[a b]", err.Error())
	}
}

func TestAlgorithmComplexInline(t *testing.T) {
	targets := []string{"t_0_0", "t_0_1", "t_1_0", "t_1_1"}
	algo, err := NewComplexInline(map[string]string{"algorithm-expression": "t_${user_id % 2}_${order_id % 2}"})
	assert.Nil(t, err)
	complex := algo.(ComplexAlgorithm)

	got, err := complex.DoComplexSharding(targets, map[string]RouteValue{
		"user_id":  &ListRouteValue{Column: "user_id", Values: []interface{}{int64(1)}},
		"order_id": &ListRouteValue{Column: "order_id", Values: []interface{}{int64(2), int64(3), int64(5)}},
	})
	assert.Nil(t, err)
	assert.Equal(t, []string{"t_1_0", "t_1_1"}, got)

	got, err = complex.DoComplexSharding(targets, map[string]RouteValue{
		"user_id": &ListRouteValue{Column: "user_id", Values: []interface{}{int64(1)}},
	})
	assert.Nil(t, err)
	assert.Equal(t, targets, got)

	_, err = complex.DoComplexSharding(targets, map[string]RouteValue{
		"user_id": &RangeRouteValue{Column: "user_id", Range: Range{Lower: int64(1), HasLower: true}},
	})
	assert.NotNil(t, err)
}

func TestAlgorithmHintInline(t *testing.T) {
	algo, err := NewHintInline(map[string]string{"algorithm-expression": "t_order_${value % 2}"})
	assert.Nil(t, err)
	got, err := algo.(HintAlgorithm).DoHintSharding(nil, []interface{}{int64(1), int64(3), int64(2)})
	assert.Nil(t, err)
	assert.Equal(t, []string{"t_order_1", "t_order_0"}, got)

	algo, err = NewHintInline(nil)
	assert.Nil(t, err)
	got, err = algo.(HintAlgorithm).DoHintSharding(nil, []interface{}{"ds_1"})
	assert.Nil(t, err)
	assert.Equal(t, []string{"ds_1"}, got)
}

func TestRangeIntersect(t *testing.T) {
	a := Range{Lower: int64(1), HasLower: true, LowerInclusive: true}
	b := Range{Upper: int64(5), HasUpper: true}
	r, ok, err := a.Intersect(b)
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[1..5)", r.String())

	in, err := r.Contains(int64(5))
	assert.Nil(t, err)
	assert.False(t, in)
	in, err = r.Contains("3")
	assert.Nil(t, err)
	assert.True(t, in)

	c := Range{Lower: int64(5), HasLower: true, LowerInclusive: true}
	_, ok, err = r.Intersect(c)
	assert.Nil(t, err)
	assert.False(t, ok)

	_, err = CompareValues("abc", int64(1))
	assert.Equal(t, "router.values[abc,1].can.not.be.compared", err.Error())
	cmp, err := CompareValues("abc", "abd")
	assert.Nil(t, err)
	assert.Equal(t, -1, cmp)
}
