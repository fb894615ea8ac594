/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package router

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// BoundaryRange splits the number line at ascending boundaries b1..bn into
// n+1 partitions: (-inf,b1) is suffix 0, [b1,b2) is suffix 1, [bn,+inf) is suffix n.
type BoundaryRange struct {
	typ        string
	boundaries []decimal.Decimal
}

// NewBoundaryRange creates the BOUNDARY_RANGE algorithm, props: sharding-ranges (comma separated).
func NewBoundaryRange(props map[string]string) (Algorithm, error) {
	text, err := requiredProp(AlgorithmBoundaryRange, props, "sharding-ranges")
	if err != nil {
		return nil, err
	}
	var bounds []decimal.Decimal
	for _, s := range strings.Split(text, ",") {
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return nil, errors.Errorf("router.algorithm[BOUNDARY_RANGE].sharding-ranges[%s].malformed", text)
		}
		bounds = append(bounds, d)
	}
	return newBoundaryRange(AlgorithmBoundaryRange, bounds)
}

// NewVolumeRange creates the VOLUME_RANGE algorithm, props: range-lower, range-upper, sharding-volume.
// It is a boundary range with boundaries lower, lower+volume, ..., up to upper.
func NewVolumeRange(props map[string]string) (Algorithm, error) {
	lower, err := intProp(AlgorithmVolumeRange, props, "range-lower")
	if err != nil {
		return nil, err
	}
	upper, err := intProp(AlgorithmVolumeRange, props, "range-upper")
	if err != nil {
		return nil, err
	}
	volume, err := intProp(AlgorithmVolumeRange, props, "sharding-volume")
	if err != nil {
		return nil, err
	}
	if volume <= 0 || upper <= lower {
		return nil, errors.Errorf("router.algorithm[VOLUME_RANGE].range[%d,%d].volume[%d].invalid", lower, upper, volume)
	}
	var bounds []decimal.Decimal
	for b := lower; b < upper; b += volume {
		bounds = append(bounds, decimal.NewFromInt(b))
	}
	bounds = append(bounds, decimal.NewFromInt(upper))
	return newBoundaryRange(AlgorithmVolumeRange, bounds)
}

func newBoundaryRange(typ string, bounds []decimal.Decimal) (*BoundaryRange, error) {
	for i := 1; i < len(bounds); i++ {
		if !bounds[i].GreaterThan(bounds[i-1]) {
			return nil, errors.Errorf("router.algorithm[%s].boundaries.must.be.ascending[%s>=%s]", typ, bounds[i-1], bounds[i])
		}
	}
	return &BoundaryRange{typ: typ, boundaries: bounds}, nil
}

// Type implements Algorithm.
func (a *BoundaryRange) Type() string {
	return a.typ
}

// partition returns the suffix of v.
func (a *BoundaryRange) partition(v decimal.Decimal) int64 {
	return int64(sort.Search(len(a.boundaries), func(i int) bool {
		return a.boundaries[i].GreaterThan(v)
	}))
}

// DoSharding implements StandardAlgorithm.
func (a *BoundaryRange) DoSharding(targets []string, column string, value interface{}) (string, error) {
	d, ok := ToDecimal(value)
	if !ok {
		return "", errors.Errorf("router.algorithm[%s].value[%v].not.number", a.typ, value)
	}
	return targetBySuffix(a.typ, targets, a.partition(d))
}

// DoRangeSharding implements StandardAlgorithm: every partition between the bounds' partitions.
func (a *BoundaryRange) DoRangeSharding(targets []string, column string, r Range) ([]string, error) {
	first, last := int64(0), int64(len(a.boundaries))
	if r.HasLower {
		d, ok := ToDecimal(r.Lower)
		if !ok {
			return nil, errors.Errorf("router.algorithm[%s].value[%v].not.number", a.typ, r.Lower)
		}
		first = a.partition(d)
	}
	if r.HasUpper {
		d, ok := ToDecimal(r.Upper)
		if !ok {
			return nil, errors.Errorf("router.algorithm[%s].value[%v].not.number", a.typ, r.Upper)
		}
		last = a.partition(d)
		// An exclusive upper bound sitting on a boundary does not reach that partition.
		if !r.UpperInclusive && last > 0 && a.boundaries[last-1].Equal(d) {
			last--
		}
	}
	set := make(map[int64]struct{})
	for p := first; p <= last; p++ {
		set[p] = struct{}{}
	}
	return targetsBySuffix(targets, set), nil
}
