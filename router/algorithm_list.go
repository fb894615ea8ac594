/*
 * Radon
 *
 * Copyright 2018-2019 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package router

import (
	"strings"

	"github.com/pkg/errors"
)

// List maps enumerated values to targets, props lists: "ds_0:1,2;ds_1:3,4".
type List struct {
	targets []string
	values  map[string]string
}

// NewList creates the LIST algorithm.
func NewList(props map[string]string) (Algorithm, error) {
	text, err := requiredProp(AlgorithmList, props, "lists")
	if err != nil {
		return nil, err
	}
	l := &List{values: make(map[string]string)}
	for _, part := range strings.Split(text, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 || strings.TrimSpace(kv[0]) == "" {
			return nil, errors.Errorf("router.algorithm[LIST].lists[%s].malformed", part)
		}
		target := strings.TrimSpace(kv[0])
		l.targets = append(l.targets, target)
		for _, v := range strings.Split(kv[1], ",") {
			key := valueKey(strings.TrimSpace(v))
			if prev, ok := l.values[key]; ok {
				return nil, errors.Errorf("router.algorithm[LIST].value[%s].in.both[%s,%s]", strings.TrimSpace(v), prev, target)
			}
			l.values[key] = target
		}
	}
	return l, nil
}

// Type implements Algorithm.
func (l *List) Type() string {
	return AlgorithmList
}

// DoSharding implements StandardAlgorithm.
func (l *List) DoSharding(targets []string, column string, value interface{}) (string, error) {
	if target, ok := l.values[valueKey(value)]; ok {
		return target, nil
	}
	return "", errors.Errorf("router.algorithm[LIST].column[%s].value[%v].has.no.partition", column, value)
}

// DoRangeSharding implements StandardAlgorithm, list values are unordered so every target.
func (l *List) DoRangeSharding(targets []string, column string, r Range) ([]string, error) {
	return targets, nil
}
