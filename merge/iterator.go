/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package merge

import (
	querypb "github.com/xelabs/go-mysqlstack/sqlparser/depends/query"
	"github.com/xelabs/go-mysqlstack/sqlparser/depends/sqltypes"
)

// IteratorMerged yields the results one after the other, in unit order.
type IteratorMerged struct {
	cursor
	results []QueryResult
	current int
}

// NewIteratorMerged creates the iterator merge, results must not be empty.
func NewIteratorMerged(results []QueryResult) *IteratorMerged {
	return &IteratorMerged{results: results}
}

// Fields implements QueryResult.
func (m *IteratorMerged) Fields() []*querypb.Field {
	return m.results[0].Fields()
}

// Next implements QueryResult.
func (m *IteratorMerged) Next() (bool, error) {
	if m.state == stateExhausted {
		return false, nil
	}
	for m.current < len(m.results) {
		ok, err := m.results[m.current].Next()
		if err != nil {
			return m.advance(false, err)
		}
		if ok {
			return m.advance(true, nil)
		}
		m.current++
	}
	return m.advance(false, nil)
}

// Value implements QueryResult.
func (m *IteratorMerged) Value(column int) (sqltypes.Value, error) {
	if m.state != stateIterating {
		return sqltypes.NULL, errNoCurrentRow
	}
	v, err := m.results[m.current].Value(column)
	if err != nil {
		return sqltypes.NULL, err
	}
	return m.read(v), nil
}

// Close implements QueryResult.
func (m *IteratorMerged) Close() error {
	m.state = stateExhausted
	return closeAll(m.results)
}
