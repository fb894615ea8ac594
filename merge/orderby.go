/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package merge

import (
	"container/heap"

	"github.com/radondb/xshard/statement"

	querypb "github.com/xelabs/go-mysqlstack/sqlparser/depends/query"
	"github.com/xelabs/go-mysqlstack/sqlparser/depends/sqltypes"
)

// orderCursor is the current row of one unit result.
type orderCursor struct {
	result QueryResult
	row    []sqltypes.Value
	unit   int
}

// orderHeap is a min-heap of cursors, ties keep the unit order.
type orderHeap struct {
	cursors []*orderCursor
	cmp     *comparator
	err     error
}

func (h *orderHeap) Len() int { return len(h.cursors) }

func (h *orderHeap) Less(i, j int) bool {
	if h.err != nil {
		return false
	}
	c, err := h.cmp.compare(h.cursors[i].row, h.cursors[j].row)
	if err != nil {
		h.err = err
		return false
	}
	if c == 0 {
		return h.cursors[i].unit < h.cursors[j].unit
	}
	return c < 0
}

func (h *orderHeap) Swap(i, j int) { h.cursors[i], h.cursors[j] = h.cursors[j], h.cursors[i] }

func (h *orderHeap) Push(x interface{}) { h.cursors = append(h.cursors, x.(*orderCursor)) }

func (h *orderHeap) Pop() interface{} {
	n := len(h.cursors)
	c := h.cursors[n-1]
	h.cursors = h.cursors[:n-1]
	return c
}

// OrderByMerged merges unit results sorted by the same keys into one sorted stream.
type OrderByMerged struct {
	cursor
	results []QueryResult
	fields  []*querypb.Field
	heap    *orderHeap
	current []sqltypes.Value
	started bool
}

// NewOrderByMerged creates the order by merge, results must not be empty.
func NewOrderByMerged(results []QueryResult, items []*statement.OrderItem, nullOrder string) (*OrderByMerged, error) {
	fields := results[0].Fields()
	cmp, err := newComparator(fields, items, nullOrder)
	if err != nil {
		return nil, err
	}
	return &OrderByMerged{
		results: results,
		fields:  fields,
		heap:    &orderHeap{cmp: cmp},
	}, nil
}

// fill advances the unit result and pushes it back when it has a row.
func (m *OrderByMerged) fill(c *orderCursor) error {
	ok, err := c.result.Next()
	if err != nil || !ok {
		return err
	}
	if c.row, err = readRow(c.result, len(m.fields)); err != nil {
		return err
	}
	heap.Push(m.heap, c)
	return m.heap.err
}

func (m *OrderByMerged) init() error {
	m.started = true
	for i, r := range m.results {
		if err := m.fill(&orderCursor{result: r, unit: i}); err != nil {
			return err
		}
	}
	return nil
}

// Fields implements QueryResult.
func (m *OrderByMerged) Fields() []*querypb.Field {
	return m.fields
}

// Next implements QueryResult.
func (m *OrderByMerged) Next() (bool, error) {
	if m.state == stateExhausted {
		return false, nil
	}
	if !m.started {
		if err := m.init(); err != nil {
			return m.advance(false, err)
		}
	}
	if m.heap.Len() == 0 {
		return m.advance(false, nil)
	}
	c := heap.Pop(m.heap).(*orderCursor)
	if m.heap.err != nil {
		return m.advance(false, m.heap.err)
	}
	m.current = c.row
	if err := m.fill(&orderCursor{result: c.result, unit: c.unit}); err != nil {
		return m.advance(false, err)
	}
	return m.advance(true, nil)
}

// Value implements QueryResult.
func (m *OrderByMerged) Value(column int) (sqltypes.Value, error) {
	if err := m.check(column, len(m.fields)); err != nil {
		return sqltypes.NULL, err
	}
	return m.read(m.current[column]), nil
}

// Close implements QueryResult.
func (m *OrderByMerged) Close() error {
	m.state = stateExhausted
	return closeAll(m.results)
}
