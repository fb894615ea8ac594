/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package merge

import (
	"sort"

	"github.com/radondb/xshard/config"
	"github.com/radondb/xshard/statement"

	"github.com/pkg/errors"
	querypb "github.com/xelabs/go-mysqlstack/sqlparser/depends/query"
	"github.com/xelabs/go-mysqlstack/sqlparser/depends/sqltypes"
)

func groupIndexes(fields []*querypb.Field, items []*statement.OrderItem) ([]int, error) {
	keys := make([]int, 0, len(items))
	for _, item := range items {
		idx, err := columnIndex(fields, item.Label, item.Position)
		if err != nil {
			return nil, err
		}
		keys = append(keys, idx)
	}
	return keys, nil
}

func visibleIndexes(n int) []int {
	keys := make([]int, n)
	for i := range keys {
		keys[i] = i
	}
	return keys
}

// NewGroupByMemoryMerged reads every unit row, folds the groups in order of
// first appearance, then filters by HAVING and sorts by ORDER BY.
// DISTINCT without GROUP BY groups on every visible column.
func NewGroupByMemoryMerged(results []QueryResult, sctx *statement.SelectContext, props *config.PropsConfig) (MergedResult, error) {
	fields := results[0].Fields()
	width := len(fields)
	visible := sctx.VisibleColumns(width)

	f, err := newFolder(fields, sctx, props)
	if err != nil {
		return nil, err
	}
	keys, err := groupIndexes(fields, sctx.GroupBy)
	if err != nil {
		return nil, err
	}
	if sctx.Distinct && len(sctx.GroupBy) == 0 {
		keys = visibleIndexes(visible)
	}
	havings, err := newHavings(fields, sctx.Having)
	if err != nil {
		return nil, err
	}

	var order []string
	groups := make(map[string]*group)
	total := 0
	for _, r := range results {
		for {
			ok, err := r.Next()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			total++
			if props.MaxResultRows > 0 && total > props.MaxResultRows {
				return nil, errors.Errorf("merge.result.rows.exceeds.max-result-rows[%d]", props.MaxResultRows)
			}
			row, err := readRow(r, width)
			if err != nil {
				return nil, err
			}
			key := groupKey(row, keys)
			if g, ok := groups[key]; ok {
				if err := f.fold(g, row); err != nil {
					return nil, err
				}
				continue
			}
			g, err := f.newGroup(row)
			if err != nil {
				return nil, err
			}
			groups[key] = g
			order = append(order, key)
		}
	}

	// Aggregations without GROUP BY yield one row even over no rows.
	if len(order) == 0 && len(sctx.GroupBy) == 0 && len(sctx.Aggregations) > 0 {
		g := &group{row: make([]sqltypes.Value, width), accs: make([]*accumulator, len(f.aggregators))}
		for i := range g.accs {
			g.accs[i] = &accumulator{integral: true}
		}
		groups[""] = g
		order = append(order, "")
	}

	rows := make([][]sqltypes.Value, 0, len(order))
	for _, key := range order {
		row := f.finish(groups[key])
		ok, err := matchHavings(row, havings)
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, row)
		}
	}

	if sctx.Distinct && len(sctx.GroupBy) > 0 {
		rows = distinctRows(rows, visibleIndexes(visible))
	}

	if len(sctx.OrderBy) > 0 {
		cmp, err := newComparator(fields, sctx.OrderBy, props.NullOrder)
		if err != nil {
			return nil, err
		}
		var sortErr error
		sort.SliceStable(rows, func(i, j int) bool {
			if sortErr != nil {
				return false
			}
			c, err := cmp.compare(rows[i], rows[j])
			if err != nil {
				sortErr = err
				return false
			}
			return c < 0
		})
		if sortErr != nil {
			return nil, sortErr
		}
	}

	for i := range rows {
		rows[i] = rows[i][:visible]
	}
	return newRowsResult(fields[:visible], rows, func() error { return closeAll(results) }), nil
}

func distinctRows(rows [][]sqltypes.Value, keys []int) [][]sqltypes.Value {
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0]
	for _, row := range rows {
		key := groupKey(row, keys)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return out
}

// GroupByStreamMerged folds a source sorted by the group keys one group at a time.
type GroupByStreamMerged struct {
	cursor
	source  MergedResult
	folder  *folder
	keys    []int
	fields  []*querypb.Field
	visible int

	started bool
	pending []sqltypes.Value
	current []sqltypes.Value
}

// NewGroupByStreamMerged creates the stream group by merge over a sorted source.
func NewGroupByStreamMerged(source MergedResult, sctx *statement.SelectContext, props *config.PropsConfig) (*GroupByStreamMerged, error) {
	fields := source.Fields()
	f, err := newFolder(fields, sctx, props)
	if err != nil {
		return nil, err
	}
	keys, err := groupIndexes(fields, sctx.GroupBy)
	if err != nil {
		return nil, err
	}
	return &GroupByStreamMerged{
		source:  source,
		folder:  f,
		keys:    keys,
		fields:  fields,
		visible: sctx.VisibleColumns(len(fields)),
	}, nil
}

func (m *GroupByStreamMerged) pull() ([]sqltypes.Value, error) {
	ok, err := m.source.Next()
	if err != nil || !ok {
		return nil, err
	}
	return readRow(m.source, len(m.fields))
}

// Fields implements QueryResult.
func (m *GroupByStreamMerged) Fields() []*querypb.Field {
	return m.fields[:m.visible]
}

// Next implements QueryResult.
func (m *GroupByStreamMerged) Next() (bool, error) {
	if m.state == stateExhausted {
		return false, nil
	}
	if !m.started {
		m.started = true
		row, err := m.pull()
		if err != nil {
			return m.advance(false, err)
		}
		m.pending = row
	}
	if m.pending == nil {
		return m.advance(false, nil)
	}
	g, err := m.folder.newGroup(m.pending)
	if err != nil {
		return m.advance(false, err)
	}
	key := groupKey(m.pending, m.keys)
	m.pending = nil
	for {
		row, err := m.pull()
		if err != nil {
			return m.advance(false, err)
		}
		if row == nil {
			break
		}
		if groupKey(row, m.keys) != key {
			m.pending = row
			break
		}
		if err := m.folder.fold(g, row); err != nil {
			return m.advance(false, err)
		}
	}
	m.current = m.folder.finish(g)
	return m.advance(true, nil)
}

// Value implements QueryResult.
func (m *GroupByStreamMerged) Value(column int) (sqltypes.Value, error) {
	if err := m.check(column, m.visible); err != nil {
		return sqltypes.NULL, err
	}
	return m.read(m.current[column]), nil
}

// Close implements QueryResult.
func (m *GroupByStreamMerged) Close() error {
	m.state = stateExhausted
	return m.source.Close()
}
