/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package merge

import (
	"strings"

	"github.com/pkg/errors"
	querypb "github.com/xelabs/go-mysqlstack/sqlparser/depends/query"
	"github.com/xelabs/go-mysqlstack/sqlparser/depends/sqltypes"
)

// QueryResult is a forward-only cursor over the rows of one unit.
type QueryResult interface {
	Fields() []*querypb.Field
	// Next moves to the next row, false at the end.
	Next() (bool, error)
	// Value reads a column of the current row.
	Value(column int) (sqltypes.Value, error)
	// Close releases the cursor, later Next calls fail.
	Close() error
}

// MergedResult is the logic cursor over every unit result.
type MergedResult interface {
	QueryResult
	// WasNull reports whether the last Value read was NULL.
	WasNull() bool
}

type cursorState int

const (
	stateNotStarted cursorState = iota
	stateIterating
	stateExhausted
)

var (
	errNoCurrentRow = errors.New("merge.current.result.set.is.null")
	errClosed       = errors.New("merge.result.closed")
)

// cursor tracks the state machine shared by every merged result.
// Exhausted is final.
type cursor struct {
	state   cursorState
	wasNull bool
}

func (c *cursor) advance(ok bool, err error) (bool, error) {
	if err != nil || !ok {
		c.state = stateExhausted
		return false, err
	}
	c.state = stateIterating
	return true, nil
}

func (c *cursor) check(column, width int) error {
	if c.state != stateIterating {
		return errNoCurrentRow
	}
	if column < 0 || column >= width {
		return errors.Errorf("merge.column.index[%d].out.of.range[%d]", column, width)
	}
	return nil
}

func (c *cursor) read(v sqltypes.Value) sqltypes.Value {
	c.wasNull = v.IsNull()
	return v
}

// WasNull implements MergedResult.
func (c *cursor) WasNull() bool {
	return c.wasNull
}

// MemoryResult is a QueryResult over a materialized result.
type MemoryResult struct {
	result *sqltypes.Result
	row    int
	closed bool
}

// NewMemoryResult creates a cursor before the first row of rs.
func NewMemoryResult(rs *sqltypes.Result) *MemoryResult {
	if rs == nil {
		rs = &sqltypes.Result{}
	}
	return &MemoryResult{result: rs, row: -1}
}

// Fields implements QueryResult.
func (m *MemoryResult) Fields() []*querypb.Field {
	return m.result.Fields
}

// Next implements QueryResult.
func (m *MemoryResult) Next() (bool, error) {
	if m.closed {
		return false, errClosed
	}
	if m.row+1 >= len(m.result.Rows) {
		m.row = len(m.result.Rows)
		return false, nil
	}
	m.row++
	return true, nil
}

// Value implements QueryResult.
func (m *MemoryResult) Value(column int) (sqltypes.Value, error) {
	if m.closed {
		return sqltypes.NULL, errClosed
	}
	if m.row < 0 || m.row >= len(m.result.Rows) {
		return sqltypes.NULL, errNoCurrentRow
	}
	row := m.result.Rows[m.row]
	if column < 0 || column >= len(row) {
		return sqltypes.NULL, errors.Errorf("merge.column.index[%d].out.of.range[%d]", column, len(row))
	}
	return row[column], nil
}

// Close implements QueryResult.
func (m *MemoryResult) Close() error {
	m.closed = true
	return nil
}

// rowsResult is a MergedResult over rows the merge computed.
type rowsResult struct {
	cursor
	fields []*querypb.Field
	rows   [][]sqltypes.Value
	next   int
	closer func() error
}

func newRowsResult(fields []*querypb.Field, rows [][]sqltypes.Value, closer func() error) *rowsResult {
	return &rowsResult{fields: fields, rows: rows, closer: closer}
}

func (r *rowsResult) Fields() []*querypb.Field {
	return r.fields
}

func (r *rowsResult) Next() (bool, error) {
	if r.state == stateExhausted {
		return false, nil
	}
	ok := r.next < len(r.rows)
	r.next++
	return r.advance(ok, nil)
}

func (r *rowsResult) Value(column int) (sqltypes.Value, error) {
	if err := r.check(column, len(r.fields)); err != nil {
		return sqltypes.NULL, err
	}
	return r.read(r.rows[r.next-1][column]), nil
}

func (r *rowsResult) Close() error {
	r.state = stateExhausted
	if r.closer != nil {
		return r.closer()
	}
	return nil
}

// readRow copies the current row of r.
func readRow(r QueryResult, width int) ([]sqltypes.Value, error) {
	row := make([]sqltypes.Value, width)
	for i := range row {
		v, err := r.Value(i)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

// closeAll closes every result and keeps the first error.
func closeAll(results []QueryResult) error {
	var first error
	for _, r := range results {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// columnIndex finds a column by position when known, else by label.
func columnIndex(fields []*querypb.Field, label string, position int) (int, error) {
	if position >= 0 {
		if position >= len(fields) {
			return -1, errors.Errorf("merge.column[%s].position[%d].out.of.range[%d]", label, position, len(fields))
		}
		return position, nil
	}
	for i, f := range fields {
		if strings.EqualFold(f.Name, label) {
			return i, nil
		}
	}
	return -1, errors.Errorf("merge.column[%s].not.found", label)
}
