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

	"github.com/radondb/xshard/encrypt"

	"github.com/pkg/errors"
	querypb "github.com/xelabs/go-mysqlstack/sqlparser/depends/query"
	"github.com/xelabs/go-mysqlstack/sqlparser/depends/sqltypes"
)

// PaginationMerged skips offset rows then yields at most rowCount rows.
// A negative rowCount is unbounded.
type PaginationMerged struct {
	source   MergedResult
	offset   int64
	rowCount int64
	skipped  bool
	returned int64
	done     bool
}

// NewPaginationMerged creates the pagination decorator, a negative offset is 0.
func NewPaginationMerged(source MergedResult, offset, rowCount int64) *PaginationMerged {
	if offset < 0 {
		offset = 0
	}
	return &PaginationMerged{source: source, offset: offset, rowCount: rowCount}
}

// Fields implements QueryResult.
func (m *PaginationMerged) Fields() []*querypb.Field {
	return m.source.Fields()
}

// Next implements QueryResult.
func (m *PaginationMerged) Next() (bool, error) {
	if m.done {
		return false, nil
	}
	if !m.skipped {
		m.skipped = true
		for i := int64(0); i < m.offset; i++ {
			ok, err := m.source.Next()
			if err != nil || !ok {
				m.done = true
				return false, err
			}
		}
	}
	if m.rowCount >= 0 && m.returned >= m.rowCount {
		m.done = true
		return false, nil
	}
	ok, err := m.source.Next()
	if err != nil || !ok {
		m.done = true
		return false, err
	}
	m.returned++
	return true, nil
}

// Value implements QueryResult.
func (m *PaginationMerged) Value(column int) (sqltypes.Value, error) {
	if m.done || !m.skipped {
		return sqltypes.NULL, errNoCurrentRow
	}
	return m.source.Value(column)
}

// WasNull implements MergedResult.
func (m *PaginationMerged) WasNull() bool {
	return m.source.WasNull()
}

// Close implements QueryResult.
func (m *PaginationMerged) Close() error {
	m.done = true
	return m.source.Close()
}

// ProjectionMerged hides the trailing derived columns.
type ProjectionMerged struct {
	source  MergedResult
	visible int
}

// NewProjectionMerged keeps the first visible columns of source.
func NewProjectionMerged(source MergedResult, visible int) *ProjectionMerged {
	return &ProjectionMerged{source: source, visible: visible}
}

// Fields implements QueryResult.
func (m *ProjectionMerged) Fields() []*querypb.Field {
	fields := m.source.Fields()
	if m.visible < len(fields) {
		return fields[:m.visible]
	}
	return fields
}

// Next implements QueryResult.
func (m *ProjectionMerged) Next() (bool, error) {
	return m.source.Next()
}

// Value implements QueryResult.
func (m *ProjectionMerged) Value(column int) (sqltypes.Value, error) {
	if column >= m.visible {
		return sqltypes.NULL, errors.Errorf("merge.column.index[%d].out.of.range[%d]", column, m.visible)
	}
	return m.source.Value(column)
}

// WasNull implements MergedResult.
func (m *ProjectionMerged) WasNull() bool {
	return m.source.WasNull()
}

// Close implements QueryResult.
func (m *ProjectionMerged) Close() error {
	return m.source.Close()
}

// DecryptMerged decrypts the columns stored encrypted.
type DecryptMerged struct {
	source     MergedResult
	encryptors map[int]encrypt.Encryptor
	wasNull    bool
}

// NewDecryptMerged decrypts the columns labeled in columns, keyed by lower case label.
func NewDecryptMerged(source MergedResult, columns map[string]encrypt.Encryptor) *DecryptMerged {
	m := &DecryptMerged{source: source, encryptors: make(map[int]encrypt.Encryptor)}
	for i, f := range source.Fields() {
		if e, ok := columns[strings.ToLower(f.Name)]; ok {
			m.encryptors[i] = e
		}
	}
	return m
}

// Fields implements QueryResult.
func (m *DecryptMerged) Fields() []*querypb.Field {
	return m.source.Fields()
}

// Next implements QueryResult.
func (m *DecryptMerged) Next() (bool, error) {
	return m.source.Next()
}

// Value implements QueryResult.
func (m *DecryptMerged) Value(column int) (sqltypes.Value, error) {
	m.wasNull = true
	v, err := m.source.Value(column)
	if err != nil {
		return sqltypes.NULL, err
	}
	e, ok := m.encryptors[column]
	if !ok || v.IsNull() {
		m.wasNull = m.source.WasNull()
		return v, nil
	}
	plain, err := e.Decrypt(v.ToString())
	if err != nil {
		return sqltypes.NULL, errors.Wrapf(err, "merge.decrypt.column[%d]", column)
	}
	if plain == nil {
		return sqltypes.NULL, nil
	}
	out, err := sqltypes.BuildValue(plain)
	if err != nil {
		return sqltypes.NULL, err
	}
	m.wasNull = out.IsNull()
	return out, nil
}

// WasNull implements MergedResult.
func (m *DecryptMerged) WasNull() bool {
	return m.wasNull
}

// Close implements QueryResult.
func (m *DecryptMerged) Close() error {
	return m.source.Close()
}
