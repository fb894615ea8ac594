/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package backend

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	querypb "github.com/xelabs/go-mysqlstack/sqlparser/depends/query"
	"github.com/xelabs/go-mysqlstack/sqlparser/depends/sqltypes"
)

var (
	errClosed       = errors.New("backend.rows.closed")
	errNoCurrentRow = errors.New("backend.rows.no.current.row")
)

// fieldType maps a driver column type name to the wire type, unknown names
// are NULL_TYPE and take the type of their first value.
func fieldType(name string) querypb.Type {
	name = strings.ToUpper(name)
	switch {
	case name == "":
		return querypb.Type_NULL_TYPE
	case strings.Contains(name, "INT"):
		return querypb.Type_INT64
	case strings.Contains(name, "FLOAT"), strings.Contains(name, "DOUBLE"), name == "REAL":
		return querypb.Type_FLOAT64
	case strings.Contains(name, "DECIMAL"), strings.Contains(name, "NUMERIC"):
		return querypb.Type_DECIMAL
	case name == "DATE":
		return querypb.Type_DATE
	case strings.Contains(name, "DATETIME"), strings.Contains(name, "TIMESTAMP"):
		return querypb.Type_DATETIME
	case strings.Contains(name, "BLOB"), strings.Contains(name, "BINARY"), name == "BYTEA":
		return querypb.Type_VARBINARY
	}
	return querypb.Type_VARCHAR
}

// toValue converts a scanned driver value. Numbers keep their own type,
// text takes the column type when the column is numeric or temporal.
func toValue(typ querypb.Type, v interface{}) sqltypes.Value {
	switch x := v.(type) {
	case nil:
		return sqltypes.NULL
	case int64:
		return sqltypes.MakeTrusted(querypb.Type_INT64, strconv.AppendInt(nil, x, 10))
	case float64:
		return sqltypes.MakeTrusted(querypb.Type_FLOAT64, strconv.AppendFloat(nil, x, 'g', -1, 64))
	case bool:
		if x {
			return sqltypes.MakeTrusted(querypb.Type_INT64, []byte("1"))
		}
		return sqltypes.MakeTrusted(querypb.Type_INT64, []byte("0"))
	case time.Time:
		return sqltypes.MakeTrusted(querypb.Type_DATETIME, []byte(x.Format("2006-01-02 15:04:05.999999")))
	case []byte:
		raw := make([]byte, len(x))
		copy(raw, x)
		return sqltypes.MakeTrusted(textType(typ), raw)
	case string:
		return sqltypes.MakeTrusted(textType(typ), []byte(x))
	}
	return sqltypes.MakeTrusted(querypb.Type_VARCHAR, []byte(fmt.Sprint(v)))
}

func textType(typ querypb.Type) querypb.Type {
	if typ == querypb.Type_NULL_TYPE {
		return querypb.Type_VARCHAR
	}
	return typ
}

// Rows is a forward-only cursor over a data source result. Closing it
// releases the connection and makes later calls fail.
type Rows struct {
	rows    *sql.Rows
	fields  []*querypb.Field
	current []sqltypes.Value
	scan    []interface{}
	closed  bool
	onClose func(err error)
}

func newRows(rows *sql.Rows, onClose func(err error)) (*Rows, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, errors.WithStack(err)
	}
	r := &Rows{rows: rows, onClose: onClose}
	for _, ct := range types {
		r.fields = append(r.fields, &querypb.Field{Name: ct.Name(), Type: fieldType(ct.DatabaseTypeName())})
	}
	return r, nil
}

// Fields returns the columns.
func (r *Rows) Fields() []*querypb.Field {
	return r.fields
}

// Next moves to the next row.
func (r *Rows) Next() (bool, error) {
	if r.closed {
		return false, errClosed
	}
	r.current = nil
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return false, errors.WithStack(err)
		}
		return false, nil
	}
	if r.scan == nil {
		r.scan = make([]interface{}, len(r.fields))
	}
	raw := make([]interface{}, len(r.fields))
	for i := range raw {
		r.scan[i] = &raw[i]
	}
	if err := r.rows.Scan(r.scan...); err != nil {
		return false, errors.WithStack(err)
	}
	r.current = make([]sqltypes.Value, len(raw))
	for i, v := range raw {
		f := r.fields[i]
		r.current[i] = toValue(f.Type, v)
		if f.Type == querypb.Type_NULL_TYPE && v != nil {
			f.Type = r.current[i].Type()
		}
	}
	return true, nil
}

// Value reads a column of the current row.
func (r *Rows) Value(column int) (sqltypes.Value, error) {
	if r.closed {
		return sqltypes.NULL, errClosed
	}
	if r.current == nil {
		return sqltypes.NULL, errNoCurrentRow
	}
	if column < 0 || column >= len(r.current) {
		return sqltypes.NULL, errors.Errorf("backend.rows.column.index[%d].out.of.range[%d]", column, len(r.current))
	}
	return r.current[column], nil
}

// Close releases the rows, it is safe to call twice.
func (r *Rows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.current = nil
	err := r.rows.Close()
	if r.onClose != nil {
		r.onClose(err)
	}
	return errors.WithStack(err)
}
