/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package rewrite

import (
	"sort"

	"github.com/radondb/xshard/router"

	"github.com/pkg/errors"
)

// Token is a span [Start, Stop) of the logic sql replaced when a unit is rendered.
// Zero width tokens insert text.
type Token interface {
	Start() int
	Stop() int
}

type span struct {
	start int
	stop  int
}

// Start implements Token.
func (s span) Start() int { return s.start }

// Stop implements Token.
func (s span) Stop() int { return s.stop }

// TableToken renders the actual table of a logic table name or of a column owner naming it.
type TableToken struct {
	span
	Table string
	Quote string
}

// IndexToken renders an index name suffixed with its actual table: idx_t_order_0.
type IndexToken struct {
	span
	Name  string
	Quote string
	// Table is the logic table of the index, empty when the unit holds one table.
	Table string
}

// InsertColumnsToken renders the complete column list of an INSERT.
type InsertColumnsToken struct {
	span
	Columns []string
	// Synthesized is set when the statement had no column list.
	Synthesized bool
}

// InsertValue is one value of a rendered INSERT row.
type InsertValue struct {
	// Text is the original literal text.
	Text string
	// Param is set for an original marker, bound to params[ParamIndex].
	Param      bool
	ParamIndex int
	// Derived values come from the rewrite: generated keys and ciphers.
	Derived bool
	Value   interface{}
}

// InsertRowValues is one row and the data nodes it routes to.
type InsertRowValues struct {
	Values []*InsertValue
	// UsesParams is set when the row has markers, derived values are then bound too.
	UsesParams bool
	// Nodes is empty when the row goes to every unit.
	Nodes []router.DataNode
}

// InsertValuesToken renders the rows routed to the unit.
type InsertValuesToken struct {
	span
	Table string
	Rows  []*InsertRowValues
}

// DerivedColumn is a projection appended for the merge.
type DerivedColumn struct {
	// Owner is the logic table qualifying Expr, rendered as the actual table.
	Owner      string
	OwnerQuote string
	Expr       string
	// Aggregation wraps Expr, such as COUNT for the AVG pieces.
	Aggregation string
	Alias       string
}

// ItemsToken appends derived projections after the select list.
type ItemsToken struct {
	span
	Items []*DerivedColumn
}

// OffsetToken renders the LIMIT offset of a unit.
type OffsetToken struct {
	span
	Value      int64
	Param      bool
	ParamIndex int
}

// RowCountToken renders the LIMIT row count of a unit.
type RowCountToken struct {
	span
	Value      int64
	Param      bool
	ParamIndex int
}

// RemoveToken drops its span, the markers inside are not bound.
type RemoveToken struct {
	span
}

// EncryptColumnToken renders a column name as its cipher, assisted or like column.
type EncryptColumnToken struct {
	span
	Column string
	Quote  string
	// Alias keeps the logic name as the result label of a projection.
	Alias string
}

// EncryptValueToken renders an encrypted predicate value.
type EncryptValueToken struct {
	span
	Value interface{}
	// Param binds Value to a marker instead of a literal.
	Param bool
}

// EncryptAssignment is one `column = value` of a rewritten SET.
type EncryptAssignment struct {
	Column string
	Value  interface{}
}

// EncryptAssignmentToken renders a SET assignment as its cipher, assisted and like assignments.
type EncryptAssignmentToken struct {
	span
	Assignments []*EncryptAssignment
	Param       bool
	Quote       string
}

// sortTokens orders by Start, inserts before replacements at the same
// offset, and rejects overlaps.
func sortTokens(tokens []Token) error {
	sort.SliceStable(tokens, func(i, j int) bool {
		if tokens[i].Start() != tokens[j].Start() {
			return tokens[i].Start() < tokens[j].Start()
		}
		return tokens[i].Stop() < tokens[j].Stop()
	})
	for i := 1; i < len(tokens); i++ {
		prev, cur := tokens[i-1], tokens[i]
		if prev.Stop() > cur.Start() {
			return errors.Errorf("rewrite.tokens[%T@%d-%d,%T@%d-%d].overlap", prev, prev.Start(), prev.Stop(), cur, cur.Start(), cur.Stop())
		}
	}
	return nil
}
