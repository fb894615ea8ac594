/*
 * Radon
 *
 * Copyright 2018-2019 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package rewrite

import (
	"github.com/radondb/xshard/encrypt"
	"github.com/radondb/xshard/statement"

	"github.com/pkg/errors"
)

// encryptColumn resolves the encrypted column a reference names: through its
// owner when qualified, otherwise in the first table that encrypts it.
func (e *Engine) encryptColumn(tables []*statement.TableSegment, c *statement.ColumnRef) (*encrypt.Column, bool) {
	if c.Owner != nil {
		t, ok := statement.FindTable(tables, c.Owner.Name)
		if !ok {
			return nil, false
		}
		return e.encrypt.Column(t.Name, c.Name)
	}
	for _, t := range tables {
		if col, ok := e.encrypt.Column(t.Name, c.Name); ok {
			return col, true
		}
	}
	return nil, false
}

// encryptAssignments expands one plain value to the cipher, assisted and like columns.
func encryptAssignments(col *encrypt.Column, plain interface{}) ([]*EncryptAssignment, error) {
	cipher, err := col.Encryptor.Encrypt(plain)
	if err != nil {
		return nil, errors.Wrapf(err, "rewrite.encrypt.column[%s]", col.Logic)
	}
	out := []*EncryptAssignment{{Column: col.Cipher, Value: cipher}}
	if col.Assisted != "" {
		v, err := col.AssistedEncryptor.Encrypt(plain)
		if err != nil {
			return nil, errors.Wrapf(err, "rewrite.encrypt.assisted.column[%s]", col.Logic)
		}
		out = append(out, &EncryptAssignment{Column: col.Assisted, Value: v})
	}
	if col.Like != "" {
		v, err := col.LikeEncryptor.Encrypt(plain)
		if err != nil {
			return nil, errors.Wrapf(err, "rewrite.encrypt.like.column[%s]", col.Logic)
		}
		out = append(out, &EncryptAssignment{Column: col.Like, Value: v})
	}
	return out, nil
}
