/*
 * Radon
 *
 * Copyright 2018-2019 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package encrypt

import (
	"strings"

	"github.com/radondb/xshard/config"

	"github.com/pkg/errors"
	"github.com/xelabs/go-mysqlstack/xlog"
)

// Column is a logic column stored encrypted.
type Column struct {
	Logic    string
	Cipher   string
	Assisted string
	Like     string

	Encryptor         Encryptor
	AssistedEncryptor Encryptor
	LikeEncryptor     Encryptor
}

// Table holds the encrypted columns of one logic table.
type Table struct {
	Name    string
	Columns []*Column
	byName  map[string]*Column
}

// Column returns the encrypted column by logic name.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.byName[strings.ToLower(name)]
	return c, ok
}

// CipherColumn returns the column stored in the cipher column name.
func (t *Table) CipherColumn(cipher string) (*Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Cipher, cipher) {
			return c, true
		}
	}
	return nil, false
}

// Rule is the compiled encrypt config, read only after NewRule.
type Rule struct {
	log    *xlog.Log
	tables map[string]*Table
}

// NewRule compiles the config, a nil conf gives an empty rule.
func NewRule(log *xlog.Log, conf *config.EncryptConfig, registry *Registry) (*Rule, error) {
	r := &Rule{log: log, tables: make(map[string]*Table)}
	if conf == nil {
		return r, nil
	}

	encryptors := make(map[string]Encryptor, len(conf.Encryptors))
	for name, ec := range conf.Encryptors {
		e, err := registry.Create(ec.Type, ec.Props)
		if err != nil {
			return nil, errors.Wrapf(err, "encrypt.encryptor[%s]", name)
		}
		encryptors[name] = e
	}
	lookup := func(table, column, name string) (Encryptor, error) {
		if name == "" {
			return nil, nil
		}
		e, ok := encryptors[name]
		if !ok {
			return nil, errors.Errorf("encrypt.table[%s].column[%s].encryptor[%s].not.found", table, column, name)
		}
		return e, nil
	}

	for _, tc := range conf.Tables {
		tbl := &Table{Name: tc.Name, byName: make(map[string]*Column)}
		for _, cc := range tc.Columns {
			if cc.Cipher == "" {
				return nil, errors.Errorf("encrypt.table[%s].column[%s].cipher.can.not.be.empty", tc.Name, cc.Name)
			}
			if cc.Encryptor == "" {
				return nil, errors.Errorf("encrypt.table[%s].column[%s].encryptor.can.not.be.empty", tc.Name, cc.Name)
			}
			col := &Column{Logic: cc.Name, Cipher: cc.Cipher, Assisted: cc.AssistedQuery, Like: cc.LikeQuery}
			var err error
			if col.Encryptor, err = lookup(tc.Name, cc.Name, cc.Encryptor); err != nil {
				return nil, err
			}
			if col.AssistedEncryptor, err = lookup(tc.Name, cc.Name, cc.AssistedEncryptor); err != nil {
				return nil, err
			}
			if col.LikeEncryptor, err = lookup(tc.Name, cc.Name, cc.LikeEncryptor); err != nil {
				return nil, err
			}
			if col.Assisted != "" && col.AssistedEncryptor == nil {
				return nil, errors.Errorf("encrypt.table[%s].column[%s].assisted-encryptor.can.not.be.empty", tc.Name, cc.Name)
			}
			if col.Like != "" && col.LikeEncryptor == nil {
				return nil, errors.Errorf("encrypt.table[%s].column[%s].like-encryptor.can.not.be.empty", tc.Name, cc.Name)
			}
			tbl.Columns = append(tbl.Columns, col)
			tbl.byName[strings.ToLower(cc.Name)] = col
		}
		r.tables[strings.ToLower(tc.Name)] = tbl
	}
	log.Info("encrypt.rule.tables[%d]", len(r.tables))
	return r, nil
}

// Table returns the encrypt table by logic name.
func (r *Rule) Table(name string) (*Table, bool) {
	t, ok := r.tables[strings.ToLower(name)]
	return t, ok
}

// Column returns the encrypted column of the table.
func (r *Rule) Column(table, column string) (*Column, bool) {
	t, ok := r.Table(table)
	if !ok {
		return nil, false
	}
	return t.Column(column)
}

// Empty reports whether no table is encrypted.
func (r *Rule) Empty() bool {
	return len(r.tables) == 0
}
