/*
 * Radon
 *
 * Copyright 2018-2019 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package statement

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/radondb/xshard/xbase"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// Envelope carries a bound statement with its sql and params, it is the
// file format the command line reads. Exactly one statement field is set.
type Envelope struct {
	SQL    string        `json:"sql"`
	Params []interface{} `json:"params,omitempty"`

	Select *Select `json:"select,omitempty"`
	Insert *Insert `json:"insert,omitempty"`
	Update *Update `json:"update,omitempty"`
	Delete *Delete `json:"delete,omitempty"`
	DDL    *DDL    `json:"ddl,omitempty"`
	DAL    *DAL    `json:"dal,omitempty"`
}

// Statement returns the single statement carried.
func (e *Envelope) Statement() (Statement, error) {
	var stmts []Statement
	if e.Select != nil {
		stmts = append(stmts, e.Select)
	}
	if e.Insert != nil {
		stmts = append(stmts, e.Insert)
	}
	if e.Update != nil {
		stmts = append(stmts, e.Update)
	}
	if e.Delete != nil {
		stmts = append(stmts, e.Delete)
	}
	if e.DDL != nil {
		stmts = append(stmts, e.DDL)
	}
	if e.DAL != nil {
		stmts = append(stmts, e.DAL)
	}
	if len(stmts) != 1 {
		return nil, errors.Errorf("statement.envelope.expects.one.statement.but.got[%d]", len(stmts))
	}
	return stmts[0], nil
}

// ReadEnvelope decodes a json (or yaml) envelope.
// Numbers become int64 when integral, float64 otherwise.
func ReadEnvelope(data []byte, isYAML bool) (*Envelope, error) {
	if isYAML {
		var err error
		if data, err = yaml.YAMLToJSON(data); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	env := &Envelope{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(env); err != nil {
		return nil, errors.WithStack(err)
	}
	stmt, err := env.Statement()
	if err != nil {
		return nil, err
	}
	for i, p := range env.Params {
		env.Params[i] = fromNumber(p)
	}
	for _, e := range Exprs(stmt) {
		e.Value = fromNumber(e.Value)
	}
	if len(env.SQL) == 0 {
		return nil, errors.New("statement.envelope.sql.can.not.be.empty")
	}
	return env, nil
}

// LoadEnvelope reads an envelope file, yaml is chosen by extension.
func LoadEnvelope(path string) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return ReadEnvelope(data, xbase.IsYAML(path))
}

func fromNumber(v interface{}) interface{} {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
