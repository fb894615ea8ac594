/*
 * Radon
 *
 * Copyright 2018-2019 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package encrypt

import (
	"testing"

	"github.com/radondb/xshard/config"

	"github.com/stretchr/testify/assert"
	"github.com/xelabs/go-mysqlstack/xlog"
)

func TestEncryptAES(t *testing.T) {
	e, err := NewAES(map[string]string{"aes-key-value": "123456abc"})
	assert.Nil(t, err)

	for _, plain := range []interface{}{"", "test", "a plain text longer than one block", 42} {
		c, err := e.Encrypt(plain)
		assert.Nil(t, err)
		assert.NotEqual(t, plain, c)
		p, err := e.Decrypt(c)
		assert.Nil(t, err)
		assert.Equal(t, toString(plain), p)
	}

	{
		c, err := e.Encrypt(nil)
		assert.Nil(t, err)
		assert.Nil(t, c)
	}

	{
		_, err := e.Decrypt("!!!")
		assert.NotNil(t, err)
		_, err = e.Decrypt("YWJj")
		assert.Equal(t, "encrypt.aes.cipher.length[3].invalid", err.Error())
	}

	{
		_, err := NewAES(nil)
		assert.Equal(t, "encrypt.aes.aes-key-value.can.not.be.empty", err.Error())
	}
}

func TestEncryptMD5(t *testing.T) {
	e, _ := NewMD5(nil)
	c, err := e.Encrypt("test")
	assert.Nil(t, err)
	assert.Equal(t, "098f6bcd4621d373cade4e832627b4f6", c)
	p, _ := e.Decrypt(c)
	assert.Equal(t, c, p)
}

func TestEncryptCharDigestLike(t *testing.T) {
	e, err := NewCharDigestLike(nil)
	assert.Nil(t, err)

	full, _ := e.Encrypt("abc")
	prefix, _ := e.Encrypt("ab%")
	assert.Equal(t, []rune(full.(string))[:2], []rune(prefix.(string))[:2])
	assert.Equal(t, '%', []rune(prefix.(string))[2])

	{
		_, err := NewCharDigestLike(map[string]string{"delta": "x"})
		assert.Equal(t, "encrypt.char-digest-like.delta[x].invalid", err.Error())
	}
}

func TestEncryptRegistry(t *testing.T) {
	r := NewRegistry()
	{
		e, err := r.Create("md5", nil)
		assert.Nil(t, err)
		assert.Equal(t, "MD5", e.Type())
	}
	{
		_, err := r.Create("rc4", nil)
		assert.Equal(t, "encrypt.unsupported.encryptor.type[rc4]", err.Error())
	}
}

func TestEncryptRule(t *testing.T) {
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))

	rule, err := NewRule(log, config.MockEncryptConfig, NewRegistry())
	assert.Nil(t, err)
	assert.False(t, rule.Empty())

	col, ok := rule.Column("T_USER", "PWD")
	assert.True(t, ok)
	assert.Equal(t, "pwd_cipher", col.Cipher)
	assert.Equal(t, "pwd_assisted", col.Assisted)
	assert.Equal(t, "AES", col.Encryptor.Type())
	assert.Equal(t, "MD5", col.AssistedEncryptor.Type())
	assert.Nil(t, col.LikeEncryptor)

	tbl, _ := rule.Table("t_user")
	got, ok := tbl.CipherColumn("PWD_CIPHER")
	assert.True(t, ok)
	assert.Equal(t, col, got)

	_, ok = rule.Column("t_user", "name")
	assert.False(t, ok)
	_, ok = rule.Column("t_order", "pwd")
	assert.False(t, ok)

	{
		empty, err := NewRule(log, nil, NewRegistry())
		assert.Nil(t, err)
		assert.True(t, empty.Empty())
	}
}

func TestEncryptRuleErrors(t *testing.T) {
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))
	testCases := []struct {
		conf *config.EncryptConfig
		err  string
	}{
		{
			conf: &config.EncryptConfig{
				Encryptors: map[string]*config.AlgorithmConfig{"x": {Type: "rot13"}},
			},
			err: "encrypt.encryptor[x]: encrypt.unsupported.encryptor.type[rot13]",
		},
		{
			conf: &config.EncryptConfig{
				Tables: []*config.EncryptTableConfig{{Name: "t", Columns: []*config.EncryptColumnConfig{{Name: "c", Encryptor: "aes"}}}},
			},
			err: "encrypt.table[t].column[c].cipher.can.not.be.empty",
		},
		{
			conf: &config.EncryptConfig{
				Tables: []*config.EncryptTableConfig{{Name: "t", Columns: []*config.EncryptColumnConfig{{Name: "c", Cipher: "c1", Encryptor: "aes"}}}},
			},
			err: "encrypt.table[t].column[c].encryptor[aes].not.found",
		},
		{
			conf: &config.EncryptConfig{
				Encryptors: map[string]*config.AlgorithmConfig{"md5": {Type: "MD5"}},
				Tables:     []*config.EncryptTableConfig{{Name: "t", Columns: []*config.EncryptColumnConfig{{Name: "c", Cipher: "c1", Encryptor: "md5", LikeQuery: "c2"}}}},
			},
			err: "encrypt.table[t].column[c].like-encryptor.can.not.be.empty",
		},
	}
	for _, testCase := range testCases {
		_, err := NewRule(log, testCase.conf, NewRegistry())
		assert.NotNil(t, err)
		assert.Equal(t, testCase.err, err.Error())
	}
}
