/*
 * Radon
 *
 * Copyright 2018-2019 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package encrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Encryptor turns plain values into stored values and back.
// A nil value stays nil in both directions.
type Encryptor interface {
	Type() string
	Encrypt(plain interface{}) (interface{}, error)
	Decrypt(cipher interface{}) (interface{}, error)
}

// Constructor builds an encryptor from its props.
type Constructor func(props map[string]string) (Encryptor, error)

const (
	typeAES            = "AES"
	typeMD5            = "MD5"
	typeCharDigestLike = "CHAR_DIGEST_LIKE"
)

// Registry maps an encryptor type to its constructor.
type Registry struct {
	ctors map[string]Constructor
}

// NewRegistry creates a registry filled with the builtin encryptors.
func NewRegistry() *Registry {
	r := &Registry{ctors: make(map[string]Constructor)}
	r.Register(typeAES, NewAES)
	r.Register(typeMD5, NewMD5)
	r.Register(typeCharDigestLike, NewCharDigestLike)
	return r
}

// Register adds or replaces a constructor.
func (r *Registry) Register(typ string, ctor Constructor) {
	r.ctors[strings.ToUpper(typ)] = ctor
}

// Create builds an encryptor of the type.
func (r *Registry) Create(typ string, props map[string]string) (Encryptor, error) {
	ctor, ok := r.ctors[strings.ToUpper(typ)]
	if !ok {
		return nil, errors.Errorf("encrypt.unsupported.encryptor.type[%s]", typ)
	}
	return ctor(props)
}

func toString(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// AES encrypts with AES-128 in ECB mode, PKCS5 padding and base64 text.
// The key is the first 16 bytes of sha1(aes-key-value).
type AES struct {
	key []byte
}

// NewAES creates the AES encryptor, props: aes-key-value.
func NewAES(props map[string]string) (Encryptor, error) {
	value, ok := props["aes-key-value"]
	if !ok || value == "" {
		return nil, errors.New("encrypt.aes.aes-key-value.can.not.be.empty")
	}
	sum := sha1.Sum([]byte(value))
	return &AES{key: sum[:16]}, nil
}

// Type returns the encryptor type.
func (e *AES) Type() string {
	return typeAES
}

// Encrypt returns the base64 cipher text.
func (e *AES) Encrypt(plain interface{}) (interface{}, error) {
	if plain == nil {
		return nil, nil
	}
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	size := block.BlockSize()
	src := []byte(toString(plain))
	pad := size - len(src)%size
	src = append(src, bytes.Repeat([]byte{byte(pad)}, pad)...)
	dst := make([]byte, len(src))
	for i := 0; i < len(src); i += size {
		block.Encrypt(dst[i:i+size], src[i:i+size])
	}
	return base64.StdEncoding.EncodeToString(dst), nil
}

// Decrypt returns the plain text.
func (e *AES) Decrypt(cipher interface{}) (interface{}, error) {
	if cipher == nil {
		return nil, nil
	}
	src, err := base64.StdEncoding.DecodeString(toString(cipher))
	if err != nil {
		return nil, errors.Wrap(err, "encrypt.aes.decode")
	}
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	size := block.BlockSize()
	if len(src) == 0 || len(src)%size != 0 {
		return nil, errors.Errorf("encrypt.aes.cipher.length[%d].invalid", len(src))
	}
	dst := make([]byte, len(src))
	for i := 0; i < len(src); i += size {
		block.Decrypt(dst[i:i+size], src[i:i+size])
	}
	pad := int(dst[len(dst)-1])
	if pad == 0 || pad > size {
		return nil, errors.Errorf("encrypt.aes.padding[%d].invalid", pad)
	}
	return string(dst[:len(dst)-pad]), nil
}

// MD5 digests to lowercase hex, it can not be decrypted.
type MD5 struct{}

// NewMD5 creates the MD5 encryptor.
func NewMD5(props map[string]string) (Encryptor, error) {
	return &MD5{}, nil
}

// Type returns the encryptor type.
func (e *MD5) Type() string {
	return typeMD5
}

// Encrypt returns the hex digest.
func (e *MD5) Encrypt(plain interface{}) (interface{}, error) {
	if plain == nil {
		return nil, nil
	}
	sum := md5.Sum([]byte(toString(plain)))
	return hex.EncodeToString(sum[:]), nil
}

// Decrypt returns the digest unchanged.
func (e *MD5) Decrypt(cipher interface{}) (interface{}, error) {
	return cipher, nil
}

// CharDigestLike maps every character independently so that LIKE patterns
// on the plain text still match on the stored text. '%' and '_' are kept.
type CharDigestLike struct {
	delta int
	mask  int
	start int
}

// NewCharDigestLike creates the like encryptor, props: delta, mask, start.
func NewCharDigestLike(props map[string]string) (Encryptor, error) {
	e := &CharDigestLike{delta: 1, mask: 0x7fd, start: 0x4e00}
	for key, dst := range map[string]*int{"delta": &e.delta, "mask": &e.mask, "start": &e.start} {
		v, ok := props[key]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Errorf("encrypt.char-digest-like.%s[%s].invalid", key, v)
		}
		*dst = n
	}
	return e, nil
}

// Type returns the encryptor type.
func (e *CharDigestLike) Type() string {
	return typeCharDigestLike
}

// Encrypt returns the digested text.
func (e *CharDigestLike) Encrypt(plain interface{}) (interface{}, error) {
	if plain == nil {
		return nil, nil
	}
	var b strings.Builder
	for _, r := range toString(plain) {
		switch r {
		case '%', '_':
			b.WriteRune(r)
		default:
			b.WriteRune(rune(((int(r) + e.delta) & e.mask) + e.start))
		}
	}
	return b.String(), nil
}

// Decrypt returns the digest unchanged.
func (e *CharDigestLike) Decrypt(cipher interface{}) (interface{}, error) {
	return cipher, nil
}
