/*
 * Radon
 *
 * Copyright 2018-2019 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package keygen

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Generator produces values for a generated key column.
// Uniqueness across processes is the caller's concern.
type Generator interface {
	Type() string
	Generate() (interface{}, error)
}

// Constructor builds a generator from its props.
type Constructor func(props map[string]string) (Generator, error)

// Registry maps a generator type to its constructor.
type Registry struct {
	ctors map[string]Constructor
}

// NewRegistry creates a registry filled with the builtin generators.
func NewRegistry() *Registry {
	r := &Registry{ctors: make(map[string]Constructor)}
	r.Register(typeSnowflake, NewSnowflake)
	r.Register(typeUUID, NewUUID)
	r.Register(typeSequence, NewSequence)
	return r
}

// Register adds or replaces a constructor.
func (r *Registry) Register(typ string, ctor Constructor) {
	r.ctors[strings.ToUpper(typ)] = ctor
}

// Create builds a generator of the type.
func (r *Registry) Create(typ string, props map[string]string) (Generator, error) {
	ctor, ok := r.ctors[strings.ToUpper(typ)]
	if !ok {
		return nil, errors.Errorf("keygen.unsupported.type[%s]", typ)
	}
	return ctor(props)
}

const (
	typeSnowflake = "SNOWFLAKE"
	typeUUID      = "UUID"
	typeSequence  = "SEQUENCE"
)

// UUID generates random v4 uuid strings without dashes.
type UUID struct{}

// NewUUID creates the UUID generator.
func NewUUID(props map[string]string) (Generator, error) {
	return &UUID{}, nil
}

// Type returns the generator type.
func (g *UUID) Type() string {
	return typeUUID
}

// Generate returns a new key.
func (g *UUID) Generate() (interface{}, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}

// Sequence hands out increasing int64 keys starting at the creation time in nanoseconds.
type Sequence struct {
	mu  sync.Mutex
	seq int64
}

// NewSequence creates the sequence generator.
func NewSequence(props map[string]string) (Generator, error) {
	return &Sequence{seq: time.Now().UnixNano()}, nil
}

// Type returns the generator type.
func (g *Sequence) Type() string {
	return typeSequence
}

// Generate returns a new key.
func (g *Sequence) Generate() (interface{}, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return g.seq, nil
}
