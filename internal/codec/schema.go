package codec

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/domain"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
)

// Schema validates a decoded Value against a method's declared
// parameter/return shape (spec §4.1: "decoding validates against the
// method's declared parameter/return schema where available, otherwise
// returns the untyped structure").
type Schema func(domain.Value) error

// key identifies one method's schema slot, generalizing the original
// Python implementation's single TypeAdapter to "a schema registry keyed
// by (clientClass, methodName)" per SPEC_FULL's domain-stack note.
type key struct {
	clientClass string
	method      string
}

// Registry caches compiled schemas for repeated DriverCall/
// StreamingDriverCall dispatch, so the hot path doesn't re-resolve a
// method's schema on every call.
type Registry struct {
	cache *lru.Cache[key, Schema]
}

// NewRegistry builds a schema registry bounded to size entries.
func NewRegistry(size int) *Registry {
	cache, err := lru.New[key, Schema](size)
	if err != nil {
		// Only returns an error for size <= 0, which is a caller bug.
		panic(err)
	}
	return &Registry{cache: cache}
}

// Register installs the schema for (clientClass, method), overwriting any
// existing entry.
func (r *Registry) Register(clientClass, method string, s Schema) {
	r.cache.Add(key{clientClass, method}, s)
}

// Validate decodes and validates v against the registered schema for
// (clientClass, method). With no registered schema, v passes through
// untyped, per spec §4.1. A schema that rejects v surfaces as
// InvalidArgument.
func (r *Registry) Validate(clientClass, method string, v domain.Value) error {
	s, ok := r.cache.Get(key{clientClass, method})
	if !ok {
		return nil
	}
	if err := s(v); err != nil {
		return jerrors.Wrap(jerrors.InvalidArgument, "schema validation failed", err)
	}
	return nil
}
