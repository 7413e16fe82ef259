package msgpack

import "reflect"

// Generator is the code-generation backend interface of §4.7. An external
// backend (this core ships none) implements TryCreate for the specific
// types it knows how to handle; the context tries registered generators in
// order before falling back to the reflective aggregate serializer of
// §4.4, which is always available since Go has no "runtime generation
// disabled" platform to fall back from.
type Generator interface {
	// TryCreate returns a Serializer for t and true if this generator
	// claims t, or (nil, false) to let the next generator (or the
	// reflective fallback) try. Calling TryCreate twice for the same t
	// must have no observable side effect beyond the returned value.
	TryCreate(t reflect.Type) (Serializer, bool)
}
