package msgpack

import (
	"reflect"
	"sync/atomic"
)

// ContextOptions configures a SerializationContext: default wire shape,
// default enum method, per-position nil-implication defaults, and the
// classic-compatibility wire dialect switch (§6, §4.4, §4.5).
type ContextOptions struct {
	DefaultMethod         SerializationMethod
	DefaultEnumMethod     EnumMethod
	CollectionItemNilImpl NilImplication
	MapKeyNilImpl         NilImplication
	TupleItemNilImpl      NilImplication

	// Compatibility records the wire dialect flags. The context does not
	// apply them itself: a Packer takes its flags from NewPacker, and
	// MarshalContext from its flags argument.
	Compatibility CompatibilityFlags

	// DefaultConcreteTypes maps an interface type to the concrete
	// collection type the repository should build when asked to resolve a
	// serializer for that interface (build-protocol step 3, §4.6).
	DefaultConcreteTypes map[reflect.Type]reflect.Type
}

// DefaultContextOptions returns the library's baked-in defaults: map shape,
// enum by underlying value, collection items and tuple items default to
// Null, map keys default to Prohibit (§4.4).
func DefaultContextOptions() ContextOptions {
	return ContextOptions{
		DefaultMethod:         MapMethod,
		DefaultEnumMethod:     ByUnderlyingValue,
		CollectionItemNilImpl: NilImplicationNull,
		MapKeyNilImpl:         NilImplicationProhibit,
		TupleItemNilImpl:      NilImplicationNull,
		DefaultConcreteTypes:  map[reflect.Type]reflect.Type{},
	}
}

// SerializationContext holds the repository, compatibility options, and
// build-time defaults described in §3. It is safe for concurrent reads
// (concurrent GetSerializerForType calls); mutating opts concurrently with
// in-flight serialization is the caller's responsibility to avoid (§5).
type SerializationContext struct {
	opts       ContextOptions
	repo       *SerializerRepository
	generators []Generator
}

// NewSerializationContext constructs a fresh context with its own
// serializer repository.
func NewSerializationContext(opts ContextOptions) *SerializationContext {
	if opts.DefaultConcreteTypes == nil {
		opts.DefaultConcreteTypes = map[reflect.Type]reflect.Type{}
	}
	ctx := &SerializationContext{opts: opts}
	ctx.repo = newSerializerRepository(ctx)
	return ctx
}

// Options returns the context's current configuration.
func (c *SerializationContext) Options() ContextOptions { return c.opts }

// RegisterGenerator adds a code-generation backend (§4.7). Generators are
// tried in registration order before the built-in reflective fallback.
func (c *SerializationContext) RegisterGenerator(g Generator) {
	c.generators = append(c.generators, g)
}

// GetSerializerForType resolves (building and memoizing on first use) the
// Serializer for t, per the get_serializer<T> protocol of §4.6.
func (c *SerializationContext) GetSerializerForType(t reflect.Type) (Serializer, error) {
	return c.repo.getSerializer(t)
}

// GetSerializer resolves the Serializer for T.
func GetSerializer[T any](c *SerializationContext) (Serializer, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return c.GetSerializerForType(t)
}

var defaultCtx atomic.Pointer[SerializationContext]

func init() {
	defaultCtx.Store(NewSerializationContext(DefaultContextOptions()))
}

// DefaultSerializationContext returns the process-wide default context.
func DefaultSerializationContext() *SerializationContext {
	return defaultCtx.Load()
}

// SetDefaultSerializationContext atomically replaces the process-wide
// default context.
func SetDefaultSerializationContext(c *SerializationContext) {
	defaultCtx.Store(c)
}
