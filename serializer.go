package msgpack

import "reflect"

// Serializer is the polymorphic per-type encode/decode contract every typed
// serializer implements (§4.3). Values are exchanged as reflect.Value so the
// same interface serves both compile-time-known callers (via the generic
// GetSerializer[T] helper) and the reflective object serializer's per-member
// dispatch.
type Serializer interface {
	// Type is the concrete Go type this serializer handles.
	Type() reflect.Type

	// AdmitsNull reports whether the target type accepts a wire nil in place
	// of a value (pointers, interfaces, slices, maps, and the dynamic Object
	// type). It is computed once at construction from Type().
	AdmitsNull() bool

	// PackTo writes value, which must be assignable to Type(). If value is
	// the nil of a nullable-kind type, it writes nil instead of delegating
	// to PackCore.
	PackTo(p *Packer, value reflect.Value) error

	// UnpackFrom reads one value. If the current token is nil and the type
	// admits null, it returns the zero Value for a nullable kind (a nil
	// pointer/interface/slice/map) instead of delegating to UnpackCore; if
	// the type does not admit null, it fails with ErrValueCannotBeNull.
	UnpackFrom(u *Unpacker) (reflect.Value, error)

	// UnpackInto populates an existing collection in place, preserving its
	// identity, for slice, map, and set types. It is a no-op if the wire value
	// is nil. It fails with ErrNotSupported for every other type, fixed-size
	// arrays included.
	UnpackInto(u *Unpacker, existing reflect.Value) error

	// PackCore and UnpackCore are the non-null-handling variants: PackCore
	// assumes value is present, UnpackCore assumes the current token is not
	// nil. Generated (or hand-written) serializers may call these directly
	// to skip the null check when they have already performed it.
	PackCore(p *Packer, value reflect.Value) error
	UnpackCore(u *Unpacker) (reflect.Value, error)
}

// admitsNull implements the "any non-value type... admits null" rule of §4.3
// for the Go type system: pointers, interfaces, slices, and maps carry a
// native nil, and the dynamic Object type represents nil as its zero value
// (KindNil); everything else (scalars, arrays, other non-pointer structs)
// does not.
func admitsNull(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
		return true
	default:
		return t == reflect.TypeOf(Object{})
	}
}

// baseSerializer implements the null-handling wrapper described in §4.3 on
// top of a core (PackCore/UnpackCore) pair, so each built-in and generated
// serializer only has to implement the core, non-null-aware operations.
type baseSerializer struct {
	typ    reflect.Type
	null   bool
	packFn func(p *Packer, value reflect.Value) error
	unpkFn func(u *Unpacker) (reflect.Value, error)
	intoFn func(u *Unpacker, existing reflect.Value) error
}

func newBaseSerializer(t reflect.Type, packFn func(*Packer, reflect.Value) error, unpkFn func(*Unpacker) (reflect.Value, error)) *baseSerializer {
	return &baseSerializer{typ: t, null: admitsNull(t), packFn: packFn, unpkFn: unpkFn}
}

func (b *baseSerializer) Type() reflect.Type { return b.typ }
func (b *baseSerializer) AdmitsNull() bool   { return b.null }

func (b *baseSerializer) PackCore(p *Packer, value reflect.Value) error {
	return b.packFn(p, value)
}

func (b *baseSerializer) UnpackCore(u *Unpacker) (reflect.Value, error) {
	return b.unpkFn(u)
}

func (b *baseSerializer) PackTo(p *Packer, value reflect.Value) error {
	if b.null && isNilValue(value) {
		return p.PackNil()
	}
	return b.PackCore(p, value)
}

func (b *baseSerializer) UnpackFrom(u *Unpacker) (reflect.Value, error) {
	ok, err := u.Read()
	if err != nil {
		return reflect.Value{}, err
	}
	if !ok {
		return reflect.Value{}, errEndOfStreamf("UnpackFrom %s: no value available", b.typ)
	}
	if u.LastReadData().Kind == KindNil {
		if b.null {
			return reflect.Zero(b.typ), nil
		}
		return reflect.Value{}, errWrapValueCannotBeNull(b.typ)
	}
	return b.UnpackCore(u)
}

func (b *baseSerializer) UnpackInto(u *Unpacker, existing reflect.Value) error {
	if b.intoFn == nil {
		return errWrapNotSupported(b.typ)
	}
	ok, err := u.Read()
	if err != nil {
		return err
	}
	if !ok {
		return errEndOfStreamf("UnpackInto %s: no value available", b.typ)
	}
	if u.LastReadData().Kind == KindNil {
		return nil
	}
	return b.intoFn(u, existing)
}

// resolveNilPolicy computes the value to substitute for a wire-nil entry
// governed by impl, for a freshly-produced value (a collection item, map
// key/value, or tuple element) rather than an existing struct field. what
// names the position for the missing-required-value error message.
func resolveNilPolicy(impl NilImplication, t reflect.Type, what string) (reflect.Value, error) {
	switch impl {
	case NilImplicationProhibit:
		return reflect.Value{}, errWrapMissingRequiredPos(what)
	case NilImplicationNull:
		if !admitsNull(t) {
			return reflect.Value{}, errWrapValueCannotBeNull(t)
		}
		return reflect.Zero(t), nil
	default:
		return reflect.Zero(t), nil
	}
}

// unpackNilAwarePos reads exactly one wire value at the current cursor
// position, routing an explicit wire nil through impl instead of ser's own
// null-admission (mirroring the aggregate serializer's per-member nil
// handling, but for a position with no pre-existing field to leave alone).
func unpackNilAwarePos(sub *Unpacker, ser Serializer, impl NilImplication, itemType reflect.Type, what string) (reflect.Value, error) {
	ok, err := sub.Read()
	if err != nil {
		return reflect.Value{}, err
	}
	if !ok {
		return reflect.Value{}, errEndOfStreamf("%s: no value available", what)
	}
	if sub.LastReadData().Kind == KindNil {
		return resolveNilPolicy(impl, itemType, what)
	}
	return ser.UnpackCore(sub)
}

func isNilValue(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}
