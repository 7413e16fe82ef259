package msgpack

import (
	"bytes"
	"reflect"

	"github.com/cockroachdb/errors"
)

// Marshal packs value using the default context with no compatibility flags
// set, returning the encoded bytes.
func Marshal(value interface{}) ([]byte, error) {
	return MarshalContext(DefaultSerializationContext(), value, 0)
}

// MarshalContext packs value using ctx and the given compatibility flags.
func MarshalContext(ctx *SerializationContext, value interface{}, flags CompatibilityFlags) (out []byte, err error) {
	defer panicToErr(&err)

	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		var buf bytes.Buffer
		p := NewPacker(&buf, flags)
		if err := p.PackNil(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	ser, err := ctx.GetSerializerForType(rv.Type())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	p := NewPacker(&buf, flags)
	if err := ser.PackTo(p, rv); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal unpacks data into a new value of type T using the default
// context.
func Unmarshal[T any](data []byte) (result T, err error) {
	return UnmarshalContext[T](DefaultSerializationContext(), data)
}

// UnmarshalContext unpacks data into a new value of type T using ctx.
func UnmarshalContext[T any](ctx *SerializationContext, data []byte) (result T, err error) {
	defer panicToErr(&err)

	t := reflect.TypeOf((*T)(nil)).Elem()
	ser, err := ctx.GetSerializerForType(t)
	if err != nil {
		return result, err
	}
	u := NewUnpacker(bytes.NewReader(data))
	val, err := ser.UnpackFrom(u)
	if err != nil {
		return result, err
	}
	if !val.IsValid() {
		return result, nil
	}
	return val.Interface().(T), nil
}

// PackSingleObject packs one value with the default context, returning its
// encoded bytes (§6). It is equivalent to Marshal.
func PackSingleObject(value interface{}) ([]byte, error) {
	return Marshal(value)
}

// UnpackSingleObjectTo unpacks data into out, which must be a non-nil
// pointer, using the default context.
func UnpackSingleObjectTo(data []byte, out interface{}) (err error) {
	defer panicToErr(&err)

	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.Newf("msgpack: UnpackSingleObjectTo requires a non-nil pointer, got %T", out)
	}
	ctx := DefaultSerializationContext()
	ser, err := ctx.GetSerializerForType(rv.Type().Elem())
	if err != nil {
		return err
	}
	u := NewUnpacker(bytes.NewReader(data))
	val, err := ser.UnpackFrom(u)
	if err != nil {
		return err
	}
	if val.IsValid() {
		rv.Elem().Set(val)
	}
	return nil
}

// panicToErr recovers a panic from deep in the reflective path and converts
// it to a returned error at this public boundary (§7).
func panicToErr(err *error) {
	if r := recover(); r != nil {
		if e, ok := r.(error); ok {
			*err = errors.Wrapf(e, "msgpack: recovered from panic")
			return
		}
		*err = errors.Newf("msgpack: recovered from panic: %v", r)
	}
}
