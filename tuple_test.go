package msgpack

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTuple2RoundTrip(t *testing.T) {
	ctx := NewSerializationContext(DefaultContextOptions())
	ser, err := GetSerializer[Tuple2[int, string]](ctx)
	require.NoError(t, err)

	in := Tuple2[int, string]{First: 7, Second: "hi"}
	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, ser.PackTo(p, reflect.ValueOf(in)))
	require.Equal(t, []byte{0x92, 0x07, 0xa2, 'h', 'i'}, buf.Bytes())

	u := NewUnpacker(&buf)
	out, err := ser.UnpackFrom(u)
	require.NoError(t, err)
	require.Equal(t, in, out.Interface())
}

func TestTuple3RoundTrip(t *testing.T) {
	ctx := NewSerializationContext(DefaultContextOptions())
	ser, err := GetSerializer[Tuple3[int, bool, string]](ctx)
	require.NoError(t, err)

	in := Tuple3[int, bool, string]{First: 1, Second: true, Third: "z"}
	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, ser.PackTo(p, reflect.ValueOf(in)))

	u := NewUnpacker(&buf)
	out, err := ser.UnpackFrom(u)
	require.NoError(t, err)
	require.Equal(t, in, out.Interface())
}

func TestTupleWireArityMismatchFails(t *testing.T) {
	ctx := NewSerializationContext(DefaultContextOptions())
	ser, err := GetSerializer[Tuple2[int, int]](ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, p.PackArrayHeader(3))
	require.NoError(t, p.PackInt(1))
	require.NoError(t, p.PackInt(2))
	require.NoError(t, p.PackInt(3))

	u := NewUnpacker(&buf)
	_, err = ser.UnpackFrom(u)
	require.Error(t, err)
}

func TestTupleWireNilElementUsesTupleItemNilImpl(t *testing.T) {
	ctx := NewSerializationContext(DefaultContextOptions())
	ser, err := GetSerializer[Tuple2[*int, string]](ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, p.PackArrayHeader(2))
	require.NoError(t, p.PackNil())
	require.NoError(t, p.PackString("ok"))

	u := NewUnpacker(&buf)
	out, err := ser.UnpackFrom(u)
	require.NoError(t, err)
	got := out.Interface().(Tuple2[*int, string])
	require.Nil(t, got.First)
	require.Equal(t, "ok", got.Second)
}

func TestTupleWireNilElementProhibitedFails(t *testing.T) {
	opts := DefaultContextOptions()
	opts.TupleItemNilImpl = NilImplicationProhibit
	ctx := NewSerializationContext(opts)
	ser, err := GetSerializer[Tuple2[int, int]](ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, p.PackArrayHeader(2))
	require.NoError(t, p.PackNil())
	require.NoError(t, p.PackInt(1))

	u := NewUnpacker(&buf)
	_, err = ser.UnpackFrom(u)
	require.ErrorIs(t, err, ErrMissingRequiredValue)
}
