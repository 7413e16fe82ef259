package msgpack

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type valRecord struct {
	Val []byte
}

type outerRecord struct {
	Val   []byte `msgpack:",nilimplication=null"`
	Child *innerRecord
}

type innerRecord struct {
	Val []byte
}

type requiredRecord struct {
	Name string `msgpack:"name,nilimplication=prohibit"`
}

func newMapContext() *SerializationContext {
	return NewSerializationContext(DefaultContextOptions())
}

func newArrayContext() *SerializationContext {
	opts := DefaultContextOptions()
	opts.DefaultMethod = ArrayMethod
	return NewSerializationContext(opts)
}

func TestAggregateMapShapeRoundTrip(t *testing.T) {
	ctx := newMapContext()
	ser, err := ctx.GetSerializerForType(reflect.TypeOf(valRecord{}))
	require.NoError(t, err)

	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, ser.PackTo(p, reflect.ValueOf(valRecord{Val: []byte{0x41}})))
	require.Equal(t, []byte{0x81, 0xa3, 'V', 'a', 'l', 0xc4, 0x01, 0x41}, buf.Bytes())

	u := NewUnpacker(&buf)
	out, err := ser.UnpackFrom(u)
	require.NoError(t, err)
	require.Equal(t, valRecord{Val: []byte{0x41}}, out.Interface())
}

func TestAggregateMapShapeToleratesReorderedAndUnknownMembers(t *testing.T) {
	// Hand-assembled wire map with fields in reverse order plus one unknown key.
	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, p.PackMapHeader(2))
	require.NoError(t, p.PackString("extra"))
	require.NoError(t, p.PackUint(9))
	require.NoError(t, p.PackString("Val"))
	require.NoError(t, p.PackBinary([]byte{0x41}))

	ctx := newMapContext()
	ser, err := ctx.GetSerializerForType(reflect.TypeOf(valRecord{}))
	require.NoError(t, err)

	u := NewUnpacker(&buf)
	out, err := ser.UnpackFrom(u)
	require.NoError(t, err)
	require.Equal(t, valRecord{Val: []byte{0x41}}, out.Interface())
}

func TestAggregateArrayShapeRoundTrip(t *testing.T) {
	ctx := newArrayContext()
	ser, err := ctx.GetSerializerForType(reflect.TypeOf(valRecord{}))
	require.NoError(t, err)

	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, ser.PackTo(p, reflect.ValueOf(valRecord{Val: []byte{0x41}})))
	require.Equal(t, []byte{0x91, 0xc4, 0x01, 0x41}, buf.Bytes())
}

func TestAggregateArrayShapeClassicCompatibility(t *testing.T) {
	ctx := newArrayContext()
	ser, err := ctx.GetSerializerForType(reflect.TypeOf(valRecord{}))
	require.NoError(t, err)

	var buf bytes.Buffer
	p := NewPacker(&buf, PackBinaryAsRaw)
	require.NoError(t, ser.PackTo(p, reflect.ValueOf(valRecord{Val: []byte{0x41}})))
	require.Equal(t, []byte{0x91, 0xa1, 0x41}, buf.Bytes())
}

func TestAggregateArrayShapeToleratesShortStream(t *testing.T) {
	ctx := newArrayContext()
	ser, err := ctx.GetSerializerForType(reflect.TypeOf(outerRecord{}))
	require.NoError(t, err)

	// Wire carries only one of the two declared members.
	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, p.PackArrayHeader(1))
	require.NoError(t, p.PackBinary([]byte{0x41}))

	u := NewUnpacker(&buf)
	out, err := ser.UnpackFrom(u)
	require.NoError(t, err)
	rec := out.Interface().(outerRecord)
	require.Equal(t, []byte{0x41}, rec.Val)
	require.Nil(t, rec.Child)
}

func TestAggregateNestedPointerRoundTrip(t *testing.T) {
	ctx := newArrayContext()
	ser, err := ctx.GetSerializerForType(reflect.TypeOf(outerRecord{}))
	require.NoError(t, err)

	rec := outerRecord{Val: nil, Child: &innerRecord{Val: []byte{0x41}}}

	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, ser.PackTo(p, reflect.ValueOf(rec)))
	require.Equal(t, []byte{0x92, 0xc0, 0x91, 0xc4, 0x01, 0x41}, buf.Bytes())

	u := NewUnpacker(&buf)
	out, err := ser.UnpackFrom(u)
	require.NoError(t, err)
	got := out.Interface().(outerRecord)
	require.Nil(t, got.Val)
	require.NotNil(t, got.Child)
	require.Equal(t, []byte{0x41}, got.Child.Val)
}

func TestAggregateMissingRequiredMemberFails(t *testing.T) {
	ctx := newMapContext()
	ser, err := ctx.GetSerializerForType(reflect.TypeOf(requiredRecord{}))
	require.NoError(t, err)

	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, p.PackMapHeader(0))

	u := NewUnpacker(&buf)
	_, err = ser.UnpackFrom(u)
	require.ErrorIs(t, err, ErrMissingRequiredValue)
}

func TestAggregateExplicitNilMemberProhibitFailsMapShape(t *testing.T) {
	ctx := newMapContext()
	ser, err := ctx.GetSerializerForType(reflect.TypeOf(requiredRecord{}))
	require.NoError(t, err)

	// The member is present on the wire, but as an explicit nil rather than
	// missing entirely.
	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, p.PackMapHeader(1))
	require.NoError(t, p.PackString("name"))
	require.NoError(t, p.PackNil())

	u := NewUnpacker(&buf)
	_, err = ser.UnpackFrom(u)
	require.ErrorIs(t, err, ErrMissingRequiredValue)
}

func TestAggregateExplicitNilMemberProhibitFailsArrayShape(t *testing.T) {
	ctx := newArrayContext()
	ser, err := ctx.GetSerializerForType(reflect.TypeOf(requiredRecord{}))
	require.NoError(t, err)

	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, p.PackArrayHeader(1))
	require.NoError(t, p.PackNil())

	u := NewUnpacker(&buf)
	_, err = ser.UnpackFrom(u)
	require.ErrorIs(t, err, ErrMissingRequiredValue)
}

func TestAggregateExplicitNilMemberNullZeroesNullableField(t *testing.T) {
	ctx := newArrayContext()
	ser, err := ctx.GetSerializerForType(reflect.TypeOf(outerRecord{}))
	require.NoError(t, err)

	// Val is nilimplication=null and is []byte (admits null); Child also gets
	// an explicit nil and keeps its default policy. A wholly absent member is
	// covered by TestAggregateArrayShapeToleratesShortStream.
	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, p.PackArrayHeader(2))
	require.NoError(t, p.PackNil())
	require.NoError(t, p.PackNil())

	u := NewUnpacker(&buf)
	out, err := ser.UnpackFrom(u)
	require.NoError(t, err)
	rec := out.Interface().(outerRecord)
	require.Nil(t, rec.Val)
	require.Nil(t, rec.Child)
}

type nonNullableNullRecord struct {
	Count int `msgpack:"count,nilimplication=null"`
}

func TestAggregateNilImplicationNullOnNonNullableFieldFailsAtConstruction(t *testing.T) {
	ctx := newMapContext()
	_, err := ctx.GetSerializerForType(reflect.TypeOf(nonNullableNullRecord{}))
	require.ErrorIs(t, err, ErrValueCannotBeNull)
}
