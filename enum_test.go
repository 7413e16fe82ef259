package msgpack

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type testColor int

const (
	testColorRed testColor = iota
	testColorGreen
	testColorBlue
)

func init() {
	RegisterEnum(reflect.TypeOf(testColor(0)), map[int64]string{
		int64(testColorRed):   "Red",
		int64(testColorGreen): "Green",
		int64(testColorBlue):  "Blue",
	})
}

func TestEnumPackByName(t *testing.T) {
	opts := DefaultContextOptions()
	opts.DefaultEnumMethod = ByName
	ctx := NewSerializationContext(opts)

	ser, err := GetSerializer[testColor](ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, ser.PackTo(p, reflect.ValueOf(testColorBlue)))
	require.Equal(t, []byte{0xa4, 'B', 'l', 'u', 'e'}, buf.Bytes())
}

func TestEnumPackByUnderlyingValue(t *testing.T) {
	ctx := NewSerializationContext(DefaultContextOptions())

	ser, err := GetSerializer[testColor](ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, ser.PackTo(p, reflect.ValueOf(testColorBlue)))
	require.Equal(t, []byte{0x02}, buf.Bytes())
}

func TestEnumUnpackAutoDetectsWireRepresentation(t *testing.T) {
	ctx := NewSerializationContext(DefaultContextOptions())
	ser, err := GetSerializer[testColor](ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, p.PackString("Green"))

	u := NewUnpacker(&buf)
	out, err := ser.UnpackFrom(u)
	require.NoError(t, err)
	require.Equal(t, testColorGreen, out.Interface())
}

func TestEnumUnknownNameFails(t *testing.T) {
	ctx := NewSerializationContext(DefaultContextOptions())
	ser, err := GetSerializer[testColor](ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, p.PackString("Purple"))

	u := NewUnpacker(&buf)
	_, err = ser.UnpackFrom(u)
	require.ErrorIs(t, err, ErrUnknownEnumMember)
}

func TestEnumMemberOverridePerField(t *testing.T) {
	type wrapper struct {
		C testColor `msgpack:"c,enum=name"`
	}
	ctx := NewSerializationContext(DefaultContextOptions()) // context default is ByUnderlyingValue

	ser, err := ctx.GetSerializerForType(reflect.TypeOf(wrapper{}))
	require.NoError(t, err)

	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, ser.PackTo(p, reflect.ValueOf(wrapper{C: testColorRed})))
	// Map header(1), key "c", then the member value packed ByName despite the
	// context default being ByUnderlyingValue.
	require.Equal(t, []byte{0x81, 0xa1, 'c', 0xa3, 'R', 'e', 'd'}, buf.Bytes())
}
