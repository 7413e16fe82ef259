package msgpack

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type fixedIntGenerator struct {
	target reflect.Type
	ser    Serializer
}

func (g *fixedIntGenerator) TryCreate(t reflect.Type) (Serializer, bool) {
	if t == g.target {
		return g.ser, true
	}
	return nil, false
}

func TestRegisteredGeneratorTakesPrecedenceOverReflectiveFallback(t *testing.T) {
	type genTarget struct {
		A int
	}

	always7 := newBaseSerializer(reflect.TypeOf(genTarget{}),
		func(p *Packer, v reflect.Value) error { return p.PackUint(7) },
		func(u *Unpacker) (reflect.Value, error) {
			if _, err := readUintToken(u); err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(genTarget{A: 7}), nil
		},
	)

	ctx := NewSerializationContext(DefaultContextOptions())
	ctx.RegisterGenerator(&fixedIntGenerator{target: reflect.TypeOf(genTarget{}), ser: always7})

	ser, err := ctx.GetSerializerForType(reflect.TypeOf(genTarget{}))
	require.NoError(t, err)

	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, ser.PackTo(p, reflect.ValueOf(genTarget{A: 1})))
	require.Equal(t, []byte{0x07}, buf.Bytes())
}
