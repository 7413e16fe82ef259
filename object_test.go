package msgpack

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectRoundTripPreservesInvalidUTF8StringKind(t *testing.T) {
	// str8 header, length 2, invalid UTF-8 payload.
	raw := []byte{0xd9, 0x02, 0xff, 0xfe}

	obj, err := ReadObject(NewUnpacker(bytes.NewReader(raw)))
	require.NoError(t, err)
	require.Equal(t, KindString, obj.Kind)
	require.Equal(t, BinaryKindBlob, obj.Str.BinaryKind())

	var buf bytes.Buffer
	require.NoError(t, obj.PackTo(NewPacker(&buf, 0)))
	require.Equal(t, raw, buf.Bytes())

	again, err := ReadObject(NewUnpacker(bytes.NewReader(buf.Bytes())))
	require.NoError(t, err)
	require.Equal(t, KindString, again.Kind)
}

func TestObjectRoundTripArrayAndMap(t *testing.T) {
	var buf bytes.Buffer
	p := NewPacker(&buf, 0)
	require.NoError(t, p.PackMapHeader(1))
	require.NoError(t, p.PackString("k"))
	require.NoError(t, p.PackArrayHeader(2))
	require.NoError(t, p.PackInt(1))
	require.NoError(t, p.PackInt(2))

	obj, err := ReadObject(NewUnpacker(&buf))
	require.NoError(t, err)
	require.Equal(t, KindMap, obj.Kind)
	require.Len(t, obj.Map, 1)
	require.Equal(t, KindArray, obj.Map[0].Value.Kind)
	require.Len(t, obj.Map[0].Value.Array, 2)

	var out bytes.Buffer
	require.NoError(t, obj.PackTo(NewPacker(&out, 0)))

	roundTripped, err := ReadObject(NewUnpacker(&out))
	require.NoError(t, err)
	require.Equal(t, obj, roundTripped)
}
