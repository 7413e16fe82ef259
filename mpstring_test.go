package msgpack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessagePackStringFromBytesDecodesValidUTF8(t *testing.T) {
	m := NewMessagePackStringFromBytes([]byte("héllo"))
	s, err := m.GetString()
	require.NoError(t, err)
	require.Equal(t, "héllo", s)
	require.Equal(t, BinaryKindString, m.BinaryKind())
}

func TestMessagePackStringInvalidUTF8FallsBackToBlob(t *testing.T) {
	bad := []byte{0xa3, 0x01, 0xff, 0xfe}
	m := NewMessagePackStringFromBytes(bad)
	_, err := m.GetString()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrDecodingFailure)
	require.Equal(t, BinaryKindBlob, m.BinaryKind())
	require.Equal(t, bad, m.GetBytes())
}

func TestMessagePackStringFromTextEncodesLazily(t *testing.T) {
	m := NewMessagePackStringFromText("abc")
	require.Equal(t, []byte("abc"), m.GetBytes())
}

func TestMessagePackStringEqual(t *testing.T) {
	a := NewMessagePackStringFromText("same")
	b := NewMessagePackStringFromBytes([]byte("same"))
	require.True(t, a.Equal(b))

	badA := NewMessagePackStringFromBytes([]byte{0xff, 0xfe})
	badB := NewMessagePackStringFromBytes([]byte{0xff, 0xfe})
	require.True(t, badA.Equal(badB))

	badC := NewMessagePackStringFromBytes([]byte{0xff, 0xfd})
	require.False(t, badA.Equal(badC))
}

func TestMessagePackStringHashMatchesForEqualText(t *testing.T) {
	a := NewMessagePackStringFromText("hash-me")
	b := NewMessagePackStringFromBytes([]byte("hash-me"))
	require.Equal(t, a.Hash(), b.Hash())
}
