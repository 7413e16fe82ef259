package msgpack

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type memberTagStruct struct {
	Plain      string
	Renamed    string `msgpack:"renamed_name"`
	ArrayOnly  int    `msgpack:",array_index=5"`
	Prohibited bool   `msgpack:",nilimplication=prohibit"`
	Ignored    string `msgpack:"-"`
	unexported string
}

type embeddedOuter struct {
	embeddedInner
	Own string
}

type embeddedInner struct {
	Shared string
}

func TestGetMembersHonorsTagOptions(t *testing.T) {
	ms := getMembers(reflect.TypeOf(memberTagStruct{}))

	plain := ms.byWireName("Plain")
	require.NotNil(t, plain)
	require.Equal(t, NilImplicationDefault, plain.nilImpl)

	renamed := ms.byWireName("renamed_name")
	require.NotNil(t, renamed)

	require.Nil(t, ms.byWireName("Renamed"))
	require.Nil(t, ms.byWireName("Ignored"))
	require.Nil(t, ms.byWireName("unexported"))

	arrayOnly := ms.byWireName("ArrayOnly")
	require.NotNil(t, arrayOnly)
	require.Equal(t, 5, arrayOnly.arrayIndex)

	prohibited := ms.byWireName("Prohibited")
	require.NotNil(t, prohibited)
	require.Equal(t, NilImplicationProhibit, prohibited.nilImpl)
}

func TestGetMembersInlinesAnonymousFieldsWithoutTag(t *testing.T) {
	ms := getMembers(reflect.TypeOf(embeddedOuter{}))

	require.NotNil(t, ms.byWireName("Shared"))
	require.NotNil(t, ms.byWireName("Own"))
}

func TestMemberSetArrayOrderSortsByExplicitIndex(t *testing.T) {
	ms := getMembers(reflect.TypeOf(memberTagStruct{}))
	order := ms.arrayOrder()

	var positions []string
	for _, m := range order {
		positions = append(positions, m.wireName)
	}
	require.Contains(t, positions, "ArrayOnly")

	// ArrayOnly carries array_index=5, past the declaration positions of the
	// other three members, so it must sort to the end despite being declared
	// third.
	require.Equal(t, "ArrayOnly", positions[len(positions)-1])
}
