package msgpack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "options.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadContextOptionsAppliesOverrides(t *testing.T) {
	path := writeTOML(t, `
method = "array"
enum_method = "name"
collection_item_nil = "prohibit"
map_key_nil = "null"
tuple_item_nil = "prohibit"
pack_binary_as_raw = true
`)

	opts, err := LoadContextOptions(path)
	require.NoError(t, err)
	require.Equal(t, ArrayMethod, opts.DefaultMethod)
	require.Equal(t, ByName, opts.DefaultEnumMethod)
	require.Equal(t, NilImplicationProhibit, opts.CollectionItemNilImpl)
	require.Equal(t, NilImplicationNull, opts.MapKeyNilImpl)
	require.Equal(t, NilImplicationProhibit, opts.TupleItemNilImpl)
	require.Equal(t, PackBinaryAsRaw, opts.Compatibility&PackBinaryAsRaw)
}

func TestLoadContextOptionsDefaultsOnEmptyFile(t *testing.T) {
	path := writeTOML(t, "")

	opts, err := LoadContextOptions(path)
	require.NoError(t, err)
	require.Equal(t, DefaultContextOptions().DefaultMethod, opts.DefaultMethod)
	require.Equal(t, DefaultContextOptions().DefaultEnumMethod, opts.DefaultEnumMethod)
}

func TestLoadContextOptionsRejectsUnknownValue(t *testing.T) {
	path := writeTOML(t, `method = "not-a-real-method"`)

	_, err := LoadContextOptions(path)
	require.Error(t, err)
}

func TestLoadContextOptionsMissingFileFails(t *testing.T) {
	_, err := LoadContextOptions(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
