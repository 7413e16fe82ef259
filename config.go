package msgpack

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
)

// fileContextOptions is the TOML-shaped mirror of ContextOptions, for the
// one ambient caller that needs file-based config: generation-backend
// tooling that must agree with the core on defaults before it emits code
// (§6). The core's programmatic NewSerializationContext path never reads
// this file itself.
type fileContextOptions struct {
	Method            string `toml:"method"`
	EnumMethod        string `toml:"enum_method"`
	CollectionItemNil string `toml:"collection_item_nil"`
	MapKeyNil         string `toml:"map_key_nil"`
	TupleItemNil      string `toml:"tuple_item_nil"`
	PackBinaryAsRaw   bool   `toml:"pack_binary_as_raw"`
	PackRawCompatible bool   `toml:"pack_raw_compatible"`
}

// LoadContextOptions reads a ContextOptions from a TOML file at path.
func LoadContextOptions(path string) (*ContextOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "msgpack: read context options file %q", path)
	}

	var raw fileContextOptions
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, errors.Wrapf(err, "msgpack: parse context options file %q", path)
	}

	opts := DefaultContextOptions()

	switch raw.Method {
	case "", "map":
		opts.DefaultMethod = MapMethod
	case "array":
		opts.DefaultMethod = ArrayMethod
	default:
		return nil, errors.Newf("msgpack: unknown method %q in %s", raw.Method, path)
	}

	switch raw.EnumMethod {
	case "", "value":
		opts.DefaultEnumMethod = ByUnderlyingValue
	case "name":
		opts.DefaultEnumMethod = ByName
	default:
		return nil, errors.Newf("msgpack: unknown enum_method %q in %s", raw.EnumMethod, path)
	}

	nilImpl := func(field, val string, into *NilImplication) error {
		switch val {
		case "":
			return nil
		case "default":
			*into = NilImplicationDefault
		case "null":
			*into = NilImplicationNull
		case "prohibit":
			*into = NilImplicationProhibit
		default:
			return errors.Newf("msgpack: unknown %s %q in %s", field, val, path)
		}
		return nil
	}
	if err := nilImpl("collection_item_nil", raw.CollectionItemNil, &opts.CollectionItemNilImpl); err != nil {
		return nil, err
	}
	if err := nilImpl("map_key_nil", raw.MapKeyNil, &opts.MapKeyNilImpl); err != nil {
		return nil, err
	}
	if err := nilImpl("tuple_item_nil", raw.TupleItemNil, &opts.TupleItemNilImpl); err != nil {
		return nil, err
	}

	if raw.PackBinaryAsRaw {
		opts.Compatibility |= PackBinaryAsRaw
	}
	if raw.PackRawCompatible {
		opts.Compatibility |= PackRawCompatible
	}

	return &opts, nil
}
