package msgpack

// Kind classifies a MessagePack value by the wire-level family it was read
// as (or is destined to be written as). It doubles as the origin tag: a
// value read from a uint8 token keeps KindUint, never silently becoming
// KindInt, so a subsequent pack reproduces a value of the same sign family
// (PackUint/PackInt themselves always choose the narrowest width for a given
// numeric value, so no separate width tag is needed to satisfy the
// narrowest-encoding round-trip property).
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindUint
	KindInt
	KindFloat32
	KindFloat64
	KindString
	KindBinary
	KindArray
	KindMap
	KindExtension
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindUint:
		return "uint"
	case KindInt:
		return "int"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindExtension:
		return "extension"
	default:
		return "unknown"
	}
}

// KV is one key/value pair of a dynamic map value. Order is preserved as
// read off the wire; MessagePack maps are not required to be sorted.
type KV struct {
	Key   Object
	Value Object
}

// Object is a dynamic, self-describing MessagePack value for callers who do
// not know the wire schema statically. It is the fully materialized
// counterpart to Token (§ Unpacker): where a Token only ever describes the
// value or header currently under the cursor, an Object recursively holds an
// entire container's contents.
type Object struct {
	Kind Kind

	Bool    bool
	Uint    uint64
	Int     int64
	Float32 float32
	Float64 float64

	// Str is populated for KindString and is backed by MessagePackString so
	// that a raw payload that fails strict UTF-8 decoding is preserved rather
	// than lost (§4.2). Bin holds the plain byte payload for KindBinary.
	Str *MessagePackString
	Bin []byte

	Array []Object
	Map   []KV

	ExtType int8
	ExtData []byte
}

// IsNil reports whether the object is the nil value.
func (o Object) IsNil() bool { return o.Kind == KindNil }

// ReadObject pulls one complete value (recursively, for containers) from u
// and returns it as a dynamic Object tree.
func ReadObject(u *Unpacker) (Object, error) {
	ok, err := u.Read()
	if err != nil {
		return Object{}, err
	}
	if !ok {
		return Object{}, errEndOfStreamf("ReadObject: no value available")
	}
	return objectFromToken(u, u.LastReadData())
}

func objectFromToken(u *Unpacker, t Token) (Object, error) {
	switch t.Kind {
	case KindNil:
		return Object{Kind: KindNil}, nil
	case KindBool:
		return Object{Kind: KindBool, Bool: t.Bool}, nil
	case KindUint:
		return Object{Kind: KindUint, Uint: t.Uint}, nil
	case KindInt:
		return Object{Kind: KindInt, Int: t.Int}, nil
	case KindFloat32:
		return Object{Kind: KindFloat32, Float32: t.Float32}, nil
	case KindFloat64:
		return Object{Kind: KindFloat64, Float64: t.Float64}, nil
	case KindString:
		return Object{Kind: KindString, Str: t.Str}, nil
	case KindBinary:
		return Object{Kind: KindBinary, Bin: t.Bin}, nil
	case KindExtension:
		return Object{Kind: KindExtension, ExtType: t.ExtType, ExtData: t.ExtData}, nil
	case KindArray:
		sub, err := u.ReadSubtree()
		if err != nil {
			return Object{}, err
		}
		defer sub.Close()
		items := make([]Object, 0, t.Length)
		for i := 0; i < t.Length; i++ {
			ok, err := sub.MoveToNextEntry()
			if err != nil {
				return Object{}, err
			}
			if !ok {
				break
			}
			item, err := objectFromToken(sub, sub.LastReadData())
			if err != nil {
				return Object{}, err
			}
			items = append(items, item)
		}
		return Object{Kind: KindArray, Array: items}, sub.Close()
	case KindMap:
		sub, err := u.ReadSubtree()
		if err != nil {
			return Object{}, err
		}
		defer sub.Close()
		entries := make([]KV, 0, t.Length)
		for i := 0; i < t.Length; i++ {
			ok, err := sub.MoveToNextEntry()
			if err != nil {
				return Object{}, err
			}
			if !ok {
				break
			}
			key, err := objectFromToken(sub, sub.LastReadData())
			if err != nil {
				return Object{}, err
			}
			ok, err = sub.MoveToNextEntry()
			if err != nil {
				return Object{}, err
			}
			if !ok {
				break
			}
			val, err := objectFromToken(sub, sub.LastReadData())
			if err != nil {
				return Object{}, err
			}
			entries = append(entries, KV{Key: key, Value: val})
		}
		return Object{Kind: KindMap, Map: entries}, sub.Close()
	default:
		return Object{}, errInvalidStreamf("ReadObject: unhandled kind %v", t.Kind)
	}
}

// PackTo writes the object back to p, preserving its origin kind so the
// narrowest-encoding property holds for a pack-then-unpack round trip.
func (o Object) PackTo(p *Packer) error {
	switch o.Kind {
	case KindNil:
		return p.PackNil()
	case KindBool:
		return p.PackBool(o.Bool)
	case KindUint:
		return p.PackUint(o.Uint)
	case KindInt:
		return p.PackInt(o.Int)
	case KindFloat32:
		return p.PackFloat32(o.Float32)
	case KindFloat64:
		return p.PackFloat64(o.Float64)
	case KindString:
		// The str family never validates UTF-8 on the wire, so a string
		// origin is re-packed as a string even when decoding its text
		// failed: falling back to PackBinary here would change the kind
		// on a round trip.
		return p.PackString(string(o.Str.GetBytes()))
	case KindBinary:
		return p.PackBinary(o.Bin)
	case KindExtension:
		return p.PackExtension(o.ExtType, o.ExtData)
	case KindArray:
		if err := p.PackArrayHeader(len(o.Array)); err != nil {
			return err
		}
		for _, item := range o.Array {
			if err := item.PackTo(p); err != nil {
				return err
			}
		}
		return nil
	case KindMap:
		if err := p.PackMapHeader(len(o.Map)); err != nil {
			return err
		}
		for _, kv := range o.Map {
			if err := kv.Key.PackTo(p); err != nil {
				return err
			}
			if err := kv.Value.PackTo(p); err != nil {
				return err
			}
		}
		return nil
	default:
		return errInvalidStreamf("PackTo: unhandled kind %v", o.Kind)
	}
}
