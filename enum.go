package msgpack

import (
	"reflect"
	"sync"
)

// EnumMethod selects how an enum-typed value is written to and read from
// the wire (§4.5).
type EnumMethod int

const (
	// ByUnderlyingValue packs the enum's underlying integer directly.
	ByUnderlyingValue EnumMethod = iota
	// ByName packs the enum's registered name as a MessagePack string.
	ByName
)

var (
	enumNamesMu sync.RWMutex
	enumNames   = map[reflect.Type]map[int64]string{}
	enumValues  = map[reflect.Type]map[string]int64{}
)

// RegisterEnum records the name table for an enum type T, keyed by its
// underlying integer value. Go has no native enum type; an enum here is
// modeled as any defined integer type paired with a name table the caller
// supplies once (§4.5).
func RegisterEnum(t reflect.Type, names map[int64]string) {
	byName := make(map[string]int64, len(names))
	for v, n := range names {
		byName[n] = v
	}
	enumNamesMu.Lock()
	defer enumNamesMu.Unlock()
	enumNames[t] = names
	enumValues[t] = byName
}

func lookupEnumName(t reflect.Type, v int64) (string, bool) {
	enumNamesMu.RLock()
	defer enumNamesMu.RUnlock()
	names, ok := enumNames[t]
	if !ok {
		return "", false
	}
	n, ok := names[v]
	return n, ok
}

func lookupEnumValue(t reflect.Type, name string) (int64, bool) {
	enumNamesMu.RLock()
	defer enumNamesMu.RUnlock()
	values, ok := enumValues[t]
	if !ok {
		return 0, false
	}
	v, ok := values[name]
	return v, ok
}

// enumSerializer is parameterized over an enum type and its underlying
// integer width, and holds a configured EnumMethod. On deserialization it
// auto-detects from the wire token regardless of the configured method: a
// string token is read ByName, an integer token ByUnderlyingValue (§4.5).
type enumSerializer struct {
	*baseSerializer
	method  EnumMethod
	signed  bool
}

func newEnumSerializer(t reflect.Type, method EnumMethod) *enumSerializer {
	signed := isBuiltinIntKind(t.Kind())
	s := &enumSerializer{method: method, signed: signed}
	s.baseSerializer = newBaseSerializer(t, s.packCore, s.unpackCore)
	return s
}

// withMethod returns a shallow clone configured with a different method,
// used for the per-member override described in §4.5: "the override lives
// in a shallow clone of the serializer; the original remains canonical in
// the repository."
func (s *enumSerializer) withMethod(method EnumMethod) *enumSerializer {
	clone := *s
	clone.method = method
	clone.baseSerializer = newBaseSerializer(s.typ, clone.packCore, clone.unpackCore)
	return &clone
}

func (s *enumSerializer) underlying(v reflect.Value) int64 {
	if s.signed {
		return v.Int()
	}
	return int64(v.Uint())
}

func (s *enumSerializer) setUnderlying(rv reflect.Value, v int64) {
	if s.signed {
		rv.SetInt(v)
	} else {
		rv.SetUint(uint64(v))
	}
}

func (s *enumSerializer) packCore(p *Packer, v reflect.Value) error {
	underlying := s.underlying(v)
	if s.method == ByName {
		name, ok := lookupEnumName(s.typ, underlying)
		if !ok {
			return errWrapUnknownEnumMember(s.typ, "<unnamed>")
		}
		return p.PackString(name)
	}
	if s.signed {
		return p.PackInt(underlying)
	}
	return p.PackUint(v.Uint())
}

func (s *enumSerializer) unpackCore(u *Unpacker) (reflect.Value, error) {
	tok := u.LastReadData()
	rv := reflect.New(s.typ).Elem()
	switch tok.Kind {
	case KindString:
		name, err := tok.Str.GetString()
		if err != nil {
			return reflect.Value{}, err
		}
		v, ok := lookupEnumValue(s.typ, name)
		if !ok {
			return reflect.Value{}, errWrapUnknownEnumMember(s.typ, name)
		}
		s.setUnderlying(rv, v)
		return rv, nil
	case KindInt:
		s.setUnderlying(rv, tok.Int)
		return rv, nil
	case KindUint:
		s.setUnderlying(rv, int64(tok.Uint))
		return rv, nil
	default:
		return reflect.Value{}, errWrapEnumUnderlyingMismatch(s.typ, tok.Kind)
	}
}

// isRegisteredEnum reports whether t has a name table, meaning the factory
// should treat it as an enum rather than a plain defined integer type.
func isRegisteredEnum(t reflect.Type) bool {
	enumNamesMu.RLock()
	defer enumNamesMu.RUnlock()
	_, ok := enumNames[t]
	return ok
}
