package msgpack

import (
	"reflect"
)

// newIntSerializer builds a Serializer for any of Go's signed integer kinds.
func newIntSerializer(t reflect.Type) Serializer {
	return newBaseSerializer(t,
		func(p *Packer, v reflect.Value) error { return p.PackInt(v.Int()) },
		func(u *Unpacker) (reflect.Value, error) {
			i, err := readIntToken(u)
			if err != nil {
				return reflect.Value{}, err
			}
			rv := reflect.New(t).Elem()
			rv.SetInt(i)
			return rv, nil
		},
	)
}

// newUintSerializer builds a Serializer for any of Go's unsigned integer
// kinds.
func newUintSerializer(t reflect.Type) Serializer {
	return newBaseSerializer(t,
		func(p *Packer, v reflect.Value) error { return p.PackUint(v.Uint()) },
		func(u *Unpacker) (reflect.Value, error) {
			i, err := readUintToken(u)
			if err != nil {
				return reflect.Value{}, err
			}
			rv := reflect.New(t).Elem()
			rv.SetUint(i)
			return rv, nil
		},
	)
}

func readIntToken(u *Unpacker) (int64, error) {
	tok := u.LastReadData()
	switch tok.Kind {
	case KindInt:
		return tok.Int, nil
	case KindUint:
		return int64(tok.Uint), nil
	default:
		return 0, errTypeMismatchf("expected an integer token, got %v", tok.Kind)
	}
}

func readUintToken(u *Unpacker) (uint64, error) {
	tok := u.LastReadData()
	switch tok.Kind {
	case KindUint:
		return tok.Uint, nil
	case KindInt:
		if tok.Int < 0 {
			return 0, errTypeMismatchf("negative value %d cannot be read as unsigned", tok.Int)
		}
		return uint64(tok.Int), nil
	default:
		return 0, errTypeMismatchf("expected an integer token, got %v", tok.Kind)
	}
}

var boolSerializer = newBaseSerializer(reflect.TypeOf(false),
	func(p *Packer, v reflect.Value) error { return p.PackBool(v.Bool()) },
	func(u *Unpacker) (reflect.Value, error) {
		tok := u.LastReadData()
		if tok.Kind != KindBool {
			return reflect.Value{}, errTypeMismatchf("expected bool token, got %v", tok.Kind)
		}
		return reflect.ValueOf(tok.Bool), nil
	},
)

var float32Serializer = newBaseSerializer(reflect.TypeOf(float32(0)),
	func(p *Packer, v reflect.Value) error { return p.PackFloat32(float32(v.Float())) },
	func(u *Unpacker) (reflect.Value, error) {
		tok := u.LastReadData()
		switch tok.Kind {
		case KindFloat32:
			return reflect.ValueOf(tok.Float32), nil
		case KindFloat64:
			return reflect.ValueOf(float32(tok.Float64)), nil
		default:
			return reflect.Value{}, errTypeMismatchf("expected float token, got %v", tok.Kind)
		}
	},
)

var float64Serializer = newBaseSerializer(reflect.TypeOf(float64(0)),
	func(p *Packer, v reflect.Value) error { return p.PackFloat64(v.Float()) },
	func(u *Unpacker) (reflect.Value, error) {
		tok := u.LastReadData()
		switch tok.Kind {
		case KindFloat64:
			return reflect.ValueOf(tok.Float64), nil
		case KindFloat32:
			return reflect.ValueOf(float64(tok.Float32)), nil
		default:
			return reflect.Value{}, errTypeMismatchf("expected float token, got %v", tok.Kind)
		}
	},
)

var stringSerializer = newBaseSerializer(reflect.TypeOf(""),
	func(p *Packer, v reflect.Value) error { return p.PackString(v.String()) },
	func(u *Unpacker) (reflect.Value, error) {
		tok := u.LastReadData()
		switch tok.Kind {
		case KindString:
			s, err := tok.Str.GetString()
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(s), nil
		case KindBinary:
			return reflect.ValueOf(string(tok.Bin)), nil
		default:
			return reflect.Value{}, errTypeMismatchf("expected string token, got %v", tok.Kind)
		}
	},
)

var byteSliceType = reflect.TypeOf([]byte(nil))

var binarySerializer = newBaseSerializer(byteSliceType,
	func(p *Packer, v reflect.Value) error { return p.PackBinary(v.Bytes()) },
	func(u *Unpacker) (reflect.Value, error) {
		tok := u.LastReadData()
		switch tok.Kind {
		case KindBinary:
			return reflect.ValueOf(tok.Bin), nil
		case KindString:
			return reflect.ValueOf(tok.Str.GetBytes()), nil
		default:
			return reflect.Value{}, errTypeMismatchf("expected binary token, got %v", tok.Kind)
		}
	},
)

// objectValueSerializer serializes the dynamic Object type itself, per §4.6
// point 2 ("the message-pack dynamic value" is one of the built-in shapes
// the factory recognizes without reflection into user members).
var objectValueSerializer = newBaseSerializer(reflect.TypeOf(Object{}),
	func(p *Packer, v reflect.Value) error {
		obj := v.Interface().(Object)
		return obj.PackTo(p)
	},
	func(u *Unpacker) (reflect.Value, error) {
		obj, err := objectFromToken(u, u.LastReadData())
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(obj), nil
	},
)

func isBuiltinIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	default:
		return false
	}
}

func isBuiltinUintKind(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}
