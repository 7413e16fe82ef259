package msgpack

import "reflect"

// Tuple2 is a fixed-arity, heterogeneously-typed pair: the tuple shape named
// alongside collections and enums in §4.6's built-in-shape list. Go has no
// native tuple type; a generic struct with a fixed field count is the
// idiomatic stand-in, packed as an array with each field serialized through
// its own type's serializer rather than the reflective member-tag path.
type Tuple2[A, B any] struct {
	First  A
	Second B
}

func (Tuple2[A, B]) tupleArity() int { return 2 }

// Tuple3 is the three-element counterpart of Tuple2.
type Tuple3[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

func (Tuple3[A, B, C]) tupleArity() int { return 3 }

// tupleValue is implemented by every Tuple2/Tuple3 instantiation regardless
// of its type arguments, letting the factory recognize the tuple shape
// without matching on the generic instantiation's reflected name.
type tupleValue interface {
	tupleArity() int
}

var tupleValueType = reflect.TypeOf((*tupleValue)(nil)).Elem()

func isTupleType(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.Implements(tupleValueType)
}

// tupleSerializer packs and unpacks a Tuple2/Tuple3 as an array of its
// fields in declaration order, each field going through its own resolved
// serializer rather than a single homogeneous element serializer.
type tupleSerializer struct {
	*baseSerializer
	ctx      *SerializationContext
	elemSers []Serializer
}

func newTupleSerializer(ctx *SerializationContext, t reflect.Type, trace *buildTrace) (Serializer, error) {
	n := t.NumField()
	elemSers := make([]Serializer, n)
	for i := 0; i < n; i++ {
		ser, err := ctx.repo.resolve(t.Field(i).Type, trace)
		if err != nil {
			return nil, err
		}
		elemSers[i] = ser
	}
	s := &tupleSerializer{ctx: ctx, elemSers: elemSers}
	s.baseSerializer = newBaseSerializer(t, s.packCore, s.unpackCore)
	return s, nil
}

func (s *tupleSerializer) packCore(p *Packer, v reflect.Value) error {
	if err := p.PackArrayHeader(len(s.elemSers)); err != nil {
		return err
	}
	for i, ser := range s.elemSers {
		if err := ser.PackTo(p, v.Field(i)); err != nil {
			return err
		}
	}
	return nil
}

func (s *tupleSerializer) unpackCore(u *Unpacker) (reflect.Value, error) {
	tok := u.LastReadData()
	if tok.Kind != KindArray {
		return reflect.Value{}, errTypeMismatchf("expected array header for tuple %s, got %v", s.typ, tok.Kind)
	}
	if tok.Length != len(s.elemSers) {
		return reflect.Value{}, errTypeMismatchf("tuple %s expects %d elements, wire declared %d", s.typ, len(s.elemSers), tok.Length)
	}
	sub, err := u.ReadSubtree()
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(s.typ).Elem()
	for i, ser := range s.elemSers {
		val, err := unpackNilAwarePos(sub, ser, s.ctx.opts.TupleItemNilImpl, s.typ.Field(i).Type, "tuple element")
		if err != nil {
			sub.Close()
			return reflect.Value{}, err
		}
		out.Field(i).Set(val)
	}
	return out, sub.Close()
}
