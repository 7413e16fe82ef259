package msgpack

import (
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

// SerializationMethod selects the wire shape for an aggregate type, §4.4.
type SerializationMethod int

const (
	// MapMethod packs a map header keyed by member name (the default).
	MapMethod SerializationMethod = iota
	// ArrayMethod packs an array header, members in declared index order.
	ArrayMethod
)

// aggregateSerializer is the reflective object serializer of §4.4: it packs
// and unpacks an arbitrary struct type by walking its discovered members.
// Each member's serializer is resolved once, eagerly, at construction time
// (not lazily per Pack/Unpack call) so that a self-referential member type
// genuinely exercises the build protocol's re-entrant delegating-serializer
// path of §4.6 rather than quietly deferring the cycle past construction.
type aggregateSerializer struct {
	*baseSerializer
	ctx        *SerializationContext
	ms         *memberSet
	method     SerializationMethod
	memberSers map[*member]Serializer
}

func newAggregateSerializer(ctx *SerializationContext, t reflect.Type, method SerializationMethod, trace *buildTrace) (*aggregateSerializer, error) {
	if t.Kind() != reflect.Struct {
		return nil, errWrapAbstractType(t)
	}
	s := &aggregateSerializer{ctx: ctx, ms: getMembers(t), method: method, memberSers: map[*member]Serializer{}}
	for _, m := range s.ms.members {
		fieldType := t.FieldByIndex(m.index).Type
		if m.nilImpl == NilImplicationNull && !admitsNull(fieldType) {
			return nil, errors.Wrapf(errWrapValueCannotBeNull(fieldType), "member %q: nilimplication=null on a non-nullable value type", m.wireName)
		}
		ser, err := ctx.repo.resolve(fieldType, trace)
		if err != nil {
			return nil, err
		}
		if m.hasEnumMethod {
			if es, ok := ser.(*enumSerializer); ok {
				ser = es.withMethod(m.enumMethod)
			}
		}
		s.memberSers[m] = ser
	}
	s.baseSerializer = newBaseSerializer(t, s.packCore, s.unpackCore)
	return s, nil
}

func (s *aggregateSerializer) packCore(p *Packer, v reflect.Value) error {
	if s.method == ArrayMethod {
		return s.packArray(p, v)
	}
	return s.packMap(p, v)
}

func (s *aggregateSerializer) packMap(p *Packer, v reflect.Value) error {
	if err := p.PackMapHeader(len(s.ms.members)); err != nil {
		return err
	}
	for _, m := range s.ms.members {
		if err := p.PackString(m.wireName); err != nil {
			return err
		}
		fv := m.field(v)
		if err := s.memberSers[m].PackTo(p, fv); err != nil {
			return err
		}
	}
	return nil
}

func (s *aggregateSerializer) packArray(p *Packer, v reflect.Value) error {
	order := s.ms.arrayOrder()
	if err := p.PackArrayHeader(len(order)); err != nil {
		return err
	}
	for _, m := range order {
		fv := m.field(v)
		if err := s.memberSers[m].PackTo(p, fv); err != nil {
			return err
		}
	}
	return nil
}

func (s *aggregateSerializer) unpackCore(u *Unpacker) (reflect.Value, error) {
	out := reflect.New(s.typ).Elem()
	tok := u.LastReadData()

	// Forgive callers who did not pre-advance past the header: if the
	// current token is neither a map nor array header, advance once.
	if tok.Kind != KindArray && tok.Kind != KindMap {
		ok, err := u.Read()
		if err != nil {
			return reflect.Value{}, err
		}
		if !ok {
			return reflect.Value{}, errEndOfStreamf("unpack aggregate %s: no value available", s.typ)
		}
		tok = u.LastReadData()
	}

	switch tok.Kind {
	case KindMap:
		if err := s.unpackMap(u, tok, out); err != nil {
			return reflect.Value{}, err
		}
	case KindArray:
		if err := s.unpackArray(u, tok, out); err != nil {
			return reflect.Value{}, err
		}
	default:
		return reflect.Value{}, errTypeMismatchf("unpack aggregate %s: expected map or array header, got %v", s.typ, tok.Kind)
	}
	return out, nil
}

func (s *aggregateSerializer) unpackMap(u *Unpacker, tok Token, out reflect.Value) error {
	sub, err := u.ReadSubtree()
	if err != nil {
		return err
	}
	defer sub.Close()
	seen := make(map[*member]bool, len(s.ms.members))
	for i := 0; i < tok.Length; i++ {
		ok, err := sub.MoveToNextEntry()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		keyTok := sub.LastReadData()
		if keyTok.Kind != KindString {
			return errTypeMismatchf("unpack aggregate %s: member key must be a string, got %v", s.typ, keyTok.Kind)
		}
		name, err := keyTok.Str.GetString()
		if err != nil {
			return err
		}
		m := s.ms.byWireName(name)
		if m == nil {
			log.Debug().Str("type", s.typ.String()).Str("member", name).Msg("msgpack: skipping unknown member")
			if err := sub.skipOne(); err != nil {
				return err
			}
			continue
		}
		if err := s.unpackMember(sub, m, m.field(out)); err != nil {
			return err
		}
		seen[m] = true
	}
	for _, m := range s.ms.members {
		if !seen[m] && m.nilImpl == NilImplicationProhibit {
			return errWrapMissingRequired(m.wireName)
		}
	}
	return nil
}

func (s *aggregateSerializer) unpackArray(u *Unpacker, tok Token, out reflect.Value) error {
	sub, err := u.ReadSubtree()
	if err != nil {
		return err
	}
	defer sub.Close()
	order := s.ms.arrayOrder()
	for i, m := range order {
		if i >= tok.Length {
			// Stream ran short: remaining members take their nil-implication.
			if err := s.applyMemberNil(m, m.field(out)); err != nil {
				return err
			}
			continue
		}
		if err := s.unpackMember(sub, m, m.field(out)); err != nil {
			return err
		}
	}
	return nil
}

// unpackMember reads exactly one wire value for m into fv. An explicit wire
// nil is routed through m's nilimplication policy rather than the member's
// own serializer, since UnpackFrom would only consult the field type's own
// null-admission and never the member's prohibit/null tag option.
func (s *aggregateSerializer) unpackMember(sub *Unpacker, m *member, fv reflect.Value) error {
	ok, err := sub.Read()
	if err != nil {
		return err
	}
	if !ok {
		return errEndOfStreamf("unpack aggregate %s: member %q: no value available", s.typ, m.wireName)
	}
	if sub.LastReadData().Kind == KindNil {
		return s.applyMemberNil(m, fv)
	}
	val, err := s.memberSers[m].UnpackCore(sub)
	if err != nil {
		return err
	}
	fv.Set(val)
	return nil
}

func (s *aggregateSerializer) applyMemberNil(m *member, fv reflect.Value) error {
	switch m.nilImpl {
	case NilImplicationProhibit:
		return errWrapMissingRequired(m.wireName)
	case NilImplicationNull:
		if !admitsNull(fv.Type()) {
			return errWrapValueCannotBeNull(fv.Type())
		}
		fv.Set(reflect.Zero(fv.Type()))
	default:
		// MemberDefault: leave the field at its current (zero) value.
	}
	return nil
}
