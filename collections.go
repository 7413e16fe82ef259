package msgpack

import "reflect"

// buildContainerSerializer resolves the built-in shape (if any) for a
// slice, array, map, or pointer type, eagerly resolving item serializers
// through trace (§4.6 point 1, "ask the built-in generic factory whether T
// has a known shape") so a self-referential chain reached through a
// pointer/slice/map element genuinely participates in the build protocol's
// re-entrant detection. Returns (nil, false, nil) if t is not one of these
// shapes.
func buildContainerSerializer(ctx *SerializationContext, t reflect.Type, trace *buildTrace) (Serializer, bool, error) {
	switch t.Kind() {
	case reflect.Slice:
		if t == byteSliceType {
			return binarySerializer, true, nil
		}
		s, err := newSliceSerializer(ctx, t, trace)
		return s, true, err
	case reflect.Array:
		s, err := newArraySerializer(ctx, t, trace)
		return s, true, err
	case reflect.Map:
		if isSetShape(t) {
			s, err := newSetSerializer(ctx, t, trace)
			return s, true, err
		}
		s, err := newMapSerializer(ctx, t, trace)
		return s, true, err
	case reflect.Ptr:
		s, err := newPointerSerializer(ctx, t, trace)
		return s, true, err
	default:
		return nil, false, nil
	}
}

// isSetShape recognizes map[T]struct{} as a set, per §1's "sequences, maps,
// and sets" domain data model. MessagePack has no set primitive, so a set
// is written as an array of its elements rather than a map header.
func isSetShape(t reflect.Type) bool {
	return t.Kind() == reflect.Map && t.Elem().Kind() == reflect.Struct && t.Elem().NumField() == 0
}

type sliceSerializer struct {
	*baseSerializer
	ctx  *SerializationContext
	elem Serializer
}

func newSliceSerializer(ctx *SerializationContext, t reflect.Type, trace *buildTrace) (Serializer, error) {
	elem, err := ctx.repo.resolve(t.Elem(), trace)
	if err != nil {
		return nil, err
	}
	s := &sliceSerializer{ctx: ctx, elem: elem}
	s.baseSerializer = newBaseSerializer(t, s.packCore, s.unpackCore)
	s.baseSerializer.intoFn = s.unpackInto
	return s, nil
}

func (s *sliceSerializer) packCore(p *Packer, v reflect.Value) error {
	n := v.Len()
	if err := p.PackArrayHeader(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := s.elem.PackTo(p, v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (s *sliceSerializer) unpackCore(u *Unpacker) (reflect.Value, error) {
	tok := u.LastReadData()
	if tok.Kind != KindArray {
		return reflect.Value{}, errTypeMismatchf("expected array header for slice, got %v", tok.Kind)
	}
	sub, err := u.ReadSubtree()
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.MakeSlice(s.Type(), tok.Length, tok.Length)
	itemType := s.Type().Elem()
	for i := 0; i < tok.Length; i++ {
		val, err := unpackNilAwarePos(sub, s.elem, s.ctx.opts.CollectionItemNilImpl, itemType, "collection item")
		if err != nil {
			sub.Close()
			return reflect.Value{}, err
		}
		out.Index(i).Set(val)
	}
	return out, sub.Close()
}

func (s *sliceSerializer) unpackInto(u *Unpacker, existing reflect.Value) error {
	v, err := s.unpackCore(u)
	if err != nil {
		return err
	}
	existing.Set(reflect.AppendSlice(existing, v))
	return nil
}

type arraySerializer struct {
	*baseSerializer
	ctx  *SerializationContext
	elem Serializer
}

func newArraySerializer(ctx *SerializationContext, t reflect.Type, trace *buildTrace) (Serializer, error) {
	elem, err := ctx.repo.resolve(t.Elem(), trace)
	if err != nil {
		return nil, err
	}
	s := &arraySerializer{ctx: ctx, elem: elem}
	s.baseSerializer = newBaseSerializer(t, s.packCore, s.unpackCore)
	return s, nil
}

func (s *arraySerializer) packCore(p *Packer, v reflect.Value) error {
	n := v.Len()
	if err := p.PackArrayHeader(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := s.elem.PackTo(p, v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (s *arraySerializer) unpackCore(u *Unpacker) (reflect.Value, error) {
	tok := u.LastReadData()
	if tok.Kind != KindArray {
		return reflect.Value{}, errTypeMismatchf("expected array header for array, got %v", tok.Kind)
	}
	sub, err := u.ReadSubtree()
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(s.Type()).Elem()
	n := out.Len()
	itemType := s.Type().Elem()
	for i := 0; i < tok.Length; i++ {
		val, err := unpackNilAwarePos(sub, s.elem, s.ctx.opts.CollectionItemNilImpl, itemType, "collection item")
		if err != nil {
			sub.Close()
			return reflect.Value{}, err
		}
		if i < n {
			out.Index(i).Set(val)
		}
	}
	return out, sub.Close()
}

type mapSerializer struct {
	*baseSerializer
	ctx *SerializationContext
	key Serializer
	val Serializer
}

func newMapSerializer(ctx *SerializationContext, t reflect.Type, trace *buildTrace) (Serializer, error) {
	key, err := ctx.repo.resolve(t.Key(), trace)
	if err != nil {
		return nil, err
	}
	val, err := ctx.repo.resolve(t.Elem(), trace)
	if err != nil {
		return nil, err
	}
	s := &mapSerializer{ctx: ctx, key: key, val: val}
	s.baseSerializer = newBaseSerializer(t, s.packCore, s.unpackCore)
	s.baseSerializer.intoFn = s.unpackInto
	return s, nil
}

func (s *mapSerializer) packCore(p *Packer, v reflect.Value) error {
	keys := v.MapKeys()
	if err := p.PackMapHeader(len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.key.PackTo(p, k); err != nil {
			return err
		}
		if err := s.val.PackTo(p, v.MapIndex(k)); err != nil {
			return err
		}
	}
	return nil
}

func (s *mapSerializer) unpackCore(u *Unpacker) (reflect.Value, error) {
	tok := u.LastReadData()
	if tok.Kind != KindMap {
		return reflect.Value{}, errTypeMismatchf("expected map header, got %v", tok.Kind)
	}
	sub, err := u.ReadSubtree()
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.MakeMapWithSize(s.Type(), tok.Length)
	keyType, valType := s.Type().Key(), s.Type().Elem()
	for i := 0; i < tok.Length; i++ {
		// A wire-nil key is governed by ctx.opts.MapKeyNilImpl (Prohibit by
		// default, §4.4), independently of ctx.opts.CollectionItemNilImpl
		// which governs the value.
		k, err := unpackNilAwarePos(sub, s.key, s.ctx.opts.MapKeyNilImpl, keyType, "map key")
		if err != nil {
			sub.Close()
			return reflect.Value{}, err
		}
		v, err := unpackNilAwarePos(sub, s.val, s.ctx.opts.CollectionItemNilImpl, valType, "map value")
		if err != nil {
			sub.Close()
			return reflect.Value{}, err
		}
		out.SetMapIndex(k, v)
	}
	return out, sub.Close()
}

func (s *mapSerializer) unpackInto(u *Unpacker, existing reflect.Value) error {
	v, err := s.unpackCore(u)
	if err != nil {
		return err
	}
	for _, k := range v.MapKeys() {
		existing.SetMapIndex(k, v.MapIndex(k))
	}
	return nil
}

type setSerializer struct {
	*baseSerializer
	ctx *SerializationContext
	key Serializer
}

func newSetSerializer(ctx *SerializationContext, t reflect.Type, trace *buildTrace) (Serializer, error) {
	key, err := ctx.repo.resolve(t.Key(), trace)
	if err != nil {
		return nil, err
	}
	s := &setSerializer{ctx: ctx, key: key}
	s.baseSerializer = newBaseSerializer(t, s.packCore, s.unpackCore)
	s.baseSerializer.intoFn = s.unpackInto
	return s, nil
}

func (s *setSerializer) packCore(p *Packer, v reflect.Value) error {
	keys := v.MapKeys()
	if err := p.PackArrayHeader(len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.key.PackTo(p, k); err != nil {
			return err
		}
	}
	return nil
}

func (s *setSerializer) unpackCore(u *Unpacker) (reflect.Value, error) {
	tok := u.LastReadData()
	if tok.Kind != KindArray {
		return reflect.Value{}, errTypeMismatchf("expected array header for set, got %v", tok.Kind)
	}
	sub, err := u.ReadSubtree()
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.MakeMapWithSize(s.Type(), tok.Length)
	empty := reflect.Zero(s.Type().Elem())
	keyType := s.Type().Key()
	for i := 0; i < tok.Length; i++ {
		k, err := unpackNilAwarePos(sub, s.key, s.ctx.opts.CollectionItemNilImpl, keyType, "collection item")
		if err != nil {
			sub.Close()
			return reflect.Value{}, err
		}
		out.SetMapIndex(k, empty)
	}
	return out, sub.Close()
}

func (s *setSerializer) unpackInto(u *Unpacker, existing reflect.Value) error {
	v, err := s.unpackCore(u)
	if err != nil {
		return err
	}
	empty := reflect.Zero(existing.Type().Elem())
	for _, k := range v.MapKeys() {
		existing.SetMapIndex(k, empty)
	}
	return nil
}

// pointerSerializer wraps a value-type serializer to give it pointer
// (nullable) semantics: a wire nil becomes a Go nil pointer (handled by
// baseSerializer's PackTo/UnpackFrom), and a present value dereferences to
// and from the pointee's core serializer. This is the shape through which
// Go expresses a self-referential type (a struct can never directly embed
// a field of its own type, only *T/[]T/map[K]T), so resolving elem here
// eagerly is what actually exercises the build protocol's cycle-breaking
// delegating serializer.
type pointerSerializer struct {
	*baseSerializer
	elem Serializer
}

func newPointerSerializer(ctx *SerializationContext, t reflect.Type, trace *buildTrace) (Serializer, error) {
	elem, err := ctx.repo.resolve(t.Elem(), trace)
	if err != nil {
		return nil, err
	}
	s := &pointerSerializer{elem: elem}
	s.baseSerializer = newBaseSerializer(t, s.packCore, s.unpackCore)
	return s, nil
}

func (s *pointerSerializer) packCore(p *Packer, v reflect.Value) error {
	return s.elem.PackCore(p, v.Elem())
}

func (s *pointerSerializer) unpackCore(u *Unpacker) (reflect.Value, error) {
	val, err := s.elem.UnpackCore(u)
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(s.Type().Elem())
	out.Elem().Set(val)
	return out, nil
}
