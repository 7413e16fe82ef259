package msgpack

import (
	"reflect"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"
)

const buildLockShards = 32

// buildLock guards the construction of one type's serializer. The primary
// builder (the goroutine that created it) closes done when the serializer
// has been published; everyone else waits on done and re-queries the
// repository.
type buildLock struct {
	done chan struct{}
}

type buildLockShard struct {
	mu    sync.Mutex
	locks map[reflect.Type]*buildLock
}

// buildTrace threads the set of types currently under construction on this
// goroutine's call stack through a recursive resolve() chain, so a
// self-referential type's own field can be detected as re-entrant without
// needing a goroutine identity (Go goroutines have none in the standard
// library, and may migrate between OS threads — §4.6).
type buildTrace struct {
	inProgress map[reflect.Type]bool
}

// SerializerRepository is the type-keyed registry of §4.6: a many-reader,
// few-writer map from reflect.Type to Serializer, backed by
// xsync.MapOf so the fast path (already-built type) never takes a lock.
type SerializerRepository struct {
	ctx    *SerializationContext
	byType *xsync.MapOf[reflect.Type, Serializer]
	shards [buildLockShards]buildLockShard
}

func newSerializerRepository(ctx *SerializationContext) *SerializerRepository {
	r := &SerializerRepository{ctx: ctx, byType: xsync.NewMapOf[reflect.Type, Serializer]()}
	for i := range r.shards {
		r.shards[i].locks = map[reflect.Type]*buildLock{}
	}
	return r
}

func (r *SerializerRepository) shardFor(t reflect.Type) *buildLockShard {
	h := xxhash.Sum64String(t.String() + "|" + t.PkgPath())
	return &r.shards[h%uint64(len(r.shards))]
}

// getSerializer implements the get_serializer<T> protocol of §4.6.
func (r *SerializerRepository) getSerializer(t reflect.Type) (Serializer, error) {
	return r.resolve(t, &buildTrace{inProgress: map[reflect.Type]bool{}})
}

func (r *SerializerRepository) resolve(t reflect.Type, trace *buildTrace) (Serializer, error) {
	// Step 1: fast path, already built and published.
	if s, ok := r.byType.Load(t); ok {
		return s, nil
	}

	// Step 2: built-in generic factory (primitives, collections, enums,
	// nullables, the dynamic message-pack value).
	if s, handled, err := r.builtinSerializer(t, trace); handled {
		if err != nil {
			return nil, err
		}
		return r.publish(t, s), nil
	}

	// Step 3: interface/abstract types resolve to a registered default
	// concrete collection type instead of entering the build protocol
	// (which has nothing to reflect on for an interface).
	if t.Kind() == reflect.Interface {
		concrete, ok := r.ctx.opts.DefaultConcreteTypes[t]
		if !ok {
			return nil, errWrapAbstractType(t)
		}
		return r.resolve(concrete, trace)
	}

	// Step 4: the build protocol.
	return r.build(t, trace)
}

func (r *SerializerRepository) builtinSerializer(t reflect.Type, trace *buildTrace) (Serializer, bool, error) {
	if t == reflect.TypeOf(Object{}) {
		return objectValueSerializer, true, nil
	}
	if isRegisteredEnum(t) {
		return newEnumSerializer(t, r.ctx.opts.DefaultEnumMethod), true, nil
	}
	if isTupleType(t) {
		s, err := newTupleSerializer(r.ctx, t, trace)
		return s, true, err
	}
	switch t.Kind() {
	case reflect.Bool:
		return boolSerializer, true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return newIntSerializer(t), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return newUintSerializer(t), true, nil
	case reflect.Float32:
		return float32Serializer, true, nil
	case reflect.Float64:
		return float64Serializer, true, nil
	case reflect.String:
		return stringSerializer, true, nil
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Ptr:
		s, handled, err := buildContainerSerializer(r.ctx, t, trace)
		return s, handled, err
	default:
		return nil, false, nil
	}
}

func (r *SerializerRepository) build(t reflect.Type, trace *buildTrace) (Serializer, error) {
	if trace.inProgress[t] {
		// Re-entrant: this goroutine is already building t further up its
		// own call stack (a self-referential type). Hand back a lazy
		// delegating serializer instead of deadlocking.
		log.Debug().Str("type", t.String()).Msg("msgpack: re-entrant delegate created")
		return newDelegatingSerializer(r.ctx, t), nil
	}

	shard := r.shardFor(t)
	shard.mu.Lock()
	lock, alreadyBuilding := shard.locks[t]
	if !alreadyBuilding {
		lock = &buildLock{done: make(chan struct{})}
		shard.locks[t] = lock
	}
	shard.mu.Unlock()

	if alreadyBuilding {
		// Another goroutine is the primary builder for this type: wait for
		// it to finish, then re-query the repository for its result.
		<-lock.done
		if s, ok := r.byType.Load(t); ok {
			return s, nil
		}
		return nil, errWrapNotRegistered(t)
	}

	log.Debug().Str("type", t.String()).Msg("msgpack: build lock acquired")
	trace.inProgress[t] = true
	s, err := r.buildViaGenerators(t, trace)
	delete(trace.inProgress, t)

	shard.mu.Lock()
	delete(shard.locks, t)
	shard.mu.Unlock()
	close(lock.done)

	if err != nil {
		return nil, err
	}
	published := r.publish(t, s)
	log.Debug().Str("type", t.String()).Msg("msgpack: serializer published")
	return published, nil
}

func (r *SerializerRepository) buildViaGenerators(t reflect.Type, trace *buildTrace) (Serializer, error) {
	for _, g := range r.ctx.generators {
		if s, ok := g.TryCreate(t); ok {
			return s, nil
		}
	}
	if t.Kind() == reflect.Struct {
		return newAggregateSerializer(r.ctx, t, r.ctx.opts.DefaultMethod, trace)
	}
	return nil, errWrapNotRegistered(t)
}

// publish performs the CAS-style registration of step 5: if this call loses
// a race to a concurrently-built entry, the winner already in the map is
// returned instead.
func (r *SerializerRepository) publish(t reflect.Type, s Serializer) Serializer {
	winner, _ := r.byType.LoadOrStore(t, s)
	return winner
}

// delegatingSerializer is the lazy handle of §9: it captures (ctx, typ) and
// resolves the real serializer on first use, caching it behind sync.Once so
// a self-referential type's build completes before the delegate is ever
// actually invoked (construction finishes and publishes before any value is
// packed or unpacked).
type delegatingSerializer struct {
	ctx  *SerializationContext
	typ  reflect.Type
	once sync.Once
	real Serializer
	err  error
}

func newDelegatingSerializer(ctx *SerializationContext, t reflect.Type) *delegatingSerializer {
	return &delegatingSerializer{ctx: ctx, typ: t}
}

func (d *delegatingSerializer) resolve() (Serializer, error) {
	d.once.Do(func() {
		d.real, d.err = d.ctx.GetSerializerForType(d.typ)
	})
	return d.real, d.err
}

func (d *delegatingSerializer) Type() reflect.Type { return d.typ }

func (d *delegatingSerializer) AdmitsNull() bool { return admitsNull(d.typ) }

func (d *delegatingSerializer) PackTo(p *Packer, value reflect.Value) error {
	s, err := d.resolve()
	if err != nil {
		return err
	}
	return s.PackTo(p, value)
}

func (d *delegatingSerializer) UnpackFrom(u *Unpacker) (reflect.Value, error) {
	s, err := d.resolve()
	if err != nil {
		return reflect.Value{}, err
	}
	return s.UnpackFrom(u)
}

func (d *delegatingSerializer) UnpackInto(u *Unpacker, existing reflect.Value) error {
	s, err := d.resolve()
	if err != nil {
		return err
	}
	return s.UnpackInto(u, existing)
}

func (d *delegatingSerializer) PackCore(p *Packer, value reflect.Value) error {
	s, err := d.resolve()
	if err != nil {
		return err
	}
	return s.PackCore(p, value)
}

func (d *delegatingSerializer) UnpackCore(u *Unpacker) (reflect.Value, error) {
	s, err := d.resolve()
	if err != nil {
		return reflect.Value{}, err
	}
	return s.UnpackCore(u)
}
