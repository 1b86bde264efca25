package fixedmap

import (
	"math/bits"
	"runtime"
	"sync/atomic"
	"unsafe"
)

const (
	// defaultMaxTries is the probe budget used when WithMaxTries is not
	// given. A key whose probe sequence visits this many foreign
	// occupants is reported as not found.
	defaultMaxTries = 32
	// slotsPerCounterStripe defines how many slots share one size
	// counter stripe before another stripe is worth its memory.
	slotsPerCounterStripe = 64
)

// FixedMapOf is a fixed-capacity, insertion-only concurrent map.
//
// All operations are lock-free: a key is resolved by walking a bounded
// double-hashing probe sequence over a statically sized slot array, and
// new entries are published into empty slots with a single
// compare-and-swap. Slots are never vacated, so occupancy is monotonic
// and a published entry keeps its hash and key for the lifetime of the
// map. Only the value can be mutated in place, through the *V returned
// by the lookup methods.
//
// Key features:
//   - No resizing: capacity is fixed by NewFixedMapOf
//   - No deletion: entries live until Destroy
//   - Bounded latency: at most MaxTries slots are inspected per call
//   - First writer wins: concurrent creators of the same key converge
//     on one element and all receive a pointer to its value
//   - Injected key hash and rehash (collision perturbation) strategies
//
// Keys are matched by hash alone unless WithStrictKeys is set, so two
// distinct keys with identical hashes share one entry. Callers that
// cannot rule this out should check Iterator.Key or enable strict keys.
//
// A FixedMapOf must not be copied after first use.
type FixedMapOf[K comparable, V any] struct {
	//lint:ignore U1000 prevents false sharing
	pad [(CacheLineSize - unsafe.Sizeof(struct {
		slots      []slot
		size       []counterStripe
		exhausted  []counterStripe
		keyHash    func(key K) uintptr
		rehash     func(h uintptr) uintptr
		maxTries   int
		strictKeys bool
	}{})%CacheLineSize) % CacheLineSize]byte

	_          noCopy
	slots      []slot          // fixed slot table, len == capacity
	size       []counterStripe // striped count of published elements
	exhausted  []counterStripe // striped count of probe budget exhaustions
	keyHash    func(key K) uintptr
	rehash     func(h uintptr) uintptr
	maxTries   int  // WithMaxTries
	strictKeys bool // WithStrictKeys
}

// ElementOf is a published map entry. Hash and Key never change after
// publication; Value points at the in-place mutable value.
type ElementOf[K comparable, V any] struct {
	hash  uintptr
	key   K
	value V
}

// Hash returns the key hash the element was published under.
func (e *ElementOf[K, V]) Hash() uintptr {
	return e.hash
}

// Key returns the element key.
func (e *ElementOf[K, V]) Key() K {
	return e.key
}

// Value returns a stable pointer to the element value.
// The pointer stays valid for the lifetime of the map.
func (e *ElementOf[K, V]) Value() *V {
	return &e.value
}

// FixedMapConfig defines configurable FixedMapOf options.
type FixedMapConfig struct {
	maxTries   int
	strictKeys bool
}

// WithMaxTries configures the probe budget, i.e. the maximum number of
// slots visited while resolving one key. Values <= 0 are ignored and
// the default of 32 is used.
func WithMaxTries(maxTries int) func(*FixedMapConfig) {
	return func(c *FixedMapConfig) {
		c.maxTries = maxTries
	}
}

// WithStrictKeys makes an occupant match only if both its hash and its
// key are equal to the probed key. Without it, equal hashes are
// treated as equal keys.
func WithStrictKeys() func(*FixedMapConfig) {
	return func(c *FixedMapConfig) {
		c.strictKeys = true
	}
}

// NewFixedMapOf creates a FixedMapOf with size slots, the built-in key
// hasher and FNVRehash as the collision perturbation.
//
// Parameters:
//   - size: number of slots, must be positive
//   - WithMaxTries option for the probe budget
//   - WithStrictKeys option to compare keys in addition to hashes
func NewFixedMapOf[K comparable, V any](
	size int,
	options ...func(*FixedMapConfig),
) *FixedMapOf[K, V] {
	return NewFixedMapOfWithHasher[K, V](size, nil, nil, options...)
}

// NewFixedMapOfWithHasher creates a FixedMapOf with a custom key hash
// and rehash function. Both must be pure: the probe sequence of a key
// is hash(key), rehash(hash(key)), rehash(rehash(hash(key))), ...
//
// Parameters:
//   - size: number of slots, must be positive
//   - keyHash: nil uses the built-in hasher
//   - rehash: nil uses FNVRehash
//   - WithMaxTries option for the probe budget
//   - WithStrictKeys option to compare keys in addition to hashes
func NewFixedMapOfWithHasher[K comparable, V any](
	size int,
	keyHash func(key K) uintptr,
	rehash func(h uintptr) uintptr,
	options ...func(*FixedMapConfig),
) *FixedMapOf[K, V] {
	if size <= 0 {
		panic("fixedmap: size must be positive")
	}
	var cfg FixedMapConfig
	for _, o := range options {
		o(&cfg)
	}
	if keyHash == nil {
		keyHash = defaultHasher[K]()
	}
	if rehash == nil {
		rehash = FNVRehash
	}
	maxTries := defaultMaxTries
	if cfg.maxTries > 0 {
		maxTries = cfg.maxTries
	}
	stripes := calcSizeLen(size, runtime.GOMAXPROCS(0))
	return &FixedMapOf[K, V]{
		slots:      make([]slot, size),
		size:       make([]counterStripe, stripes),
		exhausted:  make([]counterStripe, stripes),
		keyHash:    keyHash,
		rehash:     rehash,
		maxTries:   maxTries,
		strictKeys: cfg.strictKeys,
	}
}

// calcSizeLen computes the counter stripe count for the table
// return value must be a power of 2
func calcSizeLen(size, cpus int) int {
	return nextPowOf2(min(cpus, size/slotsPerCounterStripe))
}

// Load returns a pointer to the value stored for key.
// The ok result is false if the key is absent or its probe sequence
// was exhausted before reaching it.
func (m *FixedMapOf[K, V]) Load(key K) (value *V, ok bool) {
	if _, e := m.findEntry(m.keyHash(key), &key); e != nil {
		return &e.value, true
	}
	return nil, false
}

// LoadEntry returns the element published for key, or nil.
func (m *FixedMapOf[K, V]) LoadEntry(key K) *ElementOf[K, V] {
	_, e := m.findEntry(m.keyHash(key), &key)
	return e
}

// HasKey to check if the key exist
func (m *FixedMapOf[K, V]) HasKey(key K) bool {
	_, e := m.findEntry(m.keyHash(key), &key)
	return e != nil
}

// LoadOrCreate returns a pointer to the existing value for the key, or
// publishes a new element whose value is built by valueFn.
//
// Returns:
//   - value: stable pointer to the value, nil if the probe budget was
//     exhausted (the map is full along this key's probe sequence)
//   - created: true if this call published the element
//
// Notes:
//   - valueFn runs at most once per call, and only after an empty slot
//     was observed. It may run even when the call loses the race and
//     returns another goroutine's value; its result is then dropped.
//   - valueFn must not call methods of the same map.
func (m *FixedMapOf[K, V]) LoadOrCreate(
	key K,
	valueFn func() V,
) (value *V, created bool) {
	_, e, created := m.findOrCreate(m.keyHash(key), &key, valueFn)
	if e == nil {
		return nil, false
	}
	return &e.value, created
}

// LoadOrStore returns a pointer to the existing value for the key if
// present. Otherwise, it publishes the given value.
// The created result is true if the value was stored by this call.
// A nil pointer reports probe exhaustion.
func (m *FixedMapOf[K, V]) LoadOrStore(key K, value V) (actual *V, created bool) {
	return m.LoadOrCreate(key, func() V {
		return value
	})
}

// LoadOrCreateEntry is LoadOrCreate returning an Iterator positioned at
// the key's slot. On probe exhaustion it returns End() and false.
func (m *FixedMapOf[K, V]) LoadOrCreateEntry(
	key K,
	valueFn func() V,
) (it Iterator[K, V], created bool) {
	bidx, e, created := m.findOrCreate(m.keyHash(key), &key, valueFn)
	if e == nil {
		return m.End(), false
	}
	return Iterator[K, V]{m: m, bucket: bidx, elem: e}, created
}

// findEntry walks the probe sequence of hash without allocating.
// An empty slot ends the walk: slots are never vacated, so a key
// published on this sequence would sit at or before it.
func (m *FixedMapOf[K, V]) findEntry(hash uintptr, key *K) (int, *ElementOf[K, V]) {
	slots := m.slots
	n := uintptr(len(slots))
	if n == 0 {
		return -1, nil
	}
	probe := hash
	for tries := 0; tries < m.maxTries; tries++ {
		bidx := int(probe % n)
		e := (*ElementOf[K, V])(loadPtr(&slots[bidx].p))
		if e == nil {
			return -1, nil
		}
		if m.matches(e, hash, key) {
			return bidx, e
		}
		probe = m.rehash(probe)
	}
	m.addExhausted(hash)
	return -1, nil
}

// findOrCreate walks the probe sequence of hash and publishes a new
// element into the first empty slot it meets, unless an occupant
// matching the key is found first.
func (m *FixedMapOf[K, V]) findOrCreate(
	hash uintptr,
	key *K,
	valueFn func() V,
) (int, *ElementOf[K, V], bool) {
	slots := m.slots
	n := uintptr(len(slots))
	if n == 0 {
		return -1, nil, false
	}
	var newe *ElementOf[K, V]
	probe := hash
	for tries := 0; tries < m.maxTries; tries++ {
		bidx := int(probe % n)
		s := &slots[bidx]
		e := (*ElementOf[K, V])(loadPtr(&s.p))
		if e == nil {
			// Speculative element; it stays private until the CAS
			// succeeds and is dropped if this call never publishes it.
			if newe == nil {
				newe = &ElementOf[K, V]{hash: hash, key: *key, value: valueFn()}
			}
			if atomic.CompareAndSwapPointer(&s.p, nil, unsafe.Pointer(newe)) {
				m.addSize(bidx, 1)
				return bidx, newe, true
			}
			// Lost the race: the winner is visible through an atomic load.
			e = (*ElementOf[K, V])(atomic.LoadPointer(&s.p))
		}
		if m.matches(e, hash, key) {
			return bidx, e, false
		}
		probe = m.rehash(probe)
	}
	m.addExhausted(hash)
	return -1, nil, false
}

// matches reports whether occupant e resolves the probed key.
// Occupancy is the non-nil pointer itself, so an occupant whose hash
// happens to be zero is compared like any other.
func (m *FixedMapOf[K, V]) matches(e *ElementOf[K, V], hash uintptr, key *K) bool {
	if e.hash != hash {
		return false
	}
	return !m.strictKeys || e.key == *key
}

// addSize atomically adds delta to the size counter for the given slot index.
func (m *FixedMapOf[K, V]) addSize(bidx, delta int) {
	stripes := m.size
	atomic.AddUintptr(&stripes[bidx&(len(stripes)-1)].c, uintptr(delta))
}

func (m *FixedMapOf[K, V]) addExhausted(hash uintptr) {
	stripes := m.exhausted
	atomic.AddUintptr(&stripes[int(hash)&(len(stripes)-1)].c, 1)
}

// Destroy releases every published element and leaves the map empty
// with zero capacity. release, if non-nil, is called exactly once per
// element, in slot order.
//
// Notes:
//   - Destroy must not run concurrently with any other method; callers
//     must make sure all readers and writers have finished.
//   - Pointers previously returned stay valid memory (the garbage
//     collector owns them), but they are no longer reachable from the
//     map, and all later lookups report not found.
func (m *FixedMapOf[K, V]) Destroy(release func(e *ElementOf[K, V])) {
	slots := m.slots
	for i := range slots {
		e := (*ElementOf[K, V])(slots[i].p)
		if e == nil {
			continue
		}
		slots[i].p = nil
		if release != nil {
			release(e)
		}
	}
	m.slots = nil
	clear(m.size)
	clear(m.exhausted)
}

// nextPowOf2 calculates the smallest power of 2 that is greater than or equal to n.
// Compatible with both 32-bit and 64-bit systems.
func nextPowOf2(n int) int {
	if n <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// noCopy may be embedded into structs which must not be copied after
// the first use; `go vet` copylocks reports violations.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
