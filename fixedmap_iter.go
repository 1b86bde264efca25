package fixedmap

// Iterator is a forward cursor over the occupied slots of a FixedMapOf.
//
// An Iterator holds a slot index and the element cached when the cursor
// reached it. Two iterators are equal when their slot indexes are
// equal; the cached elements are not compared.
//
// Notes:
//   - Iteration is weakly consistent: concurrent insertions may or may
//     not be observed, and there is no whole-table snapshot. Each slot
//     is visited at most once per pass.
//   - An Iterator must not be used after the map is destroyed.
type Iterator[K comparable, V any] struct {
	m      *FixedMapOf[K, V]
	bucket int
	elem   *ElementOf[K, V]
}

// Begin returns an iterator positioned at the first occupied slot,
// or End() if none is occupied. Every call starts an independent pass.
func (m *FixedMapOf[K, V]) Begin() Iterator[K, V] {
	it := Iterator[K, V]{m: m}
	it.seek()
	return it
}

// End returns the terminal iterator, positioned one past the last slot.
func (m *FixedMapOf[K, V]) End() Iterator[K, V] {
	return Iterator[K, V]{m: m, bucket: len(m.slots)}
}

// Next advances to the next occupied slot. It is a no-op at the end.
func (it *Iterator[K, V]) Next() {
	if it.Done() {
		return
	}
	it.bucket++
	it.seek()
}

// seek scans forward from the current index to the first occupied slot.
func (it *Iterator[K, V]) seek() {
	it.elem = nil
	slots := it.m.slots
	for ; it.bucket < len(slots); it.bucket++ {
		if e := (*ElementOf[K, V])(loadPtr(&slots[it.bucket].p)); e != nil {
			it.elem = e
			return
		}
	}
}

// Done reports whether the iterator is at the end position.
func (it Iterator[K, V]) Done() bool {
	return it.m == nil || it.bucket >= len(it.m.slots)
}

// Equal reports whether both iterators are at the same slot index.
func (it Iterator[K, V]) Equal(other Iterator[K, V]) bool {
	return it.bucket == other.bucket
}

// Bucket returns the slot index of the iterator.
func (it Iterator[K, V]) Bucket() int {
	return it.bucket
}

// Element returns the element at the iterator, nil at the end.
func (it Iterator[K, V]) Element() *ElementOf[K, V] {
	return it.elem
}

// Key returns the key at the iterator. It panics at the end.
func (it Iterator[K, V]) Key() K {
	return it.elem.key
}

// Hash returns the element hash at the iterator. It panics at the end.
func (it Iterator[K, V]) Hash() uintptr {
	return it.elem.hash
}

// Value returns the value pointer at the iterator. It panics at the end.
func (it Iterator[K, V]) Value() *V {
	return &it.elem.value
}

// RangeEntry iterates over all published elements in slot order.
//
// Notes:
//   - The iteration directly traverses the slot table.
//     It observes some subset of the insertions that run concurrently.
func (m *FixedMapOf[K, V]) RangeEntry(yield func(e *ElementOf[K, V]) bool) {
	for it := m.Begin(); !it.Done(); it.Next() {
		if !yield(it.elem) {
			return
		}
	}
}

// Range calls yield for each key and value pointer.
func (m *FixedMapOf[K, V]) Range(yield func(key K, value *V) bool) {
	m.RangeEntry(func(e *ElementOf[K, V]) bool {
		return yield(e.key, &e.value)
	})
}

// All is the iterator version of Range, for use with range-over-func.
func (m *FixedMapOf[K, V]) All() func(yield func(K, *V) bool) {
	return m.Range
}

// Keys is the iterator version for iterating over all keys.
func (m *FixedMapOf[K, V]) Keys() func(yield func(K) bool) {
	return func(yield func(K) bool) {
		m.RangeEntry(func(e *ElementOf[K, V]) bool {
			return yield(e.key)
		})
	}
}

// Values is the iterator version for iterating over all value pointers.
func (m *FixedMapOf[K, V]) Values() func(yield func(*V) bool) {
	return func(yield func(*V) bool) {
		m.RangeEntry(func(e *ElementOf[K, V]) bool {
			return yield(&e.value)
		})
	}
}

// ToMap collect all entries and return a map[K]V.
// Values are copied; with hash-only matching, keys are the ones the
// winning elements were published with.
func (m *FixedMapOf[K, V]) ToMap() map[K]V {
	a := make(map[K]V, m.Size())
	m.RangeEntry(func(e *ElementOf[K, V]) bool {
		a[e.key] = e.value
		return true
	})
	return a
}
