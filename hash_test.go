package fixedmap

import (
	"hash/fnv"
	"strconv"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/xxh3"
)

func TestFNV1aString(t *testing.T) {
	for _, s := range []string{"", "a", "foobar", "15", testDataLarge[len(testDataLarge)-1]} {
		h := fnv.New64a()
		_, _ = h.Write([]byte(s))
		if got, want := FNV1aString(s), uintptr(h.Sum64()); got != want {
			t.Errorf("FNV1aString(%q) = %x, want %x", s, got, want)
		}
		if FNV1aBytes([]byte(s)) != FNV1aString(s) {
			t.Errorf("FNV1aBytes and FNV1aString differ for %q", s)
		}
	}
}

func TestXXHashStrategies(t *testing.T) {
	for _, s := range []string{"", "a", "foobar"} {
		if got, want := XXHashString(s), uintptr(xxhash.Sum64String(s)); got != want {
			t.Errorf("XXHashString(%q) = %x, want %x", s, got, want)
		}
		if got, want := XXH3String(s), uintptr(xxh3.HashString(s)); got != want {
			t.Errorf("XXH3String(%q) = %x, want %x", s, got, want)
		}
	}
}

func TestFNVWordRehash(t *testing.T) {
	h := fnv.New64a()
	_, _ = h.Write([]byte{0x2a, 0, 0, 0, 0, 0, 0, 0})
	if got, want := FNVWordRehash(42), uintptr(h.Sum64()); got != want {
		t.Fatalf("FNVWordRehash(42) = %x, want %x", got, want)
	}
}

func TestRehashStrategies(t *testing.T) {
	rehashes := map[string]func(uintptr) uintptr{
		"fnv":     FNVRehash,
		"fnvword": FNVWordRehash,
		"golden":  GoldenRehash,
	}
	for name, rehash := range rehashes {
		t.Run(name, func(t *testing.T) {
			if rehash(0) == 0 {
				t.Fatal("zero must not be a fixed point")
			}
			if rehash(12345) != rehash(12345) {
				t.Fatal("rehash must be pure")
			}
			// A probe sequence must spread over a small table instead of
			// bouncing between a couple of slots.
			const n = 32
			seen := make(map[uintptr]bool)
			probe := FNV1aString("1")
			for i := 0; i < n; i++ {
				seen[probe%n] = true
				probe = rehash(probe)
			}
			if len(seen) < n/4 {
				t.Fatalf("probe sequence visits only %d of %d slots", len(seen), n)
			}
		})
	}
}

func TestDefaultHasher_Integers(t *testing.T) {
	if h := defaultHasher[int]()(12345); h != 12345 {
		t.Fatalf("int keys must hash to themselves: %d", h)
	}
	if h := defaultHasher[uint8]()(200); h != 200 {
		t.Fatalf("uint8 keys must hash to themselves: %d", h)
	}
	if h := defaultHasher[int32]()(-1); h != 0xffffffff {
		t.Fatalf("int32 keys must hash to their bit pattern: %x", h)
	}
	if h := defaultHasher[uint64]()(7); h != 7 {
		t.Fatalf("uint64 keys must hash to themselves: %d", h)
	}
}

func TestDefaultHasher_Comparable(t *testing.T) {
	hs := defaultHasher[string]()
	if hs("foo") != hs("foo") {
		t.Fatal("string hash must be deterministic within one map")
	}
	seen := make(map[uintptr]bool)
	for i := 0; i < 1000; i++ {
		seen[hs(strconv.Itoa(i))] = true
	}
	if len(seen) < 1000 {
		t.Fatalf("unexpected collisions: %d distinct hashes", len(seen))
	}

	type point struct{ X, Y int32 }
	hp := defaultHasher[point]()
	if hp(point{1, 2}) != hp(point{1, 2}) {
		t.Fatal("struct hash must be deterministic within one map")
	}
	if hp(point{1, 2}) == hp(point{2, 1}) {
		t.Fatal("struct hash must depend on field order")
	}
}
