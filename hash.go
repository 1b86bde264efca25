package fixedmap

import (
	"encoding/binary"
	"hash/maphash"
	"math/bits"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/xxh3"
)

const (
	fnvOffset64 uint64 = 0xcbf29ce484222325
	fnvPrime64  uint64 = 0x100000001b3
)

// FNV1aString hashes s with 64-bit FNV-1a.
func FNV1aString(s string) uintptr {
	h := fnvOffset64
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return uintptr(h)
}

// FNV1aBytes hashes b with 64-bit FNV-1a.
func FNV1aBytes(b []byte) uintptr {
	h := fnvOffset64
	for _, c := range b {
		h ^= uint64(c)
		h *= fnvPrime64
	}
	return uintptr(h)
}

// XXHashString hashes s with XXH64.
func XXHashString(s string) uintptr {
	return uintptr(xxhash.Sum64String(s))
}

// XXH3String hashes s with XXH3-64.
func XXH3String(s string) uintptr {
	return uintptr(xxh3.HashString(s))
}

// FNVRehash is the default rehash: a single FNV-1a round folding the
// whole probe value into the offset basis.
func FNVRehash(h uintptr) uintptr {
	return uintptr((fnvOffset64 ^ uint64(h)) * fnvPrime64)
}

// FNVWordRehash runs FNV-1a over the 8 little-endian bytes of the
// probe value. It mixes better than FNVRehash at eight times the cost.
func FNVWordRehash(h uintptr) uintptr {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(h))
	return FNV1aBytes(buf[:])
}

// GoldenRehash steps the probe value by the golden ratio constant and
// folds the high half into the low half before multiplying.
// Zero is not a fixed point.
func GoldenRehash(h uintptr) uintptr {
	h += hashPrime
	h ^= h >> (bits.UintSize / 2)
	return h * hashPrime
}

// defaultHasher returns the built-in key hash.
// Integer keys hash to their own value, which spreads sequential keys
// over consecutive slots; every other comparable type goes through
// hash/maphash with a per-map random seed.
func defaultHasher[K comparable]() func(key K) uintptr {
	switch any(*new(K)).(type) {
	case uint, int, uintptr:
		return func(key K) uintptr {
			return *(*uintptr)(noescape(unsafe.Pointer(&key)))
		}

	case uint64, int64:
		if bits.UintSize == 32 {
			return func(key K) uintptr {
				v := *(*uint64)(noescape(unsafe.Pointer(&key)))
				return uintptr(v) ^ uintptr(v>>32)
			}
		}
		return func(key K) uintptr {
			return uintptr(*(*uint64)(noescape(unsafe.Pointer(&key))))
		}

	case uint32, int32:
		return func(key K) uintptr {
			return uintptr(*(*uint32)(noescape(unsafe.Pointer(&key))))
		}

	case uint16, int16:
		return func(key K) uintptr {
			return uintptr(*(*uint16)(noescape(unsafe.Pointer(&key))))
		}

	case uint8, int8:
		return func(key K) uintptr {
			return uintptr(*(*uint8)(noescape(unsafe.Pointer(&key))))
		}

	default:
		seed := maphash.MakeSeed()
		return func(key K) uintptr {
			return uintptr(maphash.Comparable(seed, key))
		}
	}
}

// noescape hides a pointer from escape analysis.  noescape is
// the identity function but escape analysis doesn't think the
// output depends on the input.  noescape is inlined and currently
// compiles down to zero instructions.
// USE CAREFULLY!
//
// nolint:all
//
//go:nosplit
//goland:noinspection ALL
func noescape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
