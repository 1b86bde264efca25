//go:build !race

package fixedmap

import (
	"math/bits"
	"runtime"
	"sync/atomic"
	"unsafe"
)

// Detect TSO architectures; on TSO, plain reads are safe for
// pointers and native word-sized integers
const isTSO = runtime.GOARCH == "amd64" ||
	runtime.GOARCH == "386" ||
	runtime.GOARCH == "s390x"

// Slot read used for probe branching. TSO: plain pointer load;
// non-TSO: atomic.LoadPointer
//
//go:nosplit
func loadPtr(addr *unsafe.Pointer) unsafe.Pointer {
	//goland:noinspection ALL
	if isTSO {
		return *addr
	} else {
		return atomic.LoadPointer(addr)
	}
}

// Aligned integer load; plain on TSO when width matches, otherwise atomic
//
//go:nosplit
func loadInt[T ~uint32 | ~uint64 | ~uintptr](addr *T) T {
	if unsafe.Sizeof(T(0)) == unsafe.Sizeof(uint32(0)) {
		//goland:noinspection ALL
		if isTSO {
			return *addr
		} else {
			return T(atomic.LoadUint32((*uint32)(unsafe.Pointer(addr))))
		}
	} else {
		//goland:noinspection ALL
		if isTSO && bits.UintSize >= 64 {
			return *addr
		} else {
			return T(atomic.LoadUint64((*uint64)(unsafe.Pointer(addr))))
		}
	}
}
