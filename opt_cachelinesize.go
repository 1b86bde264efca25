package fixedmap

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// CacheLineSize is the padding unit used to keep hot atomic words
// (slots, counter stripes, the map header) on separate cache lines.
// It is taken from golang.org/x/sys/cpu for the target architecture.
const CacheLineSize = unsafe.Sizeof(cpu.CacheLinePad{})
