//go:build !fixedmap_opt_enablepadding

package fixedmap

import "unsafe"

// enablePadding pads every slot and counter stripe to a full cache
// line, at a cost of CacheLineSize bytes per slot.
// Enabled with the fixedmap_opt_enablepadding build tag.
const enablePadding = false

// slot is one cell of the table: nil, or a *ElementOf published by CAS.
type slot struct {
	p unsafe.Pointer
}

// counterStripe represents a striped counter to reduce contention.
type counterStripe struct {
	c uintptr // Counter value, accessed atomically
}
