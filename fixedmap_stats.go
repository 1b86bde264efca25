package fixedmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrProbeExhausted is returned by bulk operations when a key could not
// be placed within the probe budget.
var ErrProbeExhausted = errors.New("fixedmap: probe sequence exhausted")

// Cap returns the number of slots, i.e. the hard capacity of the map.
func (m *FixedMapOf[K, V]) Cap() int {
	return len(m.slots)
}

// MaxTries returns the probe budget of the map.
func (m *FixedMapOf[K, V]) MaxTries() int {
	return m.maxTries
}

// Size returns the number of published elements according to the
// striped counters. It may lag behind concurrent insertions.
func (m *FixedMapOf[K, V]) Size() int {
	var sum uintptr
	for i := range m.size {
		sum += loadInt(&m.size[i].c)
	}
	return int(sum)
}

// IsZero checks zero values, faster than Size().
func (m *FixedMapOf[K, V]) IsZero() bool {
	for i := range m.size {
		if loadInt(&m.size[i].c) != 0 {
			return false
		}
	}
	return true
}

// Exhausted returns how many lookups and insertions ran out of probe
// budget since the map was created.
func (m *FixedMapOf[K, V]) Exhausted() uint64 {
	var sum uintptr
	for i := range m.exhausted {
		sum += loadInt(&m.exhausted[i].c)
	}
	return uint64(sum)
}

// Stats returns statistics for the FixedMapOf. Just like other map
// methods, this one is thread-safe. Yet it's an O(N*MaxTries)
// operation, so it should be used only for diagnostics or debugging
// purposes.
func (m *FixedMapOf[K, V]) Stats() *FixedMapStats {
	stats := &FixedMapStats{
		Capacity:   len(m.slots),
		MaxTries:   m.maxTries,
		Counter:    m.Size(),
		CounterLen: len(m.size),
		Exhausted:  m.Exhausted(),
	}
	slots := m.slots
	n := uintptr(len(slots))
	for i := range slots {
		e := (*ElementOf[K, V])(loadPtr(&slots[i].p))
		if e == nil {
			stats.EmptySlots++
			continue
		}
		stats.Size++
		// probe distance: position of slot i in the element's own sequence
		probe := e.hash
		for tries := 1; tries <= m.maxTries; tries++ {
			if int(probe%n) == i {
				stats.TotalProbe += tries
				stats.MaxProbe = max(stats.MaxProbe, tries)
				break
			}
			probe = m.rehash(probe)
		}
	}
	return stats
}

// FixedMapStats is FixedMapOf statistics.
//
// Warning: map statistics are intended to be used for diagnostic
// purposes, not for production code. This means that breaking changes
// may be introduced into this struct even between minor releases.
type FixedMapStats struct {
	// Capacity is the number of slots.
	Capacity int
	// MaxTries is the probe budget.
	MaxTries int
	// Size is the exact number of occupied slots seen by the scan.
	Size int
	// EmptySlots is Capacity minus Size at scan time.
	EmptySlots int
	// Counter is the number of elements according to the internal
	// atomic counter. In case of concurrent insertions this number may
	// be different from Size.
	Counter int
	// CounterLen is the number of internal atomic counter stripes.
	CounterLen int
	// Exhausted is the number of operations that ran out of probe budget.
	Exhausted uint64
	// MaxProbe is the longest probe sequence, in slots visited, needed
	// to reach any published element.
	MaxProbe int
	// TotalProbe is the sum of probe lengths over all published elements.
	TotalProbe int
}

// String returns string representation of map stats.
func (s *FixedMapStats) String() string {
	var sb strings.Builder
	sb.WriteString("FixedMapStats{\n")
	sb.WriteString(fmt.Sprintf("Capacity:   %d\n", s.Capacity))
	sb.WriteString(fmt.Sprintf("MaxTries:   %d\n", s.MaxTries))
	sb.WriteString(fmt.Sprintf("Size:       %d\n", s.Size))
	sb.WriteString(fmt.Sprintf("EmptySlots: %d\n", s.EmptySlots))
	sb.WriteString(fmt.Sprintf("Counter:    %d\n", s.Counter))
	sb.WriteString(fmt.Sprintf("CounterLen: %d\n", s.CounterLen))
	sb.WriteString(fmt.Sprintf("Exhausted:  %d\n", s.Exhausted))
	sb.WriteString(fmt.Sprintf("MaxProbe:   %d\n", s.MaxProbe))
	sb.WriteString(fmt.Sprintf("TotalProbe: %d\n", s.TotalProbe))
	sb.WriteString("}\n")
	return sb.String()
}

// String implement the formatting output interface fmt.Stringer
func (m *FixedMapOf[K, V]) String() string {
	return strings.Replace(fmt.Sprint(m.ToMap()), "map[", "FixedMapOf[", 1)
}

var (
	jsonMarshal   func(v any) ([]byte, error)
	jsonUnmarshal func(data []byte, v any) error
)

// SetDefaultJSONMarshal sets the default JSON serialization and deserialization functions.
// If not set, the standard library is used by default.
func SetDefaultJSONMarshal(marshal func(v any) ([]byte, error), unmarshal func(data []byte, v any) error) {
	jsonMarshal, jsonUnmarshal = marshal, unmarshal
}

// MarshalJSON JSON serialization
func (m *FixedMapOf[K, V]) MarshalJSON() ([]byte, error) {
	if jsonMarshal != nil {
		return jsonMarshal(m.ToMap())
	}
	return json.Marshal(m.ToMap())
}

// UnmarshalJSON JSON deserialization.
// Decoded entries are inserted with LoadOrStore: keys already present
// keep their value. Keys that cannot be placed are reported with
// ErrProbeExhausted after all others were inserted.
func (m *FixedMapOf[K, V]) UnmarshalJSON(data []byte) error {
	var a map[K]V
	if jsonUnmarshal != nil {
		if err := jsonUnmarshal(data, &a); err != nil {
			return err
		}
	} else {
		if err := json.Unmarshal(data, &a); err != nil {
			return err
		}
	}
	dropped := 0
	for k, v := range a {
		if p, _ := m.LoadOrStore(k, v); p == nil {
			dropped++
		}
	}
	if dropped != 0 {
		return fmt.Errorf("%w: %d of %d keys dropped", ErrProbeExhausted, dropped, len(a))
	}
	return nil
}
