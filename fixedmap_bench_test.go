package fixedmap

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

func BenchmarkFixedMapOfLoadSmall(b *testing.B) {
	benchmarkFixedMapOfLoad(b, testDataSmall[:])
}

func BenchmarkFixedMapOfLoad(b *testing.B) {
	benchmarkFixedMapOfLoad(b, testData[:])
}

func BenchmarkFixedMapOfLoadLarge(b *testing.B) {
	benchmarkFixedMapOfLoad(b, testDataLarge[:])
}

func benchmarkFixedMapOfLoad(b *testing.B, data []string) {
	b.ReportAllocs()
	m := NewFixedMapOf[string, int](4 * len(data))
	for i := range data {
		m.LoadOrStore(data[i], i)
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = m.Load(data[i])
			i++
			if i >= len(data) {
				i = 0
			}
		}
	})
}

func BenchmarkFixedMapOfLoadOrStore(b *testing.B) {
	benchmarkFixedMapOfLoadOrStore(b, testData[:])
}

func BenchmarkFixedMapOfLoadOrStoreLarge(b *testing.B) {
	benchmarkFixedMapOfLoadOrStore(b, testDataLarge[:])
}

func benchmarkFixedMapOfLoadOrStore(b *testing.B, data []string) {
	b.ReportAllocs()
	m := NewFixedMapOf[string, int](4 * len(data))
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = m.LoadOrStore(data[i], i)
			i++
			if i >= len(data) {
				i = 0
			}
		}
	})
}

func BenchmarkFixedMapOfLoadOrStoreInt(b *testing.B) {
	benchmarkFixedMapOfLoadOrStoreInt(b, testDataInt[:])
}

func BenchmarkFixedMapOfLoadOrStoreIntLarge(b *testing.B) {
	benchmarkFixedMapOfLoadOrStoreInt(b, testDataIntLarge[:])
}

func benchmarkFixedMapOfLoadOrStoreInt(b *testing.B, data []int) {
	b.ReportAllocs()
	m := NewFixedMapOf[int, int](len(data))
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = m.LoadOrStore(data[i], i)
			i++
			if i >= len(data) {
				i = 0
			}
		}
	})
}

func BenchmarkFixedMapOfHashers(b *testing.B) {
	hashers := []struct {
		name string
		fn   func(string) uintptr
	}{
		{"default", nil},
		{"fnv1a", FNV1aString},
		{"xxhash", XXHashString},
		{"xxh3", XXH3String},
	}
	for _, h := range hashers {
		b.Run(h.name, func(b *testing.B) {
			b.ReportAllocs()
			data := testData[:]
			m := NewFixedMapOfWithHasher[string, int](4*len(data), h.fn, nil)
			for i := range data {
				m.LoadOrStore(data[i], i)
			}
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					_, _ = m.Load(data[i])
					i++
					if i >= len(data) {
						i = 0
					}
				}
			})
		})
	}
}

// BenchmarkFixedMapOfCounters and BenchmarkSyncMutexMapCounters run the
// same hot-key increment workload.
func BenchmarkFixedMapOfCounters(b *testing.B) {
	b.ReportAllocs()
	m := NewFixedMapOfWithHasher[string, int64](32, FNV1aString, FNVWordRehash)
	keys := make([]string, 15)
	for i := range keys {
		keys[i] = strconv.Itoa(i + 1)
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			v, created := m.LoadOrCreate(keys[i], func() int64 { return 1 })
			if !created {
				atomic.AddInt64(v, 1)
			}
			i++
			if i >= len(keys) {
				i = 0
			}
		}
	})
}

func BenchmarkSyncMutexMapCounters(b *testing.B) {
	b.ReportAllocs()
	var mu sync.Mutex
	m := make(map[string]int64)
	keys := make([]string, 15)
	for i := range keys {
		keys[i] = strconv.Itoa(i + 1)
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			mu.Lock()
			m[keys[i]]++
			mu.Unlock()
			i++
			if i >= len(keys) {
				i = 0
			}
		}
	})
}

func BenchmarkFixedMapOfRange(b *testing.B) {
	b.ReportAllocs()
	m := NewFixedMapOf[string, int](4 * len(testDataLarge))
	for i := range testDataLarge {
		m.LoadOrStore(testDataLarge[i], i)
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		foo := 0
		for pb.Next() {
			m.Range(func(key string, value *int) bool {
				foo++
				return true
			})
			_ = foo
		}
	})
}
