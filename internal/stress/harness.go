// Package stress runs a multi-goroutine counter workload against a
// FixedMapOf and checks the result against a mutex-guarded map.
package stress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/llxisdsh/fixedmap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrKeyCollision is returned when a lookup resolves to an element
	// published under another key with the same hash.
	ErrKeyCollision = errors.New("hash collision")
	// ErrMismatch is returned by Check when the totals differ.
	ErrMismatch = errors.New("counter mismatch")
)

// Harness owns the map under test and its reference.
type Harness struct {
	cfg Config
	log *slog.Logger

	Map *fixedmap.FixedMapOf[string, int64]
	Ref *ReferenceMap
}

// Report summarizes a run.
type Report struct {
	Workers     int              `json:"workers"`
	Iterations  int              `json:"iterations"`
	Keys        int              `json:"keys"`
	Size        int              `json:"size"`
	MaxTries    int              `json:"max_tries"`
	Hasher      string           `json:"hasher"`
	Rehash      string           `json:"rehash"`
	Elements    int              `json:"elements"`
	Exhausted   uint64           `json:"exhausted"`
	MaxProbe    int              `json:"max_probe"`
	Total       int64            `json:"total"`
	Elapsed     time.Duration    `json:"elapsed_ns"`
	OpsPerSec   float64          `json:"ops_per_sec"`
	Passed      bool             `json:"passed"`
	Mismatches  []string         `json:"mismatches,omitempty"`
	RunError    string           `json:"run_error,omitempty"`
	FinalCounts map[string]int64 `json:"final_counts"`
}

// New validates cfg and builds the map under test.
func New(cfg Config, log *slog.Logger) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	hasher, _ := HasherByName(cfg.Hasher)
	rehash, _ := RehashByName(cfg.Rehash)
	opts := []func(*fixedmap.FixedMapConfig){fixedmap.WithMaxTries(cfg.MaxTries)}
	if cfg.Strict {
		opts = append(opts, fixedmap.WithStrictKeys())
	}
	if log == nil {
		log = slog.Default()
	}
	return &Harness{
		cfg: cfg,
		log: log,
		Map: fixedmap.NewFixedMapOfWithHasher[string, int64](cfg.Size, hasher, rehash, opts...),
		Ref: NewReferenceMap(),
	}, nil
}

// Run starts cfg.Workers goroutines, each performing cfg.Iterations
// increments on random keys "1".."<keys>". The first worker error
// cancels the others.
func (h *Harness) Run(ctx context.Context) error {
	h.log.Info("starting stress run",
		"workers", h.cfg.Workers,
		"iterations", h.cfg.Iterations,
		"keys", h.cfg.Keys,
		"size", h.cfg.Size,
		"max_tries", h.cfg.MaxTries,
		"hasher", h.cfg.Hasher,
		"rehash", h.cfg.Rehash,
	)
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < h.cfg.Workers; w++ {
		seed := h.cfg.Seed + uint64(w)
		g.Go(func() error {
			return h.worker(ctx, seed)
		})
	}
	return g.Wait()
}

func (h *Harness) worker(ctx context.Context, seed uint64) error {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	inc := h.cfg.Increment
	for i := 0; i < h.cfg.Iterations; i++ {
		if i&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		key := strconv.Itoa(1 + rng.IntN(h.cfg.Keys))
		if err := h.Increment(key, inc); err != nil {
			return err
		}
	}
	return nil
}

// Increment adds delta to key in both the map and the reference.
func (h *Harness) Increment(key string, delta int64) error {
	it, created := h.Map.LoadOrCreateEntry(key, func() int64 { return delta })
	if it.Done() {
		return fmt.Errorf("can't find and insert element %q: %w", key, fixedmap.ErrProbeExhausted)
	}
	if it.Key() != key {
		return fmt.Errorf("key %q resolved to %q: %w", key, it.Key(), ErrKeyCollision)
	}
	if !created {
		atomic.AddInt64(it.Value(), delta)
	}
	h.Ref.Add(key, delta)
	return nil
}

// Check compares the final per-key totals of the map and the reference.
// Must be called after Run returned.
func (h *Harness) Check() error {
	got := h.Map.ToMap()
	want := h.Ref.Snapshot()
	var result *multierror.Error
	for _, k := range sortedKeys(want) {
		if v, ok := got[k]; !ok {
			result = multierror.Append(result, fmt.Errorf("key %q missing, want %d: %w", k, want[k], ErrMismatch))
		} else if v != want[k] {
			result = multierror.Append(result, fmt.Errorf("key %q = %d, want %d: %w", k, v, want[k], ErrMismatch))
		}
	}
	for _, k := range sortedKeys(got) {
		if _, ok := want[k]; !ok {
			result = multierror.Append(result, fmt.Errorf("unexpected key %q = %d: %w", k, got[k], ErrMismatch))
		}
	}
	return result.ErrorOrNil()
}

// Execute runs the workload, checks it and builds the report.
// The returned error is non-nil if the run failed or the totals differ.
func (h *Harness) Execute(ctx context.Context) (*Report, error) {
	start := time.Now()
	runErr := h.Run(ctx)
	elapsed := time.Since(start)

	stats := h.Map.Stats()
	counts := h.Map.ToMap()
	var total int64
	for _, v := range counts {
		total += v
	}
	rep := &Report{
		Workers:     h.cfg.Workers,
		Iterations:  h.cfg.Iterations,
		Keys:        h.cfg.Keys,
		Size:        h.cfg.Size,
		MaxTries:    h.cfg.MaxTries,
		Hasher:      h.cfg.Hasher,
		Rehash:      h.cfg.Rehash,
		Elements:    stats.Size,
		Exhausted:   stats.Exhausted,
		MaxProbe:    stats.MaxProbe,
		Total:       total,
		Elapsed:     elapsed,
		FinalCounts: counts,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		rep.OpsPerSec = float64(h.cfg.Workers*h.cfg.Iterations) / secs
	}
	if runErr != nil {
		rep.RunError = runErr.Error()
		h.log.Error("stress run failed", "error", runErr)
		return rep, runErr
	}

	checkErr := h.Check()
	var merr *multierror.Error
	if errors.As(checkErr, &merr) {
		for _, e := range merr.Errors {
			rep.Mismatches = append(rep.Mismatches, e.Error())
		}
	}
	if want := int64(h.cfg.Workers) * int64(h.cfg.Iterations) * h.cfg.Increment; checkErr == nil && total != want {
		checkErr = fmt.Errorf("total = %d, want %d: %w", total, want, ErrMismatch)
		rep.Mismatches = append(rep.Mismatches, checkErr.Error())
	}
	rep.Passed = checkErr == nil
	if checkErr != nil {
		h.log.Error("stress check failed", "mismatches", len(rep.Mismatches))
		return rep, checkErr
	}
	h.log.Info("stress run passed",
		"elements", rep.Elements,
		"total", rep.Total,
		"elapsed", elapsed,
		"ops_per_sec", int64(rep.OpsPerSec),
	)
	return rep, nil
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
