// Package batch runs per-object work serially or across a fixed set of
// workers.
package batch

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/meigma/assetkit/internal/sizing"
)

const (
	// parallelMinAvgBytes is the minimum average item size to use parallel processing.
	// Below this threshold, serial processing is more efficient due to reduced overhead.
	parallelMinAvgBytes = 16 << 10 // 16KB
)

// Processor decides how many workers a batch gets.
type Processor struct {
	workers int // 0 = auto, <0 = serial, >0 = fixed count
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithWorkers sets the number of workers for parallel processing.
// Values < 0 force serial processing. Zero uses automatic heuristics.
// Values > 0 force a specific worker count.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		p.workers = n
	}
}

// NewProcessor creates a new batch processor.
func NewProcessor(opts ...ProcessorOption) *Processor {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Workers returns the configured worker setting.
func (p *Processor) Workers() int { return p.workers }

// Stats counts the outcome of a batch.
type Stats struct {
	Processed atomic.Int64
	Failed    atomic.Int64
}

// Run calls fn once for every item and returns the per-item errors,
// indexed like items. A failing item never stops its siblings. size
// reports an item's byte size for the worker heuristic and may be nil.
func Run[T any](p *Processor, items []T, size func(T) int64, fn func(T) error) ([]error, *Stats) {
	errs := make([]error, len(items))
	stats := &Stats{}
	if len(items) == 0 {
		return errs, stats
	}

	workers := workerCount(p.workers, items, size)
	if workers < 2 {
		for i, item := range items {
			record(i, item, fn, errs, stats)
		}
		return errs, stats
	}

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for i := start; i < len(items); i += workers {
				record(i, items[i], fn, errs, stats)
			}
		}(w)
	}
	wg.Wait()
	return errs, stats
}

// record runs fn for one item. Each index is written by exactly one worker.
func record[T any](i int, item T, fn func(T) error, errs []error, stats *Stats) {
	if err := fn(item); err != nil {
		errs[i] = err
		stats.Failed.Add(1)
	}
	stats.Processed.Add(1)
}

// workerCount determines the number of workers to use for processing.
func workerCount[T any](workers int, items []T, size func(T) int64) int {
	if len(items) < 2 {
		return 1
	}
	if workers < 0 {
		return 1
	}

	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
		if workers < 2 {
			return 1
		}
		if size != nil {
			// Use size-based heuristic: only parallelize for larger items
			var total uint64
			for _, item := range items {
				n := size(item)
				if n < 0 {
					continue
				}
				next, ok := sizing.AddUint64(total, uint64(n))
				if !ok {
					total = ^uint64(0)
					break
				}
				total = next
			}
			if total/uint64(len(items)) < parallelMinAvgBytes {
				return 1
			}
		}
	}

	if workers > len(items) {
		workers = len(items)
	}
	return workers
}
