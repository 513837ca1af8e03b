// Package scanner fans the digest engine out across every locally
// present manifest file using a bounded worker pool. Digesting is
// disk-I/O bound, so the pool is deliberately small: excess concurrency
// degrades throughput through seek contention.
package scanner

import (
	"runtime"

	"github.com/tmzncty/modelverify/pkg/verify/cache"
	"github.com/tmzncty/modelverify/pkg/verify/types"
)

// MaxWorkers caps the digest worker pool regardless of CPU count.
const MaxWorkers = 8

// Progress reports one completed digest unit. Completion order is
// feedback only; it never affects classification.
type Progress struct {
	// Name is the manifest filename just processed.
	Name string

	// Done is the number of units completed so far.
	Done int

	// Total is the number of units submitted to the pool.
	Total int

	// Outcome classifies the unit's result.
	Outcome types.Outcome
}

// Options configures a scan.
type Options struct {
	// Root is the local directory holding the cached repository.
	Root string

	// Workers bounds the digest pool. Values < 1 select
	// DefaultWorkers().
	Workers int

	// OnProgress, if set, is called once per completed unit. It must be
	// safe to call from the collector goroutine.
	OnProgress func(Progress)

	// Cache is an optional digest cache. When a file's size and mtime
	// match a cached entry the stored digest is reused without
	// re-reading the file. Nil disables caching.
	Cache *cache.Store

	// Watch enables an fsnotify watch on Root for the duration of the
	// scan, recording manifest files modified while hashing ran. A
	// concurrent downloader mutating the directory is a tolerated race;
	// the watch only annotates the report.
	Watch bool
}

// DefaultWorkers returns min(MaxWorkers, GOMAXPROCS worth of CPUs).
func DefaultWorkers() int {
	n := runtime.NumCPU()
	if n > MaxWorkers {
		return MaxWorkers
	}
	if n < 1 {
		return 1
	}
	return n
}

// Validate applies defaults for unset or invalid values.
func (o *Options) Validate() {
	if o.Workers < 1 {
		o.Workers = DefaultWorkers()
	}
	if o.Workers > MaxWorkers {
		o.Workers = MaxWorkers
	}
}
