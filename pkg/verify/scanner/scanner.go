package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tmzncty/modelverify/pkg/verify/cache"
	"github.com/tmzncty/modelverify/pkg/verify/digest"
	"github.com/tmzncty/modelverify/pkg/verify/logging"
	"github.com/tmzncty/modelverify/pkg/verify/types"
)

// Result holds the output of one scan pass. Scanned is keyed by
// manifest filename, so downstream classification is independent of
// the order units completed in.
type Result struct {
	// Scanned maps each locally present manifest filename to its scan
	// result. Every key also appears in the manifest.
	Scanned map[string]types.LocalScanResult

	// Missing lists manifest filenames with no regular file under Root.
	// They were never submitted to the digest pool.
	Missing []string

	// Cancelled lists present manifest filenames that were never
	// submitted to the pool because the context was cancelled. A result
	// with a non-empty Cancelled is incomplete: these files have no scan
	// result at all and must not be classified as valid or missing.
	Cancelled []string

	// ModifiedDuringScan lists manifest filenames an external writer
	// touched while the scan ran. Mismatches on these files may be a
	// benign race with an in-progress download rather than corruption.
	ModifiedDuringScan []string

	// FilesHashed is the number of digest units that completed.
	FilesHashed int

	// BytesHashed is the total byte count over all computed digests.
	BytesHashed int64

	// CacheHits counts digests reused from the cache.
	CacheHits int

	// Elapsed is the wall time of the scan.
	Elapsed time.Duration
}

// Scanner digests locally present manifest files with a bounded pool.
type Scanner struct {
	opts   Options
	logger *log.Logger
}

// New creates a Scanner with the given options, applying defaults.
func New(opts Options) *Scanner {
	opts.Validate()
	return &Scanner{opts: opts, logger: logging.Get("scanner")}
}

// unit is one file submitted to the digest pool.
type unit struct {
	name string
	path string
}

// outcome pairs a unit with its digest result.
type outcome struct {
	name      string
	result    digest.Result
	fromCache bool
}

// Scan partitions manifest filenames by local presence, digests every
// present file, and blocks until all submitted units have completed or
// failed. A single file's failure never affects any other file.
// Cancellation is cooperative: no new units are submitted after ctx is
// done, in-flight reads finish naturally, and the unsubmitted names are
// reported in Result.Cancelled.
func (s *Scanner) Scan(ctx context.Context, manifest types.Manifest) (*Result, error) {
	start := time.Now()

	res := &Result{Scanned: make(map[string]types.LocalScanResult, len(manifest))}

	var work []unit
	// Iterate a sorted view only so missing files log deterministically;
	// classification does not depend on any ordering.
	names := make([]string, 0, len(manifest))
	for name := range manifest {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(s.opts.Root, name)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			res.Missing = append(res.Missing, name)
			continue
		}
		work = append(work, unit{name: name, path: path})
	}

	s.logger.Info("scan starting",
		"root", s.opts.Root, "present", len(work), "missing", len(res.Missing), "workers", s.opts.Workers)

	if len(work) == 0 {
		res.Elapsed = time.Since(start)
		return res, nil
	}

	var watch *watcher
	if s.opts.Watch {
		var err error
		watch, err = newWatcher(s.opts.Root, manifest)
		if err != nil {
			// The watch is advisory; a failure to establish it never
			// blocks verification.
			s.logger.Warn("modification watch unavailable", "error", err)
		} else {
			defer watch.Close()
		}
	}

	units := make(chan unit)
	outcomes := make(chan outcome, len(work))

	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(units, outcomes)
		}()
	}

	go func() {
		// Closing units after recording the skipped names gives the
		// collector a happens-before edge on res.Cancelled.
		defer close(units)
		for i, u := range work {
			select {
			case units <- u:
			case <-ctx.Done():
				// Stop submitting; workers drain what is in flight. The
				// unsubmitted remainder is recorded so the caller knows
				// the result is incomplete.
				for _, skipped := range work[i:] {
					res.Cancelled = append(res.Cancelled, skipped.name)
				}
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	done := 0
	for oc := range outcomes {
		done++
		res.Scanned[oc.name] = types.LocalScanResult{
			Name:    oc.name,
			SHA256:  oc.result.SHA256,
			Size:    oc.result.Size,
			Outcome: oc.result.Outcome,
		}
		if oc.result.Outcome == types.OutcomeComputed {
			if oc.fromCache {
				res.CacheHits++
			} else {
				res.FilesHashed++
				res.BytesHashed += oc.result.Size
			}
		} else if oc.result.Err != nil {
			s.logger.Error("digest failed", "file", oc.name, "error", oc.result.Err)
		}
		if s.opts.OnProgress != nil {
			s.opts.OnProgress(Progress{
				Name:    oc.name,
				Done:    done,
				Total:   len(work),
				Outcome: oc.result.Outcome,
			})
		}
	}

	if len(res.Cancelled) > 0 {
		s.logger.Warn("scan cancelled before completion", "unchecked", len(res.Cancelled))
	}

	if watch != nil {
		res.ModifiedDuringScan = watch.Modified()
		if len(res.ModifiedDuringScan) > 0 {
			s.logger.Warn("files modified during scan", "count", len(res.ModifiedDuringScan))
		}
	}

	res.Elapsed = time.Since(start)
	s.logger.Info("scan complete",
		"hashed", res.FilesHashed,
		"bytes", res.BytesHashed,
		"cache_hits", res.CacheHits,
		"elapsed", res.Elapsed)
	return res, nil
}

// worker digests units until the channel closes. Each worker writes
// only to the outcomes channel; results are merged by the collector.
func (s *Scanner) worker(units <-chan unit, outcomes chan<- outcome) {
	for u := range units {
		result, fromCache := s.digestOne(u)
		outcomes <- outcome{name: u.name, result: result, fromCache: fromCache}
	}
}

// digestOne computes the digest for one unit, reusing a cached digest
// when the file's size and mtime are unchanged since it was recorded.
func (s *Scanner) digestOne(u unit) (digest.Result, bool) {
	if s.opts.Cache != nil {
		if info, err := os.Stat(u.path); err == nil && info.Mode().IsRegular() {
			if sha, ok := s.opts.Cache.Lookup(u.name, info.Size(), info.ModTime().UnixNano()); ok {
				return digest.Result{SHA256: sha, Size: info.Size(), Outcome: types.OutcomeComputed}, true
			}
		}
	}

	result := digest.File(u.path)

	if s.opts.Cache != nil && result.Outcome == types.OutcomeComputed {
		if info, err := os.Stat(u.path); err == nil {
			entry := &cache.Entry{
				Size:      result.Size,
				MtimeNano: info.ModTime().UnixNano(),
				SHA256:    result.SHA256,
			}
			if err := s.opts.Cache.Put(u.name, entry); err != nil {
				s.logger.Warn("cache update failed", "file", u.name, "error", err)
			}
		}
	}
	return result, false
}
