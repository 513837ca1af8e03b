// Package output provides formatters for verification reports in
// several formats (pretty, plain, json), selected at runtime through a
// registry.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, report); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"
)

// FileResult is one file's verification outcome prepared for display.
type FileResult struct {
	// Name is the manifest filename.
	Name string `json:"name"`

	// Status is the joined verdict text, e.g. "valid" or
	// "sha256-mismatch".
	Status string `json:"status"`

	// OK is true when the file verified clean.
	OK bool `json:"ok"`

	// Reason holds the joined problem reasons for failed files.
	Reason string `json:"reason,omitempty"`

	// LocalSHA256 and OfficialSHA256 let a reader diagnose a mismatch
	// from the report alone.
	LocalSHA256    string `json:"local_sha256,omitempty"`
	OfficialSHA256 string `json:"official_sha256,omitempty"`

	// LocalSize and OfficialSize are byte counts; LocalSize may be a
	// negative sentinel when not computable.
	LocalSize    int64 `json:"local_size"`
	OfficialSize int64 `json:"official_size"`

	// ModifiedDuringScan marks files an external writer touched while
	// hashing ran; their mismatch may be a benign race.
	ModifiedDuringScan bool `json:"modified_during_scan,omitempty"`
}

// Stats aggregates run counters for the report.
type Stats struct {
	ManifestFiles  int           `json:"manifest_files"`
	FilesChecked   int           `json:"files_checked"`
	FilesValid     int           `json:"files_valid"`
	FilesMissing   int           `json:"files_missing"`
	MissingSkipped int           `json:"missing_skipped"`
	BytesHashed    int64         `json:"bytes_hashed"`
	CacheHits      int           `json:"cache_hits"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Report is the complete data a formatter renders.
type Report struct {
	// Repository and Revision identify the verified repository.
	Repository string `json:"repository"`
	Revision   string `json:"revision"`

	// LocalRoot is the directory that was verified.
	LocalRoot string `json:"local_root"`

	// Valid is the overall verdict.
	Valid bool `json:"valid"`

	// Files holds one row per compared or problematic file, sorted by
	// name for stable display.
	Files []FileResult `json:"files"`

	// Problems holds only the failing rows, in collection order.
	Problems []FileResult `json:"problems,omitempty"`

	// Stats aggregates the run counters.
	Stats Stats `json:"stats"`

	// Warnings carries advisory notices, e.g. mid-scan modifications.
	Warnings []string `json:"warnings,omitempty"`
}

// Formatter renders a Report into a buffer.
type Formatter interface {
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty formatter registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds a formatter factory, replacing any existing one with
// the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns the sorted registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
