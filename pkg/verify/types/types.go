// Package types provides the core data model for the modelverify cache
// verifier: the authoritative manifest, per-file scan results, verdicts,
// and the problem set that drives repair.
package types

import (
	"strings"

	"github.com/dustin/go-humanize"
)

// Sentinel sizes reported by the digest engine when no byte count could
// be computed.
const (
	// SizeNotFound is reported when the file does not exist locally.
	SizeNotFound int64 = -1

	// SizeError is reported when the file exists but could not be read.
	SizeError int64 = -2
)

// ManifestEntry describes one file in the authoritative repository manifest.
type ManifestEntry struct {
	// Name is the file's path relative to the repository root. It is the
	// unique key within a manifest.
	Name string `json:"name"`

	// SHA256 is the lowercase hex digest of the full file content.
	SHA256 string `json:"sha256"`

	// Size is the expected file size in bytes.
	Size int64 `json:"size"`
}

// Manifest maps relative filenames to their authoritative entries.
// Immutable once fetched; iteration order is irrelevant.
type Manifest map[string]ManifestEntry

// Outcome classifies a single digest computation.
type Outcome int

const (
	// OutcomeComputed means the digest and size were computed successfully.
	OutcomeComputed Outcome = iota

	// OutcomeNotFound means the file does not exist locally.
	OutcomeNotFound

	// OutcomeReadError means the file exists but reading it failed.
	OutcomeReadError
)

// String returns the outcome name for logs and reports.
func (o Outcome) String() string {
	switch o {
	case OutcomeComputed:
		return "computed"
	case OutcomeNotFound:
		return "not-found"
	case OutcomeReadError:
		return "read-error"
	default:
		return "unknown"
	}
}

// LocalScanResult holds the digest engine's output for one manifest file.
// Results exist only for the duration of a single run.
type LocalScanResult struct {
	// Name is the manifest filename this result belongs to.
	Name string `json:"name"`

	// SHA256 is the lowercase hex digest, or empty when not computable.
	SHA256 string `json:"sha256"`

	// Size is the observed byte count, or a negative sentinel
	// (SizeNotFound, SizeError) when not computable.
	Size int64 `json:"size"`

	// Outcome classifies how the result was produced.
	Outcome Outcome `json:"outcome"`
}

// Verdict is the reconciler's classification of one manifest file.
type Verdict int

const (
	// VerdictValid means digest and size both match the manifest.
	VerdictValid Verdict = iota

	// VerdictSizeMismatch means the local byte count differs.
	VerdictSizeMismatch

	// VerdictDigestMismatch means the local content digest differs.
	VerdictDigestMismatch

	// VerdictMissing means the file is absent locally.
	VerdictMissing

	// VerdictReadError means the file could not be read for comparison.
	VerdictReadError
)

// String returns the verdict name for logs and reports.
func (v Verdict) String() string {
	switch v {
	case VerdictValid:
		return "valid"
	case VerdictSizeMismatch:
		return "size-mismatch"
	case VerdictDigestMismatch:
		return "sha256-mismatch"
	case VerdictMissing:
		return "missing"
	case VerdictReadError:
		return "read-error"
	default:
		return "unknown"
	}
}

// Problem pairs a filename with every reason it failed verification.
// A file may carry several concurrently-true reasons (size and digest
// may both differ); all of them are recorded, not just the first.
type Problem struct {
	// Name is the manifest filename.
	Name string `json:"name"`

	// Reasons holds one human-readable entry per failed check.
	Reasons []string `json:"reasons"`
}

// Reason joins all reasons into a single report line.
func (p Problem) Reason() string {
	return strings.Join(p.Reasons, "; ")
}

// ProblemSet is the ordered list of problems from one verification pass.
// Order follows result collection and is not contractual; treat it as a
// set for correctness purposes.
type ProblemSet []Problem

// Names returns the filenames in the set, in collection order.
func (ps ProblemSet) Names() []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return names
}

// Contains reports whether the set holds a problem for the given filename.
func (ps ProblemSet) Contains(name string) bool {
	for _, p := range ps {
		if p.Name == name {
			return true
		}
	}
	return false
}

// NormalizeDigest lowercases a hex digest so comparisons are
// case-insensitive on both sides.
func NormalizeDigest(hexDigest string) string {
	return strings.ToLower(hexDigest)
}

// FormatSize converts a byte count to a human-readable IEC string
// (KiB, MiB, GiB). Negative sentinel sizes render as "n/a".
func FormatSize(bytes int64) string {
	if bytes < 0 {
		return "n/a"
	}
	return humanize.IBytes(uint64(bytes))
}
