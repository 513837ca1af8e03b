// Package reconcile cross-references the authoritative manifest against
// local scan results and produces a per-file verdict plus an overall
// validity decision. This is the decision core of modelverify: size and
// digest are compared independently, every applicable mismatch reason
// is recorded, and missing files are enforced only when the critical
// policy says so.
package reconcile

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/tmzncty/modelverify/pkg/verify/logging"
	"github.com/tmzncty/modelverify/pkg/verify/types"
)

// Reason texts used in problem reports. Kept short and grep-friendly;
// expected-versus-actual detail is printed alongside by the report
// formatters.
const (
	ReasonMissing   = "Missing locally"
	ReasonReadError = "Error computing local SHA256/size"
	ReasonDigest    = "SHA256 MISMATCH"
)

// sizeMismatchReason formats the size mismatch reason with both values,
// so a report line alone is enough to diagnose.
func sizeMismatchReason(local, official int64) string {
	return fmt.Sprintf("Size MISMATCH (local: %d, official: %d)", local, official)
}

// Report is the result of one reconciliation pass.
type Report struct {
	// Valid is true iff no file produced a problem and no critical file
	// was missing.
	Valid bool

	// Problems lists every file that failed verification, with all
	// applicable reasons. Valid files never appear here. Order follows
	// result collection and is not contractual.
	Problems types.ProblemSet

	// Verdicts records every classification made, including Valid ones,
	// keyed by filename. A file can carry both a size and a digest
	// mismatch verdict at once.
	Verdicts map[string][]types.Verdict

	// FilesChecked is the number of files compared against the manifest
	// (scanned files; missing files are not compared).
	FilesChecked int

	// FilesValid is the number of files classified Valid.
	FilesValid int

	// MissingSkipped lists non-critical absent files that were skipped
	// without comparison.
	MissingSkipped []string
}

// Reconcile classifies every manifest file given the scan results and
// the set of locally absent filenames. Missing names must be disjoint
// from scanned names; both must come from the manifest. Classification
// is a pure function of its inputs and is independent of the order the
// scan completed in.
func Reconcile(manifest types.Manifest, scanned map[string]types.LocalScanResult, missing []string, policy Policy) *Report {
	logger := logging.Get("reconcile")

	report := &Report{
		Valid:    true,
		Verdicts: make(map[string][]types.Verdict, len(manifest)),
	}

	for _, name := range missing {
		if _, ok := manifest[name]; !ok {
			continue
		}
		if policy.Critical(name) {
			report.Verdicts[name] = []types.Verdict{types.VerdictMissing}
			report.Problems = append(report.Problems, types.Problem{
				Name:    name,
				Reasons: []string{ReasonMissing},
			})
			report.Valid = false
			logger.Warn("critical file missing", "file", name)
		} else {
			report.MissingSkipped = append(report.MissingSkipped, name)
			logger.Debug("absent non-critical file skipped", "file", name)
		}
	}

	// Iterate scanned results in sorted order so human-facing output is
	// stable run to run. The verdicts themselves do not depend on it.
	names := make([]string, 0, len(scanned))
	for name := range scanned {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry, ok := manifest[name]
		if !ok {
			// Scan results only ever hold manifest names; tolerate a
			// stray key rather than misclassify it.
			logger.Warn("scan result for unknown file ignored", "file", name)
			continue
		}
		result := scanned[name]
		report.FilesChecked++

		report.classify(logger, entry, result)
	}

	return report
}

// classify produces the verdicts and problem entry for one scanned file.
func (r *Report) classify(logger *log.Logger, entry types.ManifestEntry, result types.LocalScanResult) {
	name := entry.Name

	if result.Outcome != types.OutcomeComputed {
		// NotFound from the digest engine means the file vanished
		// between the presence check and hashing; either way nothing
		// comparable was produced.
		r.Verdicts[name] = []types.Verdict{types.VerdictReadError}
		r.Problems = append(r.Problems, types.Problem{
			Name:    name,
			Reasons: []string{ReasonReadError},
		})
		r.Valid = false
		logger.Error("file unreadable", "file", name, "outcome", result.Outcome)
		return
	}

	var verdicts []types.Verdict
	var reasons []string

	if result.Size != entry.Size {
		verdicts = append(verdicts, types.VerdictSizeMismatch)
		reasons = append(reasons, sizeMismatchReason(result.Size, entry.Size))
	}
	if types.NormalizeDigest(result.SHA256) != types.NormalizeDigest(entry.SHA256) {
		verdicts = append(verdicts, types.VerdictDigestMismatch)
		reasons = append(reasons, ReasonDigest)
	}

	if len(reasons) == 0 {
		r.Verdicts[name] = []types.Verdict{types.VerdictValid}
		r.FilesValid++
		logger.Debug("file valid", "file", name)
		return
	}

	r.Verdicts[name] = verdicts
	r.Problems = append(r.Problems, types.Problem{Name: name, Reasons: reasons})
	r.Valid = false
	logger.Warn("file invalid",
		"file", name,
		"local_sha256", result.SHA256,
		"official_sha256", entry.SHA256,
		"local_size", result.Size,
		"official_size", entry.Size)
}
