// Package repair deletes locally mismatched files and re-fetches the
// full repository. Deletion is destructive, so it sits behind two
// independent confirmation gates; the fetch is always one
// whole-repository call, never per file. Repair does not re-verify;
// the operator re-runs the validation pass in a fresh process so an
// interrupted transfer cannot compound into this one.
package repair

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tmzncty/modelverify/pkg/verify/logging"
	"github.com/tmzncty/modelverify/pkg/verify/modelscope"
	"github.com/tmzncty/modelverify/pkg/verify/reconcile"
	"github.com/tmzncty/modelverify/pkg/verify/types"
)

// ConfirmFunc answers a destructive-action prompt. Injecting it keeps
// the coordinator free of terminal I/O and lets tests and headless runs
// script the answers.
type ConfirmFunc func(prompt string) bool

// DeleteError records a failed deletion. One failure never stops the
// remaining deletions.
type DeleteError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Outcome reports what a repair run did.
type Outcome struct {
	// Aborted is true when a confirmation gate declined and nothing was
	// changed.
	Aborted bool `json:"aborted"`

	// Deleted lists paths removed from the local cache.
	Deleted []string `json:"deleted,omitempty"`

	// DeleteErrors lists deletions that failed.
	DeleteErrors []DeleteError `json:"delete_errors,omitempty"`

	// Fetched is true when the repository fetcher was invoked and
	// returned successfully.
	Fetched bool `json:"fetched"`

	// FetchError carries the fetch failure, if any. Never retried
	// automatically; recovery is a human-driven re-run.
	FetchError error `json:"-"`
}

// Coordinator drives the delete-then-refetch repair flow.
type Coordinator struct {
	localRoot string
	fetcher   modelscope.Fetcher
	confirm   ConfirmFunc
	logger    *log.Logger
}

// New creates a repair coordinator for the given local cache directory.
func New(localRoot string, fetcher modelscope.Fetcher, confirm ConfirmFunc) *Coordinator {
	return &Coordinator{
		localRoot: localRoot,
		fetcher:   fetcher,
		confirm:   confirm,
		logger:    logging.Get("repair"),
	}
}

// deletable reports whether a problem warrants removing the local file.
// Files that are simply absent have nothing to delete; the downloader
// restores them on its own.
func deletable(p types.Problem) bool {
	for _, reason := range p.Reasons {
		if strings.Contains(reason, reconcile.ReasonMissing) {
			return false
		}
	}
	return true
}

// Run partitions the problems, gates the destructive steps behind two
// independent confirmations, deletes mismatched files sequentially and
// best-effort, and finishes with a single whole-repository fetch.
func (c *Coordinator) Run(ctx context.Context, problems types.ProblemSet, repoID string) *Outcome {
	out := &Outcome{}

	if len(problems) == 0 {
		return out
	}

	var toDelete []types.Problem
	for _, p := range problems {
		if deletable(p) {
			toDelete = append(toDelete, p)
		}
	}

	if !c.confirm("Attempt to remove problematic files and re-download the entire model? (y/n): ") {
		c.logger.Info("repair declined")
		out.Aborted = true
		return out
	}

	if len(toDelete) > 0 {
		// A second, separate gate: the first confirmed intent, this one
		// confirms the concrete removal list.
		if !c.confirm("Confirm removal? (y/n): ") {
			c.logger.Info("removal cancelled, no files were deleted")
			out.Aborted = true
			return out
		}
		c.deleteAll(toDelete, out)
	}
	// With only Missing problems there is nothing local to remove; the
	// first confirmation alone gates the fetch.

	c.logger.Info("invoking repository fetch", "repo", repoID)
	if err := c.fetcher.Fetch(ctx, repoID); err != nil {
		c.logger.Error("fetch failed", "repo", repoID, "error", err)
		out.FetchError = err
		return out
	}
	out.Fetched = true
	return out
}

// deleteAll removes each problematic file in sequence. Failures are
// recorded and skipped so one bad path never blocks the rest; keeping
// the deletes sequential keeps the failure report deterministic.
func (c *Coordinator) deleteAll(problems []types.Problem, out *Outcome) {
	for _, p := range problems {
		path := filepath.Join(c.localRoot, p.Name)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			out.DeleteErrors = append(out.DeleteErrors, DeleteError{Path: path, Error: err.Error()})
			c.logger.Error("cannot stat before delete", "path", path, "error", err)
			continue
		}
		if err := os.Remove(path); err != nil {
			out.DeleteErrors = append(out.DeleteErrors, DeleteError{Path: path, Error: err.Error()})
			c.logger.Error("delete failed", "path", path, "error", err)
			continue
		}
		out.Deleted = append(out.Deleted, path)
		c.logger.Info("removed", "path", path)
	}
}
