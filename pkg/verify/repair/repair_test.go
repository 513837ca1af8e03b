package repair

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmzncty/modelverify/pkg/verify/reconcile"
	"github.com/tmzncty/modelverify/pkg/verify/types"
)

// fakeFetcher records fetch invocations.
type fakeFetcher struct {
	calls []string
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, repoID string) error {
	f.calls = append(f.calls, repoID)
	return f.err
}

// scriptedConfirm answers prompts from a fixed list, then no.
func scriptedConfirm(answers ...bool) (ConfirmFunc, *[]string) {
	prompts := &[]string{}
	i := 0
	return func(prompt string) bool {
		*prompts = append(*prompts, prompt)
		if i >= len(answers) {
			return false
		}
		answer := answers[i]
		i++
		return answer
	}, prompts
}

func mismatch(name string) types.Problem {
	return types.Problem{Name: name, Reasons: []string{reconcile.ReasonDigest}}
}

func missing(name string) types.Problem {
	return types.Problem{Name: name, Reasons: []string{reconcile.ReasonMissing}}
}

func TestRun_DeletesAndFetches(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.safetensors"), []byte("junk"), 0o644))

	fetcher := &fakeFetcher{}
	confirm, prompts := scriptedConfirm(true, true)

	out := New(root, fetcher, confirm).Run(context.Background(),
		types.ProblemSet{mismatch("bad.safetensors")}, "org/model")

	assert.False(t, out.Aborted)
	assert.Equal(t, []string{filepath.Join(root, "bad.safetensors")}, out.Deleted)
	assert.Empty(t, out.DeleteErrors)
	assert.True(t, out.Fetched)

	// Exactly one whole-repository fetch, never per file.
	assert.Equal(t, []string{"org/model"}, fetcher.calls)
	// Two independent gates were presented.
	assert.Len(t, *prompts, 2)

	_, err := os.Stat(filepath.Join(root, "bad.safetensors"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_FirstGateDeclined(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "bad.bin")
	require.NoError(t, os.WriteFile(path, []byte("junk"), 0o644))

	fetcher := &fakeFetcher{}
	confirm, _ := scriptedConfirm(false)

	out := New(root, fetcher, confirm).Run(context.Background(),
		types.ProblemSet{mismatch("bad.bin")}, "org/model")

	assert.True(t, out.Aborted)
	assert.Empty(t, out.Deleted)
	assert.Empty(t, fetcher.calls)

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestRun_SecondGateDeclined(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "bad.bin")
	require.NoError(t, os.WriteFile(path, []byte("junk"), 0o644))

	fetcher := &fakeFetcher{}
	confirm, prompts := scriptedConfirm(true, false)

	out := New(root, fetcher, confirm).Run(context.Background(),
		types.ProblemSet{mismatch("bad.bin")}, "org/model")

	// An affirmative first gate alone never deletes or fetches.
	assert.True(t, out.Aborted)
	assert.Empty(t, out.Deleted)
	assert.Empty(t, fetcher.calls)
	assert.Len(t, *prompts, 2)

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestRun_MissingOnlyFetchesWithoutDeletion(t *testing.T) {
	root := t.TempDir()
	fetcher := &fakeFetcher{}
	confirm, prompts := scriptedConfirm(true)

	out := New(root, fetcher, confirm).Run(context.Background(),
		types.ProblemSet{missing("config.json"), missing("a.safetensors")}, "org/model")

	assert.False(t, out.Aborted)
	assert.Empty(t, out.Deleted)
	assert.True(t, out.Fetched)
	assert.Equal(t, []string{"org/model"}, fetcher.calls)
	// Nothing to remove, so only the first gate applies.
	assert.Len(t, *prompts, 1)
}

func TestRun_MissingNeverDeleted(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.bin"), []byte("junk"), 0o644))
	// This file exists even though the reconciler saw it missing; it
	// must still not be deleted, because its only reason is Missing.
	require.NoError(t, os.WriteFile(filepath.Join(root, "late.bin"), []byte("arrived"), 0o644))

	fetcher := &fakeFetcher{}
	confirm, _ := scriptedConfirm(true, true)

	out := New(root, fetcher, confirm).Run(context.Background(),
		types.ProblemSet{mismatch("bad.bin"), missing("late.bin")}, "org/model")

	assert.Equal(t, []string{filepath.Join(root, "bad.bin")}, out.Deleted)
	_, err := os.Stat(filepath.Join(root, "late.bin"))
	assert.NoError(t, err)
}

func TestRun_DeleteErrorDoesNotStopOthers(t *testing.T) {
	root := t.TempDir()
	// "gone.bin" has a mismatch reason but no longer exists on disk; a
	// vanished file is skipped silently, not an error.
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.bin"), []byte("junk"), 0o644))

	fetcher := &fakeFetcher{}
	confirm, _ := scriptedConfirm(true, true)

	out := New(root, fetcher, confirm).Run(context.Background(),
		types.ProblemSet{mismatch("gone.bin"), mismatch("b.bin")}, "org/model")

	assert.Equal(t, []string{filepath.Join(root, "b.bin")}, out.Deleted)
	assert.Empty(t, out.DeleteErrors)
	assert.True(t, out.Fetched)
}

func TestRun_FetchErrorReported(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.bin"), []byte("junk"), 0o644))

	wantErr := errors.New("network down")
	fetcher := &fakeFetcher{err: wantErr}
	confirm, _ := scriptedConfirm(true, true)

	out := New(root, fetcher, confirm).Run(context.Background(),
		types.ProblemSet{mismatch("bad.bin")}, "org/model")

	// The deletion already happened; the failed fetch is reported, not
	// retried.
	assert.Len(t, out.Deleted, 1)
	assert.False(t, out.Fetched)
	assert.ErrorIs(t, out.FetchError, wantErr)
	assert.Equal(t, []string{"org/model"}, fetcher.calls)
}

func TestRun_NoProblems(t *testing.T) {
	fetcher := &fakeFetcher{}
	confirm, prompts := scriptedConfirm(true, true)

	out := New(t.TempDir(), fetcher, confirm).Run(context.Background(), nil, "org/model")

	assert.False(t, out.Aborted)
	assert.Empty(t, fetcher.calls)
	assert.Empty(t, *prompts)
}

func TestDeletable(t *testing.T) {
	assert.True(t, deletable(mismatch("a")))
	assert.False(t, deletable(missing("a")))
	// A file both missing and otherwise flagged is left for the
	// downloader.
	assert.False(t, deletable(types.Problem{
		Name:    "a",
		Reasons: []string{reconcile.ReasonDigest, reconcile.ReasonMissing},
	}))
}
