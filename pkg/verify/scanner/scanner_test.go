package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmzncty/modelverify/pkg/verify/types"
)

// writeFixture writes a file under root and returns its lowercase
// SHA-256 hex digest.
func writeFixture(t *testing.T, root, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func manifestOf(names ...string) types.Manifest {
	m := make(types.Manifest)
	for _, name := range names {
		m[name] = types.ManifestEntry{Name: name}
	}
	return m
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	shaA := writeFixture(t, root, "a.safetensors", []byte("weights-a"))
	shaB := writeFixture(t, root, "config.json", []byte(`{"hidden_size":4096}`))

	s := New(Options{Root: root, Workers: 4})
	res, err := s.Scan(context.Background(), manifestOf("a.safetensors", "config.json"))
	require.NoError(t, err)

	require.Len(t, res.Scanned, 2)
	assert.Empty(t, res.Missing)

	a := res.Scanned["a.safetensors"]
	assert.Equal(t, types.OutcomeComputed, a.Outcome)
	assert.Equal(t, shaA, a.SHA256)
	assert.Equal(t, int64(len("weights-a")), a.Size)

	b := res.Scanned["config.json"]
	assert.Equal(t, shaB, b.SHA256)

	assert.Equal(t, 2, res.FilesHashed)
	assert.Equal(t, a.Size+b.Size, res.BytesHashed)
}

func TestScan_MissingPartition(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "present.bin", []byte("x"))

	s := New(Options{Root: root})
	res, err := s.Scan(context.Background(), manifestOf("present.bin", "absent.bin", "also-absent.safetensors"))
	require.NoError(t, err)

	assert.Len(t, res.Scanned, 1)
	assert.ElementsMatch(t, []string{"absent.bin", "also-absent.safetensors"}, res.Missing)
	// Missing names are never submitted to the digest pool.
	assert.NotContains(t, res.Scanned, "absent.bin")
}

func TestScan_NestedNames(t *testing.T) {
	root := t.TempDir()
	sha := writeFixture(t, root, "sub/dir/tensor.bin", []byte("nested"))

	s := New(Options{Root: root})
	res, err := s.Scan(context.Background(), manifestOf("sub/dir/tensor.bin"))
	require.NoError(t, err)

	require.Contains(t, res.Scanned, "sub/dir/tensor.bin")
	assert.Equal(t, sha, res.Scanned["sub/dir/tensor.bin"].SHA256)
}

func TestScan_DirectoryCountsAsMissing(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "model.safetensors"), 0o755))

	s := New(Options{Root: root})
	res, err := s.Scan(context.Background(), manifestOf("model.safetensors"))
	require.NoError(t, err)

	// Only regular files enter the work set.
	assert.Equal(t, []string{"model.safetensors"}, res.Missing)
	assert.Empty(t, res.Scanned)
}

func TestScan_EmptyManifest(t *testing.T) {
	s := New(Options{Root: t.TempDir()})
	res, err := s.Scan(context.Background(), types.Manifest{})
	require.NoError(t, err)
	assert.Empty(t, res.Scanned)
	assert.Empty(t, res.Missing)
}

// The final result keying must be identical however the pool schedules
// units; run the same scan with different worker counts and compare.
func TestScan_OrderIndependent(t *testing.T) {
	root := t.TempDir()
	manifest := make(types.Manifest)
	for i := 0; i < 20; i++ {
		name := filepath.Join("shards", string(rune('a'+i))+".bin")
		writeFixture(t, root, name, []byte{byte(i), byte(i + 1)})
		manifest[name] = types.ManifestEntry{Name: name}
	}

	baseline, err := New(Options{Root: root, Workers: 1}).Scan(context.Background(), manifest)
	require.NoError(t, err)

	parallel, err := New(Options{Root: root, Workers: 8}).Scan(context.Background(), manifest)
	require.NoError(t, err)

	assert.Equal(t, baseline.Scanned, parallel.Scanned)
}

func TestScan_Progress(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "a.bin", []byte("a"))
	writeFixture(t, root, "b.bin", []byte("b"))

	var mu sync.Mutex
	var seen []Progress
	s := New(Options{
		Root:    root,
		Workers: 2,
		OnProgress: func(p Progress) {
			mu.Lock()
			seen = append(seen, p)
			mu.Unlock()
		},
	})

	_, err := s.Scan(context.Background(), manifestOf("a.bin", "b.bin"))
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, 2, seen[0].Total)
	assert.Equal(t, 2, seen[1].Done)
}

// Cancellation must never make a file vanish from the result: every
// present manifest file lands in Scanned or Cancelled, nothing else.
func TestScan_CancelledFilesAccountedFor(t *testing.T) {
	root := t.TempDir()
	manifest := make(types.Manifest)
	for i := 0; i < 200; i++ {
		name := fmt.Sprintf("shard-%03d.safetensors", i)
		writeFixture(t, root, name, []byte("truncated-shard"))
		manifest[name] = types.ManifestEntry{Name: name, Size: 999999}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(Options{Root: root, Workers: 2}).Scan(ctx, manifest)
	require.NoError(t, err)

	assert.Empty(t, res.Missing)
	assert.Equal(t, 200, len(res.Scanned)+len(res.Cancelled))
	for name := range manifest {
		_, scanned := res.Scanned[name]
		if !scanned {
			assert.Contains(t, res.Cancelled, name)
		}
	}
	for _, name := range res.Cancelled {
		assert.NotContains(t, res.Scanned, name)
	}
}

func TestScan_CompleteRunHasNoCancelled(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "a.bin", []byte("a"))

	res, err := New(Options{Root: root}).Scan(context.Background(), manifestOf("a.bin"))
	require.NoError(t, err)
	assert.Empty(t, res.Cancelled)
	assert.Len(t, res.Scanned, 1)
}

func TestDefaultWorkers(t *testing.T) {
	n := DefaultWorkers()
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, MaxWorkers)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero selects default", 0, DefaultWorkers()},
		{"negative selects default", -3, DefaultWorkers()},
		{"small count kept", 2, 2},
		{"excess capped", 64, MaxWorkers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{Workers: tt.in}
			opts.Validate()
			assert.Equal(t, tt.want, opts.Workers)
		})
	}
}
