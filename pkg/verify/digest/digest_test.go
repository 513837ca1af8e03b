package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmzncty/modelverify/pkg/verify/types"
)

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.bin")
	content := []byte("hello model weights")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	want := sha256.Sum256(content)

	result := File(path)
	assert.Equal(t, types.OutcomeComputed, result.Outcome)
	assert.Equal(t, hex.EncodeToString(want[:]), result.SHA256)
	assert.Equal(t, int64(len(content)), result.Size)
	assert.NoError(t, result.Err)
}

func TestFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	want := sha256.Sum256(nil)

	result := File(path)
	assert.Equal(t, types.OutcomeComputed, result.Outcome)
	assert.Equal(t, hex.EncodeToString(want[:]), result.SHA256)
	assert.Equal(t, int64(0), result.Size)
}

func TestFile_MultiBlock(t *testing.T) {
	// Larger than one read block so the streaming path is exercised.
	content := make([]byte, 3*BlockSize+17)
	for i := range content {
		content[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), "sharded.safetensors")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	want := sha256.Sum256(content)

	result := File(path)
	require.Equal(t, types.OutcomeComputed, result.Outcome)
	assert.Equal(t, hex.EncodeToString(want[:]), result.SHA256)
	assert.Equal(t, int64(len(content)), result.Size)
}

func TestFile_NotFound(t *testing.T) {
	result := File(filepath.Join(t.TempDir(), "nope.bin"))

	assert.Equal(t, types.OutcomeNotFound, result.Outcome)
	assert.Equal(t, types.SizeNotFound, result.Size)
	assert.Empty(t, result.SHA256)
	assert.Error(t, result.Err)
}

func TestFile_Directory(t *testing.T) {
	dir := t.TempDir()

	result := File(dir)
	assert.Equal(t, types.OutcomeReadError, result.Outcome)
	assert.Equal(t, types.SizeError, result.Size)
	assert.Error(t, result.Err)
}

func TestFile_SizeDriftDuringRead(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("relies on procfs stat sizes")
	}

	// procfs files stat as size 0 but read non-empty, the same signature
	// as a file a concurrent writer grew or truncated mid-read. The
	// digest would be of bytes the stat never described, so it must be
	// withheld.
	result := File("/proc/self/status")
	assert.Equal(t, types.OutcomeReadError, result.Outcome)
	assert.Equal(t, types.SizeError, result.Size)
	assert.Empty(t, result.SHA256)
	assert.Error(t, result.Err)
}

func TestFile_LowercaseHex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	result := File(path)
	require.Equal(t, types.OutcomeComputed, result.Outcome)
	assert.Equal(t, result.SHA256, types.NormalizeDigest(result.SHA256))
	assert.Len(t, result.SHA256, 64)
}
