// Package digest computes SHA-256 content digests for local model files.
// Files may be many gigabytes, so content is streamed in fixed-size
// blocks to bound peak memory. Failures are reported as outcomes rather
// than errors so a bad file never aborts a batch.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/tmzncty/modelverify/pkg/verify/types"
)

// BlockSize is the read block size for streaming digests.
const BlockSize = 64 * 1024

// Result is the outcome of digesting a single file.
type Result struct {
	// SHA256 is the lowercase hex digest. Empty unless Outcome is
	// OutcomeComputed.
	SHA256 string

	// Size is the byte count actually read, or a negative sentinel.
	Size int64

	// Outcome classifies the result.
	Outcome types.Outcome

	// Err carries the underlying cause for non-computed outcomes. It is
	// a side-channel for logging; callers decide classification from
	// Outcome alone.
	Err error
}

// File digests the file at path, reading sequentially in BlockSize
// blocks. It never returns an error: a missing file yields
// OutcomeNotFound, and any read failure yields OutcomeReadError with
// the cause in Err. The target file is never modified.
func File(path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Size: types.SizeNotFound, Outcome: types.OutcomeNotFound, Err: err}
		}
		return Result{Size: types.SizeError, Outcome: types.OutcomeReadError, Err: err}
	}
	if !info.Mode().IsRegular() {
		return Result{
			Size:    types.SizeError,
			Outcome: types.OutcomeReadError,
			Err:     fmt.Errorf("%s is not a regular file", path),
		}
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Size: types.SizeNotFound, Outcome: types.OutcomeNotFound, Err: err}
		}
		return Result{Size: types.SizeError, Outcome: types.OutcomeReadError, Err: err}
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, BlockSize)
	var read int64
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			read += int64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return Result{Size: types.SizeError, Outcome: types.OutcomeReadError, Err: readErr}
		}
	}

	// A byte count that disagrees with the stat size means a concurrent
	// writer mutated the file mid-read. Report an error outcome rather
	// than a silently wrong digest.
	if read != info.Size() {
		return Result{
			Size:    types.SizeError,
			Outcome: types.OutcomeReadError,
			Err: fmt.Errorf("read %d bytes but stat reported %d for %s (concurrent modification?)",
				read, info.Size(), path),
		}
	}

	return Result{
		SHA256:  hex.EncodeToString(h.Sum(nil)),
		Size:    read,
		Outcome: types.OutcomeComputed,
	}
}
