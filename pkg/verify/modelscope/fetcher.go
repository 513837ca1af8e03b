package modelscope

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/charmbracelet/log"
	"github.com/tmzncty/modelverify/pkg/verify/logging"
)

// ErrFetch indicates the repository fetch failed. The run ends advising
// a manual re-run; fetches are never retried automatically.
var ErrFetch = errors.New("modelscope: fetch failed")

// Fetcher restores a full model repository into a local cache. It must
// be idempotent: calling it when some files already exist and are valid
// is safe, and it is always invoked once per repository, never per file.
type Fetcher interface {
	Fetch(ctx context.Context, repoID string) error
}

// FetchConfig configures a CLIFetcher. Configuration is explicit and
// scoped to the child process; the fetcher never mutates this process's
// environment.
type FetchConfig struct {
	// CacheRoot is the snapshot cache directory the downloader uses.
	CacheRoot string

	// Binary is the downloader executable. Empty means "modelscope".
	Binary string

	// Debug enables the downloader SDK's debug logging.
	Debug bool
}

// CLIFetcher shells out to the modelscope CLI to download or verify the
// full repository snapshot.
type CLIFetcher struct {
	cfg    FetchConfig
	logger *log.Logger
}

// NewCLIFetcher creates a fetcher with the given configuration.
func NewCLIFetcher(cfg FetchConfig) *CLIFetcher {
	if cfg.Binary == "" {
		cfg.Binary = "modelscope"
	}
	return &CLIFetcher{cfg: cfg, logger: logging.Get("fetcher")}
}

// Fetch runs one whole-repository download. The downloader performs its
// own network I/O and local writes; this process only waits for it.
func (f *CLIFetcher) Fetch(ctx context.Context, repoID string) error {
	bin, err := exec.LookPath(f.cfg.Binary)
	if err != nil {
		return fmt.Errorf("%w: %s not found in PATH: %v", ErrFetch, f.cfg.Binary, err)
	}

	args := []string{"download", "--model", repoID}
	if f.cfg.CacheRoot != "" {
		args = append(args, "--cache_dir", f.cfg.CacheRoot)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// Pass the cache location and debug toggle to the child only.
	env := os.Environ()
	if f.cfg.CacheRoot != "" {
		env = append(env, "MODELSCOPE_CACHE="+f.cfg.CacheRoot)
	}
	if f.cfg.Debug {
		env = append(env, "MODELSCOPE_SDK_DEBUG=1")
	}
	cmd.Env = env

	f.logger.Info("fetching repository", "repo", repoID, "cache_root", f.cfg.CacheRoot)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return nil
}

// Ensure CLIFetcher implements Fetcher.
var _ Fetcher = (*CLIFetcher)(nil)
