// Package modelscope talks to the ModelScope hub: it fetches the
// authoritative file manifest for a model repository and restores a
// repository into a local cache via the modelscope CLI.
package modelscope

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tmzncty/modelverify/pkg/verify/logging"
	"github.com/tmzncty/modelverify/pkg/verify/types"
)

// DefaultBaseURL is the public ModelScope API endpoint.
const DefaultBaseURL = "https://modelscope.cn"

// DefaultTimeout bounds the manifest request. File listings for large
// repositories can run to hundreds of entries, so it is generous.
const DefaultTimeout = 60 * time.Second

// Error taxonomy for manifest fetching. All are fatal to the run (no
// scan can proceed without a manifest) but never fatal to the process.
var (
	// ErrTransport indicates a network-level failure.
	ErrTransport = errors.New("modelscope: transport error")

	// ErrProtocol indicates an unexpected HTTP status, API code, or
	// response shape.
	ErrProtocol = errors.New("modelscope: protocol error")

	// ErrParse indicates a malformed JSON body.
	ErrParse = errors.New("modelscope: parse error")
)

// apiCodeOK is the success code in the API envelope.
const apiCodeOK = 200

// fileInfo is one entry in the repo file listing.
type fileInfo struct {
	Name   string `json:"Name"`
	Type   string `json:"Type"`
	Sha256 string `json:"Sha256"`
	Size   int64  `json:"Size"`
}

// fileListResponse is the API envelope for the repo file listing.
type fileListResponse struct {
	Code int `json:"Code"`
	Data struct {
		Files []fileInfo `json:"Files"`
	} `json:"Data"`
}

// Client fetches file manifests from the ModelScope API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient creates a manifest client for the given API base URL.
// An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  logging.Get("modelscope"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchManifest retrieves the file listing for repoID at revision and
// normalizes it into a Manifest. Only blob entries are kept; tree and
// directory entries carry no digest and are dropped. Digests are
// lowercased so later comparisons are case-insensitive.
func (c *Client) FetchManifest(ctx context.Context, repoID, revision string) (types.Manifest, error) {
	endpoint := fmt.Sprintf("%s/api/v1/models/%s/repo/files?Revision=%s&Root=",
		c.baseURL, repoID, url.QueryEscape(revision))

	c.logger.Debug("fetching manifest", "url", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrTransport, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected HTTP status %d", ErrProtocol, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrTransport, err)
	}

	var listing fileListResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if listing.Code != apiCodeOK {
		return nil, fmt.Errorf("%w: API code %d", ErrProtocol, listing.Code)
	}
	if listing.Data.Files == nil {
		return nil, fmt.Errorf("%w: response missing file listing", ErrProtocol)
	}

	manifest := make(types.Manifest)
	for _, f := range listing.Data.Files {
		if f.Type != "blob" {
			continue
		}
		if f.Size < 0 {
			return nil, fmt.Errorf("%w: negative size %d for %s", ErrProtocol, f.Size, f.Name)
		}
		manifest[f.Name] = types.ManifestEntry{
			Name:   f.Name,
			SHA256: types.NormalizeDigest(f.Sha256),
			Size:   f.Size,
		}
	}

	c.logger.Info("fetched manifest", "repo", repoID, "revision", revision, "files", len(manifest))
	return manifest, nil
}
