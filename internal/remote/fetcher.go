// Package remote provides fetchers for property and tabular sources addressed by URL
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// maxContentSize caps a single fetched document (10 MB)
	maxContentSize = 10 * 1024 * 1024

	userAgent = "choicectl-remote-source"
)

// Fetcher defines the interface for remote content fetchers
type Fetcher interface {
	Fetch(ctx context.Context, path, ref string) ([]byte, error)
	Protocol() string
}

// Options configures the HTTP based fetchers
type Options struct {
	Timeout time.Duration
	Retries uint64
	Token   string // GitHub token; falls back to GITHUB_TOKEN
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Token == "" {
		o.Token = os.Getenv("GITHUB_TOKEN")
	}
	return o
}

// ParseLocation splits a source location into protocol, path and ref
// Examples:
//
//	github:owner/repo/path/choices.properties@main -> "github", "owner/repo/path/choices.properties", "main"
//	https://example.com/choices.properties         -> "https", "https://example.com/choices.properties", ""
//	file:///etc/choices.properties                 -> "file", "/etc/choices.properties", ""
func ParseLocation(location string) (protocol, path, ref string, err error) {
	if strings.HasPrefix(location, "github:") {
		rest := strings.TrimPrefix(location, "github:")
		if idx := strings.LastIndex(rest, "@"); idx != -1 {
			return "github", rest[:idx], rest[idx+1:], nil
		}
		return "github", rest, "", nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid source URL %q: %w", location, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "https", "http":
		return strings.ToLower(u.Scheme), location, "", nil
	case "file":
		return "file", u.Path, "", nil
	case "":
		return "", "", "", fmt.Errorf("no protocol in source location: %s", location)
	default:
		return "", "", "", fmt.Errorf("unsupported protocol in source location: %s", location)
	}
}

// IsRemoteLocation checks if a location names a remote source rather than a local path
func IsRemoteLocation(location string) bool {
	protocol, _, _, err := ParseLocation(location)
	return err == nil && protocol != ""
}

// Registry dispatches locations to the fetcher registered for their protocol
type Registry struct {
	fetchers map[string]Fetcher
}

// NewRegistry creates a registry holding the given fetchers
func NewRegistry(fetchers ...Fetcher) *Registry {
	r := &Registry{fetchers: make(map[string]Fetcher, len(fetchers))}
	for _, f := range fetchers {
		r.fetchers[f.Protocol()] = f
	}
	return r
}

// NewDefaultRegistry registers the http, https, file and github fetchers
func NewDefaultRegistry(opts Options) *Registry {
	return NewRegistry(
		NewHTTPFetcher("https", opts),
		NewHTTPFetcher("http", opts),
		NewFileFetcher(),
		NewGitHubFetcher(opts),
	)
}

// Fetch retrieves the document at location
func (r *Registry) Fetch(ctx context.Context, location string) ([]byte, error) {
	protocol, path, ref, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	f, ok := r.fetchers[protocol]
	if !ok {
		return nil, fmt.Errorf("no fetcher registered for protocol %q", protocol)
	}
	return f.Fetch(ctx, path, ref)
}

// GitHubFetcher fetches content from GitHub repositories
type GitHubFetcher struct {
	token   string
	client  *http.Client
	retries uint64
	apiBase string
	rawBase string
}

// NewGitHubFetcher creates a new GitHub fetcher
func NewGitHubFetcher(opts Options) *GitHubFetcher {
	opts = opts.withDefaults()
	return &GitHubFetcher{
		token:   opts.Token,
		client:  &http.Client{Timeout: opts.Timeout},
		retries: opts.Retries,
		apiBase: "https://api.github.com",
		rawBase: "https://raw.githubusercontent.com",
	}
}

// Protocol returns the protocol identifier
func (g *GitHubFetcher) Protocol() string {
	return "github"
}

// Fetch retrieves content from a GitHub repository
func (g *GitHubFetcher) Fetch(ctx context.Context, path, ref string) ([]byte, error) {
	// Parse: owner/repo/path/to/file
	parts := strings.SplitN(path, "/", 3)
	if len(parts) < 3 {
		return nil, fmt.Errorf("invalid GitHub path format, expected owner/repo/path/file, got: %s", path)
	}

	owner, repo, filePath := parts[0], parts[1], parts[2]

	if ref == "" {
		var err error
		ref, err = g.defaultBranch(ctx, owner, repo)
		if err != nil {
			return nil, fmt.Errorf("failed to detect default branch: %w", err)
		}
	}

	rawURL := fmt.Sprintf("%s/%s/%s/%s/%s", g.rawBase, owner, repo, ref, filePath)
	return getWithRetry(ctx, g.client, rawURL, g.retries, g.authorize)
}

func (g *GitHubFetcher) authorize(req *http.Request) {
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
}

// defaultBranch asks the GitHub API for the repository default branch, assuming main on failure
func (g *GitHubFetcher) defaultBranch(ctx context.Context, owner, repo string) (string, error) {
	apiURL := fmt.Sprintf("%s/repos/%s/%s", g.apiBase, owner, repo)
	body, err := getWithRetry(ctx, g.client, apiURL, 0, g.authorize)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "main", nil
	}

	var repoInfo struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := json.Unmarshal(body, &repoInfo); err != nil || repoInfo.DefaultBranch == "" {
		return "main", nil
	}
	return repoInfo.DefaultBranch, nil
}

// HTTPFetcher fetches content from plain HTTP or HTTPS URLs
type HTTPFetcher struct {
	scheme  string
	client  *http.Client
	retries uint64
}

// NewHTTPFetcher creates a fetcher for the given scheme ("http" or "https")
func NewHTTPFetcher(scheme string, opts Options) *HTTPFetcher {
	opts = opts.withDefaults()
	return &HTTPFetcher{
		scheme:  scheme,
		client:  &http.Client{Timeout: opts.Timeout},
		retries: opts.Retries,
	}
}

// Protocol returns the protocol identifier
func (h *HTTPFetcher) Protocol() string {
	return h.scheme
}

// Fetch retrieves content from a URL
func (h *HTTPFetcher) Fetch(ctx context.Context, rawURL, _ string) ([]byte, error) {
	return getWithRetry(ctx, h.client, rawURL, h.retries, nil)
}

// FileFetcher reads file:// URLs from the local filesystem
type FileFetcher struct{}

// NewFileFetcher creates a new file URL fetcher
func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

// Protocol returns the protocol identifier
func (f *FileFetcher) Protocol() string {
	return "file"
}

// Fetch reads the file at path
func (f *FileFetcher) Fetch(_ context.Context, path, _ string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return io.ReadAll(io.LimitReader(file, maxContentSize))
}

// statusError is returned for non-200 responses
type statusError struct {
	URL    string
	Status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.Status)
}

// getWithRetry performs a GET, retrying transport failures and 5xx responses
func getWithRetry(ctx context.Context, client *http.Client, rawURL string, retries uint64, decorate func(*http.Request)) ([]byte, error) {
	var content []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", userAgent)
		if decorate != nil {
			decorate(req)
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("failed to fetch %s: %w", rawURL, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			serr := &statusError{URL: rawURL, Status: resp.StatusCode}
			if resp.StatusCode >= 500 {
				return serr
			}
			return backoff.Permanent(serr)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxContentSize))
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		content = body
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 0

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx))
	if err != nil {
		return nil, err
	}
	return content, nil
}
