package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Mr-Dark-debug/codevis/internal/graph"
	"github.com/Mr-Dark-debug/codevis/internal/logging"
)

// GitHubOptions configures GitHubSource.
type GitHubOptions struct {
	APIURL     string // default https://api.github.com
	Token      string // optional bearer token
	DefaultRef string // used when the repo URL names no ref; default "main"
	Timeout    time.Duration
	Retry      RetryConfig
	Client     *http.Client // overrides Timeout when set

	// Group collapses identical in-flight fetches. Sources built by the
	// same Resolver share one; nil gives the source its own.
	Group *singleflight.Group
}

// defaultAttemptTimeout bounds one shared attempt when Timeout is unset.
const defaultAttemptTimeout = 30 * time.Second

// GitHubSource lists a repository through the git trees API.
// Concurrent fetches of the same repository share one request.
type GitHubSource struct {
	repo   Repo
	opts   GitHubOptions
	client *http.Client
	group  *singleflight.Group
}

// NewGitHubSource creates a source for repo. A zero Retry selects
// DefaultRetryConfig.
func NewGitHubSource(repo Repo, opts GitHubOptions) *GitHubSource {
	if opts.APIURL == "" {
		opts.APIURL = "https://api.github.com"
	}
	opts.APIURL = strings.TrimRight(opts.APIURL, "/")
	if opts.DefaultRef == "" {
		opts.DefaultRef = "main"
	}
	if repo.Ref == "" {
		repo.Ref = opts.DefaultRef
	}
	if opts.Retry.MaxAttempts == 0 && opts.Retry.InitialWait == 0 {
		opts.Retry = DefaultRetryConfig()
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	group := opts.Group
	if group == nil {
		group = new(singleflight.Group)
	}
	return &GitHubSource{repo: repo, opts: opts, client: client, group: group}
}

// Name implements Source.
func (g *GitHubSource) Name() string { return "github:" + g.repo.String() }

// Repo returns the repository being listed, with the ref resolved.
func (g *GitHubSource) Repo() Repo { return g.repo }

// Fetch implements Source.
func (g *GitHubSource) Fetch(ctx context.Context) ([]graph.Entry, error) {
	l, err := g.List(ctx)
	if err != nil {
		return nil, err
	}
	return l.Entries, nil
}

// List implements Lister. The shared request runs detached from ctx, so
// one waiter giving up does not fail the others; ctx only ends this
// caller's wait.
func (g *GitHubSource) List(ctx context.Context) (*Listing, error) {
	endpoint := g.treeURL()
	ch := g.group.DoChan(g.flightKey(endpoint), func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.sharedTimeout())
		defer cancel()
		return withRetry(shared, g.opts.Retry, func(attempt int) (*Listing, error) {
			l, err := g.fetchOnce(shared, endpoint)
			if err != nil && isTransient(err) {
				logging.Warn("tree fetch failed, retrying",
					logging.Source(g.Name()),
					logging.Int("attempt", attempt),
					logging.Err(err),
				)
			}
			return l, err
		})
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("listing %s: %w", g.repo, res.Err)
		}
		l := res.Val.(*Listing)
		if l.Truncated {
			logging.Warn("manifest incomplete",
				logging.Source(g.Name()),
				logging.Int("entries", len(l.Entries)),
				logging.Err(ErrTruncated),
			)
		}
		return l, nil
	}
}

// flightKey separates callers with different credentials.
func (g *GitHubSource) flightKey(endpoint string) string {
	if g.opts.Token == "" {
		return endpoint
	}
	return endpoint + "#auth"
}

// sharedTimeout bounds a shared fetch across all retry attempts.
func (g *GitHubSource) sharedTimeout() time.Duration {
	per := g.opts.Timeout
	if per <= 0 {
		per = defaultAttemptTimeout
	}
	attempts := g.opts.Retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return time.Duration(attempts) * (per + g.opts.Retry.MaxWait)
}

func (g *GitHubSource) treeURL() string {
	return fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		g.opts.APIURL,
		url.PathEscape(g.repo.Owner),
		url.PathEscape(g.repo.Name),
		url.PathEscape(g.repo.Ref),
	)
}

// treeResponse is the subset of the git trees payload we read.
type treeResponse struct {
	SHA       string        `json:"sha"`
	Tree      []graph.Entry `json:"tree"`
	Truncated bool          `json:"truncated"`
}

func (g *GitHubSource) fetchOnce(ctx context.Context, endpoint string) (*Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "codevis")
	if g.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.opts.Token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, transient(fmt.Errorf("requesting tree: %w", err))
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return nil, err
	}

	var body treeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding tree response: %w", err)
	}
	if body.Tree == nil {
		body.Tree = []graph.Entry{}
	}
	return &Listing{Entries: body.Tree, Truncated: body.Truncated, Revision: body.SHA}, nil
}

// HTTPError is a non-success response from the host.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("host returned %d", e.Status)
	}
	return fmt.Sprintf("host returned %d: %s", e.Status, e.Message)
}

// ErrRateLimited is wrapped by errors caused by an exhausted API quota.
var ErrRateLimited = errors.New("API rate limit exceeded")

func statusError(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var payload struct {
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &payload)
	herr := &HTTPError{Status: resp.StatusCode, Message: payload.Message}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return transient(herr)
	case resp.StatusCode >= 500:
		return transient(herr)
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return fmt.Errorf("%w: %w", ErrRateLimited, herr)
	default:
		return herr
	}
}
