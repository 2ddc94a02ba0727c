package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
	"git.home.luguber.info/inful/docbinder/internal/logfields"
)

// GitHubClient implements Repository against the GitHub REST API.
type GitHubClient struct {
	httpClient *http.Client
	apiURL     string
	token      string
	logger     *slog.Logger
}

// NewGitHubClient creates a client for apiURL. The token is optional; public
// repositories work without one at a lower rate limit.
func NewGitHubClient(apiURL, token string, logger *slog.Logger) *GitHubClient {
	if apiURL == "" {
		apiURL = "https://api.github.com"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GitHubClient{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		apiURL:     apiURL,
		token:      token,
		logger:     logger,
	}
}

// ResolveRef returns the commit SHA for ref, or for the default branch head
// when ref is empty.
func (c *GitHubClient) ResolveRef(ctx context.Context, identity, ref string) (string, error) {
	if ref == "" {
		ref = "HEAD"
	}
	req, err := c.newRequest(ctx, "repos", identity, "commits", ref)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github.sha")

	resp, err := c.doRequest(req, identity, ref)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to read commit lookup").Build()
	}
	sha := strings.TrimSpace(string(body))
	if sha == "" {
		return "", ferrors.NetworkError("empty commit identity from GitHub").
			WithContext("repository", identity).
			WithContext("ref", ref).
			Build()
	}
	c.logger.Debug("Resolved ref", logfields.Repository(identity), logfields.Ref(ref), logfields.Commit(sha))
	return sha, nil
}

// FetchSnapshot downloads the tarball for commit and extracts it into dest.
func (c *GitHubClient) FetchSnapshot(ctx context.Context, identity, commit, dest string) error {
	req, err := c.newRequest(ctx, "repos", identity, "tarball", commit)
	if err != nil {
		return err
	}
	resp, err := c.doRequest(req, identity, commit)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := extractTarball(resp.Body, dest); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to extract snapshot").
			WithContext("repository", identity).
			WithContext("commit", commit).
			Build()
	}
	return nil
}

func (c *GitHubClient) newRequest(ctx context.Context, segments ...string) (*http.Request, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid GitHub API URL").Build()
	}
	u.Path = path.Join(append([]string{u.Path}, segments...)...)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryInternal, "failed to build request").Build()
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "docbinder")
	return req, nil
}

// doRequest executes req and maps HTTP failures onto error categories. The
// caller owns the returned body.
func (c *GitHubClient) doRequest(req *http.Request, identity, ref string) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// An unreachable upstream cannot produce the source; resolution
		// policy treats it like a missing repository.
		return nil, ferrors.WrapError(err, ferrors.CategoryNotFound, "GitHub unreachable").
			WithContext("repository", identity).
			WithContext("ref", ref).
			Retryable().
			Build()
	}
	if resp.StatusCode < 400 {
		return resp, nil
	}
	_ = resp.Body.Close()

	msg := fmt.Sprintf("GitHub API error: %s", resp.Status)
	var b *ferrors.ErrorBuilder
	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusUnprocessableEntity:
		b = ferrors.NotFoundError(fmt.Sprintf("repository %s at %s not found", identity, ref))
	case http.StatusUnauthorized, http.StatusForbidden:
		b = ferrors.AuthError(msg)
	case http.StatusTooManyRequests:
		b = ferrors.NetworkError(msg).RateLimit()
	default:
		b = ferrors.NetworkError(msg)
	}
	return nil, b.WithContext("repository", identity).WithContext("ref", ref).Build()
}
