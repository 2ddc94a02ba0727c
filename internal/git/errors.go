package git

import (
	"errors"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
)

// ClassifyGitError translates go-git errors into ClassifiedErrors.
func ClassifyGitError(err error, op string, url string) error {
	if err == nil {
		return nil
	}
	if _, ok := ferrors.AsClassified(err); ok {
		return err
	}

	builder := ferrors.GitError("git "+op+" failed").
		WithCause(err).
		WithContext("op", op).
		WithContext("url", url)

	l := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, transport.ErrRepositoryNotFound), errors.Is(err, transport.ErrEmptyRemoteRepository):
		builder.WithCategory(ferrors.CategoryNotFound)
	case errors.Is(err, transport.ErrAuthenticationRequired), errors.Is(err, transport.ErrAuthorizationFailed):
		builder.WithCategory(ferrors.CategoryAuth)
	case strings.Contains(l, "authentication failed") || strings.Contains(l, "not authorized") || strings.Contains(l, "invalid credentials"):
		builder.WithCategory(ferrors.CategoryAuth)
	case strings.Contains(l, "repository not found") || strings.Contains(l, "not found") || strings.Contains(l, "does not exist"):
		builder.WithCategory(ferrors.CategoryNotFound)
	case strings.Contains(l, "rate limit") || strings.Contains(l, "too many requests"):
		builder.WithCategory(ferrors.CategoryNetwork).RateLimit()
	case isUnreachable(l):
		// Unreachable upstreams resolve like missing repositories.
		builder.WithCategory(ferrors.CategoryNotFound).WithContext("unreachable", true).Retryable()
	case strings.Contains(l, "diverged") || strings.Contains(l, "non-fast-forward"):
		builder.WithContext("diverged", true)
	case strings.Contains(l, "unsupported protocol") || strings.Contains(l, "protocol not supported"):
		builder.WithCategory(ferrors.CategoryConfig)
	}
	return builder.Build()
}

func isUnreachable(msg string) bool {
	for _, s := range []string{"remote hung up", "connection reset", "connection refused", "timeout", "no route to host", "no such host"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
