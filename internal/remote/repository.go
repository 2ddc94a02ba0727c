// Package remote materializes snapshots of remote repositories into an
// on-disk cache keyed by (repository, commit identity).
package remote

import (
	"context"
	"strings"
)

//go:generate mockgen -source=repository.go -destination=mocks/mock_repository.go -package=mocks

// Repository is the upstream collaborator. Both operations return a
// not_found ClassifiedError when the repository or ref does not exist.
type Repository interface {
	// ResolveRef maps ref to a commit identity. An empty ref means the
	// default branch head.
	ResolveRef(ctx context.Context, identity, ref string) (string, error)
	// FetchSnapshot writes the tree at commit into dest, which exists and is empty.
	FetchSnapshot(ctx context.Context, identity, commit, dest string) error
}

// SplitIdentity splits "owner/name" into its parts.
func SplitIdentity(identity string) (owner, name string) {
	owner, name, found := strings.Cut(identity, "/")
	if !found {
		return "", identity
	}
	return owner, name
}
