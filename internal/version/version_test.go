package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	oldV, oldC, oldB := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldV, oldC, oldB })

	Version, GitCommit, BuildTime = "v1.0.0", "unknown", "unknown"
	require.Equal(t, "docbinder v1.0.0", String())

	GitCommit, BuildTime = "abc123", "2026-01-01"
	require.Equal(t, "docbinder v1.0.0 (commit abc123, built 2026-01-01)", String())
}
