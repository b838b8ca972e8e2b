package versions

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	t.Parallel()

	info := Get()
	require.NotEmpty(t, info.Version)
	require.NotEmpty(t, info.GoVersion)
	require.Contains(t, info.Platform, "/")
}

func TestBuildWithExplicitValues(t *testing.T) {
	t.Parallel()

	info := build("1.2.3", "abcdef123456", "2026-01-15T10:30:00Z")
	require.Equal(t, "1.2.3", info.Version)
	require.Equal(t, "abcdef123456", info.Commit)
	require.Equal(t, "2026-01-15 10:30:00 UTC", info.BuildDate)
}

func TestBuildDevVersionUsesCommit(t *testing.T) {
	t.Parallel()

	info := build("dev", "0123456789abcdef", unknown)
	require.Equal(t, "build-01234567", info.Version)
}
