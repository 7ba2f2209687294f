package dropconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscoverDropFiles_FindsNestedDropFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "root.drop"), []byte(""), 0o644))

	nested := filepath.Join(dir, "nasa")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "launches.drop"), []byte(""), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte(""), 0o644))

	found, err := DiscoverDropFiles(dir)
	require.NoError(t, err)
	require.Len(t, found, 2)
}

func TestDiscoverDropFiles_SkipsExcludedDirectories(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	skipped := filepath.Join(dir, "__test__")
	require.NoError(t, os.MkdirAll(skipped, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(skipped, "fixture.drop"), []byte(""), 0o644))

	gitDir := filepath.Join(dir, ".git")
	require.NoError(t, os.MkdirAll(gitDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "hooks.drop"), []byte(""), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "kept.drop"), []byte(""), 0o644))

	found, err := DiscoverDropFiles(dir)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Contains(t, found[0], "kept.drop")
}
