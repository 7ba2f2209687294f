package dropctx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeDrop(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestNew_LoadsConfigAndOpensStore(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeDrop(t, dir, "nasa.drop", `
mod = nasa

mod "nasa" {
  region = "us-east"
}

get "launches" {
  base_url = "https://api.nasa.gov"
  path     = "/launches"
}
`)

	ctx, err := New(dir, "base", nil)
	require.NoError(t, err)
	defer ctx.Close()

	require.Equal(t, "base", ctx.Env)
	require.Len(t, ctx.Config.Calls, 1)
}

func TestContext_BuildScopeLayersGlobalEnvMod(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeDrop(t, dir, "nasa.drop", `
mod = nasa

mod "nasa" {
  region = "us-east"
}
`)

	ctx, err := New(dir, "base", nil)
	require.NoError(t, err)
	defer ctx.Close()

	s, diags, err := ctx.BuildScope("nasa")
	require.NoError(t, err)
	require.False(t, diags.HasFatal())
	require.NotNil(t, s)
}

func TestSetAndCurrent_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	ctx, err := New(dir, "base", nil)
	require.NoError(t, err)
	defer ctx.Close()

	Set(ctx)
	got, err := Current()
	require.NoError(t, err)
	require.Same(t, ctx, got)
	require.Equal(t, "base", CurrentEnv())
}
