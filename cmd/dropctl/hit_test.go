package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeDropFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}

func TestHitCommand_BareCall_PrintsAssertionSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 7}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeDropFile(t, dir, "launch.drop", `
mod = nasa

get "launch" {
  base_url = "`+srv.URL+`"
  path     = "/launch"

  assert = {
    "response.body.id" = 7
  }
}
`)

	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"--dir", dir, "hit", "nasa.get.launch"})

	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "pass")
}

func TestHitCommand_UnknownDropID_ReturnsError(t *testing.T) {
	dir := t.TempDir()
	writeDropFile(t, dir, "empty.drop", `
mod = nasa

get "launch" {
  base_url = "http://example.invalid"
  path     = "/launch"
}
`)

	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"--dir", dir, "hit", "nasa.get.missing"})

	require.Error(t, root.Execute())
}
