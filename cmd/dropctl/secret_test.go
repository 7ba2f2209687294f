package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfirmSecretSet_NonTerminalStdin_AcceptsYLine(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	original := os.Stdin
	os.Stdin = r
	t.Cleanup(func() { os.Stdin = original })

	go func() {
		w.WriteString("y\n")
		w.Close()
	}()

	out := &bytes.Buffer{}
	confirmed, err := confirmSecretSet(out, "base", "token", "shh")
	require.NoError(t, err)
	require.True(t, confirmed)
	require.Contains(t, out.String(), "token")
}

func TestConfirmSecretSet_NonTerminalStdin_RejectsAnythingElse(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	original := os.Stdin
	os.Stdin = r
	t.Cleanup(func() { os.Stdin = original })

	go func() {
		w.WriteString("n\n")
		w.Close()
	}()

	confirmed, err := confirmSecretSet(&bytes.Buffer{}, "base", "token", "shh")
	require.NoError(t, err)
	require.False(t, confirmed)
}

func TestSecretCommand_GetListsStoredSecrets(t *testing.T) {
	dir := t.TempDir()
	writeDropFile(t, dir, "launch.drop", `
mod = nasa

get "launch" {
  base_url = "http://example.invalid"
  path     = "/launch"
}
`)

	root := newRootCmd()
	setBuf := &bytes.Buffer{}
	root.SetOut(setBuf)
	root.SetErr(setBuf)
	root.SetArgs([]string{"--dir", dir, "secret", "set", "--key", "token", "--value", "abc123"})

	r, w, err := os.Pipe()
	require.NoError(t, err)
	original := os.Stdin
	os.Stdin = r
	go func() {
		w.WriteString("y\n")
		w.Close()
	}()

	require.NoError(t, root.Execute())
	os.Stdin = original
	r.Close()

	root2 := newRootCmd()
	getBuf := &bytes.Buffer{}
	root2.SetOut(getBuf)
	root2.SetErr(getBuf)
	root2.SetArgs([]string{"--dir", dir, "secret", "get"})

	require.NoError(t, root2.Execute())
	require.Contains(t, getBuf.String(), "token")
	require.Contains(t, getBuf.String(), "abc123")
}
