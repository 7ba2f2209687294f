package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHitCommand_Chain_RunsDependentNodeAfterPredecessor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/launch":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id": "abc123"}`))
		case "/confirm":
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeDropFile(t, dir, "launch.drop", `
mod = nasa

get "launch" {
  base_url = "`+srv.URL+`"
  path     = "/launch"
}

get "confirm" {
  base_url = "`+srv.URL+`"
  path     = "/confirm"
}

chain_node "fetch_launch" {
  hit = nasa.get.launch

  outputs = {
    launch_id = response.body.id
  }
}

chain_node "confirm_launch" {
  hit = nasa.get.confirm

  inputs = {
    id = chain.fetch_launch.launch_id
  }
}

chain "launch_flow" {
  nodes = [nasa.fetch_launch, nasa.confirm_launch]
}
`)

	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"--dir", dir, "hit", "nasa.launch_flow"})

	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "fetch_launch")
	require.Contains(t, buf.String(), "confirm_launch")
	require.Contains(t, buf.String(), "launch_id = abc123")
}
