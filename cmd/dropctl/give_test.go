package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGiveCommand_BareCall_PrintsResolvedCallWithoutSendingRequest(t *testing.T) {
	dir := t.TempDir()
	writeDropFile(t, dir, "launch.drop", `
mod = nasa

get "launch" {
  base_url = "http://example.invalid"
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
	root.SetArgs([]string{"--dir", dir, "give", "nasa.get.launch"})

	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "GET")
	require.Contains(t, buf.String(), "http://example.invalid/launch")
	require.Contains(t, buf.String(), "assert:")
}

func TestGiveCommand_Chain_PrintsEveryNode(t *testing.T) {
	dir := t.TempDir()
	writeDropFile(t, dir, "launch.drop", `
mod = nasa

get "launch" {
  base_url = "http://example.invalid"
  path     = "/launch"
}

get "confirm" {
  base_url = "http://example.invalid"
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
	root.SetArgs([]string{"--dir", dir, "give", "nasa.launch_flow"})

	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "fetch_launch")
	require.Contains(t, buf.String(), "confirm_launch")
}

func TestGiveCommand_UnknownDropID_ReturnsError(t *testing.T) {
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
	root.SetArgs([]string{"--dir", dir, "give", "nasa.get.missing"})

	require.Error(t, root.Execute())
}
