package scope

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropctl/dropctl/internal/dropvalue"
)

func TestDeclareVar_OverwriteLogsWarningButSucceeds(t *testing.T) {
	t.Parallel()

	s := New()
	s.DeclareVar("x", dropvalue.Int(1))
	s.DeclareVar("x", dropvalue.Int(2))

	v, ok := s.Lookup("x")
	require.True(t, ok)
	n, _ := v.AsInt64()
	require.Equal(t, int64(2), n)

	warnings := s.Diagnostics().Of(OverwriteWarning)
	require.Len(t, warnings, 1)
	require.Equal(t, "x", warnings[0].Subject)
}

func TestOverlayObject_MakesTierTraversable(t *testing.T) {
	t.Parallel()

	s := New()
	secrets := dropvalue.NewObject()
	secrets.Set("token", dropvalue.Str("abc123"))
	s.OverlayObject(TierSecrets, secrets)

	v, ok := s.Lookup(TierSecrets)
	require.True(t, ok)
	obj, ok := v.AsObject()
	require.True(t, ok)
	tok, ok := obj.Get("token")
	require.True(t, ok)
	s2, _ := tok.AsString()
	require.Equal(t, "abc123", s2)
}

func TestClone_IsIndependentOfSource(t *testing.T) {
	t.Parallel()

	s := New()
	s.DeclareVar("a", dropvalue.Int(1))

	clone := s.Clone()
	clone.DeclareVar("a", dropvalue.Int(2))

	orig, _ := s.Lookup("a")
	cloned, _ := clone.Lookup("a")
	n1, _ := orig.AsInt64()
	n2, _ := cloned.AsInt64()
	require.Equal(t, int64(1), n1)
	require.Equal(t, int64(2), n2)
}

func TestDiagnostics_HasErrorsIgnoresOverwriteWarning(t *testing.T) {
	t.Parallel()

	d := &Diagnostics{}
	d.Add(Diagnostic{Kind: OverwriteWarning, Subject: "x"})
	require.False(t, d.HasErrors())

	d.Add(Diagnostic{Kind: NoSuchKey, Subject: "y"})
	require.True(t, d.HasErrors())
}
