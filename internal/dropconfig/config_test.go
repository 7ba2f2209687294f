package dropconfig

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropctl/dropctl/internal/dropvalue"
	"github.com/dropctl/dropctl/internal/eval"
)

func TestConfig_ModuleSourceLookups(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Modules: []Block{
			{DropID: NewDropId(globalModuleName, ResourceModule, globalModuleName),
				Attrs: []eval.AttributeExpr{{Key: "api_version", Expr: dropvalue.Literal{Value: dropvalue.Str("v1")}}}},
			{DropID: NewDropId("nasa", ResourceModule, "nasa"),
				Attrs: []eval.AttributeExpr{{Key: "region", Expr: dropvalue.Literal{Value: dropvalue.Str("us-east")}}}},
		},
		Environments: []Block{
			{DropID: NewDropId("nasa", ResourceEnvironment, "base"),
				Attrs: []eval.AttributeExpr{{Key: "base_url", Expr: dropvalue.Literal{Value: dropvalue.Str("https://api.nasa.gov")}}}},
		},
	}

	require.Len(t, cfg.GlobalAttrs(), 1)

	modAttrs, ok := cfg.ModuleAttrs("nasa")
	require.True(t, ok)
	require.Len(t, modAttrs, 1)

	_, ok = cfg.ModuleAttrs("missing")
	require.False(t, ok)

	envAttrs, ok := cfg.EnvironmentAttrs("base")
	require.True(t, ok)
	require.Len(t, envAttrs, 1)
}

func TestConfig_FindByDropId(t *testing.T) {
	t.Parallel()

	call := Block{DropID: NewCallDropId("nasa", "get", "launches")}
	run := Block{DropID: NewRunDropId("nasa", "fetch")}
	cfg := &Config{Calls: []Block{call}, Runs: []Block{run}}

	found, ok := cfg.FindCall("nasa.get.launches")
	require.True(t, ok)
	require.Equal(t, call.DropID, found.DropID)

	_, ok = cfg.FindCall("nasa.get.missing")
	require.False(t, ok)

	foundRun, ok := cfg.FindRun("nasa.run.fetch")
	require.True(t, ok)
	require.Equal(t, run.DropID, foundRun.DropID)
}

func TestConfig_FindChain(t *testing.T) {
	t.Parallel()

	chain := Block{DropID: NewDropId("nasa", ResourceChain, "launch_flow")}
	cfg := &Config{Chains: []Block{chain}}

	found, ok := cfg.FindChain("nasa.launch_flow")
	require.True(t, ok)
	require.Equal(t, chain.DropID, found.DropID)

	_, ok = cfg.FindChain("nasa.missing")
	require.False(t, ok)
}
