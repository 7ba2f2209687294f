package dropconfig

import (
	"github.com/dropctl/dropctl/internal/dropvalue"
	"github.com/dropctl/dropctl/internal/eval"
)

// Block is the structured form of one parsed HCL block, prior to
// evaluation against a Scope (spec.md §3: "Each Block carries a DropId,
// its source Expression body, and a resolved form per kind"). Grounded on
// original_source/src/parser/drop_block.rs's DropBlock.
type Block struct {
	DropID   DropId
	FileName string

	// Attrs holds every attribute meant to be evaluated against a Scope:
	// base_url/path/headers/body/inputs/assert/after for Call/Run/
	// ChainNode blocks, or the free-form attribute set of a Module or
	// Environment block.
	Attrs []eval.AttributeExpr

	// Outputs holds the block's declared `outputs` traversals verbatim —
	// these select into the HTTP response after the call returns and are
	// never evaluated against a Scope (spec.md §4.3).
	Outputs []dropvalue.Expression

	// Hit is the `hit = <drop_id>` traversal of a Run or ChainNode block,
	// naming the Call it invokes. Nil for other block kinds.
	Hit dropvalue.Expression

	// Nodes holds a Chain block's `nodes = [...]` traversal list, each
	// naming a ChainNode block by drop id.
	Nodes []dropvalue.Expression

	// NamedOutputs holds a ChainNode block's `outputs = { key = ... }`
	// keyed traversal map — a ChainNode's outputs are addressed by name
	// from later nodes, unlike a Call or Run's positional Outputs list.
	NamedOutputs []dropvalue.ObjectEntry
}

// AttrsByKey returns the first attribute in Attrs with the given key, for
// callers that need one field without decoding the whole block (e.g. the
// module-declaration duplicate check).
func (b Block) AttrsByKey(key string) (dropvalue.Expression, bool) {
	for _, a := range b.Attrs {
		if a.Key == key {
			return a.Expr, true
		}
	}
	return nil, false
}
