package dropconfig

import (
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/dropctl/dropctl/internal/dropvalue"
	"github.com/dropctl/dropctl/internal/eval"
	pkgerrors "github.com/dropctl/dropctl/pkg/errors"
)

const globalModuleName = "global"

var nonModuleBlockKinds = map[string]bool{"global": true, "mod": true, "environment": true}
var noLabelBlockKinds = map[string]bool{"global": true}
var callBlockMethods = map[string]string{
	"get": "get", "post": "post", "put": "put", "patch": "patch", "delete": "delete",
}

func parseErr(path string, err error) error {
	return pkgerrors.NewParseError(path, 0, err)
}

// Load discovers and parses every *.drop file under dir, lowering each HCL
// block into a Block and aggregating them into a Config (spec.md §6,
// grounded on original_source/src/parser/mod.rs GlobalDropConfig).
func Load(dir string) (*Config, error) {
	files, err := DiscoverDropFiles(dir)
	if err != nil {
		return nil, parseErr(dir, fmt.Errorf("discovering drop files: %w", err))
	}

	var blocks []Block
	for _, path := range files {
		fileBlocks, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, fileBlocks...)
	}

	return buildConfig(blocks)
}

func loadFile(path string) ([]Block, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, parseErr(path, err)
	}

	file, diags := hclsyntax.ParseConfig(src, path, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, parseErr(path, fmt.Errorf("%s", diags.Error()))
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, parseErr(path, fmt.Errorf("unexpected body type %T", file.Body))
	}

	moduleDecl, hasModuleDecl := findModuleDeclaration(body)

	var blocks []Block
	for _, hclBlock := range body.Blocks {
		block, err := lowerBlock(hclBlock, moduleDecl, hasModuleDecl, path)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// findModuleDeclaration looks for a top-level `mod = <identifier>`
// attribute positioned before every other attribute and block in the
// file, matching original_source's "first attribute must be mod"
// convention (parser/block_type/module.rs get_module_declaration).
func findModuleDeclaration(body *hclsyntax.Body) (string, bool) {
	type positioned struct {
		offset int
		name   string
		attr   *hclsyntax.Attribute
	}

	var all []positioned
	for name, attr := range body.Attributes {
		all = append(all, positioned{offset: attr.SrcRange.Start.Byte, name: name, attr: attr})
	}
	for _, b := range body.Blocks {
		all = append(all, positioned{offset: b.SrcRange().Start.Byte})
	}
	if len(all) == 0 {
		return "", false
	}
	sort.Slice(all, func(i, j int) bool { return all[i].offset < all[j].offset })

	first := all[0]
	if first.attr == nil || first.name != "mod" {
		return "", false
	}
	traversal, ok := first.attr.Expr.(*hclsyntax.ScopeTraversalExpr)
	if !ok || len(traversal.Traversal) != 1 {
		return "", false
	}
	root, ok := traversal.Traversal[0].(hcl.TraverseRoot)
	if !ok {
		return "", false
	}
	return root.Name, true
}

func lowerBlock(hclBlock *hclsyntax.Block, moduleDecl string, hasModuleDecl bool, fileName string) (Block, error) {
	kind := hclBlock.Type

	if !nonModuleBlockKinds[kind] && !hasModuleDecl {
		return Block{}, parseErr(fileName, fmt.Errorf("block %q requires a module declaration (e.g. 'mod = nasa') in file %s", kind, fileName))
	}
	module := moduleDecl
	if module == "" {
		module = globalModuleName
	}

	title, err := blockTitle(hclBlock, kind, fileName)
	if err != nil {
		return Block{}, err
	}

	if method, isCall := callBlockMethods[kind]; isCall {
		return lowerCallLikeBlock(hclBlock, NewCallDropId(module, method, title), fileName)
	}

	switch kind {
	case "global", "mod":
		return lowerAttrOnlyBlock(hclBlock, NewDropId(module, ResourceModule, title), fileName)
	case "environment":
		return lowerAttrOnlyBlock(hclBlock, NewDropId(module, ResourceEnvironment, title), fileName)
	case "run":
		return lowerRunLikeBlock(hclBlock, NewRunDropId(module, title), fileName, false)
	case "chain_node":
		return lowerRunLikeBlock(hclBlock, NewDropId(module, ResourceChainNode, title), fileName, true)
	case "chain":
		return lowerChainBlock(hclBlock, NewDropId(module, ResourceChain, title), fileName)
	default:
		return Block{}, parseErr(fileName, fmt.Errorf("invalid block type %q in %s", kind, fileName))
	}
}

func blockTitle(hclBlock *hclsyntax.Block, kind, fileName string) (string, error) {
	if len(hclBlock.Labels) == 0 {
		if !noLabelBlockKinds[kind] {
			return "", parseErr(fileName, fmt.Errorf("block %q must have a label in %s", kind, fileName))
		}
		return globalModuleName, nil
	}
	if len(hclBlock.Labels) > 1 {
		return "", parseErr(fileName, fmt.Errorf("block %q has too many labels in %s", kind, fileName))
	}
	return hclBlock.Labels[0], nil
}

// lowerCallLikeBlock handles get/post/put/patch/delete blocks: every
// attribute except `outputs` is evaluated against a Scope later; outputs
// is a raw traversal list.
func lowerCallLikeBlock(hclBlock *hclsyntax.Block, id DropId, fileName string) (Block, error) {
	block := Block{DropID: id, FileName: fileName}

	for name, attr := range hclBlock.Body.Attributes {
		if name == "outputs" {
			outputs, err := lowerOutputsAttr(attr, id.String(), fileName)
			if err != nil {
				return Block{}, err
			}
			block.Outputs = outputs
			continue
		}
		expr, err := lowerExpr(attr.Expr)
		if err != nil {
			return Block{}, parseErr(fileName, fmt.Errorf("block %s attribute %s: %w", id, name, err))
		}
		block.Attrs = append(block.Attrs, eval.AttributeExpr{Key: name, Expr: expr})
	}
	return block, nil
}

// lowerRunLikeBlock handles run and chain_node blocks: `hit` and
// `outputs` are raw, everything else is evaluable. A chain_node's
// outputs are a named traversal map (namedOutputs true); a run's
// outputs are a positional traversal list.
func lowerRunLikeBlock(hclBlock *hclsyntax.Block, id DropId, fileName string, namedOutputs bool) (Block, error) {
	block := Block{DropID: id, FileName: fileName}

	for name, attr := range hclBlock.Body.Attributes {
		switch name {
		case "outputs":
			if namedOutputs {
				entries, err := lowerNamedOutputsAttr(attr, id.String(), fileName)
				if err != nil {
					return Block{}, err
				}
				block.NamedOutputs = entries
				continue
			}
			outputs, err := lowerOutputsAttr(attr, id.String(), fileName)
			if err != nil {
				return Block{}, err
			}
			block.Outputs = outputs
		case "hit":
			expr, err := lowerExpr(attr.Expr)
			if err != nil {
				return Block{}, parseErr(fileName, fmt.Errorf("block %s hit: %w", id, err))
			}
			block.Hit = expr
		default:
			expr, err := lowerExpr(attr.Expr)
			if err != nil {
				return Block{}, parseErr(fileName, fmt.Errorf("block %s attribute %s: %w", id, name, err))
			}
			block.Attrs = append(block.Attrs, eval.AttributeExpr{Key: name, Expr: expr})
		}
	}
	return block, nil
}

// lowerChainBlock handles a `chain` block's `nodes = [...]` list.
func lowerChainBlock(hclBlock *hclsyntax.Block, id DropId, fileName string) (Block, error) {
	block := Block{DropID: id, FileName: fileName}

	attr, ok := hclBlock.Body.Attributes["nodes"]
	if !ok {
		return Block{}, parseErr(fileName, fmt.Errorf("chain block %s is missing nodes", id))
	}
	tuple, ok := attr.Expr.(*hclsyntax.TupleConsExpr)
	if !ok {
		return Block{}, parseErr(fileName, fmt.Errorf("chain block %s nodes must be a list", id))
	}
	for _, el := range tuple.Exprs {
		expr, err := lowerExpr(el)
		if err != nil {
			return Block{}, parseErr(fileName, fmt.Errorf("chain block %s node reference: %w", id, err))
		}
		block.Nodes = append(block.Nodes, expr)
	}
	return block, nil
}

// lowerAttrOnlyBlock handles global/mod/environment blocks, whose entire
// body is a free-form set of evaluable attributes.
func lowerAttrOnlyBlock(hclBlock *hclsyntax.Block, id DropId, fileName string) (Block, error) {
	block := Block{DropID: id, FileName: fileName}
	for name, attr := range hclBlock.Body.Attributes {
		expr, err := lowerExpr(attr.Expr)
		if err != nil {
			return Block{}, parseErr(fileName, fmt.Errorf("block %s attribute %s: %w", id, name, err))
		}
		block.Attrs = append(block.Attrs, eval.AttributeExpr{Key: name, Expr: expr})
	}
	return block, nil
}

// lowerOutputsAttr lowers a block's `outputs = [...]` attribute, keeping
// each element as an unevaluated Expression since outputs name a path
// into the HTTP response rather than a Scope-resolvable value.
func lowerOutputsAttr(attr *hclsyntax.Attribute, dropID, fileName string) ([]dropvalue.Expression, error) {
	tuple, ok := attr.Expr.(*hclsyntax.TupleConsExpr)
	if !ok {
		return nil, parseErr(fileName, fmt.Errorf("block %s outputs must be a list", dropID))
	}
	exprs := make([]dropvalue.Expression, 0, len(tuple.Exprs))
	for _, el := range tuple.Exprs {
		lowered, err := lowerExpr(el)
		if err != nil {
			return nil, parseErr(fileName, fmt.Errorf("block %s output: %w", dropID, err))
		}
		exprs = append(exprs, lowered)
	}
	return exprs, nil
}

// lowerNamedOutputsAttr lowers a chain_node's `outputs = { key = traversal
// }` attribute, grounded on original_source's ChainNode.outputs
// (Object<ObjectKey, Traversal>): each value names a path into the
// node's own response, addressed by key from downstream nodes.
func lowerNamedOutputsAttr(attr *hclsyntax.Attribute, dropID, fileName string) ([]dropvalue.ObjectEntry, error) {
	obj, ok := attr.Expr.(*hclsyntax.ObjectConsExpr)
	if !ok {
		return nil, parseErr(fileName, fmt.Errorf("chain_node %s outputs must be an object of name = traversal pairs", dropID))
	}
	entries := make([]dropvalue.ObjectEntry, 0, len(obj.Items))
	for _, item := range obj.Items {
		keyExpr, err := lowerObjectKey(item.KeyExpr)
		if err != nil {
			return nil, parseErr(fileName, fmt.Errorf("chain_node %s output key: %w", dropID, err))
		}
		valExpr, err := lowerExpr(item.ValueExpr)
		if err != nil {
			return nil, parseErr(fileName, fmt.Errorf("chain_node %s output: %w", dropID, err))
		}
		entries = append(entries, dropvalue.ObjectEntry{Key: keyExpr, Value: valExpr})
	}
	return entries, nil
}
