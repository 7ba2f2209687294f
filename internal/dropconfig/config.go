package dropconfig

import (
	"fmt"

	"github.com/dropctl/dropctl/internal/eval"
	pkgerrors "github.com/dropctl/dropctl/pkg/errors"
)

// Config aggregates every Block discovered under a drop directory,
// classified by resource kind, grounded on
// original_source/src/parser/mod.rs's GlobalDropConfig.
type Config struct {
	Calls        []Block
	Runs         []Block
	Chains       []Block
	ChainNodes   []Block
	Modules      []Block
	Environments []Block
}

// buildConfig classifies the flat block list produced by loadFile into a
// Config, synthesizing placeholder Module blocks for module names that
// were declared via a file's `mod = x` attribute but never given their
// own `mod "x" { }` block (original's "blockless module declaration").
func buildConfig(blocks []Block) (*Config, error) {
	cfg := &Config{}
	declaredModules := map[string]bool{globalModuleName: true}
	ownBlockModules := map[string]bool{}

	for _, b := range blocks {
		declaredModules[b.DropID.Module] = true

		switch b.DropID.ResourceType {
		case ResourceCall:
			cfg.Calls = append(cfg.Calls, b)
		case ResourceRun:
			cfg.Runs = append(cfg.Runs, b)
		case ResourceChain:
			cfg.Chains = append(cfg.Chains, b)
		case ResourceChainNode:
			cfg.ChainNodes = append(cfg.ChainNodes, b)
		case ResourceModule:
			cfg.Modules = append(cfg.Modules, b)
			ownBlockModules[b.ResourceName()] = true
		case ResourceEnvironment:
			cfg.Environments = append(cfg.Environments, b)
		default:
			return nil, parseErr(b.FileName, fmt.Errorf("block %s has unknown resource type", b.DropID))
		}
	}

	for name := range declaredModules {
		if name == globalModuleName || ownBlockModules[name] {
			continue
		}
		cfg.Modules = append(cfg.Modules, Block{DropID: NewDropId(name, ResourceModule, name)})
	}

	if err := detectDuplicateAttrsSameResource(cfg.Modules); err != nil {
		return nil, err
	}
	if err := detectDuplicateAttrsSameResource(cfg.Environments); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ResourceName returns the block's DropId resource name, the key used to
// match a Module or Environment block against the currently selected
// module or environment.
func (b Block) ResourceName() string {
	return b.DropID.ResourceName()
}

// detectDuplicateAttrsSameResource enforces SPEC_FULL.md's supplemented
// duplicate-key rule: declaring the same attribute key twice within the
// same module or the same environment (blocks are keyed by their
// resource name, whichever module they belong to) — even if the two
// declarations live in separate `environment "base" { }` blocks spread
// across files — is a fatal configuration error rather than a silent
// last-write-wins merge (stricter than ordinary cross-tier shadowing).
func detectDuplicateAttrsSameResource(blocks []Block) error {
	type key struct {
		name string
		attr string
	}
	type seenEntry struct{ file string }
	seen := map[key]seenEntry{}
	for _, b := range blocks {
		for _, a := range b.Attrs {
			k := key{name: b.ResourceName(), attr: a.Key}
			if prior, ok := seen[k]; ok {
				return pkgerrors.NewValidationError(a.Key,
					fmt.Sprintf("duplicate attribute %q for %s declared in both %s and %s", a.Key, b.ResourceName(), prior.file, b.FileName), nil)
			}
			seen[k] = seenEntry{file: b.FileName}
		}
	}
	return nil
}

// GlobalAttrs implements eval.ModuleSource: the flattened attribute set
// of every block named "global" (spec.md §3: the global module's entries
// are declared directly as top-level variables).
func (c *Config) GlobalAttrs() []eval.AttributeExpr {
	var attrs []eval.AttributeExpr
	for _, b := range c.Modules {
		if b.ResourceName() == globalModuleName {
			attrs = append(attrs, b.Attrs...)
		}
	}
	return attrs
}

// EnvironmentAttrs implements eval.ModuleSource, merging every
// environment block sharing the given name (blocks may be split across
// files).
func (c *Config) EnvironmentAttrs(name string) ([]eval.AttributeExpr, bool) {
	var attrs []eval.AttributeExpr
	found := false
	for _, b := range c.Environments {
		if b.ResourceName() == name {
			attrs = append(attrs, b.Attrs...)
			found = true
		}
	}
	return attrs, found
}

// ModuleAttrs implements eval.ModuleSource, merging every module block
// sharing the given name, excluding "global" (which GlobalAttrs already
// covers).
func (c *Config) ModuleAttrs(name string) ([]eval.AttributeExpr, bool) {
	if name == globalModuleName {
		return nil, false
	}
	var attrs []eval.AttributeExpr
	found := false
	for _, b := range c.Modules {
		if b.ResourceName() == name {
			attrs = append(attrs, b.Attrs...)
			found = true
		}
	}
	return attrs, found
}

// FindCall returns the Call block matching the given DropId string, if
// any.
func (c *Config) FindCall(dropID string) (Block, bool) {
	for _, b := range c.Calls {
		if b.DropID.String() == dropID {
			return b, true
		}
	}
	return Block{}, false
}

// FindRun returns the Run block matching the given DropId string, if
// any.
func (c *Config) FindRun(dropID string) (Block, bool) {
	for _, b := range c.Runs {
		if b.DropID.String() == dropID {
			return b, true
		}
	}
	return Block{}, false
}

// FindChainNode returns the ChainNode block matching the given DropId
// string, if any.
func (c *Config) FindChainNode(dropID string) (Block, bool) {
	for _, b := range c.ChainNodes {
		if b.DropID.String() == dropID {
			return b, true
		}
	}
	return Block{}, false
}

// FindChain returns the Chain block matching the given DropId string, if
// any.
func (c *Config) FindChain(dropID string) (Block, bool) {
	for _, b := range c.Chains {
		if b.DropID.String() == dropID {
			return b, true
		}
	}
	return Block{}, false
}
