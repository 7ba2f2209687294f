// Package dropconfig implements the config loader: the Block/DropId model
// and the HCL-backed file-walking parser that produces them. It is the
// only package in this module that imports the third-party HCL parser —
// every other package works against internal/dropvalue's own Expression
// tree (spec.md §1, grounded in original_source/src/parser).
package dropconfig

import (
	"fmt"
	"strings"
)

// ResourceType tags what kind of drop resource a DropId names, grounded on
// original_source/src/parser/drop_block.rs's DropResourceType.
type ResourceType int

const (
	ResourceCall ResourceType = iota
	ResourceRun
	ResourceChain
	ResourceChainNode
	ResourceModule
	ResourceEnvironment
)

func (r ResourceType) String() string {
	switch r {
	case ResourceCall:
		return "call"
	case ResourceRun:
		return "run"
	case ResourceChain:
		return "chain"
	case ResourceChainNode:
		return "chain_node"
	case ResourceModule:
		return "module"
	case ResourceEnvironment:
		return "environment"
	default:
		return "unknown"
	}
}

// DropId identifies one declared block: its owning module, resource kind,
// optional call method, and resource name (the block's label, or
// "global" for the unlabelled global module block). Grounded on
// original_source/src/parser/drop_id.rs.
type DropId struct {
	Module       string
	ResourceType ResourceType
	CallMethod   string // set only for ResourceCall
	Name         string
}

// NewCallDropId builds the DropId for a `get`/`post`/`put`/`patch`/`delete`
// block (original's DropId::get_call_drop_id).
func NewCallDropId(module, method, name string) DropId {
	return DropId{Module: module, ResourceType: ResourceCall, CallMethod: method, Name: name}
}

// NewDropId builds a DropId for any non-call resource.
func NewDropId(module string, kind ResourceType, name string) DropId {
	return DropId{Module: module, ResourceType: kind, Name: name}
}

// NewRunDropId builds the DropId for a `run` block. It prints with the
// same three-segment form as a call ("<module>.run.<name>") but carries
// ResourceRun so it is classified separately from an HTTP call.
func NewRunDropId(module, name string) DropId {
	return DropId{Module: module, ResourceType: ResourceRun, CallMethod: "run", Name: name}
}

// String renders the canonical form: "<module>.<method>.<name>" for calls,
// "<module>.<name>" otherwise (spec.md §3; original's DropId::drop_id).
func (d DropId) String() string {
	if d.CallMethod != "" && (d.ResourceType == ResourceCall || d.ResourceType == ResourceRun) {
		return fmt.Sprintf("%s.%s.%s", d.Module, d.CallMethod, d.Name)
	}
	return fmt.Sprintf("%s.%s", d.Module, d.Name)
}

// ResourceName returns the name segment used to match this DropId's owner
// against the currently selected module or environment (SPEC_FULL.md §D.6,
// original's resource_name field).
func (d DropId) ResourceName() string {
	return d.Name
}

// ParseDropId parses a dotted drop id string back into its module, call
// method (if any), and name segments, matching the original's
// get_module_from_drop_id/get_call_type_from_raw_drop_id pair. A two-segment
// id ("<module>.<name>") gets no CallMethod and leaves ResourceType at its
// zero value; a three-segment id ("<module>.<method>.<name>") is treated as
// a call reference, or a run reference when the method segment is "run".
func ParseDropId(raw string) (DropId, error) {
	segments := strings.Split(raw, ".")
	switch len(segments) {
	case 2:
		return DropId{Module: segments[0], Name: segments[1]}, nil
	case 3:
		method := segments[1]
		kind := ResourceCall
		if method == "run" {
			kind = ResourceRun
		}
		return DropId{Module: segments[0], ResourceType: kind, CallMethod: method, Name: segments[2]}, nil
	default:
		return DropId{}, fmt.Errorf("invalid drop id %q: expected mod.name or mod.method.name", raw)
	}
}
