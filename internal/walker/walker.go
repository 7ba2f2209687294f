// Package walker implements C4: projecting a traversal rooted at the
// special `response` variable onto an HTTP response body/headers,
// classifying the traversal's output variant along the way (spec.md
// §4.3, grounded in original_source/src/record/response_walker.rs).
package walker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dropctl/dropctl/internal/dropvalue"
)

// Variant classifies what a `response.*` traversal selects.
type Variant int

const (
	EntireBody Variant = iota
	Body
	EntireHeader
	Header
	InvalidOutput
)

func (v Variant) String() string {
	switch v {
	case EntireBody:
		return "EntireBody"
	case Body:
		return "Body"
	case EntireHeader:
		return "EntireHeader"
	case Header:
		return "Header"
	default:
		return "InvalidOutput"
	}
}

// Response is the minimal shape the walker needs from an HTTP round trip.
type Response struct {
	Body    string
	Headers map[string][]string // arbitrary-case keys; normalized on read
}

// ClassifyVariant inspects the first traversal operator against the
// `response` root to decide which walking strategy applies (spec.md
// §4.3: "The first operator must be body or headers").
func ClassifyVariant(ops []dropvalue.TraversalOp) Variant {
	if len(ops) == 0 {
		return InvalidOutput
	}
	first := ops[0]
	if first.Kind != dropvalue.OpAttr {
		return InvalidOutput
	}
	switch first.Attr {
	case "body":
		if len(ops) == 1 {
			return EntireBody
		}
		return Body
	case "headers":
		if len(ops) == 1 {
			return EntireHeader
		}
		return Header
	default:
		return InvalidOutput
	}
}

// WalkError describes a failure to resolve a traversal against a
// Response, tagged by which shape mismatch occurred (spec.md §4.3).
type WalkError struct {
	Traversal string
	Shape     string // JsonShapeErr payload, empty for non-shape errors
	Index     int64  // InvalidArrayAccess payload
	Key       string // InvalidFinalValue payload
	Kind      WalkErrorKind
}

type WalkErrorKind int

const (
	KindJsonShapeErr WalkErrorKind = iota
	KindInvalidArrayAccess
	KindInvalidFinalValue
	KindInvalidOutput
)

func (e *WalkError) Error() string {
	switch e.Kind {
	case KindJsonShapeErr:
		return fmt.Sprintf("%s: expected %s shape", e.Traversal, e.Shape)
	case KindInvalidArrayAccess:
		return fmt.Sprintf("%s: array index %d out of bounds", e.Traversal, e.Index)
	case KindInvalidFinalValue:
		return fmt.Sprintf("%s: key %q not present", e.Traversal, e.Key)
	default:
		return fmt.Sprintf("%s: invalid output traversal", e.Traversal)
	}
}

// Walk resolves a `response.*` traversal against resp, returning the
// traversal's canonical dotted path and the projected Value.
func Walk(ops []dropvalue.TraversalOp, resp Response) (string, dropvalue.Value, error) {
	path := dropvalue.TraversalToString("response", ops)
	variant := ClassifyVariant(ops)

	switch variant {
	case InvalidOutput:
		return path, dropvalue.Null, &WalkError{Traversal: path, Kind: KindInvalidOutput}

	case EntireBody:
		return path, bodyAsValue(resp.Body), nil

	case Body:
		root := bodyAsValue(resp.Body)
		v, err := walkValue(root, ops[1:], path)
		return path, v, err

	case EntireHeader:
		return path, headerMapValue(resp.Headers), nil

	case Header:
		return path, walkHeader(resp.Headers, ops[1:], path)
	}

	return path, dropvalue.Null, &WalkError{Traversal: path, Kind: KindInvalidOutput}
}

func bodyAsValue(body string) dropvalue.Value {
	v, err := dropvalue.FromJSON([]byte(body))
	if err != nil {
		return dropvalue.Str(body)
	}
	return v
}

// walkValue walks ops (excluding the `body`/`headers` root operator)
// against an already-decoded Value.
func walkValue(current dropvalue.Value, ops []dropvalue.TraversalOp, path string) (dropvalue.Value, error) {
	for i, op := range ops {
		switch op.Kind {
		case dropvalue.OpAttr, dropvalue.OpStrIndex:
			key := op.Attr
			if op.Kind == dropvalue.OpStrIndex {
				key = op.StrIndex
			}
			obj, ok := current.AsObject()
			if !ok {
				return dropvalue.Null, &WalkError{Traversal: path, Kind: KindJsonShapeErr, Shape: "object"}
			}
			v, ok := obj.Get(key)
			if !ok {
				if i == len(ops)-1 {
					return dropvalue.Null, &WalkError{Traversal: path, Kind: KindInvalidFinalValue, Key: key}
				}
				return dropvalue.Null, &WalkError{Traversal: path, Kind: KindInvalidFinalValue, Key: key}
			}
			current = v

		case dropvalue.OpIntIndex:
			arr, ok := current.AsArray()
			if !ok {
				return dropvalue.Null, &WalkError{Traversal: path, Kind: KindJsonShapeErr, Shape: "array"}
			}
			if op.IntIndex < 0 || int(op.IntIndex) >= len(arr) {
				return dropvalue.Null, &WalkError{Traversal: path, Kind: KindInvalidArrayAccess, Index: op.IntIndex}
			}
			current = arr[op.IntIndex]

		case dropvalue.OpSplat:
			arr, ok := current.AsArray()
			if !ok {
				current = dropvalue.Array([]dropvalue.Value{current})
			} else {
				current = dropvalue.Array(arr)
			}
		}
	}
	return current, nil
}

// headerMapValue projects the entire header map to a Value: lowercase
// keys, each value the joined multi-value string (spec.md §4.3).
func headerMapValue(headers map[string][]string) dropvalue.Value {
	obj := dropvalue.NewObject()
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, strings.ToLower(k))
	}
	sort.Strings(keys)
	lower := lowercaseHeaders(headers)
	for _, k := range keys {
		obj.Set(k, dropvalue.Str(strings.Join(lower[k], "; ")))
	}
	return dropvalue.ObjectValue(obj)
}

func lowercaseHeaders(headers map[string][]string) map[string][]string {
	out := make(map[string][]string, len(headers))
	for k, v := range headers {
		lk := strings.ToLower(k)
		out[lk] = append(out[lk], v...)
	}
	return out
}

func walkHeader(headers map[string][]string, ops []dropvalue.TraversalOp, path string) (dropvalue.Value, error) {
	if len(ops) == 0 {
		return dropvalue.Null, &WalkError{Traversal: path, Kind: KindInvalidOutput}
	}
	op := ops[0]
	var name string
	switch op.Kind {
	case dropvalue.OpAttr:
		name = op.Attr
	case dropvalue.OpStrIndex:
		name = op.StrIndex
	default:
		return dropvalue.Null, &WalkError{Traversal: path, Kind: KindJsonShapeErr, Shape: "header name"}
	}

	lower := lowercaseHeaders(headers)
	vals, ok := lower[strings.ToLower(name)]
	if !ok {
		return dropvalue.Null, &WalkError{Traversal: path, Kind: KindInvalidFinalValue, Key: name}
	}
	return dropvalue.Str(strings.Join(vals, "; ")), nil
}
