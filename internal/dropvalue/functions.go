package dropvalue

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// ParamKind declares the expected Kind of a fixed function parameter, or
// ParamAny to accept anything.
type ParamKind int

const (
	ParamAny ParamKind = iota
	ParamString
	ParamNumber
)

// FunctionDef describes a host function registered in a Scope's function
// table (spec.md §4.1). Variadic functions set Variadic true and ignore
// Params; fixed-arity functions declare one ParamKind per positional
// argument.
type FunctionDef struct {
	Name     string
	Variadic bool
	Params   []ParamKind
	Call     func(args []Value) (Value, error)
}

// BuiltinFunctions returns the five pure helper functions spec.md §4.1
// requires every Scope to expose.
func BuiltinFunctions() map[string]FunctionDef {
	return map[string]FunctionDef{
		"join":        joinFunc(),
		"url_params":  urlParamsFunc(),
		"bearer_auth": bearerAuthFunc(),
		"basic_auth":  basicAuthFunc(),
		"base64":      base64Func(),
	}
}

func joinFunc() FunctionDef {
	return FunctionDef{
		Name:     "join",
		Variadic: true,
		Call: func(args []Value) (Value, error) {
			var b strings.Builder
			for _, a := range args {
				s, err := stringify(a)
				if err != nil {
					return Value{}, fmt.Errorf("join: %w", err)
				}
				b.WriteString(s)
			}
			return Str(b.String()), nil
		},
	}
}

// urlParamsFunc builds "?k1=v1&k2=v2" from any number of ["key","value"]
// two-element array arguments, in argument order. Concatenates key=value
// pairs raw, with no URL escaping, matching get_params_fn in
// original_source/src/interpreter/global_interpreter_context.rs (spec.md
// §4.1).
func urlParamsFunc() FunctionDef {
	return FunctionDef{
		Name:     "url_params",
		Variadic: true,
		Call: func(args []Value) (Value, error) {
			var pairs []string
			for i, a := range args {
				arr, ok := a.AsArray()
				if !ok || len(arr) != 2 {
					return Value{}, fmt.Errorf("url_params: argument %d must be a two-element array [key, value]", i)
				}
				k, err := stringify(arr[0])
				if err != nil {
					return Value{}, fmt.Errorf("url_params: %w", err)
				}
				v, err := stringify(arr[1])
				if err != nil {
					return Value{}, fmt.Errorf("url_params: %w", err)
				}
				pairs = append(pairs, k+"="+v)
			}
			if len(pairs) == 0 {
				return Str(""), nil
			}
			return Str("?" + strings.Join(pairs, "&")), nil
		},
	}
}

func bearerAuthFunc() FunctionDef {
	return FunctionDef{
		Name:   "bearer_auth",
		Params: []ParamKind{ParamString},
		Call: func(args []Value) (Value, error) {
			if len(args) != 1 {
				return Value{}, arityErr("bearer_auth", 1, len(args))
			}
			token, ok := args[0].AsString()
			if !ok {
				return Value{}, typeErr("bearer_auth", 0, "string")
			}
			return Str("Bearer " + token), nil
		},
	}
}

func basicAuthFunc() FunctionDef {
	return FunctionDef{
		Name:   "basic_auth",
		Params: []ParamKind{ParamString, ParamString},
		Call: func(args []Value) (Value, error) {
			if len(args) != 2 {
				return Value{}, arityErr("basic_auth", 2, len(args))
			}
			user, ok := args[0].AsString()
			if !ok {
				return Value{}, typeErr("basic_auth", 0, "string")
			}
			pass, ok := args[1].AsString()
			if !ok {
				return Value{}, typeErr("basic_auth", 1, "string")
			}
			encoded := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
			return Str(encoded), nil
		},
	}
}

func base64Func() FunctionDef {
	return FunctionDef{
		Name:   "base64",
		Params: []ParamKind{ParamString},
		Call: func(args []Value) (Value, error) {
			if len(args) != 1 {
				return Value{}, arityErr("base64", 1, len(args))
			}
			s, ok := args[0].AsString()
			if !ok {
				return Value{}, typeErr("base64", 0, "string")
			}
			return Str(base64.StdEncoding.EncodeToString([]byte(s))), nil
		},
	}
}

// stringify converts any mix of strings and numbers to a string, matching
// spec.md §4.1's join() contract. Booleans are rendered via
// Value.String(); null, array and object values are an error.
func stringify(v Value) (string, error) {
	switch v.Kind() {
	case KindString:
		s, _ := v.AsString()
		return s, nil
	case KindNumber:
		return v.String(), nil
	case KindBool:
		return v.String(), nil
	default:
		return "", fmt.Errorf("cannot stringify value of kind %s", v.Kind())
	}
}

func arityErr(fn string, want, got int) error {
	return fmt.Errorf("%s: expected %d argument(s), got %d", fn, want, got)
}

func typeErr(fn string, index int, want string) error {
	return fmt.Errorf("%s: argument %d must be a %s", fn, index, want)
}
