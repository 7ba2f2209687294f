// Package dropctx holds the process-wide state a dropctl invocation
// assembles once at startup and every subcommand then reads: the parsed
// config, the secret/result store, and the selected dir/env pair. It is
// grounded on original_source/src/parser/mod.rs's GlobalDropConfigProvider,
// src/cmd/ctx.rs's CmdContext, and src/persist/mod.rs's PersisterProvider —
// three OnceLock-guarded singletons the original keeps for the same
// lifecycle reasons, collapsed here into one lock-guarded Context.
package dropctx

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dropctl/dropctl/internal/dlog"
	"github.com/dropctl/dropctl/internal/dropconfig"
	"github.com/dropctl/dropctl/internal/eval"
	"github.com/dropctl/dropctl/internal/scope"
	"github.com/dropctl/dropctl/internal/store"
)

const storeFileName = ".dropctl.db"

// Context bundles the long-lived state built once per process: the
// loaded Config, the result/secret store, the active environment, and a
// root logger every subcommand derives its own component logger from.
type Context struct {
	Dir    string
	Env    string
	Config *dropconfig.Config
	Store  store.Persister
	Log    *dlog.Logger
}

// New loads and validates the config under dir, opens the result/secret
// store alongside it, and returns an assembled Context. Callers own its
// lifetime and must call Close when done.
func New(dir, env string, log *dlog.Logger) (*Context, error) {
	if log == nil {
		log = dlog.Nop()
	}
	if env == "" {
		env = eval.DefaultEnvironment
	}

	cfg, err := dropconfig.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", dir, err)
	}
	if err := dropconfig.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config from %s: %w", dir, err)
	}

	db, err := store.Open(filepath.Join(dir, storeFileName))
	if err != nil {
		return nil, fmt.Errorf("opening store in %s: %w", dir, err)
	}

	return &Context{Dir: dir, Env: env, Config: cfg, Store: db, Log: log}, nil
}

// Close releases the underlying store connection.
func (c *Context) Close() error {
	if c == nil || c.Store == nil {
		return nil
	}
	return c.Store.Close()
}

// BuildScope resolves the layered Scope for moduleName under this
// Context's active environment (spec.md §4.2), without yet overlaying
// secrets or per-call inputs.
func (c *Context) BuildScope(moduleName string) (*scope.Scope, *eval.Diagnostics, error) {
	return eval.BuildModuleScope(c.Config, c.Env, moduleName)
}

// LoggerFor derives a component-scoped child logger, matching the
// teacher's AppContext.LoggerFor helper (cmd/streamy/app_context.go).
func (c *Context) LoggerFor(component string) *dlog.Logger {
	if c == nil || c.Log == nil {
		return dlog.Nop()
	}
	return c.Log.With(map[string]any{"component": component})
}

var (
	mu      sync.RWMutex
	current *Context
)

// Set installs ctx as the process-wide Context. Subsequent calls replace
// it; unlike the original's OnceLock-backed providers, a Go process may
// legitimately rebuild its Context across test cases within one binary.
func Set(ctx *Context) {
	mu.Lock()
	defer mu.Unlock()
	current = ctx
}

// Current returns the installed process-wide Context, or an error if
// none has been set yet (original's CmdContext::get on an empty
// OnceLock).
func Current() (*Context, error) {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return nil, fmt.Errorf("dropctx: no context has been set")
	}
	return current, nil
}

// CurrentEnv returns the active environment name, defaulting to "base"
// when no Context has been installed (original's CmdContext::get_env
// fallback).
func CurrentEnv() string {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return eval.DefaultEnvironment
	}
	return current.Env
}
