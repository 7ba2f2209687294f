// Package postaction implements C8: the unconditional persist+print
// pipeline followed by declared after-actions, grounded in
// original_source/src/action/mod.rs.
package postaction

import (
	"fmt"
	"io"

	"github.com/dropctl/dropctl/internal/call"
	"github.com/dropctl/dropctl/internal/dlog"
)

// SecretWriter is the subset of the secret store the set_secret
// after-action needs.
type SecretWriter interface {
	SetSecret(key, value, env string, overwrite bool) error
}

// Persister is the subset of the result store a post-action run needs.
type Persister interface {
	PersistCallRecord(dropID, fullURL string, statusCode int, body string) error
}

// Pipeline runs the unconditional persist+print steps and any
// user-declared after-actions for a finished call record (spec.md §4.6).
type Pipeline struct {
	store  Persister
	secret SecretWriter
	out    io.Writer
	log    *dlog.Logger
}

// New builds a Pipeline.
func New(store Persister, secret SecretWriter, out io.Writer, log *dlog.Logger) *Pipeline {
	if log == nil {
		log = dlog.Nop()
	}
	return &Pipeline{store: store, secret: secret, out: out, log: log}
}

// Run executes the pipeline for one finished record: persist, print, then
// declared after-actions in order (spec.md §4.6).
func (p *Pipeline) Run(record *call.Record, after []call.AfterAction) {
	p.persist(record)
	p.print(record)
	for _, action := range after {
		p.runAfter(record, action)
	}
}

func (p *Pipeline) persist(record *call.Record) {
	if p.store == nil {
		return
	}
	if err := p.store.PersistCallRecord(record.DropID, record.FullURL, record.StatusCode, record.ResponseBody); err != nil {
		p.log.Error(err, "failed to persist call record")
	}
}

// print implements the supplemented post_action_print_outputs_to_console
// feature: print drop_id, status code, and every output record.
func (p *Pipeline) print(record *call.Record) {
	if p.out == nil {
		return
	}
	fmt.Fprintf(p.out, "%s -> %d\n", record.DropID, record.StatusCode)
	for _, o := range record.Outputs {
		fmt.Fprintf(p.out, "  %s = %s\n", o.Key, o.Value)
	}
}

func (p *Pipeline) runAfter(record *call.Record, action call.AfterAction) {
	switch action.Type {
	case "set_secret":
		p.setSecret(record, action)
	default:
		p.log.Warn(fmt.Sprintf("%s: unknown after-action type %q ignored", record.DropID, action.Type))
	}
}

// setSecret implements the only defined after-action kind (spec.md §4.6):
// find the output record matching Input and insert it into the secret
// store; warn (don't fail) if no output matched.
func (p *Pipeline) setSecret(record *call.Record, action call.AfterAction) {
	env := action.Env
	if env == "" {
		env = "base"
	}

	var matched bool
	for _, o := range record.Outputs {
		if o.Key != action.Input {
			continue
		}
		matched = true
		if p.secret == nil {
			continue
		}
		if err := p.secret.SetSecret(action.Key, o.Value, env, action.Overwrite); err != nil {
			p.log.Error(err, fmt.Sprintf("%s: failed to set secret %q", record.DropID, action.Key))
		}
	}

	if !matched {
		p.log.Warn(fmt.Sprintf("%s: set_secret input %q matched no output record", record.DropID, action.Input))
	}
}
