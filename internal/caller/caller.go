// Package caller implements C7: HTTP execution of a resolved Call,
// grounded in original_source/src/caller/mod.rs. Transport failures are
// surfaced as a distinct error class from HTTP-level failures (status
// >= 400), which still produce a Record (spec.md §4.5).
package caller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dropctl/dropctl/internal/call"
	"github.com/dropctl/dropctl/internal/dlog"
	"github.com/dropctl/dropctl/internal/dropvalue"
	"github.com/dropctl/dropctl/internal/walker"
	pkgerrors "github.com/dropctl/dropctl/pkg/errors"
)

// Timeout is the hard transport timeout spec.md §4.5/§5 mandates.
const Timeout = 5 * time.Second

// Caller sends resolved Calls over HTTP.
type Caller struct {
	client *http.Client
	log    *dlog.Logger
}

// New builds a Caller with the 5-second transport timeout.
func New(log *dlog.Logger) *Caller {
	if log == nil {
		log = dlog.Nop()
	}
	return &Caller{
		client: &http.Client{Timeout: Timeout},
		log:    log,
	}
}

// Send executes c and returns the resulting Record. A non-nil error is
// always a TransportError — HTTP status >= 400 still returns a Record
// with IsSuccessfulCall=false and a nil error (spec.md §4.5).
func (c *Caller) Send(ctx context.Context, target call.Call) (*call.Record, error) {
	var bodyReader io.Reader
	if target.Body != nil {
		raw, err := json.Marshal(*target.Body)
		if err != nil {
			return nil, pkgerrors.NewTransportError(target.DropID, target.URL(), fmt.Errorf("encoding request body: %w", err))
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, string(target.Method), target.URL(), bodyReader)
	if err != nil {
		return nil, pkgerrors.NewTransportError(target.DropID, target.URL(), err)
	}
	for k, v := range target.Headers {
		req.Header.Set(k, v)
	}
	if target.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.With(map[string]any{"drop_id": target.DropID, "method": string(target.Method), "url": target.URL()}).Debug("sending call")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, pkgerrors.NewTransportError(target.DropID, target.URL(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.NewTransportError(target.DropID, target.URL(), fmt.Errorf("reading response body: %w", err))
	}

	record := &call.Record{
		DropID:           target.DropID,
		FullURL:          target.URL(),
		StatusCode:       resp.StatusCode,
		ResponseBody:     string(raw),
		ResponseHeaders:  map[string][]string(resp.Header),
		IsSuccessfulCall: resp.StatusCode < 400,
	}

	if !record.IsSuccessfulCall {
		c.logFailedCall(record)
	}

	record.Outputs = c.resolveOutputs(target, record)
	return record, nil
}

// resolveOutputs walks every declared output traversal against the
// response and records its projected string value under the output's
// Path: the traversal's dotted path, or a chain node's declared output
// name. An empty Path falls back to the walked traversal path (spec.md
// §4.5).
func (c *Caller) resolveOutputs(target call.Call, record *call.Record) []call.OutputRecord {
	resp := walker.Response{Body: record.ResponseBody, Headers: record.ResponseHeaders}
	outputs := make([]call.OutputRecord, 0, len(target.Outputs))

	for _, out := range target.Outputs {
		path, v, err := walker.Walk(out.Ops, resp)
		if err != nil {
			c.log.With(map[string]any{"drop_id": target.DropID, "output": out.Path}).Warn("output traversal failed: " + err.Error())
			continue
		}
		key := out.Path
		if key == "" {
			key = path
		}
		outputs = append(outputs, call.OutputRecord{Key: key, Value: stringifyOutput(v)})
	}
	return outputs
}

// stringifyOutput renders a walked Value as the output-record string:
// strings verbatim, everything else as JSON text (spec.md §4.5).
func stringifyOutput(v dropvalue.Value) string {
	if s, ok := v.AsString(); ok {
		return s
	}
	raw, err := v.MarshalJSON()
	if err != nil {
		return v.String()
	}
	return string(raw)
}

// logFailedCall implements the failed-call human summary supplemented
// feature: parse the body as JSON and pretty-print it, falling back to
// the raw string, or a fixed notice for an empty body
// (original_source/src/caller/mod.rs handle_failed_status_code).
func (c *Caller) logFailedCall(record *call.Record) {
	entry := c.log.With(map[string]any{"drop_id": record.DropID, "status": record.StatusCode, "url": record.FullURL})

	if record.ResponseBody == "" {
		entry.Warn("call failed with no response message")
		return
	}

	var pretty interface{}
	if err := json.Unmarshal([]byte(record.ResponseBody), &pretty); err == nil {
		formatted, err := json.MarshalIndent(pretty, "", "  ")
		if err == nil {
			entry.Warn("call failed:\n" + string(formatted))
			return
		}
	}
	entry.Warn("call failed: " + record.ResponseBody)
}
