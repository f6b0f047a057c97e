// Package tools exposes external lookups behind one capability interface so
// that stages can invoke them by name without knowing how they work.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrToolNotFound is returned when invoking a name nobody registered.
var ErrToolNotFound = errors.New("tool not found")

// Tool is an external capability invoked with JSON arguments.
type Tool interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

// Call is one requested tool invocation.
type Call struct {
	Name string
	Args json.RawMessage
}

// Result is the outcome of one Call. Err is set instead of Output when the
// call failed; other calls in the same batch are unaffected.
type Result struct {
	Name   string
	Output json.RawMessage
	Err    error
}

// Payload returns the output, or an error payload when the call failed.
func (r Result) Payload() json.RawMessage {
	if r.Err == nil {
		return r.Output
	}
	data, _ := json.Marshal(map[string]any{"success": false, "error": r.Err.Error()})
	return data
}

// Registry maps tool names to tools. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns a registry holding the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds a tool, replacing any tool with the same name.
func (r *Registry) Register(t Tool) {
	if t == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Invoke runs a single tool. A panicking tool is reported as an error.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (out json.RawMessage, err error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrToolNotFound)
	}
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, fmt.Errorf("%s: panic: %v", name, p)
		}
	}()
	return t.Invoke(ctx, args)
}

// InvokeAll runs calls concurrently and returns one Result per call, in call
// order. A failing call never cancels its siblings.
func (r *Registry) InvokeAll(ctx context.Context, calls []Call) []Result {
	results := make([]Result, len(calls))
	var g errgroup.Group
	for i, c := range calls {
		g.Go(func() error {
			out, err := r.Invoke(ctx, c.Name, c.Args)
			results[i] = Result{Name: c.Name, Output: out, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// NewCall marshals args into a Call.
func NewCall(name string, args any) (Call, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return Call{}, fmt.Errorf("marshal %s args: %w", name, err)
	}
	return Call{Name: name, Args: data}, nil
}
