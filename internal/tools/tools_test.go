package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeTool struct {
	name string
	fn   func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

func (f fakeTool) Name() string        { return f.name }
func (f fakeTool) Description() string { return "fake " + f.name }
func (f fakeTool) Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	return f.fn(ctx, args)
}

func echo(name string) fakeTool {
	return fakeTool{name: name, fn: func(_ context.Context, args json.RawMessage) (json.RawMessage, error) {
		return args, nil
	}}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry(echo("b"), echo("a"), nil)

	if _, ok := r.Get("a"); !ok {
		t.Error("expected tool a to be registered")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("expected missing tool to be absent")
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("expected [a b], got %v", names)
	}
}

func TestRegistry_InvokeUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Invoke(context.Background(), "nope", nil)
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}
}

func TestRegistry_InvokeRecoversPanic(t *testing.T) {
	r := NewRegistry(fakeTool{name: "boom", fn: func(context.Context, json.RawMessage) (json.RawMessage, error) {
		panic("kaboom")
	}})
	_, err := r.Invoke(context.Background(), "boom", nil)
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("expected panic error, got %v", err)
	}
}

func TestInvokeAll_IsolatesFailures(t *testing.T) {
	r := NewRegistry(
		echo("ok"),
		fakeTool{name: "fail", fn: func(context.Context, json.RawMessage) (json.RawMessage, error) {
			return nil, errors.New("lookup down")
		}},
		fakeTool{name: "panic", fn: func(context.Context, json.RawMessage) (json.RawMessage, error) {
			panic("bad")
		}},
	)

	calls := []Call{
		{Name: "fail", Args: json.RawMessage(`{}`)},
		{Name: "ok", Args: json.RawMessage(`{"x":1}`)},
		{Name: "panic"},
		{Name: "unknown"},
	}
	results := r.InvokeAll(context.Background(), calls)

	if len(results) != len(calls) {
		t.Fatalf("expected %d results, got %d", len(calls), len(results))
	}
	for i, c := range calls {
		if results[i].Name != c.Name {
			t.Errorf("result %d: expected name %q, got %q", i, c.Name, results[i].Name)
		}
	}
	if results[0].Err == nil {
		t.Error("expected error for failing tool")
	}
	if results[1].Err != nil || string(results[1].Output) != `{"x":1}` {
		t.Errorf("expected sibling success, got %+v", results[1])
	}
	if results[2].Err == nil {
		t.Error("expected error for panicking tool")
	}
	if !errors.Is(results[3].Err, ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", results[3].Err)
	}
}

func TestInvokeAll_RunsConcurrently(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	wait := func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
		started <- struct{}{}
		select {
		case <-release:
			return json.RawMessage(`true`), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r := NewRegistry(fakeTool{name: "a", fn: wait}, fakeTool{name: "b", fn: wait})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan []Result)
	go func() { done <- r.InvokeAll(ctx, []Call{{Name: "a"}, {Name: "b"}}) }()

	for range 2 {
		select {
		case <-started:
		case <-ctx.Done():
			t.Fatal("tools did not start concurrently")
		}
	}
	close(release)

	for _, res := range <-done {
		if res.Err != nil {
			t.Errorf("%s: unexpected error: %v", res.Name, res.Err)
		}
	}
}

func TestResult_Payload(t *testing.T) {
	ok := Result{Name: "t", Output: json.RawMessage(`{"success":true}`)}
	if string(ok.Payload()) != `{"success":true}` {
		t.Errorf("unexpected payload %s", ok.Payload())
	}

	failed := Result{Name: "t", Err: errors.New("timeout")}
	var p struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(failed.Payload(), &p); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if p.Success || p.Error != "timeout" {
		t.Errorf("unexpected error payload %+v", p)
	}
}

func TestNewCall(t *testing.T) {
	c, err := NewCall(TimeCalculatorName, TimingArgs{EventDate: "today"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Name != TimeCalculatorName || string(c.Args) != `{"event_date":"today"}` {
		t.Errorf("unexpected call %+v", c)
	}
}
