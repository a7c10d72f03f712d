package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/abhinaya/internal/gesture"
)

func TestExecutor_Execute(t *testing.T) {
	p := scriptPlugin(t, "hello", `echo '{"success":true,"data":{"message":"hello world"}}'`)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, &Request{Action: "run"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !resp.Success || resp.Error != "" {
		t.Errorf("response = %+v, want success", resp)
	}

	var data map[string]string
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data["message"] != "hello world" {
		t.Errorf("message = %q, want %q", data["message"], "hello world")
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	// The script wraps its stdin in the data field.
	p := scriptPlugin(t, "echo", `printf '{"success":true,"data":'; cat; printf '}'`)

	req := &Request{
		Action:  "run",
		Gesture: gesture.Record{Type: gesture.SwipeLeft, Entity: gesture.EntityRight, Timestamp: 42},
		Config:  json.RawMessage(`{"key":"value"}`),
	}
	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var got Request
	if err := json.Unmarshal(resp.Data, &got); err != nil {
		t.Fatalf("failed to unmarshal echoed request: %v", err)
	}
	if got.Action != "run" || got.Gesture.Type != gesture.SwipeLeft || got.Gesture.Timestamp != 42 {
		t.Errorf("echoed request = %+v", got)
	}
	if string(got.Config) != `{"key":"value"}` {
		t.Errorf("echoed config = %s", got.Config)
	}
}

func TestExecutor_Failures(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		timeout time.Duration
		check   func(t *testing.T, resp *Response, err error)
	}{
		{
			name:    "timeout",
			script:  "exec sleep 10",
			timeout: 100 * time.Millisecond,
			check: func(t *testing.T, resp *Response, err error) {
				if !errors.Is(err, ErrTimeout) {
					t.Errorf("error = %v, want ErrTimeout", err)
				}
			},
		},
		{
			name:   "error response",
			script: `echo '{"success":false,"error":"something went wrong"}'`,
			check: func(t *testing.T, resp *Response, err error) {
				if err != nil {
					t.Fatalf("error = %v, want a parsed response", err)
				}
				if resp.Success || resp.Error != "something went wrong" {
					t.Errorf("response = %+v", resp)
				}
			},
		},
		{
			name:   "invalid json",
			script: "echo 'not json'",
			check: func(t *testing.T, resp *Response, err error) {
				if err == nil || !strings.Contains(err.Error(), "parse") {
					t.Errorf("error = %v, want a parse error", err)
				}
			},
		},
		{
			name:   "non-zero exit",
			script: "echo 'bad things' >&2; exit 3",
			check: func(t *testing.T, resp *Response, err error) {
				if err == nil || !strings.Contains(err.Error(), "bad things") {
					t.Errorf("error = %v, want stderr in the message", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := scriptPlugin(t, "failing", tt.script)
			timeout := tt.timeout
			if timeout == 0 {
				timeout = 5 * time.Second
			}
			resp, err := NewExecutor(timeout).Execute(context.Background(), p, &Request{Action: "run"})
			tt.check(t, resp, err)
		})
	}
}

func TestExecutor_MissingExecutable(t *testing.T) {
	p := &Plugin{Manifest: Manifest{Name: "ghost"}, Path: t.TempDir(), Executable: "/nonexistent/ghost"}
	if _, err := NewExecutor(time.Second).Execute(context.Background(), p, &Request{}); err == nil {
		t.Error("Execute() of a missing executable succeeded")
	}
}

func TestNewExecutor_DefaultTimeout(t *testing.T) {
	if got := NewExecutor(0).timeout; got != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", got, DefaultTimeout)
	}
}
