package plugin

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/ayusman/abhinaya/internal/gesture"
)

// Hooks runs every plugin bound to an emitted gesture. It satisfies the
// sink interface so it can sit behind the dispatcher.
type Hooks struct {
	manager  *Manager
	executor *Executor
}

// NewHooks creates hooks over the manager's plugins.
func NewHooks(m *Manager, e *Executor) *Hooks {
	return &Hooks{manager: m, executor: e}
}

// Send runs the bound action of each plugin in name order. A failing plugin
// does not stop the rest; the failures are combined.
func (h *Hooks) Send(ctx context.Context, rec gesture.Record) error {
	var err error
	for _, p := range h.manager.List() {
		action, ok := p.ActionFor(rec.Type)
		if !ok {
			continue
		}
		resp, runErr := h.executor.Execute(ctx, p, &Request{
			Action:  action,
			Gesture: rec,
			Config:  p.Manifest.Config,
		})
		switch {
		case runErr != nil:
			err = multierr.Append(err, runErr)
		case !resp.Success:
			err = multierr.Append(err, fmt.Errorf("%s %s: %s", p.Manifest.Name, action, resp.Error))
		}
	}
	return err
}
