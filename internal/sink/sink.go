// Package sink delivers emitted gesture records to downstream consumers.
package sink

import (
	"context"

	"go.uber.org/multierr"

	"github.com/ayusman/abhinaya/internal/gesture"
)

// Sink receives emitted gesture records. Send must honour ctx cancellation.
type Sink interface {
	Send(ctx context.Context, rec gesture.Record) error
}

// Func adapts a function to the Sink interface.
type Func func(ctx context.Context, rec gesture.Record) error

// Send calls f.
func (f Func) Send(ctx context.Context, rec gesture.Record) error {
	return f(ctx, rec)
}

// Multi fans a record out to every sink and combines their errors. A failing
// sink does not stop delivery to the others.
type Multi []Sink

// Send delivers rec to every sink in order.
func (m Multi) Send(ctx context.Context, rec gesture.Record) error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.Send(ctx, rec))
	}
	return err
}
