package session

import (
	"context"
	"time"
)

// CombineContext derives a context from the session context (which carries
// the CDP target) that is additionally canceled when the per-operation
// context is. chromedp needs the target values from the session context, and
// the caller needs its own deadline honored; this gives both.
func CombineContext(sessionCtx, opCtx context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(sessionCtx)
	go func() {
		select {
		case <-opCtx.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}

// valueOnlyContext inherits values but not cancellation from its parent.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (time.Time, bool) { return time.Time{}, false }
func (valueOnlyContext) Done() <-chan struct{}       { return nil }
func (valueOnlyContext) Err() error                  { return nil }

// Detach keeps the CDP target values of ctx alive past its cancellation, for
// teardown actions that must run while the rest of the operation unwinds.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
