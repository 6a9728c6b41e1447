// Package page defines the narrow rendered-page capability the application
// engine drives. The interface is deliberately small: the form filler and the
// step driver only ever need to locate elements, read them, and mutate them
// in a way the page's own scripts can observe. A concrete implementation
// backed by chromedp lives in internal/browser/session; tests use the fake in
// the pagetest subpackage.
package page

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for the two recoverable failure modes of a live DOM.
// Callers distinguish them with errors.Is; everything else is terminal for
// the current action only, never for the whole form or step.
var (
	// ErrStale indicates an Element handle no longer corresponds to a node
	// in the current document, typically because the page re-rendered
	// between acquiring the handle and acting on it. The remedy is to
	// re-fetch the element and retry.
	ErrStale = errors.New("page: stale element reference")

	// ErrNotFound indicates no element matched the selector. For the step
	// driver this usually means "this affordance is not present on the
	// current step", which is an expected branch, not a failure.
	ErrNotFound = errors.New("page: element not found")
)

// Element is an opaque handle to a rendered DOM node. Handles are cheap to
// obtain and may go stale at any moment; every operation taking an Element
// can return ErrStale.
type Element interface {
	// Describe returns a short human-readable identification of the node
	// for logging (tag plus a selector-ish hint). It never touches the
	// live page.
	Describe() string
}

// Page is the rendered-page capability. All blocking operations honor the
// supplied context.
type Page interface {
	// Navigate loads the URL and waits for the page to settle.
	Navigate(ctx context.Context, url string) error

	// Title returns the current document title.
	Title(ctx context.Context) (string, error)

	// Source returns the full serialized HTML of the current document.
	Source(ctx context.Context) (string, error)

	// Find returns handles for all elements matching the CSS selector.
	// A selector matching nothing returns an empty slice and no error.
	Find(ctx context.Context, selector string) ([]Element, error)

	// FindIn scopes Find to the subtree rooted at the given element.
	FindIn(ctx context.Context, root Element, selector string) ([]Element, error)

	// WaitVisible blocks until an element matching the selector is visible
	// or the timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// Click scrolls the element into view and clicks it.
	Click(ctx context.Context, el Element) error

	// Type sends the text to the element as key events. It does not clear
	// existing content; pair with Clear.
	Clear(ctx context.Context, el Element) error
	Type(ctx context.Context, el Element, text string) error

	// Text returns the visible text content of the element's subtree.
	Text(ctx context.Context, el Element) (string, error)

	// Attribute returns the named attribute and whether it is present.
	Attribute(ctx context.Context, el Element, name string) (string, bool, error)

	// SetChecked sets the checked state of a radio or checkbox input and
	// dispatches a change event so client-side validation observes the
	// mutation. A plain property write is not enough for reactive forms.
	SetChecked(ctx context.Context, el Element, checked bool) error

	// SelectIndex sets selectedIndex on a <select> element and dispatches
	// a change event.
	SelectIndex(ctx context.Context, el Element, index int) error

	// Upload attaches a local file to a file input element.
	Upload(ctx context.Context, el Element, path string) error

	// ScrollBy scrolls the viewport vertically by the given pixel delta.
	ScrollBy(ctx context.Context, deltaY int) error

	// Eval runs the script in the page and decodes its result into out.
	// Pass a nil out to discard the result.
	Eval(ctx context.Context, script string, out any) error
}
