// Package session implements the rendered-page capability on a real Chrome
// driven over CDP via chromedp. One Session is one browser tab; the engine
// packages never see chromedp types, only page.Page.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/internal/browser/page"
	"github.com/xkilldash9x/easyapply-cli/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// opTimeout bounds any single CDP action. Navigation gets more room.
const (
	opTimeout  = 30 * time.Second
	navTimeout = 90 * time.Second
)

// Session is a live browser tab implementing page.Page.
type Session struct {
	id          string
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

var _ page.Page = (*Session)(nil)

// New launches Chrome and opens the session tab. Close must be called to
// tear the browser down.
func New(parent context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("start-maximized", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.NoSandbox,
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)

	sessionID := uuid.New().String()
	log := logger.Named("session").With(zap.String("session_id", sessionID))

	ctxOpts := []chromedp.ContextOption{
		chromedp.WithLogf(func(format string, args ...any) {
			log.Info(fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			log.Error(fmt.Sprintf(format, args...))
		}),
	}
	if cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		}))
	}
	ctx, cancel := chromedp.NewContext(allocCtx, ctxOpts...)

	// Connects to the browser process and creates the target.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	log.Info("Browser session started.", zap.Bool("headless", cfg.Headless))
	return &Session{
		id:          sessionID,
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		logger:      log,
	}, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Close shuts the tab and the browser process down.
func (s *Session) Close() error {
	err := chromedp.Cancel(Detach(s.ctx))
	s.cancel()
	s.allocCancel()
	if err != nil {
		return fmt.Errorf("closing browser: %w", err)
	}
	return nil
}

// element wraps a CDP node handle.
type element struct {
	node *cdp.Node
}

func (e element) Describe() string {
	tag := e.node.LocalName
	if tag == "" {
		tag = strings.ToLower(e.node.NodeName)
	}
	if id := e.node.AttributeValue("id"); id != "" {
		return tag + "#" + id
	}
	return tag
}

// nodeOf recovers the CDP node behind a page.Element handed out by this
// session.
func nodeOf(el page.Element) (*cdp.Node, error) {
	e, ok := el.(element)
	if !ok {
		return nil, fmt.Errorf("element %q does not belong to this session", el.Describe())
	}
	return e.node, nil
}

// run executes the actions against the session target under the operation
// context and a hard timeout, translating node-lifetime CDP errors into
// page.ErrStale.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	opCtx, tcancel := context.WithTimeout(opCtx, timeout)
	defer tcancel()

	if err := chromedp.Run(opCtx, actions...); err != nil {
		return translateErr(err)
	}
	return nil
}

// translateErr maps the CDP phrasings of "that node is gone" onto ErrStale
// so callers can re-fetch and retry instead of failing the whole form.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, marker := range []string{
		"could not find node",
		"No node with given id",
		"node with given id found",
		"not belong to the document",
		"Node with given id does not belong to the document",
		"Cannot find context with specified id",
	} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %s", page.ErrStale, msg)
		}
	}
	return err
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	err := s.run(ctx, navTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, opTimeout, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

func (s *Session) Source(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, opTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *Session) Find(ctx context.Context, selector string) ([]page.Element, error) {
	return s.find(ctx, selector)
}

func (s *Session) FindIn(ctx context.Context, root page.Element, selector string) ([]page.Element, error) {
	n, err := nodeOf(root)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, selector, chromedp.FromNode(n))
}

func (s *Session) find(ctx context.Context, selector string, extra ...chromedp.QueryOption) ([]page.Element, error) {
	var nodes []*cdp.Node
	opts := append([]chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}, extra...)
	if err := s.run(ctx, opTimeout, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, err
	}
	els := make([]page.Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, element{node: n})
	}
	return els, nil
}

func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	err := s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
	if err != nil {
		return fmt.Errorf("%w: %s never became visible: %s", page.ErrNotFound, selector, err)
	}
	return nil
}

func (s *Session) Click(ctx context.Context, el page.Element) error {
	n, err := nodeOf(el)
	if err != nil {
		return err
	}
	return s.run(ctx, opTimeout,
		dom.ScrollIntoViewIfNeeded().WithNodeID(n.NodeID),
		chromedp.MouseClickNode(n),
	)
}

func (s *Session) Clear(ctx context.Context, el page.Element) error {
	n, err := nodeOf(el)
	if err != nil {
		return err
	}
	return s.run(ctx, opTimeout, chromedp.Clear([]cdp.NodeID{n.NodeID}, chromedp.ByNodeID))
}

func (s *Session) Type(ctx context.Context, el page.Element, text string) error {
	n, err := nodeOf(el)
	if err != nil {
		return err
	}
	return s.run(ctx, opTimeout, chromedp.SendKeys([]cdp.NodeID{n.NodeID}, text, chromedp.ByNodeID))
}

func (s *Session) Text(ctx context.Context, el page.Element) (string, error) {
	n, err := nodeOf(el)
	if err != nil {
		return "", err
	}
	var text string
	err = s.run(ctx, opTimeout, chromedp.Text([]cdp.NodeID{n.NodeID}, &text, chromedp.ByNodeID))
	if err != nil {
		return "", err
	}
	return text, nil
}

func (s *Session) Attribute(ctx context.Context, el page.Element, name string) (string, bool, error) {
	n, err := nodeOf(el)
	if err != nil {
		return "", false, err
	}
	var value string
	var ok bool
	err = s.run(ctx, opTimeout,
		chromedp.AttributeValue([]cdp.NodeID{n.NodeID}, name, &value, &ok, chromedp.ByNodeID))
	if err != nil {
		return "", false, err
	}
	return value, ok, nil
}

// setCheckedFn and selectIndexFn mutate through the property and then fire a
// bubbling change event; the form's client-side validation ignores bare
// property writes.
const (
	setCheckedFn = `function(checked) {
		this.checked = checked;
		this.dispatchEvent(new Event('change', {bubbles: true}));
	}`
	selectIndexFn = `function(index) {
		this.selectedIndex = index;
		this.dispatchEvent(new Event('change', {bubbles: true}));
	}`
)

func (s *Session) SetChecked(ctx context.Context, el page.Element, checked bool) error {
	n, err := nodeOf(el)
	if err != nil {
		return err
	}
	return s.callOnNode(ctx, n, setCheckedFn, checked)
}

func (s *Session) SelectIndex(ctx context.Context, el page.Element, index int) error {
	n, err := nodeOf(el)
	if err != nil {
		return err
	}
	return s.callOnNode(ctx, n, selectIndexFn, index)
}

// callOnNode resolves the node to a runtime object and invokes fnDecl on it
// with the given arguments.
func (s *Session) callOnNode(ctx context.Context, n *cdp.Node, fnDecl string, args ...any) error {
	return s.run(ctx, opTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(n.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		callArgs := make([]*cdpruntime.CallArgument, 0, len(args))
		for _, a := range args {
			raw, err := json.Marshal(a)
			if err != nil {
				return err
			}
			callArgs = append(callArgs, &cdpruntime.CallArgument{Value: raw})
		}
		_, exc, err := cdpruntime.CallFunctionOn(fnDecl).
			WithObjectID(obj.ObjectID).
			WithArguments(callArgs).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		return nil
	}))
}

func (s *Session) Upload(ctx context.Context, el page.Element, path string) error {
	n, err := nodeOf(el)
	if err != nil {
		return err
	}
	return s.run(ctx, opTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		return dom.SetFileInputFiles([]string{path}).WithNodeID(n.NodeID).Do(ctx)
	}))
}

func (s *Session) ScrollBy(ctx context.Context, deltaY int) error {
	return s.run(ctx, opTimeout,
		chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", deltaY), nil))
}

// Eval runs the script in the page. A non-nil out receives the JSON-decoded
// result.
func (s *Session) Eval(ctx context.Context, script string, out any) error {
	if out == nil {
		return s.run(ctx, opTimeout, chromedp.Evaluate(script, nil))
	}
	var raw jsoniter.RawMessage
	if err := s.run(ctx, opTimeout, chromedp.Evaluate(script, &raw)); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding script result: %w", err)
	}
	return nil
}
