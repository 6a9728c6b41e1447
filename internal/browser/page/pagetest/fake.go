// Package pagetest provides an in-memory page.Page implementation for tests.
// It models just enough of a rendered document for the form filler and the
// step driver: a node tree, a compound-CSS-selector matcher, per-node click
// hooks for simulating wizard transitions, and switchable staleness so tests
// can exercise the re-fetch/retry paths.
package pagetest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/easyapply-cli/internal/browser/page"
)

// Node is a fake DOM node. Mutate it freely between engine calls; the fake
// has no hidden state beyond what is on the node.
type Node struct {
	Tag      string
	Attrs    map[string]string
	Text     string
	Children []*Node

	// Checked mirrors the checked property of radio/checkbox inputs.
	Checked bool
	// Value mirrors the value property of text inputs and textareas.
	Value string
	// SelectedIndex mirrors the selectedIndex property of selects.
	SelectedIndex int

	// StaleFor makes the next N operations on this node fail with
	// page.ErrStale, decrementing each time. Models a re-render window.
	StaleFor int

	// OnClick, when set, runs after a successful click. Tests use it to
	// mutate the document the way the real wizard would.
	OnClick func()
}

// NewNode builds a node with attributes given as alternating key/value pairs.
func NewNode(tag string, kv ...string) *Node {
	n := &Node{Tag: tag, Attrs: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Attrs[kv[i]] = kv[i+1]
	}
	return n
}

// Add appends children and returns the receiver for chaining.
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

type handle struct {
	node *Node
}

func (h handle) Describe() string {
	if id, ok := h.node.Attrs["id"]; ok {
		return h.node.Tag + "#" + id
	}
	return h.node.Tag
}

// Fake is the in-memory page.
type Fake struct {
	mu sync.Mutex

	Root      *Node
	PageTitle string
	// HTML is returned by Source. Tests set it directly; the step driver
	// only scans it for marker substrings.
	HTML string

	// NavigateFunc, when set, handles Navigate calls (e.g. swapping Root).
	NavigateFunc func(url string) error

	// Detached nodes report ErrStale permanently.
	detached map[*Node]bool

	// Log records the operations performed, for assertions on ordering.
	Log []string
}

var _ page.Page = (*Fake)(nil)

// New returns a Fake with an empty body.
func New() *Fake {
	return &Fake{Root: NewNode("body"), detached: map[*Node]bool{}}
}

// Detach makes every future operation on the node fail with ErrStale,
// modeling a node removed by a re-render.
func (f *Fake) Detach(n *Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached[n] = true
}

func (f *Fake) record(format string, args ...any) {
	f.Log = append(f.Log, fmt.Sprintf(format, args...))
}

func (f *Fake) check(n *Node) error {
	if f.detached[n] {
		return page.ErrStale
	}
	if n.StaleFor > 0 {
		n.StaleFor--
		return page.ErrStale
	}
	return nil
}

func (f *Fake) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("navigate %s", url)
	if f.NavigateFunc != nil {
		return f.NavigateFunc(url)
	}
	return nil
}

func (f *Fake) Title(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.PageTitle, nil
}

func (f *Fake) Source(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.HTML, nil
}

func (f *Fake) Find(_ context.Context, selector string) ([]page.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collect(f.Root, selector), nil
}

func (f *Fake) FindIn(_ context.Context, root page.Element, selector string) ([]page.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := root.(handle)
	if err := f.check(h.node); err != nil {
		return nil, err
	}
	return f.collect(h.node, selector), nil
}

func (f *Fake) collect(root *Node, selector string) []page.Element {
	var out []page.Element
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			if !f.detached[c] && matches(c, selector) {
				out = append(out, handle{c})
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

func (f *Fake) WaitVisible(_ context.Context, selector string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.collect(f.Root, selector)) == 0 {
		return page.ErrNotFound
	}
	return nil
}

func (f *Fake) Click(_ context.Context, el page.Element) error {
	f.mu.Lock()
	h := el.(handle)
	if err := f.check(h.node); err != nil {
		f.mu.Unlock()
		return err
	}
	f.record("click %s", h.Describe())
	onClick := h.node.OnClick
	f.mu.Unlock()
	if onClick != nil {
		onClick()
	}
	return nil
}

func (f *Fake) Clear(_ context.Context, el page.Element) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := el.(handle)
	if err := f.check(h.node); err != nil {
		return err
	}
	f.record("clear %s", h.Describe())
	h.node.Value = ""
	return nil
}

func (f *Fake) Type(_ context.Context, el page.Element, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := el.(handle)
	if err := f.check(h.node); err != nil {
		return err
	}
	f.record("type %s %q", h.Describe(), text)
	h.node.Value += text
	return nil
}

func (f *Fake) Text(_ context.Context, el page.Element) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := el.(handle)
	if err := f.check(h.node); err != nil {
		return "", err
	}
	var b strings.Builder
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Text != "" {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(n.Text)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(h.node)
	return b.String(), nil
}

func (f *Fake) Attribute(_ context.Context, el page.Element, name string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := el.(handle)
	if err := f.check(h.node); err != nil {
		return "", false, err
	}
	v, ok := h.node.Attrs[name]
	return v, ok, nil
}

func (f *Fake) SetChecked(_ context.Context, el page.Element, checked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := el.(handle)
	if err := f.check(h.node); err != nil {
		return err
	}
	f.record("setchecked %s %v", h.Describe(), checked)
	h.node.Checked = checked
	return nil
}

func (f *Fake) SelectIndex(_ context.Context, el page.Element, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := el.(handle)
	if err := f.check(h.node); err != nil {
		return err
	}
	f.record("selectindex %s %d", h.Describe(), index)
	h.node.SelectedIndex = index
	return nil
}

func (f *Fake) Upload(_ context.Context, el page.Element, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := el.(handle)
	if err := f.check(h.node); err != nil {
		return err
	}
	f.record("upload %s %s", h.Describe(), path)
	h.node.Value = path
	return nil
}

func (f *Fake) ScrollBy(_ context.Context, deltaY int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("scroll %d", deltaY)
	return nil
}

func (f *Fake) Eval(_ context.Context, script string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("eval %s", script)
	return nil
}

// NodeOf unwraps a handle back to its fake node, for assertions.
func NodeOf(el page.Element) *Node {
	return el.(handle).node
}

// -- Selector matching --
//
// Supports the subset the production code uses: comma-separated groups of
// compound selectors made of a tag, .classes, and [attr], [attr='v'],
// [attr*='v'], [attr^='v'] parts. No combinators; FindIn provides scoping.

func matches(n *Node, selector string) bool {
	for _, group := range strings.Split(selector, ",") {
		if matchCompound(n, strings.TrimSpace(group)) {
			return true
		}
	}
	return false
}

func matchCompound(n *Node, sel string) bool {
	if sel == "" {
		return false
	}
	rest := sel
	// Leading tag name.
	i := strings.IndexAny(rest, ".[")
	tag := rest
	if i >= 0 {
		tag = rest[:i]
		rest = rest[i:]
	} else {
		rest = ""
	}
	if tag != "" && tag != "*" && !strings.EqualFold(tag, n.Tag) {
		return false
	}
	for rest != "" {
		switch rest[0] {
		case '.':
			end := strings.IndexAny(rest[1:], ".[")
			var class string
			if end < 0 {
				class = rest[1:]
				rest = ""
			} else {
				class = rest[1 : 1+end]
				rest = rest[1+end:]
			}
			if !hasClass(n, class) {
				return false
			}
		case '[':
			end := strings.Index(rest, "]")
			if end < 0 {
				return false
			}
			if !matchAttr(n, rest[1:end]) {
				return false
			}
			rest = rest[end+1:]
		default:
			return false
		}
	}
	return true
}

func hasClass(n *Node, class string) bool {
	for _, c := range strings.Fields(n.Attrs["class"]) {
		if c == class {
			return true
		}
	}
	return false
}

func matchAttr(n *Node, expr string) bool {
	op := ""
	idx := -1
	for _, candidate := range []string{"*=", "^=", "="} {
		if i := strings.Index(expr, candidate); i >= 0 {
			op = candidate
			idx = i
			break
		}
	}
	if op == "" {
		_, ok := n.Attrs[strings.TrimSpace(expr)]
		return ok
	}
	name := strings.TrimSpace(expr[:idx])
	val := strings.Trim(strings.TrimSpace(expr[idx+len(op):]), `'"`)
	got, ok := n.Attrs[name]
	if !ok {
		return false
	}
	switch op {
	case "=":
		return got == val
	case "*=":
		return strings.Contains(got, val)
	case "^=":
		return strings.HasPrefix(got, val)
	}
	return false
}
