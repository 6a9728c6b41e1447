// Package qa contains the question-answering and form-traversal engine: it
// classifies the control inside a rendered form section, resolves an answer
// for the section's question text through an ordered keyword rule chain
// backed by a persisted answer cache, and writes the answer into the control
// while tolerating the section re-rendering underneath it.
package qa

import (
	"context"

	"github.com/xkilldash9x/easyapply-cli/internal/browser/page"
)

// FieldKind is the classified control type of a form section.
type FieldKind int

const (
	Unrecognized FieldKind = iota
	RadioGroup
	MultiSelect
	SingleLineText
	MultiLineText
)

func (k FieldKind) String() string {
	switch k {
	case RadioGroup:
		return "radio-group"
	case MultiSelect:
		return "multi-select"
	case SingleLineText:
		return "single-line-text"
	case MultiLineText:
		return "multi-line-text"
	default:
		return "unrecognized"
	}
}

// Probe selectors, in classification priority order. The section markup is
// whatever the wizard happens to render, so detection is structural: the
// first probe that matches wins.
const (
	// SectionSelector locates the question/control groupings of the
	// application form.
	SectionSelector = ".jobs-easy-apply-form-section__grouping"

	radioSelector      = "input[type='radio']"
	selectSelector     = "select[required]"
	singleLineSelector = "input[type='text']"
	multiLineSelector  = "textarea"
	optionSelector     = "option"
)

// Classify determines the field kind of a form section and returns the
// matched control elements (the radio inputs for a RadioGroup, the select
// for a MultiSelect, the input or textarea for text kinds). It only reads
// the page. A section that vanished between fetch and probe surfaces as
// page.ErrStale so the caller can re-fetch and retry.
func Classify(ctx context.Context, p page.Page, section page.Element) (FieldKind, []page.Element, error) {
	radios, err := p.FindIn(ctx, section, radioSelector)
	if err != nil {
		return Unrecognized, nil, err
	}
	if len(radios) > 0 {
		return RadioGroup, radios, nil
	}

	selects, err := p.FindIn(ctx, section, selectSelector)
	if err != nil {
		return Unrecognized, nil, err
	}
	if len(selects) > 0 {
		return MultiSelect, selects[:1], nil
	}

	inputs, err := p.FindIn(ctx, section, singleLineSelector)
	if err != nil {
		return Unrecognized, nil, err
	}
	if len(inputs) > 0 {
		return SingleLineText, inputs[:1], nil
	}

	areas, err := p.FindIn(ctx, section, multiLineSelector)
	if err != nil {
		return Unrecognized, nil, err
	}
	if len(areas) > 0 {
		return MultiLineText, areas[:1], nil
	}

	return Unrecognized, nil, nil
}
