package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/internal/browser/page"
)

// multiSelectFallbackIndex is the option chosen when no option text
// contains the resolved answer. Index 1, the "second option", inherited
// verbatim from the behavior this replaces; it is an arbitrary heuristic,
// not a semantic choice, and is kept only for continuity.
const multiSelectFallbackIndex = 1

// sectionAttempts bounds the re-fetch-and-retry cycle for a section whose
// handle keeps going stale.
const sectionAttempts = 2

// Filler walks the rendered form sections and answers each one. Every
// per-field failure is contained: logged, the field skipped, and the pass
// continues. Only a context cancellation aborts a pass.
type Filler struct {
	page     page.Page
	resolver *Resolver
	phone    string
	logger   *zap.Logger
}

// NewFiller builds a filler over the page and resolver. phone is written
// into the dedicated phone-number section when the wizard presents one.
func NewFiller(p page.Page, resolver *Resolver, phone string, logger *zap.Logger) *Filler {
	return &Filler{page: p, resolver: resolver, phone: phone, logger: logger.Named("filler")}
}

// FillAll runs the two passes over the current step's form sections:
// pass 1 resets prior selections, pass 2 re-classifies and fills. Sections
// re-render freely between the passes, so positions are re-fetched by index
// on every touch rather than holding handles across passes.
func (f *Filler) FillAll(ctx context.Context) error {
	sections, err := f.page.Find(ctx, SectionSelector)
	if err != nil {
		return fmt.Errorf("locating form sections: %w", err)
	}
	count := len(sections)
	f.logger.Info("Filling form.", zap.Int("sections", count))

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		f.resetSection(ctx, i)
	}
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		f.fillSection(ctx, i)
	}
	return nil
}

// FillPhoneNumber pre-fills the contact step's phone field, if present.
func (f *Filler) FillPhoneNumber(ctx context.Context) error {
	sections, err := f.page.Find(ctx, SectionSelector)
	if err != nil {
		return fmt.Errorf("locating form sections: %w", err)
	}
	for i := range sections {
		err := f.withSection(ctx, i, func(section page.Element) error {
			text, err := f.page.Text(ctx, section)
			if err != nil {
				return err
			}
			if !strings.Contains(text, "Mobile phone number") {
				return nil
			}
			inputs, err := f.page.FindIn(ctx, section, "input")
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return nil
			}
			if err := f.page.Clear(ctx, inputs[0]); err != nil {
				return err
			}
			return f.page.Type(ctx, inputs[0], f.phone)
		})
		if err != nil && !errors.Is(err, page.ErrStale) {
			f.logger.Warn("Phone number pre-fill failed; leaving the field as rendered.", zap.Error(err))
		}
	}
	return nil
}

// withSection re-fetches the section at the given index and applies fn,
// retrying once if the handle goes stale mid-operation. A section index
// that no longer exists (the step shrank) reports ErrNotFound.
func (f *Filler) withSection(ctx context.Context, index int, fn func(section page.Element) error) error {
	var lastErr error
	for attempt := 0; attempt < sectionAttempts; attempt++ {
		sections, err := f.page.Find(ctx, SectionSelector)
		if err != nil {
			return err
		}
		if index >= len(sections) {
			return page.ErrNotFound
		}
		lastErr = fn(sections[index])
		if lastErr == nil || !errors.Is(lastErr, page.ErrStale) {
			return lastErr
		}
		f.logger.Warn("Form section went stale; re-fetching.",
			zap.Int("section", index), zap.Int("attempt", attempt+1))
	}
	return lastErr
}

// resetSection is pass 1: deselect radios and reset selects so a previous
// partial attempt cannot leave a control in a half-answered state. Text
// fields are cleared at write time instead.
func (f *Filler) resetSection(ctx context.Context, index int) {
	err := f.withSection(ctx, index, func(section page.Element) error {
		kind, controls, err := Classify(ctx, f.page, section)
		if err != nil {
			return err
		}
		switch kind {
		case RadioGroup:
			for _, radio := range controls {
				if err := f.page.SetChecked(ctx, radio, false); err != nil {
					return err
				}
			}
		case MultiSelect:
			return f.page.SelectIndex(ctx, controls[0], 0)
		}
		return nil
	})
	if err != nil {
		f.logger.Warn("Reset pass failed for section; continuing.",
			zap.Int("section", index), zap.Error(err))
	}
}

// fillSection is pass 2: re-classify, resolve, and apply the answer.
func (f *Filler) fillSection(ctx context.Context, index int) {
	err := f.withSection(ctx, index, func(section page.Element) error {
		question, err := f.page.Text(ctx, section)
		if err != nil {
			return err
		}
		question = Normalize(question)
		if question == "" {
			return nil
		}

		kind, controls, err := Classify(ctx, f.page, section)
		if err != nil {
			return err
		}
		if kind == Unrecognized {
			f.logger.Info("Unable to determine field type; skipping.",
				zap.Int("section", index), zap.String("question", question))
			return nil
		}

		answer := f.resolver.Resolve(question)
		f.logger.Info("Applying answer.",
			zap.Int("section", index),
			zap.String("kind", kind.String()),
			zap.String("question", question),
			zap.String("answer", answer))

		switch kind {
		case RadioGroup:
			return f.fillRadioGroup(ctx, controls, answer)
		case MultiSelect:
			return f.fillMultiSelect(ctx, controls[0], answer)
		case SingleLineText, MultiLineText:
			return f.fillText(ctx, controls[0], answer)
		}
		return nil
	})
	if err != nil {
		// Stale-after-retry and everything else alike: the field is left
		// unanswered and the pass moves on.
		f.logger.Warn("Section skipped after fill failure.",
			zap.Int("section", index), zap.Error(err))
	}
}

// fillRadioGroup selects the control whose value equals the answer, falling
// back to any control whose value contains "yes" or "no" (last such wins),
// then to the first control. Selection goes through SetChecked so the page
// sees a change event.
func (f *Filler) fillRadioGroup(ctx context.Context, radios []page.Element, answer string) error {
	var exact, closest page.Element
	for _, radio := range radios {
		value, _, err := f.page.Attribute(ctx, radio, "value")
		if err != nil {
			return err
		}
		v := strings.ToLower(value)
		if strings.EqualFold(value, answer) && exact == nil {
			exact = radio
		}
		if strings.Contains(v, "yes") || strings.Contains(v, "no") {
			closest = radio
		}
	}

	target := exact
	switch {
	case target != nil:
	case closest != nil:
		f.logger.Info("No exact radio match; selecting the closest yes/no control.")
		target = closest
	default:
		f.logger.Warn("No suitable radio control found; selecting the first option.")
		target = radios[0]
	}
	return f.page.SetChecked(ctx, target, true)
}

// fillMultiSelect clicks the first option whose text contains the answer,
// else the fixed fallback index.
func (f *Filler) fillMultiSelect(ctx context.Context, sel page.Element, answer string) error {
	options, err := f.page.FindIn(ctx, sel, optionSelector)
	if err != nil {
		return err
	}
	if len(options) == 0 {
		return fmt.Errorf("select has no options")
	}

	needle := strings.ToLower(answer)
	for _, option := range options {
		text, err := f.page.Text(ctx, option)
		if err != nil {
			return err
		}
		if strings.Contains(strings.ToLower(strings.TrimSpace(text)), needle) {
			return f.page.Click(ctx, option)
		}
	}

	idx := multiSelectFallbackIndex
	if idx >= len(options) {
		idx = len(options) - 1
	}
	f.logger.Info("No option matched the answer; selecting the fallback option.", zap.Int("index", idx))
	return f.page.Click(ctx, options[idx])
}

func (f *Filler) fillText(ctx context.Context, input page.Element, answer string) error {
	if err := f.page.Clear(ctx, input); err != nil {
		return err
	}
	return f.page.Type(ctx, input, answer)
}
