package qa

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/easyapply-cli/internal/browser/page"
	"github.com/xkilldash9x/easyapply-cli/internal/browser/page/pagetest"
)

func section(children ...*pagetest.Node) *pagetest.Node {
	return pagetest.NewNode("div", "class", "jobs-easy-apply-form-section__grouping").Add(children...)
}

func sectionHandle(t *testing.T, f *pagetest.Fake) page.Element {
	t.Helper()
	sections, err := f.Find(context.Background(), SectionSelector)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	return sections[0]
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		children []*pagetest.Node
		want     FieldKind
		controls int
	}{
		{
			name: "radio group",
			children: []*pagetest.Node{
				pagetest.NewNode("input", "type", "radio", "value", "Yes"),
				pagetest.NewNode("input", "type", "radio", "value", "No"),
			},
			want:     RadioGroup,
			controls: 2,
		},
		{
			name: "required select",
			children: []*pagetest.Node{
				pagetest.NewNode("select", "required", "").Add(
					pagetest.NewNode("option"),
					pagetest.NewNode("option"),
				),
			},
			want:     MultiSelect,
			controls: 1,
		},
		{
			name: "single line text",
			children: []*pagetest.Node{
				pagetest.NewNode("input", "type", "text"),
			},
			want:     SingleLineText,
			controls: 1,
		},
		{
			name: "textarea",
			children: []*pagetest.Node{
				pagetest.NewNode("textarea"),
			},
			want:     MultiLineText,
			controls: 1,
		},
		{
			name:     "nothing recognizable",
			children: []*pagetest.Node{pagetest.NewNode("span")},
			want:     Unrecognized,
			controls: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := pagetest.New()
			f.Root.Add(section(tc.children...))

			kind, controls, err := Classify(context.Background(), f, sectionHandle(t, f))
			require.NoError(t, err)
			assert.Equal(t, tc.want, kind)
			assert.Len(t, controls, tc.controls)
		})
	}
}

// Radios win over a select in the same section: the radio group is the
// control the applicant answers, the select is ancillary.
func TestClassifyRadioTakesPriority(t *testing.T) {
	f := pagetest.New()
	f.Root.Add(section(
		pagetest.NewNode("select", "required", ""),
		pagetest.NewNode("input", "type", "radio", "value", "Yes"),
	))

	kind, _, err := Classify(context.Background(), f, sectionHandle(t, f))
	require.NoError(t, err)
	assert.Equal(t, RadioGroup, kind)
}

// A select without the required attribute is not treated as the section's
// answer control.
func TestClassifyIgnoresOptionalSelect(t *testing.T) {
	f := pagetest.New()
	f.Root.Add(section(
		pagetest.NewNode("select"),
		pagetest.NewNode("input", "type", "text"),
	))

	kind, _, err := Classify(context.Background(), f, sectionHandle(t, f))
	require.NoError(t, err)
	assert.Equal(t, SingleLineText, kind)
}

func TestClassifyStaleSectionSurfaces(t *testing.T) {
	f := pagetest.New()
	s := section(pagetest.NewNode("input", "type", "radio"))
	f.Root.Add(s)
	h := sectionHandle(t, f)

	f.Detach(s)
	_, _, err := Classify(context.Background(), f, h)
	assert.ErrorIs(t, err, page.ErrStale)
}
