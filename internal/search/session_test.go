package search

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/internal/apply"
	"github.com/xkilldash9x/easyapply-cli/internal/browser/page/pagetest"
	"github.com/xkilldash9x/easyapply-cli/internal/humanoid"
	"github.com/xkilldash9x/easyapply-cli/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeApplier records the IDs it was asked to apply to and reports a fixed
// outcome per ID.
type fakeApplier struct {
	attempted []string
	outcomes  map[string]apply.Outcome
}

func (a *fakeApplier) Apply(_ context.Context, jobID string) (apply.Outcome, error) {
	a.attempted = append(a.attempted, jobID)
	if out, ok := a.outcomes[jobID]; ok {
		return out, nil
	}
	return apply.Outcome{Attempted: true, Reason: apply.ReasonFailed}, nil
}

type fakeRecorder struct {
	records []store.Record
}

func (r *fakeRecorder) Append(rec store.Record) error {
	r.records = append(r.records, rec)
	return nil
}

func cardHTML(ids ...string) string {
	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, `<div data-job-id=%q>Job %s at Acme</div>`, id, id)
	}
	return b.String()
}

func newTestSession(f *pagetest.Fake, applier Applier, rec Recorder, skip map[string]bool, cfg Config) *Session {
	pacer := humanoid.New(humanoid.Config{
		MinActionDelay: time.Microsecond,
		MaxActionDelay: 2 * time.Microsecond,
		Seed:           1,
	})
	if cfg.PagesPerMinute == 0 {
		cfg.PagesPerMinute = 600000
	}
	return NewSession(f, applier, rec, skip, pacer, cfg, rand.New(rand.NewSource(1)), zap.NewNop())
}

func TestRunAppliesToFreshCards(t *testing.T) {
	f := pagetest.New()
	f.PageTitle = "Go Engineer | Acme | LinkedIn"
	pages := map[int]string{0: cardHTML("111", "222")}
	f.NavigateFunc = func(u string) error {
		if !strings.Contains(u, "jobs/view/") {
			f.HTML = pages[offsetOf(u)]
		}
		return nil
	}

	applier := &fakeApplier{outcomes: map[string]apply.Outcome{
		"111": {Applied: true, Attempted: true, Reason: apply.ReasonApplied},
	}}
	rec := &fakeRecorder{}
	s := newTestSession(f, applier, rec, nil, Config{
		Positions: []string{"Go Engineer"},
		Locations: []string{"Remote"},
	})

	applied, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, []string{"111", "222"}, applier.attempted)

	require.Len(t, rec.records, 2)
	assert.Equal(t, "111", rec.records[0].JobID)
	assert.True(t, rec.records[0].Result)
	assert.Equal(t, "Go Engineer", rec.records[0].Title)
	assert.Equal(t, "Acme", rec.records[0].Company)
	assert.False(t, rec.records[1].Result)
	assert.True(t, rec.records[1].Attempted)
}

func TestRunSkipsRecentlyAttempted(t *testing.T) {
	f := pagetest.New()
	pages := map[int]string{0: cardHTML("111", "222")}
	f.NavigateFunc = func(u string) error { f.HTML = pages[offsetOf(u)]; return nil }

	applier := &fakeApplier{}
	s := newTestSession(f, applier, &fakeRecorder{}, map[string]bool{"111": true}, Config{
		Positions: []string{"Go Engineer"},
		Locations: []string{"Remote"},
	})

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"222"}, applier.attempted)
}

// A card seen on page one must not be re-attempted when the next page
// renders it again.
func TestRunDoesNotReattemptAcrossPages(t *testing.T) {
	f := pagetest.New()
	pages := map[int]string{
		0:  cardHTML("111", "222"),
		25: cardHTML("222", "333"),
	}
	f.NavigateFunc = func(u string) error { f.HTML = pages[offsetOf(u)]; return nil }

	applier := &fakeApplier{}
	s := newTestSession(f, applier, &fakeRecorder{}, nil, Config{
		Positions: []string{"Go Engineer"},
		Locations: []string{"Remote"},
	})

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222", "333"}, applier.attempted)
}

func TestRunStopsComboWhenPageRunsDry(t *testing.T) {
	f := pagetest.New()
	pages := map[int]string{0: cardHTML("111")}
	var urls []string
	f.NavigateFunc = func(u string) error {
		urls = append(urls, u)
		f.HTML = pages[offsetOf(u)]
		return nil
	}

	s := newTestSession(f, &fakeApplier{}, &fakeRecorder{}, nil, Config{
		Positions: []string{"Go Engineer"},
		Locations: []string{"Remote"},
	})

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	// Page at offset 0, then the empty page at offset 25 ends the combo.
	require.Len(t, urls, 2)
	assert.Contains(t, urls[0], "start=0")
	assert.Contains(t, urls[1], "start=25")
}

func TestRunHonorsComboBudget(t *testing.T) {
	f := pagetest.New()
	f.NavigateFunc = func(string) error { f.HTML = cardHTML("111"); return nil }

	s := newTestSession(f, &fakeApplier{}, &fakeRecorder{}, nil, Config{
		Positions: []string{"Go Engineer"},
		Locations: []string{"Remote"},
	})
	// Freeze the clock past the deadline after the first page.
	base := time.Now()
	calls := 0
	s.now = func() time.Time {
		calls++
		if calls > 4 {
			return base.Add(2 * time.Hour)
		}
		return base
	}

	_, err := s.Run(context.Background())
	require.NoError(t, err)
}

func TestRunHonorsCancellation(t *testing.T) {
	f := pagetest.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestSession(f, &fakeApplier{}, &fakeRecorder{}, nil, Config{
		Positions: []string{"Go Engineer"},
		Locations: []string{"Remote"},
	})
	_, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunCoversEveryCombo(t *testing.T) {
	f := pagetest.New()
	var urls []string
	f.NavigateFunc = func(u string) error { urls = append(urls, u); f.HTML = ""; return nil }

	s := newTestSession(f, &fakeApplier{}, &fakeRecorder{}, nil, Config{
		Positions: []string{"A", "B"},
		Locations: []string{"X", "Y"},
	})
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, urls, 4)
	for _, want := range []string{
		"keywords=A&location=X", "keywords=A&location=Y",
		"keywords=B&location=X", "keywords=B&location=Y",
	} {
		found := false
		for _, u := range urls {
			if strings.Contains(u, want) {
				found = true
			}
		}
		assert.True(t, found, "missing combo %s", want)
	}
}

// offsetOf pulls the start offset back out of a built search URL.
func offsetOf(u string) int {
	i := strings.Index(u, "start=")
	if i < 0 {
		return -1
	}
	rest := u[i+len("start="):]
	if j := strings.IndexByte(rest, '&'); j >= 0 {
		rest = rest[:j]
	}
	var n int
	fmt.Sscanf(rest, "%d", &n)
	return n
}
