package search

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `
<div class="jobs-search-results-list" data-job-id="search">
  <div data-job-id="111">
    Go Engineer at Acme
  </div>
  <div data-job-id="222">
    Platform Engineer at Initech
    <div><ul><li class="job-card-container__footer-job-state"> Applied </li></ul></div>
  </div>
  <div data-job-id="333">
    Staff Engineer at Blacklisted Corp
  </div>
  <div data-job-id="111">
    Go Engineer at Acme (rendered twice by lazy loading)
  </div>
  <div data-job-id="444">
    SRE at Hooli
    <div><ul><li class="job-card-container__footer-job-state">Promoted</li></ul></div>
  </div>
</div>`

func TestParseJobCards(t *testing.T) {
	cards, err := ParseJobCards(resultsPage, []string{"Blacklisted Corp"})
	require.NoError(t, err)

	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.ID)
	}
	// 222 is already applied, 333 is blacklisted, the duplicate 111 and the
	// "search" container are dropped. 444's footer is not an Applied state.
	if diff := cmp.Diff([]string{"111", "444"}, ids); diff != "" {
		t.Errorf("unexpected card IDs (-want +got):\n%s", diff)
	}
}

func TestParseJobCardsEmptyPage(t *testing.T) {
	cards, err := ParseJobCards("<html><body>No results</body></html>", nil)
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestParseJobCardsBlacklistIsCaseInsensitive(t *testing.T) {
	cards, err := ParseJobCards(`<div data-job-id="1">Engineer at ACME</div>`, []string{"acme"})
	require.NoError(t, err)
	assert.Empty(t, cards)
}
