package search

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Card is one applyable listing extracted from a results page.
type Card struct {
	ID   string
	Text string
}

// ParseJobCards extracts the job cards from a results-page HTML snapshot.
// Cards already marked "Applied" in their footer, cards mentioning a
// blacklisted company, and the list container itself (which carries
// data-job-id="search") are dropped. Duplicate IDs keep their first
// occurrence; the list renders some cards twice while lazy-loading.
func ParseJobCards(html string, blacklist []string) ([]Card, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var cards []Card
	seen := map[string]bool{}
	doc.Find("div[data-job-id]").Each(func(_ int, sel *goquery.Selection) {
		id, _ := sel.Attr("data-job-id")
		if id == "" || id == "search" || seen[id] {
			return
		}

		applied := false
		sel.Find("li.job-card-container__footer-job-state").Each(func(_ int, li *goquery.Selection) {
			if strings.TrimSpace(li.Text()) == "Applied" {
				applied = true
			}
		})
		if applied {
			return
		}

		text := strings.TrimSpace(sel.Text())
		if blacklisted(text, blacklist) {
			return
		}

		seen[id] = true
		cards = append(cards, Card{ID: id, Text: text})
	})
	return cards, nil
}

func blacklisted(cardText string, blacklist []string) bool {
	t := strings.ToLower(cardText)
	for _, entry := range blacklist {
		if entry != "" && strings.Contains(t, strings.ToLower(entry)) {
			return true
		}
	}
	return false
}
