package apply

import (
	"regexp"
	"strings"
)

// Job page titles look like "(3) Senior Go Engineer | Acme Corp | LinkedIn".
// The leading parenthesized digit is the notification badge and is not part
// of the position name.
var (
	positionPattern = regexp.MustCompile(`\(?\d?\)?\s?(\w.*)`)
	companyPattern  = regexp.MustCompile(`(\w.*)`)
)

// SplitTitle extracts the position and company names from a job page title.
// Missing segments come back empty rather than failing; the log record is
// still worth writing with whatever was recoverable.
func SplitTitle(title string) (position, company string) {
	parts := strings.Split(title, " | ")
	if len(parts) > 0 {
		if m := positionPattern.FindStringSubmatch(parts[0]); m != nil {
			position = m[1]
		}
	}
	if len(parts) > 1 {
		if m := companyPattern.FindStringSubmatch(parts[1]); m != nil {
			company = m[1]
		}
	}
	return position, company
}
