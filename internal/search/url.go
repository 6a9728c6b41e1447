// Package search runs the outer hunt: it pages through job-search results
// for every position/location combination, extracts applyable job cards from
// the rendered list, filters them through the blacklist and the recently
// attempted skip-set, and hands each surviving ID to the application driver.
package search

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const searchBaseURL = "https://www.linkedin.com/jobs/search/"

// Experience level codes accepted in the f_E query parameter.
var ExperienceLevelNames = map[int]string{
	1: "Entry level",
	2: "Associate",
	3: "Mid-Senior level",
	4: "Director",
	5: "Executive",
	6: "Internship",
}

// TimeFilterParam maps the human-readable time filter to its f_TPR value.
// Unknown filters mean "any time" and add no parameter.
func TimeFilterParam(filter string) string {
	switch filter {
	case "24 hours":
		return "r86400"
	case "past week":
		return "r604800"
	case "past month":
		return "r2592000"
	default:
		return ""
	}
}

// BuildSearchURL constructs a results-page URL pre-filtered to Easy Apply
// listings (f_LF=f_AL) for the given position and location, starting at the
// given result offset.
func BuildSearchURL(position, location string, start int, experience []int, timeFilter string) string {
	var b strings.Builder
	b.WriteString(searchBaseURL)
	b.WriteString("?f_LF=f_AL&keywords=")
	b.WriteString(url.QueryEscape(position))
	b.WriteString("&location=")
	b.WriteString(url.QueryEscape(location))
	b.WriteString("&start=")
	b.WriteString(strconv.Itoa(start))

	if len(experience) > 0 {
		codes := make([]string, 0, len(experience))
		for _, e := range experience {
			codes = append(codes, strconv.Itoa(e))
		}
		fmt.Fprintf(&b, "&f_E=%s", strings.Join(codes, ","))
	}
	if p := TimeFilterParam(timeFilter); p != "" {
		fmt.Fprintf(&b, "&f_TPR=%s", p)
	}
	return b.String()
}
