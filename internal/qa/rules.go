package qa

import (
	"math/rand"
	"strings"
)

// Profile carries the configured constants some rules answer with.
type Profile struct {
	Salary string
	Rate   string
}

// Rule pairs a keyword predicate with an answer producer. Rules are
// evaluated in order and the first whose Match returns true wins. Answer
// may return "" for a matched-but-unresolvable question (e.g. a work
// authorization question phrased in a way no sub-rule recognizes); the
// resolver then falls back to the placeholder answer instead of letting a
// later, looser rule fire.
type Rule struct {
	Name   string
	Match  func(q string) bool
	Answer func(q string) string
}

// experiencePool is the fixed set the years-of-experience rule draws from.
// The draw is intentionally non-deterministic; only membership in this pool
// is guaranteed.
var experiencePool = []string{"6", "5", "4", "3"}

// declineToIdentify is the answer given to demographic self-identification
// questions. The form's decline option is always preferred over inventing
// an attribute on the applicant's behalf.
const declineToIdentify = "I do not wish to self-identify"

// fallbackAnswer is the placeholder for questions no rule resolves. It is
// recorded in the cache like any other answer so the operator can find and
// correct it there.
const fallbackAnswer = "4"

func contains(q string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(q, s) {
			return true
		}
	}
	return false
}

func containsAll(q string, subs ...string) bool {
	for _, s := range subs {
		if !strings.Contains(q, s) {
			return false
		}
	}
	return true
}

func constant(answer string) func(string) string {
	return func(string) string { return answer }
}

// DefaultRules builds the ordered rule chain. The ordering encodes
// specificity: narrow categories first, the catch-all affirmative last.
func DefaultRules(profile Profile, rng *rand.Rand) []Rule {
	return []Rule{
		{
			Name:  "english-proficiency",
			Match: func(q string) bool { return contains(q, "english") },
			Answer: func(q string) string {
				if contains(q, "speak", "communicate") {
					return "Yes"
				}
				if contains(q, "proficiency", "level") {
					return "Native"
				}
				return ""
			},
		},
		{
			Name: "years-of-experience",
			Match: func(q string) bool {
				return strings.Contains(q, "how many") && contains(q, "experience", "years")
			},
			Answer: func(string) string { return experiencePool[rng.Intn(len(experiencePool))] },
		},
		{
			Name:   "has-experience",
			Match:  func(q string) bool { return containsAll(q, "do you", "experience") },
			Answer: constant("Yes"),
		},
		{
			Name:   "how-did-you-hear",
			Match:  func(q string) bool { return strings.Contains(q, "how did you hear") },
			Answer: constant("Other"),
		},
		{
			Name:   "referral",
			Match:  func(q string) bool { return strings.Contains(q, "refer") },
			Answer: constant("N/A"),
		},
		{
			Name:   "why-this-position",
			Match:  func(q string) bool { return strings.Contains(q, "why") },
			Answer: constant("Good glassdoor reviews and the workers I talked to love their jobs"),
		},
		{
			Name: "work-authorization",
			Match: func(q string) bool {
				return strings.Contains(q, "work") && contains(q, "authorization", "authorized")
			},
			Answer: func(q string) string {
				if strings.Contains(q, "usc") {
					return "USC: 0"
				}
				if strings.Contains(q, "status") {
					return "U.S Citizen"
				}
				return ""
			},
		},
		{
			Name:   "w2",
			Match:  func(q string) bool { return strings.Contains(q, "w2") },
			Answer: constant("Yes"),
		},
		{
			Name: "clearance-eligible",
			Match: func(q string) bool {
				return contains(q, "eligible", "able") && strings.Contains(q, "clearance")
			},
			Answer: constant("Yes"),
		},
		{
			Name: "clearance-held",
			Match: func(q string) bool {
				return contains(q, "have", "obtain", "obtained") && strings.Contains(q, "clearance")
			},
			Answer: constant("Yes"),
		},
		{
			Name: "citizenship",
			Match: func(q string) bool {
				return contains(q, "us citizen", "u.s. citizen", "green card")
			},
			Answer: constant("Yes"),
		},
		{
			Name:   "disability",
			Match:  func(q string) bool { return containsAll(q, "do you", "disability") },
			Answer: constant("No"),
		},
		{
			Name:  "drug-test",
			Match: func(q string) bool { return strings.Contains(q, "drug test") },
			Answer: func(q string) string {
				if strings.Contains(q, "positive") {
					return "No"
				}
				if strings.Contains(q, "can you") {
					return "Yes"
				}
				return ""
			},
		},
		{
			Name:   "commute",
			Match:  func(q string) bool { return containsAll(q, "can you", "commute") },
			Answer: constant("Yes"),
		},
		{
			Name:   "criminal-history",
			Match:  func(q string) bool { return contains(q, "criminal", "felon", "charged") },
			Answer: constant("No"),
		},
		{
			Name:   "residence",
			Match:  func(q string) bool { return strings.Contains(q, "currently reside") },
			Answer: constant("Yes"),
		},
		{
			Name:   "sponsorship",
			Match:  func(q string) bool { return strings.Contains(q, "sponsor") },
			Answer: constant("No"),
		},
		{
			Name:   "salary-expectation",
			Match:  func(q string) bool { return strings.Contains(q, "salary") },
			Answer: constant(profile.Salary),
		},
		{
			Name:   "hourly-rate",
			Match:  func(q string) bool { return contains(q, "hourly rate", "hourly pay") },
			Answer: constant(profile.Rate),
		},
		{
			Name: "demographic-self-id",
			Match: func(q string) bool {
				return contains(q, "gender", "race", "lgbtq", "ethnicity", "nationality", "veteran", "government")
			},
			Answer: constant(declineToIdentify),
		},
		{
			Name:   "legally-entitled",
			Match:  func(q string) bool { return strings.Contains(q, "are you legally") },
			Answer: constant("Yes"),
		},
		{
			Name: "catch-all-affirmative",
			Match: func(q string) bool {
				return contains(q, "do you", "did you", "have you", "are you")
			},
			Answer: constant("Yes"),
		},
	}
}
