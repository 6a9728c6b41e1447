package qa

import (
	"strings"

	"go.uber.org/zap"
)

// AnswerStore is the persistence the resolver needs from the cache: lookup
// and first-seen-only append. store.AnswerCache satisfies it.
type AnswerStore interface {
	Get(question string) (string, bool)
	Put(question, answer string) error
}

// Resolver maps a question's free text to an answer string. The cache is
// always consulted first, which makes repeated questions idempotent within
// a run and across runs; the rule chain only ever sees a question once per
// cache lifetime.
type Resolver struct {
	cache  AnswerStore
	rules  []Rule
	logger *zap.Logger
}

// NewResolver wires a resolver over the cache and rule chain.
func NewResolver(cache AnswerStore, rules []Rule, logger *zap.Logger) *Resolver {
	return &Resolver{cache: cache, rules: rules, logger: logger.Named("resolver")}
}

// Normalize produces the canonical cache key for a question: lower-cased
// and trimmed. Nothing more; two phrasings of the same question are
// distinct entries by design.
func Normalize(question string) string {
	return strings.ToLower(strings.TrimSpace(question))
}

// Resolve returns the answer for the question. Resolution never fails: an
// unmatched question gets the placeholder answer and is flagged in the log
// for manual follow-up. A cache persistence failure is logged and the
// in-memory answer is still returned, so a full disk never blocks an
// application mid-wizard.
func (r *Resolver) Resolve(question string) string {
	q := Normalize(question)

	if answer, ok := r.cache.Get(q); ok {
		r.logger.Debug("Answer served from cache.", zap.String("question", q), zap.String("answer", answer))
		return answer
	}

	answer := ""
	matched := ""
	for _, rule := range r.rules {
		if rule.Match(q) {
			answer = rule.Answer(q)
			matched = rule.Name
			break
		}
	}

	if answer == "" {
		answer = fallbackAnswer
		r.logger.Warn("No rule resolved this question; using the placeholder answer. Review the answer cache and correct it.",
			zap.String("question", q))
	} else {
		r.logger.Info("Question resolved.",
			zap.String("question", q), zap.String("answer", answer), zap.String("rule", matched))
	}

	if err := r.cache.Put(q, answer); err != nil {
		r.logger.Warn("Failed to persist answer; continuing with the in-memory value.",
			zap.String("question", q), zap.Error(err))
	}
	return answer
}
