package search

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/easyapply-cli/internal/apply"
	"github.com/xkilldash9x/easyapply-cli/internal/browser/page"
	"github.com/xkilldash9x/easyapply-cli/internal/humanoid"
	"github.com/xkilldash9x/easyapply-cli/internal/store"
)

// resultsPerPage is the offset stride between result pages.
const resultsPerPage = 25

// scroll pattern for coaxing the lazy-loaded list into rendering all cards.
const (
	scrollSteps = 8
	scrollDelta = 500
)

// Applier runs one application attempt. *apply.Driver satisfies it.
type Applier interface {
	Apply(ctx context.Context, jobID string) (apply.Outcome, error)
}

// Recorder persists one attempt record. *store.ApplicationLog satisfies it.
type Recorder interface {
	Append(rec store.Record) error
}

// Config carries the session parameters.
type Config struct {
	Positions  []string
	Locations  []string
	Experience []int
	TimeFilter string
	Blacklist  []string

	// ComboBudget is the wall-clock allowance for one position/location
	// combination before the session moves to the next.
	ComboBudget time.Duration

	// PagesPerMinute caps result-page fetches, on top of humanoid pacing.
	PagesPerMinute int
}

// Session owns one full search run across all combos.
type Session struct {
	page    page.Page
	applier Applier
	log     Recorder
	skip    map[string]bool
	pacer   *humanoid.Pacer
	limiter *rate.Limiter
	cfg     Config
	rng     *rand.Rand
	logger  *zap.Logger
	now     func() time.Time
}

// NewSession builds a session. skip holds job IDs that must not be
// re-attempted; the session adds every attempted ID to it as it goes.
func NewSession(p page.Page, applier Applier, recorder Recorder, skip map[string]bool,
	pacer *humanoid.Pacer, cfg Config, rng *rand.Rand, logger *zap.Logger) *Session {

	if cfg.ComboBudget <= 0 {
		cfg.ComboBudget = time.Hour
	}
	if cfg.PagesPerMinute <= 0 {
		cfg.PagesPerMinute = 6
	}
	if skip == nil {
		skip = map[string]bool{}
	}
	return &Session{
		page:    p,
		applier: applier,
		log:     recorder,
		skip:    skip,
		pacer:   pacer,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.PagesPerMinute)), 1),
		cfg:     cfg,
		rng:     rng,
		logger:  logger.Named("search").With(zap.String("runID", uuid.NewString())),
		now:     time.Now,
	}
}

type combo struct {
	position string
	location string
}

// Run works every position/location combination in shuffled order. It
// returns the number of applications submitted; the only error it surfaces
// is context cancellation, everything else is contained per combo.
func (s *Session) Run(ctx context.Context) (int, error) {
	combos := s.shuffledCombos()
	s.logger.Info("Starting search run.", zap.Int("combos", len(combos)))

	applied := 0
	for _, c := range combos {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		log := s.logger.With(zap.String("position", c.position), zap.String("location", c.location))
		n, err := s.runCombo(ctx, c, log)
		applied += n
		if err != nil {
			if ctx.Err() != nil {
				return applied, err
			}
			log.Error("Combo aborted.", zap.Error(err))
		}
	}
	s.logger.Info("Search run finished.", zap.Int("applied", applied))
	return applied, nil
}

func (s *Session) shuffledCombos() []combo {
	var combos []combo
	for _, p := range s.cfg.Positions {
		for _, l := range s.cfg.Locations {
			combos = append(combos, combo{position: p, location: l})
		}
	}
	s.rng.Shuffle(len(combos), func(i, j int) { combos[i], combos[j] = combos[j], combos[i] })
	return combos
}

// runCombo pages through results for one combo until its budget runs out or
// a page yields no new cards.
func (s *Session) runCombo(ctx context.Context, c combo, log *zap.Logger) (int, error) {
	deadline := s.now().Add(s.cfg.ComboBudget)
	applied := 0

	for offset := 0; s.now().Before(deadline); offset += resultsPerPage {
		if err := s.limiter.Wait(ctx); err != nil {
			return applied, err
		}
		remaining := deadline.Sub(s.now()).Round(time.Minute)
		log.Info("Loading results page.", zap.Int("offset", offset), zap.Duration("remaining", remaining))

		u := BuildSearchURL(c.position, c.location, offset, s.cfg.Experience, s.cfg.TimeFilter)
		if err := s.page.Navigate(ctx, u); err != nil {
			return applied, err
		}
		if err := s.scrollResults(ctx); err != nil {
			return applied, err
		}

		src, err := s.page.Source(ctx)
		if err != nil {
			return applied, err
		}
		cards, err := ParseJobCards(src, s.cfg.Blacklist)
		if err != nil {
			return applied, err
		}
		fresh := s.withoutSkipped(cards)
		log.Info("Results page parsed.", zap.Int("cards", len(cards)), zap.Int("fresh", len(fresh)))
		if len(fresh) == 0 {
			// Either the listing ran dry or everything left is already
			// attempted; this combo is exhausted.
			return applied, nil
		}

		for _, card := range fresh {
			if err := ctx.Err(); err != nil {
				return applied, err
			}
			if s.attemptJob(ctx, card.ID, log) {
				applied++
			}
			if !s.now().Before(deadline) {
				return applied, nil
			}
		}
	}
	return applied, nil
}

// scrollResults nudges the lazy-loaded list so the full page of cards is in
// the DOM before the snapshot is taken.
func (s *Session) scrollResults(ctx context.Context) error {
	for i := 0; i < scrollSteps; i++ {
		if err := s.page.ScrollBy(ctx, scrollDelta); err != nil {
			return err
		}
		if err := s.pacer.CognitivePause(ctx, 0.5, 0.5); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) withoutSkipped(cards []Card) []Card {
	fresh := cards[:0:0]
	for _, c := range cards {
		if !s.skip[c.ID] {
			fresh = append(fresh, c)
		}
	}
	return fresh
}

// attemptJob delegates one job to the driver and records the outcome. The
// ID enters the skip-set regardless of outcome; a job that failed today is
// not retried five minutes later on the next page.
func (s *Session) attemptJob(ctx context.Context, jobID string, log *zap.Logger) bool {
	s.skip[jobID] = true

	outcome, err := s.applier.Apply(ctx, jobID)
	if err != nil {
		log.Error("Application attempt failed.", zap.String("jobID", jobID), zap.Error(err))
		return false
	}

	title, err := s.page.Title(ctx)
	if err != nil {
		log.Warn("Could not read job page title for the record.", zap.Error(err))
	}
	position, company := apply.SplitTitle(title)
	rec := store.Record{
		Timestamp: s.now(),
		JobID:     jobID,
		Title:     position,
		Company:   company,
		Attempted: outcome.Attempted,
		Result:    outcome.Applied,
	}
	if err := s.log.Append(rec); err != nil {
		log.Error("Failed to record the attempt.", zap.String("jobID", jobID), zap.Error(err))
	}
	log.Info("Attempt recorded.",
		zap.String("jobID", jobID),
		zap.String("title", position),
		zap.String("company", company),
		zap.String("reason", outcome.Reason))
	return outcome.Applied
}
