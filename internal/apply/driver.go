// Package apply drives a single application attempt: locating the apply
// affordance on a job page, stepping through the multi-step submission
// wizard, answering the questions it raises, and reporting an outcome the
// search session can record.
package apply

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/internal/browser/page"
	"github.com/xkilldash9x/easyapply-cli/internal/humanoid"
	"github.com/xkilldash9x/easyapply-cli/internal/qa"
)

// State is where the driver currently is inside one application attempt.
type State int

const (
	Searching State = iota
	StepPresented
	AnsweringQuestions
	Submitted
	Abandoned
)

func (s State) String() string {
	switch s {
	case Searching:
		return "searching"
	case StepPresented:
		return "step-presented"
	case AnsweringQuestions:
		return "answering-questions"
	case Submitted:
		return "submitted"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Outcome summarizes one attempt for the application log.
type Outcome struct {
	// Applied is true only when the submit confirmation was observed.
	Applied bool
	// Attempted is true when an apply affordance existed and was engaged,
	// even if the wizard was later abandoned.
	Attempted bool
	// Reason is the human-readable disposition recorded in the log.
	Reason string
}

// Outcome reason strings. These land in the application log and are part of
// its de-facto format; do not reword casually.
const (
	ReasonApplied        = "Applied: Sent Resume"
	ReasonFailed         = "Did not apply: Failed to send Resume"
	ReasonNoButton       = "Doesn't have Easy Apply Button"
	ReasonAlreadyApplied = "Already Applied"
	ReasonBlacklisted    = "Contains blacklisted keyword"
)

// Wizard affordance selectors. The aria-labels are the stable contract of
// the application modal; classes on the buttons churn with every redesign.
const (
	applyButtonSelector      = "button[class*='jobs-apply-button']"
	nextSelector             = "button[aria-label='Continue to next step']"
	reviewSelector           = "button[aria-label='Review your application']"
	submitSelector           = "button[aria-label='Submit application']"
	continueApplyingSelector = "button[aria-label='Continue applying']"
	errorSelector            = ".artdeco-inline-feedback__message"
	uploadResumeSelector     = "input[id*='jobs-document-upload-file-input-upload-resume']"
	uploadCoverSelector      = "input[id*='jobs-document-upload-file-input-upload-cover-letter']"
	followSelector           = "label[for='follow-company-checkbox']"
)

// Page-source markers. The modal gives no structural signal for these two
// conditions, only copy.
const (
	alreadyAppliedMarker = "You applied on"
	sentMarker           = "application was sent"
)

const jobViewURL = "https://www.linkedin.com/jobs/view/"

// maxWizardSteps caps the outer step loop. A well-formed wizard finishes in
// a handful of steps; anything beyond this is a loop against a step the
// filler cannot satisfy.
const maxWizardSteps = 12

// maxAnswerRounds caps the fill-and-recheck cycle on a step with validation
// errors before the attempt is abandoned.
const maxAnswerRounds = 5

// Config carries the per-run attempt parameters.
type Config struct {
	// ResumePath is attached whenever the step shows a resume upload.
	// Required; the bot exists to send it.
	ResumePath string
	// CoverLetterPath is attached when present and the step asks for one.
	CoverLetterPath string
	// BlacklistTitles aborts the attempt when any entry appears in the job
	// page title.
	BlacklistTitles []string
}

// Driver runs application attempts against a rendered page.
type Driver struct {
	page   page.Page
	filler *qa.Filler
	pacer  *humanoid.Pacer
	cfg    Config
	logger *zap.Logger

	state State
}

// NewDriver builds a driver. The filler answers any questions the wizard
// raises; the pacer spaces out every interaction.
func NewDriver(p page.Page, filler *qa.Filler, pacer *humanoid.Pacer, cfg Config, logger *zap.Logger) *Driver {
	return &Driver{page: p, filler: filler, pacer: pacer, cfg: cfg, logger: logger.Named("apply")}
}

// State reports the driver's position in the current (or last) attempt.
func (d *Driver) State() State { return d.state }

// Apply runs one full attempt against the job. The returned Outcome is
// always meaningful, including for jobs that were skipped on the job page;
// the error is non-nil only for page-level failures that make the outcome
// unknowable (navigation failure, context cancellation).
func (d *Driver) Apply(ctx context.Context, jobID string) (Outcome, error) {
	d.state = Searching
	log := d.logger.With(zap.String("jobID", jobID))

	if err := d.page.Navigate(ctx, jobViewURL+jobID); err != nil {
		return Outcome{}, fmt.Errorf("opening job page: %w", err)
	}
	if err := d.pacer.Pause(ctx); err != nil {
		return Outcome{}, err
	}

	button, err := d.findApplyButton(ctx)
	if err != nil && !errors.Is(err, page.ErrNotFound) {
		return Outcome{}, err
	}
	if button == nil {
		src, err := d.page.Source(ctx)
		if err != nil {
			return Outcome{}, err
		}
		if strings.Contains(src, alreadyAppliedMarker) {
			log.Info("Already applied to this position.")
			return Outcome{Reason: ReasonAlreadyApplied}, nil
		}
		log.Info("No Easy Apply affordance on this job.")
		return Outcome{Reason: ReasonNoButton}, nil
	}

	title, err := d.page.Title(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if word, hit := d.blacklistedTitle(title); hit {
		log.Info("Skipping: blacklisted keyword in the position title.",
			zap.String("title", title), zap.String("keyword", word))
		return Outcome{Attempted: true, Reason: ReasonBlacklisted}, nil
	}

	log.Info("Engaging the apply button.", zap.String("title", title))
	if err := d.page.Click(ctx, button); err != nil {
		return Outcome{}, fmt.Errorf("clicking apply button: %w", err)
	}
	d.state = StepPresented
	if err := d.pacer.Pause(ctx); err != nil {
		return Outcome{}, err
	}

	// The contact step is usually first; pre-fill the phone number before
	// the wizard loop starts pressing next.
	if err := d.filler.FillPhoneNumber(ctx); err != nil {
		log.Warn("Phone pre-fill failed; proceeding.", zap.Error(err))
	}

	submitted, err := d.runWizard(ctx, log)
	if err != nil {
		return Outcome{}, err
	}
	if submitted {
		return Outcome{Applied: true, Attempted: true, Reason: ReasonApplied}, nil
	}
	return Outcome{Attempted: true, Reason: ReasonFailed}, nil
}

// findApplyButton locates the apply control by its visible text; the page
// renders several buttons with the same class and only the text
// distinguishes the live one. Returns ErrNotFound when no candidate reads
// as an apply affordance.
func (d *Driver) findApplyButton(ctx context.Context) (page.Element, error) {
	buttons, err := d.page.Find(ctx, applyButtonSelector)
	if err != nil {
		return nil, err
	}
	for _, b := range buttons {
		text, err := d.page.Text(ctx, b)
		if err != nil {
			if errors.Is(err, page.ErrStale) {
				continue
			}
			return nil, err
		}
		if strings.Contains(text, "Easy Apply") || strings.Contains(text, "Continue applying") {
			return b, nil
		}
	}
	return nil, page.ErrNotFound
}

func (d *Driver) blacklistedTitle(title string) (string, bool) {
	t := strings.ToLower(title)
	for _, word := range d.cfg.BlacklistTitles {
		if word != "" && strings.Contains(t, strings.ToLower(word)) {
			return word, true
		}
	}
	return "", false
}

// runWizard steps the modal until it submits, the attempt is abandoned, or
// the step cap is hit. Each iteration handles the affordances of the current
// step in priority order: uploads and follow-company are additive and
// processed first, then exactly one navigation action.
func (d *Driver) runWizard(ctx context.Context, log *zap.Logger) (bool, error) {
	for step := 0; step < maxWizardSteps; step++ {
		if err := d.pacer.Pause(ctx); err != nil {
			return false, err
		}
		d.state = StepPresented

		if err := d.attachDocuments(ctx, log); err != nil {
			return false, err
		}
		if err := d.followCompany(ctx, log); err != nil {
			return false, err
		}

		acted, submitted, err := d.navigateStep(ctx, log)
		if err != nil {
			return false, err
		}
		if submitted {
			d.state = Submitted
			return true, nil
		}
		if d.state == Abandoned {
			return false, nil
		}
		if !acted {
			// No affordance at all: either the modal is mid-render or it
			// closed under us. One more lap decides.
			log.Debug("No actionable affordance on this step.", zap.Int("step", step))
		}
	}
	log.Warn("Step cap reached; abandoning the attempt.")
	d.state = Abandoned
	return false, nil
}

// attachDocuments uploads the resume (and cover letter, when configured)
// into any upload inputs the step presents. Upload failures are logged and
// the step continues; an unanswered upload surfaces as a validation error
// the answer loop deals with.
func (d *Driver) attachDocuments(ctx context.Context, log *zap.Logger) error {
	inputs, err := d.page.Find(ctx, uploadResumeSelector)
	if err != nil {
		return err
	}
	for _, in := range inputs {
		if err := d.page.Upload(ctx, in, d.cfg.ResumePath); err != nil {
			log.Error("Resume upload failed.", zap.String("path", d.cfg.ResumePath), zap.Error(err))
		} else {
			log.Info("Resume attached.")
		}
	}

	if d.cfg.CoverLetterPath == "" {
		return nil
	}
	inputs, err = d.page.Find(ctx, uploadCoverSelector)
	if err != nil {
		return err
	}
	for _, in := range inputs {
		if err := d.page.Upload(ctx, in, d.cfg.CoverLetterPath); err != nil {
			log.Error("Cover letter upload failed.", zap.String("path", d.cfg.CoverLetterPath), zap.Error(err))
		} else {
			log.Info("Cover letter attached.")
		}
	}
	return nil
}

func (d *Driver) followCompany(ctx context.Context, log *zap.Logger) error {
	labels, err := d.page.Find(ctx, followSelector)
	if err != nil {
		return err
	}
	for _, label := range labels {
		if err := d.page.Click(ctx, label); err != nil {
			if errors.Is(err, page.ErrStale) {
				continue
			}
			return err
		}
		log.Debug("Toggled follow-company.")
	}
	return nil
}

// navigateStep performs the single navigation action for the current step.
// Returns acted=false when the step offered nothing to do.
func (d *Driver) navigateStep(ctx context.Context, log *zap.Logger) (acted, submitted bool, err error) {
	if clicked, err := d.clickFirst(ctx, submitSelector); err != nil {
		return false, false, err
	} else if clicked {
		log.Info("Application submitted.")
		return true, true, nil
	}

	hasErrors, err := d.hasValidationErrors(ctx)
	if err != nil {
		return false, false, err
	}
	if hasErrors {
		submitted, err := d.answerQuestions(ctx, log)
		return true, submitted, err
	}

	for _, sel := range []string{nextSelector, continueApplyingSelector, reviewSelector} {
		clicked, err := d.clickFirst(ctx, sel)
		if err != nil {
			return false, false, err
		}
		if clicked {
			log.Debug("Advanced to the next step.", zap.String("control", sel))
			return true, false, nil
		}
	}
	return false, false, nil
}

func (d *Driver) hasValidationErrors(ctx context.Context) (bool, error) {
	els, err := d.page.Find(ctx, errorSelector)
	if err != nil {
		return false, err
	}
	return len(els) > 0, nil
}

// answerQuestions handles a step rejected by validation: fill the form,
// re-check, repeat. It exits on the submission-confirmation marker, on the
// job page's top-level apply button reappearing (the modal collapsed, the
// attempt is lost), or on the round cap.
func (d *Driver) answerQuestions(ctx context.Context, log *zap.Logger) (bool, error) {
	d.state = AnsweringQuestions
	log.Info("Step has validation errors; answering questions.")

	for round := 0; round < maxAnswerRounds; round++ {
		src, err := d.page.Source(ctx)
		if err != nil {
			return false, err
		}
		if strings.Contains(src, sentMarker) {
			d.state = Submitted
			log.Info("Application submitted.")
			return true, nil
		}
		if round > 0 {
			// Round 1 already filled; a reappearing top-level apply button
			// means the modal is gone and the answers went nowhere.
			if _, err := d.findApplyButton(ctx); err == nil {
				log.Warn("Application modal collapsed; abandoning.")
				d.state = Abandoned
				return false, nil
			}
		}

		if err := d.filler.FillAll(ctx); err != nil {
			return false, err
		}
		if err := d.pacer.Pause(ctx); err != nil {
			return false, err
		}

		// Filling alone does not submit; press whatever navigation the step
		// now allows and let the next round observe the result.
		if clicked, err := d.clickFirst(ctx, submitSelector); err != nil {
			return false, err
		} else if clicked {
			d.state = Submitted
			log.Info("Application submitted.")
			return true, nil
		}
		for _, sel := range []string{nextSelector, reviewSelector} {
			clicked, err := d.clickFirst(ctx, sel)
			if err != nil {
				return false, err
			}
			if clicked {
				break
			}
		}
		stillBroken, err := d.hasValidationErrors(ctx)
		if err != nil {
			return false, err
		}
		if !stillBroken {
			// Validation satisfied; hand control back to the wizard loop.
			return false, nil
		}
	}
	log.Warn("Questions still failing validation after repeated fills; abandoning.")
	d.state = Abandoned
	return false, nil
}

// clickFirst clicks the first element matching the selector. A missing
// element is the expected "affordance not on this step" branch.
func (d *Driver) clickFirst(ctx context.Context, selector string) (bool, error) {
	els, err := d.page.Find(ctx, selector)
	if err != nil {
		return false, err
	}
	if len(els) == 0 {
		return false, nil
	}
	if err := d.page.Click(ctx, els[0]); err != nil {
		if errors.Is(err, page.ErrStale) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
