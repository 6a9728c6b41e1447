package apply

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/internal/browser/page"
	"github.com/xkilldash9x/easyapply-cli/internal/humanoid"
)

const (
	loginURL = "https://www.linkedin.com/login?trk=guest_homepage-basic_nav-header-signin"

	usernameSelector = "input[id='username']"
	passwordSelector = "input[id='password']"
	signInSelector   = "button[type='submit']"

	loginFieldTimeout = 10 * time.Second
	postLoginSettle   = 20 * time.Second
)

// Login signs the session in. An already-authenticated session redirects
// off the login page and renders no credential fields; that is success, not
// an error. Wrong credentials are not detectable here and surface later as
// a feed that never loads.
func Login(ctx context.Context, p page.Page, pacer *humanoid.Pacer, username, password string, logger *zap.Logger) error {
	log := logger.Named("login")
	log.Info("Logging in.")

	if err := p.Navigate(ctx, loginURL); err != nil {
		return fmt.Errorf("opening login page: %w", err)
	}
	if err := pacer.Pause(ctx); err != nil {
		return err
	}

	if err := p.WaitVisible(ctx, usernameSelector, loginFieldTimeout); err != nil {
		log.Info("No credential fields rendered; assuming an authenticated session.")
		return nil
	}

	fields, err := p.Find(ctx, usernameSelector)
	if err != nil || len(fields) == 0 {
		return fmt.Errorf("locating username field: %w", err)
	}
	if err := p.Type(ctx, fields[0], username); err != nil {
		return fmt.Errorf("typing username: %w", err)
	}
	if err := pacer.CognitivePause(ctx, 1, 1); err != nil {
		return err
	}

	fields, err = p.Find(ctx, passwordSelector)
	if err != nil || len(fields) == 0 {
		return fmt.Errorf("locating password field: %w", err)
	}
	if err := p.Type(ctx, fields[0], password); err != nil {
		return fmt.Errorf("typing password: %w", err)
	}
	if err := pacer.CognitivePause(ctx, 1, 1); err != nil {
		return err
	}

	buttons, err := p.Find(ctx, signInSelector)
	if err != nil || len(buttons) == 0 {
		return fmt.Errorf("locating sign-in button: %w", err)
	}
	if err := p.Click(ctx, buttons[0]); err != nil {
		return fmt.Errorf("clicking sign-in: %w", err)
	}

	// Give the post-login redirect (and any checkpoint interstitial the
	// operator resolves by hand in headful mode) time to settle.
	if err := pacer.Between(ctx, postLoginSettle/2, postLoginSettle); err != nil {
		return err
	}
	log.Info("Login flow completed.")
	return nil
}
