package cmd

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/internal/apply"
	"github.com/xkilldash9x/easyapply-cli/internal/browser/session"
	"github.com/xkilldash9x/easyapply-cli/internal/config"
	"github.com/xkilldash9x/easyapply-cli/internal/humanoid"
	"github.com/xkilldash9x/easyapply-cli/internal/observability"
	"github.com/xkilldash9x/easyapply-cli/internal/qa"
	"github.com/xkilldash9x/easyapply-cli/internal/search"
	"github.com/xkilldash9x/easyapply-cli/internal/store"
)

// newApplyCmd creates the `apply` command: one full search-and-apply run.
func newApplyCmd() *cobra.Command {
	applyCmd := &cobra.Command{
		Use:   "apply",
		Short: "Searches listings and submits Easy Apply applications",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Flag overrides land on their viper keys so the precedence
			// (flags > env > config file > defaults) holds.
			for key, flag := range map[string]string{
				"output.application_log": "output",
				"browser.headless":       "headless",
				"search.max_runtime":     "max-runtime",
				"search.time_filter":     "time-filter",
			} {
				if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			if len(cfg.Search.ExperienceLevels) > 0 {
				logger.Info("Applying for experience levels.",
					zap.Strings("levels", cfg.Search.ExperienceLevelSummary()))
			} else {
				logger.Info("Applying for all experience levels.")
			}

			sess, err := session.New(ctx, cfg.Browser, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := sess.Close(); err != nil {
					logger.Warn("Browser shutdown reported an error.", zap.Error(err))
				}
			}()

			pacer := humanoid.New(cfg.Humanoid)
			if err := apply.Login(ctx, sess, pacer, cfg.Credentials.Username, cfg.Credentials.Password, logger); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			cache, err := store.OpenAnswerCache(cfg.Output.AnswerCache, logger)
			if err != nil {
				return err
			}
			defer cache.Close()
			appLog := store.NewApplicationLog(cfg.Output.ApplicationLog, logger)

			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			rules := qa.DefaultRules(qa.Profile{
				Salary: cfg.Profile.Salary,
				Rate:   cfg.Profile.Rate,
			}, rng)
			resolver := qa.NewResolver(cache, rules, logger)
			filler := qa.NewFiller(sess, resolver, cfg.Profile.PhoneNumber, logger)

			driver := apply.NewDriver(sess, filler, pacer, apply.Config{
				ResumePath:      cfg.Uploads.Resume,
				CoverLetterPath: cfg.Uploads.CoverLetter,
				BlacklistTitles: cfg.Blacklist.Titles,
			}, logger)

			skip := appLog.RecentIDs(time.Now(), cfg.Search.SkipWindow)
			run := search.NewSession(sess, driver, appLog, skip, pacer, search.Config{
				Positions:      cfg.Search.Positions,
				Locations:      cfg.Search.Locations,
				Experience:     cfg.Search.ExperienceLevels,
				TimeFilter:     cfg.Search.TimeFilter,
				Blacklist:      cfg.Blacklist.Companies,
				ComboBudget:    cfg.Search.MaxRuntime,
				PagesPerMinute: cfg.Search.PagesPerMinute,
			}, rng, logger)

			applied, err := run.Run(ctx)
			logger.Info("Run finished.", zap.Int("applications_submitted", applied))
			return err
		},
	}

	applyCmd.Flags().StringP("output", "o", "output.csv", "application log CSV path")
	applyCmd.Flags().Bool("headless", false, "run the browser headless")
	applyCmd.Flags().Duration("max-runtime", time.Hour, "wall-clock budget per position/location combination")
	applyCmd.Flags().String("time-filter", "24 hours", "posting age filter: 24 hours, past week, past month, any time")
	return applyCmd
}
