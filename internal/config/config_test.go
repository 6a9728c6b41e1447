package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validViper returns a viper carrying a minimal valid configuration, with a
// real (temporary) resume file behind the uploads path.
func validViper(t *testing.T) *viper.Viper {
	t.Helper()
	resume := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, os.WriteFile(resume, []byte("resume"), 0o644))

	v := viper.New()
	SetDefaults(v)
	v.Set("credentials.username", "user@example.com")
	v.Set("credentials.password", "hunter2")
	v.Set("search.positions", []string{"Go Engineer"})
	v.Set("search.locations", []string{"Remote"})
	v.Set("uploads.resume", resume)
	v.Set("profile.phone_number", "5551234567")
	return v
}

func TestNewConfigFromViper(t *testing.T) {
	cfg, err := NewConfigFromViper(validViper(t))
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", cfg.Credentials.Username)
	assert.Equal(t, []string{"Go Engineer"}, cfg.Search.Positions)
	// Defaults fill the rest.
	assert.Equal(t, "24 hours", cfg.Search.TimeFilter)
	assert.Equal(t, time.Hour, cfg.Search.MaxRuntime)
	assert.Equal(t, 48*time.Hour, cfg.Search.SkipWindow)
	assert.Equal(t, "output.csv", cfg.Output.ApplicationLog)
	assert.Equal(t, "qa.csv", cfg.Output.AnswerCache)
	assert.Equal(t, "easyapply-cli", cfg.Logger.ServiceName)
	assert.Equal(t, 1500*time.Millisecond, cfg.Humanoid.MinActionDelay)
}

func TestCredentialsFromEnvironment(t *testing.T) {
	resume := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, os.WriteFile(resume, []byte("resume"), 0o644))

	// No credentials in the config source; only the environment carries
	// them. An explicit Set would outrank the env binding.
	v := viper.New()
	SetDefaults(v)
	v.Set("search.positions", []string{"Go Engineer"})
	v.Set("search.locations", []string{"Remote"})
	v.Set("uploads.resume", resume)
	v.Set("profile.phone_number", "5551234567")
	t.Setenv("EASYAPPLY_USERNAME", "env-user@example.com")
	t.Setenv("EASYAPPLY_PASSWORD", "env-secret")

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "env-user@example.com", cfg.Credentials.Username)
	assert.Equal(t, "env-secret", cfg.Credentials.Password)
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(v *viper.Viper)
		wantErr string
	}{
		{
			name:    "missing credentials",
			mutate:  func(v *viper.Viper) { v.Set("credentials.password", "") },
			wantErr: "credentials",
		},
		{
			name:    "no positions",
			mutate:  func(v *viper.Viper) { v.Set("search.positions", []string{}) },
			wantErr: "positions",
		},
		{
			name:    "no locations",
			mutate:  func(v *viper.Viper) { v.Set("search.locations", []string{}) },
			wantErr: "locations",
		},
		{
			name:    "unknown experience level",
			mutate:  func(v *viper.Viper) { v.Set("search.experience_levels", []int{7}) },
			wantErr: "experience level",
		},
		{
			name:    "unknown time filter",
			mutate:  func(v *viper.Viper) { v.Set("search.time_filter", "fortnight") },
			wantErr: "time_filter",
		},
		{
			name:    "nonpositive runtime",
			mutate:  func(v *viper.Viper) { v.Set("search.max_runtime", "0s") },
			wantErr: "max_runtime",
		},
		{
			name:    "missing resume file",
			mutate:  func(v *viper.Viper) { v.Set("uploads.resume", "/nonexistent/resume.pdf") },
			wantErr: "uploads.resume",
		},
		{
			name:    "missing phone number",
			mutate:  func(v *viper.Viper) { v.Set("profile.phone_number", "") },
			wantErr: "phone_number",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := validViper(t)
			tc.mutate(v)
			_, err := NewConfigFromViper(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestAnyTimeFilterIsValid(t *testing.T) {
	v := validViper(t)
	v.Set("search.time_filter", "any time")
	_, err := NewConfigFromViper(v)
	assert.NoError(t, err)
}

func TestExpandPaths(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	resume := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, os.WriteFile(resume, []byte("resume"), 0o644))

	v := validViper(t)
	v.Set("uploads.resume", resume)
	v.Set("output.answer_cache", "~/qa.csv")

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "qa.csv"), cfg.Output.AnswerCache)
}

func TestExperienceLevelSummary(t *testing.T) {
	s := SearchConfig{ExperienceLevels: []int{1, 3, 6}}
	assert.Equal(t, []string{"Entry level", "Mid-Senior level", "Internship"}, s.ExperienceLevelSummary())
}

func TestNewDefaultConfigDoesNotPanic(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.False(t, cfg.Browser.Headless)
}
