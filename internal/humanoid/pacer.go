// Package humanoid paces browser actions the way a person would: jittered
// waits between actions and normally distributed "thinking" pauses. The
// randomness here is for pacing realism only, never for correctness; the
// application flow must behave identically if every pause were zero.
package humanoid

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Config holds the tunable pacing parameters.
type Config struct {
	// MinActionDelay and MaxActionDelay bound the uniform pause applied
	// between consecutive page actions.
	MinActionDelay time.Duration `mapstructure:"min_action_delay" yaml:"min_action_delay"`
	MaxActionDelay time.Duration `mapstructure:"max_action_delay" yaml:"max_action_delay"`

	// CognitiveMeanMs and CognitiveStdDevMs parameterize the normal
	// distribution used for pauses that model reading or deciding.
	CognitiveMeanMs   float64 `mapstructure:"cognitive_mean_ms" yaml:"cognitive_mean_ms"`
	CognitiveStdDevMs float64 `mapstructure:"cognitive_std_dev_ms" yaml:"cognitive_std_dev_ms"`

	// Seed fixes the random source. Zero seeds from the clock.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

// DefaultConfig mirrors the pacing of a moderately attentive user.
func DefaultConfig() Config {
	return Config{
		MinActionDelay:    1500 * time.Millisecond,
		MaxActionDelay:    2900 * time.Millisecond,
		CognitiveMeanMs:   800,
		CognitiveStdDevMs: 300,
	}
}

// Pacer issues context-aware pauses from a private random source.
type Pacer struct {
	mu  sync.Mutex
	cfg Config
	rng *rand.Rand
}

// New builds a Pacer from the config, applying defaults for unset bounds.
func New(cfg Config) *Pacer {
	def := DefaultConfig()
	if cfg.MinActionDelay <= 0 {
		cfg.MinActionDelay = def.MinActionDelay
	}
	if cfg.MaxActionDelay < cfg.MinActionDelay {
		cfg.MaxActionDelay = cfg.MinActionDelay
	}
	if cfg.CognitiveMeanMs <= 0 {
		cfg.CognitiveMeanMs = def.CognitiveMeanMs
	}
	if cfg.CognitiveStdDevMs <= 0 {
		cfg.CognitiveStdDevMs = def.CognitiveStdDevMs
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Pacer{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// Pause sleeps for a uniform duration between the configured action delays.
func (p *Pacer) Pause(ctx context.Context) error {
	p.mu.Lock()
	span := p.cfg.MaxActionDelay - p.cfg.MinActionDelay
	d := p.cfg.MinActionDelay
	if span > 0 {
		d += time.Duration(p.rng.Int63n(int64(span)))
	}
	p.mu.Unlock()
	return sleep(ctx, d)
}

// Between sleeps for a uniform duration in [min, max].
func (p *Pacer) Between(ctx context.Context, min, max time.Duration) error {
	if max < min {
		max = min
	}
	p.mu.Lock()
	d := min
	if span := max - min; span > 0 {
		d += time.Duration(p.rng.Int63n(int64(span)))
	}
	p.mu.Unlock()
	return sleep(ctx, d)
}

// CognitivePause sleeps for a normally distributed duration scaled from the
// configured cognitive delay. Negative draws collapse to no pause at all,
// which also happens with real users skimming familiar screens.
func (p *Pacer) CognitivePause(ctx context.Context, meanScale, stdDevScale float64) error {
	p.mu.Lock()
	ms := meanScale*p.cfg.CognitiveMeanMs + p.rng.NormFloat64()*stdDevScale*p.cfg.CognitiveStdDevMs
	p.mu.Unlock()
	if ms <= 0 {
		return nil
	}
	return sleep(ctx, time.Duration(ms)*time.Millisecond)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
