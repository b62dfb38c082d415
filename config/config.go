// Package config reads the bot's configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"

	bd "github.com/bjaus/botdispatch"
)

// Config is the process configuration.
type Config struct {
	// Token is the Bot API token.
	Token string `env:"BOT_TOKEN"`

	MaxConcurrency    int           `env:"DISPATCH_MAX_CONCURRENCY" envDefault:"16"`
	ExclusiveAwaiting bool          `env:"DISPATCH_EXCLUSIVE_AWAITING" envDefault:"true"`
	PollTimeout       time.Duration `env:"DISPATCH_POLL_TIMEOUT" envDefault:"30s"`

	// HandlersFile is an optional YAML handler table.
	HandlersFile string `env:"DISPATCH_HANDLERS_FILE"`

	// WebhookAddr switches from long polling to a webhook server listening
	// on this address.
	WebhookAddr   string `env:"DISPATCH_WEBHOOK_ADDR"`
	WebhookSecret string `env:"DISPATCH_WEBHOOK_SECRET"`

	// AllowedChats restricts webhook updates to these chats when set.
	AllowedChats []int64 `env:"DISPATCH_ALLOWED_CHATS" envSeparator:","`

	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads environ instead of the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges. The token is checked by whoever needs it.
func (c Config) Validate() error {
	var errs []error
	if c.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("DISPATCH_MAX_CONCURRENCY must be positive, got %d", c.MaxConcurrency))
	}
	if c.PollTimeout < 0 {
		errs = append(errs, fmt.Errorf("DISPATCH_POLL_TIMEOUT must not be negative, got %s", c.PollTimeout))
	}
	return errors.Join(errs...)
}

// RouterOptions maps the configuration onto router options.
func (c Config) RouterOptions() []bd.Option {
	return []bd.Option{
		bd.WithMaxConcurrency(c.MaxConcurrency),
		bd.WithExclusiveAwaiting(c.ExclusiveAwaiting),
	}
}

// Accept builds the raw prefilter for a router serving kinds: other kinds
// are dropped and, with AllowedChats set, so are updates from other chats.
func (c Config) Accept(kinds ...bd.UpdateKind) bd.Discriminator {
	if slices.Contains(kinds, bd.KindInlineQuery) && !slices.Contains(kinds, bd.KindChosenInlineResult) {
		kinds = append(slices.Clone(kinds), bd.KindChosenInlineResult)
	}
	accept := []bd.Discriminator{bd.KindIn(kinds...)}
	if len(c.AllowedChats) > 0 {
		accept = append(accept, bd.ChatIn(c.AllowedChats...))
	}
	return bd.AllOf(accept...)
}
