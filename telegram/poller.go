package telegram

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/mymmrac/telego"

	bd "github.com/bjaus/botdispatch"
)

const (
	// DefaultPollTimeout is the long-poll timeout sent to getUpdates.
	DefaultPollTimeout = 30 * time.Second

	defaultPollLimit = 100
)

// Updater is the part of *telego.Bot the poller needs.
type Updater interface {
	GetUpdates(ctx context.Context, params *telego.GetUpdatesParams) ([]telego.Update, error)
}

// Poller is a long-poll Transport. The offset only moves past an update once
// the router has acknowledged it, so a restart re-delivers whatever was not
// handed over yet.
type Poller struct {
	api     Updater
	timeout time.Duration
	limit   int
	allowed []string

	mu     sync.Mutex
	offset int
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollTimeout sets the long-poll timeout. It is sent in whole seconds.
func WithPollTimeout(d time.Duration) PollerOption {
	return func(p *Poller) { p.timeout = d }
}

// WithPollLimit caps the batch size (1-100).
func WithPollLimit(n int) PollerOption {
	return func(p *Poller) { p.limit = n }
}

// WithAllowedUpdates restricts the kinds Telegram sends.
func WithAllowedUpdates(kinds ...bd.UpdateKind) PollerOption {
	return func(p *Poller) {
		for _, k := range kinds {
			p.allowed = append(p.allowed, k.String())
			// Chosen results are routed with inline queries.
			if k == bd.KindInlineQuery && !slices.Contains(kinds, bd.KindChosenInlineResult) {
				p.allowed = append(p.allowed, bd.KindChosenInlineResult.String())
			}
		}
	}
}

// NewPoller creates a poller over api, usually a *telego.Bot.
func NewPoller(api Updater, opts ...PollerOption) *Poller {
	p := &Poller{api: api, timeout: DefaultPollTimeout, limit: defaultPollLimit}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fetch implements botdispatch.Transport.
func (p *Poller) Fetch(ctx context.Context) ([]*bd.Update, error) {
	params := &telego.GetUpdatesParams{
		Offset:         p.Offset(),
		Limit:          p.limit,
		Timeout:        int(p.timeout / time.Second),
		AllowedUpdates: p.allowed,
	}

	updates, err := p.api.GetUpdates(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("get updates: %w", err)
	}

	out := make([]*bd.Update, len(updates))
	for i, u := range updates {
		out[i] = FromTelego(u)
	}
	return out, nil
}

// Ack implements botdispatch.Transport.
func (p *Poller) Ack(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if next := int(id) + 1; next > p.offset {
		p.offset = next
	}
}

// Offset returns the offset the next Fetch sends.
func (p *Poller) Offset() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offset
}
