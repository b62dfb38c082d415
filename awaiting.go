package botdispatch

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
)

// KeyResolver derives the correlation key of an update.
type KeyResolver func(u *Update) (int64, bool)

// SenderKey correlates updates by the id of the user that sent them.
func SenderKey(u *Update) (int64, bool) {
	if s := u.Sender(); s != nil {
		return s.ID, true
	}
	return 0, false
}

// ChatKey correlates updates by chat id.
func ChatKey(u *Update) (int64, bool) {
	if c := u.Chat(); c != nil {
		return c.ID, true
	}
	return 0, false
}

// AwaitOption configures an await.
type AwaitOption func(*awaitConfig)

type awaitConfig struct {
	resolver KeyResolver
	filters  []Filter[*Update]
}

// WithKeyResolver replaces the default SenderKey correlation.
func WithKeyResolver(r KeyResolver) AwaitOption {
	return func(c *awaitConfig) { c.resolver = r }
}

// WithAwaitFilters adds filters the awaited update must also pass.
func WithAwaitFilters(fs ...Filter[*Update]) AwaitOption {
	return func(c *awaitConfig) { c.filters = append(c.filters, fs...) }
}

// awaiter is the blocking half of one in-flight await.
type awaiter struct {
	id      ulid.ULID
	ch      chan *Update
	claimed atomic.Bool
}

// claim hands u to the waiting call. Only the first claim wins.
func (a *awaiter) claim(u *Update) bool {
	if !a.claimed.CompareAndSwap(false, true) {
		return false
	}
	a.ch <- u
	return true
}

// awaitDelivery is the handler of awaiter descriptors. The update has
// already been handed over when it runs, so it only lets the chain go on.
type awaitDelivery struct{}

func (awaitDelivery) Handle(context.Context, *HandlerContext) Result { return Next() }

// AwaitingProvider serves the short-lived descriptors of handlers blocked
// in Await. Its list changes while updates are being routed.
type AwaitingProvider struct {
	mu     sync.RWMutex
	items  []*Descriptor
	bot    BotInfo
	report FaultReporter
}

// NewAwaitingProvider creates an empty provider. report may be nil.
func NewAwaitingProvider(bot BotInfo, report FaultReporter) *AwaitingProvider {
	return &AwaitingProvider{bot: bot, report: report}
}

// Len returns the number of in-flight awaits.
func (p *AwaitingProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.items)
}

// Resolve yields one matched handler per in-flight await that u satisfies.
// Each yielded await has already received u.
func (p *AwaitingProvider) Resolve(u *Update) iter.Seq[*MatchedHandler] {
	return func(yield func(*MatchedHandler) bool) {
		p.mu.RLock()
		items := slices.Clone(p.items)
		p.mu.RUnlock()

		for _, d := range items {
			mh := matchDescriptor(d, u, p.bot, p.report)
			if mh == nil || !d.awaiter.claim(u) {
				continue
			}
			if !yield(mh) {
				return
			}
		}
	}
}

// Await blocks until an update of the given kind arrives whose correlation
// key equals trigger's, or ctx is done. The registration is removed on
// every return path.
func (p *AwaitingProvider) Await(ctx context.Context, trigger *Update, kind UpdateKind, opts ...AwaitOption) (*Update, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("await: %w: %v", ErrUnknownKind, kind)
	}

	cfg := awaitConfig{resolver: SenderKey}
	for _, opt := range opts {
		opt(&cfg)
	}

	key, ok := cfg.resolver(trigger)
	if !ok {
		return nil, fmt.Errorf("await: %w", ErrNoCorrelationKey)
	}

	a := &awaiter{id: ulid.Make(), ch: make(chan *Update, 1)}
	correlate := NamedFunc("await_key", func(mc *MatchContext[*Update]) bool {
		k, ok := cfg.resolver(mc.Value)
		return ok && k == key
	})
	d := NewDescriptor("await:"+a.id.String(), kind, Static(awaitDelivery{}),
		WithFilters(append([]Filter[*Update]{correlate}, cfg.filters...)...),
	)
	d.awaiter = a

	p.add(d)
	defer p.remove(d)

	select {
	case u := <-a.ch:
		return u, nil
	case <-ctx.Done():
		if !a.claimed.CompareAndSwap(false, true) {
			// Claimed concurrently; the send is already buffered or imminent.
			return <-a.ch, nil
		}
		return nil, errors.Join(ErrAwaitCancelled, ctx.Err())
	}
}

func (p *AwaitingProvider) add(d *Descriptor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, d)
}

func (p *AwaitingProvider) remove(d *Descriptor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = slices.DeleteFunc(p.items, func(e *Descriptor) bool { return e == d })
}

// Await blocks the calling handler until the next update of kind correlated
// with the one that triggered it.
//
// Example:
//
//	u, err := hc.Await(ctx, botdispatch.KindMessage, botdispatch.WithKeyResolver(botdispatch.ChatKey))
func (hc *HandlerContext) Await(ctx context.Context, kind UpdateKind, opts ...AwaitOption) (*Update, error) {
	if hc.awaiting == nil {
		return nil, errors.New("await: handler is not running under a router")
	}
	return hc.awaiting.Await(ctx, hc.Update, kind, opts...)
}

// AwaitMessage waits for the next correlated message.
func (hc *HandlerContext) AwaitMessage(ctx context.Context, opts ...AwaitOption) (*Message, error) {
	u, err := hc.Await(ctx, KindMessage, opts...)
	if err != nil {
		return nil, err
	}
	return u.Message, nil
}

// AwaitCallback waits for the next correlated callback query.
func (hc *HandlerContext) AwaitCallback(ctx context.Context, opts ...AwaitOption) (*CallbackQuery, error) {
	u, err := hc.Await(ctx, KindCallbackQuery, opts...)
	if err != nil {
		return nil, err
	}
	return u.CallbackQuery, nil
}
