package botdispatch

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"slices"
	"time"
)

// DefaultMaxConcurrency is the default global limit on concurrently
// executing handlers.
const DefaultMaxConcurrency = 16

const defaultErrorBackoff = 5 * time.Second

// Transport delivers updates from the platform. Fetch returns the next
// batch; Ack advances the cursor past id once the update has been handed to
// the router.
type Transport interface {
	Fetch(ctx context.Context) ([]*Update, error)
	Ack(id int64)
}

// Option configures a Router.
type Option func(*Router)

// Router routes each update to its awaiting handlers first and its
// registered handlers second, and executes the combined sequence on a
// bounded pool.
//
// Usage:
//  1. Register descriptors on a Collection
//  2. Create a router with New (this freezes the collection)
//  3. Feed it with Run, Dispatch or Process
//
// Router is safe for concurrent use.
type Router struct {
	handlers  *HandlerProvider
	awaiting  *AwaitingProvider
	pool      *Pool
	client    Client
	bot       BotInfo
	states    *StateRegistry
	logger    *slog.Logger
	exclusive bool
	limit     int
	backoff   time.Duration
	hooks     hooks
}

// New creates a Router serving the descriptors of c and freezes c.
//
// Example:
//
//	c := botdispatch.NewCollection()
//	_ = c.Register("start", botdispatch.KindMessage, botdispatch.Of[startHandler](),
//	    botdispatch.WithFilters(botdispatch.OnMessage(filters.Command("start"))),
//	)
//
//	r := botdispatch.New(c,
//	    botdispatch.WithClient(client),
//	    botdispatch.WithMaxConcurrency(8),
//	    botdispatch.WithOnFailure(func(ctx context.Context, u *botdispatch.Update, d *botdispatch.Descriptor, err error, dur time.Duration) {
//	        logger.Error("handler failed", "handler", d.Name(), "error", err)
//	    }),
//	)
func New(c *Collection, opts ...Option) *Router {
	r := &Router{
		states:  NewStateRegistry(),
		logger:  slog.New(slog.DiscardHandler),
		limit:   DefaultMaxConcurrency,
		backoff: defaultErrorBackoff,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.handlers = NewHandlerProvider(c, r.bot, r.reportFault)
	r.awaiting = NewAwaitingProvider(r.bot, r.reportFault)
	r.pool = NewPool(r.limit)
	return r
}

// WithMaxConcurrency sets the global limit on concurrently executing
// handlers, across all updates in flight.
func WithMaxConcurrency(n int) Option {
	return func(r *Router) { r.limit = n }
}

// WithExclusiveAwaiting controls whether an update delivered to an await is
// withheld from the registered handlers. Off by default: both run.
func WithExclusiveAwaiting(exclusive bool) Option {
	return func(r *Router) { r.exclusive = exclusive }
}

// WithClient sets the outbound client handed to handlers.
func WithClient(c Client) Option {
	return func(r *Router) { r.client = c }
}

// WithBot sets the bot identity visible to filters.
func WithBot(b BotInfo) Option {
	return func(r *Router) { r.bot = b }
}

// WithStates shares a state registry with code outside the router, e.g.
// state gates built before the router.
func WithStates(s *StateRegistry) Option {
	return func(r *Router) { r.states = s }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithErrorBackoff sets how long Run waits after a failed fetch.
func WithErrorBackoff(d time.Duration) Option {
	return func(r *Router) { r.backoff = d }
}

// Awaiting returns the provider holding in-flight awaits.
func (r *Router) Awaiting() *AwaitingProvider { return r.awaiting }

// Pool returns the execution pool.
func (r *Router) Pool() *Pool { return r.pool }

// States returns the state registry shared with handlers.
func (r *Router) States() *StateRegistry { return r.states }

// Process routes u and waits for its handler chain to finish. It returns
// the *HandlerError of the handler that faulted, if any.
func (r *Router) Process(ctx context.Context, u *Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	return r.route(ctx, u, r.claim(u))
}

// Dispatch routes u on the pool without waiting for its handlers. The
// awaits u satisfies are claimed before Dispatch returns, so updates handed
// over one after another reach awaits in that order.
func (r *Router) Dispatch(ctx context.Context, u *Update) {
	if err := u.Validate(); err != nil {
		r.logger.Debug("dropping invalid update", "error", err)
		return
	}
	claimed := r.claim(u)
	r.pool.Go(func() {
		if err := r.route(ctx, u, claimed); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Debug("update finished with error", "update_id", u.ID, "error", err)
		}
	})
}

// claim hands u to every await it satisfies. Claiming never blocks.
func (r *Router) claim(u *Update) []*MatchedHandler {
	return slices.Collect(r.awaiting.Resolve(u))
}

func (r *Router) route(ctx context.Context, u *Update, claimed []*MatchedHandler) error {
	ctx = r.hooks.callOnUpdate(ctx, u)
	r.logger.Debug("routing update", "update_id", u.ID, "kind", u.Kind().String())

	res, ran := r.pool.Run(ctx, r.resolve(u, claimed), r.execute)
	if ran == 0 && !res.Failed() {
		r.logger.Debug("no handler matched", "update_id", u.ID)
		r.hooks.callOnNoHandler(ctx, u)
	}
	if res.Failed() {
		return res.Err()
	}
	return nil
}

// Wait blocks until every update handed to Dispatch has been processed.
func (r *Router) Wait() { r.pool.Wait() }

// Run is the receive loop: it fetches updates from t one batch at a time,
// dispatches each and acknowledges it. Handlers run on the pool, so the
// loop never waits for them. Run returns nil once ctx is done, after the
// in-flight handlers have returned.
func (r *Router) Run(ctx context.Context, t Transport) error {
	r.logger.Info("router started", "max_concurrency", r.pool.Limit(), "exclusive_awaiting", r.exclusive)
	defer r.pool.Wait()

	for {
		if ctx.Err() != nil {
			r.logger.Info("router stopped")
			return nil
		}

		updates, err := t.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				r.logger.Info("router stopped")
				return nil
			}
			r.logger.Error("fetch updates", "error", err)
			select {
			case <-time.After(r.backoff):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		for _, u := range updates {
			if u == nil {
				continue
			}
			if err := u.Validate(); err != nil {
				r.logger.Warn("dropping malformed update", "update_id", u.ID, "error", err)
			} else {
				r.Dispatch(ctx, u)
			}
			t.Ack(u.ID)
		}
	}
}

// resolve yields the claimed awaits, then, unless an await took u
// exclusively, the registered handlers it matches.
func (r *Router) resolve(u *Update, claimed []*MatchedHandler) iter.Seq[*MatchedHandler] {
	return func(yield func(*MatchedHandler) bool) {
		for _, mh := range claimed {
			if !yield(mh) {
				return
			}
		}
		if len(claimed) > 0 && r.exclusive {
			return
		}
		for mh := range r.handlers.Resolve(u) {
			if !yield(mh) {
				return
			}
		}
	}
}

// execute runs one matched handler with hooks, turning faults and panics
// into a *HandlerError.
func (r *Router) execute(ctx context.Context, mh *MatchedHandler) (res Result) {
	d := mh.Descriptor
	hc := r.handlerContext(mh)
	if d.Transient() {
		return mh.Handler.Handle(ctx, hc)
	}

	r.hooks.callOnMatch(ctx, mh.Update, d)
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			res = Fault(panicError(rec))
		}
		duration := time.Since(start)

		if !res.Failed() {
			r.hooks.callOnSuccess(ctx, mh.Update, d, res, duration)
			return
		}

		cause := res.err
		if cause == nil {
			cause = errors.New("handler reported a fault")
		}
		herr := &HandlerError{Handler: d.Name(), UpdateID: mh.Update.ID, Err: cause}
		res = Fault(herr)
		r.logger.Error("handler failed", "handler", d.Name(), "update_id", mh.Update.ID, "error", cause)
		r.hooks.callOnFailure(ctx, mh.Update, d, herr, duration)
	}()

	return mh.Handler.Handle(ctx, hc)
}

func (r *Router) handlerContext(mh *MatchedHandler) *HandlerContext {
	return &HandlerContext{
		Update:     mh.Update,
		Client:     r.client,
		Bot:        r.bot,
		Descriptor: mh.Descriptor,
		Completed:  mh.Completed,
		Data:       mh.Data,
		Lifetime:   mh.Lifetime,
		States:     r.states,
		Logger:     r.logger.With("handler", mh.Descriptor.Name(), "update_id", mh.Update.ID),
		awaiting:   r.awaiting,
	}
}

func (r *Router) reportFault(u *Update, fault *FilterFault) {
	r.logger.Warn("filter fault", "handler", fault.Handler, "filter", fault.Filter, "update_id", u.ID, "error", fault.Err)
	r.hooks.callOnFilterFault(u, fault)
}
