// Package botdispatch routes chat-bot updates to handlers through composable
// filters, under one global concurrency limit.
//
// An update (a message, a callback query, an inline query, ...) is matched
// against the descriptors registered for its kind, in a fixed order. Each
// descriptor that matches yields a handler; the handler decides whether the
// next matched handler runs too. Handlers can block waiting for a follow-up
// update from the same user, which is how multi-step conversations are
// written.
//
// # Quick Start
//
// Register descriptors on a Collection:
//
//	c := botdispatch.NewCollection()
//
//	err := c.Register("start", botdispatch.KindMessage, botdispatch.Of[startHandler](),
//	    botdispatch.WithFilters(botdispatch.OnMessage(filters.Command("start"))),
//	)
//
// Build a router (this freezes the collection) and feed it:
//
//	r := botdispatch.New(c,
//	    botdispatch.WithClient(client),
//	    botdispatch.WithLogger(logger),
//	)
//
//	// Long poll until ctx is cancelled
//	err = r.Run(ctx, poller)
//
//	// Or route one update and wait for its handlers
//	err = r.Process(ctx, update)
//
// # Filters
//
// A Filter[T] is a predicate over a MatchContext[T]. Filters compose with
// And, Or and Not, and projections narrow a filter over a part of the
// update onto the update itself:
//
//	botdispatch.OnMessage(botdispatch.And(
//	    filters.HasText(),
//	    botdispatch.OnChat(filters.ChatType(botdispatch.ChatPrivate)),
//	))
//
// Every filter that passes is recorded in the completed-filters history,
// together with the value it published. Later filters in the same pipeline
// and the handler itself read those values:
//
//	cmd, ok := botdispatch.LastValue[filters.CommandInfo](hc.Completed, filters.CommandKind)
//
// A filter that fails leaves the history as it found it. A filter that
// panics is reported through WithOnFilterFault and counts as not passed.
//
// # Ordering
//
// Descriptors of one kind are evaluated in ascending (concurrency class,
// priority, registration index) order. Matching is lazy: once a handler
// returns Ok, the remaining descriptors are never evaluated.
//
// Each descriptor runs its shape gate, then its state gate, then its content
// filters, stopping at the first failure.
//
// # Results
//
// A handler returns one of:
//   - Ok: done, stop here
//   - Fault: failed, stop here and report
//   - Next: done, run the next matched handler too
//   - NextAs / NextNamed: skip ahead to the next matched handler of a type or name
//
// # Awaiting
//
// A running handler can wait for the next correlated update:
//
//	func (h *askName) Handle(ctx context.Context, hc *botdispatch.HandlerContext) botdispatch.Result {
//	    _ = hc.Reply(ctx, "What is your name?")
//	    msg, err := hc.AwaitMessage(ctx)
//	    if err != nil {
//	        return botdispatch.Fault(err)
//	    }
//	    _ = hc.Reply(ctx, "Hello, "+msg.Text)
//	    return botdispatch.Ok()
//	}
//
// Awaits are checked before the registered handlers. With
// WithExclusiveAwaiting(true) an update delivered to an await is not routed
// any further.
//
// # Concurrency
//
// All handlers of all updates in flight share one limit (WithMaxConcurrency).
// The handlers of one update run one after the other. A handler blocked in
// Await keeps its slot; the delivery that wakes it does not need one.
//
// # State
//
// StateRegistry hands out one shared keeper per (key, state, keeper) type
// combination. State gates let descriptors match on the conversation state:
//
//	botdispatch.WithStateGate(botdispatch.ChatStateGate(states, botdispatch.StateIs("asking_name")))
//
// # Declarative Tables
//
// LoadTable and Collection.ApplyTable register descriptors from YAML, with
// handler and filter names bound to Go values.
//
// # Raw Updates
//
// Transports that receive JSON can classify and drop updates before
// decoding them. KindOf reads the update id and kind; Discriminators such as
// KindIn and ChatIn match a View of the raw bytes:
//
//	accept := botdispatch.AllOf(
//	    botdispatch.KindIn(botdispatch.KindMessage, botdispatch.KindCallbackQuery),
//	    botdispatch.ChatIn(-100123),
//	)
//
// # Hooks
//
// Hooks provide observability without coupling to specific logging or metrics systems:
//
//	r := botdispatch.New(c,
//	    botdispatch.WithOnSuccess(func(ctx context.Context, u *botdispatch.Update, d *botdispatch.Descriptor, res botdispatch.Result, dur time.Duration) {
//	        metrics.Timing("handler.success", dur, "handler:"+d.Name())
//	    }),
//	    botdispatch.WithOnFailure(func(ctx context.Context, u *botdispatch.Update, d *botdispatch.Descriptor, err error, dur time.Duration) {
//	        metrics.Incr("handler.error", "handler:"+d.Name())
//	    }),
//	)
//
// Available hooks:
//   - WithOnUpdate: Called when an update enters the router, enriches context
//   - WithOnMatch: Called just before a matched handler executes
//   - WithOnSuccess: Called after a handler succeeds
//   - WithOnFailure: Called after a handler faults or panics
//   - WithOnNoHandler: Called when nothing matched
//   - WithOnFilterFault: Called when a filter panics
//
// Multiple hooks of the same type are called in order.
//
// # Thread Safety
//
// Router is safe for concurrent use. Register everything before calling
// New; the collection is frozen afterwards and further Add calls fail with
// ErrFrozen.
package botdispatch
