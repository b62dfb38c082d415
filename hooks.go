package botdispatch

import (
	"context"
	"time"
)

// OnUpdateFunc is called when an update enters the router.
// Use this to enrich the context with logging fields or trace spans.
// The returned context is used for the rest of the update.
type OnUpdateFunc func(ctx context.Context, u *Update) context.Context

// OnMatchFunc is called just before a matched handler executes.
type OnMatchFunc func(ctx context.Context, u *Update, d *Descriptor)

// OnSuccessFunc is called after a handler returns Ok, Next or NextAs.
type OnSuccessFunc func(ctx context.Context, u *Update, d *Descriptor, res Result, duration time.Duration)

// OnFailureFunc is called after a handler faults or panics. err is a
// *HandlerError naming the descriptor. This is the process-wide place to
// observe routing failures.
type OnFailureFunc func(ctx context.Context, u *Update, d *Descriptor, err error, duration time.Duration)

// OnNoHandlerFunc is called when no handler matched an update.
type OnNoHandlerFunc func(ctx context.Context, u *Update)

// OnFilterFaultFunc is called for each filter that panicked while matching.
type OnFilterFaultFunc func(u *Update, fault *FilterFault)

// hooks holds all configured hook functions.
type hooks struct {
	onUpdate      []OnUpdateFunc
	onMatch       []OnMatchFunc
	onSuccess     []OnSuccessFunc
	onFailure     []OnFailureFunc
	onNoHandler   []OnNoHandlerFunc
	onFilterFault []OnFilterFaultFunc
}

// WithOnUpdate adds a hook called when an update enters the router.
// Multiple hooks are called in order, with context chaining through each.
//
// Example:
//
//	botdispatch.WithOnUpdate(func(ctx context.Context, u *botdispatch.Update) context.Context {
//	    return context.WithValue(ctx, updateIDKey{}, u.ID)
//	})
func WithOnUpdate(fn OnUpdateFunc) Option {
	return func(r *Router) {
		r.hooks.onUpdate = append(r.hooks.onUpdate, fn)
	}
}

// WithOnMatch adds a hook called just before a matched handler executes.
// Multiple hooks are called in order.
func WithOnMatch(fn OnMatchFunc) Option {
	return func(r *Router) {
		r.hooks.onMatch = append(r.hooks.onMatch, fn)
	}
}

// WithOnSuccess adds a hook called after a handler succeeds.
// Multiple hooks are called in order.
//
// Example:
//
//	botdispatch.WithOnSuccess(func(ctx context.Context, u *botdispatch.Update, d *botdispatch.Descriptor, res botdispatch.Result, dur time.Duration) {
//	    metrics.Timing("handler.success", dur, "handler:"+d.Name())
//	})
func WithOnSuccess(fn OnSuccessFunc) Option {
	return func(r *Router) {
		r.hooks.onSuccess = append(r.hooks.onSuccess, fn)
	}
}

// WithOnFailure adds a hook called after a handler faults or panics.
// Multiple hooks are called in order.
//
// Example:
//
//	botdispatch.WithOnFailure(func(ctx context.Context, u *botdispatch.Update, d *botdispatch.Descriptor, err error, dur time.Duration) {
//	    logger.Error("handler failed", "handler", d.Name(), "error", err)
//	})
func WithOnFailure(fn OnFailureFunc) Option {
	return func(r *Router) {
		r.hooks.onFailure = append(r.hooks.onFailure, fn)
	}
}

// WithOnNoHandler adds a hook called when nothing matched an update.
// Multiple hooks are called in order.
func WithOnNoHandler(fn OnNoHandlerFunc) Option {
	return func(r *Router) {
		r.hooks.onNoHandler = append(r.hooks.onNoHandler, fn)
	}
}

// WithOnFilterFault adds a hook called for each filter that panicked.
// Multiple hooks are called in order.
func WithOnFilterFault(fn OnFilterFaultFunc) Option {
	return func(r *Router) {
		r.hooks.onFilterFault = append(r.hooks.onFilterFault, fn)
	}
}

func (h *hooks) callOnUpdate(ctx context.Context, u *Update) context.Context {
	for _, fn := range h.onUpdate {
		ctx = fn(ctx, u)
	}
	return ctx
}

func (h *hooks) callOnMatch(ctx context.Context, u *Update, d *Descriptor) {
	for _, fn := range h.onMatch {
		fn(ctx, u, d)
	}
}

func (h *hooks) callOnSuccess(ctx context.Context, u *Update, d *Descriptor, res Result, duration time.Duration) {
	for _, fn := range h.onSuccess {
		fn(ctx, u, d, res, duration)
	}
}

func (h *hooks) callOnFailure(ctx context.Context, u *Update, d *Descriptor, err error, duration time.Duration) {
	for _, fn := range h.onFailure {
		fn(ctx, u, d, err, duration)
	}
}

func (h *hooks) callOnNoHandler(ctx context.Context, u *Update) {
	for _, fn := range h.onNoHandler {
		fn(ctx, u)
	}
}

func (h *hooks) callOnFilterFault(u *Update, fault *FilterFault) {
	for _, fn := range h.onFilterFault {
		fn(u, fault)
	}
}
