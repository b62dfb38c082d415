package botdispatch

import (
	"cmp"
	"fmt"
	"sync/atomic"
)

// OrderKey totally orders descriptors within a list. Lower keys are
// evaluated first: concurrency class, then priority, then registration index.
type OrderKey struct {
	Concurrency int
	Priority    int
	Index       int
}

// Compare returns -1, 0 or +1 as k sorts before, with or after o.
func (k OrderKey) Compare(o OrderKey) int {
	if c := cmp.Compare(k.Concurrency, o.Concurrency); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Priority, o.Priority); c != 0 {
		return c
	}
	return cmp.Compare(k.Index, o.Index)
}

// Descriptor describes one candidate handler: the update kind it accepts,
// its filters, its ordering key and how its handler is instantiated. A
// descriptor must not change once it is in a list, except for the singleton
// instance slot.
type Descriptor struct {
	name        string
	kind        UpdateKind
	shape       Filter[*Update]
	state       Filter[*Update]
	filters     []Filter[*Update]
	priority    int
	concurrency int
	index       int
	inst        Instantiator

	instance atomic.Pointer[handlerSlot]

	// awaiter is set on the transient descriptors of in-flight awaits.
	awaiter *awaiter
}

type handlerSlot struct {
	h Handler
}

// DescriptorOption configures a Descriptor.
type DescriptorOption func(*Descriptor)

// WithShape sets the gate checking that the update has the expected shape,
// e.g. that a message carries text. It runs before every other filter.
func WithShape(f Filter[*Update]) DescriptorOption {
	return func(d *Descriptor) { d.shape = f }
}

// WithStateGate sets the conversation-state gate. It runs after the shape
// gate and before the content filters.
func WithStateGate(f Filter[*Update]) DescriptorOption {
	return func(d *Descriptor) { d.state = f }
}

// WithFilters appends content filters. All of them must pass, in order.
func WithFilters(fs ...Filter[*Update]) DescriptorOption {
	return func(d *Descriptor) { d.filters = append(d.filters, fs...) }
}

// WithPriority sets the priority component of the ordering key.
func WithPriority(p int) DescriptorOption {
	return func(d *Descriptor) { d.priority = p }
}

// WithConcurrency sets the concurrency class component of the ordering key.
func WithConcurrency(c int) DescriptorOption {
	return func(d *Descriptor) { d.concurrency = c }
}

// NewDescriptor builds a descriptor. The registration index is assigned when
// the descriptor is added to a Collection.
//
// Example:
//
//	d := botdispatch.NewDescriptor("start", botdispatch.KindMessage,
//	    botdispatch.Singleton(func() botdispatch.Handler { return &startHandler{} }),
//	    botdispatch.WithFilters(botdispatch.OnMessage(filters.Command("start"))),
//	    botdispatch.WithPriority(1),
//	)
func NewDescriptor(name string, kind UpdateKind, inst Instantiator, opts ...DescriptorOption) *Descriptor {
	d := &Descriptor{name: name, kind: kind, inst: inst}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the display name of the handler.
func (d *Descriptor) Name() string { return d.name }

// Kind returns the accepted update kind.
func (d *Descriptor) Kind() UpdateKind { return d.kind }

// Key returns the ordering key.
func (d *Descriptor) Key() OrderKey {
	return OrderKey{Concurrency: d.concurrency, Priority: d.priority, Index: d.index}
}

// Strategy names the instantiation strategy.
func (d *Descriptor) Strategy() string {
	if d.inst == nil {
		return "none"
	}
	return d.inst.strategy()
}

// Transient reports whether d belongs to an in-flight await.
func (d *Descriptor) Transient() bool { return d.awaiter != nil }

// Instance returns the cached singleton instance, if set.
func (d *Descriptor) Instance() (Handler, bool) {
	if s := d.instance.Load(); s != nil {
		return s.h, true
	}
	return nil, false
}

// SetInstance stores the singleton instance once. Later calls are no-ops
// and report false, so racing first uses all end up with the same instance.
func (d *Descriptor) SetInstance(h Handler) bool {
	return d.instance.CompareAndSwap(nil, &handlerSlot{h: h})
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s[%s %d/%d/%d]", d.name, d.kind, d.concurrency, d.priority, d.index)
}

func (d *Descriptor) filterCount() int {
	n := len(d.filters)
	if d.shape != nil {
		n++
	}
	if d.state != nil {
		n++
	}
	return n
}

// validate checks what can be checked before the first match.
func (d *Descriptor) validate() error {
	if !d.kind.Valid() {
		return fmt.Errorf("%w: %v", ErrUnknownKind, d.kind)
	}
	if d.inst == nil {
		return ErrNoInstantiator
	}
	if d.filterCount() == 0 {
		return ErrNoFilters
	}
	if h, ok := d.inst.probe(); ok {
		if kh, ok := h.(KindHandler); ok && kh.UpdateKind().Normalize() != d.kind.Normalize() {
			return fmt.Errorf("%w: handler accepts %s, descriptor %s", ErrKindMismatch, kh.UpdateKind(), d.kind)
		}
	}
	return nil
}

// Instantiator decides how a matched descriptor gets its handler instance.
type Instantiator interface {
	instance(d *Descriptor, mc *MatchContext[*Update]) Handler
	probe() (Handler, bool)
	strategy() string
}

// Fresh constructs a new handler for every match.
func Fresh(fn func() Handler) Instantiator { return fresh{fn: fn} }

type fresh struct {
	fn func() Handler
}

func (f fresh) instance(*Descriptor, *MatchContext[*Update]) Handler { return f.fn() }
func (fresh) probe() (Handler, bool)                                 { return nil, false }
func (fresh) strategy() string                                       { return "fresh" }

// Of constructs a new zero-valued *H for every match. Unlike Fresh, the
// handler type is known up front, so its declared kind is checked at
// registration.
func Of[H any, P interface {
	*H
	Handler
}]() Instantiator {
	return of[H, P]{}
}

type of[H any, P interface {
	*H
	Handler
}] struct{}

func (of[H, P]) instance(*Descriptor, *MatchContext[*Update]) Handler { return P(new(H)) }
func (of[H, P]) probe() (Handler, bool)                                 { return P(new(H)), true }
func (of[H, P]) strategy() string                                       { return "fresh" }

// Singleton constructs the handler on first match and reuses it afterwards.
func Singleton(fn func() Handler) Instantiator { return singleton{fn: fn} }

type singleton struct {
	fn func() Handler
}

func (s singleton) instance(d *Descriptor, _ *MatchContext[*Update]) Handler {
	if h, ok := d.Instance(); ok {
		return h
	}
	d.SetInstance(s.fn())
	h, _ := d.Instance()
	return h
}

func (singleton) probe() (Handler, bool) { return nil, false }
func (singleton) strategy() string       { return "singleton" }

// Static uses h for every match.
func Static(h Handler) Instantiator { return static{h: h} }

type static struct {
	h Handler
}

func (s static) instance(d *Descriptor, _ *MatchContext[*Update]) Handler {
	if _, ok := d.Instance(); !ok {
		d.SetInstance(s.h)
	}
	return s.h
}

func (s static) probe() (Handler, bool) { return s.h, true }
func (static) strategy() string         { return "singleton" }

// Factory calls fn for every match with the context the filters left behind.
func Factory(fn func(mc *MatchContext[*Update]) Handler) Instantiator { return factory{fn: fn} }

type factory struct {
	fn func(mc *MatchContext[*Update]) Handler
}

func (f factory) instance(_ *Descriptor, mc *MatchContext[*Update]) Handler { return f.fn(mc) }
func (factory) probe() (Handler, bool)                                      { return nil, false }
func (factory) strategy() string                                            { return "factory" }
