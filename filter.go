package botdispatch

import "fmt"

// Filter is a predicate over a MatchContext. A filter may publish a derived
// value with MatchContext.Publish for filters that run after it.
type Filter[T any] interface {
	CanPass(mc *MatchContext[T]) bool
}

// FilterFunc adapts a function to Filter.
type FilterFunc[T any] func(mc *MatchContext[T]) bool

// CanPass implements Filter.
func (f FilterFunc[T]) CanPass(mc *MatchContext[T]) bool { return f(mc) }

// Kinder is implemented by filters that name the kind they record in the
// completed-filters history. Filters without it are recorded by Go type.
type Kinder interface {
	FilterKind() string
}

// FilterKind returns the history kind of f.
func FilterKind(f any) string {
	if k, ok := f.(Kinder); ok {
		return k.FilterKind()
	}
	return fmt.Sprintf("%T", f)
}

// Pass evaluates f against mc. A passing filter is appended to the history
// together with whatever it published; a failing one leaves the history as
// it found it. A panic inside f is recorded as a FilterFault and counts as
// not passed.
func Pass[T any](f Filter[T], mc *MatchContext[T]) (ok bool) {
	mark := mc.at.completed.Len()
	saved := mc.published
	mc.published = nil

	defer func() {
		if r := recover(); r != nil {
			ok = false
			mc.at.faults = append(mc.at.faults, &FilterFault{
				Filter:  FilterKind(f),
				Handler: mc.at.handler,
				Err:     panicError(r),
			})
		}
		published := mc.published
		mc.published = saved
		if !ok {
			mc.at.completed.truncate(mark)
			return
		}
		mc.at.completed.add(Completion{Kind: FilterKind(f), Value: published})
	}()

	return f.CanPass(mc)
}

// Named gives f an explicit history kind.
func Named[T any](kind string, f Filter[T]) Filter[T] {
	return named[T]{kind: kind, f: f}
}

// NamedFunc is Named for a plain function.
func NamedFunc[T any](kind string, fn func(mc *MatchContext[T]) bool) Filter[T] {
	return named[T]{kind: kind, f: FilterFunc[T](fn)}
}

type named[T any] struct {
	kind string
	f    Filter[T]
}

func (n named[T]) FilterKind() string { return n.kind }

func (n named[T]) CanPass(mc *MatchContext[T]) bool { return n.f.CanPass(mc) }

// Any returns a filter that always passes.
func Any[T any]() Filter[T] { return anyFilter[T]{} }

type anyFilter[T any] struct{}

func (anyFilter[T]) FilterKind() string            { return "any" }
func (anyFilter[T]) CanPass(*MatchContext[T]) bool { return true }

// Not inverts f.
func Not[T any](f Filter[T]) Filter[T] { return not[T]{f: f} }

type not[T any] struct {
	f Filter[T]
}

func (not[T]) FilterKind() string { return "not" }

func (n not[T]) CanPass(mc *MatchContext[T]) bool { return !Pass(n.f, mc) }

// And passes when every filter passes, evaluated left to right and stopping
// at the first failure.
func And[T any](fs ...Filter[T]) Filter[T] { return and[T]{fs: fs} }

type and[T any] struct {
	fs []Filter[T]
}

func (and[T]) FilterKind() string { return "and" }

func (a and[T]) CanPass(mc *MatchContext[T]) bool {
	for _, f := range a.fs {
		if !Pass(f, mc) {
			return false
		}
	}
	return true
}

// Or passes when any filter passes, evaluated left to right and stopping at
// the first success.
func Or[T any](fs ...Filter[T]) Filter[T] { return or[T]{fs: fs} }

type or[T any] struct {
	fs []Filter[T]
}

func (or[T]) FilterKind() string { return "or" }

func (o or[T]) CanPass(mc *MatchContext[T]) bool {
	for _, f := range o.fs {
		if Pass(f, mc) {
			return true
		}
	}
	return false
}
