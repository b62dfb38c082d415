package botdispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrFrozen is returned when adding to a frozen DescriptorList or Collection.
	ErrFrozen = errors.New("frozen collection")

	// ErrNoFilters is returned when a descriptor declares no gate or filter.
	ErrNoFilters = errors.New("descriptor has no filters")

	// ErrDuplicateHandler is returned when two descriptors share a name.
	ErrDuplicateHandler = errors.New("duplicate handler name")

	// ErrKindMismatch is returned when a handler declares a kind different
	// from its descriptor's.
	ErrKindMismatch = errors.New("handler kind does not match descriptor kind")

	// ErrUnknownKind is returned for kinds the router does not route.
	ErrUnknownKind = errors.New("unknown update kind")

	// ErrNoInstantiator is returned when a descriptor cannot build a handler.
	ErrNoInstantiator = errors.New("descriptor has no instantiator")

	// ErrNoPayload is returned by Update.Validate for an empty update.
	ErrNoPayload = errors.New("update has no payload")

	// ErrAwaitCancelled is returned when an await is cancelled before a
	// correlated update arrives.
	ErrAwaitCancelled = errors.New("await cancelled")

	// ErrNoCorrelationKey is returned when the triggering update has no key
	// for the await's resolver (e.g. no sender).
	ErrNoCorrelationKey = errors.New("update has no correlation key")
)

// RegistrationError reports a malformed descriptor.
type RegistrationError struct {
	Handler string
	Err     error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %s: %v", e.Handler, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// HandlerError wraps a failure raised while executing a matched handler.
type HandlerError struct {
	Handler  string
	UpdateID int64
	Err      error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s (update %d): %v", e.Handler, e.UpdateID, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// FilterFault records a filter that panicked during evaluation. The filter
// counts as not passed.
type FilterFault struct {
	Filter  string
	Handler string
	Err     error
}

func (e *FilterFault) Error() string {
	return fmt.Sprintf("filter %s on %s: %v", e.Filter, e.Handler, e.Err)
}

func (e *FilterFault) Unwrap() error { return e.Err }

// panicError converts a recovered value into an error.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
