package botdispatch

// BotInfo is the identity of the bot the router serves.
type BotInfo struct {
	ID       int64
	Username string
}

// Data is the free-form side channel of one match attempt. Filters write to
// it, and the matched handler reads it back.
type Data map[string]any

// DataValue returns d[key] as a V.
func DataValue[V any](d Data, key string) (V, bool) {
	v, ok := d[key].(V)
	return v, ok
}

// Completion is one entry of the completed-filters history: the kind of a
// filter that passed and the value it published, if any.
type Completion struct {
	Kind  string
	Value any
}

// CompletedFilters is the ordered history of filters that passed during one
// match attempt. A filter can read what an earlier filter published, e.g. an
// allow-list reading the command name a command filter extracted. Nothing
// enforces that the producer runs first; order the filters accordingly.
type CompletedFilters struct {
	entries []Completion
}

// Len returns the number of recorded completions.
func (c *CompletedFilters) Len() int { return len(c.entries) }

// All returns a copy of the history in completion order.
func (c *CompletedFilters) All() []Completion {
	out := make([]Completion, len(c.entries))
	copy(out, c.entries)
	return out
}

// Nth returns the n-th (zero based) completion of the given kind.
func (c *CompletedFilters) Nth(kind string, n int) (Completion, bool) {
	if n < 0 {
		return Completion{}, false
	}
	for _, e := range c.entries {
		if e.Kind != kind {
			continue
		}
		if n == 0 {
			return e, true
		}
		n--
	}
	return Completion{}, false
}

// Last returns the most recent completion of the given kind.
func (c *CompletedFilters) Last(kind string) (Completion, bool) {
	for i := len(c.entries) - 1; i >= 0; i-- {
		if c.entries[i].Kind == kind {
			return c.entries[i], true
		}
	}
	return Completion{}, false
}

// Count returns how many filters of the given kind passed.
func (c *CompletedFilters) Count(kind string) int {
	n := 0
	for _, e := range c.entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (c *CompletedFilters) add(e Completion) { c.entries = append(c.entries, e) }

func (c *CompletedFilters) truncate(n int) {
	clear(c.entries[n:])
	c.entries = c.entries[:n]
}

// CompletedValue returns the value published by the n-th filter of kind.
func CompletedValue[V any](c *CompletedFilters, kind string, n int) (V, bool) {
	var zero V
	e, ok := c.Nth(kind, n)
	if !ok {
		return zero, false
	}
	v, ok := e.Value.(V)
	return v, ok
}

// LastValue returns the value published by the most recent filter of kind.
func LastValue[V any](c *CompletedFilters, kind string) (V, bool) {
	var zero V
	e, ok := c.Last(kind)
	if !ok {
		return zero, false
	}
	v, ok := e.Value.(V)
	return v, ok
}

// attempt is the state shared by every context of one match attempt,
// including the child contexts projections create.
type attempt struct {
	update    *Update
	bot       BotInfo
	completed CompletedFilters
	data      Data
	handler   string
	faults    []*FilterFault
}

// MatchContext is threaded through a filter pipeline. Value is the value
// under test; projections derive child contexts over sub-values that share
// the parent's history and side channel.
type MatchContext[T any] struct {
	Value T

	at        *attempt
	published any
}

// NewMatchContext starts a fresh match attempt over u.
func NewMatchContext(u *Update, bot BotInfo) *MatchContext[*Update] {
	return &MatchContext[*Update]{
		Value: u,
		at:    &attempt{update: u, bot: bot, data: Data{}},
	}
}

// Derive returns a child context over v sharing mc's attempt state.
func Derive[T, U any](mc *MatchContext[T], v U) *MatchContext[U] {
	return &MatchContext[U]{Value: v, at: mc.at}
}

// Update returns the full update being matched.
func (mc *MatchContext[T]) Update() *Update { return mc.at.update }

// Bot returns the identity of the bot.
func (mc *MatchContext[T]) Bot() BotInfo { return mc.at.bot }

// Completed returns the completed-filters history of this attempt.
func (mc *MatchContext[T]) Completed() *CompletedFilters { return &mc.at.completed }

// Data returns the side channel of this attempt.
func (mc *MatchContext[T]) Data() Data { return mc.at.data }

// Handler returns the name of the descriptor being evaluated.
func (mc *MatchContext[T]) Handler() string { return mc.at.handler }

// Faults returns the filter faults recorded during this attempt.
func (mc *MatchContext[T]) Faults() []*FilterFault { return mc.at.faults }

// Publish attaches v to the completion the current filter records if it
// passes. Later filters read it with Completed().Last or LastValue.
func (mc *MatchContext[T]) Publish(v any) { mc.published = v }
