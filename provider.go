package botdispatch

import (
	"iter"
)

// FaultReporter receives filter faults raised while matching u.
type FaultReporter func(u *Update, fault *FilterFault)

// HandlerProvider resolves an update against the frozen descriptor lists.
type HandlerProvider struct {
	lists  map[UpdateKind]*DescriptorList
	bot    BotInfo
	report FaultReporter
}

// NewHandlerProvider freezes c and serves its lists. report may be nil.
func NewHandlerProvider(c *Collection, bot BotInfo, report FaultReporter) *HandlerProvider {
	c.Freeze()

	lists := make(map[UpdateKind]*DescriptorList)
	for _, k := range c.Kinds() {
		lists[k] = c.List(k)
	}
	return &HandlerProvider{lists: lists, bot: bot, report: report}
}

// Resolve yields the handlers whose descriptors match u, in ordering-key
// order. Descriptors are evaluated only as the sequence is consumed, so a
// consumer that stops early skips the rest of the list.
func (p *HandlerProvider) Resolve(u *Update) iter.Seq[*MatchedHandler] {
	return func(yield func(*MatchedHandler) bool) {
		list, ok := p.lists[u.Kind().Normalize()]
		if !ok {
			return
		}
		for d := range list.All() {
			mh := matchDescriptor(d, u, p.bot, p.report)
			if mh == nil {
				continue
			}
			if !yield(mh) {
				return
			}
		}
	}
}

// matchDescriptor evaluates d's gates and filters against u in a fresh
// match context and instantiates its handler on success. A failing filter
// only rules out d.
func matchDescriptor(d *Descriptor, u *Update, bot BotInfo, report FaultReporter) (mh *MatchedHandler) {
	if d.kind != u.Kind() {
		return nil
	}

	mc := NewMatchContext(u, bot)
	mc.at.handler = d.name

	defer func() {
		if r := recover(); r != nil {
			mh = nil
			mc.at.faults = append(mc.at.faults, &FilterFault{
				Filter:  "instantiate",
				Handler: d.name,
				Err:     panicError(r),
			})
		}
		if report != nil {
			for _, f := range mc.at.faults {
				report(u, f)
			}
		}
	}()

	if !evaluate(d, mc) {
		return nil
	}

	return &MatchedHandler{
		Descriptor: d,
		Handler:    d.inst.instance(d, mc),
		Update:     u,
		Completed:  mc.Completed(),
		Data:       mc.Data(),
		Lifetime:   newLifetime(),
	}
}

// evaluate runs the shape gate, the state gate and the content filters in
// that order, stopping at the first failure.
func evaluate(d *Descriptor, mc *MatchContext[*Update]) bool {
	if d.shape != nil && !Pass(d.shape, mc) {
		return false
	}
	if d.state != nil && !Pass(d.state, mc) {
		return false
	}
	for _, f := range d.filters {
		if !Pass(f, mc) {
			return false
		}
	}
	return true
}
