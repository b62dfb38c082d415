package botdispatch

// ReplyChainKind is the history kind recorded by ReplyChain.
const ReplyChainKind = "reply_chain"

// Project narrows a filter over U into a filter over T. fn extracts the
// sub-value; when it reports false the projection fails. f runs against a
// child context sharing the parent's history and side channel, so filters
// over different projections can be mixed in one pipeline.
func Project[T, U any](kind string, fn func(T) (U, bool), f Filter[U]) Filter[T] {
	return projection[T, U]{kind: kind, fn: fn, f: f}
}

type projection[T, U any] struct {
	kind string
	fn   func(T) (U, bool)
	f    Filter[U]
}

func (p projection[T, U]) FilterKind() string { return p.kind }

func (p projection[T, U]) CanPass(mc *MatchContext[T]) bool {
	v, ok := p.fn(mc.Value)
	if !ok {
		return false
	}
	return Pass(p.f, Derive(mc, v))
}

// OnMessage runs f against the message payload of message, edited message,
// channel post and edited channel post updates.
func OnMessage(f Filter[*Message]) Filter[*Update] {
	return Project("message", func(u *Update) (*Message, bool) {
		m := messagePayload(u)
		return m, m != nil
	}, f)
}

// OnCallback runs f against the callback query payload.
func OnCallback(f Filter[*CallbackQuery]) Filter[*Update] {
	return Project("callback_query", func(u *Update) (*CallbackQuery, bool) {
		return u.CallbackQuery, u.CallbackQuery != nil
	}, f)
}

// OnInline runs f against the inline query payload.
func OnInline(f Filter[*InlineQuery]) Filter[*Update] {
	return Project("inline_query", func(u *Update) (*InlineQuery, bool) {
		return u.InlineQuery, u.InlineQuery != nil
	}, f)
}

// OnChosenResult runs f against the chosen inline result payload.
func OnChosenResult(f Filter[*ChosenInlineResult]) Filter[*Update] {
	return Project("chosen_inline_result", func(u *Update) (*ChosenInlineResult, bool) {
		return u.ChosenInlineResult, u.ChosenInlineResult != nil
	}, f)
}

// OnUpdateSender runs f against the user that originated the update.
func OnUpdateSender(f Filter[*User]) Filter[*Update] {
	return Project("update_sender", func(u *Update) (*User, bool) {
		s := u.Sender()
		return s, s != nil
	}, f)
}

// OnUpdateChat runs f against the chat the update happened in.
func OnUpdateChat(f Filter[*Chat]) Filter[*Update] {
	return Project("update_chat", func(u *Update) (*Chat, bool) {
		c := u.Chat()
		return c, c != nil
	}, f)
}

// OnCallbackMessage runs f against the message a callback button belongs to.
func OnCallbackMessage(f Filter[*Message]) Filter[*CallbackQuery] {
	return Project("callback_message", func(q *CallbackQuery) (*Message, bool) {
		return q.Message, q.Message != nil
	}, f)
}

// OnChat runs f against a message's chat.
func OnChat(f Filter[*Chat]) Filter[*Message] {
	return Project("chat", func(m *Message) (*Chat, bool) {
		return &m.Chat, true
	}, f)
}

// OnSender runs f against a message's author.
func OnSender(f Filter[*User]) Filter[*Message] {
	return Project("sender", func(m *Message) (*User, bool) {
		return m.From, m.From != nil
	}, f)
}

// ReplyChain walks depth reply hops from the message under test and
// publishes the message found there. It fails as soon as a hop is missing.
// A depth below one means one hop.
func ReplyChain(depth int) Filter[*Message] {
	if depth < 1 {
		depth = 1
	}
	return replyChain{depth: depth}
}

type replyChain struct {
	depth int
}

func (replyChain) FilterKind() string { return ReplyChainKind }

func (r replyChain) CanPass(mc *MatchContext[*Message]) bool {
	m := mc.Value
	for i := 0; i < r.depth; i++ {
		if m == nil || m.ReplyTo == nil {
			return false
		}
		m = m.ReplyTo
	}
	mc.Publish(m)
	return true
}

// Replied walks depth reply hops and runs f against the message found there.
func Replied(depth int, f Filter[*Message]) Filter[*Message] {
	return And(ReplyChain(depth), FilterFunc[*Message](func(mc *MatchContext[*Message]) bool {
		m, ok := RepliedMessage(mc.Completed())
		if !ok {
			return false
		}
		return Pass(f, Derive(mc, m))
	}))
}

// RepliedMessage returns the message published by the most recent
// ReplyChain. Filters about the replied message rely on a ReplyChain earlier
// in the same pipeline.
func RepliedMessage(c *CompletedFilters) (*Message, bool) {
	return LastValue[*Message](c, ReplyChainKind)
}

func messagePayload(u *Update) *Message {
	switch {
	case u.Message != nil:
		return u.Message
	case u.EditedMessage != nil:
		return u.EditedMessage
	case u.ChannelPost != nil:
		return u.ChannelPost
	case u.EditedChannelPost != nil:
		return u.EditedChannelPost
	}
	return nil
}
