package botdispatch

import (
	"context"
	"iter"
	"slices"
	"sync"
)

func textUpdate(id, chatID, userID int64, text string) *Update {
	return &Update{
		ID: id,
		Message: &Message{
			ID:   id,
			From: &User{ID: userID, FirstName: "user"},
			Chat: Chat{ID: chatID, Type: ChatPrivate},
			Text: text,
		},
	}
}

func callbackUpdate(id, userID int64, data string) *Update {
	return &Update{
		ID:            id,
		CallbackQuery: &CallbackQuery{ID: "cb", From: User{ID: userID}, Data: data},
	}
}

// textIs is a minimal message text filter.
func textIs(s string) Filter[*Update] {
	return OnMessage(NamedFunc("text", func(mc *MatchContext[*Message]) bool {
		return mc.Value.Text == s
	}))
}

func pass(kind string) Filter[*Update] {
	return NamedFunc(kind, func(*MatchContext[*Update]) bool { return true })
}

func fail(kind string) Filter[*Update] {
	return NamedFunc(kind, func(*MatchContext[*Update]) bool { return false })
}

func publishing(kind string, v any) Filter[*Update] {
	return NamedFunc(kind, func(mc *MatchContext[*Update]) bool {
		mc.Publish(v)
		return true
	})
}

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

func recording(rec *recorder, name string, res Result) Handler {
	return HandlerFunc(func(context.Context, *HandlerContext) Result {
		rec.add(name)
		return res
	})
}

func collect(seq iter.Seq[*MatchedHandler]) []*MatchedHandler {
	return slices.Collect(seq)
}

func names(mhs []*MatchedHandler) []string {
	out := make([]string, len(mhs))
	for i, mh := range mhs {
		out[i] = mh.Descriptor.Name()
	}
	return out
}

func kinds(c *CompletedFilters) []string {
	var out []string
	for _, e := range c.All() {
		out = append(out, e.Kind)
	}
	return out
}

type sentMessage struct {
	ChatID int64
	Text   string
}

type fakeClient struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (c *fakeClient) SendMessage(_ context.Context, chatID int64, text string) (*Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMessage{ChatID: chatID, Text: text})
	return &Message{ID: int64(len(c.sent)), Chat: Chat{ID: chatID}, Text: text}, nil
}

func (c *fakeClient) AnswerCallback(context.Context, string, string) error { return nil }

func (c *fakeClient) EditMessageText(context.Context, int64, int64, string) error { return nil }

func (c *fakeClient) messages() []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.sent)
}
