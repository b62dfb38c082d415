package botdispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Handler runs when its descriptor matches an update.
//
// Example:
//
//	type greetHandler struct{}
//
//	func (h *greetHandler) Handle(ctx context.Context, hc *botdispatch.HandlerContext) botdispatch.Result {
//	    if _, err := hc.Client.SendMessage(ctx, hc.Update.Chat().ID, "hello"); err != nil {
//	        return botdispatch.Fault(err)
//	    }
//	    return botdispatch.Ok()
//	}
type Handler interface {
	Handle(ctx context.Context, hc *HandlerContext) Result
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, hc *HandlerContext) Result

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, hc *HandlerContext) Result {
	return f(ctx, hc)
}

// KindHandler is implemented by handlers bound to one update kind.
// Registration rejects a descriptor whose kind disagrees.
type KindHandler interface {
	UpdateKind() UpdateKind
}

// Client is the outbound side of the platform. The router only passes it
// through to handlers.
type Client interface {
	SendMessage(ctx context.Context, chatID int64, text string) (*Message, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
	EditMessageText(ctx context.Context, chatID, messageID int64, text string) error
}

// MatchedHandler is the result of one successful match: the descriptor, the
// handler instance and what the filters left behind.
type MatchedHandler struct {
	Descriptor *Descriptor
	Handler    Handler
	Update     *Update
	Completed  *CompletedFilters
	Data       Data
	Lifetime   *Lifetime
}

// HandlerContext is what a handler sees while it runs.
type HandlerContext struct {
	Update     *Update
	Client     Client
	Bot        BotInfo
	Descriptor *Descriptor
	Completed  *CompletedFilters
	Data       Data
	Lifetime   *Lifetime
	States     *StateRegistry
	Logger     *slog.Logger

	awaiting *AwaitingProvider
}

// Lifetime is ended once its handler execution is over, whatever the
// outcome. Observers use it to learn that the instance will not run again.
type Lifetime struct {
	id   uuid.UUID
	done chan struct{}
	once sync.Once
}

func newLifetime() *Lifetime {
	return &Lifetime{id: uuid.New(), done: make(chan struct{})}
}

// ID identifies one handler execution.
func (l *Lifetime) ID() uuid.UUID { return l.id }

// Done is closed when the execution has ended.
func (l *Lifetime) Done() <-chan struct{} { return l.done }

// Ended reports whether the execution has ended.
func (l *Lifetime) Ended() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

func (l *Lifetime) end() {
	l.once.Do(func() { close(l.done) })
}
