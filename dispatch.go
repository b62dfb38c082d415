package botdispatch

import (
	"context"
	"errors"
)

// Proc (procedure) handles the typed payload of an update without replying.
// A nil error is Ok, anything else a Fault.
//
// Example:
//
//	type joinProc struct {
//	    members *Members
//	}
//
//	func (p *joinProc) Run(ctx context.Context, hc *botdispatch.HandlerContext, q *botdispatch.ChatJoinRequest) error {
//	    return p.members.Approve(ctx, q.Chat.ID, q.From.ID)
//	}
type Proc[T any] interface {
	Run(ctx context.Context, hc *HandlerContext, payload T) error
}

// ProcFunc is a function adapter for Proc:
//
//	botdispatch.HandleMessage(botdispatch.ProcFunc[*botdispatch.Message](func(ctx context.Context, hc *botdispatch.HandlerContext, m *botdispatch.Message) error {
//	    return nil
//	}))
type ProcFunc[T any] func(ctx context.Context, hc *HandlerContext, payload T) error

// Run implements the Proc interface.
func (f ProcFunc[T]) Run(ctx context.Context, hc *HandlerContext, payload T) error {
	return f(ctx, hc, payload)
}

// Func handles the typed payload of an update and returns the text to send
// back to the update's chat. An empty reply sends nothing.
//
// Example:
//
//	type echoFunc struct{}
//
//	func (echoFunc) Call(ctx context.Context, hc *botdispatch.HandlerContext, m *botdispatch.Message) (string, error) {
//	    return m.Text, nil
//	}
type Func[T any] interface {
	Call(ctx context.Context, hc *HandlerContext, payload T) (string, error)
}

// FuncFunc is a function adapter for Func.
type FuncFunc[T any] func(ctx context.Context, hc *HandlerContext, payload T) (string, error)

// Call implements the Func interface.
func (f FuncFunc[T]) Call(ctx context.Context, hc *HandlerContext, payload T) (string, error) {
	return f(ctx, hc, payload)
}

// ErrNoReplyTarget is returned when a Func replies to an update without a
// chat, or no Client is configured.
var ErrNoReplyTarget = errors.New("no chat or client to reply with")

// Payload extracts the typed payload a Proc or Func works on.
type Payload[T any] func(u *Update) (T, bool)

// MessagePayload extracts the message of message-like updates.
func MessagePayload(u *Update) (*Message, bool) {
	m := messagePayload(u)
	return m, m != nil
}

// CallbackPayload extracts the callback query.
func CallbackPayload(u *Update) (*CallbackQuery, bool) {
	return u.CallbackQuery, u.CallbackQuery != nil
}

// InlinePayload extracts the inline query.
func InlinePayload(u *Update) (*InlineQuery, bool) {
	return u.InlineQuery, u.InlineQuery != nil
}

// JoinRequestPayload extracts the chat join request.
func JoinRequestPayload(u *Update) (*ChatJoinRequest, bool) {
	return u.ChatJoinRequest, u.ChatJoinRequest != nil
}

// HandleProc adapts p into a Handler. Updates without the payload fault.
func HandleProc[T any](extract Payload[T], p Proc[T]) Handler {
	return HandlerFunc(func(ctx context.Context, hc *HandlerContext) Result {
		payload, ok := extract(hc.Update)
		if !ok {
			return Fault(ErrNoPayload)
		}
		if err := p.Run(ctx, hc, payload); err != nil {
			return Fault(err)
		}
		return Ok()
	})
}

// HandleFunc adapts f into a Handler that sends f's reply to the update's
// chat.
func HandleFunc[T any](extract Payload[T], f Func[T]) Handler {
	return HandlerFunc(func(ctx context.Context, hc *HandlerContext) Result {
		payload, ok := extract(hc.Update)
		if !ok {
			return Fault(ErrNoPayload)
		}
		reply, err := f.Call(ctx, hc, payload)
		if err != nil {
			return Fault(err)
		}
		if reply == "" {
			return Ok()
		}
		if err := hc.Reply(ctx, reply); err != nil {
			return Fault(err)
		}
		return Ok()
	})
}

// HandleMessage adapts a message Proc.
func HandleMessage(p Proc[*Message]) Handler { return HandleProc(MessagePayload, p) }

// HandleCallback adapts a callback query Proc.
func HandleCallback(p Proc[*CallbackQuery]) Handler { return HandleProc(CallbackPayload, p) }

// Reply sends text to the chat of the update being handled.
func (hc *HandlerContext) Reply(ctx context.Context, text string) error {
	chat := hc.Update.Chat()
	if chat == nil || hc.Client == nil {
		return ErrNoReplyTarget
	}
	_, err := hc.Client.SendMessage(ctx, chat.ID, text)
	return err
}
