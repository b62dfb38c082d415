package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	bd "github.com/bjaus/botdispatch"
	"github.com/bjaus/botdispatch/filters"
)

const (
	stateAskingName = "asking_name"

	answerTimeout = 2 * time.Minute
)

// startHandler runs the /start conversation: it asks for a name and waits
// for the same user's next message.
type startHandler struct{}

func (startHandler) UpdateKind() bd.UpdateKind { return bd.KindMessage }

func (startHandler) Handle(ctx context.Context, hc *bd.HandlerContext) bd.Result {
	chat := hc.Update.Chat()
	names := bd.ChatState[string](hc.States)

	if err := hc.Reply(ctx, "Hi! What should I call you?"); err != nil {
		return bd.Fault(err)
	}
	names.Set(chat.ID, stateAskingName)
	defer names.Delete(chat.ID)

	ctx, cancel := context.WithTimeout(ctx, answerTimeout)
	defer cancel()

	msg, err := hc.AwaitMessage(ctx, bd.WithAwaitFilters(filters.HasText()))
	if err != nil {
		hc.Logger.Info("no answer to /start", "error", err)
		return bd.Ok()
	}

	if err := hc.Reply(ctx, fmt.Sprintf("Nice to meet you, %s.", strings.TrimSpace(msg.Text))); err != nil {
		return bd.Fault(err)
	}
	return bd.Ok()
}

// voteHandler answers presses on "vote:<option>" buttons.
type voteHandler struct {
	mu    sync.Mutex
	votes map[string]int
}

func newVoteHandler() bd.Handler {
	return &voteHandler{votes: make(map[string]int)}
}

func (h *voteHandler) UpdateKind() bd.UpdateKind { return bd.KindCallbackQuery }

func (h *voteHandler) Handle(ctx context.Context, hc *bd.HandlerContext) bd.Result {
	option, _ := filters.CallbackRest(hc.Completed)
	q := hc.Update.CallbackQuery

	h.mu.Lock()
	h.votes[option]++
	n := h.votes[option]
	h.mu.Unlock()

	if err := hc.Client.AnswerCallback(ctx, q.ID, "Vote counted"); err != nil {
		return bd.Fault(err)
	}
	if q.Message != nil {
		text := fmt.Sprintf("%s: %d vote(s)", option, n)
		if err := hc.Client.EditMessageText(ctx, q.Message.Chat.ID, q.Message.ID, text); err != nil {
			return bd.Fault(err)
		}
	}
	return bd.Ok()
}

// echo repeats text back; it is the last message handler in line.
func echo(_ context.Context, _ *bd.HandlerContext, m *bd.Message) (string, error) {
	return m.Text, nil
}

func help(_ context.Context, hc *bd.HandlerContext, _ *bd.Message) (string, error) {
	return fmt.Sprintf("I am @%s. Try /start, or send me anything.", hc.Bot.Username), nil
}

// instantiators binds the demo handlers to the names tables refer to.
func instantiators() map[string]bd.Instantiator {
	return map[string]bd.Instantiator{
		"start": bd.Of[startHandler](),
		"vote":  bd.Singleton(newVoteHandler),
		"echo":  bd.Static(bd.HandleFunc(bd.MessagePayload, bd.FuncFunc[*bd.Message](echo))),
		"help":  bd.Static(bd.HandleFunc(bd.MessagePayload, bd.FuncFunc[*bd.Message](help))),
	}
}

// register fills c from the table at path, or with the built-in
// registrations when path is empty.
func register(c *bd.Collection, states *bd.StateRegistry, path string) error {
	handlers := instantiators()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open handler table: %w", err)
		}
		defer f.Close()

		table, err := bd.LoadTable(f)
		if err != nil {
			return err
		}
		return c.ApplyTable(table, bd.TableBindings{
			Handlers: handlers,
			Filters:  filters.Builders(),
			States:   states,
		})
	}

	regs := []*bd.Descriptor{
		bd.NewDescriptor("start", bd.KindMessage, handlers["start"],
			bd.WithStateGate(bd.ChatStateGate(states, bd.NoState[string]())),
			bd.WithFilters(bd.OnMessage(filters.Command("start"))),
		),
		bd.NewDescriptor("help", bd.KindMessage, handlers["help"],
			bd.WithFilters(bd.OnMessage(filters.Command("help"))),
		),
		bd.NewDescriptor("vote", bd.KindCallbackQuery, handlers["vote"],
			bd.WithFilters(bd.OnCallback(filters.CallbackData("vote:"))),
		),
		bd.NewDescriptor("echo", bd.KindMessage, handlers["echo"],
			bd.WithShape(filters.HasText()),
			bd.WithFilters(bd.OnMessage(bd.Not(filters.Command()))),
			bd.WithPriority(100),
		),
	}
	for _, d := range regs {
		if err := c.Add(d); err != nil {
			return err
		}
	}
	return nil
}
