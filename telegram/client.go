package telegram

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"

	bd "github.com/bjaus/botdispatch"
)

// API is the part of *telego.Bot the client needs.
type API interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error
	EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error)
}

// Client implements botdispatch.Client on the Bot API.
type Client struct {
	api API
}

var _ bd.Client = (*Client)(nil)

// NewClient creates a client over api, usually a *telego.Bot.
func NewClient(api API) *Client {
	return &Client{api: api}
}

// SendMessage sends a plain text message.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (*bd.Message, error) {
	m, err := c.api.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   text,
	})
	if err != nil {
		return nil, fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return Message(m), nil
}

// AnswerCallback acknowledges a button press, optionally with a toast.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	err := c.api.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	if err != nil {
		return fmt.Errorf("answer callback %s: %w", callbackID, err)
	}
	return nil
}

// EditMessageText replaces the text of a message the bot sent.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	_, err := c.api.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    telego.ChatID{ID: chatID},
		MessageID: int(messageID),
		Text:      text,
	})
	if err != nil {
		return fmt.Errorf("edit message %d in %d: %w", messageID, chatID, err)
	}
	return nil
}
