// Package telegram connects the router to the Telegram Bot API through
// telego: update conversion, a long-poll transport, an outbound client and
// a webhook handler.
package telegram

import (
	"github.com/mymmrac/telego"

	bd "github.com/bjaus/botdispatch"
)

// FromTelego converts a telego update. Kinds the router does not route come
// back with an ID and no payload, so Validate rejects them.
func FromTelego(u telego.Update) *bd.Update {
	out := &bd.Update{ID: int64(u.UpdateID)}

	switch {
	case u.Message != nil:
		out.Message = Message(u.Message)
	case u.EditedMessage != nil:
		out.EditedMessage = Message(u.EditedMessage)
	case u.ChannelPost != nil:
		out.ChannelPost = Message(u.ChannelPost)
	case u.EditedChannelPost != nil:
		out.EditedChannelPost = Message(u.EditedChannelPost)
	case u.CallbackQuery != nil:
		out.CallbackQuery = callbackQuery(u.CallbackQuery)
	case u.InlineQuery != nil:
		out.InlineQuery = &bd.InlineQuery{
			ID:    u.InlineQuery.ID,
			From:  user(u.InlineQuery.From),
			Query: u.InlineQuery.Query,
		}
	case u.ChosenInlineResult != nil:
		out.ChosenInlineResult = &bd.ChosenInlineResult{
			ResultID: u.ChosenInlineResult.ResultID,
			From:     user(u.ChosenInlineResult.From),
			Query:    u.ChosenInlineResult.Query,
		}
	case u.PollAnswer != nil:
		out.PollAnswer = pollAnswer(u.PollAnswer)
	case u.MyChatMember != nil:
		out.MyChatMember = memberUpdate(u.MyChatMember)
	case u.ChatMember != nil:
		out.ChatMember = memberUpdate(u.ChatMember)
	case u.ChatJoinRequest != nil:
		out.ChatJoinRequest = &bd.ChatJoinRequest{
			Chat: chat(u.ChatJoinRequest.Chat),
			From: user(u.ChatJoinRequest.From),
			Date: u.ChatJoinRequest.Date,
		}
	}
	return out
}

// Message converts a telego message, following its reply link.
func Message(m *telego.Message) *bd.Message {
	if m == nil {
		return nil
	}
	out := &bd.Message{
		ID:      int64(m.MessageID),
		Chat:    chat(m.Chat),
		Date:    m.Date,
		Text:    m.Text,
		Caption: m.Caption,
		ReplyTo: Message(m.ReplyToMessage),
	}
	if m.From != nil {
		u := user(*m.From)
		out.From = &u
	}
	return out
}

func callbackQuery(q *telego.CallbackQuery) *bd.CallbackQuery {
	out := &bd.CallbackQuery{
		ID:   q.ID,
		From: user(q.From),
		Data: q.Data,
	}
	// Inaccessible (too old) messages carry no content worth routing on.
	if m, ok := q.Message.(*telego.Message); ok {
		out.Message = Message(m)
	}
	return out
}

func pollAnswer(a *telego.PollAnswer) *bd.PollAnswer {
	out := &bd.PollAnswer{PollID: a.PollID, OptionIDs: a.OptionIDs}
	if a.User != nil {
		u := user(*a.User)
		out.User = &u
	}
	if a.VoterChat != nil {
		c := chat(*a.VoterChat)
		out.VoterChat = &c
	}
	return out
}

func memberUpdate(m *telego.ChatMemberUpdated) *bd.ChatMemberUpdated {
	return &bd.ChatMemberUpdated{
		Chat: chat(m.Chat),
		From: user(m.From),
		Date: m.Date,
	}
}

func user(u telego.User) bd.User {
	return bd.User{
		ID:        u.ID,
		IsBot:     u.IsBot,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
	}
}

func chat(c telego.Chat) bd.Chat {
	return bd.Chat{
		ID:        c.ID,
		Type:      c.Type,
		Title:     c.Title,
		Username:  c.Username,
		FirstName: c.FirstName,
		LastName:  c.LastName,
	}
}

// BotInfo converts the result of getMe.
func BotInfo(me *telego.User) bd.BotInfo {
	if me == nil {
		return bd.BotInfo{}
	}
	return bd.BotInfo{ID: me.ID, Username: me.Username}
}
