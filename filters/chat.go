package filters

import (
	"slices"
	"strings"

	bd "github.com/bjaus/botdispatch"
)

// ChatID passes chats with one of ids.
func ChatID(ids ...int64) bd.Filter[*bd.Chat] {
	return bd.NamedFunc("chat_id", func(mc *bd.MatchContext[*bd.Chat]) bool {
		return slices.Contains(ids, mc.Value.ID)
	})
}

// ChatType passes chats of one of types (botdispatch.ChatPrivate, ...).
func ChatType(types ...string) bd.Filter[*bd.Chat] {
	return bd.NamedFunc("chat_type", func(mc *bd.MatchContext[*bd.Chat]) bool {
		return slices.Contains(types, mc.Value.Type)
	})
}

// ChatTitle passes group and channel chats titled title.
func ChatTitle(title string) bd.Filter[*bd.Chat] {
	return bd.NamedFunc("chat_title", func(mc *bd.MatchContext[*bd.Chat]) bool {
		return mc.Value.Title == title
	})
}

// ChatName passes private chats whose first and last name equal the given
// ones. An empty last name only matches chats without one.
func ChatName(first, last string) bd.Filter[*bd.Chat] {
	return bd.NamedFunc("chat_name", func(mc *bd.MatchContext[*bd.Chat]) bool {
		return mc.Value.FirstName == first && mc.Value.LastName == last
	})
}

// ChatUsername passes chats with the given public username, with or without
// the leading '@'.
func ChatUsername(username string) bd.Filter[*bd.Chat] {
	username = strings.TrimPrefix(username, "@")
	return bd.NamedFunc("chat_username", func(mc *bd.MatchContext[*bd.Chat]) bool {
		return strings.EqualFold(mc.Value.Username, username)
	})
}

// FromUser passes users with one of ids.
func FromUser(ids ...int64) bd.Filter[*bd.User] {
	return bd.NamedFunc("from_user", func(mc *bd.MatchContext[*bd.User]) bool {
		return slices.Contains(ids, mc.Value.ID)
	})
}

// Username passes users with one of the given usernames, ignoring case and a
// leading '@'.
func Username(names ...string) bd.Filter[*bd.User] {
	want := make([]string, len(names))
	for i, n := range names {
		want[i] = strings.ToLower(strings.TrimPrefix(n, "@"))
	}
	return bd.NamedFunc("username", func(mc *bd.MatchContext[*bd.User]) bool {
		return slices.Contains(want, strings.ToLower(mc.Value.Username))
	})
}

// IsBot passes bot accounts.
func IsBot() bd.Filter[*bd.User] {
	return bd.NamedFunc("is_bot", func(mc *bd.MatchContext[*bd.User]) bool {
		return mc.Value.IsBot
	})
}

// RepliedFrom passes messages that reply to a message written by userID.
func RepliedFrom(userID int64) bd.Filter[*bd.Message] {
	return bd.Replied(1, bd.OnSender(FromUser(userID)))
}

// RepliedToBot passes messages that reply to a message of the bot itself.
func RepliedToBot() bd.Filter[*bd.Message] {
	return bd.Replied(1, bd.OnSender(bd.NamedFunc("bot_self", func(mc *bd.MatchContext[*bd.User]) bool {
		return mc.Bot().ID != 0 && mc.Value.ID == mc.Bot().ID
	})))
}
