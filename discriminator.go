package botdispatch

import "slices"

// Discriminator is a cheap check on a raw update, evaluated before the
// update is decoded. Transports use it to drop updates early.
type Discriminator interface {
	Match(v View) bool
}

// DiscriminatorFunc adapts a plain function to Discriminator.
type DiscriminatorFunc func(v View) bool

func (f DiscriminatorFunc) Match(v View) bool { return f(v) }

// HasFields matches when every path exists.
func HasFields(paths ...string) Discriminator {
	return DiscriminatorFunc(func(v View) bool {
		return !slices.ContainsFunc(paths, func(p string) bool { return !v.HasField(p) })
	})
}

// FieldEquals matches when path holds exactly the string value.
func FieldEquals(path, value string) Discriminator {
	return FieldIn(path, value)
}

// FieldIn matches when path holds one of the string values.
func FieldIn(path string, values ...string) Discriminator {
	return DiscriminatorFunc(func(v View) bool {
		s, ok := v.GetString(path)
		return ok && slices.Contains(values, s)
	})
}

// AllOf matches when every discriminator does. An empty AllOf matches
// everything.
func AllOf(ds ...Discriminator) Discriminator {
	return DiscriminatorFunc(func(v View) bool {
		for _, d := range ds {
			if !d.Match(v) {
				return false
			}
		}
		return true
	})
}

// AnyOf matches when at least one discriminator does.
func AnyOf(ds ...Discriminator) Discriminator {
	return DiscriminatorFunc(func(v View) bool {
		return slices.ContainsFunc(ds, func(d Discriminator) bool { return d.Match(v) })
	})
}

// KindIn matches raw updates of the given kinds.
func KindIn(kinds ...UpdateKind) Discriminator {
	return DiscriminatorFunc(func(v View) bool {
		return slices.Contains(kinds, rawKind(v))
	})
}

// ChatIn matches raw updates that belong to one of the chats. Updates
// without a chat never match.
func ChatIn(ids ...int64) Discriminator {
	return DiscriminatorFunc(func(v View) bool {
		for _, p := range chatPaths {
			if id, ok := v.GetInt(p); ok {
				return slices.Contains(ids, id)
			}
		}
		return false
	})
}

// kindRules map each payload field of a raw update to its kind, in the
// order Update.Kind checks them.
var kindRules = []struct {
	kind UpdateKind
	disc Discriminator
}{
	{KindMessage, HasFields("message")},
	{KindEditedMessage, HasFields("edited_message")},
	{KindChannelPost, HasFields("channel_post")},
	{KindEditedChannelPost, HasFields("edited_channel_post")},
	{KindCallbackQuery, HasFields("callback_query")},
	{KindInlineQuery, HasFields("inline_query")},
	{KindChosenInlineResult, HasFields("chosen_inline_result")},
	{KindPollAnswer, HasFields("poll_answer")},
	{KindMyChatMember, HasFields("my_chat_member")},
	{KindChatMember, HasFields("chat_member")},
	{KindChatJoinRequest, HasFields("chat_join_request")},
}

var chatPaths = []string{
	"message.chat.id",
	"edited_message.chat.id",
	"channel_post.chat.id",
	"edited_channel_post.chat.id",
	"callback_query.message.chat.id",
	"my_chat_member.chat.id",
	"chat_member.chat.id",
	"chat_join_request.chat.id",
}

func rawKind(v View) UpdateKind {
	for _, rule := range kindRules {
		if rule.disc.Match(v) {
			return rule.kind
		}
	}
	return KindUnknown
}
