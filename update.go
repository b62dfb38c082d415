package botdispatch

import "fmt"

// UpdateKind identifies which payload variant an Update carries.
type UpdateKind int

// Update kinds understood by the router.
const (
	KindUnknown UpdateKind = iota
	KindMessage
	KindEditedMessage
	KindChannelPost
	KindEditedChannelPost
	KindCallbackQuery
	KindInlineQuery
	KindChosenInlineResult
	KindPollAnswer
	KindMyChatMember
	KindChatMember
	KindChatJoinRequest
)

var kindNames = map[UpdateKind]string{
	KindUnknown:            "unknown",
	KindMessage:            "message",
	KindEditedMessage:      "edited_message",
	KindChannelPost:        "channel_post",
	KindEditedChannelPost:  "edited_channel_post",
	KindCallbackQuery:      "callback_query",
	KindInlineQuery:        "inline_query",
	KindChosenInlineResult: "chosen_inline_result",
	KindPollAnswer:         "poll_answer",
	KindMyChatMember:       "my_chat_member",
	KindChatMember:         "chat_member",
	KindChatJoinRequest:    "chat_join_request",
}

// String returns the wire name of the kind, e.g. "callback_query".
func (k UpdateKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Valid reports whether k names a concrete payload variant.
func (k UpdateKind) Valid() bool {
	_, ok := kindNames[k]
	return ok && k != KindUnknown
}

// Normalize returns the kind whose descriptor list serves k. A chosen inline
// result is the second phase of an inline query, so both share one list.
func (k UpdateKind) Normalize() UpdateKind {
	if k == KindChosenInlineResult {
		return KindInlineQuery
	}
	return k
}

// ParseKind resolves a wire name such as "message" to its kind.
func ParseKind(s string) (UpdateKind, error) {
	for k, name := range kindNames {
		if name == s && k != KindUnknown {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Update is one inbound notification from the chat platform. Exactly one
// payload field is populated.
type Update struct {
	// ID is the monotonically increasing sequence id used to advance the
	// transport cursor.
	ID int64

	Message            *Message
	EditedMessage      *Message
	ChannelPost        *Message
	EditedChannelPost  *Message
	CallbackQuery      *CallbackQuery
	InlineQuery        *InlineQuery
	ChosenInlineResult *ChosenInlineResult
	PollAnswer         *PollAnswer
	MyChatMember       *ChatMemberUpdated
	ChatMember         *ChatMemberUpdated
	ChatJoinRequest    *ChatJoinRequest
}

// Kind returns the kind of the first populated payload.
func (u *Update) Kind() UpdateKind {
	switch {
	case u == nil:
		return KindUnknown
	case u.Message != nil:
		return KindMessage
	case u.EditedMessage != nil:
		return KindEditedMessage
	case u.ChannelPost != nil:
		return KindChannelPost
	case u.EditedChannelPost != nil:
		return KindEditedChannelPost
	case u.CallbackQuery != nil:
		return KindCallbackQuery
	case u.InlineQuery != nil:
		return KindInlineQuery
	case u.ChosenInlineResult != nil:
		return KindChosenInlineResult
	case u.PollAnswer != nil:
		return KindPollAnswer
	case u.MyChatMember != nil:
		return KindMyChatMember
	case u.ChatMember != nil:
		return KindChatMember
	case u.ChatJoinRequest != nil:
		return KindChatJoinRequest
	}
	return KindUnknown
}

// Validate checks that exactly one payload variant is populated.
func (u *Update) Validate() error {
	if u == nil {
		return ErrNoPayload
	}
	n := 0
	for _, set := range []bool{
		u.Message != nil, u.EditedMessage != nil, u.ChannelPost != nil,
		u.EditedChannelPost != nil, u.CallbackQuery != nil, u.InlineQuery != nil,
		u.ChosenInlineResult != nil, u.PollAnswer != nil, u.MyChatMember != nil,
		u.ChatMember != nil, u.ChatJoinRequest != nil,
	} {
		if set {
			n++
		}
	}
	switch {
	case n == 0:
		return ErrNoPayload
	case n > 1:
		return fmt.Errorf("update %d carries %d payloads, want 1", u.ID, n)
	}
	return nil
}

// EffectiveMessage returns the message payload for message-like kinds, or
// the message a callback button was attached to.
func (u *Update) EffectiveMessage() *Message {
	switch {
	case u.Message != nil:
		return u.Message
	case u.EditedMessage != nil:
		return u.EditedMessage
	case u.ChannelPost != nil:
		return u.ChannelPost
	case u.EditedChannelPost != nil:
		return u.EditedChannelPost
	case u.CallbackQuery != nil:
		return u.CallbackQuery.Message
	}
	return nil
}

// Sender returns the user that originated the update, if any.
func (u *Update) Sender() *User {
	switch {
	case u.CallbackQuery != nil:
		return &u.CallbackQuery.From
	case u.InlineQuery != nil:
		return &u.InlineQuery.From
	case u.ChosenInlineResult != nil:
		return &u.ChosenInlineResult.From
	case u.PollAnswer != nil:
		return u.PollAnswer.User
	case u.MyChatMember != nil:
		return &u.MyChatMember.From
	case u.ChatMember != nil:
		return &u.ChatMember.From
	case u.ChatJoinRequest != nil:
		return &u.ChatJoinRequest.From
	}
	if m := u.EffectiveMessage(); m != nil {
		return m.From
	}
	return nil
}

// Chat returns the chat the update happened in, if any.
func (u *Update) Chat() *Chat {
	switch {
	case u.MyChatMember != nil:
		return &u.MyChatMember.Chat
	case u.ChatMember != nil:
		return &u.ChatMember.Chat
	case u.ChatJoinRequest != nil:
		return &u.ChatJoinRequest.Chat
	case u.PollAnswer != nil:
		return u.PollAnswer.VoterChat
	}
	if m := u.EffectiveMessage(); m != nil {
		return &m.Chat
	}
	return nil
}

// User is a platform account, human or bot.
type User struct {
	ID        int64
	IsBot     bool
	FirstName string
	LastName  string
	Username  string
}

// Chat is a private chat, group, supergroup or channel.
type Chat struct {
	ID        int64
	Type      string
	Title     string
	Username  string
	FirstName string
	LastName  string
}

// Chat types.
const (
	ChatPrivate    = "private"
	ChatGroup      = "group"
	ChatSupergroup = "supergroup"
	ChatChannel    = "channel"
)

// Message is a chat message. ReplyTo links to the message it answers.
type Message struct {
	ID      int64
	From    *User
	Chat    Chat
	Date    int64
	Text    string
	Caption string
	ReplyTo *Message
}

// CallbackQuery is a press on an inline keyboard button.
type CallbackQuery struct {
	ID      string
	From    User
	Message *Message
	Data    string
}

// InlineQuery is a query typed after the bot's username.
type InlineQuery struct {
	ID    string
	From  User
	Query string
}

// ChosenInlineResult reports which inline result the user picked.
type ChosenInlineResult struct {
	ResultID string
	From     User
	Query    string
}

// PollAnswer is a vote in a non-anonymous poll.
type PollAnswer struct {
	PollID    string
	User      *User
	VoterChat *Chat
	OptionIDs []int
}

// ChatMemberUpdated reports a membership change.
type ChatMemberUpdated struct {
	Chat Chat
	From User
	Date int64
}

// ChatJoinRequest is a request to join a chat.
type ChatJoinRequest struct {
	Chat Chat
	From User
	Date int64
}
