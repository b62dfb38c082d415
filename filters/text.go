// Package filters provides the leaf predicates bots are usually routed on:
// message text, commands, senders, chats and callback data.
//
// Leaf filters work on the payload they are about. Lift them onto the
// update with the projections of the botdispatch package:
//
//	botdispatch.OnMessage(filters.Command("start"))
//	botdispatch.OnCallback(filters.CallbackData("vote:"))
//	botdispatch.OnUpdateChat(filters.ChatType(botdispatch.ChatPrivate))
package filters

import (
	"regexp"
	"strings"

	bd "github.com/bjaus/botdispatch"
)

// History kinds recorded by the filters of this package.
const (
	TextKind     = "text"
	RegexKind    = "regex"
	HasTextKind  = "has_text"
	CommandKind  = "command"
	CallbackKind = "callback_data"
)

// content returns the text of a message, or its caption for media.
func content(m *bd.Message) string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// Text passes messages whose text equals s.
func Text(s string) bd.Filter[*bd.Message] {
	return bd.NamedFunc(TextKind, func(mc *bd.MatchContext[*bd.Message]) bool {
		return content(mc.Value) == s
	})
}

// TextContains passes messages whose text contains sub, ignoring case.
func TextContains(sub string) bd.Filter[*bd.Message] {
	sub = strings.ToLower(sub)
	return bd.NamedFunc("text_contains", func(mc *bd.MatchContext[*bd.Message]) bool {
		return strings.Contains(strings.ToLower(content(mc.Value)), sub)
	})
}

// TextPrefix passes messages whose text starts with prefix.
func TextPrefix(prefix string) bd.Filter[*bd.Message] {
	return bd.NamedFunc("text_prefix", func(mc *bd.MatchContext[*bd.Message]) bool {
		return strings.HasPrefix(content(mc.Value), prefix)
	})
}

// Regex passes messages whose text matches re and publishes the submatches
// ([]string, whole match first).
func Regex(re *regexp.Regexp) bd.Filter[*bd.Message] {
	return bd.NamedFunc(RegexKind, func(mc *bd.MatchContext[*bd.Message]) bool {
		m := re.FindStringSubmatch(content(mc.Value))
		if m == nil {
			return false
		}
		mc.Publish(m)
		return true
	})
}

// HasText is a shape gate: the update carries a message with text or a
// caption.
func HasText() bd.Filter[*bd.Update] {
	return bd.NamedFunc(HasTextKind, func(mc *bd.MatchContext[*bd.Update]) bool {
		m, ok := bd.MessagePayload(mc.Value)
		return ok && content(m) != ""
	})
}

// Submatches returns what the most recent Regex published.
func Submatches(c *bd.CompletedFilters) ([]string, bool) {
	return bd.LastValue[[]string](c, RegexKind)
}
