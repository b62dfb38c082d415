package filters

import (
	"slices"
	"strings"

	bd "github.com/bjaus/botdispatch"
)

// CommandInfo is what Command publishes for a "/name@bot args" message.
type CommandInfo struct {
	// Name is lower-cased, without the slash or mention.
	Name string

	// Mention is the bot username after '@', if any.
	Mention string

	// Args is the trimmed rest of the text.
	Args string
}

// ParseCommand splits a bot command. It reports false when text does not
// start with a slash or the command name is empty.
func ParseCommand(text string) (CommandInfo, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return CommandInfo{}, false
	}

	head, args, _ := strings.Cut(text[1:], " ")
	name, mention, _ := strings.Cut(head, "@")
	if name == "" {
		return CommandInfo{}, false
	}
	return CommandInfo{
		Name:    strings.ToLower(name),
		Mention: mention,
		Args:    strings.TrimSpace(args),
	}, true
}

// Command passes messages holding a bot command and publishes its
// CommandInfo. With names, only those commands pass. A command addressed to
// another bot ("/start@other_bot") never passes.
func Command(names ...string) bd.Filter[*bd.Message] {
	allowed := lower(names)
	return bd.NamedFunc(CommandKind, func(mc *bd.MatchContext[*bd.Message]) bool {
		cmd, ok := ParseCommand(mc.Value.Text)
		if !ok {
			return false
		}
		if cmd.Mention != "" && !strings.EqualFold(cmd.Mention, mc.Bot().Username) {
			return false
		}
		if len(allowed) > 0 && !slices.Contains(allowed, cmd.Name) {
			return false
		}
		mc.Publish(cmd)
		return true
	})
}

// CommandIn passes when the command published by an earlier Command filter
// in the same pipeline is one of names.
//
// Example:
//
//	botdispatch.OnMessage(botdispatch.And(filters.Command(), filters.CommandIn(adminCommands...)))
func CommandIn(names ...string) bd.Filter[*bd.Message] {
	allowed := lower(names)
	return bd.NamedFunc("command_in", func(mc *bd.MatchContext[*bd.Message]) bool {
		cmd, ok := LastCommand(mc.Completed())
		return ok && slices.Contains(allowed, cmd.Name)
	})
}

// LastCommand returns what the most recent Command filter published.
func LastCommand(c *bd.CompletedFilters) (CommandInfo, bool) {
	return bd.LastValue[CommandInfo](c, CommandKind)
}

func lower(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(strings.TrimPrefix(s, "/"))
	}
	return out
}
