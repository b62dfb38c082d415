package filters

import (
	"fmt"
	"regexp"
	"strconv"

	bd "github.com/bjaus/botdispatch"
)

// Builders returns the filters of this package under the names handler
// tables refer to them by. Every builder yields a filter over the update.
func Builders() map[string]bd.FilterBuilder {
	return map[string]bd.FilterBuilder{
		"any": func(args ...string) (bd.Filter[*bd.Update], error) {
			return bd.Any[*bd.Update](), nil
		},
		"has_text": func(args ...string) (bd.Filter[*bd.Update], error) {
			return HasText(), nil
		},
		"text": oneArg(func(s string) (bd.Filter[*bd.Update], error) {
			return bd.OnMessage(Text(s)), nil
		}),
		"text_contains": oneArg(func(s string) (bd.Filter[*bd.Update], error) {
			return bd.OnMessage(TextContains(s)), nil
		}),
		"regex": oneArg(func(s string) (bd.Filter[*bd.Update], error) {
			re, err := regexp.Compile(s)
			if err != nil {
				return nil, err
			}
			return bd.OnMessage(Regex(re)), nil
		}),
		"command": func(args ...string) (bd.Filter[*bd.Update], error) {
			return bd.OnMessage(Command(args...)), nil
		},
		"not_command": func(args ...string) (bd.Filter[*bd.Update], error) {
			return bd.OnMessage(bd.Not(Command(args...))), nil
		},
		"chat_id": func(args ...string) (bd.Filter[*bd.Update], error) {
			ids, err := parseIDs(args)
			if err != nil {
				return nil, err
			}
			return bd.OnUpdateChat(ChatID(ids...)), nil
		},
		"chat_type": func(args ...string) (bd.Filter[*bd.Update], error) {
			if len(args) == 0 {
				return nil, fmt.Errorf("want at least one chat type")
			}
			return bd.OnUpdateChat(ChatType(args...)), nil
		},
		"from_user": func(args ...string) (bd.Filter[*bd.Update], error) {
			ids, err := parseIDs(args)
			if err != nil {
				return nil, err
			}
			return bd.OnUpdateSender(FromUser(ids...)), nil
		},
		"callback_data": oneArg(func(s string) (bd.Filter[*bd.Update], error) {
			return bd.OnCallback(CallbackData(s)), nil
		}),
		"callback_json": func(args ...string) (bd.Filter[*bd.Update], error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("want path and value, got %d args", len(args))
			}
			return bd.OnCallback(CallbackJSON(args[0], args[1])), nil
		},
	}
}

func oneArg(fn func(string) (bd.Filter[*bd.Update], error)) bd.FilterBuilder {
	return func(args ...string) (bd.Filter[*bd.Update], error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("want 1 arg, got %d", len(args))
		}
		return fn(args[0])
	}
}

func parseIDs(args []string) ([]int64, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("want at least one id")
	}
	ids := make([]int64, len(args))
	for i, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("id %q: %w", a, err)
		}
		ids[i] = id
	}
	return ids, nil
}
