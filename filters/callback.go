package filters

import (
	"strings"

	bd "github.com/bjaus/botdispatch"
)

// CallbackData passes callback queries whose data starts with prefix and
// publishes the rest of the data.
//
// Example:
//
//	// button data "vote:42"
//	botdispatch.OnCallback(filters.CallbackData("vote:"))
//	id, _ := filters.CallbackRest(hc.Completed) // "42"
func CallbackData(prefix string) bd.Filter[*bd.CallbackQuery] {
	return bd.NamedFunc(CallbackKind, func(mc *bd.MatchContext[*bd.CallbackQuery]) bool {
		rest, ok := strings.CutPrefix(mc.Value.Data, prefix)
		if !ok {
			return false
		}
		mc.Publish(rest)
		return true
	})
}

// CallbackRest returns what the most recent CallbackData published.
func CallbackRest(c *bd.CompletedFilters) (string, bool) {
	return bd.LastValue[string](c, CallbackKind)
}

// CallbackJSON passes callback queries whose data is a JSON document with
// value at path. The path uses gjson syntax, e.g. "action" or "item.id".
// Strings compare by content, anything else by its raw JSON text, so
// CallbackJSON("item.id", "7") matches {"item":{"id":7}}.
func CallbackJSON(path, value string) bd.Filter[*bd.CallbackQuery] {
	return bd.NamedFunc("callback_json", func(mc *bd.MatchContext[*bd.CallbackQuery]) bool {
		view, err := bd.JSONInspector().Inspect([]byte(mc.Value.Data))
		if err != nil {
			return false
		}
		got, ok := view.GetString(path)
		if !ok {
			raw, found := view.GetBytes(path)
			if !found {
				return false
			}
			got = string(raw)
		}
		if got != value {
			return false
		}
		mc.Publish(got)
		return true
	})
}
