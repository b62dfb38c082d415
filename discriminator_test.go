package botdispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inspect(t *testing.T, raw string) View {
	t.Helper()
	v, err := JSONInspector().Inspect([]byte(raw))
	require.NoError(t, err)
	return v
}

func TestDiscriminators(t *testing.T) {
	message := `{"update_id": 10, "message": {"message_id": 1, "text": "hi", "chat": {"id": 5, "type": "group"}}}`
	callback := `{"update_id": 12, "callback_query": {"id": "q1", "data": "vote:yes", "message": {"chat": {"id": -7}}}}`
	poll := `{"update_id": 13, "poll_answer": {"poll_id": "p", "option_ids": [0]}}`

	tests := map[string]struct {
		d    Discriminator
		raw  string
		want bool
	}{
		"fields present":         {HasFields("update_id", "message"), message, true},
		"nested fields":          {HasFields("message.chat.id", "message.text"), message, true},
		"field missing":          {HasFields("message", "callback_query"), message, false},
		"no fields":              {HasFields(), message, true},
		"field equals":           {FieldEquals("message.chat.type", "group"), message, true},
		"field differs":          {FieldEquals("message.chat.type", "private"), message, false},
		"field absent":           {FieldEquals("message.caption", "x"), message, false},
		"field not a string":     {FieldEquals("update_id", "10"), message, false},
		"field in":               {FieldIn("message.chat.type", "group", "supergroup"), message, true},
		"all of":                 {AllOf(HasFields("callback_query"), FieldEquals("callback_query.data", "vote:yes")), callback, true},
		"all of with a miss":     {AllOf(HasFields("callback_query"), FieldEquals("callback_query.data", "vote:no")), callback, false},
		"empty all of":           {AllOf(), callback, true},
		"any of":                 {AnyOf(HasFields("message"), HasFields("callback_query")), callback, true},
		"any of without a match": {AnyOf(HasFields("message"), FieldEquals("callback_query.data", "x")), callback, false},
		"empty any of":           {AnyOf(), callback, false},
		"kind in":                {KindIn(KindMessage, KindCallbackQuery), callback, true},
		"kind not in":            {KindIn(KindMessage), poll, false},
		"chat in":                {ChatIn(5), message, true},
		"chat of a callback":     {ChatIn(-7), callback, true},
		"other chat":             {ChatIn(6), message, false},
		"no chat":                {ChatIn(5), poll, false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.Match(inspect(t, tt.raw)))
		})
	}
}

func TestKindRulesFollowUpdateKind(t *testing.T) {
	// Every rule must classify the same way Update.Kind does, in the same
	// order, so the webhook and the router never disagree.
	for i, rule := range kindRules {
		if i > 0 {
			assert.Less(t, kindRules[i-1].kind, rule.kind, "rule %d (%s) out of order", i, rule.kind)
		}
		v := inspect(t, `{"update_id": 1, "`+rule.kind.String()+`": {}}`)
		assert.True(t, rule.disc.Match(v), "rule for %s does not match its own field", rule.kind)
		assert.Equal(t, rule.kind, rawKind(v))
	}
}
