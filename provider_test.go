package botdispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerProviderResolve(t *testing.T) {
	newProvider := func(t *testing.T, register func(c *Collection)) *HandlerProvider {
		t.Helper()
		c := NewCollection()
		register(c)
		return NewHandlerProvider(c, BotInfo{Username: "bot"}, nil)
	}

	t.Run("yields matches in key order", func(t *testing.T) {
		p := newProvider(t, func(c *Collection) {
			require.NoError(t, c.Register("low", KindMessage, okHandler(), WithFilters(Any[*Update]()), WithPriority(5)))
			require.NoError(t, c.Register("miss", KindMessage, okHandler(), WithFilters(textIs("nope"))))
			require.NoError(t, c.Register("high", KindMessage, okHandler(), WithFilters(textIs("hello"))))
		})

		got := names(collect(p.Resolve(textUpdate(1, 10, 20, "hello"))))
		assert.Equal(t, []string{"high", "low"}, got)
	})

	t.Run("partitions by kind", func(t *testing.T) {
		p := newProvider(t, func(c *Collection) {
			require.NoError(t, c.Register("msg", KindMessage, okHandler(), WithFilters(Any[*Update]())))
			require.NoError(t, c.Register("cb", KindCallbackQuery, okHandler(), WithFilters(Any[*Update]())))
		})

		assert.Equal(t, []string{"cb"}, names(collect(p.Resolve(callbackUpdate(1, 2, "x")))))
		assert.Empty(t, collect(p.Resolve(&Update{PollAnswer: &PollAnswer{PollID: "p"}})))
	})

	t.Run("chosen results only match their own kind", func(t *testing.T) {
		p := newProvider(t, func(c *Collection) {
			require.NoError(t, c.Register("inline", KindInlineQuery, okHandler(), WithFilters(Any[*Update]())))
			require.NoError(t, c.Register("chosen", KindChosenInlineResult, okHandler(), WithFilters(Any[*Update]())))
		})

		chosen := &Update{ChosenInlineResult: &ChosenInlineResult{ResultID: "r"}}
		assert.Equal(t, []string{"chosen"}, names(collect(p.Resolve(chosen))))

		inline := &Update{InlineQuery: &InlineQuery{Query: "q"}}
		assert.Equal(t, []string{"inline"}, names(collect(p.Resolve(inline))))
	})

	t.Run("evaluates lazily", func(t *testing.T) {
		evaluated := 0
		counting := NamedFunc("counting", func(*MatchContext[*Update]) bool {
			evaluated++
			return true
		})
		p := newProvider(t, func(c *Collection) {
			for _, name := range []string{"a", "b", "c"} {
				require.NoError(t, c.Register(name, KindMessage, okHandler(), WithFilters(counting)))
			}
		})

		seq := p.Resolve(textUpdate(1, 10, 20, "hi"))
		assert.Equal(t, 0, evaluated, "nothing runs before iteration")

		for mh := range seq {
			assert.Equal(t, "a", mh.Descriptor.Name())
			break
		}
		assert.Equal(t, 1, evaluated)
	})

	t.Run("gates run shape then state then filters", func(t *testing.T) {
		var order []string
		step := func(name string, ok bool) Filter[*Update] {
			return NamedFunc(name, func(*MatchContext[*Update]) bool {
				order = append(order, name)
				return ok
			})
		}

		p := newProvider(t, func(c *Collection) {
			require.NoError(t, c.Register("gated", KindMessage, okHandler(),
				WithFilters(step("filter", true)),
				WithStateGate(step("state", true)),
				WithShape(step("shape", true)),
			))
			require.NoError(t, c.Register("stops", KindMessage, okHandler(),
				WithFilters(step("never", true)),
				WithShape(step("bad shape", false)),
			))
		})

		mhs := collect(p.Resolve(textUpdate(1, 10, 20, "hi")))
		assert.Equal(t, []string{"gated"}, names(mhs))
		assert.Equal(t, []string{"shape", "state", "filter", "bad shape"}, order)
		assert.Equal(t, []string{"shape", "state", "filter"}, kinds(mhs[0].Completed))
	})

	t.Run("carries data and completions to the match", func(t *testing.T) {
		p := newProvider(t, func(c *Collection) {
			require.NoError(t, c.Register("d", KindMessage, okHandler(), WithFilters(
				publishing("cmd", "start"),
				NamedFunc("data", func(mc *MatchContext[*Update]) bool {
					mc.Data()["seen"] = mc.Bot().Username
					return true
				}),
			)))
		})

		u := textUpdate(1, 10, 20, "hi")
		mhs := collect(p.Resolve(u))
		require.Len(t, mhs, 1)

		mh := mhs[0]
		assert.Same(t, u, mh.Update)
		assert.Equal(t, "bot", mh.Data["seen"])
		v, ok := LastValue[string](mh.Completed, "cmd")
		require.True(t, ok)
		assert.Equal(t, "start", v)
		require.NotNil(t, mh.Lifetime)
		assert.False(t, mh.Lifetime.Ended())
	})

	t.Run("freezes the collection", func(t *testing.T) {
		c := NewCollection()
		NewHandlerProvider(c, BotInfo{}, nil)
		assert.ErrorIs(t, c.Register("late", KindMessage, okHandler(), WithFilters(Any[*Update]())), ErrFrozen)
	})
}

func TestHandlerProviderFaults(t *testing.T) {
	var reported []*FilterFault
	report := func(_ *Update, f *FilterFault) { reported = append(reported, f) }

	c := NewCollection()
	require.NoError(t, c.Register("panicky", KindMessage, okHandler(),
		WithFilters(NamedFunc("boom", func(*MatchContext[*Update]) bool { panic("filter") })),
	))
	require.NoError(t, c.Register("broken", KindMessage,
		Fresh(func() Handler { panic("constructor") }),
		WithFilters(Any[*Update]()),
	))
	require.NoError(t, c.Register("fine", KindMessage, okHandler(), WithFilters(Any[*Update]())))

	p := NewHandlerProvider(c, BotInfo{}, report)
	got := names(collect(p.Resolve(textUpdate(1, 10, 20, "hi"))))

	assert.Equal(t, []string{"fine"}, got, "faulting descriptors are skipped")
	require.Len(t, reported, 2)
	assert.Equal(t, "boom", reported[0].Filter)
	assert.Equal(t, "panicky", reported[0].Handler)
	assert.Equal(t, "instantiate", reported[1].Filter)
	assert.Equal(t, "broken", reported[1].Handler)
	assert.ErrorContains(t, reported[1], "constructor")
}
