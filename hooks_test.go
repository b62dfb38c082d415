package botdispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type contextKey string

type HooksSuite struct {
	suite.Suite
	c *Collection
}

func TestHooksSuite(t *testing.T) {
	suite.Run(t, new(HooksSuite))
}

func (s *HooksSuite) SetupTest() {
	s.c = NewCollection()
}

func (s *HooksSuite) register(name string, h HandlerFunc, fs ...Filter[*Update]) {
	if len(fs) == 0 {
		fs = []Filter[*Update]{Any[*Update]()}
	}
	s.Require().NoError(s.c.Register(name, KindMessage, Static(h), WithFilters(fs...)))
}

func (s *HooksSuite) TestOnUpdateContextReachesHandler() {
	var handlerCtx context.Context
	s.register("h", func(ctx context.Context, _ *HandlerContext) Result {
		handlerCtx = ctx
		return Ok()
	})

	r := New(s.c,
		WithOnUpdate(func(ctx context.Context, u *Update) context.Context {
			return context.WithValue(ctx, contextKey("first"), u.ID)
		}),
		WithOnUpdate(func(ctx context.Context, _ *Update) context.Context {
			return context.WithValue(ctx, contextKey("second"), ctx.Value(contextKey("first")))
		}),
	)

	s.Require().NoError(r.Process(context.Background(), textUpdate(42, 10, 20, "x")))
	s.Require().NotNil(handlerCtx)
	s.Assert().Equal(int64(42), handlerCtx.Value(contextKey("first")))
	s.Assert().Equal(int64(42), handlerCtx.Value(contextKey("second")), "hooks chain their contexts")
}

func (s *HooksSuite) TestHookOrderOnSuccess() {
	var order []string
	s.register("h", func(context.Context, *HandlerContext) Result {
		order = append(order, "handler")
		return Ok()
	})

	r := New(s.c,
		WithOnMatch(func(_ context.Context, _ *Update, d *Descriptor) {
			order = append(order, "match:"+d.Name())
		}),
		WithOnSuccess(func(_ context.Context, _ *Update, d *Descriptor, res Result, dur time.Duration) {
			order = append(order, "success:"+res.String())
			s.Assert().GreaterOrEqual(dur, time.Duration(0))
		}),
		WithOnFailure(func(context.Context, *Update, *Descriptor, error, time.Duration) {
			order = append(order, "failure")
		}),
	)

	s.Require().NoError(r.Process(context.Background(), textUpdate(1, 10, 20, "x")))
	s.Assert().Equal([]string{"match:h", "handler", "success:ok"}, order)
}

func (s *HooksSuite) TestOnSuccessSeesEveryHandlerOfTheChain() {
	var succeeded []string
	s.register("first", func(context.Context, *HandlerContext) Result { return Next() })
	s.register("second", func(context.Context, *HandlerContext) Result { return Ok() })

	r := New(s.c, WithOnSuccess(func(_ context.Context, _ *Update, d *Descriptor, _ Result, _ time.Duration) {
		succeeded = append(succeeded, d.Name())
	}))

	s.Require().NoError(r.Process(context.Background(), textUpdate(1, 10, 20, "x")))
	s.Assert().Equal([]string{"first", "second"}, succeeded)
}

func (s *HooksSuite) TestOnFailureReceivesHandlerError() {
	cause := errors.New("db down")
	s.register("failing", func(context.Context, *HandlerContext) Result { return Fault(cause) })

	var got error
	var desc *Descriptor
	r := New(s.c, WithOnFailure(func(_ context.Context, _ *Update, d *Descriptor, err error, _ time.Duration) {
		got = err
		desc = d
	}))

	err := r.Process(context.Background(), textUpdate(9, 10, 20, "x"))

	s.Assert().ErrorIs(err, cause)
	s.Require().NotNil(desc)
	s.Assert().Equal("failing", desc.Name())

	var herr *HandlerError
	s.Require().ErrorAs(got, &herr)
	s.Assert().Equal("failing", herr.Handler)
	s.Assert().Equal(int64(9), herr.UpdateID)
	s.Assert().ErrorIs(herr, cause)
}

func (s *HooksSuite) TestOnFailureForFaultWithoutCause() {
	s.register("bare", func(context.Context, *HandlerContext) Result { return Fault(nil) })

	var got error
	r := New(s.c, WithOnFailure(func(_ context.Context, _ *Update, _ *Descriptor, err error, _ time.Duration) {
		got = err
	}))

	s.Assert().Error(r.Process(context.Background(), textUpdate(1, 10, 20, "x")))
	s.Assert().ErrorContains(got, "handler reported a fault")
}

func (s *HooksSuite) TestOnFilterFault() {
	s.register("panicky", func(context.Context, *HandlerContext) Result { return Ok() },
		NamedFunc("explodes", func(*MatchContext[*Update]) bool { panic("bad filter") }),
	)
	s.register("fallback", func(context.Context, *HandlerContext) Result { return Ok() })

	var faults []*FilterFault
	r := New(s.c, WithOnFilterFault(func(_ *Update, f *FilterFault) {
		faults = append(faults, f)
	}))

	s.Require().NoError(r.Process(context.Background(), textUpdate(1, 10, 20, "x")))
	s.Require().Len(faults, 1)
	s.Assert().Equal("explodes", faults[0].Filter)
	s.Assert().Equal("panicky", faults[0].Handler)
}

func (s *HooksSuite) TestOnNoHandler() {
	s.register("hello", func(context.Context, *HandlerContext) Result { return Ok() }, textIs("hello"))

	called := 0
	r := New(s.c, WithOnNoHandler(func(context.Context, *Update) { called++ }))

	s.Require().NoError(r.Process(context.Background(), textUpdate(1, 10, 20, "hello")))
	s.Assert().Equal(0, called)

	s.Require().NoError(r.Process(context.Background(), textUpdate(2, 10, 20, "other")))
	s.Assert().Equal(1, called)
}

func (s *HooksSuite) TestNoMatchHookForAwaitDeliveries() {
	s.register("ask", func(ctx context.Context, hc *HandlerContext) Result {
		if _, err := hc.AwaitMessage(ctx); err != nil {
			return Fault(err)
		}
		return Ok()
	}, textIs("/ask"))

	var matched []string
	r := New(s.c, WithExclusiveAwaiting(true), WithOnMatch(func(_ context.Context, _ *Update, d *Descriptor) {
		matched = append(matched, d.Name())
	}))

	r.Dispatch(context.Background(), textUpdate(1, 10, 20, "/ask"))
	s.Require().Eventually(func() bool { return r.Awaiting().Len() == 1 }, time.Second, time.Millisecond)
	s.Require().NoError(r.Process(context.Background(), textUpdate(2, 10, 20, "answer")))
	r.Wait()

	s.Assert().Equal([]string{"ask"}, matched)
}
