package botdispatch

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepA struct{ rec *recorder }
type stepB struct{ rec *recorder }
type stepC struct{ rec *recorder }

func (s *stepA) Handle(context.Context, *HandlerContext) Result {
	s.rec.add("a")
	return NextAs[*stepC]()
}

func (s *stepB) Handle(context.Context, *HandlerContext) Result {
	s.rec.add("b")
	return Ok()
}

func (s *stepC) Handle(context.Context, *HandlerContext) Result {
	s.rec.add("c")
	return Ok()
}

func matched(name string, h Handler) *MatchedHandler {
	return &MatchedHandler{
		Descriptor: NewDescriptor(name, KindMessage, Static(h)),
		Handler:    h,
		Update:     textUpdate(1, 10, 20, ""),
		Completed:  &CompletedFilters{},
		Data:       Data{},
		Lifetime:   newLifetime(),
	}
}

func run(ctx context.Context, mh *MatchedHandler) Result {
	return mh.Handler.Handle(ctx, &HandlerContext{Update: mh.Update, Descriptor: mh.Descriptor})
}

func TestPoolChain(t *testing.T) {
	tests := map[string]struct {
		results []Result
		want    []string
		ran     int
		failed  bool
	}{
		"ok stops the chain": {
			results: []Result{Ok(), Ok()},
			want:    []string{"h0"},
			ran:     1,
		},
		"next continues": {
			results: []Result{Next(), Next(), Ok()},
			want:    []string{"h0", "h1", "h2"},
			ran:     3,
		},
		"next off the end": {
			results: []Result{Next(), Next()},
			want:    []string{"h0", "h1"},
			ran:     2,
		},
		"fault stops the chain": {
			results: []Result{Next(), Fault(errors.New("boom")), Ok()},
			want:    []string{"h0", "h1"},
			ran:     2,
			failed:  true,
		},
		"named jump": {
			results: []Result{NextNamed("h2"), Ok(), Ok()},
			want:    []string{"h0", "h2"},
			ran:     2,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec := &recorder{}
			var mhs []*MatchedHandler
			for i, res := range tt.results {
				n := "h" + string(rune('0'+i))
				mhs = append(mhs, matched(n, recording(rec, n, res)))
			}

			res, ran := NewPool(4).Run(context.Background(), slices.Values(mhs), run)
			assert.Equal(t, tt.want, rec.list())
			assert.Equal(t, tt.ran, ran)
			assert.Equal(t, tt.failed, res.Failed())
		})
	}
}

func TestPoolNextAs(t *testing.T) {
	rec := &recorder{}
	skipped := matched("b", &stepB{rec})
	mhs := []*MatchedHandler{
		matched("a", &stepA{rec}),
		skipped,
		matched("c", &stepC{rec}),
	}

	res, ran := NewPool(1).Run(context.Background(), slices.Values(mhs), run)

	assert.False(t, res.Failed())
	assert.Equal(t, 2, ran)
	assert.Equal(t, []string{"a", "c"}, rec.list())
	assert.True(t, skipped.Lifetime.Ended(), "skipped handlers are ended too")
}

func TestPoolNextAsWithoutTarget(t *testing.T) {
	rec := &recorder{}
	mhs := []*MatchedHandler{
		matched("a", &stepA{rec}),
		matched("b", &stepB{rec}),
	}

	res, ran := NewPool(1).Run(context.Background(), slices.Values(mhs), run)
	assert.Equal(t, 1, ran)
	assert.True(t, res.Continues())
	assert.Equal(t, []string{"a"}, rec.list())
}

func TestPoolEmptySequence(t *testing.T) {
	res, ran := NewPool(1).Run(context.Background(), slices.Values([]*MatchedHandler(nil)), run)
	assert.Equal(t, 0, ran)
	assert.False(t, res.Failed())
}

func TestPoolPanic(t *testing.T) {
	mh := matched("panics", HandlerFunc(func(context.Context, *HandlerContext) Result { panic("oops") }))

	res, ran := NewPool(1).Run(context.Background(), slices.Values([]*MatchedHandler{mh}), run)

	require.True(t, res.Failed())
	assert.Equal(t, 1, ran)
	var herr *HandlerError
	require.ErrorAs(t, res.Err(), &herr)
	assert.Equal(t, "panics", herr.Handler)
	assert.True(t, mh.Lifetime.Ended())
}

func TestPoolLimit(t *testing.T) {
	p := NewPool(2)
	release := make(chan struct{})
	blocker := HandlerFunc(func(context.Context, *HandlerContext) Result {
		<-release
		return Ok()
	})

	done := make(chan struct{}, 3)
	for i := range 3 {
		mh := matched("block"+string(rune('0'+i)), blocker)
		go func() {
			p.Run(context.Background(), slices.Values([]*MatchedHandler{mh}), run)
			done <- struct{}{}
		}()
	}

	require.Eventually(t, func() bool {
		return p.Running() == 2 && p.Waiting() == 1
	}, time.Second, time.Millisecond)

	close(release)
	for range 3 {
		<-done
	}
	assert.Equal(t, 0, p.Running())
	assert.Equal(t, 0, p.Waiting())
}

func TestPoolTransientSkipsLimit(t *testing.T) {
	p := NewPool(1)
	release := make(chan struct{})
	defer close(release)

	held := matched("held", HandlerFunc(func(context.Context, *HandlerContext) Result {
		<-release
		return Ok()
	}))
	go p.Run(context.Background(), slices.Values([]*MatchedHandler{held}), run)
	require.Eventually(t, func() bool { return p.Running() == 1 }, time.Second, time.Millisecond)

	delivery := matched("await", awaitDelivery{})
	delivery.Descriptor.awaiter = &awaiter{}

	res, ran := p.Run(context.Background(), slices.Values([]*MatchedHandler{delivery}), run)
	assert.Equal(t, 1, ran)
	assert.True(t, res.Continues())
}

func TestPoolCancelledAcquire(t *testing.T) {
	p := NewPool(1)
	release := make(chan struct{})
	defer close(release)

	held := matched("held", HandlerFunc(func(context.Context, *HandlerContext) Result {
		<-release
		return Ok()
	}))
	go p.Run(context.Background(), slices.Values([]*MatchedHandler{held}), run)
	require.Eventually(t, func() bool { return p.Running() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mh := matched("starved", okHandlerFunc())
	res, ran := p.Run(ctx, slices.Values([]*MatchedHandler{mh}), run)

	assert.Equal(t, 0, ran)
	require.True(t, res.Failed())
	assert.ErrorIs(t, res.Err(), context.Canceled)
	assert.True(t, mh.Lifetime.Ended())
}

func TestPoolGoWait(t *testing.T) {
	p := NewPool(1)
	rec := &recorder{}
	for i := range 5 {
		p.Go(func() { rec.add(string(rune('0' + i))) })
	}
	p.Wait()
	assert.Len(t, rec.list(), 5)
}

func TestNewPoolClampsLimit(t *testing.T) {
	assert.Equal(t, 1, NewPool(0).Limit())
	assert.Equal(t, 1, NewPool(-3).Limit())
	assert.Equal(t, 8, NewPool(8).Limit())
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "ok", Ok().String())
	assert.Equal(t, "next", Next().String())
	assert.Equal(t, "fault(x)", Fault(errors.New("x")).String())
	assert.Equal(t, "next(*botdispatch.stepC)", NextAs[*stepC]().String())
	assert.Equal(t, "next(h2)", NextNamed("h2").String())
}

func okHandlerFunc() Handler {
	return HandlerFunc(func(context.Context, *HandlerContext) Result { return Ok() })
}
