package botdispatch

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Executor runs one matched handler and reports how the chain continues.
type Executor func(ctx context.Context, mh *MatchedHandler) Result

// Pool runs matched handlers under one global concurrency limit shared by
// every update in flight. The handlers of a single update still run one at
// a time, in order.
type Pool struct {
	sem     *semaphore.Weighted
	limit   int
	running atomic.Int64
	waiting atomic.Int64
	wg      sync.WaitGroup
}

// NewPool creates a pool allowing limit concurrent handlers. Limits below
// one are raised to one.
func NewPool(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(limit)), limit: limit}
}

// Limit returns the concurrency limit.
func (p *Pool) Limit() int { return p.limit }

// Running returns the number of handlers executing right now.
func (p *Pool) Running() int { return int(p.running.Load()) }

// Waiting returns the number of handlers blocked on the limit.
func (p *Pool) Waiting() int { return int(p.waiting.Load()) }

// Go runs fn on a new goroutine tracked by Wait. The router uses it to
// process each update off the receive loop.
func (p *Pool) Go(fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn()
	}()
}

// Wait blocks until every function started with Go has returned.
func (p *Pool) Wait() { p.wg.Wait() }

// Run consumes seq and executes its handlers in order until one returns Ok
// or Fault, the sequence ends, or ctx is done. After NextAs, entries that
// are not the requested target are discarded unexecuted. It returns the
// last result and the number of handlers executed.
func (p *Pool) Run(ctx context.Context, seq iter.Seq[*MatchedHandler], exec Executor) (Result, int) {
	var (
		last = Ok()
		ran  int
		skip func(*MatchedHandler) bool
	)

	for mh := range seq {
		if skip != nil && !skip(mh) {
			mh.Lifetime.end()
			continue
		}
		skip = nil

		res, err := p.execute(ctx, mh, exec)
		if err != nil {
			return Fault(err), ran
		}
		ran++
		last = res

		switch res.kind {
		case resultNext:
			continue
		case resultNextAs:
			skip = res.target
			continue
		}
		return res, ran
	}
	return last, ran
}

// execute acquires a slot, runs mh and releases the slot. Awaiter
// deliveries never block and skip the limit: the handlers they resume
// already hold a slot.
func (p *Pool) execute(ctx context.Context, mh *MatchedHandler, exec Executor) (res Result, err error) {
	defer mh.Lifetime.end()

	if !mh.Descriptor.Transient() {
		p.waiting.Add(1)
		err = p.sem.Acquire(ctx, 1)
		p.waiting.Add(-1)
		if err != nil {
			return Result{}, err
		}
		defer p.sem.Release(1)
	}

	p.running.Add(1)
	defer p.running.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			res = Fault(&HandlerError{Handler: mh.Descriptor.Name(), UpdateID: mh.Update.ID, Err: panicError(r)})
		}
	}()

	return exec(ctx, mh), nil
}
