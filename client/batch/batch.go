// Package batch runs a labeled set of requests as one unit and reports
// when every member has completed.
//
//	b := batch.Submit(c, map[string]*http.Request{
//		"profile": profileReq,
//		"avatar":  avatarReq,
//	}, func(results map[string]batch.Result) {
//		...
//	})
//	b.Resume()
//
// Members are created with startManually set, so nothing is sent until
// [Task.Resume].
package batch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"sync"

	"github.com/adamwoolhether/httptask/client"
	"github.com/adamwoolhether/httptask/request"
)

// Creator creates client Tasks. *client.Client satisfies it.
type Creator interface {
	CreateTask(req *http.Request, startManually bool, onComplete client.CompletionFunc) *client.Task
}

// Result is the outcome of one member. Exactly one field is non-nil.
type Result struct {
	Response *client.Response
	Err      error
}

// Task joins the completions of its members.
type Task struct {
	onAll func(map[string]Result)
	total int
	done  chan struct{}

	mu      sync.Mutex
	tasks   map[string]*client.Task
	results map[string]Result
	fired   bool
	final   map[string]Result
}

// Submit creates one Task per entry of reqs. onAll runs once, after every
// member has completed, with the results keyed by label.
//
// An empty reqs fires onAll immediately with an empty map.
func Submit(c Creator, reqs map[string]*http.Request, onAll func(map[string]Result)) *Task {
	b := &Task{
		onAll:   onAll,
		total:   len(reqs),
		done:    make(chan struct{}),
		tasks:   make(map[string]*client.Task, len(reqs)),
		results: make(map[string]Result, len(reqs)),
	}

	if b.total == 0 {
		b.mu.Lock()
		b.fired = true
		b.final = map[string]Result{}
		b.mu.Unlock()
		b.notify(b.final)
		return b
	}

	for id, req := range reqs {
		t := c.CreateTask(req, true, func(resp *client.Response, err error) {
			b.record(id, Result{Response: resp, Err: err})
		})

		b.mu.Lock()
		if !b.fired {
			b.tasks[id] = t
		}
		b.mu.Unlock()
	}

	return b
}

// SubmitRequests builds every request with ctx and submits them.
func SubmitRequests(ctx context.Context, c Creator, reqs map[string]*request.Request, onAll func(map[string]Result)) *Task {
	built := make(map[string]*http.Request, len(reqs))
	for id, r := range reqs {
		built[id] = r.Build(ctx)
	}
	return Submit(c, built, onAll)
}

// record stores one member result and, for the last one, releases the
// members and notifies.
func (b *Task) record(id string, res Result) {
	b.mu.Lock()
	if b.fired {
		b.mu.Unlock()
		return
	}
	b.results[id] = res
	if len(b.results) < b.total {
		b.mu.Unlock()
		return
	}

	b.fired = true
	b.final = b.results
	b.results = make(map[string]Result)
	clear(b.tasks)
	out := b.final
	b.mu.Unlock()

	b.notify(out)
}

func (b *Task) notify(out map[string]Result) {
	if b.onAll != nil {
		b.onAll(out)
	}
	close(b.done)
}

// Resume resumes every member.
func (b *Task) Resume() {
	for _, t := range b.members() {
		t.Resume()
	}
}

// Cancel cancels every member. Each still reports a result.
func (b *Task) Cancel() {
	for _, t := range b.members() {
		t.Cancel()
	}
}

// Suspend suspends every member.
func (b *Task) Suspend() {
	for _, t := range b.members() {
		t.Suspend()
	}
}

// TaskInfo returns the member labeled id. Members are released once the
// batch has completed.
func (b *Task) TaskInfo(id string) (*client.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	return t, ok
}

func (b *Task) members() []*client.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Collect(maps.Values(b.tasks))
}

// Done returns a channel that is closed after onAll has returned.
func (b *Task) Done() <-chan struct{} { return b.done }

// Wait blocks until every member has completed or ctx ends. The error
// joins the member errors, each prefixed with its label.
func (b *Task) Wait(ctx context.Context) (map[string]Result, error) {
	select {
	case <-b.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	b.mu.Lock()
	out := b.final
	b.mu.Unlock()

	var errs []error
	for _, id := range slices.Sorted(maps.Keys(out)) {
		if err := out[id].Err; err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}

	return out, errors.Join(errs...)
}
