package transport

import (
	"container/heap"
	"context"
	"sync"
)

// scheduler admits at most limit exchanges at once. Waiters are admitted
// highest priority first, then in arrival order.
type scheduler struct {
	mu      sync.Mutex
	limit   int
	active  int
	seq     uint64
	waiting waitQueue
}

type waiter struct {
	priority float32
	seq      uint64
	ready    chan struct{}
	admitted bool
	index    int
}

func newScheduler(limit int) *scheduler {
	return &scheduler{limit: limit}
}

// acquire blocks until a slot is free. The returned release func must be
// called exactly once.
func (s *scheduler) acquire(ctx context.Context, priority float32) (func(), error) {
	if s.limit <= 0 {
		return func() {}, nil
	}

	s.mu.Lock()
	if s.active < s.limit && s.waiting.Len() == 0 {
		s.active++
		s.mu.Unlock()
		return s.releaseOnce(), nil
	}
	w := &waiter{priority: priority, seq: s.seq, ready: make(chan struct{})}
	s.seq++
	heap.Push(&s.waiting, w)
	s.mu.Unlock()

	select {
	case <-w.ready:
		return s.releaseOnce(), nil
	case <-ctx.Done():
		s.mu.Lock()
		admitted := w.admitted
		if !admitted {
			heap.Remove(&s.waiting, w.index)
		}
		s.mu.Unlock()
		if admitted {
			s.release()
		}
		return nil, context.Cause(ctx)
	}
}

func (s *scheduler) releaseOnce() func() {
	var once sync.Once
	return func() { once.Do(s.release) }
}

func (s *scheduler) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active--
	for s.active < s.limit && s.waiting.Len() > 0 {
		w := heap.Pop(&s.waiting).(*waiter)
		w.admitted = true
		s.active++
		close(w.ready)
	}
}

type waitQueue []*waiter

func (q waitQueue) Len() int { return len(q) }

func (q waitQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q waitQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *waitQueue) Push(x any) {
	w := x.(*waiter)
	w.index = len(*q)
	*q = append(*q, w)
}

func (q *waitQueue) Pop() any {
	old := *q
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return w
}
