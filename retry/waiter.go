package retry

import (
	"math/rand/v2"
	"sync"
	"time"
)

// A Waiter says how long to wait before the next attempt. attempts is the
// number of attempts already finished, starting at 1.
//
// Implementations must be safe for concurrent use.
type Waiter interface {
	Wait(attempts int) time.Duration
}

// DefaultWaiter is a jittered exponential backoff between 50ms and 1s.
var DefaultWaiter = NewExpWaiter(50*time.Millisecond, time.Second, rand.NewPCG(uint64(time.Now().UnixNano()), 0))

// NewFixedWaiter returns a Waiter that always waits d.
func NewFixedWaiter(d time.Duration) Waiter {
	return fixedWaiter(d)
}

type fixedWaiter time.Duration

func (w fixedWaiter) Wait(int) time.Duration { return time.Duration(w) }

// NewExpWaiter returns a "full jitter" exponential backoff. The ceiling
// for an attempt is min(base * 2^(attempts-1), limit); the wait is drawn
// uniformly from [0, ceiling). A nil src disables jitter and the ceiling
// itself is returned.
//
// base must be positive and limit at least base.
func NewExpWaiter(base, limit time.Duration, src rand.Source) Waiter {
	if base <= 0 {
		panic("retry: base must be positive")
	}
	if limit < base {
		panic("retry: limit must be at least base")
	}

	w := &expWaiter{base: base, limit: limit}
	if src != nil {
		w.rand = rand.New(src)
	}
	return w
}

type expWaiter struct {
	base  time.Duration
	limit time.Duration

	mu   sync.Mutex
	rand *rand.Rand
}

func (w *expWaiter) Wait(attempts int) time.Duration {
	ceil := w.base
	for i := 1; i < attempts && ceil < w.limit; i++ {
		ceil *= 2
	}
	ceil = min(ceil, w.limit)

	if w.rand == nil {
		return ceil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return time.Duration(w.rand.Int64N(int64(ceil)))
}
