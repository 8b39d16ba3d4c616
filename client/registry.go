package client

import (
	"maps"
	"slices"
	"sync"
)

// registry maps transport handle ids to the Tasks in flight. Tasks that
// have not reached the transport yet, or are between attempts, are held as
// placeholders.
type registry struct {
	mu      sync.Mutex
	tasks   map[uint64]*Task
	ids     map[*Task]uint64
	pending map[*Task]struct{}
}

func newRegistry() *registry {
	return &registry{
		tasks:   make(map[uint64]*Task),
		ids:     make(map[*Task]uint64),
		pending: make(map[*Task]struct{}),
	}
}

func (r *registry) synchronize(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

// hold registers t without a transport id, dropping any id it had.
func (r *registry) hold(t *Task) {
	r.synchronize(func() {
		if id, ok := r.ids[t]; ok {
			delete(r.tasks, id)
			delete(r.ids, t)
		}
		r.pending[t] = struct{}{}
	})
}

// install keys t by the id of its new handle.
func (r *registry) install(id uint64, t *Task) {
	r.synchronize(func() {
		delete(r.pending, t)
		if old, ok := r.ids[t]; ok {
			delete(r.tasks, old)
		}
		r.tasks[id] = t
		r.ids[t] = id
	})
}

func (r *registry) lookup(id uint64) (*Task, bool) {
	var (
		t  *Task
		ok bool
	)
	r.synchronize(func() {
		t, ok = r.tasks[id]
	})
	return t, ok
}

// mustLookup panics with an InvariantError when id is unknown.
func (r *registry) mustLookup(id uint64, op string) *Task {
	t, ok := r.lookup(id)
	if !ok {
		panic(&InvariantError{Op: op, TransportID: id, Msg: "no task registered for handle"})
	}
	return t
}

func (r *registry) remove(t *Task) {
	r.synchronize(func() {
		delete(r.pending, t)
		if id, ok := r.ids[t]; ok {
			delete(r.tasks, id)
			delete(r.ids, t)
		}
	})
}

func (r *registry) contains(t *Task) bool {
	var ok bool
	r.synchronize(func() {
		_, held := r.pending[t]
		_, installed := r.ids[t]
		ok = held || installed
	})
	return ok
}

func (r *registry) snapshot() []*Task {
	var all []*Task
	r.synchronize(func() {
		all = slices.Collect(maps.Keys(r.ids))
		for t := range r.pending {
			all = append(all, t)
		}
	})
	return all
}
