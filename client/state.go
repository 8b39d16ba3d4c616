package client

import "github.com/adamwoolhether/httptask/transport"

// State is the logical state of a Task.
type State int

const (
	// Suspended is the initial state, and the state after Suspend.
	Suspended State = iota
	// Pending means Resume was called before a transport handle existed.
	Pending
	Running
	Canceling
	// Completed is terminal.
	Completed
)

func (s State) String() string {
	switch s {
	case Suspended:
		return "suspended"
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Canceling:
		return "canceling"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// stateProxy is where a Task's lifecycle calls land: on a logical record
// while no handle exists, on the handle once one is attached. Callers hold
// the Task's lock.
type stateProxy interface {
	state() State
	resume()
	suspend()
	cancel()
	priority() float32
	setPriority(p float32)
}

// detached tracks state for a Task with no transport handle.
type detached struct {
	st   State
	prio float32
}

func newDetached() *detached {
	return &detached{st: Suspended, prio: transport.DefaultPriority}
}

func (d *detached) state() State { return d.st }

func (d *detached) resume() {
	if d.st == Suspended {
		d.st = Pending
	}
}

func (d *detached) suspend() {
	if d.st == Pending {
		d.st = Suspended
	}
}

func (d *detached) cancel() {
	if d.st != Completed {
		d.st = Canceling
	}
}

func (d *detached) priority() float32     { return d.prio }
func (d *detached) setPriority(p float32) { d.prio = transport.ClampPriority(p) }

// attached forwards to a transport handle.
type attached struct {
	h transport.Handle
}

func (a *attached) state() State {
	switch a.h.State() {
	case transport.Running:
		return Running
	case transport.Suspended:
		return Suspended
	case transport.Canceling:
		return Canceling
	default:
		return Completed
	}
}

func (a *attached) resume()               { a.h.Resume() }
func (a *attached) suspend()              { a.h.Suspend() }
func (a *attached) cancel()               { a.h.Cancel() }
func (a *attached) priority() float32     { return a.h.Priority() }
func (a *attached) setPriority(p float32) { a.h.SetPriority(transport.ClampPriority(p)) }
