package client

import (
	"net/http"
	"sync"

	"github.com/adamwoolhether/httptask/transport"
)

// RequestDelegate intercepts requests before they are sent and decides
// whether finished attempts are retried. Both hooks answer through a
// callback that may be called from any goroutine; only the first call
// counts.
type RequestDelegate interface {
	// RequestCreated is called once per Task before its first attempt.
	// proceed with a nil error sends req, or the original request if req
	// is nil. A non-nil error completes the Task with that error without
	// touching the transport.
	RequestCreated(t *Task, req *http.Request, proceed func(req *http.Request, err error))
	// RequestCompleted is called after every attempt. A retry is honored
	// only while the Task's attempts stay below the client's MaxRetries
	// and the Task was not canceled.
	RequestCompleted(t *Task, resp *Response, err error, decide func(retry bool))
}

// TaskDelegate answers transport questions about a Task. Without one, the
// proposed cache entry is stored, connectivity waits go unreported and
// challenges get default handling.
type TaskDelegate interface {
	WillCacheResponse(t *Task, proposed *transport.CachedResponse, decide func(*transport.CachedResponse))
	WaitingForConnectivity(t *Task)
	DidReceiveChallenge(t *Task, c *transport.Challenge, decide func(transport.ChallengeDisposition, *transport.Credential))
}

func once1[A any](fn func(A)) func(A) {
	var once sync.Once
	return func(a A) {
		once.Do(func() { fn(a) })
	}
}

func once2[A, B any](fn func(A, B)) func(A, B) {
	var once sync.Once
	return func(a A, b B) {
		once.Do(func() { fn(a, b) })
	}
}
