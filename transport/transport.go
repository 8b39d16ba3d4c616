package transport

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"
)

var (
	// ErrCanceled is wrapped by the completion error of every handle that
	// was canceled before it finished.
	ErrCanceled = errors.New("task canceled")
	// ErrCacheMiss is reported for ReturnCacheDataDontLoad requests with
	// no usable cache entry.
	ErrCacheMiss = errors.New("no cached response")
	// ErrSessionClosed is reported for handles resumed after Close.
	ErrSessionClosed = errors.New("session closed")
)

// Priority bounds for a Handle.
const (
	MinPriority     float32 = 0
	DefaultPriority float32 = 0.5
	MaxPriority     float32 = 1
)

// ClampPriority limits p to [MinPriority, MaxPriority].
func ClampPriority(p float32) float32 {
	return min(max(p, MinPriority), MaxPriority)
}

// State is the state of an in-flight transport handle.
type State int

const (
	Running State = iota + 1
	Suspended
	Canceling
	Completed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Canceling:
		return "canceling"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Disposition is returned from Delegate.DidReceiveResponse to tell the
// session whether to keep receiving the body.
type Disposition int

const (
	Allow Disposition = iota
	Cancel
)

// Handle is a single in-flight network operation created by a Session.
// New handles start Suspended; nothing is sent until Resume.
type Handle interface {
	ID() uint64
	Request() *http.Request
	Resume()
	Suspend()
	Cancel()
	State() State
	Priority() float32
	SetPriority(p float32)
}

// Session creates handles and reports their progress to a Delegate.
// Handle methods must never call the Delegate synchronously; callers may
// hold their own locks while resuming or canceling a handle.
type Session interface {
	DataTask(req *http.Request) Handle
	Close()
}

// Delegate receives callbacks from a Session. Callbacks for different
// handles may arrive concurrently on different goroutines. For a single
// handle, DidReceiveResponse precedes DidReceiveData, which precedes
// DidComplete.
type Delegate interface {
	DidReceiveResponse(h Handle, resp Response) Disposition
	DidReceiveData(h Handle, data []byte)
	DidComplete(h Handle, err error)

	WillCacheResponse(h Handle, proposed *CachedResponse, decide func(*CachedResponse))
	WaitingForConnectivity(h Handle)
	DidReceiveChallenge(h Handle, c *Challenge, decide func(ChallengeDisposition, *Credential))
}

// Response is the head of a response as delivered by a Session. HTTP
// exchanges are delivered as *HTTPResponse; any other implementation is
// a non-HTTP response.
type Response interface {
	URL() *url.URL
	ExpectedContentLength() int64
}

// HTTPResponse is the Response delivered for HTTP exchanges. The body of
// the embedded response is owned by the session and must not be read.
type HTTPResponse struct {
	*http.Response
}

// URL returns the final URL of the exchange.
func (r *HTTPResponse) URL() *url.URL {
	if r.Request == nil {
		return nil
	}
	return r.Request.URL
}

// ExpectedContentLength returns the announced body length, -1 if unknown.
func (r *HTTPResponse) ExpectedContentLength() int64 {
	return r.ContentLength
}

// CachedResponse is a complete response proposed for, or served from,
// the session cache.
type CachedResponse struct {
	URL        *url.URL
	StatusCode int
	Header     http.Header
	Body       []byte
	StoredAt   time.Time
	// Vary holds the request header values named by the response's Vary
	// header, as sent with the request that stored the entry. It is set
	// by the cache.
	Vary http.Header
}

// Challenge describes an authentication request from the server.
type Challenge struct {
	Scheme string
	Realm  string
	Host   string
	// Failures counts challenges already answered for this handle.
	Failures int
	Response *http.Response
}

// Credential answers a Challenge with basic credentials.
type Credential struct {
	User     string
	Password string
}

// ChallengeDisposition is the answer to a Challenge.
type ChallengeDisposition int

const (
	PerformDefaultHandling ChallengeDisposition = iota
	UseCredential
	CancelChallenge
	RejectProtectionSpace
)

// CachePolicy controls how a request interacts with the session cache.
type CachePolicy int

const (
	UseProtocolCachePolicy CachePolicy = iota
	ReloadIgnoringLocalCacheData
	ReturnCacheDataElseLoad
	ReturnCacheDataDontLoad
)

func (p CachePolicy) String() string {
	switch p {
	case UseProtocolCachePolicy:
		return "useProtocolCachePolicy"
	case ReloadIgnoringLocalCacheData:
		return "reloadIgnoringLocalCacheData"
	case ReturnCacheDataElseLoad:
		return "returnCacheDataElseLoad"
	case ReturnCacheDataDontLoad:
		return "returnCacheDataDontLoad"
	default:
		return "unknown"
	}
}

// RequestOptions are per-request settings carried on the request context.
type RequestOptions struct {
	CachePolicy CachePolicy
	Timeout     time.Duration
}

type ctxKey int

const optionsKey ctxKey = iota + 1

// WithRequestOptions returns a shallow copy of req carrying opts.
func WithRequestOptions(req *http.Request, opts RequestOptions) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), optionsKey, opts))
}

// RequestOptionsFrom returns the options attached to req, or the zero
// value (protocol cache policy, no timeout) if none were attached.
func RequestOptionsFrom(req *http.Request) RequestOptions {
	v, ok := req.Context().Value(optionsKey).(RequestOptions)
	if !ok {
		return RequestOptions{}
	}
	return v
}
