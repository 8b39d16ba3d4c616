// Package transport defines the boundary between the task layer and the
// engine that performs network I/O, and provides [HTTPSession], the
// default engine built on [net/http].
//
// # Handles and Delegates
//
// A [Session] turns a prepared [http.Request] into a [Handle]. Handles
// start suspended; the exchange begins on [Handle.Resume]. Progress is
// reported to the session's [Delegate] from background goroutines:
//
//	DidReceiveResponse -> DidReceiveData (zero or more) -> DidComplete
//
// Every handle reports exactly one DidComplete, including handles that
// were canceled before they started.
//
// # Per-request Options
//
// Cache policy and timeout travel on the request context:
//
//	req = transport.WithRequestOptions(req, transport.RequestOptions{
//		CachePolicy: transport.ReloadIgnoringLocalCacheData,
//		Timeout:     10 * time.Second,
//	})
//
// # Engine Features
//
// [HTTPSession] adds a response cache honoring [CachePolicy], waiting for
// connectivity on dial failures, authentication challenges for 401
// responses, priority-ordered admission when concurrency is limited, and
// rate limiting through [github.com/adamwoolhether/httptask/transport/throttle].
package transport
