package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/singleflight"

	"github.com/adamwoolhether/httptask/transport/throttle"
)

const (
	chunkSize            = 32 << 10
	maxChallengeFailures = 3
)

// HTTPSession is the default Session. It performs exchanges with an
// [http.Client] and reports progress to its Delegate.
type HTTPSession struct {
	hc       *http.Client
	delegate Delegate
	logger   *slog.Logger
	clock    clock.Clock

	cache *responseCache
	sched *scheduler

	waitsForConnectivity bool
	connectivityInterval time.Duration
	probe                ProbeFunc
	probes               singleflight.Group

	ctx    context.Context
	cancel context.CancelCauseFunc
	wg     sync.WaitGroup
	nextID atomic.Uint64

	mu     sync.Mutex
	closed bool
}

// NewHTTPSession builds an HTTPSession reporting to d.
func NewHTTPSession(d Delegate, optFns ...Option) (*HTTPSession, error) {
	if d == nil {
		return nil, errors.New("delegate must not be nil")
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying session option: %w", err)
		}
	}

	s := &HTTPSession{
		delegate:             d,
		logger:               slog.Default(),
		clock:                clock.New(),
		waitsForConnectivity: opts.waitsForConnectivity,
		connectivityInterval: opts.connectivityInterval,
		sched:                newScheduler(opts.maxConcurrent),
	}
	if opts.logger != nil {
		s.logger = opts.logger
	}
	if opts.clock != nil {
		s.clock = opts.clock
	}
	s.probe = s.dialProbe
	if opts.probe != nil {
		s.probe = opts.probe
	}

	hc := &http.Client{}
	if opts.client != nil {
		cpy := *opts.client
		hc = &cpy
	}

	var rt http.RoundTripper
	switch {
	case opts.rt != nil:
		rt = opts.rt
	case hc.Transport != nil:
		rt = hc.Transport
	default:
		rt = http.DefaultTransport
	}
	headers := opts.headers.Clone()
	if opts.userAgent != "" {
		if headers == nil {
			headers = make(http.Header)
		}
		headers.Set("User-Agent", opts.userAgent)
	}
	if len(headers) > 0 {
		rt = defaultHeaders{header: headers, base: rt}
	}
	if opts.throttle != nil {
		limited, err := throttle.New(*opts.throttle, func() *slog.Logger { return s.logger }, rt)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		rt = limited
	}
	hc.Transport = rt
	s.hc = hc

	if opts.cacheEntries > 0 {
		cache, err := newResponseCache(opts.cacheEntries, s.clock)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}

	s.ctx, s.cancel = context.WithCancelCause(context.Background())

	return s, nil
}

// DataTask returns a suspended handle for req.
func (s *HTTPSession) DataTask(req *http.Request) Handle {
	ctx, cancel := context.WithCancelCause(s.ctx)
	stop := context.AfterFunc(req.Context(), func() {
		cancel(context.Cause(req.Context()))
	})

	return &dataTask{
		id:       s.nextID.Add(1),
		session:  s,
		req:      req,
		ctx:      ctx,
		cancel:   cancel,
		stop:     stop,
		state:    Suspended,
		priority: DefaultPriority,
		gate:     make(chan struct{}),
	}
}

// Close cancels every started handle and waits for their completions to be
// reported, including those of handles resumed while it waits. Those end
// with ErrSessionClosed without being sent. Handles that were never resumed
// are left to their owner.
func (s *HTTPSession) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel(ErrSessionClosed)
	s.wg.Wait()
}

func (s *HTTPSession) start(t *dataTask) {
	s.mu.Lock()
	closed := s.closed
	s.wg.Add(1)
	s.mu.Unlock()

	if closed {
		go func() {
			defer s.wg.Done()
			s.finish(t, ErrSessionClosed)
		}()
		return
	}

	go func() {
		defer s.wg.Done()
		s.finish(t, s.exchange(t))
	}()
}

func (s *HTTPSession) finish(t *dataTask, err error) {
	if err != nil {
		cause := context.Cause(t.ctx)
		if (errors.Is(cause, ErrCanceled) || errors.Is(cause, ErrSessionClosed)) && !errors.Is(err, cause) {
			err = fmt.Errorf("%w: %w", cause, err)
		}
		s.logger.Debug("exchange failed", "id", t.id, "url", t.req.URL.String(), "err", err)
	}

	t.complete()
	t.stop()
	t.cancel(nil)

	s.delegate.DidComplete(t, err)
}

func (s *HTTPSession) exchange(t *dataTask) error {
	if t.ctx.Err() != nil {
		return context.Cause(t.ctx)
	}

	release, err := s.sched.acquire(t.ctx, t.Priority())
	if err != nil {
		return err
	}
	defer release()

	opts := RequestOptionsFrom(t.req)
	ctx := t.ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if err := t.wait(ctx); err != nil {
		return err
	}

	served, err := s.serveCached(ctx, t, opts.CachePolicy)
	if served || err != nil {
		return err
	}

	resp, err := s.roundTrip(ctx, t)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if s.delegate.DidReceiveResponse(t, &HTTPResponse{Response: resp}) == Cancel {
		return ErrCanceled
	}

	return s.receive(ctx, t, resp)
}

func (s *HTTPSession) serveCached(ctx context.Context, t *dataTask, policy CachePolicy) (bool, error) {
	if s.cache == nil {
		if policy == ReturnCacheDataDontLoad {
			return true, ErrCacheMiss
		}
		return false, nil
	}

	entry, ok := s.cache.lookup(t.req, policy)
	if !ok {
		if policy == ReturnCacheDataDontLoad {
			return true, ErrCacheMiss
		}
		return false, nil
	}
	s.logger.Debug("serving cached response", "id", t.id, "url", t.req.URL.String(), "policy", policy)

	if s.delegate.DidReceiveResponse(t, &HTTPResponse{Response: entry.response(t.req)}) == Cancel {
		return true, ErrCanceled
	}
	if len(entry.Body) > 0 {
		if err := t.wait(ctx); err != nil {
			return true, err
		}
		s.delegate.DidReceiveData(t, bytes.Clone(entry.Body))
	}

	return true, nil
}

// roundTrip sends the request, waiting for connectivity and answering
// authentication challenges as configured.
func (s *HTTPSession) roundTrip(ctx context.Context, t *dataTask) (*http.Response, error) {
	req := t.req
	var (
		notified bool
		failures int
	)

	for {
		attempt, err := rewind(ctx, req)
		if err != nil {
			return nil, err
		}

		resp, err := s.hc.Do(attempt)
		if err != nil {
			if !s.waitsForConnectivity || ctx.Err() != nil || !IsUnreachable(err) {
				return nil, err
			}
			if !notified {
				notified = true
				s.delegate.WaitingForConnectivity(t)
			}
			if err := s.awaitConnectivity(ctx, req.URL, err); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode != http.StatusUnauthorized || resp.Header.Get("WWW-Authenticate") == "" || failures >= maxChallengeFailures {
			return resp, nil
		}

		c := parseChallenge(resp, failures)
		disposition, cred, err := s.challenge(ctx, t, c)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}

		switch disposition {
		case UseCredential:
			if cred == nil {
				return resp, nil
			}
			drain(resp)
			failures++
			req = req.Clone(req.Context())
			req.SetBasicAuth(cred.User, cred.Password)
		case CancelChallenge:
			drain(resp)
			return nil, ErrCanceled
		default:
			return resp, nil
		}
	}
}

func (s *HTTPSession) challenge(ctx context.Context, t *dataTask, c *Challenge) (ChallengeDisposition, *Credential, error) {
	type answer struct {
		disposition ChallengeDisposition
		cred        *Credential
	}
	answers := make(chan answer, 1)
	var once sync.Once

	s.delegate.DidReceiveChallenge(t, c, func(d ChallengeDisposition, cred *Credential) {
		once.Do(func() { answers <- answer{d, cred} })
	})

	select {
	case a := <-answers:
		return a.disposition, a.cred, nil
	case <-ctx.Done():
		return PerformDefaultHandling, nil, context.Cause(ctx)
	}
}

func (s *HTTPSession) receive(ctx context.Context, t *dataTask, resp *http.Response) error {
	var body *bytes.Buffer
	if s.cache != nil && cacheable(t.req, resp) {
		body = new(bytes.Buffer)
	}

	buf := make([]byte, chunkSize)
	for {
		if err := t.wait(ctx); err != nil {
			return err
		}

		n, err := resp.Body.Read(buf)
		if n > 0 {
			chunk := bytes.Clone(buf[:n])
			if body != nil {
				body.Write(chunk)
			}
			s.delegate.DidReceiveData(t, chunk)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}

	if body != nil {
		s.propose(ctx, t, resp, body.Bytes())
	}

	return nil
}

// propose offers a completed response to the delegate and stores whatever
// it returns.
func (s *HTTPSession) propose(ctx context.Context, t *dataTask, resp *http.Response, body []byte) {
	proposed := &CachedResponse{
		URL:        resp.Request.URL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
		StoredAt:   s.clock.Now(),
	}

	decisions := make(chan *CachedResponse, 1)
	var once sync.Once
	s.delegate.WillCacheResponse(t, proposed, func(c *CachedResponse) {
		once.Do(func() { decisions <- c })
	})

	select {
	case c := <-decisions:
		if c != nil {
			s.cache.store(t.req, c)
		}
	case <-ctx.Done():
	}
}

// rewind returns a copy of req bound to ctx with a fresh body, so the same
// request can be sent more than once.
func rewind(ctx context.Context, req *http.Request) (*http.Request, error) {
	attempt := req.WithContext(ctx)
	if req.Body == nil || req.Body == http.NoBody || req.GetBody == nil {
		return attempt, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewinding request body: %w", err)
	}
	attempt.Body = body
	return attempt, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, chunkSize))
	_ = resp.Body.Close()
}

func parseChallenge(resp *http.Response, failures int) *Challenge {
	scheme, params, _ := strings.Cut(resp.Header.Get("WWW-Authenticate"), " ")
	c := &Challenge{
		Scheme:   scheme,
		Host:     resp.Request.URL.Host,
		Failures: failures,
		Response: resp,
	}
	for p := range strings.SplitSeq(params, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if ok && strings.EqualFold(k, "realm") {
			c.Realm = strings.Trim(v, `"`)
		}
	}
	return c
}
