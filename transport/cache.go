package transport

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
)

// responseCache holds complete GET responses keyed by method and URL. An
// entry whose response carries Vary is only served to requests sending the
// same values for the named headers.
type responseCache struct {
	entries *lru.Cache[string, *CachedResponse]
	clock   clock.Clock
}

func newResponseCache(size int, clk clock.Clock) (*responseCache, error) {
	entries, err := lru.New[string, *CachedResponse](size)
	if err != nil {
		return nil, fmt.Errorf("creating response cache: %w", err)
	}
	return &responseCache{entries: entries, clock: clk}, nil
}

func cacheKey(req *http.Request) string {
	return req.Method + " " + req.URL.String()
}

// lookup returns the entry for req if the policy allows serving it.
func (c *responseCache) lookup(req *http.Request, policy CachePolicy) (*CachedResponse, bool) {
	if req.Method != http.MethodGet || policy == ReloadIgnoringLocalCacheData {
		return nil, false
	}
	if hasDirective(req.Header, "no-cache") && policy == UseProtocolCachePolicy {
		return nil, false
	}

	entry, ok := c.entries.Get(cacheKey(req))
	if !ok || !selects(req, entry) {
		return nil, false
	}

	switch policy {
	case ReturnCacheDataElseLoad, ReturnCacheDataDontLoad:
		return entry, true
	default:
		return entry, c.fresh(entry)
	}
}

// store records entry for req along with the request header values its
// Vary header selects on.
func (c *responseCache) store(req *http.Request, entry *CachedResponse) {
	if !storable(req, entry.Header) {
		return
	}
	e := *entry
	e.Vary = make(http.Header)
	for _, name := range varyFields(entry.Header) {
		e.Vary[name] = slices.Clone(req.Header.Values(name))
	}
	c.entries.Add(cacheKey(req), &e)
}

func selects(req *http.Request, e *CachedResponse) bool {
	for name, want := range e.Vary {
		if !slices.Equal(req.Header.Values(name), want) {
			return false
		}
	}
	return true
}

func (c *responseCache) fresh(e *CachedResponse) bool {
	age, ok := maxAge(e.Header)
	if !ok {
		return false
	}
	return c.clock.Now().Before(e.StoredAt.Add(age))
}

// cacheable reports whether resp may be proposed for caching.
func cacheable(req *http.Request, resp *http.Response) bool {
	if req.Method != http.MethodGet || resp.StatusCode != http.StatusOK {
		return false
	}
	if hasDirective(req.Header, "no-store") || hasDirective(resp.Header, "no-store") {
		return false
	}
	return storable(req, resp.Header)
}

// storable rejects responses that vary on everything, and responses to
// authorized requests unless they are marked public.
func storable(req *http.Request, h http.Header) bool {
	if slices.Contains(varyFields(h), "*") {
		return false
	}
	return req.Header.Get("Authorization") == "" || hasDirective(h, "public")
}

func varyFields(h http.Header) []string {
	var names []string
	for _, v := range h.Values("Vary") {
		for f := range strings.SplitSeq(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				names = append(names, http.CanonicalHeaderKey(f))
			}
		}
	}
	return names
}

func hasDirective(h http.Header, name string) bool {
	for _, v := range h.Values("Cache-Control") {
		for d := range strings.SplitSeq(v, ",") {
			if strings.EqualFold(strings.TrimSpace(d), name) {
				return true
			}
		}
	}
	return false
}

func maxAge(h http.Header) (time.Duration, bool) {
	for _, v := range h.Values("Cache-Control") {
		for d := range strings.SplitSeq(v, ",") {
			name, val, ok := strings.Cut(strings.TrimSpace(d), "=")
			if !ok || !strings.EqualFold(name, "max-age") {
				continue
			}
			secs, err := strconv.Atoi(strings.Trim(val, `"`))
			if err != nil || secs < 0 {
				return 0, false
			}
			return time.Duration(secs) * time.Second, true
		}
	}
	return 0, false
}

// response rebuilds the head of a cached exchange for req.
func (e *CachedResponse) response(req *http.Request) *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode)),
		StatusCode:    e.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.Header.Clone(),
		ContentLength: int64(len(e.Body)),
		Body:          http.NoBody,
		Request:       req,
	}
}
