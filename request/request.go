package request

import (
	"strings"
	"sync"
)

// BypassHeader is the inbound header name embedding servers map to the
// Bypass flag, letting privileged callers skip the cache for one request.
const BypassHeader = "X-Respcache-Bypass"

// Request carries the per-request state the cache needs: the resolved route,
// the bypass signal, the caller's locale, and the outgoing content type.
//
// It is transport-neutral. An HTTP server builds one per request from its
// router and attaches it to the context with WithRequest.
type Request struct {
	// Segments are the full route segments, in order, without separators.
	// For "/page/view/5" with one trailing argument: ["page", "view", "5"].
	Segments []string

	// TrailingArgs is how many trailing segments were consumed as
	// positional handler arguments rather than route components.
	TrailingArgs int

	// Locale is the resolved locale for this request (e.g. "en", "de").
	Locale string

	// Bypass signals that this request must not be served from cache.
	Bypass bool

	mu          sync.Mutex
	contentType string
}

// New creates a request for the given route segments.
func New(segments ...string) *Request {
	return &Request{Segments: segments}
}

// Path returns the logical route path: the segments minus any trailing
// positional arguments, "/"-joined with a leading separator. It is never
// empty; a request without route segments maps to "/".
func (r *Request) Path() string {
	end := len(r.Segments)
	if r.TrailingArgs > 0 && r.TrailingArgs <= end {
		end -= r.TrailingArgs
	}
	return "/" + strings.Join(r.Segments[:end], "/")
}

// ContentType returns the outgoing content type.
func (r *Request) ContentType() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contentType
}

// SetContentType sets the outgoing content type. The cache calls this when
// replaying an entry; handlers call it before returning a body.
func (r *Request) SetContentType(ct string) {
	r.mu.Lock()
	r.contentType = ct
	r.mu.Unlock()
}
