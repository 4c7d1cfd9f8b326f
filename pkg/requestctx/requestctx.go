package requestctx

import (
	"log/slog"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/clientip"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Header is the canonical request-ID header. A valid client-supplied value is
// reused so IDs correlate across service hops; anything else is replaced.
const Header = "X-Request-ID"

const maxIDLength = 128

var validIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Default headers captured into the envelope. Everything else is dropped so
// the envelope never retains credentials or cookies.
var defaultHeaderAllowlist = []string{"Content-Type", "Accept", "Origin", "Referer"}

// Context is the per-request envelope: identity of the request, the resolved
// access scope, a logger bound with both, and a scratch map for
// request-scoped values. Everything except the scratch map is frozen at
// construction. It travels inside context.Context, so concurrent requests
// can never observe each other's envelope.
type Context struct {
	id        string
	start     time.Time
	method    string
	path      string
	ip        string
	userAgent string
	headers   http.Header
	access    tenant.Access
	baseLog   *slog.Logger
	log       *slog.Logger

	scratch *scratch
}

// scratch is the mutable request-scoped key/value store. It is shared by
// every envelope produced from the same request via Refresh.
type scratch struct {
	mu     sync.RWMutex
	values map[string]any
}

type options struct {
	log       *slog.Logger
	allowlist []string
}

// Option configures envelope construction.
type Option func(*options)

// WithBaseLogger sets the logger the envelope binds its fields onto.
// Defaults to slog.Default().
func WithBaseLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithHeaderAllowlist replaces the set of request headers captured into the
// envelope.
func WithHeaderAllowlist(names ...string) Option {
	return func(o *options) {
		o.allowlist = names
	}
}

// New builds the envelope for an inbound request. Called exactly once per
// request, at ingress; everywhere else retrieves it with FromContext.
func New(r *http.Request, access tenant.Access, opts ...Option) *Context {
	o := &options{log: slog.Default(), allowlist: defaultHeaderAllowlist}
	for _, opt := range opts {
		opt(o)
	}

	id := r.Header.Get(Header)
	if !isValidID(id) {
		id = uuid.NewString()
	}

	headers := make(http.Header, len(o.allowlist))
	for _, name := range o.allowlist {
		if v := r.Header.Get(name); v != "" {
			headers.Set(name, v)
		}
	}

	c := &Context{
		id:        id,
		start:     time.Now(),
		method:    r.Method,
		path:      r.URL.Path,
		ip:        clientip.GetIP(r),
		userAgent: r.UserAgent(),
		headers:   headers,
		access:    access,
		baseLog:   o.log,
		scratch:   &scratch{values: make(map[string]any)},
	}
	c.log = bindLogger(o.log, c)
	return c
}

// Refresh rebuilds the envelope with a newly resolved access scope,
// preserving the request identity (ID, start time, metadata) and the scratch
// map. Used when authentication state changes mid-request, e.g. right after
// a login step completes.
func (c *Context) Refresh(access tenant.Access, reason string) *Context {
	next := &Context{
		id:        c.id,
		start:     c.start,
		method:    c.method,
		path:      c.path,
		ip:        c.ip,
		userAgent: c.userAgent,
		headers:   c.headers,
		access:    access,
		baseLog:   c.baseLog,
		scratch:   c.scratch,
	}
	next.log = bindLogger(c.baseLog, next)
	next.log.Info("request context refreshed", slog.String("reason", reason))
	return next
}

func bindLogger(base *slog.Logger, c *Context) *slog.Logger {
	log := base.With(slog.String("request_id", c.id))
	if !c.access.IsAnonymous() {
		log = log.With(slog.Any("access", c.access))
	}
	return log
}

// ID returns the request identifier.
func (c *Context) ID() string { return c.id }

// StartTime returns when the envelope was created.
func (c *Context) StartTime() time.Time { return c.start }

// Elapsed returns time since the request started.
func (c *Context) Elapsed() time.Duration { return time.Since(c.start) }

// Method returns the HTTP method.
func (c *Context) Method() string { return c.method }

// Path returns the request path.
func (c *Context) Path() string { return c.path }

// IP returns the resolved client IP.
func (c *Context) IP() string { return c.ip }

// UserAgent returns the User-Agent header value.
func (c *Context) UserAgent() string { return c.userAgent }

// Header returns a captured request header, empty if it was not on the
// allowlist or absent.
func (c *Context) Header(name string) string { return c.headers.Get(name) }

// Access returns the resolved access scope.
func (c *Context) Access() tenant.Access { return c.access }

// Logger returns the logger bound with the request identity and scope.
func (c *Context) Logger() *slog.Logger { return c.log }

// Set stores a request-scoped value. Safe for concurrent use.
func (c *Context) Set(key string, value any) {
	c.scratch.mu.Lock()
	defer c.scratch.mu.Unlock()
	c.scratch.values[key] = value
}

// Get retrieves a request-scoped value.
func (c *Context) Get(key string) (any, bool) {
	c.scratch.mu.RLock()
	defer c.scratch.mu.RUnlock()
	v, ok := c.scratch.values[key]
	return v, ok
}

// Delete removes a request-scoped value.
func (c *Context) Delete(key string) {
	c.scratch.mu.Lock()
	defer c.scratch.mu.Unlock()
	delete(c.scratch.values, key)
}

func isValidID(id string) bool {
	return id != "" && len(id) <= maxIDLength && validIDRegex.MatchString(id)
}
