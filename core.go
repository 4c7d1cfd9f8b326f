package tenantkit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/tenantkit/pkg/apierror"
	"github.com/dmitrymomot/tenantkit/pkg/audit"
	"github.com/dmitrymomot/tenantkit/pkg/authz"
	"github.com/dmitrymomot/tenantkit/pkg/cache"
	"github.com/dmitrymomot/tenantkit/pkg/clientip"
	"github.com/dmitrymomot/tenantkit/pkg/environment"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/ratelimit"
	"github.com/dmitrymomot/tenantkit/pkg/requestctx"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

const defaultCacheCapacity = 10_000

// ErrSigningKeyRequired is returned by New when neither a signing key nor
// an access factory was provided.
var ErrSigningKeyRequired = errors.New("tenantkit: signing key required when no access factory is injected")

// Core owns one constructed instance of each framework subsystem: the
// logger, the access factory, the audit trail and its reader, the cache
// manager, the rate limiter and the authorizer. It is built once at
// process start and its parts are passed into the code that needs them;
// none of the subsystems is reachable through package-level state.
type Core struct {
	env      environment.Environment
	log      *slog.Logger
	factory  *tenant.Factory
	trail    *audit.Trail
	reader   *audit.Reader
	cache    *cache.Manager
	limiter  *ratelimit.Limiter
	authz    *authz.Authorizer
	renderer *apierror.Renderer

	slowThreshold time.Duration
	closers       []func(context.Context) error
}

type coreSettings struct {
	log          *slog.Logger
	factory      *tenant.Factory
	resolvers    []tenant.Resolver
	auditStorage audit.Storage
	syncAudit    bool
	cacheRemote  cache.Remote
	rateStore    ratelimit.Store
	roleSource   authz.Source
}

// Option injects a pre-built component into New.
type Option func(*coreSettings)

// WithLogger replaces the environment-derived logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *coreSettings) { s.log = log }
}

// WithAccessFactory replaces the credential-verifying factory built from
// Config.AuthSigningKey.
func WithAccessFactory(f *tenant.Factory) Option {
	return func(s *coreSettings) { s.factory = f }
}

// WithResolvers replaces the resolution chain of the constructed factory.
// Ignored when WithAccessFactory is used.
func WithResolvers(resolvers ...tenant.Resolver) Option {
	return func(s *coreSettings) { s.resolvers = resolvers }
}

// WithAuditStorage sets the audit event store. Defaults to the in-memory
// store, which does not survive restarts; production deployments pass a
// Mongo, Postgres or OpenSearch store.
func WithAuditStorage(storage audit.Storage) Option {
	return func(s *coreSettings) { s.auditStorage = storage }
}

// WithSyncAudit writes audit events inline instead of through the
// buffered background writer. Tests and short-lived commands use it to
// observe events immediately.
func WithSyncAudit() Option {
	return func(s *coreSettings) { s.syncAudit = true }
}

// WithCacheRemote adds a shared second cache tier. The cache manager
// takes ownership and closes it on shutdown.
func WithCacheRemote(remote cache.Remote) Option {
	return func(s *coreSettings) { s.cacheRemote = remote }
}

// WithRateLimitStore replaces the in-memory bucket store.
func WithRateLimitStore(store ratelimit.Store) Option {
	return func(s *coreSettings) { s.rateStore = store }
}

// WithRoleSource sets the role definitions, overriding Config.RolesFile.
func WithRoleSource(source authz.Source) Option {
	return func(s *coreSettings) { s.roleSource = source }
}

// New assembles a Core from cfg plus injected backends. Components not
// injected are built with in-process defaults, so a zero-dependency Core
// works out of the box for development and tests.
func New(ctx context.Context, cfg Config, opts ...Option) (*Core, error) {
	var s coreSettings
	for _, opt := range opts {
		opt(&s)
	}

	env := environment.Parse(cfg.Environment)

	log := s.log
	if log == nil {
		log = logger.New(
			logger.WithEnvironment(env, cfg.ServiceName),
			logger.WithContextExtractors(
				requestctx.LoggerExtractor(),
				tenant.LoggerExtractor(),
			),
		)
	}

	factory := s.factory
	if factory == nil {
		if cfg.AuthSigningKey == "" {
			return nil, ErrSigningKeyRequired
		}
		verifier, err := tenant.NewVerifier([]byte(cfg.AuthSigningKey))
		if err != nil {
			return nil, err
		}
		fopts := []tenant.FactoryOption{tenant.WithFactoryLogger(log)}
		if cfg.AuthStrict {
			fopts = append(fopts, tenant.WithMode(tenant.ModeStrict))
		}
		if len(s.resolvers) > 0 {
			fopts = append(fopts, tenant.WithResolvers(s.resolvers...))
		}
		factory = tenant.NewFactory(verifier, fopts...)
	}

	// Role loading is the last step that can fail, so it runs before any
	// component that owns goroutines.
	source := s.roleSource
	if source == nil {
		if cfg.RolesFile != "" {
			source = authz.NewFileSource(cfg.RolesFile)
		} else {
			source = authz.NewMemorySource()
		}
	}
	az, err := authz.NewAuthorizer(ctx, source)
	if err != nil {
		return nil, err
	}

	c := &Core{
		env:           env,
		log:           log,
		factory:       factory,
		authz:         az,
		renderer:      apierror.NewRenderer(apierror.WithDebug(env != environment.Production)),
		slowThreshold: cfg.SlowRequestThreshold,
	}

	// The reader queries raw storage so native counting and stats stay
	// available; the trail writes through the async writer.
	storage := s.auditStorage
	if storage == nil {
		storage = audit.NewMemoryStore()
	}
	c.reader = audit.NewReader(storage)

	sink := storage
	if !s.syncAudit {
		aw := audit.NewAsyncWriter(storage, audit.AsyncOptions{BufferSize: cfg.AuditBufferSize})
		c.closers = append(c.closers, aw.Close)
		sink = aw
	}
	c.trail = audit.NewTrail(sink,
		audit.WithTrailLogger(log),
		audit.WithMetadataFilter(audit.NewMetadataFilter()),
		audit.WithRequestIDExtractor(requestIDFromContext),
		audit.WithIPExtractor(ipFromContext),
		audit.WithUserAgentExtractor(userAgentFromContext),
	)

	capacity := cfg.CacheCapacity
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	copts := []cache.ManagerOption{cache.WithManagerLogger(log)}
	if cfg.CacheTTL > 0 {
		copts = append(copts, cache.WithDefaultTTL(cfg.CacheTTL))
	}
	if s.cacheRemote != nil {
		copts = append(copts, cache.WithRemote(s.cacheRemote))
	}
	c.cache = cache.NewManager(capacity, copts...)
	c.closers = append(c.closers, func(context.Context) error { return c.cache.Close() })

	rateStore := s.rateStore
	if rateStore == nil {
		mem := ratelimit.NewMemoryStore()
		c.closers = append(c.closers, func(context.Context) error { mem.Close(); return nil })
		rateStore = mem
	}
	c.limiter = ratelimit.NewLimiter(rateStore, ratelimit.Limits{
		Tenant: ratelimit.PerMinute(cfg.TenantRequestsPerMinute),
		User:   ratelimit.PerMinute(cfg.UserRequestsPerMinute),
		IP:     ratelimit.PerMinute(cfg.IPRequestsPerMinute),
	}, ratelimit.WithLogger(log))

	return c, nil
}

// Logger returns the process logger, already wired with request and
// tenant context extractors.
func (c *Core) Logger() *slog.Logger { return c.log }

// AccessFactory returns the access resolution chain.
func (c *Core) AccessFactory() *tenant.Factory { return c.factory }

// Audit returns the audit trail recorder.
func (c *Core) Audit() *audit.Trail { return c.trail }

// AuditReader returns the audit query surface.
func (c *Core) AuditReader() *audit.Reader { return c.reader }

// Cache returns the tenant-namespaced cache manager.
func (c *Core) Cache() *cache.Manager { return c.cache }

// RateLimiter returns the multi-dimension admission limiter.
func (c *Core) RateLimiter() *ratelimit.Limiter { return c.limiter }

// Authorizer returns the role permission checker.
func (c *Core) Authorizer() *authz.Authorizer { return c.authz }

// Renderer returns the error renderer, with stack traces enabled outside
// production.
func (c *Core) Renderer() *apierror.Renderer { return c.renderer }

// Environment returns the parsed deployment environment.
func (c *Core) Environment() environment.Environment { return c.env }

// Middleware returns the ingress chain in request order: client IP
// capture, access resolution with request logging, then rate-limit
// admission. Mount it once at the router root; handlers below it reach
// the caller's scope through tenant.FromContext and the request envelope
// through requestctx.FromContext.
func (c *Core) Middleware() func(http.Handler) http.Handler {
	withEnvelope := requestctx.Middleware(c.factory,
		requestctx.WithLogger(c.log),
		requestctx.WithSlowThreshold(c.slowThreshold),
		requestctx.WithRenderer(c.renderer),
	)
	withAdmission := ratelimit.Middleware(c.limiter, ratelimit.WithRenderer(c.renderer))
	return func(next http.Handler) http.Handler {
		return clientip.Middleware(withEnvelope(withAdmission(next)))
	}
}

// Close releases what the Core constructed: the background audit writer
// (draining queued events within ctx), the cache manager, and the
// rate-limit store when it defaulted to the in-memory one. Injected audit
// storage and rate-limit stores are left open for their owner; a cache
// remote is closed with the manager per the cache package's contract.
func (c *Core) Close(ctx context.Context) error {
	var errs []error
	for _, closeFn := range c.closers {
		if err := closeFn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func requestIDFromContext(ctx context.Context) (string, bool) {
	rc, ok := requestctx.FromContext(ctx)
	if !ok {
		return "", false
	}
	return rc.ID(), true
}

func ipFromContext(ctx context.Context) (string, bool) {
	if ip := clientip.FromContext(ctx); ip != "" {
		return ip, true
	}
	rc, ok := requestctx.FromContext(ctx)
	if !ok {
		return "", false
	}
	return rc.IP(), rc.IP() != ""
}

func userAgentFromContext(ctx context.Context) (string, bool) {
	rc, ok := requestctx.FromContext(ctx)
	if !ok {
		return "", false
	}
	return rc.UserAgent(), rc.UserAgent() != ""
}
