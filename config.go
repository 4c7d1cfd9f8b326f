package tenantkit

import "time"

// Config carries the scalar knobs for assembling a Core from the
// environment via config.Load. Backend clients (audit storage, cache
// remote tier, rate-limit store) are injected through options instead,
// because their construction needs driver-specific configuration; the
// connector packages produce them.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"app"`
	Environment string `env:"APP_ENV" envDefault:"development"`

	// AuthSigningKey verifies inbound credentials. Required unless an
	// access factory is injected with WithAccessFactory.
	AuthSigningKey string `env:"AUTH_SIGNING_KEY"`
	AuthStrict     bool   `env:"AUTH_STRICT" envDefault:"false"`

	CacheCapacity int           `env:"CACHE_CAPACITY" envDefault:"10000"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"5m"`

	// Zero disables the dimension.
	TenantRequestsPerMinute int `env:"RATE_LIMIT_TENANT_PER_MINUTE" envDefault:"600"`
	UserRequestsPerMinute   int `env:"RATE_LIMIT_USER_PER_MINUTE" envDefault:"120"`
	IPRequestsPerMinute     int `env:"RATE_LIMIT_IP_PER_MINUTE" envDefault:"60"`

	// RolesFile points at a YAML role definition file. Empty means no
	// roles unless a source is injected with WithRoleSource.
	RolesFile string `env:"AUTHZ_ROLES_FILE"`

	AuditBufferSize int `env:"AUDIT_BUFFER_SIZE" envDefault:"1000"`

	SlowRequestThreshold time.Duration `env:"SLOW_REQUEST_THRESHOLD" envDefault:"1s"`
}
