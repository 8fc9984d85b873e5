// internal/config/model.go
//
// Typed configuration model for Barkhaus.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                            – dotenv values,
//   • `conf/global.yaml`                         – primary static file,
//   • `BARKHAUS_`-prefixed environment overrides – highest precedence.
//
// One *Config is built at process start and passed by reference to the
// gateway, coordinator, and caches.  Business logic never reads the
// environment directly.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Backend section
//

// Backend describes the hosted data service.
//
// `Groups` maps a logical resource group ("content", "design", "site",
// "live", "ai", "analytics") to the base URL of its API group.  The
// server-held token is either `APIToken` or, when `VaultPath` is set, the
// KV-v2 secret `VaultPath#VaultKey`.
type Backend struct {
	Groups    map[string]string `koanf:"groups"     validate:"required,min=1,dive,keys,required,endkeys,required,url"`
	Timeout   time.Duration     `koanf:"timeout"    validate:"gte=0"`
	APIToken  string            `koanf:"api_token"`
	VaultPath string            `koanf:"vault_path"`
	VaultKey  string            `koanf:"vault_key"  validate:"required_with=VaultPath"`
}

//
// Publish section
//

// Publish tunes the coordinator's retry policy for idempotent reads.
// Status flips are never retried.
type Publish struct {
	ReadRetries  int           `koanf:"read_retries"  validate:"gte=0,lte=10"`
	RetryBackoff time.Duration `koanf:"retry_backoff" validate:"gte=0"`
}

//
// Cache section
//

// Cache sizes the live-site and domain caches.
type Cache struct {
	LiveIdleTTL    time.Duration `koanf:"live_idle_ttl"    validate:"gte=0"`
	LiveMaxEntries int           `koanf:"live_max_entries" validate:"gte=0"`
	LiveMaxAge     time.Duration `koanf:"live_max_age"     validate:"gte=0"`
	EvictInterval  time.Duration `koanf:"evict_interval"   validate:"gte=0"`
	DomainCapacity int           `koanf:"domain_capacity"  validate:"gte=0"`
	DomainTTL      time.Duration `koanf:"domain_ttl"       validate:"gte=0"`
}

//
// Journal section
//

// Journal points at the MySQL database that records publish runs.  An
// empty DSN disables the journal.
type Journal struct {
	DSN string `koanf:"dsn"`
}

//
// Analytics section
//

// Analytics tunes the fire-and-forget event sink.
type Analytics struct {
	Enabled   bool `koanf:"enabled"`
	QueueSize int  `koanf:"queue_size" validate:"gte=0"`
}

//
// Geo section
//

// Geo locates the optional GeoLite2-City database.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Log section
//

// Log selects the minimum level written by the file and console cores.
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // BARKHAUS_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load().
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Backend   Backend   `koanf:"backend"`
	Publish   Publish   `koanf:"publish"`
	Cache     Cache     `koanf:"cache"`
	Journal   Journal   `koanf:"journal"`
	Analytics Analytics `koanf:"analytics"`
	Geo       Geo       `koanf:"geo"`
	Log       Log       `koanf:"log"`
	Paths     Paths     `koanf:"-"`
}

// applyDefaults fills zero values that have a sane production default.
func (c *Config) applyDefaults() {
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 10 * time.Second
	}
	if c.Publish.RetryBackoff == 0 {
		c.Publish.RetryBackoff = 200 * time.Millisecond
	}
	if c.Cache.LiveIdleTTL == 0 {
		c.Cache.LiveIdleTTL = 30 * time.Minute
	}
	if c.Cache.LiveMaxEntries == 0 {
		c.Cache.LiveMaxEntries = 500
	}
	if c.Cache.LiveMaxAge == 0 {
		c.Cache.LiveMaxAge = 30 * time.Second
	}
	if c.Cache.EvictInterval == 0 {
		c.Cache.EvictInterval = 5 * time.Minute
	}
	if c.Cache.DomainCapacity == 0 {
		c.Cache.DomainCapacity = 2048
	}
	if c.Cache.DomainTTL == 0 {
		c.Cache.DomainTTL = 5 * time.Minute
	}
	if c.Analytics.QueueSize == 0 {
		c.Analytics.QueueSize = 256
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
