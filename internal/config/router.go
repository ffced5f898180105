package config

import "time"

// RouterConfig holds the tunables of the local route search and the trade
// reconciler.
type RouterConfig struct {
	// MaxHops bounds route enumeration depth.
	MaxHops int

	// HopPreferenceBps is how much better (in basis points of output) a
	// longer route must be before it is preferred over a shorter one. The
	// threshold is a policy parameter, not a derived constant.
	HopPreferenceBps int

	// MaxSplits bounds split-route fan-out across parallel routes.
	MaxSplits int

	// DebounceWindow is how long inputs must stay unchanged before a quote
	// generation becomes current.
	DebounceWindow time.Duration
}

func (c *RouterConfig) Load() error {
	c.MaxHops = getEnvOrDefaultInt("ROUTER_MAX_HOPS", 3)
	c.HopPreferenceBps = getEnvOrDefaultInt("ROUTER_HOP_PREFERENCE_BPS", 50)
	c.MaxSplits = getEnvOrDefaultInt("ROUTER_MAX_SPLITS", 3)
	c.DebounceWindow = time.Duration(getEnvOrDefaultInt("ROUTER_DEBOUNCE_MS", 200)) * time.Millisecond
	return c.Validate()
}

func (c *RouterConfig) Validate() error {
	if c.MaxHops < 1 {
		c.MaxHops = 1
	}
	if c.MaxSplits < 1 {
		c.MaxSplits = 1
	}
	return nil
}

// RemoteConfig holds the optional remote quoting service settings.
type RemoteConfig struct {
	// BaseURL of the routing API; empty disables the remote path entirely.
	BaseURL string

	// CacheTTL is the short TTL of the response cache, independent of block
	// number since the remote service may itself lag the chain.
	CacheTTL time.Duration

	RequestTimeout time.Duration

	// SupportedChains lists chain ids the remote service covers.
	SupportedChains []uint64
}

func (c *RemoteConfig) Load() error {
	c.BaseURL = getEnvOrDefault("ROUTING_API_URL", "")
	c.CacheTTL = time.Duration(getEnvOrDefaultInt("ROUTING_API_CACHE_TTL_MS", 5000)) * time.Millisecond
	c.RequestTimeout = time.Duration(getEnvOrDefaultInt("ROUTING_API_TIMEOUT_MS", 10000)) * time.Millisecond
	return nil
}

func (c *RemoteConfig) Validate() error {
	return nil
}

// PersistenceConfig controls the warm-start pool snapshot store.
type PersistenceConfig struct {
	DBPath  string
	Enabled bool

	// PersistInterval is how often the verified pool set is batch-saved.
	PersistInterval time.Duration
}

func (c *PersistenceConfig) Load() error {
	c.DBPath = getEnvOrDefault("ENGINE_DB_PATH", "./data/swap-engine.db")
	c.Enabled = getEnvOrDefaultBool("ENGINE_PERSISTENCE_ENABLED", true)
	c.PersistInterval = time.Duration(getEnvOrDefaultInt("ENGINE_PERSIST_INTERVAL", 30)) * time.Second
	return nil
}

func (c *PersistenceConfig) Validate() error {
	return nil
}
