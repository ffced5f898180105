package config

// Config aggregates every section the engine binary needs.
type Config struct {
	General     GeneralConfig
	RPC         RPCConfig
	Contracts   ContractsConfig
	Router      RouterConfig
	Remote      RemoteConfig
	Persistence PersistenceConfig
}

// Load reads all sections from the environment. Sections validate
// themselves; the first failure aborts the load.
func Load() (*Config, error) {
	cfg := &Config{}
	loaders := []func() error{
		cfg.General.Load,
		cfg.RPC.Load,
		cfg.Contracts.Load,
		cfg.Router.Load,
		cfg.Remote.Load,
		cfg.Persistence.Load,
	}
	for _, load := range loaders {
		if err := load(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Validate checks the sections whose absence is fatal at boot.
func (c *Config) Validate() error {
	if err := c.RPC.Validate(); err != nil {
		return err
	}
	return c.Contracts.Validate()
}
