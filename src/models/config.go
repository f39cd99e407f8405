package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	Log        MLogConfig        `yaml:"log"`
	Network    MNetworkConfig    `yaml:"network"`
	Exchange   MExchangeConfig   `yaml:"exchange"`
	DataSource MDataSourceConfig `yaml:"data_source"`
}

type MLogConfig struct {
	Level       string `yaml:"level"`       // "debug", "info", "warn", "error"
	Format      string `yaml:"format"`      // "json" or "console"
	OutputFile  string `yaml:"output_file"` // optional rotated log file
	Environment string `yaml:"environment"` // "dev" or "prod"
}

type MNetworkConfig struct {
	RequestTimeout     int    `yaml:"timeout"`
	MaxRetries         int    `yaml:"retries"`
	ConcurrentRequests int    `yaml:"concurrent_requests"`
	UserAgent          string `yaml:"user_agent"`
}

type MExchangeConfig struct {
	BaseURL        string   `yaml:"base_url"`
	QuoteAssets    []string `yaml:"quote_assets"`     // pairs quoted in these assets are ranked
	MinMoverVolume float64  `yaml:"min_mover_volume"` // quote-volume floor for the movers view
	DefaultLimit   int      `yaml:"default_limit"`
	MaxLimit       int      `yaml:"max_limit"`
}

type MDataSourceConfig struct {
	UpdateIntervalSeconds int `yaml:"update_interval_seconds"`
}
