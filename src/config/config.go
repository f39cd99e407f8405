package config

import (
	"fmt"
	"os"

	"volume-dashboard/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from a YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Allow the exchange endpoint to be swapped without editing the file
	if base := os.Getenv("EXCHANGE_BASE_URL"); base != "" {
		config.Exchange.BaseURL = base
	}

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.Exchange.DefaultLimit == 0 {
		c.Exchange.DefaultLimit = 20
	}
	if c.Exchange.MaxLimit == 0 {
		c.Exchange.MaxLimit = 50
	}
	if len(c.Exchange.QuoteAssets) == 0 {
		c.Exchange.QuoteAssets = []string{"USDT", "BUSD"}
	}
	if c.DataSource.UpdateIntervalSeconds == 0 {
		c.DataSource.UpdateIntervalSeconds = 60
	}
	if c.Network.UserAgent == "" {
		c.Network.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Network.ConcurrentRequests <= 0 {
		return fmt.Errorf("concurrent requests must be greater than 0")
	}

	// Validate Exchange configuration
	if c.Exchange.BaseURL == "" {
		return fmt.Errorf("exchange base URL cannot be empty")
	}
	if c.Exchange.MinMoverVolume < 0 {
		return fmt.Errorf("minimum mover volume cannot be negative")
	}
	if c.Exchange.DefaultLimit <= 0 || c.Exchange.DefaultLimit > c.Exchange.MaxLimit {
		return fmt.Errorf("default limit %d must be between 1 and max limit %d",
			c.Exchange.DefaultLimit, c.Exchange.MaxLimit)
	}

	// Validate DataSource configuration
	if c.DataSource.UpdateIntervalSeconds <= 0 {
		return fmt.Errorf("update interval must be greater than 0")
	}

	return nil
}
