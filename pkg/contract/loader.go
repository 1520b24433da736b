package contract

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads, decodes, and validates a contract file. YAML, JSON, and TOML
// are accepted based on the file extension
func Load(path string) (*Contract, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read contract %q: %w", path, err)
	}

	var c Contract
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode contract %q: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
