package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/casteleyn/rollbook/errors"
)

// Load reads the rollbook configuration: defaults, then an optional config
// file (./rollbook.toml or ~/.config/rollbook/config.toml), then ROLLBOOK_*
// environment variables. A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("ROLLBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if path := findConfigFile(); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}

	return unmarshalAndValidate(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read config file %s", configPath)
	}

	return unmarshalAndValidate(v)
}

func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func findConfigFile() string {
	if _, err := os.Stat("rollbook.toml"); err == nil {
		return "rollbook.toml"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".config", "rollbook", "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
