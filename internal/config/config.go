package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	JWT struct {
		Secret           string `yaml:"secret"`
		ExpiresInMinutes int    `yaml:"expires_in_minutes"`
		MaxAgeSeconds    int    `yaml:"maxage_seconds"`
	} `yaml:"jwt"`
	Auth struct {
		// ServerRehash enables a second argon2 pass over the client-supplied
		// hash using the stored salt before it is stored or compared.
		ServerRehash bool `yaml:"server_rehash"`
	} `yaml:"auth"`
}

// TokenTTL returns the configured token validity duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.ExpiresInMinutes) * time.Minute
}

// LoadConfig reads configuration from the specified YAML file. Missing
// server, database or JWT values are a startup error, not a runtime one.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port must be set")
	}
	if c.Database.URL == "" {
		return errors.New("database.url must be set")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret must be set")
	}
	if c.JWT.ExpiresInMinutes <= 0 {
		return errors.New("jwt.expires_in_minutes must be set")
	}
	if c.JWT.MaxAgeSeconds <= 0 {
		return errors.New("jwt.maxage_seconds must be set")
	}
	return nil
}
