package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	dirMode        = 0700
	fileMode       = 0600

	ProviderGoogle = "google"
	ProviderOSRM   = "osrm"

	workersDefault       = 4
	cacheTTLHoursDefault = 168

	nominatimURLDefault = "https://nominatim.openstreetmap.org"
	osrmURLDefault      = "https://router.project-osrm.org"
	googleURLDefault    = "https://maps.googleapis.com/maps/api/distancematrix/json"
)

// Config represents app config object.
type Config struct {
	// Provider is the routing backend used for commute durations.
	Provider string `yaml:"provider"`
	// Mode is the default mode of transportation.
	Mode string `yaml:"mode"`
	// Workers bounds the number of parallel provider lookups.
	Workers int `yaml:"workers"`
	// CacheTTLHours is how long cached lookups stay valid.
	CacheTTLHours int `yaml:"cacheTTLHours"`
	// CacheDSN switches the lookup cache to PostgreSQL when set.
	CacheDSN string `yaml:"cacheDSN,omitempty"`
	// APIToken is a bearer token sent to self-hosted OSRM and Nominatim
	// endpoints that sit behind an authenticating proxy.
	APIToken string `yaml:"apiToken,omitempty"`

	NominatimURL string `yaml:"nominatimURL"`
	OSRMURL      string `yaml:"osrmURL"`
	GoogleURL    string `yaml:"googleURL"`
}

func getDefaultConfig() *Config {
	return &Config{
		Provider:      ProviderOSRM,
		Mode:          "driving",
		Workers:       workersDefault,
		CacheTTLHours: cacheTTLHoursDefault,
		NominatimURL:  nominatimURLDefault,
		OSRMURL:       osrmURLDefault,
		GoogleURL:     googleURLDefault,
	}
}

// Validate normalizes and checks the config, filling zero values with defaults.
func (c *Config) Validate() error {
	if c.Provider == "" {
		c.Provider = ProviderOSRM
	}
	c.Provider = strings.ToLower(c.Provider)
	if c.Provider != ProviderGoogle && c.Provider != ProviderOSRM {
		return errors.Errorf("unknown provider: %s (supported: %s, %s)",
			c.Provider, ProviderGoogle, ProviderOSRM)
	}
	if c.Workers < 1 {
		c.Workers = workersDefault
	}
	if c.CacheTTLHours < 1 {
		c.CacheTTLHours = cacheTTLHoursDefault
	}
	if c.NominatimURL == "" {
		c.NominatimURL = nominatimURLDefault
	}
	if c.OSRMURL == "" {
		c.OSRMURL = osrmURLDefault
	}
	if c.GoogleURL == "" {
		c.GoogleURL = googleURLDefault
	}
	return nil
}

func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	path := filepath.Join(dirPath, configFileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return errors.Wrapf(err, "failed to write config file: %s", configFileName)
	}
	return nil
}

// ReadOrCreate reads app config from directory or creates a new one.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		if err := os.Mkdir(dirPath, dirMode); err != nil {
			return nil, errors.Wrapf(err, "failed to create dir: %s", dirPath)
		}
	}

	path := filepath.Join(dirPath, configFileName)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := Save(dirPath, getDefaultConfig()); err != nil {
			return nil, errors.Wrap(err, "failed to create default config")
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening config file: %s", path)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config file: %s", path)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrapf(err, "error unmarshalling config file: %s", path)
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config: %s", path)
	}
	return &c, nil
}
