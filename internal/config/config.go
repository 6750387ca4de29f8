package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Cortex   CortexConfig   `yaml:"cortex"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Recorder RecorderConfig `yaml:"recorder"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

type CortexConfig struct {
	// URL is the endpoint the manager dials. main resolves it to RealURL
	// or MockURL at startup.
	URL     string `yaml:"-"`
	RealURL string `yaml:"real_url"`
	MockURL string `yaml:"mock_url"`

	// Credentials come from the environment (optionally a .env file),
	// never from the yaml file.
	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`

	RequestTimeout time.Duration `yaml:"request_timeout"`
	ReadDeadline   time.Duration `yaml:"read_deadline"`
}

type ScoringConfig struct {
	// Baseline is the population-average alpha/beta ratio mapped to a
	// score of 50, precomputed offline.
	Baseline float64 `yaml:"baseline"`
}

type RecorderConfig struct {
	// Window is the wall-clock interval over which samples reduce to one
	// score.
	Window time.Duration `yaml:"window"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 5000,
			Host: "127.0.0.1",
		},
		Cortex: CortexConfig{
			RealURL:        "wss://localhost:6868",
			MockURL:        "ws://localhost:6868",
			RequestTimeout: 15 * time.Second,
			ReadDeadline:   5 * time.Second,
		},
		Scoring: ScoringConfig{
			Baseline: 12.4438,
		},
		Recorder: RecorderConfig{
			Window: time.Second,
		},
	}
}

// LoadCredentials pulls the credential pair from the environment, reading a
// .env file first if one exists.
func (c *Config) LoadCredentials() {
	_ = godotenv.Load() // missing .env is fine; plain env vars still apply
	c.Cortex.ClientID = os.Getenv("CLIENT_ID")
	c.Cortex.ClientSecret = os.Getenv("CLIENT_SECRET")
}

// ResolveEndpoint picks the real or mock device URL and validates that the
// real endpoint has credentials to present.
func (c *Config) ResolveEndpoint(useMock bool) error {
	if useMock {
		c.Cortex.URL = c.Cortex.MockURL
		return nil
	}
	c.Cortex.URL = c.Cortex.RealURL
	if c.Cortex.ClientID == "" || c.Cortex.ClientSecret == "" {
		return fmt.Errorf("CLIENT_ID and CLIENT_SECRET must be set (via environment or .env) to connect to the real cortex endpoint")
	}
	return nil
}
