package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.lexchat/config.toml.
type Config struct {
	DefaultSession string       `toml:"default_session"`
	API            APIConfig    `toml:"api"`
	Client         ClientConfig `toml:"client"`
	Server         ServerConfig `toml:"server"`
	News           NewsConfig   `toml:"news"`
}

// APIConfig describes how clients reach the messaging backend.
type APIConfig struct {
	BaseURL string `toml:"base_url"`
	// Timeout bounds a single request. Zero leaves requests unbounded.
	Timeout Duration `toml:"timeout"`
	// CAFile is a PEM bundle trusted in addition to the system roots.
	CAFile string `toml:"ca_file"`
}

// TLSConfig returns the client TLS settings, or nil when CAFile is unset.
func (a APIConfig) TLSConfig() (*tls.Config, error) {
	if a.CAFile == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(a.CAFile)
	if err != nil {
		return nil, fmt.Errorf("read ca file: %w", err)
	}
	roots, err := x509.SystemCertPool()
	if err != nil {
		roots = x509.NewCertPool()
	}
	if !roots.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("ca file %s: no certificates found", a.CAFile)
	}
	return &tls.Config{RootCAs: roots, MinVersion: tls.VersionTLS12}, nil
}

// ClientConfig holds chat client behavior.
type ClientConfig struct {
	PageSize     int      `toml:"page_size"`
	PollInterval Duration `toml:"poll_interval"`
}

// ServerConfig holds lexchatd settings.
type ServerConfig struct {
	ListenAddr     string   `toml:"listen_addr"`
	JWTSecret      string   `toml:"jwt_secret"`
	TokenTTL       Duration `toml:"token_ttl"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// NewsConfig configures the /api/news proxy upstream.
type NewsConfig struct {
	UpstreamURL string   `toml:"upstream_url"`
	APIKey      string   `toml:"api_key"`
	Timeout     Duration `toml:"timeout"`
}

// Duration is a time.Duration that decodes from TOML strings like "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero fields. API and news timeouts stay zero when unset.
func (c *Config) ApplyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://127.0.0.1:8088"
	}
	if c.Client.PageSize <= 0 {
		c.Client.PageSize = 50
	}
	if c.Client.PollInterval.Duration == 0 {
		c.Client.PollInterval.Duration = 5 * time.Second
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = "127.0.0.1:8088"
	}
	if c.Server.TokenTTL.Duration == 0 {
		c.Server.TokenTTL.Duration = 7 * 24 * time.Hour
	}
	if c.News.UpstreamURL == "" {
		c.News.UpstreamURL = "https://newsapi.org/v2/everything"
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// LoadOrDefault reads config from path, falling back to defaults when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return nil, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
