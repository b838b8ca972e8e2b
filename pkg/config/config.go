// Package config loads and validates the mvnoci configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader defines the interface for loading configuration.
type Loader interface {
	LoadConfig(path string) (*Config, error)
}

// Config is the root configuration structure.
type Config struct {
	// CacheDir is the persistent cache root. Empty selects the per-user
	// default under os.UserCacheDir.
	CacheDir string `yaml:"cacheDir,omitempty"`

	// MetricsAddress optionally enables a Prometheus metrics listener.
	MetricsAddress string `yaml:"metricsAddress,omitempty"`

	// Repositories lists the source registries to expose as Maven
	// repositories, one proxy instance each.
	Repositories []Repository `yaml:"repositories"`
}

// Repository configures one source registry.
type Repository struct {
	// Name identifies the repository in logs and defaults from the URL host.
	Name string `yaml:"name,omitempty"`

	// URL is the registry base location, e.g. https://registry.example.com/team.
	// A path component becomes the default namespace.
	URL string `yaml:"url"`

	// Namespace overrides the namespace derived from the URL path.
	Namespace string `yaml:"namespace,omitempty"`

	// Insecure allows plain HTTP and unverified TLS toward the registry.
	Insecure bool `yaml:"insecure,omitempty"`

	// Auth holds explicit credentials. When absent the default credential
	// store (e.g. the Docker keychain) is consulted.
	Auth *Auth `yaml:"auth,omitempty"`
}

// Auth holds explicit registry credentials.
type Auth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type loader struct{}

// NewLoader creates a configuration Loader.
func NewLoader() Loader {
	return &loader{}
}

// LoadConfig reads and parses a YAML configuration file.
func (*loader) LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for structural problems and fills in
// defaulted repository names.
func (c *Config) Validate() error {
	if len(c.Repositories) == 0 {
		return fmt.Errorf("at least one repository must be configured")
	}

	seen := make(map[string]bool, len(c.Repositories))
	for i := range c.Repositories {
		repo := &c.Repositories[i]
		if repo.URL == "" {
			return fmt.Errorf("repository %d: url is required", i)
		}
		if repo.Auth != nil && (repo.Auth.Username == "" || repo.Auth.Password == "") {
			return fmt.Errorf("repository %q: auth requires both username and password", repo.URL)
		}
		if repo.Name == "" {
			repo.Name = defaultName(repo.URL)
		}
		if seen[repo.Name] {
			return fmt.Errorf("duplicate repository name %q", repo.Name)
		}
		seen[repo.Name] = true
	}
	return nil
}

// EffectiveCacheDir resolves the persistent cache root, defaulting to
// <user cache dir>/mvnoci.
func (c *Config) EffectiveCacheDir() (string, error) {
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine user cache directory: %w", err)
	}
	return filepath.Join(base, "mvnoci"), nil
}

func defaultName(rawURL string) string {
	s := rawURL
	if idx := strings.Index(s, "://"); idx >= 0 {
		s = s[idx+3:]
	}
	if idx := strings.IndexAny(s, "/:"); idx >= 0 {
		s = s[:idx]
	}
	if s == "" {
		return rawURL
	}
	return s
}
