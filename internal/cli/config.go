package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultAPIURL = "http://localhost:8080"

// Config is the ~/.notesctl.yaml session file.
type Config struct {
	APIURL  string `yaml:"api_url"`
	Access  string `yaml:"access,omitempty"`
	Refresh string `yaml:"refresh,omitempty"`

	path string
}

// ConfigPath honours NOTESCTL_CONFIG, then falls back to the home directory.
func ConfigPath() (string, error) {
	if v := os.Getenv("NOTESCTL_CONFIG"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".notesctl.yaml"), nil
}

func LoadConfig(path string) (*Config, error) {
	cfg := &Config{APIURL: defaultAPIURL, path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if v := os.Getenv("NOTESCTL_API_URL"); v != "" {
		cfg.APIURL = v
	}

	return cfg, nil
}

func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return err
	}
	// tokens live here
	return os.WriteFile(c.path, data, 0o600)
}

func (c *Config) Tokens() (string, string) {
	return c.Access, c.Refresh
}

func (c *Config) SaveTokens(access, refresh string) error {
	c.Access, c.Refresh = access, refresh
	return c.Save()
}
