// Package config handles configuration loading and saving.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// Config represents the daemon and CLI configuration.
type Config struct {
	StorePath  string `yaml:"store_path" kong:"help='Path to the sqlite subscription store'"`
	PollTick   int    `yaml:"poll_tick" kong:"help='Seconds between poll sweeps',default='60'"`
	NotifyCap  int    `yaml:"notify_cap" kong:"help='Max item notifications per feed per sweep',default='5'"`
	PageSize   int    `yaml:"page_size" kong:"help='Subscriptions per page of list output',default='7'"`
	WebhookURL string `yaml:"webhook_url" kong:"help='Notification webhook endpoint; stdout when empty'"`
	LogLevel   string `yaml:"log_level" kong:"help='Log level (debug|info|warn|error)',default='info'"`

	// Internal
	configPath string `yaml:"-" kong:"-"`
}

// LoadConfig loads the configuration from the specified path or the default
// location, writing a default file on first run.
func LoadConfig(customPath ...string) (*Config, error) {
	var configPath string
	if len(customPath) > 0 && customPath[0] != "" {
		configPath = customPath[0]
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(home, ".config", "rssbot", "config.yaml")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	var cfg Config
	cfg.configPath = configPath

	var options []kong.Option

	// Only add configuration loader if file exists
	if _, err := os.Stat(configPath); err == nil {
		options = append(options, kong.Configuration(yamlKongLoader, configPath))
	}

	parser, err := kong.New(&cfg, options...)
	if err != nil {
		return nil, err
	}

	_, err = parser.Parse([]string{})
	if err != nil {
		return nil, err
	}

	// Save defaults if new file
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	}

	// Set default store path if empty
	if cfg.StorePath == "" {
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			home, err := os.UserHomeDir()
			if err == nil {
				dataHome = filepath.Join(home, ".local", "share")
			}
		}
		cfg.StorePath = filepath.Join(dataHome, "rssbot", "rssbot.db")
	}

	return &cfg, nil
}

func yamlKongLoader(r io.Reader) (kong.Resolver, error) {
	values := map[string]interface{}{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil {
		if err == io.EOF {
			return nil, nil // Return nil resolver (no op)
		}
		return nil, err
	}

	var f kong.ResolverFunc = func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (interface{}, error) {
		names := []string{flag.Name, strings.ReplaceAll(flag.Name, "-", "_")}
		for _, name := range names {
			if v, ok := values[name]; ok {
				return v, nil
			}
		}
		return nil, nil
	}
	return f, nil
}

// Save writes the current configuration to the config file.
func (c *Config) Save() error {
	f, err := os.Create(c.configPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return yaml.NewEncoder(f).Encode(c)
}
