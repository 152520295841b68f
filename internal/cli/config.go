package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/WhileEndless/go-hur/pkg/requester"
)

// configPath is relative to the home directory.
const configPath = ".config/hur/config.toml"

// Config is the persisted configuration.
type Config struct {
	RedirectMode requester.RedirectMode `toml:"redirect_mode"`

	// hasRedirectMode is set when the file names a redirect mode.
	hasRedirectMode bool
}

// ConfigPath returns $HOME/.config/hur/config.toml.
func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("can't get home directory: %w", err)
	}
	return filepath.Join(home, configPath), nil
}

// LoadConfig reads path. A missing file yields an empty Config.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg.hasRedirectMode = md.IsDefined("redirect_mode")
	return &cfg, nil
}

// CreateDefaultConfig writes the default configuration to path. It fails
// when the file exists.
func CreateDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(Config{RedirectMode: requester.NoFollow}); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// redirectMode picks the flag value, then the config value, then NoFollow.
func redirectMode(flagValue string, cfg *Config) (requester.RedirectMode, error) {
	if flagValue != "" {
		return requester.ParseRedirectMode(flagValue)
	}
	if cfg != nil && cfg.hasRedirectMode {
		return cfg.RedirectMode, nil
	}
	return requester.NoFollow, nil
}
