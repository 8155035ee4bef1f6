package repo

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-git/go-billy/v5/util"

	"github.com/odvcencio/scs/pkg/fsutil"
)

const (
	configFile           = "config.toml"
	defaultBranchName    = "main"
	fallbackAuthorName   = "unknown"
	defaultAuthorEnvName = "USER"
)

// Config is the repository-local configuration stored in .scs/config.toml.
type Config struct {
	User    UserConfig    `toml:"user"`
	Core    CoreConfig    `toml:"core"`
	Signing SigningConfig `toml:"signing"`
}

type UserConfig struct {
	Name  string `toml:"name,omitempty"`
	Email string `toml:"email,omitempty"`
}

type CoreConfig struct {
	DefaultBranch string `toml:"default_branch"`
	CommitGraph   bool   `toml:"commit_graph"`
}

type SigningConfig struct {
	Key string `toml:"key,omitempty"`
}

// DefaultConfig returns the configuration written by Init.
func DefaultConfig() *Config {
	return &Config{Core: CoreConfig{DefaultBranch: defaultBranchName}}
}

// ReadConfig reads .scs/config.toml. A missing file yields DefaultConfig.
func (r *Repo) ReadConfig() (*Config, error) {
	data, err := util.ReadFile(r.Dir, configFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("read config: decode: %w", err)
	}
	if cfg.Core.DefaultBranch == "" {
		cfg.Core.DefaultBranch = defaultBranchName
	}
	return cfg, nil
}

// WriteConfig atomically writes .scs/config.toml.
func (r *Repo) WriteConfig(cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	data, err := encodeConfig(cfg)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := fsutil.WriteFileAtomic(r.Dir, configFile, data); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func encodeConfig(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// ConfigValue returns the value of a dotted key such as "user.name".
func (r *Repo) ConfigValue(key string) (string, error) {
	cfg, err := r.ReadConfig()
	if err != nil {
		return "", err
	}
	switch key {
	case "user.name":
		return cfg.User.Name, nil
	case "user.email":
		return cfg.User.Email, nil
	case "core.default_branch":
		return cfg.Core.DefaultBranch, nil
	case "core.commit_graph":
		return strconv.FormatBool(cfg.Core.CommitGraph), nil
	case "signing.key":
		return cfg.Signing.Key, nil
	}
	return "", fmt.Errorf("config: unknown key %q", key)
}

// SetConfigValue stores value under a dotted key.
func (r *Repo) SetConfigValue(key, value string) error {
	cfg, err := r.ReadConfig()
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	switch key {
	case "user.name":
		cfg.User.Name = value
	case "user.email":
		cfg.User.Email = value
	case "core.default_branch":
		if err := validateBranchName(value); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cfg.Core.DefaultBranch = value
	case "core.commit_graph":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		cfg.Core.CommitGraph = b
	case "signing.key":
		cfg.Signing.Key = value
	default:
		return fmt.Errorf("config: unknown key %q", key)
	}
	return r.WriteConfig(cfg)
}

// DefaultAuthor resolves the author identity used when none is given:
// the configured user, else $USER, else "unknown".
func (r *Repo) DefaultAuthor() string {
	cfg, err := r.ReadConfig()
	if err == nil && cfg.User.Name != "" {
		if cfg.User.Email != "" {
			return fmt.Sprintf("%s <%s>", cfg.User.Name, cfg.User.Email)
		}
		return cfg.User.Name
	}
	if name := strings.TrimSpace(os.Getenv(defaultAuthorEnvName)); name != "" {
		return name
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return fallbackAuthorName
}
