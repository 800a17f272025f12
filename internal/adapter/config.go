package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RemoteMode selects where collections come from
type RemoteMode string

const (
	RemoteModeLocal  RemoteMode = "local"  // open the bbolt store directly
	RemoteModeRemote RemoteMode = "remote" // talk to a `gks serve` instance
)

// Config holds all application configuration
type Config struct {
	Remote  RemoteConfig  `mapstructure:"remote"`
	Store   StoreConfig   `mapstructure:"store"`
	Server  ServerConfig  `mapstructure:"server"`
	Player  PlayerConfig  `mapstructure:"player"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Quiz    QuizConfig    `mapstructure:"quiz"`
	Search  SearchConfig  `mapstructure:"search"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// RemoteConfig holds the collection source
type RemoteConfig struct {
	Mode RemoteMode `mapstructure:"mode"`
	URL  string     `mapstructure:"url"` // base URL of `gks serve`, remote mode only
}

// StoreConfig holds the local document store location
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig holds `gks serve` settings
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// PlayerConfig holds the audio transport command
type PlayerConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// CatalogConfig holds bundled catalog settings
type CatalogConfig struct {
	TTL       time.Duration `mapstructure:"ttl"`
	AssetsDir string        `mapstructure:"assets_dir"` // overrides the embedded datasets
}

// QuizConfig holds quiz pagination settings
type QuizConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// SearchConfig holds list filter settings
type SearchConfig struct {
	Mode string `mapstructure:"mode"` // "substring" or "fuzzy"
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Remote: RemoteConfig{
			Mode: RemoteModeLocal,
		},
		Store: StoreConfig{
			Path: filepath.Join(defaultDataPath(), "gks.db"),
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:8765",
		},
		Player: PlayerConfig{
			Command: "mpv",
			Args:    []string{},
		},
		Catalog: CatalogConfig{
			TTL: 5 * time.Minute,
		},
		Quiz: QuizConfig{
			PageSize: 10,
		},
		Search: SearchConfig{
			Mode: "substring",
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "gks.log"),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the per-user data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "gks")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "gks")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "gks")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "gks")
	}
}

// ConfigFilePath returns where SaveConfig writes by default
func ConfigFilePath() string {
	return filepath.Join(defaultConfigPath(), "config.yaml")
}

func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetDefault("remote.mode", string(cfg.Remote.Mode))
	v.SetDefault("remote.url", cfg.Remote.URL)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("server.listen", cfg.Server.Listen)
	v.SetDefault("player.command", cfg.Player.Command)
	v.SetDefault("player.args", cfg.Player.Args)
	v.SetDefault("catalog.ttl", cfg.Catalog.TTL.String())
	v.SetDefault("catalog.assets_dir", cfg.Catalog.AssetsDir)
	v.SetDefault("quiz.page_size", cfg.Quiz.PageSize)
	v.SetDefault("search.mode", cfg.Search.Mode)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
	return v
}

// LoadConfig loads configuration from file and environment. An empty path
// searches the OS config directory and the working directory.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := newViper(cfg)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Environment variable overrides, e.g. GKS_REMOTE_URL
	v.SetEnvPrefix("GKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	switch c.Remote.Mode {
	case RemoteModeLocal:
		if c.Store.Path == "" {
			return errors.New("config: store.path is required in local mode")
		}
	case RemoteModeRemote:
		if c.Remote.URL == "" {
			return errors.New("config: remote.url is required in remote mode")
		}
	default:
		return fmt.Errorf("config: unknown remote.mode %q", c.Remote.Mode)
	}
	if c.Quiz.PageSize <= 0 {
		return fmt.Errorf("config: quiz.page_size must be positive, got %d", c.Quiz.PageSize)
	}
	if c.Catalog.TTL <= 0 {
		return fmt.Errorf("config: catalog.ttl must be positive, got %s", c.Catalog.TTL)
	}
	return nil
}

// SaveConfig writes cfg as YAML to path (ConfigFilePath when empty)
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		path = ConfigFilePath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.Set("remote.mode", string(cfg.Remote.Mode))
	v.Set("remote.url", cfg.Remote.URL)
	v.Set("store.path", cfg.Store.Path)
	v.Set("server.listen", cfg.Server.Listen)
	v.Set("player.command", cfg.Player.Command)
	v.Set("player.args", cfg.Player.Args)
	v.Set("catalog.ttl", cfg.Catalog.TTL.String())
	v.Set("catalog.assets_dir", cfg.Catalog.AssetsDir)
	v.Set("quiz.page_size", cfg.Quiz.PageSize)
	v.Set("search.mode", cfg.Search.Mode)
	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
