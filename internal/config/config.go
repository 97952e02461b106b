package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"leaudio/internal/buildmode"
)

const (
	AppName   = "LeAudio"
	AppID     = "com.leaudio.app"
	EnvPrefix = "LEAUDIO"
	fileName  = "leaudio"

	// FileEnv names an explicit config file, bypassing the leaudio.yml search.
	FileEnv = EnvPrefix + "_CONFIG_FILE"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Log    LogConfig    `mapstructure:"log"`
	Bridge BridgeConfig `mapstructure:"bridge"`
}

type AppConfig struct {
	ID     string  `mapstructure:"id"`
	Name   string  `mapstructure:"name"`
	Width  float32 `mapstructure:"width"`
	Height float32 `mapstructure:"height"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BridgeConfig controls the loopback endpoint the front-end invokes commands through.
type BridgeConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	WindowCommands bool   `mapstructure:"window_commands"`
}

func (b BridgeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", b.Host, b.Port)
}

type LoaderOption func(*loaderConfig)

type loaderConfig struct {
	file      string
	envFile   string
	searchDir []string
}

// WithConfigFile loads an explicit file instead of searching for leaudio.yml.
// An empty path keeps the search.
func WithConfigFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.file = path }
}

// WithEnvFile loads LEAUDIO_* variables from a dotenv file. Variables already
// set in the environment win.
func WithEnvFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.envFile = path }
}

// WithSearchPaths replaces the directories searched for leaudio.yml.
func WithSearchPaths(dirs ...string) LoaderOption {
	return func(lc *loaderConfig) { lc.searchDir = dirs }
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.id", AppID)
	v.SetDefault("app.name", AppName)
	v.SetDefault("app.width", 800)
	v.SetDefault("app.height", 600)
	v.SetDefault("log.level", buildmode.DefaultLogLevel)
	v.SetDefault("log.format", "console")
	v.SetDefault("bridge.enabled", true)
	v.SetDefault("bridge.host", "127.0.0.1")
	v.SetDefault("bridge.port", 1430)
	v.SetDefault("bridge.window_commands", false)
}

func defaultSearchPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, fileName))
	}
	return paths
}

// Load builds the configuration from defaults, an optional leaudio.yml and
// LEAUDIO_* environment variables (optionally seeded from .env), in
// increasing priority.
func Load(opts ...LoaderOption) (*Config, error) {
	lc := loaderConfig{envFile: ".env", searchDir: defaultSearchPaths()}
	for _, opt := range opts {
		opt(&lc)
	}

	if lc.envFile != "" {
		if _, err := os.Stat(lc.envFile); err == nil {
			if err := godotenv.Load(lc.envFile); err != nil {
				return nil, fmt.Errorf("failed to load env file %s: %w", lc.envFile, err)
			}
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if lc.file != "" {
		v.SetConfigFile(lc.file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", lc.file, err)
		}
	} else {
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
		for _, dir := range lc.searchDir {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.App.ID) == "" {
		errs = append(errs, errors.New("app.id is required"))
	}
	if c.App.Width <= 0 || c.App.Height <= 0 {
		errs = append(errs, fmt.Errorf("app window size must be positive, got %vx%v", c.App.Width, c.App.Height))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be one of console, json; got %q", c.Log.Format))
	}
	if c.Bridge.Enabled {
		if c.Bridge.Port < 0 || c.Bridge.Port > 65535 {
			errs = append(errs, fmt.Errorf("bridge.port out of range: %d", c.Bridge.Port))
		}
		if strings.TrimSpace(c.Bridge.Host) == "" {
			errs = append(errs, errors.New("bridge.host is required when the bridge is enabled"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
