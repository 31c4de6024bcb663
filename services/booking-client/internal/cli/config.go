package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configName = "barberbook"
	envPrefix  = "BARBERBOOK"

	keyAPIURL      = "api_url"
	keyStore       = "store"
	keyLogLevel    = "log_level"
	keyTimeout     = "timeout"
	keyOTelEnabled = "otel_enabled"
)

type Config struct {
	APIURL      string        `mapstructure:"api_url"`
	Store       string        `mapstructure:"store"`
	LogLevel    string        `mapstructure:"log_level"`
	Timeout     time.Duration `mapstructure:"timeout"`
	OTelEnabled bool          `mapstructure:"otel_enabled"`
}

// newViper reads barberbook.yaml from the working directory or the user
// config dir, then BARBERBOOK_* environment variables, then bound flags.
func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, configName))
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyAPIURL, "http://localhost:3333")
	v.SetDefault(keyStore, DefaultStorePath())
	v.SetDefault(keyLogLevel, "warn")
	v.SetDefault(keyTimeout, 10*time.Second)
	v.SetDefault(keyOTelEnabled, false)

	for key, flag := range map[string]string{
		keyAPIURL:      "api-url",
		keyStore:       "store",
		keyLogLevel:    "log-level",
		keyTimeout:     "timeout",
		keyOTelEnabled: "otel",
	} {
		if f := flags.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func loadConfig(flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(flags)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if strings.TrimSpace(cfg.APIURL) == "" {
		return Config{}, errors.New("api_url is required")
	}
	if cfg.Timeout <= 0 {
		return Config{}, fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	return cfg, nil
}

// DefaultStorePath is the session file under the user config dir, falling
// back to the working directory.
func DefaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "barberbook-session.json"
	}
	return filepath.Join(dir, configName, "session.json")
}
