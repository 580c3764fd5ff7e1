package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	RedisURL string `mapstructure:"redis_url"`
}

type ViewConfig struct {
	Ordering string `mapstructure:"ordering"`
}

type JoinConfig struct {
	RateLimit    int           `mapstructure:"rate_limit"`
	RateInterval time.Duration `mapstructure:"rate_interval"`
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	Store      StoreConfig   `mapstructure:"store"`
	View       ViewConfig    `mapstructure:"view"`
	Join       JoinConfig    `mapstructure:"join"`
}

// Load reads config/config.{CONFIG_ENV}.yaml (dev by default). A .env file is
// loaded first, and ASKROOM_* variables override file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("askroom")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.redis_url", "redis://localhost:6379/0")
	v.SetDefault("view.ordering", "insertion")
	v.SetDefault("join.rate_limit", 10)
	v.SetDefault("join.rate_interval", "1m")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Store.Driver != "memory" && cfg.Store.Driver != "redis" {
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("store", cfg.Store.Driver).Msg("config ready")
	return &cfg, nil
}
