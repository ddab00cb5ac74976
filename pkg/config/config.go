package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DevJWTSecret is used when no secret is configured. Fine for local runs only.
const DevJWTSecret = "dev-secret-change-me"

const envPrefix = "GAMECAT"

type Config struct {
	HTTPAddr       string
	RequestTimeout time.Duration

	DBDriver string
	DBDSN    string

	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	LogLevel  string
	LogFormat string

	// StaticSeed overrides the embedded seed catalog with a YAML file.
	StaticSeed string

	ConfigFile string
}

// Load reads .env files, an optional gamecatalog.yaml and GAMECAT_* environment
// variables, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith is Load over a caller-supplied viper instance, so cobra flags bound
// to v take precedence over everything else.
func LoadWith(v *viper.Viper) (*Config, error) {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}

	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("gamecatalog")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		HTTPAddr:       v.GetString("http_addr"),
		RequestTimeout: v.GetDuration("request_timeout"),
		DBDriver:       v.GetString("db_driver"),
		DBDSN:          v.GetString("db_dsn"),
		JWTSecret:      v.GetString("jwt_secret"),
		JWTIssuer:      v.GetString("jwt_issuer"),
		JWTDuration:    time.Duration(v.GetInt("jwt_ttl_hours")) * time.Hour,
		RedisAddr:      v.GetString("redis_addr"),
		RedisPassword:  v.GetString("redis_password"),
		RedisDB:        v.GetInt("redis_db"),
		CacheTTL:       v.GetDuration("cache_ttl"),
		LogLevel:       v.GetString("log_level"),
		LogFormat:      v.GetString("log_format"),
		StaticSeed:     v.GetString("static_seed"),
		ConfigFile:     v.ConfigFileUsed(),
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = DevJWTSecret
	}
	if cfg.JWTDuration <= 0 {
		cfg.JWTDuration = 24 * time.Hour
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request_timeout must be positive, got %s", cfg.RequestTimeout)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("db_driver", "sqlite3")
	v.SetDefault("db_dsn", "~/.gamecatalog/data.db")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_issuer", "gamecatalog")
	v.SetDefault("jwt_ttl_hours", 24)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("static_seed", "")
	v.SetDefault("config", "")
}
