package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode   `mapstructure:"mode"`
	HTTPAddr string `mapstructure:"http_addr"`

	DBDriver string `mapstructure:"db_driver"`
	DBDSN    string `mapstructure:"db_dsn"`

	// Redis is optional; an empty address disables the question cache.
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`

	AuthHMACSecret string        `mapstructure:"auth_hmac_secret"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`

	AdminUser     string `mapstructure:"admin_user"`
	AdminPassHash string `mapstructure:"admin_pass_hash"` // bcrypt

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	CORSOrigins []string `mapstructure:"cors_origins"`

	// QuestionsFile seeds an empty question bank on startup; empty uses the
	// built-in bank.
	QuestionsFile string `mapstructure:"questions_file"`
}

var defaults = map[string]interface{}{
	"mode":             string(ModeOffline),
	"http_addr":        ":8080",
	"db_driver":        "sqlite",
	"db_dsn":           "",
	"redis_addr":       "",
	"redis_password":   "",
	"redis_db":         0,
	"cache_ttl":        "5m",
	"auth_hmac_secret": "supersecret-dev-key",
	"token_ttl":        "8h",
	"admin_user":       "admin",
	"admin_pass_hash":  "",
	"log_level":        "info",
	"log_format":       "console",
	"cors_origins":     "http://localhost:3000",
	"questions_file":   "",
}

// Load reads configuration from defaults, an optional config file and the
// environment (TOXIMETER_ prefix is not required; keys map to upper-case env
// names, e.g. HTTP_ADDR). A .env file in the working directory is loaded first
// when present. configFile may be empty.
func Load(configFile string) (Config, error) {
	loadDotEnv()

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("toximeter")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	// env values arrive as one comma-separated string
	cfg.CORSOrigins = splitCSV(cfg.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeOffline, ModeOnline:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeOffline, ModeOnline, c.Mode)
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported db_driver %q", c.DBDriver)
	}
	if c.AuthHMACSecret == "" {
		return fmt.Errorf("auth_hmac_secret is required")
	}
	if c.Mode == ModeOnline && c.AuthHMACSecret == defaults["auth_hmac_secret"] {
		return fmt.Errorf("auth_hmac_secret must be set in online mode")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive")
	}
	return nil
}

func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

func splitCSV(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
