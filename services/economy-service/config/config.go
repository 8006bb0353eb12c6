package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	// postgres or memory
	StoreDriver string `mapstructure:"STORE_DRIVER"`

	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	ProfileCacheTTL time.Duration `mapstructure:"PROFILE_CACHE_TTL"`

	HTTPPort       string `mapstructure:"HTTP_PORT"`
	GRPCPort       string `mapstructure:"GRPC_PORT"`
	AccessSecret   string `mapstructure:"ACCESS_SECRET"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	CatalogPath         string `mapstructure:"CATALOG_PATH"`
	StoreMaxAttempts    uint   `mapstructure:"STORE_MAX_ATTEMPTS"`
	LedgerAuditSchedule string `mapstructure:"LEDGER_AUDIT_SCHEDULE"`
	LogLevel            string `mapstructure:"LOG_LEVEL"`
}

var defaults = map[string]interface{}{
	"DB_HOST":               "localhost",
	"DB_PORT":               "5432",
	"DB_USER":               "postgres",
	"DB_PASSWORD":           "",
	"DB_NAME":               "economy",
	"STORE_DRIVER":          "postgres",
	"REDIS_ADDR":            "",
	"PROFILE_CACHE_TTL":     "30s",
	"HTTP_PORT":             ":8080",
	"GRPC_PORT":             ":50051",
	"ACCESS_SECRET":         "",
	"ALLOWED_ORIGINS":       "",
	"CATALOG_PATH":          "",
	"STORE_MAX_ATTEMPTS":    4,
	"LEDGER_AUDIT_SCHEDULE": "@every 10m",
	"LOG_LEVEL":             "info",
}

// LoadConfig reads app.env from path if it exists; environment variables
// always win.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
		// bind explicitly so Unmarshal sees variables that are only in the env
		if err = v.BindEnv(key); err != nil {
			return
		}
	}

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	err = config.validate()
	return
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", c.StoreDriver)
	}
	if c.AccessSecret == "" {
		return fmt.Errorf("ACCESS_SECRET is required")
	}
	if c.StoreMaxAttempts == 0 {
		return fmt.Errorf("STORE_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

func (c Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Origins splits ALLOWED_ORIGINS on commas. Empty means any origin.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
