package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr string
	AppEnv     string
	LogLevel   string
	LogFormat  string

	StoreMode            string
	DatabaseURL          string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	StorageKeyPrefix     string
	StorageEncryptionKey string

	CatalogBaseURL    string
	CatalogTimeout    time.Duration
	CatalogMaxRetries int
	CatalogRetryBase  time.Duration
	CatalogRetryMax   time.Duration
	CatalogPageSize   int
	SearchDebounce    time.Duration

	TracingEnabled       bool
	TracingEndpoint      string
	TracingInsecure      bool
	TracingSamplingRatio float64
	ServiceName          string

	Location         *time.Location
	UnitPrice        decimal.Decimal
	TaxRate          decimal.Decimal
	ShippingFee      decimal.Decimal
	FreeShippingOver decimal.Decimal
}

const (
	StoreModeMemory   = "memory"
	StoreModePostgres = "postgres"
	StoreModeRedis    = "redis"
)

var defaults = map[string]any{
	"listen_addr":                 ":18080",
	"app_env":                     "development",
	"log_level":                   "info",
	"log_format":                  "console",
	"store_mode":                  StoreModeMemory,
	"database_url":                "",
	"redis_addr":                  "localhost:6379",
	"redis_password":              "",
	"redis_db":                    0,
	"storage_key_prefix":          "",
	"storage_encryption_key":      "",
	"catalog_base_url":            "https://world.openfoodfacts.org",
	"catalog_timeout":             "10s",
	"catalog_max_retries":         2,
	"catalog_retry_base":          "300ms",
	"catalog_retry_max":           "3s",
	"catalog_page_size":           24,
	"search_debounce":             "500ms",
	"tracing_enabled":             false,
	"otel_exporter_otlp_endpoint": "localhost:4317",
	"tracing_insecure":            true,
	"tracing_sampling_ratio":      1.0,
	"service_name":                "foodexplorer",
	"timezone":                    "Local",
	"unit_price":                  "240",
	"tax_rate":                    "0.08",
	"shipping_fee":                "300",
	"free_shipping_over":          "2000",
}

// Load reads settings from envFile (a dotenv file; a missing file is fine)
// and then from the process environment, which wins.
func Load(envFile string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read %s: %w", envFile, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("stat %s: %w", envFile, err)
		}
	}
	v.AutomaticEnv()

	cfg := Config{
		ListenAddr:           v.GetString("listen_addr"),
		AppEnv:               v.GetString("app_env"),
		LogLevel:             v.GetString("log_level"),
		LogFormat:            v.GetString("log_format"),
		StoreMode:            v.GetString("store_mode"),
		DatabaseURL:          v.GetString("database_url"),
		RedisAddr:            v.GetString("redis_addr"),
		RedisPassword:        v.GetString("redis_password"),
		RedisDB:              v.GetInt("redis_db"),
		StorageKeyPrefix:     v.GetString("storage_key_prefix"),
		StorageEncryptionKey: v.GetString("storage_encryption_key"),
		CatalogBaseURL:       v.GetString("catalog_base_url"),
		CatalogTimeout:       v.GetDuration("catalog_timeout"),
		CatalogMaxRetries:    v.GetInt("catalog_max_retries"),
		CatalogRetryBase:     v.GetDuration("catalog_retry_base"),
		CatalogRetryMax:      v.GetDuration("catalog_retry_max"),
		CatalogPageSize:      v.GetInt("catalog_page_size"),
		SearchDebounce:       v.GetDuration("search_debounce"),
		TracingEnabled:       v.GetBool("tracing_enabled"),
		TracingEndpoint:      v.GetString("otel_exporter_otlp_endpoint"),
		TracingInsecure:      v.GetBool("tracing_insecure"),
		TracingSamplingRatio: v.GetFloat64("tracing_sampling_ratio"),
		ServiceName:          v.GetString("service_name"),
	}

	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		return Config{}, fmt.Errorf("timezone: %w", err)
	}
	cfg.Location = loc

	money := []struct {
		key    string
		target *decimal.Decimal
	}{
		{"unit_price", &cfg.UnitPrice},
		{"tax_rate", &cfg.TaxRate},
		{"shipping_fee", &cfg.ShippingFee},
		{"free_shipping_over", &cfg.FreeShippingOver},
	}
	for _, m := range money {
		d, err := decimal.NewFromString(v.GetString(m.key))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", m.key, err)
		}
		*m.target = d
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreMode {
	case StoreModeMemory, StoreModePostgres, StoreModeRedis:
	default:
		return fmt.Errorf("store_mode must be memory, postgres or redis, got %q", c.StoreMode)
	}
	if c.StoreMode == StoreModePostgres && c.DatabaseURL == "" {
		return errors.New("database_url is required when store_mode is postgres")
	}
	if c.CatalogPageSize <= 0 {
		return fmt.Errorf("catalog_page_size must be positive, got %d", c.CatalogPageSize)
	}
	if c.CatalogMaxRetries < 0 {
		return fmt.Errorf("catalog_max_retries must not be negative, got %d", c.CatalogMaxRetries)
	}
	if c.TracingSamplingRatio < 0 || c.TracingSamplingRatio > 1 {
		return fmt.Errorf("tracing_sampling_ratio must be between 0 and 1, got %g", c.TracingSamplingRatio)
	}
	if c.UnitPrice.IsNegative() || c.TaxRate.IsNegative() || c.ShippingFee.IsNegative() {
		return errors.New("prices and rates must not be negative")
	}
	return nil
}
