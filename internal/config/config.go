package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ARTSHOP_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		Env      string `koanf:"env"`
		LogLevel string `koanf:"log_level"`
	} `koanf:"app"`

	HTTP struct {
		Port               string        `koanf:"port"`
		RequestTimeout     time.Duration `koanf:"request_timeout"`
		ReadTimeout        time.Duration `koanf:"read_timeout"`
		WriteTimeout       time.Duration `koanf:"write_timeout"`
		IdleTimeout        time.Duration `koanf:"idle_timeout"`
		ShutdownTimeout    time.Duration `koanf:"shutdown_timeout"`
		MaxRequestBodySize int64         `koanf:"max_request_body_size"`
		SecureCookies      bool          `koanf:"secure_cookies"`
	} `koanf:"http"`

	Mongo struct {
		URI                    string        `koanf:"uri"`
		Database               string        `koanf:"database"`
		ConnectTimeout         time.Duration `koanf:"connect_timeout"`
		ServerSelectionTimeout time.Duration `koanf:"server_selection_timeout"`
		MaxPoolSize            uint64        `koanf:"max_pool_size"`
		MinPoolSize            uint64        `koanf:"min_pool_size"`
		Migrate                bool          `koanf:"migrate"`
	} `koanf:"mongo"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Cache struct {
		OrderTTL time.Duration `koanf:"order_ttl"`
		CartTTL  time.Duration `koanf:"cart_ttl"`
	} `koanf:"cache"`

	Idempotency struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`

	Kafka struct {
		Brokers       []string      `koanf:"brokers"`
		TopicEvents   string        `koanf:"topic_events"`
		PollEvery     time.Duration `koanf:"poll_every"`
		ConsumerGroup string        `koanf:"consumer_group"`
	} `koanf:"kafka"`

	Auth struct {
		JWTSecret string        `koanf:"jwt_secret"`
		Issuer    string        `koanf:"issuer"`
		TokenTTL  time.Duration `koanf:"token_ttl"`
	} `koanf:"auth"`

	Orders struct {
		StrictTransitions bool `koanf:"strict_transitions"`
		RecentSalesLimit  int  `koanf:"recent_sales_limit"`
	} `koanf:"orders"`

	Payment struct {
		BaseURL          string        `koanf:"base_url"`
		SecretKey        string        `koanf:"secret_key"`
		Timeout          time.Duration `koanf:"timeout"`
		BreakerFailures  uint32        `koanf:"breaker_failures"`
		BreakerOpenSleep time.Duration `koanf:"breaker_open_sleep"`
	} `koanf:"payment"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"app.name":                       "artshop",
		"app.env":                        "production",
		"app.log_level":                  "info",
		"http.port":                      "8080",
		"http.request_timeout":           "30s",
		"http.read_timeout":              "10s",
		"http.write_timeout":             "10s",
		"http.idle_timeout":              "60s",
		"http.shutdown_timeout":          "10s",
		"http.max_request_body_size":     1 << 20,
		"http.secure_cookies":            false,
		"mongo.database":                 "artshop",
		"mongo.connect_timeout":          "10s",
		"mongo.server_selection_timeout": "5s",
		"mongo.max_pool_size":            100,
		"mongo.min_pool_size":            10,
		"mongo.migrate":                  true,
		"redis.addr":                     "localhost:6379",
		"redis.db":                       0,
		"cache.order_ttl":                "15m",
		"cache.cart_ttl":                 "168h",
		"idempotency.ttl":                "24h",
		"kafka.topic_events":             "order-status-events",
		"kafka.poll_every":               "1s",
		"kafka.consumer_group":           "artshop-order-cache",
		"auth.issuer":                    "artshop",
		"auth.token_ttl":                 "720h",
		"orders.strict_transitions":      false,
		"orders.recent_sales_limit":      5,
		"payment.base_url":               "https://api.tosspayments.com",
		"payment.timeout":                "5s",
		"payment.breaker_failures":       5,
		"payment.breaker_open_sleep":     "30s",
	}
}

// Load layers defaults, the optional YAML file named by CONFIG_FILE and
// ARTSHOP_ environment variables (nested with __, e.g. ARTSHOP_MONGO__URI).
func Load() (Config, error) {
	return load(os.Getenv("CONFIG_FILE"))
}

func load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envKeyValue), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// listKeys are split on commas when they come from the environment.
var listKeys = map[string]bool{
	"kafka.brokers": true,
}

func envKeyValue(key, value string) (string, interface{}) {
	key = strings.TrimPrefix(key, envPrefix)
	key = strings.ToLower(strings.ReplaceAll(key, "__", "."))
	if !listKeys[key] {
		return key, value
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

func (c Config) Validate() error {
	var errs []error
	if c.Mongo.URI == "" {
		errs = append(errs, errors.New("mongo.uri required"))
	}
	if c.Mongo.Database == "" {
		errs = append(errs, errors.New("mongo.database required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret required"))
	}
	if c.HTTP.Port == "" {
		errs = append(errs, errors.New("http.port required"))
	}
	if c.Orders.RecentSalesLimit < 1 {
		errs = append(errs, errors.New("orders.recent_sales_limit must be positive"))
	}
	return errors.Join(errs...)
}

// PaymentEnabled reports whether a payment provider secret is configured.
func (c Config) PaymentEnabled() bool {
	return c.Payment.SecretKey != ""
}

// KafkaEnabled reports whether status events should be published.
func (c Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
