package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

const envPrefix = "CARTAPI_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"http"`

	Session struct {
		Header        string        `koanf:"header"`
		Mode          string        `koanf:"mode"` // opaque | signed
		SigningSecret string        `koanf:"signing_secret"`
		Issuer        string        `koanf:"issuer"`
		TTL           time.Duration `koanf:"ttl"`
	} `koanf:"session"`

	Pricing struct {
		TaxRate  string `koanf:"tax_rate"`
		Currency string `koanf:"currency"`
		Scale    int32  `koanf:"scale"`
	} `koanf:"pricing"`

	Shipping struct {
		FlatRate string `koanf:"flat_rate"`
		FreeOver string `koanf:"free_over"` // empty = flat rate always applies
	} `koanf:"shipping"`

	Cart struct {
		Store        string        `koanf:"store"` // memory | redis | mysql
		OrphanPolicy string        `koanf:"orphan_policy"`
		CallTimeout  time.Duration `koanf:"call_timeout"`
	} `koanf:"cart"`

	Catalog struct {
		Source string `koanf:"source"` // memory | mysql
	} `koanf:"catalog"`

	MySQL struct {
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	} `koanf:"mysql"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Idempotency struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`

	Rabbit struct {
		Enabled     bool   `koanf:"enabled"`
		URL         string `koanf:"url"`
		StatusQueue string `koanf:"status_queue"`
		Prefetch    int    `koanf:"prefetch"`
	} `koanf:"rabbitmq"`

	Kafka struct {
		Enabled  bool     `koanf:"enabled"`
		Brokers  []string `koanf:"brokers"`
		GroupID  string   `koanf:"group_id"`
		ClientID string   `koanf:"client_id"`
		Version  string   `koanf:"version"`
		Topic    string   `koanf:"topic"`
	} `koanf:"kafka"`

	GRPC struct {
		HealthAddr string `koanf:"health_addr"` // empty disables the health server
	} `koanf:"grpc"`

	OTel struct {
		Endpoint    string  `koanf:"endpoint"` // empty disables export
		Insecure    bool    `koanf:"insecure"`
		ServiceName string  `koanf:"service_name"`
		SampleRatio float64 `koanf:"sample_ratio"`
	} `koanf:"otel"`

	Security struct {
		JWTSecret string         `koanf:"jwt_secret"`
		Issuer    string         `koanf:"issuer"`
		Audience  string         `koanf:"audience"`
		TTL       time.Duration  `koanf:"ttl"`
		Clients   []ClientConfig `koanf:"clients"`
	} `koanf:"security"`

	Payments struct {
		Provider        string `koanf:"provider"` // stripe | fake
		StripeSecretKey string `koanf:"stripe_secret_key"`
		WebhookPubPEM   string `koanf:"webhook_pub_pem"` // optional RSA key for X-Payment-Signature
	} `koanf:"payments"`
}

// ClientConfig is a service caller allowed to request tokens from /v1/token.
type ClientConfig struct {
	ID      string   `koanf:"id"`
	Secret  string   `koanf:"secret"`
	Perms   []string `koanf:"perms"`
	Enabled bool     `koanf:"enabled"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	if envName != "" {
		_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())
	}

	// 3) environment variables override (prefix CARTAPI_, nested with __)
	// e.g. CARTAPI_MYSQL__DSN, CARTAPI_PRICING__TAX_RATE
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "cart-api"
	}
	if c.Session.Header == "" {
		c.Session.Header = "sessionid"
	}
	if c.Session.Mode == "" {
		c.Session.Mode = "opaque"
	}
	if c.Pricing.Currency == "" {
		c.Pricing.Currency = "usd"
	}
	if c.Pricing.Scale == 0 {
		c.Pricing.Scale = 2
	}
	if c.Cart.Store == "" {
		c.Cart.Store = "memory"
	}
	if c.Cart.CallTimeout <= 0 {
		c.Cart.CallTimeout = 3 * time.Second
	}
	if c.Catalog.Source == "" {
		c.Catalog.Source = "memory"
	}
	if c.Payments.Provider == "" {
		c.Payments.Provider = "fake"
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return errors.New("app.http_addr required")
	}
	rate, err := c.TaxRate()
	if err != nil {
		return err
	}
	if rate.IsNegative() {
		return fmt.Errorf("pricing.tax_rate must be >= 0, got %s", rate)
	}
	if _, _, err := c.ShippingRates(); err != nil {
		return err
	}

	switch c.Session.Mode {
	case "opaque":
	case "signed":
		if c.Session.SigningSecret == "" {
			return errors.New("session.signing_secret required in signed mode")
		}
	default:
		return fmt.Errorf("unknown session.mode %q", c.Session.Mode)
	}

	switch c.Cart.Store {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("redis.addr required for cart.store=redis")
		}
	case "mysql":
		if c.MySQL.DSN == "" {
			return errors.New("mysql.dsn required for cart.store=mysql")
		}
	default:
		return fmt.Errorf("unknown cart.store %q", c.Cart.Store)
	}

	switch c.Cart.OrphanPolicy {
	case "", "drop", "fail":
	default:
		return fmt.Errorf("unknown cart.orphan_policy %q", c.Cart.OrphanPolicy)
	}

	switch c.Catalog.Source {
	case "memory":
	case "mysql":
		if c.MySQL.DSN == "" {
			return errors.New("mysql.dsn required for catalog.source=mysql")
		}
	default:
		return fmt.Errorf("unknown catalog.source %q", c.Catalog.Source)
	}

	switch c.Payments.Provider {
	case "fake":
	case "stripe":
		if c.Payments.StripeSecretKey == "" {
			return errors.New("payments.stripe_secret_key required for provider=stripe")
		}
	default:
		return fmt.Errorf("unknown payments.provider %q", c.Payments.Provider)
	}

	if len(c.Security.Clients) > 0 && c.Security.JWTSecret == "" {
		return errors.New("security.jwt_secret required when clients are configured")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return errors.New("kafka.brokers and kafka.topic required when kafka is enabled")
	}
	if c.Rabbit.Enabled && c.Rabbit.URL == "" {
		return errors.New("rabbitmq.url required when rabbitmq is enabled")
	}
	return nil
}

// TaxRate parses pricing.tax_rate; empty means the storefront default of 9%.
func (c Config) TaxRate() (decimal.Decimal, error) {
	if strings.TrimSpace(c.Pricing.TaxRate) == "" {
		return decimal.RequireFromString("0.09"), nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(c.Pricing.TaxRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("pricing.tax_rate: %w", err)
	}
	return d, nil
}

// ShippingRates returns the flat fee and the optional free-shipping threshold.
func (c Config) ShippingRates() (flat decimal.Decimal, freeOver *decimal.Decimal, err error) {
	flat = decimal.Zero
	if s := strings.TrimSpace(c.Shipping.FlatRate); s != "" {
		if flat, err = decimal.NewFromString(s); err != nil {
			return decimal.Zero, nil, fmt.Errorf("shipping.flat_rate: %w", err)
		}
		if flat.IsNegative() {
			return decimal.Zero, nil, errors.New("shipping.flat_rate must be >= 0")
		}
	}
	if s := strings.TrimSpace(c.Shipping.FreeOver); s != "" {
		t, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, nil, fmt.Errorf("shipping.free_over: %w", err)
		}
		freeOver = &t
	}
	return flat, freeOver, nil
}
