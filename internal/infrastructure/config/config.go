package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once     sync.Once
	instance *Config
)

// Config holds all application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Source   SourceConfig   `mapstructure:"source"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Keycloak KeycloakConfig `mapstructure:"keycloak"`
	Phone    PhoneConfig    `mapstructure:"phone"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Export   ExportConfig   `mapstructure:"export"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	Timezone string `mapstructure:"timezone"` // for source timestamps and delivery dates
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type MongoDBConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"`
	MinPoolSize    uint64        `mapstructure:"min_pool_size"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// PostgresConfig points at the Supabase database used as an order source
type PostgresConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	OrdersTable     string        `mapstructure:"orders_table"`
}

// SourceConfig selects where order lists for detection, customers and exports come from
type SourceConfig struct {
	Driver   string        `mapstructure:"driver"` // mongodb, supabase, sheets
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type SheetsConfig struct {
	CSVURL  string        `mapstructure:"csv_url"` // "Publish to web" CSV link
	Timeout time.Duration `mapstructure:"timeout"`
}

type JWTConfig struct {
	Secret           string        `mapstructure:"secret"`
	AccessTokenTTL   time.Duration `mapstructure:"access_token_ttl"`
	RefreshThreshold time.Duration `mapstructure:"refresh_threshold"`
	Issuer           string        `mapstructure:"issuer"`
}

// KeycloakConfig is optional; when URL is empty admins log in against the local store
type KeycloakConfig struct {
	URL          string `mapstructure:"url"`
	Realm        string `mapstructure:"realm"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

type PhoneConfig struct {
	DefaultRegion string              `mapstructure:"default_region"`
	CountryRules  []CountryRuleConfig `mapstructure:"country_rules"`
}

type CountryRuleConfig struct {
	Prefix           string `mapstructure:"prefix"`
	SubscriberLength int    `mapstructure:"subscriber_length"`
	LocalPrefix      string `mapstructure:"local_prefix"`
}

type DeliveryConfig struct {
	ExcludedWeekdays []string `mapstructure:"excluded_weekdays"` // home delivery only
}

type ExportConfig struct {
	CSVEncoding   string `mapstructure:"csv_encoding"` // big5, utf8
	SenderName    string `mapstructure:"sender_name"`
	SenderPhone   string `mapstructure:"sender_phone"`
	SenderAddress string `mapstructure:"sender_address"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Initialize sets up Viper with default configuration paths and environment bindings
func Initialize() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/oms")
	viper.AddConfigPath("$HOME/.oms")

	viper.SetEnvPrefix("OMS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("app.name", "oms")
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.timezone", "Asia/Taipei")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "10s")

	viper.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongodb.database", "oms")
	viper.SetDefault("mongodb.max_pool_size", 50)
	viper.SetDefault("mongodb.min_pool_size", 5)
	viper.SetDefault("mongodb.connect_timeout", "10s")

	viper.SetDefault("postgres.max_conns", 10)
	viper.SetDefault("postgres.min_conns", 0)
	viper.SetDefault("postgres.max_conn_lifetime", "30m")
	viper.SetDefault("postgres.max_conn_idle_time", "5m")
	viper.SetDefault("postgres.orders_table", "orders")

	viper.SetDefault("source.driver", "mongodb")
	viper.SetDefault("source.cache_ttl", "30s")

	viper.SetDefault("sheets.timeout", "15s")

	viper.SetDefault("jwt.secret", "change-this-secret-in-production")
	viper.SetDefault("jwt.access_token_ttl", "8h")
	viper.SetDefault("jwt.refresh_threshold", "30m")
	viper.SetDefault("jwt.issuer", "oms")

	viper.SetDefault("phone.default_region", "TW")
	viper.SetDefault("phone.country_rules", []map[string]any{
		{"prefix": "886", "subscriber_length": 9, "local_prefix": "0"},
	})

	viper.SetDefault("delivery.excluded_weekdays", []string{"sunday"})

	viper.SetDefault("export.csv_encoding", "big5")

	viper.SetDefault("logging.level", "debug")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("logging.output", "stdout")

	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{"Authorization", "Content-Type", "X-Request-ID"})

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
}

// Load returns the singleton config instance
func Load() (*Config, error) {
	var err error
	once.Do(func() {
		if err = Initialize(); err != nil {
			return
		}
		instance = &Config{}
		if err = viper.Unmarshal(instance); err != nil {
			err = fmt.Errorf("failed to unmarshal config: %w", err)
			return
		}
	})
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return instance, nil
}

// GetAddress returns the server address string
func (c *Config) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// ExcludedDeliveryDays parses the configured weekday names. Unknown names are ignored.
func (c *Config) ExcludedDeliveryDays() []time.Weekday {
	var days []time.Weekday
	for _, name := range c.Delivery.ExcludedWeekdays {
		for d := time.Sunday; d <= time.Saturday; d++ {
			if strings.EqualFold(strings.TrimSpace(name), d.String()) {
				days = append(days, d)
				break
			}
		}
	}
	return days
}

// Location resolves App.Timezone, falling back to UTC when it is unknown
func (c *Config) Location() *time.Location {
	if c.App.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
