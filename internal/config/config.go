package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"Server"`
	Database DatabaseConfig `mapstructure:"Database"`
	Store    StoreConfig    `mapstructure:"Store"`
	Fetcher  FetcherConfig  `mapstructure:"Fetcher"`
	Archive  ArchiveConfig  `mapstructure:"Archive"`
	Log      LogConfig      `mapstructure:"Log"`
}

type ServerConfig struct {
	Port     string `mapstructure:"Port"`
	GRPCPort string `mapstructure:"GRPCPort"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"Driver"`
	Host     string `mapstructure:"Host"`
	Port     string `mapstructure:"Port"`
	User     string `mapstructure:"User"`
	Password string `mapstructure:"Password"`
	Name     string `mapstructure:"Name"`
	SSLMode  string `mapstructure:"SSLMode"`
	// Path is the database file for the sqlite driver.
	Path string `mapstructure:"Path"`
}

// StoreConfig describes the networked content store (an S3-compatible bucket).
type StoreConfig struct {
	Enabled         bool   `mapstructure:"Enabled"`
	Endpoint        string `mapstructure:"Endpoint"`
	Region          string `mapstructure:"Region"`
	Bucket          string `mapstructure:"Bucket"`
	AccessKeyID     string `mapstructure:"AccessKeyID"`
	SecretAccessKey string `mapstructure:"SecretAccessKey"`
	UsePathStyle    bool   `mapstructure:"UsePathStyle"`
	AutoPin         bool   `mapstructure:"AutoPin"`
	// GatewayURL is the public base address of the bucket. Empty disables links.
	GatewayURL string `mapstructure:"GatewayURL"`
}

type FetcherConfig struct {
	Mode              string        `mapstructure:"Mode"`
	Timeout           time.Duration `mapstructure:"Timeout"`
	MaxBodyBytes      int64         `mapstructure:"MaxBodyBytes"`
	BrowserControlURL string        `mapstructure:"BrowserControlURL"`
	// UserAgentSeed pins the User-Agent rotation. Zero seeds from the clock.
	UserAgentSeed uint64 `mapstructure:"UserAgentSeed"`
}

type ArchiveConfig struct {
	RecordedBy  string `mapstructure:"RecordedBy"`
	Concurrency int    `mapstructure:"Concurrency"`
}

type LogConfig struct {
	Level       string `mapstructure:"Level"`
	Development bool   `mapstructure:"Development"`
}

var envBindings = map[string]string{
	"Server.Port":               "HTTP_PORT",
	"Server.GRPCPort":           "GRPC_PORT",
	"Database.Driver":           "DATABASE_DRIVER",
	"Database.Host":             "DATABASE_HOST",
	"Database.Port":             "DATABASE_PORT",
	"Database.User":             "DATABASE_USER",
	"Database.Password":         "DATABASE_PASSWORD",
	"Database.Name":             "DATABASE_NAME",
	"Database.SSLMode":          "DATABASE_SSLMODE",
	"Database.Path":             "DATABASE_PATH",
	"Store.Enabled":             "STORE_ENABLED",
	"Store.Endpoint":            "STORE_ENDPOINT",
	"Store.Region":              "STORE_REGION",
	"Store.Bucket":              "STORE_BUCKET",
	"Store.AccessKeyID":         "STORE_ACCESS_KEY_ID",
	"Store.SecretAccessKey":     "STORE_SECRET_ACCESS_KEY",
	"Store.UsePathStyle":        "STORE_USE_PATH_STYLE",
	"Store.AutoPin":             "STORE_AUTO_PIN",
	"Store.GatewayURL":          "STORE_GATEWAY_URL",
	"Fetcher.Mode":              "FETCHER_MODE",
	"Fetcher.Timeout":           "FETCHER_TIMEOUT",
	"Fetcher.MaxBodyBytes":      "FETCHER_MAX_BODY_BYTES",
	"Fetcher.BrowserControlURL": "FETCHER_BROWSER_CONTROL_URL",
	"Fetcher.UserAgentSeed":     "FETCHER_USER_AGENT_SEED",
	"Archive.RecordedBy":        "ARCHIVE_RECORDED_BY",
	"Archive.Concurrency":       "ARCHIVE_CONCURRENCY",
	"Log.Level":                 "LOG_LEVEL",
	"Log.Development":           "LOG_DEVELOPMENT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "2525")
	v.SetDefault("Server.GRPCPort", "50051")
	v.SetDefault("Database.Driver", DriverPostgres)
	v.SetDefault("Database.SSLMode", "disable")
	v.SetDefault("Database.Path", "veritas.db")
	v.SetDefault("Store.Enabled", true)
	v.SetDefault("Store.Region", "us-east-1")
	v.SetDefault("Store.AutoPin", true)
	v.SetDefault("Fetcher.Mode", FetchModeHTTP)
	v.SetDefault("Fetcher.Timeout", 30*time.Second)
	v.SetDefault("Fetcher.MaxBodyBytes", int64(10<<20))
	v.SetDefault("Archive.RecordedBy", "system")
	v.SetDefault("Archive.Concurrency", 1)
	v.SetDefault("Log.Level", "info")
}

// NewConfig loads configuration from an env-style file. Environment variables
// override file values; a missing file is not an error.
func NewConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			fmt.Printf("Warning: using only environment variables: %v\n", err)
		} else {
			// env files carry flat KEY=value pairs; map them onto the nested keys.
			for key, env := range envBindings {
				if v.IsSet(strings.ToLower(env)) && !v.InConfig(key) {
					v.SetDefault(key, v.Get(strings.ToLower(env)))
				}
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

// Validate checks required fields and clamps values that have a floor.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" ||
			c.Database.Port == "" ||
			c.Database.User == "" ||
			c.Database.Password == "" ||
			c.Database.Name == "" {
			return fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
				c.Database.Host, c.Database.Port, c.Database.User, c.Database.Name)
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database configuration is incomplete: sqlite path is required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Fetcher.Mode {
	case FetchModeHTTP, FetchModeBrowser:
	default:
		return fmt.Errorf("unsupported fetcher mode %q", c.Fetcher.Mode)
	}

	if c.Fetcher.Timeout <= 0 {
		c.Fetcher.Timeout = 30 * time.Second
	}
	if c.Archive.Concurrency < 1 {
		c.Archive.Concurrency = 1
	}
	if c.Archive.RecordedBy == "" {
		c.Archive.RecordedBy = "system"
	}

	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == DriverSQLite {
		return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)", c.Path)
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

// GetURL returns the URL form used by golang-migrate.
func (c *DatabaseConfig) GetURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}
