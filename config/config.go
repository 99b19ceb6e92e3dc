package config

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrUnknownTarget is returned when a target id is not configured.
var ErrUnknownTarget = errors.New("unknown target")

// Config holds all application configuration.
type Config struct {
	Fetcher  FetcherConfig     `mapstructure:"fetcher"`
	Store    StoreConfig       `mapstructure:"store"`
	Postgres PostgresConfig    `mapstructure:"postgres"`
	Server   ServerConfig      `mapstructure:"server"`
	Log      LogConfig         `mapstructure:"log"`
	Targets  map[string]Target `mapstructure:"targets"`
}

// FetcherConfig controls how product pages are downloaded.
type FetcherConfig struct {
	Mode      string        `mapstructure:"mode"` // "http", "colly" or "browser"
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	ChromeBin string        `mapstructure:"chrome_bin"`
	RateLimit time.Duration `mapstructure:"rate_limit"`
}

// StoreConfig selects the optional product archive.
type StoreConfig struct {
	Driver     string `mapstructure:"driver"` // "none", "postgres" or "sqlite"
	SQLitePath string `mapstructure:"sqlite_path"`
}

// PostgresConfig holds the connection settings used when Store.Driver is "postgres".
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ServerConfig holds the HTTP presenter settings.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Target is one selectable pipeline option: where to scrape from, where the
// raw table is written and where the cleaned table is written.
type Target struct {
	Label      string `mapstructure:"label"`
	SourceURL  string `mapstructure:"source_url"`
	InputPath  string `mapstructure:"input_path"`
	OutputPath string `mapstructure:"output_path"`
}

const baseURL = "https://webscraper.io/test-sites/e-commerce/allinone/computers/"

// DefaultTargets returns the built-in laptops and tablets targets.
func DefaultTargets() map[string]Target {
	return map[string]Target{
		"laptops": {
			Label:      "Laptops",
			SourceURL:  baseURL + "laptops",
			InputPath:  "data/raw/products.csv",
			OutputPath: "data/processed/cleaned_products.csv",
		},
		"tablets": {
			Label:      "Tablets",
			SourceURL:  baseURL + "tablets",
			InputPath:  "data/raw/productstablets.csv",
			OutputPath: "data/processed/cleaned_productstablets.csv",
		},
	}
}

// Load reads the .env file, an optional scraper.yaml and the environment,
// and returns a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return load(viper.New())
}

// LoadFile is like Load but reads the given config file instead of searching for scraper.yaml.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	if v.ConfigFileUsed() == "" {
		v.SetConfigName("scraper")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindPostgresEnv(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := mergeTargets(&cfg); err != nil {
		return nil, err
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return &cfg, nil
}

// bindPostgresEnv keeps the plain POSTGRES_* variable names working.
func bindPostgresEnv(v *viper.Viper) {
	for _, key := range []string{"host", "port", "user", "password", "db", "sslmode"} {
		_ = v.BindEnv("postgres."+key, "POSTGRES_"+strings.ToUpper(key), "SCRAPER_POSTGRES_"+strings.ToUpper(key))
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("fetcher.mode", "http")
	v.SetDefault("fetcher.timeout", "30s")
	v.SetDefault("fetcher.user_agent", "product-scraper/1.0")
	v.SetDefault("fetcher.chrome_bin", "")
	v.SetDefault("fetcher.rate_limit", "2s")

	v.SetDefault("store.driver", "none")
	v.SetDefault("store.sqlite_path", "data/products.db")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "scraper")
	v.SetDefault("postgres.password", "scraper123")
	v.SetDefault("postgres.db", "products_db")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
}

// mergeTargets fills in built-in targets and any fields a configured target left empty.
func mergeTargets(cfg *Config) error {
	defaults := DefaultTargets()
	if cfg.Targets == nil {
		cfg.Targets = make(map[string]Target, len(defaults))
	}
	for id, def := range defaults {
		t, ok := cfg.Targets[id]
		if !ok {
			cfg.Targets[id] = def
			continue
		}
		if err := mergo.Merge(&t, def); err != nil {
			return fmt.Errorf("config: merge target %q: %w", id, err)
		}
		cfg.Targets[id] = t
	}
	return nil
}

func validate(cfg *Config) error {
	switch cfg.Fetcher.Mode {
	case "http", "colly", "browser":
	default:
		return fmt.Errorf("fetcher mode must be 'http', 'colly' or 'browser', got: %s", cfg.Fetcher.Mode)
	}

	switch cfg.Store.Driver {
	case "none", "postgres", "sqlite":
	default:
		return fmt.Errorf("store driver must be 'none', 'postgres' or 'sqlite', got: %s", cfg.Store.Driver)
	}

	if cfg.Fetcher.Timeout < 0 {
		return fmt.Errorf("fetcher timeout must not be negative, got: %v", cfg.Fetcher.Timeout)
	}

	for id, t := range cfg.Targets {
		if t.SourceURL == "" || t.InputPath == "" || t.OutputPath == "" {
			return fmt.Errorf("target %q needs source_url, input_path and output_path", id)
		}
	}
	return nil
}

// Target looks up a configured target by id.
func (c *Config) Target(id string) (Target, error) {
	t, ok := c.Targets[strings.ToLower(id)]
	if !ok {
		return Target{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownTarget, id, strings.Join(c.TargetIDs(), ", "))
	}
	return t, nil
}

// TargetIDs returns the configured target ids, sorted.
func (c *Config) TargetIDs() []string {
	ids := make([]string, 0, len(c.Targets))
	for id := range c.Targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	p := c.Postgres
	return "host=" + p.Host +
		" port=" + p.Port +
		" user=" + p.User +
		" password=" + p.Password +
		" dbname=" + p.DB +
		" sslmode=" + p.SSLMode
}
