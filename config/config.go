package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Run provider kinds.
const (
	RunProviderConfig = "config"
	RunProviderSheets = "sheets"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the process-wide configuration.
type Config struct {
	Server       ServerConfig   `mapstructure:"server"`
	Database     DatabaseConfig `mapstructure:"db"`
	Redis        RedisConfig    `mapstructure:"redis"`
	Auth         AuthConfig     `mapstructure:"auth"`
	Mail         MailConfig     `mapstructure:"mail"`
	Log          LogConfig      `mapstructure:"log"`
	Google       GoogleConfig   `mapstructure:"google"`
	Catalog      CatalogConfig  `mapstructure:"catalog"`
	RunProvider  string         `mapstructure:"run_provider"`
	Timezone     string         `mapstructure:"timezone"`
	Runs         []RunSection   `mapstructure:"runs"`
	Superusers   []Superuser    `mapstructure:"superusers"`
	Patrollers   []string       `mapstructure:"patrollers"`
	Environment  string         `mapstructure:"environment"`
	loadLocation *time.Location
}

// ServerConfig HTTP server settings.
type ServerConfig struct {
	Port      int        `mapstructure:"port"`
	AppURL    string     `mapstructure:"app_url"`
	StaticDir string     `mapstructure:"static_dir"`
	CORS      CORSConfig `mapstructure:"cors"`
}

// CORSConfig lists origins allowed to call the API with credentials.
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL settings.
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // minutes
}

// DSN builds the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig Redis settings. Redis is optional.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig session and magic-link settings.
type AuthConfig struct {
	SessionSecret              string        `mapstructure:"session_secret"`
	SessionTTL                 time.Duration `mapstructure:"session_ttl"`
	MagicLinkTTL               time.Duration `mapstructure:"magic_link_ttl"`
	EnableLoginWithoutPassword bool          `mapstructure:"enable_login_without_password"`
	DisableMagicLink           bool          `mapstructure:"disable_magic_link"`
	LoginRateLimit             int           `mapstructure:"login_rate_limit"`
	LoginRateWindow            time.Duration `mapstructure:"login_rate_window"`
	Cookie                     CookieConfig  `mapstructure:"cookie"`
}

// CookieConfig session cookie attributes.
type CookieConfig struct {
	Name   string `mapstructure:"name"`
	Secure bool   `mapstructure:"secure"`
	Domain string `mapstructure:"domain"`
}

// MailConfig SMTP settings.
type MailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// LogConfig logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GoogleConfig OAuth client credentials for the Drive/Sheets link.
type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	FolderName   string `mapstructure:"folder_name"`
}

// CatalogConfig points at an optional standalone run catalog file.
type CatalogConfig struct {
	File string `mapstructure:"file"`
}

// RunSection groups run names under a section, as written in config.
type RunSection struct {
	Section string   `mapstructure:"section" yaml:"section"`
	Runs    []string `mapstructure:"runs"    yaml:"runs"`
}

// Superuser is an always-admin account declared in config.
type Superuser struct {
	Email string `mapstructure:"email"`
	Name  string `mapstructure:"name"`
}

// Load reads configuration from file and environment.
// Precedence: env > file > defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── defaults ──
	v.SetDefault("environment", "development")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.app_url", "http://localhost:3000")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:8080", "http://localhost:3000"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "runchecks")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.session_secret", "")
	v.SetDefault("auth.session_ttl", "168h")
	v.SetDefault("auth.magic_link_ttl", "15m")
	v.SetDefault("auth.enable_login_without_password", false)
	v.SetDefault("auth.disable_magic_link", false)
	v.SetDefault("auth.login_rate_limit", 5)
	v.SetDefault("auth.login_rate_window", "10m")
	v.SetDefault("auth.cookie.name", "bvsp.runcheck.session")
	v.SetDefault("auth.cookie.secure", false)

	v.SetDefault("mail.smtp_host", "")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.folder_name", "Bear Valley Run Checks")

	v.SetDefault("catalog.file", "")

	v.SetDefault("run_provider", RunProviderConfig)
	v.SetDefault("timezone", "America/Los_Angeles")

	// ── config file ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── environment ──
	v.SetEnvPrefix("RUNCHECKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Catalog.File != "" {
		sections, err := LoadCatalogFile(cfg.Catalog.File)
		if err != nil {
			return nil, err
		}
		cfg.Runs = sections
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadCatalogFile reads a standalone YAML list of sections and their runs.
func LoadCatalogFile(path string) ([]RunSection, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var doc struct {
		Runs []RunSection `yaml:"runs"`
	}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	return doc.Runs, nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	if len(c.Auth.SessionSecret) < 16 {
		return fmt.Errorf("%w: auth.session_secret must be at least 16 characters", ErrInvalidConfig)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port must be between 1 and 65535", ErrInvalidConfig)
	}
	switch c.RunProvider {
	case RunProviderConfig, RunProviderSheets:
	default:
		return fmt.Errorf("%w: unknown run_provider %q", ErrInvalidConfig, c.RunProvider)
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	c.loadLocation = loc
	return nil
}

// Location returns the configured timezone. Validate must have succeeded.
func (c *Config) Location() *time.Location {
	if c.loadLocation == nil {
		return time.UTC
	}
	return c.loadLocation
}

// IsProduction reports whether environment is "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// SuperuserEmails returns the lowercased superuser addresses.
func (c *Config) SuperuserEmails() []string {
	out := make([]string, 0, len(c.Superusers))
	for _, su := range c.Superusers {
		out = append(out, strings.ToLower(su.Email))
	}
	return out
}

// IsSuperuser reports whether email belongs to a configured superuser.
func (c *Config) IsSuperuser(email string) bool {
	if email == "" {
		return false
	}
	email = strings.ToLower(email)
	for _, su := range c.Superusers {
		if strings.ToLower(su.Email) == email {
			return true
		}
	}
	return false
}
