package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"taxcore/internal/cit"
	"taxcore/internal/pit"
	"taxcore/internal/vat"
	"taxcore/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   logger.Config  `mapstructure:"logger"`
	Registry RegistryConfig `mapstructure:"registry"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Tax      TaxConfig      `mapstructure:"tax"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN builds the postgres connection URL.
func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

// RegistryConfig holds the business registry client settings
type RegistryConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RatePerSecond  float64       `mapstructure:"rate_per_second"`
	Burst          int           `mapstructure:"burst"`
	CacheMaxAge    time.Duration `mapstructure:"cache_max_age"`
	MatchThreshold int           `mapstructure:"match_threshold"`
}

// AuthConfig holds JWT settings
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// TaxConfig holds the statutory constants. Amounts and rates are decimal strings.
type TaxConfig struct {
	CashThreshold       string          `mapstructure:"cash_threshold"`
	CITRate             string          `mapstructure:"cit_rate"`
	SelfDeduction       string          `mapstructure:"self_deduction"`
	DependentDeduction  string          `mapstructure:"dependent_deduction"`
	ResidentFlatRate    string          `mapstructure:"resident_flat_rate"`
	NonResidentFlatRate string          `mapstructure:"non_resident_flat_rate"`
	FlatThreshold       string          `mapstructure:"flat_threshold"`
	PITBrackets         []BracketConfig `mapstructure:"pit_brackets"` // Empty = statutory ladder
	Workers             int             `mapstructure:"workers"`
}

// BracketConfig is one PIT bracket. An empty Upper marks the open top bracket.
type BracketConfig struct {
	Lower string `mapstructure:"lower"`
	Upper string `mapstructure:"upper"`
	Rate  string `mapstructure:"rate"`
}

// Load reads configs/.env (if present), an optional YAML file and the
// environment, in increasing order of precedence.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load configs/.env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// Registry defaults
	v.SetDefault("registry.base_url", "https://api.vietqr.io/v2")
	v.SetDefault("registry.timeout", 10*time.Second)
	v.SetDefault("registry.rate_per_second", 5.0)
	v.SetDefault("registry.burst", 5)
	v.SetDefault("registry.cache_max_age", 30*24*time.Hour)
	v.SetDefault("registry.match_threshold", 70)

	// Tax defaults
	v.SetDefault("tax.cash_threshold", "20000000")
	v.SetDefault("tax.cit_rate", "0.20")
	v.SetDefault("tax.self_deduction", "11000000")
	v.SetDefault("tax.dependent_deduction", "4400000")
	v.SetDefault("tax.resident_flat_rate", "0.10")
	v.SetDefault("tax.non_resident_flat_rate", "0.20")
	v.SetDefault("tax.flat_threshold", "2000000")
	v.SetDefault("tax.workers", 8)
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names kept from the original deployment scripts
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("database.host", "DB_HOST")
	_ = v.BindEnv("database.port", "DB_PORT")
	_ = v.BindEnv("database.user", "DB_USER")
	_ = v.BindEnv("database.password", "DB_PASSWORD")
	_ = v.BindEnv("database.name", "DB_NAME")
	_ = v.BindEnv("database.sslmode", "DB_SSLMODE")
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("registry.base_url", "TAX_REGISTRY_URL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Registry.Timeout <= 0 {
		return fmt.Errorf("registry.timeout must be positive")
	}
	if c.Registry.MatchThreshold < 0 || c.Registry.MatchThreshold > 100 {
		return fmt.Errorf("registry.match_threshold must be between 0 and 100")
	}

	if _, err := c.Tax.VAT(); err != nil {
		return err
	}
	if _, err := c.Tax.CIT(); err != nil {
		return err
	}
	pitCfg, err := c.Tax.PIT()
	if err != nil {
		return err
	}
	if err := pitCfg.Validate(); err != nil {
		return fmt.Errorf("tax.pit_brackets: %w", err)
	}
	return nil
}

// VAT converts the tax section into the validator's constants.
func (t TaxConfig) VAT() (vat.Config, error) {
	threshold, err := parseAmount("tax.cash_threshold", t.CashThreshold)
	if err != nil {
		return vat.Config{}, err
	}
	return vat.Config{CashThreshold: threshold}, nil
}

func (t TaxConfig) CIT() (cit.Config, error) {
	rate, err := parseRate("tax.cit_rate", t.CITRate)
	if err != nil {
		return cit.Config{}, err
	}
	return cit.Config{Rate: rate}, nil
}

// PIT builds the PIT constants. An empty bracket list keeps the statutory ladder.
func (t TaxConfig) PIT() (pit.Config, error) {
	cfg := pit.DefaultConfig()

	fields := []struct {
		key string
		raw string
		dst *decimal.Decimal
		fn  func(string, string) (decimal.Decimal, error)
	}{
		{"tax.self_deduction", t.SelfDeduction, &cfg.SelfDeduction, parseAmount},
		{"tax.dependent_deduction", t.DependentDeduction, &cfg.DependentDeduction, parseAmount},
		{"tax.flat_threshold", t.FlatThreshold, &cfg.FlatThreshold, parseAmount},
		{"tax.resident_flat_rate", t.ResidentFlatRate, &cfg.ResidentFlatRate, parseRate},
		{"tax.non_resident_flat_rate", t.NonResidentFlatRate, &cfg.NonResidentFlatRate, parseRate},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		val, err := f.fn(f.key, f.raw)
		if err != nil {
			return pit.Config{}, err
		}
		*f.dst = val
	}

	if len(t.PITBrackets) == 0 {
		return cfg, nil
	}
	cfg.Brackets = make([]pit.Bracket, 0, len(t.PITBrackets))
	for i, b := range t.PITBrackets {
		key := fmt.Sprintf("tax.pit_brackets[%d]", i)
		lower, err := parseAmount(key+".lower", b.Lower)
		if err != nil {
			return pit.Config{}, err
		}
		rate, err := parseRate(key+".rate", b.Rate)
		if err != nil {
			return pit.Config{}, err
		}
		bracket := pit.Bracket{Lower: lower, Rate: rate}
		if b.Upper != "" {
			upper, err := parseAmount(key+".upper", b.Upper)
			if err != nil {
				return pit.Config{}, err
			}
			bracket.Upper = &upper
		}
		cfg.Brackets = append(cfg.Brackets, bracket)
	}
	return cfg, nil
}

func parseAmount(key, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid amount %q: %w", key, raw, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

func parseRate(key, raw string) (decimal.Decimal, error) {
	d, err := parseAmount(key, raw)
	if err != nil {
		return decimal.Zero, err
	}
	if d.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("%s must be a fraction between 0 and 1, got %s", key, raw)
	}
	return d, nil
}
