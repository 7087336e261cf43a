package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=banking_ledger_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"
const defaultSigningKey = "development-signing-key-change-me-0123456789"
const defaultRateAPIBaseURL = "https://api.freecurrencyapi.com"

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

type Config struct {
	Environment          string
	HTTPAddress          string
	StorageDriver        string
	DatabaseDSN          string
	SQLitePath           string
	MigrationsDir        string
	JWTSigningKey        string
	JWTIssuer            string
	JWTAudience          string
	TokenTTL             time.Duration
	IssueTokenOnRegister bool
	MaxPageSize          int
	RateAPIBaseURL       string
	RateAPIKey           string
	RateBaseCurrency     string
	RateAPITimeout       time.Duration
	RateCacheTTL         time.Duration
	MetricsEnabled       bool
}

func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// fileConfig mirrors the optional TOML file named by CONFIG_FILE.
type fileConfig struct {
	Environment string `toml:"environment"`
	HTTP        struct {
		Address string `toml:"address"`
	} `toml:"http"`
	Storage struct {
		Driver        string `toml:"driver"`
		DatabaseDSN   string `toml:"database_dsn"`
		SQLitePath    string `toml:"sqlite_path"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"storage"`
	Auth struct {
		SigningKey           string `toml:"signing_key"`
		Issuer               string `toml:"issuer"`
		Audience             string `toml:"audience"`
		TokenTTL             string `toml:"token_ttl"`
		IssueTokenOnRegister *bool  `toml:"issue_token_on_register"`
	} `toml:"auth"`
	Ledger struct {
		MaxPageSize int `toml:"max_page_size"`
	} `toml:"ledger"`
	Rates struct {
		BaseURL      string `toml:"base_url"`
		APIKey       string `toml:"api_key"`
		BaseCurrency string `toml:"base_currency"`
		Timeout      string `toml:"timeout"`
		CacheTTL     string `toml:"cache_ttl"`
	} `toml:"rates"`
	Metrics struct {
		Enabled *bool `toml:"enabled"`
	} `toml:"metrics"`
}

func Default() Config {
	return Config{
		Environment:          "production",
		HTTPAddress:          ":8080",
		StorageDriver:        StorageMemory,
		DatabaseDSN:          normalizeConnectionString(defaultConnectionString),
		SQLitePath:           filepath.Join("data", "banking.db"),
		MigrationsDir:        filepath.Join("src", "migrations"),
		JWTSigningKey:        defaultSigningKey,
		JWTIssuer:            "banking-ledger",
		JWTAudience:          "banking-ledger-clients",
		TokenTTL:             time.Hour,
		IssueTokenOnRegister: false,
		MaxPageSize:          10,
		RateAPIBaseURL:       defaultRateAPIBaseURL,
		RateBaseCurrency:     "USD",
		RateAPITimeout:       5 * time.Second,
		RateCacheTTL:         10 * time.Minute,
		MetricsEnabled:       true,
	}
}

// Load resolves configuration from defaults, an optional .env file, an
// optional TOML file (CONFIG_FILE) and finally the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []string

	switch c.StorageDriver {
	case StorageMemory, StoragePostgres, StorageSQLite:
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_DRIVER must be one of %s, %s, %s", StorageMemory, StoragePostgres, StorageSQLite))
	}
	if len(c.JWTSigningKey) < 32 {
		errs = append(errs, "JWT_SIGNING_KEY must be at least 32 bytes")
	}
	if !c.IsDevelopment() && c.JWTSigningKey == defaultSigningKey {
		errs = append(errs, "JWT_SIGNING_KEY must be set outside development")
	}
	if strings.TrimSpace(c.JWTIssuer) == "" {
		errs = append(errs, "JWT_ISSUER is required")
	}
	if strings.TrimSpace(c.JWTAudience) == "" {
		errs = append(errs, "JWT_AUDIENCE is required")
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, "TOKEN_TTL must be greater than zero")
	}
	if c.MaxPageSize <= 0 {
		errs = append(errs, "MAX_PAGE_SIZE must be greater than zero")
	}
	if len(strings.TrimSpace(c.RateBaseCurrency)) != 3 {
		errs = append(errs, "RATE_BASE_CURRENCY must be 3 characters")
	}
	// Without an API key the built-in USD rate table is served.
	if strings.TrimSpace(c.RateAPIKey) == "" && !strings.EqualFold(strings.TrimSpace(c.RateBaseCurrency), "USD") {
		errs = append(errs, "RATE_BASE_CURRENCY other than USD requires RATE_API_KEY")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func applyFile(cfg *Config, path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("decode config file %q: %w", path, err)
	}

	setString(&cfg.Environment, fc.Environment)
	setString(&cfg.HTTPAddress, fc.HTTP.Address)
	setString(&cfg.StorageDriver, strings.ToLower(fc.Storage.Driver))
	if dsn := strings.TrimSpace(fc.Storage.DatabaseDSN); dsn != "" {
		cfg.DatabaseDSN = normalizeConnectionString(dsn)
	}
	setString(&cfg.SQLitePath, fc.Storage.SQLitePath)
	setString(&cfg.MigrationsDir, fc.Storage.MigrationsDir)
	setString(&cfg.JWTSigningKey, fc.Auth.SigningKey)
	setString(&cfg.JWTIssuer, fc.Auth.Issuer)
	setString(&cfg.JWTAudience, fc.Auth.Audience)
	if err := setDuration(&cfg.TokenTTL, "auth.token_ttl", fc.Auth.TokenTTL); err != nil {
		return err
	}
	if fc.Auth.IssueTokenOnRegister != nil {
		cfg.IssueTokenOnRegister = *fc.Auth.IssueTokenOnRegister
	}
	if fc.Ledger.MaxPageSize != 0 {
		cfg.MaxPageSize = fc.Ledger.MaxPageSize
	}
	setString(&cfg.RateAPIBaseURL, fc.Rates.BaseURL)
	setString(&cfg.RateAPIKey, fc.Rates.APIKey)
	setString(&cfg.RateBaseCurrency, strings.ToUpper(fc.Rates.BaseCurrency))
	if err := setDuration(&cfg.RateAPITimeout, "rates.timeout", fc.Rates.Timeout); err != nil {
		return err
	}
	if err := setDuration(&cfg.RateCacheTTL, "rates.cache_ttl", fc.Rates.CacheTTL); err != nil {
		return err
	}
	if fc.Metrics.Enabled != nil {
		cfg.MetricsEnabled = *fc.Metrics.Enabled
	}

	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Environment, os.Getenv("ENVIRONMENT"))
	setString(&cfg.HTTPAddress, os.Getenv("HTTP_ADDRESS"))
	setString(&cfg.StorageDriver, strings.ToLower(os.Getenv("STORAGE_DRIVER")))
	if conn := strings.TrimSpace(os.Getenv("DATABASE_DSN")); conn != "" {
		cfg.DatabaseDSN = normalizeConnectionString(conn)
	}
	setString(&cfg.SQLitePath, os.Getenv("SQLITE_PATH"))
	setString(&cfg.MigrationsDir, os.Getenv("MIGRATIONS_DIR"))
	setString(&cfg.JWTSigningKey, os.Getenv("JWT_SIGNING_KEY"))
	setString(&cfg.JWTIssuer, os.Getenv("JWT_ISSUER"))
	setString(&cfg.JWTAudience, os.Getenv("JWT_AUDIENCE"))
	setString(&cfg.RateAPIBaseURL, os.Getenv("RATE_API_BASE_URL"))
	setString(&cfg.RateAPIKey, os.Getenv("RATE_API_KEY"))
	setString(&cfg.RateBaseCurrency, strings.ToUpper(os.Getenv("RATE_BASE_CURRENCY")))

	if err := setDuration(&cfg.TokenTTL, "TOKEN_TTL", os.Getenv("TOKEN_TTL")); err != nil {
		return err
	}
	if err := setDuration(&cfg.RateAPITimeout, "RATE_API_TIMEOUT", os.Getenv("RATE_API_TIMEOUT")); err != nil {
		return err
	}
	if err := setDuration(&cfg.RateCacheTTL, "RATE_CACHE_TTL", os.Getenv("RATE_CACHE_TTL")); err != nil {
		return err
	}
	if err := setBool(&cfg.IssueTokenOnRegister, "ISSUE_TOKEN_ON_REGISTER", os.Getenv("ISSUE_TOKEN_ON_REGISTER")); err != nil {
		return err
	}
	if err := setBool(&cfg.MetricsEnabled, "METRICS_ENABLED", os.Getenv("METRICS_ENABLED")); err != nil {
		return err
	}
	if raw := strings.TrimSpace(os.Getenv("MAX_PAGE_SIZE")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("MAX_PAGE_SIZE must be an integer: %w", err)
		}
		cfg.MaxPageSize = size
	}

	return nil
}

func setString(dst *string, raw string) {
	if v := strings.TrimSpace(raw); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name string, raw string) error {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s must be a duration: %w", name, err)
	}
	*dst = d
	return nil
}

func setBool(dst *bool, name string, raw string) error {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s must be a boolean: %w", name, err)
	}
	*dst = b
	return nil
}

// normalizeConnectionString accepts either a libpq URL or the
// "Key=Value;Key=Value" form and returns a libpq keyword/value string.
func normalizeConnectionString(raw string) string {
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
