// koanf_api
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/Kellerman81/go_movie_loader/apperrors"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const (
	Configfile = "./config/config.toml"
	EnvPrefix  = "MOVIELOAD_"

	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite3"
)

type Config struct {
	General  GeneralConfig  `koanf:"general"`
	Database DatabaseConfig `koanf:"database"`
	Import   ImportConfig   `koanf:"import"`
}

type GeneralConfig struct {
	LogLevel      string `koanf:"log_level"`
	LogFile       string `koanf:"log_file"`
	LogFileSize   int    `koanf:"log_file_size"`
	LogFileCount  uint8  `koanf:"log_file_count"`
	LogCompress   bool   `koanf:"log_compress"`
	LogColorize   bool   `koanf:"log_colorize"`
	LogToFileOnly bool   `koanf:"log_to_file_only"`
	TimeFormat    string `koanf:"time_format"`
	LogZeroValues bool   `koanf:"log_zero_values"`
}

type DatabaseConfig struct {
	Driver       string `koanf:"driver"`
	DSN          string `koanf:"dsn"`
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	Name         string `koanf:"name"`
	User         string `koanf:"user"`
	Password     string `koanf:"password"`
	SSLMode      string `koanf:"sslmode"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	Migrate      bool   `koanf:"migrate"`
}

type ImportConfig struct {
	File          string  `koanf:"file"`
	Comma         string  `koanf:"comma"`
	Delimiter     string  `koanf:"delimiter"`
	BatchSize     int     `koanf:"batch_size"`
	RecencyYears  int     `koanf:"recency_years"`
	MoneyDivisor  float64 `koanf:"money_divisor"`
	Workers       int     `koanf:"workers"`
	Strict        bool    `koanf:"strict"`
	ProgressEvery int     `koanf:"progress_every"`
}

func defaults() map[string]any {
	return map[string]any{
		"general.log_level":       "info",
		"general.log_file_size":   10,
		"general.log_file_count":  5,
		"database.driver":         DriverPostgres,
		"database.host":           "localhost",
		"database.port":           5432,
		"database.sslmode":        "disable",
		"database.max_open_conns": 8,
		"database.max_idle_conns": 4,
		"database.migrate":        true,
		"import.comma":            ",",
		"import.delimiter":        ",",
		"import.batch_size":       1000,
		"import.recency_years":    10,
		"import.money_divisor":    1_000_000_000.0,
		"import.workers":          4,
		"import.progress_every":   10000,
	}
}

// Load reads defaults, then the toml file at configfile (skipped when empty),
// then MOVIELOAD_ environment variables. A .env file in the working directory
// is loaded into the environment first when present. Section and key are
// separated by a double underscore: MOVIELOAD_DATABASE__DSN.
func Load(configfile string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, apperrors.Wrap(apperrors.ErrClassConfig, "load .env", err)
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, apperrors.Wrap(apperrors.ErrClassConfig, "load defaults", err)
	}

	if configfile != "" {
		if _, err := os.Stat(configfile); err != nil {
			return Config{}, apperrors.WrapWithMessageFor(apperrors.ErrClassConfig, "load config", "config file not readable", configfile, err)
		}
		if err := k.Load(file.Provider(configfile), toml.Parser()); err != nil {
			return Config{}, apperrors.WrapWithMessageFor(apperrors.ErrClassConfig, "load config", "config file invalid", configfile, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, apperrors.Wrap(apperrors.ErrClassConfig, "load environment", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, apperrors.Wrap(apperrors.ErrClassConfig, "unmarshal config", err)
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Validate checks the settings the loader cannot run without.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSqlite:
	default:
		return apperrors.WrapWithMessageFor(apperrors.ErrClassConfig, "validate", "unsupported driver", c.Database.Driver, nil)
	}
	if c.Database.Driver == DriverSqlite && c.Database.DSN == "" {
		return apperrors.New(apperrors.ErrClassConfig, "validate", "database.dsn is required for sqlite3")
	}
	if c.Import.File == "" {
		return apperrors.New(apperrors.ErrClassConfig, "validate", "import.file is empty")
	}
	if c.Import.BatchSize <= 0 {
		return apperrors.New(apperrors.ErrClassConfig, "validate", "import.batch_size must be positive")
	}
	if c.Import.Workers <= 0 {
		return apperrors.New(apperrors.ErrClassConfig, "validate", "import.workers must be positive")
	}
	if c.Import.MoneyDivisor <= 0 {
		return apperrors.New(apperrors.ErrClassConfig, "validate", "import.money_divisor must be positive")
	}
	if utf8.RuneCountInString(c.Import.Comma) != 1 {
		return apperrors.WrapWithMessageFor(apperrors.ErrClassConfig, "validate", "import.comma must be a single character", c.Import.Comma, nil)
	}
	if c.Import.Delimiter == "" {
		return apperrors.New(apperrors.ErrClassConfig, "validate", "import.delimiter is empty")
	}
	return nil
}

// DataSource returns the configured dsn or, for postgres, one built from the
// host/port/name/user/password settings.
func (d DatabaseConfig) DataSource() string {
	if d.DSN != "" || d.Driver != DriverPostgres {
		return d.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}
	if d.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(d.SSLMode)
	}
	return u.String()
}

// CommaRune returns the csv field separator.
func (i ImportConfig) CommaRune() rune {
	r, _ := utf8.DecodeRuneInString(i.Comma)
	return r
}
