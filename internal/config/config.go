package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/awaistahir/grid-analytics/internal/engine"
	"github.com/spf13/viper"
)

// Readings drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverInfluxDB = "influxdb"
)

// EnvPrefix prefixes every environment override, e.g. GRID_READINGS_DRIVER
const EnvPrefix = "GRID"

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Readings ReadingsConfig `mapstructure:"readings"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	InfluxDB InfluxDBConfig `mapstructure:"influxdb"`
	Server   ServerConfig   `mapstructure:"server"`
	Engine   engine.Config  `mapstructure:"engine"`
}

// DatabaseConfig locates the SQLite registry
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ReadingsConfig selects where telemetry is read from
type ReadingsConfig struct {
	Driver string `mapstructure:"driver"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the libpq style connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// InfluxDBConfig holds InfluxDB v2 settings
type InfluxDBConfig struct {
	URL         string `mapstructure:"url"`
	Org         string `mapstructure:"org"`
	Token       string `mapstructure:"token"`
	Bucket      string `mapstructure:"bucket"`
	Measurement string `mapstructure:"measurement"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Dir returns the default configuration directory, $HOME/.grid-analytics
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".grid-analytics"
	}
	return filepath.Join(home, ".grid-analytics")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", filepath.Join(Dir(), "grid.db"))
	v.SetDefault("readings.driver", DriverSQLite)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "grid")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_conns", 20)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", time.Hour)

	v.SetDefault("influxdb.url", "http://localhost:8086")
	v.SetDefault("influxdb.org", "")
	v.SetDefault("influxdb.token", "")
	v.SetDefault("influxdb.bucket", "smart-grid-monitor")
	v.SetDefault("influxdb.measurement", "smart_device_readings")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 30*time.Second)

	d := engine.DefaultConfig()
	v.SetDefault("engine.overload_derating", d.OverloadDerating)
	v.SetDefault("engine.overload_ratio_threshold", d.OverloadRatioThreshold)
	v.SetDefault("engine.default_window_days", d.DefaultWindowDays)
	v.SetDefault("engine.customer_default_threshold", d.CustomerDefaultThreshold)
	v.SetDefault("engine.clamp_negative_deltas", d.ClampNegativeDeltas)
	v.SetDefault("engine.query_batch_size", d.QueryBatchSize)
	v.SetDefault("engine.max_parallel_queries", d.MaxParallelQueries)
	v.SetDefault("engine.humidity_scale", d.HumidityScale)
	v.SetDefault("engine.temperature_scale", d.TemperatureScale)
}

// Load reads configuration from defaults, the YAML file at path (or
// config.yaml in Dir when path is empty) and GRID_* environment variables,
// in increasing order of precedence. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(Dir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that have no usable fallback
func (c *Config) Validate() error {
	switch c.Readings.Driver {
	case DriverSQLite, DriverPostgres, DriverInfluxDB:
	default:
		return fmt.Errorf("unknown readings driver %q (want %s, %s or %s)",
			c.Readings.Driver, DriverSQLite, DriverPostgres, DriverInfluxDB)
	}

	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.Readings.Driver == DriverInfluxDB && c.InfluxDB.Bucket == "" {
		return errors.New("influxdb.bucket is required for the influxdb driver")
	}
	return nil
}
