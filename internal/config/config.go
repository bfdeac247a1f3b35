package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Naming     string           `mapstructure:"naming"` // identity | underscore_upper
	Schema     SchemaConfig     `mapstructure:"schema"`
	IDGen      IDGenConfig      `mapstructure:"idgen"`
	Instrument InstrumentConfig `mapstructure:"instrument"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port     int `mapstructure:"port"`
	MaxBatch int `mapstructure:"max_batch"` // upper bound for ids per request
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // postgres | sqlite; empty runs without a database
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
	Path     string `mapstructure:"path"` // directory for SQLite database files
}

type SchemaConfig struct {
	Overrides string `mapstructure:"overrides"` // YAML file of per-type configuration records
}

type IDGenConfig struct {
	MachineID int `mapstructure:"machine_id"` // negative derives it from network interfaces
}

type InstrumentConfig struct {
	BufferSize      int `mapstructure:"buffer_size"`
	FlushIntervalMs int `mapstructure:"flush_interval_ms"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// DSN returns the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.IsSQLite() {
		if d.Name == ":memory:" {
			return d.Name
		}
		return d.Path + "/" + d.Name + ".db"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsSQLite returns true if the driver is sqlite.
func (d DatabaseConfig) IsSQLite() bool {
	return d.Driver == "sqlite"
}

// Load reads entitysql.yaml from the working directory, if present, on top of
// the defaults. ENTITYSQL_* environment variables override both.
func Load() (*Config, error) {
	return load("")
}

// LoadFile is Load with an explicit config file.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("entitysql")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_batch", 1000)
	v.SetDefault("database.driver", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.path", "./data")
	v.SetDefault("naming", "identity")
	v.SetDefault("schema.overrides", "")
	v.SetDefault("idgen.machine_id", -1)
	v.SetDefault("instrument.buffer_size", 500)
	v.SetDefault("instrument.flush_interval_ms", 1000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)

	v.SetEnvPrefix("ENTITYSQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
