// Package config loads dblayer options from dblayer.yaml, DBLAYER_*
// environment variables and a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/juju/loggo"
	"github.com/spf13/viper"

	"github.com/ridoystarlord/dblayer/dialect"
	"github.com/ridoystarlord/dblayer/layer"
	"github.com/ridoystarlord/dblayer/runner"
)

var logger = loggo.GetLogger("dblayer.config")

// Options configure a connection and the diagnostics of the layer.
type Options struct {
	DatabaseURL string `mapstructure:"database_url"`

	// Dialect overrides the dialect derived from the URL scheme.
	Dialect string `mapstructure:"dialect"`

	// Driver selects the PostgreSQL client: pgx (default) or pq.
	Driver string `mapstructure:"driver"`

	// Schema is the schema definition file used by the CLI.
	Schema string `mapstructure:"schema"`

	Debug          bool `mapstructure:"debug"`
	LogSQL         bool `mapstructure:"log_sql"`
	LogResultRows  bool `mapstructure:"log_result_rows"`
	ProfileQueries bool `mapstructure:"profile_queries"`
	AnalyzeQueries bool `mapstructure:"analyze_queries"`

	MaxInsertRetry int `mapstructure:"max_insert_retry"`
}

// Default returns the options used when nothing is configured.
func Default() Options {
	return Options{
		Driver:         "pgx",
		Schema:         "schema.yaml",
		MaxInsertRetry: layer.DefaultMaxInsertRetry,
	}
}

// LoadEnv loads a .env file from the working directory when present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Debugf("no .env file found, continuing")
	}
}

// Load reads path, or dblayer.yaml in the working directory when path is
// empty. Environment variables named DBLAYER_<KEY> override the file;
// DATABASE_URL is used when no database_url is configured.
func Load(path string) (Options, error) {
	LoadEnv()

	def := Default()
	v := viper.New()
	v.SetDefault("database_url", "")
	v.SetDefault("dialect", "")
	v.SetDefault("driver", def.Driver)
	v.SetDefault("schema", def.Schema)
	v.SetDefault("debug", false)
	v.SetDefault("log_sql", false)
	v.SetDefault("log_result_rows", false)
	v.SetDefault("profile_queries", false)
	v.SetDefault("analyze_queries", false)
	v.SetDefault("max_insert_retry", def.MaxInsertRetry)

	v.SetEnvPrefix("DBLAYER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("dblayer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Options{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return Options{}, fmt.Errorf("decoding config: %w", err)
	}
	if opts.DatabaseURL == "" {
		opts.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.MaxInsertRetry <= 0 {
		opts.MaxInsertRetry = layer.DefaultMaxInsertRetry
	}
	return opts, nil
}

// ResolveDialect returns the configured dialect, or the one named by the
// database URL scheme.
func (o Options) ResolveDialect() (dialect.Dialect, error) {
	if o.Dialect != "" {
		return dialect.Get(o.Dialect)
	}
	if o.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL not set (in dblayer.yaml, .env or environment)")
	}
	return dialect.FromURL(o.DatabaseURL)
}

// Runner returns the statement diagnostics.
func (o Options) Runner() runner.Options {
	return runner.Options{
		LogSQL:         o.LogSQL,
		LogResultRows:  o.LogResultRows,
		ProfileQueries: o.ProfileQueries,
		AnalyzeQueries: o.AnalyzeQueries,
	}
}

// ConfigureLogging sets the dblayer logger levels. Statement logs are
// written at INFO, so any of the log flags raise dblayer to INFO.
func (o Options) ConfigureLogging() error {
	level := "WARNING"
	switch {
	case o.Debug:
		level = "DEBUG"
	case o.LogSQL || o.LogResultRows || o.ProfileQueries || o.AnalyzeQueries:
		level = "INFO"
	}
	return loggo.ConfigureLoggers("dblayer=" + level)
}
