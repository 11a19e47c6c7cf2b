package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"pandemic-dashboard/internal/models"
	"pandemic-dashboard/pkg/database"
)

const envPrefix = "dashboard"

const (
	csseBaseURL         = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_time_series/"
	DefaultConfirmedURL = csseBaseURL + "time_series_covid19_confirmed_global.csv"
	DefaultDeathsURL    = csseBaseURL + "time_series_covid19_deaths_global.csv"
	DefaultRecoveredURL = csseBaseURL + "time_series_covid19_recovered_global.csv"
	DefaultCutoffDate   = "4/8/21"
)

// Source kinds accepted by data.source
const (
	SourceHTTP     = "http"
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Config is the full application configuration
type Config struct {
	Server     ServerConfig        `mapstructure:"server"`
	Data       DataConfig          `mapstructure:"data"`
	Database   DatabaseConfig      `mapstructure:"database"`
	Logging    LoggingConfig       `mapstructure:"logging"`
	Playback   PlaybackConfig      `mapstructure:"playback"`
	Continents []ContinentOverride `mapstructure:"continents" validate:"dive"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
}

// DataConfig selects the series source and the cutoff applied to it
type DataConfig struct {
	Source        string        `mapstructure:"source" validate:"oneof=http file postgres"`
	ConfirmedURL  string        `mapstructure:"confirmed_url" validate:"required_if=Source http"`
	DeathsURL     string        `mapstructure:"deaths_url" validate:"required_if=Source http"`
	RecoveredURL  string        `mapstructure:"recovered_url" validate:"required_if=Source http"`
	ConfirmedPath string        `mapstructure:"confirmed_path" validate:"required_if=Source file"`
	DeathsPath    string        `mapstructure:"deaths_path" validate:"required_if=Source file"`
	RecoveredPath string        `mapstructure:"recovered_path" validate:"required_if=Source file"`
	CutoffDate    string        `mapstructure:"cutoff_date" validate:"required"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout" validate:"gt=0"`
	RetryAttempts int           `mapstructure:"retry_attempts" validate:"min=0,max=10"`
	RetryInterval time.Duration `mapstructure:"retry_interval" validate:"gte=0"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

type PlaybackConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`
}

// ContinentOverride adds or replaces one entry of the continent lookup.
// A list is used because viper lower-cases map keys.
type ContinentOverride struct {
	Country   string `mapstructure:"country" validate:"required"`
	Continent string `mapstructure:"continent" validate:"required"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8050)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("data.source", SourceHTTP)
	v.SetDefault("data.confirmed_url", DefaultConfirmedURL)
	v.SetDefault("data.deaths_url", DefaultDeathsURL)
	v.SetDefault("data.recovered_url", DefaultRecoveredURL)
	v.SetDefault("data.confirmed_path", "")
	v.SetDefault("data.deaths_path", "")
	v.SetDefault("data.recovered_path", "")
	v.SetDefault("data.cutoff_date", DefaultCutoffDate)
	v.SetDefault("data.fetch_timeout", 60*time.Second)
	v.SetDefault("data.retry_attempts", 0)
	v.SetDefault("data.retry_interval", 2*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "dashboard")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "pandemic")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("playback.interval", 200*time.Millisecond)
}

// LoadConfig reads config.yaml from the working directory or ./configs when
// present, then applies DASHBOARD_* environment overrides.
func LoadConfig() (*Config, error) {
	return LoadConfigFile("")
}

// LoadConfigFile reads the given YAML file (or searches the defaults when
// path is empty), then applies DASHBOARD_* environment overrides.
func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}

// Validate checks field constraints and that the cutoff date parses
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := c.Data.Cutoff(); err != nil {
		return fmt.Errorf("invalid configuration: data.cutoff_date: %w", err)
	}

	return nil
}

// Cutoff parses CutoffDate
func (d DataConfig) Cutoff() (time.Time, error) {
	return models.ParseColumnDate(d.CutoffDate)
}

// ContinentMap returns the built-in lookup with configured overrides applied
func (c *Config) ContinentMap() models.ContinentMap {
	overrides := make(map[string]string, len(c.Continents))
	for _, o := range c.Continents {
		overrides[o.Country] = o.Continent
	}
	return models.DefaultContinents().WithOverrides(overrides)
}

// ToDatabaseConfig converts to the connection settings of pkg/database
func (d DatabaseConfig) ToDatabaseConfig() *database.Config {
	return &database.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Database,
		SSLMode:         d.SSLMode,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}
