package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Remote  RemoteConfig  `yaml:"remote" mapstructure:"remote"`
	Sync    SyncConfig    `yaml:"sync" mapstructure:"sync"`
	RunLog  RunLogConfig  `yaml:"runlog" mapstructure:"runlog"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SourcesConfig groups the upstream data sources.
type SourcesConfig struct {
	RKI       RKIConfig       `yaml:"rki" mapstructure:"rki"`
	Destatis  DestatisConfig  `yaml:"destatis" mapstructure:"destatis"`
	RiskLayer RiskLayerConfig `yaml:"risklayer" mapstructure:"risklayer"`
}

// RKIConfig configures the RKI ArcGIS feature services.
type RKIConfig struct {
	CountiesURL     string `yaml:"counties_url" mapstructure:"counties_url"`
	DistributionURL string `yaml:"distribution_url" mapstructure:"distribution_url"`
	ReportsURL      string `yaml:"reports_url" mapstructure:"reports_url"`
	PageSize        int    `yaml:"page_size" mapstructure:"page_size"`
	MaxRecords      int    `yaml:"max_records" mapstructure:"max_records"`
	Distribution    bool   `yaml:"distribution" mapstructure:"distribution"`
}

// DestatisConfig configures the demographic statistics source.
type DestatisConfig struct {
	URL     string `yaml:"url" mapstructure:"url"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
}

// RiskLayerConfig configures the Risklayer county sheet.
type RiskLayerConfig struct {
	URL     string `yaml:"url" mapstructure:"url"`
	Format  string `yaml:"format" mapstructure:"format"`
	Charset string `yaml:"charset" mapstructure:"charset"`
	Sheet   string `yaml:"sheet" mapstructure:"sheet"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
}

// CacheConfig configures the on-disk fetch cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
}

// FetchConfig configures outbound HTTP to the sources.
type FetchConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// Timeout returns the fetch timeout.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// RemoteConfig holds the remote case store endpoint and credentials.
type RemoteConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Token       string `yaml:"token" mapstructure:"token"`
	AuthScheme  string `yaml:"auth_scheme" mapstructure:"auth_scheme"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the request timeout for the remote store.
func (c RemoteConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// SyncConfig configures push behavior.
type SyncConfig struct {
	SkipUnchanged bool `yaml:"skip_unchanged" mapstructure:"skip_unchanged"`
}

// RunLogConfig configures where sync runs are recorded.
type RunLogConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// ServerConfig configures the read API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the settings a command mode needs before any request is
// made. Modes: "load", "sync", "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Sources.RKI.PageSize <= 0 {
		errs = append(errs, "sources.rki.page_size must be > 0")
	}
	if c.Sources.RiskLayer.Enabled && c.Sources.RiskLayer.URL == "" {
		errs = append(errs, "sources.risklayer.url is required when risklayer is enabled")
	}
	switch c.Sources.RiskLayer.Format {
	case "", "json", "csv", "xlsx":
	default:
		errs = append(errs, "sources.risklayer.format must be json, csv or xlsx")
	}

	switch mode {
	case "load":
	case "sync":
		if c.Remote.BaseURL == "" {
			errs = append(errs, "remote.base_url is required")
		}
		if c.Remote.Token == "" {
			errs = append(errs, "remote.token is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REGIONSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("sources.rki.counties_url", "https://services7.arcgis.com/mOBPykOjAyBO2ZKk/arcgis/rest/services/RKI_Landkreisdaten/FeatureServer/0/query")
	v.SetDefault("sources.rki.distribution_url", "https://services7.arcgis.com/mOBPykOjAyBO2ZKk/arcgis/rest/services/RKI_COVID19/FeatureServer/0/query")
	v.SetDefault("sources.rki.reports_url", "")
	v.SetDefault("sources.rki.page_size", 2000)
	v.SetDefault("sources.rki.max_records", 100000)
	v.SetDefault("sources.rki.distribution", true)
	v.SetDefault("sources.destatis.url", "https://raw.githubusercontent.com/lobicolonia/covid19-community-data/master/comunitydata.json")
	v.SetDefault("sources.destatis.enabled", true)
	v.SetDefault("sources.risklayer.url", "")
	v.SetDefault("sources.risklayer.format", "json")
	v.SetDefault("sources.risklayer.charset", "")
	v.SetDefault("sources.risklayer.sheet", "")
	v.SetDefault("sources.risklayer.enabled", false)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", ".")
	v.SetDefault("fetch.user_agent", "regionsync/1.0")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_attempts", 1)
	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.token", "")
	v.SetDefault("remote.auth_scheme", "Token")
	v.SetDefault("remote.timeout_secs", 30)
	v.SetDefault("sync.skip_unchanged", true)
	v.SetDefault("runlog.driver", "sqlite")
	v.SetDefault("runlog.dsn", "regionsync.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
