package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/samirrijal/epiviz/internal/core/catalog"
	"github.com/samirrijal/epiviz/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Log       LogConfig        `mapstructure:"log"`
	Database  DatabaseConfig   `mapstructure:"database"`
	NATS      NATSConfig       `mapstructure:"nats"`
	Valkey    ValkeyConfig     `mapstructure:"valkey"`
	Telemetry TelemetryConfig  `mapstructure:"telemetry"`
	Temporal  TemporalConfig   `mapstructure:"temporal"`
	Render    RenderConfig     `mapstructure:"render"`
	Gradients []GradientConfig `mapstructure:"gradients"`
	Maps      []MapConfig      `mapstructure:"maps"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// RenderConfig holds the defaults applied when a request leaves them out.
type RenderConfig struct {
	DefaultGradient string  `mapstructure:"default_gradient"`
	DefaultMargin   float64 `mapstructure:"default_margin"`
	// CacheTTL is in seconds; 0 disables caching of computed frames and crops.
	CacheTTL int `mapstructure:"cache_ttl"`
	// Precompute starts a frame precompute workflow for every ingested run.
	Precompute bool `mapstructure:"precompute"`
}

// GradientConfig declares a custom gradient as evenly spaced colours.
// Colours accept #hex, rgb(r,g,b) and CSS colour names.
type GradientConfig struct {
	Name    string   `mapstructure:"name"`
	Colours []string `mapstructure:"colours"`
	Span    float64  `mapstructure:"span"`
}

// MapConfig declares a custom equirectangular map image.
type MapConfig struct {
	Name        string  `mapstructure:"name"`
	ImageRef    string  `mapstructure:"image_ref"`
	ImageWidth  float64 `mapstructure:"image_width"`
	ImageHeight float64 `mapstructure:"image_height"`
	MinLat      float64 `mapstructure:"min_lat"`
	MaxLat      float64 `mapstructure:"max_lat"`
	MinLon      float64 `mapstructure:"min_lon"`
	MaxLon      float64 `mapstructure:"max_lon"`
	Zoomable    bool    `mapstructure:"zoomable"`
}

// Definition converts the entry into a validated map definition.
func (m MapConfig) Definition() (domain.MapDefinition, error) {
	if !(m.ImageHeight > 0) {
		return domain.MapDefinition{}, fmt.Errorf("%w: map %q image_height must be positive", domain.ErrInvalidGeometry, m.Name)
	}
	return domain.NewMapDefinition(m.Name, m.ImageRef, m.ImageWidth/m.ImageHeight, domain.GeoBox{
		MinLat: m.MinLat, MaxLat: m.MaxLat, MinLon: m.MinLon, MaxLon: m.MaxLon,
	}, m.Zoomable)
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: EPIVIZ_DATABASE_HOST → database.host
	v.SetEnvPrefix("EPIVIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "epiviz")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "epiviz")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "epiviz-frames")
	v.SetDefault("render.default_gradient", "Heat map")
	v.SetDefault("render.default_margin", domain.DefaultMargin)
	v.SetDefault("render.cache_ttl", 300)
	v.SetDefault("render.precompute", true)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "database.max_conns must be positive")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}
	if !(c.Render.DefaultMargin > 0) {
		errs = append(errs, fmt.Sprintf("render.default_margin must be positive, got %v", c.Render.DefaultMargin))
	}
	if c.Render.CacheTTL < 0 {
		errs = append(errs, "render.cache_ttl must not be negative")
	}

	gradients, err := c.GradientRegistry()
	if err != nil {
		errs = append(errs, "gradients: "+err.Error())
	} else if _, err := gradients.Get(c.Render.DefaultGradient); err != nil {
		errs = append(errs, fmt.Sprintf("render.default_gradient %q is not a known gradient", c.Render.DefaultGradient))
	}
	if _, err := c.MapRegistry(); err != nil {
		errs = append(errs, "maps: "+err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// GradientRegistry builds the preset gradients followed by the configured ones.
func (c *Config) GradientRegistry() (*catalog.GradientRegistry, error) {
	specs := make([]catalog.GradientSpec, 0, len(c.Gradients))
	for _, g := range c.Gradients {
		spec, err := catalog.ParseGradientSpec(g.Name, g.Colours, g.Span)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return catalog.DefaultGradients(specs...)
}

// MapRegistry builds the preset maps followed by the configured ones.
func (c *Config) MapRegistry() (*catalog.MapRegistry, error) {
	defs := make([]domain.MapDefinition, 0, len(c.Maps))
	for _, m := range c.Maps {
		def, err := m.Definition()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return catalog.DefaultMaps(defs...)
}
