package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/samirrijal/mapview/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Nominatim NominatimConfig `mapstructure:"nominatim"`
	OSRM      OSRMConfig      `mapstructure:"osrm"`
	Map       MapConfig       `mapstructure:"map"`
	I18n      I18nConfig      `mapstructure:"i18n"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type NominatimConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
	Timeout   int    `mapstructure:"timeout"` // seconds, 0 = none
}

type OSRMConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Profile string `mapstructure:"profile"`
	Timeout int    `mapstructure:"timeout"`
}

// MapConfig describes the initial map and the layer styling.
type MapConfig struct {
	CenterLat     float64 `mapstructure:"center_lat"`
	CenterLon     float64 `mapstructure:"center_lon"`
	Zoom          int     `mapstructure:"zoom"`
	MaxZoom       int     `mapstructure:"max_zoom"`
	TileURL       string  `mapstructure:"tile_url"`
	Attribution   string  `mapstructure:"attribution"`
	AnchorLabel   string  `mapstructure:"anchor_label"`
	RouteColor    string  `mapstructure:"route_color"`
	RouteWeight   int     `mapstructure:"route_weight"`
	FitPadding    int     `mapstructure:"fit_padding"`
	SingleZoom    int     `mapstructure:"single_zoom"`
	ResizeDelayMs int     `mapstructure:"resize_delay_ms"`
	Width         int     `mapstructure:"width"`
	Height        int     `mapstructure:"height"`
}

// ResizeDelay returns the deferred size recalculation delay.
func (m MapConfig) ResizeDelay() time.Duration {
	return time.Duration(m.ResizeDelayMs) * time.Millisecond
}

type I18nConfig struct {
	DefaultLanguage string `mapstructure:"default_language"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr    string `mapstructure:"addr"`
	Enabled bool   `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
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

	// Environment variables: MAPVIEW_NOMINATIM_BASE_URL → nominatim.base_url
	v.SetEnvPrefix("MAPVIEW")
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
	v.SetDefault("server.write_timeout", 30)

	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.user_agent", "mapview/1.0 (+https://github.com/samirrijal/mapview)")
	v.SetDefault("nominatim.timeout", 10)
	v.SetDefault("osrm.base_url", "https://router.project-osrm.org")
	v.SetDefault("osrm.profile", "driving")
	v.SetDefault("osrm.timeout", 10)

	// Cancún city centre
	v.SetDefault("map.center_lat", 21.1619)
	v.SetDefault("map.center_lon", -86.8515)
	v.SetDefault("map.zoom", 13)
	v.SetDefault("map.max_zoom", 19)
	v.SetDefault("map.tile_url", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("map.attribution", "© OpenStreetMap contributors")
	v.SetDefault("map.anchor_label", "Centro de Cancún")
	v.SetDefault("map.route_color", "#1D64F2")
	v.SetDefault("map.route_weight", 4)
	v.SetDefault("map.fit_padding", 40)
	v.SetDefault("map.single_zoom", 14)
	v.SetDefault("map.resize_delay_ms", 200)
	v.SetDefault("map.width", 800)
	v.SetDefault("map.height", 500)

	v.SetDefault("i18n.default_language", "es")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", true)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.enabled", true)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
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
	if c.Nominatim.BaseURL == "" {
		errs = append(errs, "nominatim.base_url is required")
	}
	if c.Nominatim.UserAgent == "" {
		errs = append(errs, "nominatim.user_agent is required by the Nominatim usage policy")
	}
	if c.OSRM.BaseURL == "" {
		errs = append(errs, "osrm.base_url is required")
	}
	if c.OSRM.Profile == "" {
		errs = append(errs, "osrm.profile is required")
	}
	if c.Nominatim.Timeout < 0 || c.OSRM.Timeout < 0 {
		errs = append(errs, "upstream timeouts must not be negative")
	}
	if c.Map.Zoom < 0 || c.Map.Zoom > c.Map.MaxZoom {
		errs = append(errs, fmt.Sprintf("map.zoom must be 0-%d, got %d", c.Map.MaxZoom, c.Map.Zoom))
	}
	if c.Map.SingleZoom < 0 || c.Map.SingleZoom > c.Map.MaxZoom {
		errs = append(errs, fmt.Sprintf("map.single_zoom must be 0-%d, got %d", c.Map.MaxZoom, c.Map.SingleZoom))
	}
	if c.Map.TileURL == "" {
		errs = append(errs, "map.tile_url is required")
	}
	if c.Map.RouteWeight <= 0 {
		errs = append(errs, "map.route_weight must be positive")
	}
	if c.Map.FitPadding < 0 {
		errs = append(errs, "map.fit_padding must not be negative")
	}
	if c.Map.ResizeDelayMs < 0 {
		errs = append(errs, "map.resize_delay_ms must not be negative")
	}
	if c.Map.Width <= 0 || c.Map.Height <= 0 {
		errs = append(errs, "map.width and map.height must be positive")
	}
	if !domain.IsSupportedLanguage(c.I18n.DefaultLanguage) {
		errs = append(errs, fmt.Sprintf("i18n.default_language must be one of %v, got %q", domain.Languages, c.I18n.DefaultLanguage))
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
