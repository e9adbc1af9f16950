// Package config loads configuration for the rule generator.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"dohrules/pkg/fetch"
	"dohrules/pkg/geoip"
)

const (
	defaultConfigPath = "dohrules.toml"
	configEnvVar      = "DOHRULES_CONFIG"
	envPrefix         = "DOHRULES"
)

// Config contains all runtime options of a generation run.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	Output   OutputConfig   `mapstructure:"output"`
	GeoIP    GeoIPConfig    `mapstructure:"geoip"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// SourceConfig holds the location of the provider table.
type SourceConfig struct {
	// URL is an http(s) URL or a local file path.
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// OutputConfig holds where generated files are written.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// GeoIPConfig holds classification settings.
type GeoIPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider geoip.Backend `mapstructure:"provider"`
	// URL overrides the provider's request template.
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
	// Database is the MaxMind database path used by the maxmind provider.
	Database           string        `mapstructure:"database"`
	Timeout            time.Duration `mapstructure:"timeout"`
	Regions            []string      `mapstructure:"regions"`
	Threshold          float64       `mapstructure:"threshold"`
	MaxURLsPerProvider int           `mapstructure:"max_urls_per_provider"`
	RetryCount         int           `mapstructure:"retry_count"`
	RequestDelay       time.Duration `mapstructure:"request_delay"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"`
}

// ResolverConfig holds DNS resolution settings. An empty server list uses
// the system resolver.
type ResolverConfig struct {
	Servers []string      `mapstructure:"servers"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// MetricsConfig holds the optional Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// ValidateLogLevel ensures the user-provided log level matches the supported set.
func ValidateLogLevel(level string) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(level)] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", level)
	}
	return nil
}

// ValidateAddress confirms that an address string has a valid IP and port.
func ValidateAddress(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if port == "" {
		return errors.New("invalid port")
	}
	if err != nil {
		return fmt.Errorf("invalid address format %s: %w", addr, err)
	}
	if ip := net.ParseIP(host); ip == nil {
		return fmt.Errorf("invalid IP address: %s", host)
	}
	if _, err := net.LookupPort("udp", port); err != nil {
		return fmt.Errorf("invalid port: %s", port)
	}
	return nil
}

// ParseUpstream adds the default DNS port when a server is provided without one.
func ParseUpstream(upstream string) string {
	if _, _, err := net.SplitHostPort(upstream); err == nil {
		return upstream
	}
	return net.JoinHostPort(strings.Trim(upstream, "[]"), "53")
}

// Setup loads configuration from path. An empty path falls back to the
// DOHRULES_CONFIG environment variable, then to dohrules.toml when it
// exists, then to built-in defaults. A .env file in the working directory
// is loaded first so secrets such as DOHRULES_GEOIP_TOKEN can live there.
func Setup(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Load(path)
}

// Load reads configuration without touching .env.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	configPath, required := resolvePath(path)
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if required || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolvePath(path string) (string, bool) {
	if path = strings.TrimSpace(path); path != "" {
		return path, true
	}
	if fromEnv := strings.TrimSpace(os.Getenv(configEnvVar)); fromEnv != "" {
		return fromEnv, true
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath, false
	}
	return "", false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.url", fetch.DefaultURL)
	v.SetDefault("source.timeout", "30s")
	v.SetDefault("source.user_agent", "dohrules")
	v.SetDefault("output.dir", "rules")
	v.SetDefault("geoip.enabled", true)
	v.SetDefault("geoip.provider", "ip-api")
	v.SetDefault("geoip.url", "")
	v.SetDefault("geoip.token", "")
	v.SetDefault("geoip.database", "")
	v.SetDefault("geoip.timeout", "10s")
	v.SetDefault("geoip.regions", []string{"CN"})
	v.SetDefault("geoip.threshold", 0.5)
	v.SetDefault("geoip.max_urls_per_provider", 3)
	v.SetDefault("geoip.retry_count", 5)
	v.SetDefault("geoip.request_delay", "1.5s")
	v.SetDefault("geoip.retry_delay", "1s")
	v.SetDefault("resolver.servers", []string{})
	v.SetDefault("resolver.timeout", "5s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "stdout")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("metrics.textfile", "")
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		backendHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func backendHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(geoip.Backend(0)) {
		return data, nil
	}
	return geoip.ParseBackend(data.(string))
}

func validateConfig(cfg *Config) error {
	if err := ValidateLogLevel(cfg.Logging.Level); err != nil {
		return err
	}

	if strings.TrimSpace(cfg.Source.URL) == "" {
		return errors.New("source.url is required")
	}
	if cfg.Source.Timeout <= 0 {
		return errors.New("source.timeout must be > 0")
	}
	if strings.TrimSpace(cfg.Output.Dir) == "" {
		return errors.New("output.dir is required")
	}

	if err := validateGeoIP(&cfg.GeoIP); err != nil {
		return err
	}

	parsedServers := make([]string, len(cfg.Resolver.Servers))
	for i, addr := range cfg.Resolver.Servers {
		parsed := ParseUpstream(strings.TrimSpace(addr))
		if err := ValidateAddress(parsed); err != nil {
			return fmt.Errorf("invalid resolver address %s: %w", addr, err)
		}
		parsedServers[i] = parsed
	}
	cfg.Resolver.Servers = parsedServers

	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxBackups < 0 || cfg.Logging.MaxAgeDays < 0 {
		return errors.New("logging rotation settings must be >= 0")
	}
	return nil
}

func validateGeoIP(g *GeoIPConfig) error {
	if g.Threshold <= 0 || g.Threshold > 1 {
		return fmt.Errorf("geoip.threshold must be in (0, 1], got %v", g.Threshold)
	}
	if g.MaxURLsPerProvider < 1 {
		return errors.New("geoip.max_urls_per_provider must be >= 1")
	}
	if g.RetryCount < 1 {
		return errors.New("geoip.retry_count must be >= 1")
	}
	if g.RequestDelay < 0 || g.RetryDelay < 0 {
		return errors.New("geoip delays must be >= 0")
	}

	regions := make([]string, 0, len(g.Regions))
	for _, r := range g.Regions {
		if r = strings.ToUpper(strings.TrimSpace(r)); r != "" {
			regions = append(regions, r)
		}
	}
	if g.Enabled && len(regions) == 0 {
		return errors.New("geoip.regions must contain at least one country code")
	}
	g.Regions = regions

	if g.Enabled && g.Provider == geoip.MaxMind && strings.TrimSpace(g.Database) == "" {
		return errors.New("geoip.database is required for the maxmind provider")
	}
	return nil
}
