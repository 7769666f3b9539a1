package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/episode-renamer/internal/core"
	"github.com/Digital-Shane/episode-renamer/internal/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables that override the config file,
// e.g. EPISODE_RENAMER_TMDB_API_KEY.
const EnvPrefix = "EPISODE_RENAMER"

// Catalogs lists the supported metadata catalogs.
var Catalogs = []string{"tmdb", "tvdb", "omdb"}

// Config holds the persisted user settings.
type Config struct {
	Languages        []string `json:"languages" mapstructure:"languages"`
	Language         string   `json:"language" mapstructure:"language"`
	IncludeShowTitle bool     `json:"include_show_title" mapstructure:"include_show_title"`

	SearchDebounceMS int `json:"search_debounce_ms" mapstructure:"search_debounce_ms"`
	MinQueryLength   int `json:"min_query_length" mapstructure:"min_query_length"`
	CacheTTLMinutes  int `json:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`

	Catalog    string `json:"catalog" mapstructure:"catalog"`
	TMDBAPIKey string `json:"tmdb_api_key" mapstructure:"tmdb_api_key"`
	TVDBAPIKey string `json:"tvdb_api_key" mapstructure:"tvdb_api_key"`
	OMDBAPIKey string `json:"omdb_api_key" mapstructure:"omdb_api_key"`

	// ProbeDetails enables ffprobe lookups for the episode table.
	ProbeDetails bool `json:"probe_details" mapstructure:"probe_details"`

	EnableLogging    bool   `json:"enable_logging" mapstructure:"enable_logging"`
	LogRetentionDays int    `json:"log_retention_days" mapstructure:"log_retention_days"`
	LogLevel         string `json:"log_level" mapstructure:"log_level"`

	SeasonDirWord string `json:"season_dir_word" mapstructure:"season_dir_word"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Languages:        []string{"en", "de"},
		Language:         "en",
		IncludeShowTitle: false,
		SearchDebounceMS: 1000,
		MinQueryLength:   3,
		CacheTTLMinutes:  30,
		Catalog:          "tmdb",
		ProbeDetails:     false,
		EnableLogging:    true,
		LogRetentionDays: 30,
		LogLevel:         "info",
		SeasonDirWord:    "Season",
	}
}

// ConfigPath returns the path to the config file
func ConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".episode-renamer", "config.json"), nil
}

// Load reads the config file, then applies a .env file in the working
// directory and EPISODE_RENAMER_* environment variables on top.
// Priority: environment > config file > defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return read(v, path)
}

// ReadFile reads the config file at path on top of the defaults, ignoring
// the environment and .env files. Use it when the result is saved back.
func ReadFile(path string) (*Config, error) {
	return read(viper.New(), path)
}

func read(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.Languages = splitList(cfg.Languages)
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("languages", d.Languages)
	v.SetDefault("language", d.Language)
	v.SetDefault("include_show_title", d.IncludeShowTitle)
	v.SetDefault("search_debounce_ms", d.SearchDebounceMS)
	v.SetDefault("min_query_length", d.MinQueryLength)
	v.SetDefault("cache_ttl_minutes", d.CacheTTLMinutes)
	v.SetDefault("catalog", d.Catalog)
	v.SetDefault("tmdb_api_key", "")
	v.SetDefault("tvdb_api_key", "")
	v.SetDefault("omdb_api_key", "")
	v.SetDefault("probe_details", d.ProbeDetails)
	v.SetDefault("enable_logging", d.EnableLogging)
	v.SetDefault("log_retention_days", d.LogRetentionDays)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("season_dir_word", d.SeasonDirWord)
}

// splitList flattens comma separated entries, as produced by a single
// environment variable, and trims blanks.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Save writes the configuration to disk
func (cfg *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return cfg.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (cfg *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate reports every invalid setting at once.
func (cfg *Config) Validate() error {
	var errs []error

	langs, err := core.ParseLanguages(cfg.Languages)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("languages: %w", err))
	case len(langs) == 0:
		errs = append(errs, errors.New("languages: at least one language is required"))
	}
	if lang, err := core.ParseLanguage(cfg.Language); err != nil {
		errs = append(errs, fmt.Errorf("language: %w", err))
	} else if len(langs) > 0 && !slices.Contains(langs, lang) {
		errs = append(errs, fmt.Errorf("language: %s is not one of the enabled languages", cfg.Language))
	}

	if !slices.Contains(Catalogs, cfg.Catalog) {
		errs = append(errs, fmt.Errorf("catalog: unknown catalog %q (want one of %s)", cfg.Catalog, strings.Join(Catalogs, ", ")))
	}
	if cfg.SearchDebounceMS <= 0 {
		errs = append(errs, fmt.Errorf("search_debounce_ms: must be positive, got %d", cfg.SearchDebounceMS))
	}
	if cfg.MinQueryLength < 1 {
		errs = append(errs, fmt.Errorf("min_query_length: must be at least 1, got %d", cfg.MinQueryLength))
	}
	if cfg.CacheTTLMinutes < 0 {
		errs = append(errs, fmt.Errorf("cache_ttl_minutes: must not be negative, got %d", cfg.CacheTTLMinutes))
	}
	if cfg.LogRetentionDays < 0 {
		errs = append(errs, fmt.Errorf("log_retention_days: must not be negative, got %d", cfg.LogRetentionDays))
	}
	if !log.ValidLevel(cfg.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level: unknown level %q", cfg.LogLevel))
	}
	if strings.TrimSpace(cfg.SeasonDirWord) == "" {
		errs = append(errs, errors.New("season_dir_word: must not be empty"))
	}
	return errors.Join(errs...)
}

// EnabledLanguages returns the configured languages in order. Unknown codes
// are skipped; Validate reports them.
func (cfg *Config) EnabledLanguages() []core.Language {
	var out []core.Language
	for _, code := range cfg.Languages {
		lang, err := core.ParseLanguage(code)
		if err != nil || slices.Contains(out, lang) {
			continue
		}
		out = append(out, lang)
	}
	if len(out) == 0 {
		out = append(out, core.English)
	}
	return out
}

// DisplayLanguage returns the language names are composed in.
func (cfg *Config) DisplayLanguage() core.Language {
	if lang, err := core.ParseLanguage(cfg.Language); err == nil {
		return lang
	}
	return cfg.EnabledLanguages()[0]
}

// SearchDebounce returns the search debounce interval.
func (cfg *Config) SearchDebounce() time.Duration {
	return time.Duration(cfg.SearchDebounceMS) * time.Millisecond
}

// CacheTTL returns how long task results stay cached. Zero means forever.
func (cfg *Config) CacheTTL() time.Duration {
	return time.Duration(cfg.CacheTTLMinutes) * time.Minute
}

// APIKey returns the API key of the named catalog.
func (cfg *Config) APIKey(catalog string) string {
	switch catalog {
	case "tmdb":
		return cfg.TMDBAPIKey
	case "tvdb":
		return cfg.TVDBAPIKey
	case "omdb":
		return cfg.OMDBAPIKey
	}
	return ""
}

type setter func(cfg *Config, value string) error

func setString(field func(*Config) *string) setter {
	return func(cfg *Config, value string) error {
		*field(cfg) = value
		return nil
	}
}

func setInt(field func(*Config) *int) setter {
	return func(cfg *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("not a number: %q", value)
		}
		*field(cfg) = n
		return nil
	}
}

func setBool(field func(*Config) *bool) setter {
	return func(cfg *Config, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("not a boolean: %q", value)
		}
		*field(cfg) = b
		return nil
	}
}

var setters = map[string]setter{
	"languages": func(cfg *Config, value string) error {
		cfg.Languages = splitList([]string{value})
		return nil
	},
	"language":           setString(func(c *Config) *string { return &c.Language }),
	"include_show_title": setBool(func(c *Config) *bool { return &c.IncludeShowTitle }),
	"search_debounce_ms": setInt(func(c *Config) *int { return &c.SearchDebounceMS }),
	"min_query_length":   setInt(func(c *Config) *int { return &c.MinQueryLength }),
	"cache_ttl_minutes":  setInt(func(c *Config) *int { return &c.CacheTTLMinutes }),
	"catalog":            setString(func(c *Config) *string { return &c.Catalog }),
	"tmdb_api_key":       setString(func(c *Config) *string { return &c.TMDBAPIKey }),
	"tvdb_api_key":       setString(func(c *Config) *string { return &c.TVDBAPIKey }),
	"omdb_api_key":       setString(func(c *Config) *string { return &c.OMDBAPIKey }),
	"probe_details":      setBool(func(c *Config) *bool { return &c.ProbeDetails }),
	"enable_logging":     setBool(func(c *Config) *bool { return &c.EnableLogging }),
	"log_retention_days": setInt(func(c *Config) *int { return &c.LogRetentionDays }),
	"log_level":          setString(func(c *Config) *string { return &c.LogLevel }),
	"season_dir_word":    setString(func(c *Config) *string { return &c.SeasonDirWord }),
}

// Keys returns the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns a setting from its string form and validates the result.
// The config is left unchanged on error.
func (cfg *Config) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	next := *cfg
	next.Languages = slices.Clone(cfg.Languages)
	if err := set(&next, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*cfg = next
	return nil
}
