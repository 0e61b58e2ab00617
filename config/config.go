package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Scraper    ScraperConfig
	Catalog    CatalogConfig
	Store      StoreConfig
	Cache      CacheConfig
	Matching   MatchingConfig
	Normalizer NormalizerConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ScraperConfig holds storefront scraping configuration
type ScraperConfig struct {
	Mode                   string        `mapstructure:"mode"` // "browser" or "catalog"
	BaseURL                string        `mapstructure:"base_url"`
	ZipCode                string        `mapstructure:"zip_code"`
	Headless               bool          `mapstructure:"headless"`
	BrowserBin             string        `mapstructure:"browser_bin"`
	TopN                   int           `mapstructure:"top_n"`
	MaxScrolls             int           `mapstructure:"max_scrolls"`
	ScrollPause            time.Duration `mapstructure:"scroll_pause"`
	PopupTimeout           time.Duration `mapstructure:"popup_timeout"`
	LocationTimeout        time.Duration `mapstructure:"location_timeout"`
	ItemListTimeout        time.Duration `mapstructure:"item_list_timeout"`
	ItemListLoadAllTimeout time.Duration `mapstructure:"item_list_load_all_timeout"`
	ItemDetailTimeout      time.Duration `mapstructure:"item_detail_timeout"`
	RequireCategory        bool          `mapstructure:"require_category"`
	EnableDebugLogging     bool          `mapstructure:"enable_debug_logging"`
}

// CatalogConfig holds the storefront catalog API configuration
type CatalogConfig struct {
	ShopID          string `mapstructure:"shop_id"`
	ZoneID          string `mapstructure:"zone_id"`
	PostalCode      string `mapstructure:"postal_code"`
	QueryHash       string `mapstructure:"query_hash"`
	UserAgent       string `mapstructure:"user_agent"`
	RequestsPerHour int    `mapstructure:"requests_per_hour"`
}

// StoreConfig holds price store configuration
type StoreConfig struct {
	Type       string        `mapstructure:"type"` // "memory" or "sqlite"
	SQLitePath string        `mapstructure:"sqlite_path"`
	Timeout    time.Duration `mapstructure:"timeout"` // bound on recording one scrape result
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// MatchingConfig holds best-match selection configuration
type MatchingConfig struct {
	Policy             string `mapstructure:"policy"` // "first", "price" or "relevance"
	EnableDebugLogging bool   `mapstructure:"enable_debug_logging"`
}

// NormalizerConfig holds name normalization configuration
type NormalizerConfig struct {
	VocabularyFile string `mapstructure:"vocabulary_file"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricelens/")

	// Environment variable settings: PRICELENS_STORE_TYPE -> store.type
	v.SetEnvPrefix("PRICELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	// Scraper defaults
	v.SetDefault("scraper.mode", "browser")
	v.SetDefault("scraper.base_url", "https://shop.sprouts.com")
	v.SetDefault("scraper.zip_code", "10024")
	v.SetDefault("scraper.headless", true)
	v.SetDefault("scraper.browser_bin", "")
	v.SetDefault("scraper.top_n", 5)
	v.SetDefault("scraper.max_scrolls", 50)
	v.SetDefault("scraper.scroll_pause", "1s")
	v.SetDefault("scraper.popup_timeout", "5s")
	v.SetDefault("scraper.location_timeout", "20s")
	v.SetDefault("scraper.item_list_timeout", "10s")
	v.SetDefault("scraper.item_list_load_all_timeout", "5s")
	v.SetDefault("scraper.item_detail_timeout", "10s")
	v.SetDefault("scraper.require_category", false)
	v.SetDefault("scraper.enable_debug_logging", false)

	// Catalog defaults
	v.SetDefault("catalog.shop_id", "472984")
	v.SetDefault("catalog.zone_id", "1002")
	v.SetDefault("catalog.postal_code", "90001")
	v.SetDefault("catalog.query_hash", "c4fb5cd2b49248736ad7f78f71466560a38275b66e05d7b67447e210c74901d4")
	v.SetDefault("catalog.user_agent", "Mozilla/5.0")
	v.SetDefault("catalog.requests_per_hour", 1000)

	// Store defaults
	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.sqlite_path", "pricelens.db")
	v.SetDefault("store.timeout", "10s")

	// Cache defaults
	v.SetDefault("cache.ttl", "48h")

	// Matching defaults
	v.SetDefault("matching.policy", "first")
	v.SetDefault("matching.enable_debug_logging", false)

	// Normalizer defaults
	v.SetDefault("normalizer.vocabulary_file", "")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Scraper.Mode != "browser" && config.Scraper.Mode != "catalog" {
		return fmt.Errorf("scraper mode must be 'browser' or 'catalog', got: %s", config.Scraper.Mode)
	}

	if config.Scraper.BaseURL == "" {
		return fmt.Errorf("scraper base URL is required (set PRICELENS_SCRAPER_BASE_URL)")
	}

	if config.Scraper.TopN <= 0 {
		return fmt.Errorf("scraper top_n must be positive, got: %d", config.Scraper.TopN)
	}

	if config.Store.Type != "memory" && config.Store.Type != "sqlite" {
		return fmt.Errorf("store type must be 'memory' or 'sqlite', got: %s", config.Store.Type)
	}

	if config.Store.Type == "sqlite" && config.Store.SQLitePath == "" {
		return fmt.Errorf("SQLite path is required when store type is 'sqlite'")
	}

	if config.Store.Timeout < 0 {
		return fmt.Errorf("store timeout must not be negative, got: %s", config.Store.Timeout)
	}

	switch config.Matching.Policy {
	case "", "first", "price", "relevance":
	default:
		return fmt.Errorf("matching policy must be 'first', 'price' or 'relevance', got: %s", config.Matching.Policy)
	}

	if config.Cache.TTL < 0 {
		return fmt.Errorf("cache TTL must not be negative, got: %s", config.Cache.TTL)
	}

	return nil
}

// loadEnvFile loads KEY=VALUE lines from ./.env into the environment.
// Existing variables are not overridden and a missing file is not an error.
func loadEnvFile() error {
	f, err := os.Open(".env")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return scanner.Err()
}
