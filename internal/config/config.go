package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical dashboard defaults file.
// This is the single source of truth for all default settings.
const DefaultConfigPath = "config/dashboard.defaults.json"

// Config represents the root configuration for the dashboard server.
// All fields are pointers so a partial JSON file only overrides what it
// names; the Get* methods supply defaults for everything left nil.
type Config struct {
	// Server params
	ListenAddr *string `json:"listen_addr,omitempty"`

	// Warehouse params
	Driver        *string `json:"driver,omitempty"`         // "sqlite" or "postgres"
	DBPath        *string `json:"db_path,omitempty"`        // sqlite warehouse file
	DSN           *string `json:"dsn,omitempty"`            // postgres connection string
	CatalogSchema *string `json:"catalog_schema,omitempty"` // postgres schema for relation lookups

	// Cache params
	MetadataTTL *string `json:"metadata_ttl,omitempty"` // duration string like "1h"
	QueryTTL    *string `json:"query_ttl,omitempty"`    // duration string like "15m"

	// Serving params
	ConsistencySample *int  `json:"consistency_sample,omitempty"` // rows checked at startup, 0 disables
	LeaderboardSize   *int  `json:"leaderboard_size,omitempty"`
	DevMode           *bool `json:"dev_mode,omitempty"`
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptyConfig returns a Config with all fields set to nil.
// Use LoadConfig to load actual values from a file.
func EmptyConfig() *Config {
	return &Config{}
}

// DefaultConfig returns a Config with every field populated with its
// default value. The defaults file under DefaultConfigPath mirrors this.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:        ptrString(":8080"),
		Driver:            ptrString("sqlite"),
		DBPath:            ptrString("warehouse.db"),
		CatalogSchema:     ptrString("public"),
		MetadataTTL:       ptrString("1h"),
		QueryTTL:          ptrString("15m"),
		ConsistencySample: ptrInt(256),
		LeaderboardSize:   ptrInt(10),
		DevMode:           ptrBool(false),
	}
}

// LoadConfig loads a Config from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadConfig(path string) (*Config, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	// Validate Driver if set
	if c.Driver != nil {
		switch *c.Driver {
		case "", "sqlite", "postgres":
		default:
			return fmt.Errorf("driver must be \"sqlite\" or \"postgres\", got %q", *c.Driver)
		}
	}

	// A postgres warehouse needs a connection string
	if c.Driver != nil && *c.Driver == "postgres" {
		if c.DSN == nil || *c.DSN == "" {
			return fmt.Errorf("driver \"postgres\" requires dsn to be set")
		}
	}

	// Validate MetadataTTL can be parsed if set
	if c.MetadataTTL != nil && *c.MetadataTTL != "" {
		if _, err := time.ParseDuration(*c.MetadataTTL); err != nil {
			return fmt.Errorf("invalid metadata_ttl '%s': %w", *c.MetadataTTL, err)
		}
	}

	// Validate QueryTTL can be parsed if set
	if c.QueryTTL != nil && *c.QueryTTL != "" {
		if _, err := time.ParseDuration(*c.QueryTTL); err != nil {
			return fmt.Errorf("invalid query_ttl '%s': %w", *c.QueryTTL, err)
		}
	}

	// Validate ConsistencySample if set
	if c.ConsistencySample != nil {
		if *c.ConsistencySample < 0 {
			return fmt.Errorf("consistency_sample must be non-negative, got %d", *c.ConsistencySample)
		}
	}

	// Validate LeaderboardSize if set
	if c.LeaderboardSize != nil {
		if *c.LeaderboardSize < 1 {
			return fmt.Errorf("leaderboard_size must be positive, got %d", *c.LeaderboardSize)
		}
	}

	return nil
}

// GetListenAddr returns the listen_addr value or the default.
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return ":8080" // default
	}
	return *c.ListenAddr
}

// GetDriver returns the driver value or the default.
func (c *Config) GetDriver() string {
	if c.Driver == nil || *c.Driver == "" {
		return "sqlite" // default
	}
	return *c.Driver
}

// GetDBPath returns the db_path value or the default.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "warehouse.db" // default
	}
	return *c.DBPath
}

// GetDSN returns the dsn value or the empty string.
func (c *Config) GetDSN() string {
	if c.DSN == nil {
		return ""
	}
	return *c.DSN
}

// GetWarehouseDSN returns the connection string for the configured driver:
// the sqlite file path, or the postgres DSN.
func (c *Config) GetWarehouseDSN() string {
	if c.GetDriver() == "postgres" {
		return c.GetDSN()
	}
	return c.GetDBPath()
}

// GetCatalogSchema returns the catalog_schema value or the default.
func (c *Config) GetCatalogSchema() string {
	if c.CatalogSchema == nil || *c.CatalogSchema == "" {
		return "public" // default
	}
	return *c.CatalogSchema
}

// GetMetadataTTL parses and returns the MetadataTTL as a time.Duration.
func (c *Config) GetMetadataTTL() time.Duration {
	if c.MetadataTTL == nil || *c.MetadataTTL == "" {
		return time.Hour // default
	}
	d, err := time.ParseDuration(*c.MetadataTTL)
	if err != nil {
		return time.Hour // default on parse error
	}
	return d
}

// GetQueryTTL parses and returns the QueryTTL as a time.Duration.
func (c *Config) GetQueryTTL() time.Duration {
	if c.QueryTTL == nil || *c.QueryTTL == "" {
		return 15 * time.Minute // default
	}
	d, err := time.ParseDuration(*c.QueryTTL)
	if err != nil {
		return 15 * time.Minute // default on parse error
	}
	return d
}

// GetConsistencySample returns the consistency_sample value or the default.
func (c *Config) GetConsistencySample() int {
	if c.ConsistencySample == nil {
		return 256 // default
	}
	return *c.ConsistencySample
}

// GetLeaderboardSize returns the leaderboard_size value or the default.
func (c *Config) GetLeaderboardSize() int {
	if c.LeaderboardSize == nil {
		return 10 // default
	}
	return *c.LeaderboardSize
}

// GetDevMode returns the dev_mode value or the default.
func (c *Config) GetDevMode() bool {
	if c.DevMode == nil {
		return false // default
	}
	return *c.DevMode
}
