package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test that defaults are set via pointers
	if cfg.ListenAddr == nil || *cfg.ListenAddr != ":8080" {
		t.Errorf("Expected ListenAddr ':8080', got %v", cfg.ListenAddr)
	}
	if cfg.Driver == nil || *cfg.Driver != "sqlite" {
		t.Errorf("Expected Driver 'sqlite', got %v", cfg.Driver)
	}
	if cfg.DBPath == nil || *cfg.DBPath != "warehouse.db" {
		t.Errorf("Expected DBPath 'warehouse.db', got %v", cfg.DBPath)
	}
	if cfg.MetadataTTL == nil || *cfg.MetadataTTL != "1h" {
		t.Errorf("Expected MetadataTTL '1h', got %v", cfg.MetadataTTL)
	}
	if cfg.QueryTTL == nil || *cfg.QueryTTL != "15m" {
		t.Errorf("Expected QueryTTL '15m', got %v", cfg.QueryTTL)
	}

	// Test getter methods
	if cfg.GetListenAddr() != ":8080" {
		t.Errorf("GetListenAddr() = %s, want :8080", cfg.GetListenAddr())
	}
	if cfg.GetDriver() != "sqlite" {
		t.Errorf("GetDriver() = %s, want sqlite", cfg.GetDriver())
	}
	if cfg.GetLeaderboardSize() != 10 {
		t.Errorf("GetLeaderboardSize() = %d, want 10", cfg.GetLeaderboardSize())
	}
	if cfg.GetDevMode() != false {
		t.Errorf("GetDevMode() = %v, want false", cfg.GetDevMode())
	}
}

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "listen_addr": ":9090",
  "driver": "postgres",
  "dsn": "postgres://user:pw@localhost:5432/edufinance",
  "catalog_schema": "analytics",
  "metadata_ttl": "30m",
  "query_ttl": "5m",
  "consistency_sample": 64,
  "leaderboard_size": 5,
  "dev_mode": true
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.ListenAddr == nil || *cfg.ListenAddr != ":9090" {
		t.Errorf("Expected ListenAddr ':9090', got %v", cfg.ListenAddr)
	}
	if cfg.Driver == nil || *cfg.Driver != "postgres" {
		t.Errorf("Expected Driver 'postgres', got %v", cfg.Driver)
	}
	if cfg.DSN == nil || *cfg.DSN != "postgres://user:pw@localhost:5432/edufinance" {
		t.Errorf("Expected DSN to round-trip, got %v", cfg.DSN)
	}
	if cfg.CatalogSchema == nil || *cfg.CatalogSchema != "analytics" {
		t.Errorf("Expected CatalogSchema 'analytics', got %v", cfg.CatalogSchema)
	}
	if cfg.ConsistencySample == nil || *cfg.ConsistencySample != 64 {
		t.Errorf("Expected ConsistencySample 64, got %v", cfg.ConsistencySample)
	}
	if cfg.LeaderboardSize == nil || *cfg.LeaderboardSize != 5 {
		t.Errorf("Expected LeaderboardSize 5, got %v", cfg.LeaderboardSize)
	}
	if cfg.DevMode == nil || *cfg.DevMode != true {
		t.Errorf("Expected DevMode true, got %v", cfg.DevMode)
	}

	if cfg.GetMetadataTTL() != 30*time.Minute {
		t.Errorf("GetMetadataTTL() = %v, want 30m", cfg.GetMetadataTTL())
	}
	if cfg.GetQueryTTL() != 5*time.Minute {
		t.Errorf("GetQueryTTL() = %v, want 5m", cfg.GetQueryTTL())
	}
	if cfg.GetWarehouseDSN() != "postgres://user:pw@localhost:5432/edufinance" {
		t.Errorf("GetWarehouseDSN() = %s, want the postgres DSN", cfg.GetWarehouseDSN())
	}
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.json")

	invalidJSON := `{
  "listen_addr": 8080
`
	if err := os.WriteFile(configPath, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     DefaultConfig(),
			wantErr: false,
		},
		{
			name:    "empty config is valid",
			cfg:     &Config{},
			wantErr: false,
		},
		{
			name: "unknown driver",
			cfg: &Config{
				Driver: ptrString("athena"),
			},
			wantErr: true,
		},
		{
			name: "postgres without dsn",
			cfg: &Config{
				Driver: ptrString("postgres"),
			},
			wantErr: true,
		},
		{
			name: "postgres with dsn",
			cfg: &Config{
				Driver: ptrString("postgres"),
				DSN:    ptrString("postgres://localhost/edufinance"),
			},
			wantErr: false,
		},
		{
			name: "invalid metadata ttl",
			cfg: &Config{
				MetadataTTL: ptrString("soon"),
			},
			wantErr: true,
		},
		{
			name: "invalid query ttl",
			cfg: &Config{
				QueryTTL: ptrString("eventually"),
			},
			wantErr: true,
		},
		{
			name: "negative consistency sample",
			cfg: &Config{
				ConsistencySample: ptrInt(-1),
			},
			wantErr: true,
		},
		{
			name: "zero consistency sample disables the check",
			cfg: &Config{
				ConsistencySample: ptrInt(0),
			},
			wantErr: false,
		},
		{
			name: "zero leaderboard size",
			cfg: &Config{
				LeaderboardSize: ptrInt(0),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetMetadataTTL(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		want time.Duration
	}{
		{
			name: "1 hour",
			cfg: &Config{
				MetadataTTL: ptrString("1h"),
			},
			want: time.Hour,
		},
		{
			name: "90 seconds",
			cfg: &Config{
				MetadataTTL: ptrString("90s"),
			},
			want: 90 * time.Second,
		},
		{
			name: "nil pointer returns default",
			cfg:  &Config{},
			want: time.Hour,
		},
		{
			name: "empty string returns default",
			cfg: &Config{
				MetadataTTL: ptrString(""),
			},
			want: time.Hour,
		},
		{
			name: "invalid duration returns default",
			cfg: &Config{
				MetadataTTL: ptrString("invalid"),
			},
			want: time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.GetMetadataTTL()
			if got != tt.want {
				t.Errorf("GetMetadataTTL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetQueryTTL(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		want time.Duration
	}{
		{
			name: "15 minutes",
			cfg: &Config{
				QueryTTL: ptrString("15m"),
			},
			want: 15 * time.Minute,
		},
		{
			name: "nil pointer returns default",
			cfg:  &Config{},
			want: 15 * time.Minute,
		},
		{
			name: "invalid duration returns default",
			cfg: &Config{
				QueryTTL: ptrString("invalid"),
			},
			want: 15 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.GetQueryTTL()
			if got != tt.want {
				t.Errorf("GetQueryTTL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg, err := LoadConfig("../../config/dashboard.defaults.json")
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}
	if cfg.GetListenAddr() != ":8080" {
		t.Errorf("Expected :8080, got %s", cfg.GetListenAddr())
	}
	if cfg.GetDriver() != "sqlite" {
		t.Errorf("Expected sqlite, got %s", cfg.GetDriver())
	}
	if cfg.GetMetadataTTL() != time.Hour {
		t.Errorf("Expected 1h, got %v", cfg.GetMetadataTTL())
	}
}

func TestLoadExampleConfigFile(t *testing.T) {
	cfg, err := LoadConfig("../../config/dashboard.example.json")
	if err != nil {
		t.Fatalf("Failed to load example: %v", err)
	}
	if cfg.GetDriver() != "postgres" {
		t.Errorf("Expected postgres, got %s", cfg.GetDriver())
	}
	if cfg.GetCatalogSchema() != "analytics" {
		t.Errorf("Expected analytics, got %s", cfg.GetCatalogSchema())
	}
	if cfg.GetQueryTTL() != 5*time.Minute {
		t.Errorf("Expected 5m, got %v", cfg.GetQueryTTL())
	}
}

func TestLoadConfigPartial(t *testing.T) {
	// Partial config: only override the listen address; everything else
	// should keep defaults.
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	partialJSON := `{
  "listen_addr": ":3000"
}`
	if err := os.WriteFile(configPath, []byte(partialJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load partial config: %v", err)
	}

	// Overridden value
	if cfg.GetListenAddr() != ":3000" {
		t.Errorf("Expected overridden ListenAddr :3000, got %s", cfg.GetListenAddr())
	}
	// Default values should be preserved
	if cfg.GetDriver() != "sqlite" {
		t.Errorf("Expected default Driver sqlite, got %s", cfg.GetDriver())
	}
	if cfg.GetWarehouseDSN() != "warehouse.db" {
		t.Errorf("Expected default WarehouseDSN warehouse.db, got %s", cfg.GetWarehouseDSN())
	}
	if cfg.GetMetadataTTL() != time.Hour {
		t.Errorf("Expected default MetadataTTL 1h, got %v", cfg.GetMetadataTTL())
	}
	if cfg.GetQueryTTL() != 15*time.Minute {
		t.Errorf("Expected default QueryTTL 15m, got %v", cfg.GetQueryTTL())
	}
	if cfg.GetConsistencySample() != 256 {
		t.Errorf("Expected default ConsistencySample 256, got %d", cfg.GetConsistencySample())
	}
}

func TestLoadConfigRejectsNonJSON(t *testing.T) {
	_, err := LoadConfig("/some/path/config.yaml")
	if err == nil {
		t.Error("Expected error for non-.json extension, got nil")
	}
}

func TestLoadConfigRejectsLargeFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "large.json")

	// Create a file larger than 1MB
	largeData := make([]byte, 2*1024*1024) // 2MB
	if err := os.WriteFile(configPath, largeData, 0644); err != nil {
		t.Fatalf("Failed to write large file: %v", err)
	}

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Error("Expected error for file size > 1MB, got nil")
	}
}

func TestGetterDefaults(t *testing.T) {
	// Getter methods return expected defaults when pointers are nil
	cfg := &Config{}

	if cfg.GetListenAddr() != ":8080" {
		t.Errorf("GetListenAddr() = %s, want :8080", cfg.GetListenAddr())
	}
	if cfg.GetDriver() != "sqlite" {
		t.Errorf("GetDriver() = %s, want sqlite", cfg.GetDriver())
	}
	if cfg.GetDBPath() != "warehouse.db" {
		t.Errorf("GetDBPath() = %s, want warehouse.db", cfg.GetDBPath())
	}
	if cfg.GetDSN() != "" {
		t.Errorf("GetDSN() = %s, want empty", cfg.GetDSN())
	}
	if cfg.GetCatalogSchema() != "public" {
		t.Errorf("GetCatalogSchema() = %s, want public", cfg.GetCatalogSchema())
	}
	if cfg.GetConsistencySample() != 256 {
		t.Errorf("GetConsistencySample() = %d, want 256", cfg.GetConsistencySample())
	}
	if cfg.GetLeaderboardSize() != 10 {
		t.Errorf("GetLeaderboardSize() = %d, want 10", cfg.GetLeaderboardSize())
	}
	if cfg.GetDevMode() != false {
		t.Errorf("GetDevMode() = %v, want false", cfg.GetDevMode())
	}
}
